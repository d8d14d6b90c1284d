package sendwarnings

import (
	"fmt"
	"strings"

	"github.com/domodwyer/mailyak/v3"
	"github.com/google/uuid"

	"phishbot/internal/models"
)

// buildMIME renders msg as a multipart/alternative message and returns it
// with the Message-ID it was given.
func buildMIME(from, fromName string, msg *models.WarningMessage) ([]byte, string, error) {
	// Host and auth are unused: delivery goes through a Session.
	m := mailyak.New("", nil)
	m.From(from)
	m.FromName(fromName)
	m.To(msg.To.Email)
	m.Subject(msg.Subject)

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(from))
	m.AddHeader("Message-ID", messageID)
	m.AddHeader("X-Mailer", "phishbot")
	m.AddHeader("Auto-Submitted", "auto-generated")

	m.Plain().Set(msg.TextBody)
	if msg.HTMLBody != "" {
		m.HTML().Set(msg.HTMLBody)
	}

	buf, err := m.MimeBuf()
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), messageID, nil
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}
