package sendwarnings

import (
	"context"

	"phishbot/internal/common/logger"
	"phishbot/internal/models"
)

type Input struct {
	CampaignName string                `json:"campaignName"`
	Targets      []models.TargetResult `json:"targets"`
}

type Output struct {
	Outcomes []models.NotificationOutcome `json:"outcomes"`
	Sent     int                          `json:"sent"`
	Failed   int                          `json:"failed"`
}

// Mailer opens delivery sessions on one transport.
type Mailer interface {
	Name() string
	Open(ctx context.Context) (Session, error)
}

// Session delivers raw MIME messages. It is reused for a whole batch and
// must survive a failed send.
type Session interface {
	Send(ctx context.Context, from string, to []string, raw []byte) (string, error)
	Close() error
}

type ServiceDependencies struct {
	Logger logger.Logger
	Mailer Mailer
}
