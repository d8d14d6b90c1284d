package sendwarnings

import (
	"context"

	appaws "phishbot/internal/common/aws"
	"phishbot/internal/common/config"
)

// SESMailer delivers through Amazon SES. Each Send is one SendRawEmail call;
// the session holds no connection of its own.
type SESMailer struct {
	client *appaws.SESClient
}

func NewSESMailer(client *appaws.SESClient) *SESMailer {
	return &SESMailer{client: client}
}

func (m *SESMailer) Name() string {
	return config.TransportSES
}

func (m *SESMailer) Open(ctx context.Context) (Session, error) {
	return sesSession{client: m.client}, nil
}

type sesSession struct {
	client *appaws.SESClient
}

func (s sesSession) Send(ctx context.Context, from string, to []string, raw []byte) (string, error) {
	return s.client.SendRawEmail(ctx, from, to, raw)
}

func (s sesSession) Close() error { return nil }
