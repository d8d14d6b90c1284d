package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_PlaceholderSecrets(t *testing.T) {
	cfg := &Config{Secrets: Secrets{
		GoPhishAPIKey: "your_api_key_here",
		SMTPUsername:  "mailer@corp.test",
		SMTPPassword:  "CHANGEME",
	}}
	assert.Equal(t, []string{"GOPHISH_API_KEY", "SMTP_PASSWORD"}, cfg.PlaceholderSecrets())

	cfg.Secrets = Secrets{GoPhishAPIKey: "9f2c1a7e", SMTPPassword: "s3cret"}
	assert.Empty(t, cfg.PlaceholderSecrets())
}
