package sendwarnings

import (
	"fmt"
	"time"

	"phishbot/internal/common/config"
)

type Config struct {
	Transport    string        `mapstructure:"transport"`
	SenderEmail  string        `mapstructure:"sender_email"`
	SenderName   string        `mapstructure:"sender_name"`
	Subject      string        `mapstructure:"subject"`
	TextTemplate string        `mapstructure:"text_template"`
	HTMLTemplate string        `mapstructure:"html_template"`
	SendDelay    time.Duration `mapstructure:"send_delay"`

	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	TLSMode      string        `mapstructure:"tls_mode"`
	Timeout      time.Duration `mapstructure:"timeout"`

	SESRegion string `mapstructure:"ses_region"`
}

func DefaultConfig() *Config {
	return &Config{
		Transport:  config.TransportSMTP,
		SenderName: "Security Team",
		Subject:    DefaultSubject,
		SendDelay:  2 * time.Second,
		SMTPPort:   587,
		TLSMode:    config.TLSModeStartTLS,
		Timeout:    30 * time.Second,
	}
}

// NewConfig flattens the notify settings and the relay credentials.
func NewConfig(n config.NotifyConfig, secrets config.Secrets) *Config {
	cfg := DefaultConfig()
	cfg.Transport = n.Transport
	cfg.SenderEmail = n.SenderEmail
	if n.SenderName != "" {
		cfg.SenderName = n.SenderName
	}
	if n.Subject != "" {
		cfg.Subject = n.Subject
	}
	cfg.TextTemplate = n.TextTemplate
	cfg.HTMLTemplate = n.HTMLTemplate
	cfg.SendDelay = n.SendDelay
	cfg.SMTPHost = n.SMTP.Host
	if n.SMTP.Port > 0 {
		cfg.SMTPPort = n.SMTP.Port
	}
	if n.SMTP.TLSMode != "" {
		cfg.TLSMode = n.SMTP.TLSMode
	}
	if n.SMTP.Timeout > 0 {
		cfg.Timeout = n.SMTP.Timeout
	}
	cfg.SMTPUsername = secrets.SMTPUsername
	cfg.SMTPPassword = secrets.SMTPPassword
	cfg.SESRegion = n.SES.Region
	return cfg
}

func (c *Config) Validate() error {
	if c.SenderEmail == "" {
		return fmt.Errorf("sender_email is required")
	}
	if c.SendDelay < 0 {
		return fmt.Errorf("send_delay must not be negative")
	}
	switch c.Transport {
	case config.TransportSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("smtp_host is required")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("smtp_port must be between 1 and 65535")
		}
		if c.Timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		switch c.TLSMode {
		case config.TLSModeStartTLS, config.TLSModeImplicit, config.TLSModeNone:
		default:
			return fmt.Errorf("tls_mode must be starttls, implicit or none")
		}
	case config.TransportSES:
		if c.SESRegion == "" {
			return fmt.Errorf("ses_region is required")
		}
	default:
		return fmt.Errorf("transport must be smtp or ses")
	}
	return nil
}
