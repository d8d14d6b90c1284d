// internal/common/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the immutable run configuration. Non-secret settings come from the
// settings file, secrets from the environment (see Secrets).
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	GoPhish  GoPhishConfig  `mapstructure:"gophish"`
	Campaign CampaignConfig `mapstructure:"campaign"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Report   ReportConfig   `mapstructure:"report"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Secrets  Secrets        `mapstructure:"-"`
}

// --- Core App Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// GoPhishConfig pins the API contract of the GoPhish server in use.
type GoPhishConfig struct {
	URL            string        `mapstructure:"url"`
	VerifySSL      bool          `mapstructure:"verify_ssl"`
	AuthMode       string        `mapstructure:"auth_mode"` // header | query
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type CampaignConfig struct {
	NamePrefix  string        `mapstructure:"name_prefix"`
	GroupPrefix string        `mapstructure:"group_prefix"`
	TargetsCSV  string        `mapstructure:"targets_csv"`
	SMTPProfile string        `mapstructure:"smtp_profile"`
	Template    string        `mapstructure:"template"`
	LandingPage string        `mapstructure:"landing_page"`
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Poll        PollConfig    `mapstructure:"poll"`
	ResultsDir  string        `mapstructure:"results_dir"`
}

// PollConfig selects live status polling during the wait window.
type PollConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// NotifyConfig holds warning-email preferences and the relay settings.
type NotifyConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Transport    string        `mapstructure:"transport"` // smtp | ses
	MinSeverity  string        `mapstructure:"min_severity"`
	SenderEmail  string        `mapstructure:"sender_email"`
	SenderName   string        `mapstructure:"sender_name"`
	Subject      string        `mapstructure:"subject"`
	TextTemplate string        `mapstructure:"text_template"`
	HTMLTemplate string        `mapstructure:"html_template"`
	SendDelay    time.Duration `mapstructure:"send_delay"`
	SMTP         SMTPConfig    `mapstructure:"smtp"`
	SES          SESConfig     `mapstructure:"ses"`
}

type SMTPConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	TLSMode string        `mapstructure:"tls_mode"` // starttls | implicit | none
	Timeout time.Duration `mapstructure:"timeout"`
}

// Address returns host:port for dialing.
func (s SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SESConfig struct {
	Region string `mapstructure:"region"`
}

// ReportConfig holds the optional run-summary sinks.
type ReportConfig struct {
	SNSTopicARN string `mapstructure:"sns_topic_arn"`
	AWSRegion   string `mapstructure:"aws_region"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Secrets are read from the process environment only.
type Secrets struct {
	GoPhishAPIKey string `env:"GOPHISH_API_KEY"`
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
}

const (
	TransportSMTP = "smtp"
	TransportSES  = "ses"

	AuthModeHeader = "header"
	AuthModeQuery  = "query"

	TLSModeStartTLS = "starttls"
	TLSModeImplicit = "implicit"
	TLSModeNone     = "none"
)

var severityNames = []string{"sent", "opened", "clicked", "submitted"}

// Validate returns every configuration problem at once, so an operator can fix
// the file in one pass.
func (c *Config) Validate() []string {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	require(c.Secrets.GoPhishAPIKey != "", "GOPHISH_API_KEY is required")
	require(c.GoPhish.URL != "", "gophish.url is required")
	require(c.GoPhish.AuthMode == AuthModeHeader || c.GoPhish.AuthMode == AuthModeQuery,
		"gophish.auth_mode must be header or query")
	require(c.GoPhish.RequestTimeout > 0, "gophish.request_timeout must be positive")

	require(c.Campaign.TargetsCSV != "", "campaign.targets_csv is required")
	require(c.Campaign.SMTPProfile != "", "campaign.smtp_profile is required")
	require(c.Campaign.Template != "", "campaign.template is required")
	require(c.Campaign.LandingPage != "", "campaign.landing_page is required")
	require(c.Campaign.URL != "", "campaign.url is required")
	require(c.Campaign.Timeout > 0, "campaign.timeout must be positive")
	if c.Campaign.Poll.Enabled {
		require(c.Campaign.Poll.Interval > 0, "campaign.poll.interval must be positive when polling is enabled")
	}

	if c.Notify.Enabled {
		require(c.Notify.SenderEmail != "", "notify.sender_email is required")
		require(isSeverityName(c.Notify.MinSeverity),
			fmt.Sprintf("notify.min_severity must be one of %s", strings.Join(severityNames, ", ")))
		require(c.Notify.SendDelay >= 0, "notify.send_delay must not be negative")
		switch c.Notify.Transport {
		case TransportSMTP:
			require(c.Notify.SMTP.Host != "", "SMTP_HOST or notify.smtp.host is required")
			require(c.Notify.SMTP.Port > 0 && c.Notify.SMTP.Port <= 65535, "smtp port must be between 1 and 65535")
			require(c.Notify.SMTP.TLSMode == TLSModeStartTLS || c.Notify.SMTP.TLSMode == TLSModeImplicit ||
				c.Notify.SMTP.TLSMode == TLSModeNone, "notify.smtp.tls_mode must be starttls, implicit or none")
			if c.Notify.SMTP.TLSMode != TLSModeNone {
				require(c.Secrets.SMTPUsername != "", "SMTP_USERNAME is required")
				require(c.Secrets.SMTPPassword != "", "SMTP_PASSWORD is required")
			} else if c.Secrets.SMTPUsername != "" {
				require(isLocalRelay(c.Notify.SMTP.Host),
					"notify.smtp.tls_mode none cannot carry SMTP credentials to a remote relay; use starttls or implicit")
			}
		case TransportSES:
			require(c.Notify.SES.Region != "", "notify.ses.region is required for the ses transport")
		default:
			problems = append(problems, "notify.transport must be smtp or ses")
		}
	}

	if c.Report.SNSTopicARN != "" {
		require(c.Report.AWSRegion != "", "report.aws_region is required when report.sns_topic_arn is set")
	}
	return problems
}

// isLocalRelay matches the hosts net/smtp allows PLAIN auth to without TLS.
func isLocalRelay(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func isSeverityName(name string) bool {
	for _, n := range severityNames {
		if n == name {
			return true
		}
	}
	return false
}
