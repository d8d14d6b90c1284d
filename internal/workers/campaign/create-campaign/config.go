package createcampaign

import (
	"fmt"

	"phishbot/internal/common/config"
)

type Config struct {
	NamePrefix  string `mapstructure:"name_prefix"`
	GroupPrefix string `mapstructure:"group_prefix"`
	SMTPProfile string `mapstructure:"smtp_profile"`
	Template    string `mapstructure:"template"`
	LandingPage string `mapstructure:"landing_page"`
	URL         string `mapstructure:"url"`
}

func NewConfig(c config.CampaignConfig) *Config {
	return &Config{
		NamePrefix:  c.NamePrefix,
		GroupPrefix: c.GroupPrefix,
		SMTPProfile: c.SMTPProfile,
		Template:    c.Template,
		LandingPage: c.LandingPage,
		URL:         c.URL,
	}
}

func (c *Config) Validate() error {
	if c.SMTPProfile == "" {
		return fmt.Errorf("smtp_profile is required")
	}
	if c.Template == "" {
		return fmt.Errorf("template is required")
	}
	if c.LandingPage == "" {
		return fmt.Errorf("landing_page is required")
	}
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// CampaignName is "<name_prefix> <YYYY-MM>".
func (c *Config) CampaignName(period string) string {
	return fmt.Sprintf("%s %s", c.NamePrefix, period)
}

// GroupName is "<group_prefix>-<YYYY-MM>".
func (c *Config) GroupName(period string) string {
	return fmt.Sprintf("%s-%s", c.GroupPrefix, period)
}
