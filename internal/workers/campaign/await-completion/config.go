package awaitcompletion

import (
	"fmt"
	"time"

	"phishbot/internal/common/config"
)

type Config struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	PollEnabled  bool          `mapstructure:"poll_enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:      24 * time.Hour,
		PollEnabled:  false,
		PollInterval: 10 * time.Minute,
	}
}

func NewConfig(c config.CampaignConfig) *Config {
	cfg := DefaultConfig()
	cfg.Timeout = c.Timeout
	cfg.PollEnabled = c.Poll.Enabled
	if c.Poll.Interval > 0 {
		cfg.PollInterval = c.Poll.Interval
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PollEnabled && c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive when polling is enabled")
	}
	return nil
}
