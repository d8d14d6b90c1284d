package classifyresults

import (
	"fmt"

	"phishbot/internal/models"
)

type Config struct {
	MinSeverity models.Severity `mapstructure:"min_severity"`
}

func DefaultConfig() *Config {
	return &Config{MinSeverity: models.SeverityClicked}
}

// NewConfig parses the configured severity name.
func NewConfig(minSeverity string) (*Config, error) {
	cfg := DefaultConfig()
	if minSeverity == "" {
		return cfg, nil
	}
	sev, err := models.ParseSeverity(minSeverity)
	if err != nil {
		return nil, err
	}
	cfg.MinSeverity = sev
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.MinSeverity <= models.SeverityNone || c.MinSeverity > models.SeveritySubmitted {
		return fmt.Errorf("min_severity must be between sent and submitted")
	}
	return nil
}
