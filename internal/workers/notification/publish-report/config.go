package publishreport

import (
	"fmt"

	"phishbot/internal/common/config"
)

type Config struct {
	ResultsDir      string `mapstructure:"results_dir"`
	SNSTopicARN     string `mapstructure:"sns_topic_arn"`
	AWSRegion       string `mapstructure:"aws_region"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
}

func NewConfig(cfg *config.Config) *Config {
	dir := cfg.Campaign.ResultsDir
	if dir == "" {
		dir = "."
	}
	return &Config{
		ResultsDir:      dir,
		SNSTopicARN:     cfg.Report.SNSTopicARN,
		AWSRegion:       cfg.Report.AWSRegion,
		MetricsTextfile: cfg.Metrics.Textfile,
	}
}

func (c *Config) Validate() error {
	if c.ResultsDir == "" {
		return fmt.Errorf("results_dir is required")
	}
	if c.SNSTopicARN != "" && c.AWSRegion == "" {
		return fmt.Errorf("aws_region is required when sns_topic_arn is set")
	}
	return nil
}
