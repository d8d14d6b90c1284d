// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "phishbot/internal/common/errors"
)

// EnvPrefix prefixes environment overrides of settings-file keys,
// e.g. PHISHBOT_CAMPAIGN_TIMEOUT=2h.
const EnvPrefix = "PHISHBOT"

// Result carries the loaded configuration plus where it came from, for the startup log.
type Result struct {
	Config     *Config
	ConfigFile string
	EnvFile    string
}

// Load reads .env, the settings file at path (or config.yaml from the usual
// locations when path is empty) and the environment secrets, then validates.
// Any failure is a CONFIG_INVALID error.
func Load(path string) (*Result, error) {
	envFile := loadEnvFile()

	v, err := readSettings(path)
	if err != nil {
		return nil, apperrors.NewConfigLoadError(err)
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigLoadError(fmt.Errorf("failed to unmarshal config: %w", err))
	}

	if err := env.Parse(&cfg.Secrets); err != nil {
		return nil, apperrors.NewConfigLoadError(fmt.Errorf("failed to parse environment: %w", err))
	}
	overrideFromSecrets(&cfg)

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, apperrors.NewConfigInvalidError(problems)
	}

	return &Result{Config: &cfg, ConfigFile: v.ConfigFileUsed(), EnvFile: envFile}, nil
}

func readSettings(path string) (*viper.Viper, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}
	return v, nil
}

// loadEnvFile loads the first .env found, walking from the working directory
// up to the project root. Existing environment variables win.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in string settings.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideFromSecrets lets SMTP_HOST and SMTP_PORT pick the relay.
func overrideFromSecrets(cfg *Config) {
	if cfg.Secrets.SMTPHost != "" {
		cfg.Notify.SMTP.Host = cfg.Secrets.SMTPHost
	}
	if cfg.Secrets.SMTPPort != 0 {
		cfg.Notify.SMTP.Port = cfg.Secrets.SMTPPort
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "phishbot")
	v.SetDefault("app.environment", "production")

	v.SetDefault("gophish.url", "")
	v.SetDefault("gophish.verify_ssl", true)
	v.SetDefault("gophish.auth_mode", AuthModeHeader)
	v.SetDefault("gophish.request_timeout", "30s")

	v.SetDefault("campaign.name_prefix", "Phishing Awareness")
	v.SetDefault("campaign.group_prefix", "Targets")
	v.SetDefault("campaign.targets_csv", "targets.csv")
	v.SetDefault("campaign.smtp_profile", "")
	v.SetDefault("campaign.template", "")
	v.SetDefault("campaign.landing_page", "")
	v.SetDefault("campaign.url", "")
	v.SetDefault("campaign.timeout", "24h")
	v.SetDefault("campaign.poll.enabled", false)
	v.SetDefault("campaign.poll.interval", "10m")
	v.SetDefault("campaign.results_dir", ".")

	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.transport", TransportSMTP)
	v.SetDefault("notify.min_severity", "clicked")
	v.SetDefault("notify.sender_email", "")
	v.SetDefault("notify.sender_name", "Security Team")
	v.SetDefault("notify.subject", "Security awareness: you interacted with a simulated phishing email")
	v.SetDefault("notify.text_template", "")
	v.SetDefault("notify.html_template", "")
	v.SetDefault("notify.send_delay", "2s")
	v.SetDefault("notify.smtp.host", "")
	v.SetDefault("notify.smtp.port", 587)
	v.SetDefault("notify.smtp.tls_mode", TLSModeStartTLS)
	v.SetDefault("notify.smtp.timeout", "30s")
	v.SetDefault("notify.ses.region", "")

	v.SetDefault("report.sns_topic_arn", "")
	v.SetDefault("report.aws_region", "")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}
