// cmd/phishbot/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phishbot/internal/common/config"
	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/common/metrics"
	"phishbot/internal/common/observability"
	"phishbot/internal/gophish"
	"phishbot/internal/pipeline"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "phishbot",
	Short: "Run recurring GoPhish awareness campaigns",
	Long: `phishbot launches a phishing-awareness campaign on GoPhish from a CSV
roster, waits for the campaign window, then emails a warning to every target
who clicked (or worse) and writes a results file.

Secrets come from the environment or a .env file:
  GOPHISH_API_KEY, SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file (default: ./configs/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	runCmd.Flags().Duration("timeout", 0, "override campaign.timeout, e.g. 48h")
	runCmd.Flags().Bool("test", false, "short 30 minute campaign window")

	rootCmd.AddCommand(runCmd, completeCmd, inspectCmd, checkCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "phishbot: %v\n", err)
	}
	os.Exit(apperrors.ExitCode(err))
}

// app holds what every subcommand needs once the config is loaded.
type app struct {
	cfg     *config.Config
	loaded  *config.Result
	zap     *zap.Logger
	log     logger.Logger
	metrics *metrics.Metrics
	obs     *observability.Observability
	api     *gophish.Client
}

func setup() (*app, error) {
	loaded, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, logger.OutputPaths(cfg.Logging.Output)...)
	log := logger.NewZapAdapter(zapLog)

	m := metrics.New()
	obs := observability.New(cfg.App.Name, m.Registerer(), log)

	log.Info("Configuration loaded", map[string]interface{}{
		"configFile":  loaded.ConfigFile,
		"envFile":     loaded.EnvFile,
		"gophish":     cfg.GoPhish.URL,
		"authMode":    cfg.GoPhish.AuthMode,
		"timeout":     cfg.Campaign.Timeout.String(),
		"pollEnabled": cfg.Campaign.Poll.Enabled,
		"notify":      cfg.Notify.Enabled,
		"transport":   cfg.Notify.Transport,
	})

	api := gophish.NewClient(cfg.GoPhish, cfg.Secrets.GoPhishAPIKey, log,
		gophish.WithMetrics(m),
		gophish.WithObservability(obs),
	)

	return &app{cfg: cfg, loaded: loaded, zap: zapLog, log: log, metrics: m, obs: obs, api: api}, nil
}

func (a *app) deps() pipeline.Dependencies {
	return pipeline.Dependencies{
		Logger:  a.log,
		API:     a.api,
		Metrics: a.metrics,
		Obs:     a.obs,
	}
}

func (a *app) close() {
	a.obs.Shutdown()
	_ = a.zap.Sync()
}
