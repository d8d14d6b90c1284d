package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/retry"
	"phishbot/internal/roster"
	createcampaign "phishbot/internal/workers/campaign/create-campaign"
)

const (
	checkRetries      = 3
	checkInitialDelay = 2 * time.Second
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate config, secrets, roster and GoPhish connectivity",
	Long: `Check everything a run needs without creating anything:
  - the settings file and required secrets (placeholder values are rejected)
  - the target roster
  - GoPhish connectivity, retried with backoff
  - that the SMTP profile, template and landing page names resolve`,
	Args: cobra.NoArgs,
	RunE: checkSetup,
}

func checkSetup(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	fmt.Fprintf(out, "config:   ok (%s)\n", orDefault(a.loaded.ConfigFile, "defaults"))
	if placeholders := a.cfg.PlaceholderSecrets(); len(placeholders) > 0 {
		return apperrors.NewConfigInvalidError([]string{
			fmt.Sprintf("placeholder values in %s", strings.Join(placeholders, ", ")),
		})
	}
	fmt.Fprintf(out, "secrets:  ok (%s)\n", orDefault(a.loaded.EnvFile, "environment"))

	targets, err := roster.Load(a.cfg.Campaign.TargetsCSV, a.log)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "roster:   ok (%d targets from %s)\n", len(targets), a.cfg.Campaign.TargetsCSV)

	err = retry.WithBackoff(ctx, func(ctx context.Context) error {
		return a.api.Ping(ctx)
	}, checkRetries, checkInitialDelay, apperrors.IsRetryable, a.log, "GoPhish connectivity check")
	if err != nil {
		if ctx.Err() != nil {
			return apperrors.NewRunInterruptedError("CHECK", ctx.Err())
		}
		return apperrors.NewAPIUnreachableError(a.cfg.GoPhish.URL, err)
	}
	fmt.Fprintf(out, "gophish:  ok (%s)\n", a.cfg.GoPhish.URL)

	creator, err := createcampaign.NewService(
		createcampaign.ServiceDependencies{Logger: a.log, API: a.api},
		createcampaign.NewConfig(a.cfg.Campaign),
	)
	if err != nil {
		return apperrors.NewConfigInvalidError([]string{err.Error()})
	}
	resolved, err := creator.Resolve(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "objects:  ok (smtp %d, template %d, page %d)\n",
		resolved.SMTPProfile.ID, resolved.Template.ID, resolved.Page.ID)
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
