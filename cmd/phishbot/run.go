package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"phishbot/internal/models"
	"phishbot/internal/pipeline"
)

const testModeWindow = 30 * time.Minute

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch this period's campaign, wait, warn and report",
	Long: `Run one full cycle:
  1. load the roster and check GoPhish is reachable
  2. resolve the SMTP profile, template and landing page by name
  3. create and launch the campaign (never retried)
  4. wait for campaign.timeout (or until GoPhish reports completion when polling)
  5. classify results and email a warning to targets at or above notify.min_severity
  6. write the results file and the run summary`,
	Args: cobra.NoArgs,
	RunE: runCampaign,
}

var completeCmd = &cobra.Command{
	Use:   "complete <campaign-id>",
	Short: "Classify, warn and report for an existing campaign",
	Long: `Skip creation and the wait. Fetch the results of an existing campaign,
email the warnings and write campaign_<id>_results_<timestamp>.csv.`,
	Args: cobra.ExactArgs(1),
	RunE: completeCampaign,
}

func runCampaign(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	opts := pipeline.Options{}
	if d, _ := cmd.Flags().GetDuration("timeout"); d > 0 {
		opts.Timeout = d
	}
	if testMode, _ := cmd.Flags().GetBool("test"); testMode {
		opts.Timeout = testModeWindow
		a.log.Info("Test mode: shortened campaign window", map[string]interface{}{"timeout": testModeWindow.String()})
	}

	summary, err := pipeline.NewRunner(a.cfg, a.deps(), opts).Run(cmd.Context())
	printSummary(cmd.OutOrStdout(), summary)
	return err
}

func completeCampaign(cmd *cobra.Command, args []string) error {
	id, err := parseCampaignID(args[0])
	if err != nil {
		return err
	}
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := pipeline.NewRunner(a.cfg, a.deps(), pipeline.Options{}).Complete(cmd.Context(), id)
	printSummary(cmd.OutOrStdout(), summary)
	return err
}

func parseCampaignID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("campaign id must be a positive integer, got %q", arg)
	}
	return id, nil
}

func printSummary(w io.Writer, s *models.RunSummary) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "\nRun %s finished in state %s\n", s.RunID, s.FinalState)
	if s.Campaign != nil {
		fmt.Fprintf(w, "  campaign:  %s (id %d)\n", s.Campaign.Name, s.Campaign.ID)
	}
	fmt.Fprintf(w, "  targets:   %d\n", s.TargetCount)
	if len(s.Results) > 0 {
		counts := s.SeverityCounts()
		fmt.Fprintf(w, "  results:   sent %d, opened %d, clicked %d, submitted %d\n",
			counts["sent"], counts["opened"], counts["clicked"], counts["submitted"])
	}
	if len(s.Outcomes) > 0 {
		fmt.Fprintf(w, "  warnings:  %d sent, %d failed\n", s.Sent(), len(s.Failures()))
		for _, f := range s.Failures() {
			fmt.Fprintf(w, "    - %s: %s\n", f.Target.Email, f.Error)
		}
	}
	if s.ResultsFile != "" {
		fmt.Fprintf(w, "  results file: %s\n", s.ResultsFile)
	}
	if s.Degraded {
		fmt.Fprintln(w, "  degraded:")
		for _, r := range s.DegradedReasons {
			fmt.Fprintf(w, "    - %s\n", r)
		}
	}
}
