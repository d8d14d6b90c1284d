package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"phishbot/internal/gophish"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <campaign-id>",
	Short: "Show a campaign's stats, per-target severity and timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectCampaign,
}

func inspectCampaign(cmd *cobra.Command, args []string) error {
	id, err := parseCampaignID(args[0])
	if err != nil {
		return err
	}
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	summary, err := a.api.GetCampaignSummary(ctx, id)
	if err != nil {
		return err
	}
	results, err := a.api.GetCampaignResults(ctx, id)
	if err != nil {
		return err
	}

	printInspection(cmd.OutOrStdout(), summary, results)
	return nil
}

func printInspection(out io.Writer, summary *gophish.CampaignSummary, results *gophish.CampaignResults) {
	st := summary.Stats
	fmt.Fprintf(out, "Campaign %d: %s\n", summary.ID, summary.Name)
	fmt.Fprintf(out, "  status:    %s\n", summary.Status)
	fmt.Fprintf(out, "  launched:  %s\n", formatTime(summary.LaunchDate))
	if !summary.CompletedDate.IsZero() {
		fmt.Fprintf(out, "  completed: %s\n", formatTime(summary.CompletedDate))
	}
	fmt.Fprintf(out, "  stats:     total %d, sent %d, opened %d, clicked %d, submitted %d, reported %d, errors %d\n\n",
		st.Total, st.Sent, st.Opened, st.Clicked, st.SubmittedData, st.EmailReported, st.Error)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tSEVERITY\tREPORTED\tLAST EVENT\tAT")
	for _, r := range gophish.Classify(results, nil) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n",
			r.Target.Email, r.Target.FullName(), r.Severity, r.Reported, r.EventType, formatTime(r.EventTime))
	}
	w.Flush()

	if len(results.Timeline) == 0 {
		return
	}
	fmt.Fprintln(out, "\nTimeline:")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range results.Timeline {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", formatTime(e.Time), e.Message, e.Email)
	}
	tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
