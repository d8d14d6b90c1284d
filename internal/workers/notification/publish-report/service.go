package publishreport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/common/metrics"
	"phishbot/internal/models"
)

const (
	SinkResultsFile = "results_file"
	SinkSNS         = "sns"
	SinkTextfile    = "metrics_textfile"
)

type Service struct {
	config    *Config
	logger    logger.Logger
	publisher Publisher
	metrics   *metrics.Metrics
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:    config,
		logger:    deps.Logger,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
	}
}

// Execute writes every configured sink. A failing sink is logged as
// REPORT_FAILED and listed in Output.Errors; the other sinks still run.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Summary == nil {
		return nil, fmt.Errorf("summary is required")
	}
	out := &Output{}
	sum := input.Summary

	if input.FileName != "" && len(input.Affected) > 0 {
		path, err := s.writeResults(input.FileName, input.Affected)
		if err != nil {
			s.sinkFailed(out, SinkResultsFile, err)
		} else {
			out.ResultsFile = path
			sum.ResultsFile = path
		}
	}

	s.logSummary(sum)

	if s.metrics != nil {
		s.recordMetrics(sum, input.Transport)
		if s.config.MetricsTextfile != "" {
			if err := s.metrics.WriteTextfile(s.config.MetricsTextfile); err != nil {
				s.sinkFailed(out, SinkTextfile, err)
			} else {
				out.Textfile = s.config.MetricsTextfile
			}
		}
	}

	if s.config.SNSTopicARN != "" && s.publisher != nil {
		id, err := s.publish(ctx, sum)
		if err != nil {
			s.sinkFailed(out, SinkSNS, err)
		} else {
			out.SNSMessageID = id
			s.logger.Info("Run summary published", map[string]interface{}{"topic": s.config.SNSTopicARN, "messageId": id})
		}
	}

	return out, nil
}

func (s *Service) writeResults(name string, affected []models.TargetResult) (string, error) {
	if err := os.MkdirAll(s.config.ResultsDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.config.ResultsDir, name)

	rows := make([]*resultRow, 0, len(affected))
	for _, r := range affected {
		row := &resultRow{
			FirstName: r.Target.FirstName,
			LastName:  r.Target.LastName,
			Email:     r.Target.Email,
			EventType: r.EventType,
		}
		if !r.EventTime.IsZero() {
			row.EventTime = r.EventTime.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	s.logger.Info("Results file written", map[string]interface{}{"path": path, "rows": len(rows)})
	return path, nil
}

func (s *Service) logSummary(sum *models.RunSummary) {
	fields := map[string]interface{}{
		"runId":      sum.RunID,
		"finalState": string(sum.FinalState),
		"targets":    sum.TargetCount,
		"sent":       sum.Sent(),
		"failed":     len(sum.Failures()),
		"degraded":   sum.Degraded,
	}
	if sum.Campaign != nil {
		fields["campaignId"] = sum.Campaign.ID
		fields["campaign"] = sum.Campaign.Name
	}
	for sev, n := range sum.SeverityCounts() {
		fields["severity_"+sev] = n
	}
	for state, d := range sum.PhaseDurations {
		fields["duration_"+string(state)] = d.Round(time.Millisecond).String()
	}
	s.logger.Info("Run summary", fields)

	for _, f := range sum.Failures() {
		s.logger.Warn("Warning not delivered", map[string]interface{}{
			"to":    f.Target.Email,
			"error": f.Error,
		})
	}
	for _, reason := range sum.DegradedReasons {
		s.logger.Warn("Run degraded", map[string]interface{}{"reason": reason})
	}
}

func (s *Service) recordMetrics(sum *models.RunSummary, transport string) {
	s.metrics.Targets.Set(float64(sum.TargetCount))
	for sev, n := range sum.SeverityCounts() {
		s.metrics.Results.WithLabelValues(sev).Set(float64(n))
	}
	if transport != "" {
		s.metrics.NotificationsSent.WithLabelValues(transport).Add(float64(sum.Sent()))
		s.metrics.NotificationsFailed.WithLabelValues(transport).Add(float64(len(sum.Failures())))
	}
	for state, d := range sum.PhaseDurations {
		s.metrics.PhaseDuration.WithLabelValues(string(state)).Set(d.Seconds())
	}
	s.metrics.RunOutcome.WithLabelValues(string(sum.FinalState)).Set(1)
	if sum.Degraded {
		s.metrics.RunOutcome.WithLabelValues("DEGRADED").Set(1)
	}
	s.metrics.LastRunFinished.Set(float64(sum.FinishedAt.Unix()))
}

func (s *Service) publish(ctx context.Context, sum *models.RunSummary) (string, error) {
	doc := snsSummary{
		RunID:           sum.RunID,
		FinalState:      string(sum.FinalState),
		Targets:         sum.TargetCount,
		Severities:      sum.SeverityCounts(),
		Sent:            sum.Sent(),
		Degraded:        sum.Degraded,
		DegradedReasons: sum.DegradedReasons,
		ResultsFile:     sum.ResultsFile,
		StartedAt:       sum.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:      sum.FinishedAt.UTC().Format(time.RFC3339),
	}
	for _, f := range sum.Failures() {
		doc.Failed = append(doc.Failed, f.Target.Email)
	}
	subject := fmt.Sprintf("phishbot run %s", sum.FinalState)
	if sum.Campaign != nil {
		doc.CampaignID = sum.Campaign.ID
		doc.CampaignName = sum.Campaign.Name
		subject = fmt.Sprintf("phishbot: %s %s", sum.Campaign.Name, sum.FinalState)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return s.publisher.Publish(ctx, s.config.SNSTopicARN, subject, string(body))
}

func (s *Service) sinkFailed(out *Output, sink string, err error) {
	stdErr := apperrors.NewReportFailedError(sink, err)
	out.Errors = append(out.Errors, stdErr.Error())
	s.logger.Warn("Report sink failed", map[string]interface{}{
		"sink":  sink,
		"code":  stdErr.Code,
		"error": err.Error(),
	})
}

// ResultsFileName is the file a scheduled run writes for period (YYYY-MM).
func ResultsFileName(period string) string {
	return fmt.Sprintf("clicked_%s.csv", period)
}

// CompletionFileName is the file written when results are collected for an
// existing campaign.
func CompletionFileName(campaignID int64, at time.Time) string {
	return fmt.Sprintf("campaign_%d_results_%s.csv", campaignID, at.UTC().Format("20060102_150405"))
}
