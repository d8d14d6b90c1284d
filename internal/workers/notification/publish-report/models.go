package publishreport

import (
	"context"

	"phishbot/internal/common/logger"
	"phishbot/internal/common/metrics"
	"phishbot/internal/models"
)

type Input struct {
	Summary *models.RunSummary `json:"summary"`
	// Affected are the targets written to the results file.
	Affected []models.TargetResult `json:"affected"`
	// FileName is relative to the results directory; empty skips the file.
	FileName string `json:"fileName"`
	// Transport labels the notification counters.
	Transport string `json:"transport"`
}

type Output struct {
	ResultsFile  string   `json:"resultsFile,omitempty"`
	SNSMessageID string   `json:"snsMessageId,omitempty"`
	Textfile     string   `json:"textfile,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// Publisher sends the run summary to a topic.
type Publisher interface {
	Publish(ctx context.Context, topicARN, subject, message string) (string, error)
}

type ServiceDependencies struct {
	Logger    logger.Logger
	Publisher Publisher
	Metrics   *metrics.Metrics
}

// resultRow is one line of the results CSV.
type resultRow struct {
	FirstName string `csv:"FirstName"`
	LastName  string `csv:"LastName"`
	Email     string `csv:"Email"`
	EventTime string `csv:"EventTime"`
	EventType string `csv:"EventType"`
}

// snsSummary is the JSON document published to SNS.
type snsSummary struct {
	RunID           string         `json:"runId"`
	FinalState      string         `json:"finalState"`
	CampaignID      int64          `json:"campaignId,omitempty"`
	CampaignName    string         `json:"campaignName,omitempty"`
	Targets         int            `json:"targets"`
	Severities      map[string]int `json:"severities"`
	Sent            int            `json:"sent"`
	Failed          []string       `json:"failed,omitempty"`
	Degraded        bool           `json:"degraded"`
	DegradedReasons []string       `json:"degradedReasons,omitempty"`
	ResultsFile     string         `json:"resultsFile,omitempty"`
	StartedAt       string         `json:"startedAt"`
	FinishedAt      string         `json:"finishedAt"`
}
