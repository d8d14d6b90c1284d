package awaitcompletion

import (
	"context"
	"time"

	"phishbot/internal/common/logger"
	"phishbot/internal/gophish"
)

type Input struct {
	CampaignID int64 `json:"campaignId"`
}

// Reasons the wait ended.
const (
	ReasonTimeout       = "timeout"
	ReasonCompleted     = "campaign_completed"
	ReasonAllTerminal   = "all_targets_terminal"
	ReasonPollingFailed = "polling_failed"
)

type Output struct {
	Elapsed    time.Duration `json:"elapsed"`
	EarlyExit  bool          `json:"earlyExit"`
	Reason     string        `json:"reason"`
	Polls      int           `json:"polls"`
	PollFailed bool          `json:"pollFailed"`
	LastStatus string        `json:"lastStatus,omitempty"`
}

// ResultsAPI is the slice of the GoPhish client the wait needs.
type ResultsAPI interface {
	GetCampaignResults(ctx context.Context, id int64) (*gophish.CampaignResults, error)
}

type ServiceDependencies struct {
	Logger logger.Logger
	API    ResultsAPI
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}
