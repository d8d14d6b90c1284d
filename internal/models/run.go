// internal/models/run.go
package models

import "time"

// RunState is a step of the campaign run state machine.
type RunState string

const (
	StateInit             RunState = "INIT"
	StateResolvingObjects RunState = "RESOLVING_OBJECTS"
	StateCampaignCreated  RunState = "CAMPAIGN_CREATED"
	StateWaiting          RunState = "WAITING"
	StateFetchingResults  RunState = "FETCHING_RESULTS"
	StateNotifying        RunState = "NOTIFYING"
	StateDone             RunState = "DONE"
	StateFailed           RunState = "FAILED"
)

// RunSummary is what a run reports when it ends.
type RunSummary struct {
	RunID           string                     `json:"runId"`
	FinalState      RunState                   `json:"finalState"`
	Campaign        *CampaignRef               `json:"campaign,omitempty"`
	Resolved        *ResolvedObjects           `json:"resolved,omitempty"`
	TargetCount     int                        `json:"targetCount"`
	Results         []TargetResult             `json:"results,omitempty"`
	Outcomes        []NotificationOutcome      `json:"outcomes,omitempty"`
	Degraded        bool                       `json:"degraded"`
	DegradedReasons []string                   `json:"degradedReasons,omitempty"`
	ResultsFile     string                     `json:"resultsFile,omitempty"`
	PhaseDurations  map[RunState]time.Duration `json:"phaseDurations,omitempty"`
	StartedAt       time.Time                  `json:"startedAt"`
	FinishedAt      time.Time                  `json:"finishedAt"`
}

func (s *RunSummary) Sent() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Sent {
			n++
		}
	}
	return n
}

// Failures returns the outcomes whose send failed.
func (s *RunSummary) Failures() []NotificationOutcome {
	var failed []NotificationOutcome
	for _, o := range s.Outcomes {
		if !o.Sent {
			failed = append(failed, o)
		}
	}
	return failed
}

// Degrade records a non-fatal failure after the campaign was created.
func (s *RunSummary) Degrade(reason string) {
	s.Degraded = true
	s.DegradedReasons = append(s.DegradedReasons, reason)
}

// SeverityCounts tallies results per severity name.
func (s *RunSummary) SeverityCounts() map[string]int {
	counts := make(map[string]int, len(severityNames))
	for _, name := range severityNames {
		counts[name] = 0
	}
	for _, r := range s.Results {
		counts[r.Severity.String()]++
	}
	return counts
}
