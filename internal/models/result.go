// internal/models/result.go
package models

import "time"

// TargetResult is a target's worst observed behaviour in a campaign.
type TargetResult struct {
	Target        Target    `json:"target"`
	Severity      Severity  `json:"severity"`
	Reported      bool      `json:"reported"`
	SendFailed    bool      `json:"sendFailed"`
	Status        string    `json:"status"`
	EventType     string    `json:"eventType"`
	EventTime     time.Time `json:"eventTime"`
	LastEventTime time.Time `json:"lastEventTime"`
	InRoster      bool      `json:"inRoster"`
}

// Terminal reports whether nothing more can happen for this target:
// credentials were submitted, the email was reported, or delivery failed.
func (r TargetResult) Terminal() bool {
	return r.Severity == SeveritySubmitted || r.Reported || r.SendFailed
}
