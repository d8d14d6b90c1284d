// internal/models/severity.go
package models

import (
	"fmt"
	"strings"
)

// Severity orders what a target did with the simulated phish.
type Severity int

const (
	SeverityNone Severity = iota
	SeveritySent
	SeverityOpened
	SeverityClicked
	SeveritySubmitted
)

var severityNames = map[Severity]string{
	SeverityNone:      "none",
	SeveritySent:      "sent",
	SeverityOpened:    "opened",
	SeverityClicked:   "clicked",
	SeveritySubmitted: "submitted",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

func ParseSeverity(name string) (Severity, error) {
	for s, n := range severityNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return SeverityNone, fmt.Errorf("unknown severity %q", name)
}

// GoPhish timeline messages and result statuses.
const (
	EventCampaignCreated = "Campaign Created"
	EventEmailSent       = "Email Sent"
	EventSendingError    = "Error Sending Email"
	EventEmailOpened     = "Email Opened"
	EventClickedLink     = "Clicked Link"
	EventDataSubmitted   = "Submitted Data"
	EventEmailReported   = "Email Reported"

	StatusScheduled = "Scheduled"
	StatusSending   = "Sending"
	StatusError     = "Error"
)

// SeverityOf maps an event message or result status onto the severity scale.
// Events that say nothing about the target's behaviour map to SeverityNone.
func SeverityOf(event string) Severity {
	switch event {
	case EventEmailSent:
		return SeveritySent
	case EventEmailOpened:
		return SeverityOpened
	case EventClickedLink:
		return SeverityClicked
	case EventDataSubmitted:
		return SeveritySubmitted
	default:
		return SeverityNone
	}
}
