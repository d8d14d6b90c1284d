// internal/models/notification.go
package models

// NotificationOutcome is the per-target result of a warning send attempt.
type NotificationOutcome struct {
	Target    Target   `json:"target"`
	Severity  Severity `json:"severity"`
	Sent      bool     `json:"sent"`
	MessageID string   `json:"messageId,omitempty"`
	Err       error    `json:"-"`
	Error     string   `json:"error,omitempty"`
}

// WarningMessage is a rendered warning email ready for a transport.
type WarningMessage struct {
	To       Target
	Subject  string
	TextBody string
	HTMLBody string
}
