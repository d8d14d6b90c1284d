// Package errors provides the standardized error taxonomy for a campaign run.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Configuration errors: fatal before any API call.
const (
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrCodeRosterInvalid ErrorCode = "ROSTER_INVALID"
)

// Resolution errors: fatal before campaign creation.
const (
	ErrCodeObjectNotFound     ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeObjectAmbiguous    ErrorCode = "OBJECT_AMBIGUOUS"
	ErrCodeObjectLookupFailed ErrorCode = "OBJECT_LOOKUP_FAILED"
)

// Campaign errors: fatal, never retried.
const (
	ErrCodeGroupSyncFailed        ErrorCode = "GROUP_SYNC_FAILED"
	ErrCodeCampaignPayloadInvalid ErrorCode = "CAMPAIGN_PAYLOAD_INVALID"
	ErrCodeCampaignCreateFailed   ErrorCode = "CAMPAIGN_CREATE_FAILED"
)

// Follow-up errors: logged, the run is degraded but not failed.
const (
	ErrCodePollFailed             ErrorCode = "POLL_FAILED"
	ErrCodeResultsFetchFailed     ErrorCode = "RESULTS_FETCH_FAILED"
	ErrCodeMailSessionFailed      ErrorCode = "MAIL_SESSION_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeReportFailed           ErrorCode = "REPORT_FAILED"
)

// Transport and run control.
const (
	ErrCodeAPIUnreachable   ErrorCode = "API_UNREACHABLE"
	ErrCodeAPIRequestFailed ErrorCode = "API_REQUEST_FAILED"
	ErrCodeAPITimeout       ErrorCode = "API_TIMEOUT"
	ErrCodeRunInterrupted   ErrorCode = "RUN_INTERRUPTED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Err       error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Err
}

// Is matches another StandardError by code so callers can use errors.Is with a sentinel.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Err:       cause,
	}
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigInvalidError creates a fatal configuration error listing the offending fields.
func NewConfigInvalidError(problems []string) *StandardError {
	return newError(ErrCodeConfigInvalid, "Invalid configuration", strings.Join(problems, "; "), false, nil)
}

// NewConfigLoadError wraps a failure to read or decode the settings file.
func NewConfigLoadError(err error) *StandardError {
	return newError(ErrCodeConfigInvalid, "Failed to load configuration", causeText(err), false, err)
}

// NewRosterInvalidError creates a fatal roster error.
func NewRosterInvalidError(details string, err error) *StandardError {
	if details == "" {
		details = causeText(err)
	}
	return newError(ErrCodeRosterInvalid, "Target roster is invalid", details, false, err)
}

// NewObjectNotFoundError reports that no remote object carries the configured name.
func NewObjectNotFoundError(kind, name string) *StandardError {
	return newError(ErrCodeObjectNotFound, fmt.Sprintf("%s not found", kind),
		fmt.Sprintf("name: %q", name), false, nil).
		WithMetadata("kind", kind).
		WithMetadata("name", name)
}

// NewObjectAmbiguousError reports that several remote objects share the configured name.
func NewObjectAmbiguousError(kind, name string, ids []int64) *StandardError {
	return newError(ErrCodeObjectAmbiguous, fmt.Sprintf("%s name is ambiguous", kind),
		fmt.Sprintf("name: %q, ids: %v", name, ids), false, nil).
		WithMetadata("kind", kind).
		WithMetadata("name", name)
}

// NewObjectLookupFailedError wraps an API failure while listing a collection.
func NewObjectLookupFailedError(kind string, err error) *StandardError {
	return newError(ErrCodeObjectLookupFailed, fmt.Sprintf("Failed to list %s", kind),
		causeText(err), IsRetryable(err), err)
}

// NewGroupSyncFailedError wraps a failure to create or update the target group.
func NewGroupSyncFailedError(group string, err error) *StandardError {
	return newError(ErrCodeGroupSyncFailed, "Failed to sync target group",
		fmt.Sprintf("group: %s, error: %s", group, causeText(err)), IsRetryable(err), err)
}

// NewCampaignPayloadInvalidError reports a payload rejected by the local schema check.
func NewCampaignPayloadInvalidError(details string) *StandardError {
	return newError(ErrCodeCampaignPayloadInvalid, "Campaign payload failed validation", details, false, nil)
}

// NewCampaignCreateFailedError is never retryable: a retry could create a duplicate campaign.
func NewCampaignCreateFailedError(name string, err error) *StandardError {
	return newError(ErrCodeCampaignCreateFailed, "Campaign creation failed",
		fmt.Sprintf("campaign: %s, error: %s", name, causeText(err)), false, err)
}

// NewPollFailedError wraps a failed status poll during the wait phase.
func NewPollFailedError(campaignID int64, err error) *StandardError {
	return newError(ErrCodePollFailed, "Campaign status poll failed",
		fmt.Sprintf("campaignId: %d, error: %s", campaignID, causeText(err)), true, err)
}

// NewResultsFetchFailedError wraps a failed results read after the wait.
func NewResultsFetchFailedError(campaignID int64, err error) *StandardError {
	return newError(ErrCodeResultsFetchFailed, "Failed to fetch campaign results",
		fmt.Sprintf("campaignId: %d, error: %s", campaignID, causeText(err)), IsRetryable(err), err)
}

// NewMailSessionFailedError wraps a failure to open the mail relay session.
func NewMailSessionFailedError(transport string, err error) *StandardError {
	return newError(ErrCodeMailSessionFailed, "Failed to open mail session",
		fmt.Sprintf("transport: %s, error: %s", transport, causeText(err)), true, err)
}

// NewNotificationSendFailedError creates a per-target send error.
func NewNotificationSendFailedError(email string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Warning delivery failed",
		fmt.Sprintf("to: %s, error: %s", email, causeText(err)), true, err)
}

// NewReportFailedError wraps a failure in one of the report sinks.
func NewReportFailedError(sink string, err error) *StandardError {
	return newError(ErrCodeReportFailed, fmt.Sprintf("Report sink '%s' failed", sink),
		causeText(err), false, err)
}

// NewAPIUnreachableError reports that the GoPhish API could not be reached at all.
func NewAPIUnreachableError(baseURL string, err error) *StandardError {
	return newError(ErrCodeAPIUnreachable, "GoPhish API unreachable",
		fmt.Sprintf("url: %s, error: %s", baseURL, causeText(err)), true, err)
}

// NewAPIRequestFailedError wraps a non-2xx response or a transport failure.
func NewAPIRequestFailedError(method, endpoint string, status int, details string, err error) *StandardError {
	return newError(ErrCodeAPIRequestFailed, fmt.Sprintf("%s %s failed", method, endpoint),
		fmt.Sprintf("status: %d, %s", status, details), status >= 500 || status == 0, err).
		WithMetadata("status", status)
}

// NewAPITimeoutError marks a request that exceeded its per-request timeout as transient.
func NewAPITimeoutError(method, endpoint string, err error) *StandardError {
	return newError(ErrCodeAPITimeout, fmt.Sprintf("%s %s timed out", method, endpoint),
		causeText(err), true, err)
}

// NewRunInterruptedError reports an operator interrupt.
func NewRunInterruptedError(state string, err error) *StandardError {
	return newError(ErrCodeRunInterrupted, "Run interrupted",
		fmt.Sprintf("state: %s", state), false, err)
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard normalizes any error into a StandardError.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// CodeOf returns the code of err, or the empty code for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return AsStandard(err).Code
}

// IsRetryable reports whether err is classified transient.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeConfigInvalid, ErrCodeRosterInvalid:
		return "CONFIGURATION"
	case ErrCodeObjectNotFound, ErrCodeObjectAmbiguous, ErrCodeObjectLookupFailed:
		return "RESOLUTION"
	case ErrCodeGroupSyncFailed, ErrCodeCampaignPayloadInvalid, ErrCodeCampaignCreateFailed:
		return "CAMPAIGN"
	case ErrCodePollFailed:
		return "WAIT"
	case ErrCodeResultsFetchFailed, ErrCodeMailSessionFailed, ErrCodeNotificationSendFailed, ErrCodeReportFailed:
		return "NOTIFICATION"
	case ErrCodeAPIUnreachable, ErrCodeAPIRequestFailed, ErrCodeAPITimeout:
		return "TRANSPORT"
	case ErrCodeRunInterrupted:
		return "INTERRUPT"
	default:
		return "OTHER"
	}
}

// Process exit codes.
const (
	ExitOK          = 0
	ExitConfig      = 1
	ExitUnreachable = 2
	ExitCampaign    = 3
	ExitInterrupted = 130
)

// ExitCode maps a fatal run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	stdErr := AsStandard(err)
	switch GetErrorCategory(stdErr.Code) {
	case "CONFIGURATION":
		return ExitConfig
	case "RESOLUTION", "CAMPAIGN":
		return ExitCampaign
	case "TRANSPORT":
		if stdErr.Code == ErrCodeAPIUnreachable {
			return ExitUnreachable
		}
		return ExitCampaign
	case "INTERRUPT":
		return ExitInterrupted
	case "WAIT", "NOTIFICATION":
		return ExitOK
	default:
		return ExitConfig
	}
}
