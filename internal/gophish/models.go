// internal/gophish/models.go
package gophish

import (
	"time"

	"phishbot/internal/models"
)

// Wire types for the GoPhish v0.12 REST API. Only the fields the run reads
// or writes are declared.

type SMTPProfile struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	InterfaceType    string    `json:"interface_type,omitempty"`
	FromAddress      string    `json:"from_address,omitempty"`
	Host             string    `json:"host,omitempty"`
	IgnoreCertErrors bool      `json:"ignore_cert_errors,omitempty"`
	ModifiedDate     time.Time `json:"modified_date"`
}

type Template struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Subject      string    `json:"subject,omitempty"`
	ModifiedDate time.Time `json:"modified_date"`
}

type Page struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	CaptureCredentials bool      `json:"capture_credentials,omitempty"`
	RedirectURL        string    `json:"redirect_url,omitempty"`
	ModifiedDate       time.Time `json:"modified_date"`
}

type Group struct {
	ID           int64           `json:"id,omitempty"`
	Name         string          `json:"name"`
	Targets      []models.Target `json:"targets"`
	ModifiedDate time.Time       `json:"modified_date"`
}

// ObjectRef points a campaign at an existing object. GoPhish resolves
// references by name; the id is sent for the audit trail.
type ObjectRef struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

type GroupRef struct {
	ID      int64           `json:"id,omitempty"`
	Name    string          `json:"name"`
	Targets []models.Target `json:"targets"`
}

// CampaignRequest is the body of POST /api/campaigns/, which creates and
// launches the campaign in one call.
type CampaignRequest struct {
	Name       string     `json:"name"`
	Template   ObjectRef  `json:"template"`
	Page       ObjectRef  `json:"page"`
	SMTP       ObjectRef  `json:"smtp"`
	URL        string     `json:"url"`
	LaunchDate time.Time  `json:"launch_date"`
	Groups     []GroupRef `json:"groups"`
}

type Campaign struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	CreatedDate   time.Time `json:"created_date"`
	LaunchDate    time.Time `json:"launch_date"`
	CompletedDate time.Time `json:"completed_date"`
	Status        string    `json:"status"`
	URL           string    `json:"url,omitempty"`
	Results       []Result  `json:"results,omitempty"`
	Timeline      []Event   `json:"timeline,omitempty"`
}

// Ref converts the campaign into the local reference kept for the run.
func (c *Campaign) Ref(groupName string) *models.CampaignRef {
	return &models.CampaignRef{
		ID:          c.ID,
		Name:        c.Name,
		GroupName:   groupName,
		CreatedDate: c.CreatedDate,
		LaunchDate:  c.LaunchDate,
		Status:      c.Status,
	}
}

// Result is the per-target state GoPhish keeps for a campaign.
type Result struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Position     string    `json:"position"`
	Status       string    `json:"status"`
	IP           string    `json:"ip,omitempty"`
	SendDate     time.Time `json:"send_date"`
	Reported     bool      `json:"reported"`
	ModifiedDate time.Time `json:"modified_date"`
}

type Event struct {
	CampaignID int64     `json:"campaign_id"`
	Email      string    `json:"email"`
	Time       time.Time `json:"time"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
}

// CampaignResults is returned by GET /api/campaigns/{id}/results.
type CampaignResults struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Results  []Result `json:"results"`
	Timeline []Event  `json:"timeline"`
}

type CampaignStats struct {
	Total         int64 `json:"total"`
	Sent          int64 `json:"sent"`
	Opened        int64 `json:"opened"`
	Clicked       int64 `json:"clicked"`
	SubmittedData int64 `json:"submitted_data"`
	EmailReported int64 `json:"email_reported"`
	Error         int64 `json:"error"`
}

// CampaignSummary is returned by GET /api/campaigns/{id}/summary.
type CampaignSummary struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Status        string        `json:"status"`
	CreatedDate   time.Time     `json:"created_date"`
	LaunchDate    time.Time     `json:"launch_date"`
	CompletedDate time.Time     `json:"completed_date"`
	Stats         CampaignStats `json:"stats"`
}

// apiError is the body GoPhish sends with non-2xx responses.
type apiError struct {
	Message string      `json:"message"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}
