// internal/models/campaign.go
package models

import "time"

// CampaignRef is the local handle on a campaign that GoPhish owns.
type CampaignRef struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	GroupName   string    `json:"groupName"`
	CreatedDate time.Time `json:"createdDate"`
	LaunchDate  time.Time `json:"launchDate"`
	Status      string    `json:"status"`
}

// NamedObject is a GoPhish object resolved from its configured name.
type NamedObject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ResolvedObjects struct {
	SMTPProfile NamedObject `json:"smtpProfile"`
	Template    NamedObject `json:"template"`
	Page        NamedObject `json:"page"`
}

// Campaign statuses reported by GoPhish.
const (
	CampaignStatusCreated    = "Created"
	CampaignStatusQueued     = "Queued"
	CampaignStatusInProgress = "In progress"
	CampaignStatusCompleted  = "Completed"
	CampaignStatusFinished   = "Finished"
)

func IsCampaignComplete(status string) bool {
	return status == CampaignStatusCompleted || status == CampaignStatusFinished
}
