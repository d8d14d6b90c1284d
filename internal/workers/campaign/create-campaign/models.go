package createcampaign

import (
	"context"
	"time"

	"phishbot/internal/common/logger"
	"phishbot/internal/gophish"
	"phishbot/internal/models"
)

type Input struct {
	Targets []models.Target `json:"targets"`
	// LaunchDate also fixes the YYYY-MM period used for naming.
	LaunchDate time.Time `json:"launchDate"`
}

type Output struct {
	Campaign    *models.CampaignRef    `json:"campaign"`
	Resolved    models.ResolvedObjects `json:"resolved"`
	GroupID     int64                  `json:"groupId"`
	TargetCount int                    `json:"targetCount"`
}

// GoPhishAPI is the part of the GoPhish client the orchestrator needs.
type GoPhishAPI interface {
	ListSMTPProfiles(ctx context.Context) ([]gophish.SMTPProfile, error)
	ListTemplates(ctx context.Context) ([]gophish.Template, error)
	ListPages(ctx context.Context) ([]gophish.Page, error)
	ListGroups(ctx context.Context) ([]gophish.Group, error)
	CreateGroup(ctx context.Context, group *gophish.Group) (*gophish.Group, error)
	UpdateGroup(ctx context.Context, group *gophish.Group) (*gophish.Group, error)
	CreateCampaign(ctx context.Context, req *gophish.CampaignRequest) (*gophish.Campaign, error)
}

type ServiceDependencies struct {
	Logger logger.Logger
	API    GoPhishAPI
}

// Object kinds, used in resolution errors.
const (
	KindSMTPProfile = "SMTP profile"
	KindTemplate    = "template"
	KindLandingPage = "landing page"
)
