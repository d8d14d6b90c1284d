package classifyresults

import (
	"context"

	"phishbot/internal/common/logger"
	"phishbot/internal/gophish"
	"phishbot/internal/models"
)

type Input struct {
	CampaignID int64 `json:"campaignId"`
	// Roster is authoritative for names when set.
	Roster []models.Target `json:"roster,omitempty"`
}

type Output struct {
	Status   string                `json:"status"`
	Results  []models.TargetResult `json:"results"`
	Selected []models.TargetResult `json:"selected"`
}

type ResultsAPI interface {
	GetCampaignResults(ctx context.Context, id int64) (*gophish.CampaignResults, error)
}

type ServiceDependencies struct {
	Logger logger.Logger
	API    ResultsAPI
}
