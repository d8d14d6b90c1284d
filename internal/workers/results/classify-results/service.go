package classifyresults

import (
	"context"

	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/gophish"
	"phishbot/internal/models"
)

type Service struct {
	config *Config
	logger logger.Logger
	api    ResultsAPI
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config: config,
		logger: deps.Logger,
		api:    deps.API,
	}
}

// Execute reads the campaign results once and selects the targets to warn.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := s.api.GetCampaignResults(ctx, input.CampaignID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewRunInterruptedError(string(models.StateFetchingResults), ctx.Err())
		}
		return nil, apperrors.NewResultsFetchFailedError(input.CampaignID, err)
	}

	results := gophish.Classify(res, input.Roster)
	selected := Select(results, s.config.MinSeverity)

	fields := map[string]interface{}{
		"campaignId":  input.CampaignID,
		"status":      res.Status,
		"results":     len(results),
		"selected":    len(selected),
		"minSeverity": s.config.MinSeverity.String(),
	}
	for sev, n := range countBySeverity(results) {
		fields[sev] = n
	}
	s.logger.Info("Campaign results classified", fields)

	for _, r := range results {
		if !r.InRoster && len(input.Roster) > 0 {
			s.logger.Warn("Result for address outside the roster", map[string]interface{}{
				"email":    r.Target.Email,
				"severity": r.Severity.String(),
			})
		}
	}

	return &Output{Status: res.Status, Results: results, Selected: selected}, nil
}

// Select returns results at or above min, in input order.
func Select(results []models.TargetResult, min models.Severity) []models.TargetResult {
	var out []models.TargetResult
	for _, r := range results {
		if r.Severity >= min {
			out = append(out, r)
		}
	}
	return out
}

func countBySeverity(results []models.TargetResult) map[string]int {
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Severity.String()]++
	}
	return counts
}
