package awaitcompletion

import (
	"context"
	"fmt"
	"time"

	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/gophish"
	"phishbot/internal/models"
)

type Service struct {
	config *Config
	logger logger.Logger
	api    ResultsAPI
	now    func() time.Time
}

func NewService(deps ServiceDependencies, config *Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for await-completion: %w", err)
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		config: config,
		logger: deps.Logger,
		api:    deps.API,
		now:    now,
	}, nil
}

// Execute blocks until the wait window closes. Without polling it sleeps the
// whole window. With polling it checks the campaign immediately and then every
// PollInterval, returning early once GoPhish marks the campaign complete or
// every target is terminal. A failed poll is logged and the rest of the window
// is slept out without further polls.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	start := s.now()
	deadline := start.Add(s.config.Timeout)
	out := &Output{Reason: ReasonTimeout}

	s.logger.Info("Waiting for campaign activity", map[string]interface{}{
		"campaignId":   input.CampaignID,
		"timeout":      s.config.Timeout.String(),
		"pollEnabled":  s.config.PollEnabled,
		"pollInterval": s.config.PollInterval.String(),
	})

	if s.config.PollEnabled {
		done, err := s.pollLoop(ctx, input.CampaignID, deadline, out)
		if err != nil {
			return nil, err
		}
		if done {
			out.Elapsed = s.now().Sub(start)
			s.logDone(input.CampaignID, out)
			return out, nil
		}
	}

	if err := sleep(ctx, deadline.Sub(s.now())); err != nil {
		return nil, apperrors.NewRunInterruptedError(string(models.StateWaiting), err)
	}

	out.Elapsed = s.now().Sub(start)
	s.logDone(input.CampaignID, out)
	return out, nil
}

// pollLoop returns true when the wait may end early. It returns false when the
// deadline passed or polling failed; the caller sleeps out what is left.
func (s *Service) pollLoop(ctx context.Context, campaignID int64, deadline time.Time, out *Output) (bool, error) {
	for {
		out.Polls++
		res, err := s.api.GetCampaignResults(ctx, campaignID)
		if err != nil {
			if ctx.Err() != nil {
				return false, apperrors.NewRunInterruptedError(string(models.StateWaiting), ctx.Err())
			}
			pollErr := apperrors.NewPollFailedError(campaignID, err)
			s.logger.Warn("Status poll failed, sleeping out the remaining window", map[string]interface{}{
				"campaignId": campaignID,
				"code":       pollErr.Code,
				"error":      pollErr.Details,
				"remaining":  deadline.Sub(s.now()).Round(time.Second).String(),
			})
			out.PollFailed = true
			out.Reason = ReasonPollingFailed
			return false, nil
		}

		out.LastStatus = res.Status
		if models.IsCampaignComplete(res.Status) {
			out.EarlyExit = true
			out.Reason = ReasonCompleted
			return true, nil
		}
		results := gophish.Classify(res, nil)
		if gophish.AllTerminal(results) {
			out.EarlyExit = true
			out.Reason = ReasonAllTerminal
			return true, nil
		}

		s.logger.Debug("Campaign still active", map[string]interface{}{
			"campaignId": campaignID,
			"status":     res.Status,
			"results":    len(results),
			"poll":       out.Polls,
		})

		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			return false, nil
		}
		wait := s.config.PollInterval
		if wait > remaining {
			wait = remaining
		}
		if err := sleep(ctx, wait); err != nil {
			return false, apperrors.NewRunInterruptedError(string(models.StateWaiting), err)
		}
		if !s.now().Before(deadline) {
			return false, nil
		}
	}
}

func (s *Service) logDone(campaignID int64, out *Output) {
	s.logger.Info("Wait finished", map[string]interface{}{
		"campaignId": campaignID,
		"elapsed":    out.Elapsed.Round(time.Millisecond).String(),
		"earlyExit":  out.EarlyExit,
		"reason":     out.Reason,
		"polls":      out.Polls,
	})
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
