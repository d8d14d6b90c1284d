package sendwarnings

import (
	"context"
	"time"

	appaws "phishbot/internal/common/aws"
	"phishbot/internal/common/config"
	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/models"
)

type Service struct {
	config   *Config
	logger   logger.Logger
	mailer   Mailer
	renderer *Renderer
}

// NewService parses the warning templates up front so a broken template file
// fails before any mail is sent.
func NewService(deps ServiceDependencies, config *Config) (*Service, error) {
	renderer, err := NewRenderer(config.Subject, config.TextTemplate, config.HTMLTemplate, config.SenderName)
	if err != nil {
		return nil, err
	}
	return &Service{
		config:   config,
		logger:   deps.Logger,
		mailer:   deps.Mailer,
		renderer: renderer,
	}, nil
}

// NewMailer builds the mailer for the configured transport.
func NewMailer(ctx context.Context, cfg *Config, log logger.Logger) (Mailer, error) {
	if cfg.Transport == config.TransportSES {
		client, err := appaws.NewSESClient(ctx, cfg.SESRegion)
		if err != nil {
			return nil, err
		}
		return NewSESMailer(client), nil
	}
	return NewSMTPMailer(cfg, log), nil
}

// Execute sends one warning per target over a single mail session. A failed
// send is recorded in its outcome and the batch continues. Only a session
// that cannot be opened, or an interrupt, ends the batch early; the outcomes
// gathered so far are returned with the error.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{Outcomes: make([]models.NotificationOutcome, 0, len(input.Targets))}
	if len(input.Targets) == 0 {
		s.logger.Info("No targets to warn", nil)
		return out, nil
	}

	session, err := s.mailer.Open(ctx)
	if err != nil {
		return out, apperrors.NewMailSessionFailedError(s.mailer.Name(), err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("Failed to close mail session", map[string]interface{}{
				"transport": s.mailer.Name(),
				"error":     err.Error(),
			})
		}
	}()

	for i, target := range input.Targets {
		if i > 0 && s.config.SendDelay > 0 {
			if err := sleep(ctx, s.config.SendDelay); err != nil {
				return out, apperrors.NewRunInterruptedError(string(models.StateNotifying), err)
			}
		}
		if err := ctx.Err(); err != nil {
			return out, apperrors.NewRunInterruptedError(string(models.StateNotifying), err)
		}

		outcome := s.sendOne(ctx, session, target, input.CampaignName)
		out.Outcomes = append(out.Outcomes, outcome)
		if outcome.Sent {
			out.Sent++
		} else {
			out.Failed++
		}
	}

	s.logger.Info("Warning batch finished", map[string]interface{}{
		"transport": s.mailer.Name(),
		"targets":   len(input.Targets),
		"sent":      out.Sent,
		"failed":    out.Failed,
	})
	return out, nil
}

func (s *Service) sendOne(ctx context.Context, session Session, target models.TargetResult, campaignName string) models.NotificationOutcome {
	outcome := models.NotificationOutcome{Target: target.Target, Severity: target.Severity}
	fail := func(err error) models.NotificationOutcome {
		stdErr := apperrors.NewNotificationSendFailedError(target.Target.Email, err)
		outcome.Err = stdErr
		outcome.Error = stdErr.Details
		s.logger.Error("Warning email failed", map[string]interface{}{
			"to":       target.Target.Email,
			"severity": target.Severity.String(),
			"code":     stdErr.Code,
			"error":    err.Error(),
		})
		return outcome
	}

	msg, err := s.renderer.Render(target, campaignName)
	if err != nil {
		return fail(err)
	}
	raw, messageID, err := buildMIME(s.config.SenderEmail, s.config.SenderName, msg)
	if err != nil {
		return fail(err)
	}
	providerID, err := session.Send(ctx, s.config.SenderEmail, []string{target.Target.Email}, raw)
	if err != nil {
		return fail(err)
	}

	outcome.Sent = true
	outcome.MessageID = messageID
	if providerID != "" {
		outcome.MessageID = providerID
	}
	s.logger.Info("Warning email sent", map[string]interface{}{
		"to":        target.Target.Email,
		"severity":  target.Severity.String(),
		"messageId": outcome.MessageID,
	})
	return outcome
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
