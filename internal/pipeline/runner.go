// Package pipeline runs one campaign cycle as a state machine:
// INIT → RESOLVING_OBJECTS → CAMPAIGN_CREATED → WAITING → FETCHING_RESULTS →
// NOTIFYING → DONE. Errors up to campaign creation end the run in FAILED;
// later errors degrade it but it still ends in DONE.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	appaws "phishbot/internal/common/aws"
	"phishbot/internal/common/config"
	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/common/metrics"
	"phishbot/internal/common/observability"
	"phishbot/internal/gophish"
	"phishbot/internal/models"
	"phishbot/internal/roster"
	awaitcompletion "phishbot/internal/workers/campaign/await-completion"
	createcampaign "phishbot/internal/workers/campaign/create-campaign"
	publishreport "phishbot/internal/workers/notification/publish-report"
	sendwarnings "phishbot/internal/workers/notification/send-warnings"
	classifyresults "phishbot/internal/workers/results/classify-results"
)

const periodLayout = "2006-01"

// GoPhishAPI is everything the run asks of the GoPhish server.
type GoPhishAPI interface {
	createcampaign.GoPhishAPI
	GetCampaign(ctx context.Context, id int64) (*gophish.Campaign, error)
	GetCampaignResults(ctx context.Context, id int64) (*gophish.CampaignResults, error)
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Logger logger.Logger
	API    GoPhishAPI
	// Mailer and Publisher are built from the config when nil.
	Mailer    sendwarnings.Mailer
	Publisher publishreport.Publisher
	Metrics   *metrics.Metrics
	Obs       *observability.Observability
}

type Options struct {
	// Timeout replaces campaign.timeout when positive.
	Timeout time.Duration
	// Now is the clock used for naming and the launch date.
	Now func() time.Time
}

type Runner struct {
	cfg  *config.Config
	deps Dependencies
	opts Options
	log  logger.Logger

	summary    *models.RunSummary
	state      models.RunState
	stateSince time.Time
}

func NewRunner(cfg *config.Config, deps Dependencies, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{cfg: cfg, deps: deps, opts: opts, log: deps.Logger}
}

// Run executes a full cycle. The returned error is non-nil only for fatal
// failures and interrupts; a degraded run returns its summary and nil.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	r.begin()

	targets, err := r.init(ctx, true)
	if err != nil {
		return r.fail(ctx, err)
	}
	r.summary.TargetCount = len(targets)

	creator, err := createcampaign.NewService(
		createcampaign.ServiceDependencies{Logger: r.log, API: r.deps.API},
		createcampaign.NewConfig(r.cfg.Campaign),
	)
	if err != nil {
		return r.fail(ctx, apperrors.NewConfigInvalidError([]string{err.Error()}))
	}
	waitCfg := awaitcompletion.NewConfig(r.cfg.Campaign)
	if r.opts.Timeout > 0 {
		waitCfg.Timeout = r.opts.Timeout
	}
	waiter, err := awaitcompletion.NewService(awaitcompletion.ServiceDependencies{Logger: r.log, API: r.deps.API}, waitCfg)
	if err != nil {
		return r.fail(ctx, apperrors.NewConfigInvalidError([]string{err.Error()}))
	}

	r.transition(ctx, models.StateResolvingObjects)
	resolved, err := creator.Resolve(ctx)
	if err != nil {
		return r.fail(ctx, err)
	}
	r.summary.Resolved = resolved

	r.transition(ctx, models.StateCampaignCreated)
	launched, err := creator.Launch(ctx, resolved, &createcampaign.Input{Targets: targets, LaunchDate: r.opts.Now().UTC()})
	if err != nil {
		return r.fail(ctx, err)
	}
	r.summary.Campaign = launched.Campaign
	r.log = r.log.With(map[string]interface{}{"campaignId": launched.Campaign.ID})

	r.transition(ctx, models.StateWaiting)
	waited, err := waiter.Execute(ctx, &awaitcompletion.Input{CampaignID: launched.Campaign.ID})
	if err != nil {
		return r.interrupted(err)
	}
	if waited.PollFailed {
		r.summary.Degrade("status polling failed; waited out the full window")
	}

	fileName := publishreport.ResultsFileName(launched.Campaign.LaunchDate.UTC().Format(periodLayout))
	if launched.Campaign.LaunchDate.IsZero() {
		fileName = publishreport.ResultsFileName(r.opts.Now().UTC().Format(periodLayout))
	}
	return r.followUp(ctx, launched.Campaign, targets, fileName)
}

// Complete collects results and sends warnings for an existing campaign,
// skipping creation and the wait. The roster is used when it loads.
func (r *Runner) Complete(ctx context.Context, campaignID int64) (*models.RunSummary, error) {
	r.begin()

	targets, err := r.init(ctx, false)
	if err != nil {
		return r.fail(ctx, err)
	}
	r.summary.TargetCount = len(targets)

	campaign, err := r.deps.API.GetCampaign(ctx, campaignID)
	if err != nil {
		if ctx.Err() != nil {
			return r.interrupted(ctx.Err())
		}
		if apperrors.CodeOf(err) == apperrors.ErrCodeAPIRequestFailed && apperrors.AsStandard(err).Metadata["status"] == http.StatusNotFound {
			return r.fail(ctx, apperrors.NewObjectNotFoundError("campaign", strconv.FormatInt(campaignID, 10)))
		}
		return r.fail(ctx, err)
	}
	ref := campaign.Ref("")
	r.summary.Campaign = ref
	if len(targets) == 0 {
		r.summary.TargetCount = len(campaign.Results)
	}
	r.log = r.log.With(map[string]interface{}{"campaignId": campaignID})

	return r.followUp(ctx, ref, targets, publishreport.CompletionFileName(campaignID, r.opts.Now()))
}

func (r *Runner) begin() {
	now := r.opts.Now()
	r.summary = &models.RunSummary{
		RunID:          uuid.NewString(),
		PhaseDurations: map[models.RunState]time.Duration{},
		StartedAt:      now,
	}
	r.log = r.deps.Logger.With(map[string]interface{}{"runId": r.summary.RunID})
	r.state = models.StateInit
	r.stateSince = now
	r.log.Info("Run started", map[string]interface{}{"state": string(models.StateInit)})
}

// init validates the configuration, loads the roster and checks that
// GoPhish answers. Nothing touches the network before the config and the
// roster are known good.
func (r *Runner) init(ctx context.Context, rosterRequired bool) ([]models.Target, error) {
	if problems := r.cfg.Validate(); len(problems) > 0 {
		return nil, apperrors.NewConfigInvalidError(problems)
	}

	targets, err := roster.Load(r.cfg.Campaign.TargetsCSV, r.log)
	if err != nil {
		if rosterRequired {
			return nil, err
		}
		r.log.Warn("Roster not loaded, using names recorded in GoPhish", map[string]interface{}{"error": err.Error()})
		targets = nil
	}

	if err := r.deps.API.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewRunInterruptedError(string(models.StateInit), ctx.Err())
		}
		if apperrors.CodeOf(err) == apperrors.ErrCodeAPIUnreachable {
			return nil, err
		}
		return nil, apperrors.NewAPIUnreachableError(r.cfg.GoPhish.URL, err)
	}
	r.log.Info("GoPhish API reachable", map[string]interface{}{"url": r.cfg.GoPhish.URL})
	return targets, nil
}

// followUp runs FETCHING_RESULTS and NOTIFYING and writes the report. Only an
// interrupt makes it return an error.
func (r *Runner) followUp(ctx context.Context, campaign *models.CampaignRef, targets []models.Target, fileName string) (*models.RunSummary, error) {
	r.transition(ctx, models.StateFetchingResults)
	classifyCfg, err := classifyresults.NewConfig(r.cfg.Notify.MinSeverity)
	if err != nil {
		classifyCfg = classifyresults.DefaultConfig()
	}
	classifier := classifyresults.NewService(classifyresults.ServiceDependencies{Logger: r.log, API: r.deps.API}, classifyCfg)
	classified, err := classifier.Execute(ctx, &classifyresults.Input{CampaignID: campaign.ID, Roster: targets})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeRunInterrupted {
			return r.interrupted(err)
		}
		r.degrade(err)
		return r.finish(ctx, nil, fileName)
	}
	r.summary.Results = classified.Results
	campaign.Status = classified.Status

	r.transition(ctx, models.StateNotifying)
	if err := r.notify(ctx, campaign.Name, classified.Selected); err != nil {
		return r.interrupted(err)
	}

	return r.finish(ctx, classified.Selected, fileName)
}

// notify sends the warnings. Only an interrupt is returned; every other
// failure degrades the run.
func (r *Runner) notify(ctx context.Context, campaignName string, selected []models.TargetResult) error {
	if !r.cfg.Notify.Enabled {
		r.log.Info("Warning emails disabled, results file only", map[string]interface{}{"selected": len(selected)})
		return nil
	}
	if len(selected) == 0 {
		r.log.Info("No targets met the warning threshold", map[string]interface{}{"minSeverity": r.cfg.Notify.MinSeverity})
		return nil
	}

	cfg := sendwarnings.NewConfig(r.cfg.Notify, r.cfg.Secrets)
	mailer := r.deps.Mailer
	if mailer == nil {
		m, err := sendwarnings.NewMailer(ctx, cfg, r.log)
		if err != nil {
			r.degrade(apperrors.NewMailSessionFailedError(cfg.Transport, err))
			return nil
		}
		mailer = m
	}

	sender, err := sendwarnings.NewService(sendwarnings.ServiceDependencies{Logger: r.log, Mailer: mailer}, cfg)
	if err != nil {
		r.degrade(apperrors.NewMailSessionFailedError(mailer.Name(), fmt.Errorf("warning template: %w", err)))
		return nil
	}

	out, err := sender.Execute(ctx, &sendwarnings.Input{CampaignName: campaignName, Targets: selected})
	if out != nil {
		r.summary.Outcomes = out.Outcomes
		for _, o := range out.Outcomes {
			outcome := "sent"
			if !o.Sent {
				outcome = "failed"
			}
			r.deps.Obs.RecordNotification(ctx, mailer.Name(), outcome)
		}
	}
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeRunInterrupted {
			return err
		}
		r.degrade(err)
		return nil
	}
	if out.Failed > 0 {
		r.summary.Degrade(fmt.Sprintf("%d of %d warning emails not delivered", out.Failed, len(out.Outcomes)))
	}
	return nil
}

func (r *Runner) finish(ctx context.Context, affected []models.TargetResult, fileName string) (*models.RunSummary, error) {
	r.transition(ctx, models.StateDone)
	r.report(ctx, affected, fileName)
	r.log.Info("Run finished", map[string]interface{}{
		"state":    string(models.StateDone),
		"degraded": r.summary.Degraded,
	})
	return r.summary, nil
}

// fail ends the run in FAILED, or hands an interrupt through unchanged.
func (r *Runner) fail(ctx context.Context, err error) (*models.RunSummary, error) {
	if apperrors.CodeOf(err) == apperrors.ErrCodeRunInterrupted {
		return r.interrupted(err)
	}
	stdErr := apperrors.AsStandard(err)
	r.log.Error("Run failed", map[string]interface{}{
		"state":    string(r.state),
		"code":     stdErr.Code,
		"category": apperrors.GetErrorCategory(stdErr.Code),
		"error":    stdErr.Error(),
	})
	r.transition(ctx, models.StateFailed)
	r.report(ctx, nil, "")
	return r.summary, err
}

func (r *Runner) interrupted(err error) (*models.RunSummary, error) {
	if apperrors.CodeOf(err) != apperrors.ErrCodeRunInterrupted {
		err = apperrors.NewRunInterruptedError(string(r.state), err)
	}
	r.log.Warn("Run interrupted", map[string]interface{}{"state": string(r.state)})
	r.summary.FinalState = r.state
	r.summary.FinishedAt = r.opts.Now()
	return r.summary, err
}

func (r *Runner) degrade(err error) {
	stdErr := apperrors.AsStandard(err)
	r.summary.Degrade(fmt.Sprintf("%s: %s", stdErr.Code, stdErr.Details))
	r.log.Warn("Run degraded", map[string]interface{}{
		"state": string(r.state),
		"code":  stdErr.Code,
		"error": stdErr.Error(),
	})
}

// transition closes the current phase and enters next.
func (r *Runner) transition(ctx context.Context, next models.RunState) {
	now := r.opts.Now()
	elapsed := now.Sub(r.stateSince)
	r.summary.PhaseDurations[r.state] += elapsed

	outcome := "ok"
	if next == models.StateFailed {
		outcome = "failed"
	}
	r.deps.Obs.RecordPhase(ctx, string(r.state), elapsed, outcome)

	r.log.Info("State transition", map[string]interface{}{
		"from":    string(r.state),
		"to":      string(next),
		"elapsed": elapsed.Round(time.Millisecond).String(),
	})
	r.state = next
	r.stateSince = now
	if next == models.StateDone || next == models.StateFailed {
		r.summary.FinalState = next
		r.summary.FinishedAt = now
	}
}

func (r *Runner) report(ctx context.Context, affected []models.TargetResult, fileName string) {
	publisher := r.deps.Publisher
	if publisher == nil && r.cfg.Report.SNSTopicARN != "" {
		client, err := appaws.NewSNSClient(ctx, r.cfg.Report.AWSRegion)
		if err != nil {
			r.degrade(apperrors.NewReportFailedError(publishreport.SinkSNS, err))
		} else {
			publisher = client
		}
	}

	reporter := publishreport.NewService(publishreport.ServiceDependencies{
		Logger:    r.log,
		Publisher: publisher,
		Metrics:   r.deps.Metrics,
	}, publishreport.NewConfig(r.cfg))

	transport := ""
	if r.cfg.Notify.Enabled {
		transport = r.cfg.Notify.Transport
	}
	out, err := reporter.Execute(ctx, &publishreport.Input{
		Summary:   r.summary,
		Affected:  affected,
		FileName:  fileName,
		Transport: transport,
	})
	if err != nil {
		r.log.Warn("Report skipped", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, e := range out.Errors {
		r.summary.Degrade(e)
	}
}
