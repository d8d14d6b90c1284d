package createcampaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/gophish"
	"phishbot/internal/models"
)

const periodLayout = "2006-01"

type Service struct {
	config *Config
	logger logger.Logger
	api    GoPhishAPI
}

func NewService(deps ServiceDependencies, config *Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for create-campaign: %w", err)
	}
	return &Service{
		config: config,
		logger: deps.Logger,
		api:    deps.API,
	}, nil
}

// Resolve maps the configured SMTP profile, template and landing page names
// to GoPhish ids. Names match exactly and case-sensitively; a name that
// matches nothing or more than one object is fatal.
func (s *Service) Resolve(ctx context.Context) (*models.ResolvedObjects, error) {
	profiles, err := s.api.ListSMTPProfiles(ctx)
	if err != nil {
		return nil, lookupError(ctx, KindSMTPProfile, err)
	}
	smtpProfile, err := resolveByName(KindSMTPProfile, s.config.SMTPProfile, len(profiles), func(i int) (int64, string) {
		return profiles[i].ID, profiles[i].Name
	})
	if err != nil {
		return nil, err
	}

	templates, err := s.api.ListTemplates(ctx)
	if err != nil {
		return nil, lookupError(ctx, KindTemplate, err)
	}
	template, err := resolveByName(KindTemplate, s.config.Template, len(templates), func(i int) (int64, string) {
		return templates[i].ID, templates[i].Name
	})
	if err != nil {
		return nil, err
	}

	pages, err := s.api.ListPages(ctx)
	if err != nil {
		return nil, lookupError(ctx, KindLandingPage, err)
	}
	page, err := resolveByName(KindLandingPage, s.config.LandingPage, len(pages), func(i int) (int64, string) {
		return pages[i].ID, pages[i].Name
	})
	if err != nil {
		return nil, err
	}

	resolved := &models.ResolvedObjects{SMTPProfile: smtpProfile, Template: template, Page: page}
	s.logger.Info("Resolved GoPhish objects", map[string]interface{}{
		"smtpProfileId": smtpProfile.ID,
		"templateId":    template.ID,
		"pageId":        page.ID,
	})
	return resolved, nil
}

// Launch syncs the target group and creates the campaign. The create call is
// made at most once.
func (s *Service) Launch(ctx context.Context, resolved *models.ResolvedObjects, input *Input) (*Output, error) {
	if len(input.Targets) == 0 {
		return nil, apperrors.NewCampaignPayloadInvalidError("target list is empty")
	}

	period := input.LaunchDate.Format(periodLayout)
	groupName := s.config.GroupName(period)
	campaignName := s.config.CampaignName(period)

	req := BuildRequest(campaignName, resolved, s.config.URL, input.LaunchDate, groupName, input.Targets)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	group, err := s.syncGroup(ctx, groupName, input.Targets)
	if err != nil {
		return nil, err
	}
	req.Groups[0].ID = group.ID

	s.logger.Info("Creating campaign", map[string]interface{}{
		"campaign": campaignName,
		"group":    groupName,
		"targets":  len(input.Targets),
	})

	campaign, err := s.api.CreateCampaign(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewRunInterruptedError(string(models.StateCampaignCreated), ctx.Err())
		}
		return nil, apperrors.NewCampaignCreateFailedError(campaignName, err)
	}

	s.logger.Info("Campaign created and launched", map[string]interface{}{
		"campaignId": campaign.ID,
		"campaign":   campaign.Name,
		"status":     campaign.Status,
	})

	return &Output{
		Campaign:    campaign.Ref(groupName),
		Resolved:    *resolved,
		GroupID:     group.ID,
		TargetCount: len(input.Targets),
	}, nil
}

// BuildRequest assembles the create-campaign payload. Targets are copied
// verbatim.
func BuildRequest(name string, resolved *models.ResolvedObjects, url string, launch time.Time, groupName string, targets []models.Target) *gophish.CampaignRequest {
	copied := make([]models.Target, len(targets))
	copy(copied, targets)

	return &gophish.CampaignRequest{
		Name:       name,
		Template:   gophish.ObjectRef{ID: resolved.Template.ID, Name: resolved.Template.Name},
		Page:       gophish.ObjectRef{ID: resolved.Page.ID, Name: resolved.Page.Name},
		SMTP:       gophish.ObjectRef{ID: resolved.SMTPProfile.ID, Name: resolved.SMTPProfile.Name},
		URL:        url,
		LaunchDate: launch.UTC(),
		Groups:     []gophish.GroupRef{{Name: groupName, Targets: copied}},
	}
}

// syncGroup updates the group for this period when it already exists so a
// rerun in the same month picks up roster changes; otherwise it creates it.
func (s *Service) syncGroup(ctx context.Context, name string, targets []models.Target) (*gophish.Group, error) {
	groups, err := s.api.ListGroups(ctx)
	if err != nil {
		return nil, groupError(ctx, name, err)
	}

	var existing *gophish.Group
	for i := range groups {
		if groups[i].Name == name {
			existing = &groups[i]
			break
		}
	}

	if existing != nil {
		existing.Targets = targets
		updated, err := s.api.UpdateGroup(ctx, existing)
		if err != nil {
			return nil, groupError(ctx, name, err)
		}
		s.logger.Info("Updated existing target group", map[string]interface{}{"group": name, "groupId": updated.ID, "targets": len(targets)})
		return updated, nil
	}

	created, err := s.api.CreateGroup(ctx, &gophish.Group{Name: name, Targets: targets})
	if err != nil {
		return nil, groupError(ctx, name, err)
	}
	s.logger.Info("Created target group", map[string]interface{}{"group": name, "groupId": created.ID, "targets": len(targets)})
	return created, nil
}

func validateRequest(req *gophish.CampaignRequest) error {
	result, err := campaignSchema.Validate(req)
	if err != nil {
		return apperrors.NewCampaignPayloadInvalidError(err.Error())
	}
	if !result.Valid {
		return apperrors.NewCampaignPayloadInvalidError(strings.Join(result.Messages(), "; "))
	}
	return nil
}

func resolveByName(kind, name string, n int, at func(i int) (int64, string)) (models.NamedObject, error) {
	var ids []int64
	for i := 0; i < n; i++ {
		id, objName := at(i)
		if objName == name {
			ids = append(ids, id)
		}
	}
	switch len(ids) {
	case 0:
		return models.NamedObject{}, apperrors.NewObjectNotFoundError(kind, name)
	case 1:
		return models.NamedObject{ID: ids[0], Name: name}, nil
	default:
		return models.NamedObject{}, apperrors.NewObjectAmbiguousError(kind, name, ids)
	}
}

func groupError(ctx context.Context, name string, err error) error {
	if ctx.Err() != nil {
		return apperrors.NewRunInterruptedError(string(models.StateCampaignCreated), ctx.Err())
	}
	return apperrors.NewGroupSyncFailedError(name, err)
}

func lookupError(ctx context.Context, kind string, err error) error {
	if ctx.Err() != nil {
		return apperrors.NewRunInterruptedError(string(models.StateResolvingObjects), ctx.Err())
	}
	if apperrors.CodeOf(err) == apperrors.ErrCodeAPIUnreachable {
		return err
	}
	return apperrors.NewObjectLookupFailedError(kind, err)
}
