package createcampaign

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/gophish"
	"phishbot/internal/gophish/gophishtest"
	"phishbot/internal/models"
)

// ==========================
// Test Helpers
// ==========================

var launchDate = time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)

func createTestConfig() *Config {
	return &Config{
		NamePrefix:  "Phishing Awareness",
		GroupPrefix: "Targets",
		SMTPProfile: "Mail Relay",
		Template:    "Password Expiry",
		LandingPage: "SSO Login",
		URL:         "https://phish.example.org",
	}
}

func createTargets(n int) []models.Target {
	targets := make([]models.Target, n)
	for i := range targets {
		targets[i] = models.Target{
			FirstName: fmt.Sprintf("First%d", i),
			LastName:  fmt.Sprintf("Last%d", i),
			Email:     fmt.Sprintf("user%d@example.org", i),
			Position:  fmt.Sprintf("Role %d", i),
		}
	}
	return targets
}

func newTestService(t *testing.T, srv *gophishtest.Server, cfg *Config) *Service {
	client := gophish.NewClient(srv.Config(), gophishtest.APIKey, logger.NewNoOpLogger())
	svc, err := NewService(ServiceDependencies{Logger: logger.NewTestLogger(t), API: client}, cfg)
	require.NoError(t, err)
	return svc
}

// resolveAndLaunch runs both steps the way a run does.
func resolveAndLaunch(ctx context.Context, svc *Service, input *Input) (*Output, error) {
	resolved, err := svc.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Launch(ctx, resolved, input)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestService_Launch_PayloadCarriesEveryTarget(t *testing.T) {
	for _, n := range []int{1, 3, 25} {
		t.Run(fmt.Sprintf("%d targets", n), func(t *testing.T) {
			srv := gophishtest.NewServer(t)
			svc := newTestService(t, srv, createTestConfig())
			targets := createTargets(n)

			out, err := resolveAndLaunch(context.Background(), svc, &Input{Targets: targets, LaunchDate: launchDate})
			require.NoError(t, err)

			var payload gophish.CampaignRequest
			srv.LastBody(t, http.MethodPost, "/api/campaigns/", &payload)

			require.Len(t, payload.Groups, 1)
			assert.Equal(t, targets, payload.Groups[0].Targets)
			assert.Equal(t, "Phishing Awareness 2026-10", payload.Name)
			assert.Equal(t, "Targets-2026-10", payload.Groups[0].Name)
			assert.Equal(t, gophish.ObjectRef{ID: 1, Name: "Mail Relay"}, payload.SMTP)
			assert.Equal(t, gophish.ObjectRef{ID: 2, Name: "Password Expiry"}, payload.Template)
			assert.Equal(t, gophish.ObjectRef{ID: 3, Name: "SSO Login"}, payload.Page)
			assert.Equal(t, "https://phish.example.org", payload.URL)

			assert.Equal(t, n, out.TargetCount)
			assert.NotZero(t, out.Campaign.ID)
			assert.Equal(t, "Targets-2026-10", out.Campaign.GroupName)
			assert.Equal(t, 1, srv.Count(http.MethodPost, "/api/campaigns/"))
		})
	}
}

func TestService_Resolve_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(srv *gophishtest.Server, cfg *Config)
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "smtp profile missing",
			mutate:   func(srv *gophishtest.Server, cfg *Config) { cfg.SMTPProfile = "Nope" },
			wantCode: apperrors.ErrCodeObjectNotFound,
		},
		{
			name:     "match is case-sensitive",
			mutate:   func(srv *gophishtest.Server, cfg *Config) { cfg.Template = "password expiry" },
			wantCode: apperrors.ErrCodeObjectNotFound,
		},
		{
			name: "landing page ambiguous",
			mutate: func(srv *gophishtest.Server, cfg *Config) {
				srv.Pages = append(srv.Pages, gophish.Page{ID: 9, Name: "SSO Login"})
			},
			wantCode: apperrors.ErrCodeObjectAmbiguous,
		},
		{
			name: "template list fails",
			mutate: func(srv *gophishtest.Server, cfg *Config) {
				srv.FailStatus["GET /api/templates/"] = http.StatusInternalServerError
			},
			wantCode: apperrors.ErrCodeObjectLookupFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := gophishtest.NewServer(t)
			cfg := createTestConfig()
			tt.mutate(srv, cfg)
			svc := newTestService(t, srv, cfg)

			out, err := resolveAndLaunch(context.Background(), svc, &Input{Targets: createTargets(2), LaunchDate: launchDate})
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.Equal(t, apperrors.ExitCampaign, apperrors.ExitCode(err))

			assert.Zero(t, srv.Count(http.MethodPost, "/api/campaigns/"), "no campaign may be created")
			assert.Zero(t, srv.Count(http.MethodPost, "/api/groups/"))
		})
	}
}

func TestService_Resolve_AmbiguousListsIDs(t *testing.T) {
	srv := gophishtest.NewServer(t)
	srv.SMTPProfiles = append(srv.SMTPProfiles, gophish.SMTPProfile{ID: 7, Name: "Mail Relay"})
	svc := newTestService(t, srv, createTestConfig())

	_, err := svc.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1")
	assert.Contains(t, err.Error(), "7")
}

func TestService_Launch_ReusesExistingGroup(t *testing.T) {
	srv := gophishtest.NewServer(t)
	srv.Groups = []gophish.Group{{ID: 42, Name: "Targets-2026-10", Targets: createTargets(1)}}
	svc := newTestService(t, srv, createTestConfig())

	out, err := resolveAndLaunch(context.Background(), svc, &Input{Targets: createTargets(4), LaunchDate: launchDate})
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.GroupID)
	assert.Equal(t, 1, srv.Count(http.MethodPut, "/api/groups/42"))
	assert.Zero(t, srv.Count(http.MethodPost, "/api/groups/"))
	assert.Len(t, srv.Groups[0].Targets, 4)
}

func TestService_Launch_CreateFailureIsNotRetried(t *testing.T) {
	srv := gophishtest.NewServer(t)
	srv.FailStatus["POST /api/campaigns/"] = http.StatusServiceUnavailable
	svc := newTestService(t, srv, createTestConfig())

	_, err := resolveAndLaunch(context.Background(), svc, &Input{Targets: createTargets(2), LaunchDate: launchDate})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeCampaignCreateFailed, apperrors.CodeOf(err))
	assert.False(t, apperrors.IsRetryable(err))
	assert.Equal(t, 1, srv.Count(http.MethodPost, "/api/campaigns/"))
}

func TestService_Launch_InvalidPayloadNeverPosted(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(c *Config)
		targets []models.Target
	}{
		{name: "relative url", cfg: func(c *Config) { c.URL = "phish.example.org" }, targets: createTargets(1)},
		{name: "bad email", cfg: func(c *Config) {}, targets: []models.Target{{FirstName: "A", Email: "nobody"}}},
		{name: "no targets", cfg: func(c *Config) {}, targets: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := gophishtest.NewServer(t)
			cfg := createTestConfig()
			tt.cfg(cfg)
			svc := newTestService(t, srv, cfg)

			_, err := resolveAndLaunch(context.Background(), svc, &Input{Targets: tt.targets, LaunchDate: launchDate})
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeCampaignPayloadInvalid, apperrors.CodeOf(err))
			assert.Zero(t, srv.Count(http.MethodPost, "/api/campaigns/"))
			assert.Zero(t, srv.Count(http.MethodPost, "/api/groups/"), "nothing remote is touched")
		})
	}
}

func TestService_Launch_InterruptedDuringGroupSync(t *testing.T) {
	srv := gophishtest.NewServer(t)
	svc := newTestService(t, srv, createTestConfig())

	resolved, err := svc.Resolve(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Launch(ctx, resolved, &Input{Targets: createTargets(2), LaunchDate: launchDate})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRunInterrupted, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.ExitInterrupted, apperrors.ExitCode(err))
	assert.Zero(t, srv.Count(http.MethodPost, "/api/groups/"))
	assert.Zero(t, srv.Count(http.MethodPost, "/api/campaigns/"))
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	cfg := createTestConfig()
	cfg.LandingPage = ""

	svc, err := NewService(ServiceDependencies{Logger: logger.NewNoOpLogger()}, cfg)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "landing_page is required")
}

func TestConfig_Naming(t *testing.T) {
	cfg := createTestConfig()
	assert.Equal(t, "Phishing Awareness 2026-10", cfg.CampaignName("2026-10"))
	assert.Equal(t, "Targets-2026-10", cfg.GroupName("2026-10"))
	assert.NoError(t, cfg.Validate())

	cfg.URL = ""
	assert.EqualError(t, cfg.Validate(), "url is required")
}
