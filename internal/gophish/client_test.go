package gophish_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishbot/internal/common/config"
	apperrors "phishbot/internal/common/errors"
	"phishbot/internal/common/logger"
	"phishbot/internal/common/metrics"
	"phishbot/internal/gophish"
	"phishbot/internal/gophish/gophishtest"
	"phishbot/internal/models"
)

func newClient(t *testing.T, srv *gophishtest.Server, opts ...gophish.Option) *gophish.Client {
	return gophish.NewClient(srv.Config(), gophishtest.APIKey, logger.NewTestLogger(t), opts...)
}

func TestClient_ListObjects(t *testing.T) {
	srv := gophishtest.NewServer(t)
	client := newClient(t, srv)
	ctx := context.Background()

	profiles, err := client.ListSMTPProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Mail Relay", profiles[0].Name)

	templates, err := client.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), templates[0].ID)

	pages, err := client.ListPages(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SSO Login", pages[0].Name)
}

func TestClient_QueryAuthMode(t *testing.T) {
	srv := gophishtest.NewServer(t)
	cfg := srv.Config()
	cfg.AuthMode = config.AuthModeQuery
	client := gophish.NewClient(cfg, gophishtest.APIKey, logger.NewNoOpLogger())

	require.NoError(t, client.Ping(context.Background()))
}

func TestClient_BadKeyIsRequestFailure(t *testing.T) {
	srv := gophishtest.NewServer(t)
	client := gophish.NewClient(srv.Config(), "wrong", logger.NewNoOpLogger())

	err := client.Ping(context.Background())
	require.Error(t, err)
	stdErr := apperrors.AsStandard(err)
	assert.Equal(t, apperrors.ErrCodeAPIRequestFailed, stdErr.Code)
	assert.Contains(t, stdErr.Details, "Invalid API Key")
	assert.Equal(t, http.StatusUnauthorized, stdErr.Metadata["status"])
	assert.False(t, stdErr.Retryable)
}

func TestClient_GroupCreateAndUpdate(t *testing.T) {
	srv := gophishtest.NewServer(t)
	client := newClient(t, srv)
	ctx := context.Background()

	created, err := client.CreateGroup(ctx, &gophish.Group{
		Name:    "Targets-2026-10",
		Targets: []models.Target{{FirstName: "Alice", Email: "alice@example.org"}},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	created.Targets = append(created.Targets, models.Target{FirstName: "Bob", Email: "bob@example.org"})
	updated, err := client.UpdateGroup(ctx, created)
	require.NoError(t, err)
	assert.Len(t, updated.Targets, 2)
	assert.Equal(t, 1, srv.Count(http.MethodPut, "/api/groups/"+itoa(created.ID)))
}

func TestClient_CampaignLifecycle(t *testing.T) {
	srv := gophishtest.NewServer(t)
	m := metrics.New()
	client := newClient(t, srv, gophish.WithMetrics(m))
	ctx := context.Background()

	campaign, err := client.CreateCampaign(ctx, &gophish.CampaignRequest{
		Name:       "Phishing Awareness 2026-10",
		Template:   gophish.ObjectRef{ID: 2, Name: "Password Expiry"},
		Page:       gophish.ObjectRef{ID: 3, Name: "SSO Login"},
		SMTP:       gophish.ObjectRef{ID: 1, Name: "Mail Relay"},
		URL:        "https://phish.example.org",
		LaunchDate: time.Now().UTC(),
		Groups: []gophish.GroupRef{{Name: "Targets-2026-10", Targets: []models.Target{
			{FirstName: "Alice", LastName: "Smith", Email: "alice@example.org", Position: "Engineer"},
		}}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusInProgress, campaign.Status)

	summary, err := client.GetCampaignSummary(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Stats.Total)
	assert.Equal(t, int64(1), summary.Stats.Sent)

	results, err := client.GetCampaignResults(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, results.Results, 1)
	assert.Equal(t, "alice@example.org", results.Results[0].Email)

	got, err := client.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, campaign.Name, got.Name)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("POST", "/api/campaigns/", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("GET", "/api/campaigns/:id/summary", "200")))
}

func TestClient_ServerErrorIsRetryable(t *testing.T) {
	srv := gophishtest.NewServer(t)
	srv.FailStatus["GET /api/campaigns/7/summary"] = http.StatusBadGateway
	client := newClient(t, srv)

	_, err := client.GetCampaignSummary(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestClient_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := config.GoPhishConfig{URL: srv.URL, AuthMode: config.AuthModeHeader, VerifySSL: true, RequestTimeout: time.Second}
	srv.Close()

	client := gophish.NewClient(cfg, "k", logger.NewNoOpLogger())
	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAPIUnreachable, apperrors.CodeOf(err))
	assert.Equal(t, apperrors.ExitUnreachable, apperrors.ExitCode(err))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	cfg := config.GoPhishConfig{URL: srv.URL, AuthMode: config.AuthModeHeader, VerifySSL: true, RequestTimeout: 50 * time.Millisecond}
	client := gophish.NewClient(cfg, "k", logger.NewNoOpLogger())

	_, err := client.ListPages(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAPITimeout, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestClient_CancelledContext(t *testing.T) {
	srv := gophishtest.NewServer(t)
	client := newClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ListTemplates(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
