// internal/gophish/client.go
package gophish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"phishbot/internal/common/config"
	apperrors "phishbot/internal/common/errors"
	apphttp "phishbot/internal/common/http"
	"phishbot/internal/common/logger"
	"phishbot/internal/common/metrics"
	"phishbot/internal/common/observability"
)

// Client talks to the GoPhish admin API.
type Client struct {
	baseURL    string
	apiKey     string
	authMode   string
	httpClient *apphttp.Client
	logger     logger.Logger
	metrics    *metrics.Metrics
	obs        *observability.Observability
}

type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. with an httptest server client.
func WithHTTPClient(c *apphttp.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func WithObservability(o *observability.Observability) Option {
	return func(cl *Client) { cl.obs = o }
}

func NewClient(cfg config.GoPhishConfig, apiKey string, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		apiKey:   apiKey,
		authMode: cfg.AuthMode,
		httpClient: apphttp.NewClientWithOptions(apphttp.Options{
			Timeout:            cfg.RequestTimeout,
			InsecureSkipVerify: !cfg.VerifySSL,
		}),
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListSMTPProfiles(ctx context.Context) ([]SMTPProfile, error) {
	var out []SMTPProfile
	err := c.do(ctx, http.MethodGet, "/api/smtp/", "/api/smtp/", nil, &out)
	return out, err
}

func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var out []Template
	err := c.do(ctx, http.MethodGet, "/api/templates/", "/api/templates/", nil, &out)
	return out, err
}

func (c *Client) ListPages(ctx context.Context) ([]Page, error) {
	var out []Page
	err := c.do(ctx, http.MethodGet, "/api/pages/", "/api/pages/", nil, &out)
	return out, err
}

func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	var out []Group
	err := c.do(ctx, http.MethodGet, "/api/groups/", "/api/groups/", nil, &out)
	return out, err
}

func (c *Client) CreateGroup(ctx context.Context, group *Group) (*Group, error) {
	var out Group
	if err := c.do(ctx, http.MethodPost, "/api/groups/", "/api/groups/", group, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGroup replaces the group's targets with group.Targets.
func (c *Client) UpdateGroup(ctx context.Context, group *Group) (*Group, error) {
	var out Group
	path := "/api/groups/" + strconv.FormatInt(group.ID, 10)
	if err := c.do(ctx, http.MethodPut, path, "/api/groups/:id", group, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCampaign creates and launches a campaign. Callers must not retry it:
// a request that times out may still have created the campaign.
func (c *Client) CreateCampaign(ctx context.Context, req *CampaignRequest) (*Campaign, error) {
	var out Campaign
	if err := c.do(ctx, http.MethodPost, "/api/campaigns/", "/api/campaigns/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCampaign(ctx context.Context, id int64) (*Campaign, error) {
	var out Campaign
	path := fmt.Sprintf("/api/campaigns/%d", id)
	if err := c.do(ctx, http.MethodGet, path, "/api/campaigns/:id", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCampaignSummary(ctx context.Context, id int64) (*CampaignSummary, error) {
	var out CampaignSummary
	path := fmt.Sprintf("/api/campaigns/%d/summary", id)
	if err := c.do(ctx, http.MethodGet, path, "/api/campaigns/:id/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCampaignResults(ctx context.Context, id int64) (*CampaignResults, error) {
	var out CampaignResults
	path := fmt.Sprintf("/api/campaigns/%d/results", id)
	if err := c.do(ctx, http.MethodGet, path, "/api/campaigns/:id/results", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks that the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListSMTPProfiles(ctx)
	return err
}

// do sends one request. route is the low-cardinality endpoint name used for
// metrics and errors; path is the concrete request path.
func (c *Client) do(ctx context.Context, method, path, route string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return apperrors.NewAPIRequestFailedError(method, route, 0, "failed to marshal request", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpointURL(path), body)
	if err != nil {
		return apperrors.NewAPIRequestFailedError(method, route, 0, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authMode != config.AuthModeQuery {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(ctx, method, route, "transport_error", start)
		return c.transportError(ctx, method, route, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	c.observe(ctx, method, route, strconv.Itoa(resp.StatusCode), start)
	if err != nil {
		return apperrors.NewAPIRequestFailedError(method, route, resp.StatusCode, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		details := strings.TrimSpace(string(respBody))
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			details = apiErr.Message
		}
		c.logger.Debug("GoPhish API returned error", map[string]interface{}{
			"method": method,
			"route":  route,
			"status": resp.StatusCode,
			"body":   details,
		})
		return apperrors.NewAPIRequestFailedError(method, route, resp.StatusCode, details, nil)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.NewAPIRequestFailedError(method, route, resp.StatusCode, "failed to decode response", err)
	}
	return nil
}

func (c *Client) endpointURL(path string) string {
	u := c.baseURL + path
	if c.authMode == config.AuthModeQuery {
		u += "?api_key=" + url.QueryEscape(c.apiKey)
	}
	return u
}

func (c *Client) transportError(ctx context.Context, method, route string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !apphttp.IsTimeout(ctxErr) {
		return ctxErr
	}
	switch {
	case apphttp.IsTimeout(err):
		return apperrors.NewAPITimeoutError(method, route, err)
	case apphttp.IsConnectionError(err):
		return apperrors.NewAPIUnreachableError(c.baseURL, err)
	default:
		return apperrors.NewAPIRequestFailedError(method, route, 0, "", err)
	}
}

func (c *Client) observe(ctx context.Context, method, route, status string, start time.Time) {
	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.APIRequests.WithLabelValues(method, route, status).Inc()
		c.metrics.APIDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	}
	if c.obs != nil {
		outcome := "ok"
		if code, err := strconv.Atoi(status); err != nil || code >= 300 {
			outcome = "error"
		}
		c.obs.RecordAPICall(ctx, method, route, outcome, elapsed)
	}
}
