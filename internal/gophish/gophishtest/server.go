// Package gophishtest provides an in-process GoPhish API for tests.
package gophishtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"phishbot/internal/common/config"
	"phishbot/internal/gophish"
	"phishbot/internal/models"
)

const APIKey = "test-api-key"

// Request is one call the server received.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Server is a fake GoPhish admin API backed by in-memory collections.
// Exported fields may be changed between calls while holding no lock;
// tests drive the server from one goroutine.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	nextID   int64

	SMTPProfiles []gophish.SMTPProfile
	Templates    []gophish.Template
	Pages        []gophish.Page
	Groups       []gophish.Group
	Campaigns    map[int64]*gophish.Campaign

	// FailStatus forces a status code for "METHOD /path" keys, e.g.
	// "POST /api/campaigns/" or "GET /api/campaigns/1/results".
	FailStatus map[string]int

	// OnCreate, when set, may rewrite a campaign's results and timeline
	// before it is stored, to simulate target activity.
	OnCreate func(c *gophish.Campaign)
}

// NewServer starts a fake with one SMTP profile, template and landing page.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		nextID:       100,
		SMTPProfiles: []gophish.SMTPProfile{{ID: 1, Name: "Mail Relay"}},
		Templates:    []gophish.Template{{ID: 2, Name: "Password Expiry"}},
		Pages:        []gophish.Page{{ID: 3, Name: "SSO Login"}},
		Campaigns:    map[int64]*gophish.Campaign{},
		FailStatus:   map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/smtp/", func(w http.ResponseWriter, r *http.Request) { s.writeJSON(w, http.StatusOK, s.SMTPProfiles) })
	mux.HandleFunc("GET /api/templates/", func(w http.ResponseWriter, r *http.Request) { s.writeJSON(w, http.StatusOK, s.Templates) })
	mux.HandleFunc("GET /api/pages/", func(w http.ResponseWriter, r *http.Request) { s.writeJSON(w, http.StatusOK, s.Pages) })
	mux.HandleFunc("GET /api/groups/", func(w http.ResponseWriter, r *http.Request) { s.writeJSON(w, http.StatusOK, s.Groups) })
	mux.HandleFunc("POST /api/groups/", s.createGroup)
	mux.HandleFunc("PUT /api/groups/{id}", s.updateGroup)
	mux.HandleFunc("POST /api/campaigns/", s.createCampaign)
	mux.HandleFunc("GET /api/campaigns/{id}", s.getCampaign)
	mux.HandleFunc("GET /api/campaigns/{id}/summary", s.getSummary)
	mux.HandleFunc("GET /api/campaigns/{id}/results", s.getResults)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+APIKey && r.URL.Query().Get("api_key") != APIKey {
			s.writeError(w, http.StatusUnauthorized, "Invalid API Key")
			return
		}
		if status, ok := s.FailStatus[r.Method+" "+r.URL.Path]; ok {
			s.writeError(w, status, "forced failure")
			return
		}
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// Config returns client settings pointing at the fake.
func (s *Server) Config() config.GoPhishConfig {
	return config.GoPhishConfig{
		URL:            s.URL,
		VerifySSL:      true,
		AuthMode:       config.AuthModeHeader,
		RequestTimeout: 5 * time.Second,
	}
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path exactly.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastBody decodes the body of the last request matching method and path.
func (s *Server) LastBody(t testing.TB, method, path string, v interface{}) {
	t.Helper()
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			if err := json.Unmarshal(reqs[i].Body, v); err != nil {
				t.Fatalf("decode %s %s body: %v", method, path, err)
			}
			return
		}
	}
	t.Fatalf("no %s %s request recorded", method, path)
}

// AddCampaign registers an existing campaign and returns its id.
func (s *Server) AddCampaign(c *gophish.Campaign) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	s.Campaigns[c.ID] = c
	return c.ID
}

// SetActivity overwrites the results and timeline of campaign id.
func (s *Server) SetActivity(id int64, status string, results []gophish.Result, timeline []gophish.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Campaigns[id]
	if !ok {
		return
	}
	if status != "" {
		c.Status = status
	}
	c.Results = results
	c.Timeline = timeline
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var g gophish.Group
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON structure")
		return
	}
	s.mu.Lock()
	s.nextID++
	g.ID = s.nextID
	g.ModifiedDate = time.Now().UTC()
	s.Groups = append(s.Groups, g)
	s.mu.Unlock()
	s.writeJSON(w, http.StatusCreated, g)
}

func (s *Server) updateGroup(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	var g gophish.Group
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON structure")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			g.ID = id
			g.ModifiedDate = time.Now().UTC()
			s.Groups[i] = g
			s.writeJSONLocked(w, http.StatusOK, g)
			return
		}
	}
	s.writeErrorLocked(w, http.StatusNotFound, "Group not found")
}

func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req gophish.CampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON structure")
		return
	}
	now := time.Now().UTC()
	c := &gophish.Campaign{
		Name:        req.Name,
		CreatedDate: now,
		LaunchDate:  req.LaunchDate,
		Status:      models.CampaignStatusInProgress,
		URL:         req.URL,
	}
	for _, g := range req.Groups {
		for _, t := range g.Targets {
			c.Results = append(c.Results, gophish.Result{
				Email: t.Email, FirstName: t.FirstName, LastName: t.LastName, Position: t.Position,
				Status: models.EventEmailSent, SendDate: now,
			})
		}
	}
	if s.OnCreate != nil {
		s.OnCreate(c)
	}
	s.AddCampaign(c)
	s.writeJSON(w, http.StatusCreated, c)
}

func (s *Server) campaign(w http.ResponseWriter, r *http.Request) (*gophish.Campaign, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	s.mu.Lock()
	c, ok := s.Campaigns[id]
	s.mu.Unlock()
	if err != nil || !ok {
		s.writeError(w, http.StatusNotFound, "Campaign not found")
		return nil, false
	}
	return c, true
}

func (s *Server) getCampaign(w http.ResponseWriter, r *http.Request) {
	if c, ok := s.campaign(w, r); ok {
		s.writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	c, ok := s.campaign(w, r)
	if !ok {
		return
	}
	summary := gophish.CampaignSummary{
		ID: c.ID, Name: c.Name, Status: c.Status,
		CreatedDate: c.CreatedDate, LaunchDate: c.LaunchDate, CompletedDate: c.CompletedDate,
	}
	for _, res := range c.Results {
		summary.Stats.Total++
		sev := models.SeverityOf(res.Status)
		if sev >= models.SeveritySent {
			summary.Stats.Sent++
		}
		if sev >= models.SeverityOpened {
			summary.Stats.Opened++
		}
		if sev >= models.SeverityClicked {
			summary.Stats.Clicked++
		}
		if sev >= models.SeveritySubmitted {
			summary.Stats.SubmittedData++
		}
		if res.Reported {
			summary.Stats.EmailReported++
		}
		if res.Status == models.StatusError {
			summary.Stats.Error++
		}
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	if c, ok := s.campaign(w, r); ok {
		s.writeJSON(w, http.StatusOK, gophish.CampaignResults{
			ID: c.ID, Name: c.Name, Status: c.Status, Results: c.Results, Timeline: c.Timeline,
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeJSONLocked(w, status, v)
}

func (s *Server) writeJSONLocked(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]interface{}{"message": msg, "success": false, "data": nil})
}

func (s *Server) writeErrorLocked(w http.ResponseWriter, status int, msg string) {
	s.writeJSONLocked(w, status, map[string]interface{}{"message": msg, "success": false, "data": nil})
}
