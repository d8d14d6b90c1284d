package publishreport

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appaws "phishbot/internal/common/aws"
	"phishbot/internal/common/logger"
	"phishbot/internal/common/metrics"
	"phishbot/internal/models"
)

// ==========================
// Mock SNS Implementation
// ==========================

type MockSNS struct {
	mock.Mock
}

func (m *MockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

var clickTime = time.Date(2026, time.October, 2, 10, 30, 0, 0, time.UTC)

func createSummary() *models.RunSummary {
	alice := models.Target{FirstName: "Alice", LastName: "Smith", Email: "alice@example.org"}
	bob := models.Target{FirstName: "Bob", LastName: "Jones", Email: "bob@example.org"}
	return &models.RunSummary{
		RunID:       "run-1",
		FinalState:  models.StateDone,
		Campaign:    &models.CampaignRef{ID: 7, Name: "Phishing Awareness 2026-10"},
		TargetCount: 2,
		Results: []models.TargetResult{
			{Target: alice, Severity: models.SeverityClicked, EventType: models.EventClickedLink, EventTime: clickTime},
			{Target: bob, Severity: models.SeveritySent},
		},
		Outcomes: []models.NotificationOutcome{
			{Target: alice, Severity: models.SeverityClicked, Sent: true, MessageID: "<1@example.org>"},
		},
		PhaseDurations: map[models.RunState]time.Duration{models.StateWaiting: 2 * time.Second},
		StartedAt:      clickTime.Add(-time.Hour),
		FinishedAt:     clickTime,
	}
}

func createTestService(t *testing.T, cfg *Config, pub Publisher, m *metrics.Metrics) *Service {
	return NewService(ServiceDependencies{Logger: logger.NewTestLogger(t), Publisher: pub, Metrics: m}, cfg)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestService_Execute_WritesResultsCSV(t *testing.T) {
	dir := t.TempDir()
	sum := createSummary()
	svc := createTestService(t, &Config{ResultsDir: filepath.Join(dir, "out")}, nil, nil)

	out, err := svc.Execute(context.Background(), &Input{
		Summary:  sum,
		Affected: sum.Results[:1],
		FileName: ResultsFileName("2026-10"),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Errors)
	assert.Equal(t, filepath.Join(dir, "out", "clicked_2026-10.csv"), out.ResultsFile)
	assert.Equal(t, out.ResultsFile, sum.ResultsFile)

	data, err := os.ReadFile(out.ResultsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "FirstName,LastName,Email,EventTime,EventType", lines[0])
	assert.Equal(t, "Alice,Smith,alice@example.org,2026-10-02T10:30:00Z,Clicked Link", lines[1])
}

func TestService_Execute_NoAffectedNoFile(t *testing.T) {
	dir := t.TempDir()
	svc := createTestService(t, &Config{ResultsDir: dir}, nil, nil)

	out, err := svc.Execute(context.Background(), &Input{Summary: createSummary(), FileName: "clicked_2026-10.csv"})
	require.NoError(t, err)
	assert.Empty(t, out.ResultsFile)
	_, statErr := os.Stat(filepath.Join(dir, "clicked_2026-10.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_Execute_MetricsAndTextfile(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New()
	textfile := filepath.Join(dir, "phishbot.prom")
	svc := createTestService(t, &Config{ResultsDir: dir, MetricsTextfile: textfile}, nil, m)

	out, err := svc.Execute(context.Background(), &Input{Summary: createSummary(), Transport: "smtp"})
	require.NoError(t, err)
	assert.Equal(t, textfile, out.Textfile)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Targets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Results.WithLabelValues("clicked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("smtp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunOutcome.WithLabelValues("DONE")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PhaseDuration.WithLabelValues("WAITING")))

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "phishbot_campaign_targets 2")
}

func TestService_Execute_PublishesToSNS(t *testing.T) {
	api := new(MockSNS)
	msgID := "sns-1"
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var doc snsSummary
		if err := json.Unmarshal([]byte(*in.Message), &doc); err != nil {
			return false
		}
		return *in.TopicArn == "arn:aws:sns:eu-west-1:123:phishbot" &&
			doc.CampaignID == 7 && doc.Sent == 1 && doc.Severities["clicked"] == 1
	})).Return(&sns.PublishOutput{MessageId: &msgID}, nil).Once()

	cfg := &Config{ResultsDir: t.TempDir(), SNSTopicARN: "arn:aws:sns:eu-west-1:123:phishbot", AWSRegion: "eu-west-1"}
	svc := createTestService(t, cfg, appaws.NewSNSClientWithAPI(api), nil)

	out, err := svc.Execute(context.Background(), &Input{Summary: createSummary()})
	require.NoError(t, err)
	assert.Equal(t, "sns-1", out.SNSMessageID)
	api.AssertExpectations(t)
}

// ==========================
// Error Handling Tests
// ==========================

func TestService_Execute_SinkFailuresAreNonFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	api := new(MockSNS)
	api.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled")).Once()

	cfg := &Config{ResultsDir: blocker, SNSTopicARN: "arn:aws:sns:eu-west-1:123:phishbot", AWSRegion: "eu-west-1"}
	svc := createTestService(t, cfg, appaws.NewSNSClientWithAPI(api), nil)

	sum := createSummary()
	out, err := svc.Execute(context.Background(), &Input{Summary: sum, Affected: sum.Results[:1], FileName: "clicked.csv"})
	require.NoError(t, err)
	require.Len(t, out.Errors, 2)
	assert.Contains(t, out.Errors[0], "REPORT_FAILED")
	assert.Contains(t, out.Errors[0], SinkResultsFile)
	assert.Contains(t, out.Errors[1], SinkSNS)
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "clicked_2026-10.csv", ResultsFileName("2026-10"))
	assert.Equal(t, "campaign_7_results_20261002_103000.csv", CompletionFileName(7, clickTime))
}
