package gophish

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishbot/internal/models"
)

var t0 = time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

func TestClassify_WorstSeverityWins(t *testing.T) {
	res := &CampaignResults{
		Results: []Result{
			{Email: "a@example.org", FirstName: "A", Status: models.EventEmailSent},
			{Email: "b@example.org", FirstName: "B", Status: models.EventEmailSent},
		},
		Timeline: []Event{
			{Email: "", Message: models.EventCampaignCreated, Time: at(0)},
			{Email: "a@example.org", Message: models.EventEmailSent, Time: at(1)},
			{Email: "a@example.org", Message: models.EventClickedLink, Time: at(5)},
			{Email: "a@example.org", Message: models.EventEmailOpened, Time: at(3)},
			{Email: "a@example.org", Message: models.EventClickedLink, Time: at(9)},
			{Email: "b@example.org", Message: models.EventEmailSent, Time: at(1)},
		},
	}

	out := Classify(res, nil)
	require.Len(t, out, 2)

	assert.Equal(t, models.SeverityClicked, out[0].Severity)
	assert.Equal(t, models.EventClickedLink, out[0].EventType)
	assert.Equal(t, at(5), out[0].EventTime, "first click wins")
	assert.Equal(t, at(9), out[0].LastEventTime)

	assert.Equal(t, models.SeveritySent, out[1].Severity)
	assert.Equal(t, at(1), out[1].EventTime)
}

func TestClassify_StatusCountsWithoutTimeline(t *testing.T) {
	res := &CampaignResults{Results: []Result{
		{Email: "a@example.org", Status: models.EventDataSubmitted, ModifiedDate: at(7)},
	}}

	out := Classify(res, nil)
	require.Len(t, out, 1)
	assert.Equal(t, models.SeveritySubmitted, out[0].Severity)
	assert.Equal(t, at(7), out[0].EventTime)
	assert.True(t, out[0].Terminal())
}

func TestClassify_ReportedAndSendErrors(t *testing.T) {
	res := &CampaignResults{
		Results: []Result{
			{Email: "a@example.org", Status: models.EventEmailOpened},
			{Email: "b@example.org", Status: models.StatusError},
			{Email: "c@example.org", Status: models.EventEmailSent},
		},
		Timeline: []Event{
			{Email: "a@example.org", Message: models.EventEmailReported, Time: at(4)},
			{Email: "c@example.org", Message: models.EventSendingError, Time: at(2)},
		},
	}

	out := Classify(res, nil)
	require.Len(t, out, 3)
	assert.True(t, out[0].Reported)
	assert.Equal(t, models.SeverityOpened, out[0].Severity, "reporting does not lower severity")
	assert.True(t, out[1].SendFailed)
	assert.True(t, out[2].SendFailed)
	assert.True(t, AllTerminal(out))
}

func TestClassify_RosterIsAuthoritative(t *testing.T) {
	res := &CampaignResults{
		Results: []Result{
			{Email: "Stranger@Example.org", FirstName: "S", Status: models.EventClickedLink},
			{Email: "ALICE@example.org", FirstName: "al", Status: models.EventClickedLink},
		},
	}
	roster := []models.Target{
		{FirstName: "Alice", LastName: "Smith", Email: "alice@example.org", Position: "Engineer"},
		{FirstName: "Bob", Email: "bob@example.org"},
	}

	out := Classify(res, roster)
	require.Len(t, out, 3)

	assert.Equal(t, "Alice", out[0].Target.FirstName)
	assert.Equal(t, "Engineer", out[0].Target.Position)
	assert.Equal(t, models.SeverityClicked, out[0].Severity)
	assert.True(t, out[0].InRoster)

	assert.Equal(t, "bob@example.org", out[1].Target.Email)
	assert.Equal(t, models.SeverityNone, out[1].Severity)
	assert.True(t, out[1].InRoster)

	assert.Equal(t, "stranger@example.org", out[2].Target.Email)
	assert.False(t, out[2].InRoster)
}

func TestAllTerminal(t *testing.T) {
	assert.False(t, AllTerminal(nil))
	assert.False(t, AllTerminal([]models.TargetResult{
		{Severity: models.SeveritySubmitted},
		{Severity: models.SeverityClicked},
	}))
	assert.True(t, AllTerminal([]models.TargetResult{
		{Severity: models.SeveritySubmitted},
		{Severity: models.SeveritySent, Reported: true},
	}))
}
