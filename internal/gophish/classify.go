package gophish

import (
	"sort"

	"phishbot/internal/models"
)

// Classify folds a campaign's per-target results and its timeline into one
// TargetResult per target, keeping the worst severity seen. EventTime is the
// first time the target reached that severity.
//
// When roster is non-empty it is authoritative for names and positions:
// roster members come first in roster order, members GoPhish holds no result
// for are reported at SeverityNone, and results for addresses outside the
// roster follow with InRoster unset.
func Classify(res *CampaignResults, roster []models.Target) []models.TargetResult {
	if res == nil {
		res = &CampaignResults{}
	}

	byEmail := make(map[string]*models.TargetResult, len(res.Results))
	order := make([]string, 0, len(res.Results))
	fromTimeline := make(map[string]bool, len(res.Results))

	for _, r := range res.Results {
		email := models.NormalizeEmail(r.Email)
		if email == "" {
			continue
		}
		if _, seen := byEmail[email]; seen {
			continue
		}
		tr := &models.TargetResult{
			Target: models.Target{
				FirstName: r.FirstName,
				LastName:  r.LastName,
				Email:     email,
				Position:  r.Position,
			},
			Status:        r.Status,
			Severity:      models.SeverityOf(r.Status),
			Reported:      r.Reported || r.Status == models.EventEmailReported,
			SendFailed:    r.Status == models.StatusError || r.Status == models.EventSendingError,
			LastEventTime: r.ModifiedDate,
		}
		if tr.Severity > models.SeverityNone {
			tr.EventType = r.Status
			tr.EventTime = r.ModifiedDate
			if tr.EventTime.IsZero() {
				tr.EventTime = r.SendDate
			}
		}
		byEmail[email] = tr
		order = append(order, email)
	}

	timeline := make([]Event, len(res.Timeline))
	copy(timeline, res.Timeline)
	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].Time.Before(timeline[j].Time) })

	for _, e := range timeline {
		email := models.NormalizeEmail(e.Email)
		tr, ok := byEmail[email]
		if !ok {
			continue
		}
		if e.Time.After(tr.LastEventTime) {
			tr.LastEventTime = e.Time
		}

		switch e.Message {
		case models.EventEmailReported:
			tr.Reported = true
			continue
		case models.EventSendingError:
			tr.SendFailed = true
			continue
		}

		sev := models.SeverityOf(e.Message)
		if sev == models.SeverityNone {
			continue
		}
		if sev > tr.Severity || (sev == tr.Severity && !fromTimeline[email]) {
			tr.Severity = sev
			tr.EventType = e.Message
			tr.EventTime = e.Time
			fromTimeline[email] = true
		}
	}

	if len(roster) == 0 {
		out := make([]models.TargetResult, 0, len(order))
		for _, email := range order {
			out = append(out, *byEmail[email])
		}
		return out
	}

	out := make([]models.TargetResult, 0, len(roster)+len(order))
	inRoster := make(map[string]bool, len(roster))
	for _, t := range roster {
		email := models.NormalizeEmail(t.Email)
		if inRoster[email] {
			continue
		}
		inRoster[email] = true
		t.Email = email

		tr, ok := byEmail[email]
		if !ok {
			out = append(out, models.TargetResult{Target: t, InRoster: true})
			continue
		}
		tr.Target = t
		tr.InRoster = true
		out = append(out, *tr)
	}
	for _, email := range order {
		if !inRoster[email] {
			out = append(out, *byEmail[email])
		}
	}
	return out
}

// AllTerminal reports whether every result is terminal. An empty set is not.
func AllTerminal(results []models.TargetResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Terminal() {
			return false
		}
	}
	return true
}
