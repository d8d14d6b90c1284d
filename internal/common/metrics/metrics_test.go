package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_IsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.NotificationsSent.WithLabelValues("smtp").Add(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.NotificationsSent.WithLabelValues("smtp")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.NotificationsSent.WithLabelValues("smtp")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.Targets.Set(3)
	m.Results.WithLabelValues("clicked").Set(1)
	m.RunOutcome.WithLabelValues("DONE").Set(1)

	path := filepath.Join(t.TempDir(), "phishbot.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, "phishbot_campaign_targets 3")
	assert.Contains(t, body, `phishbot_campaign_results{severity="clicked"} 1`)
	assert.Contains(t, body, `phishbot_run_outcome{state="DONE"} 1`)
}
