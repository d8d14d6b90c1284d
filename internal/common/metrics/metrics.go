// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the per-run collectors. A run is a batch job, so the
// registry is written to a node_exporter textfile instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry

	APIRequests *prometheus.CounterVec
	APIDuration *prometheus.HistogramVec

	PhaseDuration *prometheus.GaugeVec
	Targets       prometheus.Gauge
	Results       *prometheus.GaugeVec

	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec

	RunOutcome      *prometheus.GaugeVec
	LastRunFinished prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishbot_api_requests_total",
				Help: "Total number of GoPhish API requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		APIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phishbot_api_request_duration_seconds",
				Help:    "Duration of GoPhish API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		PhaseDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "phishbot_phase_duration_seconds",
				Help: "Time spent in each run phase",
			},
			[]string{"phase"},
		),

		Targets: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "phishbot_campaign_targets",
				Help: "Number of targets enrolled in the campaign",
			},
		),

		Results: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "phishbot_campaign_results",
				Help: "Targets per highest observed severity",
			},
			[]string{"severity"},
		),

		NotificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishbot_notifications_sent_total",
				Help: "Total number of warning emails delivered",
			},
			[]string{"transport"},
		),

		NotificationsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishbot_notifications_failed_total",
				Help: "Total number of warning emails that could not be delivered",
			},
			[]string{"transport"},
		),

		RunOutcome: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "phishbot_run_outcome",
				Help: "1 for the final state of the last run",
			},
			[]string{"state"},
		),

		LastRunFinished: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "phishbot_last_run_finished_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}
}

// Registerer lets other exporters (OpenTelemetry) share the registry.
func (m *Metrics) Registerer() prometheus.Registerer {
	return m.registry
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile atomically writes every collector in textfile-collector format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
