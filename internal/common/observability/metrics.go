package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"phishbot/internal/common/logger"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	phaseDuration otelmetric.Float64Histogram
	apiCalls      otelmetric.Int64Counter
	apiDuration   otelmetric.Float64Histogram
	notifications otelmetric.Int64Counter
}

// New wires an OpenTelemetry meter to reg through the Prometheus exporter, so
// instruments end up in the same textfile as the native collectors. Failure
// to build the exporter yields a no-op Observability.
func New(serviceName string, reg promclient.Registerer, log logger.Logger) *Observability {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", map[string]interface{}{"error": err})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	phaseDuration, _ := meter.Float64Histogram(
		"run.phase.duration",
		otelmetric.WithDescription("Run phase duration"),
		otelmetric.WithUnit("s"),
	)

	apiCalls, _ := meter.Int64Counter(
		"gophish.api.calls",
		otelmetric.WithDescription("GoPhish API calls by outcome"),
	)

	apiDuration, _ := meter.Float64Histogram(
		"gophish.api.duration",
		otelmetric.WithDescription("GoPhish API call duration"),
		otelmetric.WithUnit("ms"),
	)

	notifications, _ := meter.Int64Counter(
		"notifications.processed",
		otelmetric.WithDescription("Warning emails processed by outcome"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		phaseDuration: phaseDuration,
		apiCalls:      apiCalls,
		apiDuration:   apiDuration,
		notifications: notifications,
	}
}

// Record* methods are no-ops on a nil *Observability.
func (o *Observability) RecordPhase(ctx context.Context, phase string, duration time.Duration, outcome string) {
	if o != nil && o.phaseDuration != nil {
		o.phaseDuration.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(
			attribute.String("phase", phase),
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordAPICall(ctx context.Context, method, endpoint, outcome string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
	)
	if o.apiCalls != nil {
		o.apiCalls.Add(ctx, 1, attrs)
	}
	if o.apiDuration != nil {
		o.apiDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordNotification(ctx context.Context, transport, outcome string) {
	if o != nil && o.notifications != nil {
		o.notifications.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("transport", transport),
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
