// Package observe holds the OpenTelemetry instruments recorded during a measurement run.
//
// Nothing here installs an exporter. The command records through otel.GetMeterProvider, which
// is a no-op until an embedding program registers a provider. Tests should build their own
// Metrics from an sdk/metric provider with a ManualReader.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/gen2brain/delaycheck"

// Trial outcome attribute values.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
)

// Metrics holds the instruments of a run. Safe for concurrent use.
type Metrics struct {
	// Trials counts completed trials. Use with attribute.String("outcome", ...).
	Trials metric.Int64Counter

	// Latency records measured loopback latencies in seconds.
	Latency metric.Float64Histogram

	// Xruns counts recovered device over/underruns. Use with attribute.String("stream", ...).
	Xruns metric.Int64Counter
}

// latencyBuckets covers loopback latencies from a cable (sub-millisecond) to a Bluetooth sink.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Trials, err = m.Int64Counter("delaycheck.trials",
		metric.WithDescription("Completed trials by outcome."),
	); err != nil {
		return nil, err
	}

	if met.Latency, err = m.Float64Histogram("delaycheck.latency",
		metric.WithDescription("Measured loopback latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Xruns, err = m.Int64Counter("delaycheck.xruns",
		metric.WithDescription("Recovered device xruns by stream direction."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on otel.GetMeterProvider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})

	return defaultMetrics
}

// RecordTrial counts one trial and, when the peak was found, records its latency.
func (m *Metrics) RecordTrial(ctx context.Context, found bool, latency time.Duration) {
	outcome := OutcomeNotFound
	if found {
		outcome = OutcomeFound
		m.Latency.Record(ctx, latency.Seconds())
	}

	m.Trials.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordXruns adds n recovered xruns for the given stream direction.
func (m *Metrics) RecordXruns(ctx context.Context, stream string, n int) {
	if n <= 0 {
		return
	}

	m.Xruns.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stream", stream)))
}
