package observe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)

	return m, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %q not found", name)

	return metricdata.Metrics{}
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %q is not a sum", m.Name)

	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}

	return 0
}

func TestRecordTrial(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTrial(ctx, true, 1200*time.Microsecond)
	m.RecordTrial(ctx, true, 800*time.Microsecond)
	m.RecordTrial(ctx, false, 0)

	trials := findMetric(t, reader, "delaycheck.trials")
	assert.Equal(t, int64(2), sumByAttr(t, trials, "outcome", OutcomeFound))
	assert.Equal(t, int64(1), sumByAttr(t, trials, "outcome", OutcomeNotFound))

	latency := findMetric(t, reader, "delaycheck.latency")
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count, "not found trials record no latency")
	assert.InDelta(t, 0.002, hist.DataPoints[0].Sum, 1e-9)
}

func TestRecordXruns(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordXruns(ctx, "capture", 2)
	m.RecordXruns(ctx, "capture", 0)
	m.RecordXruns(ctx, "playback", 1)

	xruns := findMetric(t, reader, "delaycheck.xruns")
	assert.Equal(t, int64(2), sumByAttr(t, xruns, "stream", "capture"))
	assert.Equal(t, int64(1), sumByAttr(t, xruns, "stream", "playback"))
}

func TestDefaultMetrics(t *testing.T) {
	m := DefaultMetrics()
	require.NotNil(t, m)
	assert.Same(t, m, DefaultMetrics())

	// The global provider is a no-op here; recording must not panic.
	m.RecordTrial(context.Background(), true, time.Millisecond)
}
