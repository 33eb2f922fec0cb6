package metrics_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/sdkcore/pkg/metrics"
)

func TestReporterReport(t *testing.T) {
	reg := prometheus.NewRegistry()

	calls := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sdk_calls_total", Help: "calls"}, []string{"op"})
	calls.WithLabelValues("get").Add(2)
	calls.WithLabelValues("put").Add(3)

	latency := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "sdk_latency_seconds", Help: "latency"})
	latency.Observe(0.1)

	other := prometheus.NewGauge(prometheus.GaugeOpts{Name: "other_gauge", Help: "ignored"})
	other.Set(9)

	reg.MustRegister(calls, latency, other)

	var buf bytes.Buffer

	r := metrics.NewReporter(reg, "sdk_", time.Minute, zerolog.New(&buf))

	summaries, err := r.Report()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, metrics.FamilySummary{Name: "sdk_calls_total", Type: "counter", Series: 2, Value: 5}, summaries[0])
	assert.Equal(t, metrics.FamilySummary{Name: "sdk_latency_seconds", Type: "histogram", Series: 1, Value: 1}, summaries[1])
	assert.Contains(t, buf.String(), `"families":2`)
}

func TestReporterStartStop(t *testing.T) {
	r := metrics.NewReporter(prometheus.NewRegistry(), "", 0, zerolog.Nop())
	require.NoError(t, r.Start(), "zero interval is a no-op")
	require.NoError(t, r.Stop())

	r = metrics.NewReporter(prometheus.NewRegistry(), "", time.Hour, zerolog.Nop())
	require.NoError(t, r.Start())
	require.NoError(t, r.Start(), "second start is ignored")
	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())
}
