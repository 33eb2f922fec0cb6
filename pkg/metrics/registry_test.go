package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/sdkcore/pkg/configs"
	"github.com/yeisme/sdkcore/pkg/metrics"
)

func TestTimerRecordsDurations(t *testing.T) {
	reg := metrics.NewDefaultRegistry()
	timer := metrics.TimerFor(reg, metrics.APICallLatency)

	timer.Record(250 * time.Millisecond)
	timer.Record(500 * time.Millisecond)

	assert.Equal(t, uint64(2), timer.Count())
	assert.Equal(t, 750*time.Millisecond, timer.Total())
}

func TestCategoryFilter(t *testing.T) {
	reg := metrics.NewDefaultRegistry(metrics.WithCategories(metrics.CategoryCore))

	rtt := metrics.TimerFor(reg, metrics.HTTPRequestRoundTripLatency)
	assert.Equal(t, metrics.NoopTimer(), rtt)

	g, err := metrics.RegisterConstantGauge(200, reg, metrics.HTTPStatusCode)
	require.NoError(t, err)
	assert.Equal(t, 200, g.Value())

	// 被过滤的常量 gauge 不保存，因而也不会冲突
	_, err = metrics.RegisterConstantGauge(404, reg, metrics.HTTPStatusCode)
	require.NoError(t, err)

	metrics.TimerFor(reg, metrics.APICallLatency)
	assert.Len(t, reg.Metrics(), 1)
}

func TestKindMismatchPanics(t *testing.T) {
	reg := metrics.NewDefaultRegistry()
	metrics.CounterFor(reg, metrics.RetryCount)

	assert.Panics(t, func() {
		reg.Timer(metrics.RetryCount.Name(), metrics.Params{Categories: metrics.CategoryCore})
	})
}

func TestRegisterNilMeter(t *testing.T) {
	reg := metrics.NewDefaultRegistry()

	_, err := reg.Register("x", nil)
	assert.Error(t, err)
}

func TestDefaultRegistryCollect(t *testing.T) {
	reg := metrics.NewDefaultRegistry(
		metrics.WithNamespace("sdk"),
		metrics.WithLabels(map[string]string{"client": "test"}),
	)

	metrics.CounterFor(reg, metrics.APICallAttemptCount).Add(3)
	metrics.TimerFor(reg, metrics.APICallLatency).Record(time.Second)
	_, err := metrics.RegisterConstantGauge(int64(1024), reg, metrics.PayloadSize)
	require.NoError(t, err)
	_, err = metrics.RegisterConstantGauge("S3", reg, metrics.Service)
	require.NoError(t, err)

	promReg := prometheus.NewRegistry()
	require.NoError(t, promReg.Register(reg))

	expected := `
# HELP sdk_api_call_attempt_count_total The number of HTTP attempts made for the call.
# TYPE sdk_api_call_attempt_count_total counter
sdk_api_call_attempt_count_total{client="test"} 3
# HELP sdk_payload_size The size of the request payload in bytes.
# TYPE sdk_payload_size gauge
sdk_payload_size{client="test"} 1024
# HELP sdk_service_id_info The unique ID for the service.
# TYPE sdk_service_id_info gauge
sdk_service_id_info{client="test",value="S3"} 1
`
	err = testutil.GatherAndCompare(promReg, strings.NewReader(expected),
		"sdk_api_call_attempt_count_total", "sdk_payload_size", "sdk_service_id_info")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(promReg, "sdk_api_call_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewExecutionRegistry(t *testing.T) {
	cfg := configs.Defaults().Metrics

	cfg.Enabled = false
	reg, err := metrics.NewExecutionRegistry(cfg)
	require.NoError(t, err)
	assert.False(t, reg.Enabled())
	assert.IsType(t, metrics.NoopRegistry{}, reg)

	cfg.Enabled = true
	cfg.Categories = []string{"core"}
	reg, err = metrics.NewExecutionRegistry(cfg)
	require.NoError(t, err)
	assert.True(t, reg.Enabled())
	assert.Equal(t, metrics.NoopTimer(), metrics.TimerFor(reg, metrics.HTTPRequestRoundTripLatency))

	cfg.Categories = []string{"bogus"}
	_, err = metrics.NewExecutionRegistry(cfg)
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	reg := metrics.NewDefaultRegistry()

	metrics.TimerFor(reg, metrics.APICallLatency).Record(500 * time.Millisecond)
	metrics.CounterFor(reg, metrics.RetryCount).Add(2)
	_, err := metrics.RegisterConstantGauge("GetObject", reg, metrics.Operation)
	require.NoError(t, err)

	samples := metrics.Snapshot(reg)
	require.Len(t, samples, 3)

	names := []string{samples[0].Name, samples[1].Name, samples[2].Name}
	assert.Equal(t, []string{"ApiCallLatency", "OperationName", "RetryCount"}, names)

	assert.Equal(t, metrics.KindTimer, samples[0].Kind)
	assert.Equal(t, uint64(1), samples[0].Count)
	assert.Equal(t, 500*time.Millisecond, samples[0].Total)
	assert.Equal(t, "GetObject", samples[1].Value)
	assert.Equal(t, uint64(2), samples[2].Count)

	assert.Empty(t, metrics.Snapshot(metrics.NoopRegistry{}))
}
