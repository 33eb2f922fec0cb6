package metrics_test

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/sdkcore/pkg/configs"
	"github.com/yeisme/sdkcore/pkg/metrics"
)

func sampleRecord() metrics.Record {
	return metrics.Record{
		ExecutionID: "exec-1",
		Service:     "S3",
		Operation:   "GetObject",
		StartedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
		Attempts:    2,
		StatusCode:  200,
		Samples: []metrics.Sample{
			{Name: "ApiCallLatency", Kind: metrics.KindTimer, Count: 1, Total: 1500 * time.Millisecond},
			{Name: "RetryCount", Kind: metrics.KindCounter, Count: 1},
			{Name: "PayloadSize", Kind: metrics.KindGauge, Value: int64(1024)},
		},
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer

	p := metrics.NewLogPublisher(zerolog.New(&buf))
	require.NoError(t, p.Publish(context.Background(), sampleRecord()))

	out := buf.String()
	assert.Contains(t, out, `"execution_id":"exec-1"`)
	assert.Contains(t, out, `"operation":"GetObject"`)
	assert.Contains(t, out, `"RetryCount":1`)
	assert.Contains(t, out, `"PayloadSize":1024`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"message":"api call metrics"`)
}

func TestPrometheusPublisher(t *testing.T) {
	reg := prometheus.NewRegistry()

	p, err := metrics.NewPrometheusPublisher(reg, "sdk")
	require.NoError(t, err)

	rec := sampleRecord()
	require.NoError(t, p.Publish(context.Background(), rec))

	rec.Error = "boom"
	rec.StatusCode = 0
	require.NoError(t, p.Publish(context.Background(), rec))

	// 重复创建复用已注册的指标
	again, err := metrics.NewPrometheusPublisher(reg, "sdk")
	require.NoError(t, err)
	require.NoError(t, again.Publish(context.Background(), sampleRecord()))

	count, err := testutil.GatherAndCount(reg, "sdk_api_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "success and error series")

	count, err = testutil.GatherAndCount(reg, "sdk_http_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == "sdk_api_call_attempts_total" {
			assert.InDelta(t, 6, mf.GetMetric()[0].GetCounter().GetValue(), 0.001)
		}
	}
}

func TestMultiPublisher(t *testing.T) {
	var calls atomic.Int32

	count := metrics.PublisherFunc(func(context.Context, metrics.Record) error {
		calls.Add(1)

		return nil
	})

	p := metrics.NewMultiPublisher(count, count, metrics.NoopPublisher{})
	require.NoError(t, p.Publish(context.Background(), sampleRecord()))
	assert.Equal(t, int32(2), calls.Load())

	boom := errors.New("boom")
	failing := metrics.PublisherFunc(func(context.Context, metrics.Record) error { return boom })

	err := metrics.NewMultiPublisher(count, failing).Publish(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, boom)
}

func TestNewPublisher(t *testing.T) {
	cfg := configs.Defaults().Metrics
	logger := zerolog.Nop()

	p, err := metrics.NewPublisher(cfg, logger, nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NoopPublisher{}, p, "disabled metrics")

	cfg.Enabled = true
	cfg.Publishers = []string{"log"}
	p, err = metrics.NewPublisher(cfg, logger, nil)
	require.NoError(t, err)
	assert.IsType(t, &metrics.LogPublisher{}, p)

	cfg.Publishers = []string{"log", "mq"}
	_, err = metrics.NewPublisher(cfg, logger, nil)
	require.Error(t, err)

	p, err = metrics.NewPublisher(cfg, logger, metrics.NoopPublisher{})
	require.NoError(t, err)
	assert.IsType(t, &metrics.MultiPublisher{}, p)

	cfg.Publishers = []string{"kafka"}
	_, err = metrics.NewPublisher(cfg, logger, nil)
	assert.Error(t, err)
}
