package metrics_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/sdkcore/pkg/metrics"
)

func TestTimerForReturnsSameInstance(t *testing.T) {
	reg := metrics.NewDefaultRegistry()
	latency := metrics.NewMetric("ApiCallLatency", metrics.KindTimer, "", metrics.CategoryCore)

	t1 := metrics.TimerFor(reg, latency)
	t2 := metrics.TimerFor(reg, latency)

	require.NotNil(t, t1)
	assert.Same(t, t1, t2)
	assert.Equal(t, "ApiCallLatency", t1.Name())
	assert.Equal(t, metrics.CategoryCore, t1.Categories())
}

func TestCounterForReturnsSameInstance(t *testing.T) {
	reg := metrics.NewDefaultRegistry()
	retries := metrics.NewMetric("RetryCount", metrics.KindCounter, "", metrics.CategoryCore)

	c1 := metrics.CounterFor(reg, retries)
	c1.Inc()

	c2 := metrics.CounterFor(reg, retries)
	c2.Add(2)

	assert.Same(t, c1, c2)
	assert.Equal(t, uint64(3), c1.Count())
}

func TestRegisterConstantGaugePayloadSize(t *testing.T) {
	reg := metrics.NewDefaultRegistry()

	g, err := metrics.RegisterConstantGauge(int64(1024), reg, metrics.PayloadSize)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), g.Value())
	assert.Equal(t, "PayloadSize", g.Name())

	_, err = metrics.RegisterConstantGauge(int64(2048), reg, metrics.PayloadSize)
	require.ErrorIs(t, err, metrics.ErrAlreadyRegistered)

	// 第一次注册的值不受影响
	stored, ok := reg.Metrics()["PayloadSize"].(metrics.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(1024), stored.Value())
}

func TestRegisterConstantGaugeFilteredSkipsDuplicateCheck(t *testing.T) {
	reg := metrics.NewDefaultRegistry(metrics.WithCategories(metrics.CategoryCore))

	g1, err := metrics.RegisterConstantGauge(200, reg, metrics.HTTPStatusCode)
	require.NoError(t, err)
	assert.Equal(t, 200, g1.Value())

	g2, err := metrics.RegisterConstantGauge(503, reg, metrics.HTTPStatusCode)
	require.NoError(t, err)
	assert.Equal(t, 503, g2.Value())

	_, stored := reg.Metrics()["HttpStatusCode"]
	assert.False(t, stored)
}

func TestRegisterConstantGaugeDuplicateAnyType(t *testing.T) {
	reg := metrics.NewDefaultRegistry()

	_, err := metrics.RegisterConstantGauge("S3", reg, metrics.Service)
	require.NoError(t, err)

	_, err = metrics.RegisterConstantGauge(7, reg, metrics.Service)
	assert.ErrorIs(t, err, metrics.ErrAlreadyRegistered)
}

func TestNoopRegistryReturnsSharedNoops(t *testing.T) {
	reg := metrics.NoopRegistry{}

	for _, m := range metrics.DefaultMetrics() {
		assert.Equal(t, metrics.NoopTimer(), metrics.TimerFor(reg, m))
		assert.Equal(t, metrics.NoopCounter(), metrics.CounterFor(reg, m))

		g, err := metrics.RegisterConstantGauge(int64(1), reg, m)
		require.NoError(t, err)
		assert.Equal(t, metrics.NoopGauge[int64](), g)

		// 重复注册同样不会失败
		_, err = metrics.RegisterConstantGauge(int64(2), reg, m)
		require.NoError(t, err)
	}

	assert.Empty(t, reg.Metrics())
}

func TestNoopMetersDiscardData(t *testing.T) {
	timer := metrics.NoopTimer()
	timer.Record(time.Second)

	ran := false
	timer.Time(func() { ran = true })

	assert.True(t, ran)
	assert.Zero(t, timer.Count())
	assert.Zero(t, timer.Total())

	counter := metrics.NoopCounter()
	counter.Add(10)
	assert.Zero(t, counter.Count())

	assert.Equal(t, "", metrics.NoopGauge[string]().Value())
}

func TestTimerForConcurrentFirstAccess(t *testing.T) {
	reg := metrics.NewDefaultRegistry()

	const workers = 32

	timers := make([]metrics.Timer, workers)

	var wg sync.WaitGroup

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			timers[i] = metrics.TimerFor(reg, metrics.APICallAttemptLatency)
			timers[i].Record(250 * time.Millisecond)
		}()
	}

	wg.Wait()

	for _, tm := range timers {
		assert.Same(t, timers[0], tm)
	}

	assert.Equal(t, uint64(workers), timers[0].Count())
	assert.Len(t, reg.Metrics(), 1)
}
