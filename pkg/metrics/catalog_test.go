package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/sdkcore/pkg/metrics"
)

func TestDefaultMetricsCatalog(t *testing.T) {
	all := metrics.DefaultMetrics()
	require.Len(t, all, 11)

	seen := make(map[string]bool, len(all))
	for _, m := range all {
		assert.False(t, seen[m.Name()], "duplicate metric %s", m.Name())
		seen[m.Name()] = true

		assert.NotZero(t, m.Categories(), m.Name())
		assert.NotEmpty(t, m.Help(), m.Name())
	}

	// 修改副本不影响描述符表
	all[0] = metrics.NewMetric("Changed", metrics.KindGauge, "", 0)
	assert.Equal(t, metrics.Service, metrics.DefaultMetrics()[0])
}

func TestLookupMetric(t *testing.T) {
	m, ok := metrics.LookupMetric("ApiCallLatency")
	require.True(t, ok)
	assert.Equal(t, metrics.APICallLatency, m)
	assert.Equal(t, metrics.KindTimer, m.Kind())
	assert.Equal(t, metrics.CategoryCore, m.Categories())

	_, ok = metrics.LookupMetric("NoSuchMetric")
	assert.False(t, ok)
}

func TestPrometheusName(t *testing.T) {
	cases := []struct {
		metric metrics.Metric
		want   string
	}{
		{metrics.Service, "service_id"},
		{metrics.APICallLatency, "api_call_latency"},
		{metrics.HTTPRequestRoundTripLatency, "http_request_round_trip_latency"},
		{metrics.HTTPStatusCode, "http_status_code"},
		{metrics.NewMetric("S3Bucket", metrics.KindGauge, "", 0), "s3_bucket"},
		{metrics.NewMetric("TLSHandshake", metrics.KindTimer, "", 0), "tls_handshake"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.metric.PrometheusName(), tc.metric.Name())
	}
}

func TestParseCategories(t *testing.T) {
	c, err := metrics.ParseCategories([]string{"core", " HTTP_CLIENT "})
	require.NoError(t, err)
	assert.Equal(t, metrics.CategoryCore|metrics.CategoryHTTPClient, c)
	assert.Equal(t, []string{"core", "http_client"}, c.Names())

	c, err = metrics.ParseCategories([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, metrics.CategoryAll, c)
	assert.Equal(t, "all", c.String())

	_, err = metrics.ParseCategories([]string{"disk"})
	assert.Error(t, err)
}

func TestCategoryText(t *testing.T) {
	text, err := (metrics.CategoryCore | metrics.CategoryStreaming).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "core,streaming", string(text))

	var c metrics.Category
	require.NoError(t, c.UnmarshalText(text))
	assert.Equal(t, metrics.CategoryCore|metrics.CategoryStreaming, c)
	assert.True(t, c.Has(metrics.CategoryStreaming))
	assert.False(t, c.Has(metrics.CategoryHTTPClient))
}
