package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/yeisme/sdkcore/pkg/metrics"
	"github.com/yeisme/sdkcore/pkg/middleware"
)

func TestMiddlewaresRecordRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer

	engine := gin.New()
	engine.Use(middleware.GinLoggerMiddleware(zerolog.New(&buf)), middleware.PrometheusMiddleware())
	engine.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping/1?x=y", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	counter := metrics.NewCounter("scrape_requests_total", "Total HTTP requests served by the metrics server", []string{"method", "route", "code"})
	assert.InDelta(t, 1, testutil.ToFloat64(counter.WithLabelValues(http.MethodGet, "/ping/:id", "204")), 0)

	assert.Contains(t, buf.String(), `"path":"/ping/1?x=y"`)
	assert.Contains(t, buf.String(), `"status":204`)
}
