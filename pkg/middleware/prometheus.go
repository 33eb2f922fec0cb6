package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/sdkcore/pkg/metrics"
)

// PrometheusMiddleware 统计指标服务器自身的请求，按路由模板而非原始路径打标签.
func PrometheusMiddleware() gin.HandlerFunc {
	requests := metrics.NewCounter("scrape_requests_total", "Total HTTP requests served by the metrics server", []string{"method", "route", "code"})
	duration := metrics.NewHistogram("scrape_request_duration_seconds", "HTTP request latency of the metrics server", []string{"method", "route"})

	return func(c *gin.Context) {
		start := time.Now()

		// 执行下一个中间件/处理器
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
