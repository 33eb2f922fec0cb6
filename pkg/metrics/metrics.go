// Package metrics 提供请求执行期间的指标注册与进程级监控指标.
//
// 每次执行拥有独立的 Registry（真实或空实现，启动时按配置选择一次），
// 管道各阶段通过 TimerFor、CounterFor 与 RegisterConstantGauge 获取指标；
// 执行结束后汇总为 Record 交给 Publisher，PrometheusPublisher 把结果累加到进程级注册表.
//
// Example:
//
//	import "github.com/yeisme/sdkcore/pkg/metrics"
//
//	reg, err := metrics.NewExecutionRegistry(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	timer := metrics.TimerFor(reg, metrics.APICallLatency)
//	timer.Time(func() { call() })
//	metrics.CounterFor(reg, metrics.RetryCount).Inc()
package metrics

import (
	"errors"
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/sdkcore/pkg/configs"
)

var (
	// registry 进程级 Prometheus 注册表.
	registry = prometheus.NewRegistry()

	runtimeOnce sync.Once
)

// InitMetrics 初始化进程级 Metrics，可重复调用.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	// 注册标准收集器
	if config.RuntimeMetrics {
		runtimeOnce.Do(func() {
			err = registerAll(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		})
	}

	return err
}

// StartMetricsServer 在 engine 上挂载 /metrics（以及可选的 pprof）端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	if engine == nil {
		return errors.New("metrics: nil gin engine")
	}

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// NewCounter 创建新的计数器指标，同名同标签重复创建返回已注册的实例.
func NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter, err := registerOrExisting(registry, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name,
			Help: help,
		},
		labels,
	))
	if err != nil {
		panic(err)
	}

	return counter
}

// NewGauge 创建新的仪表盘指标.
func NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge, err := registerOrExisting(registry, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name,
			Help: help,
		},
		labels,
	))
	if err != nil {
		panic(err)
	}

	return gauge
}

// NewHistogram 创建新的直方图指标.
func NewHistogram(name, help string, labels []string) *prometheus.HistogramVec {
	histogram, err := registerOrExisting(registry, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: name,
			Help: help,
		},
		labels,
	))
	if err != nil {
		panic(err)
	}

	return histogram
}

func registerAll(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if _, err := registerOrExisting(registry, c); err != nil {
			return err
		}
	}

	return nil
}
