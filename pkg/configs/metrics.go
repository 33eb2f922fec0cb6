// Package configs 管理应用程序配置，包括Metrics的配置信息.
// Metrics配置决定每次请求执行使用真实注册表还是空实现.
//
// Example:
//
//	config := configs.GetConfig()
//	metricsConfig := config.Metrics
//	if metricsConfig.Enabled {
//		// 为每次执行创建真实注册表
//	}
package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MetricsConfig Metrics相关配置.
type MetricsConfig struct {
	// Enabled 是否启用Metrics，关闭时所有执行使用空注册表
	Enabled bool `mapstructure:"enabled"`
	// Namespace Prometheus 指标命名空间
	Namespace string `mapstructure:"namespace" rule:"required"`
	// Categories 启用的指标类别
	Categories []string `mapstructure:"categories" rule:"dive,oneof=core http_client streaming all"`
	// Publishers 执行结束后的发布目标
	Publishers []string `mapstructure:"publishers" rule:"dive,oneof=log prometheus mq"`
	// Endpoint /metrics 监听地址
	Endpoint string `mapstructure:"endpoint"`
	// ReportInterval 周期汇总日志间隔，0 表示关闭
	ReportInterval time.Duration `mapstructure:"report_interval"`
	// RuntimeMetrics 是否收集运行时指标
	RuntimeMetrics bool `mapstructure:"runtime_metrics"`
	// Pprof 是否暴露 pprof
	Pprof bool `mapstructure:"pprof"`
	// Labels 默认标签
	Labels map[string]string `mapstructure:"labels"`
}

// setDefaults 设置Metrics配置的默认值.
func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "sdk")
	v.SetDefault("metrics.categories", []string{"core"})
	v.SetDefault("metrics.publishers", []string{"log"})
	v.SetDefault("metrics.endpoint", ":9090")
	v.SetDefault("metrics.report_interval", time.Minute)
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.labels", map[string]string{
		"service": "sdkcore",
		"version": AppVersion,
	})
}
