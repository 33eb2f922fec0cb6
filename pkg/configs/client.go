package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// 默认重试配置.
	DefaultRetryMaxAttempts     = 3
	DefaultRetryInitialInterval = 100 * time.Millisecond
	DefaultRetryMaxInterval     = 20 * time.Second
	DefaultRetryMultiplier      = 2.0

	// 默认速率限制配置.
	DefaultRateLimitEnabled = false
	DefaultRateLimitRPS     = 50.0
	DefaultRateLimitBurst   = 100

	// 默认熔断器配置.
	DefaultCBEnabled           = false
	DefaultCBFailureRate       = 0.5
	DefaultCBMinRequests       = 20
	DefaultCBIntervalSeconds   = 60
	DefaultCBTimeoutSeconds    = 30
	DefaultCBMaxRequestsInHalf = 5

	// DefaultClientTimeout 单次尝试的 HTTP 超时.
	DefaultClientTimeout = 30 * time.Second
)

// ClientConfig 请求执行管道配置.
type ClientConfig struct {
	ServiceName    string               `mapstructure:"service_name"    rule:"required"`
	Timeout        time.Duration        `mapstructure:"timeout"         rule:"gt=0"`
	Retry          RetryConfig          `mapstructure:"retry"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// RetryConfig 重试配置，尝试次数包含首次请求.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"     rule:"min=1,max=20"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"       rule:"gte=1"`
}

// RateLimitConfig 速率限制配置.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"     rule:"gt=0"`  // 每秒允许的请求数
	Burst   int     `mapstructure:"burst"   rule:"min=1"` // 突发容量
}

// CircuitBreakerConfig 熔断器配置.
type CircuitBreakerConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	FailureRate       float64 `mapstructure:"failure_rate"         rule:"gte=0,lte=1"` // 连续窗口失败比例阈值 [0,1]
	MinRequests       uint32  `mapstructure:"min_requests"`                            // 进入统计的最小请求数
	IntervalSeconds   int     `mapstructure:"interval_seconds"`                        // 滑动窗口统计周期
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`                         // 打开状态持续时间（自动半开）
	MaxRequestsInHalf uint32  `mapstructure:"max_requests_in_half"`                    // 半开状态允许的并发请求数
}

func (c *ClientConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("client.service_name", "S3")
	v.SetDefault("client.timeout", DefaultClientTimeout)

	v.SetDefault("client.retry.max_attempts", DefaultRetryMaxAttempts)
	v.SetDefault("client.retry.initial_interval", DefaultRetryInitialInterval)
	v.SetDefault("client.retry.max_interval", DefaultRetryMaxInterval)
	v.SetDefault("client.retry.multiplier", DefaultRetryMultiplier)

	v.SetDefault("client.rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("client.rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("client.rate_limit.burst", DefaultRateLimitBurst)

	v.SetDefault("client.circuit_breaker.enabled", DefaultCBEnabled)
	v.SetDefault("client.circuit_breaker.failure_rate", DefaultCBFailureRate)
	v.SetDefault("client.circuit_breaker.min_requests", DefaultCBMinRequests)
	v.SetDefault("client.circuit_breaker.interval_seconds", DefaultCBIntervalSeconds)
	v.SetDefault("client.circuit_breaker.timeout_seconds", DefaultCBTimeoutSeconds)
	v.SetDefault("client.circuit_breaker.max_requests_in_half", DefaultCBMaxRequestsInHalf)
}
