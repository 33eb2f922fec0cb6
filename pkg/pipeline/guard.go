package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/yeisme/sdkcore/pkg/configs"
)

// newBreaker 按配置创建熔断器，未启用时返回 nil.
func newBreaker(name string, cfg configs.CircuitBreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.Requests
			if total < cfg.MinRequests {
				return false
			}
			// 失败比例
			failureRate := float64(counts.TotalFailures) / float64(total)

			return failureRate >= cfg.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// newLimiter 按配置创建令牌桶限流器，未启用时返回 nil.
func newLimiter(cfg configs.RateLimitConfig) *rate.Limiter {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
}

// newBackOff 每次执行使用独立的退避状态.
func newBackOff(cfg configs.RetryConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()

	if cfg.InitialInterval > 0 {
		b.InitialInterval = cfg.InitialInterval
	}

	if cfg.MaxInterval > 0 {
		b.MaxInterval = cfg.MaxInterval
	}

	if cfg.Multiplier >= 1 {
		b.Multiplier = cfg.Multiplier
	}

	b.Reset()

	return b
}

// sleep 等待 d 或 ctx 结束.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// breakerRejected 熔断器拒绝请求时不再重试.
func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
