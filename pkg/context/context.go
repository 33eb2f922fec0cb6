// Package context 拓展上下文功能，把单次执行的指标注册表、执行 ID 与日志记录器放入上下文，
// 便于自定义传输层在管道内部取用.
package context

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yeisme/sdkcore/pkg/metrics"
)

type ContextKey string

const (
	RegistryKey    ContextKey = "metricRegistry"
	ExecutionIDKey ContextKey = "executionID"
	LoggerKey      ContextKey = "logger"
)

// WithRegistry 将本次执行的指标注册表存储到 context 中.
func WithRegistry(ctx context.Context, reg metrics.Registry) context.Context {
	return context.WithValue(ctx, RegistryKey, reg)
}

// GetRegistry 从 context 中获取指标注册表，不存在时返回空注册表.
func GetRegistry(ctx context.Context) metrics.Registry {
	if reg, ok := ctx.Value(RegistryKey).(metrics.Registry); ok && reg != nil {
		return reg
	}

	return metrics.NoopRegistry{}
}

// WithExecutionID 将执行 ID 存储到 context 中.
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ExecutionIDKey, id)
}

// GetExecutionID 从 context 中获取执行 ID.
func GetExecutionID(ctx context.Context) string {
	id, _ := ctx.Value(ExecutionIDKey).(string)

	return id
}

// WithLogger 将日志记录器存储到 context 中.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetLogger 从 context 中获取日志记录器，不存在时返回空记录器.
func GetLogger(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}

	return zerolog.Nop()
}
