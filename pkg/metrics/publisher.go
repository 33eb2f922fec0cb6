package metrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/sdkcore/pkg/configs"
)

// 发布目标名称，与配置 metrics.publishers 对应.
const (
	PublisherLog        = "log"
	PublisherPrometheus = "prometheus"
	PublisherMQ         = "mq"
)

// Publisher 接收执行结束后的指标汇总.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

// PublisherFunc 函数适配器.
type PublisherFunc func(ctx context.Context, rec Record) error

func (f PublisherFunc) Publish(ctx context.Context, rec Record) error { return f(ctx, rec) }

// NoopPublisher 丢弃所有记录.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Record) error { return nil }

// LogPublisher 把记录写成一条结构化日志.
type LogPublisher struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewLogPublisher 创建日志发布器，默认 info 级别.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger, level: zerolog.InfoLevel}
}

// WithLevel 返回使用指定级别的副本.
func (p *LogPublisher) WithLevel(level zerolog.Level) *LogPublisher {
	return &LogPublisher{logger: p.logger, level: level}
}

func (p *LogPublisher) Publish(_ context.Context, rec Record) error {
	samples := zerolog.Dict()

	for _, s := range rec.Samples {
		switch s.Kind {
		case KindTimer:
			samples.Dur(s.Name, s.Total)
		case KindCounter:
			samples.Uint64(s.Name, s.Count)
		default:
			samples.Interface(s.Name, s.Value)
		}
	}

	event := p.logger.WithLevel(p.level).
		Str("execution_id", rec.ExecutionID).
		Str("service", rec.Service).
		Str("operation", rec.Operation).
		Int("attempts", rec.Attempts).
		Dur("duration", rec.Duration).
		Dict("metrics", samples)

	if rec.StatusCode != 0 {
		event = event.Int("status", rec.StatusCode)
	}

	if rec.Error != "" {
		event = event.Str("error", rec.Error)
	}

	event.Msg("api call metrics")

	return nil
}

// PrometheusPublisher 把每次执行的汇总累加到进程级 Prometheus 指标.
type PrometheusPublisher struct {
	calls    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	attempts *prometheus.CounterVec
	statuses *prometheus.CounterVec
}

// NewPrometheusPublisher 在 reg 上注册进程级指标，重复创建复用已注册的指标.
func NewPrometheusPublisher(reg prometheus.Registerer, namespace string) (*PrometheusPublisher, error) {
	labels := []string{"service", "operation"}

	calls, err := registerOrExisting(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_calls_total",
		Help:      "Total number of API calls by outcome.",
	}, append(labels, "outcome")))
	if err != nil {
		return nil, err
	}

	latency, err := registerOrExisting(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_call_duration_seconds",
		Help:      "API call latency inclusive of retries.",
		Buckets:   prometheus.DefBuckets,
	}, labels))
	if err != nil {
		return nil, err
	}

	attempts, err := registerOrExisting(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_call_attempts_total",
		Help:      "Total number of HTTP attempts.",
	}, labels))
	if err != nil {
		return nil, err
	}

	statuses, err := registerOrExisting(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_responses_total",
		Help:      "Final HTTP responses by status code.",
	}, append(labels, "code")))
	if err != nil {
		return nil, err
	}

	return &PrometheusPublisher{calls: calls, latency: latency, attempts: attempts, statuses: statuses}, nil
}

func (p *PrometheusPublisher) Publish(_ context.Context, rec Record) error {
	outcome := "success"
	if !rec.Succeeded() {
		outcome = "error"
	}

	p.calls.WithLabelValues(rec.Service, rec.Operation, outcome).Inc()
	p.latency.WithLabelValues(rec.Service, rec.Operation).Observe(rec.Duration.Seconds())
	p.attempts.WithLabelValues(rec.Service, rec.Operation).Add(float64(rec.Attempts))

	if rec.StatusCode != 0 {
		p.statuses.WithLabelValues(rec.Service, rec.Operation, strconv.Itoa(rec.StatusCode)).Inc()
	}

	return nil
}

// MultiPublisher 并发地把记录交给多个发布器.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher 组合多个发布器.
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// Publish 等待所有发布器完成，返回第一个错误.
func (m *MultiPublisher) Publish(ctx context.Context, rec Record) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, p := range m.publishers {
		g.Go(func() error {
			return p.Publish(ctx, rec)
		})
	}

	return g.Wait()
}

// NewPublisher 按配置组装发布器；mq 发布器由调用方提供.
func NewPublisher(cfg configs.MetricsConfig, logger zerolog.Logger, mq Publisher) (Publisher, error) {
	if !cfg.Enabled || len(cfg.Publishers) == 0 {
		return NoopPublisher{}, nil
	}

	publishers := make([]Publisher, 0, len(cfg.Publishers))

	for _, name := range cfg.Publishers {
		switch name {
		case PublisherLog:
			publishers = append(publishers, NewLogPublisher(logger))
		case PublisherPrometheus:
			p, err := NewPrometheusPublisher(GetRegistry(), cfg.Namespace)
			if err != nil {
				return nil, err
			}

			publishers = append(publishers, p)
		case PublisherMQ:
			if mq == nil {
				return nil, errors.New("metrics: mq publisher requested but no message queue configured")
			}

			publishers = append(publishers, mq)
		default:
			return nil, fmt.Errorf("metrics: unknown publisher %q", name)
		}
	}

	if len(publishers) == 1 {
		return publishers[0], nil
	}

	return NewMultiPublisher(publishers...), nil
}

// registerOrExisting 注册 c，若已存在同样的指标则返回已注册的实例.
func registerOrExisting[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}

		var zero T

		return zero, err
	}

	return c, nil
}
