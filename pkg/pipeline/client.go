package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/yeisme/sdkcore/pkg/configs"
	sdkctx "github.com/yeisme/sdkcore/pkg/context"
	"github.com/yeisme/sdkcore/pkg/metrics"
	"github.com/yeisme/sdkcore/pkg/presigner"
	"github.com/yeisme/sdkcore/pkg/tracing"
)

// HTTPDoer 发送 HTTP 请求的传输层，*http.Client 满足该接口.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RegistryFactory 为每次执行创建指标注册表.
type RegistryFactory func() (metrics.Registry, error)

// Option 配置 Client.
type Option func(*Client)

// WithHTTPClient 替换传输层.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.doer = doer }
}

// WithPublisher 设置执行结束后的指标发布器.
func WithPublisher(p metrics.Publisher) Option {
	return func(c *Client) { c.publisher = p }
}

// WithLogger 设置日志记录器.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRegistryFactory 替换按配置选择注册表的默认行为.
func WithRegistryFactory(f RegistryFactory) Option {
	return func(c *Client) { c.newRegistry = f }
}

// WithClock 替换判断预签名是否过期使用的时钟.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client 带指标、重试、限流与熔断的请求执行器，可并发使用.
type Client struct {
	cfg         configs.ClientConfig
	doer        HTTPDoer
	publisher   metrics.Publisher
	logger      zerolog.Logger
	newRegistry RegistryFactory
	now         func() time.Time

	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewClient 创建 Client；注册表实现在每次执行开始时按 metricsCfg 选择.
func NewClient(cfg configs.ClientConfig, metricsCfg configs.MetricsConfig, opts ...Option) *Client {
	c := &Client{
		cfg:       cfg,
		doer:      &http.Client{Timeout: cfg.Timeout},
		publisher: metrics.NoopPublisher{},
		logger:    zerolog.Nop(),
		newRegistry: func() (metrics.Registry, error) {
			return metrics.NewExecutionRegistry(metricsCfg)
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.breaker = newBreaker(cfg.ServiceName, cfg.CircuitBreaker, c.logger)
	c.limiter = newLimiter(cfg.RateLimit)

	return c
}

// Do 执行一次调用.
// 可重试的失败（传输错误、5xx、429）按指数退避重试，耗尽后返回包装了最后一次错误的 ErrMaxAttemptsExceeded.
// 成功时调用方负责关闭响应体.
func (c *Client) Do(ctx context.Context, op Operation, req Request) (*http.Response, error) {
	reg, err := c.newRegistry()
	if err != nil {
		return nil, fmt.Errorf("create metric registry: %w", err)
	}

	start := time.Now()
	exec := &Execution{
		ID:        uuid.NewString(),
		Operation: op,
		Registry:  reg,
		StartedAt: c.now(),
	}

	logger := c.logger.With().
		Str("execution_id", exec.ID).
		Str("service", op.Service).
		Str("operation", op.Name).
		Logger()

	ctx = sdkctx.WithRegistry(ctx, reg)
	ctx = sdkctx.WithExecutionID(ctx, exec.ID)
	ctx = sdkctx.WithLogger(ctx, logger)

	if err := registerExecutionGauges(reg, op, req); err != nil {
		return nil, err
	}

	resp, attempts, err := c.attempts(ctx, exec, req)

	elapsed := time.Since(start)
	metrics.TimerFor(reg, metrics.APICallLatency).Record(elapsed)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	} else {
		var se *StatusError
		if errors.As(err, &se) {
			status = se.StatusCode
		}
	}

	if status != 0 {
		if _, gerr := metrics.RegisterConstantGauge(status, reg, metrics.HTTPStatusCode); gerr != nil {
			logger.Error().Err(gerr).Msg("register status gauge")
		}
	}

	c.publish(ctx, exec, elapsed, attempts, status, err, logger)

	return resp, err
}

// DoPresigned 执行预签名请求，过期的请求在任何 I/O 之前被拒绝.
// 重试前同样检查过期时间，过期后不再发送后续尝试.
func (c *Client) DoPresigned(ctx context.Context, op Operation, p presigner.PresignedRequest, body []byte) (*http.Response, error) {
	if p.IsExpired(c.now()) {
		return nil, fmt.Errorf("%w: expired at %s", ErrPresignedRequestExpired, p.Expiration.Format(time.RFC3339))
	}

	req := Request{
		Method:    p.Method,
		URL:       p.URL,
		Header:    p.SignedHeaders.Clone(),
		Body:      body,
		ExpiresAt: p.Expiration,
	}

	if p.Method == http.MethodPost && p.FormData != nil {
		httpReq, err := p.HTTPRequest(ctx, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		form, err := io.ReadAll(httpReq.Body)
		if err != nil {
			return nil, fmt.Errorf("encode presigned form: %w", err)
		}

		req.Header = http.Header{"Content-Type": []string{httpReq.Header.Get("Content-Type")}}
		req.Body = form
	}

	return c.Do(ctx, op, req)
}

// registerExecutionGauges 每次执行只登记一次的常量 gauge.
func registerExecutionGauges(reg metrics.Registry, op Operation, req Request) error {
	if _, err := metrics.RegisterConstantGauge(op.Service, reg, metrics.Service); err != nil {
		return err
	}

	if _, err := metrics.RegisterConstantGauge(op.Name, reg, metrics.Operation); err != nil {
		return err
	}

	if size := req.PayloadSize(); size >= 0 {
		if _, err := metrics.RegisterConstantGauge(size, reg, metrics.PayloadSize); err != nil {
			return err
		}
	}

	return nil
}

// attempts 执行重试循环，返回最终响应、尝试次数与错误.
func (c *Client) attempts(ctx context.Context, exec *Execution, req Request) (*http.Response, int, error) {
	reg := exec.Registry
	maxAttempts := max(c.cfg.Retry.MaxAttempts, 1)
	bo := newBackOff(c.cfg.Retry)

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				break
			}

			if err := sleep(ctx, wait); err != nil {
				return nil, attempt - 1, err
			}

			metrics.CounterFor(reg, metrics.RetryCount).Inc()
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, attempt - 1, fmt.Errorf("rate limit: %w", err)
			}
		}

		if req.expired(c.now()) {
			err := fmt.Errorf("%w: expired at %s", ErrPresignedRequestExpired, req.ExpiresAt.Format(time.RFC3339))
			if lastErr != nil {
				err = fmt.Errorf("%w after %d attempts: %w", err, attempt-1, lastErr)
			}

			return nil, attempt - 1, err
		}

		resp, err := c.attempt(ctx, exec, req, attempt)
		if err == nil {
			return resp, attempt, nil
		}

		lastErr = err

		if !retryable(ctx, err) {
			return nil, attempt, err
		}

		logger := sdkctx.GetLogger(ctx)
		logger.Debug().Err(err).Int("attempt", attempt).Msg("attempt failed, retrying")
	}

	return nil, maxAttempts, fmt.Errorf("%w (%d): %w", ErrMaxAttemptsExceeded, maxAttempts, lastErr)
}

// attempt 单次尝试：构造请求、经过熔断器发送、记录尝试级指标.
func (c *Client) attempt(ctx context.Context, exec *Execution, req Request, attempt int) (*http.Response, error) {
	reg := exec.Registry

	ctx, span := tracing.StartSpan(ctx, exec.Operation.String(), trace.WithAttributes(
		attribute.String("rpc.service", exec.Operation.Service),
		attribute.String("rpc.method", exec.Operation.Name),
		attribute.String("sdk.execution_id", exec.ID),
		attribute.Int("sdk.attempt", attempt),
	))
	defer span.End()

	metrics.CounterFor(reg, metrics.APICallAttemptCount).Inc()
	attemptStart := time.Now()

	defer func() {
		metrics.TimerFor(reg, metrics.APICallAttemptLatency).Record(time.Since(attemptStart))
	}()

	var (
		httpReq *http.Request
		err     error
	)

	metrics.TimerFor(reg, metrics.MarshallingLatency).Time(func() {
		httpReq, err = newHTTPRequest(ctx, req)
	})

	if err != nil {
		metrics.CounterFor(reg, metrics.Exception).Inc()
		tracing.RecordError(span, err)

		return nil, err
	}

	resp, err := c.send(httpReq, metrics.TimerFor(reg, metrics.HTTPRequestRoundTripLatency))
	if err != nil {
		metrics.CounterFor(reg, metrics.Exception).Inc()
		tracing.RecordError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return resp, nil
}

// send 经过熔断器发送请求，可重试的状态码被转换为 StatusError 并关闭响应体.
func (c *Client) send(httpReq *http.Request, rtt metrics.Timer) (*http.Response, error) {
	do := func() (*http.Response, error) {
		start := time.Now()
		resp, err := c.doer.Do(httpReq)
		rtt.Record(time.Since(start))

		if err != nil {
			return nil, err
		}

		if retryableStatus(resp.StatusCode) {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}

		return resp, nil
	}

	if c.breaker == nil {
		return do()
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return do()
	})
	if err != nil {
		return nil, err
	}

	return result.(*http.Response), nil
}

func (c *Client) publish(ctx context.Context, exec *Execution, elapsed time.Duration, attempts, status int, callErr error, logger zerolog.Logger) {
	rec := metrics.Record{
		ExecutionID: exec.ID,
		Service:     exec.Operation.Service,
		Operation:   exec.Operation.Name,
		StartedAt:   exec.StartedAt,
		Duration:    elapsed,
		Attempts:    attempts,
		StatusCode:  status,
		Samples:     metrics.Snapshot(exec.Registry),
	}

	if callErr != nil {
		rec.Error = callErr.Error()
	}

	if err := c.publisher.Publish(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn().Err(err).Msg("publish execution metrics")
	}
}

func newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBuildRequest, err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	return httpReq, nil
}

// retryable 上下文结束、熔断拒绝与构造请求失败不重试.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || breakerRejected(err) {
		return false
	}

	return !errors.Is(err, errBuildRequest)
}
