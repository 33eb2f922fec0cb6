// Package app 提供应用程序的初始化和配置功能.
// App 按配置组装日志、追踪、指标与存储资源，命令行子命令通过它获取预签名器与请求执行器.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/sdkcore/pkg/configs"
	sdkctx "github.com/yeisme/sdkcore/pkg/context"
	"github.com/yeisme/sdkcore/pkg/internal/storage"
	"github.com/yeisme/sdkcore/pkg/log"
	"github.com/yeisme/sdkcore/pkg/metrics"
	"github.com/yeisme/sdkcore/pkg/middleware"
	"github.com/yeisme/sdkcore/pkg/pipeline"
	"github.com/yeisme/sdkcore/pkg/presigner"
	"github.com/yeisme/sdkcore/pkg/queue"
	"github.com/yeisme/sdkcore/pkg/tracing"
)

// ShutdownTimeout 指标服务器优雅退出的等待时间.
const ShutdownTimeout = 5 * time.Second

// ErrMetricsDisabled 配置未启用指标.
var ErrMetricsDisabled = errors.New("metrics disabled, set metrics.enabled=true")

type App struct {
	config  *configs.AppConfig
	logger  zerolog.Logger
	storage *storage.Manager
}

// New 加载配置并初始化日志、追踪与进程级指标.
func New(configPath string) (*App, error) {
	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()

	log.Init()

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	if config.Metrics.Enabled {
		metrics.NewGauge("sdkcore_build_info", "Build information of the running SDK", []string{"version"}).
			WithLabelValues(configs.AppVersion).Set(1)
	}

	return &App{
		config:  config,
		logger:  *l,
		storage: storage.NewManager(config, *l),
	}, nil
}

// Config 返回全局配置.
func (a *App) Config() *configs.AppConfig { return a.config }

// Logger 返回应用日志器.
func (a *App) Logger() zerolog.Logger { return a.logger }

// Context 把日志器与存储管理器放入 ctx.
func (a *App) Context(ctx context.Context) context.Context {
	return storage.WithManager(sdkctx.WithLogger(ctx, a.logger), a.storage)
}

// Presigner 基于配置的 S3 客户端创建预签名器，不发起网络请求.
func (a *App) Presigner() (*presigner.S3Presigner, error) {
	client, err := a.storage.S3()
	if err != nil {
		return nil, err
	}

	return presigner.NewFromConfig(a.config.Presign, client, a.logger), nil
}

// Publisher 按 metrics.publishers 组装执行指标发布器，包含 mq 时才连接消息队列.
func (a *App) Publisher(ctx context.Context) (metrics.Publisher, error) {
	var mqPublisher metrics.Publisher

	if a.config.Metrics.Enabled && slices.Contains(a.config.Metrics.Publishers, metrics.PublisherMQ) {
		client, err := a.storage.MQ(ctx)
		if err != nil {
			return nil, err
		}

		mqPublisher = queue.NewMetricsPublisher(client.Publisher(), a.config.MQ.Topic,
			queue.WithProducer(a.config.Client.ServiceName))
	}

	return metrics.NewPublisher(a.config.Metrics, a.logger, mqPublisher)
}

// Client 创建带指标发布的请求执行器.
func (a *App) Client(ctx context.Context) (*pipeline.Client, error) {
	pub, err := a.Publisher(ctx)
	if err != nil {
		return nil, err
	}

	return pipeline.NewClient(a.config.Client, a.config.Metrics,
		pipeline.WithPublisher(pub),
		pipeline.WithLogger(a.logger),
	), nil
}

// Engine 创建挂载 /metrics 的 gin 引擎.
func (a *App) Engine() (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(a.logger),
		middleware.PrometheusMiddleware(),
	)

	if err := metrics.StartMetricsServer(a.config.Metrics, engine); err != nil {
		return nil, fmt.Errorf("mount metrics handler: %w", err)
	}

	return engine, nil
}

// ServeMetrics 监听 metrics.endpoint 并周期汇总指标，直到 ctx 结束.
func (a *App) ServeMetrics(ctx context.Context) error {
	cfg := a.config.Metrics
	if !cfg.Enabled {
		return ErrMetricsDisabled
	}

	engine, err := a.Engine()
	if err != nil {
		return err
	}

	reporter := metrics.NewReporter(metrics.GetRegistry(), cfg.Namespace, cfg.ReportInterval, a.logger)
	if err := reporter.Start(); err != nil {
		return fmt.Errorf("start reporter: %w", err)
	}

	defer func() { _ = reporter.Stop() }()

	srv := &http.Server{
		Addr:              cfg.Endpoint,
		Handler:           engine,
		ReadHeaderTimeout: ShutdownTimeout,
	}

	errCh := make(chan error, 1)

	go func() { errCh <- srv.ListenAndServe() }()

	a.logger.Info().Str("endpoint", cfg.Endpoint).Msg("metrics server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

// Close 释放存储连接并刷新追踪数据.
func (a *App) Close(ctx context.Context) error {
	return errors.Join(a.storage.Close(), tracing.ShutdownTracer(ctx))
}
