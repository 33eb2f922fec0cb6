// Package storage 聚合 SDK 的外部资源：用于预签名的 S3 客户端与发布指标的消息队列.
// 资源在首次使用时创建，未使用的资源不会建立连接.
//
// Example:
//
//	mgr := storage.NewManager(configs.GetConfig(), log.Logger())
//	defer mgr.Close()
//
//	s3Client, err := mgr.S3()
//	if err != nil {
//	    // 处理错误
//	}
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yeisme/sdkcore/pkg/configs"
	"github.com/yeisme/sdkcore/pkg/internal/storage/mq"
	s3c "github.com/yeisme/sdkcore/pkg/internal/storage/s3"
	"github.com/yeisme/sdkcore/pkg/metrics"
)

// ErrNoManager context 中没有 Manager.
var ErrNoManager = errors.New("storage manager not found in context")

// Manager 聚合所有存储资源.
type Manager struct {
	cfg    *configs.AppConfig
	logger zerolog.Logger

	s3Once sync.Once
	s3     *s3c.Client
	s3Err  error

	mqMu sync.Mutex
	mq   *mq.Client
}

// NewManager 创建 Manager.
func NewManager(cfg *configs.AppConfig, logger zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// S3 获取 S3 客户端.
func (m *Manager) S3() (*s3c.Client, error) {
	m.s3Once.Do(func() {
		m.s3, m.s3Err = s3c.New(m.cfg.S3, m.logger)
	})

	return m.s3, m.s3Err
}

// MQ 获取消息队列客户端，连接失败时下次调用重试.
// 启用指标时 watermill 的发布订阅统计注册到进程级注册表.
func (m *Manager) MQ(ctx context.Context) (*mq.Client, error) {
	m.mqMu.Lock()
	defer m.mqMu.Unlock()

	if m.mq != nil {
		return m.mq, nil
	}

	var opts []mq.Option
	if m.cfg.Metrics.Enabled {
		opts = append(opts, mq.WithPrometheus(metrics.GetRegistry()), mq.WithMetricsNamespace(m.cfg.Metrics.Namespace))
	}

	client, err := mq.New(ctx, &m.cfg.MQ, m.logger, opts...)
	if err != nil {
		return nil, err
	}

	m.mq = client

	return client, nil
}

// Close 关闭已创建的资源.
func (m *Manager) Close() error {
	m.mqMu.Lock()
	defer m.mqMu.Unlock()

	var errs []error

	if m.mq != nil {
		errs = append(errs, m.mq.Close())
		m.mq = nil
	}

	return errors.Join(errs...)
}
