// Package mq 提供基于 Watermill 库的统一消息队列操作接口.
// 支持发布/订阅模式，并通过工厂模式抽象不同的 MQ 实现.
//
// 支持的 MQ 类型：
//   - NATS（watermill-nats）
//   - Redis Pub/Sub（go-redis）
//
// 该包提供封装了 Publisher 和 Subscriber 的 Client，执行指标通过 queue.MetricsPublisher
// 借助 Client.Publisher() 发布.
//
// 使用示例：
//
//	client, err := mq.New(ctx, &cfg.MQ, log.Logger(), mq.WithPrometheus(metrics.GetRegistry()))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	ch, err := client.Subscribe(ctx, cfg.MQ.Topic)
//	for msg := range ch {
//		fmt.Println(string(msg.Payload))
//		msg.Ack()
//	}
package mq

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	watermill "github.com/ThreeDotsLabs/watermill"
	wmmetrics "github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/yeisme/sdkcore/pkg/configs"
)

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[configs.MQType]Factory{}

	// ErrNotInitialized Client 缺少发布器或订阅器.
	ErrNotInitialized = errors.New("mq client not initialized")
)

// RegisterFactory 注册指定 MQType 的工厂，重复注册会覆盖.
func RegisterFactory(t configs.MQType, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[t] = f
}

// Types 返回已注册的 MQ 类型，按名称排序.
func Types() []configs.MQType {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

func lookupFactory(t configs.MQType) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	f, ok := factories[t]

	return f, ok
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	prefix     string
}

// Option 配置 New.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	namespace  string
}

// WithPrometheus 使用 watermill 的 Prometheus 装饰器统计发布与订阅.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithMetricsNamespace 设置 watermill 指标命名空间.
func WithMetricsNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// New 按 cfg.Type 选择工厂创建 Client.
func New(ctx context.Context, cfg *configs.MQConfig, logger zerolog.Logger, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	factory, ok := lookupFactory(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	adapter := NewLoggerAdapter(logger)

	pub, sub, err := factory(ctx, cfg, adapter)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	if o.registerer != nil {
		builder := wmmetrics.NewPrometheusMetricsBuilder(o.registerer, o.namespace, "mq")

		if pub, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	c := NewClient(pub, sub)
	if cfg.Type == configs.MQTypeNATS {
		c.prefix = cfg.NATS.SubjectPrefix
	}

	logger.Info().Str("type", string(cfg.Type)).Bool("metrics", o.registerer != nil).Msg("mq client initialized")

	return c, nil
}

// NewClient 直接由 Publisher 与 Subscriber 组装 Client.
func NewClient(pub message.Publisher, sub message.Subscriber) *Client {
	return &Client{publisher: pub, subscriber: sub}
}

// Publisher 返回带主题前缀的 watermill 发布器.
func (c *Client) Publisher() message.Publisher {
	return &prefixedPublisher{c: c}
}

// Publish 便捷发布.
func (c *Client) Publish(topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return ErrNotInitialized
	}

	return c.publisher.Publish(c.topic(topic), msgs...)
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, ErrNotInitialized
	}

	return c.subscriber.Subscribe(ctx, c.topic(topic))
}

// Close 关闭资源.
func (c *Client) Close() error {
	var errs []error

	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}

	if c.subscriber != nil {
		errs = append(errs, c.subscriber.Close())
	}

	return errors.Join(errs...)
}

func (c *Client) topic(topic string) string {
	return c.prefix + topic
}

// prefixedPublisher 让外部发布器也走 Client 的主题前缀，Close 由 Client 负责.
type prefixedPublisher struct {
	c *Client
}

func (p *prefixedPublisher) Publish(topic string, msgs ...*message.Message) error {
	return p.c.Publish(topic, msgs...)
}

func (p *prefixedPublisher) Close() error { return nil }
