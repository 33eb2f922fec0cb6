package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/sdkcore/pkg/configs"
)

const (
	// DefaultChannelBufferSize 默认通道缓冲区大小.
	DefaultChannelBufferSize = 100
)

// ErrSubscriberClosed 订阅器已关闭.
var ErrSubscriberClosed = errors.New("redis subscriber closed")

// redisFrame Redis 频道上传输的消息帧，保留 watermill 的 UUID 与元数据.
type redisFrame struct {
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

// sharedClient Publisher 与 Subscriber 共用一个连接，只关闭一次.
type sharedClient struct {
	*redis.Client
	once sync.Once
	err  error
}

func (c *sharedClient) close() error {
	c.once.Do(func() { c.err = c.Client.Close() })

	return c.err
}

// RedisPublisher Redis Publisher 实现.
type RedisPublisher struct {
	client *sharedClient
}

// RedisSubscriber Redis Subscriber 实现.
type RedisSubscriber struct {
	client  *sharedClient
	logger  watermill.LoggerAdapter
	mu      sync.Mutex
	subs    []*redis.PubSub
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// init 注册 Redis 工厂.
func init() {
	RegisterFactory(configs.MQTypeRedis, redisFactory)
}

// redisFactory 创建 Redis Publisher & Subscriber.
func redisFactory(
	ctx context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}

	shared := &sharedClient{Client: rdb}

	return newRedisPublisher(shared), newRedisSubscriber(shared, logger), nil
}

// newRedisPublisher 创建 Publisher.
func newRedisPublisher(client *sharedClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// newRedisSubscriber 创建 Subscriber.
func newRedisSubscriber(client *sharedClient, logger watermill.LoggerAdapter) *RedisSubscriber {
	return &RedisSubscriber{client: client, logger: logger, closeCh: make(chan struct{})}
}

// Publish 实现 Publisher 接口.
func (p *RedisPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		data, err := sonic.Marshal(redisFrame{UUID: msg.UUID, Metadata: msg.Metadata, Payload: msg.Payload})
		if err != nil {
			return fmt.Errorf("encode message %s: %w", msg.UUID, err)
		}

		if err := p.client.Publish(msg.Context(), topic, data).Err(); err != nil {
			return err
		}
	}

	return nil
}

// Close 实现 Publisher 接口.
func (p *RedisPublisher) Close() error {
	return p.client.close()
}

// Subscribe 实现 Subscriber 接口，下一条消息在上一条 Ack 或 Nack 之后投递.
func (s *RedisSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSubscriberClosed
	}

	ps := s.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()

		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	s.subs = append(s.subs, ps)
	out := make(chan *message.Message, DefaultChannelBufferSize)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(out)

		s.consume(ctx, topic, ps.Channel(), out)
	}()

	return out, nil
}

func (s *RedisSubscriber) consume(ctx context.Context, topic string, in <-chan *redis.Message, out chan<- *message.Message) {
	logger := s.logger.With(watermill.LogFields{"topic": topic})

	for {
		var raw *redis.Message

		select {
		case <-s.closeCh:
			return
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}

			raw = m
		}

		var frame redisFrame
		if err := sonic.Unmarshal([]byte(raw.Payload), &frame); err != nil {
			logger.Error("drop undecodable message", err, nil)

			continue
		}

		msg := message.NewMessage(frame.UUID, frame.Payload)
		for k, v := range frame.Metadata {
			msg.Metadata.Set(k, v)
		}

		msgCtx, cancel := context.WithCancel(ctx)
		msg.SetContext(msgCtx)

		select {
		case out <- msg:
		case <-s.closeCh:
			cancel()

			return
		case <-ctx.Done():
			cancel()

			return
		}

		select {
		case <-msg.Acked():
		case <-msg.Nacked():
			// Pub/Sub 不支持重投.
			logger.Debug("message nacked", watermill.LogFields{"uuid": msg.UUID})
		case <-s.closeCh:
		case <-ctx.Done():
		}

		cancel()
	}
}

// Close 实现 Subscriber 接口.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	close(s.closeCh)

	var errs []error
	for _, ps := range s.subs {
		errs = append(errs, ps.Close())
	}

	s.mu.Unlock()
	s.wg.Wait()

	return errors.Join(append(errs, s.client.close())...)
}
