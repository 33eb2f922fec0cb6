package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/sdkcore/pkg/metrics"
)

// ErrNilPublisher 未提供 watermill 发布器.
var ErrNilPublisher = errors.New("queue: nil publisher")

// PublishExecutionRecord 发布一条执行指标记录.
func PublishExecutionRecord(pub message.Publisher, topic string, rec metrics.Record, opts ...HeaderOption) error {
	msg, err := NewWatermillMessage(topic, rec, opts...)
	if err != nil {
		return fmt.Errorf("encode execution record: %w", err)
	}

	return pub.Publish(topic, msg)
}

// ParseExecutionRecord 将 Watermill 消息解析为强类型 Envelope.
func ParseExecutionRecord(msg *message.Message) (Message[metrics.Record], error) {
	return ParseWatermillMessage[metrics.Record](msg)
}

// MetricsPublisher 通过 watermill 发布执行记录，实现 metrics.Publisher.
type MetricsPublisher struct {
	pub   message.Publisher
	topic string
	opts  []HeaderOption
}

var _ metrics.Publisher = (*MetricsPublisher)(nil)

// NewMetricsPublisher 创建发布器，topic 为空时使用 TopicMetricsExecution.
func NewMetricsPublisher(pub message.Publisher, topic string, opts ...HeaderOption) *MetricsPublisher {
	if topic == "" {
		topic = TopicMetricsExecution
	}

	return &MetricsPublisher{pub: pub, topic: topic, opts: opts}
}

// Topic 返回发布主题.
func (p *MetricsPublisher) Topic() string { return p.topic }

// Publish 实现 metrics.Publisher，context 中存在 span 时写入 TraceID.
func (p *MetricsPublisher) Publish(ctx context.Context, rec metrics.Record) error {
	if p == nil || p.pub == nil {
		return ErrNilPublisher
	}

	opts := p.opts
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts[:len(opts):len(opts)], WithTraceID(sc.TraceID().String()))
	}

	return PublishExecutionRecord(p.pub, p.topic, rec, opts...)
}
