package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/sdkcore/pkg/metrics"
	"github.com/yeisme/sdkcore/pkg/queue"
)

func TestEnvelopeEncoding(t *testing.T) {
	msg, err := queue.NewWatermillMessage("sdk.test", map[string]int{"n": 1}, queue.WithProducer("unit"))
	require.NoError(t, err)

	assert.Len(t, msg.UUID, 26)
	assert.Equal(t, "sdk.test", msg.Metadata.Get("topic"))
	assert.Equal(t, "unit", msg.Metadata.Get("producer"))
	assert.Equal(t, queue.PayloadVersionV1, msg.Metadata.Get("version"))

	env, err := queue.ParseWatermillMessage[map[string]int](msg)
	require.NoError(t, err)
	assert.Equal(t, "sdk.test", env.Header.Topic)
	assert.Equal(t, "unit", env.Header.Producer)
	assert.Equal(t, 1, env.Payload["n"])
}

func TestMessageIDsAreOrdered(t *testing.T) {
	now := time.Now()

	prev := queue.NewMessageID(now)
	for range 100 {
		next := queue.NewMessageID(now)
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestMetricsPublisherDeliversRecord(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := pubSub.Subscribe(ctx, queue.TopicMetricsExecution)
	require.NoError(t, err)

	traceID := trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	spanCtx := trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
	}))

	p := queue.NewMetricsPublisher(pubSub, "", queue.WithProducer("sdkcore"))
	assert.Equal(t, queue.TopicMetricsExecution, p.Topic())

	rec := metrics.Record{
		ExecutionID: "exec-1",
		Service:     "S3",
		Operation:   "PutObject",
		Attempts:    2,
		StatusCode:  200,
		Samples:     []metrics.Sample{{Name: "RetryCount", Kind: metrics.KindCounter, Count: 1}},
	}
	require.NoError(t, p.Publish(spanCtx, rec))

	select {
	case msg := <-ch:
		env, err := queue.ParseExecutionRecord(msg)
		require.NoError(t, err)
		msg.Ack()

		assert.Equal(t, traceID.String(), env.Header.TraceID)
		assert.Equal(t, "sdkcore", env.Header.Producer)
		assert.Equal(t, "exec-1", env.Payload.ExecutionID)
		assert.Equal(t, 2, env.Payload.Attempts)

		s, ok := env.Payload.Sample("RetryCount")
		require.True(t, ok)
		assert.Equal(t, metrics.KindCounter, s.Kind)
		assert.Equal(t, uint64(1), s.Count)
	case <-ctx.Done():
		t.Fatal("record not delivered")
	}
}

func TestMetricsPublisherWithoutTransport(t *testing.T) {
	var p *queue.MetricsPublisher

	assert.ErrorIs(t, p.Publish(context.Background(), metrics.Record{}), queue.ErrNilPublisher)
}
