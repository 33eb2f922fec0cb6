package mq_test

import (
	"bytes"
	"context"
	"slices"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/sdkcore/pkg/configs"
	"github.com/yeisme/sdkcore/pkg/internal/storage/mq"
	"github.com/yeisme/sdkcore/pkg/metrics"
	"github.com/yeisme/sdkcore/pkg/queue"
)

const memoryType configs.MQType = "memory"

func init() {
	mq.RegisterFactory(memoryType, func(_ context.Context, _ *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
		ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, logger)

		return ps, ps, nil
	})
}

func TestTypesIncludesBuiltins(t *testing.T) {
	types := mq.Types()

	assert.Contains(t, types, configs.MQTypeNATS)
	assert.Contains(t, types, configs.MQTypeRedis)
	assert.True(t, slices.IsSorted(types))
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := mq.New(context.Background(), &configs.MQConfig{Type: "kafka"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported mq type")
}

func TestClientRoundTripsExecutionRecords(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reg := prometheus.NewRegistry()

	client, err := mq.New(ctx, &configs.MQConfig{Type: memoryType, Topic: queue.TopicMetricsExecution}, zerolog.Nop(),
		mq.WithPrometheus(reg), mq.WithMetricsNamespace("sdk"))
	require.NoError(t, err)

	defer client.Close()

	ch, err := client.Subscribe(ctx, queue.TopicMetricsExecution)
	require.NoError(t, err)

	pub := queue.NewMetricsPublisher(client.Publisher(), queue.TopicMetricsExecution)
	require.NoError(t, pub.Publish(ctx, metrics.Record{ExecutionID: "exec-42", Service: "S3", Operation: "GetObject"}))

	select {
	case msg := <-ch:
		env, err := queue.ParseExecutionRecord(msg)
		require.NoError(t, err)
		msg.Ack()

		assert.Equal(t, "exec-42", env.Payload.ExecutionID)
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestUninitializedClient(t *testing.T) {
	var c *mq.Client

	require.ErrorIs(t, c.Publish("topic"), mq.ErrNotInitialized)

	_, err := mq.NewClient(nil, nil).Subscribe(context.Background(), "topic")
	require.ErrorIs(t, err, mq.ErrNotInitialized)
}

func TestLoggerAdapterWritesFields(t *testing.T) {
	var buf bytes.Buffer

	adapter := mq.NewLoggerAdapter(zerolog.New(&buf)).With(watermill.LogFields{"topic": "t1"})
	adapter.Info("subscribed", watermill.LogFields{"consumer": "c1"})

	out := buf.String()
	assert.Contains(t, out, `"component":"mq"`)
	assert.Contains(t, out, `"topic":"t1"`)
	assert.Contains(t, out, `"consumer":"c1"`)
	assert.Contains(t, out, `"message":"subscribed"`)
}
