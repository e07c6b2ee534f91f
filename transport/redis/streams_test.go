//go:build test

package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/transport"
	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
)

func newStreamsFixture(t *testing.T) (*redisutil.Client, transport.ConsumerConfig) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redisutil.NewClient(context.Background(), redisutil.ClientConfig{
		URL: fmt.Sprintf("redis://%s", mr.Addr()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, transport.ConsumerConfig{
		Stream:        client.KB().EventsStreamKey(),
		ConsumerGroup: client.KB().ConsumerGroup(),
		ConsumerName:  "test-consumer",
		BatchSize:     10,
		// Keep the claim cycle out of the way; these tests exercise the
		// happy path only.
		ClaimIdleTimeout: int64(time.Hour / time.Millisecond),
	}
}

func TestStreamsPublishConsumeAck(t *testing.T) {
	client, consumerCfg := newStreamsFixture(t)
	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := redisutil.NewStreamsPublisher(logger, client, consumerCfg.Stream, 0)
	consumer, err := redisutil.NewStreamsConsumer(logger, client, consumerCfg)
	require.NoError(t, err)

	ch := consumer.Consume(ctx)
	defer func() { require.NoError(t, consumer.Close()) }()

	require.NoError(t, publisher.Publish(ctx, []byte(`{"source":"test"}`)))

	select {
	case msg := <-ch:
		require.JSONEq(t, `{"source":"test"}`, string(msg.Payload))
		require.NoError(t, consumer.Ack(ctx, msg.ID))
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}

	pending, err := consumer.Pending(ctx)
	require.NoError(t, err)
	require.Zero(t, pending, "acked event must leave the pending list")
}

func TestStreamsDeliveryIsOrdered(t *testing.T) {
	client, consumerCfg := newStreamsFixture(t)
	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := redisutil.NewStreamsPublisher(logger, client, consumerCfg.Stream, 0)
	for i := 0; i < 5; i++ {
		require.NoError(t, publisher.Publish(ctx, []byte(fmt.Sprintf(`{"n":%d}`, i))))
	}

	consumer, err := redisutil.NewStreamsConsumer(logger, client, consumerCfg)
	require.NoError(t, err)
	ch := consumer.Consume(ctx)
	defer func() { require.NoError(t, consumer.Close()) }()

	for i := 0; i < 5; i++ {
		select {
		case msg := <-ch:
			require.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(msg.Payload))
			require.NoError(t, consumer.Ack(ctx, msg.ID))
		case <-time.After(5 * time.Second):
			t.Fatalf("event %d was not delivered", i)
		}
	}
}

func TestPublisherRejectsAfterClose(t *testing.T) {
	client, consumerCfg := newStreamsFixture(t)
	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())

	publisher := redisutil.NewStreamsPublisher(logger, client, consumerCfg.Stream, 0)
	require.NoError(t, publisher.Close())
	require.Error(t, publisher.Publish(context.Background(), []byte("late")))
}
