package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/transport"
)

var _ transport.EventConsumer = (*StreamsConsumer)(nil)

// payloadField is the stream entry field carrying the raw event payload.
const payloadField = "payload"

// StreamsConsumer implements transport.EventConsumer using a Redis Stream
// with a consumer group. All worker instances join the same group, so each
// queue event is delivered to exactly one of them; unacknowledged events
// from a crashed worker are claimed by its peers after ClaimIdleTimeout.
//
// XREADGROUP blocks on a dedicated connection, so events are delivered with
// no polling latency.
type StreamsConsumer struct {
	logger logging.Logger
	client redis.UniversalClient
	config transport.ConsumerConfig

	msgCh chan transport.StreamMessage

	// Claiming rate limit (prevent excessive claiming when the stream is idle)
	lastClaimTime time.Time
	claimMu       sync.Mutex

	mu       sync.RWMutex
	closed   bool
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
}

// NewStreamsConsumer creates a new Redis Streams event consumer.
func NewStreamsConsumer(
	logger logging.Logger,
	client redis.UniversalClient,
	config transport.ConsumerConfig,
) (*StreamsConsumer, error) {
	if config.Stream == "" {
		return nil, fmt.Errorf("stream is required")
	}
	if config.ConsumerGroup == "" {
		return nil, fmt.Errorf("consumer group is required")
	}
	if config.ConsumerName == "" {
		return nil, fmt.Errorf("consumer name is required")
	}

	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.ClaimIdleTimeout <= 0 {
		config.ClaimIdleTimeout = 30000 // 30s before claiming from crashed consumers
	}

	return &StreamsConsumer{
		logger: logging.ForComponent(logger, logging.ComponentEventConsumer),
		client: client,
		config: config,
		msgCh:  make(chan transport.StreamMessage, config.BatchSize),
	}, nil
}

// Consume returns a channel that yields raw queue events.
func (c *StreamsConsumer) Consume(ctx context.Context) <-chan transport.StreamMessage {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(c.msgCh)
		return c.msgCh
	}

	ctx, c.cancelFn = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.consumeLoop(ctx)

	c.logger.Info().
		Str(logging.FieldStream, c.config.Stream).
		Str("consumer_group", c.config.ConsumerGroup).
		Str(logging.FieldConsumerName, c.config.ConsumerName).
		Msg("started consuming events")

	return c.msgCh
}

// ensureConsumerGroup creates the consumer group if it doesn't exist.
// XGroupCreateMkStream creates the stream as well when needed.
func (c *StreamsConsumer) ensureConsumerGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.config.Stream, c.config.ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group for %s: %w", c.config.Stream, err)
	}
	return nil
}

// consumeLoop is the main consumption loop with automatic reconnection.
func (c *StreamsConsumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.msgCh)

	reconnectLoop := NewReconnectionLoop(
		c.logger,
		"event_consumer",
		func(ctx context.Context) error {
			if err := c.client.Ping(ctx).Err(); err != nil {
				return err
			}
			return c.ensureConsumerGroup(ctx)
		},
		func(ctx context.Context) error {
			return c.readLoop(ctx)
		},
	)

	reconnectLoop.Run(ctx)
}

// readLoop reads events until disconnect or context cancellation.
func (c *StreamsConsumer) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Claim events stuck with crashed consumers before blocking again.
		c.claimIdleMessages(ctx)

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.config.ConsumerGroup,
			Consumer: c.config.ConsumerName,
			Streams:  []string{c.config.Stream, ">"},
			Count:    c.config.BatchSize,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				// Block timed out with no new events
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			consumeErrorsTotal.WithLabelValues("read").Inc()
			return fmt.Errorf("XREADGROUP failed: %w", err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if !c.deliver(ctx, msg) {
					return ctx.Err()
				}
			}
		}
	}
}

// deliver pushes one stream entry to the message channel. Returns false if
// the context was cancelled.
func (c *StreamsConsumer) deliver(ctx context.Context, msg redis.XMessage) bool {
	payload, ok := msg.Values[payloadField].(string)
	if !ok {
		// Malformed entry: ack and drop, there is nothing to retry.
		consumeErrorsTotal.WithLabelValues("malformed").Inc()
		c.logger.Warn().
			Str(logging.FieldMessageID, msg.ID).
			Msg("stream entry missing payload field, dropping")
		_ = c.Ack(ctx, msg.ID)
		return true
	}

	select {
	case c.msgCh <- transport.StreamMessage{ID: msg.ID, Payload: []byte(payload)}:
		consumedTotal.Inc()
		return true
	case <-ctx.Done():
		return false
	}
}

// claimIdleMessages claims events that have been pending with another
// consumer longer than ClaimIdleTimeout. Rate-limited to once per claim
// interval so an idle stream doesn't generate claim traffic.
func (c *StreamsConsumer) claimIdleMessages(ctx context.Context) {
	minIdle := time.Duration(c.config.ClaimIdleTimeout) * time.Millisecond

	c.claimMu.Lock()
	if time.Since(c.lastClaimTime) < minIdle {
		c.claimMu.Unlock()
		return
	}
	c.lastClaimTime = time.Now()
	c.claimMu.Unlock()

	claimed, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.config.Stream,
		Group:    c.config.ConsumerGroup,
		Consumer: c.config.ConsumerName,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    c.config.BatchSize,
	}).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("failed to claim idle events")
		}
		return
	}

	for _, msg := range claimed {
		if !c.deliver(ctx, msg) {
			return
		}
		claimedTotal.Inc()
	}
}

// Ack acknowledges that an event has been fully handled.
func (c *StreamsConsumer) Ack(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.config.Stream, c.config.ConsumerGroup, messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to ack message %s: %w", messageID, err)
	}
	ackedTotal.Inc()
	return nil
}

// Pending returns the number of delivered but unacknowledged events.
func (c *StreamsConsumer) Pending(ctx context.Context) (int64, error) {
	pending, err := c.client.XPending(ctx, c.config.Stream, c.config.ConsumerGroup).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query pending events: %w", err)
	}
	return pending.Count, nil
}

// Close gracefully shuts down the consumer.
func (c *StreamsConsumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancelFn := c.cancelFn
	c.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
	}
	c.wg.Wait()

	c.logger.Info().Msg("event consumer closed")
	return nil
}
