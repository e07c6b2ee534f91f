package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/transport"
)

var _ transport.EventPublisher = (*StreamsPublisher)(nil)

// StreamsPublisher implements transport.EventPublisher using the events
// Redis Stream. In production the realtime provider's queue rule feeds the
// stream; this publisher exists for the debug tooling and tests to inject
// events through the same path.
type StreamsPublisher struct {
	logger logging.Logger
	client redis.UniversalClient
	stream string

	// maxLen caps the stream length (approximate trim). 0 disables trimming.
	maxLen int64

	mu     sync.RWMutex
	closed bool
}

// NewStreamsPublisher creates a new events stream publisher.
func NewStreamsPublisher(
	logger logging.Logger,
	client redis.UniversalClient,
	stream string,
	maxLen int64,
) *StreamsPublisher {
	return &StreamsPublisher{
		logger: logging.ForComponent(logger, "event_publisher"),
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Publish appends one raw event payload to the stream.
func (p *StreamsPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	if len(payload) == 0 {
		return fmt.Errorf("payload is empty")
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{payloadField: string(payload)},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		publishErrorsTotal.Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}

	publishedTotal.Inc()
	return nil
}

// Close gracefully shuts down the publisher.
func (p *StreamsPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
