package transport

import (
	"context"
)

// EventConsumer consumes realtime queue events from the transport layer.
// The worker uses this interface to receive presence and message events
// forwarded from the realtime provider.
//
// Implementations must provide at-least-once delivery within the consumer
// group; the worker acknowledges each event only after its transition has
// been applied.
type EventConsumer interface {
	// Consume returns a channel that yields raw queue events.
	// Events are not acknowledged until Ack is called.
	//
	// The channel is closed when the context is cancelled, Close is called,
	// or an unrecoverable error occurs.
	Consume(ctx context.Context) <-chan StreamMessage

	// Ack acknowledges that an event has been fully handled. The event will
	// not be redelivered to any consumer in the group.
	Ack(ctx context.Context, messageID string) error

	// Pending returns the number of delivered but unacknowledged events.
	// Useful for monitoring consumer health and backpressure.
	Pending(ctx context.Context) (int64, error)

	// Close gracefully shuts down the consumer. Unacknowledged events are
	// redelivered to other consumers in the group.
	Close() error
}

// EventPublisher publishes raw queue events to the transport layer.
// Used by the debug tooling and tests to inject events the way the realtime
// provider's queue rule would.
type EventPublisher interface {
	// Publish appends one raw event payload to the stream.
	Publish(ctx context.Context, payload []byte) error

	// Close gracefully shuts down the publisher.
	Close() error
}

// ConsumerConfig contains configuration for an EventConsumer.
type ConsumerConfig struct {
	// Stream is the Redis Stream key events are consumed from.
	Stream string

	// ConsumerGroup is the consumer group name. All worker instances share
	// the same group so each event is handled by exactly one of them.
	ConsumerGroup string

	// ConsumerName is the unique name of this consumer within the group.
	// Typically hostname plus a UUID.
	ConsumerName string

	// BatchSize is the maximum number of events fetched per read.
	BatchSize int64

	// ClaimIdleTimeout is how long (in milliseconds) an event may sit
	// unacknowledged with a crashed consumer before peers claim it.
	ClaimIdleTimeout int64
}
