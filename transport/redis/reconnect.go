package redis

import (
	"context"
	"time"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
)

const (
	reconnectBaseDelay     = 1 * time.Second
	reconnectMaxDelay      = 30 * time.Second
	reconnectBackoffFactor = 2
)

// ReconnectionLoop provides exponential backoff reconnection logic for
// long-lived Redis operations (stream consumption, pub/sub subscriptions).
//
// Usage:
//
//	loop := NewReconnectionLoop(logger, "event_consumer",
//	    func(ctx context.Context) error {
//	        // Test connection health before entering the main loop
//	        return redisClient.Ping(ctx).Err()
//	    },
//	    func(ctx context.Context) error {
//	        // Main operation loop; return an error to trigger reconnection
//	        return runMainLoop(ctx)
//	    },
//	)
//	loop.Run(ctx)
type ReconnectionLoop struct {
	logger        logging.Logger
	componentName string
	connectFn     func(context.Context) error
	runFn         func(context.Context) error
}

// NewReconnectionLoop creates a new reconnection loop.
func NewReconnectionLoop(
	logger logging.Logger,
	component string,
	connectFn func(context.Context) error,
	runFn func(context.Context) error,
) *ReconnectionLoop {
	return &ReconnectionLoop{
		logger:        logger,
		componentName: component,
		connectFn:     connectFn,
		runFn:         runFn,
	}
}

// Run executes the reconnection loop with exponential backoff
// (1s → 2s → 4s → max 30s). It blocks until the context is cancelled.
func (r *ReconnectionLoop) Run(ctx context.Context) {
	reconnectDelay := reconnectBaseDelay

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug().
				Str(logging.FieldComponent, r.componentName).
				Msg("reconnection loop shutting down")
			return
		default:
		}

		redisReconnectionAttempts.WithLabelValues(r.componentName).Inc()

		if err := r.connectFn(ctx); err != nil {
			r.logger.Warn().
				Err(err).
				Str(logging.FieldComponent, r.componentName).
				Dur("retry_in", reconnectDelay).
				Msgf("%s: connection failed, will retry", r.componentName)

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
				reconnectDelay = increaseBackoff(reconnectDelay)
				continue
			}
		}

		reconnectDelay = reconnectBaseDelay
		redisReconnectionSuccess.WithLabelValues(r.componentName).Inc()

		r.logger.Info().
			Str(logging.FieldComponent, r.componentName).
			Msgf("%s: connection established", r.componentName)

		err := r.runFn(ctx)

		select {
		case <-ctx.Done():
			r.logger.Debug().
				Str(logging.FieldComponent, r.componentName).
				Msg("shutting down gracefully")
			return
		default:
			if err != nil {
				r.logger.Warn().
					Err(err).
					Str(logging.FieldComponent, r.componentName).
					Msgf("%s: disconnected, reconnecting...", r.componentName)
			}
		}
	}
}

// increaseBackoff doubles the delay up to the maximum.
func increaseBackoff(delay time.Duration) time.Duration {
	delay *= reconnectBackoffFactor
	if delay > reconnectMaxDelay {
		delay = reconnectMaxDelay
	}
	return delay
}
