// Package worker runs the event-driven side of the system: it consumes the
// realtime provider's queue events from the shared stream and turns presence
// changes and client messages on room control channels into game
// transitions.
package worker

import (
	"context"
	"time"

	"github.com/intagaming/tic-tac-toe-worker-node/game"
	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	"github.com/intagaming/tic-tac-toe-worker-node/transport"
	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
)

// Worker consumes queue events and applies them to the game engine. Events
// are handled one at a time; ordering between events of the same room is
// preserved within one consumer, and concurrency comes from running more
// worker instances against the same consumer group.
type Worker struct {
	logger   logging.Logger
	consumer transport.EventConsumer
	kb       *redisutil.KeyBuilder
	engine   *game.Engine
}

// New creates a worker.
func New(logger logging.Logger, consumer transport.EventConsumer, kb *redisutil.KeyBuilder, engine *game.Engine) *Worker {
	return &Worker{
		logger:   logging.ForComponent(logger, logging.ComponentWorker),
		consumer: consumer,
		kb:       kb,
		engine:   engine,
	}
}

// Run consumes events until the context is cancelled or the consumer's
// channel closes. Handled and unusable events are acknowledged; an event
// whose transition hit a transient Redis error is left pending so the
// claim cycle redelivers it.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker starting")

	for msg := range w.consumer.Consume(ctx) {
		start := time.Now()
		ack := w.handle(ctx, msg)
		handleDurationSeconds.Observe(time.Since(start).Seconds())

		if !ack {
			continue
		}
		if err := w.consumer.Ack(ctx, msg.ID); err != nil {
			w.logger.Error().Err(err).
				Str(logging.FieldMessageID, msg.ID).
				Msg("failed to acknowledge event")
		}
	}

	w.logger.Info().Msg("worker stopping")
	return ctx.Err()
}

// handle applies one queue event and reports whether it should be
// acknowledged. Malformed or irrelevant events are acked so they never
// clog the pending list; only a transiently failed transition withholds
// the ack.
func (w *Worker) handle(ctx context.Context, msg transport.StreamMessage) bool {
	logger := w.logger.With().Str(logging.FieldMessageID, msg.ID).Logger()

	env, err := transport.DecodeEnvelope(msg.Payload)
	if err != nil {
		logger.Warn().Err(err).Msg("dropping malformed event")
		eventsDroppedTotal.WithLabelValues("malformed").Inc()
		return true
	}

	if !w.kb.IsControlChannel(env.Channel) {
		logger.Debug().Str(logging.FieldChannel, env.Channel).Msg("ignoring event for foreign channel")
		eventsDroppedTotal.WithLabelValues("foreign_channel").Inc()
		return true
	}
	roomID := w.kb.RoomIDFromControlChannel(env.Channel)

	err = logging.RecoverWithLogger(logger, logging.ComponentWorker, "handle_event", func() error {
		switch env.Source {
		case transport.SourcePresence:
			return w.handlePresence(ctx, roomID, env.Presence)
		case transport.SourceMessage:
			return w.handleMessages(ctx, roomID, env.Messages)
		}
		return nil
	})
	if err != nil {
		if redisutil.IsTransient(err) {
			logger.Error().Err(err).
				Str(logging.FieldRoom, roomID).
				Msg("event transition failed, leaving pending for redelivery")
			return false
		}
		// A deterministic failure would fail again on every redelivery and
		// clog the pending list, so the event is dropped instead.
		logger.Error().Err(err).
			Str(logging.FieldRoom, roomID).
			Msg("event transition failed permanently, dropping")
		eventsDroppedTotal.WithLabelValues("failed").Inc()
		return true
	}

	eventsHandledTotal.WithLabelValues(env.Source).Inc()
	return true
}

func (w *Worker) handlePresence(ctx context.Context, roomID string, entries []transport.PresenceEntry) error {
	for _, entry := range entries {
		switch entry.Action {
		case transport.PresenceEnter:
			if err := w.engine.HandleEnter(ctx, roomID, entry.ClientID); err != nil {
				return err
			}
		case transport.PresenceLeave:
			if err := w.engine.HandleLeave(ctx, roomID, entry.ClientID); err != nil {
				return err
			}
		default:
			// Updates and snapshots carry no transition.
			w.logger.Debug().
				Str(logging.FieldRoom, roomID).
				Str(logging.FieldClient, entry.ClientID).
				Int(logging.FieldAction, entry.Action).
				Msg("ignoring presence action")
		}
	}
	return nil
}

func (w *Worker) handleMessages(ctx context.Context, roomID string, entries []transport.MessageEntry) error {
	for _, entry := range entries {
		action, ok := room.ParseAction(entry.Name)
		if !ok {
			w.logger.Debug().
				Str(logging.FieldRoom, roomID).
				Str(logging.FieldAction, entry.Name).
				Msg("ignoring unknown action")
			eventsDroppedTotal.WithLabelValues("unknown_action").Inc()
			continue
		}
		if err := w.engine.HandleAction(ctx, roomID, entry.ClientID, action, entry.Data); err != nil {
			return err
		}
	}
	return nil
}
