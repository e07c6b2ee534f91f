// Package game implements the session state machine over room records. The
// transitions here are driven from two sides: the event worker applies
// action transitions (join, leave, start, move) and the ticker applies the
// time transition (Tick). Both sides serialize on the same per-room lease
// lock before any read-modify-write cycle.
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/intagaming/tic-tac-toe-worker-node/lock"
	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/notify"
	"github.com/intagaming/tic-tac-toe-worker-node/queue"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	"github.com/intagaming/tic-tac-toe-worker-node/store"
)

// Options contains the state machine's timing configuration.
type Options struct {
	// RoomTimeout is how long an abandoned room record lingers before
	// expiring. Default: 60s
	RoomTimeout time.Duration

	// ReconnectWiggle is subtracted from RoomTimeout for the client
	// binding's grace period, so a client reconnecting right at the
	// deadline doesn't race the room's own expiry. Default: 10s
	ReconnectWiggle time.Duration

	// TurnTime is the per-turn deadline set when a game starts.
	// Default: 30s
	TurnTime time.Duration

	// FinishingCountdown is how long a decided or abandoned game lingers in
	// the finishing state before the room resets. Default: 5s
	FinishingCountdown time.Duration

	// ActionLockLease is the lease duration for action-driven transitions.
	// Default: 3s
	ActionLockLease time.Duration

	// ActionLockAttempts is how many times an action transition retries
	// lock acquisition before dropping the event. Default: 3
	ActionLockAttempts int

	// ActionLockRetryDelay is the wait between lock attempts.
	// Default: 100ms
	ActionLockRetryDelay time.Duration
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		RoomTimeout:          60 * time.Second,
		ReconnectWiggle:      10 * time.Second,
		TurnTime:             30 * time.Second,
		FinishingCountdown:   5 * time.Second,
		ActionLockLease:      3 * time.Second,
		ActionLockAttempts:   3,
		ActionLockRetryDelay: 100 * time.Millisecond,
	}
}

// Engine applies state-machine transitions to rooms. Safe for concurrent
// use; all shared state lives in Redis behind the store, queue and lock.
type Engine struct {
	logger    logging.Logger
	rooms     *store.Store
	dueQueue  *queue.DueQueue
	locks     *lock.Locker
	announcer notify.Announcer
	opts      Options

	// now is swapped in tests to drive deadlines deterministically.
	now func() time.Time
}

// NewEngine creates a game engine.
func NewEngine(
	logger logging.Logger,
	rooms *store.Store,
	dueQueue *queue.DueQueue,
	locks *lock.Locker,
	announcer notify.Announcer,
	opts Options,
) *Engine {
	return &Engine{
		logger:    logging.ForComponent(logger, logging.ComponentGameEngine),
		rooms:     rooms,
		dueQueue:  dueQueue,
		locks:     locks,
		announcer: announcer,
		opts:      opts,
		now:       time.Now,
	}
}

// withRoomLock runs fn while holding the room's lease lock. Action-driven
// and time-driven transitions share this lock, so the two drivers never
// interleave read-modify-write cycles on the same room.
func (e *Engine) withRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context) error) error {
	lease, err := e.locks.AcquireRoomWithRetry(ctx, roomID, e.opts.ActionLockLease, e.opts.ActionLockAttempts, e.opts.ActionLockRetryDelay)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			// Contention beyond the retry budget. Drop the event; presence
			// state converges on the next event for this room.
			e.logger.Warn().
				Str(logging.FieldRoom, roomID).
				Msg("room busy, dropping action")
			return nil
		}
		return err
	}
	defer func() {
		if releaseErr := lease.Release(ctx); releaseErr != nil {
			e.logger.Warn().Err(releaseErr).Str(logging.FieldRoom, roomID).Msg("failed to release room lock")
		}
	}()

	return fn(ctx)
}

// loadRoom fetches the room or logs-and-skips when it is gone. A nil room
// with nil error means the caller should drop the event.
func (e *Engine) loadRoom(ctx context.Context, roomID string) (*room.Room, error) {
	r, err := e.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			e.logger.Info().Str(logging.FieldRoom, roomID).Msg("room not found")
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

// announceRoomState broadcasts the full room record on its server channel.
func (e *Engine) announceRoomState(ctx context.Context, r *room.Room, event room.Announcer) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode room %s: %w", r.ID, err)
	}
	e.announcer.Announce(ctx, r.ID, event, string(data))
	return nil
}
