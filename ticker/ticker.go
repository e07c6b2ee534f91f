// Package ticker runs the time-driven side of the scheduler: a loop that
// watches the shared due-timer queue and applies the tick transition to
// rooms whose deadline has passed. Many ticker loops, in one process or
// across instances, share the queue safely; the optimistic score CAS plus
// the per-room lease lock ensure every due entry is consumed exactly once.
package ticker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/intagaming/tic-tac-toe-worker-node/lock"
	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/queue"
)

// Options contains the ticker's timing configuration.
type Options struct {
	// TickTime is the cadence between ticks of one room. The loop itself
	// wakes every half tick so a due room waits at most half a cadence.
	// Default: 2s
	TickTime time.Duration

	// IdleHalfTicksTrigger bounds the consecutive workless passes the loop
	// tolerates at full cadence; the pass after the trigger flips it into
	// idle mode. Default: 10
	IdleHalfTicksTrigger int

	// IdleInterval is the wake cadence while idle. Default: 5s
	IdleInterval time.Duration

	// PushbackTime is how far a claimed entry's score is pushed into the
	// future before the tick work starts. It bounds the delay before
	// another instance retries a room whose ticker died mid-tick, so it
	// must exceed the longest plausible tick. Default: 6s
	PushbackTime time.Duration

	// LockLease is the lease on the per-room tick lock. Default: 5s
	LockLease time.Duration
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		TickTime:             2 * time.Second,
		IdleHalfTicksTrigger: 10,
		IdleInterval:         5 * time.Second,
		PushbackTime:         6 * time.Second,
		LockLease:            5 * time.Second,
	}
}

// TickFunc applies the time transition to one room and reports whether the
// room needs further ticking. The ticker holds the room's lease lock for
// the duration of the call.
type TickFunc func(ctx context.Context, roomID string) (bool, error)

// Ticker is one scheduling loop. Not safe for concurrent use; run multiple
// Tickers (see Group) for parallelism.
type Ticker struct {
	logger   logging.Logger
	dueQueue *queue.DueQueue
	locks    *lock.Locker
	tick     TickFunc
	opts     Options

	// Loop state. Owned by the goroutine running Run.
	idle          bool
	idleHalfTicks int
	sleepUntil    time.Time

	now func() time.Time
}

// New creates a ticker loop.
func New(logger logging.Logger, dueQueue *queue.DueQueue, locks *lock.Locker, tick TickFunc, opts Options) *Ticker {
	return &Ticker{
		logger:   logging.ForComponent(logger, logging.ComponentTicker),
		dueQueue: dueQueue,
		locks:    locks,
		tick:     tick,
		opts:     opts,
		now:      time.Now,
	}
}

func (t *Ticker) halfTick() time.Duration {
	return t.opts.TickTime / 2
}

// Run drives scheduling passes until the context is cancelled. Errors from
// a pass are logged and the loop carries on; the shared queue state is
// always consistent because every mutation inside a pass is atomic on the
// Redis side.
func (t *Ticker) Run(ctx context.Context) error {
	t.sleepUntil = t.now()
	t.logger.Info().
		Dur("tick_time", t.opts.TickTime).
		Dur("idle_interval", t.opts.IdleInterval).
		Msg("ticker loop starting")

	for {
		if err := t.sleep(ctx); err != nil {
			t.logger.Info().Msg("ticker loop stopping")
			return err
		}
		if err := t.TryTick(ctx); err != nil {
			t.logger.Error().Err(err).Msg("scheduling pass failed")
			// Next wake retries; the pass may have died before updating
			// sleepUntil, so make sure we don't spin.
			if wake := t.now().Add(t.halfTick()); t.sleepUntil.Before(wake) {
				t.sleepUntil = wake
			}
		}
	}
}

// sleep blocks until sleepUntil or context cancellation. A deadline already
// in the past returns immediately, which is how the loop catches up after a
// long pass.
func (t *Ticker) sleep(ctx context.Context) error {
	d := t.sleepUntil.Sub(t.now())
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		latePassesTotal.Inc()
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TryTick performs one scheduling pass: it drains every due entry at the
// head of the queue, ticking each claimed room, and then decides when to
// wake next. The pass ends when the queue head is in the future or the
// queue is empty.
func (t *Ticker) TryTick(ctx context.Context) error {
	passStart := t.now()
	defer func() {
		passDurationSeconds.Observe(t.now().Sub(passStart).Seconds())
	}()

	for {
		roomID, score, ok, err := t.dueQueue.PeekMin(ctx)
		if err != nil {
			return err
		}
		if !ok {
			t.idleHalfTick(passStart)
			return nil
		}

		due := time.UnixMilli(score)
		if due.After(passStart) {
			t.waitForHead(passStart, due)
			return nil
		}

		// Something is actually due: this pass does work.
		t.idleOff(passStart)

		again, err := t.tickRoom(ctx, roomID, score, due, passStart)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

// tickRoom claims one due room under its lease lock, runs the tick
// transition and settles the room's queue entry. It reports whether the
// pass should keep draining the queue: false ends the pass with the entry
// untouched, so the next wake re-observes the same head.
func (t *Ticker) tickRoom(ctx context.Context, roomID string, score int64, due, passStart time.Time) (bool, error) {
	logger := t.logger.With().Str(logging.FieldRoom, roomID).Logger()

	lease, err := t.locks.AcquireRoom(ctx, roomID, t.opts.LockLease)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			// An action transition holds the room. Abandon it for this
			// wake; its entry keeps its score and the next wake retries.
			lockContentionTotal.Inc()
			logger.Debug().Msg("room locked, abandoning until next wake")
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire tick lock for room %s: %w", roomID, err)
	}
	defer func() {
		if releaseErr := lease.Release(ctx); releaseErr != nil {
			logger.Warn().Err(releaseErr).Msg("failed to release tick lock")
		}
	}()

	// Re-validate under the lock, pushing the score into the future in the
	// same atomic step. If we die mid-tick the entry resurfaces after the
	// pushback and another instance picks the room up.
	res, err := t.dueQueue.ConditionalReschedule(ctx, roomID, score, passStart.Add(t.opts.PushbackTime))
	if err != nil {
		return false, err
	}
	if res != queue.RescheduleOK {
		// Another instance handled the same head between our peek and the
		// lock. Its pushback moved the entry; peek again.
		staleClaimsTotal.Inc()
		logger.Debug().
			Int64(logging.FieldScore, score).
			Msg("lost claim race, retrying pass")
		return true, nil
	}

	willTickMore, err := t.tick(ctx, roomID)
	if err != nil {
		logger.Error().Err(err).Msg("tick failed, room retries after pushback")
		return true, nil
	}
	ticksTotal.Inc()

	if !willTickMore {
		if err := t.dueQueue.Remove(ctx, roomID); err != nil {
			logger.Error().Err(err).Msg("failed to remove finished room from queue")
			return true, nil
		}
		roomsRemovedTotal.Inc()
		logger.Debug().Msg("room needs no more ticking")
		return true, nil
	}

	// Anchor the next tick to the deadline that fired, not to the wall
	// clock, so a room's cadence doesn't drift with scheduling jitter.
	next := due.Add(t.opts.TickTime)
	if err := t.dueQueue.Schedule(ctx, roomID, next); err != nil {
		logger.Error().Err(err).Msg("failed to reschedule room after tick")
		return true, nil
	}
	logger.Debug().
		Int64(logging.FieldDueAt, next.UnixMilli()).
		Msg("room ticked and rescheduled")
	return true, nil
}

// idleHalfTick records a workless pass. Once the count of consecutive
// workless passes exceeds the trigger, the loop slows to the idle cadence.
func (t *Ticker) idleHalfTick(passStart time.Time) {
	t.idleHalfTicks++
	if !t.idle && t.idleHalfTicks > t.opts.IdleHalfTicksTrigger {
		t.idle = true
		idleTickers.Inc()
		t.logger.Info().
			Int("workless_passes", t.idleHalfTicks).
			Msg("ticker going idle")
	}

	if t.idle {
		t.sleepUntil = passStart.Add(t.opts.IdleInterval)
	} else {
		t.sleepUntil = passStart.Add(t.halfTick())
	}
}

// waitForHead schedules the next wake for a queue head that is not due
// yet. A head due within the half-tick window is near-term work: it clears
// idle mode and the loop wakes exactly at its deadline. A farther head
// counts as a workless pass.
func (t *Ticker) waitForHead(passStart, due time.Time) {
	if due.Sub(passStart) <= t.halfTick() {
		t.idleOff(passStart)
		t.sleepUntil = due
		t.logger.Debug().
			Int64(logging.FieldSleepUntil, due.UnixMilli()).
			Msg("head due soon, waking at its deadline")
		return
	}
	t.idleHalfTick(passStart)
}

// idleOff records that the pass did work, resetting the idle state.
func (t *Ticker) idleOff(passStart time.Time) {
	if t.idle {
		t.idle = false
		idleTickers.Dec()
		t.logger.Info().Msg("ticker leaving idle mode")
	}
	t.idleHalfTicks = 0
	t.sleepUntil = passStart.Add(t.halfTick())
}
