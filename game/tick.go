package game

import (
	"context"
	"errors"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	"github.com/intagaming/tic-tac-toe-worker-node/store"
)

// Tick applies the time-driven transition to a room: it checks the room's
// deadlines against the clock and advances state when one has passed. The
// caller holds the room's tick lock and owns the room's due-queue entry;
// Tick itself never touches the queue.
//
// The first return value reports whether the room needs further ticking.
// Returning false tells the caller to drop the room from the queue.
//
// Tick is idempotent for a given room state and clock reading, so a tick
// replayed after a crash between the state write and the queue update is
// harmless.
func (e *Engine) Tick(ctx context.Context, roomID string) (bool, error) {
	r, err := e.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			// Expired or deleted since it was scheduled. Nothing left to
			// watch.
			e.logger.Info().Str(logging.FieldRoom, roomID).Msg("ticked room no longer exists")
			return false, nil
		}
		return false, err
	}

	now := e.now().Unix()

	if r.Data.GameEndsAt != room.NoDeadline {
		if now < r.Data.GameEndsAt {
			// Countdown still running.
			return true, nil
		}

		// The finishing countdown has elapsed; hand the room back to the
		// lobby with its occupants intact. The announcement carries no
		// payload, clients re-read the room record.
		r.ResetToWaiting()
		if err := e.rooms.PutRoom(ctx, r, store.KeepTTL()); err != nil {
			return true, err
		}
		e.announcer.Announce(ctx, roomID, room.AnnouncerGameFinished, "")
		e.logger.Info().Str(logging.FieldRoom, roomID).Msg("game finished, room reset")
		return false, nil
	}

	// TODO: forfeit the turn when TurnEndsAt passes instead of waiting for
	// the player to move. Until then the turn deadline is advisory and the
	// room just keeps ticking.
	return true, nil
}
