package game

import (
	"context"
	"fmt"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	"github.com/intagaming/tic-tac-toe-worker-node/store"
)

// HandleEnter applies a presence-enter on a room's control channel. A new
// client takes the first free seat (host, then guest); a returning occupant
// is treated as a reconnect. Either way the client's binding loses any
// pending grace-period TTL and the room's own expiry is cancelled.
func (e *Engine) HandleEnter(ctx context.Context, roomID, clientID string) error {
	return e.withRoomLock(ctx, roomID, func(ctx context.Context) error {
		r, err := e.loadRoom(ctx, roomID)
		if err != nil || r == nil {
			return err
		}

		logger := e.logger.With().
			Str(logging.FieldRoom, roomID).
			Str(logging.FieldClient, clientID).
			Logger()

		if _, occupied := r.SeatOf(clientID); occupied {
			logger.Info().Msg("client reconnected")
		} else if r.Host == nil {
			r.Host = &clientID
			logger.Info().Msg("client seated as host")
		} else if r.Guest == nil {
			r.Guest = &clientID
			logger.Info().Msg("client seated as guest")
		} else {
			// Both seats taken by other clients. The presence event is real
			// but this client has no business here; spectating is not a
			// thing yet.
			logger.Info().Msg("room is full, ignoring enter")
			return nil
		}

		// Someone is present again, so the room must not expire out from
		// under them.
		if err := e.rooms.PutRoom(ctx, r, store.ClearTTL()); err != nil {
			return err
		}
		if err := e.rooms.BindClient(ctx, clientID, roomID); err != nil {
			return err
		}

		return e.announceRoomState(ctx, r, room.AnnouncerRoomState)
	})
}

// HandleLeave applies a presence-leave. The client's binding gets a grace
// TTL so a quick reconnect keeps the seat, and the room is put on the
// expiration path when nobody connected remains.
func (e *Engine) HandleLeave(ctx context.Context, roomID, clientID string) error {
	return e.withRoomLock(ctx, roomID, func(ctx context.Context) error {
		grace := e.opts.RoomTimeout - e.opts.ReconnectWiggle
		if err := e.rooms.ExpireBinding(ctx, clientID, grace); err != nil {
			return err
		}

		e.logger.Info().
			Str(logging.FieldRoom, roomID).
			Str(logging.FieldClient, clientID).
			Dur("grace", grace).
			Msg("client disconnected")

		r, err := e.loadRoom(ctx, roomID)
		if err != nil || r == nil {
			return err
		}
		return e.expireRoomIfNecessary(ctx, r, clientID)
	})
}

// expireRoomIfNecessary puts the room record on a timeout unless the
// occupant other than leavingClientID is still connected, meaning bound to
// this room with no grace TTL running. The room key expiring is what
// ultimately garbage-collects abandoned sessions; everything referencing
// the room goes quiet once GetRoom starts returning not-found.
func (e *Engine) expireRoomIfNecessary(ctx context.Context, r *room.Room, leavingClientID string) error {
	other, ok := r.OtherOccupant(leavingClientID)
	if !ok {
		// Leaver was not seated; the room's fate is unchanged.
		return nil
	}

	if other != nil {
		boundRoom, err := e.rooms.Binding(ctx, *other)
		if err != nil {
			return err
		}
		ttl, err := e.rooms.BindingTTL(ctx, *other)
		if err != nil {
			return err
		}
		if boundRoom == r.ID && ttl == store.NoExpiry {
			// The other occupant is still connected; the room lives on.
			return nil
		}
	}

	if err := e.rooms.ExpireRoom(ctx, r.ID, e.opts.RoomTimeout); err != nil {
		return fmt.Errorf("failed to start expiration of room %s: %w", r.ID, err)
	}
	e.logger.Info().
		Str(logging.FieldRoom, r.ID).
		Dur("timeout", e.opts.RoomTimeout).
		Msg("room has no connected occupants, expiring")
	return nil
}
