package game

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	"github.com/intagaming/tic-tac-toe-worker-node/store"
)

// HandleAction dispatches a client action received on a room's control
// channel. Unknown actions were already filtered at the worker boundary;
// invalid ones (wrong state, wrong turn, malformed data) are dropped here
// with a log line, never an error, so a hostile client cannot wedge the
// event stream.
func (e *Engine) HandleAction(ctx context.Context, roomID, clientID string, action room.Action, data string) error {
	switch action {
	case room.ActionStartGame:
		return e.handleStartGame(ctx, roomID, clientID)
	case room.ActionLeaveRoom:
		return e.handleLeaveRoom(ctx, roomID, clientID, data)
	case room.ActionCheckBox:
		return e.handleCheckBox(ctx, roomID, clientID, data)
	default:
		e.logger.Warn().
			Str(logging.FieldRoom, roomID).
			Str(logging.FieldAction, string(action)).
			Msg("unhandled action")
		return nil
	}
}

// handleStartGame moves a waiting room with both seats taken into playing.
// Only the host may start. Starting also enrolls the room in the due-timer
// queue so the ticker begins watching its deadlines.
func (e *Engine) handleStartGame(ctx context.Context, roomID, clientID string) error {
	return e.withRoomLock(ctx, roomID, func(ctx context.Context) error {
		r, err := e.loadRoom(ctx, roomID)
		if err != nil || r == nil {
			return err
		}

		logger := e.logger.With().
			Str(logging.FieldRoom, roomID).
			Str(logging.FieldClient, clientID).
			Logger()

		if r.State != room.StateWaiting {
			logger.Info().Str(logging.FieldRoomState, string(r.State)).Msg("start rejected, game not in waiting state")
			return nil
		}
		if r.Host == nil || *r.Host != clientID {
			logger.Info().Msg("start rejected, requester is not the host")
			return nil
		}
		if r.Guest == nil {
			logger.Info().Msg("start rejected, no guest seated")
			return nil
		}

		now := e.now()
		r.State = room.StatePlaying
		r.Data.Turn = room.SeatHost
		r.Data.TurnEndsAt = now.Add(e.opts.TurnTime).Unix()
		r.Data.GameEndsAt = room.NoDeadline

		if err := e.rooms.PutRoom(ctx, r, store.KeepTTL()); err != nil {
			return err
		}
		// Due immediately; the first tick establishes the cadence.
		if err := e.dueQueue.Schedule(ctx, roomID, now); err != nil {
			return err
		}

		logger.Info().Msg("game started")
		return e.announceRoomState(ctx, r, room.AnnouncerGameStartsNow)
	})
}

// handleLeaveRoom removes a seated client on purpose. The payload names the
// client to remove; a client may remove itself, and the host may remove the
// guest. Host departure promotes the guest. Leaving mid-game ends it.
func (e *Engine) handleLeaveRoom(ctx context.Context, roomID, clientID, targetClientID string) error {
	return e.withRoomLock(ctx, roomID, func(ctx context.Context) error {
		r, err := e.loadRoom(ctx, roomID)
		if err != nil || r == nil {
			return err
		}

		logger := e.logger.With().
			Str(logging.FieldRoom, roomID).
			Str(logging.FieldClient, clientID).
			Logger()

		if targetClientID == "" {
			targetClientID = clientID
		}
		if targetClientID != clientID && (r.Host == nil || *r.Host != clientID) {
			logger.Info().Str("target", targetClientID).Msg("leave rejected, only the host removes other clients")
			return nil
		}

		seat, occupied := r.SeatOf(targetClientID)
		if !occupied {
			logger.Info().Str("target", targetClientID).Msg("leave ignored, client not seated")
			return nil
		}

		switch seat {
		case room.SeatHost:
			if r.Guest != nil {
				// Promote the guest so the room keeps a host.
				r.Host = r.Guest
				r.Guest = nil
				e.announcer.Announce(ctx, roomID, room.AnnouncerHostChange, *r.Host)
			} else {
				r.Host = nil
			}
		case room.SeatGuest:
			r.Guest = nil
		}

		if err := e.rooms.UnbindClient(ctx, targetClientID); err != nil {
			return err
		}
		e.announcer.Announce(ctx, roomID, room.AnnouncerClientLeft, targetClientID)

		if r.State == room.StatePlaying {
			e.beginFinishing(ctx, r)
		}

		if err := e.rooms.PutRoom(ctx, r, store.KeepTTL()); err != nil {
			return err
		}

		logger.Info().Str("target", targetClientID).Str("seat", string(seat)).Msg("client left room")
		return e.expireRoomIfNecessary(ctx, r, targetClientID)
	})
}

// checkedBoxPayload is the PLAYER_CHECKED_BOX wire payload.
type checkedBoxPayload struct {
	HostOrGuest room.Seat `json:"hostOrGuest"`
	Box         int       `json:"box"`
}

// gameResultPayload is the GAME_RESULT wire payload. Winner is the winning
// client's id, null on a draw.
type gameResultPayload struct {
	Winner     *string `json:"winner"`
	GameEndsAt int64   `json:"gameEndsAt"`
}

// handleCheckBox claims a board cell for the requester and evaluates the
// board. A decided board moves the room to finishing; otherwise the turn
// flips while the turn deadline stays as set at game start.
func (e *Engine) handleCheckBox(ctx context.Context, roomID, clientID, data string) error {
	return e.withRoomLock(ctx, roomID, func(ctx context.Context) error {
		r, err := e.loadRoom(ctx, roomID)
		if err != nil || r == nil {
			return err
		}

		logger := e.logger.With().
			Str(logging.FieldRoom, roomID).
			Str(logging.FieldClient, clientID).
			Logger()

		if r.State != room.StatePlaying {
			logger.Info().Str(logging.FieldRoomState, string(r.State)).Msg("move rejected, game not in progress")
			return nil
		}
		seat, occupied := r.SeatOf(clientID)
		if !occupied {
			logger.Info().Msg("move rejected, requester not seated")
			return nil
		}
		if r.Data.Turn != seat {
			logger.Info().Str(logging.FieldTurn, string(r.Data.Turn)).Msg("move rejected, not the requester's turn")
			return nil
		}

		box, err := strconv.Atoi(data)
		if err != nil || box < 0 || box >= room.BoardSize {
			logger.Info().Str("data", data).Msg("move rejected, invalid box")
			return nil
		}
		if r.Data.Board[box] != room.CellEmpty {
			logger.Info().Int(logging.FieldBox, box).Msg("move rejected, box already checked")
			return nil
		}

		r.Data.Board[box] = room.CellFor(seat)
		e.announceJSON(ctx, roomID, room.AnnouncerPlayerCheckedBox, checkedBoxPayload{
			HostOrGuest: seat,
			Box:         box,
		})

		if result := room.Evaluate(r.Data.Board); result != room.ResultUndecided {
			e.beginFinishing(ctx, r)

			payload := gameResultPayload{GameEndsAt: r.Data.GameEndsAt}
			if winner, decided := result.Winner(); decided {
				if winnerID, seated := r.Occupant(winner); seated {
					payload.Winner = &winnerID
				}
			}
			e.announceJSON(ctx, roomID, room.AnnouncerGameResult, payload)
			logger.Info().Str(logging.FieldResult, result.String()).Msg("game decided")
		} else {
			r.Data.Turn = seat.Other()
		}

		return e.rooms.PutRoom(ctx, r, store.KeepTTL())
	})
}

// beginFinishing moves a playing room into the finishing countdown. The
// caller persists the room afterwards; the room is already enrolled in the
// due-timer queue because it was playing. The announcement payload is the
// bare countdown deadline in Unix seconds, stringified, which is what
// clients parse today.
func (e *Engine) beginFinishing(ctx context.Context, r *room.Room) {
	r.State = room.StateFinishing
	r.Data.GameEndsAt = e.now().Add(e.opts.FinishingCountdown).Unix()
	e.announcer.Announce(ctx, r.ID, room.AnnouncerGameFinishing, strconv.FormatInt(r.Data.GameEndsAt, 10))
}

// announceJSON publishes a JSON-encoded payload on the room's server
// channel. Encoding failures are logged and swallowed; announcements are
// best-effort and never abort a transition.
func (e *Engine) announceJSON(ctx context.Context, roomID string, event room.Announcer, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error().Err(err).
			Str(logging.FieldRoom, roomID).
			Str(logging.FieldEvent, string(event)).
			Msg("failed to encode announcement payload")
		return
	}
	e.announcer.Announce(ctx, roomID, event, string(data))
}
