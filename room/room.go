// Package room defines the persisted room record and the pure game rules:
// the board, win/draw evaluation, and the announcer/action vocabulary spoken
// over the realtime channels. Everything here is wire-format compatible with
// the records clients already read.
package room

// State is the session state of a room.
type State string

const (
	// StateWaiting means no game is active; the room holds 0-2 occupants.
	StateWaiting State = "waiting"

	// StatePlaying means a game is in progress; host and guest are both
	// present and Turn/TurnEndsAt are meaningful.
	StatePlaying State = "playing"

	// StateFinishing means the game is decided or ended; GameEndsAt is set
	// and the room resets to waiting once that deadline passes.
	StateFinishing State = "finishing"
)

// Seat identifies one of the two player slots.
type Seat string

const (
	SeatHost  Seat = "host"
	SeatGuest Seat = "guest"
)

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == SeatHost {
		return SeatGuest
	}
	return SeatHost
}

// NoDeadline is the sentinel for an unset deadline. Deadlines are Unix
// seconds on the wire.
const NoDeadline int64 = -1

// GameData is the session payload of a room.
type GameData struct {
	// Ticks is a tick counter carried on the wire for clients. Reset to
	// zero with the room.
	Ticks int64 `json:"ticks"`

	// Board is the 9-cell playing field.
	Board Board `json:"board"`

	// Turn is the seat whose move it is. Meaningful only while playing.
	Turn Seat `json:"turn"`

	// TurnEndsAt is the current turn deadline in Unix seconds, or
	// NoDeadline.
	TurnEndsAt int64 `json:"turnEndsAt"`

	// GameEndsAt is the finishing countdown deadline in Unix seconds, or
	// NoDeadline. Set only while the room is finishing.
	GameEndsAt int64 `json:"gameEndsAt"`
}

// Room is one game session's full persisted state. The authoritative copy
// lives in the store; a Room value is owned by exactly one operation for the
// duration of its read-modify-write cycle.
type Room struct {
	ID    string   `json:"id"`
	Host  *string  `json:"host"`
	State State    `json:"state"`
	Guest *string  `json:"guest"`
	Data  GameData `json:"data"`
}

// New returns an empty waiting room with the given identifier.
func New(id string) *Room {
	r := &Room{ID: id}
	r.ResetToWaiting()
	return r
}

// ResetToWaiting returns the room to its idle state: no game, empty board,
// cleared deadlines, tick counter zeroed. Occupants are kept.
func (r *Room) ResetToWaiting() {
	r.State = StateWaiting
	r.Data.Ticks = 0
	r.Data.Board = Board{}
	r.Data.Turn = SeatHost
	r.Data.TurnEndsAt = NoDeadline
	r.Data.GameEndsAt = NoDeadline
}

// SeatOf returns the seat the client occupies, if any.
func (r *Room) SeatOf(clientID string) (Seat, bool) {
	if r.Host != nil && *r.Host == clientID {
		return SeatHost, true
	}
	if r.Guest != nil && *r.Guest == clientID {
		return SeatGuest, true
	}
	return "", false
}

// Occupant returns the client occupying the given seat, if any.
func (r *Room) Occupant(seat Seat) (string, bool) {
	switch seat {
	case SeatHost:
		if r.Host != nil {
			return *r.Host, true
		}
	case SeatGuest:
		if r.Guest != nil {
			return *r.Guest, true
		}
	}
	return "", false
}

// OtherOccupant returns the occupant who is not the given client. The
// second return is false when the client occupies no seat; the first return
// is nil when the other seat is empty.
func (r *Room) OtherOccupant(clientID string) (*string, bool) {
	if r.Host != nil && *r.Host == clientID {
		return r.Guest, true
	}
	if r.Guest != nil && *r.Guest == clientID {
		return r.Host, true
	}
	return nil, false
}
