//go:build test

package testutil

import (
	"encoding/json"

	"github.com/intagaming/tic-tac-toe-worker-node/room"
	"github.com/intagaming/tic-tac-toe-worker-node/transport"
)

// RoomBuilder constructs room fixtures.
type RoomBuilder struct {
	r *room.Room
}

// NewRoom starts a builder with an empty waiting room.
func NewRoom(id string) *RoomBuilder {
	return &RoomBuilder{r: room.New(id)}
}

// WithHost seats a host.
func (b *RoomBuilder) WithHost(clientID string) *RoomBuilder {
	b.r.Host = &clientID
	return b
}

// WithGuest seats a guest.
func (b *RoomBuilder) WithGuest(clientID string) *RoomBuilder {
	b.r.Guest = &clientID
	return b
}

// Playing moves the fixture into an in-progress game with the given turn
// deadline.
func (b *RoomBuilder) Playing(turn room.Seat, turnEndsAt int64) *RoomBuilder {
	b.r.State = room.StatePlaying
	b.r.Data.Turn = turn
	b.r.Data.TurnEndsAt = turnEndsAt
	return b
}

// Finishing moves the fixture into the finishing countdown.
func (b *RoomBuilder) Finishing(gameEndsAt int64) *RoomBuilder {
	b.r.State = room.StateFinishing
	b.r.Data.TurnEndsAt = room.NoDeadline
	b.r.Data.GameEndsAt = gameEndsAt
	return b
}

// WithBoard replaces the board. Cells use "" (empty), "host" or "guest".
func (b *RoomBuilder) WithBoard(cells [room.BoardSize]string) *RoomBuilder {
	for i, c := range cells {
		b.r.Data.Board[i] = room.Cell(c)
	}
	return b
}

// Build returns the fixture.
func (b *RoomBuilder) Build() *room.Room {
	return b.r
}

// PresenceEnvelope builds a raw presence envelope payload for a channel.
func PresenceEnvelope(channel, clientID string, action int) []byte {
	env := transport.Envelope{
		Source:  transport.SourcePresence,
		Channel: channel,
		Presence: []transport.PresenceEntry{{
			ClientID: clientID,
			Action:   action,
		}},
	}
	data, err := json.Marshal(env)
	if err != nil {
		panic(err)
	}
	return data
}

// MessageEnvelope builds a raw message envelope payload for a channel.
func MessageEnvelope(channel, clientID, name, data string) []byte {
	env := transport.Envelope{
		Source:  transport.SourceMessage,
		Channel: channel,
		Messages: []transport.MessageEntry{{
			ClientID: clientID,
			Name:     name,
			Data:     data,
		}},
	}
	payload, err := json.Marshal(env)
	if err != nil {
		panic(err)
	}
	return payload
}
