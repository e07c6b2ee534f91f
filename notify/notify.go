// Package notify delivers announcer events to connected clients through the
// realtime transport. Delivery is fire-and-forget: the core guarantees the
// publish was handed to the transport, nothing more.
package notify

import (
	"context"

	"github.com/intagaming/tic-tac-toe-worker-node/room"
)

// Announcer publishes server events on a room's server channel.
// Implementations must be safe for concurrent use.
type Announcer interface {
	// Announce publishes one event for the room. Fire-and-forget; failures
	// are recorded, not returned.
	Announce(ctx context.Context, roomID string, event room.Announcer, payload string)

	// Close flushes pending announcements and shuts the announcer down.
	Close() error
}
