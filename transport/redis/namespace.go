package redis

import (
	"fmt"
	"strings"

	"github.com/intagaming/tic-tac-toe-worker-node/config"
)

// KeyBuilder builds Redis keys with configured prefixes. Every key and
// channel shape the ticker, worker and debug tooling touch is defined here.
type KeyBuilder struct {
	ns config.RedisNamespaceConfig
}

// NewKeyBuilder creates a new KeyBuilder with the given namespace
// configuration.
func NewKeyBuilder(ns config.RedisNamespaceConfig) *KeyBuilder {
	return &KeyBuilder{ns: ns}
}

// RoomKey builds the key for a room record.
// Format: {room}:{roomID}
// Example: "room:abc123"
func (kb *KeyBuilder) RoomKey(roomID string) string {
	return fmt.Sprintf("%s:%s", kb.ns.RoomPrefix, roomID)
}

// ClientKey builds the key for a client session binding.
// Format: {client}:{clientID}
// Example: "client:player-1"
func (kb *KeyBuilder) ClientKey(clientID string) string {
	return fmt.Sprintf("%s:%s", kb.ns.ClientPrefix, clientID)
}

// TickingQueueKey returns the sorted set holding due-timer entries.
// Example: "tickingRooms"
func (kb *KeyBuilder) TickingQueueKey() string {
	return kb.ns.TickingQueueKey
}

// TickLockKey builds the per-room lease lock key.
// Format: {tick}:{roomID}
// Example: "tick:abc123"
func (kb *KeyBuilder) TickLockKey(roomID string) string {
	return fmt.Sprintf("%s:%s", kb.ns.LockPrefix, roomID)
}

// ServerChannel builds the per-room announcer pub/sub channel.
// Format: {server}:{roomID}
// Example: "server:abc123"
func (kb *KeyBuilder) ServerChannel(roomID string) string {
	return fmt.Sprintf("%s:%s", kb.ns.ServerChannelPrefix, roomID)
}

// ControlChannel builds the client-facing control channel for a room.
// Format: {control}:{roomID}
// Example: "control:abc123"
func (kb *KeyBuilder) ControlChannel(roomID string) string {
	return fmt.Sprintf("%s:%s", kb.ns.ControlChannelPrefix, roomID)
}

// IsControlChannel reports whether the channel name is a room control
// channel.
func (kb *KeyBuilder) IsControlChannel(channel string) bool {
	return strings.HasPrefix(channel, kb.ns.ControlChannelPrefix+":")
}

// RoomIDFromControlChannel extracts the room identifier from a control
// channel name.
func (kb *KeyBuilder) RoomIDFromControlChannel(channel string) string {
	return strings.TrimPrefix(channel, kb.ns.ControlChannelPrefix+":")
}

// EventsStreamKey returns the Redis Stream inbound events are consumed from.
// Example: "events"
func (kb *KeyBuilder) EventsStreamKey() string {
	return kb.ns.EventsStreamKey
}

// ConsumerGroup returns the consumer group name for the events stream.
// Example: "worker-nodes"
func (kb *KeyBuilder) ConsumerGroup() string {
	return kb.ns.ConsumerGroup
}
