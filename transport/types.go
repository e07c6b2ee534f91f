package transport

import (
	"encoding/json"
	"fmt"
)

// Presence action codes used by the realtime provider's queue payloads.
const (
	PresenceAbsent  = 0
	PresencePresent = 1
	PresenceEnter   = 2
	PresenceLeave   = 3
	PresenceUpdate  = 4
)

// Envelope source values distinguishing presence batches from message
// batches.
const (
	SourcePresence = "channel.presence"
	SourceMessage  = "channel.message"
)

// PresenceEntry is one presence change inside an envelope.
type PresenceEntry struct {
	ID           string `json:"id"`
	ClientID     string `json:"clientId"`
	ConnectionID string `json:"connectionId"`
	Timestamp    int64  `json:"timestamp"`
	Name         string `json:"name"`
	Action       int    `json:"action"`
	Data         string `json:"data"`
}

// MessageEntry is one published message inside an envelope.
type MessageEntry struct {
	ID           string `json:"id"`
	ClientID     string `json:"clientId"`
	ConnectionID string `json:"connectionId"`
	Timestamp    int64  `json:"timestamp"`
	Name         string `json:"name"`
	Data         string `json:"data"`
}

// Envelope is the queue message wrapper the realtime provider forwards for
// each channel event. Exactly one of Presence or Messages is populated,
// indicated by Source.
type Envelope struct {
	Source   string          `json:"source"`
	AppID    string          `json:"appId"`
	Channel  string          `json:"channel"`
	Site     string          `json:"site"`
	RuleID   string          `json:"ruleId"`
	Presence []PresenceEntry `json:"presence,omitempty"`
	Messages []MessageEntry  `json:"messages,omitempty"`
}

// DecodeEnvelope parses a raw queue payload. It rejects payloads whose
// source does not carry the batch it claims, so malformed events are dropped
// at the boundary instead of panicking deeper in.
func DecodeEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}

	switch env.Source {
	case SourcePresence:
		if len(env.Presence) == 0 {
			return nil, fmt.Errorf("presence envelope has no presence entries")
		}
	case SourceMessage:
		if len(env.Messages) == 0 {
			return nil, fmt.Errorf("message envelope has no message entries")
		}
	default:
		return nil, fmt.Errorf("unknown envelope source %q", env.Source)
	}

	return &env, nil
}

// StreamMessage wraps a raw event payload with its Redis Stream message ID.
// Used by the consumer to track which events have been acknowledged.
type StreamMessage struct {
	// ID is the Redis Stream message ID (e.g., "1234567890123-0").
	ID string

	// Payload is the raw queue event payload.
	Payload []byte
}
