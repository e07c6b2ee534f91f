// Package logging provides centralized logging utilities for the worker node.
// It defines standardized field names and helper functions to ensure
// consistent structured logging across the ticker and the event worker.
package logging

// Standard field name constants for structured logging.
// Using constants ensures consistency and prevents typos across the codebase.
const (
	// Component identification
	FieldComponent = "component"
	FieldInstance  = "instance"

	// Room/client identification
	FieldRoom    = "room"
	FieldClient  = "client"
	FieldChannel = "channel"

	// Game fields
	FieldRoomState = "room_state"
	FieldTurn      = "turn"
	FieldBox       = "box"
	FieldResult    = "result"
	FieldWinner    = "winner"

	// Scheduling fields
	FieldScore      = "score"
	FieldDueAt      = "due_at"
	FieldSleepUntil = "sleep_until"
	FieldIdle       = "idle"
	FieldLockKey    = "lock_key"

	// Operation fields
	FieldOperation = "operation"
	FieldAction    = "action"
	FieldEvent     = "event"
	FieldReason    = "reason"

	// Network/connection fields
	FieldAddr       = "addr"
	FieldListenAddr = "listen_addr"

	// Redis/stream fields
	FieldStream       = "stream"
	FieldMessageID    = "message_id"
	FieldConsumerName = "consumer_name"

	// Timing fields
	FieldDuration  = "duration"
	FieldTimestamp = "timestamp"

	// Count/size fields
	FieldCount = "count"
	FieldSize  = "size"

	// Error fields
	FieldErrorType = "error_type"
	FieldAttempt   = "attempt"
)

// Component name constants for the component field.
const (
	ComponentTicker        = "ticker"
	ComponentTickerGroup   = "ticker_group"
	ComponentWorker        = "worker"
	ComponentGameEngine    = "game_engine"
	ComponentRoomStore     = "room_store"
	ComponentDueQueue      = "due_queue"
	ComponentRoomLock      = "room_lock"
	ComponentAnnouncer     = "announcer"
	ComponentEventConsumer = "event_consumer"
	ComponentObservability = "observability"
)
