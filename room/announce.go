package room

// Announcer is a server-to-client event name published on a room's server
// channel. The values are the wire vocabulary clients already listen for;
// HOST_CHANCE is the original wire constant, misspelling included.
type Announcer string

const (
	AnnouncerHostChange       Announcer = "HOST_CHANCE"
	AnnouncerRoomState        Announcer = "ROOM_STATE"
	AnnouncerGameStartsNow    Announcer = "GAME_STARTS_NOW"
	AnnouncerClientLeft       Announcer = "CLIENT_LEFT"
	AnnouncerPlayerCheckedBox Announcer = "PLAYER_CHECKED_BOX"
	AnnouncerGameResult       Announcer = "GAME_RESULT"
	AnnouncerGameFinishing    Announcer = "GAME_FINISHING"
	AnnouncerGameFinished     Announcer = "GAME_FINISHED"
)

// Action is a client-to-server action name received on a room's control
// channel. Decoded once at the worker boundary; internal logic never
// compares raw strings.
type Action string

const (
	ActionStartGame Action = "START_GAME"
	ActionLeaveRoom Action = "LEAVE_ROOM"
	ActionCheckBox  Action = "CHECK_BOX"
)

// ParseAction maps a wire message name to an Action. Unknown names return
// false and are ignored by the worker.
func ParseAction(name string) (Action, bool) {
	switch Action(name) {
	case ActionStartGame, ActionLeaveRoom, ActionCheckBox:
		return Action(name), true
	default:
		return "", false
	}
}
