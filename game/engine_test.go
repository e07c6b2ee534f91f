//go:build test

package game

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/intagaming/tic-tac-toe-worker-node/lock"
	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/queue"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	"github.com/intagaming/tic-tac-toe-worker-node/store"
	"github.com/intagaming/tic-tac-toe-worker-node/testutil"
)

// captureAnnouncer records announcements instead of publishing them.
type captureAnnouncer struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	roomID  string
	event   room.Announcer
	payload string
}

func (a *captureAnnouncer) Announce(_ context.Context, roomID string, event room.Announcer, payload string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, capturedEvent{roomID: roomID, event: event, payload: payload})
}

func (a *captureAnnouncer) Close() error { return nil }

func (a *captureAnnouncer) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = nil
}

func (a *captureAnnouncer) names() []room.Announcer {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]room.Announcer, len(a.events))
	for i, e := range a.events {
		names[i] = e.event
	}
	return names
}

func (a *captureAnnouncer) last(event room.Announcer) (capturedEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.events) - 1; i >= 0; i-- {
		if a.events[i].event == event {
			return a.events[i], true
		}
	}
	return capturedEvent{}, false
}

type EngineTestSuite struct {
	testutil.RedisTestSuite

	engine    *Engine
	store     *store.Store
	queue     *queue.DueQueue
	announcer *captureAnnouncer
	now       time.Time
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupTest() {
	s.RedisTestSuite.SetupTest()

	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	s.store = store.New(logger, s.RedisClient)
	s.queue = queue.New(logger, s.RedisClient)
	s.announcer = &captureAnnouncer{}
	s.now = time.Unix(1700000000, 0)

	s.engine = NewEngine(
		logger,
		s.store,
		s.queue,
		lock.New(logger, s.RedisClient),
		s.announcer,
		DefaultOptions(),
	)
	s.engine.now = func() time.Time { return s.now }
}

func (s *EngineTestSuite) putRoom(r *room.Room) {
	s.Require().NoError(s.store.PutRoom(s.Ctx, r, store.ClearTTL()))
}

func (s *EngineTestSuite) getRoom(id string) *room.Room {
	r, err := s.store.GetRoom(s.Ctx, id)
	s.Require().NoError(err)
	return r
}

func (s *EngineTestSuite) bindConnected(clientID, roomID string) {
	s.Require().NoError(s.store.BindClient(s.Ctx, clientID, roomID))
}

// startedRoom seats alice and bob and starts a game at s.now.
func (s *EngineTestSuite) startedRoom() *room.Room {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").WithGuest("bob").Build())
	s.bindConnected("alice", "r1")
	s.bindConnected("bob", "r1")
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionStartGame, ""))
	s.announcer.reset()
	return s.getRoom("r1")
}

func (s *EngineTestSuite) TestEnterSeatsHostThenGuest() {
	s.putRoom(testutil.NewRoom("r1").Build())

	s.Require().NoError(s.engine.HandleEnter(s.Ctx, "r1", "alice"))
	r := s.getRoom("r1")
	s.Require().Equal("alice", *r.Host)
	s.Require().Nil(r.Guest)

	s.Require().NoError(s.engine.HandleEnter(s.Ctx, "r1", "bob"))
	r = s.getRoom("r1")
	s.Require().Equal("alice", *r.Host)
	s.Require().Equal("bob", *r.Guest)

	// Both enters broadcast the room record.
	s.Require().Equal([]room.Announcer{room.AnnouncerRoomState, room.AnnouncerRoomState}, s.announcer.names())
	state, ok := s.announcer.last(room.AnnouncerRoomState)
	s.Require().True(ok)
	var announced room.Room
	s.Require().NoError(json.Unmarshal([]byte(state.payload), &announced))
	s.Require().Equal("bob", *announced.Guest)

	// Bindings are persistent while connected.
	boundRoom, err := s.store.Binding(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().Equal("r1", boundRoom)
	ttl, err := s.store.BindingTTL(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().Equal(store.NoExpiry, ttl)
}

func (s *EngineTestSuite) TestEnterFullRoomIgnored() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").WithGuest("bob").Build())

	s.Require().NoError(s.engine.HandleEnter(s.Ctx, "r1", "carol"))

	r := s.getRoom("r1")
	s.Require().Equal("alice", *r.Host)
	s.Require().Equal("bob", *r.Guest)
	s.Require().Empty(s.announcer.names())

	boundRoom, err := s.store.Binding(s.Ctx, "carol")
	s.Require().NoError(err)
	s.Require().Empty(boundRoom)
}

func (s *EngineTestSuite) TestEnterMissingRoomIsNoOp() {
	s.Require().NoError(s.engine.HandleEnter(s.Ctx, "ghost", "alice"))
	s.Require().Empty(s.announcer.names())
}

func (s *EngineTestSuite) TestReconnectCancelsExpiry() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").Build())
	s.bindConnected("alice", "r1")

	// Disconnect starts both grace periods.
	s.Require().NoError(s.engine.HandleLeave(s.Ctx, "r1", "alice"))
	s.Require().Equal(50*time.Second, s.MiniRedis.TTL(s.RedisClient.KB().ClientKey("alice")))
	s.Require().Equal(60*time.Second, s.MiniRedis.TTL(s.RedisClient.KB().RoomKey("r1")))

	// Reconnecting keeps the seat and clears both TTLs.
	s.Require().NoError(s.engine.HandleEnter(s.Ctx, "r1", "alice"))
	r := s.getRoom("r1")
	s.Require().Equal("alice", *r.Host)
	s.Require().Equal(time.Duration(0), s.MiniRedis.TTL(s.RedisClient.KB().ClientKey("alice")))
	s.Require().Equal(time.Duration(0), s.MiniRedis.TTL(s.RedisClient.KB().RoomKey("r1")))
}

func (s *EngineTestSuite) TestLeaveKeepsRoomWhileOtherConnected() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").WithGuest("bob").Build())
	s.bindConnected("alice", "r1")
	s.bindConnected("bob", "r1")

	s.Require().NoError(s.engine.HandleLeave(s.Ctx, "r1", "bob"))

	// Bob's binding is on the clock; the room is not.
	s.Require().Equal(50*time.Second, s.MiniRedis.TTL(s.RedisClient.KB().ClientKey("bob")))
	s.Require().Equal(time.Duration(0), s.MiniRedis.TTL(s.RedisClient.KB().RoomKey("r1")))
}

func (s *EngineTestSuite) TestLeaveExpiresRoomWhenOtherAlsoGone() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").WithGuest("bob").Build())
	s.bindConnected("alice", "r1")
	s.bindConnected("bob", "r1")

	s.Require().NoError(s.engine.HandleLeave(s.Ctx, "r1", "alice"))
	s.Require().NoError(s.engine.HandleLeave(s.Ctx, "r1", "bob"))

	s.Require().Equal(60*time.Second, s.MiniRedis.TTL(s.RedisClient.KB().RoomKey("r1")))
}

func (s *EngineTestSuite) TestLeaveSoleOccupantExpiresRoom() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").Build())
	s.bindConnected("alice", "r1")

	s.Require().NoError(s.engine.HandleLeave(s.Ctx, "r1", "alice"))
	s.Require().Equal(60*time.Second, s.MiniRedis.TTL(s.RedisClient.KB().RoomKey("r1")))
}

func (s *EngineTestSuite) TestStartGame() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").WithGuest("bob").Build())

	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionStartGame, ""))

	r := s.getRoom("r1")
	s.Require().Equal(room.StatePlaying, r.State)
	s.Require().Equal(room.SeatHost, r.Data.Turn)
	s.Require().Equal(s.now.Add(30*time.Second).Unix(), r.Data.TurnEndsAt)
	s.Require().Equal(room.NoDeadline, r.Data.GameEndsAt)

	// The room is enrolled for ticking, due immediately.
	score, ok, err := s.queue.Score(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Equal(s.now.UnixMilli(), score)

	started, ok := s.announcer.last(room.AnnouncerGameStartsNow)
	s.Require().True(ok)
	var announced room.Room
	s.Require().NoError(json.Unmarshal([]byte(started.payload), &announced))
	s.Require().Equal(room.StatePlaying, announced.State)
}

func (s *EngineTestSuite) TestStartGameRejections() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").Build())

	// No guest seated.
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionStartGame, ""))
	s.Require().Equal(room.StateWaiting, s.getRoom("r1").State)

	// Guest cannot start.
	r := s.getRoom("r1")
	bob := "bob"
	r.Guest = &bob
	s.putRoom(r)
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "bob", room.ActionStartGame, ""))
	s.Require().Equal(room.StateWaiting, s.getRoom("r1").State)

	// Already playing.
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionStartGame, ""))
	s.announcer.reset()
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionStartGame, ""))
	s.Require().Empty(s.announcer.names())
}

func (s *EngineTestSuite) TestCheckBoxAlternatesTurns() {
	s.startedRoom()
	gameStart := s.now
	s.now = s.now.Add(5 * time.Second)

	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionCheckBox, "4"))

	r := s.getRoom("r1")
	s.Require().Equal(room.CellHost, r.Data.Board[4])
	s.Require().Equal(room.SeatGuest, r.Data.Turn)
	// The flip does not restart the turn deadline.
	s.Require().Equal(gameStart.Add(30*time.Second).Unix(), r.Data.TurnEndsAt)

	checked, ok := s.announcer.last(room.AnnouncerPlayerCheckedBox)
	s.Require().True(ok)
	s.Require().JSONEq(`{"hostOrGuest":"host","box":4}`, checked.payload)

	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "bob", room.ActionCheckBox, "0"))
	r = s.getRoom("r1")
	s.Require().Equal(room.CellGuest, r.Data.Board[0])
	s.Require().Equal(room.SeatHost, r.Data.Turn)
}

func (s *EngineTestSuite) TestCheckBoxRejections() {
	r := s.startedRoom()

	// Not the guest's turn.
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "bob", room.ActionCheckBox, "0"))
	s.Require().Equal(room.Board{}, s.getRoom("r1").Data.Board)

	// Spectators cannot move.
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "carol", room.ActionCheckBox, "0"))
	s.Require().Equal(room.Board{}, s.getRoom("r1").Data.Board)

	// Out-of-range and malformed boxes.
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionCheckBox, "9"))
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionCheckBox, "-1"))
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionCheckBox, "nope"))
	s.Require().Equal(room.Board{}, s.getRoom("r1").Data.Board)

	// Occupied cell stays claimed by the first mover.
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionCheckBox, "4"))
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "bob", room.ActionCheckBox, "4"))
	r = s.getRoom("r1")
	s.Require().Equal(room.CellHost, r.Data.Board[4])
	s.Require().Equal(room.SeatGuest, r.Data.Turn)

	// No moves outside an active game.
	r.State = room.StateWaiting
	s.putRoom(r)
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "bob", room.ActionCheckBox, "0"))
	s.Require().Equal(room.CellEmpty, s.getRoom("r1").Data.Board[0])
}

func (s *EngineTestSuite) TestCheckBoxWinMovesToFinishing() {
	s.startedRoom()

	// Host takes the middle column, guest scatters.
	moves := []struct {
		client string
		box    int
	}{
		{"alice", 4}, {"bob", 0}, {"alice", 1}, {"bob", 3}, {"alice", 7},
	}
	for _, m := range moves {
		s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", m.client, room.ActionCheckBox, strconv.Itoa(m.box)))
	}

	r := s.getRoom("r1")
	s.Require().Equal(room.StateFinishing, r.State)
	s.Require().Equal(s.now.Add(5*time.Second).Unix(), r.Data.GameEndsAt)

	finishing, ok := s.announcer.last(room.AnnouncerGameFinishing)
	s.Require().True(ok)
	s.Require().Equal(strconv.FormatInt(r.Data.GameEndsAt, 10), finishing.payload)

	result, ok := s.announcer.last(room.AnnouncerGameResult)
	s.Require().True(ok)
	s.Require().JSONEq(`{"winner":"alice","gameEndsAt":`+strconv.FormatInt(r.Data.GameEndsAt, 10)+`}`, result.payload)
}

func (s *EngineTestSuite) TestCheckBoxDraw() {
	s.startedRoom()

	// host: 0 1 5 6 8, guest: 2 3 4 7; no triple completes.
	moves := []struct {
		client string
		box    int
	}{
		{"alice", 0}, {"bob", 2}, {"alice", 1}, {"bob", 3},
		{"alice", 5}, {"bob", 4}, {"alice", 6}, {"bob", 7}, {"alice", 8},
	}
	for _, m := range moves {
		s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", m.client, room.ActionCheckBox, strconv.Itoa(m.box)))
	}

	r := s.getRoom("r1")
	s.Require().Equal(room.StateFinishing, r.State)

	result, ok := s.announcer.last(room.AnnouncerGameResult)
	s.Require().True(ok)
	s.Require().JSONEq(`{"winner":null,"gameEndsAt":`+strconv.FormatInt(r.Data.GameEndsAt, 10)+`}`, result.payload)
}

func (s *EngineTestSuite) TestLeaveRoomGuestPromotion() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").WithGuest("bob").Build())
	s.bindConnected("alice", "r1")
	s.bindConnected("bob", "r1")

	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionLeaveRoom, "alice"))

	r := s.getRoom("r1")
	s.Require().Equal("bob", *r.Host)
	s.Require().Nil(r.Guest)

	change, ok := s.announcer.last(room.AnnouncerHostChange)
	s.Require().True(ok)
	s.Require().Equal("bob", change.payload)

	left, ok := s.announcer.last(room.AnnouncerClientLeft)
	s.Require().True(ok)
	s.Require().Equal("alice", left.payload)

	// Alice's binding is gone outright, no grace period.
	boundRoom, err := s.store.Binding(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Require().Empty(boundRoom)

	// Bob is still connected, so the room survives.
	s.Require().Equal(time.Duration(0), s.MiniRedis.TTL(s.RedisClient.KB().RoomKey("r1")))
}

func (s *EngineTestSuite) TestLeaveRoomMidGameEndsIt() {
	s.startedRoom()

	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "bob", room.ActionLeaveRoom, "bob"))

	r := s.getRoom("r1")
	s.Require().Equal(room.StateFinishing, r.State)
	s.Require().Equal(s.now.Add(5*time.Second).Unix(), r.Data.GameEndsAt)
	s.Require().Nil(r.Guest)

	_, ok := s.announcer.last(room.AnnouncerGameFinishing)
	s.Require().True(ok)
}

func (s *EngineTestSuite) TestLeaveRoomOnlyHostRemovesOthers() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").WithGuest("bob").Build())
	s.bindConnected("alice", "r1")
	s.bindConnected("bob", "r1")

	// Guest cannot evict the host.
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "bob", room.ActionLeaveRoom, "alice"))
	s.Require().Equal("alice", *s.getRoom("r1").Host)

	// The host can evict the guest.
	s.Require().NoError(s.engine.HandleAction(s.Ctx, "r1", "alice", room.ActionLeaveRoom, "bob"))
	s.Require().Nil(s.getRoom("r1").Guest)
}

func (s *EngineTestSuite) TestTickFinishingDeadlinePassedResetsRoom() {
	r := testutil.NewRoom("r1").WithHost("alice").WithGuest("bob").
		Finishing(s.now.Add(-time.Second).Unix()).Build()
	r.Data.Board[0] = room.CellHost
	s.putRoom(r)

	willTickMore, err := s.engine.Tick(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().False(willTickMore)

	got := s.getRoom("r1")
	s.Require().Equal(room.StateWaiting, got.State)
	s.Require().Equal(room.Board{}, got.Data.Board)
	s.Require().Equal("alice", *got.Host)
	s.Require().Equal("bob", *got.Guest)

	finished, ok := s.announcer.last(room.AnnouncerGameFinished)
	s.Require().True(ok)
	s.Require().Empty(finished.payload)
}

func (s *EngineTestSuite) TestTickFinishingDeadlineAheadKeepsTicking() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").
		Finishing(s.now.Add(3 * time.Second).Unix()).Build())

	willTickMore, err := s.engine.Tick(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().True(willTickMore)
	s.Require().Equal(room.StateFinishing, s.getRoom("r1").State)
	s.Require().Empty(s.announcer.names())
}

func (s *EngineTestSuite) TestTickIsIdempotentAtSameInstant() {
	s.putRoom(testutil.NewRoom("r1").WithHost("alice").
		Playing(room.SeatHost, s.now.Add(30*time.Second).Unix()).Build())

	first, err := s.engine.Tick(s.Ctx, "r1")
	s.Require().NoError(err)
	before := s.getRoom("r1")

	second, err := s.engine.Tick(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().Equal(first, second)
	s.Require().Equal(before, s.getRoom("r1"))
}

func (s *EngineTestSuite) TestTickMissingRoomStopsTicking() {
	willTickMore, err := s.engine.Tick(s.Ctx, "ghost")
	s.Require().NoError(err)
	s.Require().False(willTickMore)
}
