//go:build test

package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/testutil"
)

type QueueTestSuite struct {
	testutil.RedisTestSuite
	queue *DueQueue
}

func TestQueueTestSuite(t *testing.T) {
	suite.Run(t, new(QueueTestSuite))
}

func (s *QueueTestSuite) SetupTest() {
	s.RedisTestSuite.SetupTest()
	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	s.queue = New(logger, s.RedisClient)
}

func (s *QueueTestSuite) TestPeekMinEmpty() {
	_, _, ok, err := s.queue.PeekMin(s.Ctx)
	s.Require().NoError(err)
	s.Require().False(ok)
}

func (s *QueueTestSuite) TestPeekMinReturnsEarliest() {
	base := time.Now()
	s.Require().NoError(s.queue.Schedule(s.Ctx, "late", base.Add(5*time.Second)))
	s.Require().NoError(s.queue.Schedule(s.Ctx, "early", base.Add(time.Second)))
	s.Require().NoError(s.queue.Schedule(s.Ctx, "middle", base.Add(3*time.Second)))

	roomID, score, ok, err := s.queue.PeekMin(s.Ctx)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Equal("early", roomID)
	s.Require().Equal(base.Add(time.Second).UnixMilli(), score)
}

func (s *QueueTestSuite) TestScheduleOverwritesScore() {
	base := time.Now()
	s.Require().NoError(s.queue.Schedule(s.Ctx, "r1", base))
	s.Require().NoError(s.queue.Schedule(s.Ctx, "r1", base.Add(2*time.Second)))

	score, ok, err := s.queue.Score(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Equal(base.Add(2*time.Second).UnixMilli(), score)

	n, err := s.queue.Len(s.Ctx)
	s.Require().NoError(err)
	s.Require().Equal(int64(1), n)
}

func (s *QueueTestSuite) TestConditionalRescheduleOK() {
	base := time.Now()
	s.Require().NoError(s.queue.Schedule(s.Ctx, "r1", base))

	res, err := s.queue.ConditionalReschedule(s.Ctx, "r1", base.UnixMilli(), base.Add(6*time.Second))
	s.Require().NoError(err)
	s.Require().Equal(RescheduleOK, res)

	score, ok, err := s.queue.Score(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Equal(base.Add(6*time.Second).UnixMilli(), score)
}

func (s *QueueTestSuite) TestConditionalRescheduleStale() {
	base := time.Now()
	s.Require().NoError(s.queue.Schedule(s.Ctx, "r1", base))

	// A peer advanced the entry after our peek.
	s.Require().NoError(s.queue.Schedule(s.Ctx, "r1", base.Add(6*time.Second)))

	res, err := s.queue.ConditionalReschedule(s.Ctx, "r1", base.UnixMilli(), base.Add(10*time.Second))
	s.Require().NoError(err)
	s.Require().Equal(RescheduleStale, res)

	// The peer's score survives.
	score, ok, err := s.queue.Score(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().Equal(base.Add(6*time.Second).UnixMilli(), score)
}

func (s *QueueTestSuite) TestConditionalRescheduleAbsent() {
	base := time.Now()
	res, err := s.queue.ConditionalReschedule(s.Ctx, "gone", base.UnixMilli(), base.Add(time.Second))
	s.Require().NoError(err)
	s.Require().Equal(RescheduleAbsent, res)

	// The CAS must never resurrect a removed entry.
	n, err := s.queue.Len(s.Ctx)
	s.Require().NoError(err)
	s.Require().Zero(n)
}

func (s *QueueTestSuite) TestRemove() {
	base := time.Now()
	s.Require().NoError(s.queue.Schedule(s.Ctx, "r1", base))
	s.Require().NoError(s.queue.Remove(s.Ctx, "r1"))

	_, ok, err := s.queue.Score(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().False(ok)

	// Removing an absent entry is a no-op.
	s.Require().NoError(s.queue.Remove(s.Ctx, "r1"))
}

func (s *QueueTestSuite) TestEntries() {
	base := time.Unix(1700000000, 0)
	s.Require().NoError(s.queue.Schedule(s.Ctx, "b", base.Add(2*time.Second)))
	s.Require().NoError(s.queue.Schedule(s.Ctx, "a", base.Add(time.Second)))

	entries, err := s.queue.Entries(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Require().Equal("a", entries[0].RoomID)
	s.Require().Equal(base.Add(time.Second).UnixMilli(), entries[0].DueAt.UnixMilli())
	s.Require().Equal("b", entries[1].RoomID)
}
