package match

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/balltoss/internal/model"
	"github.com/mcoot/balltoss/internal/storage"
	"github.com/mcoot/balltoss/internal/storage/memory"
	"github.com/mcoot/balltoss/internal/testutil"
)

type sent struct {
	To           model.PlayerID
	Notification model.Notification
}

// recordingNotifier captures every notification in order
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingNotifier) Notify(_ context.Context, to model.PlayerID, n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{To: to, Notification: n})
}

func (r *recordingNotifier) to(id model.PlayerID) []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, s := range r.sent {
		if s.To == id {
			out = append(out, s.Notification)
		}
	}
	return out
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	notifier   *recordingNotifier
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.notifier = &recordingNotifier{}
	s.controller = NewController(s.storage, s.notifier, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ControllerSuite) connect(ids ...model.PlayerID) {
	for _, id := range ids {
		_, err := s.controller.Connect(s.ctx, id)
		s.Require().NoError(err)
	}
}

func (s *ControllerSuite) join(id model.PlayerID, matchID model.MatchID) {
	s.Require().NoError(s.controller.JoinMatch(s.ctx, id, matchID))
}

func (s *ControllerSuite) lastUpdate(id model.PlayerID) model.MatchUpdatePayload {
	received := s.notifier.to(id)
	s.Require().NotEmpty(received)
	last := received[len(received)-1]
	s.Require().Equal(model.EventMatchUpdate, last.Type)
	update, ok := last.Payload.(model.MatchUpdatePayload)
	s.Require().True(ok)
	return update
}

func (s *ControllerSuite) player(id model.PlayerID) *model.Player {
	player, err := s.storage.GetPlayer(s.ctx, id)
	s.Require().NoError(err)
	return player
}

func (s *ControllerSuite) match(id model.MatchID) *model.Match {
	match, err := s.storage.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	return match
}

func (s *ControllerSuite) matchGone(id model.MatchID) {
	_, err := s.storage.GetMatch(s.ctx, id)
	s.ErrorIs(err, model.ErrMatchNotFound)
}

// Connect tests

func (s *ControllerSuite) TestConnectRegistersPlayer() {
	player, err := s.controller.Connect(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), player.SID)
	s.Empty(player.Name)
	s.False(player.InMatch())

	s.Equal(player, s.player("p1"))
}

// SetName tests

func (s *ControllerSuite) TestSetName() {
	s.connect("p1")

	s.Require().NoError(s.controller.SetName(s.ctx, "p1", "Alice"))
	s.Equal("Alice", s.player("p1").Name)
}

func (s *ControllerSuite) TestSetNamePreservesMatch() {
	s.connect("p1")
	s.join("p1", "m1")

	s.Require().NoError(s.controller.SetName(s.ctx, "p1", "Alice"))

	player := s.player("p1")
	s.Equal("Alice", player.Name)
	s.Equal(model.MatchID("m1"), player.MatchID())
}

func (s *ControllerSuite) TestSetNameRefreshesMatchRecord() {
	s.connect("p1")
	s.join("p1", "m1")

	s.Require().NoError(s.controller.SetName(s.ctx, "p1", "Alice"))

	s.Equal([]string{"Alice"}, s.match("m1").OccupantNames())
}

func (s *ControllerSuite) TestSetNameUnknownPlayerIsNoop() {
	s.NoError(s.controller.SetName(s.ctx, "nobody", "Ghost"))

	_, err := s.storage.GetPlayer(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ControllerSuite) TestSetNameSendsNothing() {
	s.connect("p1", "p2")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.notifier.reset()

	s.Require().NoError(s.controller.SetName(s.ctx, "p1", "Alice"))
	s.Zero(s.notifier.count())
}

// JoinMatch tests

func (s *ControllerSuite) TestJoinCreatesMatch() {
	s.connect("p1")
	s.join("p1", "m1")

	match := s.match("m1")
	s.Equal(model.DefaultMaxScore, match.MaxScore)
	s.Require().NotNil(match.Left)
	s.Equal(model.PlayerID("p1"), match.Left.SID)
	s.Nil(match.Right)

	s.Equal(model.MatchID("m1"), s.player("p1").MatchID())
}

func (s *ControllerSuite) TestJoinFirstPlayerNotified() {
	s.connect("p1")
	s.join("p1", "m1")

	update := s.lastUpdate("p1")
	s.Equal(model.SideLeft, update.Position)
	s.Equal(1, update.Players)
	s.Nil(update.Other)
	s.Equal(3, update.MaxScore)
}

func (s *ControllerSuite) TestJoinSecondPlayerBothNotified() {
	s.connect("p1", "p2")
	s.Require().NoError(s.controller.SetName(s.ctx, "p1", "Alice"))
	s.Require().NoError(s.controller.SetName(s.ctx, "p2", "Bob"))
	s.join("p1", "m1")
	s.notifier.reset()

	s.join("p2", "m1")

	left := s.lastUpdate("p1")
	s.Equal(model.SideLeft, left.Position)
	s.Equal(2, left.Players)
	s.Require().NotNil(left.Other)
	s.Equal("Bob", *left.Other)

	right := s.lastUpdate("p2")
	s.Equal(model.SideRight, right.Position)
	s.Equal(2, right.Players)
	s.Require().NotNil(right.Other)
	s.Equal("Alice", *right.Other)

	s.Equal(2, s.notifier.count())
}

func (s *ControllerSuite) TestJoinFullMatchRefused() {
	s.connect("p1", "p2", "p3")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.notifier.reset()

	err := s.controller.JoinMatch(s.ctx, "p3", "m1")
	s.ErrorIs(err, model.ErrMatchFull)

	s.Equal(2, s.match("m1").OccupantCount())
	s.False(s.player("p3").InMatch())
	s.Zero(s.notifier.count())
}

func (s *ControllerSuite) TestJoinRefillsVacatedLeftSlot() {
	s.connect("p1", "p2", "p3")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.Require().NoError(s.controller.Disconnect(s.ctx, "p1"))

	s.join("p3", "m1")

	match := s.match("m1")
	s.Equal(model.PlayerID("p3"), match.Left.SID)
	s.Equal(model.PlayerID("p2"), match.Right.SID)
	s.Equal(model.SideLeft, s.lastUpdate("p3").Position)
}

func (s *ControllerSuite) TestJoinUnknownPlayerIsNoop() {
	s.NoError(s.controller.JoinMatch(s.ctx, "nobody", "m1"))
	s.matchGone("m1")
}

func (s *ControllerSuite) TestRejoinSameMatchIsIdempotent() {
	s.connect("p1", "p2")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.notifier.reset()

	s.join("p1", "m1")

	match := s.match("m1")
	s.Equal(2, match.OccupantCount())
	s.Equal(model.PlayerID("p1"), match.Left.SID)
	s.Zero(s.notifier.count())
}

func (s *ControllerSuite) TestJoinDifferentMatchLeavesPrevious() {
	s.connect("p1", "p2")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.notifier.reset()

	s.join("p1", "m2")

	s.Equal(model.MatchID("m2"), s.player("p1").MatchID())
	m1 := s.match("m1")
	s.Equal(1, m1.OccupantCount())
	s.Equal(model.PlayerID("p2"), m1.Right.SID)

	update := s.lastUpdate("p2")
	s.Equal(1, update.Players)
	s.Nil(update.Other)

	s.Equal(model.SideLeft, s.lastUpdate("p1").Position)
}

func (s *ControllerSuite) TestJoinDifferentMatchRemovesEmptiedPrevious() {
	s.connect("p1")
	s.join("p1", "m1")
	s.join("p1", "m2")

	s.matchGone("m1")
}

func (s *ControllerSuite) TestJoinFullMatchKeepsPrevious() {
	s.connect("p1", "p2", "p3")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.join("p3", "m2")

	err := s.controller.JoinMatch(s.ctx, "p3", "m1")
	s.ErrorIs(err, model.ErrMatchFull)

	s.Equal(model.MatchID("m2"), s.player("p3").MatchID())
	s.Equal(1, s.match("m2").OccupantCount())
}

func (s *ControllerSuite) TestJoinAfterMatchVanished() {
	s.connect("p1")
	s.join("p1", "m1")
	_ = s.storage.RemoveMatch(s.ctx, "m1")

	s.join("p1", "m1")

	s.Equal(1, s.match("m1").OccupantCount())
	s.Equal(model.MatchID("m1"), s.player("p1").MatchID())
}

// LeaveMatch tests

func (s *ControllerSuite) TestLeaveMatch() {
	s.connect("p1", "p2")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.notifier.reset()

	s.Require().NoError(s.controller.LeaveMatch(s.ctx, "p1"))

	s.False(s.player("p1").InMatch())
	s.Equal(1, s.match("m1").OccupantCount())
	s.Empty(s.notifier.to("p1"))

	update := s.lastUpdate("p2")
	s.Equal(model.SideRight, update.Position)
	s.Equal(1, update.Players)
	s.Nil(update.Other)
}

func (s *ControllerSuite) TestLeaveLastOccupantRemovesMatch() {
	s.connect("p1")
	s.join("p1", "m1")
	s.notifier.reset()

	s.Require().NoError(s.controller.LeaveMatch(s.ctx, "p1"))

	s.matchGone("m1")
	s.Zero(s.notifier.count())
}

func (s *ControllerSuite) TestLeaveUnmatchedIsNoop() {
	s.connect("p1")
	s.NoError(s.controller.LeaveMatch(s.ctx, "p1"))
	s.NoError(s.controller.LeaveMatch(s.ctx, "nobody"))
}

// EndMatch tests

func (s *ControllerSuite) TestEndMatchEvictsBoth() {
	for _, caller := range []model.PlayerID{"p1", "p2"} {
		s.Run(string(caller), func() {
			s.SetupTest()
			s.connect("p1", "p2")
			s.join("p1", "m1")
			s.join("p2", "m1")
			s.notifier.reset()

			s.Require().NoError(s.controller.EndMatch(s.ctx, caller))

			s.False(s.player("p1").InMatch())
			s.False(s.player("p2").InMatch())
			s.matchGone("m1")
			s.Zero(s.notifier.count())
		})
	}
}

func (s *ControllerSuite) TestEndMatchUnmatchedIsNoop() {
	s.connect("p1")
	s.NoError(s.controller.EndMatch(s.ctx, "p1"))
	s.NoError(s.controller.EndMatch(s.ctx, "nobody"))
}

func (s *ControllerSuite) TestEndMatchVanishedClearsReference() {
	s.connect("p1")
	s.join("p1", "m1")
	_ = s.storage.RemoveMatch(s.ctx, "m1")

	s.Require().NoError(s.controller.EndMatch(s.ctx, "p1"))
	s.False(s.player("p1").InMatch())
}

func (s *ControllerSuite) TestEndMatchUnseatedLeavesMatchAlone() {
	s.connect("p1", "p2")
	s.join("p1", "m1")

	// p2 points at m1 without holding a slot in it
	p2 := s.player("p2")
	p2.JoinedMatch("m1")
	_, err := s.storage.UpdatePlayer(s.ctx, p2)
	s.Require().NoError(err)

	s.Require().NoError(s.controller.EndMatch(s.ctx, "p2"))
	s.False(s.player("p2").InMatch())

	m1 := s.match("m1")
	s.Equal(1, m1.OccupantCount())
	s.Equal(model.MatchID("m1"), s.player("p1").MatchID())
}

func (s *ControllerSuite) TestEndMatchThenMatchCanBeReused() {
	s.connect("p1", "p2", "p3")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.Require().NoError(s.controller.EndMatch(s.ctx, "p1"))

	s.join("p3", "m1")
	s.Equal(1, s.match("m1").OccupantCount())
}

// Disconnect tests

func (s *ControllerSuite) TestDisconnectNotifiesPeerOnce() {
	s.connect("p1", "p2")
	s.Require().NoError(s.controller.SetName(s.ctx, "p1", "Alice"))
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.notifier.reset()

	s.Require().NoError(s.controller.Disconnect(s.ctx, "p1"))

	received := s.notifier.to("p2")
	s.Require().Len(received, 1)
	update := s.lastUpdate("p2")
	s.Equal(1, update.Players)
	s.Nil(update.Other)
	s.Equal(model.SideRight, update.Position)

	_, err := s.storage.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ControllerSuite) TestDisconnectLastOccupantRemovesMatch() {
	s.connect("p1")
	s.join("p1", "m1")

	s.Require().NoError(s.controller.Disconnect(s.ctx, "p1"))

	s.matchGone("m1")
	matches, err := s.controller.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.Empty(matches)
}

func (s *ControllerSuite) TestDisconnectUnmatched() {
	s.connect("p1")
	s.Require().NoError(s.controller.Disconnect(s.ctx, "p1"))

	_, err := s.storage.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ControllerSuite) TestDisconnectUnknownIsNoop() {
	s.NoError(s.controller.Disconnect(s.ctx, "nobody"))
}

// ListMatches tests

func (s *ControllerSuite) TestListMatches() {
	s.connect("p1", "p2", "p3")
	s.Require().NoError(s.controller.SetName(s.ctx, "p1", "Alice"))
	s.Require().NoError(s.controller.SetName(s.ctx, "p2", "Bob"))
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.join("p3", "m2")

	summaries, err := s.controller.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]model.MatchSummary{
		{Match: "m1", Players: []string{"Alice", "Bob"}},
		{Match: "m2", Players: []string{""}},
	}, summaries)
}

func (s *ControllerSuite) TestListMatchesEmpty() {
	summaries, err := s.controller.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.NotNil(summaries)
	s.Empty(summaries)
}

// Relay tests

func (s *ControllerSuite) TestRelayReachesOnlyPeer() {
	s.connect("p1", "p2", "p3")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.join("p3", "m2")
	s.notifier.reset()

	s.Require().NoError(s.controller.BallThrown(s.ctx, "p1"))
	s.Require().NoError(s.controller.BallLost(s.ctx, "p2"))

	toP2 := s.notifier.to("p2")
	s.Require().Len(toP2, 1)
	s.Equal(model.EventBallThrown, toP2[0].Type)
	s.Nil(toP2[0].Payload)

	toP1 := s.notifier.to("p1")
	s.Require().Len(toP1, 1)
	s.Equal(model.EventBallLost, toP1[0].Type)

	s.Empty(s.notifier.to("p3"))
}

func (s *ControllerSuite) TestBallCrossedForwardsPayloadVerbatim() {
	s.connect("p1", "p2")
	s.join("p1", "m1")
	s.join("p2", "m1")
	s.notifier.reset()

	payload := json.RawMessage(`{"x": 0.25,"vy":-1.5e2, "extra":[1,2]}`)
	s.Require().NoError(s.controller.BallCrossed(s.ctx, "p2", payload))

	toP1 := s.notifier.to("p1")
	s.Require().Len(toP1, 1)
	s.Equal(model.EventBallCrossed, toP1[0].Type)
	forwarded, ok := toP1[0].Payload.(json.RawMessage)
	s.Require().True(ok)
	s.Equal(string(payload), string(forwarded))
	s.Empty(s.notifier.to("p2"))
}

func (s *ControllerSuite) TestRelayWithoutPeerIsDropped() {
	s.connect("p1", "p2")
	s.join("p1", "m1")
	s.notifier.reset()

	s.NoError(s.controller.BallThrown(s.ctx, "p1"))
	s.NoError(s.controller.BallCrossed(s.ctx, "p2", json.RawMessage(`{}`)))
	s.NoError(s.controller.BallLost(s.ctx, "nobody"))
	s.Zero(s.notifier.count())
}

// Scenario tests

func (s *ControllerSuite) TestScenarioNameBeforeJoinVisibleToPeer() {
	s.connect("p1", "p2")
	s.Require().NoError(s.controller.SetName(s.ctx, "p1", "Alice"))
	s.join("p1", "m1")
	s.join("p2", "m1")

	update := s.lastUpdate("p2")
	s.Require().NotNil(update.Other)
	s.Equal("Alice", *update.Other)
}

func (s *ControllerSuite) TestScenarioRenameAfterJoinSeenOnNextUpdate() {
	s.connect("p1", "p2")
	s.join("p1", "m1")
	s.Require().NoError(s.controller.SetName(s.ctx, "p1", "Alice"))
	s.join("p2", "m1")

	update := s.lastUpdate("p2")
	s.Require().NotNil(update.Other)
	s.Equal("Alice", *update.Other)
}

// Failure tests

var errBackend = errors.New("backend down")

type failingUpdates struct {
	storage.State
}

func (failingUpdates) UpdateMatch(context.Context, *model.Match) (*model.Match, error) {
	return nil, errBackend
}

func (s *ControllerSuite) TestStoreFailurePropagates() {
	controller := NewController(failingUpdates{State: s.storage}, s.notifier, testutil.NopLogger())
	_, err := controller.Connect(s.ctx, "p1")
	s.Require().NoError(err)

	err = controller.JoinMatch(s.ctx, "p1", "m1")
	s.ErrorIs(err, errBackend)
	s.Zero(s.notifier.count())
}
