// Package storagetest holds the conformance suite every state store must pass.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/balltoss/internal/model"
	"github.com/mcoot/balltoss/internal/storage"
)

// StateSuite exercises the storage.State contract against a fresh store per test
type StateSuite struct {
	suite.Suite

	// NewState builds an empty store. Called once per test.
	NewState func(t *testing.T) storage.State

	state storage.State
	ctx   context.Context
}

func (s *StateSuite) SetupTest() {
	s.state = s.NewState(s.T())
	s.ctx = context.Background()
}

// Player tests

func (s *StateSuite) TestRegisterPlayer() {
	player, err := s.state.RegisterPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p1"), player.SID)
	s.Empty(player.Name)
	s.Nil(player.Match)

	retrieved, err := s.state.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(player, retrieved)
}

func (s *StateSuite) TestRegisterPlayerOverwritesExisting() {
	player, _ := s.state.RegisterPlayer(s.ctx, "p1")
	player.Name = "Alice"
	_, _ = s.state.UpdatePlayer(s.ctx, player)

	_, err := s.state.RegisterPlayer(s.ctx, "p1")
	s.Require().NoError(err)

	retrieved, err := s.state.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Empty(retrieved.Name)
}

func (s *StateSuite) TestGetPlayerNotFound() {
	_, err := s.state.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StateSuite) TestUpdatePlayer() {
	player, _ := s.state.RegisterPlayer(s.ctx, "p1")
	player.Name = "Alice"
	player.JoinedMatch("m1")

	updated, err := s.state.UpdatePlayer(s.ctx, player)
	s.Require().NoError(err)
	s.Equal("Alice", updated.Name)

	retrieved, err := s.state.GetPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.Name)
	s.Equal(model.MatchID("m1"), retrieved.MatchID())
}

func (s *StateSuite) TestUpdatePlayerClearsMatch() {
	player, _ := s.state.RegisterPlayer(s.ctx, "p1")
	player.JoinedMatch("m1")
	_, _ = s.state.UpdatePlayer(s.ctx, player)

	player.LeftMatch()
	_, err := s.state.UpdatePlayer(s.ctx, player)
	s.Require().NoError(err)

	retrieved, _ := s.state.GetPlayer(s.ctx, "p1")
	s.False(retrieved.InMatch())
}

func (s *StateSuite) TestReturnedPlayerIsDetached() {
	_, _ = s.state.RegisterPlayer(s.ctx, "p1")

	retrieved, _ := s.state.GetPlayer(s.ctx, "p1")
	retrieved.Name = "not saved"

	again, _ := s.state.GetPlayer(s.ctx, "p1")
	s.Empty(again.Name)
}

func (s *StateSuite) TestRemovePlayer() {
	_, _ = s.state.RegisterPlayer(s.ctx, "p1")

	err := s.state.RemovePlayer(s.ctx, "p1")
	s.Require().NoError(err)

	_, err = s.state.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StateSuite) TestRemovePlayerAbsentIsNoop() {
	s.NoError(s.state.RemovePlayer(s.ctx, "nonexistent"))
}

// Match tests

func (s *StateSuite) TestRegisterMatch() {
	match, err := s.state.RegisterMatch(s.ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchID("m1"), match.ID)
	s.True(match.IsEmpty())
	s.Equal(model.DefaultMaxScore, match.MaxScore)

	retrieved, err := s.state.GetMatch(s.ctx, "m1")
	s.Require().NoError(err)
	s.Equal(match, retrieved)
}

func (s *StateSuite) TestGetMatchNotFound() {
	_, err := s.state.GetMatch(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StateSuite) TestUpdateMatchWithOccupants() {
	match, _ := s.state.RegisterMatch(s.ctx, "m1")
	left := &model.Player{SID: "p1", Name: "Alice"}
	left.JoinedMatch("m1")
	right := &model.Player{SID: "p2", Name: "Bob"}
	right.JoinedMatch("m1")
	match.Left = left
	match.Right = right

	_, err := s.state.UpdateMatch(s.ctx, match)
	s.Require().NoError(err)

	retrieved, err := s.state.GetMatch(s.ctx, "m1")
	s.Require().NoError(err)
	s.Require().NotNil(retrieved.Left)
	s.Require().NotNil(retrieved.Right)
	s.Equal("Alice", retrieved.Left.Name)
	s.Equal("Bob", retrieved.Right.Name)
	s.Equal(model.MatchID("m1"), retrieved.Right.MatchID())
	s.Equal(2, retrieved.OccupantCount())
}

func (s *StateSuite) TestReturnedMatchIsDetached() {
	_, _ = s.state.RegisterMatch(s.ctx, "m1")

	retrieved, _ := s.state.GetMatch(s.ctx, "m1")
	retrieved.Left = model.NewPlayer("p1")

	again, _ := s.state.GetMatch(s.ctx, "m1")
	s.True(again.IsEmpty())
}

func (s *StateSuite) TestRemoveMatch() {
	_, _ = s.state.RegisterMatch(s.ctx, "m1")

	err := s.state.RemoveMatch(s.ctx, "m1")
	s.Require().NoError(err)

	_, err = s.state.GetMatch(s.ctx, "m1")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StateSuite) TestRemoveMatchAbsentIsNoop() {
	s.NoError(s.state.RemoveMatch(s.ctx, "nonexistent"))
}

func (s *StateSuite) TestListMatches() {
	_, _ = s.state.RegisterMatch(s.ctx, "m1")
	_, _ = s.state.RegisterMatch(s.ctx, "m2")
	_, _ = s.state.RegisterMatch(s.ctx, "m3")
	_ = s.state.RemoveMatch(s.ctx, "m2")

	matches, err := s.state.ListMatches(s.ctx)
	s.Require().NoError(err)

	ids := make([]model.MatchID, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	s.ElementsMatch([]model.MatchID{"m1", "m3"}, ids)
}

func (s *StateSuite) TestListMatchesEmpty() {
	matches, err := s.state.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.Empty(matches)
}

func (s *StateSuite) TestListMatchesIgnoresPlayers() {
	_, _ = s.state.RegisterPlayer(s.ctx, "p1")
	_, _ = s.state.RegisterMatch(s.ctx, "m1")

	matches, err := s.state.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.Len(matches, 1)
}
