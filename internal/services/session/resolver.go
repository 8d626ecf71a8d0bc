// Package session answers "who is this connection and where are they" from
// the state store. Nothing is cached between calls.
package session

import (
	"context"
	"errors"

	"github.com/mcoot/balltoss/internal/model"
	"github.com/mcoot/balltoss/internal/storage"
)

// Resolver derives a connection's player, match and peer from the store
type Resolver struct {
	state storage.State
}

// NewResolver creates a new Resolver
func NewResolver(state storage.State) *Resolver {
	return &Resolver{state: state}
}

// CurrentPlayer returns the player record for the connection, or nil if it
// is not registered
func (r *Resolver) CurrentPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player, err := r.state.GetPlayer(ctx, id)
	if errors.Is(err, model.ErrPlayerNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return player, nil
}

// CurrentMatch returns the match the connection's player references, or nil
// if there is no reference or the match no longer exists
func (r *Resolver) CurrentMatch(ctx context.Context, id model.PlayerID) (*model.Match, error) {
	player, err := r.CurrentPlayer(ctx, id)
	if err != nil || player == nil {
		return nil, err
	}
	return r.matchOf(ctx, player)
}

// OtherOccupant returns the connection's peer in its current match, or nil
// if the player is unmatched or alone
func (r *Resolver) OtherOccupant(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player, err := r.CurrentPlayer(ctx, id)
	if err != nil || player == nil {
		return nil, err
	}
	match, err := r.matchOf(ctx, player)
	if err != nil || match == nil {
		return nil, err
	}
	return otherThan(match, player), nil
}

func (r *Resolver) matchOf(ctx context.Context, player *model.Player) (*model.Match, error) {
	if !player.InMatch() {
		return nil, nil
	}
	match, err := r.state.GetMatch(ctx, player.MatchID())
	if errors.Is(err, model.ErrMatchNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return match, nil
}

// otherThan picks whichever occupant is not the given player
func otherThan(match *model.Match, player *model.Player) *model.Player {
	for _, occupant := range match.Occupants() {
		if !occupant.Is(player) {
			return occupant
		}
	}
	return nil
}
