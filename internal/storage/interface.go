package storage

import (
	"context"

	"github.com/mcoot/balltoss/internal/model"
)

// State defines the interface for player and match persistence.
// Implementations must behave identically from the caller's perspective.
type State interface {
	// Player operations
	RegisterPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	UpdatePlayer(ctx context.Context, player *model.Player) (*model.Player, error)
	RemovePlayer(ctx context.Context, id model.PlayerID) error

	// Match operations
	RegisterMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	UpdateMatch(ctx context.Context, match *model.Match) (*model.Match, error)
	RemoveMatch(ctx context.Context, id model.MatchID) error
	ListMatches(ctx context.Context) ([]*model.Match, error)
}
