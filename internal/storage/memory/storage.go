package memory

import (
	"context"
	"sync"

	"github.com/mcoot/balltoss/internal/model"
	"github.com/mcoot/balltoss/internal/storage"
)

// Storage is an in-memory implementation of the state interface.
// Records are copied on the way in and out so callers never share
// memory with the store, matching the serialising Redis store.
type Storage struct {
	mu sync.RWMutex

	players map[model.PlayerID]*model.Player
	matches map[model.MatchID]*model.Match
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players: make(map[model.PlayerID]*model.Player),
		matches: make(map[model.MatchID]*model.Match),
	}
}

// Ensure Storage implements the interface
var _ storage.State = (*Storage)(nil)

// Player operations

func (s *Storage) RegisterPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player := model.NewPlayer(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[id] = player.Clone()
	return player, nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player.Clone(), nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.SID] = player.Clone()
	return player, nil
}

func (s *Storage) RemovePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

// Match operations

func (s *Storage) RegisterMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	match := model.NewMatch(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[id] = match.Clone()
	return match, nil
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return match.Clone(), nil
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) (*model.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = match.Clone()
	return match, nil
}

func (s *Storage) RemoveMatch(ctx context.Context, id model.MatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
	return nil
}

func (s *Storage) ListMatches(ctx context.Context) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*model.Match, 0, len(s.matches))
	for _, match := range s.matches {
		matches = append(matches, match.Clone())
	}
	return matches, nil
}
