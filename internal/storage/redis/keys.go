package redis

import (
	"github.com/mcoot/balltoss/internal/model"
)

// Key generation functions for each entity type

const (
	playerKeyPrefix = "player:"
	matchKeyPrefix  = "match:"
)

// playerKey returns the Redis key for a Player
func (s *Storage) playerKey(id model.PlayerID) string {
	return s.cfg.KeyPrefix + playerKeyPrefix + string(id)
}

// matchKey returns the Redis key for a Match
func (s *Storage) matchKey(id model.MatchID) string {
	return s.cfg.KeyPrefix + matchKeyPrefix + string(id)
}

// matchKeyPattern returns the SCAN pattern matching every Match key
func (s *Storage) matchKeyPattern() string {
	return s.cfg.KeyPrefix + matchKeyPrefix + "*"
}
