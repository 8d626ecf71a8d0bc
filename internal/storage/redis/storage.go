package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/balltoss/internal/model"
	"github.com/mcoot/balltoss/internal/storage"
)

// Storage is a Redis-backed implementation of the state interface.
// Several server instances can share one Redis and therefore one set of
// players and matches.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client exposes the underlying client so other components can share the pool
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.State = (*Storage)(nil)

// Player operations

func (s *Storage) RegisterPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.UpdatePlayer(ctx, model.NewPlayer(id))
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, s.playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, fmt.Errorf("decode player %s: %w", id, err)
	}
	return &player, nil
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) (*model.Player, error) {
	data, err := json.Marshal(player)
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, s.playerKey(player.SID), data, s.cfg.PlayerTTL).Err(); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *Storage) RemovePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, s.playerKey(id)).Err()
}

// Match operations

func (s *Storage) RegisterMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return s.UpdateMatch(ctx, model.NewMatch(id))
}

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	data, err := s.client.Get(ctx, s.matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", id, err)
	}
	return &match, nil
}

func (s *Storage) UpdateMatch(ctx context.Context, match *model.Match) (*model.Match, error) {
	data, err := json.Marshal(match)
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, s.matchKey(match.ID), data, s.cfg.MatchTTL).Err(); err != nil {
		return nil, err
	}
	return match, nil
}

func (s *Storage) RemoveMatch(ctx context.Context, id model.MatchID) error {
	return s.client.Del(ctx, s.matchKey(id)).Err()
}

func (s *Storage) ListMatches(ctx context.Context) ([]*model.Match, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.matchKeyPattern(), s.cfg.ScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []*model.Match{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	matches := make([]*model.Match, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Removed between SCAN and MGET
		}
		str, ok := val.(string)
		if !ok {
			continue
		}
		var match model.Match
		if err := json.Unmarshal([]byte(str), &match); err != nil {
			continue // Skip invalid data
		}
		matches = append(matches, &match)
	}

	return matches, nil
}
