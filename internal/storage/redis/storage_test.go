package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/balltoss/internal/model"
	"github.com/mcoot/balltoss/internal/storage"
	"github.com/mcoot/balltoss/internal/storage/storagetest"
)

func newTestStorage(t *testing.T, mini *miniredis.Miniredis, cfg Config) *Storage {
	client := redis.NewClient(&redis.Options{
		Addr: mini.Addr(),
	})
	s := NewWithClient(client, cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStateConformance(t *testing.T) {
	suite.Run(t, &storagetest.StateSuite{
		NewState: func(t *testing.T) storage.State {
			return newTestStorage(t, miniredis.RunT(t), DefaultConfig())
		},
	})
}

func TestStateConformanceWithPrefix(t *testing.T) {
	suite.Run(t, &storagetest.StateSuite{
		NewState: func(t *testing.T) storage.State {
			cfg := DefaultConfig()
			cfg.KeyPrefix = "balltoss:"
			return newTestStorage(t, miniredis.RunT(t), cfg)
		},
	})
}

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	cfg := DefaultConfig()
	cfg.PlayerTTL = time.Hour
	cfg.MatchTTL = 2 * time.Hour

	s.storage = newTestStorage(s.T(), s.mini, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TestKeyLayout() {
	_, err := s.storage.RegisterPlayer(s.ctx, "p1")
	s.Require().NoError(err)
	_, err = s.storage.RegisterMatch(s.ctx, "m1")
	s.Require().NoError(err)

	s.True(s.mini.Exists("player:p1"))
	s.True(s.mini.Exists("match:m1"))
}

func (s *StorageSuite) TestKeyPrefix() {
	cfg := s.storage.cfg
	cfg.KeyPrefix = "ns:"
	prefixed := NewWithClient(s.storage.Client(), cfg)

	_, err := prefixed.RegisterMatch(s.ctx, "m1")
	s.Require().NoError(err)

	s.True(s.mini.Exists("ns:match:m1"))
	s.False(s.mini.Exists("match:m1"))

	// Unprefixed storage on the same Redis does not see it
	matches, err := s.storage.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.Empty(matches)
}

func (s *StorageSuite) TestPlayerJSONLayout() {
	player := &model.Player{SID: "p1", Name: "Alice"}
	player.JoinedMatch("m1")
	_, err := s.storage.UpdatePlayer(s.ctx, player)
	s.Require().NoError(err)

	raw, err := s.mini.Get("player:p1")
	s.Require().NoError(err)
	s.JSONEq(`{"sid":"p1","name":"Alice","match":"m1"}`, raw)
}

func (s *StorageSuite) TestMatchJSONLayout() {
	match := model.NewMatch("m1")
	match.Left = &model.Player{SID: "p1", Name: "Alice"}
	match.Left.JoinedMatch("m1")
	_, err := s.storage.UpdateMatch(s.ctx, match)
	s.Require().NoError(err)

	raw, err := s.mini.Get("match:m1")
	s.Require().NoError(err)
	s.JSONEq(`{
		"id": "m1",
		"left_player": {"sid": "p1", "name": "Alice", "match": "m1"},
		"right_player": null,
		"max_score": 3
	}`, raw)
}

func (s *StorageSuite) TestReadsRecordsWrittenByOtherServers() {
	s.Require().NoError(s.mini.Set("player:p9", `{"sid":"p9","name":"Zed","match":null}`))
	s.Require().NoError(s.mini.Set("match:m9",
		`{"id":"m9","left_player":null,"right_player":{"sid":"p9","name":"Zed","match":"m9"},"max_score":5}`))

	player, err := s.storage.GetPlayer(s.ctx, "p9")
	s.Require().NoError(err)
	s.Equal("Zed", player.Name)
	s.False(player.InMatch())

	match, err := s.storage.GetMatch(s.ctx, "m9")
	s.Require().NoError(err)
	s.Nil(match.Left)
	s.Require().NotNil(match.Right)
	s.Equal(model.PlayerID("p9"), match.Right.SID)
	s.Equal(5, match.MaxScore)
}

func (s *StorageSuite) TestTTLRefreshedOnWrite() {
	player, _ := s.storage.RegisterPlayer(s.ctx, "p1")
	_, _ = s.storage.RegisterMatch(s.ctx, "m1")

	s.Equal(time.Hour, s.mini.TTL("player:p1"))
	s.Equal(2*time.Hour, s.mini.TTL("match:m1"))

	s.mini.FastForward(30 * time.Minute)
	player.Name = "Alice"
	_, err := s.storage.UpdatePlayer(s.ctx, player)
	s.Require().NoError(err)
	s.Equal(time.Hour, s.mini.TTL("player:p1"))

	s.mini.FastForward(61 * time.Minute)
	_, err = s.storage.GetPlayer(s.ctx, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestZeroTTLNeverExpires() {
	cfg := s.storage.cfg
	cfg.MatchTTL = 0
	noExpiry := NewWithClient(s.storage.Client(), cfg)

	_, err := noExpiry.RegisterMatch(s.ctx, "m1")
	s.Require().NoError(err)
	s.Zero(s.mini.TTL("match:m1"))
}

func (s *StorageSuite) TestGetMatchCorruptRecord() {
	s.Require().NoError(s.mini.Set("match:bad", "not json"))

	_, err := s.storage.GetMatch(s.ctx, "bad")
	s.Error(err)
	s.NotErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestListMatchesSkipsCorruptRecords() {
	_, _ = s.storage.RegisterMatch(s.ctx, "m1")
	s.Require().NoError(s.mini.Set("match:bad", "not json"))

	matches, err := s.storage.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Equal(model.MatchID("m1"), matches[0].ID)
}

func (s *StorageSuite) TestListMatchesManyKeys() {
	cfg := s.storage.cfg
	cfg.ScanCount = 2
	small := NewWithClient(s.storage.Client(), cfg)

	for _, id := range []model.MatchID{"a", "b", "c", "d", "e"} {
		_, err := small.RegisterMatch(s.ctx, id)
		s.Require().NoError(err)
	}

	matches, err := small.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.Len(matches, 5)
}

func TestNewInvalidURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "not-a-url"
	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNewConnects(t *testing.T) {
	mini := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.URL = "redis://" + mini.Addr()

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = s.Close() }()
}
