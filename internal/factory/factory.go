package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mcoot/balltoss/internal/api"
	"github.com/mcoot/balltoss/internal/config"
	"github.com/mcoot/balltoss/internal/dependencies/ids"
	"github.com/mcoot/balltoss/internal/pubsub"
	"github.com/mcoot/balltoss/internal/services/match"
	"github.com/mcoot/balltoss/internal/storage"
	"github.com/mcoot/balltoss/internal/storage/memory"
	redisstorage "github.com/mcoot/balltoss/internal/storage/redis"
	"github.com/mcoot/balltoss/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	State storage.State

	// Relay carries notifications between instances. Nil with memory storage.
	Relay pubsub.Relay

	// External dependencies
	IDs ids.Generator

	// Services
	MatchController *match.Controller
	Hub             *ws.Hub
	WebSocket       *ws.Handler

	logger  *slog.Logger
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

// Time Close allows open connections to finish their cleanup
const defaultDrainTimeout = 30 * time.Second

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// FromConfig translates loaded server configuration into factory configuration
func FromConfig(cfg *config.Config, logger *slog.Logger) Config {
	fc := Config{
		Logger:      logger,
		StorageType: cfg.Storage.Type,
	}
	if cfg.Storage.Type == StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		redisCfg.KeyPrefix = cfg.Redis.KeyPrefix
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.PlayerTTL = cfg.Redis.PlayerTTL
		redisCfg.MatchTTL = cfg.Redis.MatchTTL
		fc.RedisConfig = &redisCfg
	}
	return fc
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return newWithDependencies(memory.New(), nil, ids.New(), logger), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		return newWithRedis(redisStore, cfg.RedisConfig.KeyPrefix, ids.New(), logger), nil
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}
}

// newWithRedis shares one client between the state store and the relay
func newWithRedis(store *redisstorage.Storage, keyPrefix string, gen ids.Generator, logger *slog.Logger) *App {
	relay := pubsub.NewRedisRelay(store.Client(), keyPrefix, logger)
	app := newWithDependencies(store, relay, gen, logger)
	app.closers = append(app.closers, store)
	return app
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.State, relay pubsub.Relay, gen ids.Generator, logger *slog.Logger) *App {
	hub := ws.NewHub(relay, logger)
	matchController := match.NewController(store, hub, logger)
	wsHandler := ws.NewHandler(hub, matchController, gen, logger)

	go hub.Run()

	return &App{
		State:           store,
		Relay:           relay,
		IDs:             gen,
		MatchController: matchController,
		Hub:             hub,
		WebSocket:       wsHandler,
		logger:          logger,
	}
}

// Handler returns the HTTP routes for the application
func (a *App) Handler() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:    a.logger,
		Matches:   a.MatchController,
		WebSocket: a.WebSocket,
	})
}

// RunRelay feeds frames from other instances to local connections until
// ctx is done. Without a relay it just waits.
func (a *App) RunRelay(ctx context.Context) error {
	if a.Relay == nil {
		<-ctx.Done()
		return nil
	}
	return a.Relay.Subscribe(ctx, a.Hub.DeliverFrame)
}

// Shutdown disconnects every local client, waits for their cleanup to
// reach the store, then releases backend connections. Later calls return
// the first result.
func (a *App) Shutdown(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.Hub.Close()

		var errs []error
		if err := a.WebSocket.Drain(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain connections: %w", err))
		}
		for _, c := range a.closers {
			errs = append(errs, c.Close())
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}

// Close is Shutdown bounded by the default drain timeout
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDrainTimeout)
	defer cancel()
	return a.Shutdown(ctx)
}
