package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// KeyPrefix namespaces every key. Empty keeps the plain
	// player:<id> / match:<id> layout shared with older deployments.
	KeyPrefix string

	// TTL settings, refreshed on every write. Zero disables expiry.
	PlayerTTL time.Duration
	MatchTTL  time.Duration

	// ScanCount is the COUNT hint used when listing matches
	ScanCount int64
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		PlayerTTL:    24 * time.Hour,
		MatchTTL:     24 * time.Hour,
		ScanCount:    100,
	}
}
