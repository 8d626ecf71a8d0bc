package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const deliveriesChannel = "deliveries"

// RedisRelay implements Relay over a single Redis pub/sub channel
type RedisRelay struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// Ensure RedisRelay implements Relay
var _ Relay = (*RedisRelay)(nil)

// NewRedisRelay creates a relay on <prefix>deliveries
func NewRedisRelay(client *redis.Client, prefix string, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: prefix + deliveriesChannel,
		logger:  logger.With(slog.String("component", "relay")),
	}
}

// Channel returns the Redis channel name in use
func (r *RedisRelay) Channel() string {
	return r.channel
}

func (r *RedisRelay) Publish(ctx context.Context, d Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish delivery: %w", err)
	}
	return nil
}

func (r *RedisRelay) Subscribe(ctx context.Context, handle func(Delivery)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = sub.Close() }()

	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("relay subscribed", slog.String("channel", r.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var d Delivery
			if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
				r.logger.Warn("dropping malformed delivery", slog.Any("error", err))
				continue
			}
			handle(d)
		}
	}
}
