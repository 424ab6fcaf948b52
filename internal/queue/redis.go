package queue

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"
)

const (
	redisQueuePrefix = "queue:"
	redisQueuesKey   = "queues"
)

// Redis pushes payloads onto sidekiq-style lists named queue:<channel>.
type Redis struct {
	client rueidis.Client
}

// NewRedis creates a Redis backend over an existing client.
func NewRedis(client rueidis.Client) *Redis {
	return &Redis{client: client}
}

// DialRedis connects to the Redis server at addr.
func DialRedis(addr string) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// QueueKey returns the list key holding jobs of channel.
func QueueKey(channel string) string {
	return redisQueuePrefix + channel
}

// Push prepends payload to the channel's list.
func (r *Redis) Push(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		return ErrChannelRequired
	}

	cmd := r.client.B().Lpush().Key(QueueKey(channel)).Element(string(payload)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", QueueKey(channel), err)
	}

	return nil
}

// Register adds channels to the set of known queues.
func (r *Redis) Register(ctx context.Context, channels []string) error {
	if len(channels) == 0 {
		return nil
	}

	cmd := r.client.B().Sadd().Key(redisQueuesKey).Member(channels...).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to register queues: %w", err)
	}

	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() {
	r.client.Close()
}
