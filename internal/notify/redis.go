package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "notifications:"

// Channel is the per-user pub/sub channel name.
func Channel(userID uuid.UUID) string { return channelPrefix + userID.String() }

// RedisPublisher fans notifications out over Redis pub/sub on the user's Channel.
// Clients outside this process subscribe to that channel directly.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, userID uuid.UUID, payload []byte) error {
	return p.client.Publish(ctx, Channel(userID), payload).Err()
}
