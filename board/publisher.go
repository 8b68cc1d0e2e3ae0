package board

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"tablero-api/domain"
)

// RedisPublisher fans board events out over a Redis channel so every server
// instance's realtime hub can deliver them to its local room members.
type RedisPublisher struct {
	rc      *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher on the given Redis channel.
func NewRedisPublisher(rc *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rc: rc, channel: channel}
}

// Publish frames the payload as a room broadcast and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, event string, payload any, origin string) error {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}
	msg := domain.Broadcast{Room: domain.BoardRoom, Event: event, Data: raw, Origin: origin}
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	return p.rc.Publish(ctx, p.channel, data).Err()
}
