package realtime

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tablero-api/domain"
)

// SubscribeBroadcasts listens for board events on the Redis channel and
// delivers each one to the hub's room members. It blocks until ctx is
// cancelled, re-subscribing if the pubsub channel closes.
func SubscribeBroadcasts(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, hub *Hub) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var b domain.Broadcast
				if err := sonic.Unmarshal([]byte(msg.Payload), &b); err != nil {
					logger.WithField("error", err).Error("unable to parse broadcast")
					continue
				}
				hub.Broadcast(b.Room, b.Origin, b.Event, b.Data)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
