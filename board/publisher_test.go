package board

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"tablero-api/domain"
)

func TestRedisPublisherFramesRoomBroadcast(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, "board:broadcasts")
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ch := sub.Channel()

	pub := NewRedisPublisher(client, "board:broadcasts")
	payload := domain.TaskRemovedEvent{TaskID: "a", DeletedBy: "ana", Timestamp: time.Now().UTC()}
	if err := pub.Publish(ctx, domain.EventTaskRemoved, payload, "session-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-ch:
		var b domain.Broadcast
		if err := sonic.Unmarshal([]byte(msg.Payload), &b); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if b.Room != domain.BoardRoom || b.Event != domain.EventTaskRemoved || b.Origin != "session-1" {
			t.Fatalf("unexpected frame: %+v", b)
		}
		var ev domain.TaskRemovedEvent
		if err := sonic.Unmarshal(b.Data, &ev); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if ev.TaskID != "a" || ev.DeletedBy != "ana" {
			t.Fatalf("unexpected payload: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
	}
}
