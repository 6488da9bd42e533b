package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "seats.events."

// RedisBridge relays hub events over Redis pub/sub so multiple stateless
// instances fan out the same deltas.  The publishing instance receives its
// own messages back through the subscription, which is where local
// delivery happens.
type RedisBridge struct {
	rdb *redis.Client
	hub *Hub
}

// NewRedisBridge wires the hub's relay to Redis.  Call Run to start
// receiving.  A nil client leaves the hub in local-only mode.
func NewRedisBridge(rdb *redis.Client, hub *Hub) *RedisBridge {
	b := &RedisBridge{rdb: rdb, hub: hub}
	if rdb != nil {
		hub.SetRelay(b.publish)
	}
	return b
}

func (b *RedisBridge) publish(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("%s%d", channelPrefix, ev.ShowtimeID)
	return b.rdb.Publish(context.Background(), channel, body).Err()
}

// Run subscribes to every showtime channel and feeds received events into
// the local hub until the context is cancelled.  Malformed payloads are
// logged and skipped.
func (b *RedisBridge) Run(ctx context.Context) error {
	if b.rdb == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	sub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("realtime: dropping malformed event on %s: %v", msg.Channel, err)
				continue
			}
			b.hub.Deliver(ev)
		}
	}
}
