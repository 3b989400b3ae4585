// README: Redis pub/sub implementation of the event bus; lets multiple
// server instances fan out to clients connected anywhere.
package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "dormdrop:events:"

type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelPrefix+topic, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, topics ...string) (<-chan Event, func()) {
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = channelPrefix + t
	}
	sub := b.client.Subscribe(ctx, channels...)

	out := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		in := sub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("realtime: drop malformed event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- ev:
				default:
					// Slow consumer; events are best-effort.
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		_ = sub.Close()
	}
	return out, cancel
}
