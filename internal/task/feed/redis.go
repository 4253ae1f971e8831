package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisFeed fans changes out over a redis pub/sub channel.
type RedisFeed struct {
	client  *redis.Client
	channel string
}

func NewRedisFeed(client *redis.Client, channel string) *RedisFeed {
	return &RedisFeed{client: client, channel: channel}
}

func (f *RedisFeed) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	return f.client.Publish(ctx, f.channel, data).Err()
}

// Listen resubscribes when the pub/sub channel closes under it.
func (f *RedisFeed) Listen(ctx context.Context, handler func(Change)) error {
	for {
		sub := f.client.Subscribe(ctx, f.channel)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[Feed] Subscribe to %s failed: %v", f.channel, err)
			time.Sleep(time.Second)
			continue
		}

		ch := sub.Channel()
	receive:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return nil
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					log.Printf("[Feed] Unable to parse change: %v", err)
					continue
				}
				handler(change)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.Println("[Feed] Pub/sub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

func (f *RedisFeed) Close() error { return nil }
