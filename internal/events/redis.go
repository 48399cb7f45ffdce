// internal/events/redis.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultChannelPrefix namespaces the Redis pub/sub channels, one per collection.
const DefaultChannelPrefix = "cardbbang"

// ConnectRedis creates a client for addr/db and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisBus publishes events as JSON on Redis channels, so every server process sharing the
// Redis instance sees every mutation.
type RedisBus struct {
	rdb    *redis.Client
	prefix string
	logger *logrus.Logger
}

// NewRedisBus wraps a connected client. An empty prefix selects DefaultChannelPrefix.
func NewRedisBus(rdb *redis.Client, prefix string, logger *logrus.Logger) *RedisBus {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisBus{rdb: rdb, prefix: prefix, logger: logger}
}

func (b *RedisBus) channel(collection string) string {
	return b.prefix + ":" + collection
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel(ev.Collection), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to '%s': %w", b.channel(ev.Collection), err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning, so events
// published afterwards are not missed.
func (b *RedisBus) Subscribe(ctx context.Context, collection string, filter Filter) (*Subscription, error) {
	ps := b.rdb.Subscribe(ctx, b.channel(collection))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to '%s': %w", b.channel(collection), err)
	}

	sub := newSubscription(collection, filter)
	done := make(chan struct{})
	sub.closeFn = func() {
		ps.Close()
		<-done
		close(sub.ch)
	}

	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Warnf("invalid event on %s: %v", msg.Channel, err)
				continue
			}
			if !filter.Matches(ev) {
				continue
			}
			if !sub.offer(ev) {
				b.logger.WithFields(logrus.Fields{
					"collection": ev.Collection,
					"kind":       ev.Kind,
				}).Warn("subscriber buffer full, dropped event")
			}
		}
	}()
	return sub, nil
}

// Close closes the underlying client.
func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
