package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// LocalBus delivers events in process.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger *logrus.Logger
}

// NewLocalBus returns an empty in-process bus.
func NewLocalBus(logger *logrus.Logger) *LocalBus {
	return &LocalBus{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

func (b *LocalBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if sub.collection != ev.Collection || !sub.filter.Matches(ev) {
			continue
		}
		if !sub.offer(ev) {
			b.logger.WithFields(logrus.Fields{
				"collection": ev.Collection,
				"kind":       ev.Kind,
			}).Warn("subscriber buffer full, dropped event")
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, collection string, filter Filter) (*Subscription, error) {
	sub := newSubscription(collection, filter)
	sub.closeFn = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, sub)
		close(sub.ch)
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub, nil
}

// Close drops every open subscription.
func (b *LocalBus) Close() error {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.Close()
	}
	return nil
}
