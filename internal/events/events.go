// internal/events/events.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Kind is the mutation an Event reports.
type Kind string

const (
	Insert Kind = "INSERT"
	Update Kind = "UPDATE"
	Delete Kind = "DELETE"
)

// Collection names, shared by the stores' tables and the event channels.
const (
	Rooms   = "game_rooms"
	Players = "players"
	Rounds  = "game_rounds"
	Draws   = "card_draws"
)

// ValidCollection reports whether name is one of the known collections.
func ValidCollection(name string) bool {
	switch name {
	case Rooms, Players, Rounds, Draws:
		return true
	}
	return false
}

// Event is one mutation of a record. New is empty for deletes; Old is only set for deletes.
type Event struct {
	Collection string          `json:"collection"`
	Kind       Kind            `json:"kind"`
	New        json.RawMessage `json:"new,omitempty"`
	Old        json.RawMessage `json:"old,omitempty"`
	At         time.Time       `json:"at"`
}

// NewEvent marshals the given records into an Event. Either record may be nil.
func NewEvent(collection string, kind Kind, newRecord, oldRecord any) (Event, error) {
	ev := Event{Collection: collection, Kind: kind, At: time.Now().UTC()}
	if newRecord != nil {
		b, err := json.Marshal(newRecord)
		if err != nil {
			return ev, fmt.Errorf("marshal new record: %w", err)
		}
		ev.New = b
	}
	if oldRecord != nil {
		b, err := json.Marshal(oldRecord)
		if err != nil {
			return ev, fmt.Errorf("marshal old record: %w", err)
		}
		ev.Old = b
	}
	return ev, nil
}

// Filter selects events whose new or old record has Field equal to Value.
// The zero Filter matches everything.
type Filter struct {
	Field string
	Value string
}

// Matches compares the field's JSON value, rendered as text, with f.Value.
func (f Filter) Matches(ev Event) bool {
	if f.Field == "" {
		return true
	}
	return fieldEquals(ev.New, f.Field, f.Value) || fieldEquals(ev.Old, f.Field, f.Value)
}

func fieldEquals(raw json.RawMessage, field, value string) bool {
	if len(raw) == 0 {
		return false
	}
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return false
	}
	v, ok := rec[field]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == value
}

// Bus fans mutations out to subscribers. Delivery is best effort: a subscriber that is not
// keeping up loses events instead of stalling the publisher.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe opens a channel for one collection. The caller must Close the subscription.
	Subscribe(ctx context.Context, collection string, filter Filter) (*Subscription, error)
	Close() error
}

// SubscriptionBuffer is the number of undelivered events a subscriber may hold.
const SubscriptionBuffer = 32

// Subscription receives matching events on C until Close is called.
type Subscription struct {
	C <-chan Event

	ch         chan Event
	collection string
	filter     Filter
	closeFn    func()
	once       sync.Once
}

func newSubscription(collection string, filter Filter) *Subscription {
	ch := make(chan Event, SubscriptionBuffer)
	return &Subscription{C: ch, ch: ch, collection: collection, filter: filter}
}

// Close stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}

// offer hands ev to the subscriber without blocking. It reports false when ev was dropped.
func (s *Subscription) offer(ev Event) bool {
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}
