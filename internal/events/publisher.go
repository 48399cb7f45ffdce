package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Publisher is what the room manager and the round coordinator use to announce mutations.
// A failed publish is logged; it never fails the mutation that caused it.
type Publisher struct {
	Bus    Bus
	Logger *logrus.Logger
}

// Emit builds and publishes one event. A nil Publisher or Bus does nothing.
func (p *Publisher) Emit(ctx context.Context, collection string, kind Kind, newRecord, oldRecord any) {
	if p == nil || p.Bus == nil {
		return
	}
	ev, err := NewEvent(collection, kind, newRecord, oldRecord)
	if err == nil {
		err = p.Bus.Publish(ctx, ev)
	}
	if err != nil && p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"collection": collection,
			"kind":       kind,
		}).Warnf("publish event: %v", err)
	}
}
