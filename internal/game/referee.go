// internal/game/referee.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultFinishDelay is how long the table stays open after the last card is dealt, so
// every client gets to see the reveal before the room moves to finished.
const DefaultFinishDelay = 3 * time.Second

// Referee finishes a room's game once every player has drawn. One timer per round.
type Referee struct {
	coord  *Coordinator
	delay  time.Duration
	logger *logrus.Logger

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
}

func NewReferee(coord *Coordinator, delay time.Duration, logger *logrus.Logger) *Referee {
	return &Referee{
		coord:  coord,
		delay:  delay,
		logger: logger,
		timers: make(map[uuid.UUID]*time.Timer),
	}
}

// Observe looks at the room's current round and, when everyone has drawn, schedules
// FinishGame. It reports whether a new finish was scheduled.
func (r *Referee) Observe(ctx context.Context, roomID uuid.UUID) (bool, error) {
	p, err := r.coord.Progress(ctx, roomID)
	if err != nil {
		return false, err
	}
	if p.Round == nil || !p.AllDrawn || p.Room.Status != models.StatusPlaying {
		return false, nil
	}

	roundID := p.Round.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, scheduled := r.timers[roundID]; scheduled {
		return false, nil
	}

	fields := logrus.Fields{"room_id": roomID, "round_id": roundID}
	r.logger.WithFields(fields).Debugf("All players drew, finishing in %s", r.delay)
	r.timers[roundID] = time.AfterFunc(r.delay, func() {
		r.finish(roomID, roundID, fields)
		r.mu.Lock()
		delete(r.timers, roundID)
		r.mu.Unlock()
	})
	return true, nil
}

// finish ends the game unless the room moved on to another round in the meantime.
func (r *Referee) finish(roomID, roundID uuid.UUID, fields logrus.Fields) {
	ctx := context.Background()
	cur, err := r.coord.CurrentRound(ctx, roomID)
	if err != nil {
		r.logger.WithFields(fields).Warnf("auto finish: %v", err)
		return
	}
	if cur.ID != roundID {
		r.logger.WithFields(fields).Debug("Round superseded, not finishing")
		return
	}
	if _, err := r.coord.FinishGame(ctx, roomID); err != nil {
		r.logger.WithFields(fields).Warnf("auto finish: %v", err)
	}
}

// Pending returns the number of scheduled finishes.
func (r *Referee) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop cancels every scheduled finish.
func (r *Referee) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
