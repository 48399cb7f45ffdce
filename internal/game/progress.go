package game

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/sirupsen/logrus"
)

// Loser picks the draw with the lowest card. Equal cards go to the earlier draw, then to
// the lower deck slot. The second result is false when there are no draws.
func Loser(draws []models.Draw) (models.Draw, bool) {
	if len(draws) == 0 {
		return models.Draw{}, false
	}
	loser := draws[0]
	for _, d := range draws[1:] {
		if lowerDraw(d, loser) {
			loser = d
		}
	}
	return loser, true
}

func lowerDraw(a, b models.Draw) bool {
	if a.CardValue != b.CardValue {
		return a.CardValue < b.CardValue
	}
	if !a.DrawnAt.Equal(b.DrawnAt) {
		return a.DrawnAt.Before(b.DrawnAt)
	}
	return a.CardIndex < b.CardIndex
}

// Progress is a snapshot of the room's current round.
type Progress struct {
	Room        *models.Room  `json:"room"`
	Round       *models.Round `json:"round,omitempty"`
	Draws       []models.Draw `json:"draws"`
	PlayerCount int           `json:"player_count"`
	AllDrawn    bool          `json:"all_drawn"`

	// Loser is only set once every player has drawn.
	Loser *models.Draw `json:"loser,omitempty"`
}

// Progress reports how far the current round is. A room without rounds yields a Progress
// with a nil Round.
func (c *Coordinator) Progress(ctx context.Context, roomID uuid.UUID) (*Progress, error) {
	fields := logrus.Fields{"room_id": roomID}
	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, c.fail("progress", err, fields)
	}
	count, err := c.store.CountPlayers(ctx, roomID)
	if err != nil {
		return nil, c.fail("progress", err, fields)
	}
	p := &Progress{Room: room, PlayerCount: count, Draws: []models.Draw{}}

	round, err := c.store.CurrentRound(ctx, roomID)
	if errors.Is(err, models.ErrNotFound) {
		return p, nil
	}
	if err != nil {
		return nil, c.fail("progress", err, fields)
	}
	p.Round = round

	draws, err := c.store.ListDraws(ctx, round.ID)
	if err != nil {
		return nil, c.fail("progress", err, fields)
	}
	p.Draws = draws
	p.AllDrawn = count > 0 && len(draws) >= count
	if p.AllDrawn {
		if loser, ok := Loser(draws); ok {
			p.Loser = &loser
		}
	}
	return p, nil
}
