// internal/game/coordinator.go
package game

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/deck"
	"github.com/jason-s-yu/cardbbang/internal/events"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/jason-s-yu/cardbbang/internal/store"
	"github.com/sirupsen/logrus"
)

// Coordinator drives a room through waiting -> playing -> finished -> waiting and deals
// exactly one card per player per round.
type Coordinator struct {
	store  store.Store
	events *events.Publisher
	logger *logrus.Logger
	rng    deck.Source

	// RoundRetention is how many rounds per room survive a new start. 0 keeps them all.
	RoundRetention int
}

// NewCoordinator wires a Coordinator. rng shuffles the decks; nil selects a time-seeded source.
func NewCoordinator(st store.Store, pub *events.Publisher, logger *logrus.Logger, rng deck.Source) *Coordinator {
	if rng == nil {
		rng = deck.NewSource()
	}
	return &Coordinator{store: st, events: pub, logger: logger, rng: rng}
}

func (c *Coordinator) fail(op string, err error, fields logrus.Fields) error {
	entry := c.logger.WithFields(fields).WithField("op", op)
	if errors.Is(err, models.ErrStoreFailure) {
		entry.Errorf("%v", err)
	} else {
		entry.Infof("%v", err)
	}
	return err
}

// StartGame moves a waiting room to playing together with a freshly shuffled round.
// On a room that is already playing it returns the current round, creating it if the room
// somehow has none, so repeated calls are safe.
func (c *Coordinator) StartGame(ctx context.Context, roomID uuid.UUID) (*models.Round, error) {
	fields := logrus.Fields{"room_id": roomID}
	room, round, err := c.store.StartRound(ctx, roomID, deck.NewShuffledDeck(c.rng))
	if errors.Is(err, models.ErrInvalidTransition) {
		room, err = c.store.GetRoom(ctx, roomID)
		if err != nil {
			return nil, c.fail("start_game", err, fields)
		}
		if room.Status != models.StatusPlaying {
			return nil, c.fail("start_game", models.ErrInvalidTransition, fields)
		}
		return c.ensureRound(ctx, room)
	}
	if err != nil {
		return nil, c.fail("start_game", err, fields)
	}

	c.events.Emit(ctx, events.Rooms, events.Update, room, nil)
	c.events.Emit(ctx, events.Rounds, events.Insert, round, nil)
	c.logger.WithFields(fields).WithField("round_id", round.ID).Infof("Round %d started", round.RoundNumber)

	if c.RoundRetention > 0 {
		n, err := c.store.PruneRounds(ctx, roomID, c.RoundRetention)
		if err != nil {
			// the round is live already; a failed prune only delays cleanup
			c.logger.WithFields(fields).Warnf("prune rounds: %v", err)
		} else if n > 0 {
			c.logger.WithFields(fields).Debugf("Pruned %d old rounds", n)
		}
	}
	return round, nil
}

// ensureRound returns the current round of a playing room, inserting one if it is missing.
func (c *Coordinator) ensureRound(ctx context.Context, room *models.Room) (*models.Round, error) {
	fields := logrus.Fields{"room_id": room.ID}
	round, err := c.store.CurrentRound(ctx, room.ID)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, c.fail("start_game", err, fields)
	}
	c.logger.WithFields(fields).Warn("Playing room has no round, creating one")
	round, err = c.store.InsertRound(ctx, room.ID, deck.NewShuffledDeck(c.rng))
	if err != nil {
		return nil, c.fail("start_game", err, fields)
	}
	c.events.Emit(ctx, events.Rounds, events.Insert, round, nil)
	return round, nil
}

// CurrentRound returns the room's most recent round.
func (c *Coordinator) CurrentRound(ctx context.Context, roomID uuid.UUID) (*models.Round, error) {
	round, err := c.store.CurrentRound(ctx, roomID)
	if err != nil {
		return nil, c.fail("current_round", err, logrus.Fields{"room_id": roomID})
	}
	return round, nil
}

// DrawCard deals the player the next card of the round. A player who already drew gets the
// same draw back and the deck is not touched. The player must belong to the round's room.
func (c *Coordinator) DrawCard(ctx context.Context, roundID, playerID uuid.UUID) (*models.Draw, error) {
	fields := logrus.Fields{"round_id": roundID, "player_id": playerID}
	round, err := c.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, c.fail("draw_card", err, fields)
	}
	player, err := c.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, c.fail("draw_card", err, fields)
	}
	if player.RoomID != round.RoomID {
		return nil, c.fail("draw_card", models.ErrNotFound, fields)
	}

	draw, round, created, err := c.store.ClaimDraw(ctx, roundID, playerID)
	if err != nil {
		return nil, c.fail("draw_card", err, fields)
	}
	if created {
		c.events.Emit(ctx, events.Draws, events.Insert, draw, nil)
		c.events.Emit(ctx, events.Rounds, events.Update, round, nil)
		c.logger.WithFields(fields).Debugf("Dealt %s from slot %d", deck.DisplayLabel(draw.CardValue), draw.CardIndex)
	}
	return draw, nil
}

// ListDraws returns the round's draws, earliest first.
func (c *Coordinator) ListDraws(ctx context.Context, roundID uuid.UUID) ([]models.Draw, error) {
	draws, err := c.store.ListDraws(ctx, roundID)
	if err != nil {
		return nil, c.fail("list_draws", err, logrus.Fields{"round_id": roundID})
	}
	return draws, nil
}

// FinishGame marks a playing room finished. Finishing a finished room is a no-op.
func (c *Coordinator) FinishGame(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	fields := logrus.Fields{"room_id": roomID}
	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, c.fail("finish_game", err, fields)
	}
	switch room.Status {
	case models.StatusFinished:
		return room, nil
	case models.StatusWaiting:
		return nil, c.fail("finish_game", models.ErrInvalidTransition, fields)
	}
	room, err = c.store.UpdateRoomStatus(ctx, roomID, models.StatusFinished)
	if err != nil {
		return nil, c.fail("finish_game", err, fields)
	}
	c.events.Emit(ctx, events.Rooms, events.Update, room, nil)
	c.logger.WithFields(fields).Info("Game finished")
	return room, nil
}

// ResetGame sends the room back to waiting and clears every ready flag. Rounds and draws
// are kept.
func (c *Coordinator) ResetGame(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	fields := logrus.Fields{"room_id": roomID}
	room, err := c.store.UpdateRoomStatus(ctx, roomID, models.StatusWaiting)
	if err != nil {
		return nil, c.fail("reset_game", err, fields)
	}
	c.events.Emit(ctx, events.Rooms, events.Update, room, nil)

	players, err := c.store.ResetReady(ctx, roomID)
	if err != nil {
		return nil, c.fail("reset_game", err, fields)
	}
	for i := range players {
		c.events.Emit(ctx, events.Players, events.Update, &players[i], nil)
	}
	c.logger.WithFields(fields).Info("Game reset")
	return room, nil
}
