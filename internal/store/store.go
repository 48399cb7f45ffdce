// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/models"
)

// Store is the persistence collaborator behind the room manager and the round coordinator.
// It covers the rooms, players, rounds and draws collections. Lookups of a single record
// return models.ErrNotFound when nothing matches.
//
// The methods marked atomic must be safe against concurrent callers touching the same
// room or round; the game's exactly-once guarantees rest on them.
type Store interface {
	// InsertRoom creates a waiting room with no host. Returns models.ErrCodeTaken if code is in use.
	InsertRoom(ctx context.Context, code string) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	UpdateRoomStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) (*models.Room, error)

	// ClaimHost sets the room's host to playerID if the room has no host or its host is no
	// longer a member. It reports whether the claim won. Atomic.
	ClaimHost(ctx context.Context, roomID, playerID uuid.UUID) (*models.Room, bool, error)

	// InsertPlayer admits a player to a waiting room holding fewer than maxPlayers players.
	// It returns the player and the number of players that were present before it.
	// Fails with models.ErrNotFound, models.ErrGameAlreadyStarted or models.ErrRoomFull. Atomic.
	InsertPlayer(ctx context.Context, roomID uuid.UUID, nickname string, maxPlayers int) (*models.Player, int, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	UpdatePlayerReady(ctx context.Context, id uuid.UUID, ready bool) (*models.Player, error)
	// ResetReady clears is_ready for every player of the room and returns the players.
	ResetReady(ctx context.Context, roomID uuid.UUID) ([]models.Player, error)
	DeletePlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	// ListPlayers returns the room's players by join time, oldest first.
	ListPlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error)
	CountPlayers(ctx context.Context, roomID uuid.UUID) (int, error)

	// StartRound moves a waiting room to playing and inserts its next round with the given
	// deck, numbered one past the room's highest round. Fails with models.ErrInvalidTransition
	// if the room is not waiting. Both writes land together or not at all. Atomic.
	StartRound(ctx context.Context, roomID uuid.UUID, deck []int) (*models.Room, *models.Round, error)
	// InsertRound adds a round without touching the room status.
	InsertRound(ctx context.Context, roomID uuid.UUID, deck []int) (*models.Round, error)
	GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error)
	// CurrentRound returns the room's round with the highest round number.
	CurrentRound(ctx context.Context, roomID uuid.UUID) (*models.Round, error)
	// ListRounds returns the room's rounds by round number, oldest first.
	ListRounds(ctx context.Context, roomID uuid.UUID) ([]models.Round, error)
	// PruneRounds deletes all but the newest keep rounds of a room, with their draws.
	PruneRounds(ctx context.Context, roomID uuid.UUID, keep int) (int, error)

	// ClaimDraw returns the existing draw for (roundID, playerID) or deals the card at the
	// round's cursor and advances it by one. created is false when an existing draw was
	// returned. Fails with models.ErrDeckExhausted when no card is left. Atomic.
	ClaimDraw(ctx context.Context, roundID, playerID uuid.UUID) (draw *models.Draw, round *models.Round, created bool, err error)
	// ListDraws returns the round's draws by draw time, then by deck slot.
	ListDraws(ctx context.Context, roundID uuid.UUID) ([]models.Draw, error)
}

var domainErrors = []error{
	models.ErrNotFound,
	models.ErrRoomFull,
	models.ErrGameAlreadyStarted,
	models.ErrInvalidTransition,
	models.ErrDeckExhausted,
	models.ErrCodeTaken,
}

// Wrap passes domain errors through and marks anything else as models.ErrStoreFailure,
// keeping the underlying cause reachable with errors.Is / errors.As.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, de := range domainErrors {
		if errors.Is(err, de) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreFailure, err)
}
