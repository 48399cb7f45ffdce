// internal/database/store.go
package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/jason-s-yu/cardbbang/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is the Postgres implementation of store.Store. Operations that must be atomic run
// inside a transaction holding a row lock on the room or round they touch.
type Store struct {
	DB *pgxpool.Pool
}

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

type rowScanner interface {
	Scan(dest ...any) error
}

const roomColumns = `id, room_code, status, host_player_id, created_at, updated_at`

func scanRoom(row rowScanner) (*models.Room, error) {
	var r models.Room
	var status string
	err := row.Scan(&r.ID, &r.Code, &status, &r.HostPlayerID, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Status = models.RoomStatus(status)
	return &r, nil
}

// InsertRoom creates a new waiting room.
func (s *Store) InsertRoom(ctx context.Context, code string) (*models.Room, error) {
	q := `
	INSERT INTO game_rooms (id, room_code)
	VALUES ($1, $2)
	RETURNING ` + roomColumns
	r, err := scanRoom(s.DB.QueryRow(ctx, q, newID(), code))
	if isUniqueViolation(err) {
		return nil, models.ErrCodeTaken
	}
	return r, store.Wrap("insert room", err)
}

func (s *Store) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM game_rooms WHERE id = $1`
	r, err := scanRoom(s.DB.QueryRow(ctx, q, id))
	return r, store.Wrap("get room", err)
}

func (s *Store) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM game_rooms WHERE room_code = $1`
	r, err := scanRoom(s.DB.QueryRow(ctx, q, code))
	return r, store.Wrap("get room by code", err)
}

func (s *Store) UpdateRoomStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) (*models.Room, error) {
	q := `
	UPDATE game_rooms
	SET status = $2, updated_at = NOW()
	WHERE id = $1
	RETURNING ` + roomColumns
	r, err := scanRoom(s.DB.QueryRow(ctx, q, id, string(status)))
	return r, store.Wrap("update room status", err)
}

// ClaimHost is a single conditional update; concurrent callers cannot both win.
func (s *Store) ClaimHost(ctx context.Context, roomID, playerID uuid.UUID) (*models.Room, bool, error) {
	q := `
	UPDATE game_rooms
	SET host_player_id = $2, updated_at = NOW()
	WHERE id = $1
	  AND (host_player_id IS NULL
	       OR NOT EXISTS (
	           SELECT 1 FROM players p
	           WHERE p.id = game_rooms.host_player_id AND p.room_id = game_rooms.id))
	RETURNING ` + roomColumns
	r, err := scanRoom(s.DB.QueryRow(ctx, q, roomID, playerID))
	if err == nil {
		return r, true, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, store.Wrap("claim host", err)
	}
	// either the room is missing or someone else holds the seat
	r, err = s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	return r, false, nil
}
