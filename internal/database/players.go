package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/jason-s-yu/cardbbang/internal/store"
)

const playerColumns = `id, room_id, nickname, is_ready, joined_at`

func scanPlayer(row rowScanner) (*models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.RoomID, &p.Nickname, &p.IsReady, &p.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPlayers(rows pgx.Rows) ([]models.Player, error) {
	defer rows.Close()
	players := []models.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// InsertPlayer locks the room row, so capacity and status checks cannot interleave with
// another join or with a game start on the same room.
func (s *Store) InsertPlayer(ctx context.Context, roomID uuid.UUID, nickname string, maxPlayers int) (*models.Player, int, error) {
	var (
		player *models.Player
		count  int
	)
	err := pgx.BeginTxFunc(ctx, s.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM game_rooms WHERE id = $1 FOR UPDATE`, roomID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if models.RoomStatus(status) != models.StatusWaiting {
			return models.ErrGameAlreadyStarted
		}
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM players WHERE room_id = $1`, roomID).Scan(&count); err != nil {
			return err
		}
		if count >= maxPlayers {
			return models.ErrRoomFull
		}
		q := `
		INSERT INTO players (id, room_id, nickname)
		VALUES ($1, $2, $3)
		RETURNING ` + playerColumns
		player, err = scanPlayer(tx.QueryRow(ctx, q, newID(), roomID, nickname))
		return err
	})
	if err != nil {
		return nil, count, store.Wrap("insert player", err)
	}
	return player, count, nil
}

func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	q := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	p, err := scanPlayer(s.DB.QueryRow(ctx, q, id))
	return p, store.Wrap("get player", err)
}

func (s *Store) UpdatePlayerReady(ctx context.Context, id uuid.UUID, ready bool) (*models.Player, error) {
	q := `UPDATE players SET is_ready = $2 WHERE id = $1 RETURNING ` + playerColumns
	p, err := scanPlayer(s.DB.QueryRow(ctx, q, id, ready))
	return p, store.Wrap("update player ready", err)
}

func (s *Store) ResetReady(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	if _, err := s.DB.Exec(ctx, `UPDATE players SET is_ready = FALSE WHERE room_id = $1`, roomID); err != nil {
		return nil, store.Wrap("reset ready", err)
	}
	return s.ListPlayers(ctx, roomID)
}

func (s *Store) DeletePlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	q := `DELETE FROM players WHERE id = $1 RETURNING ` + playerColumns
	p, err := scanPlayer(s.DB.QueryRow(ctx, q, id))
	return p, store.Wrap("delete player", err)
}

func (s *Store) ListPlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	q := `SELECT ` + playerColumns + ` FROM players WHERE room_id = $1 ORDER BY joined_at ASC, id ASC`
	rows, err := s.DB.Query(ctx, q, roomID)
	if err != nil {
		return nil, store.Wrap("list players", err)
	}
	players, err := collectPlayers(rows)
	return players, store.Wrap("list players", err)
}

func (s *Store) CountPlayers(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM players WHERE room_id = $1`, roomID).Scan(&n)
	return n, store.Wrap("count players", err)
}
