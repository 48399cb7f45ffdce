package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/jason-s-yu/cardbbang/internal/store"
)

const roundColumns = `id, room_id, round_number, shuffled_deck, next_card_index, created_at`

const drawColumns = `id, round_id, player_id, card_value, card_index, drawn_at`

func scanRound(row rowScanner) (*models.Round, error) {
	var r models.Round
	err := row.Scan(&r.ID, &r.RoomID, &r.RoundNumber, &r.ShuffledDeck, &r.NextCardIndex, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanDraw(row rowScanner) (*models.Draw, error) {
	var d models.Draw
	err := row.Scan(&d.ID, &d.RoundID, &d.PlayerID, &d.CardValue, &d.CardIndex, &d.DrawnAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// insertRound numbers the round one past the room's highest. Callers hold the room lock.
func insertRound(ctx context.Context, tx pgx.Tx, roomID uuid.UUID, deck []int) (*models.Round, error) {
	q := `
	INSERT INTO game_rounds (id, room_id, round_number, shuffled_deck)
	VALUES ($1, $2,
	        (SELECT COALESCE(MAX(round_number), 0) + 1 FROM game_rounds WHERE room_id = $2),
	        $3)
	RETURNING ` + roundColumns
	return scanRound(tx.QueryRow(ctx, q, newID(), roomID, deck))
}

func lockRoom(ctx context.Context, tx pgx.Tx, roomID uuid.UUID) (*models.Room, error) {
	q := `SELECT ` + roomColumns + ` FROM game_rooms WHERE id = $1 FOR UPDATE`
	return scanRoom(tx.QueryRow(ctx, q, roomID))
}

// StartRound flips the room to playing and inserts the round in one transaction.
func (s *Store) StartRound(ctx context.Context, roomID uuid.UUID, deck []int) (*models.Room, *models.Round, error) {
	var (
		room  *models.Room
		round *models.Round
	)
	err := pgx.BeginTxFunc(ctx, s.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		room, err = lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if room.Status != models.StatusWaiting {
			return models.ErrInvalidTransition
		}
		q := `
		UPDATE game_rooms SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + roomColumns
		room, err = scanRoom(tx.QueryRow(ctx, q, roomID, string(models.StatusPlaying)))
		if err != nil {
			return err
		}
		round, err = insertRound(ctx, tx, roomID, deck)
		return err
	})
	if err != nil {
		return room, nil, store.Wrap("start round", err)
	}
	return room, round, nil
}

func (s *Store) InsertRound(ctx context.Context, roomID uuid.UUID, deck []int) (*models.Round, error) {
	var round *models.Round
	err := pgx.BeginTxFunc(ctx, s.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := lockRoom(ctx, tx, roomID); err != nil {
			return err
		}
		var err error
		round, err = insertRound(ctx, tx, roomID, deck)
		return err
	})
	if err != nil {
		return nil, store.Wrap("insert round", err)
	}
	return round, nil
}

func (s *Store) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	q := `SELECT ` + roundColumns + ` FROM game_rounds WHERE id = $1`
	r, err := scanRound(s.DB.QueryRow(ctx, q, id))
	return r, store.Wrap("get round", err)
}

func (s *Store) CurrentRound(ctx context.Context, roomID uuid.UUID) (*models.Round, error) {
	q := `
	SELECT ` + roundColumns + `
	FROM game_rounds
	WHERE room_id = $1
	ORDER BY round_number DESC
	LIMIT 1`
	r, err := scanRound(s.DB.QueryRow(ctx, q, roomID))
	return r, store.Wrap("current round", err)
}

func (s *Store) ListRounds(ctx context.Context, roomID uuid.UUID) ([]models.Round, error) {
	q := `SELECT ` + roundColumns + ` FROM game_rounds WHERE room_id = $1 ORDER BY round_number ASC`
	rows, err := s.DB.Query(ctx, q, roomID)
	if err != nil {
		return nil, store.Wrap("list rounds", err)
	}
	defer rows.Close()

	rounds := []models.Round{}
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, store.Wrap("list rounds", err)
		}
		rounds = append(rounds, *r)
	}
	return rounds, store.Wrap("list rounds", rows.Err())
}

// PruneRounds relies on ON DELETE CASCADE to drop the draws of removed rounds.
func (s *Store) PruneRounds(ctx context.Context, roomID uuid.UUID, keep int) (int, error) {
	if keep < 0 {
		return 0, nil
	}
	q := `
	DELETE FROM game_rounds
	WHERE room_id = $1
	  AND round_number <= (SELECT MAX(round_number) - $2 FROM game_rounds WHERE room_id = $1)`
	tag, err := s.DB.Exec(ctx, q, roomID, keep)
	if err != nil {
		return 0, store.Wrap("prune rounds", err)
	}
	return int(tag.RowsAffected()), nil
}

// ClaimDraw locks the round row for the whole read-check-insert-advance sequence. The
// unique (round_id, player_id) and (round_id, card_index) indexes back it up.
func (s *Store) ClaimDraw(ctx context.Context, roundID, playerID uuid.UUID) (*models.Draw, *models.Round, bool, error) {
	var (
		draw    *models.Draw
		round   *models.Round
		created bool
	)
	err := pgx.BeginTxFunc(ctx, s.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		q := `SELECT ` + roundColumns + ` FROM game_rounds WHERE id = $1 FOR UPDATE`
		round, err = scanRound(tx.QueryRow(ctx, q, roundID))
		if err != nil {
			return err
		}

		q = `SELECT ` + drawColumns + ` FROM card_draws WHERE round_id = $1 AND player_id = $2`
		draw, err = scanDraw(tx.QueryRow(ctx, q, roundID, playerID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if round.Exhausted() {
			return models.ErrDeckExhausted
		}

		idx := round.NextCardIndex
		q = `
		INSERT INTO card_draws (id, round_id, player_id, card_value, card_index)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + drawColumns
		draw, err = scanDraw(tx.QueryRow(ctx, q, newID(), roundID, playerID, round.ShuffledDeck[idx], idx))
		if err != nil {
			return err
		}
		q = `UPDATE game_rounds SET next_card_index = $2 WHERE id = $1 RETURNING ` + roundColumns
		round, err = scanRound(tx.QueryRow(ctx, q, roundID, idx+1))
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, round, false, store.Wrap("claim draw", err)
	}
	return draw, round, created, nil
}

func (s *Store) ListDraws(ctx context.Context, roundID uuid.UUID) ([]models.Draw, error) {
	q := `SELECT ` + drawColumns + ` FROM card_draws WHERE round_id = $1 ORDER BY drawn_at ASC, card_index ASC`
	rows, err := s.DB.Query(ctx, q, roundID)
	if err != nil {
		return nil, store.Wrap("list draws", err)
	}
	defer rows.Close()

	draws := []models.Draw{}
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, store.Wrap("list draws", err)
		}
		draws = append(draws, *d)
	}
	return draws, store.Wrap("list draws", rows.Err())
}
