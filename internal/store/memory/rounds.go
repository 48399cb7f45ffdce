package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/models"
)

func (s *Store) roomRoundsLocked(roomID uuid.UUID) []*models.Round {
	var out []*models.Round
	for _, r := range s.rounds {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out
}

func (s *Store) insertRoundLocked(roomID uuid.UUID, deck []int) *models.Round {
	number := 1
	if rs := s.roomRoundsLocked(roomID); len(rs) > 0 {
		number = rs[len(rs)-1].RoundNumber + 1
	}
	r := &models.Round{
		ID:           newID(),
		RoomID:       roomID,
		RoundNumber:  number,
		ShuffledDeck: slices.Clone(deck),
		CreatedAt:    s.Now(),
	}
	s.rounds = append(s.rounds, r)
	return r
}

func (s *Store) StartRound(ctx context.Context, roomID uuid.UUID, deck []int) (*models.Room, *models.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.roomLocked(roomID)
	if room == nil {
		return nil, nil, models.ErrNotFound
	}
	if room.Status != models.StatusWaiting {
		return copyRoom(room), nil, models.ErrInvalidTransition
	}
	room.Status = models.StatusPlaying
	room.UpdatedAt = s.Now()
	round := s.insertRoundLocked(roomID, deck)
	return copyRoom(room), copyRound(round), nil
}

func (s *Store) InsertRound(ctx context.Context, roomID uuid.UUID, deck []int) (*models.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomLocked(roomID) == nil {
		return nil, models.ErrNotFound
	}
	return copyRound(s.insertRoundLocked(roomID, deck)), nil
}

func (s *Store) roundLocked(id uuid.UUID) *models.Round {
	for _, r := range s.rounds {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) GetRound(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roundLocked(id)
	if r == nil {
		return nil, models.ErrNotFound
	}
	return copyRound(r), nil
}

func (s *Store) CurrentRound(ctx context.Context, roomID uuid.UUID) (*models.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.roomRoundsLocked(roomID)
	if len(rs) == 0 {
		return nil, models.ErrNotFound
	}
	return copyRound(rs[len(rs)-1]), nil
}

func (s *Store) ListRounds(ctx context.Context, roomID uuid.UUID) ([]models.Round, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.roomRoundsLocked(roomID)
	out := make([]models.Round, 0, len(rs))
	for _, r := range rs {
		out = append(out, *copyRound(r))
	}
	return out, nil
}

func (s *Store) PruneRounds(ctx context.Context, roomID uuid.UUID, keep int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.roomRoundsLocked(roomID)
	if keep < 0 || len(rs) <= keep {
		return 0, nil
	}
	doomed := make(map[uuid.UUID]bool)
	for _, r := range rs[:len(rs)-keep] {
		doomed[r.ID] = true
	}
	s.rounds = slices.DeleteFunc(s.rounds, func(r *models.Round) bool { return doomed[r.ID] })
	s.draws = slices.DeleteFunc(s.draws, func(d *models.Draw) bool { return doomed[d.RoundID] })
	return len(doomed), nil
}

func (s *Store) ClaimDraw(ctx context.Context, roundID, playerID uuid.UUID) (*models.Draw, *models.Round, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	round := s.roundLocked(roundID)
	if round == nil {
		return nil, nil, false, models.ErrNotFound
	}
	for _, d := range s.draws {
		if d.RoundID == roundID && d.PlayerID == playerID {
			c := *d
			return &c, copyRound(round), false, nil
		}
	}
	if round.Exhausted() {
		return nil, copyRound(round), false, models.ErrDeckExhausted
	}
	idx := round.NextCardIndex
	d := &models.Draw{
		ID:        newID(),
		RoundID:   roundID,
		PlayerID:  playerID,
		CardValue: round.ShuffledDeck[idx],
		CardIndex: idx,
		DrawnAt:   s.Now(),
	}
	s.draws = append(s.draws, d)
	round.NextCardIndex = idx + 1
	c := *d
	return &c, copyRound(round), true, nil
}

func (s *Store) ListDraws(ctx context.Context, roundID uuid.UUID) ([]models.Draw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Draw
	for _, d := range s.draws {
		if d.RoundID == roundID {
			out = append(out, *d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DrawnAt.Equal(out[j].DrawnAt) {
			return out[i].DrawnAt.Before(out[j].DrawnAt)
		}
		return out[i].CardIndex < out[j].CardIndex
	})
	return out, nil
}
