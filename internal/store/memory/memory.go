// internal/store/memory/memory.go
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/jason-s-yu/cardbbang/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every collection in memory behind a single mutex, which makes each method
// atomic with respect to the others. Records are kept in insertion order so that equal
// timestamps still list in the order they were written.
type Store struct {
	mu      sync.Mutex
	rooms   []*models.Room
	players []*models.Player
	rounds  []*models.Round
	draws   []*models.Draw

	// Now stamps created/updated times. Overridable in tests.
	Now func() time.Time
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{Now: func() time.Time { return time.Now().UTC() }}
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func copyRoom(r *models.Room) *models.Room {
	c := *r
	if r.HostPlayerID != nil {
		h := *r.HostPlayerID
		c.HostPlayerID = &h
	}
	return &c
}

func copyRound(r *models.Round) *models.Round {
	c := *r
	c.ShuffledDeck = slices.Clone(r.ShuffledDeck)
	return &c
}

func (s *Store) InsertRoom(ctx context.Context, code string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomByCodeLocked(code) != nil {
		return nil, models.ErrCodeTaken
	}
	now := s.Now()
	r := &models.Room{
		ID:        newID(),
		Code:      code,
		Status:    models.StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.rooms = append(s.rooms, r)
	return copyRoom(r), nil
}

func (s *Store) roomLocked(id uuid.UUID) *models.Room {
	for _, r := range s.rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) roomByCodeLocked(code string) *models.Room {
	for _, r := range s.rooms {
		if r.Code == code {
			return r
		}
	}
	return nil
}

func (s *Store) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roomLocked(id)
	if r == nil {
		return nil, models.ErrNotFound
	}
	return copyRoom(r), nil
}

func (s *Store) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roomByCodeLocked(code)
	if r == nil {
		return nil, models.ErrNotFound
	}
	return copyRoom(r), nil
}

func (s *Store) UpdateRoomStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roomLocked(id)
	if r == nil {
		return nil, models.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = s.Now()
	return copyRoom(r), nil
}

func (s *Store) ClaimHost(ctx context.Context, roomID, playerID uuid.UUID) (*models.Room, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roomLocked(roomID)
	if r == nil {
		return nil, false, models.ErrNotFound
	}
	if r.HostPlayerID != nil {
		if host := s.playerLocked(*r.HostPlayerID); host != nil && host.RoomID == roomID {
			return copyRoom(r), false, nil
		}
	}
	id := playerID
	r.HostPlayerID = &id
	r.UpdatedAt = s.Now()
	return copyRoom(r), true, nil
}

func (s *Store) playerLocked(id uuid.UUID) *models.Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Store) roomPlayersLocked(roomID uuid.UUID) []*models.Player {
	var out []*models.Player
	for _, p := range s.players {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) InsertPlayer(ctx context.Context, roomID uuid.UUID, nickname string, maxPlayers int) (*models.Player, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.roomLocked(roomID)
	if r == nil {
		return nil, 0, models.ErrNotFound
	}
	if r.Status != models.StatusWaiting {
		return nil, 0, models.ErrGameAlreadyStarted
	}
	count := len(s.roomPlayersLocked(roomID))
	if count >= maxPlayers {
		return nil, count, models.ErrRoomFull
	}
	p := &models.Player{
		ID:       newID(),
		RoomID:   roomID,
		Nickname: nickname,
		JoinedAt: s.Now(),
	}
	s.players = append(s.players, p)
	c := *p
	return &c, count, nil
}

func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerLocked(id)
	if p == nil {
		return nil, models.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (s *Store) UpdatePlayerReady(ctx context.Context, id uuid.UUID, ready bool) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerLocked(id)
	if p == nil {
		return nil, models.ErrNotFound
	}
	p.IsReady = ready
	c := *p
	return &c, nil
}

func (s *Store) ResetReady(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.roomPlayersLocked(roomID)
	for _, p := range ps {
		p.IsReady = false
	}
	return sortedPlayers(ps), nil
}

func (s *Store) DeletePlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.players {
		if p.ID == id {
			s.players = append(s.players[:i], s.players[i+1:]...)
			c := *p
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func sortedPlayers(ps []*models.Player) []models.Player {
	out := make([]models.Player, 0, len(ps))
	for _, p := range ps {
		out = append(out, *p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}

func (s *Store) ListPlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedPlayers(s.roomPlayersLocked(roomID)), nil
}

func (s *Store) CountPlayers(ctx context.Context, roomID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.roomPlayersLocked(roomID)), nil
}
