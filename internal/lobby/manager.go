// internal/lobby/manager.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/deck"
	"github.com/jason-s-yu/cardbbang/internal/events"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/jason-s-yu/cardbbang/internal/store"
	"github.com/sirupsen/logrus"
)

// codeAttempts bounds how many fresh codes CreateRoom tries before giving up.
const codeAttempts = 5

// Manager creates rooms and admits or removes players.
type Manager struct {
	store  store.Store
	events *events.Publisher
	logger *logrus.Logger
	rng    deck.Source
}

// NewManager wires a Manager. rng generates room codes; nil selects a time-seeded source.
func NewManager(st store.Store, pub *events.Publisher, logger *logrus.Logger, rng deck.Source) *Manager {
	if rng == nil {
		rng = deck.NewSource()
	}
	return &Manager{store: st, events: pub, logger: logger, rng: rng}
}

// NormalizeCode canonicalizes a user-typed room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeNickname trims the nickname and checks its length.
func NormalizeNickname(nickname string) (string, error) {
	n := strings.TrimSpace(nickname)
	if n == "" || utf8.RuneCountInString(n) > models.MaxNicknameLength {
		return "", models.ErrInvalidNickname
	}
	return n, nil
}

// CanStart reports whether a game may start: at least two players, all ready.
func CanStart(players []models.Player) bool {
	if len(players) < 2 {
		return false
	}
	for _, p := range players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// fail logs a failed operation and hands the error back.
func (m *Manager) fail(op string, err error, fields logrus.Fields) error {
	entry := m.logger.WithFields(fields).WithField("op", op)
	if errors.Is(err, models.ErrStoreFailure) {
		entry.Errorf("%v", err)
	} else {
		entry.Infof("%v", err)
	}
	return err
}

// CreateRoom creates an empty waiting room under a fresh code. A code already in use is
// replaced by another one.
func (m *Manager) CreateRoom(ctx context.Context) (*models.Room, error) {
	var err error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := deck.GenerateRoomCode(m.rng)
		var room *models.Room
		room, err = m.store.InsertRoom(ctx, code)
		if errors.Is(err, models.ErrCodeTaken) {
			m.logger.Debugf("room code %s taken, retrying", code)
			continue
		}
		if err != nil {
			return nil, m.fail("create_room", err, nil)
		}
		m.events.Emit(ctx, events.Rooms, events.Insert, room, nil)
		m.logger.WithField("room_id", room.ID).Infof("Room %s created", room.Code)
		return room, nil
	}
	return nil, m.fail("create_room", fmt.Errorf("create room: %w: %w", models.ErrStoreFailure, err), nil)
}

func (m *Manager) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := m.store.GetRoom(ctx, id)
	if err != nil {
		return nil, m.fail("get_room", err, logrus.Fields{"room_id": id})
	}
	return room, nil
}

// GetRoomByCode resolves a room by code, ignoring case and surrounding spaces.
func (m *Manager) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	room, err := m.store.GetRoomByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, m.fail("get_room_by_code", err, logrus.Fields{"code": code})
	}
	return room, nil
}

// JoinRoom admits a new player to the room with the given code. The first player admitted
// to an empty room becomes its host. The returned room reflects the host assignment.
func (m *Manager) JoinRoom(ctx context.Context, code, nickname string) (*models.Room, *models.Player, error) {
	fields := logrus.Fields{"code": code}
	name, err := NormalizeNickname(nickname)
	if err != nil {
		return nil, nil, m.fail("join_room", err, fields)
	}
	room, err := m.store.GetRoomByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, nil, m.fail("join_room", err, fields)
	}
	fields["room_id"] = room.ID

	player, before, err := m.store.InsertPlayer(ctx, room.ID, name, models.MaxPlayers)
	if err != nil {
		return nil, nil, m.fail("join_room", err, fields)
	}
	fields["player_id"] = player.ID
	m.events.Emit(ctx, events.Players, events.Insert, player, nil)

	if before == 0 {
		updated, won, err := m.store.ClaimHost(ctx, room.ID, player.ID)
		if err != nil {
			return nil, nil, m.fail("join_room", err, fields)
		}
		room = updated
		if won {
			m.events.Emit(ctx, events.Rooms, events.Update, room, nil)
			m.logger.WithFields(fields).Info("Player became host")
		}
	}

	m.logger.WithFields(fields).Infof("Player %q joined", name)
	return room, player, nil
}

// UpdateReady sets a player's ready flag. Setting the current value again is harmless.
func (m *Manager) UpdateReady(ctx context.Context, playerID uuid.UUID, ready bool) (*models.Player, error) {
	player, err := m.store.UpdatePlayerReady(ctx, playerID, ready)
	if err != nil {
		return nil, m.fail("update_ready", err, logrus.Fields{"player_id": playerID})
	}
	m.events.Emit(ctx, events.Players, events.Update, player, nil)
	return player, nil
}

// LeaveRoom removes the player. The host seat is not handed over.
func (m *Manager) LeaveRoom(ctx context.Context, playerID uuid.UUID) (*models.Player, error) {
	player, err := m.store.DeletePlayer(ctx, playerID)
	if err != nil {
		return nil, m.fail("leave_room", err, logrus.Fields{"player_id": playerID})
	}
	m.events.Emit(ctx, events.Players, events.Delete, nil, player)
	m.logger.WithFields(logrus.Fields{
		"room_id":   player.RoomID,
		"player_id": player.ID,
	}).Info("Player left")
	return player, nil
}

// ListPlayers returns the room's players in join order.
func (m *Manager) ListPlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	players, err := m.store.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, m.fail("list_players", err, logrus.Fields{"room_id": roomID})
	}
	return players, nil
}

// GetPlayer looks up one player.
func (m *Manager) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	player, err := m.store.GetPlayer(ctx, id)
	if err != nil {
		return nil, m.fail("get_player", err, logrus.Fields{"player_id": id})
	}
	return player, nil
}
