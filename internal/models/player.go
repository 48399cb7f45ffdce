package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxNicknameLength is counted in runes, after trimming.
const MaxNicknameLength = 20

// Player is a participant bound to one room. Its ID is the opaque token the client keeps.
type Player struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	Nickname string    `json:"nickname"`
	IsReady  bool      `json:"is_ready"`
	JoinedAt time.Time `json:"joined_at"`
}
