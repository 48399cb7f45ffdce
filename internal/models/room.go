// internal/models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the phase of a room's state machine: waiting -> playing -> finished -> waiting.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// MaxPlayers is the capacity of a room.
const MaxPlayers = 4

// Room is a shared game session addressed by a short code.
type Room struct {
	ID     uuid.UUID  `json:"id"`
	Code   string     `json:"room_code"`
	Status RoomStatus `json:"status"`

	// HostPlayerID is nil until the first player joins.
	HostPlayerID *uuid.UUID `json:"host_player_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsHost reports whether playerID is the room's host.
func (r *Room) IsHost(playerID uuid.UUID) bool {
	return r.HostPlayerID != nil && *r.HostPlayerID == playerID
}
