package models

import (
	"time"

	"github.com/google/uuid"
)

// Round is one shuffled-deck-and-draw cycle within a room.
type Round struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	RoundNumber  int       `json:"round_number"`
	ShuffledDeck []int     `json:"shuffled_deck"`

	// NextCardIndex is the deck slot the next draw will take. It never exceeds len(ShuffledDeck).
	NextCardIndex int `json:"next_card_index"`

	CreatedAt time.Time `json:"created_at"`
}

// Exhausted reports whether every card of the deck has been dealt.
func (r *Round) Exhausted() bool {
	return r.NextCardIndex >= len(r.ShuffledDeck)
}

// Draw is the single card dealt to one player within a round. Immutable once created.
type Draw struct {
	ID        uuid.UUID `json:"id"`
	RoundID   uuid.UUID `json:"round_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	CardValue int       `json:"card_value"`
	CardIndex int       `json:"card_index"`
	DrawnAt   time.Time `json:"drawn_at"`
}
