// internal/deck/deck.go
package deck

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Size is the number of cards in a deck, one of each value from Ace (1) to King (13).
const Size = 13

// CodeLength is the number of characters in a room code.
const CodeLength = 6

// CodeAlphabet holds the 32 symbols a room code is drawn from. I, O, 0 and 1 are left
// out so codes can be read aloud and typed without confusion.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Source is the randomness a shuffle or code generation draws from.
// *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// NewSource returns a Source seeded from the current time.
func NewSource() Source {
	return &lockedSource{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededSource returns a deterministic Source, used by tests to fix the deal.
func NewSeededSource(seed int64) Source {
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

// BuildDeck returns the ordered deck [1..13].
func BuildDeck() []int {
	deck := make([]int, Size)
	for i := range deck {
		deck[i] = i + 1
	}
	return deck
}

// Shuffle returns a Fisher-Yates permutation of deck. The input slice is left untouched.
func Shuffle(deck []int, src Source) []int {
	shuffled := make([]int, len(deck))
	copy(shuffled, deck)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// NewShuffledDeck builds and shuffles a fresh deck.
func NewShuffledDeck(src Source) []int {
	return Shuffle(BuildDeck(), src)
}

// DisplayLabel maps a card value to the label shown to players.
// Ordering in the game always uses the raw value.
func DisplayLabel(value int) string {
	switch value {
	case 1:
		return "A"
	case 11:
		return "J"
	case 12:
		return "Q"
	case 13:
		return "K"
	default:
		return strconv.Itoa(value)
	}
}

// GenerateRoomCode draws CodeLength independent symbols from CodeAlphabet.
// Uniqueness is not guaranteed here.
func GenerateRoomCode(src Source) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(CodeAlphabet[src.Intn(len(CodeAlphabet))])
	}
	return b.String()
}

// ValidRoomCode reports whether code has the shape of a generated room code.
func ValidRoomCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
