package deck

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeck(t *testing.T) {
	d := BuildDeck()
	require.Len(t, d, Size)
	for i, v := range d {
		assert.Equal(t, i+1, v, "deck should be ordered 1..13")
	}
}

func TestShuffleKeepsValuesAndInput(t *testing.T) {
	src := NewSeededSource(42)
	orig := BuildDeck()
	for trial := 0; trial < 50; trial++ {
		s := Shuffle(orig, src)
		require.Len(t, s, Size)
		assert.ElementsMatch(t, BuildDeck(), s, "shuffle must be a permutation")
	}
	assert.Equal(t, BuildDeck(), orig, "input deck must not be mutated")
}

func TestShuffleIsDeterministicForSeed(t *testing.T) {
	a := NewShuffledDeck(NewSeededSource(7))
	b := NewShuffledDeck(NewSeededSource(7))
	assert.Equal(t, a, b)
}

// TestShufflePositionDistribution checks each value lands in position 0 roughly 1/13 of the time.
func TestShufflePositionDistribution(t *testing.T) {
	const trials = 26000
	src := NewSeededSource(1)
	counts := make(map[int]int)
	for i := 0; i < trials; i++ {
		counts[NewShuffledDeck(src)[0]]++
	}
	expected := trials / Size
	for v := 1; v <= Size; v++ {
		assert.InDelta(t, expected, counts[v], float64(expected)*0.2, "value %d in slot 0", v)
	}
}

func TestDisplayLabel(t *testing.T) {
	cases := map[int]string{1: "A", 2: "2", 10: "10", 11: "J", 12: "Q", 13: "K"}
	for v, want := range cases {
		assert.Equal(t, want, DisplayLabel(v))
	}
}

func TestGenerateRoomCode(t *testing.T) {
	src := NewSource()
	for i := 0; i < 500; i++ {
		code := GenerateRoomCode(src)
		require.Len(t, code, CodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(CodeAlphabet, c), "unexpected symbol %q", c)
		}
		assert.True(t, ValidRoomCode(code))
	}
	assert.Len(t, CodeAlphabet, 32)
}

func TestValidRoomCode(t *testing.T) {
	assert.False(t, ValidRoomCode("ABC"))
	assert.False(t, ValidRoomCode("ABCDE0"), "0 is excluded")
	assert.False(t, ValidRoomCode("abcdef"))
	assert.True(t, ValidRoomCode("AB23XY"))
}
