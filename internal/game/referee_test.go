package game

import (
	"context"
	"testing"
	"time"

	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefereeFinishesOnceEveryoneDrew(t *testing.T) {
	f := setupFixture(t, 8)
	ctx := context.Background()
	ref := NewReferee(f.coord, 20*time.Millisecond, f.logger)
	defer ref.Stop()

	room, players := f.seatPlayers(t, "Alice", "Bob")
	round, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)

	_, err = f.coord.DrawCard(ctx, round.ID, players[0].ID)
	require.NoError(t, err)
	scheduled, err := ref.Observe(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, scheduled, "one player still has to draw")

	_, err = f.coord.DrawCard(ctx, round.ID, players[1].ID)
	require.NoError(t, err)
	scheduled, err = ref.Observe(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, scheduled)
	scheduled, err = ref.Observe(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, scheduled, "finish is only scheduled once")

	assert.Eventually(t, func() bool {
		r, err := f.manager.GetRoom(ctx, room.ID)
		return err == nil && r.Status == models.StatusFinished
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return ref.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRefereeStopCancelsFinish(t *testing.T) {
	f := setupFixture(t, 8)
	ctx := context.Background()
	ref := NewReferee(f.coord, time.Hour, f.logger)

	room, players := f.seatPlayers(t, "Alice", "Bob")
	round, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	for _, p := range players {
		_, err := f.coord.DrawCard(ctx, round.ID, p.ID)
		require.NoError(t, err)
	}
	scheduled, err := ref.Observe(ctx, room.ID)
	require.NoError(t, err)
	require.True(t, scheduled)
	assert.Equal(t, 1, ref.Pending())

	ref.Stop()
	assert.Equal(t, 0, ref.Pending())
	r, err := f.manager.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, r.Status)
}
