package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/cardbbang/internal/deck"
	"github.com/jason-s-yu/cardbbang/internal/events"
	"github.com/jason-s-yu/cardbbang/internal/lobby"
	"github.com/jason-s-yu/cardbbang/internal/models"
	"github.com/jason-s-yu/cardbbang/internal/store/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *memory.Store
	bus     *events.LocalBus
	manager *lobby.Manager
	coord   *Coordinator
	logger  *logrus.Logger
}

func setupFixture(t *testing.T, seed int64) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	st := memory.New()
	bus := events.NewLocalBus(logger)
	t.Cleanup(func() { bus.Close() })
	pub := &events.Publisher{Bus: bus, Logger: logger}
	return &fixture{
		store:   st,
		bus:     bus,
		manager: lobby.NewManager(st, pub, logger, nil),
		coord:   NewCoordinator(st, pub, logger, deck.NewSeededSource(seed)),
		logger:  logger,
	}
}

// seatPlayers creates a room and joins the given nicknames in order.
func (f *fixture) seatPlayers(t *testing.T, names ...string) (*models.Room, []*models.Player) {
	t.Helper()
	ctx := context.Background()
	room, err := f.manager.CreateRoom(ctx)
	require.NoError(t, err)
	players := make([]*models.Player, 0, len(names))
	for _, n := range names {
		_, p, err := f.manager.JoinRoom(ctx, room.Code, n)
		require.NoError(t, err)
		players = append(players, p)
	}
	return room, players
}

func TestStartGameCreatesRound(t *testing.T) {
	f := setupFixture(t, 1)
	ctx := context.Background()
	room, _ := f.seatPlayers(t, "Alice", "Bob")

	sub, err := f.bus.Subscribe(ctx, events.Rounds, events.Filter{Field: "room_id", Value: room.ID.String()})
	require.NoError(t, err)
	defer sub.Close()

	round, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, round.RoundNumber)
	assert.Equal(t, 0, round.NextCardIndex)
	assert.ElementsMatch(t, deck.BuildDeck(), round.ShuffledDeck)

	got, err := f.manager.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, got.Status)

	require.Len(t, sub.C, 1)
	assert.Equal(t, events.Insert, (<-sub.C).Kind)
}

func TestStartGameIsIdempotentWhilePlaying(t *testing.T) {
	f := setupFixture(t, 1)
	ctx := context.Background()
	room, _ := f.seatPlayers(t, "Alice", "Bob")

	first, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	again, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	rounds, err := f.store.ListRounds(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, rounds, 1)
}

func TestStartGameRepairsPlayingRoomWithoutRound(t *testing.T) {
	f := setupFixture(t, 1)
	ctx := context.Background()
	room, _ := f.seatPlayers(t, "Alice", "Bob")

	_, err := f.store.UpdateRoomStatus(ctx, room.ID, models.StatusPlaying)
	require.NoError(t, err)
	_, err = f.coord.CurrentRound(ctx, room.ID)
	require.ErrorIs(t, err, models.ErrNotFound)

	round, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, round.RoundNumber)
}

func TestStartGameRejectsFinishedRoom(t *testing.T) {
	f := setupFixture(t, 1)
	ctx := context.Background()
	room, _ := f.seatPlayers(t, "Alice", "Bob")

	_, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	_, err = f.coord.FinishGame(ctx, room.ID)
	require.NoError(t, err)

	_, err = f.coord.StartGame(ctx, room.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	_, err = f.coord.StartGame(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDrawCardIsIdempotent(t *testing.T) {
	f := setupFixture(t, 5)
	ctx := context.Background()
	room, players := f.seatPlayers(t, "Alice", "Bob")
	round, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)

	d1, err := f.coord.DrawCard(ctx, round.ID, players[0].ID)
	require.NoError(t, err)
	d2, err := f.coord.DrawCard(ctx, round.ID, players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, *d1, *d2)
	assert.Equal(t, round.ShuffledDeck[0], d1.CardValue)

	cur, err := f.coord.CurrentRound(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cur.NextCardIndex, "cursor advances once")
}

func TestDrawCardRejectsPlayerFromAnotherRoom(t *testing.T) {
	f := setupFixture(t, 5)
	ctx := context.Background()
	room, _ := f.seatPlayers(t, "Alice", "Bob")
	_, outsiders := f.seatPlayers(t, "Mallory")
	round, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)

	_, err = f.coord.DrawCard(ctx, round.ID, outsiders[0].ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.coord.DrawCard(ctx, uuid.New(), outsiders[0].ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConcurrentDrawsDealDistinctCards(t *testing.T) {
	f := setupFixture(t, 11)
	ctx := context.Background()
	room, players := f.seatPlayers(t, "A", "B", "C", "D")
	round, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, p := range players {
		for k := 0; k < 5; k++ {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				_, err := f.coord.DrawCard(ctx, round.ID, id)
				assert.NoError(t, err)
			}(p.ID)
		}
	}
	wg.Wait()

	draws, err := f.coord.ListDraws(ctx, round.ID)
	require.NoError(t, err)
	require.Len(t, draws, 4)
	seen := map[int]bool{}
	for _, d := range draws {
		assert.False(t, seen[d.CardValue], "card %d dealt twice", d.CardValue)
		seen[d.CardValue] = true
	}
	assert.ElementsMatch(t, round.ShuffledDeck[:4], []int{draws[0].CardValue, draws[1].CardValue, draws[2].CardValue, draws[3].CardValue})

	cur, _ := f.coord.CurrentRound(ctx, room.ID)
	assert.Equal(t, 4, cur.NextCardIndex)
}

func TestEndToEndGame(t *testing.T) {
	f := setupFixture(t, 2024)
	ctx := context.Background()

	room, err := f.manager.CreateRoom(ctx)
	require.NoError(t, err)
	_, alice, err := f.manager.JoinRoom(ctx, room.Code, "Alice")
	require.NoError(t, err)
	_, bob, err := f.manager.JoinRoom(ctx, room.Code, "Bob")
	require.NoError(t, err)
	_, err = f.manager.UpdateReady(ctx, alice.ID, true)
	require.NoError(t, err)
	_, err = f.manager.UpdateReady(ctx, bob.ID, true)
	require.NoError(t, err)

	players, err := f.manager.ListPlayers(ctx, room.ID)
	require.NoError(t, err)
	require.True(t, lobby.CanStart(players))

	round, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	aliceDraw, err := f.coord.DrawCard(ctx, round.ID, alice.ID)
	require.NoError(t, err)
	bobDraw, err := f.coord.DrawCard(ctx, round.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, round.ShuffledDeck[0], aliceDraw.CardValue)
	assert.Equal(t, round.ShuffledDeck[1], bobDraw.CardValue)

	progress, err := f.coord.Progress(ctx, room.ID)
	require.NoError(t, err)
	require.True(t, progress.AllDrawn)
	require.NotNil(t, progress.Loser)
	expected := alice.ID
	if bobDraw.CardValue < aliceDraw.CardValue {
		expected = bob.ID
	}
	assert.Equal(t, expected, progress.Loser.PlayerID)

	finished, err := f.coord.FinishGame(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, finished.Status)

	// the same seed deals the same deck
	again := setupFixture(t, 2024)
	r2, _ := again.seatPlayers(t, "Alice", "Bob")
	round2, err := again.coord.StartGame(ctx, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, round.ShuffledDeck, round2.ShuffledDeck)
}

func TestResetGameKeepsHistory(t *testing.T) {
	f := setupFixture(t, 3)
	ctx := context.Background()
	room, players := f.seatPlayers(t, "Alice", "Bob")
	for _, p := range players {
		_, err := f.manager.UpdateReady(ctx, p.ID, true)
		require.NoError(t, err)
	}
	round, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	_, err = f.coord.DrawCard(ctx, round.ID, players[0].ID)
	require.NoError(t, err)
	_, err = f.coord.FinishGame(ctx, room.ID)
	require.NoError(t, err)

	reset, err := f.coord.ResetGame(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, reset.Status)

	after, err := f.manager.ListPlayers(ctx, room.ID)
	require.NoError(t, err)
	for _, p := range after {
		assert.False(t, p.IsReady)
	}

	draws, err := f.coord.ListDraws(ctx, round.ID)
	require.NoError(t, err)
	assert.Len(t, draws, 1)
	old, err := f.store.GetRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, old.RoundNumber)

	next, err := f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, next.RoundNumber)
}

func TestRoundRetentionPrunesOldRounds(t *testing.T) {
	f := setupFixture(t, 3)
	f.coord.RoundRetention = 2
	ctx := context.Background()
	room, _ := f.seatPlayers(t, "Alice", "Bob")

	for i := 0; i < 4; i++ {
		_, err := f.coord.StartGame(ctx, room.ID)
		require.NoError(t, err)
		_, err = f.coord.ResetGame(ctx, room.ID)
		require.NoError(t, err)
	}
	rounds, err := f.store.ListRounds(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 2)
	assert.Equal(t, 3, rounds[0].RoundNumber)
	assert.Equal(t, 4, rounds[1].RoundNumber)
}

func TestFinishGameTransitions(t *testing.T) {
	f := setupFixture(t, 3)
	ctx := context.Background()
	room, _ := f.seatPlayers(t, "Alice", "Bob")

	_, err := f.coord.FinishGame(ctx, room.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.coord.StartGame(ctx, room.ID)
	require.NoError(t, err)
	_, err = f.coord.FinishGame(ctx, room.ID)
	require.NoError(t, err)
	r, err := f.coord.FinishGame(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, r.Status)
}

func TestProgressWithoutRound(t *testing.T) {
	f := setupFixture(t, 3)
	ctx := context.Background()
	room, _ := f.seatPlayers(t, "Alice")

	p, err := f.coord.Progress(ctx, room.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Round)
	assert.Equal(t, 1, p.PlayerCount)
	assert.False(t, p.AllDrawn)
	assert.Nil(t, p.Loser)
}

func TestLoserTieBreak(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a := models.Draw{ID: uuid.New(), CardValue: 3, CardIndex: 2, DrawnAt: t0.Add(time.Second)}
	b := models.Draw{ID: uuid.New(), CardValue: 3, CardIndex: 5, DrawnAt: t0}
	c := models.Draw{ID: uuid.New(), CardValue: 9, CardIndex: 0, DrawnAt: t0}

	got, ok := Loser([]models.Draw{c, a, b})
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID, "earliest draw wins a tie")

	a.DrawnAt = t0
	got, _ = Loser([]models.Draw{c, b, a})
	assert.Equal(t, a.ID, got.ID, "lower slot wins a tie at the same instant")

	_, ok = Loser(nil)
	assert.False(t, ok)
}
