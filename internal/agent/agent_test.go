package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mazerunner/internal/game"
	"github.com/nerrad567/mazerunner/internal/navigation"
)

// startAgent runs an agent for the duration of the test.
func startAgent(t *testing.T, size int) *Agent {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	a := New(size)
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Error("agent did not stop")
		}
	})
	return a
}

func gameAt(row, col int, walls ...navigation.Coordinate) game.State {
	return game.State{
		Position: navigation.Coordinate{Row: row, Col: col},
		Walls:    navigation.NewWallSet(walls...),
	}
}

func TestNextMove_NoState(t *testing.T) {
	a := startAgent(t, navigation.DefaultGridSize)

	_, err := a.NextMove(context.Background())
	assert.ErrorIs(t, err, ErrNoState)
}

func TestNextMove_UsesLatestState(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, navigation.DefaultGridSize)

	require.NoError(t, a.ApplyGameState(ctx, gameAt(0, 0)))
	require.NoError(t, a.ApplyGameState(ctx, gameAt(5, 5, navigation.Coordinate{Row: 5, Col: 6})))

	dec, err := a.NextMove(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigation.Down, dec.Direction)
	assert.Equal(t, navigation.Coordinate{Row: 5, Col: 5}, dec.From)
	assert.Equal(t, navigation.Coordinate{Row: 6, Col: 5}, dec.Target)
	assert.Equal(t, uint64(2), dec.StateSeq)
	assert.Equal(t, uint64(1), dec.Seq)
	assert.Equal(t, 1, dec.VisitedCount)
}

func TestNextMove_Sequence(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, navigation.DefaultGridSize)

	// Walk right along row 0 as the server would report it.
	for col := 0; col < 3; col++ {
		require.NoError(t, a.ApplyGameState(ctx, gameAt(0, col)))
		dec, err := a.NextMove(ctx)
		require.NoError(t, err)
		assert.Equal(t, navigation.Right, dec.Direction)
		assert.False(t, dec.Revisit)
	}

	snap, err := a.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.VisitedCount)
	assert.Equal(t, uint64(3), snap.Moves)
	assert.Equal(t, uint64(3), snap.StateSeq)
}

func TestNextMove_NoLegalMove(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, navigation.DefaultGridSize)

	require.NoError(t, a.ApplyGameState(ctx, gameAt(0, 0,
		navigation.Coordinate{Row: 0, Col: 1},
		navigation.Coordinate{Row: 1, Col: 0},
	)))

	dec, err := a.NextMove(ctx)
	assert.ErrorIs(t, err, ErrNoLegalMove)
	assert.Equal(t, navigation.DirectionError, dec.Direction)

	// Boxed in is not terminal: a new state unblocks the agent.
	require.NoError(t, a.ApplyGameState(ctx, gameAt(0, 0, navigation.Coordinate{Row: 0, Col: 1})))
	dec, err = a.NextMove(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigation.Down, dec.Direction)
}

func TestNextMove_OutOfBounds(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, navigation.DefaultGridSize)

	require.NoError(t, a.ApplyGameState(ctx, gameAt(10, 0)))
	_, err := a.NextMove(ctx)
	assert.ErrorIs(t, err, navigation.ErrOutOfBounds)
}

func TestTermination(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, navigation.DefaultGridSize)

	require.NoError(t, a.ApplyGameState(ctx, gameAt(2, 2)))
	require.NoError(t, a.ApplyTermination(ctx))

	_, err := a.NextMove(ctx)
	assert.ErrorIs(t, err, ErrGameOver)

	// Late states are ignored.
	require.NoError(t, a.ApplyGameState(ctx, gameAt(3, 3)))
	snap, err := a.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.GameOver)
	assert.Equal(t, navigation.Coordinate{Row: 2, Col: 2}, snap.Position)

	require.NoError(t, a.Reset(ctx))
	snap, err = a.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.GameOver)
	assert.False(t, snap.HasState)
	assert.Zero(t, snap.VisitedCount)
	assert.Empty(t, snap.Walls)
}

func TestReset_ClearsVisited(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, navigation.DefaultGridSize)

	require.NoError(t, a.ApplyGameState(ctx, gameAt(0, 1)))
	_, err := a.NextMove(ctx)
	require.NoError(t, err)
	require.NoError(t, a.ApplyGameState(ctx, gameAt(0, 0)))
	dec, err := a.NextMove(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigation.Down, dec.Direction, "(0,1) is visited so Down wins")

	require.NoError(t, a.Reset(ctx))
	require.NoError(t, a.ApplyGameState(ctx, gameAt(0, 0)))
	dec, err = a.NextMove(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigation.Right, dec.Direction)
	assert.Equal(t, uint64(1), dec.Seq)
}

func TestSnapshot_Walls(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, navigation.DefaultGridSize)

	require.NoError(t, a.ApplyGameState(ctx, gameAt(4, 4,
		navigation.Coordinate{Row: 5, Col: 4},
		navigation.Coordinate{Row: 4, Col: 5},
	)))

	snap, err := a.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.HasState)
	assert.Equal(t, []navigation.Coordinate{{Row: 4, Col: 5}, {Row: 5, Col: 4}}, snap.Walls)
}

func TestStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := New(navigation.DefaultGridSize)
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()

	cancel()
	<-done

	_, err := a.NextMove(context.Background())
	assert.True(t, errors.Is(err, ErrStopped))
}

func TestCallerContextCancelled(t *testing.T) {
	// Run is never started, so the request can only complete via ctx.
	a := New(navigation.DefaultGridSize)
	for i := 0; i < inboxSize; i++ {
		a.inbox <- request{apply: func(*state) {}, reply: make(chan struct{})}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := a.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	a := startAgent(t, navigation.DefaultGridSize)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = a.ApplyGameState(ctx, gameAt(row, j%navigation.DefaultGridSize))
				_, _ = a.NextMove(ctx)
				_, _ = a.Snapshot(ctx)
			}
		}(i)
	}
	wg.Wait()

	snap, err := a.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(160), snap.StateSeq)
	assert.Equal(t, uint64(160), snap.Moves)
}
