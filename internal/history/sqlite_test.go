package history

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mazerunner/internal/infrastructure/database"
	"github.com/nerrad567/mazerunner/internal/navigation"
	_ "github.com/nerrad567/mazerunner/migrations"
)

// newTestRepo returns a repository on a migrated in-memory database whose
// clock advances one second per call.
func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: database.InMemoryPath, BusyTimeout: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repo := NewSQLiteRepository(db.DB)
	clock := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func newSession() NewSession {
	return NewSession{Lobby: "TestLobby", Team: "BTeam", Player: "Player4", GridSize: 10}
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s, err := repo.StartSession(ctx, newSession())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, OutcomeRunning, s.Outcome)

	got, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "TestLobby", got.Lobby)
	assert.Equal(t, "BTeam", got.Team)
	assert.Equal(t, "Player4", got.Player)
	assert.Equal(t, 10, got.GridSize)
	assert.True(t, s.StartedAt.Equal(got.StartedAt))
	assert.Nil(t, got.FinishedAt)
	assert.Nil(t, got.LastScores)
}

func TestStartSession_Invalid(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.StartSession(context.Background(), NewSession{Lobby: "L", Team: "T"})
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRecordMoves(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s, err := repo.StartSession(ctx, newSession())
	require.NoError(t, err)

	moves := []Move{
		{SessionID: s.ID, Seq: 1, From: navigation.Coordinate{Row: 0, Col: 0}, Direction: navigation.Right},
		{SessionID: s.ID, Seq: 2, From: navigation.Coordinate{Row: 0, Col: 1}, Direction: navigation.Down},
		{SessionID: s.ID, Seq: 3, From: navigation.Coordinate{Row: 1, Col: 1}, Direction: navigation.Up, Revisit: true},
	}
	for _, m := range moves {
		require.NoError(t, repo.RecordMove(ctx, m))
	}

	got, err := repo.ListMoves(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, moves[i].Seq, m.Seq)
		assert.Equal(t, moves[i].From, m.From)
		assert.Equal(t, moves[i].Direction, m.Direction)
		assert.Equal(t, moves[i].Revisit, m.Revisit)
		assert.False(t, m.CreatedAt.IsZero())
	}

	session, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, session.Moves)
}

func TestRecordMove_Errors(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s, err := repo.StartSession(ctx, newSession())
	require.NoError(t, err)

	err = repo.RecordMove(ctx, Move{SessionID: s.ID, Seq: 1, Direction: navigation.DirectionError})
	assert.ErrorIs(t, err, ErrInvalidSession)

	err = repo.RecordMove(ctx, Move{Seq: 1, Direction: navigation.Up})
	assert.ErrorIs(t, err, ErrInvalidSession)

	err = repo.RecordMove(ctx, Move{SessionID: "missing", Seq: 1, Direction: navigation.Up})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Duplicate sequence numbers are rejected and do not bump the counter.
	require.NoError(t, repo.RecordMove(ctx, Move{SessionID: s.ID, Seq: 1, Direction: navigation.Up}))
	require.Error(t, repo.RecordMove(ctx, Move{SessionID: s.ID, Seq: 1, Direction: navigation.Down}))
	session, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.Moves)
}

func TestRecordScores(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s, err := repo.StartSession(ctx, newSession())
	require.NoError(t, err)

	require.NoError(t, repo.RecordScores(ctx, s.ID, json.RawMessage(`{"BTeam":2}`)))
	require.NoError(t, repo.RecordScores(ctx, s.ID, json.RawMessage(`{"BTeam":5}`)))

	got, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"BTeam":5}`, string(got.LastScores))

	assert.ErrorIs(t, repo.RecordScores(ctx, "missing", json.RawMessage(`{}`)), ErrSessionNotFound)
}

func TestFinishSession(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s, err := repo.StartSession(ctx, newSession())
	require.NoError(t, err)

	require.NoError(t, repo.FinishSession(ctx, s.ID, OutcomeGameOver, 17))

	got, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGameOver, got.Outcome)
	assert.Equal(t, 17, got.Visited)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.After(got.StartedAt))

	// Second finish is a no-op.
	require.NoError(t, repo.FinishSession(ctx, s.ID, OutcomeCancelled, 0))
	got, err = repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGameOver, got.Outcome)

	assert.ErrorIs(t, repo.FinishSession(ctx, "missing", OutcomeGameOver, 0), ErrSessionNotFound)
	assert.ErrorIs(t, repo.FinishSession(ctx, s.ID, OutcomeRunning, 0), ErrInvalidSession)
}

func TestGetSession_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetSession(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var ids []string
	for _, lobby := range []string{"A", "B", "A"} {
		ns := newSession()
		ns.Lobby = lobby
		s, err := repo.StartSession(ctx, ns)
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	all, err := repo.ListSessions(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	inA, err := repo.ListSessions(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, inA, 2)
	assert.Equal(t, []string{ids[2], ids[0]}, []string{inA[0].ID, inA[1].ID})

	limited, err := repo.ListSessions(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListMoves_Empty(t *testing.T) {
	repo := newTestRepo(t)

	moves, err := repo.ListMoves(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, moves)
}
