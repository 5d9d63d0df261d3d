package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mazerunner/internal/history"
	"github.com/nerrad567/mazerunner/internal/infrastructure/config"
	"github.com/nerrad567/mazerunner/internal/infrastructure/database"
	"github.com/nerrad567/mazerunner/internal/infrastructure/mqtt"
	"github.com/nerrad567/mazerunner/internal/navigation"
	"github.com/nerrad567/mazerunner/internal/testutil/broker"
	_ "github.com/nerrad567/mazerunner/migrations"
)

func newRepo(t *testing.T) *history.SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: database.InMemoryPath, BusyTimeout: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return history.NewSQLiteRepository(db.DB)
}

func TestRun_RecordsHistory(t *testing.T) {
	repo := newRepo(t)
	h := start(t, func(o *Options) { o.History = repo })

	h.transport.deliver(t, topicOwnState, emptyGameState)
	h.waitForStates(t, 1)
	h.ticker.tick(t)
	assert.Equal(t, "RIGHT", h.transport.next(t).payload)

	h.transport.deliver(t, topicScores, `{"BTeam":3}`)
	h.transport.deliver(t, topicLobby, termination)
	assert.Equal(t, "STOP", h.transport.next(t).payload)

	r := h.wait(t)
	require.NoError(t, r.err)

	ctx := context.Background()
	got, err := repo.GetSession(ctx, r.res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, history.OutcomeGameOver, got.Outcome)
	assert.Equal(t, 1, got.Moves)
	assert.Equal(t, 1, got.Visited)
	assert.JSONEq(t, `{"BTeam":3}`, string(got.LastScores))
	require.NotNil(t, got.FinishedAt)

	moves, err := repo.ListMoves(ctx, r.res.SessionID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, navigation.Right, moves[0].Direction)
	assert.Equal(t, navigation.Coordinate{Row: 0, Col: 0}, moves[0].From)
	assert.Equal(t, 1, moves[0].Seq)
}

func TestRun_CancelledSessionIsRecorded(t *testing.T) {
	repo := newRepo(t)
	h := start(t, func(o *Options) {
		o.History = repo
		o.Game.StartDelay = time.Hour
	})

	h.cancel()
	r := h.wait(t)

	got, err := repo.GetSession(context.Background(), r.res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, history.OutcomeCancelled, got.Outcome)
}

// TestRun_Broker plays a short game through a real MQTT client and an
// embedded broker standing in for the game server.
func TestRun_Broker(t *testing.T) {
	b := broker.Start(t)
	joins := b.Capture(t, topicNewGame)
	control := b.Capture(t, topicStart)
	moves := b.Capture(t, topicOwnMove)

	client, err := mqtt.Connect(config.MQTTConfig{
		Broker:    config.MQTTBrokerConfig{Host: b.Host, Port: b.Port, ClientID: "session-e2e"},
		QoS:       1,
		Reconnect: config.MQTTReconnectConfig{MaxDelay: 5},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	game := gameConfig()
	game.MoveInterval = 20 * time.Millisecond

	s, err := New(Options{Game: game, QoS: 1, Transport: client})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results := make(chan runResult, 1)
	go func() {
		res, err := s.Run(ctx)
		results <- runResult{res, err}
	}()

	join := joins.Next(t, waitTimeout)
	assert.JSONEq(t, `{"lobby_name":"TestLobby","team_name":"BTeam","player_name":"Player4"}`, string(join.Payload))
	assert.Equal(t, "START", string(control.Next(t, waitTimeout).Payload))

	b.Publish(t, topicOwnState, []byte(`{"currentPosition":[4,4],"walls":[[4,5]]}`))

	move := moves.Next(t, waitTimeout)
	assert.Equal(t, "DOWN", string(move.Payload))

	b.Publish(t, topicLobby, []byte(termination))
	assert.Equal(t, "STOP", string(control.Next(t, waitTimeout).Payload))

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.Equal(t, history.OutcomeGameOver, r.res.Outcome)
		assert.Positive(t, r.res.Moves)
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return after termination")
	}
}
