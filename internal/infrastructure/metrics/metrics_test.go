package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.MovePublished("RIGHT", 10*time.Millisecond)
	m.MovePublished("RIGHT", 20*time.Millisecond)
	m.MovePublished("UP", time.Millisecond)
	m.NoLegalMove()
	m.DecodeError(KindGameState)
	m.DecodeError(KindGameState)
	m.DecodeError(KindScores)
	m.GameStateApplied()
	m.SessionFinished("game_over")

	assert.InDelta(t, 2, testutil.ToFloat64(m.movesPublished.WithLabelValues("RIGHT")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.movesPublished.WithLabelValues("UP")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.noLegalMoves), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.decodeErrors.WithLabelValues(KindGameState)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.decodeErrors.WithLabelValues(KindScores)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.statesApplied), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.sessions.WithLabelValues("game_over")), 0)

	assert.Equal(t, 1, testutil.CollectAndCount(m.publishDurations))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.MovePublished("UP", time.Second)
		m.NoLegalMove()
		m.DecodeError(KindTopic)
		m.GameStateApplied()
		m.SessionFinished("cancelled")
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.MovePublished("DOWN", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `mazerunner_moves_published_total{direction="DOWN"} 1`)
	assert.Contains(t, body, "mazerunner_move_publish_duration_seconds_count 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestServe(t *testing.T) {
	m := New()
	m.NoLegalMove()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.serve(ctx, ln, "/custom", nil) }()

	url := "http://" + ln.Addr().String() + "/custom"
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		body = string(b)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, body, "mazerunner_no_legal_moves_total 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve() did not return after cancel")
	}
}

func TestServe_BadAddress(t *testing.T) {
	m := New()
	assert.Error(t, m.Serve(context.Background(), "256.0.0.1:bad", "", nil))
}
