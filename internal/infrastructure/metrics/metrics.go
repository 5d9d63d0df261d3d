package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mazerunner"

// Decode error kinds used as the kind label.
const (
	KindGameState = "game_state"
	KindScores    = "scores"
	KindTopic     = "topic"
)

// Metrics holds the client's Prometheus collectors on a private registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	movesPublished   *prometheus.CounterVec
	noLegalMoves     prometheus.Counter
	decodeErrors     *prometheus.CounterVec
	statesApplied    prometheus.Counter
	sessions         *prometheus.CounterVec
	publishDurations prometheus.Histogram
}

// New registers all collectors, including Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		movesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moves_published_total",
				Help:      "Total number of moves published by direction",
			},
			[]string{"direction"},
		),
		noLegalMoves: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_legal_moves_total",
			Help:      "Total number of ticks where every neighbour was blocked",
		}),
		decodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Total number of inbound messages that failed to decode by kind",
			},
			[]string{"kind"},
		),
		statesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_states_applied_total",
			Help:      "Total number of game states applied to the agent",
		}),
		sessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Total number of finished sessions by outcome",
			},
			[]string{"outcome"},
		),
		publishDurations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "move_publish_duration_seconds",
			Help:      "Time from move decision until the broker acknowledged the publish",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// MovePublished counts a move and observes its publish latency.
func (m *Metrics) MovePublished(direction string, took time.Duration) {
	if m == nil {
		return
	}
	m.movesPublished.WithLabelValues(direction).Inc()
	m.publishDurations.Observe(took.Seconds())
}

// NoLegalMove counts a boxed-in tick.
func (m *Metrics) NoLegalMove() {
	if m == nil {
		return
	}
	m.noLegalMoves.Inc()
}

// DecodeError counts a rejected inbound message.
func (m *Metrics) DecodeError(kind string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(kind).Inc()
}

// GameStateApplied counts a state handed to the agent.
func (m *Metrics) GameStateApplied() {
	if m == nil {
		return
	}
	m.statesApplied.Inc()
}

// SessionFinished counts a session by outcome.
func (m *Metrics) SessionFinished(outcome string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
