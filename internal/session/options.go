package session

import (
	"time"

	"github.com/nerrad567/mazerunner/internal/history"
	"github.com/nerrad567/mazerunner/internal/infrastructure/config"
	"github.com/nerrad567/mazerunner/internal/infrastructure/influxdb"
	"github.com/nerrad567/mazerunner/internal/infrastructure/metrics"
	"github.com/nerrad567/mazerunner/internal/infrastructure/mqtt"
	"github.com/nerrad567/mazerunner/internal/navigation"
)

// Transport is the broker surface a session needs. *mqtt.Client satisfies it.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Telemetry receives per-move and per-session points. *influxdb.Client
// satisfies it.
type Telemetry interface {
	WriteMove(lobby, player string, direction navigation.Direction, from navigation.Coordinate, revisit bool)
	WriteSessionSummary(lobby, player string, summary influxdb.SessionSummary)
}

// Events receives live session events for observers such as the status
// API's WebSocket hub.
type Events interface {
	Broadcast(channel string, payload any)
}

// Logger is the logging surface the session needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Ticker paces move requests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

// Options configures a Session. Transport is required; everything else
// is optional.
type Options struct {
	Game config.GameConfig

	// QoS is used for every publish and subscription.
	QoS byte

	Transport Transport
	History   history.Repository
	Telemetry Telemetry
	Metrics   *metrics.Metrics
	Events    Events
	Logger    Logger

	// NewTicker defaults to a time.Ticker.
	NewTicker TickerFunc
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}
