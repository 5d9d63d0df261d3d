package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/mazerunner/internal/agent"
	"github.com/nerrad567/mazerunner/internal/history"
	"github.com/nerrad567/mazerunner/internal/infrastructure/config"
	"github.com/nerrad567/mazerunner/internal/infrastructure/logging"
	"github.com/nerrad567/mazerunner/internal/infrastructure/metrics"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// StatusSource reports on the session being played. *session.Session
// satisfies it.
type StatusSource interface {
	ID() string
	Snapshot(ctx context.Context) (agent.Snapshot, error)
	Config() config.GameConfig
}

// Connectivity reports broker connection state. *mqtt.Client satisfies it.
type Connectivity interface {
	IsConnected() bool
}

// PoolStats reports database pool statistics. *database.DB satisfies it.
type PoolStats interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	Logger *logging.Logger

	// Status is required. The others are optional and switch off the
	// endpoints that need them.
	Status  StatusSource
	History history.Repository
	Metrics *metrics.Metrics
	MQTT    Connectivity
	DB      PoolStats

	// Hub is used instead of a server-owned hub when set. The caller runs it.
	Hub *Hub

	Version string
}

// Server is the read-only status API.
//
// It serves the live session state, the recorded history, Prometheus
// metrics and a WebSocket feed of session events.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	status    StatusSource
	history   history.Repository
	metrics   *metrics.Metrics
	mqtt      Connectivity
	db        PoolStats
	version   string
	startTime time.Time

	hub         *Hub
	externalHub bool

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates an API server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("status source is required")
	}

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		status:    deps.Status,
		history:   deps.History,
		metrics:   deps.Metrics,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.Config.WebSocket, deps.Logger)
	}
	return s, nil
}

// Hub returns the WebSocket hub events are broadcast through.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in the background until Close.
// Binding errors such as a port already in use are returned directly.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.listener = ln
	s.done = make(chan struct{})
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.Read,
		ReadHeaderTimeout: s.cfg.Timeouts.Read,
		WriteTimeout:      s.cfg.Timeouts.Write,
		IdleTimeout:       s.cfg.Timeouts.Idle,
	}

	server, done := s.server, s.done
	go func() {
		defer close(done)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the server, waiting up to 10 seconds for
// in-flight requests. Closing a server that is not running is a no-op.
func (s *Server) Close() error {
	s.mu.Lock()
	server, done, cancel := s.server, s.done, s.cancel
	s.server, s.listener, s.cancel = nil, nil, nil
	s.mu.Unlock()
	if server == nil {
		return nil
	}

	if cancel != nil {
		cancel()
	}

	ctx, stop := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer stop()

	s.logger.Info("API server shutting down")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	<-done
	return nil
}

// HealthCheck verifies the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
