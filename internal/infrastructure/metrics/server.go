package metrics

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	defaultPath              = "/metrics"
	defaultShutdownTimeout   = 5 * time.Second
	defaultReadHeaderTimeout = 3 * time.Second
)

// Logger is the logging surface the server needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Serve exposes the metrics on addr until ctx is cancelled, then shuts the
// server down gracefully. Returns nil after a clean shutdown.
func (m *Metrics) Serve(ctx context.Context, addr, path string, logger Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", addr, err)
	}
	return m.serve(ctx, ln, path, logger)
}

func (m *Metrics) serve(ctx context.Context, ln net.Listener, path string, logger Logger) error {
	path = cmp.Or(path, defaultPath)

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if logger != nil {
			logger.Info("metrics server listening", "addr", ln.Addr().String(), "path", path)
		}
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		if logger != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
		return fmt.Errorf("metrics shutdown: %w", err)
	}
	return nil
}
