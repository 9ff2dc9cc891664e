package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/ormkit/internal/logger"
	"github.com/marmos91/ormkit/pkg/api/handlers"
)

// shutdownGrace bounds graceful shutdown when Start's context is cancelled.
const shutdownGrace = 5 * time.Second

// Server serves health and metrics endpoints over HTTP.
//
// The server supports graceful shutdown; Stop may be called more than once.
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once

	mu        sync.Mutex
	listener  net.Listener
	ready     chan struct{}
	readyOnce sync.Once
}

// NewServer creates a stopped Server. Call Start to begin serving.
// databases may be nil, in which case readiness always fails.
func NewServer(config APIConfig, databases handlers.StatusReporter) *Server {
	config.ApplyDefaults()

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      NewRouter(databases),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
		ready:  make(chan struct{}),
	}
}

// Start listens on the configured port and blocks until ctx is cancelled or
// the server fails. Cancellation triggers a graceful shutdown and a nil return.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("HTTP server failed to listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("HTTP server shutdown signal received")
		// ctx is already done; shutdown needs a fresh deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP server shutdown initiated")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			logger.Error("HTTP server shutdown error", logger.KeyError, err)
			return
		}
		logger.Info("HTTP server stopped gracefully")
	})
	return shutdownErr
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Ready is closed once Start has bound its listener, after which Addr reports
// the actual address.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
