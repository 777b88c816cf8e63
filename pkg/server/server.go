package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// DefaultShutdownTimeout bounds Shutdown when the caller's context has no
// deadline of its own.
const DefaultShutdownTimeout = 10 * time.Second

var (
	// ErrAlreadyRunning is returned by Start on a running server.
	ErrAlreadyRunning = errors.New("server is already running")

	// ErrClosed is returned by Start after Shutdown. Servers are single-use.
	ErrClosed = errors.New("server is closed")
)

// Config configures the observability server.
type Config struct {
	// Address is the TCP listen address, e.g. ":9090". Port 0 picks a free
	// port; Addr reports the bound one.
	Address string

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	// Logger receives lifecycle and request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server serves metrics and health probes next to a span pipeline.
type Server struct {
	config       Config
	handler      http.Handler
	logger       *slog.Logger
	httpServer   *http.Server
	listener     net.Listener
	done         chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server for handler. The handler is wrapped with request ID,
// logging and panic recovery middleware.
func New(cfg Config, handler http.Handler) *Server {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:  cfg,
		handler: handler,
		logger:  logger,
	}
}

// Start binds the listen address and serves in the background. Bind errors
// are returned directly; the server stops when ctx is cancelled or Shutdown
// is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return ErrAlreadyRunning
	}
	if s.httpServer != nil {
		return ErrClosed
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.done = make(chan struct{})
	s.isRunning = true

	go func() {
		s.logger.Info("starting observability server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observability server failed", "error", err)
		}
	}()

	go func(done <-chan struct{}) {
		select {
		case <-ctx.Done():
			_ = s.Shutdown(context.Background())
		case <-done:
		}
	}(s.done)

	return nil
}

// Shutdown gracefully stops a started server. Only the first call after
// Start does work; Shutdown on a server never started returns nil.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	s.shutdownOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			s.shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		close(s.done)
		s.mu.Unlock()

		s.logger.Info("observability server stopped")
	})

	return s.shutdownErr
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	handler := s.handler
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware(handler)
	// outermost
	handler = RecoveryMiddleware(s.logger)(handler)
	return handler
}
