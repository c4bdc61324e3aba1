package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`             // Host to bind to (default "localhost")
	Port           int           `mapstructure:"port"`             // Port to listen on (default 8080)
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`     // Read timeout (default 30s)
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`    // Write timeout (default 0, SSE streams are long)
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`     // Idle timeout (default 60s)
	MaxFastWorkers int           `mapstructure:"max_fast_workers"` // Max concurrent game actions (default 100)
	MaxSlowWorkers int           `mapstructure:"max_slow_workers"` // Max concurrent self-play batches (default 4)
	MaxGames       int           `mapstructure:"max_games"`        // Max hosted games (0 = unlimited)
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:           "localhost",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   0,
		IdleTimeout:    60 * time.Second,
		MaxFastWorkers: 100,
		MaxSlowWorkers: 4,
		MaxGames:       10000,
	}
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	store    *SessionStore
	handlers *Handlers
	server   *http.Server
	pool     *WorkerPool
	version  string
}

// NewServer creates a new API server.
func NewServer(config ServerConfig, version string) *Server {
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers: config.MaxFastWorkers,
		MaxSlowWorkers: config.MaxSlowWorkers,
	})
	store := NewSessionStore(config.MaxGames)

	return &Server{
		config:   config,
		store:    store,
		handlers: NewHandlersWithPool(store, version, pool),
		pool:     pool,
		version:  version,
	}
}

// Pool returns the worker pool for monitoring.
func (s *Server) Pool() *WorkerPool {
	return s.pool
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Dur("took", time.Since(start)).Msg("request")
	})
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handlers.Health)

	// Game sessions
	mux.HandleFunc("POST /api/games", s.handlers.CreateGame)
	mux.HandleFunc("GET /api/games/{id}", s.handlers.GetGame)
	mux.HandleFunc("DELETE /api/games/{id}", s.handlers.DeleteGame)
	mux.HandleFunc("POST /api/games/{id}/first-roll", s.handlers.FirstRoll)
	mux.HandleFunc("POST /api/games/{id}/roll", s.handlers.Roll)
	mux.HandleFunc("GET /api/games/{id}/legal", s.handlers.Legal)
	mux.HandleFunc("POST /api/games/{id}/validate", s.handlers.Validate)
	mux.HandleFunc("POST /api/games/{id}/move", s.handlers.Move)

	// Self-play
	mux.HandleFunc("POST /api/selfplay", s.handlers.SelfPlay)
	mux.HandleFunc("GET /api/selfplay/stream", s.handlers.SelfPlaySSE)

	mux.HandleFunc("/api/ws", s.handlers.WebSocket)

	return corsMiddleware(loggingMiddleware(mux))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	log.Info().Str("version", s.version).Str("addr", addr).
		Int("max_fast", s.config.MaxFastWorkers).Int("max_slow", s.config.MaxSlowWorkers).
		Msg("starting gammon API server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ListenAndServeWithGracefulShutdown starts the server and handles shutdown signals.
func (s *Server) ListenAndServeWithGracefulShutdown() error {
	errChan := make(chan error, 1)

	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
