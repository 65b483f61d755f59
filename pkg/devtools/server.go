package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig configures the devtools server.
type ServerConfig struct {
	// Address to bind (default: "127.0.0.1:6172").
	Address string

	// Registry is the tracked-signal registry served at /signals.
	// Default: a fresh registry.
	Registry *Registry

	// Logger used for server lifecycle and connection logging.
	// Default: slog.Default() with a component attribute.
	Logger *slog.Logger

	// CheckOrigin overrides the WebSocket origin check. The default accepts
	// every origin; the server is meant to bind to loopback in development.
	CheckOrigin func(r *http.Request) bool

	// WriteTimeout bounds individual WebSocket writes (default: 10s).
	WriteTimeout time.Duration
}

// ServerOption configures the devtools server.
type ServerOption func(*ServerConfig)

// WithAddress sets the bind address.
func WithAddress(addr string) ServerOption {
	return func(c *ServerConfig) {
		c.Address = addr
	}
}

// WithRegistry sets the tracked-signal registry.
func WithRegistry(reg *Registry) ServerOption {
	return func(c *ServerConfig) {
		c.Registry = reg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(c *ServerConfig) {
		c.Logger = logger
	}
}

// WithCheckOrigin sets the WebSocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) ServerOption {
	return func(c *ServerConfig) {
		c.CheckOrigin = fn
	}
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      "127.0.0.1:6172",
		Registry:     NewRegistry(),
		Logger:       slog.Default().With("component", "devtools"),
		CheckOrigin:  func(*http.Request) bool { return true },
		WriteTimeout: 10 * time.Second,
	}
}

// Server is the development HTTP/WebSocket server.
type Server struct {
	config   ServerConfig
	registry *Registry
	hub      *hub
	upgrader websocket.Upgrader
	logger   *slog.Logger

	httpServer *http.Server
}

// NewServer creates a devtools server. It attaches an engine event hook
// immediately; Close detaches it.
func NewServer(opts ...ServerOption) *Server {
	config := defaultServerConfig()
	for _, opt := range opts {
		opt(&config)
	}

	s := &Server{
		config:   config,
		registry: config.Registry,
		hub:      newHub(),
		logger:   config.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.httpServer = &http.Server{
		Addr:              config.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Registry returns the tracked-signal registry behind /signals.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Routes builds the HTTP handler: /healthz, /metrics, /signals, /events.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/signals", s.handleSignals)
	r.Get("/events", s.handleEvents)
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("devtools server listening", "addr", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Close detaches the engine event hook and drops all stream subscribers.
func (s *Server) Close() {
	s.hub.close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.registry.Snapshot()); err != nil {
		s.logger.Error("signals snapshot encode failed", "error", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	s.logger.Debug("event stream subscriber connected", "remote", conn.RemoteAddr())

	// Reader goroutine: surface client disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("event stream write failed", "error", err)
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
