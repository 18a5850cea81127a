package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/hearth-chat/hearth/internal/database"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// Version is reported by the health endpoint
const Version = "0.3.0"

// Config holds the server configuration
type Config struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	DatabasePath string `toml:"database_path"`
	// APITokenHash is a bcrypt hash; when set, mutating routes and the
	// gateway require the matching bearer token
	APITokenHash string `toml:"api_token_hash" masq:"secret"`
	Seed         bool   `toml:"seed"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         8080,
		DatabasePath: "hearth.db",
		Seed:         true,
	}
}

// LoadConfig reads a TOML config file over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}
	return config, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server represents the hearth server
type Server struct {
	config   *Config
	db       *database.DB
	hub      *Hub
	metrics  *metrics
	router   *chi.Mux
	upgrader websocket.Upgrader
}

// New creates a new server instance. The hub is not started; call Run, or
// RunHub when serving through another http.Server.
func New(config *Config, db *database.DB) *Server {
	m := newMetrics()
	s := &Server{
		config:  config,
		db:      db,
		hub:     NewHub(m.gatewayClients),
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Terminal clients send no Origin header
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the gateway hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// RunHub runs the gateway hub until ctx is done
func (s *Server) RunHub(ctx context.Context) {
	s.hub.Run(ctx)
}

// Run serves HTTP until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	logger := logging.From(ctx)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	httpServer := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("hearth server starting",
			"addr", s.config.Addr(),
			"gateway", "ws://"+s.config.Addr()+"/ws",
			"auth", s.config.APITokenHash != "",
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- goerr.Wrap(err, "server error", goerr.V("addr", s.config.Addr()))
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down server")
	}
	logger.Info("server stopped")
	return nil
}
