package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rickgao/botwatch/internal/connection"
	"github.com/rickgao/botwatch/internal/history"
	"github.com/rickgao/botwatch/internal/model"
	"github.com/rickgao/botwatch/internal/poller"
	"github.com/rickgao/botwatch/internal/session"
	"github.com/rickgao/botwatch/internal/store"
)

// Controller is the mode controller surface the server drives.
type Controller interface {
	GoLive()
	LoadReplay(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context, limit, offset int) ([]model.Session, int, error)
	Status() session.Status
}

// Catalog serves the polled session list.
type Catalog interface {
	Catalog() poller.Catalog
}

// TransportStats reports stream transport statistics.
type TransportStats interface {
	Stats() connection.TransportStats
}

// Deps are the components the server reads from. Catalog, Transport and Metrics may be nil.
type Deps struct {
	Store      *store.Store
	History    *history.Buffer
	Controller Controller
	Catalog    Catalog
	Transport  TransportStats
	Metrics    http.Handler
	Version    string
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server wraps the echo instance.
type Server struct {
	echo   *echo.Echo
	cfg    Config
	deps   Deps
	logger *slog.Logger

	// Parent of every chart stream. Hijacked connections are invisible to
	// echo's Shutdown, so Run cancels this first.
	streams     context.Context
	stopStreams context.CancelFunc
}

// New creates a server with every route registered.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = cfg.ReadTimeout

	e.Use(recoverer(logger))
	e.Use(requestLogging(logger))

	s := &Server{
		echo:   e,
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())
	s.registerRoutes()
	return s
}

// Handler returns the root handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then closes open chart streams and shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.stopStreams()
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.stopStreams()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	e := s.echo
	e.GET("/health", s.health)
	if s.deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.deps.Metrics))
	}

	g := e.Group("/api")
	g.GET("/state", s.state)
	g.GET("/history/btc", s.btcHistory)
	g.GET("/history/:slug", s.probHistory)
	g.GET("/stream/btc", s.btcStream)
	g.GET("/stream/:slug", s.probStream)
	g.GET("/sessions", s.sessions)
	g.GET("/mode", s.mode)
	g.POST("/mode/live", s.goLive)
	g.POST("/mode/replay/:id", s.replay)
}
