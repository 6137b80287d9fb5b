// botwatch mirrors a trading bot's live state and serves it to the dashboard.
// Usage: go run ./cmd/botwatch --config configs/botwatch.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/botwatch/internal/api"
	"github.com/rickgao/botwatch/internal/config"
	"github.com/rickgao/botwatch/internal/connection"
	"github.com/rickgao/botwatch/internal/database"
	"github.com/rickgao/botwatch/internal/history"
	"github.com/rickgao/botwatch/internal/metrics"
	"github.com/rickgao/botwatch/internal/poller"
	"github.com/rickgao/botwatch/internal/router"
	"github.com/rickgao/botwatch/internal/server"
	"github.com/rickgao/botwatch/internal/session"
	"github.com/rickgao/botwatch/internal/store"
	"github.com/rickgao/botwatch/internal/version"
)

const statsInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "configs/botwatch.example.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting botwatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"stream_url", cfg.Stream.URL,
		"session_source", cfg.Session.Source,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("botwatch failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	rec := metrics.New()

	// State
	st := store.New(cfg.Store.MaxEvents, logger)
	hist := history.New(history.Config{
		MaxPoints: cfg.History.MaxPoints,
		MaxSeries: cfg.History.MaxSeries,
	}, logger)
	rec.WatchState(st, hist)

	// Single write path for live frames and replay payloads
	rtr := router.NewRouter(st, hist, rec, logger)

	// Stream transport
	tr := connection.NewTransport(connection.TransportConfig{
		URL:                cfg.Stream.URL,
		ReconnectBaseDelay: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Stream.ReconnectMaxDelay,
		KeepaliveInterval:  cfg.Stream.KeepaliveInterval,
		Client: connection.ClientConfig{
			URL:           cfg.Stream.URL,
			WriteTimeout:  cfg.Stream.WriteTimeout,
			BufferSize:    cfg.Stream.BufferSize,
			PingTimeout:   cfg.Stream.StaleTimeout,
			MaxFrameBytes: cfg.Stream.MaxFrameBytes,
		},
	}, connection.Handlers{
		OnMessage: rtr.HandleMessage,
		OnStatus: func(connected bool) {
			st.SetConnected(connected)
			rec.ObserveConnected(connected)
		},
		OnReconnect: rec.ObserveReconnect,
	}, nil, logger)
	defer tr.Close()

	// Past sessions
	source, closeSource, err := newSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	ctrl := session.NewController(tr, st, hist, rtr, source, rec, logger)
	catalog := poller.New(poller.Config{
		Interval: cfg.Poller.Interval,
		PageSize: cfg.Poller.PageSize,
	}, source, rec, logger)

	srv := server.New(server.Config{
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, server.Deps{
		Store:      st,
		History:    hist,
		Controller: ctrl,
		Catalog:    catalog,
		Transport:  tr,
		Metrics:    rec.Handler(),
		Version:    version.String(),
	}, logger)

	if cfg.Session.StartMode == "live" {
		ctrl.GoLive()
	} else {
		logger.Info("waiting for a mode selection", "start_mode", cfg.Session.StartMode)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		if err := catalog.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stopCancel()
		return catalog.Stop(stopCtx)
	})

	g.Go(func() error {
		logStats(gctx, logger, rtr, tr, st, hist)
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	logger.Info("shutting down...")
	return err
}

// newSource builds the configured session source and its cleanup.
func newSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Source, func(), error) {
	if cfg.Session.Source == "database" {
		logger.Info("connecting to session database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("session database connected")
		return database.NewSessionStore(pool, 0, logger), pool.Close, nil
	}

	client := api.NewClient(cfg.API.RestURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		api.WithLogger(logger),
	)
	return session.NewRESTSource(client), func() {}, nil
}

func logStats(ctx context.Context, logger *slog.Logger, rtr *router.Router, tr *connection.Transport, st *store.Store, hist *history.Buffer) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rs := rtr.Stats()
			ts := tr.Stats()
			ss := st.Stats()
			hs := hist.Stats()
			logger.Info("stats",
				"status", st.Status(),
				"transport", ts.State.String(),
				"connects", ts.Connects,
				"drops", ts.Drops,
				"router_received", rs.MessagesReceived,
				"router_applied", rs.MessagesApplied,
				"parse_errors", rs.ParseErrors,
				"markets", ss.Markets,
				"events", ss.Events,
				"history_series", hs.Series,
				"history_points", hs.ProbPoints+hs.BtcPoints,
			)
		}
	}
}
