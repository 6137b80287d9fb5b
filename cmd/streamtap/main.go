// streamtap connects to the bot stream and prints decoded messages to the console.
// Usage: go run ./cmd/streamtap --config configs/botwatch.example.yaml
//
// The stream URL can be overridden with --url.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/botwatch/internal/config"
	"github.com/rickgao/botwatch/internal/connection"
	"github.com/rickgao/botwatch/internal/history"
	"github.com/rickgao/botwatch/internal/model"
	"github.com/rickgao/botwatch/internal/router"
	"github.com/rickgao/botwatch/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/botwatch.example.yaml", "path to config file")
	url := flag.String("url", "", "stream URL (overrides config)")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *url != "" {
		cfg.Stream.URL = *url
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	st := store.New(cfg.Store.MaxEvents, logger)
	hist := history.New(history.Config{MaxPoints: cfg.History.MaxPoints, MaxSeries: cfg.History.MaxSeries}, logger)
	rtr := router.NewRouter(st, hist, nil, logger)

	tr := connection.NewTransport(connection.TransportConfig{
		URL:                cfg.Stream.URL,
		ReconnectBaseDelay: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Stream.ReconnectMaxDelay,
		KeepaliveInterval:  cfg.Stream.KeepaliveInterval,
		Client: connection.ClientConfig{
			URL:           cfg.Stream.URL,
			PingTimeout:   cfg.Stream.StaleTimeout,
			MaxFrameBytes: cfg.Stream.MaxFrameBytes,
		},
	}, connection.Handlers{
		OnMessage: func(msg connection.TimestampedMessage) {
			kind := rtr.Route(msg.Data, msg.ReceivedAt)
			printMessage(kind, msg, st, *verbose)
		},
		OnStatus: func(connected bool) {
			st.SetConnected(connected)
			fmt.Printf("[STATUS] %s\n", model.DeriveStatus(model.ModeLive, connected))
		},
		OnReconnect: func(attempt int, delay time.Duration) {
			fmt.Printf("[RECONNECT] attempt=%d in %s\n", attempt, delay)
		},
	}, nil, logger)

	logger.Info("connecting", "url", cfg.Stream.URL)
	tr.Connect()

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rs := rtr.Stats()
				ts := tr.Stats()
				logger.Info("stats",
					"transport", ts.State.String(),
					"messages", ts.Messages,
					"keepalives_sent", ts.KeepalivesSent,
					"applied", rs.MessagesApplied,
					"parse_errors", rs.ParseErrors,
					"ignored", rs.IgnoredMessages,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	tr.Close()
	logger.Info("shutdown complete")
}

func printMessage(kind router.Kind, msg connection.TimestampedMessage, st *store.Store, verbose bool) {
	if verbose {
		var v any
		if err := json.Unmarshal(msg.Data, &v); err == nil {
			data, _ := json.MarshalIndent(v, "", "  ")
			fmt.Printf("[%s] %s\n", kind, data)
			return
		}
		fmt.Printf("[%s] %q\n", kind, msg.Data)
		return
	}

	switch kind {
	case router.KindSnapshot:
		fmt.Printf("[SNAPSHOT] markets=%d pnl=%s bankroll=%s\n",
			len(st.Markets()), model.FormatUSD(st.PnL().Total), model.FormatUSD(st.Bankroll().Balance))
	case router.KindTick:
		fmt.Printf("[TICK] markets=%d pnl=%s exposure=%s\n",
			len(st.Markets()), model.FormatUSD(st.PnL().Total), model.FormatUSD(st.Exposure().Total))
	case router.KindBtc:
		if btc := st.Btc(); btc != nil {
			fmt.Printf("[BTC] price=%.2f open=%.2f deviation=%.4f\n", btc.Price, btc.Open, btc.Deviation)
		}
	case router.KindEvent:
		if events := st.Events(); len(events) > 0 {
			ev := events[len(events)-1]
			fmt.Printf("[EVENT] type=%s market=%s time=%s\n", ev.Type, ev.MarketSlug, ev.Time.Format(time.RFC3339))
		}
	case router.KindMalformed:
		fmt.Printf("[MALFORMED] %d bytes\n", len(msg.Data))
	case router.KindKeepalive:
		// quiet
	default:
		fmt.Printf("[%s] %d bytes\n", kind, len(msg.Data))
	}
}
