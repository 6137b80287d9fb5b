package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/botwatch/internal/model"
)

// Source lists past sessions.
type Source interface {
	ListSessions(ctx context.Context, limit, offset int) ([]model.Session, int, error)
}

// Observer is notified after each refresh. Optional.
type Observer interface {
	ObserveCatalogRefresh(sessions int, duration time.Duration, err error)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Refresh interval (default: 1m)
	PageSize    int           // Sessions per request (default: 50)
	MaxPages    int           // Pages fetched per refresh (default: 20)
	Concurrency int           // Max concurrent page requests (default: 4)
	Timeout     time.Duration // Per-refresh timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Minute,
		PageSize:    50,
		MaxPages:    20,
		Concurrency: 4,
		Timeout:     30 * time.Second,
	}
}

// Catalog is the last successfully fetched session list, newest first as the source orders it.
type Catalog struct {
	Sessions    []model.Session `json:"sessions"`
	Total       int             `json:"total"`
	RefreshedAt time.Time       `json:"refreshed_at"`
}

// Poller periodically refreshes the session catalog.
type Poller struct {
	cfg      Config
	source   Source
	observer Observer
	logger   *slog.Logger

	mu      sync.RWMutex
	catalog Catalog
	lastErr error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. Zero config fields fall back to DefaultConfig.
func New(cfg Config, source Source, observer Observer, logger *slog.Logger) *Poller {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:      cfg,
		source:   source,
		observer: observer,
		logger:   logger.With("component", "poller"),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("session poller started",
		"interval", p.cfg.Interval,
		"page_size", p.cfg.PageSize,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("session poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Catalog returns the last good catalog.
func (p *Poller) Catalog() Catalog {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c := p.catalog
	c.Sessions = append([]model.Session(nil), p.catalog.Sessions...)
	return c
}

// LastError returns the error of the most recent refresh, or nil if it succeeded.
func (p *Poller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.refreshLogged()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.refreshLogged()
		}
	}
}

func (p *Poller) refreshLogged() {
	if err := p.Refresh(p.ctx); err != nil && p.ctx.Err() == nil {
		p.logger.Warn("session catalog refresh failed", "error", err)
	}
}

// Refresh fetches the catalog now. On error the previous catalog is kept.
func (p *Poller) Refresh(ctx context.Context) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	sessions, total, err := p.fetch(ctx)

	p.mu.Lock()
	p.lastErr = err
	if err == nil {
		p.catalog = Catalog{
			Sessions:    sessions,
			Total:       total,
			RefreshedAt: time.Now(),
		}
	}
	p.mu.Unlock()

	if p.observer != nil {
		p.observer.ObserveCatalogRefresh(len(sessions), time.Since(start), err)
	}
	if err != nil {
		return err
	}

	p.logger.Debug("session catalog refreshed",
		"sessions", len(sessions),
		"total", total,
		"duration", time.Since(start),
	)
	return nil
}

// fetch reads the first page, then the remaining pages concurrently.
func (p *Poller) fetch(ctx context.Context) ([]model.Session, int, error) {
	first, total, err := p.source.ListSessions(ctx, p.cfg.PageSize, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("page 0: %w", err)
	}

	pages := 1
	if total > p.cfg.PageSize {
		pages = (total + p.cfg.PageSize - 1) / p.cfg.PageSize
	}
	if pages > p.cfg.MaxPages {
		pages = p.cfg.MaxPages
	}
	if pages == 1 {
		return first, total, nil
	}

	results := make([][]model.Session, pages)
	results[0] = first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i := 1; i < pages; i++ {
		g.Go(func() error {
			page, _, err := p.source.ListSessions(gctx, p.cfg.PageSize, i*p.cfg.PageSize)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			results[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var all []model.Session
	for _, page := range results {
		all = append(all, page...)
	}
	return all, total, nil
}
