package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/botwatch/internal/model"
)

// FetchTimeout bounds one shared session fetch.
const FetchTimeout = 30 * time.Second

// Controller owns the live/replay mode.
type Controller struct {
	transport Transport
	store     StateStore
	history   History
	applier   Applier
	source    Source
	observer  Observer
	logger    *slog.Logger

	mu        sync.Mutex
	seq       uint64 // Bumped on every transition request
	target    string // Target of the latest request
	replay    *model.SessionDetail
	applied   int
	changedAt time.Time

	loads singleflight.Group
}

// NewController creates a controller. source and observer may be nil; without a source
// only StartReplay with an already fetched payload works.
func NewController(
	transport Transport,
	store StateStore,
	history History,
	applier Applier,
	source Source,
	observer Observer,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		transport: transport,
		store:     store,
		history:   history,
		applier:   applier,
		source:    source,
		observer:  observer,
		logger:    logger.With("component", "session"),
	}
}

// GoLive drops any replay dataset, switches to live and connects the transport.
// Calling it while already live only makes sure the transport is connecting or open.
func (c *Controller) GoLive() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.beginLocked(liveTarget)

	if c.store.Mode() == model.ModeReplay {
		c.replay = nil
		c.applied = 0
		c.store.ClearData()
		c.history.Reset()
		c.store.SetMode(model.ModeLive, "")
		c.changedAt = time.Now()
		c.logger.Info("switched to live")
		c.notify(model.ModeLive)
	}

	c.transport.Connect()
}

// StartReplay closes the transport and loads detail as the dashboard state.
func (c *Controller) StartReplay(sessionID string, detail *model.SessionDetail) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if detail == nil {
		return fmt.Errorf("start replay %s: %w", sessionID, model.ErrInvalidSession)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.beginLocked(replayTarget(sessionID))
	c.startReplayLocked(sessionID, detail)
	return nil
}

// LoadReplay fetches a session from the source and starts replaying it.
// Concurrent loads of the same id share one fetch, which outlives a caller that gives up.
// On error the current mode and state are left as they were.
func (c *Controller) LoadReplay(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if c.source == nil {
		return fmt.Errorf("load replay %s: no session source configured", sessionID)
	}

	target := replayTarget(sessionID)
	c.mu.Lock()
	seq := c.beginLocked(target)
	c.mu.Unlock()

	// The shared fetch runs detached from any one caller; each caller waits on its own ctx.
	fetch := c.loads.DoChan(sessionID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
		defer cancel()
		return c.source.GetSession(fctx, sessionID)
	})

	var res singleflight.Result
	select {
	case res = <-fetch:
	case <-ctx.Done():
		return fmt.Errorf("load replay %s: %w", sessionID, ctx.Err())
	}
	if res.Err != nil {
		c.logger.Warn("session fetch failed", "session_id", sessionID, "error", res.Err)
		return fmt.Errorf("load replay %s: %w", sessionID, res.Err)
	}
	detail := res.Val.(*model.SessionDetail)
	shared := res.Shared

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seq != seq && c.target != target {
		c.logger.Debug("dropping stale replay load", "session_id", sessionID)
		return fmt.Errorf("load replay %s: %w", sessionID, ErrSuperseded)
	}
	if shared && c.store.Mode() == model.ModeReplay && c.replay == detail {
		// Another caller of the same fetch already applied it.
		return nil
	}

	c.startReplayLocked(sessionID, detail)
	return nil
}

// ListSessions returns a page of past sessions from the source.
func (c *Controller) ListSessions(ctx context.Context, limit, offset int) ([]model.Session, int, error) {
	if c.source == nil {
		return nil, 0, fmt.Errorf("list sessions: no session source configured")
	}
	return c.source.ListSessions(ctx, limit, offset)
}

// Status returns the current mode and replay details.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Mode:            c.store.Mode(),
		ActiveSessionID: c.store.ActiveSessionID(),
		AppliedEvents:   c.applied,
		ChangedAt:       c.changedAt,
	}
	if c.replay != nil {
		st.ReplayEvents = len(c.replay.Events)
	}
	return st
}

// Replay returns the payload being replayed, or nil in live mode.
func (c *Controller) Replay() *model.SessionDetail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replay
}

func (c *Controller) startReplayLocked(sessionID string, detail *model.SessionDetail) {
	start := time.Now()

	// Close returns once the pump has exited, so nothing live lands after this point.
	c.transport.Close()

	c.store.ClearData()
	c.history.Reset()
	c.store.SetMode(model.ModeReplay, sessionID)

	c.applier.ApplySnapshot(detail.Snapshot)
	c.applied = c.applier.ApplyEvents(detail.Events)
	c.replay = detail
	c.changedAt = time.Now()

	c.logger.Info("replay started",
		"session_id", sessionID,
		"markets", len(detail.Snapshot.Markets),
		"events", len(detail.Events),
		"applied", c.applied,
		"duration", time.Since(start),
	)
	c.notify(model.ModeReplay)
}

func (c *Controller) beginLocked(target string) uint64 {
	c.seq++
	c.target = target
	return c.seq
}

func (c *Controller) notify(mode model.Mode) {
	if c.observer != nil {
		c.observer.ObserveModeChange(mode)
	}
}

const liveTarget = "live"

func replayTarget(id string) string { return "replay:" + id }
