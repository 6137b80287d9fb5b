package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/botwatch/internal/model"
)

// Store is the canonical in-memory bot state. Safe for concurrent use.
type Store struct {
	maxEvents int
	now       func() time.Time
	logger    *slog.Logger

	mu              sync.RWMutex
	mode            model.Mode
	connected       bool
	activeSessionID string

	markets  []model.Market
	exposure model.Exposure
	pnl      model.PnL
	bankroll model.Bankroll
	btc      *model.BtcPrice
	config   model.BotConfig
	meta     model.Meta
	trend    model.TrendState
	events   []model.TradeEvent

	lastUpdate    time.Time
	eventsDropped int64
	versions      map[Slice]uint64
	subs          map[*Subscription]struct{}
}

// New creates an empty store in live mode.
func New(maxEvents int, logger *slog.Logger) *Store {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		maxEvents: maxEvents,
		now:       time.Now,
		logger:    logger.With("component", "store"),
		mode:      model.ModeLive,
		versions:  make(map[Slice]uint64, len(AllSlices)),
		subs:      make(map[*Subscription]struct{}),
	}
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

// UpdateFromSnapshot replaces every data slice at once. Markets absent from the snapshot are
// dropped. The BTC slice is only replaced when the snapshot carries one.
func (s *Store) UpdateFromSnapshot(snap model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markets = cloneMarkets(snap.Markets)
	s.exposure = snap.Exposure
	s.pnl = snap.PnL
	s.bankroll = snap.Bankroll
	s.config = snap.Config.Clone()
	s.meta = snap.Meta.Clone()
	s.trend = snap.Trend.Clone()

	changed := []Slice{SliceMarkets, SliceExposure, SlicePnL, SliceBankroll, SliceConfig, SliceMeta, SliceTrend}
	if snap.Btc != nil {
		btc := *snap.Btc
		s.btc = &btc
		changed = append(changed, SliceBtc)
	}

	s.commitLocked(changed...)
}

// UpdateTick replaces markets and the aggregate slices. The markets slice is always a fresh
// allocation so readers holding the previous one are unaffected.
func (s *Store) UpdateTick(tick model.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markets = cloneMarkets(tick.Markets)
	s.exposure = tick.Exposure
	s.pnl = tick.PnL
	s.bankroll = tick.Bankroll

	s.commitLocked(SliceMarkets, SliceExposure, SlicePnL, SliceBankroll)
}

// UpdateBtc replaces the BTC price slice.
func (s *Store) UpdateBtc(btc model.BtcPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.btc = &btc
	s.commitLocked(SliceBtc)
}

// AddTradeEvent appends to the event log, dropping the oldest beyond the retention cap.
func (s *Store) AddTradeEvent(ev model.TradeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev.Clone())
	if over := len(s.events) - s.maxEvents; over > 0 {
		kept := make([]model.TradeEvent, s.maxEvents)
		copy(kept, s.events[over:])
		s.events = kept
		s.eventsDropped += int64(over)
	}

	s.commitLocked(SliceEvents)
}

// ClearTradeEvents empties the event log.
func (s *Store) ClearTradeEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	s.commitLocked(SliceEvents)
}

// ClearData drops every data slice and the event log, leaving mode and connection intact.
func (s *Store) ClearData() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markets = nil
	s.exposure = model.Exposure{}
	s.pnl = model.PnL{}
	s.bankroll = model.Bankroll{}
	s.btc = nil
	s.config = nil
	s.meta = model.Meta{}
	s.trend = nil
	s.events = nil
	s.logger.Debug("cleared state data")

	s.commitLocked(SliceMarkets, SliceExposure, SlicePnL, SliceBankroll, SliceBtc,
		SliceConfig, SliceMeta, SliceTrend, SliceEvents)
}

// SetConnected records the raw transport flag.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected == connected {
		return
	}
	s.connected = connected
	s.commitLocked(SliceConnection)
}

// SetMode records the session mode and, in replay, the session being replayed.
func (s *Store) SetMode(mode model.Mode, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == model.ModeLive {
		sessionID = ""
	}
	s.mode = mode
	s.activeSessionID = sessionID
	s.commitLocked(SliceConnection)
}

// commitLocked bumps versions and wakes subscribers. Caller holds the write lock.
func (s *Store) commitLocked(changed ...Slice) {
	s.lastUpdate = s.now()
	for _, sl := range changed {
		s.versions[sl]++
	}
	for sub := range s.subs {
		if sub.wants(changed) {
			sub.notify()
		}
	}
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

// Snapshot returns a consistent deep copy of every slice. Callers may modify it freely.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Mode:            s.mode,
		Connected:       s.connected,
		Status:          model.DeriveStatus(s.mode, s.connected),
		ActiveSessionID: s.activeSessionID,
		Markets:         cloneMarkets(s.markets),
		Exposure:        s.exposure,
		PnL:             s.pnl,
		Bankroll:        s.bankroll,
		Config:          s.config.Clone(),
		Meta:            s.meta.Clone(),
		Trend:           s.trend.Clone(),
		Events:          cloneEvents(s.events),
		LastUpdate:      s.lastUpdate,
	}
	if s.btc != nil {
		btc := *s.btc
		st.Btc = &btc
	}
	return st
}

// Status returns the displayed connection status.
func (s *Store) Status() model.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.DeriveStatus(s.mode, s.connected)
}

// Mode returns the current session mode.
func (s *Store) Mode() model.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// ActiveSessionID returns the session being replayed, empty in live mode.
func (s *Store) ActiveSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSessionID
}

// Connected returns the raw transport flag.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Markets returns a copy of the markets slice.
func (s *Store) Markets() []model.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMarkets(s.markets)
}

// Market returns one market by slug.
func (s *Store) Market(slug string) (model.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.markets {
		if m.Slug == slug {
			return m.Clone(), true
		}
	}
	return model.Market{}, false
}

// PnL returns the PnL slice.
func (s *Store) PnL() model.PnL {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pnl
}

// Exposure returns the exposure slice.
func (s *Store) Exposure() model.Exposure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exposure
}

// Bankroll returns the bankroll slice.
func (s *Store) Bankroll() model.Bankroll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bankroll
}

// Btc returns the BTC price slice, nil before the first update.
func (s *Store) Btc() *model.BtcPrice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.btc == nil {
		return nil
	}
	btc := *s.btc
	return &btc
}

// Meta returns the bot metadata slice.
func (s *Store) Meta() model.Meta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.Clone()
}

// Events returns a copy of the event log, oldest first.
func (s *Store) Events() []model.TradeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEvents(s.events)
}

// Version returns the change counter of a slice.
func (s *Store) Version(sl Slice) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[sl]
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := make(map[Slice]uint64, len(s.versions))
	for k, v := range s.versions {
		versions[k] = v
	}
	return Stats{
		Markets:       len(s.markets),
		Events:        len(s.events),
		EventsDropped: s.eventsDropped,
		Versions:      versions,
	}
}

func cloneMarkets(in []model.Market) []model.Market {
	if in == nil {
		return nil
	}
	out := make([]model.Market, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

func cloneEvents(in []model.TradeEvent) []model.TradeEvent {
	if in == nil {
		return nil
	}
	out := make([]model.TradeEvent, len(in))
	for i, ev := range in {
		out[i] = ev.Clone()
	}
	return out
}
