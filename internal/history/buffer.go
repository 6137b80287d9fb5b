package history

import (
	"log/slog"
	"sync"
	"time"
)

// Default retention limits.
const (
	DefaultMaxPoints = 3600
	DefaultMaxSeries = 64

	subscriptionBuffer = 256
)

// ProbPoint is one probability sample for a market. Asks are raw probabilities in [0, 1].
type ProbPoint struct {
	Time    int64   `json:"time"` // Unix seconds
	UpAsk   float64 `json:"up_ask"`
	DownAsk float64 `json:"down_ask"`
}

// BtcPoint is one BTC price sample.
type BtcPoint struct {
	Time  int64   `json:"time"` // Unix seconds
	Price float64 `json:"price"`
	Open  float64 `json:"open"`
}

// State is a point-in-time copy of every series.
type State struct {
	ProbSeries map[string][]ProbPoint `json:"prob_series"`
	BtcSeries  []BtcPoint             `json:"btc_series"`
}

// Config bounds the buffer.
type Config struct {
	MaxPoints int // Points per series
	MaxSeries int // Probability series kept at once
}

type probSeries struct {
	ring     *Ring[ProbPoint]
	lastPush uint64 // Push sequence number, for LRU eviction
}

// Buffer holds bounded chart history. Safe for concurrent use.
type Buffer struct {
	maxPoints int
	maxSeries int
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.RWMutex
	seq      uint64
	prob     map[string]*probSeries
	btc      *Ring[BtcPoint]
	probSubs map[string]map[*Subscription[ProbPoint]]struct{}
	btcSubs  map[*Subscription[BtcPoint]]struct{}

	evictedSeries int64
}

// New creates a history buffer. Zero limits fall back to defaults.
func New(cfg Config, logger *slog.Logger) *Buffer {
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = DefaultMaxPoints
	}
	if cfg.MaxSeries <= 0 {
		cfg.MaxSeries = DefaultMaxSeries
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Buffer{
		maxPoints: cfg.MaxPoints,
		maxSeries: cfg.MaxSeries,
		now:       time.Now,
		logger:    logger.With("component", "history"),
		prob:      make(map[string]*probSeries),
		btc:       NewRing[BtcPoint](cfg.MaxPoints),
		probSubs:  make(map[string]map[*Subscription[ProbPoint]]struct{}),
		btcSubs:   make(map[*Subscription[BtcPoint]]struct{}),
	}
}

// SetClock overrides the wall clock. Intended for tests and replay feeds.
func (b *Buffer) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// PushMarketTick appends a probability point for the market, stamped with the current second.
// A push within the same second as the previous point replaces it.
func (b *Buffer) PushMarketTick(slug string, upAsk, downAsk float64) {
	if slug == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	p := ProbPoint{Time: b.now().Unix(), UpAsk: upAsk, DownAsk: downAsk}

	s, ok := b.prob[slug]
	if !ok {
		if len(b.prob) >= b.maxSeries {
			b.evictLocked()
		}
		s = &probSeries{ring: NewRing[ProbPoint](b.maxPoints)}
		b.prob[slug] = s
	}
	b.seq++
	s.lastPush = b.seq

	if last, ok := s.ring.Last(); ok && p.Time <= last.Time {
		// Keep times strictly increasing.
		p.Time = last.Time
		s.ring.ReplaceLast(p)
	} else {
		s.ring.Push(p)
	}

	for sub := range b.probSubs[slug] {
		sub.deliver(p)
	}
}

// PushBtcTick appends a BTC price point, with the same same-second rule as PushMarketTick.
func (b *Buffer) PushBtcTick(price, open float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := BtcPoint{Time: b.now().Unix(), Price: price, Open: open}
	if last, ok := b.btc.Last(); ok && p.Time <= last.Time {
		p.Time = last.Time
		b.btc.ReplaceLast(p)
	} else {
		b.btc.Push(p)
	}

	for sub := range b.btcSubs {
		sub.deliver(p)
	}
}

// evictLocked drops the least-recently-pushed probability series.
func (b *Buffer) evictLocked() {
	var (
		oldest   string
		oldestAt uint64
		found    bool
	)
	for slug, s := range b.prob {
		if !found || s.lastPush < oldestAt {
			oldest, oldestAt, found = slug, s.lastPush, true
		}
	}
	if !found {
		return
	}
	delete(b.prob, oldest)
	b.evictedSeries++
	b.logger.Debug("evicted probability series", "slug", oldest)
}

// State returns a copy of every series.
func (b *Buffer) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := State{
		ProbSeries: make(map[string][]ProbPoint, len(b.prob)),
		BtcSeries:  b.btc.Items(),
	}
	for slug, s := range b.prob {
		st.ProbSeries[slug] = s.ring.Items()
	}
	return st
}

// ProbSeries returns a copy of one market's series, nil if unknown.
func (b *Buffer) ProbSeries(slug string) []ProbPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.prob[slug]
	if !ok {
		return nil
	}
	return s.ring.Items()
}

// BtcSeries returns a copy of the BTC series.
func (b *Buffer) BtcSeries() []BtcPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.btc.Items()
}

// SubscribeProb returns the market's current series and a subscription that receives every
// later push. Both are taken under one lock so no point falls between them.
func (b *Buffer) SubscribeProb(slug string) ([]ProbPoint, *Subscription[ProbPoint]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var points []ProbPoint
	if s, ok := b.prob[slug]; ok {
		points = s.ring.Items()
	}

	sub := newSubscription[ProbPoint](func(sub *Subscription[ProbPoint]) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.probSubs[slug]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(b.probSubs, slug)
			}
		}
	})
	if b.probSubs[slug] == nil {
		b.probSubs[slug] = make(map[*Subscription[ProbPoint]]struct{})
	}
	b.probSubs[slug][sub] = struct{}{}

	return points, sub
}

// SubscribeBtc is SubscribeProb for the BTC series.
func (b *Buffer) SubscribeBtc() ([]BtcPoint, *Subscription[BtcPoint]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	points := b.btc.Items()
	sub := newSubscription[BtcPoint](func(sub *Subscription[BtcPoint]) {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.btcSubs, sub)
	})
	b.btcSubs[sub] = struct{}{}

	return points, sub
}

// Reset drops every series. Subscriptions stay registered and see a Reset signal.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prob = make(map[string]*probSeries)
	b.btc = NewRing[BtcPoint](b.maxPoints)
	for _, subs := range b.probSubs {
		for sub := range subs {
			sub.markReset()
		}
	}
	for sub := range b.btcSubs {
		sub.markReset()
	}
	b.logger.Debug("history reset")
}

// Stats returns buffer statistics.
func (b *Buffer) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Stats{
		Series:        len(b.prob),
		BtcPoints:     b.btc.Len(),
		EvictedSeries: b.evictedSeries,
	}
	for _, s := range b.prob {
		st.ProbPoints += s.ring.Len()
	}
	return st
}

// Stats contains buffer statistics.
type Stats struct {
	Series        int
	ProbPoints    int
	BtcPoints     int
	EvictedSeries int64
}
