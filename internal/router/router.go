package router

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/botwatch/internal/connection"
	"github.com/rickgao/botwatch/internal/model"
)

// Router parses raw frames and applies them to the store and history buffer.
type Router struct {
	store    StateWriter
	history  HistoryWriter
	observer Observer
	logger   *slog.Logger

	// Serializes every application, live or replay.
	applyMu sync.Mutex

	// Stats
	mu          sync.RWMutex
	received    int64
	applied     int64
	parseErrors int64
	ignored     int64
	keepalives  int64
	lastMessage time.Time
}

// NewRouter creates a router writing to store and history. observer may be nil.
func NewRouter(store StateWriter, history HistoryWriter, observer Observer, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		store:    store,
		history:  history,
		observer: observer,
		logger:   logger.With("component", "router"),
	}
}

// HandleMessage routes one transport frame. Suitable as the transport's OnMessage handler.
func (r *Router) HandleMessage(msg connection.TimestampedMessage) {
	r.Route(msg.Data, msg.ReceivedAt)
}

// Route parses and applies a single frame, returning what it was.
func (r *Router) Route(data []byte, receivedAt time.Time) Kind {
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	r.applyMu.Lock()
	kind := r.route(data, receivedAt)
	r.applyMu.Unlock()

	r.record(kind, receivedAt)
	return kind
}

// ApplySnapshot applies a full snapshot exactly like an initial_state frame.
func (r *Router) ApplySnapshot(snap model.Snapshot) {
	r.applyMu.Lock()
	r.applySnapshot(snap)
	r.applyMu.Unlock()

	r.record(KindSnapshot, time.Now())
}

// ApplyEvents appends raw trade events in order, skipping those without a market.
// Returns the number appended.
func (r *Router) ApplyEvents(events []map[string]any) int {
	now := time.Now()

	kinds := make([]Kind, len(events))

	r.applyMu.Lock()
	n := 0
	for i, payload := range events {
		if r.applyEvent(payload, now) {
			kinds[i] = KindEvent
			n++
		} else {
			kinds[i] = KindIgnored
		}
	}
	r.applyMu.Unlock()

	for _, kind := range kinds {
		r.record(kind, now)
	}
	return n
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		MessagesReceived: r.received,
		MessagesApplied:  r.applied,
		ParseErrors:      r.parseErrors,
		IgnoredMessages:  r.ignored,
		Keepalives:       r.keepalives,
		LastMessageAt:    r.lastMessage,
	}
}

// route is called with applyMu held.
func (r *Router) route(data []byte, receivedAt time.Time) Kind {
	// Extract message type
	var envelope messageEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		r.logger.Debug("dropping unparseable frame", "error", err)
		return KindMalformed
	}

	switch envelope.Type {
	case TypeInitialState:
		snap, err := parseSnapshot(data, envelope)
		if err != nil {
			r.logger.Debug("dropping malformed snapshot", "error", err)
			return KindMalformed
		}
		r.applySnapshot(snap)
		return KindSnapshot

	case TypeTickSnapshot:
		tick, err := parseTick(data, envelope)
		if err != nil {
			r.logger.Debug("dropping malformed tick", "error", err)
			return KindMalformed
		}
		r.applyTick(tick)
		return KindTick

	case TypeBtcPrice:
		btc, err := parseBtc(data, envelope)
		if err != nil {
			r.logger.Debug("dropping malformed btc price", "error", err)
			return KindMalformed
		}
		r.store.UpdateBtc(btc)
		r.history.PushBtcTick(btc.Price, btc.Open)
		return KindBtc

	case TypePing, TypePong:
		return KindKeepalive

	default:
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			// Valid JSON but not an object (e.g. an array)
			r.logger.Debug("dropping non-object frame", "error", err)
			return KindMalformed
		}
		if !r.applyEvent(payload, receivedAt) {
			r.logger.Debug("skipping message type", "type", envelope.Type)
			return KindIgnored
		}
		return KindEvent
	}
}

func (r *Router) applySnapshot(snap model.Snapshot) {
	r.store.UpdateFromSnapshot(snap)
	for _, m := range snap.Markets {
		r.history.PushMarketTick(m.Slug, m.UpAsk, m.DownAsk)
	}
	if snap.Btc != nil {
		r.history.PushBtcTick(snap.Btc.Price, snap.Btc.Open)
	}
}

func (r *Router) applyTick(tick model.Tick) {
	r.store.UpdateTick(tick)
	for _, m := range tick.Markets {
		r.history.PushMarketTick(m.Slug, m.UpAsk, m.DownAsk)
	}
}

func (r *Router) applyEvent(payload map[string]any, receivedAt time.Time) bool {
	ev, ok := model.NewTradeEvent(payload, receivedAt)
	if !ok {
		return false
	}
	r.store.AddTradeEvent(ev)
	return true
}

func (r *Router) record(kind Kind, at time.Time) {
	r.mu.Lock()
	r.received++
	r.lastMessage = at
	switch kind {
	case KindMalformed:
		r.parseErrors++
	case KindIgnored:
		r.ignored++
	case KindKeepalive:
		r.keepalives++
	default:
		r.applied++
	}
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.ObserveMessage(string(kind))
	}
}

// parseSnapshot decodes an initial_state payload, either wrapped in "data" or at top level.
func parseSnapshot(data []byte, envelope messageEnvelope) (model.Snapshot, error) {
	var snap model.Snapshot
	src := data
	if envelope.hasData() {
		src = envelope.Data
	}
	if err := json.Unmarshal(src, &snap); err != nil {
		return model.Snapshot{}, err
	}
	return snap, nil
}

// parseTick decodes a tick_snapshot payload: {ts, data:{markets, exposure, pnl, bankroll}}.
func parseTick(data []byte, envelope messageEnvelope) (model.Tick, error) {
	var tick model.Tick
	src := data
	if envelope.hasData() {
		src = envelope.Data
	}
	if err := json.Unmarshal(src, &tick); err != nil {
		return model.Tick{}, err
	}
	return tick, nil
}

// parseBtc decodes a btc_price payload, either wrapped in "data" or at top level.
func parseBtc(data []byte, envelope messageEnvelope) (model.BtcPrice, error) {
	var btc model.BtcPrice
	src := data
	if envelope.hasData() {
		src = envelope.Data
	}
	if err := json.Unmarshal(src, &btc); err != nil {
		return model.BtcPrice{}, err
	}
	return btc, nil
}
