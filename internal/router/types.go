package router

import (
	"encoding/json"
	"time"

	"github.com/rickgao/botwatch/internal/model"
)

// Wire message types.
const (
	TypeInitialState = "initial_state"
	TypeTickSnapshot = "tick_snapshot"
	TypeBtcPrice     = "btc_price"
	TypePing         = "ping"
	TypePong         = "pong"
)

// Kind is what a frame turned out to be after routing.
type Kind string

const (
	KindSnapshot  Kind = "snapshot"
	KindTick      Kind = "tick"
	KindBtc       Kind = "btc"
	KindKeepalive Kind = "keepalive"
	KindEvent     Kind = "event"
	KindIgnored   Kind = "ignored"   // Well-formed but carries nothing to apply
	KindMalformed Kind = "malformed" // Dropped: not JSON or payload does not decode
)

// StateWriter is the part of the state store the router writes to.
type StateWriter interface {
	UpdateFromSnapshot(snap model.Snapshot)
	UpdateTick(tick model.Tick)
	UpdateBtc(btc model.BtcPrice)
	AddTradeEvent(ev model.TradeEvent)
}

// HistoryWriter is the part of the history buffer the router writes to.
type HistoryWriter interface {
	PushMarketTick(slug string, upAsk, downAsk float64)
	PushBtcTick(price, open float64)
}

// Observer is notified of every routed frame. Used for metrics.
type Observer interface {
	ObserveMessage(kind string)
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64
	MessagesApplied  int64
	ParseErrors      int64
	IgnoredMessages  int64
	Keepalives       int64
	LastMessageAt    time.Time
}

// messageEnvelope is used to extract the type and optional data wrapper.
type messageEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// hasData reports whether the frame wraps its payload in "data".
func (e messageEnvelope) hasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}
