package store

import (
	"time"

	"github.com/rickgao/botwatch/internal/model"
)

// DefaultMaxEvents is the trade event retention cap.
const DefaultMaxEvents = 500

// Slice names one independently-subscribable part of the state.
type Slice string

const (
	SliceConnection Slice = "connection" // Mode, raw connected flag, active session
	SliceMarkets    Slice = "markets"
	SlicePnL        Slice = "pnl"
	SliceExposure   Slice = "exposure"
	SliceBankroll   Slice = "bankroll"
	SliceBtc        Slice = "btc"
	SliceConfig     Slice = "config"
	SliceMeta       Slice = "meta"
	SliceTrend      Slice = "trend"
	SliceEvents     Slice = "events"
)

// AllSlices lists every slice in display order.
var AllSlices = []Slice{
	SliceConnection,
	SliceMarkets,
	SlicePnL,
	SliceExposure,
	SliceBankroll,
	SliceBtc,
	SliceConfig,
	SliceMeta,
	SliceTrend,
	SliceEvents,
}

// State is a consistent copy of every slice, taken under one read lock.
type State struct {
	Mode            model.Mode             `json:"mode"`
	Connected       bool                   `json:"connected"`
	Status          model.ConnectionStatus `json:"status"`
	ActiveSessionID string                 `json:"active_session_id,omitempty"`

	Markets  []model.Market     `json:"markets"`
	Exposure model.Exposure     `json:"exposure"`
	PnL      model.PnL          `json:"pnl"`
	Bankroll model.Bankroll     `json:"bankroll"`
	Btc      *model.BtcPrice    `json:"btc,omitempty"`
	Config   model.BotConfig    `json:"config,omitempty"`
	Meta     model.Meta         `json:"meta"`
	Trend    model.TrendState   `json:"trend,omitempty"`
	Events   []model.TradeEvent `json:"events"`

	LastUpdate time.Time `json:"last_update"`
}

// Stats contains store statistics.
type Stats struct {
	Markets       int
	Events        int
	EventsDropped int64 // Evicted by the retention cap
	Versions      map[Slice]uint64
}
