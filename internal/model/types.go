package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Market State
// -----------------------------------------------------------------------------

// Outcome is one of the two complementary sides of an up/down market.
type Outcome string

const (
	OutcomeUp   Outcome = "up"
	OutcomeDown Outcome = "down"
)

// Market is a single up/down market tracked by the bot.
type Market struct {
	Slug        string    `json:"slug"`         // Unique key (e.g., "btc-updown-15m-1760000000")
	UpBid       float64   `json:"up_bid"`       // Best bid for the up outcome
	UpAsk       float64   `json:"up_ask"`       // Best ask for the up outcome
	DownBid     float64   `json:"down_bid"`     // Best bid for the down outcome
	DownAsk     float64   `json:"down_ask"`     // Best ask for the down outcome
	SecondsLeft Seconds   `json:"seconds_left"` // Countdown to resolution
	Edge        *float64  `json:"edge,omitempty"`
	Position    *Position `json:"position,omitempty"`
	Orders      []Order   `json:"orders"`
}

// Position is the bot's holding in one market. Replaced wholesale on every update.
type Position struct {
	UpShares      float64         `json:"up_shares"`
	DownShares    float64         `json:"down_shares"`
	UpAvg         *float64        `json:"up_avg"`   // VWAP entry, nil until first fill
	DownAvg       *float64        `json:"down_avg"` // VWAP entry, nil until first fill
	Hedged        float64         `json:"hedged"`   // Shares covered by the opposite outcome
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// Order is a single resting order.
type Order struct {
	ID          FlexID  `json:"id"`
	Side        string  `json:"side"` // "buy" or "sell"
	Outcome     Outcome `json:"outcome"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size"`
	SizeMatched float64 `json:"size_matched"`
}

// -----------------------------------------------------------------------------
// Aggregates
// -----------------------------------------------------------------------------

// Exposure is the process-wide open exposure.
type Exposure struct {
	Total         decimal.Decimal `json:"total"`
	Up            decimal.Decimal `json:"up"`
	Down          decimal.Decimal `json:"down"`
	PctOfBankroll float64         `json:"pct_of_bankroll"`
}

// PnL is the realized/unrealized split of session profit.
type PnL struct {
	Total      decimal.Decimal `json:"total"`
	Realized   decimal.Decimal `json:"realized"`
	Unrealized decimal.Decimal `json:"unrealized"`
}

// Bankroll is the bot's capital state.
type Bankroll struct {
	Balance   decimal.Decimal `json:"balance"`
	Available decimal.Decimal `json:"available"`
	Deployed  decimal.Decimal `json:"deployed"`
	PctUsed   float64         `json:"pct_used"`
}

// BtcPrice is the reference BTC price feed slice.
type BtcPrice struct {
	Price     float64 `json:"price"`
	Open      float64 `json:"open"` // Window open price
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Deviation float64 `json:"deviation"`
	RangePct  float64 `json:"range_pct"`
}

// BotConfig is the strategy configuration reported by the bot. Shape is owned by the bot.
type BotConfig map[string]any

// TrendState is the trend-strategy sub-state. Shape is owned by the bot.
type TrendState map[string]any

// Meta describes the bot process the stream is attached to.
type Meta struct {
	Mode      string     `json:"mode"` // "paper" or "live" trading
	Version   string     `json:"version"`
	SessionID string     `json:"session_id"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// Snapshot is a complete replacement of every tracked slice.
type Snapshot struct {
	Markets  []Market   `json:"markets"`
	Exposure Exposure   `json:"exposure"`
	PnL      PnL        `json:"pnl"`
	Bankroll Bankroll   `json:"bankroll"`
	Btc      *BtcPrice  `json:"btc,omitempty"`
	Config   BotConfig  `json:"config,omitempty"`
	Meta     Meta       `json:"meta"`
	Trend    TrendState `json:"trend,omitempty"`
}

// Tick is an incremental update of markets and aggregates.
type Tick struct {
	Markets  []Market `json:"markets"`
	Exposure Exposure `json:"exposure"`
	PnL      PnL      `json:"pnl"`
	Bankroll Bankroll `json:"bankroll"`
}

// -----------------------------------------------------------------------------
// Event Log
// -----------------------------------------------------------------------------

// TradeEvent is an immutable entry in the session's trade event log.
type TradeEvent struct {
	ID         uuid.UUID      `json:"id"`          // Client-assigned on append
	Type       string         `json:"type"`        // fill, hedge, merge, entry, reduce, abandon, ...
	Time       time.Time      `json:"time"`        // Event time reported by the bot (receive time if absent)
	MarketSlug string         `json:"market_slug"` // Originating market
	Payload    map[string]any `json:"payload"`     // Full wire payload
}

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

// Session summarizes a past bot session.
type Session struct {
	ID         string           `json:"id"`
	Mode       string           `json:"mode"`
	StartedAt  time.Time        `json:"started_at"`
	EndedAt    *time.Time       `json:"ended_at"`
	TradeCount int              `json:"trade_count"`
	MergeCount int              `json:"merge_count"`
	FinalPnL   *decimal.Decimal `json:"final_pnl"`
}

// SessionDetail is a past session usable for replay hydration.
type SessionDetail struct {
	Session  Session          `json:"session"`
	Snapshot Snapshot         `json:"snapshot"`
	Events   []map[string]any `json:"events"` // Raw trade events, oldest first
}
