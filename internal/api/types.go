package api

import (
	"github.com/shopspring/decimal"

	"github.com/rickgao/botwatch/internal/model"
)

// SessionsResponse from GET /sessions
type SessionsResponse struct {
	Sessions []APISession `json:"sessions"`
	Total    int          `json:"total"`
}

// APISession is a session summary as the bot serves it.
// IDs may be numbers or strings and timestamps RFC 3339 or unix seconds/ms.
type APISession struct {
	ID         any              `json:"id"`
	Mode       string           `json:"mode"`
	StartedAt  any              `json:"started_at"`
	EndedAt    any              `json:"ended_at"`
	TradeCount int              `json:"trade_count"`
	MergeCount int              `json:"merge_count"`
	FinalPnL   *decimal.Decimal `json:"final_pnl"`
}

// SessionDetailResponse from GET /sessions/{id}
type SessionDetailResponse struct {
	Session  APISession       `json:"session"`
	Snapshot model.Snapshot   `json:"snapshot"`
	Events   []map[string]any `json:"events"`
}

// ListSessionsOptions configures a ListSessions request.
type ListSessionsOptions struct {
	Limit  int
	Offset int
}
