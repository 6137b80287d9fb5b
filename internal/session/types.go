package session

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/botwatch/internal/model"
)

// ErrEmptySessionID is returned when a replay is requested without an id.
var ErrEmptySessionID = errors.New("session id is required")

// Transport is the stream lifecycle the controller drives.
type Transport interface {
	Connect()
	Close()
}

// StateStore is the part of the state store the controller resets.
type StateStore interface {
	SetMode(mode model.Mode, sessionID string)
	Mode() model.Mode
	ActiveSessionID() string
	ClearData()
	ClearTradeEvents()
}

// History is the chart history the controller clears on every transition.
type History interface {
	Reset()
}

// Applier feeds a static payload through the single write path.
type Applier interface {
	ApplySnapshot(snap model.Snapshot)
	ApplyEvents(events []map[string]any) int
}

// Source provides past sessions.
type Source interface {
	ListSessions(ctx context.Context, limit, offset int) ([]model.Session, int, error)
	GetSession(ctx context.Context, id string) (*model.SessionDetail, error)
}

// Observer is notified after each completed transition. Optional.
type Observer interface {
	ObserveModeChange(mode model.Mode)
}

// Status describes the controller for display.
type Status struct {
	Mode            model.Mode `json:"mode"`
	ActiveSessionID string     `json:"active_session_id,omitempty"`
	ReplayEvents    int        `json:"replay_events"`
	AppliedEvents   int        `json:"applied_events"`
	ChangedAt       time.Time  `json:"changed_at"`
}

// ErrSuperseded is returned by LoadReplay when another transition was requested while the
// session was being fetched.
var ErrSuperseded = errors.New("superseded by a newer mode change")
