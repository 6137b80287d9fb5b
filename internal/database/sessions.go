package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/rickgao/botwatch/internal/model"
)

// Querier is the subset of *pgxpool.Pool used by SessionStore.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DefaultEventLimit bounds the events loaded for one replay.
const DefaultEventLimit = 5000

const (
	listSessionsSQL = `
		SELECT id::text, mode, started_at, ended_at, trade_count, merge_count, final_pnl::text
		FROM sessions
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`
	countSessionsSQL = `SELECT count(*) FROM sessions`
	getSessionSQL    = `
		SELECT id::text, mode, started_at, ended_at, trade_count, merge_count, final_pnl::text, snapshot
		FROM sessions
		WHERE id::text = $1
	`
	sessionEventsSQL = `
		SELECT payload
		FROM session_events
		WHERE session_id::text = $1
		ORDER BY id
		LIMIT $2
	`
)

// SessionStore reads sessions from the bot database.
type SessionStore struct {
	db         Querier
	eventLimit int
	logger     *slog.Logger
}

// NewSessionStore creates a store over db. A non-positive eventLimit uses DefaultEventLimit.
func NewSessionStore(db Querier, eventLimit int, logger *slog.Logger) *SessionStore {
	if eventLimit <= 0 {
		eventLimit = DefaultEventLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		db:         db,
		eventLimit: eventLimit,
		logger:     logger.With("component", "session_db"),
	}
}

// sessionRow is one scanned sessions row.
type sessionRow struct {
	ID         string
	Mode       *string
	StartedAt  *time.Time
	EndedAt    *time.Time
	TradeCount *int32
	MergeCount *int32
	FinalPnL   *string
}

func (r *sessionRow) scanTargets() []any {
	return []any{&r.ID, &r.Mode, &r.StartedAt, &r.EndedAt, &r.TradeCount, &r.MergeCount, &r.FinalPnL}
}

// toModel converts the row. An unparseable final_pnl is dropped rather than failing the row.
func (r *sessionRow) toModel() (model.Session, error) {
	if r.ID == "" {
		return model.Session{}, fmt.Errorf("%w: missing id", model.ErrInvalidSession)
	}

	s := model.Session{ID: r.ID, EndedAt: r.EndedAt}
	if r.Mode != nil {
		s.Mode = *r.Mode
	}
	if r.StartedAt != nil {
		s.StartedAt = *r.StartedAt
	}
	if r.TradeCount != nil {
		s.TradeCount = int(*r.TradeCount)
	}
	if r.MergeCount != nil {
		s.MergeCount = int(*r.MergeCount)
	}
	if r.FinalPnL != nil {
		if d, err := decimal.NewFromString(*r.FinalPnL); err == nil {
			s.FinalPnL = &d
		}
	}
	return s, nil
}

// ListSessions returns a page of sessions, newest first, and the total count.
func (s *SessionStore) ListSessions(ctx context.Context, limit, offset int) ([]model.Session, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.db.QueryRow(ctx, countSessionsSQL).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := s.db.Query(ctx, listSessionsSQL, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.Session, 0, limit)
	for rows.Next() {
		var r sessionRow
		if err := rows.Scan(r.scanTargets()...); err != nil {
			return nil, 0, fmt.Errorf("scan session: %w", err)
		}
		sess, err := r.toModel()
		if err != nil {
			s.logger.Warn("skipping session row", "error", err)
			continue
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, int(total), nil
}

// GetSession loads one session with its snapshot and events.
// Returns an error wrapping model.ErrSessionNotFound if no row matches.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*model.SessionDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("get session: %w", model.ErrSessionNotFound)
	}

	var r sessionRow
	var rawSnapshot []byte
	err := s.db.QueryRow(ctx, getSessionSQL, id).Scan(append(r.scanTargets(), &rawSnapshot)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get session %s: %w", id, model.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	sess, err := r.toModel()
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	snap, err := decodeSnapshot(rawSnapshot)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	events, err := s.loadEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	return &model.SessionDetail{
		Session:  sess,
		Snapshot: snap,
		Events:   events,
	}, nil
}

func (s *SessionStore) loadEvents(ctx context.Context, id string) ([]map[string]any, error) {
	rows, err := s.db.Query(ctx, sessionEventsSQL, id, s.eventLimit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []map[string]any{}
	skipped := 0
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		payload, ok := decodeEvent(raw)
		if !ok {
			skipped++
			continue
		}
		events = append(events, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	if skipped > 0 {
		s.logger.Warn("skipped undecodable events", "session_id", id, "count", skipped)
	}
	return events, nil
}

// decodeSnapshot decodes the snapshot column. NULL yields an empty snapshot.
func decodeSnapshot(raw []byte) (model.Snapshot, error) {
	var snap model.Snapshot
	if len(raw) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: snapshot: %v", model.ErrInvalidSession, err)
	}
	return snap, nil
}

// decodeEvent decodes one JSONB payload. Non-object payloads are rejected.
func decodeEvent(raw []byte) (map[string]any, bool) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return nil, false
	}
	return payload, true
}
