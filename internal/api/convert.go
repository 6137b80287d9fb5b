package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rickgao/botwatch/internal/model"
)

// idString normalizes a JSON id (string or number) to a string.
// Returns "" for missing or unsupported values.
func idString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// ToModel converts an APISession to model.Session.
func (s *APISession) ToModel() (model.Session, error) {
	id := idString(s.ID)
	if id == "" {
		return model.Session{}, fmt.Errorf("%w: missing id", model.ErrInvalidSession)
	}

	out := model.Session{
		ID:         id,
		Mode:       s.Mode,
		TradeCount: s.TradeCount,
		MergeCount: s.MergeCount,
		FinalPnL:   s.FinalPnL,
	}
	if t, ok := model.ParseTime(s.StartedAt); ok {
		out.StartedAt = t
	}
	if t, ok := model.ParseTime(s.EndedAt); ok {
		out.EndedAt = &t
	}
	return out, nil
}

// ToModel converts a detail response to model.SessionDetail.
func (r *SessionDetailResponse) ToModel() (*model.SessionDetail, error) {
	sess, err := r.Session.ToModel()
	if err != nil {
		return nil, err
	}
	events := r.Events
	if events == nil {
		events = []map[string]any{}
	}
	return &model.SessionDetail{
		Session:  sess,
		Snapshot: r.Snapshot,
		Events:   events,
	}, nil
}
