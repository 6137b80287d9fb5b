package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rickgao/botwatch/internal/model"
)

// DefaultPageSize is the session page size used by ListAllSessions.
const DefaultPageSize = 100

// ListSessions fetches a page of session summaries.
func (c *Client) ListSessions(ctx context.Context, opts ListSessionsOptions) ([]model.Session, int, error) {
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	var resp SessionsResponse
	if err := c.get(ctx, "/sessions", query, &resp); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]model.Session, 0, len(resp.Sessions))
	for i := range resp.Sessions {
		s, err := resp.Sessions[i].ToModel()
		if err != nil {
			c.logger.Warn("skipping session", "index", opts.Offset+i, "error", err)
			continue
		}
		sessions = append(sessions, s)
	}

	return sessions, resp.Total, nil
}

// ListAllSessions pages through the whole catalog.
func (c *Client) ListAllSessions(ctx context.Context) ([]model.Session, error) {
	var all []model.Session
	opts := ListSessionsOptions{Limit: DefaultPageSize}

	for {
		page, total, err := c.ListSessions(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		opts.Offset += opts.Limit
		if len(page) == 0 {
			break
		}
		if total > 0 && opts.Offset >= total {
			break
		}
		if total == 0 && len(page) < opts.Limit {
			break
		}
	}

	return all, nil
}

// GetSession fetches one session with its snapshot and trade events.
// Returns an error wrapping model.ErrSessionNotFound on 404.
func (c *Client) GetSession(ctx context.Context, id string) (*model.SessionDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("get session: %w", model.ErrSessionNotFound)
	}

	var resp SessionDetailResponse
	if err := c.get(ctx, "/sessions/"+url.PathEscape(id), nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("get session %s: %w", id, model.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	detail, err := resp.ToModel()
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return detail, nil
}
