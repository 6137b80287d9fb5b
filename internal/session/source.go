package session

import (
	"context"

	"github.com/rickgao/botwatch/internal/api"
	"github.com/rickgao/botwatch/internal/model"
)

// restSource adapts the REST client to Source.
type restSource struct {
	client *api.Client
}

// NewRESTSource returns a Source backed by the bot's session API.
func NewRESTSource(client *api.Client) Source {
	return restSource{client: client}
}

func (s restSource) ListSessions(ctx context.Context, limit, offset int) ([]model.Session, int, error) {
	return s.client.ListSessions(ctx, api.ListSessionsOptions{Limit: limit, Offset: offset})
}

func (s restSource) GetSession(ctx context.Context, id string) (*model.SessionDetail, error) {
	return s.client.GetSession(ctx, id)
}
