package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/rickgao/botwatch/internal/chart"
)

const streamWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamFrame is one message on a chart stream.
// "history" carries Points, "point" carries Point, "reset" carries nothing.
type streamFrame[T any] struct {
	Type   string `json:"type"`
	Points []T    `json:"points,omitempty"`
	Point  *T     `json:"point,omitempty"`
}

func (s *Server) probStream(c echo.Context) error {
	slug := c.Param("slug")
	return serveFeed(c, s, func(ctx context.Context) *chart.Feed[chart.ProbPoint] {
		return chart.ProbFeed(ctx, s.deps.History, slug)
	})
}

func (s *Server) btcStream(c echo.Context) error {
	return serveFeed(c, s, func(ctx context.Context) *chart.Feed[chart.LinePoint] {
		return chart.BtcFeed(ctx, s.deps.History)
	})
}

// serveFeed upgrades the request and relays one chart feed until either side goes away.
func serveFeed[T any](c echo.Context, s *Server, open func(context.Context) *chart.Feed[T]) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Debug("stream upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.streams)
	defer cancel()

	feed := open(ctx)
	defer func() { feed.Close() }()

	// Reads only detect the peer closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(f streamFrame[T]) bool {
		conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(f); err != nil {
			s.logger.Debug("stream write failed", "error", err)
			return false
		}
		return true
	}

	if !write(streamFrame[T]{Type: "history", Points: feed.Initial}) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			if s.streams.Err() != nil {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
			}
			return nil
		case <-feed.Reset():
			if !write(streamFrame[T]{Type: "reset"}) {
				return nil
			}
		case p, ok := <-feed.C():
			if !ok {
				return nil
			}
			if !write(streamFrame[T]{Type: "point", Point: &p}) {
				return nil
			}
			if feed.Lagged() {
				// Start over from a fresh snapshot rather than leave a gap.
				feed.Close()
				feed = open(ctx)
				if !write(streamFrame[T]{Type: "reset"}) || !write(streamFrame[T]{Type: "history", Points: feed.Initial}) {
					return nil
				}
			}
		}
	}
}
