package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rickgao/botwatch/internal/chart"
	"github.com/rickgao/botwatch/internal/model"
	"github.com/rickgao/botwatch/internal/session"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 500
)

type healthResponse struct {
	Status     string                 `json:"status"`
	Connection model.ConnectionStatus `json:"connection"`
	Mode       model.Mode             `json:"mode"`
	Transport  string                 `json:"transport,omitempty"`
	Version    string                 `json:"version,omitempty"`
}

// health always answers 200: "disconnected" is a displayed state, not a failure.
func (s *Server) health(c echo.Context) error {
	resp := healthResponse{
		Status:     "ok",
		Connection: s.deps.Store.Status(),
		Mode:       s.deps.Store.Mode(),
		Version:    s.deps.Version,
	}
	if s.deps.Transport != nil {
		resp.Transport = s.deps.Transport.Stats().State.String()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) state(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Store.Snapshot())
}

type probHistoryResponse struct {
	Slug    string            `json:"slug"`
	Points  []chart.ProbPoint `json:"points"`
	Markers []chart.Marker    `json:"markers"`
}

func (s *Server) probHistory(c echo.Context) error {
	slug := c.Param("slug")
	return c.JSON(http.StatusOK, probHistoryResponse{
		Slug:    slug,
		Points:  chart.ProbSeries(s.deps.History.ProbSeries(slug)),
		Markers: chart.Markers(s.deps.Store.Events(), slug),
	})
}

type btcHistoryResponse struct {
	Line    []chart.LinePoint `json:"line"`
	Open    []chart.LinePoint `json:"open"`
	Candles []chart.Candle    `json:"candles"`
}

func (s *Server) btcHistory(c echo.Context) error {
	interval := chart.DefaultCandleInterval
	if raw := c.QueryParam("interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < time.Second {
			return echo.NewHTTPError(http.StatusBadRequest, "interval must be a duration of at least 1s")
		}
		interval = d
	}

	points := s.deps.History.BtcSeries()
	candles := chart.Candles(points, interval)
	if candles == nil {
		candles = []chart.Candle{}
	}
	return c.JSON(http.StatusOK, btcHistoryResponse{
		Line:    chart.BtcLine(points),
		Open:    chart.BtcOpenLine(points),
		Candles: candles,
	})
}

type sessionsResponse struct {
	Sessions    []model.Session `json:"sessions"`
	Total       int             `json:"total"`
	RefreshedAt *time.Time      `json:"refreshed_at,omitempty"`
}

// sessions serves the polled catalog unless the caller pages explicitly.
func (s *Server) sessions(c echo.Context) error {
	paged := c.QueryParam("limit") != "" || c.QueryParam("offset") != ""
	if s.deps.Catalog != nil && !paged {
		cat := s.deps.Catalog.Catalog()
		if !cat.RefreshedAt.IsZero() {
			sessions := cat.Sessions
			if sessions == nil {
				sessions = []model.Session{}
			}
			return c.JSON(http.StatusOK, sessionsResponse{
				Sessions:    sessions,
				Total:       cat.Total,
				RefreshedAt: &cat.RefreshedAt,
			})
		}
	}

	limit, err := intParam(c, "limit", defaultSessionLimit)
	if err != nil || limit <= 0 || limit > maxSessionLimit {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil || offset < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
	}

	sessions, total, err := s.deps.Controller.ListSessions(c.Request().Context(), limit, offset)
	if err != nil {
		s.logger.Warn("list sessions failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	return c.JSON(http.StatusOK, sessionsResponse{Sessions: sessions, Total: total})
}

func (s *Server) mode(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Controller.Status())
}

func (s *Server) goLive(c echo.Context) error {
	s.deps.Controller.GoLive()
	return c.JSON(http.StatusOK, s.deps.Controller.Status())
}

func (s *Server) replay(c echo.Context) error {
	id := c.Param("id")
	err := s.deps.Controller.LoadReplay(c.Request().Context(), id)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, s.deps.Controller.Status())
	case errors.Is(err, session.ErrEmptySessionID):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrSuperseded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
