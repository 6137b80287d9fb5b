package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Stream.URL == "" {
		return errors.New("stream.url is required")
	}
	u, err := url.Parse(c.Stream.URL)
	if err != nil {
		return fmt.Errorf("stream.url is invalid: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("stream.url must use ws or wss, got %q", u.Scheme)
	}
	if c.Stream.ReconnectBaseDelay <= 0 {
		return errors.New("stream.reconnect_base_delay must be > 0")
	}
	if c.Stream.ReconnectMaxDelay < c.Stream.ReconnectBaseDelay {
		return fmt.Errorf("stream.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			c.Stream.ReconnectMaxDelay, c.Stream.ReconnectBaseDelay)
	}
	if c.Stream.KeepaliveInterval <= 0 {
		return errors.New("stream.keepalive_interval must be > 0")
	}
	if c.Stream.BufferSize < 1 {
		return errors.New("stream.buffer_size must be >= 1")
	}
	if c.Stream.StaleTimeout <= c.Stream.KeepaliveInterval {
		return fmt.Errorf("stream.stale_timeout (%s) must exceed keepalive_interval (%s)",
			c.Stream.StaleTimeout, c.Stream.KeepaliveInterval)
	}
	if c.Stream.MaxFrameBytes < 1024 {
		return errors.New("stream.max_frame_bytes must be >= 1024")
	}

	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	switch c.Session.Source {
	case "rest":
	case "database":
		if !c.Database.Enabled {
			return errors.New("session.source database requires database.enabled")
		}
	default:
		return fmt.Errorf("session.source must be 'rest' or 'database', got %q", c.Session.Source)
	}
	if c.Session.StartMode != "live" && c.Session.StartMode != "idle" {
		return fmt.Errorf("session.start_mode must be 'live' or 'idle', got %q", c.Session.StartMode)
	}

	if c.Database.Enabled {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.History.MaxPoints < 1 {
		return errors.New("history.max_points must be >= 1")
	}
	if c.History.MaxSeries < 1 {
		return errors.New("history.max_series must be >= 1")
	}
	if c.Store.MaxEvents < 1 {
		return errors.New("store.max_events must be >= 1")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", c.Logging.Format)
	}

	return nil
}

func (db *DatabaseConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
