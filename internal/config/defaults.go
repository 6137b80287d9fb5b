package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultStreamURL          = "ws://localhost:8765/ws"
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultKeepaliveInterval  = 15 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultStreamBufferSize   = 1000
	DefaultStaleTimeout       = 60 * time.Second
	DefaultMaxFrameBytes      = 16 << 20
	DefaultRestURL            = "http://localhost:8765/api"
	DefaultAPITimeout         = 10 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryBackoff       = 500 * time.Millisecond
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultSessionSource      = "rest"
	DefaultStartMode          = "live"
	DefaultHistoryMaxPoints   = 3600
	DefaultHistoryMaxSeries   = 64
	DefaultMaxEvents          = 500
	DefaultPollInterval       = 1 * time.Minute
	DefaultPollPageSize       = 50
	DefaultServerPort         = 8080
	DefaultShutdownTimeout    = 10 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// ApplyDefaults fills zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	// Stream defaults
	if c.Stream.URL == "" {
		c.Stream.URL = DefaultStreamURL
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Stream.ReconnectMaxDelay == 0 {
		c.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Stream.KeepaliveInterval == 0 {
		c.Stream.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultStreamBufferSize
	}
	if c.Stream.StaleTimeout == 0 {
		c.Stream.StaleTimeout = DefaultStaleTimeout
	}
	if c.Stream.MaxFrameBytes == 0 {
		c.Stream.MaxFrameBytes = DefaultMaxFrameBytes
	}

	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Session defaults
	if c.Session.Source == "" {
		c.Session.Source = DefaultSessionSource
	}
	if c.Session.StartMode == "" {
		c.Session.StartMode = DefaultStartMode
	}

	// Buffer bounds
	if c.History.MaxPoints == 0 {
		c.History.MaxPoints = DefaultHistoryMaxPoints
	}
	if c.History.MaxSeries == 0 {
		c.History.MaxSeries = DefaultHistoryMaxSeries
	}
	if c.Store.MaxEvents == 0 {
		c.Store.MaxEvents = DefaultMaxEvents
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.PageSize == 0 {
		c.Poller.PageSize = DefaultPollPageSize
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}
