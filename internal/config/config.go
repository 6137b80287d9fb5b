package config

import "time"

// Config is the root configuration for a botwatch instance.
type Config struct {
	Stream   StreamConfig   `yaml:"stream"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	History  HistoryConfig  `yaml:"history"`
	Store    StoreConfig    `yaml:"store"`
	Poller   PollerConfig   `yaml:"poller"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StreamConfig holds the bot websocket feed settings.
type StreamConfig struct {
	URL                string        `yaml:"url"` // e.g. ws://localhost:8765/ws
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	KeepaliveInterval  time.Duration `yaml:"keepalive_interval"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
	StaleTimeout       time.Duration `yaml:"stale_timeout"`   // no inbound traffic for this long drops the connection
	MaxFrameBytes      int64         `yaml:"max_frame_bytes"` // larger frames drop the connection
}

// APIConfig holds the bot's session REST API settings.
type APIConfig struct {
	RestURL      string        `yaml:"rest_url"` // e.g. http://localhost:8765/api
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// DatabaseConfig holds the optional read-only connection to the bot's session database.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SessionConfig selects where replay sessions come from and the starting mode.
type SessionConfig struct {
	Source    string `yaml:"source"`     // "rest" or "database"
	StartMode string `yaml:"start_mode"` // "live" or "idle"
}

// HistoryConfig bounds the chart history buffer.
type HistoryConfig struct {
	MaxPoints int `yaml:"max_points"` // Per series
	MaxSeries int `yaml:"max_series"` // Probability series kept at once
}

// StoreConfig bounds the state store.
type StoreConfig struct {
	MaxEvents int `yaml:"max_events"`
}

// PollerConfig holds session catalog refresh settings.
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
	PageSize int           `yaml:"page_size"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
