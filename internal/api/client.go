package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client defaults.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = time.Second

	// A session detail carries the whole event log, so this is generous.
	DefaultMaxBodyBytes int64 = 32 << 20
)

// Client reads recorded sessions from the bot's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
	maxBodyBytes int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient returns a client rooted at baseURL, e.g. http://localhost:8765/api.
// A trailing slash is ignored.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		logger:       slog.Default(),
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api")
	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets how many times a retryable failure is repeated and the first delay.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger. nil keeps slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxBodySize caps response bodies. Non-positive values keep the default.
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}
