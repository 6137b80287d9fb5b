package connection

import (
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no frames or pongs)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// KeepaliveFrame is the application-level keepalive sent while open.
var KeepaliveFrame = []byte(`{"type":"ping"}`)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// State is the transport lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateBackoffWait
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateBackoffWait:
		return "backoff-wait"
	default:
		return "unknown"
	}
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:8765/ws)
	Header           http.Header   // Extra handshake headers (optional)
	HandshakeTimeout time.Duration // Dial handshake timeout
	PingTimeout      time.Duration // Max time without a control ping/pong before the connection is stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
	MaxFrameBytes    int64         // Largest accepted frame; a bigger one fails the connection
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
		MaxFrameBytes:    16 << 20,
	}
}

// TransportConfig configures the Stream Transport.
type TransportConfig struct {
	URL                string
	ReconnectBaseDelay time.Duration // First retry delay; also the floor restored on a successful open
	ReconnectMaxDelay  time.Duration // Retry delay ceiling
	KeepaliveInterval  time.Duration // Application-level ping period while open
	Client             ClientConfig
}

// DefaultTransportConfig returns sensible defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  30 * time.Second,
		KeepaliveInterval:  15 * time.Second,
		Client:             DefaultClientConfig(),
	}
}

// TransportStats contains transport statistics.
type TransportStats struct {
	State          State
	Connects       int64 // Successful opens
	DialFailures   int64
	Drops          int64 // Unintentional closes of an open connection
	Messages       int64 // Frames forwarded to the handler
	KeepalivesSent int64
	Attempt        int // Consecutive failed attempts since the last open
}
