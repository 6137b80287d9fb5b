package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection to the bot process. A Client is single use:
// once closed, or once its read loop exits, the transport builds a new one.
type Client interface {
	Connect(ctx context.Context) error
	Close() error

	// Send writes one text frame.
	Send(data []byte) error

	// Messages yields frames in receive order. A full buffer blocks the reader
	// rather than dropping frames.
	Messages() <-chan TimestampedMessage

	// Errors carries at most one error: the reason the read loop stopped.
	Errors() <-chan error

	// Done is closed when the read loop exits, for any reason. Every frame read
	// before that point has already been queued on Messages.
	Done() <-chan struct{}

	IsConnected() bool
}

// ClientFactory builds a Client. The transport calls it once per connection attempt.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	messages chan TimestampedMessage
	errors   chan error
	stop     chan struct{} // closed by Close
	readDone chan struct{} // closed by readLoop

	writeMu sync.Mutex

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	closed    bool
}

// NewClient returns an unconnected gorilla/websocket client. Zero config fields take defaults.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultClientConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = def.MaxFrameBytes
	}

	return &client{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan TimestampedMessage, cfg.BufferSize),
		errors:   make(chan error, 1),
		stop:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

func (c *client) Connect(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrAlreadyClosed
	}

	header := c.cfg.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Accept", "application/json")

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", c.cfg.URL, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	// Any inbound traffic proves liveness; the read deadline trips when there is none.
	conn.SetReadLimit(c.cfg.MaxFrameBytes)
	c.extendDeadline(conn)
	conn.SetPongHandler(func(string) error {
		c.extendDeadline(conn)
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		c.extendDeadline(conn)
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.cfg.WriteTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	go c.readLoop(conn)
	go c.pingLoop(conn)

	c.logger.Debug("websocket connected", "url", c.cfg.URL)
	return nil
}

func (c *client) extendDeadline(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(c.cfg.PingTimeout))
}

// Close sends a close frame and tears the socket down. Safe to call more than once.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	close(c.stop)

	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return conn.Close()
}

func (c *client) Send(data []byte) error {
	c.mu.RLock()
	conn, ok := c.conn, c.connected
	c.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) Messages() <-chan TimestampedMessage { return c.messages }

func (c *client) Errors() <-chan error { return c.errors }

func (c *client) Done() <-chan struct{} { return c.readDone }

func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *client) readLoop(conn *websocket.Conn) {
	defer close(c.readDone)
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			select {
			case <-c.stop:
				// Closed by us; not an error worth reporting.
			default:
				c.report(classifyReadError(err))
			}
			return
		}
		c.extendDeadline(conn)

		select {
		case c.messages <- TimestampedMessage{Data: data, ReceivedAt: receivedAt}:
		case <-c.stop:
			return
		}
	}
}

// pingLoop sends control pings at half the stale timeout so a quiet but healthy
// peer keeps answering with pongs.
func (c *client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-c.readDone:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("ping failed", "error", err)
			}
		}
	}
}

func (c *client) report(err error) {
	select {
	case c.errors <- err:
	default:
	}
}

func classifyReadError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrStaleConnection
	}
	return err
}
