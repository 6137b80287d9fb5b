package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Handlers receive transport output. Any field may be nil.
type Handlers struct {
	// OnMessage receives every frame exactly once, in receive order, from one goroutine
	// per connection.
	OnMessage func(TimestampedMessage)

	// OnStatus receives the raw connected flag on every open and close.
	// Called with the transport lock held; it must not call back into the transport.
	OnStatus func(connected bool)

	// OnReconnect is called when a retry is armed.
	OnReconnect func(attempt int, delay time.Duration)
}

// Transport owns the single connection to the bot process.
//
// Every transition bumps a generation counter. Callbacks from goroutines or timers
// belonging to an older generation are ignored, which is how Close detaches the close
// handler before the socket goes down.
type Transport struct {
	cfg      TransportConfig
	handlers Handlers
	factory  ClientFactory
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	gen        uint64
	client     Client
	backoff    *Backoff
	retry      *time.Timer
	stopPing   chan struct{}
	cancelDial context.CancelFunc
	pumpDone   chan struct{}

	// Stats
	connects       atomic.Int64
	dialFailures   atomic.Int64
	drops          atomic.Int64
	messages       atomic.Int64
	keepalivesSent atomic.Int64
}

// NewTransport creates an idle transport. A nil factory uses NewClient.
func NewTransport(cfg TransportConfig, handlers Handlers, factory ClientFactory, logger *slog.Logger) *Transport {
	def := DefaultTransportConfig()
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = def.KeepaliveInterval
	}
	if cfg.Client.URL == "" {
		cfg.Client.URL = cfg.URL
	}
	if factory == nil {
		factory = NewClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		cfg:      cfg,
		handlers: handlers,
		factory:  factory,
		logger:   logger.With("component", "transport"),
		state:    StateIdle,
		backoff:  NewBackoff(cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay),
	}
}

// Connect opens the connection. No-op while connecting or open.
// A pending retry is cancelled and the dial happens immediately.
func (t *Transport) Connect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateConnecting, StateOpen:
		return
	case StateBackoffWait:
		t.stopRetryLocked()
	}
	t.dialLocked()
}

// Close detaches, clears both timers, then closes the socket.
// It returns after the message pump has exited, so no frame is forwarded once Close returns.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.state == StateIdle {
		t.mu.Unlock()
		return
	}

	t.gen++ // Detach first.
	t.state = StateClosing
	t.stopRetryLocked()
	t.stopKeepaliveLocked()
	if t.cancelDial != nil {
		t.cancelDial()
		t.cancelDial = nil
	}
	c := t.client
	t.client = nil
	pumpDone := t.pumpDone
	t.pumpDone = nil
	t.setConnectedLocked(false)
	t.mu.Unlock()

	if c != nil {
		if err := c.Close(); err != nil {
			t.logger.Debug("close error", "error", err)
		}
	}
	if pumpDone != nil {
		<-pumpDone
	}

	t.mu.Lock()
	if t.state == StateClosing {
		t.state = StateIdle
	}
	t.mu.Unlock()

	t.logger.Info("transport closed")
}

// State returns the current lifecycle state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsOpen reports whether the connection is open.
func (t *Transport) IsOpen() bool {
	return t.State() == StateOpen
}

// Send writes a frame on the open connection.
func (t *Transport) Send(data []byte) error {
	t.mu.Lock()
	c := t.client
	open := t.state == StateOpen
	t.mu.Unlock()

	if !open || c == nil {
		return ErrNotConnected
	}
	return c.Send(data)
}

// Stats returns transport statistics.
func (t *Transport) Stats() TransportStats {
	t.mu.Lock()
	state := t.state
	attempt := t.backoff.Attempts()
	t.mu.Unlock()

	return TransportStats{
		State:          state,
		Connects:       t.connects.Load(),
		DialFailures:   t.dialFailures.Load(),
		Drops:          t.drops.Load(),
		Messages:       t.messages.Load(),
		KeepalivesSent: t.keepalivesSent.Load(),
		Attempt:        attempt,
	}
}

// dialLocked starts an asynchronous connection attempt.
func (t *Transport) dialLocked() {
	t.gen++
	gen := t.gen
	t.state = StateConnecting

	ctx, cancel := context.WithCancel(context.Background())
	t.cancelDial = cancel

	c := t.factory(t.cfg.Client, t.logger)
	t.logger.Debug("connecting", "url", t.cfg.Client.URL)

	go t.dial(ctx, gen, c)
}

func (t *Transport) dial(ctx context.Context, gen uint64, c Client) {
	err := c.Connect(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.gen != gen {
		// Closed or superseded while dialing.
		if err == nil {
			go c.Close()
		}
		return
	}
	t.cancelDial = nil

	if err != nil {
		t.dialFailures.Add(1)
		t.logger.Warn("connect failed", "error", err)
		t.scheduleRetryLocked()
		return
	}

	t.state = StateOpen
	t.client = c
	t.backoff.Reset()
	t.connects.Add(1)
	t.pumpDone = make(chan struct{})
	t.stopPing = make(chan struct{})
	t.setConnectedLocked(true)

	go t.pump(gen, c, t.pumpDone)
	go t.keepalive(gen, c, t.stopPing)

	t.logger.Info("transport open", "url", t.cfg.Client.URL)
}

// pump forwards frames until the client fails or the generation changes.
func (t *Transport) pump(gen uint64, c Client, done chan struct{}) {
	defer close(done)

	for {
		select {
		case msg, ok := <-c.Messages():
			if !ok {
				t.handleDrop(gen, c, ErrNotConnected)
				return
			}
			if !t.forward(gen, msg) {
				return
			}

		case err := <-c.Errors():
			// The read loop has stopped; frames it queued first still go out.
			if !t.drain(gen, c) {
				return
			}
			t.handleDrop(gen, c, err)
			return

		case <-c.Done():
			if !t.drain(gen, c) {
				return
			}
			t.handleDrop(gen, c, ErrNotConnected)
			return
		}
	}
}

// forward hands one frame to the handler. Returns false once the generation is stale.
func (t *Transport) forward(gen uint64, msg TimestampedMessage) bool {
	if !t.current(gen) {
		return false
	}
	t.messages.Add(1)
	if t.handlers.OnMessage != nil {
		t.handlers.OnMessage(msg)
	}
	return true
}

func (t *Transport) drain(gen uint64, c Client) bool {
	for {
		select {
		case msg, ok := <-c.Messages():
			if !ok {
				return true
			}
			if !t.forward(gen, msg) {
				return false
			}
		default:
			return true
		}
	}
}

func (t *Transport) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen == gen
}

// handleDrop forces the connection closed and arms a retry.
func (t *Transport) handleDrop(gen uint64, c Client, cause error) {
	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return
	}

	t.drops.Add(1)
	t.logger.Warn("connection lost", "error", cause)

	t.stopKeepaliveLocked()
	t.client = nil
	// The pump calling us is the one that owns pumpDone; it closes it on return.
	t.pumpDone = nil
	t.setConnectedLocked(false)
	t.scheduleRetryLocked()
	t.mu.Unlock()

	if err := c.Close(); err != nil {
		t.logger.Debug("close error", "error", err)
	}
}

// keepalive sends the application ping while this generation is open.
func (t *Transport) keepalive(gen uint64, c Client, stop chan struct{}) {
	ticker := time.NewTicker(t.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			live := t.gen == gen && t.state == StateOpen
			t.mu.Unlock()
			if !live {
				return
			}
			if err := c.Send(KeepaliveFrame); err != nil {
				t.logger.Debug("keepalive send failed", "error", err)
				continue
			}
			t.keepalivesSent.Add(1)
		}
	}
}

func (t *Transport) scheduleRetryLocked() {
	t.gen++
	gen := t.gen
	t.state = StateBackoffWait

	delay := t.backoff.Next()
	attempt := t.backoff.Attempts()
	t.retry = time.AfterFunc(delay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen != gen || t.state != StateBackoffWait {
			return
		}
		t.retry = nil
		t.dialLocked()
	})

	t.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
	if t.handlers.OnReconnect != nil {
		t.handlers.OnReconnect(attempt, delay)
	}
}

func (t *Transport) stopRetryLocked() {
	if t.retry != nil {
		t.retry.Stop()
		t.retry = nil
	}
}

func (t *Transport) stopKeepaliveLocked() {
	if t.stopPing != nil {
		close(t.stopPing)
		t.stopPing = nil
	}
}

func (t *Transport) setConnectedLocked(connected bool) {
	if t.handlers.OnStatus != nil {
		t.handlers.OnStatus(connected)
	}
}
