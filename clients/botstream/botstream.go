package botstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("not connected")

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Config holds the stream client configuration.
type Config struct {
	URL               string
	HeartbeatInterval time.Duration
	ConnectTimeout    time.Duration

	// Reconnect delay after an abnormal close is
	// min(ReconnectBaseDelay << attempt, ReconnectMaxDelay), attempt starting at 0.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:                url,
		HeartbeatInterval:  30 * time.Second,
		ConnectTimeout:     10 * time.Second,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  30 * time.Second,
	}
}

type pingMessage struct {
	Type string `json:"type"`
}

// Client maintains exactly one logical WebSocket connection to the trading
// bot's event endpoint, reconnecting with capped exponential backoff after
// abnormal closes. Retries are unbounded: the dashboard is an observational
// surface and must eventually recover rather than give up.
type Client struct {
	logger *zap.Logger
	cfg    Config
	dialer *websocket.Dialer

	connMu  sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	stopCh  chan struct{}
	baseCtx context.Context

	state   int32 // atomic State
	attempt int32 // atomic reconnect attempt counter
	manual  int32 // atomic flag: 1 while a caller-initiated disconnect is in effect

	msgCount         uint64 // atomic
	lastActivityNano int64  // atomic

	timerMu        sync.Mutex
	reconnectTimer *time.Timer

	cbMu         sync.RWMutex
	onMessage    func([]byte)
	onConnect    func()
	onDisconnect func(error)
}

// NewClient creates a stream client. The connection is not opened until
// Connect is called.
func NewClient(logger *zap.Logger, cfg Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		logger: logger,
		cfg:    cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		baseCtx: context.Background(),
	}
}

// SetOnMessage sets the handler for inbound frames.
func (c *Client) SetOnMessage(handler func([]byte)) {
	c.cbMu.Lock()
	c.onMessage = handler
	c.cbMu.Unlock()
}

// SetOnConnect sets the handler invoked after each successful open,
// including reconnects.
func (c *Client) SetOnConnect(handler func()) {
	c.cbMu.Lock()
	c.onConnect = handler
	c.cbMu.Unlock()
}

// SetOnDisconnect sets the handler invoked when the connection drops.
func (c *Client) SetOnDisconnect(handler func(error)) {
	c.cbMu.Lock()
	c.onDisconnect = handler
	c.cbMu.Unlock()
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(atomic.LoadInt32(&c.state))
}

// IsConnected reports whether a connection is open.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Attempt returns the current reconnect attempt counter.
func (c *Client) Attempt() int {
	return int(atomic.LoadInt32(&c.attempt))
}

// LastActivity returns the time of the last inbound frame or heartbeat
// acknowledgment.
func (c *Client) LastActivity() time.Time {
	ns := atomic.LoadInt64(&c.lastActivityNano)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// TouchActivity records liveness; the router calls this on pong frames.
func (c *Client) TouchActivity() {
	atomic.StoreInt64(&c.lastActivityNano, time.Now().UnixNano())
}

// Stats describes stream traffic counters.
type Stats struct {
	State        State
	MessageCount uint64
	LastActivity time.Time
}

// Stats returns a snapshot of traffic counters.
func (c *Client) Stats() Stats {
	return Stats{
		State:        c.State(),
		MessageCount: atomic.LoadUint64(&c.msgCount),
		LastActivity: c.LastActivity(),
	}
}

// Connect opens the WebSocket connection. It is a no-op when a connection is
// already open. ctx is retained as the base context for reconnect dials.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	if c.conn != nil {
		c.connMu.Unlock()
		return nil
	}
	c.baseCtx = ctx
	c.connMu.Unlock()

	atomic.StoreInt32(&c.manual, 0)
	atomic.StoreInt32(&c.state, int32(StateConnecting))

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	conn, _, err := c.dialer.DialContext(dialCtx, c.cfg.URL, nil)
	cancel()
	if err != nil {
		atomic.StoreInt32(&c.state, int32(StateDisconnected))
		// A failed dial drives the same recovery path as an abnormal close.
		if atomic.LoadInt32(&c.manual) == 0 {
			c.scheduleReconnect()
		}
		return fmt.Errorf("dial bot stream: %w", err)
	}

	stopCh := make(chan struct{})
	c.connMu.Lock()
	if atomic.LoadInt32(&c.manual) == 1 {
		// Disconnect arrived while the dial was in flight; the new
		// connection must not override it.
		c.connMu.Unlock()
		_ = conn.Close()
		atomic.StoreInt32(&c.state, int32(StateDisconnected))
		return ErrNotConnected
	}
	if c.conn != nil {
		// Lost a connect race; keep the existing connection.
		c.connMu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.stopCh = stopCh
	c.connMu.Unlock()

	atomic.StoreInt32(&c.state, int32(StateConnected))
	atomic.StoreInt32(&c.attempt, 0)
	c.TouchActivity()

	c.logger.Info("bot stream connected", zap.String("url", c.cfg.URL))

	// The open handler runs before the read loop starts so anything it
	// sends (queued commands, subscriptions) goes out ahead of the first
	// inbound frame being handled.
	c.cbMu.RLock()
	onConnect := c.onConnect
	c.cbMu.RUnlock()
	if onConnect != nil {
		onConnect()
	}

	go c.readLoop(conn, stopCh)
	go c.heartbeatLoop(stopCh)

	return nil
}

// Disconnect closes the connection with a normal close code and cancels any
// pending reconnect. Safe to call repeatedly; no reconnect follows.
func (c *Client) Disconnect() {
	atomic.StoreInt32(&c.manual, 1)
	c.cancelReconnect()

	c.connMu.Lock()
	conn := c.conn
	stopCh := c.stopCh
	c.conn = nil
	c.stopCh = nil
	c.connMu.Unlock()

	atomic.StoreInt32(&c.state, int32(StateDisconnected))

	if stopCh != nil {
		close(stopCh)
	}
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		_ = conn.Close()
		c.logger.Info("bot stream disconnected")
	}
}

// Kick connects immediately when currently disconnected. Wired to external
// network-restored or visibility-regained signals; supplements, but does not
// replace, the backoff timer.
func (c *Client) Kick() {
	if c.State() != StateDisconnected {
		return
	}
	go func() {
		if err := c.Connect(c.baseContext()); err != nil {
			c.logger.Warn("kick connect failed", zap.Error(err))
		}
	}()
}

// Send writes one JSON message to the connection. Callers that need queueing
// while disconnected layer it on top of ErrNotConnected.
func (c *Client) Send(v any) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn == nil || c.State() != StateConnected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *Client) baseContext() context.Context {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.baseCtx
}

func (c *Client) readLoop(conn *websocket.Conn, stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, stopCh, err)
			return
		}

		atomic.AddUint64(&c.msgCount, 1)
		c.TouchActivity()

		c.cbMu.RLock()
		onMessage := c.onMessage
		c.cbMu.RUnlock()
		if onMessage != nil {
			onMessage(frame)
		}
	}
}

func (c *Client) heartbeatLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if err := c.Send(pingMessage{Type: "ping"}); err != nil {
				c.logger.Debug("heartbeat send failed", zap.Error(err))
				return
			}
		}
	}
}

// handleClose tears down the given connection and, for abnormal closes,
// schedules a reconnect. The conn identity check makes it a no-op when a
// deliberate Disconnect already took the connection away.
func (c *Client) handleClose(conn *websocket.Conn, stopCh chan struct{}, err error) {
	c.connMu.Lock()
	if c.conn != conn {
		c.connMu.Unlock()
		return
	}
	c.conn = nil
	c.stopCh = nil
	c.connMu.Unlock()

	close(stopCh)
	_ = conn.Close()
	atomic.StoreInt32(&c.state, int32(StateDisconnected))

	c.cbMu.RLock()
	onDisconnect := c.onDisconnect
	c.cbMu.RUnlock()
	if onDisconnect != nil {
		onDisconnect(err)
	}

	if atomic.LoadInt32(&c.manual) == 1 {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Info("bot stream closed normally")
		return
	}

	c.logger.Warn("bot stream closed abnormally", zap.Error(err))
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	attempt := c.Attempt()
	delay := BackoffDelay(c.cfg.ReconnectBaseDelay, c.cfg.ReconnectMaxDelay, attempt)
	atomic.AddInt32(&c.attempt, 1)

	c.logger.Info("scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
	)

	c.timerMu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(delay, func() {
		if atomic.LoadInt32(&c.manual) == 1 {
			return
		}
		// Connect schedules the next attempt itself when the dial fails.
		if err := c.Connect(c.baseContext()); err != nil {
			c.logger.Warn("reconnect failed", zap.Error(err))
		}
	})
	c.timerMu.Unlock()
}

func (c *Client) cancelReconnect() {
	c.timerMu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.timerMu.Unlock()
}

// BackoffDelay computes the reconnect delay for the given attempt: the base
// delay doubled per attempt, capped at max.
func BackoffDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
