// Package wsconn provides a WebSocket client with keepalive and reconnection.
package wsconn

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/price-getter/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns defaults for a long-lived subscription.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// MessageHandler receives every inbound message.
type MessageHandler func(ctx context.Context, msg []byte)

// StateHandler observes state transitions.
type StateHandler func(state State, err error)

// ConnectHandler runs after every successful (re)connect, e.g. to resubscribe.
type ConnectHandler func(ctx context.Context) error

// Client is a WebSocket client that reconnects with exponential backoff.
type Client struct {
	cfg Config

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     State
	onMessage MessageHandler
	onState   StateHandler
	onConnect ConnectHandler

	runCtx    context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once

	reconnects metric.Int64Counter
	attrs      metric.MeasurementOption
}

// New creates a client. It does not dial until Connect.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("websocket url is empty"))
	}
	if cfg.Name == "" {
		cfg.Name = cfg.URL
	}

	counter, err := otel.Meter("wsconn").Int64Counter("ws_reconnects_total",
		metric.WithDescription("WebSocket reconnect attempts"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:        cfg,
		state:      StateDisconnected,
		runCtx:     ctx,
		cancel:     cancel,
		reconnects: counter,
		attrs:      metric.WithAttributes(attribute.String("connection", cfg.Name)),
	}, nil
}

// OnMessage sets the inbound message handler.
func (c *Client) OnMessage(h MessageHandler) {
	c.mu.Lock()
	c.onMessage = h
	c.mu.Unlock()
}

// OnStateChange sets the state observer.
func (c *Client) OnStateChange(h StateHandler) {
	c.mu.Lock()
	c.onState = h
	c.mu.Unlock()
}

// OnConnect sets a hook run after each successful connect.
func (c *Client) OnConnect(h ConnectHandler) {
	c.mu.Lock()
	c.onConnect = h
	c.mu.Unlock()
}

// Connect dials the server. On failure the client stays disconnected and does not retry.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.cfg.Name))
	}

	c.setState(StateConnecting, nil)

	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected, err)
		return apperror.External(apperror.CodeWebSocketConnectionError, c.cfg.URL, err)
	}

	return c.install(conn)
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	return conn, nil
}

func (c *Client) install(conn *websocket.Conn) error {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.cfg.Name))
	}
	c.conn = conn
	onConnect := c.onConnect
	c.mu.Unlock()

	c.setState(StateConnected, nil)

	go c.readLoop(conn)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(conn)
	}

	if onConnect != nil {
		if err := onConnect(c.runCtx); err != nil {
			_ = conn.Close(websocket.StatusInternalError, "connect hook failed")
			return err
		}
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(c.runCtx)
		if err != nil {
			if c.closed.Load() {
				return
			}
			conn.CloseNow()
			go c.reconnect(err)
			return
		}

		c.mu.RLock()
		h := c.onMessage
		c.mu.RUnlock()
		if h != nil {
			h(c.runCtx, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.runCtx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.runCtx, c.cfg.PongTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				// The read loop observes the close and reconnects.
				conn.CloseNow()
				return
			}
		}
	}
}

func (c *Client) reconnect(cause error) {
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	c.setState(StateReconnecting, cause)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
	}
	if c.cfg.MaxReconnects > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(c.cfg.MaxReconnects)))
	}

	conn, err := backoff.Retry(c.runCtx, func() (*websocket.Conn, error) {
		if c.closed.Load() {
			return nil, backoff.Permanent(apperror.New(apperror.CodeWebSocketClosed))
		}
		c.reconnects.Add(c.runCtx, 1, c.attrs)
		return c.dial(c.runCtx)
	}, opts...)
	if err != nil {
		if !c.closed.Load() {
			c.setState(StateDisconnected, err)
		}
		return
	}

	if err := c.install(conn); err != nil && !c.closed.Load() {
		c.setState(StateDisconnected, err)
	}
}

// Send writes a text message.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || c.closed.Load() {
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.cfg.Name))
	}

	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.External(apperror.CodeWebSocketSendError, c.cfg.Name, err)
	}
	return nil
}

// SendJSON encodes v and writes it as a text message.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeInvalidFormat, apperror.WithCause(err))
	}
	return c.Send(ctx, data)
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the client holds a live connection.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close shuts the connection down and stops reconnecting. It is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}
		c.forceState(StateClosed, nil)
	})
	return nil
}

func (c *Client) setState(s State, err error) {
	if c.closed.Load() {
		return
	}
	c.forceState(s, err)
}

func (c *Client) forceState(s State, err error) {
	c.mu.Lock()
	c.state = s
	h := c.onState
	c.mu.Unlock()

	if h != nil {
		h(s, err)
	}
}
