package push

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultPingInterval   = 30 * time.Second
	defaultReconnectMin   = 500 * time.Millisecond
	defaultReconnectMax   = 30 * time.Second
	defaultSendBufferSize = 64
	writeWait             = 10 * time.Second
)

// Channel manages one persistent websocket connection per screen
// lifetime. Delivery is best-effort: no acknowledgement, no retry of
// missed events. Reconnection is automatic and transparent; the
// subscription registry lives outside the connection, so subscribers
// survive a reconnect without re-subscribing. When the relay is
// unreachable the channel degrades to local-only mode: Emit drops
// frames with a log line instead of failing the caller.
type Channel struct {
	url     string
	session string
	dialer  *websocket.Dialer
	header  map[string][]string
	logger  *zap.Logger

	pingInterval time.Duration
	reconnectMin time.Duration
	reconnectMax time.Duration

	mu      sync.Mutex
	subs    map[string]map[int]func(Envelope)
	nextSub int
	started bool

	sendCh    chan Envelope
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected atomic.Bool
}

// ChannelOption is a functional option for configuring the channel
type ChannelOption func(*Channel)

// WithChannelLogger sets the logger for the channel
func WithChannelLogger(logger *zap.Logger) ChannelOption {
	return func(c *Channel) { c.logger = logger }
}

// WithSessionID overrides the generated session identifier
func WithSessionID(id string) ChannelOption {
	return func(c *Channel) { c.session = id }
}

// WithPingInterval sets the keepalive ping interval
func WithPingInterval(d time.Duration) ChannelOption {
	return func(c *Channel) { c.pingInterval = d }
}

// WithReconnectWait bounds the backoff between dial attempts
func WithReconnectWait(min, max time.Duration) ChannelOption {
	return func(c *Channel) {
		c.reconnectMin = min
		c.reconnectMax = max
	}
}

// WithBearer attaches a bearer token to the upgrade request
func WithBearer(token string) ChannelOption {
	return func(c *Channel) {
		c.header["Authorization"] = []string{"Bearer " + token}
	}
}

// NewChannel creates a channel that will connect to the relay at url
// (ws:// or wss:// scheme).
func NewChannel(url string, opts ...ChannelOption) *Channel {
	c := &Channel{
		url:          url,
		session:      uuid.New().String(),
		dialer:       websocket.DefaultDialer,
		header:       map[string][]string{},
		logger:       zap.NewNop(),
		pingInterval: defaultPingInterval,
		reconnectMin: defaultReconnectMin,
		reconnectMax: defaultReconnectMax,
		subs:         make(map[string]map[int]func(Envelope)),
		sendCh:       make(chan Envelope, defaultSendBufferSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns this connection's session identifier; it is stamped
// as the origin on every emitted envelope.
func (c *Channel) Session() string { return c.session }

// Connected reports whether the transport currently has a live
// connection. False means local-only mode, not a hard failure.
func (c *Channel) Connected() bool { return c.connected.Load() }

// Start begins the connect/read/reconnect loop. It returns
// immediately; a relay that is down never blocks the screen.
func (c *Channel) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.run()
}

// Close tears down the connection and stops all goroutines
func (c *Channel) Close() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
}

// Subscribe registers a handler for a topic and returns an unsubscribe
// handle. Handlers are invoked on the read loop; they must not block.
func (c *Channel) Subscribe(topic string, fn func(Envelope)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs[topic] == nil {
		c.subs[topic] = make(map[int]func(Envelope))
	}
	id := c.nextSub
	c.nextSub++
	c.subs[topic][id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[topic], id)
	}
}

// Emit queues an envelope for the relay. In local-only mode the frame
// is dropped silently; cross-session propagation is a convenience, not
// a contract.
func (c *Channel) Emit(_ context.Context, env Envelope) error {
	if env.Origin == "" {
		env.Origin = c.session
	}
	select {
	case c.sendCh <- env:
	default:
		c.logger.Debug("push channel send buffer full, dropping frame",
			zap.String("event", env.Event))
	}
	return nil
}

// run dials, pumps, and redials with capped exponential backoff
func (c *Channel) run() {
	defer c.wg.Done()

	wait := c.reconnectMin
	for {
		if c.ctx.Err() != nil {
			return
		}

		conn, _, err := c.dialer.DialContext(c.ctx, c.url, c.header)
		if err != nil {
			c.logger.Warn("push channel dial failed, operating local-only",
				zap.String("url", c.url),
				zap.Duration("retry_in", wait),
				zap.Error(err))
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > c.reconnectMax {
				wait = c.reconnectMax
			}
			continue
		}

		wait = c.reconnectMin
		c.connected.Store(true)
		c.logger.Info("push channel connected", zap.String("session", c.session))

		c.pump(conn)

		c.connected.Store(false)
		c.logger.Info("push channel disconnected")
	}
}

// pump runs the write side in a goroutine and reads until the
// connection dies, dispatching each inbound envelope.
func (c *Channel) pump(conn *websocket.Conn) {
	connDone := make(chan struct{})
	writerDone := make(chan struct{})

	pongWait := c.pingInterval + 10*time.Second
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				_ = conn.Close()
				return
			case <-connDone:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					_ = conn.Close()
					return
				}
			case env := <-c.sendCh:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(env); err != nil {
					c.logger.Warn("push channel write failed", zap.Error(err))
					_ = conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Warn("push channel received malformed frame", zap.Error(err))
			continue
		}
		c.dispatch(env)
	}

	close(connDone)
	_ = conn.Close()
	<-writerDone
}

// dispatch fans an envelope out to every handler subscribed to its
// topic, isolating handler panics the same way the rest of the event
// plumbing does.
func (c *Channel) dispatch(env Envelope) {
	c.mu.Lock()
	handlers := make([]func(Envelope), 0, len(c.subs[env.Event]))
	for _, fn := range c.subs[env.Event] {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		c.safeCall(fn, env)
	}
}

func (c *Channel) safeCall(fn func(Envelope), env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("push handler panicked",
				zap.String("event", env.Event),
				zap.Any("panic", r))
		}
	}()
	fn(env)
}
