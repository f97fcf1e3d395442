package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dkeye/roomrec/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrNotConnected = errors.New("signaling not connected")
	ErrRateLimited  = errors.New("play request rate limited")
)

// Deliver hands a decoded inbound message to its consumer.
type Deliver func(ctx context.Context, msg core.Message) error

type Options struct {
	URL    string
	RoomID string

	ReadLimit            int64
	PingPeriod           time.Duration
	WriteWait            time.Duration
	SendBuffer           int
	MaxReconnectInterval time.Duration
	Dialer               *websocket.Dialer

	// At most PlayLimit play requests per stream within PlayWindow; zero
	// disables the limit.
	PlayLimit  int
	PlayWindow time.Duration
}

func (o *Options) defaults() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 20 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.MaxReconnectInterval <= 0 {
		o.MaxReconnectInterval = 30 * time.Second
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.PlayWindow <= 0 {
		o.PlayWindow = 10 * time.Second
	}
}

// Client is the single signaling connection to the room server. It keeps
// reconnecting until its context ends and rejoins the room every time.
type Client struct {
	opts    Options
	deliver Deliver
	plays   *PlayRateLimiter

	mu   sync.RWMutex
	conn *wsConn
}

func NewClient(opts Options, deliver Deliver) *Client {
	opts.defaults()
	return &Client{
		opts:    opts,
		deliver: deliver,
		plays:   NewPlayRateLimiter(opts.PlayLimit, opts.PlayWindow),
	}
}

type wsConn struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) trySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrNotConnected
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
}

// TrySend encodes m and queues it on the current connection without blocking.
func (c *Client) TrySend(m core.Message) error {
	if play, ok := m.(core.PlayRequest); ok && !c.plays.Allow(play.StreamID) {
		return fmt.Errorf("%w: %s", ErrRateLimited, play.StreamID)
	}
	b, err := Encode(m)
	if err != nil {
		return err
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.trySend(b)
}

// Connected reports whether a connection is currently up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

func (c *Client) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = c.opts.MaxReconnectInterval
	b.MaxElapsedTime = 0

	op := func() error {
		err := c.session(ctx, b)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("module", "signal").Dur("retry_in", wait).Msg("signaling connection lost")
	}
	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// session runs one connection until it drops.
func (c *Client) session(ctx context.Context, b backoff.BackOff) error {
	ws, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	b.Reset()
	log.Info().Str("module", "signal").Str("url", c.opts.URL).Msg("connected")

	conn := &wsConn{ws: ws, send: make(chan []byte, c.opts.SendBuffer)}
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.close()
	}()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.TrySend(core.JoinRoom{RoomID: c.opts.RoomID}); err != nil {
		return fmt.Errorf("join room: %w", err)
	}

	go c.writePump(ctx, conn)
	return c.readPump(ctx, conn)
}

func (c *Client) writePump(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.close()
			return
		case data, ok := <-conn.send:
			if !ok {
				return
			}
			if err := conn.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				conn.close()
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				conn.close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteWait)
			if err := conn.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				conn.close()
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context, conn *wsConn) error {
	pongWait := c.opts.PingPeriod * 3
	conn.ws.SetReadLimit(c.opts.ReadLimit)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := Decode(data)
		if err != nil {
			log.Debug().Err(err).Str("module", "signal").Int("bytes", len(data)).Msg("frame skipped")
			continue
		}
		if err := c.deliver(ctx, msg); err != nil {
			return fmt.Errorf("deliver %s: %w", core.MessageType(msg), err)
		}
	}
}
