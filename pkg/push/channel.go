package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/JamesRaphaelJRC/guildme/pkg/log"
	"github.com/JamesRaphaelJRC/guildme/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 64

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Envelope is one frame on the push channel. Data is left raw so each
// handler decodes only the payload it understands.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler consumes the payload of one named event.
type Handler func(data json.RawMessage)

// Emitter is the outbound half of the channel, accepted by the engines so
// tests can record emissions.
type Emitter interface {
	Emit(event string, payload any) error
}

// Channel is a persistent bidirectional push connection. Inbound events
// are dispatched to registered handlers from a single goroutine, so
// handlers never run concurrently with each other; this is the ordering
// model every session engine relies on.
type Channel struct {
	url    string
	dialer websocket.Dialer
	ctx    context.Context

	connMu sync.Mutex
	conn   *websocket.Conn

	send chan Envelope
	recv chan Envelope
	done chan struct{}

	mu       sync.RWMutex
	handlers map[string][]Handler

	connected atomic.Bool
	closeOnce sync.Once
	logger    zerolog.Logger
}

// Dial connects the push channel. The HTTP client's cookie jar is shared
// so the websocket upgrade carries the backend session cookie. The first
// connect fails fast; once Start runs, lost connections are redialed with
// exponential backoff until Close.
func Dial(ctx context.Context, url string, httpClient *http.Client) (*Channel, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if httpClient != nil {
		dialer.Jar = httpClient.Jar
	}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	ch := &Channel{
		url:      url,
		dialer:   dialer,
		ctx:      ctx,
		conn:     conn,
		send:     make(chan Envelope, sendBufferSize),
		recv:     make(chan Envelope, sendBufferSize),
		done:     make(chan struct{}),
		handlers: make(map[string][]Handler),
		logger:   log.WithComponent("push"),
	}
	ch.connected.Store(true)
	return ch, nil
}

// Handle registers a handler for a named event. Multiple handlers per
// event run in registration order. Register before Start.
func (c *Channel) Handle(event string, fn Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], fn)
}

// Emit queues an event for delivery. When the send buffer is full the
// oldest pending frame is dropped rather than blocking an engine.
func (c *Channel) Emit(event string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", event, err)
		}
		data = encoded
	}

	env := Envelope{Event: event, Data: data}
	select {
	case c.send <- env:
	default:
		select {
		case <-c.send:
			c.logger.Warn().Str("event", event).Msg("send buffer full, dropping oldest frame")
		default:
		}
		c.send <- env
	}
	metrics.PushEventsEmittedTotal.WithLabelValues(event).Inc()
	return nil
}

// Start launches the connection supervisor, write and dispatch loops.
func (c *Channel) Start() {
	go c.connLoop()
	go c.writeLoop()
	go c.dispatchLoop()
}

// Connected reports whether the underlying connection is still up.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}

// Close tears the connection down and stops all loops.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		close(c.done)
		if conn := c.current(); conn != nil {
			_ = conn.Close()
		}
	})
}

func (c *Channel) current() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

// connLoop reads frames until the connection drops, then redials with
// exponential backoff. Handlers registered on the channel survive the
// reconnect; only in-flight frames on the dead connection are lost.
func (c *Channel) connLoop() {
	backoff := initialBackoff
	for {
		err := c.readFrames()
		c.connected.Store(false)
		select {
		case <-c.done:
			return
		default:
		}
		c.logger.Warn().Err(err).Msg("push connection lost")

		for {
			select {
			case <-time.After(backoff):
			case <-c.done:
				return
			}
			metrics.PushReconnectsTotal.Inc()
			conn, _, err := c.dialer.DialContext(c.ctx, c.url, nil)
			if err != nil {
				c.logger.Warn().Err(err).Dur("backoff", backoff).Msg("redial push channel")
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			c.setConn(conn)
			c.connected.Store(true)
			backoff = initialBackoff
			c.logger.Info().Msg("push channel reconnected")
			break
		}
	}
}

// readFrames pumps one connection's frames into recv until it fails.
func (c *Channel) readFrames() error {
	conn := c.current()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			c.logger.Warn().Err(err).Msg("malformed push frame")
			continue
		}
		select {
		case c.recv <- env:
		case <-c.done:
			return nil
		}
	}
}

func (c *Channel) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.send:
			conn := c.current()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				// The supervisor replaces the connection; the frame is lost.
				c.logger.Debug().Err(err).Str("event", env.Event).Msg("write frame")
			}
		case <-ticker.C:
			conn := c.current()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		case <-c.done:
			return
		}
	}
}

// dispatchLoop invokes handlers one event at a time. Mutations triggered
// by push delivery are therefore serialized with each other; staleness
// against interleaved remote-call responses is handled by session tickets.
func (c *Channel) dispatchLoop() {
	for {
		select {
		case env := <-c.recv:
			metrics.PushEventsReceivedTotal.WithLabelValues(env.Event).Inc()
			c.mu.RLock()
			handlers := c.handlers[env.Event]
			c.mu.RUnlock()
			if len(handlers) == 0 {
				c.logger.Debug().Str("event", env.Event).Msg("no handler for event")
				continue
			}
			for _, fn := range handlers {
				fn(env.Data)
			}
		case <-c.done:
			return
		}
	}
}
