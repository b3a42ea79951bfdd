// Copyright 2024-2026 Aiku AI

// Package rtm maintains one persistent websocket connection to the Slack
// real-time messaging endpoint. It multiplexes sends through an unbounded
// FIFO queue drained by a single writer goroutine, answers transport pings,
// and delivers parsed data frames to a registered handler.
package rtm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// keepaliveInterval is how often a protocol-level ping is enqueued while
// the connection is up.
const keepaliveInterval = 30 * time.Second

// ErrClosed reports that the connection was closed by the peer or by a
// transport error. Run returns an error wrapping ErrClosed; the caller
// decides whether to reconnect.
var ErrClosed = errors.New("rtm: connection closed")

// Handler receives one parsed inbound data frame. It is invoked on the
// read goroutine, so a handler that blocks stalls further frame delivery.
type Handler func(raw json.RawMessage)

// MessageFrame is an outbound chat message frame. ID is assigned by the
// client when the frame is enqueued.
type MessageFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Mrkdwn  bool   `json:"mrkdwn,omitempty"`
	Parse   string `json:"parse,omitempty"`
	ID      int64  `json:"id"`
}

// Client owns the socket and the send queue. Construct with Dial; the
// connection is single-use, a new Client is dialed after every disconnect.
type Client struct {
	conn    *websocket.Conn
	queue   *sendQueue
	handler Handler
	log     zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}

	// keepaliveEvery is overridable in tests; Dial sets it to keepaliveInterval.
	keepaliveEvery time.Duration

	mu      sync.Mutex
	readErr error
}

// Dial establishes the websocket connection to a session URL obtained from
// rtm.connect. A handshake failure is fatal to this connection attempt.
func Dial(ctx context.Context, url string, log zerolog.Logger) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("rtm dial: %w", err)
	}

	c := &Client{
		conn:           conn,
		queue:          newSendQueue(),
		log:            log.With().Str("component", "rtm").Str("session_id", uuid.NewString()).Logger(),
		done:           make(chan struct{}),
		keepaliveEvery: keepaliveInterval,
	}

	// Transport pings are answered through the send queue rather than
	// written directly, so replies cannot overtake queued data frames.
	conn.SetPingHandler(func(appData string) error {
		c.log.Debug().Msg("received ping frame")
		c.queue.push(frame{kind: framePong, data: []byte(appData)})
		return nil
	})
	conn.SetPongHandler(func(string) error {
		c.log.Debug().Msg("received pong frame")
		return nil
	})

	c.log.Info().Msg("connected")
	return c, nil
}

// OnEvent registers the handler for inbound data frames. Only one handler
// is supported; the last registration wins. Must be called before Run.
func (c *Client) OnEvent(h Handler) {
	c.handler = h
}

// SendMessage assigns the frame a session-unique ID and appends it to the
// send queue. It never blocks and is safe for concurrent use.
func (c *Client) SendMessage(f *MessageFrame) {
	f.ID = nextFrameID()
	data, err := json.Marshal(f)
	if err != nil {
		c.log.Warn().Err(err).Msg("dropping unmarshalable outbound frame")
		return
	}
	c.queue.push(frame{kind: frameText, data: data})
}

// Run drives the connection: it starts the read loop and the keepalive
// timer, then drains the send queue until the close sentinel arrives.
// Sends are written strictly in enqueue order by this single goroutine.
// The returned error wraps ErrClosed with the transport error that ended
// the connection, or is nil after a clean peer close.
func (c *Client) Run() error {
	go c.readLoop()
	go c.keepalive()

	for {
		f := c.queue.pop()
		switch f.kind {
		case frameClosed:
			c.Close()
			c.mu.Lock()
			err := c.readErr
			c.mu.Unlock()
			if err != nil {
				return fmt.Errorf("%w: %w", ErrClosed, err)
			}
			return nil
		case framePing:
			c.write(websocket.PingMessage, nil)
		case framePong:
			c.write(websocket.PongMessage, f.data)
		default:
			c.write(websocket.TextMessage, f.data)
		}
	}
}

// Close tears down the socket. Run unblocks shortly after via the read
// loop's close sentinel if it has not already returned.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) write(messageType int, data []byte) {
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		select {
		case <-c.done:
		default:
			c.log.Warn().Err(err).Msg("write error")
		}
	}
}

func (c *Client) readLoop() {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case <-c.done:
				default:
					c.mu.Lock()
					c.readErr = err
					c.mu.Unlock()
					c.log.Warn().Err(err).Msg("read error, disconnecting")
				}
			} else {
				c.log.Info().Msg("disconnected by peer")
			}
			c.queue.push(frame{kind: frameClosed})
			return
		}

		if messageType != websocket.TextMessage {
			c.log.Warn().Int("message_type", messageType).Msg("dropping unknown message kind")
			continue
		}
		if !json.Valid(data) {
			c.log.Warn().Str("data", string(data)).Msg("dropping malformed frame")
			continue
		}
		if c.handler != nil {
			c.handler(json.RawMessage(data))
		}
	}
}

// keepalive enqueues a ping frame every interval for the lifetime of the
// connection. The ping travels through the send queue like any other frame.
func (c *Client) keepalive() {
	ticker := time.NewTicker(c.keepaliveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.queue.push(frame{kind: framePing})
		}
	}
}

// nextFrameID generates a frame ID in the style the RTM protocol expects:
// positive, 31-bit, and not recently reused within a session. Global
// uniqueness is not required, the server only uses it for ack correlation.
func nextFrameID() int64 {
	return (time.Now().Unix()*10 + rand.Int63n(10)) % (1 << 31)
}
