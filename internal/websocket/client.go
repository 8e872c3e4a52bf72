// Whisperbox - Anonymous Inbox, Polls and Message Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/whisperbox

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/whisperbox/internal/logging"
	"github.com/tomtom215/whisperbox/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // clients only send small control frames
)

// clientIDCounter gives clients monotonically increasing ids so deliveries
// happen in a stable order.
var clientIDCounter atomic.Uint64

// Frame is the wire shape used when decoding frames; Data is left raw.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	id          uint64
	recipientID string
	hub         *Hub
	conn        *websocket.Conn
	send        chan Message
	removed     chan struct{} // closed by the hub together with send
	limiter     *rate.Limiter
	state       stateMachine
}

// NewClient creates a Client in the Connecting state.
func NewClient(hub *Hub, conn *websocket.Conn, recipientID string) *Client {
	return &Client{
		id:          clientIDCounter.Add(1),
		recipientID: recipientID,
		hub:         hub,
		conn:        conn,
		send:        make(chan Message, hub.sendBuffer),
		removed:     make(chan struct{}),
		limiter:     rate.NewLimiter(hub.frameRate, hub.frameBurst),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// RecipientID returns the inbox this client is subscribed to.
func (c *Client) RecipientID() string {
	return c.recipientID
}

// State returns the current subscription state.
func (c *Client) State() SubscriptionState {
	return c.state.load()
}

// readPump reads client frames until the connection fails.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c:
		case <-c.removed:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}

		if !c.limiter.Allow() {
			metrics.WSErrors.WithLabelValues("rate_limited").Inc()
			continue
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			metrics.WSErrors.WithLabelValues("bad_frame").Inc()
			continue
		}

		if frame.Type == MessageTypePing {
			c.queue(Message{Type: MessageTypePong})
		}
	}
}

// queue sends m without blocking. The hub closes send under its write lock,
// so holding the read lock here keeps the send from racing the close.
func (c *Client) queue(m Message) bool {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	select {
	case <-c.removed:
		return false
	default:
	}
	select {
	case c.send <- m:
		return true
	default:
		return false
	}
}

// writePump writes hub frames and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}

			payload, err := json.Marshal(message)
			if err != nil {
				logging.Error().Err(err).Str("type", message.Type).Msg("failed to encode websocket frame")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
