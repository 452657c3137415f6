// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tomtom215/sentinel/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB
)

// clientIDCounter generates unique, monotonically increasing IDs for
// clients, giving the hub a stable sort key for deterministic fan-out.
var clientIDCounter atomic.Uint64

// Client is the middleman between one websocket connection and the hub.
// Each client belongs to exactly one identity and carries the channel
// memberships computed for that identity at handshake time.
type Client struct {
	id         uint64
	identityID string
	channels   []string
	hub        *Hub
	conn       *websocket.Conn
	send       chan Message
}

// NewClient creates a client for an authenticated identity enrolled in the
// given channels. The caller registers it with the hub and starts the pumps.
func NewClient(hub *Hub, conn *websocket.Conn, identityID string, channels []string) *Client {
	return &Client{
		id:         clientIDCounter.Add(1),
		identityID: identityID,
		channels:   channels,
		hub:        hub,
		conn:       conn,
		send:       make(chan Message, 256),
	}
}

// IdentityID returns the identity this connection belongs to.
func (c *Client) IdentityID() string {
	return c.identityID
}

// Channels returns the channel keys the client is enrolled in.
func (c *Client) Channels() []string {
	return c.channels
}

// TrySend queues an event for direct delivery to this connection without
// blocking. Returns false when the send buffer is full or closing; the
// event is dropped in that case. Implements presence.Conn.
func (c *Client) TrySend(event string, payload interface{}) bool {
	defer func() {
		// The hub may close c.send concurrently with a direct delivery;
		// a send on the closed channel panics and is swallowed here, the
		// delivery counting as a miss.
		_ = recover()
	}()

	select {
	case c.send <- Message{Type: event, Data: payload}:
		return true
	default:
		return false
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close() // best-effort cleanup
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
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}

		if msg.Type == MessageTypePing {
			select {
			case c.send <- Message{Type: MessageTypePong}:
			default:
			}
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
