// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Transport-level message types handled by the hub itself.
const (
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Message represents a WebSocket message. Type carries the event name
// (e.g., "child-deviation-alert") and Data the event payload.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// channelMessage is a message targeted at one channel's members.
type channelMessage struct {
	channel string
	message Message
}

// Hub maintains the set of active clients and their channel memberships,
// and fans messages out to the members of a channel. Delivery is
// best-effort and non-blocking: there is no acknowledgment, retry, or
// persistence of missed events, and events published to a channel with no
// live members are dropped.
type Hub struct {
	clients map[*Client]bool

	// channels maps a channel key to its member set. Memberships are
	// assigned at registration (from Client.channels) and removed wholesale
	// on disconnect.
	channels map[string]map[*Client]bool

	broadcast  chan channelMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// onDisconnect, when set, is invoked for every client removed from the
	// hub. The composition root uses it to release the presence mapping.
	onDisconnect func(*Client)
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		channels:   make(map[string]map[*Client]bool),
		broadcast:  make(chan channelMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// SetDisconnectHandler installs a callback invoked whenever a client is
// removed from the hub. Must be called before RunWithContext.
func (h *Hub) SetDisconnectHandler(fn func(*Client)) {
	h.onDisconnect = fn
}

// Publish queues a message for every connection currently enrolled in the
// channel. Non-blocking: when the hub's broadcast buffer is full the message
// is dropped and counted, never retried.
func (h *Hub) Publish(channel, event string, payload interface{}) {
	msg := channelMessage{
		channel: channel,
		message: Message{Type: event, Data: payload},
	}

	select {
	case h.broadcast <- msg:
		metrics.EventsPublished.WithLabelValues(event).Inc()
	default:
		metrics.EventsDropped.WithLabelValues(event).Inc()
		logging.Warn().
			Str("channel", channel).
			Str("event", event).
			Msg("broadcast channel full, dropping message")
	}
}

// RunWithContext starts the hub with context support for graceful shutdown.
// Designed for use with suture supervision: on context cancellation all
// connected clients are gracefully closed and ctx.Err() is returned, so a
// supervisor restart never leaves orphaned connections.
//
// Uses priority-based selection for predictable behavior: shutdown first,
// then client lifecycle events, then broadcasts. Client state is always
// consistent before a message is fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.registerClient(client)
			continue
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		default:
		}

		// Priority 3: broadcasts, or block until any event arrives
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// registerClient adds the client to the hub and enrolls it in its channels.
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	for _, ch := range client.channels {
		members, ok := h.channels[ch]
		if !ok {
			members = make(map[*Client]bool)
			h.channels[ch] = members
		}
		members[client] = true
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.ActiveConnections.Set(float64(total))
	logging.Info().
		Str("identity_id", client.identityID).
		Int("channels", len(client.channels)).
		Int("total_clients", total).
		Msg("websocket client connected")
}

// unregisterClient removes the client from the hub and all of its channels.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if _, ok := h.clients[client]; ok {
		h.removeLocked(client)
		removed = true
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !removed {
		return
	}

	if h.onDisconnect != nil {
		h.onDisconnect(client)
	}

	metrics.ActiveConnections.Set(float64(total))
	logging.Info().
		Str("identity_id", client.identityID).
		Int("total_clients", total).
		Msg("websocket client disconnected")
}

// removeLocked deletes the client from the client set and every channel it
// was enrolled in, then closes its send channel. Caller must hold mu.
func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client)
	for _, ch := range client.channels {
		if members, ok := h.channels[ch]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.channels, ch)
			}
		}
	}
	close(client.send)
}

// fanOut sends a message to every member of the target channel in a
// deterministic order. Clients are sorted by their monotonic IDs so message
// delivery order is reproducible in tests and race investigations.
func (h *Hub) fanOut(msg channelMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.channels[msg.channel]
	if !ok || len(members) == 0 {
		// No live members: the event is lost by design (no offline queue).
		return
	}

	clients := make([]*Client, 0, len(members))
	for client := range members {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- msg.message:
		default:
			// Send buffer full or closing: drop the slow client.
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		h.removeLocked(client)
		if h.onDisconnect != nil {
			h.onDisconnect(client)
		}
	}
}

// MemberCount returns the number of connections enrolled in a channel.
func (h *Hub) MemberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is not logged as an error: cancellation is the
// expected shutdown path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(shutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// shutdownReason determines the shutdown reason from the context error.
func shutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients gracefully closes all connected clients in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		h.removeLocked(client)
	}
	metrics.ActiveConnections.Set(0)
}
