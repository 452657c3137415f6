// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

// Package presence maintains the authoritative mapping of identity to live
// connection handle. The mapping is in-memory and valid only for the
// process's own lifetime; nothing here persists across restarts.
//
// Multiple concurrent connections per identity are possible (multi-device).
// The registry tracks the most recent connection for "deliver to this user"
// semantics; superseded connections keep their channel memberships until
// they disconnect, so room broadcasts still reach them.
package presence

import (
	"sync"

	"github.com/tomtom215/sentinel/internal/logging"
)

// Conn is a live connection handle capable of best-effort delivery.
// Satisfied by *websocket.Client.
type Conn interface {
	// TrySend queues an event for delivery without blocking. It returns
	// false when the connection cannot accept the event (send buffer full
	// or closing); the event is dropped in that case.
	TrySend(event string, payload interface{}) bool
}

// Registry maps identity IDs to their most recently registered connection.
// Safe for concurrent use from independent transport workers.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register associates the identity with conn. An existing entry for the
// identity is superseded; the previous handle keeps its transport-level
// memberships until it disconnects, but direct delivery now targets conn.
func (r *Registry) Register(identityID string, conn Conn) {
	r.mu.Lock()
	_, superseded := r.conns[identityID]
	r.conns[identityID] = conn
	total := len(r.conns)
	r.mu.Unlock()

	logging.Debug().
		Str("identity_id", identityID).
		Bool("superseded_previous", superseded).
		Int("total_identities", total).
		Msg("presence registered")
}

// Unregister removes the mapping when the current handle disconnects.
// If a stale handle disconnects after a newer one registered, the newer
// mapping is left intact: unregister is a no-op unless conn is the handle
// currently registered for the identity.
func (r *Registry) Unregister(identityID string, conn Conn) {
	r.mu.Lock()
	current, ok := r.conns[identityID]
	if ok && current == conn {
		delete(r.conns, identityID)
	}
	total := len(r.conns)
	r.mu.Unlock()

	if ok && current == conn {
		logging.Debug().
			Str("identity_id", identityID).
			Int("total_identities", total).
			Msg("presence unregistered")
	}
}

// Lookup returns the identity's current connection for direct,
// single-recipient delivery. The second return value is false when the
// identity has no live connection.
func (r *Registry) Lookup(identityID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[identityID]
	return conn, ok
}

// Count returns the number of identities with a live connection.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
