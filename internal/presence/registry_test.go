// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package presence

import (
	"fmt"
	"sync"
	"testing"
)

// fakeConn is a minimal Conn for registry tests.
type fakeConn struct {
	name string
}

func (f *fakeConn) TrySend(event string, payload interface{}) bool { return true }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{name: "a"}

	r.Register("x", conn)

	got, ok := r.Lookup("x")
	if !ok {
		t.Fatal("Lookup returned not found after Register")
	}
	if got != Conn(conn) {
		t.Error("Lookup returned a different connection")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestRegistry_LookupUnknownIdentity(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("nobody"); ok {
		t.Error("Lookup of unknown identity reported found")
	}
}

func TestRegistry_RegisterSupersedes(t *testing.T) {
	r := NewRegistry()
	connA := &fakeConn{name: "a"}
	connB := &fakeConn{name: "b"}

	r.Register("x", connA)
	r.Register("x", connB)

	got, ok := r.Lookup("x")
	if !ok || got != Conn(connB) {
		t.Error("newer registration did not supersede the older one")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1 (single identity)", r.Count())
	}
}

func TestRegistry_StaleDisconnectDoesNotEvict(t *testing.T) {
	// Connection B registers for identity X after connection A; when A then
	// disconnects, X must remain mapped to B.
	r := NewRegistry()
	connA := &fakeConn{name: "a"}
	connB := &fakeConn{name: "b"}

	r.Register("x", connA)
	r.Register("x", connB)
	r.Unregister("x", connA)

	got, ok := r.Lookup("x")
	if !ok {
		t.Fatal("stale disconnect evicted the fresher registration")
	}
	if got != Conn(connB) {
		t.Error("Lookup after stale disconnect returned wrong connection")
	}
}

func TestRegistry_CurrentDisconnectEvicts(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{name: "a"}

	r.Register("x", conn)
	r.Unregister("x", conn)

	if _, ok := r.Lookup("x"); ok {
		t.Error("current handle disconnect did not remove the mapping")
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0", r.Count())
	}
}

func TestRegistry_UnregisterUnknownIdentityIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unregister("nobody", &fakeConn{})

	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0", r.Count())
	}
}

func TestRegistry_ConcurrentConnectDisconnect(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("identity-%d", n%10)
			conn := &fakeConn{name: id}
			r.Register(id, conn)
			r.Lookup(id)
			r.Unregister(id, conn)
		}(i)
	}
	wg.Wait()

	// Every goroutine unregistered its own handle; stale unregisters for
	// superseded handles are no-ops, so any surviving entries must still be
	// resolvable.
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("identity-%d", i)
		if conn, ok := r.Lookup(id); ok && conn == nil {
			t.Errorf("identity %s mapped to nil connection", id)
		}
	}
}
