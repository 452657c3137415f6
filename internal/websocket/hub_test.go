// Sentinel - Family Safety Monitoring and Real-Time Location Alerts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"
)

// newTestClient builds a client that is never pumped. The conn stays nil;
// register, fan-out, and teardown never touch it.
func newTestClient(hub *Hub, identityID string, channels ...string) *Client {
	return NewClient(hub, nil, identityID, channels)
}

func drain(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func TestHub_RegisterEnrollsChannels(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "child-1", "self:child-1", "child:child-1")

	hub.registerClient(client)

	if got := hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1", got)
	}
	if got := hub.MemberCount("self:child-1"); got != 1 {
		t.Errorf("MemberCount(self) = %d, want 1", got)
	}
	if got := hub.MemberCount("child:child-1"); got != 1 {
		t.Errorf("MemberCount(child) = %d, want 1", got)
	}
}

func TestHub_FanOutReachesAllMembers(t *testing.T) {
	hub := NewHub()
	parent1 := newTestClient(hub, "parent-1", "parent:parent-1")
	parent1b := newTestClient(hub, "parent-1", "parent:parent-1")
	bystander := newTestClient(hub, "other", "self:other")
	hub.registerClient(parent1)
	hub.registerClient(parent1b)
	hub.registerClient(bystander)

	hub.fanOut(channelMessage{
		channel: "parent:parent-1",
		message: Message{Type: "child-location-update", Data: map[string]string{"child_id": "child-1"}},
	})

	for _, c := range []*Client{parent1, parent1b} {
		msg := drain(t, c)
		if msg.Type != "child-location-update" {
			t.Errorf("delivered type = %q, want child-location-update", msg.Type)
		}
	}
	select {
	case msg := <-bystander.send:
		t.Errorf("bystander received %+v", msg)
	default:
	}
}

func TestHub_FanOutDeterministicOrder(t *testing.T) {
	hub := NewHub()
	first := newTestClient(hub, "a", "parent:p")
	second := newTestClient(hub, "b", "parent:p")
	hub.registerClient(second)
	hub.registerClient(first)

	if first.id >= second.id {
		t.Fatalf("client ids not monotonic: %d >= %d", first.id, second.id)
	}

	hub.fanOut(channelMessage{channel: "parent:p", message: Message{Type: "evt"}})

	// Both receive regardless of registration order; sort key is the
	// monotonic id, so first is always serviced before second.
	drain(t, first)
	drain(t, second)
}

func TestHub_FanOutNoMembersIsDropped(t *testing.T) {
	hub := NewHub()

	// Must not panic or block.
	hub.fanOut(channelMessage{channel: "parent:nobody", message: Message{Type: "evt"}})
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := NewHub()
	var dropped []*Client
	hub.SetDisconnectHandler(func(c *Client) { dropped = append(dropped, c) })

	slow := newTestClient(hub, "slow", "parent:p")
	hub.registerClient(slow)
	for i := 0; i < cap(slow.send); i++ {
		slow.send <- Message{Type: "filler"}
	}

	hub.fanOut(channelMessage{channel: "parent:p", message: Message{Type: "evt"}})

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0 after slow client dropped", hub.ClientCount())
	}
	if len(dropped) != 1 || dropped[0] != slow {
		t.Errorf("disconnect handler calls = %v, want the slow client once", dropped)
	}
	if hub.MemberCount("parent:p") != 0 {
		t.Errorf("membership survived the drop")
	}
}

func TestHub_UnregisterRemovesMembershipsAndClosesSend(t *testing.T) {
	hub := NewHub()
	var disconnected int
	hub.SetDisconnectHandler(func(*Client) { disconnected++ })

	client := newTestClient(hub, "child-1", "self:child-1", "child:child-1")
	hub.registerClient(client)
	hub.unregisterClient(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
	if hub.MemberCount("self:child-1") != 0 {
		t.Errorf("membership survived unregister")
	}
	if disconnected != 1 {
		t.Errorf("disconnect handler calls = %d, want 1", disconnected)
	}
	if _, open := <-client.send; open {
		t.Errorf("send channel still open after unregister")
	}
}

func TestHub_UnregisterUnknownClientIsNoop(t *testing.T) {
	hub := NewHub()
	var disconnected int
	hub.SetDisconnectHandler(func(*Client) { disconnected++ })

	hub.unregisterClient(newTestClient(hub, "ghost", "self:ghost"))

	if disconnected != 0 {
		t.Errorf("disconnect handler fired for unknown client")
	}
}

func TestHub_TrySendAfterCloseReturnsFalse(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "child-1", "self:child-1")
	hub.registerClient(client)
	hub.unregisterClient(client)

	if client.TrySend("evt", nil) {
		t.Errorf("TrySend succeeded on closed client")
	}
}

func TestHub_RunWithContextLifecycle(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	client := newTestClient(hub, "parent-1", "parent:parent-1")
	hub.Register <- client

	hub.Publish("parent:parent-1", "child-battery-level", map[string]int{"level": 80})
	msg := drain(t, client)
	if msg.Type != "child-battery-level" {
		t.Errorf("delivered type = %q, want child-battery-level", msg.Type)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on cancel")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0 after shutdown", hub.ClientCount())
	}
}

func TestHub_PublishToEmptyChannelDoesNotBlock(t *testing.T) {
	hub := NewHub()
	for i := 0; i < 10; i++ {
		hub.Publish("parent:nobody", "evt", nil)
	}
}
