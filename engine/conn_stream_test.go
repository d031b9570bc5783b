// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"net"
	"testing"
	"time"

	"github.com/framegrace/waylight/protocol"
)

func TestStreamConnDeliversEvents(t *testing.T) {
	client, compositor := net.Pipe()
	conn := NewStreamConn(client)
	defer conn.Close()

	go func() {
		protocol.WriteMessage(compositor, 1, protocol.SeatAdded{Seat: "seat-0"})
		protocol.WriteMessage(compositor, 2, protocol.WindowConfigure{Surface: 4, W: 800, H: 600, Serial: 9})
	}()

	m := waitMessage(t, conn.Events())
	if seat, ok := m.(protocol.SeatAdded); !ok || seat.Seat != "seat-0" {
		t.Fatalf("got %#v", m)
	}
	m = waitMessage(t, conn.Events())
	if cfg, ok := m.(protocol.WindowConfigure); !ok || cfg.Surface != 4 || cfg.Serial != 9 {
		t.Fatalf("got %#v", m)
	}
}

func TestStreamConnWritesRequests(t *testing.T) {
	client, compositor := net.Pipe()
	conn := NewStreamConn(client)
	defer conn.Close()

	type result struct {
		hdr protocol.Header
		m   protocol.Message
		err error
	}
	got := make(chan result, 1)
	go func() {
		hdr, m, err := protocol.ReadMessage(compositor)
		got <- result{hdr, m, err}
	}()

	if err := conn.Request(protocol.CreateWindow{Surface: 1, AppID: "org.waylight.demo", W: 640, H: 480}); err != nil {
		t.Fatalf("Request: %v", err)
	}

	select {
	case r := <-got:
		if r.err != nil {
			t.Fatalf("ReadMessage: %v", r.err)
		}
		cw, ok := r.m.(protocol.CreateWindow)
		if !ok || cw.AppID != "org.waylight.demo" || cw.W != 640 {
			t.Fatalf("got %#v", r.m)
		}
		if r.hdr.Serial != 1 {
			t.Fatalf("serial %d", r.hdr.Serial)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("request never arrived")
	}
}

func TestStreamConnCloseEndsEvents(t *testing.T) {
	client, compositor := net.Pipe()
	conn := NewStreamConn(client)

	compositor.Close()
	select {
	case _, ok := <-conn.Events():
		if ok {
			t.Fatalf("expected closed event channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("event channel never closed")
	}
	conn.Close()
	if err := conn.Request(protocol.LockSession{}); err == nil {
		t.Fatalf("request succeeded on closed conn")
	}
}

func waitMessage(t *testing.T, ch <-chan protocol.Message) protocol.Message {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			t.Fatalf("event channel closed")
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
	}
	return nil
}
