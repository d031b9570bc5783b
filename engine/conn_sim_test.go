// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/waylight/protocol"
	"github.com/framegrace/waylight/seat"
)

func startSimConn(t *testing.T) (*SimConn, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	conn := NewSimConn(NewTcellScreenDriver(screen))
	if err := conn.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, screen
}

func waitFor(t *testing.T, ch <-chan protocol.Message, want protocol.MessageType) protocol.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed waiting for type %d", want)
			}
			if m.MessageType() == want {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for message type %d", want)
		}
	}
}

func TestSimConnAdvertisesSeatAndOutput(t *testing.T) {
	conn, screen := startSimConn(t)

	seat := waitFor(t, conn.Events(), protocol.MsgSeatAdded).(protocol.SeatAdded)
	if seat.Seat != simSeat {
		t.Fatalf("seat %q", seat.Seat)
	}
	out := waitFor(t, conn.Events(), protocol.MsgOutputAdded).(protocol.OutputAdded)
	w, h := screen.Size()
	if out.W != uint32(w) || out.H != uint32(h) {
		t.Fatalf("output %dx%d, screen %dx%d", out.W, out.H, w, h)
	}
}

func TestSimConnWindowLifecycle(t *testing.T) {
	conn, _ := startSimConn(t)
	waitFor(t, conn.Events(), protocol.MsgOutputAdded)

	if err := conn.Request(protocol.CreateWindow{Surface: 1, Title: "demo", W: 20, H: 10}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	cfg := waitFor(t, conn.Events(), protocol.MsgWindowConfigure).(protocol.WindowConfigure)
	if cfg.Surface != 1 || cfg.W == 0 || cfg.H == 0 {
		t.Fatalf("configure %+v", cfg)
	}
	enter := waitFor(t, conn.Events(), protocol.MsgKeyboardEnter).(protocol.KeyboardEnter)
	if enter.Surface != 1 {
		t.Fatalf("focus went to %d", enter.Surface)
	}

	if err := conn.Request(protocol.RequestFrame{Surface: 1}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	frame := waitFor(t, conn.Events(), protocol.MsgFrameDone).(protocol.FrameDone)
	if frame.Surface != 1 {
		t.Fatalf("frame for %d", frame.Surface)
	}
}

func TestSimConnFocusFollowsDestroy(t *testing.T) {
	conn, _ := startSimConn(t)
	waitFor(t, conn.Events(), protocol.MsgOutputAdded)

	conn.Request(protocol.CreateWindow{Surface: 1, W: 20, H: 10})
	waitFor(t, conn.Events(), protocol.MsgKeyboardEnter)
	conn.Request(protocol.CreateWindow{Surface: 2, W: 20, H: 10})
	waitFor(t, conn.Events(), protocol.MsgKeyboardLeave)
	waitFor(t, conn.Events(), protocol.MsgKeyboardEnter)

	conn.Request(protocol.DestroySurface{Surface: 2})
	enter := waitFor(t, conn.Events(), protocol.MsgKeyboardEnter).(protocol.KeyboardEnter)
	if enter.Surface != 1 {
		t.Fatalf("focus went to %d after destroy", enter.Surface)
	}
}

func TestSimConnKeyEvents(t *testing.T) {
	conn, screen := startSimConn(t)
	waitFor(t, conn.Events(), protocol.MsgOutputAdded)

	conn.Request(protocol.CreateWindow{Surface: 1, W: 20, H: 10})
	waitFor(t, conn.Events(), protocol.MsgKeyboardEnter)

	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModNone)
	press := waitFor(t, conn.Events(), protocol.MsgKeyboardKey).(protocol.KeyboardKey)
	if press.Rune != 'x' || !press.Pressed {
		t.Fatalf("key %+v", press)
	}
	release := waitFor(t, conn.Events(), protocol.MsgKeyboardKey).(protocol.KeyboardKey)
	if release.Pressed {
		t.Fatalf("expected release, got %+v", release)
	}
}

func TestSimConnSelectionOverPipe(t *testing.T) {
	conn, _ := startSimConn(t)
	waitFor(t, conn.Events(), protocol.MsgSeatAdded)

	conn.Request(protocol.SetSelection{Seat: simSeat, Mimes: []string{"text/plain"}})
	offer := waitFor(t, conn.Events(), protocol.MsgSelectionOffer).(protocol.SelectionOffer)
	if len(offer.Mimes) != 1 || offer.Mimes[0] != "text/plain" {
		t.Fatalf("offer %+v", offer)
	}

	conn.Request(protocol.RequestSelection{Seat: simSeat, Mime: "text/plain"})
	send := waitFor(t, conn.Events(), protocol.MsgDataSourceSend).(protocol.DataSourceSend)
	if send.Fd < 0 || send.Mime != "text/plain" {
		t.Fatalf("send %+v", send)
	}

	// Play the source side: write the payload into the handed-over pipe.
	if err := seat.WritePayload(os.NewFile(uintptr(send.Fd), "source-write"), []byte("clip")); err != nil {
		t.Fatalf("WritePayload: %v", err)
	}
	data := waitFor(t, conn.Events(), protocol.MsgSelectionData).(protocol.SelectionData)
	if string(data.Data) != "clip" {
		t.Fatalf("data %q", data.Data)
	}
}

func TestSimConnDndDataOverPipe(t *testing.T) {
	conn, _ := startSimConn(t)
	waitFor(t, conn.Events(), protocol.MsgSeatAdded)

	conn.Request(protocol.RequestDndData{Seat: simSeat, Mime: "text/uri-list"})
	send := waitFor(t, conn.Events(), protocol.MsgDataSourceSend).(protocol.DataSourceSend)
	if send.Fd < 0 {
		t.Fatalf("send %+v", send)
	}

	if err := seat.WritePayload(os.NewFile(uintptr(send.Fd), "source-write"), []byte("file:///tmp/a")); err != nil {
		t.Fatalf("WritePayload: %v", err)
	}
	data := waitFor(t, conn.Events(), protocol.MsgSelectionData).(protocol.SelectionData)
	if string(data.Data) != "file:///tmp/a" {
		t.Fatalf("data %q", data.Data)
	}
	waitFor(t, conn.Events(), protocol.MsgDataSourceFinished)
}

func TestSimConnCloseRacesFramePacing(t *testing.T) {
	for i := 0; i < 100; i++ {
		screen := tcell.NewSimulationScreen("UTF-8")
		conn := NewSimConn(NewTcellScreenDriver(screen))
		conn.interval = time.Microsecond
		if err := conn.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				conn.Request(protocol.RequestFrame{Surface: 1})
			}
		}()
		// Keep the buffer draining so frame callbacks actually flow
		// while Close runs.
		drained := make(chan struct{})
		go func() {
			for range conn.Events() {
			}
			close(drained)
		}()

		conn.Close()
		wg.Wait()
		<-drained
	}
}

func TestSimConnLockSession(t *testing.T) {
	conn, _ := startSimConn(t)
	waitFor(t, conn.Events(), protocol.MsgOutputAdded)

	conn.Request(protocol.LockSession{})
	waitFor(t, conn.Events(), protocol.MsgSessionLocked)

	conn.Request(protocol.CreateLockSurface{Surface: 5, Output: "sim-0"})
	cfg := waitFor(t, conn.Events(), protocol.MsgLockConfigure).(protocol.LockConfigure)
	if cfg.Surface != 5 || cfg.W == 0 {
		t.Fatalf("lock configure %+v", cfg)
	}

	conn.Request(protocol.UnlockSession{})
	waitFor(t, conn.Events(), protocol.MsgSessionLockFinished)
}
