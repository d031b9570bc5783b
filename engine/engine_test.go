// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/framegrace/waylight/config"
	"github.com/framegrace/waylight/event"
	"github.com/framegrace/waylight/protocol"
	"github.com/framegrace/waylight/seat"
	"github.com/framegrace/waylight/store"
	"github.com/framegrace/waylight/surface"
	"github.com/framegrace/waylight/task"
)

type scriptConn struct {
	mu       sync.Mutex
	events   chan protocol.Message
	requests []protocol.Message
	closed   bool
}

func newScriptConn() *scriptConn {
	return &scriptConn{events: make(chan protocol.Message, 64)}
}

func (c *scriptConn) Events() <-chan protocol.Message { return c.events }

func (c *scriptConn) Request(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, m)
	return nil
}

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

func (c *scriptConn) sent() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Message, len(c.requests))
	copy(out, c.requests)
	return out
}

func (c *scriptConn) lastOfType(t protocol.MessageType) protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.requests) - 1; i >= 0; i-- {
		if c.requests[i].MessageType() == t {
			return c.requests[i]
		}
	}
	return nil
}

type recordUI struct {
	mu     *sync.Mutex
	events []event.Event
}

func (u *recordUI) Update(ev event.Event) (Status, []task.Task) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.events = append(u.events, ev)
	return Captured, nil
}

func (u *recordUI) types() []event.Type {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]event.Type, len(u.events))
	for i, ev := range u.events {
		out[i] = ev.Type
	}
	return out
}

type recordRenderer struct {
	mu       sync.Mutex
	redrawn  []surface.ID
	released []surface.ID
	fonts    []string
}

func (r *recordRenderer) Redraw(id surface.ID, g surface.Geometry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redrawn = append(r.redrawn, id)
}

func (r *recordRenderer) Release(id surface.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, id)
}

func (r *recordRenderer) LoadFont(name string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fonts = append(r.fonts, name)
}

type harness struct {
	engine   *Engine
	conn     *scriptConn
	renderer *recordRenderer
	mu       sync.Mutex
	uis      map[surface.ID]*recordUI
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		conn:     newScriptConn(),
		renderer: &recordRenderer{},
		uis:      make(map[surface.ID]*recordUI),
	}
	opts.Conn = h.conn
	opts.Renderer = h.renderer
	if opts.Config == nil {
		opts.Config = config.Config{}
	}
	opts.NewUI = func(id surface.ID) UserInterface {
		u := &recordUI{mu: &h.mu}
		h.uis[id] = u
		return u
	}
	h.engine = New(opts)
	return h
}

func (h *harness) ui(id surface.ID) *recordUI {
	u, ok := h.uis[id]
	if !ok {
		return &recordUI{mu: &h.mu}
	}
	return u
}

// openWindow dispatches an OpenWindow action and returns the new surface ID.
func (h *harness) openWindow(t *testing.T, settings task.WindowSettings) surface.ID {
	t.Helper()
	reply := task.NewOneshot[surface.ID]()
	h.engine.dispatch(task.OpenWindow{Settings: settings, Reply: reply})
	id, ok := reply.Await()
	if !ok {
		t.Fatalf("window open reply was dropped")
	}
	return id
}

func TestOpenWindowDefaultSize(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.openWindow(t, task.WindowSettings{AppID: "org.waylight.demo"})

	rec, ok := h.engine.registry.Get(id)
	if !ok {
		t.Fatalf("window not registered")
	}
	if rec.Geometry.W != 800 || rec.Geometry.H != 600 {
		t.Fatalf("expected default 800x600, got %vx%v", rec.Geometry.W, rec.Geometry.H)
	}
	m := h.conn.lastOfType(protocol.MsgCreateWindow)
	if m == nil {
		t.Fatalf("no CreateWindow request sent")
	}
	if cw := m.(protocol.CreateWindow); cw.W != 800 || cw.H != 600 {
		t.Fatalf("request carried %dx%d", cw.W, cw.H)
	}
}

func TestOpenWindowUsesStoredGeometry(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "waylight.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	if err := st.SaveGeometry("org.waylight.demo", 1024, 768); err != nil {
		t.Fatalf("SaveGeometry: %v", err)
	}

	h := newHarness(t, Options{Store: st})
	id := h.openWindow(t, task.WindowSettings{AppID: "org.waylight.demo"})

	rec, _ := h.engine.registry.Get(id)
	if rec.Geometry.W != 1024 || rec.Geometry.H != 768 {
		t.Fatalf("expected remembered 1024x768, got %vx%v", rec.Geometry.W, rec.Geometry.H)
	}
}

func TestCloseWindowPersistsGeometry(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "waylight.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	h := newHarness(t, Options{Store: st})
	id := h.openWindow(t, task.WindowSettings{AppID: "org.waylight.demo", W: 640, H: 400})
	h.engine.dispatch(task.CloseWindow{ID: id})

	g, ok, err := st.Geometry("org.waylight.demo")
	if err != nil || !ok {
		t.Fatalf("geometry not persisted: ok=%v err=%v", ok, err)
	}
	if g.Width != 640 || g.Height != 400 {
		t.Fatalf("persisted %vx%v", g.Width, g.Height)
	}
}

func TestOpenWindowSkipsStoredGeometryWhenOptedOut(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "waylight.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	if err := st.SaveGeometry("org.waylight.norestore", 1024, 768); err != nil {
		t.Fatalf("SaveGeometry: %v", err)
	}
	config.SetApp("org.waylight.norestore", config.Config{
		"window": map[string]interface{}{"restore_geometry": false},
	})
	t.Cleanup(func() { config.SetApp("org.waylight.norestore", nil) })

	h := newHarness(t, Options{Store: st})
	id := h.openWindow(t, task.WindowSettings{AppID: "org.waylight.norestore"})

	rec, _ := h.engine.registry.Get(id)
	if rec.Geometry.W != 800 || rec.Geometry.H != 600 {
		t.Fatalf("expected configured default 800x600, got %vx%v", rec.Geometry.W, rec.Geometry.H)
	}

	h.engine.dispatch(task.CloseWindow{ID: id})
	g, ok, err := st.Geometry("org.waylight.norestore")
	if err != nil || !ok {
		t.Fatalf("stored geometry gone: ok=%v err=%v", ok, err)
	}
	if g.Width != 1024 || g.Height != 768 {
		t.Fatalf("close overwrote geometry for an opted-out app: %vx%v", g.Width, g.Height)
	}
}

func TestResizeDeliversOneResizedPerCycle(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.openWindow(t, task.WindowSettings{W: 640, H: 400})

	h.engine.dispatch(task.ResizeWindow{ID: id, W: 800, H: 500})

	resized := func() int {
		n := 0
		for _, typ := range h.ui(id).types() {
			if typ == event.Resized {
				n++
			}
		}
		return n
	}
	if n := resized(); n != 0 {
		t.Fatalf("resized delivered before the compositor answered (%d)", n)
	}
	req := h.conn.lastOfType(protocol.MsgSetWindowSize)
	if req == nil {
		t.Fatal("no SetWindowSize request sent")
	}

	h.engine.handleMessage(protocol.WindowConfigure{Surface: uint64(id), W: 800, H: 500, Serial: 3})
	if n := resized(); n != 1 {
		t.Fatalf("expected one resized per resize, got %d", n)
	}
}

func TestConfigureAcksAndDeliversResized(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.openWindow(t, task.WindowSettings{})

	h.engine.handleMessage(protocol.WindowConfigure{Surface: uint64(id), W: 1024, H: 768, Serial: 7})

	rec, _ := h.engine.registry.Get(id)
	if rec.Geometry.W != 1024 || rec.Geometry.H != 768 {
		t.Fatalf("geometry not applied: %vx%v", rec.Geometry.W, rec.Geometry.H)
	}
	ack := h.conn.lastOfType(protocol.MsgAckConfigure)
	if ack == nil || ack.(protocol.AckConfigure).Serial != 7 {
		t.Fatalf("configure not acked: %v", ack)
	}
	var sized bool
	for _, ev := range h.ui(id).events {
		if ev.Type == event.Resized {
			sz := ev.Payload.(event.Size)
			if sz.W != 1024 || sz.H != 768 {
				t.Fatalf("resized payload %vx%v", sz.W, sz.H)
			}
			sized = true
		}
	}
	if !sized {
		t.Fatalf("no Resized event delivered, got %v", h.ui(id).types())
	}
}

func TestDestroyCascadesAndClearsFocus(t *testing.T) {
	h := newHarness(t, Options{})
	win := h.openWindow(t, task.WindowSettings{})

	reply := task.NewOneshot[surface.ID]()
	h.engine.dispatch(task.OpenPopup{Settings: task.PopupSettings{Parent: win, W: 100, H: 50}, Reply: reply})
	popup, ok := reply.Await()
	if !ok {
		t.Fatalf("popup reply dropped")
	}

	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})
	h.engine.handleMessage(protocol.KeyboardEnter{Seat: "seat-0", Surface: uint64(win)})

	h.engine.dispatch(task.DestroySurface{ID: win})

	if h.engine.registry.Len() != 0 {
		t.Fatalf("expected empty registry, %d surfaces remain", h.engine.registry.Len())
	}
	released := map[surface.ID]bool{}
	for _, id := range h.renderer.released {
		released[id] = true
	}
	if !released[win] || !released[popup] {
		t.Fatalf("renderer releases missing: %v", h.renderer.released)
	}
	if s := h.engine.seats.Seat("seat-0"); s.KeyboardFocus != surface.None {
		t.Fatalf("seat still references destroyed surface %v", s.KeyboardFocus)
	}
}

func TestKeyboardFocusDelivered(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.openWindow(t, task.WindowSettings{})

	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})
	h.engine.handleMessage(protocol.KeyboardEnter{Seat: "seat-0", Surface: uint64(id)})
	h.engine.handleMessage(protocol.KeyboardModifiers{Seat: "seat-0", Modifiers: uint8(event.ModCtrl)})
	h.engine.handleMessage(protocol.KeyboardKey{Seat: "seat-0", Code: 38, Rune: 'a', Pressed: true})

	var focused, keyed bool
	for _, ev := range h.ui(id).events {
		switch ev.Type {
		case event.WindowFocused:
			focused = true
		case event.KeyPressed:
			key := ev.Payload.(event.Key)
			if key.Rune != 'a' || key.Modifiers != event.ModCtrl {
				t.Fatalf("key payload %+v", key)
			}
			keyed = true
		}
	}
	if !focused || !keyed {
		t.Fatalf("got %v", h.ui(id).types())
	}
}

func TestPointerCoordsSurfaceLocal(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.openWindow(t, task.WindowSettings{W: 100, H: 100})
	h.engine.registry.UpdateGeometry(id, surface.Geometry{X: 10, Y: 5, W: 100, H: 100})

	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})
	h.engine.handleMessage(protocol.PointerEnter{Seat: "seat-0", Surface: uint64(id), X: 15, Y: 9})

	var entered bool
	for _, ev := range h.ui(id).events {
		if ev.Type == event.PointerEntered {
			p := ev.Payload.(event.Pointer)
			if p.X != 5 || p.Y != 4 {
				t.Fatalf("expected surface-local (5,4), got (%v,%v)", p.X, p.Y)
			}
			entered = true
		}
	}
	if !entered {
		t.Fatalf("no PointerEntered delivered")
	}
}

func TestUnknownSurfaceEventsDropped(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})
	h.engine.handleMessage(protocol.KeyboardEnter{Seat: "seat-0", Surface: 99})
	h.engine.handleMessage(protocol.PointerEnter{Seat: "seat-0", Surface: 99, X: 1, Y: 1})

	if s := h.engine.seats.Seat("seat-0"); s.KeyboardFocus != surface.None {
		t.Fatalf("focus moved to unknown surface %v", s.KeyboardFocus)
	}
}

func TestSelfDragDeliversPayloadInMemory(t *testing.T) {
	h := newHarness(t, Options{})
	src := h.openWindow(t, task.WindowSettings{W: 100, H: 100})
	dst := h.openWindow(t, task.WindowSettings{W: 100, H: 100})
	h.engine.registry.UpdateGeometry(src, surface.Geometry{X: 0, Y: 0, W: 100, H: 100})
	h.engine.registry.UpdateGeometry(dst, surface.Geometry{X: 150, Y: 0, W: 100, H: 100})

	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})
	payload := map[string][]byte{"text/plain": []byte("hello")}
	h.engine.dispatch(task.StartDrag{Source: src, Mimes: []string{"text/plain"}, Data: payload})

	h.engine.handleMessage(protocol.DataOfferEnter{Seat: "seat-0", Mimes: []string{"text/plain"}, X: 10, Y: 10})
	h.engine.handleMessage(protocol.DataOfferMotion{Seat: "seat-0", X: 160, Y: 10})
	h.engine.handleMessage(protocol.DataOfferDrop{Seat: "seat-0", X: 160, Y: 10})

	var dropped, received bool
	for _, ev := range h.ui(dst).events {
		switch ev.Type {
		case event.DndDropped:
			dropped = true
		case event.DndDataReceived:
			d := ev.Payload.(event.Dnd)
			if string(d.Data) != "hello" || d.Mime != "text/plain" {
				t.Fatalf("payload %+v", d)
			}
			received = true
		}
	}
	if !dropped || !received {
		t.Fatalf("destination saw %v", h.ui(dst).types())
	}
}

func TestDndDataRequestedFromCompositor(t *testing.T) {
	h := newHarness(t, Options{})
	dst := h.openWindow(t, task.WindowSettings{W: 100, H: 100})
	h.engine.registry.UpdateGeometry(dst, surface.Geometry{X: 0, Y: 0, W: 100, H: 100})

	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})
	h.engine.handleMessage(protocol.DataOfferEnter{Seat: "seat-0", Mimes: []string{"text/plain"}, X: 10, Y: 10})
	h.engine.handleMessage(protocol.DataOfferDrop{Seat: "seat-0", X: 10, Y: 10})

	if m := h.conn.lastOfType(protocol.MsgRequestDndData); m == nil {
		t.Fatalf("no payload request sent")
	}
	h.engine.handleMessage(protocol.SelectionData{Seat: "seat-0", Mime: "text/plain", Data: []byte("remote")})

	var received bool
	for _, ev := range h.ui(dst).events {
		if ev.Type == event.DndDataReceived {
			if string(ev.Payload.(event.Dnd).Data) != "remote" {
				t.Fatalf("payload %q", ev.Payload.(event.Dnd).Data)
			}
			received = true
		}
	}
	if !received {
		t.Fatalf("destination saw %v", h.ui(dst).types())
	}
}

func TestSelectionServedLocally(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})
	h.engine.dispatch(task.SetSelection{
		Mimes: []string{"text/plain"},
		Data:  map[string][]byte{"text/plain": []byte("clip")},
	})

	reply := task.NewOneshot[[]byte]()
	h.engine.dispatch(task.RequestSelectionData{Mime: "text/plain", Reply: reply})
	data, ok := reply.Await()
	if !ok {
		t.Fatalf("reply dropped")
	}
	if string(data) != "clip" {
		t.Fatalf("got %q", data)
	}
}

func TestSourceSendWritesPayloadToPipe(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})
	h.engine.dispatch(task.SetSelection{
		Mimes: []string{"text/plain"},
		Data:  map[string][]byte{"text/plain": []byte("clip")},
	})

	r, w, err := seat.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	// The receiver of a DataSourceSend owns the descriptor and closes it,
	// so hand over a dup and drop our write end.
	fd, err := unix.Dup(int(w.Fd()))
	if err != nil {
		t.Fatalf("Dup: %v", err)
	}
	w.Close()

	h.engine.handleMessage(protocol.DataSourceSend{Seat: "seat-0", Mime: "text/plain", Fd: int32(fd)})

	data, err := seat.ReadPayload(r)
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if string(data) != "clip" {
		t.Fatalf("payload %q", data)
	}
}

func TestSelectionFetchedFromCompositor(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})
	h.engine.handleMessage(protocol.SelectionOffer{Seat: "seat-0", Mimes: []string{"text/plain"}})

	reply := task.NewOneshot[[]byte]()
	h.engine.dispatch(task.RequestSelectionData{Mime: "text/plain", Reply: reply})
	if m := h.conn.lastOfType(protocol.MsgRequestSelection); m == nil {
		t.Fatalf("no selection request sent")
	}

	h.engine.handleMessage(protocol.SelectionData{Seat: "seat-0", Mime: "text/plain", Data: []byte("remote clip")})
	data, ok := reply.Await()
	if !ok || string(data) != "remote clip" {
		t.Fatalf("ok=%v data=%q", ok, data)
	}
}

func TestSelectionUnofferedMimeDropsReply(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.handleMessage(protocol.SeatAdded{Seat: "seat-0"})

	reply := task.NewOneshot[[]byte]()
	h.engine.dispatch(task.RequestSelectionData{Mime: "image/png", Reply: reply})
	if _, ok := reply.Await(); ok {
		t.Fatalf("expected dropped reply for unoffered mime")
	}
}

func TestLockSessionCreatesLockSurfaces(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.handleMessage(protocol.OutputAdded{Output: 1, Name: "sim-0", W: 1920, H: 1080, Scale: 1})

	h.engine.dispatch(task.LockSession{})
	if m := h.conn.lastOfType(protocol.MsgLockSession); m == nil {
		t.Fatalf("no lock request sent")
	}

	h.engine.handleMessage(protocol.SessionLocked{})
	if len(h.engine.lockSurfaces) != 1 {
		t.Fatalf("expected one lock surface, got %d", len(h.engine.lockSurfaces))
	}
	if m := h.conn.lastOfType(protocol.MsgCreateLockSurface); m == nil {
		t.Fatalf("no lock surface created")
	}

	h.engine.handleMessage(protocol.SessionLockFinished{})
	if len(h.engine.lockSurfaces) != 0 || h.engine.registry.Len() != 0 {
		t.Fatalf("lock surfaces not torn down")
	}
}

func TestFetchOutputInfo(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.handleMessage(protocol.OutputAdded{Output: 1, Name: "sim-0", W: 1920, H: 1080, Scale: 2})

	reply := task.NewOneshot[task.OutputInfo]()
	h.engine.dispatch(task.FetchOutputInfo{
		Match: func(info task.OutputInfo) bool { return info.Name == "sim-0" },
		Reply: reply,
	})
	info, ok := reply.Await()
	if !ok || info.Scale != 2 {
		t.Fatalf("ok=%v info=%+v", ok, info)
	}

	missing := task.NewOneshot[task.OutputInfo]()
	h.engine.dispatch(task.FetchOutputInfo{
		Match: func(info task.OutputInfo) bool { return info.Name == "other" },
		Reply: missing,
	})
	if _, ok := missing.Await(); ok {
		t.Fatalf("expected dropped reply for unknown output")
	}
}

func TestRedrawCyclePacesFrames(t *testing.T) {
	h := newHarness(t, Options{})
	id := h.openWindow(t, task.WindowSettings{})

	h.engine.flushRedraws()
	if m := h.conn.lastOfType(protocol.MsgRequestFrame); m == nil {
		t.Fatalf("no frame requested after redraw")
	}
	rec, _ := h.engine.registry.Get(id)
	if rec.Redraw != surface.FrameCallbackPending {
		t.Fatalf("status %v", rec.Redraw)
	}

	// More requests while the callback is pending must coalesce.
	before := len(h.conn.sent())
	h.engine.registry.RequestRedraw(id)
	h.engine.registry.RequestRedraw(id)
	h.engine.flushRedraws()
	if len(h.conn.sent()) != before {
		t.Fatalf("issued a second frame request while one was pending")
	}

	h.engine.handleMessage(protocol.FrameDone{Surface: uint64(id)})
	if rec.Redraw != surface.RequestedRedraw {
		t.Fatalf("deferred redraw not re-armed: %v", rec.Redraw)
	}
}

func TestRunExitAction(t *testing.T) {
	h := newHarness(t, Options{})
	done := make(chan error, 1)
	go func() { done <- h.engine.Run(context.Background()) }()

	h.engine.Submit(task.ExitTask(3))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on Exit")
	}
	if code := h.engine.ExitCode(); code != 3 {
		t.Fatalf("exit code %d", code)
	}
}

func TestRunStopsWhenConnCloses(t *testing.T) {
	h := newHarness(t, Options{})
	done := make(chan error, 1)
	go func() { done <- h.engine.Run(context.Background()) }()

	h.conn.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on connection close")
	}
}
