// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/conn_sim.go
// Summary: In-process compositor simulator backed by a tcell screen.
// Usage: Development and testing harness. Surfaces render as bordered boxes
// in a terminal; input events translate to protocol messages. One seat, one
// output.

package engine

import (
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/framegrace/waylight/config"
	"github.com/framegrace/waylight/protocol"
	"github.com/framegrace/waylight/seat"
	"github.com/framegrace/waylight/surface"
)

// ScreenDriver adapts a terminal screen for the simulator, so tests can run
// against tcell's simulation screen.
type ScreenDriver interface {
	Init() error
	Fini()
	Size() (int, int)
	SetStyle(style tcell.Style)
	EnableMouse()
	HideCursor()
	Show()
	PollEvent() tcell.Event
	PostEvent(ev tcell.Event) error
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
}

// TcellScreenDriver adapts a tcell.Screen to the ScreenDriver interface.
type TcellScreenDriver struct {
	screen tcell.Screen
}

// NewTcellScreenDriver wraps the provided screen.
func NewTcellScreenDriver(screen tcell.Screen) *TcellScreenDriver {
	return &TcellScreenDriver{screen: screen}
}

func (d *TcellScreenDriver) Init() error              { return d.screen.Init() }
func (d *TcellScreenDriver) Fini()                    { d.screen.Fini() }
func (d *TcellScreenDriver) Size() (int, int)         { return d.screen.Size() }
func (d *TcellScreenDriver) SetStyle(s tcell.Style)   { d.screen.SetStyle(s) }
func (d *TcellScreenDriver) EnableMouse()             { d.screen.EnableMouse() }
func (d *TcellScreenDriver) HideCursor()              { d.screen.HideCursor() }
func (d *TcellScreenDriver) Show()                    { d.screen.Show() }
func (d *TcellScreenDriver) PollEvent() tcell.Event   { return d.screen.PollEvent() }
func (d *TcellScreenDriver) PostEvent(ev tcell.Event) error {
	return d.screen.PostEvent(ev)
}
func (d *TcellScreenDriver) SetContent(x, y int, mainc rune, combc []rune, style tcell.Style) {
	d.screen.SetContent(x, y, mainc, combc, style)
}

const simSeat = "seat-0"

type simSurface struct {
	id         uint64
	kind       surface.Kind
	title      string
	x, y, w, h int
}

func (s *simSurface) contains(x, y int) bool {
	return x >= s.x && x < s.x+s.w && y >= s.y && y < s.y+s.h
}

// SimConn is a Conn backed by an in-process compositor drawn on a terminal.
// Units are terminal cells. Drag-and-drop and the clipboard loop back to the
// same client, which is how a single-client session behaves anyway.
type SimConn struct {
	driver     ScreenDriver
	events     chan protocol.Message
	outputName string
	scale      float64
	mouse      bool
	titleBars  bool
	interval   time.Duration

	mu           sync.Mutex
	surfaces     map[uint64]*simSurface
	order        []uint64
	focused      uint64
	over         uint64
	ptrX, ptrY   int
	buttons      tcell.ButtonMask
	frameWaiters []uint64
	serial       uint32

	dragMimes   []string
	dragActive  bool
	awaitingDnd bool
	selMimes    []string

	stopOnce    sync.Once
	stopCh      chan struct{}
	doneCh      chan struct{}
	frameDoneCh chan struct{}

	// emitMu orders late emitters (payload transfer goroutines) against the
	// channel close in Close.
	emitMu sync.RWMutex
	closed bool
}

// NewSimConn creates a simulator on the given screen driver.
func NewSimConn(driver ScreenDriver) *SimConn {
	cfg := config.System()
	return &SimConn{
		driver:      driver,
		events:      make(chan protocol.Message, 256),
		outputName:  cfg.GetString("sim", "output_name", "sim-0"),
		scale:       cfg.GetFloat("sim", "scale_factor", 1.0),
		mouse:       cfg.GetBool("sim", "mouse_enabled", true),
		titleBars:   cfg.GetBool("sim", "title_bars", true),
		interval:    time.Duration(cfg.GetInt("engine", "frame_interval_ms", 16)) * time.Millisecond,
		surfaces:    make(map[uint64]*simSurface),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		frameDoneCh: make(chan struct{}),
	}
}

// NewTerminalSimConn creates a simulator on the process terminal.
func NewTerminalSimConn() (*SimConn, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("engine: stdin is not a terminal")
	}
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewSimConn(NewTcellScreenDriver(screen)), nil
}

// Start initializes the screen, advertises the seat and output, and begins
// translating input.
func (c *SimConn) Start() error {
	if err := c.driver.Init(); err != nil {
		return err
	}
	c.driver.SetStyle(tcell.StyleDefault)
	c.driver.HideCursor()
	if c.mouse {
		c.driver.EnableMouse()
	}

	w, h := c.driver.Size()
	c.emit(protocol.SeatAdded{Seat: simSeat})
	c.emit(protocol.OutputAdded{Output: 1, Name: c.outputName, W: uint32(w), H: uint32(h), Scale: c.scale})

	go c.inputLoop()
	go c.frameLoop()
	return nil
}

// Events implements Conn.
func (c *SimConn) Events() <-chan protocol.Message {
	return c.events
}

// Close implements Conn.
func (c *SimConn) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		// Unblock PollEvent so the input loop can exit.
		c.driver.PostEvent(tcell.NewEventInterrupt(nil))
		// Both loops emit events; wait for both before closing the channel.
		<-c.doneCh
		<-c.frameDoneCh
		c.driver.Fini()
		c.emitMu.Lock()
		c.closed = true
		close(c.events)
		c.emitMu.Unlock()
	})
	return nil
}

// emit delivers a compositor event without ever blocking the caller; under
// pressure the simulator drops and logs, like a compositor shedding load.
// It reports whether the event was delivered.
func (c *SimConn) emit(m protocol.Message) bool {
	c.emitMu.RLock()
	defer c.emitMu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- m:
		return true
	default:
		log.Printf("SimConn: event buffer full, dropping message type %d", m.MessageType())
		return false
	}
}

func (c *SimConn) nextSerial() uint32 {
	c.serial++
	return c.serial
}

// Request implements Conn.
func (c *SimConn) Request(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg := m.(type) {
	case protocol.CreateWindow:
		// Cascade new windows so they do not pile up at the origin.
		n := len(c.order)
		s := &simSurface{
			id: msg.Surface, kind: surface.Window, title: msg.Title,
			x: 2 + 2*n, y: 1 + n, w: int(msg.W), h: int(msg.H),
		}
		c.clampToScreen(s)
		c.addSurface(s)
		c.emit(protocol.WindowConfigure{Surface: s.id, W: uint32(s.w), H: uint32(s.h), Serial: c.nextSerial()})
		c.focusLocked(s.id)
	case protocol.CreateLayerSurface:
		s := &simSurface{id: msg.Surface, kind: surface.LayerSurface, title: msg.Namespace, w: int(msg.W), h: int(msg.H)}
		c.placeLayer(s, msg.Anchor)
		c.addSurface(s)
		c.emit(protocol.LayerConfigure{Surface: s.id, W: uint32(s.w), H: uint32(s.h), Serial: c.nextSerial()})
	case protocol.CreatePopup:
		s := &simSurface{id: msg.Surface, kind: surface.Popup, w: int(msg.W), h: int(msg.H)}
		if parent, ok := c.surfaces[msg.Parent]; ok {
			s.x = parent.x + int(msg.X)
			s.y = parent.y + int(msg.Y)
		}
		c.clampToScreen(s)
		c.addSurface(s)
		c.emit(protocol.PopupConfigure{Surface: s.id, X: msg.X, Y: msg.Y, W: uint32(s.w), H: uint32(s.h), Serial: c.nextSerial()})
	case protocol.CreateLockSurface:
		w, h := c.driver.Size()
		s := &simSurface{id: msg.Surface, kind: surface.LockSurface, title: "locked", w: w, h: h}
		c.addSurface(s)
		c.emit(protocol.LockConfigure{Surface: s.id, W: uint32(w), H: uint32(h), Serial: c.nextSerial()})
		c.focusLocked(s.id)
	case protocol.AttachSubsurface:
		s := &simSurface{id: msg.Surface, kind: surface.Subsurface}
		if parent, ok := c.surfaces[msg.Parent]; ok {
			s.x = parent.x + int(msg.X)
			s.y = parent.y + int(msg.Y)
			s.w = parent.w / 2
			s.h = parent.h / 2
		}
		c.addSurface(s)
		c.emit(protocol.SubsurfaceAttached{Surface: msg.Surface, Parent: msg.Parent, X: msg.X, Y: msg.Y})
	case protocol.DestroySurface:
		c.removeSurface(msg.Surface)
	case protocol.SetWindowSize:
		if s, ok := c.surfaces[msg.Surface]; ok {
			s.w, s.h = int(msg.W), int(msg.H)
			c.clampToScreen(s)
			c.emit(protocol.WindowConfigure{Surface: s.id, W: uint32(s.w), H: uint32(s.h), Serial: c.nextSerial()})
		}
	case protocol.AckConfigure:
		// Nothing to reconcile in the simulator.
	case protocol.RequestFrame:
		c.frameWaiters = append(c.frameWaiters, msg.Surface)
	case protocol.StartDrag:
		c.dragMimes = msg.Mimes
		c.dragActive = true
		c.emit(protocol.DataOfferEnter{Seat: msg.Seat, Mimes: msg.Mimes, X: float64(c.ptrX), Y: float64(c.ptrY)})
	case protocol.SetSelection:
		c.selMimes = msg.Mimes
		c.emit(protocol.SelectionOffer{Seat: msg.Seat, Mimes: msg.Mimes})
	case protocol.RequestSelection:
		c.sendViaPipe(msg.Seat, msg.Mime, false)
	case protocol.RequestDndData:
		c.sendViaPipe(msg.Seat, msg.Mime, true)
	case protocol.SelectionData:
		// Payload from the owning client loops straight back to the
		// requesting side, which here is the same client.
		c.emit(msg)
		if c.awaitingDnd {
			c.awaitingDnd = false
			c.emit(protocol.DataSourceFinished{Seat: msg.Seat})
		}
	case protocol.LockSession:
		c.emit(protocol.SessionLocked{})
	case protocol.UnlockSession:
		c.emit(protocol.SessionLockFinished{})
	default:
		log.Printf("SimConn: unhandled request type %d, ignored", m.MessageType())
	}
	return nil
}

// sendViaPipe asks the data source for a payload over a real pipe. The
// simulator shares the client's process, so the descriptor in the message is
// usable as-is; the read happens off the request path. Callers hold c.mu.
func (c *SimConn) sendViaPipe(seatName, mime string, dnd bool) {
	r, w, err := seat.Pipe()
	if err != nil {
		log.Printf("SimConn: pipe for %q transfer failed, falling back in-band: %v", mime, err)
		if dnd {
			c.awaitingDnd = true
		}
		c.emit(protocol.DataSourceSend{Seat: seatName, Mime: mime, Fd: -1})
		return
	}
	// The source side owns the write end and closes it; hand over a dup so
	// our handle can be released immediately.
	fd, err := unix.Dup(int(w.Fd()))
	w.Close()
	if err != nil {
		r.Close()
		log.Printf("SimConn: dup for %q transfer failed: %v", mime, err)
		return
	}

	if !c.emit(protocol.DataSourceSend{Seat: seatName, Mime: mime, Fd: int32(fd)}) {
		unix.Close(fd)
		r.Close()
		return
	}
	go func() {
		data, err := seat.ReadPayload(r)
		if err != nil {
			log.Printf("SimConn: %q transfer failed: %v", mime, err)
			return
		}
		c.emit(protocol.SelectionData{Seat: seatName, Mime: mime, Data: data})
		if dnd {
			c.emit(protocol.DataSourceFinished{Seat: seatName})
		}
	}()
}

func (c *SimConn) addSurface(s *simSurface) {
	c.surfaces[s.id] = s
	c.order = append(c.order, s.id)
}

func (c *SimConn) removeSurface(id uint64) {
	if _, ok := c.surfaces[id]; !ok {
		return
	}
	delete(c.surfaces, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.over == id {
		c.over = 0
	}
	if c.focused == id {
		c.focused = 0
		if len(c.order) > 0 {
			c.focusLocked(c.order[len(c.order)-1])
		}
	}
}

// focusLocked moves keyboard focus; callers hold c.mu.
func (c *SimConn) focusLocked(id uint64) {
	if c.focused == id {
		return
	}
	if c.focused != 0 {
		c.emit(protocol.KeyboardLeave{Seat: simSeat, Surface: c.focused})
	}
	c.focused = id
	if id != 0 {
		c.emit(protocol.KeyboardEnter{Seat: simSeat, Surface: id})
	}
}

func (c *SimConn) clampToScreen(s *simSurface) {
	w, h := c.driver.Size()
	if s.w > w {
		s.w = w
	}
	if s.h > h {
		s.h = h
	}
	if s.x+s.w > w {
		s.x = w - s.w
	}
	if s.y+s.h > h {
		s.y = h - s.h
	}
	if s.x < 0 {
		s.x = 0
	}
	if s.y < 0 {
		s.y = 0
	}
}

func (c *SimConn) placeLayer(s *simSurface, anchor uint8) {
	w, h := c.driver.Size()
	const (
		anchorTop    = 1 << 0
		anchorBottom = 1 << 1
		anchorLeft   = 1 << 2
		anchorRight  = 1 << 3
	)
	if anchor&anchorLeft != 0 && anchor&anchorRight != 0 || s.w == 0 {
		s.x, s.w = 0, w
	} else if anchor&anchorRight != 0 {
		s.x = w - s.w
	}
	if anchor&anchorTop != 0 && anchor&anchorBottom != 0 || s.h == 0 {
		s.y, s.h = 0, h
	} else if anchor&anchorBottom != 0 {
		s.y = h - s.h
	}
}

// surfaceAt returns the topmost surface under a cell, newest first.
func (c *SimConn) surfaceAt(x, y int) uint64 {
	for i := len(c.order) - 1; i >= 0; i-- {
		if s := c.surfaces[c.order[i]]; s.contains(x, y) {
			return s.id
		}
	}
	return 0
}

func (c *SimConn) inputLoop() {
	defer close(c.doneCh)
	for {
		ev := c.driver.PollEvent()
		select {
		case <-c.stopCh:
			return
		default:
		}
		switch tev := ev.(type) {
		case *tcell.EventResize:
			w, h := tev.Size()
			c.emit(protocol.OutputChanged{Output: 1, Name: c.outputName, W: uint32(w), H: uint32(h), Scale: c.scale})
		case *tcell.EventKey:
			c.handleKey(tev)
		case *tcell.EventMouse:
			c.handleMouse(tev)
		case *tcell.EventInterrupt:
			// Close path.
		case nil:
			return
		}
	}
}

func (c *SimConn) handleKey(ev *tcell.EventKey) {
	c.mu.Lock()
	focused := c.focused
	c.mu.Unlock()
	if focused == 0 {
		return
	}
	if ev.Key() == tcell.KeyCtrlQ {
		c.emit(protocol.WindowClosed{Surface: focused})
		return
	}
	now := uint32(time.Now().UnixMilli())
	c.emit(protocol.KeyboardKey{Seat: simSeat, Code: uint32(ev.Key()), Rune: ev.Rune(), Pressed: true, Time: now})
	c.emit(protocol.KeyboardKey{Seat: simSeat, Code: uint32(ev.Key()), Rune: ev.Rune(), Pressed: false, Time: now})
}

func (c *SimConn) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	now := uint32(time.Now().UnixMilli())

	c.mu.Lock()
	c.ptrX, c.ptrY = x, y
	dragging := c.dragActive
	id := c.surfaceAt(x, y)
	prevOver := c.over
	prevButtons := c.buttons
	c.buttons = ev.Buttons()
	released := prevButtons&tcell.Button1 != 0 && ev.Buttons()&tcell.Button1 == 0
	pressed := prevButtons&tcell.Button1 == 0 && ev.Buttons()&tcell.Button1 != 0
	if !dragging {
		c.over = id
		if pressed && id != 0 {
			c.focusLocked(id)
		}
	} else if released {
		c.dragActive = false
	}
	c.mu.Unlock()

	if dragging {
		if released {
			c.emit(protocol.DataOfferDrop{Seat: simSeat, X: float64(x), Y: float64(y)})
		} else {
			c.emit(protocol.DataOfferMotion{Seat: simSeat, X: float64(x), Y: float64(y), Time: now})
		}
		return
	}

	if id != prevOver {
		if prevOver != 0 {
			c.emit(protocol.PointerLeave{Seat: simSeat, Surface: prevOver})
		}
		if id != 0 {
			c.emit(protocol.PointerEnter{Seat: simSeat, Surface: id, X: float64(x), Y: float64(y)})
		}
	} else if id != 0 {
		c.emit(protocol.PointerMotion{Seat: simSeat, Surface: id, X: float64(x), Y: float64(y), Time: now})
	}
	if id != 0 && pressed {
		c.emit(protocol.PointerButton{Seat: simSeat, Surface: id, Button: 1, Pressed: true, Time: now})
	}
	if id != 0 && released {
		c.emit(protocol.PointerButton{Seat: simSeat, Surface: id, Button: 1, Pressed: false, Time: now})
	}
}

// frameLoop paces frame callbacks and repaints at the configured interval.
func (c *SimConn) frameLoop() {
	defer close(c.frameDoneCh)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			waiters := c.frameWaiters
			c.frameWaiters = nil
			c.draw()
			c.mu.Unlock()
			now := uint32(time.Now().UnixMilli())
			for _, id := range waiters {
				c.emit(protocol.FrameDone{Surface: id, Time: now})
			}
		}
	}
}

// draw paints every surface as a bordered box, oldest first so stacking
// matches creation order. Callers hold c.mu.
func (c *SimConn) draw() {
	w, h := c.driver.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c.driver.SetContent(x, y, ' ', nil, tcell.StyleDefault)
		}
	}
	for _, id := range c.order {
		s := c.surfaces[id]
		style := tcell.StyleDefault
		if id == c.focused {
			style = style.Bold(true)
		}
		for y := s.y; y < s.y+s.h; y++ {
			for x := s.x; x < s.x+s.w; x++ {
				ch := ' '
				switch {
				case y == s.y || y == s.y+s.h-1:
					ch = '─'
				case x == s.x || x == s.x+s.w-1:
					ch = '│'
				}
				c.driver.SetContent(x, y, ch, nil, style)
			}
		}
		if c.titleBars && s.title != "" && s.w > 4 {
			title := runewidth.Truncate(s.title, s.w-4, "…")
			col := s.x + 2
			for _, r := range title {
				c.driver.SetContent(col, s.y, r, nil, style)
				col += runewidth.RuneWidth(r)
			}
		}
	}
	c.driver.Show()
}
