// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/engine.go
// Summary: The event loop tying surfaces, seats, tasks, and the compositor
// connection together.
// Usage: Construct with New, seed initial Tasks with Submit, then Run. All
// state mutation happens on the Run goroutine.

package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/framegrace/waylight/config"
	"github.com/framegrace/waylight/event"
	"github.com/framegrace/waylight/protocol"
	"github.com/framegrace/waylight/seat"
	"github.com/framegrace/waylight/store"
	"github.com/framegrace/waylight/surface"
	"github.com/framegrace/waylight/task"
)

// Status reports whether a UI consumed an event.
type Status int

const (
	// Ignored means the event did not change anything visible.
	Ignored Status = iota
	// Captured means the event changed UI state and the surface needs a
	// redraw.
	Captured
)

// UserInterface is the per-surface UI collaborator. Update receives every
// event targeting the surface and returns follow-up Tasks to run.
type UserInterface interface {
	Update(ev event.Event) (Status, []task.Task)
}

// Renderer draws surfaces and owns their presentation resources.
type Renderer interface {
	Redraw(id surface.ID, g surface.Geometry)
	Release(id surface.ID)
	LoadFont(name string, data []byte)
}

// Options configures an Engine.
type Options struct {
	Conn     Conn
	Renderer Renderer

	// NewUI builds the UI state for each registered surface. Optional;
	// without it events are translated but not delivered anywhere.
	NewUI func(id surface.ID) UserInterface

	// OnValue receives values produced by Tasks (via Output). Optional.
	OnValue func(v task.Value) []task.Task

	// Store persists window geometry between sessions. Optional.
	Store *store.Store

	// Config overrides the system configuration. Optional.
	Config config.Config
}

// Engine runs the event loop. It owns the surface registry, the seat
// tracker, and the action proxy; none of them are touched off-loop.
type Engine struct {
	conn     Conn
	renderer Renderer
	newUI    func(surface.ID) UserInterface
	onValue  func(task.Value) []task.Task
	st       *store.Store

	registry *surface.Registry
	seats    *seat.Tracker
	proxy    *Proxy

	outputs       map[uint32]task.OutputInfo
	outputOrder   []uint32
	mods          map[string]event.Modifiers
	appIDs        map[surface.ID]string
	layerSettings map[surface.ID]protocol.CreateLayerSurface

	dragSources    map[string]*seat.Source
	selections     map[string]*seat.Source
	selectionMimes map[string][]string
	pendingDnd     map[string]surface.ID
	pendingSel     map[string][]*task.Oneshot[[]byte]

	locked       bool
	lockSurfaces []surface.ID

	defaultW, defaultH float64
	frameInterval      time.Duration

	done     chan func()
	quit     chan int
	stopped  chan struct{}
	stopOnce sync.Once
	exitCode int
}

// New creates an engine around the given connection.
func New(opts Options) *Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.System()
	}
	e := &Engine{
		conn:     opts.Conn,
		renderer: opts.Renderer,
		newUI:    opts.NewUI,
		onValue:  opts.OnValue,
		st:       opts.Store,

		registry: surface.NewRegistry(),
		seats:    seat.NewTracker(),
		proxy:    NewProxy(cfg.GetInt("engine", "action_high_water", DefaultHighWater)),

		outputs:        make(map[uint32]task.OutputInfo),
		mods:           make(map[string]event.Modifiers),
		appIDs:         make(map[surface.ID]string),
		layerSettings:  make(map[surface.ID]protocol.CreateLayerSurface),
		dragSources:    make(map[string]*seat.Source),
		selections:     make(map[string]*seat.Source),
		selectionMimes: make(map[string][]string),
		pendingDnd:     make(map[string]surface.ID),
		pendingSel:     make(map[string][]*task.Oneshot[[]byte]),

		defaultW:      cfg.GetFloat("window", "default_width", 800),
		defaultH:      cfg.GetFloat("window", "default_height", 600),
		frameInterval: time.Duration(cfg.GetInt("engine", "frame_interval_ms", 16)) * time.Millisecond,

		done:    make(chan func(), 32),
		quit:    make(chan int, 1),
		stopped: make(chan struct{}),
	}
	if e.newUI != nil {
		e.registry.NewState = func(id surface.ID) surface.UIState {
			return e.newUI(id)
		}
	}
	return e
}

// Submit runs a Task against the engine's proxy. Safe before and during Run.
func (e *Engine) Submit(t task.Task) {
	t.Run(e.proxy)
}

// ExitCode returns the code passed to the Exit action, once Run returned.
func (e *Engine) ExitCode() int {
	return e.exitCode
}

// Run drives the event loop until the connection closes, an Exit action is
// dispatched, or the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer e.stopOnce.Do(func() { close(e.stopped) })

	ticker := time.NewTicker(e.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case code := <-e.quit:
			e.exitCode = code
			return nil
		case m, ok := <-e.conn.Events():
			if !ok {
				log.Printf("Engine: connection closed, stopping")
				return nil
			}
			e.handleMessage(m)
		case a := <-e.proxy.Actions():
			e.dispatch(a)
			e.proxy.FreeSlots(1)
		case fn := <-e.done:
			fn()
		case <-ticker.C:
			e.flushRedraws()
		}
	}
}

// request sends a client request, logging failures instead of propagating
// them; a broken connection surfaces as a closed event channel.
func (e *Engine) request(m protocol.Message) {
	if err := e.conn.Request(m); err != nil {
		log.Printf("Engine: request %d failed: %v", m.MessageType(), err)
	}
}

// complete hands a worker-goroutine result back to the loop.
func (e *Engine) complete(fn func()) {
	select {
	case e.done <- fn:
	case <-e.stopped:
	}
}

// deliver routes events to their target surface's UI state. Events for
// surfaces that are gone are logged and dropped; the session survives.
func (e *Engine) deliver(events []event.Event) {
	for _, ev := range events {
		rec, ok := e.registry.Get(ev.Surface)
		if !ok {
			log.Printf("Engine: %v event for unknown surface %v, dropped", ev.Type, ev.Surface)
			continue
		}
		ui, ok := rec.UI.(UserInterface)
		if !ok {
			continue
		}
		status, tasks := ui.Update(ev)
		if status == Captured {
			e.registry.RequestRedraw(ev.Surface)
		}
		for _, t := range tasks {
			t.Run(e.proxy)
		}
	}
}

// flushRedraws draws every surface with a pending redraw and arms its frame
// callback. Requests that arrived while a callback was in flight were
// deferred by the registry and show up here after the callback fires.
func (e *Engine) flushRedraws() {
	e.registry.Walk(func(rec *surface.Record) {
		if rec.Redraw != surface.RequestedRedraw {
			return
		}
		if e.renderer != nil {
			e.renderer.Redraw(rec.ID, rec.Geometry)
		}
		if e.registry.MarkFrameRequested(rec.ID) {
			e.request(protocol.RequestFrame{Surface: uint64(rec.ID)})
		}
	})
}

// destroySurface tears down a surface and its descendants, client side and
// compositor side.
func (e *Engine) destroySurface(id surface.ID) {
	if _, ok := e.registry.Get(id); !ok {
		log.Printf("Engine: destroy of unknown surface %v, dropped", id)
		return
	}
	e.request(protocol.DestroySurface{Surface: uint64(id)})
	e.removeLocal(id)
}

// removeLocal drops a surface and its descendants from local state without
// telling the compositor; used when the compositor initiated the teardown.
// Focus and drag references are cleared before the records go away, so the
// UI layer never observes a dangling ID.
func (e *Engine) removeLocal(id surface.ID) {
	evs := e.seats.DropFocus(id)
	removed := e.registry.Destroy(id)
	for _, rid := range removed {
		delete(e.appIDs, rid)
		delete(e.layerSettings, rid)
		for seatName, target := range e.pendingDnd {
			if target == rid {
				delete(e.pendingDnd, seatName)
			}
		}
		for i, lid := range e.lockSurfaces {
			if lid == rid {
				e.lockSurfaces = append(e.lockSurfaces[:i], e.lockSurfaces[i+1:]...)
				break
			}
		}
		if e.renderer != nil {
			e.renderer.Release(rid)
		}
	}
	e.deliver(evs)
}
