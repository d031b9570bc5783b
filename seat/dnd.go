// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: seat/dnd.go
// Summary: Incoming drag-and-drop state machine per seat.
// Usage: The compositor reports raw seat-relative coordinates; this layer
// turns them into discrete per-surface Enter/Motion/Leave/Drop events.

package seat

import (
	"log"

	"github.com/framegrace/waylight/event"
	"github.com/framegrace/waylight/surface"
)

// HitTester resolves a global point to the topmost surface under it. Only
// the registry knows surface geometry, so the coordinate transform happens
// at this boundary and not earlier.
type HitTester interface {
	HitTest(x, y float64) (surface.ID, surface.Geometry, bool)
}

// DragPhase is the offer machine's current state.
type DragPhase int

const (
	DragIdle DragPhase = iota
	DragOffered
	DragHovering
)

func (p DragPhase) String() string {
	switch p {
	case DragIdle:
		return "idle"
	case DragOffered:
		return "offered"
	case DragHovering:
		return "hovering"
	}
	return "unknown"
}

// Drag tracks one incoming data offer. At most one exists per seat.
type Drag struct {
	seat   string
	phase  DragPhase
	mimes  []string
	action event.DndAction
	target surface.ID
	geo    surface.Geometry
}

// Phase returns the current state, for tests and diagnostics.
func (d *Drag) Phase() DragPhase { return d.phase }

// Mimes returns the offered MIME types.
func (d *Drag) Mimes() []string { return d.mimes }

// Target returns the hovered surface, or None.
func (d *Drag) Target() surface.ID {
	if d.phase != DragHovering {
		return surface.None
	}
	return d.target
}

// enter moves Idle→Offered and, if the point already lands on a surface,
// straight on to Hovering.
func (d *Drag) enter(mimes []string, action event.DndAction, x, y float64, hit HitTester) []event.Event {
	if d.phase != DragIdle {
		log.Printf("Drag: enter for seat %q while %v, resetting", d.seat, d.phase)
		d.reset()
	}
	d.phase = DragOffered
	d.mimes = mimes
	d.action = action
	return d.motion(x, y, hit)
}

// motion advances the machine for a new pointer position. Crossing from
// one surface to another emits Leave then Enter; consumers never see a raw
// motion spanning a boundary.
func (d *Drag) motion(x, y float64, hit HitTester) []event.Event {
	if d.phase == DragIdle {
		return nil
	}
	id, geo, over := hit.HitTest(x, y)

	var events []event.Event
	if d.phase == DragHovering {
		if !over || id != d.target {
			events = append(events, event.Event{Type: event.DndLeft, Surface: d.target, Seat: d.seat})
			d.phase = DragOffered
			d.target = surface.None
		}
	}
	if !over {
		return events
	}
	if d.phase == DragOffered {
		d.phase = DragHovering
		d.target = id
		d.geo = geo
		events = append(events, event.Event{
			Type:    event.DndEntered,
			Surface: id,
			Seat:    d.seat,
			Payload: event.Dnd{Mimes: d.mimes, Action: d.action, X: x - geo.X, Y: y - geo.Y},
		})
		return events
	}
	d.geo = geo
	events = append(events, event.Event{
		Type:    event.DndMotion,
		Surface: id,
		Seat:    d.seat,
		Payload: event.Dnd{Action: d.action, X: x - geo.X, Y: y - geo.Y},
	})
	return events
}

// leave abandons the offer without a drop.
func (d *Drag) leave() []event.Event {
	var events []event.Event
	if d.phase == DragHovering {
		events = append(events, event.Event{Type: event.DndLeft, Surface: d.target, Seat: d.seat})
	}
	d.reset()
	return events
}

// TargetDestroyed reacts to the hovered surface disappearing mid-drag. The
// offer survives and may hover another surface on the next motion.
func (d *Drag) TargetDestroyed() []event.Event {
	if d.phase != DragHovering {
		return nil
	}
	d.phase = DragOffered
	d.target = surface.None
	return nil
}

func (d *Drag) reset() {
	d.phase = DragIdle
	d.mimes = nil
	d.action = event.ActionNone
	d.target = surface.None
}

// DragEnter starts an incoming drag for a seat.
func (t *Tracker) DragEnter(name string, mimes []string, action event.DndAction, x, y float64, hit HitTester) []event.Event {
	s := t.Seat(name)
	if s == nil {
		log.Printf("SeatTracker: drag enter for unknown seat %q, dropped", name)
		return nil
	}
	if s.drag == nil {
		s.drag = &Drag{seat: name}
	}
	return s.drag.enter(mimes, action, x, y, hit)
}

// DragMotion moves an incoming drag.
func (t *Tracker) DragMotion(name string, x, y float64, hit HitTester) []event.Event {
	s := t.Seat(name)
	if s == nil || s.drag == nil {
		return nil
	}
	return s.drag.motion(x, y, hit)
}

// DragLeave cancels an incoming drag without a drop.
func (t *Tracker) DragLeave(name string) []event.Event {
	s := t.Seat(name)
	if s == nil || s.drag == nil {
		return nil
	}
	return s.drag.leave()
}

// DragDrop completes an incoming drag. The returned target is the surface
// that should receive the payload, or None when the drop landed nowhere.
func (t *Tracker) DragDrop(name string, x, y float64, hit HitTester) (surface.ID, []string, []event.Event) {
	s := t.Seat(name)
	if s == nil || s.drag == nil {
		return surface.None, nil, nil
	}
	mimes := s.drag.Mimes()
	target := surface.None
	events := s.drag.motion(x, y, hit)
	if s.drag.phase == DragHovering {
		target = s.drag.target
	}
	events = append(events, s.drag.dropAt(x, y)...)
	return target, mimes, events
}

// dropAt finishes the machine assuming motion has already been applied.
func (d *Drag) dropAt(x, y float64) []event.Event {
	if d.phase != DragHovering {
		d.reset()
		return nil
	}
	events := []event.Event{{
		Type:    event.DndDropped,
		Surface: d.target,
		Seat:    d.seat,
		Payload: event.Dnd{Mimes: d.mimes, Action: d.action, X: x - d.geo.X, Y: y - d.geo.Y},
	}}
	d.reset()
	return events
}

// DragState exposes a seat's drag machine for tests.
func (t *Tracker) DragState(name string) *Drag {
	s := t.Seat(name)
	if s == nil {
		return nil
	}
	return s.drag
}
