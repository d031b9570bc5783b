// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: seat/tracker.go
// Summary: Per-seat input state and active-seat election.
// Usage: Owned by the engine loop; every method returns the synthesized
// platform-independent events for the UI layer.

package seat

import (
	"log"
	"time"

	"github.com/framegrace/waylight/event"
	"github.com/framegrace/waylight/surface"
)

// Seat is the tracked state of one physical input seat.
type Seat struct {
	Name          string
	KeyboardFocus surface.ID
	PointerFocus  surface.ID
	Pressed       map[event.Button]time.Time

	active bool
	drag   *Drag
}

// Active reports whether this seat currently drives window-level focus.
func (s *Seat) Active() bool { return s.active }

// Tracker owns every seat. Slice order is creation order; election ties
// break toward the lowest index, which deliberately favors the first seat
// the compositor advertised.
type Tracker struct {
	seats []*Seat
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// AddSeat registers a new seat. The first seat (or the first added while
// none is active) becomes the active one.
func (t *Tracker) AddSeat(name string) *Seat {
	if s := t.Seat(name); s != nil {
		return s
	}
	s := &Seat{Name: name, Pressed: make(map[event.Button]time.Time)}
	t.seats = append(t.seats, s)
	if t.ActiveSeat() == nil {
		s.active = true
	}
	return s
}

// RemoveSeat retires a seat, re-electing an active one if needed.
func (t *Tracker) RemoveSeat(name string) []event.Event {
	idx := -1
	for i, s := range t.seats {
		if s.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	wasActive := t.seats[idx].active
	t.seats = append(t.seats[:idx], t.seats[idx+1:]...)
	if !wasActive || len(t.seats) == 0 {
		return nil
	}
	next := t.focusedSeat()
	if next == nil {
		next = t.seats[0]
	}
	next.active = true
	if next.KeyboardFocus != surface.None {
		return []event.Event{{Type: event.WindowFocused, Surface: next.KeyboardFocus, Seat: next.Name}}
	}
	return nil
}

// Seat returns the named seat, or nil.
func (t *Tracker) Seat(name string) *Seat {
	for _, s := range t.seats {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Seats returns the tracked seats in creation order.
func (t *Tracker) Seats() []*Seat {
	return t.seats
}

// ActiveSeat returns the seat currently driving window focus, or nil when
// no seats exist.
func (t *Tracker) ActiveSeat() *Seat {
	for _, s := range t.seats {
		if s.active {
			return s
		}
	}
	return nil
}

// focusedSeat returns the lowest-index seat holding keyboard focus.
func (t *Tracker) focusedSeat() *Seat {
	for _, s := range t.seats {
		if s.KeyboardFocus != surface.None {
			return s
		}
	}
	return nil
}

// KeyboardEnter records keyboard focus entering a surface. Focus events
// are only forwarded for the active seat; an inactive seat gains activity
// only when the active one holds no focus.
func (t *Tracker) KeyboardEnter(name string, id surface.ID) []event.Event {
	s := t.Seat(name)
	if s == nil {
		log.Printf("SeatTracker: keyboard enter for unknown seat %q, dropped", name)
		return nil
	}
	prev := s.KeyboardFocus
	wasActive := s.active
	s.KeyboardFocus = id

	active := t.ActiveSeat()
	if active == nil {
		s.active = true
		active = s
	} else if active != s && active.KeyboardFocus == surface.None {
		// Activity follows focus when the active seat has none.
		active.active = false
		s.active = true
		active = s
	}

	if !s.active {
		return nil
	}
	if wasActive && prev == id {
		// Repeated enter for the surface already focused; no flicker.
		return nil
	}
	var events []event.Event
	if prev != surface.None && prev != id {
		events = append(events, event.Event{Type: event.WindowUnfocused, Surface: prev, Seat: name})
	}
	events = append(events, event.Event{Type: event.WindowFocused, Surface: id, Seat: name})
	return events
}

// KeyboardLeave records keyboard focus leaving a surface. When the active
// seat loses its last focus and another seat currently holds focus,
// activity transfers to that seat.
func (t *Tracker) KeyboardLeave(name string, id surface.ID) []event.Event {
	s := t.Seat(name)
	if s == nil {
		log.Printf("SeatTracker: keyboard leave for unknown seat %q, dropped", name)
		return nil
	}
	if s.KeyboardFocus != id {
		// Stale leave racing a focus change; protocol order makes this benign.
		return nil
	}
	s.KeyboardFocus = surface.None
	if !s.active {
		return nil
	}

	events := []event.Event{{Type: event.WindowUnfocused, Surface: id, Seat: name}}
	if next := t.focusedSeat(); next != nil {
		s.active = false
		next.active = true
		events = append(events, event.Event{Type: event.WindowFocused, Surface: next.KeyboardFocus, Seat: next.Name})
	}
	return events
}

// Key routes a raw key press/release to the seat's focused surface. Raw
// input is delivered for every seat, active or not.
func (t *Tracker) Key(name string, code uint32, r rune, mods event.Modifiers, pressed bool) []event.Event {
	s := t.Seat(name)
	if s == nil || s.KeyboardFocus == surface.None {
		return nil
	}
	typ := event.KeyReleased
	if pressed {
		typ = event.KeyPressed
	}
	return []event.Event{{
		Type:    typ,
		Surface: s.KeyboardFocus,
		Seat:    name,
		Payload: event.Key{Code: code, Rune: r, Modifiers: mods},
	}}
}

// Modifiers routes a modifier update to the seat's focused surface.
func (t *Tracker) Modifiers(name string, mods event.Modifiers) []event.Event {
	s := t.Seat(name)
	if s == nil || s.KeyboardFocus == surface.None {
		return nil
	}
	return []event.Event{{
		Type:    event.ModifiersChanged,
		Surface: s.KeyboardFocus,
		Seat:    name,
		Payload: event.Key{Modifiers: mods},
	}}
}

// PointerEnter records the pointer entering a surface. X and Y are
// surface-local.
func (t *Tracker) PointerEnter(name string, id surface.ID, x, y float64) []event.Event {
	s := t.Seat(name)
	if s == nil {
		log.Printf("SeatTracker: pointer enter for unknown seat %q, dropped", name)
		return nil
	}
	s.PointerFocus = id
	return []event.Event{{
		Type:    event.PointerEntered,
		Surface: id,
		Seat:    name,
		Payload: event.Pointer{X: x, Y: y},
	}}
}

// PointerLeave records the pointer leaving a surface.
func (t *Tracker) PointerLeave(name string, id surface.ID) []event.Event {
	s := t.Seat(name)
	if s == nil {
		return nil
	}
	if s.PointerFocus == id {
		s.PointerFocus = surface.None
	}
	return []event.Event{{Type: event.PointerLeft, Surface: id, Seat: name}}
}

// PointerMotion reports continuous movement over a surface. Motion stays
// distinct from enter/leave so overlapping subsurfaces still read as one
// continuous stream to the UI layer.
func (t *Tracker) PointerMotion(name string, id surface.ID, x, y float64) []event.Event {
	s := t.Seat(name)
	if s == nil {
		return nil
	}
	s.PointerFocus = id
	return []event.Event{{
		Type:    event.PointerMoved,
		Surface: id,
		Seat:    name,
		Payload: event.Pointer{X: x, Y: y},
	}}
}

// PointerButton records a button press or release, keeping the press
// history used to tell clicks from drags.
func (t *Tracker) PointerButton(name string, id surface.ID, btn event.Button, pressed bool, at time.Time) []event.Event {
	s := t.Seat(name)
	if s == nil {
		return nil
	}
	if pressed {
		s.Pressed[btn] = at
	} else {
		delete(s.Pressed, btn)
	}
	return []event.Event{{
		Type:    event.PointerButton,
		Surface: id,
		Seat:    name,
		Payload: event.Pointer{Button: btn, Pressed: pressed},
	}}
}

// DropFocus clears every reference to a surface being destroyed, as if
// leaves had been synthesized, then re-elects the active seat. The UI
// layer never sees a dangling surface ID afterwards.
func (t *Tracker) DropFocus(id surface.ID) []event.Event {
	var events []event.Event
	for _, s := range t.seats {
		if s.PointerFocus == id {
			s.PointerFocus = surface.None
		}
		if s.drag != nil && s.drag.Target() == id {
			events = append(events, s.drag.TargetDestroyed()...)
		}
		if s.KeyboardFocus != id {
			continue
		}
		s.KeyboardFocus = surface.None
		if !s.active {
			continue
		}
		if next := t.focusedSeat(); next != nil {
			s.active = false
			next.active = true
			events = append(events, event.Event{Type: event.WindowFocused, Surface: next.KeyboardFocus, Seat: next.Name})
		}
	}
	return events
}
