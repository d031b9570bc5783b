// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: event/event.go
// Summary: Platform-independent event vocabulary delivered to UI state.
// Usage: Produced by the engine's protocol translators and seat tracker;
// consumed by the per-surface UserInterface collaborator.

package event

import (
	"fmt"

	"github.com/framegrace/waylight/surface"
)

// Type defines the type of an event.
type Type int

const (
	// Pointer events
	PointerEntered Type = iota
	PointerMoved
	PointerLeft
	PointerButton
	// Keyboard events
	KeyPressed
	KeyReleased
	ModifiersChanged
	// Window-level events
	WindowFocused
	WindowUnfocused
	Resized
	ScaleFactorChanged
	Closed
	// Drag-and-drop events
	DndEntered
	DndMotion
	DndLeft
	DndDropped
	DndDataReceived
)

func (t Type) String() string {
	switch t {
	case PointerEntered:
		return "pointer-entered"
	case PointerMoved:
		return "pointer-moved"
	case PointerLeft:
		return "pointer-left"
	case PointerButton:
		return "pointer-button"
	case KeyPressed:
		return "key-pressed"
	case KeyReleased:
		return "key-released"
	case ModifiersChanged:
		return "modifiers-changed"
	case WindowFocused:
		return "window-focused"
	case WindowUnfocused:
		return "window-unfocused"
	case Resized:
		return "resized"
	case ScaleFactorChanged:
		return "scale-factor-changed"
	case Closed:
		return "closed"
	case DndEntered:
		return "dnd-entered"
	case DndMotion:
		return "dnd-motion"
	case DndLeft:
		return "dnd-left"
	case DndDropped:
		return "dnd-dropped"
	case DndDataReceived:
		return "dnd-data-received"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event is one occurrence delivered to a surface's UI state. Surface is the
// target; Seat names the input seat that caused it, when one did.
type Event struct {
	Type    Type
	Surface surface.ID
	Seat    string
	Payload interface{}
}

// Button identifies a pointer button.
type Button uint8

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModLogo
)

// DndAction is the transfer action negotiated during a drag.
type DndAction uint8

const (
	ActionNone DndAction = iota
	ActionCopy
	ActionMove
	ActionAsk
)

// Pointer is the payload for pointer events. X and Y are surface-local.
type Pointer struct {
	X, Y    float64
	Button  Button
	Pressed bool
}

// Key is the payload for keyboard events.
type Key struct {
	Code      uint32
	Rune      rune
	Modifiers Modifiers
}

// Size is the payload for Resized.
type Size struct {
	W, H float64
}

// Scale is the payload for ScaleFactorChanged.
type Scale struct {
	Factor float64
}

// Dnd is the payload for drag-and-drop events. X and Y are surface-local;
// Mimes is set on DndEntered, Mime and Data on DndDataReceived.
type Dnd struct {
	Mimes  []string
	Action DndAction
	X, Y   float64
	Mime   string
	Data   []byte
}
