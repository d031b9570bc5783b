// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: task/action.go
// Summary: The closed set of side effects the runtime can perform.
// Usage: Tasks submit Actions to the engine's proxy; the dispatcher executes
// them on the event loop.

package task

import (
	"github.com/framegrace/waylight/event"
	"github.com/framegrace/waylight/surface"
)

// Value is an application-defined message produced by a Task and fed back
// into the next UI update.
type Value = interface{}

// Action is one side effect the runtime knows how to perform. The set is
// closed; the dispatcher switches exhaustively over it.
type Action interface {
	isAction()
}

// WindowSettings configures a new top-level window. Zero width or height
// defers to remembered geometry, then the configured default.
type WindowSettings struct {
	AppID     string
	Title     string
	W, H      float64
	Resizable bool
}

// Layer selects the stacking layer of a layer surface.
type Layer uint8

const (
	LayerBackground Layer = iota
	LayerBottom
	LayerTop
	LayerOverlay
)

// Anchor is a bitmask of screen edges a layer surface sticks to.
type Anchor uint8

const (
	AnchorTop Anchor = 1 << iota
	AnchorBottom
	AnchorLeft
	AnchorRight
)

// KeyboardInteractivity controls whether a layer surface takes keyboard
// focus.
type KeyboardInteractivity uint8

const (
	KeyboardNone KeyboardInteractivity = iota
	KeyboardExclusive
	KeyboardOnDemand
)

// Margin is the gap between a layer surface and its anchored edges.
type Margin struct {
	Top, Right, Bottom, Left int32
}

// LayerSettings configures a new layer surface.
type LayerSettings struct {
	Namespace             string
	Output                string
	Layer                 Layer
	Anchor                Anchor
	ExclusiveZone         int32
	Margin                Margin
	KeyboardInteractivity KeyboardInteractivity
	W, H                  float64
}

// PopupSettings configures a popup anchored inside a parent surface.
type PopupSettings struct {
	Parent     surface.ID
	AnchorRect surface.Geometry
	OffsetX    float64
	OffsetY    float64
	W, H       float64
}

// OutputInfo describes one display output.
type OutputInfo struct {
	Name  string
	W, H  uint32
	Scale float64
}

// OpenWindow creates a top-level window and resolves its surface ID.
type OpenWindow struct {
	Settings WindowSettings
	Reply    *Oneshot[surface.ID]
}

// CloseWindow closes a top-level window.
type CloseWindow struct {
	ID surface.ID
}

// ResizeWindow resizes a top-level window.
type ResizeWindow struct {
	ID   surface.ID
	W, H float64
}

// OpenLayerSurface creates a layer surface and resolves its surface ID.
type OpenLayerSurface struct {
	Settings LayerSettings
	Reply    *Oneshot[surface.ID]
}

// SetAnchor re-anchors a layer surface.
type SetAnchor struct {
	ID     surface.ID
	Anchor Anchor
}

// SetExclusiveZone adjusts a layer surface's exclusive zone.
type SetExclusiveZone struct {
	ID   surface.ID
	Zone int32
}

// SetLayer moves a layer surface to another stacking layer.
type SetLayer struct {
	ID    surface.ID
	Layer Layer
}

// SetKeyboardInteractivity changes how a layer surface takes focus.
type SetKeyboardInteractivity struct {
	ID   surface.ID
	Mode KeyboardInteractivity
}

// SetMargin adjusts a layer surface's margins.
type SetMargin struct {
	ID     surface.ID
	Margin Margin
}

// OpenPopup creates a popup and resolves its surface ID.
type OpenPopup struct {
	Settings PopupSettings
	Reply    *Oneshot[surface.ID]
}

// AttachSubsurface creates a subsurface inside a parent and resolves its
// surface ID.
type AttachSubsurface struct {
	Parent surface.ID
	X, Y   float64
	Reply  *Oneshot[surface.ID]
}

// DestroySurface tears down any surface and its descendants.
type DestroySurface struct {
	ID surface.ID
}

// StartDrag begins a drag from a source surface. Data maps each offered
// MIME type to its payload bytes.
type StartDrag struct {
	Source surface.ID
	Mimes  []string
	Action event.DndAction
	Data   map[string][]byte
}

// SetSelection advertises clipboard contents.
type SetSelection struct {
	Mimes []string
	Data  map[string][]byte
}

// RequestSelectionData fetches clipboard contents in one MIME type.
type RequestSelectionData struct {
	Mime  string
	Reply *Oneshot[[]byte]
}

// LockSession asks the compositor to lock the session.
type LockSession struct{}

// UnlockSession asks the compositor to unlock the session.
type UnlockSession struct{}

// FetchOutputInfo resolves the first output matching the predicate. If no
// output matches when the action executes, the reply is dropped unresolved;
// pair with Poll to wait for outputs that have not been advertised yet.
type FetchOutputInfo struct {
	Match func(OutputInfo) bool
	Reply *Oneshot[OutputInfo]
}

// LoadFont hands font bytes to the renderer.
type LoadFont struct {
	Name string
	Data []byte
}

// ReloadUI rebuilds the UI state of every live surface.
type ReloadUI struct{}

// Output feeds a value produced by a Task back into the UI update loop.
type Output struct {
	Value Value
}

// Exit ends the event loop.
type Exit struct {
	Code int
}

func (OpenWindow) isAction()               {}
func (CloseWindow) isAction()              {}
func (ResizeWindow) isAction()             {}
func (OpenLayerSurface) isAction()         {}
func (SetAnchor) isAction()                {}
func (SetExclusiveZone) isAction()         {}
func (SetLayer) isAction()                 {}
func (SetKeyboardInteractivity) isAction() {}
func (SetMargin) isAction()                {}
func (OpenPopup) isAction()                {}
func (AttachSubsurface) isAction()         {}
func (DestroySurface) isAction()           {}
func (StartDrag) isAction()                {}
func (SetSelection) isAction()             {}
func (RequestSelectionData) isAction()     {}
func (LockSession) isAction()              {}
func (UnlockSession) isAction()            {}
func (FetchOutputInfo) isAction()          {}
func (LoadFont) isAction()                 {}
func (ReloadUI) isAction()                 {}
func (Output) isAction()                   {}
func (Exit) isAction()                     {}
