// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: surface/id.go
// Summary: Surface identifiers, kinds and logical geometry.

package surface

import "fmt"

// ID identifies one logical surface for the lifetime of the process.
// IDs come from a monotonic counter and are never reused, so a stale ID
// held by a Task or a seat tracker can be detected instead of silently
// resolving to a different surface.
type ID uint64

// None is the zero ID. It never names a live surface.
const None ID = 0

func (id ID) String() string {
	if id == None {
		return "surface(none)"
	}
	return fmt.Sprintf("surface(%d)", uint64(id))
}

// Kind classifies a surface by the shell role it was created with.
type Kind int

const (
	Window Kind = iota
	Popup
	LayerSurface
	LockSurface
	Subsurface
)

func (k Kind) String() string {
	switch k {
	case Window:
		return "window"
	case Popup:
		return "popup"
	case LayerSurface:
		return "layer-surface"
	case LockSurface:
		return "lock-surface"
	case Subsurface:
		return "subsurface"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Geometry is a surface's logical position and size. Width and height are
// never negative; zero means "unset" and defers to the compositor's
// suggestion or the configured default.
type Geometry struct {
	X, Y float64
	W, H float64
}

// Contains reports whether the point (x, y) falls inside the rectangle.
func (g Geometry) Contains(x, y float64) bool {
	return x >= g.X && y >= g.Y && x < g.X+g.W && y < g.Y+g.H
}

// Unset reports whether the geometry still has no usable size.
func (g Geometry) Unset() bool {
	return g.W == 0 || g.H == 0
}
