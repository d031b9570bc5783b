// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: surface/registry.go
// Summary: Registry of live surfaces with parent linkage and redraw status.
// Usage: Owned by the engine loop; all mutation happens on that goroutine.

package surface

import (
	"errors"
	"log"
	"sort"
)

// RedrawStatus tracks where a surface sits in the redraw/frame-callback
// cycle. At most one frame callback is ever in flight per surface; a
// redraw requested while one is pending is deferred, not duplicated.
type RedrawStatus int

const (
	Idle RedrawStatus = iota
	RequestedRedraw
	FrameCallbackPending
	ReadyToPresent
)

func (s RedrawStatus) String() string {
	switch s {
	case Idle:
		return "idle"
	case RequestedRedraw:
		return "requested-redraw"
	case FrameCallbackPending:
		return "frame-callback-pending"
	case ReadyToPresent:
		return "ready-to-present"
	}
	return "unknown"
}

// ErrNoSuchParent is returned when a child surface is registered before its
// parent. Popups and subsurfaces cannot predate their parent's record.
var ErrNoSuchParent = errors.New("surface: parent not registered")

// UIState is the opaque per-surface state owned by the UI collaborator. The
// registry only controls its lifetime: created at registration, dropped on
// destroy.
type UIState interface{}

// Record is the registry's view of one live surface.
type Record struct {
	ID       ID
	Kind     Kind
	Parent   ID
	Geometry Geometry
	Redraw   RedrawStatus
	UI       UIState

	deferredRedraw bool
}

// Registry maps surface IDs to records. It is not safe for concurrent use;
// only the engine loop may touch it.
type Registry struct {
	next    uint64
	records map[ID]*Record

	// NewState, when set, fills the UI slot of every registered surface.
	NewState func(ID) UIState
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[ID]*Record)}
}

// Register allocates a fresh ID and records the surface. The parent must
// already be registered (or None for top-level kinds).
func (r *Registry) Register(kind Kind, parent ID) (ID, error) {
	if parent != None {
		if _, ok := r.records[parent]; !ok {
			return None, ErrNoSuchParent
		}
	}
	r.next++
	id := ID(r.next)
	rec := &Record{ID: id, Kind: kind, Parent: parent}
	if r.NewState != nil {
		rec.UI = r.NewState(id)
	}
	r.records[id] = rec
	return id, nil
}

// Get returns the record for id, if it is live.
func (r *Registry) Get(id ID) (*Record, bool) {
	rec, ok := r.records[id]
	return rec, ok
}

// Len returns the number of live surfaces.
func (r *Registry) Len() int {
	return len(r.records)
}

// UpdateGeometry applies a compositor-provided configure and schedules a
// redraw. Negative dimensions are clamped to zero; the compositor should
// never send them, but a misbehaving one must not poison the registry.
func (r *Registry) UpdateGeometry(id ID, g Geometry) bool {
	rec, ok := r.records[id]
	if !ok {
		return false
	}
	if g.W < 0 || g.H < 0 {
		log.Printf("Registry: clamping negative geometry %.0fx%.0f for %v", g.W, g.H, id)
		if g.W < 0 {
			g.W = 0
		}
		if g.H < 0 {
			g.H = 0
		}
	}
	rec.Geometry = g
	r.RequestRedraw(id)
	return true
}

// Destroy removes the record for id and, transitively, every record whose
// parent chain reaches id. Children appear before their parent in the
// returned slice so callers can release resources bottom-up. Returns nil
// if id is not live.
func (r *Registry) Destroy(id ID) []ID {
	if _, ok := r.records[id]; !ok {
		return nil
	}
	var removed []ID
	var visit func(ID)
	visit = func(target ID) {
		var children []ID
		for cid, rec := range r.records {
			if rec.Parent == target {
				children = append(children, cid)
			}
		}
		// Map iteration order is random; keep teardown deterministic.
		sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
		for _, cid := range children {
			visit(cid)
		}
		delete(r.records, target)
		removed = append(removed, target)
	}
	visit(id)
	return removed
}

// RequestRedraw asks for the surface to be drawn again. Requests coalesce:
// while a frame callback is pending the request is remembered and replayed
// once the callback fires, so N requests yield one callback.
func (r *Registry) RequestRedraw(id ID) bool {
	rec, ok := r.records[id]
	if !ok {
		return false
	}
	switch rec.Redraw {
	case Idle:
		rec.Redraw = RequestedRedraw
	case RequestedRedraw:
		// Already scheduled.
	case FrameCallbackPending, ReadyToPresent:
		rec.deferredRedraw = true
	}
	return true
}

// MarkFrameRequested transitions RequestedRedraw to FrameCallbackPending.
// It refuses to issue a second callback while one is in flight.
func (r *Registry) MarkFrameRequested(id ID) bool {
	rec, ok := r.records[id]
	if !ok || rec.Redraw != RequestedRedraw {
		return false
	}
	rec.Redraw = FrameCallbackPending
	return true
}

// MarkFrameDone records the compositor's frame callback. A redraw deferred
// during the pending window re-arms the cycle immediately.
func (r *Registry) MarkFrameDone(id ID) {
	rec, ok := r.records[id]
	if !ok || rec.Redraw != FrameCallbackPending {
		return
	}
	if rec.deferredRedraw {
		rec.deferredRedraw = false
		rec.Redraw = RequestedRedraw
		return
	}
	rec.Redraw = ReadyToPresent
}

// MarkPresented returns a presented surface to Idle.
func (r *Registry) MarkPresented(id ID) {
	rec, ok := r.records[id]
	if !ok || rec.Redraw != ReadyToPresent {
		return
	}
	if rec.deferredRedraw {
		rec.deferredRedraw = false
		rec.Redraw = RequestedRedraw
		return
	}
	rec.Redraw = Idle
}

// Walk visits every record in ascending ID order.
func (r *Registry) Walk(fn func(*Record)) {
	ids := make([]ID, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(r.records[id])
	}
}

// HitTest returns the topmost surface containing the point (x, y) in global
// coordinates. Later-created surfaces win, which matches stacking order for
// popups and subsurfaces over their parents.
func (r *Registry) HitTest(x, y float64) (ID, Geometry, bool) {
	var (
		best    ID
		bestGeo Geometry
	)
	for id, rec := range r.records {
		if rec.Geometry.Contains(x, y) && id > best {
			best = id
			bestGeo = rec.Geometry
		}
	}
	if best == None {
		return None, Geometry{}, false
	}
	return best, bestGeo, true
}
