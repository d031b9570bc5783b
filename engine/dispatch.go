// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/dispatch.go
// Summary: Execution of Task actions on the event loop.
// Usage: The Run loop drains the proxy and dispatches each action here; the
// switch is exhaustive over the closed Action set.

package engine

import (
	"log"

	"github.com/framegrace/waylight/config"
	"github.com/framegrace/waylight/protocol"
	"github.com/framegrace/waylight/seat"
	"github.com/framegrace/waylight/surface"
	"github.com/framegrace/waylight/task"
)

func (e *Engine) dispatch(a task.Action) {
	switch act := a.(type) {
	case task.OpenWindow:
		e.openWindow(act)
	case task.CloseWindow:
		e.closeWindow(act.ID)
	case task.ResizeWindow:
		e.resizeWindow(act)
	case task.OpenLayerSurface:
		e.openLayerSurface(act)
	case task.SetAnchor:
		e.updateLayer(act.ID, func(m *protocol.CreateLayerSurface) {
			m.Anchor = uint8(act.Anchor)
		})
	case task.SetExclusiveZone:
		e.updateLayer(act.ID, func(m *protocol.CreateLayerSurface) {
			m.ExclusiveZone = act.Zone
		})
	case task.SetLayer:
		e.updateLayer(act.ID, func(m *protocol.CreateLayerSurface) {
			m.Layer = uint8(act.Layer)
		})
	case task.SetKeyboardInteractivity:
		e.updateLayer(act.ID, func(m *protocol.CreateLayerSurface) {
			m.KeyboardInteractivity = uint8(act.Mode)
		})
	case task.SetMargin:
		e.updateLayer(act.ID, func(m *protocol.CreateLayerSurface) {
			m.MarginTop = act.Margin.Top
			m.MarginRight = act.Margin.Right
			m.MarginBottom = act.Margin.Bottom
			m.MarginLeft = act.Margin.Left
		})
	case task.OpenPopup:
		e.openPopup(act)
	case task.AttachSubsurface:
		e.attachSubsurface(act)
	case task.DestroySurface:
		e.destroySurface(act.ID)
	case task.StartDrag:
		e.startDrag(act)
	case task.SetSelection:
		e.setSelection(act)
	case task.RequestSelectionData:
		e.requestSelectionData(act)
	case task.LockSession:
		e.request(protocol.LockSession{})
	case task.UnlockSession:
		e.request(protocol.UnlockSession{})
	case task.FetchOutputInfo:
		e.fetchOutputInfo(act)
	case task.LoadFont:
		if e.renderer != nil {
			e.renderer.LoadFont(act.Name, act.Data)
		}
	case task.ReloadUI:
		e.reloadUI()
	case task.Output:
		if e.onValue == nil {
			log.Printf("Engine: task value with no receiver, dropped")
			return
		}
		for _, t := range e.onValue(act.Value) {
			t.Run(e.proxy)
		}
	case task.Exit:
		select {
		case e.quit <- act.Code:
		default:
		}
	default:
		log.Printf("Engine: unknown action %T, dropped", a)
	}
}

// openWindow sizes a new window from the settings, falling back to the
// remembered geometry for the app and then the configured default.
func (e *Engine) openWindow(act task.OpenWindow) {
	s := act.Settings
	id, err := e.registry.Register(surface.Window, surface.None)
	if err != nil {
		if act.Reply != nil {
			act.Reply.Drop()
		}
		return
	}

	w, h := s.W, s.H
	if (w <= 0 || h <= 0) && e.st != nil && restoreGeometry(s.AppID) {
		if g, ok, err := e.st.Geometry(s.AppID); err == nil && ok {
			w, h = g.Width, g.Height
		}
	}
	if w <= 0 {
		w = e.defaultW
	}
	if h <= 0 {
		h = e.defaultH
	}

	e.appIDs[id] = s.AppID
	e.registry.UpdateGeometry(id, surface.Geometry{W: w, H: h})
	e.request(protocol.CreateWindow{
		Surface: uint64(id),
		AppID:   s.AppID,
		Title:   s.Title,
		W:       uint32(w),
		H:       uint32(h),
	})
	if act.Reply != nil {
		act.Reply.Resolve(id)
	}
}

// restoreGeometry reports whether the app opted into geometry persistence.
// Apps can turn it off in their per-app config; the default is on.
func restoreGeometry(appID string) bool {
	if appID == "" {
		return false
	}
	return config.App(appID).GetBool("window", "restore_geometry", true)
}

// closeWindow persists the window's final geometry before tearing it down.
func (e *Engine) closeWindow(id surface.ID) {
	if rec, ok := e.registry.Get(id); ok && e.st != nil {
		if appID := e.appIDs[id]; restoreGeometry(appID) {
			if err := e.st.SaveGeometry(appID, rec.Geometry.W, rec.Geometry.H); err != nil {
				log.Printf("Engine: failed to persist geometry for %q: %v", appID, err)
			}
		}
	}
	e.destroySurface(id)
}

// resizeWindow forwards the request; Resized is delivered once the
// compositor answers with a configure, not here.
func (e *Engine) resizeWindow(act task.ResizeWindow) {
	rec, ok := e.registry.Get(act.ID)
	if !ok {
		log.Printf("Engine: resize of unknown surface %v, dropped", act.ID)
		return
	}
	g := rec.Geometry
	g.W, g.H = act.W, act.H
	e.registry.UpdateGeometry(act.ID, g)
	e.request(protocol.SetWindowSize{Surface: uint64(act.ID), W: uint32(act.W), H: uint32(act.H)})
}

func (e *Engine) openLayerSurface(act task.OpenLayerSurface) {
	s := act.Settings
	id, err := e.registry.Register(surface.LayerSurface, surface.None)
	if err != nil {
		if act.Reply != nil {
			act.Reply.Drop()
		}
		return
	}
	msg := protocol.CreateLayerSurface{
		Surface:               uint64(id),
		Namespace:             s.Namespace,
		Output:                s.Output,
		Layer:                 uint8(s.Layer),
		Anchor:                uint8(s.Anchor),
		KeyboardInteractivity: uint8(s.KeyboardInteractivity),
		ExclusiveZone:         s.ExclusiveZone,
		MarginTop:             s.Margin.Top,
		MarginRight:           s.Margin.Right,
		MarginBottom:          s.Margin.Bottom,
		MarginLeft:            s.Margin.Left,
		W:                     uint32(s.W),
		H:                     uint32(s.H),
	}
	e.layerSettings[id] = msg
	e.registry.UpdateGeometry(id, surface.Geometry{W: s.W, H: s.H})
	e.request(msg)
	if act.Reply != nil {
		act.Reply.Resolve(id)
	}
}

// updateLayer mutates a layer surface's settings and re-advertises them. The
// wire reuses the create message; a create for a live surface reconfigures
// it.
func (e *Engine) updateLayer(id surface.ID, mutate func(*protocol.CreateLayerSurface)) {
	msg, ok := e.layerSettings[id]
	if !ok {
		log.Printf("Engine: layer update for non-layer surface %v, dropped", id)
		return
	}
	mutate(&msg)
	e.layerSettings[id] = msg
	e.request(msg)
}

func (e *Engine) openPopup(act task.OpenPopup) {
	s := act.Settings
	id, err := e.registry.Register(surface.Popup, s.Parent)
	if err != nil {
		log.Printf("Engine: popup for unknown parent %v, dropped", s.Parent)
		if act.Reply != nil {
			act.Reply.Drop()
		}
		return
	}
	relX := s.AnchorRect.X + s.OffsetX
	relY := s.AnchorRect.Y + s.AnchorRect.H + s.OffsetY
	g := surface.Geometry{W: s.W, H: s.H}
	if parent, ok := e.registry.Get(s.Parent); ok {
		g.X = parent.Geometry.X + relX
		g.Y = parent.Geometry.Y + relY
	}
	e.registry.UpdateGeometry(id, g)
	e.request(protocol.CreatePopup{
		Surface: uint64(id),
		Parent:  uint64(s.Parent),
		X:       int32(relX),
		Y:       int32(relY),
		W:       uint32(s.W),
		H:       uint32(s.H),
	})
	if act.Reply != nil {
		act.Reply.Resolve(id)
	}
}

func (e *Engine) attachSubsurface(act task.AttachSubsurface) {
	id, err := e.registry.Register(surface.Subsurface, act.Parent)
	if err != nil {
		log.Printf("Engine: subsurface for unknown parent %v, dropped", act.Parent)
		if act.Reply != nil {
			act.Reply.Drop()
		}
		return
	}
	g := surface.Geometry{}
	if parent, ok := e.registry.Get(act.Parent); ok {
		g.X = parent.Geometry.X + act.X
		g.Y = parent.Geometry.Y + act.Y
	}
	e.registry.UpdateGeometry(id, g)
	e.request(protocol.AttachSubsurface{
		Surface: uint64(id),
		Parent:  uint64(act.Parent),
		X:       int32(act.X),
		Y:       int32(act.Y),
	})
	if act.Reply != nil {
		act.Reply.Resolve(id)
	}
}

func (e *Engine) startDrag(act task.StartDrag) {
	s := e.seats.ActiveSeat()
	if s == nil {
		log.Printf("Engine: drag with no seats, dropped")
		return
	}
	if _, ok := e.registry.Get(act.Source); !ok {
		log.Printf("Engine: drag from unknown surface %v, dropped", act.Source)
		return
	}
	e.dragSources[s.Name] = seat.NewSource(act.Mimes, act.Data)
	e.request(protocol.StartDrag{
		Seat:   s.Name,
		Source: uint64(act.Source),
		Mimes:  act.Mimes,
		Action: uint8(act.Action),
	})
}

func (e *Engine) setSelection(act task.SetSelection) {
	s := e.seats.ActiveSeat()
	if s == nil {
		log.Printf("Engine: selection with no seats, dropped")
		return
	}
	e.selections[s.Name] = seat.NewSource(act.Mimes, act.Data)
	e.selectionMimes[s.Name] = act.Mimes
	e.request(protocol.SetSelection{Seat: s.Name, Mimes: act.Mimes})
}

// requestSelectionData serves the clipboard locally when we own it, and asks
// the compositor otherwise. A reply that cannot be satisfied is dropped, not
// left dangling.
func (e *Engine) requestSelectionData(act task.RequestSelectionData) {
	s := e.seats.ActiveSeat()
	if s == nil {
		if act.Reply != nil {
			act.Reply.Drop()
		}
		return
	}
	if src := e.selections[s.Name]; src != nil {
		if data, ok := src.Payload(act.Mime); ok {
			if act.Reply != nil {
				act.Reply.Resolve(data)
			}
			return
		}
	}
	offered := false
	for _, m := range e.selectionMimes[s.Name] {
		if m == act.Mime {
			offered = true
			break
		}
	}
	if !offered {
		if act.Reply != nil {
			act.Reply.Drop()
		}
		return
	}
	if act.Reply != nil {
		e.pendingSel[s.Name] = append(e.pendingSel[s.Name], act.Reply)
	}
	e.request(protocol.RequestSelection{Seat: s.Name, Mime: act.Mime})
}

func (e *Engine) fetchOutputInfo(act task.FetchOutputInfo) {
	if act.Reply == nil {
		return
	}
	for _, info := range e.outputList() {
		if act.Match == nil || act.Match(info) {
			act.Reply.Resolve(info)
			return
		}
	}
	act.Reply.Drop()
}

// reloadUI rebuilds every surface's UI state from scratch and redraws.
func (e *Engine) reloadUI() {
	if e.newUI == nil {
		return
	}
	e.registry.Walk(func(rec *surface.Record) {
		rec.UI = e.newUI(rec.ID)
		e.registry.RequestRedraw(rec.ID)
	})
}
