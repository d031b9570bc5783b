// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/translate.go
// Summary: Translation of compositor protocol messages into state changes
// and UI events.
// Usage: Called from the Run loop for every inbound message. Messages naming
// unknown seats or surfaces are logged and dropped; the session continues.

package engine

import (
	"log"
	"os"
	"time"

	"github.com/framegrace/waylight/event"
	"github.com/framegrace/waylight/protocol"
	"github.com/framegrace/waylight/seat"
	"github.com/framegrace/waylight/surface"
	"github.com/framegrace/waylight/task"
)

func (e *Engine) handleMessage(m protocol.Message) {
	switch msg := m.(type) {
	case protocol.SeatAdded:
		e.seats.AddSeat(msg.Seat)
	case protocol.SeatRemoved:
		e.deliver(e.seats.RemoveSeat(msg.Seat))
		delete(e.mods, msg.Seat)
		delete(e.dragSources, msg.Seat)
		delete(e.selections, msg.Seat)
		delete(e.selectionMimes, msg.Seat)
		delete(e.pendingDnd, msg.Seat)
		for _, reply := range e.pendingSel[msg.Seat] {
			reply.Drop()
		}
		delete(e.pendingSel, msg.Seat)

	case protocol.KeyboardEnter:
		id := surface.ID(msg.Surface)
		if _, ok := e.registry.Get(id); !ok {
			log.Printf("Engine: keyboard enter for unknown surface %v, dropped", id)
			return
		}
		e.deliver(e.seats.KeyboardEnter(msg.Seat, id))
	case protocol.KeyboardLeave:
		e.deliver(e.seats.KeyboardLeave(msg.Seat, surface.ID(msg.Surface)))
	case protocol.KeyboardKey:
		e.deliver(e.seats.Key(msg.Seat, msg.Code, msg.Rune, e.mods[msg.Seat], msg.Pressed))
	case protocol.KeyboardModifiers:
		e.mods[msg.Seat] = event.Modifiers(msg.Modifiers)
		e.deliver(e.seats.Modifiers(msg.Seat, event.Modifiers(msg.Modifiers)))

	case protocol.PointerEnter:
		id := surface.ID(msg.Surface)
		rec, ok := e.registry.Get(id)
		if !ok {
			log.Printf("Engine: pointer enter for unknown surface %v, dropped", id)
			return
		}
		e.deliver(e.seats.PointerEnter(msg.Seat, id, msg.X-rec.Geometry.X, msg.Y-rec.Geometry.Y))
	case protocol.PointerLeave:
		e.deliver(e.seats.PointerLeave(msg.Seat, surface.ID(msg.Surface)))
	case protocol.PointerMotion:
		id := surface.ID(msg.Surface)
		rec, ok := e.registry.Get(id)
		if !ok {
			log.Printf("Engine: pointer motion for unknown surface %v, dropped", id)
			return
		}
		e.deliver(e.seats.PointerMotion(msg.Seat, id, msg.X-rec.Geometry.X, msg.Y-rec.Geometry.Y))
	case protocol.PointerButton:
		id := surface.ID(msg.Surface)
		if _, ok := e.registry.Get(id); !ok {
			log.Printf("Engine: pointer button for unknown surface %v, dropped", id)
			return
		}
		e.deliver(e.seats.PointerButton(msg.Seat, id, event.Button(msg.Button), msg.Pressed, time.Now()))

	case protocol.OutputAdded:
		if _, ok := e.outputs[msg.Output]; !ok {
			e.outputOrder = append(e.outputOrder, msg.Output)
		}
		e.outputs[msg.Output] = task.OutputInfo{Name: msg.Name, W: msg.W, H: msg.H, Scale: msg.Scale}
	case protocol.OutputChanged:
		if _, ok := e.outputs[msg.Output]; !ok {
			e.outputOrder = append(e.outputOrder, msg.Output)
		}
		e.outputs[msg.Output] = task.OutputInfo{Name: msg.Name, W: msg.W, H: msg.H, Scale: msg.Scale}
	case protocol.OutputRemoved:
		delete(e.outputs, msg.Output)
		for i, id := range e.outputOrder {
			if id == msg.Output {
				e.outputOrder = append(e.outputOrder[:i], e.outputOrder[i+1:]...)
				break
			}
		}

	case protocol.WindowConfigure:
		e.configure(surface.ID(msg.Surface), msg.W, msg.H, msg.Serial)
	case protocol.WindowClosed:
		e.deliver([]event.Event{{Type: event.Closed, Surface: surface.ID(msg.Surface)}})
	case protocol.LayerConfigure:
		e.configure(surface.ID(msg.Surface), msg.W, msg.H, msg.Serial)
	case protocol.LayerDone:
		e.removeLocal(surface.ID(msg.Surface))
	case protocol.PopupConfigure:
		id := surface.ID(msg.Surface)
		rec, ok := e.registry.Get(id)
		if !ok {
			log.Printf("Engine: configure for unknown surface %v, dropped", id)
			return
		}
		g := rec.Geometry
		if parent, ok := e.registry.Get(rec.Parent); ok {
			g.X = parent.Geometry.X + float64(msg.X)
			g.Y = parent.Geometry.Y + float64(msg.Y)
		}
		if msg.W != 0 {
			g.W = float64(msg.W)
		}
		if msg.H != 0 {
			g.H = float64(msg.H)
		}
		e.registry.UpdateGeometry(id, g)
		e.request(protocol.AckConfigure{Surface: msg.Surface, Serial: msg.Serial})
		e.deliver([]event.Event{{Type: event.Resized, Surface: id, Payload: event.Size{W: g.W, H: g.H}}})
	case protocol.PopupDone:
		e.removeLocal(surface.ID(msg.Surface))

	case protocol.SessionLocked:
		e.locked = true
		for _, out := range e.outputList() {
			id, err := e.registry.Register(surface.LockSurface, surface.None)
			if err != nil {
				continue
			}
			e.lockSurfaces = append(e.lockSurfaces, id)
			e.request(protocol.CreateLockSurface{Surface: uint64(id), Output: out.Name})
		}
	case protocol.SessionLockFinished:
		e.locked = false
		for len(e.lockSurfaces) > 0 {
			e.removeLocal(e.lockSurfaces[0])
		}
	case protocol.LockConfigure:
		e.configure(surface.ID(msg.Surface), msg.W, msg.H, msg.Serial)

	case protocol.SubsurfaceAttached:
		id := surface.ID(msg.Surface)
		rec, ok := e.registry.Get(id)
		if !ok {
			log.Printf("Engine: subsurface ack for unknown surface %v, dropped", id)
			return
		}
		if parent, ok := e.registry.Get(surface.ID(msg.Parent)); ok {
			g := rec.Geometry
			g.X = parent.Geometry.X + float64(msg.X)
			g.Y = parent.Geometry.Y + float64(msg.Y)
			e.registry.UpdateGeometry(id, g)
		}

	case protocol.ScaleFactor:
		id := surface.ID(msg.Surface)
		e.deliver([]event.Event{{Type: event.ScaleFactorChanged, Surface: id, Payload: event.Scale{Factor: msg.Factor}}})
	case protocol.FrameDone:
		id := surface.ID(msg.Surface)
		e.registry.MarkFrameDone(id)
		if rec, ok := e.registry.Get(id); ok && rec.Redraw == surface.ReadyToPresent {
			e.registry.MarkPresented(id)
		}

	case protocol.DataOfferEnter:
		e.deliver(e.seats.DragEnter(msg.Seat, msg.Mimes, event.ActionCopy, msg.X, msg.Y, e.registry))
	case protocol.DataOfferMotion:
		e.deliver(e.seats.DragMotion(msg.Seat, msg.X, msg.Y, e.registry))
	case protocol.DataOfferLeave:
		e.deliver(e.seats.DragLeave(msg.Seat))
	case protocol.DataOfferDrop:
		e.handleDrop(msg)

	case protocol.SelectionOffer:
		e.selectionMimes[msg.Seat] = msg.Mimes
	case protocol.SelectionData:
		e.handleSelectionData(msg)

	case protocol.DataSourceAccepted:
		if src := e.sourceFor(msg.Seat); src != nil {
			src.Accept(msg.Mime)
		}
	case protocol.DataSourceSend:
		e.handleSourceSend(msg)
	case protocol.DataSourceCancelled:
		if src := e.dragSources[msg.Seat]; src != nil {
			src.Cancel()
			delete(e.dragSources, msg.Seat)
		} else if src := e.selections[msg.Seat]; src != nil {
			src.Cancel()
			delete(e.selections, msg.Seat)
		}
	case protocol.DataSourceFinished:
		if src := e.dragSources[msg.Seat]; src != nil {
			src.FinishSend(nil)
			delete(e.dragSources, msg.Seat)
		}

	default:
		log.Printf("Engine: unhandled message type %d, dropped", m.MessageType())
	}
}

// configure applies a compositor size suggestion, acks it, and tells the UI.
// Zero width or height keeps the current dimension.
func (e *Engine) configure(id surface.ID, w, h uint32, serial uint32) {
	rec, ok := e.registry.Get(id)
	if !ok {
		log.Printf("Engine: configure for unknown surface %v, dropped", id)
		return
	}
	g := rec.Geometry
	if w != 0 {
		g.W = float64(w)
	}
	if h != 0 {
		g.H = float64(h)
	}
	e.registry.UpdateGeometry(id, g)
	e.request(protocol.AckConfigure{Surface: uint64(id), Serial: serial})
	e.deliver([]event.Event{{Type: event.Resized, Surface: id, Payload: event.Size{W: g.W, H: g.H}}})
}

// handleDrop completes an incoming drag. When we are also the drag source the
// payload is delivered in-memory; otherwise it is requested from the
// compositor and arrives later as SelectionData.
func (e *Engine) handleDrop(msg protocol.DataOfferDrop) {
	target, mimes, evs := e.seats.DragDrop(msg.Seat, msg.X, msg.Y, e.registry)
	e.deliver(evs)
	if target == surface.None || len(mimes) == 0 {
		return
	}
	mime := mimes[0]
	if src := e.dragSources[msg.Seat]; src != nil {
		if data, ok := src.Payload(mime); ok {
			e.deliver([]event.Event{{
				Type:    event.DndDataReceived,
				Surface: target,
				Seat:    msg.Seat,
				Payload: event.Dnd{Mime: mime, Data: data},
			}})
		}
		return
	}
	e.pendingDnd[msg.Seat] = target
	e.request(protocol.RequestDndData{Seat: msg.Seat, Mime: mime})
}

// handleSelectionData routes payload bytes to whoever asked: a surface
// waiting on a drop, or a Task waiting on the clipboard.
func (e *Engine) handleSelectionData(msg protocol.SelectionData) {
	if target, ok := e.pendingDnd[msg.Seat]; ok {
		delete(e.pendingDnd, msg.Seat)
		e.deliver([]event.Event{{
			Type:    event.DndDataReceived,
			Surface: target,
			Seat:    msg.Seat,
			Payload: event.Dnd{Mime: msg.Mime, Data: msg.Data},
		}})
		return
	}
	if q := e.pendingSel[msg.Seat]; len(q) > 0 {
		reply := q[0]
		e.pendingSel[msg.Seat] = q[1:]
		reply.Resolve(msg.Data)
		return
	}
	log.Printf("Engine: unsolicited selection data for seat %q, dropped", msg.Seat)
}

// handleSourceSend serves one transfer from our drag or clipboard source.
// With a real file descriptor the write happens off-loop; stream transports
// pass Fd -1 and receive the payload in-band instead.
func (e *Engine) handleSourceSend(msg protocol.DataSourceSend) {
	src := e.sourceFor(msg.Seat)
	if src == nil {
		log.Printf("Engine: send request for seat %q with no source, dropped", msg.Seat)
		if msg.Fd >= 0 {
			os.NewFile(uintptr(msg.Fd), "waylight-send").Close()
		}
		return
	}
	payload, ok := src.BeginSend(msg.Mime)
	if !ok {
		if msg.Fd >= 0 {
			os.NewFile(uintptr(msg.Fd), "waylight-send").Close()
		}
		return
	}
	if msg.Fd < 0 {
		e.request(protocol.SelectionData{Seat: msg.Seat, Mime: msg.Mime, Data: payload})
		src.FinishSend(nil)
		return
	}
	f := os.NewFile(uintptr(msg.Fd), "waylight-send")
	go func() {
		err := seat.WritePayload(f, payload)
		e.complete(func() { src.FinishSend(err) })
	}()
}

// sourceFor returns the seat's live outgoing source, drag first.
func (e *Engine) sourceFor(name string) *seat.Source {
	if src := e.dragSources[name]; src != nil {
		return src
	}
	return e.selections[name]
}

// outputList returns known outputs in advertisement order.
func (e *Engine) outputList() []task.OutputInfo {
	out := make([]task.OutputInfo, 0, len(e.outputOrder))
	for _, id := range e.outputOrder {
		if info, ok := e.outputs[id]; ok {
			out = append(out, info)
		}
	}
	return out
}
