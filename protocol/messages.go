// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: protocol/messages.go
// Summary: Typed messages exchanged with the compositor, with their payload
// codecs. Events flow compositor→client, requests client→compositor.

package protocol

import (
	"encoding/binary"
	"errors"
	"math"
)

// MessageType enumerates every message category on the compositor
// connection.
type MessageType uint8

const (
	// Seat events
	MsgSeatAdded MessageType = iota
	MsgSeatRemoved
	// Keyboard events
	MsgKeyboardEnter
	MsgKeyboardLeave
	MsgKeyboardKey
	MsgKeyboardModifiers
	// Pointer events
	MsgPointerEnter
	MsgPointerLeave
	MsgPointerMotion
	MsgPointerButton
	// Output events
	MsgOutputAdded
	MsgOutputChanged
	MsgOutputRemoved
	// Window/shell events
	MsgWindowConfigure
	MsgWindowClosed
	MsgLayerConfigure
	MsgLayerDone
	MsgPopupConfigure
	MsgPopupDone
	MsgSessionLocked
	MsgSessionLockFinished
	MsgLockConfigure
	MsgSubsurfaceAttached
	MsgScaleFactor
	MsgFrameDone
	// Data-device events
	MsgDataOfferEnter
	MsgDataOfferMotion
	MsgDataOfferLeave
	MsgDataOfferDrop
	MsgSelectionOffer
	MsgSelectionData
	MsgDataSourceAccepted
	MsgDataSourceSend
	MsgDataSourceCancelled
	MsgDataSourceFinished
	// Requests
	MsgCreateWindow
	MsgCreateLayerSurface
	MsgCreatePopup
	MsgCreateLockSurface
	MsgAttachSubsurface
	MsgDestroySurface
	MsgSetWindowSize
	MsgAckConfigure
	MsgRequestFrame
	MsgStartDrag
	MsgSetSelection
	MsgRequestSelection
	MsgRequestDndData
	MsgLockSession
	MsgUnlockSession
)

var (
	errStringTooLong = errors.New("protocol: string exceeds 64KB limit")
	errPayloadShort  = errors.New("protocol: payload too short")
	errExtraBytes    = errors.New("protocol: payload has trailing data")
	errListTooLong   = errors.New("protocol: list exceeds 64K entries")
)

// Message is one decoded protocol message.
type Message interface {
	MessageType() MessageType
	encode() ([]byte, error)
}

// build accumulates an encoded payload.
type build struct {
	b   []byte
	err error
}

func (w *build) u8(v uint8)   { w.b = append(w.b, v) }
func (w *build) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}
func (w *build) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *build) i32(v int32)  { w.u32(uint32(v)) }
func (w *build) u64(v uint64) { w.b = binary.LittleEndian.AppendUint64(w.b, v) }
func (w *build) f64(v float64) {
	w.u64(math.Float64bits(v))
}
func (w *build) str(v string) {
	if len(v) > 0xFFFF {
		w.err = errStringTooLong
		return
	}
	w.b = binary.LittleEndian.AppendUint16(w.b, uint16(len(v)))
	w.b = append(w.b, v...)
}
func (w *build) strs(v []string) {
	if len(v) > 0xFFFF {
		w.err = errListTooLong
		return
	}
	w.b = binary.LittleEndian.AppendUint16(w.b, uint16(len(v)))
	for _, s := range v {
		w.str(s)
	}
}
func (w *build) bytes(v []byte) {
	w.u32(uint32(len(v)))
	w.b = append(w.b, v...)
}
func (w *build) finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.b, nil
}

// scan consumes an encoded payload. The first error sticks; callers check
// done() once at the end.
type scan struct {
	b   []byte
	err error
}

func (s *scan) take(n int) []byte {
	if s.err != nil {
		return nil
	}
	if len(s.b) < n {
		s.err = errPayloadShort
		return nil
	}
	out := s.b[:n]
	s.b = s.b[n:]
	return out
}
func (s *scan) u8() uint8 {
	b := s.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}
func (s *scan) bool() bool { return s.u8() != 0 }
func (s *scan) u16() uint16 {
	b := s.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}
func (s *scan) u32() uint32 {
	b := s.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}
func (s *scan) i32() int32 { return int32(s.u32()) }
func (s *scan) u64() uint64 {
	b := s.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}
func (s *scan) f64() float64 { return math.Float64frombits(s.u64()) }
func (s *scan) str() string {
	n := int(s.u16())
	b := s.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}
func (s *scan) strs() []string {
	n := int(s.u16())
	if s.err != nil {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.str())
	}
	return out
}
func (s *scan) bytes() []byte {
	n := int(s.u32())
	b := s.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
func (s *scan) done() error {
	if s.err != nil {
		return s.err
	}
	if len(s.b) != 0 {
		return errExtraBytes
	}
	return nil
}

// SeatAdded announces a new input seat.
type SeatAdded struct {
	Seat string
}

// SeatRemoved retires an input seat.
type SeatRemoved struct {
	Seat string
}

// KeyboardEnter reports keyboard focus entering a surface.
type KeyboardEnter struct {
	Seat    string
	Surface uint64
}

// KeyboardLeave reports keyboard focus leaving a surface.
type KeyboardLeave struct {
	Seat    string
	Surface uint64
}

// KeyboardKey carries one key press or release.
type KeyboardKey struct {
	Seat    string
	Code    uint32
	Rune    rune
	Pressed bool
	Time    uint32
}

// KeyboardModifiers reports the current modifier state for a seat.
type KeyboardModifiers struct {
	Seat      string
	Modifiers uint8
}

// PointerEnter reports the pointer entering a surface. X and Y are global
// logical coordinates.
type PointerEnter struct {
	Seat    string
	Surface uint64
	X, Y    float64
}

// PointerLeave reports the pointer leaving a surface.
type PointerLeave struct {
	Seat    string
	Surface uint64
}

// PointerMotion carries continuous pointer movement over a surface.
type PointerMotion struct {
	Seat    string
	Surface uint64
	X, Y    float64
	Time    uint32
}

// PointerButton carries one button press or release.
type PointerButton struct {
	Seat    string
	Surface uint64
	Button  uint8
	Pressed bool
	Time    uint32
}

// OutputAdded announces a display output.
type OutputAdded struct {
	Output uint32
	Name   string
	W, H   uint32
	Scale  float64
}

// OutputChanged updates an output's mode or scale.
type OutputChanged struct {
	Output uint32
	Name   string
	W, H   uint32
	Scale  float64
}

// OutputRemoved retires an output.
type OutputRemoved struct {
	Output uint32
}

// WindowConfigure is the compositor's size suggestion for a window. Zero
// width or height means the client picks.
type WindowConfigure struct {
	Surface uint64
	W, H    uint32
	Serial  uint32
}

// WindowClosed asks the client to close a window.
type WindowClosed struct {
	Surface uint64
}

// LayerConfigure sizes a layer surface.
type LayerConfigure struct {
	Surface uint64
	W, H    uint32
	Serial  uint32
}

// LayerDone tells the client a layer surface is no longer valid.
type LayerDone struct {
	Surface uint64
}

// PopupConfigure positions a popup relative to its parent.
type PopupConfigure struct {
	Surface uint64
	X, Y    int32
	W, H    uint32
	Serial  uint32
}

// PopupDone dismisses a popup.
type PopupDone struct {
	Surface uint64
}

// SessionLocked confirms the session lock took effect.
type SessionLocked struct{}

// SessionLockFinished reports the lock was denied or has ended.
type SessionLockFinished struct{}

// LockConfigure sizes a session-lock surface.
type LockConfigure struct {
	Surface uint64
	W, H    uint32
	Serial  uint32
}

// SubsurfaceAttached confirms a subsurface placement.
type SubsurfaceAttached struct {
	Surface uint64
	Parent  uint64
	X, Y    int32
}

// ScaleFactor reports a surface's new scale factor.
type ScaleFactor struct {
	Surface uint64
	Factor  float64
}

// FrameDone is the frame callback for a surface.
type FrameDone struct {
	Surface uint64
	Time    uint32
}

// DataOfferEnter starts an incoming drag for a seat. Coordinates are
// global; mapping onto a surface happens client-side where geometry is
// known.
type DataOfferEnter struct {
	Seat  string
	Mimes []string
	X, Y  float64
}

// DataOfferMotion moves an incoming drag.
type DataOfferMotion struct {
	Seat string
	X, Y float64
	Time uint32
}

// DataOfferLeave cancels an incoming drag without a drop.
type DataOfferLeave struct {
	Seat string
}

// DataOfferDrop completes an incoming drag.
type DataOfferDrop struct {
	Seat string
	X, Y float64
}

// SelectionOffer announces new clipboard contents.
type SelectionOffer struct {
	Seat  string
	Mimes []string
}

// SelectionData delivers requested clipboard or drag payload bytes on
// stream transports that cannot pass file descriptors.
type SelectionData struct {
	Seat string
	Mime string
	Data []byte
}

// DataSourceAccepted reports the destination accepted a MIME type from our
// drag source.
type DataSourceAccepted struct {
	Seat string
	Mime string
}

// DataSourceSend asks our drag source to write payload bytes to Fd.
type DataSourceSend struct {
	Seat string
	Mime string
	Fd   int32
}

// DataSourceCancelled aborts our drag source.
type DataSourceCancelled struct {
	Seat string
}

// DataSourceFinished reports our drag source completed successfully.
type DataSourceFinished struct {
	Seat string
}

// CreateWindow asks the compositor for a top-level window.
type CreateWindow struct {
	Surface uint64
	AppID   string
	Title   string
	W, H    uint32
}

// CreateLayerSurface asks for a layer-shell surface.
type CreateLayerSurface struct {
	Surface               uint64
	Namespace             string
	Output                string
	Layer                 uint8
	Anchor                uint8
	KeyboardInteractivity uint8
	ExclusiveZone         int32
	MarginTop             int32
	MarginRight           int32
	MarginBottom          int32
	MarginLeft            int32
	W, H                  uint32
}

// CreatePopup asks for a popup anchored to a parent surface.
type CreatePopup struct {
	Surface uint64
	Parent  uint64
	X, Y    int32
	W, H    uint32
}

// CreateLockSurface asks for a surface shown while the session is locked.
type CreateLockSurface struct {
	Surface uint64
	Output  string
}

// AttachSubsurface asks for a subsurface placed inside a parent.
type AttachSubsurface struct {
	Surface uint64
	Parent  uint64
	X, Y    int32
}

// DestroySurface releases a surface server-side.
type DestroySurface struct {
	Surface uint64
}

// SetWindowSize resizes a window.
type SetWindowSize struct {
	Surface uint64
	W, H    uint32
}

// AckConfigure acknowledges a configure serial.
type AckConfigure struct {
	Surface uint64
	Serial  uint32
}

// RequestFrame asks for a frame callback on a surface.
type RequestFrame struct {
	Surface uint64
}

// StartDrag begins an outgoing drag from a source surface.
type StartDrag struct {
	Seat   string
	Source uint64
	Mimes  []string
	Action uint8
}

// SetSelection advertises clipboard contents.
type SetSelection struct {
	Seat  string
	Mimes []string
}

// RequestSelection asks for clipboard contents in a MIME type.
type RequestSelection struct {
	Seat string
	Mime string
}

// RequestDndData asks for the dropped drag payload in a MIME type.
type RequestDndData struct {
	Seat string
	Mime string
}

// LockSession asks the compositor to lock the session.
type LockSession struct{}

// UnlockSession asks the compositor to unlock the session.
type UnlockSession struct{}

func (m SeatAdded) MessageType() MessageType   { return MsgSeatAdded }
func (m SeatRemoved) MessageType() MessageType { return MsgSeatRemoved }

func (m SeatAdded) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	return w.finish()
}

func (m SeatRemoved) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	return w.finish()
}

func (m KeyboardEnter) MessageType() MessageType { return MsgKeyboardEnter }
func (m KeyboardEnter) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.u64(m.Surface)
	return w.finish()
}

func (m KeyboardLeave) MessageType() MessageType { return MsgKeyboardLeave }
func (m KeyboardLeave) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.u64(m.Surface)
	return w.finish()
}

func (m KeyboardKey) MessageType() MessageType { return MsgKeyboardKey }
func (m KeyboardKey) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.u32(m.Code)
	w.u32(uint32(m.Rune))
	w.bool(m.Pressed)
	w.u32(m.Time)
	return w.finish()
}

func (m KeyboardModifiers) MessageType() MessageType { return MsgKeyboardModifiers }
func (m KeyboardModifiers) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.u8(m.Modifiers)
	return w.finish()
}

func (m PointerEnter) MessageType() MessageType { return MsgPointerEnter }
func (m PointerEnter) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.u64(m.Surface)
	w.f64(m.X)
	w.f64(m.Y)
	return w.finish()
}

func (m PointerLeave) MessageType() MessageType { return MsgPointerLeave }
func (m PointerLeave) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.u64(m.Surface)
	return w.finish()
}

func (m PointerMotion) MessageType() MessageType { return MsgPointerMotion }
func (m PointerMotion) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.u64(m.Surface)
	w.f64(m.X)
	w.f64(m.Y)
	w.u32(m.Time)
	return w.finish()
}

func (m PointerButton) MessageType() MessageType { return MsgPointerButton }
func (m PointerButton) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.u64(m.Surface)
	w.u8(m.Button)
	w.bool(m.Pressed)
	w.u32(m.Time)
	return w.finish()
}

func encodeOutput(output uint32, name string, width, height uint32, scale float64) ([]byte, error) {
	var w build
	w.u32(output)
	w.str(name)
	w.u32(width)
	w.u32(height)
	w.f64(scale)
	return w.finish()
}

func (m OutputAdded) MessageType() MessageType { return MsgOutputAdded }
func (m OutputAdded) encode() ([]byte, error) {
	return encodeOutput(m.Output, m.Name, m.W, m.H, m.Scale)
}

func (m OutputChanged) MessageType() MessageType { return MsgOutputChanged }
func (m OutputChanged) encode() ([]byte, error) {
	return encodeOutput(m.Output, m.Name, m.W, m.H, m.Scale)
}

func (m OutputRemoved) MessageType() MessageType { return MsgOutputRemoved }
func (m OutputRemoved) encode() ([]byte, error) {
	var w build
	w.u32(m.Output)
	return w.finish()
}

func encodeConfigure(sfc uint64, width, height, serial uint32) ([]byte, error) {
	var w build
	w.u64(sfc)
	w.u32(width)
	w.u32(height)
	w.u32(serial)
	return w.finish()
}

func (m WindowConfigure) MessageType() MessageType { return MsgWindowConfigure }
func (m WindowConfigure) encode() ([]byte, error) {
	return encodeConfigure(m.Surface, m.W, m.H, m.Serial)
}

func (m WindowClosed) MessageType() MessageType { return MsgWindowClosed }
func (m WindowClosed) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	return w.finish()
}

func (m LayerConfigure) MessageType() MessageType { return MsgLayerConfigure }
func (m LayerConfigure) encode() ([]byte, error) {
	return encodeConfigure(m.Surface, m.W, m.H, m.Serial)
}

func (m LayerDone) MessageType() MessageType { return MsgLayerDone }
func (m LayerDone) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	return w.finish()
}

func (m PopupConfigure) MessageType() MessageType { return MsgPopupConfigure }
func (m PopupConfigure) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.i32(m.X)
	w.i32(m.Y)
	w.u32(m.W)
	w.u32(m.H)
	w.u32(m.Serial)
	return w.finish()
}

func (m PopupDone) MessageType() MessageType { return MsgPopupDone }
func (m PopupDone) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	return w.finish()
}

func (m SessionLocked) MessageType() MessageType       { return MsgSessionLocked }
func (m SessionLocked) encode() ([]byte, error)        { return nil, nil }
func (m SessionLockFinished) MessageType() MessageType { return MsgSessionLockFinished }
func (m SessionLockFinished) encode() ([]byte, error)  { return nil, nil }

func (m LockConfigure) MessageType() MessageType { return MsgLockConfigure }
func (m LockConfigure) encode() ([]byte, error) {
	return encodeConfigure(m.Surface, m.W, m.H, m.Serial)
}

func (m SubsurfaceAttached) MessageType() MessageType { return MsgSubsurfaceAttached }
func (m SubsurfaceAttached) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.u64(m.Parent)
	w.i32(m.X)
	w.i32(m.Y)
	return w.finish()
}

func (m ScaleFactor) MessageType() MessageType { return MsgScaleFactor }
func (m ScaleFactor) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.f64(m.Factor)
	return w.finish()
}

func (m FrameDone) MessageType() MessageType { return MsgFrameDone }
func (m FrameDone) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.u32(m.Time)
	return w.finish()
}

func (m DataOfferEnter) MessageType() MessageType { return MsgDataOfferEnter }
func (m DataOfferEnter) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.strs(m.Mimes)
	w.f64(m.X)
	w.f64(m.Y)
	return w.finish()
}

func (m DataOfferMotion) MessageType() MessageType { return MsgDataOfferMotion }
func (m DataOfferMotion) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.f64(m.X)
	w.f64(m.Y)
	w.u32(m.Time)
	return w.finish()
}

func (m DataOfferLeave) MessageType() MessageType { return MsgDataOfferLeave }
func (m DataOfferLeave) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	return w.finish()
}

func (m DataOfferDrop) MessageType() MessageType { return MsgDataOfferDrop }
func (m DataOfferDrop) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.f64(m.X)
	w.f64(m.Y)
	return w.finish()
}

func (m SelectionOffer) MessageType() MessageType { return MsgSelectionOffer }
func (m SelectionOffer) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.strs(m.Mimes)
	return w.finish()
}

func (m SelectionData) MessageType() MessageType { return MsgSelectionData }
func (m SelectionData) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.str(m.Mime)
	w.bytes(m.Data)
	return w.finish()
}

func (m DataSourceAccepted) MessageType() MessageType { return MsgDataSourceAccepted }
func (m DataSourceAccepted) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.str(m.Mime)
	return w.finish()
}

func (m DataSourceSend) MessageType() MessageType { return MsgDataSourceSend }
func (m DataSourceSend) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.str(m.Mime)
	w.i32(m.Fd)
	return w.finish()
}

func (m DataSourceCancelled) MessageType() MessageType { return MsgDataSourceCancelled }
func (m DataSourceCancelled) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	return w.finish()
}

func (m DataSourceFinished) MessageType() MessageType { return MsgDataSourceFinished }
func (m DataSourceFinished) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	return w.finish()
}

func (m CreateWindow) MessageType() MessageType { return MsgCreateWindow }
func (m CreateWindow) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.str(m.AppID)
	w.str(m.Title)
	w.u32(m.W)
	w.u32(m.H)
	return w.finish()
}

func (m CreateLayerSurface) MessageType() MessageType { return MsgCreateLayerSurface }
func (m CreateLayerSurface) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.str(m.Namespace)
	w.str(m.Output)
	w.u8(m.Layer)
	w.u8(m.Anchor)
	w.u8(m.KeyboardInteractivity)
	w.i32(m.ExclusiveZone)
	w.i32(m.MarginTop)
	w.i32(m.MarginRight)
	w.i32(m.MarginBottom)
	w.i32(m.MarginLeft)
	w.u32(m.W)
	w.u32(m.H)
	return w.finish()
}

func (m CreatePopup) MessageType() MessageType { return MsgCreatePopup }
func (m CreatePopup) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.u64(m.Parent)
	w.i32(m.X)
	w.i32(m.Y)
	w.u32(m.W)
	w.u32(m.H)
	return w.finish()
}

func (m CreateLockSurface) MessageType() MessageType { return MsgCreateLockSurface }
func (m CreateLockSurface) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.str(m.Output)
	return w.finish()
}

func (m AttachSubsurface) MessageType() MessageType { return MsgAttachSubsurface }
func (m AttachSubsurface) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.u64(m.Parent)
	w.i32(m.X)
	w.i32(m.Y)
	return w.finish()
}

func (m DestroySurface) MessageType() MessageType { return MsgDestroySurface }
func (m DestroySurface) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	return w.finish()
}

func (m SetWindowSize) MessageType() MessageType { return MsgSetWindowSize }
func (m SetWindowSize) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.u32(m.W)
	w.u32(m.H)
	return w.finish()
}

func (m AckConfigure) MessageType() MessageType { return MsgAckConfigure }
func (m AckConfigure) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	w.u32(m.Serial)
	return w.finish()
}

func (m RequestFrame) MessageType() MessageType { return MsgRequestFrame }
func (m RequestFrame) encode() ([]byte, error) {
	var w build
	w.u64(m.Surface)
	return w.finish()
}

func (m StartDrag) MessageType() MessageType { return MsgStartDrag }
func (m StartDrag) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.u64(m.Source)
	w.strs(m.Mimes)
	w.u8(m.Action)
	return w.finish()
}

func (m SetSelection) MessageType() MessageType { return MsgSetSelection }
func (m SetSelection) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.strs(m.Mimes)
	return w.finish()
}

func (m RequestSelection) MessageType() MessageType { return MsgRequestSelection }
func (m RequestSelection) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.str(m.Mime)
	return w.finish()
}

func (m RequestDndData) MessageType() MessageType { return MsgRequestDndData }
func (m RequestDndData) encode() ([]byte, error) {
	var w build
	w.str(m.Seat)
	w.str(m.Mime)
	return w.finish()
}

func (m LockSession) MessageType() MessageType   { return MsgLockSession }
func (m LockSession) encode() ([]byte, error)    { return nil, nil }
func (m UnlockSession) MessageType() MessageType { return MsgUnlockSession }
func (m UnlockSession) encode() ([]byte, error)  { return nil, nil }

// Decode turns a payload back into its typed message.
func Decode(t MessageType, b []byte) (Message, error) {
	s := scan{b: b}
	var m Message
	switch t {
	case MsgSeatAdded:
		m = SeatAdded{Seat: s.str()}
	case MsgSeatRemoved:
		m = SeatRemoved{Seat: s.str()}
	case MsgKeyboardEnter:
		m = KeyboardEnter{Seat: s.str(), Surface: s.u64()}
	case MsgKeyboardLeave:
		m = KeyboardLeave{Seat: s.str(), Surface: s.u64()}
	case MsgKeyboardKey:
		m = KeyboardKey{Seat: s.str(), Code: s.u32(), Rune: rune(s.u32()), Pressed: s.bool(), Time: s.u32()}
	case MsgKeyboardModifiers:
		m = KeyboardModifiers{Seat: s.str(), Modifiers: s.u8()}
	case MsgPointerEnter:
		m = PointerEnter{Seat: s.str(), Surface: s.u64(), X: s.f64(), Y: s.f64()}
	case MsgPointerLeave:
		m = PointerLeave{Seat: s.str(), Surface: s.u64()}
	case MsgPointerMotion:
		m = PointerMotion{Seat: s.str(), Surface: s.u64(), X: s.f64(), Y: s.f64(), Time: s.u32()}
	case MsgPointerButton:
		m = PointerButton{Seat: s.str(), Surface: s.u64(), Button: s.u8(), Pressed: s.bool(), Time: s.u32()}
	case MsgOutputAdded:
		m = OutputAdded{Output: s.u32(), Name: s.str(), W: s.u32(), H: s.u32(), Scale: s.f64()}
	case MsgOutputChanged:
		m = OutputChanged{Output: s.u32(), Name: s.str(), W: s.u32(), H: s.u32(), Scale: s.f64()}
	case MsgOutputRemoved:
		m = OutputRemoved{Output: s.u32()}
	case MsgWindowConfigure:
		m = WindowConfigure{Surface: s.u64(), W: s.u32(), H: s.u32(), Serial: s.u32()}
	case MsgWindowClosed:
		m = WindowClosed{Surface: s.u64()}
	case MsgLayerConfigure:
		m = LayerConfigure{Surface: s.u64(), W: s.u32(), H: s.u32(), Serial: s.u32()}
	case MsgLayerDone:
		m = LayerDone{Surface: s.u64()}
	case MsgPopupConfigure:
		m = PopupConfigure{Surface: s.u64(), X: s.i32(), Y: s.i32(), W: s.u32(), H: s.u32(), Serial: s.u32()}
	case MsgPopupDone:
		m = PopupDone{Surface: s.u64()}
	case MsgSessionLocked:
		m = SessionLocked{}
	case MsgSessionLockFinished:
		m = SessionLockFinished{}
	case MsgLockConfigure:
		m = LockConfigure{Surface: s.u64(), W: s.u32(), H: s.u32(), Serial: s.u32()}
	case MsgSubsurfaceAttached:
		m = SubsurfaceAttached{Surface: s.u64(), Parent: s.u64(), X: s.i32(), Y: s.i32()}
	case MsgScaleFactor:
		m = ScaleFactor{Surface: s.u64(), Factor: s.f64()}
	case MsgFrameDone:
		m = FrameDone{Surface: s.u64(), Time: s.u32()}
	case MsgDataOfferEnter:
		m = DataOfferEnter{Seat: s.str(), Mimes: s.strs(), X: s.f64(), Y: s.f64()}
	case MsgDataOfferMotion:
		m = DataOfferMotion{Seat: s.str(), X: s.f64(), Y: s.f64(), Time: s.u32()}
	case MsgDataOfferLeave:
		m = DataOfferLeave{Seat: s.str()}
	case MsgDataOfferDrop:
		m = DataOfferDrop{Seat: s.str(), X: s.f64(), Y: s.f64()}
	case MsgSelectionOffer:
		m = SelectionOffer{Seat: s.str(), Mimes: s.strs()}
	case MsgSelectionData:
		m = SelectionData{Seat: s.str(), Mime: s.str(), Data: s.bytes()}
	case MsgDataSourceAccepted:
		m = DataSourceAccepted{Seat: s.str(), Mime: s.str()}
	case MsgDataSourceSend:
		m = DataSourceSend{Seat: s.str(), Mime: s.str(), Fd: s.i32()}
	case MsgDataSourceCancelled:
		m = DataSourceCancelled{Seat: s.str()}
	case MsgDataSourceFinished:
		m = DataSourceFinished{Seat: s.str()}
	case MsgCreateWindow:
		m = CreateWindow{Surface: s.u64(), AppID: s.str(), Title: s.str(), W: s.u32(), H: s.u32()}
	case MsgCreateLayerSurface:
		m = CreateLayerSurface{
			Surface:               s.u64(),
			Namespace:             s.str(),
			Output:                s.str(),
			Layer:                 s.u8(),
			Anchor:                s.u8(),
			KeyboardInteractivity: s.u8(),
			ExclusiveZone:         s.i32(),
			MarginTop:             s.i32(),
			MarginRight:           s.i32(),
			MarginBottom:          s.i32(),
			MarginLeft:            s.i32(),
			W:                     s.u32(),
			H:                     s.u32(),
		}
	case MsgCreatePopup:
		m = CreatePopup{Surface: s.u64(), Parent: s.u64(), X: s.i32(), Y: s.i32(), W: s.u32(), H: s.u32()}
	case MsgCreateLockSurface:
		m = CreateLockSurface{Surface: s.u64(), Output: s.str()}
	case MsgAttachSubsurface:
		m = AttachSubsurface{Surface: s.u64(), Parent: s.u64(), X: s.i32(), Y: s.i32()}
	case MsgDestroySurface:
		m = DestroySurface{Surface: s.u64()}
	case MsgSetWindowSize:
		m = SetWindowSize{Surface: s.u64(), W: s.u32(), H: s.u32()}
	case MsgAckConfigure:
		m = AckConfigure{Surface: s.u64(), Serial: s.u32()}
	case MsgRequestFrame:
		m = RequestFrame{Surface: s.u64()}
	case MsgStartDrag:
		m = StartDrag{Seat: s.str(), Source: s.u64(), Mimes: s.strs(), Action: s.u8()}
	case MsgSetSelection:
		m = SetSelection{Seat: s.str(), Mimes: s.strs()}
	case MsgRequestSelection:
		m = RequestSelection{Seat: s.str(), Mime: s.str()}
	case MsgRequestDndData:
		m = RequestDndData{Seat: s.str(), Mime: s.str()}
	case MsgLockSession:
		m = LockSession{}
	case MsgUnlockSession:
		m = UnlockSession{}
	default:
		return nil, ErrUnknownMessage
	}
	if err := s.done(); err != nil {
		return nil, err
	}
	return m, nil
}
