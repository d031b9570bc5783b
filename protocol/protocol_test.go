// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: protocol/protocol_test.go
// Summary: Exercises the frame codec to keep the wire format stable.
// Usage: Executed during `go test` to guard against regressions.

package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	msg := PointerMotion{Seat: "seat0", Surface: 7, X: 120.5, Y: 44.25, Time: 99}

	buf := &bytes.Buffer{}
	if err := WriteMessage(buf, 42, msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	hdr, got, err := ReadMessage(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if hdr.Type != MsgPointerMotion || hdr.Serial != 42 {
		t.Fatalf("header mismatch: %+v", hdr)
	}
	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("message mismatch: %#v vs %#v", got, msg)
	}
}

func TestReadMessageInvalidMagic(t *testing.T) {
	data := make([]byte, headerSize)
	if _, _, err := ReadMessage(bytes.NewReader(data)); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestChecksumMismatch(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteMessage(buf, 1, SeatAdded{Seat: "seat0"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF // flip a payload byte

	if _, _, err := ReadMessage(bytes.NewReader(raw)); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}

func TestTruncatedPayload(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteMessage(buf, 3, WindowClosed{Surface: 12}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	raw := buf.Bytes()

	if _, _, err := ReadMessage(bytes.NewReader(raw[:len(raw)-2])); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}
