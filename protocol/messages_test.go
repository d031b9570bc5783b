// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: protocol/messages_test.go
// Summary: Exercises message payload codecs for the trickier shapes.
// Usage: Executed during `go test` to guard against regressions.

package protocol

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	payload, err := m.encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := Decode(m.MessageType(), payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return decoded
}

func TestDataOfferEnterRoundTrip(t *testing.T) {
	msg := DataOfferEnter{
		Seat:  "seat0",
		Mimes: []string{"text/plain", "text/uri-list"},
		X:     10.5,
		Y:     20,
	}
	decoded := roundTrip(t, msg)
	if !reflect.DeepEqual(decoded, msg) {
		t.Fatalf("mismatch: %#v vs %#v", decoded, msg)
	}
}

func TestCreateLayerSurfaceRoundTrip(t *testing.T) {
	msg := CreateLayerSurface{
		Surface:               9,
		Namespace:             "panel",
		Output:                "DP-1",
		Layer:                 2,
		Anchor:                0b1011,
		KeyboardInteractivity: 1,
		ExclusiveZone:         32,
		MarginTop:             4,
		MarginLeft:            -2,
		W:                     1920,
		H:                     30,
	}
	decoded := roundTrip(t, msg)
	if !reflect.DeepEqual(decoded, msg) {
		t.Fatalf("mismatch: %#v vs %#v", decoded, msg)
	}
}

func TestSelectionDataRoundTrip(t *testing.T) {
	msg := SelectionData{Seat: "seat1", Mime: "text/plain", Data: []byte("dropped payload")}
	decoded := roundTrip(t, msg)
	if !reflect.DeepEqual(decoded, msg) {
		t.Fatalf("mismatch: %#v vs %#v", decoded, msg)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	payload, err := WindowClosed{Surface: 3}.encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	payload = append(payload, 0xAA)
	if _, err := Decode(MsgWindowClosed, payload); !errors.Is(err, errExtraBytes) {
		t.Fatalf("expected errExtraBytes, got %v", err)
	}
}

func TestEncodeRejectsOversizedString(t *testing.T) {
	msg := SeatAdded{Seat: strings.Repeat("x", 0x10000)}
	if _, err := msg.encode(); !errors.Is(err, errStringTooLong) {
		t.Fatalf("expected errStringTooLong, got %v", err)
	}
}
