// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: seat/transfer_test.go
// Summary: Exercises pipe payload transfer, including peer failure.

package seat

import (
	"bytes"
	"errors"
	"testing"
)

func TestPipeRoundTrip(t *testing.T) {
	r, w, err := Pipe()
	if err != nil {
		t.Fatalf("pipe failed: %v", err)
	}

	payload := bytes.Repeat([]byte("drag data "), 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- WritePayload(w, payload)
	}()

	got, err := ReadPayload(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %d vs %d bytes", len(got), len(payload))
	}
	if err := <-errCh; err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestReadPayloadClosedWriterIsEOF(t *testing.T) {
	r, w, err := Pipe()
	if err != nil {
		t.Fatalf("pipe failed: %v", err)
	}
	w.Close()

	got, err := ReadPayload(r)
	if err != nil {
		t.Fatalf("empty transfer should succeed, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no data, got %d bytes", len(got))
	}
}

func TestReadPayloadAfterCloseIsCancelled(t *testing.T) {
	r, _, err := Pipe()
	if err != nil {
		t.Fatalf("pipe failed: %v", err)
	}
	r.Close()

	if _, err := ReadPayload(r); !errors.Is(err, ErrTransferCancelled) {
		t.Fatalf("expected ErrTransferCancelled, got %v", err)
	}
}
