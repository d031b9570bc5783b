// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: seat/transfer.go
// Summary: Pipe-based payload transfer for drag-and-drop and selections.
// Usage: Runs on worker goroutines; results come back over channels so the
// event loop never blocks on a slow peer.

package seat

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// ErrTransferCancelled reports a payload transfer that could not complete,
// typically because the peer closed its end of the pipe. It is a normal
// drag outcome, not a fatal error.
var ErrTransferCancelled = errors.New("seat: transfer cancelled")

// Pipe returns a connected read/write pair for payload transfer. Both ends
// are close-on-exec.
func Pipe() (r, w *os.File, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, nil, err
	}
	return os.NewFile(uintptr(fds[0]), "dnd-read"), os.NewFile(uintptr(fds[1]), "dnd-write"), nil
}

// WritePayload writes data to w and closes it. A broken pipe surfaces as
// ErrTransferCancelled.
func WritePayload(w io.WriteCloser, data []byte) error {
	_, err := w.Write(data)
	cerr := w.Close()
	if err == nil {
		err = cerr
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EPIPE) || errors.Is(err, io.ErrClosedPipe) {
		return ErrTransferCancelled
	}
	return err
}

// ReadPayload drains r to EOF and closes it. Read errors surface as
// ErrTransferCancelled; partial data is discarded since a truncated drop
// payload is worse than none.
func ReadPayload(r io.ReadCloser) ([]byte, error) {
	data, err := io.ReadAll(r)
	cerr := r.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		return nil, ErrTransferCancelled
	}
	return data, nil
}
