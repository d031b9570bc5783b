// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/conn.go
// Summary: Compositor connection abstraction for the engine loop.
// Usage: The engine consumes events and issues requests through a Conn;
// StreamConn and SimConn are the two shipped implementations.

package engine

import "github.com/framegrace/waylight/protocol"

// Conn is a connection to a compositor. Implementations translate between
// protocol messages and a concrete transport or backend.
type Conn interface {
	// Events delivers compositor-originated messages. The channel closes
	// when the connection goes away; the engine loop exits cleanly then.
	Events() <-chan protocol.Message

	// Request sends a client request. It must not block on the compositor;
	// implementations buffer or fail fast.
	Request(m protocol.Message) error

	// Close tears the connection down and closes the event channel.
	Close() error
}
