// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/conn_stream.go
// Summary: Conn implementation over a framed byte stream.
// Usage: Wraps any io.ReadWriteCloser (unix socket, TCP, pipe pair) speaking
// the waylight wire protocol. Payload transfers travel in-band; file
// descriptors never cross this transport.

package engine

import (
	"errors"
	"io"
	"log"
	"sync"

	"github.com/framegrace/waylight/protocol"
)

// StreamConn speaks the framed wire protocol over a byte stream.
type StreamConn struct {
	rw     io.ReadWriteCloser
	events chan protocol.Message

	writeMu sync.Mutex
	serial  uint32
	closed  bool
}

// NewStreamConn wraps the stream and starts the read loop.
func NewStreamConn(rw io.ReadWriteCloser) *StreamConn {
	c := &StreamConn{
		rw:     rw,
		events: make(chan protocol.Message, 64),
	}
	go c.readLoop()
	return c
}

func (c *StreamConn) readLoop() {
	defer close(c.events)
	for {
		_, m, err := protocol.ReadMessage(c.rw)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				log.Printf("StreamConn: read failed: %v", err)
			}
			return
		}
		c.events <- m
	}
}

// Events implements Conn.
func (c *StreamConn) Events() <-chan protocol.Message {
	return c.events
}

// Request implements Conn. Writes are serialized; serials increase per
// request.
func (c *StreamConn) Request(m protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return io.ErrClosedPipe
	}
	c.serial++
	return protocol.WriteMessage(c.rw, c.serial, m)
}

// Close implements Conn.
func (c *StreamConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rw.Close()
}
