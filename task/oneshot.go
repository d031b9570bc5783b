// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: task/oneshot.go
// Summary: Single-use completion channels for one-shot platform queries.

package task

import (
	"log"
	"sync/atomic"
)

const (
	oneshotPending = iota
	oneshotResolved
	oneshotDropped
)

// Oneshot carries at most one value from the dispatcher back to a waiting
// Task. Resolving twice is a programming error; the second attempt logs and
// becomes a no-op rather than panicking or delivering twice.
type Oneshot[T any] struct {
	state atomic.Int32
	ch    chan T
}

// NewOneshot creates a pending one-shot channel.
func NewOneshot[T any]() *Oneshot[T] {
	return &Oneshot[T]{ch: make(chan T, 1)}
}

// Resolve delivers the value. Returns false if the channel was already
// resolved or dropped.
func (o *Oneshot[T]) Resolve(v T) bool {
	if !o.state.CompareAndSwap(oneshotPending, oneshotResolved) {
		log.Printf("Oneshot: ignoring second resolution attempt")
		return false
	}
	o.ch <- v
	close(o.ch)
	return true
}

// Drop abandons the channel without a value. The waiting Task observes
// absence, which is a legitimate outcome for queries whose target never
// appeared. Dropping after resolution is a no-op.
func (o *Oneshot[T]) Drop() {
	if !o.state.CompareAndSwap(oneshotPending, oneshotDropped) {
		return
	}
	close(o.ch)
}

// Await blocks until the channel resolves or is dropped. The second return
// is false when no value was ever delivered.
func (o *Oneshot[T]) Await() (T, bool) {
	v, ok := <-o.ch
	return v, ok
}
