// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/proxy.go
// Summary: Backpressured action queue between Tasks and the event loop.
// Usage: Tasks submit from any goroutine; the loop drains Actions and frees
// a slot per dispatched action.

package engine

import (
	"sync"

	"github.com/framegrace/waylight/task"
)

// DefaultHighWater is the number of actions allowed in flight before
// submissions start queuing.
const DefaultHighWater = 100

// Proxy hands actions from Task goroutines to the event loop. Submit never
// blocks: once the high-water mark of unprocessed actions is reached, the
// overflow waits in an unbounded queue until the loop frees slots. Per-caller
// submission order is preserved.
type Proxy struct {
	mu       sync.Mutex
	queue    []task.Action
	inFlight int
	max      int
	out      chan task.Action
}

// NewProxy creates a proxy with the given high-water mark. Non-positive
// values fall back to DefaultHighWater.
func NewProxy(highWater int) *Proxy {
	if highWater <= 0 {
		highWater = DefaultHighWater
	}
	return &Proxy{
		max: highWater,
		out: make(chan task.Action, highWater),
	}
}

// Submit enqueues one action. Safe for concurrent use.
func (p *Proxy) Submit(a task.Action) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// inFlight never exceeds the channel capacity, so this send cannot
	// block while the lock is held.
	if len(p.queue) == 0 && p.inFlight < p.max {
		p.inFlight++
		p.out <- a
		return
	}
	p.queue = append(p.queue, a)
}

// Actions returns the channel the event loop drains.
func (p *Proxy) Actions() <-chan task.Action {
	return p.out
}

// FreeSlots returns n processed slots to the proxy and promotes queued
// actions into the freed capacity, oldest first.
func (p *Proxy) FreeSlots(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight -= n
	if p.inFlight < 0 {
		p.inFlight = 0
	}
	for len(p.queue) > 0 && p.inFlight < p.max {
		a := p.queue[0]
		p.queue = p.queue[1:]
		p.inFlight++
		p.out <- a
	}
}

// Queued returns the number of actions waiting for a free slot.
func (p *Proxy) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
