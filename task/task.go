// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: task/task.go
// Summary: Lazy, composable units of asynchronous effect.
// Usage: Application update code returns Tasks; the engine runs them against
// its backpressured proxy. Constructing a Task performs no work.

package task

import (
	"time"

	"github.com/framegrace/waylight/surface"
)

// Scheduler accepts the Actions a running Task emits. Submissions must
// never block; the engine's proxy satisfies this.
type Scheduler interface {
	Submit(a Action)
}

// Task is a lazily-evaluated unit of asynchronous work producing zero or
// more values. Nothing happens until Run; continuations that wait on a
// one-shot run on their own goroutine and re-submit through the same
// scheduler, so the event loop is never blocked by a suspended Task.
type Task struct {
	run func(s Scheduler)
}

// Run starts the Task against the given scheduler.
func (t Task) Run(s Scheduler) {
	if t.run == nil {
		return
	}
	t.run(s)
}

// None is the empty Task.
func None() Task {
	return Task{}
}

// Effect wraps raw Actions into a Task, submitted in order.
func Effect(actions ...Action) Task {
	if len(actions) == 0 {
		return Task{}
	}
	return Task{run: func(s Scheduler) {
		for _, a := range actions {
			s.Submit(a)
		}
	}}
}

// Done produces a single value and no side effects.
func Done(v Value) Task {
	return Effect(Output{Value: v})
}

// ExitTask ends the event loop.
func ExitTask(code int) Task {
	return Effect(Exit{Code: code})
}

// Map transforms every value the Task produces without re-running its side
// effects.
func (t Task) Map(f func(Value) Value) Task {
	if t.run == nil {
		return t
	}
	return Task{run: func(s Scheduler) {
		t.run(mapScheduler{base: s, f: f})
	}}
}

// Then runs the continuation's effect once a value from this Task is
// available. Values flow into f; the continuation's own outputs pass
// through unchanged.
func (t Task) Then(f func(Value) Task) Task {
	if t.run == nil {
		return t
	}
	return Task{run: func(s Scheduler) {
		t.run(chainScheduler{base: s, f: f})
	}}
}

// Discard drops every value the Task produces, keeping only its effects.
func (t Task) Discard() Task {
	if t.run == nil {
		return t
	}
	return Task{run: func(s Scheduler) {
		t.run(discardScheduler{base: s})
	}}
}

// Batch runs the Tasks with no ordering guarantee between them and no
// output; they are side-effect only.
func Batch(tasks ...Task) Task {
	return Task{run: func(s Scheduler) {
		for _, t := range tasks {
			t.Discard().Run(s)
		}
	}}
}

type mapScheduler struct {
	base Scheduler
	f    func(Value) Value
}

func (m mapScheduler) Submit(a Action) {
	if out, ok := a.(Output); ok {
		m.base.Submit(Output{Value: m.f(out.Value)})
		return
	}
	m.base.Submit(a)
}

type chainScheduler struct {
	base Scheduler
	f    func(Value) Task
}

func (c chainScheduler) Submit(a Action) {
	if out, ok := a.(Output); ok {
		c.f(out.Value).Run(c.base)
		return
	}
	c.base.Submit(a)
}

type discardScheduler struct {
	base Scheduler
}

func (d discardScheduler) Submit(a Action) {
	if _, ok := a.(Output); ok {
		return
	}
	d.base.Submit(a)
}

// Fetch submits the action produced by build and emits the reply as the
// Task's value once it resolves. A dropped reply produces nothing.
func Fetch[T any](build func(*Oneshot[T]) Action) Task {
	return Task{run: func(s Scheduler) {
		reply := NewOneshot[T]()
		s.Submit(build(reply))
		go func() {
			if v, ok := reply.Await(); ok {
				s.Submit(Output{Value: v})
			}
		}()
	}}
}

// Poll retries a Fetch-style query at a fixed interval until it resolves or
// attempts run out. Queries racing the compositor (asking about an output
// before it was advertised) surface as dropped replies, so absence here
// means "not yet" rather than failure.
func Poll[T any](build func(*Oneshot[T]) Action, interval time.Duration, attempts int) Task {
	return Task{run: func(s Scheduler) {
		go func() {
			for i := 0; i < attempts; i++ {
				reply := NewOneshot[T]()
				s.Submit(build(reply))
				if v, ok := reply.Await(); ok {
					s.Submit(Output{Value: v})
					return
				}
				if i < attempts-1 {
					time.Sleep(interval)
				}
			}
		}()
	}}
}

// OpenWindowTask opens a window and produces its surface ID.
func OpenWindowTask(settings WindowSettings) Task {
	return Fetch(func(reply *Oneshot[surface.ID]) Action {
		return OpenWindow{Settings: settings, Reply: reply}
	})
}

// OpenLayerSurfaceTask opens a layer surface and produces its surface ID.
func OpenLayerSurfaceTask(settings LayerSettings) Task {
	return Fetch(func(reply *Oneshot[surface.ID]) Action {
		return OpenLayerSurface{Settings: settings, Reply: reply}
	})
}

// OpenPopupTask opens a popup and produces its surface ID.
func OpenPopupTask(settings PopupSettings) Task {
	return Fetch(func(reply *Oneshot[surface.ID]) Action {
		return OpenPopup{Settings: settings, Reply: reply}
	})
}

// FindOutput polls for an output matching the predicate, tolerating outputs
// that have not been advertised yet.
func FindOutput(match func(OutputInfo) bool, interval time.Duration, attempts int) Task {
	return Poll(func(reply *Oneshot[OutputInfo]) Action {
		return FetchOutputInfo{Match: match, Reply: reply}
	}, interval, attempts)
}
