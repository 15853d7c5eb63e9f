// Package sched implements a cooperative, single-threaded scheduler for
// suspendable routines. A routine can yield control until the next tick or
// run a nested sub-routine to completion and obtain its result. At most one
// routine advances at a time: this is cooperative multitasking, not
// concurrent execution.
//
// All scheduler methods must be called from the same goroutine, usually the
// host application's main loop. Routine bodies are generator functions; they
// execute in lockstep with the scheduler and never run in parallel with it.
package sched

import (
	"context"
	"errors"
	"iter"
	"slices"
	"time"
)

// errStopped unwinds a routine body when the routine is stopped from the
// outside. It is recovered before leaving the generator.
var errStopped = errors.New("sched: routine stopped")

// Routine is a suspendable computation managed by a Scheduler. A routine is
// in exactly one of three states: running at top level, nested awaiting its
// sub-routine, or finished and removed.
type Routine struct {
	next func() (any, bool)
	stop func()

	// last is the routine's current yielded value. When the routine
	// finishes it becomes the routine's result.
	last any
	done bool
}

// Done returns true once the routine has finished or was stopped.
func (r *Routine) Done() bool { return r.done }

// subcall is the yield marker produced by Co.Call.
type subcall struct {
	child *Routine
}

// Scheduler owns the run list, the sub-routine parent map and the pending
// result slots. Each instance is independent; there is no process-wide
// state.
type Scheduler struct {
	running []*Routine
	parents map[*Routine]*Routine // sub-routine -> suspended parent
	results map[*Routine]any      // parent -> finished sub-routine result
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		parents: map[*Routine]*Routine{},
		results: map[*Routine]any{},
	}
}

// Go starts a new top-level routine. The routine does not advance until the
// next Tick.
func (s *Scheduler) Go(body func(co *Co)) *Routine {
	r := s.newRoutine(body)
	s.running = append(s.running, r)
	return r
}

func (s *Scheduler) newRoutine(body func(co *Co)) *Routine {
	r := &Routine{}
	seq := func(yield func(any) bool) {
		defer func() {
			if v := recover(); v != nil && v != errStopped { //nolint:errorlint
				panic(v)
			}
		}()
		body(&Co{sched: s, r: r, yield: yield})
	}
	r.next, r.stop = iter.Pull(seq)
	return r
}

// Tick advances every running routine by one step and returns the number of
// routines still alive (running or suspended on a sub-routine).
func (s *Scheduler) Tick() int {
	// Iterate from the end: advancing a routine may append new routines to
	// the run set, and those must not advance until the next tick.
	for i := len(s.running) - 1; i >= 0; i-- {
		if i >= len(s.running) {
			continue
		}
		s.step(s.running[i], i)
	}

	return len(s.running) + len(s.parents)
}

func (s *Scheduler) step(r *Routine, idx int) {
	v, more := r.next()
	if !more {
		s.finish(r, idx)
		return
	}

	if sc, ok := v.(subcall); ok {
		// The parent suspends and the sub-routine takes its place in the
		// run set.
		s.parents[sc.child] = r
		s.running[idx] = sc.child
		return
	}

	r.last = v
}

func (s *Scheduler) finish(r *Routine, idx int) {
	r.done = true
	r.stop()
	s.running = slices.Delete(s.running, idx, idx+1)

	parent, nested := s.parents[r]
	if !nested {
		return
	}

	// Hand the sub-routine's last value to the parent and re-admit it. The
	// result slot is consumed by the parent's next Co.Call return.
	delete(s.parents, r)
	s.results[parent] = r.last
	s.running = append(s.running, parent)
}

// takeResult consumes a finished sub-routine's result. It can only succeed
// once, for the direct parent, in the window between the sub-routine's
// completion and the parent's next suspension.
func (s *Scheduler) takeResult(parent *Routine) any {
	v := s.results[parent]
	delete(s.results, parent)
	return v
}

// Idle returns true when no routines are alive.
func (s *Scheduler) Idle() bool {
	return len(s.running) == 0 && len(s.parents) == 0
}

// Stop cancels a top-level routine, unwinding whatever sub-routine chain it
// is currently suspended on. In-flight work awaited by the routine keeps its
// own cancellation signal (usually a context) and must be canceled by the
// caller as well.
func (s *Scheduler) Stop(r *Routine) {
	if r.done {
		return
	}

	// Descend to the active leaf of the chain.
	leaf := r
	for {
		child, ok := s.childOf(leaf)
		if !ok {
			break
		}
		leaf = child
	}

	if i := slices.Index(s.running, leaf); i >= 0 {
		s.running = slices.Delete(s.running, i, i+1)
	}

	// Unwind leaf-first so parents never resume.
	for cur := leaf; cur != nil; {
		cur.done = true
		cur.stop()
		delete(s.results, cur)

		if cur == r {
			break
		}
		parent := s.parents[cur]
		delete(s.parents, cur)
		cur = parent
	}
}

// StopAll cancels every routine.
func (s *Scheduler) StopAll() {
	for len(s.running) > 0 {
		s.Stop(s.rootOf(s.running[0]))
	}
}

func (s *Scheduler) childOf(parent *Routine) (*Routine, bool) {
	for child, p := range s.parents {
		if p == parent {
			return child, true
		}
	}
	return nil, false
}

func (s *Scheduler) rootOf(r *Routine) *Routine {
	for {
		parent, ok := s.parents[r]
		if !ok {
			return r
		}
		r = parent
	}
}

// Run ticks the scheduler until every routine has finished or the context is
// canceled, sleeping tick between iterations. On cancellation all remaining
// routines are stopped.
func (s *Scheduler) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if s.Tick() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			s.StopAll()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Co is the handle a routine body uses to suspend itself.
type Co struct {
	sched *Scheduler
	r     *Routine
	yield func(any) bool
}

// Yield suspends the routine until the next tick. The value becomes the
// routine's current value; the last one yielded before the body returns is
// the routine's result.
func (co *Co) Yield(v any) {
	if !co.yield(v) {
		panic(errStopped)
	}
}

// Call runs body as a sub-routine: this routine suspends, the sub-routine
// runs to completion in its place, and its result (the last value it
// yielded) is returned here. Results and errors of a sub-routine are visible
// only to its direct parent.
func (co *Co) Call(body func(co *Co)) any {
	child := co.sched.newRoutine(body)
	co.Yield(subcall{child: child})
	return co.sched.takeResult(co.r)
}

// Await runs fn on its own goroutine and suspends the routine until it
// returns. It bridges the cooperative scheduler with ordinary blocking
// functions such as process executions; cancellation must flow through
// whatever signal fn observes (usually a context captured by the closure).
func Await[T any](co *Co, fn func() (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}

	ch := make(chan outcome, 1)
	go func() {
		v, err := fn()
		ch <- outcome{v: v, err: err}
	}()

	for {
		select {
		case res := <-ch:
			return res.v, res.err
		default:
			co.Yield(nil)
		}
	}
}
