package device

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// shared is the reference-counted core behind Ref and Slot. The close
// function runs exactly once, synchronously, on whichever goroutine
// releases the final reference.
type shared[T any] struct {
	refs    atomic.Int64
	value   T
	closeFn func(T)
}

// Ref is one strong reference to a shared value. Refs are not safe for
// concurrent use by multiple goroutines; each goroutine takes its own from
// the Slot. Release is idempotent.
type Ref[T any] struct {
	s        *shared[T]
	released atomic.Bool
}

// Value returns the referenced value.
func (r *Ref[T]) Value() T {
	return r.s.value
}

// Release drops this reference. The final release invokes the value's
// close function on the calling goroutine before returning.
func (r *Ref[T]) Release() {
	if r.released.Swap(true) {
		return
	}
	if r.s.refs.Add(-1) == 0 && r.s.closeFn != nil {
		r.s.closeFn(r.s.value)
	}
}

// Unique reports whether this is the only live reference.
func (r *Ref[T]) Unique() bool {
	return r.s.refs.Load() == 1
}

// WaitSoleOwner spins, yielding the scheduler each iteration, until this
// reference is the only live one. The wait is expected to be short
// (callback goroutines release their references promptly after each
// callback) and has no deadline: giving up early would leave a dangling
// shared backend resource. Must not be called while the current goroutine
// holds another reference to the same value.
func (r *Ref[T]) WaitSoleOwner() {
	for !r.Unique() {
		runtime.Gosched()
	}
}

// Slot is a process-scoped cell holding at most one reference-counted
// value, shared between the control goroutine that installs and clears it
// and the callback goroutines that briefly acquire it. The zero value is
// an empty, usable slot.
//
// The slot itself holds one reference to the installed value. Acquire
// hands out additional references; Clear withdraws the slot's own
// reference and transfers it to the caller, after which no new references
// can be taken.
type Slot[T any] struct {
	mu  sync.Mutex
	cur *shared[T]
}

// Install places value into the slot with the given close function.
// Any previously installed value loses the slot's reference; callers
// wanting its teardown to be synchronous must Clear and release first.
func (s *Slot[T]) Install(value T, closeFn func(T)) {
	sh := &shared[T]{value: value, closeFn: closeFn}
	sh.refs.Store(1)

	s.mu.Lock()
	old := s.cur
	s.cur = sh
	s.mu.Unlock()

	if old != nil {
		prev := &Ref[T]{s: old}
		prev.Release()
	}
}

// Acquire returns a new strong reference to the installed value, or nil
// when the slot is empty.
func (s *Slot[T]) Acquire() *Ref[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return nil
	}
	s.cur.refs.Add(1)
	return &Ref[T]{s: s.cur}
}

// Clear empties the slot and returns its own reference to the previously
// installed value, or nil when the slot was already empty. Once Clear
// returns, no further Acquire can reach the old value.
func (s *Slot[T]) Clear() *Ref[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return nil
	}
	ref := &Ref[T]{s: s.cur}
	s.cur = nil
	return ref
}

// Empty reports whether the slot currently holds no value.
func (s *Slot[T]) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur == nil
}
