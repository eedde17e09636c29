// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"context"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfq"
	"code.hybscloud.com/spin"
)

// Arena is a fixed table of completion-source slots whose custody returns
// automatically when a ticket is consumed.
//
// CreateFuture rents a slot index from the free list and activates the
// slot; the returned [Ticket] addresses the cycle by {index, version}.
// Consuming the ticket's result resets the slot and pushes its index back,
// so call sites need no explicit Return and the slot cannot leak through a
// forgotten hand-back. A second consumption attempt through a copied
// ticket finds a stale version and leaves the free list untouched.
//
// The free list is a compact indirect queue of slot indices; rent and
// return are its non-blocking dequeue and enqueue. When every slot is
// rented, CreateFuture reports [ErrWouldBlock] backpressure rather than
// allocating.
//
// Memory: capacity slots (one embedded source each) plus 8 bytes of free
// list per slot.
type Arena[T any] struct {
	slots  []Source[T]
	free   lfq.QueueIndirect
	closed atomix.Bool
}

// NewArena creates an arena with the given slot count, rounded up to the
// next power of 2. Slots use synchronous continuation placement; use
// [BuildArena] to configure placement. Panics if capacity < 1.
func NewArena[T any](capacity int) *Arena[T] {
	if capacity < 1 {
		panic("fut: capacity must be >= 1")
	}
	return newArena[T](Options{capacity: capacity})
}

func newArena[T any](opts Options) *Arena[T] {
	n := roundToPow2(opts.capacity)
	a := &Arena[T]{
		slots: make([]Source[T], n),
		free:  lfq.New(n).Compact().BuildIndirect(),
	}
	for i := range a.slots {
		initSource(&a.slots[i], opts)
		if err := a.free.Enqueue(uintptr(i)); err != nil {
			panic("fut: arena free list rejected initial fill")
		}
	}
	return a
}

// CreateFuture rents a slot and activates its next cycle, with the same
// binding semantics as [Source.CreateFuture].
//
// Returns [ErrWouldBlock] when every slot is rented and [ErrDisposed]
// after Close. The returned ticket is the only handle on the cycle; both
// completion and consumption go through it.
func (a *Arena[T]) CreateFuture(ctx context.Context, timeout time.Duration) (Ticket[T], error) {
	if a.closed.Load() {
		return Ticket[T]{}, ErrDisposed
	}
	idx, err := a.free.Dequeue()
	if err != nil {
		return Ticket[T]{}, err
	}
	s := &a.slots[idx]
	f := s.CreateFuture(ctx, timeout)
	return Ticket[T]{arena: a, idx: uint32(idx), ver: f.ver}, nil
}

// Close marks the arena disposed; subsequent CreateFuture fails with
// ErrDisposed. Outstanding tickets remain valid until consumed.
func (a *Arena[T]) Close() {
	a.closed.Store(true)
}

// Cap returns the slot count.
func (a *Arena[T]) Cap() int {
	return len(a.slots)
}

// release pushes a recycled slot index back to the free list. The enqueue
// can fail only transiently (a concurrent dequeuer between index reads),
// never durably: each index is in flight at most once.
func (a *Arena[T]) release(idx uintptr) {
	sw := spin.Wait{}
	for a.free.Enqueue(idx) != nil {
		sw.Once()
	}
}

// Ticket addresses one activation cycle of an arena slot by
// {index, version}.
//
// The producer side completes through TrySetResult, TrySetError and
// TrySetCanceled; the consumer side observes through Status, OnCompleted
// and Result. Tickets are small values and are passed by copy; all copies
// go stale together once the cycle is consumed. The zero Ticket is not
// bound to any arena.
type Ticket[T any] struct {
	arena *Arena[T]
	idx   uint32
	ver   Version
}

// Version returns the cycle's version token.
func (t Ticket[T]) Version() Version {
	return t.ver
}

// TrySetResult attempts to complete the cycle with value,
// see [Source.TrySetResult].
func (t Ticket[T]) TrySetResult(value T) bool {
	return t.src().TrySetResult(t.ver, value)
}

// TrySetError attempts to complete the cycle with a fault,
// see [Source.TrySetError].
func (t Ticket[T]) TrySetError(err error) bool {
	return t.src().TrySetError(t.ver, err)
}

// TrySetCanceled attempts to complete the cycle as canceled,
// see [Source.TrySetCanceled].
func (t Ticket[T]) TrySetCanceled() bool {
	return t.src().TrySetCanceled(t.ver)
}

// Status is a non-consuming peek, see [Source.GetStatus].
func (t Ticket[T]) Status() (Status, error) {
	return t.src().GetStatus(t.ver)
}

// OnCompleted registers the cycle's continuation,
// see [Source.OnCompleted].
func (t Ticket[T]) OnCompleted(fn Continuation, state any, flags Flags) error {
	return t.src().OnCompleted(t.ver, fn, state, flags)
}

// Result consumes the completed cycle and returns the slot to the arena.
//
// Semantics match [Source.GetResult]; additionally, on consumption (any
// outcome) the slot is reset and its index pushed back to the free list.
// When Result reports ErrStaleToken or ErrInvalidState nothing was
// consumed and the slot's custody is unchanged.
func (t Ticket[T]) Result() (T, error) {
	s := t.src()
	value, err, consumed := s.consume(t.ver)
	if !consumed {
		return value, err
	}
	s.Reset()
	t.arena.release(uintptr(t.idx))
	return value, err
}

func (t Ticket[T]) src() *Source[T] {
	return &t.arena.slots[t.idx]
}
