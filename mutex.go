// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"context"
	"time"

	"code.hybscloud.com/lfq"
)

// Mutex is an asynchronous mutual exclusion lock.
//
// Acquire returns a void [Ticket] instead of blocking: the ticket
// completes Succeeded once the caller holds the mutex, or Canceled or
// TimedOut when the bound signal fires first. Waiters are arena slots
// queued by packed {index, version} entries; Unlock hands ownership to the
// first waiter whose completion still succeeds, and waiters that timed out
// or were canceled are skipped precisely because their version no longer
// matches.
//
// capacity bounds the number of concurrent acquisitions (holder plus
// waiters); beyond it Acquire reports [ErrWouldBlock].
type Mutex struct {
	_       pad
	lock    SpinLock
	_       padShort
	locked  bool
	waiters lfq.QueueIndirect
	arena   *Arena[Void]
	scratch []uintptr // compact staging, guarded by lock
}

// NewMutex creates a mutex with the given acquisition capacity, rounded
// up to the next power of 2. Panics if capacity < 1.
func NewMutex(capacity int) *Mutex {
	if capacity < 1 {
		panic("fut: capacity must be >= 1")
	}
	n := roundToPow2(capacity)
	return &Mutex{
		waiters: lfq.New(n).Compact().BuildIndirect(),
		arena:   NewArena[Void](n),
		scratch: make([]uintptr, 0, n),
	}
}

// TryAcquire takes the mutex when it is free, without creating a future.
// TryAcquire barges: it does not queue behind pending waiters.
func (m *Mutex) TryAcquire() bool {
	g := m.lock.Lock()
	ok := !m.locked
	if ok {
		m.locked = true
	}
	g.Unlock()
	return ok
}

// Acquire requests the mutex and returns the acquisition ticket.
//
// The ticket completes Succeeded when the mutex is granted, immediately
// when it was free. Cancellation and timeout follow
// [Source.CreateFuture] semantics: a zero timeout completes the ticket as
// TimedOut without waiting (use TryAcquire for a non-suspending attempt),
// and a canceled ctx or expired timer withdraws the waiter, the skipped
// entry costs nothing more than a version mismatch at handoff.
//
// The caller must consume the ticket exactly once; only a consumed
// Succeeded outcome conveys ownership and obliges a later Unlock.
// Returns [ErrWouldBlock] when the acquisition capacity is exhausted.
func (m *Mutex) Acquire(ctx context.Context, timeout time.Duration) (Ticket[Void], error) {
	t, err := m.arena.CreateFuture(ctx, timeout)
	if err != nil {
		return Ticket[Void]{}, err
	}
	g := m.lock.Lock()
	if !m.locked {
		// Immediate grant. A pre-completed ticket (zero timeout,
		// canceled ctx) loses the race here and ownership stays free.
		if t.TrySetResult(Void{}) {
			m.locked = true
		}
		g.Unlock()
		return t, nil
	}
	entry := packWaiter(t.idx, t.ver)
	if m.waiters.Enqueue(entry) != nil {
		m.compact(g)
		if m.waiters.Enqueue(entry) != nil {
			g.Unlock()
			t.TrySetCanceled()
			t.Result()
			return Ticket[Void]{}, ErrWouldBlock
		}
	}
	g.Unlock()
	return t, nil
}

// Unlock releases the mutex, handing ownership to the first waiter whose
// completion succeeds. Panics when the mutex is not held.
func (m *Mutex) Unlock() {
	for {
		g := m.lock.Lock()
		if !m.locked {
			g.Unlock()
			panic("fut: Unlock of unlocked Mutex")
		}
		enc, err := m.waiters.Dequeue()
		if err != nil {
			m.locked = false
			g.Unlock()
			return
		}
		g.Unlock()

		idx, ver := unpackWaiter(enc)
		w := Ticket[Void]{arena: m.arena, idx: idx, ver: ver}
		// Completion outside the mutex lock: the waiter's continuation
		// may run here and re-enter the mutex.
		if w.TrySetResult(Void{}) {
			return
		}
	}
}

// compact drains the waiter queue and re-enqueues only entries whose
// cycle is still pending, preserving their order. Stale entries accumulate
// when withdrawn waiters' slots are recycled while their old entries still
// sit in the queue; a full queue therefore does not yet mean capacity live
// waiters. The caller must hold the mutex lock.
func (m *Mutex) compact(Guard) {
	m.scratch = m.scratch[:0]
	for {
		enc, err := m.waiters.Dequeue()
		if err != nil {
			break
		}
		m.scratch = append(m.scratch, enc)
	}
	for _, enc := range m.scratch {
		idx, ver := unpackWaiter(enc)
		w := Ticket[Void]{arena: m.arena, idx: idx, ver: ver}
		if st, err := w.Status(); err == nil && st == Pending {
			// Cannot fail: queue ops serialize under the mutex lock
			// and the drain only removed entries.
			if m.waiters.Enqueue(enc) != nil {
				panic("fut: waiter queue rejected refill")
			}
		}
	}
}

// Waiter entries pack {index:31 | version:32} into the compact indirect
// queue's 63-bit value range.
func packWaiter(idx uint32, ver Version) uintptr {
	return uintptr(uint64(idx)<<32 | uint64(ver))
}

func unpackWaiter(enc uintptr) (idx uint32, ver Version) {
	return uint32(uint64(enc) >> 32), Version(uint64(enc))
}
