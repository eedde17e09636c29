// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"context"
	"time"
)

// Semaphore is a weighted asynchronous semaphore.
//
// Acquire returns a [Permit] instead of blocking: the permit completes
// Succeeded once the requested weight is granted, in FIFO order, or
// Canceled or TimedOut when the bound signal fires first. A grant that
// loses the completion race against cancellation refunds its weight, so
// withdrawn waiters never consume permits.
//
// Waiter sources are rented from a [LockedPool] guarded by the
// semaphore's own lock and return to it when the permit is consumed;
// capacity bounds that retention, not the waiter count.
type Semaphore struct {
	_       pad
	lock    SpinLock
	_       padShort
	permits int64
	waiters []semWaiter
	pool    *LockedPool[Void]
}

type semWaiter struct {
	src *Source[Void]
	ver Version
	n   int64
}

// NewSemaphore creates a semaphore holding permits initial permits and
// retaining up to capacity idle waiter sources.
// Panics if permits < 0 or capacity < 1.
func NewSemaphore(permits int64, capacity int) *Semaphore {
	if permits < 0 {
		panic("fut: negative initial permits")
	}
	s := &Semaphore{permits: permits}
	s.pool = NewLockedPool[Void](&s.lock, capacity)
	return s
}

// TryAcquire takes n permits when they are immediately available and no
// waiter is queued, without creating a future.
// Panics if n < 1.
func (s *Semaphore) TryAcquire(n int64) bool {
	if n < 1 {
		panic("fut: acquire count must be >= 1")
	}
	g := s.lock.Lock()
	ok := len(s.waiters) == 0 && s.permits >= n
	if ok {
		s.permits -= n
	}
	g.Unlock()
	return ok
}

// Acquire requests n permits and returns the acquisition permit handle.
//
// The permit completes Succeeded when the weight is granted, immediately
// when available with no queued waiters. Cancellation and timeout follow
// [Source.CreateFuture] semantics. The caller must consume the permit
// exactly once; only a consumed Succeeded outcome conveys the permits and
// obliges a later Release(n).
// Panics if n < 1.
func (s *Semaphore) Acquire(ctx context.Context, timeout time.Duration, n int64) (Permit, error) {
	if n < 1 {
		panic("fut: acquire count must be >= 1")
	}
	g := s.lock.Lock()
	src, err := s.pool.Rent(g)
	if err != nil {
		g.Unlock()
		return Permit{}, err
	}
	f := src.CreateFuture(ctx, timeout)
	p := Permit{sem: s, src: src, ver: f.ver}
	if len(s.waiters) == 0 && s.permits >= n {
		// Immediate grant. A pre-completed future (zero timeout,
		// canceled ctx) loses the race and takes no permits.
		if src.TrySetResult(f.ver, Void{}) {
			s.permits -= n
		}
		g.Unlock()
		return p, nil
	}
	s.waiters = append(s.waiters, semWaiter{src: src, ver: f.ver, n: n})
	g.Unlock()

	// Withdrawn waiters ahead in the queue may be the only thing between
	// this waiter and free permits; sweep them the way Release does.
	s.grantLoop(0)
	return p, nil
}

// Release returns n permits and grants as many queued waiters as the new
// balance covers, in order. Panics if n < 1.
func (s *Semaphore) Release(n int64) {
	if n < 1 {
		panic("fut: release count must be >= 1")
	}
	s.grantLoop(n)
}

// Permits returns the currently available permit balance.
func (s *Semaphore) Permits() int64 {
	g := s.lock.Lock()
	n := s.permits
	g.Unlock()
	return n
}

// grantLoop adds refund to the balance, then completes grantable waiters
// until the front demand no longer fits. Completion runs outside the lock;
// a grant that loses to cancellation comes back as a refund on the next
// iteration, and the freed weight is re-scanned.
func (s *Semaphore) grantLoop(refund int64) {
	add := refund
	for {
		g := s.lock.Lock()
		s.permits += add
		add = 0
		w, ok := s.nextGrant(g)
		g.Unlock()
		if !ok {
			return
		}
		if !w.src.TrySetResult(w.ver, Void{}) {
			add = w.n
		}
	}
}

// nextGrant pops the first pending waiter whose demand fits, deducting
// its demand. Waiters that are no longer pending are dropped on the way.
// The caller must hold the semaphore lock.
func (s *Semaphore) nextGrant(Guard) (semWaiter, bool) {
	for len(s.waiters) > 0 {
		w := s.waiters[0]
		if st, err := w.src.GetStatus(w.ver); err != nil || st != Pending {
			s.dropFront()
			continue
		}
		if s.permits < w.n {
			return semWaiter{}, false
		}
		s.permits -= w.n
		s.dropFront()
		return w, true
	}
	return semWaiter{}, false
}

func (s *Semaphore) dropFront() {
	s.waiters[0] = semWaiter{}
	s.waiters = s.waiters[1:]
}

// Permit is the handle of one semaphore acquisition, a (source, version)
// pair plus the pool custody that returns the source once consumed.
//
// The zero Permit is not bound to any semaphore.
type Permit struct {
	sem *Semaphore
	src *Source[Void]
	ver Version
}

// Version returns the acquisition cycle's version token.
func (p Permit) Version() Version {
	return p.ver
}

// Status is a non-consuming peek, see [Source.GetStatus].
func (p Permit) Status() (Status, error) {
	return p.src.GetStatus(p.ver)
}

// OnCompleted registers the acquisition's continuation,
// see [Source.OnCompleted].
func (p Permit) OnCompleted(fn Continuation, state any, flags Flags) error {
	return p.src.OnCompleted(p.ver, fn, state, flags)
}

// Result consumes the completed acquisition and returns the waiter source
// to the semaphore's pool. A nil result means the permits are held and a
// Release is owed; [ErrCanceled] and [ErrTimeout] mean the acquisition
// was withdrawn and no permits are held.
func (p Permit) Result() error {
	_, err, consumed := p.src.consume(p.ver)
	if consumed {
		g := p.sem.lock.Lock()
		p.sem.pool.Return(g, p.src)
		g.Unlock()
	}
	return err
}
