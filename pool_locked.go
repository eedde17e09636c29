// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

// LockedPool is a free list of completion sources guarded by the lock of
// its owning subsystem.
//
// Call sites that already hold a lock around their own state use a
// LockedPool to rent and return sources inside the same critical section,
// avoiding a second synchronization point. Every method takes the owning
// lock's [Guard], so the requirement is visible at the call site and a
// guard for the wrong lock panics.
//
// Compare [Pool] for the lock-free variant serving independently
// synchronized call sites.
type LockedPool[T any] struct {
	lock   *SpinLock
	free   []*Source[T]
	retain int
	closed bool
	opts   Options
}

// NewLockedPool creates a pool guarded by l, retaining up to retain
// sources. Panics if l is nil or retain < 1.
func NewLockedPool[T any](l *SpinLock, retain int) *LockedPool[T] {
	if retain < 1 {
		panic("fut: retain must be >= 1")
	}
	return newLockedPool[T](l, Options{capacity: retain})
}

func newLockedPool[T any](l *SpinLock, opts Options) *LockedPool[T] {
	if l == nil {
		panic("fut: LockedPool requires a lock")
	}
	return &LockedPool[T]{
		lock:   l,
		free:   make([]*Source[T], 0, opts.capacity),
		retain: opts.capacity,
		opts:   opts,
	}
}

// Rent takes an idle source, constructing a fresh one when the free list
// is empty. g must hold the owning lock. Returns ErrDisposed after Close.
func (p *LockedPool[T]) Rent(g Guard) (*Source[T], error) {
	p.check(g)
	if p.closed {
		return nil, ErrDisposed
	}
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return s, nil
	}
	return newSource[T](p.opts), nil
}

// Return resets s and pushes it back, dropping it when the retained bound
// is reached or the pool is closed. g must hold the owning lock; s must be
// consumed or idle, as with [Pool.Return].
func (p *LockedPool[T]) Return(g Guard, s *Source[T]) {
	p.check(g)
	if s == nil {
		panic("fut: Return of nil source")
	}
	s.Reset()
	if p.closed || len(p.free) >= p.retain {
		return
	}
	p.free = append(p.free, s)
}

// Close marks the pool disposed and releases the retained sources.
// g must hold the owning lock.
func (p *LockedPool[T]) Close(g Guard) {
	p.check(g)
	p.closed = true
	clear(p.free)
	p.free = p.free[:0]
}

// Cap returns the maximum retained source count.
func (p *LockedPool[T]) Cap() int {
	return p.retain
}

func (p *LockedPool[T]) check(g Guard) {
	if !g.owns(p.lock) {
		panic("fut: guard does not hold the pool's lock")
	}
}
