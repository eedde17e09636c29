// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// poolIdxMask extracts the index+1 half of the free-list head word.
const poolIdxMask uint64 = 1<<32 - 1

// poolRented marks a node's link while the node is outside the free list.
// Return validates the mark, so pushing a node that is already idle panics
// instead of corrupting the list.
const poolRented = ^uint64(0)

// Pool is a lock-free free list of completion sources.
//
// Rent pops an idle source or constructs a fresh one; Return resets the
// source and pushes it back. The pool adopts up to its retained capacity
// of distinct sources into an arena it owns; returns beyond that bound are
// dropped for collection. In the steady state every rent/return cycle
// reuses an adopted source without allocation.
//
// The free list is a singly linked stack over arena indices: the head word
// packs {tag:32 | index+1:32} and each node links to the next by index, so
// a stale head read is defeated by the tag and node ownership stays with
// the pool's arena rather than forming reference cycles. Push and pop are
// single-CAS operations with adaptive spin backoff.
//
// Memory: one pointer per retained slot plus the sources themselves.
type Pool[T any] struct {
	_      pad
	head   atomix.Uint64 // Free-list head: packed {tag | index+1}
	_      pad
	count  atomix.Uint64 // Adopted node count
	_      pad
	closed atomix.Bool
	_      pad
	nodes  []*Source[T]
	retain uint64
	opts   Options
}

// NewPool creates a lock-free pool retaining up to retain sources.
// Sources constructed on a pool miss use synchronous continuation
// placement; use [BuildPool] to configure placement.
// Panics if retain < 1.
func NewPool[T any](retain int) *Pool[T] {
	if retain < 1 {
		panic("fut: retain must be >= 1")
	}
	return newPool[T](Options{capacity: retain})
}

func newPool[T any](opts Options) *Pool[T] {
	if opts.capacity >= 1<<31 {
		panic("fut: capacity must fit in 31 bits")
	}
	return &Pool[T]{
		nodes:  make([]*Source[T], opts.capacity),
		retain: uint64(opts.capacity),
		opts:   opts,
	}
}

// Rent takes an idle source from the pool, constructing a fresh one when
// the free list is empty. The source is idle and ready for CreateFuture.
// Returns ErrDisposed after Close.
func (p *Pool[T]) Rent() (*Source[T], error) {
	if p.closed.Load() {
		return nil, ErrDisposed
	}
	if s := p.pop(); s != nil {
		return s, nil
	}
	return newSource[T](p.opts), nil
}

// Return resets s and pushes it back to the free list.
//
// s must have been rented from this pool (or constructed by it on a pool
// miss) and must be consumed or idle: Return resets the source, and Reset
// panics on a pending or unconsumed cycle. Returning a source to a pool
// that did not issue it panics. After Close, returned sources are dropped
// for collection.
func (p *Pool[T]) Return(s *Source[T]) {
	if s == nil {
		panic("fut: Return of nil source")
	}
	s.Reset()
	if p.closed.Load() {
		return
	}
	if s.pslot >= 0 {
		if uint64(s.pslot) >= p.retain || p.nodes[s.pslot] != s {
			panic("fut: Return of a source rented from a different pool")
		}
		p.push(s)
		return
	}
	if p.adopt(s) {
		p.push(s)
	}
}

// Close marks the pool disposed. Subsequent Rent fails with ErrDisposed
// and subsequent Return drops the source; idle sources are collected with
// the pool.
func (p *Pool[T]) Close() {
	p.closed.Store(true)
}

// Cap returns the maximum retained source count.
func (p *Pool[T]) Cap() int {
	return int(p.retain)
}

func (p *Pool[T]) pop() *Source[T] {
	sw := spin.Wait{}
	for {
		h := p.head.LoadAcquire()
		enc := h & poolIdxMask
		if enc == 0 {
			return nil
		}
		s := p.nodes[enc-1]
		next := s.pnext.LoadAcquire()
		tag := (h >> 32) + 1
		if p.head.CompareAndSwapAcqRel(h, tag<<32|next) {
			s.pnext.StoreRelaxed(poolRented)
			return s
		}
		sw.Once()
	}
}

func (p *Pool[T]) push(s *Source[T]) {
	if s.pnext.LoadRelaxed() != poolRented {
		panic("fut: Return of a source already idle in the pool")
	}
	idx := uint64(s.pslot)
	sw := spin.Wait{}
	for {
		h := p.head.LoadAcquire()
		s.pnext.StoreRelaxed(h & poolIdxMask)
		tag := (h >> 32) + 1
		if p.head.CompareAndSwapAcqRel(h, tag<<32|(idx+1)) {
			return
		}
		sw.Once()
	}
}

// adopt claims an arena slot for a fresh source. Fails once the retained
// capacity is reached; the caller drops the source.
func (p *Pool[T]) adopt(s *Source[T]) bool {
	sw := spin.Wait{}
	for {
		n := p.count.LoadAcquire()
		if n >= p.retain {
			return false
		}
		if p.count.CompareAndSwapAcqRel(n, n+1) {
			p.nodes[n] = s
			s.pslot = int32(n)
			s.pnext.StoreRelaxed(poolRented)
			return true
		}
		sw.Once()
	}
}
