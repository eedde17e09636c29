// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fut provides reusable, poolable completion-source primitives.
//
// A [Source] is a thread-safe single-assignment future that one goroutine
// activates, another completes (normally, by cancellation, or by timeout)
// and a consumer consumes exactly once, after which the source is reset
// and reused without reallocation. Reuse cycles are distinguished by
// [Version] tokens, so completions and consumptions that outlive their
// cycle are rejected instead of corrupting the next one.
//
// The package builds higher-level constructs on the same primitive:
// lock-free and lock-guarded pools, auto-returning arenas, an
// asynchronous [Mutex] and [Semaphore], and timer futures.
//
// # Quick Start
//
//	s := fut.NewSource[int]()
//
//	// Activate a cycle; the future is the consumer handle.
//	f := s.CreateFuture(ctx, time.Second)
//
//	// Some goroutine completes the cycle exactly once.
//	go func() { s.TrySetResult(f.Version(), 42) }()
//
//	// The consumer suspends by continuation, never by blocking.
//	f.OnCompleted(func(state any) {
//	    v, err := state.(fut.Future[int]).Result()
//	    // v == 42, or err is ErrTimeout after a second
//	    _ = v
//	    _ = err
//	}, f, fut.DefaultContinuations)
//
//	// After consumption, recycle for the next cycle.
//	s.Reset()
//
// # Completion
//
// Exactly one completion wins a cycle. Producers race freely; losers get
// false and nothing else happens:
//
//	if !s.TrySetResult(ver, v) {
//	    // Cycle already completed (result, fault, cancel or timeout)
//	    // or ver is from a recycled cycle. Both are normal.
//	}
//
// Fault completions preserve the error's identity end to end:
//
//	s.TrySetError(ver, errBackendDown)
//	_, err := s.GetResult(ver)
//	// err == errBackendDown
//
// Cancellation and timeout are completions like any other, classified by
// the result's status and error:
//
//	st, _ := f.Status()      // Canceled or TimedOut
//	_, err := f.Result()     // fut.IsCanceled(err) or fut.IsTimeout(err)
//
// A zero timeout completes the future synchronously inside CreateFuture;
// no timer is ever scheduled for it.
//
// # Versioning
//
// Every activation cycle carries a version token. Completion with a stale
// token returns false; consumption with a stale token returns
// [ErrStaleToken]. Staleness is an equality check, so version wraparound
// is harmless. This is what makes pooling safe: a late timer callback or
// a forgotten handle from a previous cycle cannot touch the current one.
//
// # Pooling Variants
//
// Three reuse strategies are available for different call sites:
//
//	Pool       - lock-free CAS free list, for independently synchronized call sites
//	LockedPool - guarded by the owning subsystem's lock, rents inside its critical section
//	Arena      - fixed slot table whose custody auto-returns when the ticket is consumed
//
// Pool and LockedPool hand out sources; the caller completes, consumes,
// and returns them. Arena hands out [Ticket] values addressing a slot by
// {index, version}; consuming the ticket recycles the slot, so custody
// cannot leak:
//
//	a := fut.NewArena[Response](1024)
//
//	t, err := a.CreateFuture(ctx, time.Second)
//	if fut.IsWouldBlock(err) {
//	    // All slots in flight - backpressure, not failure
//	}
//
//	// Producer side
//	go func() { t.TrySetResult(resp) }()
//
//	// Consumer side
//	t.OnCompleted(func(any) {
//	    resp, err := t.Result() // consumes and returns the slot
//	    _, _ = resp, err
//	}, nil, fut.DefaultContinuations)
//
// # Continuation Placement
//
// A continuation runs either on the goroutine that completes the cycle
// (synchronous, the default) or on an [Executor] (deferred):
//
//	// Per source, at construction:
//	s := fut.BuildSource[int](fut.New().Deferred())
//
//	// Per registration, overriding the source default:
//	f.OnCompleted(cb, st, fut.SyncContinuations)
//
// Synchronous placement is cheapest but deep chains of completions grow
// the completer's stack; deferred placement costs one bounded MPMC queue
// hop and never blocks the completer.
//
// # Higher-Level Constructs
//
// Mutex and Semaphore express waiting through the same primitive:
//
//	m := fut.NewMutex(64)
//
//	t, err := m.Acquire(ctx, time.Second)
//	if err == nil {
//	    t.OnCompleted(func(any) {
//	        if _, err := t.Result(); err == nil {
//	            defer m.Unlock()
//	            // critical section
//	        }
//	    }, nil, fut.DefaultContinuations)
//	}
//
//	sem := fut.NewSemaphore(8, 64)
//
//	p, err := sem.Acquire(ctx, fut.NoTimeout, 2)
//	if err == nil {
//	    p.OnCompleted(func(any) {
//	        if p.Result() == nil {
//	            defer sem.Release(2)
//	            // holds 2 permits
//	        }
//	    }, nil, fut.DefaultContinuations)
//	}
//
// Timer futures complete on elapse or cancellation:
//
//	t, _ := fut.After(ctx, 50*time.Millisecond)
//	t.OnCompleted(func(any) { _, _ = t.Result() }, nil, fut.DefaultContinuations)
//
// # Error Handling
//
// Producer-side completion never returns errors: races resolve through
// the boolean result. Consumer-side errors are sentinels:
//
//	ErrStaleToken   - token from a recycled cycle (caller bug, not a race)
//	ErrInvalidState - operation in the wrong lifecycle phase
//	ErrCanceled     - cycle completed by its cancellation signal
//	ErrTimeout      - cycle completed by its timeout
//	ErrDisposed     - operation on a closed pool or arena
//	ErrWouldBlock   - arena or waiter-queue backpressure
//
// [ErrWouldBlock] is sourced from [code.hybscloud.com/iox] for ecosystem
// consistency, with the usual delegation helpers:
//
//	fut.IsWouldBlock(err)  // backpressure, retry later
//	fut.IsCanceled(err)    // cancellation, including wrapped causes
//	fut.IsTimeout(err)     // timeout, including wrapped causes
//
// Protocol violations that indicate caller bugs panic instead of
// returning errors: activating a non-idle source, resetting a pending
// one, registering a second continuation, unlocking an unheld lock.
//
// # Thread Safety
//
// All operations on Source, Future, Ticket, Pool, Arena, Executor, Mutex
// and Semaphore are safe for arbitrary concurrent use, with two protocol
// constraints: each cycle must be consumed by one consumer (racing
// consumers on the same version are serialized, the loser gets
// ErrInvalidState), and a source rented from a pool must be returned to
// that pool. LockedPool methods require the owning lock's [Guard].
//
// No operation blocks an OS thread waiting for a completion: internal
// waits are bounded spins on CAS retry loops, and "waiting" for a result
// is expressed by OnCompleted registration.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives but
// cannot observe happens-before relationships established through atomic
// memory orderings (acquire-release semantics). The lock-free pool free
// list and the arena index queues synchronize through atomic operations
// on separate variables; they are correct, but the race detector may
// report false positives on contended tests.
//
// Tests incompatible with race detection are excluded via //go:build !race.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, [code.hybscloud.com/spin] for CPU pause
// instructions in retry loops, [code.hybscloud.com/iox] for semantic
// errors and adaptive backoff, and [code.hybscloud.com/lfq] bounded
// queues for arena free lists, waiter queues and the executor's job
// queue.
package fut
