// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"runtime"
	"sync"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// Executor runs deferred continuations on a fixed set of worker
// goroutines fed by a bounded MPMC queue.
//
// Submit never blocks the completing goroutine: when the queue is full or
// the executor closed, the continuation runs on a goroutine of its own
// instead, preserving the deferred-placement guarantee under backpressure.
type Executor struct {
	queue  *lfq.MPMCPtr
	closed atomix.Bool
	wg     sync.WaitGroup
}

// job carries one deferred continuation through the queue. Records are
// recycled through a sync.Pool; fields are cleared before release so the
// pool does not pin continuation state.
type job struct {
	fn    Continuation
	state any
}

var jobPool = sync.Pool{New: func() any { return new(job) }}

// NewExecutor creates an executor with the given worker count and queue
// capacity. Capacity rounds up to the next power of 2.
// Panics if workers < 1 or capacity < 2.
func NewExecutor(workers, capacity int) *Executor {
	if workers < 1 {
		panic("fut: executor requires at least one worker")
	}
	if capacity < 2 {
		panic("fut: capacity must be >= 2")
	}
	e := &Executor{queue: lfq.NewMPMCPtr(capacity)}
	e.wg.Add(workers)
	for range workers {
		go e.worker()
	}
	return e
}

// Submit hands a continuation to the workers.
//
// On queue backpressure or after Close the continuation is not dropped and
// not run inline; it runs on its own goroutine.
func (e *Executor) Submit(fn Continuation, state any) {
	if fn == nil {
		panic("fut: Submit with nil continuation")
	}
	if !e.closed.Load() {
		j := jobPool.Get().(*job)
		j.fn, j.state = fn, state
		if e.queue.Enqueue(unsafe.Pointer(j)) == nil {
			return
		}
		j.fn, j.state = nil, nil
		jobPool.Put(j)
	}
	go fn(state)
}

// Close stops the workers after the queued continuations have run.
//
// The caller must ensure no Submit call races or follows Close, the same
// contract the underlying queue's Drain carries. Close blocks until every
// worker has exited.
func (e *Executor) Close() {
	// Drain before closed: a worker that observes closed is then
	// guaranteed to observe drain mode, where an empty read is final
	// rather than a threshold refusal.
	e.queue.Drain()
	e.closed.Store(true)
	e.wg.Wait()
}

func (e *Executor) worker() {
	defer e.wg.Done()
	backoff := iox.Backoff{}
	for {
		p, err := e.queue.Dequeue()
		if err == nil {
			backoff.Reset()
			e.run(p)
			continue
		}
		if !e.closed.Load() {
			backoff.Wait()
			continue
		}
		// The failed read above may predate drain mode; retry now that
		// drain mode is visible before treating the queue as empty.
		p, err = e.queue.Dequeue()
		if err != nil {
			return
		}
		e.run(p)
	}
}

func (e *Executor) run(p unsafe.Pointer) {
	j := (*job)(p)
	fn, state := j.fn, j.state
	j.fn, j.state = nil, nil
	jobPool.Put(j)
	fn(state)
}

var (
	defaultExecutorOnce sync.Once
	defaultExecutor     *Executor
)

// DefaultExecutor returns the shared package executor used by sources
// built with deferred placement and no explicit executor. It is created on
// first use with one worker per processor and is never closed.
func DefaultExecutor() *Executor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = NewExecutor(runtime.GOMAXPROCS(0), 1024)
	})
	return defaultExecutor
}
