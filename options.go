// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

// Options configures source construction and pool sizing.
type Options struct {
	// Continuation placement default for sources
	placement Flags
	exec      *Executor

	// Capacity (retained count for pools, slot count for arenas)
	capacity int
}

// Builder creates sources, pools and arenas with fluent configuration.
//
// Example:
//
//	// Source with deferred continuations on the shared executor
//	s := fut.BuildSource[int](fut.New().Deferred())
//
//	// Lock-free pool retaining up to 256 sources
//	p := fut.BuildPool[int](fut.New().Capacity(256))
//
//	// Arena of 1024 auto-returning slots completing via a private executor
//	a := fut.BuildArena[Response](fut.New().Capacity(1024).Executor(e))
type Builder struct {
	opts Options
}

// New creates a builder with synchronous continuation placement and no
// capacity. Configure with the fluent methods, then build.
func New() *Builder {
	return &Builder{}
}

// Sync selects synchronous continuation placement: continuations run on
// the goroutine that completes the cycle. This is the default.
func (b *Builder) Sync() *Builder {
	b.opts.placement = SyncContinuations
	b.opts.exec = nil
	return b
}

// Deferred selects deferred continuation placement on the shared
// [DefaultExecutor].
func (b *Builder) Deferred() *Builder {
	b.opts.placement = DeferredContinuations
	b.opts.exec = nil
	return b
}

// Executor selects deferred continuation placement on e.
func (b *Builder) Executor(e *Executor) *Builder {
	if e == nil {
		panic("fut: nil executor")
	}
	b.opts.placement = DeferredContinuations
	b.opts.exec = e
	return b
}

// Capacity sets the sizing knob: the maximum retained count for
// [BuildPool] and [BuildLockedPool], the slot count for [BuildArena]
// (rounds up to the next power of 2).
// Panics if n < 1.
func (b *Builder) Capacity(n int) *Builder {
	if n < 1 {
		panic("fut: capacity must be >= 1")
	}
	b.opts.capacity = n
	return b
}

// BuildSource creates a source with the configured continuation placement.
func BuildSource[T any](b *Builder) *Source[T] {
	return newSource[T](b.opts)
}

// BuildVoidSource creates a void source with the configured placement.
func BuildVoidSource(b *Builder) *Source[Void] {
	return newSource[Void](b.opts)
}

// BuildPool creates a lock-free pool. Sources rented on a pool miss are
// constructed with the builder's placement configuration.
// Panics if the builder has no Capacity.
func BuildPool[T any](b *Builder) *Pool[T] {
	if b.opts.capacity < 1 {
		panic("fut: BuildPool requires Capacity")
	}
	return newPool[T](b.opts)
}

// BuildLockedPool creates a pool guarded by l, the lock of the owning
// subsystem. Panics if the builder has no Capacity or l is nil.
func BuildLockedPool[T any](b *Builder, l *SpinLock) *LockedPool[T] {
	if b.opts.capacity < 1 {
		panic("fut: BuildLockedPool requires Capacity")
	}
	return newLockedPool[T](l, b.opts)
}

// BuildArena creates an arena of auto-returning source slots.
// Panics if the builder has no Capacity.
func BuildArena[T any](b *Builder) *Arena[T] {
	if b.opts.capacity < 1 {
		panic("fut: BuildArena requires Capacity")
	}
	return newArena[T](b.opts)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
