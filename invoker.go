// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

// Continuation is the callback invoked once a cycle completes. It receives
// the opaque state registered with it and typically consumes the result
// through the handle it captured or was handed in state.
//
// Passing state explicitly instead of closing over it lets callers reuse
// one continuation function across many registrations without allocating
// a closure per cycle.
type Continuation func(state any)

// Flags selects where a continuation runs once its cycle completes.
type Flags uint8

const (
	// DefaultContinuations defers to the placement configured on the
	// source at construction (synchronous unless built otherwise).
	DefaultContinuations Flags = iota

	// SyncContinuations runs the continuation on the goroutine that
	// completes the cycle, inside the TrySet call that wins. Cheapest
	// placement; long chains of synchronous completions deepen the
	// completing goroutine's stack.
	SyncContinuations

	// DeferredContinuations hands the continuation to an [Executor],
	// decoupling it from the completing goroutine. Costs one queue hop;
	// the completer returns immediately.
	DeferredContinuations
)

// invoke runs a continuation taken out of a completed cycle. The caller
// must have released the source lock: the continuation is arbitrary user
// code and may re-enter the source.
func (s *Source[T]) invoke(fn Continuation, state any, flags Flags) {
	mode := flags
	if mode == DefaultContinuations {
		mode = s.placement
	}
	if mode == DeferredContinuations {
		e := s.exec
		if e == nil {
			e = DefaultExecutor()
		}
		e.Submit(fn, state)
		return
	}
	fn(state)
}
