// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"context"
	"time"
)

// Completer is the producer-side view of a completion source.
//
// Handing a subsystem a Completer instead of the full source keeps
// consumption and lifecycle control (GetResult, Reset) out of its reach;
// it can only race to complete the cycle named by its version token.
//
// All three operations are tolerant of races: among concurrent attempts
// against one cycle exactly one returns true.
//
// Example:
//
//	// The responder only completes; custody stays with the caller.
//	func respond(c fut.Completer[Response], ver fut.Version, r Response, err error) {
//	    if err != nil {
//	        c.TrySetError(ver, err)
//	        return
//	    }
//	    c.TrySetResult(ver, r)
//	}
type Completer[T any] interface {
	// TrySetResult attempts to complete the cycle with value.
	TrySetResult(ver Version, value T) bool
	// TrySetError attempts to complete the cycle with a fault.
	TrySetError(ver Version, err error) bool
	// TrySetCanceled attempts to complete the cycle as canceled.
	TrySetCanceled(ver Version) bool
}

// Awaiter is the consumer-side view of a completion source.
//
// GetStatus peeks, OnCompleted suspends, GetResult consumes; the library
// never blocks a goroutine waiting for completion, so suspension is
// expressed exclusively through OnCompleted registration.
type Awaiter[T any] interface {
	// GetStatus is a non-consuming peek at the cycle's status.
	GetStatus(ver Version) (Status, error)
	// GetResult consumes the completed cycle.
	GetResult(ver Version) (T, error)
	// OnCompleted registers the cycle's continuation.
	OnCompleted(ver Version, fn Continuation, state any, flags Flags) error
}

// CompletionSource is the full contract of a reusable completion source:
// both views plus activation and recycling. [Source] implements it.
type CompletionSource[T any] interface {
	Completer[T]
	Awaiter[T]

	// CreateFuture activates the next cycle and returns its handle.
	CreateFuture(ctx context.Context, timeout time.Duration) Future[T]
	// Reset recycles a consumed source for the next cycle.
	Reset()
	// Version returns the current cycle's version token.
	Version() Version
}

var _ CompletionSource[Void] = (*Source[Void])(nil)
