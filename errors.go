// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"context"
	"errors"

	"code.hybscloud.com/iox"
)

// Completion and consumption errors.
//
// Producer-side TrySet* operations never return errors; racing completions
// are reported through their boolean result. The sentinels below surface on
// the consumer side (GetResult, GetStatus, OnCompleted) and on pool and
// arena operations.
var (
	// ErrInvalidState indicates an operation was attempted in a lifecycle
	// phase that does not permit it, e.g. consuming a cycle that is still
	// pending. It reports a protocol violation, not a race.
	ErrInvalidState = errors.New("fut: invalid state")

	// ErrStaleToken indicates the presented version token belongs to an
	// earlier reuse cycle of the source. On the consumer side this is a
	// hard misuse error (reuse-after-consumption bug in the caller),
	// reported distinctly from cancellation and faults.
	ErrStaleToken = errors.New("fut: stale version token")

	// ErrTimeout is the consumption result of a cycle completed by its
	// timeout. Classify with [IsTimeout] rather than comparing directly:
	// timeouts carrying a custom cause are wrapped.
	ErrTimeout = errors.New("fut: timed out")

	// ErrCanceled is the consumption result of a cycle completed by its
	// cancellation signal. Classify with [IsCanceled]; cancellations
	// carrying a cause other than plain context.Canceled are wrapped so
	// Unwrap exposes the cause.
	ErrCanceled = errors.New("fut: canceled")

	// ErrDisposed indicates an operation on a closed pool or arena.
	ErrDisposed = errors.New("fut: disposed")
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Arena.CreateFuture: all slots are rented (backpressure)
// For Mutex.Acquire: the waiter queue is full
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry the operation later (with backoff or yield) rather than propagating
// the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsCanceled reports whether err classifies as a cancellation, including
// wrapped cancellations that carry a context cause.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsTimeout reports whether err classifies as a timeout, including wrapped
// timeouts that carry a context cause.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// classified attaches a cancellation classification (ErrCanceled or
// ErrTimeout) to an upstream cause, typically context.Cause of the bound
// signal. errors.Is matches the classification via Is and the cause via
// Unwrap.
type classified struct {
	kind  error
	cause error
}

func (e *classified) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *classified) Is(target error) bool {
	return target == e.kind
}

func (e *classified) Unwrap() error {
	return e.cause
}

// classify maps a cancellation cause onto the sentinel taxonomy. The plain
// sentinel is returned whenever the cause adds no information, keeping the
// common paths allocation-free.
func classify(kind, cause error) error {
	if cause == nil || cause == kind {
		return kind
	}
	switch {
	case kind == ErrCanceled && cause == context.Canceled:
		return ErrCanceled
	case kind == ErrTimeout && cause == context.DeadlineExceeded:
		return ErrTimeout
	}
	return &classified{kind: kind, cause: cause}
}
