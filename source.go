// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"context"
	"time"

	"code.hybscloud.com/atomix"
)

// NoTimeout disables the timeout when activating a future.
// Any negative duration is treated the same way.
const NoTimeout time.Duration = -1

// Void is the result type of futures that carry no value: signals,
// lock handoffs, timers.
type Void struct{}

// Source is a reusable single-assignment completion source.
//
// One goroutine activates a cycle with CreateFuture and hands the returned
// [Future] to a consumer; any goroutine completes the cycle with TrySetResult,
// TrySetError or TrySetCanceled, or the bound cancellation signal and timeout
// complete it. The consumer consumes the result exactly once, then Reset
// recycles the source for the next cycle, typically through a [Pool], a
// [LockedPool] or an [Arena].
//
// Every completion and consumption operation presents a [Version] token;
// tokens from recycled cycles stop matching, so a late completion from a
// previous cycle is a harmless no-op and a late consumption is reported as
// [ErrStaleToken]. Completion is exactly-once per cycle: among racing
// TrySet calls one wins and the rest observe false.
//
// The zero Source is not ready for use; construct with [NewSource],
// [NewVoidSource] or [BuildSource]. A Source must not be copied after
// first use.
type Source[T any] struct {
	lock   SpinLock
	status atomix.Uint64 // packed {version, outcome, phase}

	// Result slot, written once per cycle under the lock before the
	// status word flips to completed.
	value T
	err   error

	// Continuation slot, at most one registration per cycle.
	fn     Continuation
	cstate any
	cflags Flags

	// Construction-time configuration, immutable afterwards.
	placement Flags
	exec      *Executor

	// Cancellation binding of the current cycle.
	timer *time.Timer
	stop  func() bool

	// Intrusive pool link, owned by the adopting Pool.
	pslot int32
	pnext atomix.Uint64
}

// NewSource creates an idle source at version 1 with synchronous
// continuation placement. Use [BuildSource] to configure placement and
// executor.
func NewSource[T any]() *Source[T] {
	s := &Source[T]{}
	initSource(s, Options{})
	return s
}

// NewVoidSource creates an idle source for futures that carry no value.
func NewVoidSource() *Source[Void] {
	return NewSource[Void]()
}

func newSource[T any](opts Options) *Source[T] {
	s := &Source[T]{}
	initSource(s, opts)
	return s
}

// initSource prepares a source in place, for both heap-constructed sources
// and arena slots.
func initSource[T any](s *Source[T], opts Options) {
	s.placement = opts.placement
	s.exec = opts.exec
	s.pslot = -1
	s.status.StoreRelaxed(packStatus(1, outcomeEmpty, phaseRecycled))
}

// Version returns the current cycle's version token.
func (s *Source[T]) Version() Version {
	return statusVersion(s.status.LoadAcquire())
}

// CreateFuture activates the next cycle and returns its consumer handle.
//
// The cycle completes through TrySet calls, or through the bound signals:
// when timeout is positive a timer completes it as TimedOut, and when ctx
// is cancelable its cancellation completes it as Canceled (a ctx deadline
// counts as TimedOut). ctx may be nil when no cancellation signal applies;
// [NoTimeout] disables the timer.
//
// A zero timeout completes the future as TimedOut before CreateFuture
// returns, without arming a timer. An already-canceled ctx likewise
// completes the future immediately.
//
// Panics if the source is not idle: activation of a rented source that was
// not reset is a protocol violation in the caller, not a race.
func (s *Source[T]) CreateFuture(ctx context.Context, timeout time.Duration) Future[T] {
	g := s.lock.Lock()
	word := s.status.LoadRelaxed()
	if statusPhase(word) != phaseRecycled {
		g.Unlock()
		panic("fut: CreateFuture on a non-idle source")
	}
	ver := statusVersion(word)
	s.status.StoreRelease(packStatus(ver, outcomeEmpty, phaseActivated))
	g.Unlock()

	f := Future[T]{src: s, ver: ver}
	if timeout == 0 {
		s.tryCancel(ver, outcomeTimedOut, nil)
		return f
	}
	s.bind(ctx, ver, timeout)
	return f
}

// TrySetResult attempts to complete the current cycle with value.
// Returns false when the cycle is not pending or ver does not match;
// racing completions are resolved without error, exactly one wins.
func (s *Source[T]) TrySetResult(ver Version, value T) bool {
	return s.tryComplete(ver, outcomeSuccess, value, nil)
}

// TrySetError attempts to complete the current cycle with a fault.
// The error is stored with its identity preserved and re-surfaced by
// GetResult. Panics on a nil error: the result slot is an explicit union,
// a fault always carries its error.
func (s *Source[T]) TrySetError(ver Version, err error) bool {
	if err == nil {
		panic("fut: TrySetError with nil error")
	}
	var zero T
	return s.tryComplete(ver, outcomeFault, zero, err)
}

// TrySetCanceled attempts to complete the current cycle as canceled.
// Consumers observe [Canceled] status and [ErrCanceled] from GetResult.
func (s *Source[T]) TrySetCanceled(ver Version) bool {
	return s.tryCancel(ver, outcomeCanceled, nil)
}

// GetResult consumes the completed cycle.
//
// On success returns the stored value; on a faulted cycle returns the
// producer's error with identity preserved; on a canceled or timed-out
// cycle returns [ErrCanceled] or [ErrTimeout] (possibly wrapping the
// cancellation cause). Consumption moves the cycle to its consumed phase;
// the source stays unusable until Reset.
//
// Returns [ErrStaleToken] when ver belongs to a recycled cycle and
// [ErrInvalidState] when the cycle is still pending or already consumed.
// Both report caller bugs, distinct from cancellation outcomes.
func (s *Source[T]) GetResult(ver Version) (T, error) {
	value, err, _ := s.consume(ver)
	return value, err
}

// consume is GetResult plus an explicit consumption report, so callers
// layering custody on top of consumption (arena tickets) need not infer
// it from the error value.
func (s *Source[T]) consume(ver Version) (value T, err error, consumed bool) {
	g := s.lock.Lock()
	word := s.status.LoadRelaxed()
	if ver != AnyVersion && ver != statusVersion(word) {
		g.Unlock()
		return value, ErrStaleToken, false
	}
	if statusPhase(word) != phaseCompleted {
		g.Unlock()
		return value, ErrInvalidState, false
	}
	outcome := statusOutcome(word)
	stored, err := s.value, s.err
	s.status.StoreRelease(packStatus(statusVersion(word), outcome, phaseConsumed))
	g.Unlock()

	if outcome == outcomeSuccess {
		return stored, nil, true
	}
	return value, err, true
}

// GetStatus is a non-consuming peek at the cycle's status.
//
// The check runs lock-free on a single acquire load of the status word.
// A consumed cycle still reports its final outcome until Reset recycles
// the source; only a version mismatch yields [ErrStaleToken].
func (s *Source[T]) GetStatus(ver Version) (Status, error) {
	word := s.status.LoadAcquire()
	if ver != AnyVersion && ver != statusVersion(word) {
		return Pending, ErrStaleToken
	}
	switch statusPhase(word) {
	case phaseActivated:
		return Pending, nil
	case phaseCompleted, phaseConsumed:
		return outcomeStatus(statusOutcome(word)), nil
	}
	return Pending, ErrInvalidState
}

// OnCompleted registers the cycle's continuation.
//
// When the cycle is still pending the continuation is stored and later run
// by whichever goroutine completes the cycle; when the cycle has already
// completed it is invoked before OnCompleted returns, subject to flags.
// Registration and completion racing each other still yields exactly one
// invocation: both paths serialize on the source's lock.
//
// At most one continuation may be pending per cycle; a second registration
// panics. The continuation receives state and typically consumes the
// result via GetResult.
func (s *Source[T]) OnCompleted(ver Version, fn Continuation, state any, flags Flags) error {
	if fn == nil {
		panic("fut: OnCompleted with nil continuation")
	}
	g := s.lock.Lock()
	word := s.status.LoadRelaxed()
	if ver != AnyVersion && ver != statusVersion(word) {
		g.Unlock()
		return ErrStaleToken
	}
	switch statusPhase(word) {
	case phaseActivated:
		if s.fn != nil {
			g.Unlock()
			panic("fut: continuation already registered")
		}
		s.fn, s.cstate, s.cflags = fn, state, flags
		g.Unlock()
		return nil
	case phaseCompleted:
		g.Unlock()
		s.invoke(fn, state, flags)
		return nil
	}
	g.Unlock()
	return ErrInvalidState
}

// Reset recycles a consumed source for the next cycle.
//
// Clears the result and continuation slots, releases the cancellation
// binding and advances the version, so every token issued for the finished
// cycle goes stale. Reset of an idle source is a no-op; Reset of a pending
// or completed-but-unconsumed source panics, it would discard a live cycle.
func (s *Source[T]) Reset() {
	g := s.lock.Lock()
	word := s.status.LoadRelaxed()
	switch statusPhase(word) {
	case phaseRecycled:
		g.Unlock()
		return
	case phaseConsumed:
	default:
		g.Unlock()
		panic("fut: Reset of a pending or unconsumed source")
	}
	var zero T
	s.value, s.err = zero, nil
	s.fn, s.cstate, s.cflags = nil, nil, DefaultContinuations
	t, stop := s.timer, s.stop
	s.timer, s.stop = nil, nil
	ver := nextVersion(statusVersion(word))
	s.status.StoreRelease(packStatus(ver, outcomeEmpty, phaseRecycled))
	g.Unlock()

	if t != nil {
		t.Stop()
	}
	if stop != nil {
		stop()
	}
}

// tryComplete performs the single completion transition of a cycle.
//
// The result slot is written under the lock before the status word flips
// to completed with a release store, so a consumer that acquire-loads the
// completed status observes the full result. The continuation and the
// cancellation binding are taken out of the source under the same lock;
// the binding is stopped and the continuation invoked after unlock.
func (s *Source[T]) tryComplete(ver Version, outcome uint64, value T, err error) bool {
	g := s.lock.Lock()
	word := s.status.LoadRelaxed()
	if statusPhase(word) != phaseActivated {
		g.Unlock()
		return false
	}
	cur := statusVersion(word)
	if ver != AnyVersion && ver != cur {
		g.Unlock()
		return false
	}
	s.value = value
	s.err = err
	s.status.StoreRelease(packStatus(cur, outcome, phaseCompleted))
	fn, state, flags := s.fn, s.cstate, s.cflags
	s.fn, s.cstate, s.cflags = nil, nil, DefaultContinuations
	t, stop := s.timer, s.stop
	s.timer, s.stop = nil, nil
	g.Unlock()

	if t != nil {
		t.Stop()
	}
	if stop != nil {
		stop()
	}
	if fn != nil {
		s.invoke(fn, state, flags)
	}
	return true
}

// tryCancel completes a cycle with a cancellation classification:
// outcomeCanceled stores [ErrCanceled], outcomeTimedOut stores
// [ErrTimeout], each wrapping cause when it adds information.
func (s *Source[T]) tryCancel(ver Version, outcome uint64, cause error) bool {
	kind := ErrCanceled
	if outcome == outcomeTimedOut {
		kind = ErrTimeout
	}
	var zero T
	return s.tryComplete(ver, outcome, zero, classify(kind, cause))
}
