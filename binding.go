// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"context"
	"errors"
	"time"
)

// bind arms the cancellation binding of a freshly activated cycle: a timer
// when timeout is positive and a context callback when ctx is cancelable.
//
// Both callbacks capture ver at registration; by the time either fires the
// cycle may long since have completed or the source been recycled, and the
// version check inside tryCancel turns such late fires into no-ops. A
// context deadline is classified as TimedOut, every other cause as
// Canceled.
//
// Unregistration is not synchronized with firing: completion stops the
// timer and the context callback on a best-effort basis, and a callback
// that already escaped simply fires stale.
func (s *Source[T]) bind(ctx context.Context, ver Version, timeout time.Duration) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			// Signal already fired: complete synchronously, no
			// registrations to arm or leak.
			cause := context.Cause(ctx)
			if errors.Is(cause, context.DeadlineExceeded) {
				s.tryCancel(ver, outcomeTimedOut, cause)
			} else {
				s.tryCancel(ver, outcomeCanceled, cause)
			}
			return
		}
		if ctx.Done() == nil {
			ctx = nil
		}
	}
	if ctx == nil && timeout < 0 {
		return
	}

	var t *time.Timer
	if timeout > 0 {
		t = time.AfterFunc(timeout, func() {
			s.tryCancel(ver, outcomeTimedOut, nil)
		})
	}
	var stop func() bool
	if ctx != nil {
		stop = context.AfterFunc(ctx, func() {
			cause := context.Cause(ctx)
			if errors.Is(cause, context.DeadlineExceeded) {
				s.tryCancel(ver, outcomeTimedOut, cause)
				return
			}
			s.tryCancel(ver, outcomeCanceled, cause)
		})
	}
	if t == nil && stop == nil {
		return
	}

	// Publish the handles for completion to stop. The cycle may already
	// have completed while the registrations were being armed; in that
	// case completion cannot have seen the handles, so release them here.
	g := s.lock.Lock()
	word := s.status.LoadRelaxed()
	if statusPhase(word) == phaseActivated && statusVersion(word) == ver {
		s.timer, s.stop = t, stop
		g.Unlock()
		return
	}
	g.Unlock()
	if t != nil {
		t.Stop()
	}
	if stop != nil {
		stop()
	}
}
