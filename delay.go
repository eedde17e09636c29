// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"context"
	"sync"
	"time"
)

const delayArenaCap = 1024

var (
	delayOnce  sync.Once
	delaySlots *Arena[Void]
)

func delayArena() *Arena[Void] {
	delayOnce.Do(func() {
		delaySlots = NewArena[Void](delayArenaCap)
	})
	return delaySlots
}

// After returns a void ticket that completes Succeeded once d has
// elapsed, or Canceled when ctx is canceled first. A non-positive d
// completes the ticket before After returns.
//
// Delays draw on a shared arena of slots, recycled as tickets are
// consumed; After reports [ErrWouldBlock] when too many delays are
// outstanding. Heavy timer users should run their own [Arena] and produce
// completions from their own timers instead.
//
// The elapse timer is not stopped when ctx wins the race; it fires stale
// against a later cycle's version and is reclaimed then.
func After(ctx context.Context, d time.Duration) (Ticket[Void], error) {
	t, err := delayArena().CreateFuture(ctx, NoTimeout)
	if err != nil {
		return Ticket[Void]{}, err
	}
	if d <= 0 {
		t.TrySetResult(Void{})
		return t, nil
	}
	time.AfterFunc(d, func() {
		t.TrySetResult(Void{})
	})
	return t, nil
}

// Deadline returns a void ticket that completes Succeeded at instant at,
// or Canceled when ctx is canceled first, with the same arena semantics
// as [After].
func Deadline(ctx context.Context, at time.Time) (Ticket[Void], error) {
	return After(ctx, time.Until(at))
}
