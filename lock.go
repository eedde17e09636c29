// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SpinLock is a test-and-set mutual exclusion word with CPU-pause backoff.
//
// SpinLock guards the short critical sections of this package: status
// transitions, continuation registration, pool free lists. Critical sections
// must not block; holders run a handful of loads and stores and release.
//
// The zero value is an unlocked SpinLock. A SpinLock must not be copied
// after first use.
type SpinLock struct {
	word atomix.Uint64
}

// Guard witnesses ownership of a SpinLock.
//
// Operations that require the caller to hold a particular lock take a Guard
// parameter instead of documenting the requirement, making the discipline
// visible at the call site. A Guard is issued by Lock or TryLock and
// becomes dead after Unlock; the zero Guard owns nothing.
type Guard struct {
	lock *SpinLock
}

// Lock acquires the lock, spinning with adaptive pause until available.
func (l *SpinLock) Lock() Guard {
	sw := spin.Wait{}
	for !l.word.CompareAndSwapAcqRel(0, 1) {
		sw.Once()
	}
	return Guard{lock: l}
}

// TryLock acquires the lock without spinning.
// Returns the guard and true on success, the zero Guard and false when the
// lock is held elsewhere.
func (l *SpinLock) TryLock() (Guard, bool) {
	if l.word.CompareAndSwapAcqRel(0, 1) {
		return Guard{lock: l}, true
	}
	return Guard{}, false
}

// Unlock releases the lock witnessed by the guard.
// Panics if the guard does not own a held lock; a double unlock therefore
// panics instead of silently releasing someone else's acquisition.
func (g Guard) Unlock() {
	if g.lock == nil {
		panic("fut: unlock of zero Guard")
	}
	if !g.lock.word.CompareAndSwapAcqRel(1, 0) {
		panic("fut: unlock of unlocked SpinLock")
	}
}

// owns reports whether the guard witnesses l.
func (g Guard) owns(l *SpinLock) bool {
	return g.lock == l
}
