// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fut_test

import (
	"context"
	"errors"
	"testing"

	"code.hybscloud.com/fut"
)

// =============================================================================
// Asynchronous Mutex
// =============================================================================

// TestMutexTryAcquire tests the non-suspending fast path.
func TestMutexTryAcquire(t *testing.T) {
	m := fut.NewMutex(4)

	if !m.TryAcquire() {
		t.Fatal("TryAcquire on free mutex: got false, want true")
	}
	if m.TryAcquire() {
		t.Fatal("TryAcquire on held mutex: got true, want false")
	}
	m.Unlock()
	if !m.TryAcquire() {
		t.Fatal("TryAcquire after Unlock: got false, want true")
	}
	m.Unlock()
}

// TestMutexAcquireFree tests that acquiring a free mutex grants
// immediately, before Acquire returns.
func TestMutexAcquireFree(t *testing.T) {
	m := fut.NewMutex(4)

	tk, err := m.Acquire(context.Background(), fut.NoTimeout)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if st, err := tk.Status(); err != nil || st != fut.Succeeded {
		t.Fatalf("Status: got %v, %v, want Succeeded", st, err)
	}
	if _, err := tk.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}

	// Ownership conveyed
	if m.TryAcquire() {
		t.Fatal("TryAcquire while owned: got true, want false")
	}
	m.Unlock()
}

// TestMutexFIFOHandoff tests that Unlock hands ownership to waiters in
// arrival order.
func TestMutexFIFOHandoff(t *testing.T) {
	m := fut.NewMutex(4)
	if !m.TryAcquire() {
		t.Fatal("TryAcquire: got false, want true")
	}

	w1, err := m.Acquire(context.Background(), fut.NoTimeout)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	w2, err := m.Acquire(context.Background(), fut.NoTimeout)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if st, _ := w1.Status(); st != fut.Pending {
		t.Fatalf("w1 Status: got %v, want Pending", st)
	}

	m.Unlock()
	if st, err := w1.Status(); err != nil || st != fut.Succeeded {
		t.Fatalf("w1 Status after Unlock: got %v, %v, want Succeeded", st, err)
	}
	if st, err := w2.Status(); err != nil || st != fut.Pending {
		t.Fatalf("w2 Status after first Unlock: got %v, %v, want Pending", st, err)
	}

	if _, err := w1.Result(); err != nil {
		t.Fatalf("w1 Result: %v", err)
	}
	m.Unlock()
	if st, err := w2.Status(); err != nil || st != fut.Succeeded {
		t.Fatalf("w2 Status after second Unlock: got %v, %v, want Succeeded", st, err)
	}
	if _, err := w2.Result(); err != nil {
		t.Fatalf("w2 Result: %v", err)
	}

	m.Unlock()
	if !m.TryAcquire() {
		t.Fatal("TryAcquire after final Unlock: got false, want true")
	}
	m.Unlock()
}

// TestMutexZeroTimeoutOnFree tests that a zero-timeout acquisition of a
// free mutex does not take ownership: its ticket lost to the timeout
// before the grant.
func TestMutexZeroTimeoutOnFree(t *testing.T) {
	m := fut.NewMutex(4)

	tk, err := m.Acquire(context.Background(), 0)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if st, err := tk.Status(); err != nil || st != fut.TimedOut {
		t.Fatalf("Status: got %v, %v, want TimedOut", st, err)
	}
	if _, err := tk.Result(); !errors.Is(err, fut.ErrTimeout) {
		t.Fatalf("Result: got %v, want ErrTimeout", err)
	}

	// Ownership never moved
	if !m.TryAcquire() {
		t.Fatal("TryAcquire: got false, want true")
	}
	m.Unlock()
}

// TestMutexTimedOutWaiterSkipped tests that Unlock passes over waiters
// whose tickets already timed out.
func TestMutexTimedOutWaiterSkipped(t *testing.T) {
	m := fut.NewMutex(4)
	m.TryAcquire()

	w1, err := m.Acquire(context.Background(), 0)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	w2, err := m.Acquire(context.Background(), fut.NoTimeout)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if st, _ := w1.Status(); st != fut.TimedOut {
		t.Fatalf("w1 Status: got %v, want TimedOut", st)
	}
	if _, err := w1.Result(); !errors.Is(err, fut.ErrTimeout) {
		t.Fatalf("w1 Result: got %v, want ErrTimeout", err)
	}

	// The withdrawn waiter's queue entry is skipped at handoff
	m.Unlock()
	if st, err := w2.Status(); err != nil || st != fut.Succeeded {
		t.Fatalf("w2 Status: got %v, %v, want Succeeded", st, err)
	}
	if _, err := w2.Result(); err != nil {
		t.Fatalf("w2 Result: %v", err)
	}
	m.Unlock()
}

// TestMutexCompact tests that stale queue entries left by withdrawn
// waiters are compacted away instead of counting against capacity.
func TestMutexCompact(t *testing.T) {
	m := fut.NewMutex(2)
	m.TryAcquire()

	// Two timed-out-and-consumed waiters leave two stale entries, filling
	// the queue
	for range 2 {
		w, err := m.Acquire(context.Background(), 0)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if _, err := w.Result(); !errors.Is(err, fut.ErrTimeout) {
			t.Fatalf("Result: got %v, want ErrTimeout", err)
		}
	}

	// A live waiter still fits: enqueue compacts the stale entries out
	w, err := m.Acquire(context.Background(), fut.NoTimeout)
	if err != nil {
		t.Fatalf("Acquire with full-of-stale queue: %v", err)
	}
	if st, _ := w.Status(); st != fut.Pending {
		t.Fatalf("Status: got %v, want Pending", st)
	}

	m.Unlock()
	if st, err := w.Status(); err != nil || st != fut.Succeeded {
		t.Fatalf("Status after Unlock: got %v, %v, want Succeeded", st, err)
	}
	if _, err := w.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}
	m.Unlock()

	if !m.TryAcquire() {
		t.Fatal("TryAcquire: got false, want true")
	}
	m.Unlock()
}

// TestMutexCapacityExhausted tests backpressure once live acquisitions
// reach capacity.
func TestMutexCapacityExhausted(t *testing.T) {
	m := fut.NewMutex(2)
	m.TryAcquire()

	w1, err := m.Acquire(context.Background(), fut.NoTimeout)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	w2, err := m.Acquire(context.Background(), fut.NoTimeout)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := m.Acquire(context.Background(), fut.NoTimeout); !fut.IsWouldBlock(err) {
		t.Fatalf("Acquire beyond capacity: got %v, want would-block", err)
	}

	m.Unlock()
	if _, err := w1.Result(); err != nil {
		t.Fatalf("w1 Result: %v", err)
	}
	m.Unlock()
	if _, err := w2.Result(); err != nil {
		t.Fatalf("w2 Result: %v", err)
	}
	m.Unlock()
}

// TestMutexCanceledWaiterSkipped tests that a waiter withdrawn by its
// context never receives ownership.
func TestMutexCanceledWaiterSkipped(t *testing.T) {
	if fut.RaceEnabled {
		t.Skip("skip: completion crosses goroutines through cross-variable memory ordering")
	}
	m := fut.NewMutex(4)
	m.TryAcquire()

	ctx, cancel := context.WithCancel(context.Background())
	w1, err := m.Acquire(ctx, fut.NoTimeout)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	w2, err := m.Acquire(context.Background(), fut.NoTimeout)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	cancel()
	awaitStatus(t, fut.Canceled, w1.Status)
	if _, err := w1.Result(); !fut.IsCanceled(err) {
		t.Fatalf("w1 Result: got %v, want cancellation", err)
	}

	m.Unlock()
	if st, err := w2.Status(); err != nil || st != fut.Succeeded {
		t.Fatalf("w2 Status: got %v, %v, want Succeeded", st, err)
	}
	if _, err := w2.Result(); err != nil {
		t.Fatalf("w2 Result: %v", err)
	}
	m.Unlock()
}

// TestMutexContinuationHandoff tests the intended usage: the waiter's
// continuation receives ownership and releases inside it.
func TestMutexContinuationHandoff(t *testing.T) {
	m := fut.NewMutex(4)
	m.TryAcquire()

	w, _ := m.Acquire(context.Background(), fut.NoTimeout)
	entered := false
	w.OnCompleted(func(any) {
		if _, err := w.Result(); err != nil {
			t.Errorf("Result in continuation: %v", err)
			return
		}
		entered = true
		m.Unlock()
	}, nil, fut.DefaultContinuations)

	// Unlock invokes the waiter's continuation, which re-releases
	m.Unlock()
	if !entered {
		t.Fatal("continuation did not run")
	}
	if !m.TryAcquire() {
		t.Fatal("TryAcquire after continuation released: got false, want true")
	}
	m.Unlock()
}
