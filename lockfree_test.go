// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Contended tests excluded from race detection.
//
// Go's race detector tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established through atomic memory orderings (acquire-release semantics).
//
// These tests drive completion sources, pools and arenas from many
// goroutines at once. Their state is guarded by spin locks and free lists
// built on atomic operations over separate variables. The algorithms are
// correct, but the race detector reports false positives because it cannot
// track the synchronization provided by those orderings.

package fut_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/fut"
	"code.hybscloud.com/iox"
)

// =============================================================================
// Racing Completions
// =============================================================================

// TestRacingCompletionsExactlyOnce tests that among racing TrySet calls of
// all three kinds, exactly one wins each cycle.
func TestRacingCompletionsExactlyOnce(t *testing.T) {
	if fut.RaceEnabled {
		t.Skip("skip: algorithm uses cross-variable memory ordering")
	}
	errBoom := errors.New("boom")
	s := fut.NewSource[int]()

	for range 100 {
		f := s.CreateFuture(context.Background(), fut.NoTimeout)
		var wins atomix.Int64
		var wg sync.WaitGroup
		for i := range 9 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				var won bool
				switch i % 3 {
				case 0:
					won = s.TrySetResult(f.Version(), i)
				case 1:
					won = s.TrySetError(f.Version(), errBoom)
				default:
					won = s.TrySetCanceled(f.Version())
				}
				if won {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if w := wins.Load(); w != 1 {
			t.Fatalf("winning completions: got %d, want 1", w)
		}
		st, err := f.Status()
		if err != nil || st == fut.Pending {
			t.Fatalf("Status: got %v, %v, want completed", st, err)
		}
		if _, err := f.Result(); err != nil && err != errBoom && !fut.IsCanceled(err) {
			t.Fatalf("Result: got unexpected %v", err)
		}
		s.Reset()
	}
}

// TestCompletionTimerRace tests a producer racing the timeout timer: the
// consumer observes exactly one terminal state either way.
func TestCompletionTimerRace(t *testing.T) {
	if fut.RaceEnabled {
		t.Skip("skip: algorithm uses cross-variable memory ordering")
	}
	s := fut.NewSource[int]()

	for i := range 200 {
		f := s.CreateFuture(context.Background(), time.Millisecond)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.TrySetResult(f.Version(), i)
		}()

		backoff := iox.Backoff{}
		for {
			st, err := f.Status()
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if st != fut.Pending {
				break
			}
			backoff.Wait()
		}

		v, err := f.Result()
		switch {
		case err == nil:
			if v != i {
				t.Fatalf("Result: got %d, want %d", v, i)
			}
		case fut.IsTimeout(err):
		default:
			t.Fatalf("Result: got unexpected %v", err)
		}

		wg.Wait()
		s.Reset()
	}
}

// TestResetIsolation tests version isolation across reuse cycles with
// laggard completers still in flight: each cycle observes its own value.
func TestResetIsolation(t *testing.T) {
	if fut.RaceEnabled {
		t.Skip("skip: algorithm uses cross-variable memory ordering")
	}
	s := fut.NewSource[int]()
	var wg sync.WaitGroup

	for i := range 200 {
		f := s.CreateFuture(context.Background(), fut.NoTimeout)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.TrySetResult(f.Version(), i)
			}()
		}

		backoff := iox.Backoff{}
		for {
			st, err := f.Status()
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if st != fut.Pending {
				break
			}
			backoff.Wait()
		}

		if v, err := f.Result(); err != nil || v != i {
			t.Fatalf("cycle %d Result: got %d, %v", i, v, err)
		}
		s.Reset()
	}
	wg.Wait()
}

// =============================================================================
// Pool and Arena Contention
// =============================================================================

// TestPoolContention tests concurrent rent/complete/consume/return cycles
// against one lock-free pool.
func TestPoolContention(t *testing.T) {
	if fut.RaceEnabled {
		t.Skip("skip: algorithm uses cross-variable memory ordering")
	}
	p := fut.NewPool[int](64)
	var cycles atomix.Int64
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 2000 {
				s, err := p.Rent()
				if err != nil {
					t.Errorf("Rent: %v", err)
					return
				}
				f := s.CreateFuture(context.Background(), fut.NoTimeout)
				s.TrySetResult(f.Version(), j)
				if v, err := f.Result(); err != nil || v != j {
					t.Errorf("Result: got %d, %v, want %d", v, err, j)
					return
				}
				p.Return(s)
				cycles.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := cycles.Load(); got != 16000 {
		t.Fatalf("cycles: got %d, want 16000", got)
	}
}

// TestArenaContention tests concurrent ticket traffic with backpressure
// retries, and that consumptions return every slot.
func TestArenaContention(t *testing.T) {
	if fut.RaceEnabled {
		t.Skip("skip: algorithm uses cross-variable memory ordering")
	}
	a := fut.NewArena[int](64)
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for done := 0; done < 2000; {
				tk, err := a.CreateFuture(context.Background(), fut.NoTimeout)
				if err != nil {
					if !fut.IsWouldBlock(err) {
						t.Errorf("CreateFuture: %v", err)
						return
					}
					backoff.Wait()
					continue
				}
				backoff.Reset()
				tk.TrySetResult(done)
				if v, err := tk.Result(); err != nil || v != done {
					t.Errorf("Result: got %d, %v, want %d", v, err, done)
					return
				}
				done++
			}
		}()
	}
	wg.Wait()

	// Every slot came home
	for range a.Cap() {
		tk, err := a.CreateFuture(context.Background(), 0)
		if err != nil {
			t.Fatalf("CreateFuture after drain: %v", err)
		}
		tk.Result()
	}
}

// =============================================================================
// Mutex and Semaphore Under Contention
// =============================================================================

// TestMutexMutualExclusion tests that an unsynchronized counter guarded
// only by the asynchronous mutex still counts exactly.
func TestMutexMutualExclusion(t *testing.T) {
	if fut.RaceEnabled {
		t.Skip("skip: algorithm uses cross-variable memory ordering")
	}
	m := fut.NewMutex(1024)
	shared := 0
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for range 500 {
				tk, err := m.Acquire(context.Background(), fut.NoTimeout)
				if err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}
				for {
					st, err := tk.Status()
					if err != nil {
						t.Errorf("Status: %v", err)
						return
					}
					if st != fut.Pending {
						break
					}
					backoff.Wait()
				}
				backoff.Reset()
				if _, err := tk.Result(); err != nil {
					t.Errorf("Result: %v", err)
					return
				}
				shared++
				m.Unlock()
			}
		}()
	}
	wg.Wait()

	if shared != 4000 {
		t.Fatalf("shared counter: got %d, want 4000", shared)
	}
}

// TestSemaphoreBound tests that concurrent holders never exceed the permit
// balance.
func TestSemaphoreBound(t *testing.T) {
	if fut.RaceEnabled {
		t.Skip("skip: algorithm uses cross-variable memory ordering")
	}
	sem := fut.NewSemaphore(4, 1024)
	var cur atomix.Int64
	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for range 500 {
				p, err := sem.Acquire(context.Background(), fut.NoTimeout, 1)
				if err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}
				for {
					st, err := p.Status()
					if err != nil {
						t.Errorf("Status: %v", err)
						return
					}
					if st != fut.Pending {
						break
					}
					backoff.Wait()
				}
				backoff.Reset()
				if err := p.Result(); err != nil {
					t.Errorf("Result: %v", err)
					return
				}
				if c := cur.Add(1); c > 4 {
					t.Errorf("holders: got %d, want <= 4", c)
				}
				cur.Add(-1)
				sem.Release(1)
			}
		}()
	}
	wg.Wait()

	if got := sem.Permits(); got != 4 {
		t.Fatalf("Permits: got %d, want 4", got)
	}
}
