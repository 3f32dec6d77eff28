package lockmgr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/ValentinKolb/dCol/lib/backend/mbackend"
)

var fastOptions = Options{
	InitialBackoff: 10 * time.Microsecond,
	MaxBackoff:     time.Millisecond,
}

func newTestManager(t *testing.T) (ILockManager, backend.IBackend) {
	t.Helper()
	store := mbackend.New()
	return NewLockManager(backend.Static{IBackend: store}, fastOptions), store
}

// counterValue returns the raw counter of a lock (or "" if missing)
func counterValue(t *testing.T, store backend.IBackend, name string) string {
	t.Helper()
	value, found, err := store.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		return ""
	}
	return string(value)
}

func TestLockName(t *testing.T) {
	if got := LockName("users"); got != "usersLOCK" {
		t.Errorf("LockName = %q", got)
	}
}

func TestAcquireRelease(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	if err := mgr.AcquireLock(ctx, "l", false); err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if locked, _ := mgr.IsLocked(ctx, "l"); !locked {
		t.Error("Expected lock to be held")
	}

	if err := mgr.ReleaseLock(ctx, "l"); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if got := counterValue(t, store, "l"); got != "0" {
		t.Errorf("Expected quiescent counter 0 after release, got %q", got)
	}
	if locked, _ := mgr.IsLocked(ctx, "l"); locked {
		t.Error("Expected lock to be free")
	}

	// the lock can be acquired again
	if err := mgr.AcquireLock(ctx, "l", true); err != nil {
		t.Fatalf("Second AcquireLock failed: %v", err)
	}
	_ = mgr.ReleaseLock(ctx, "l")
}

func TestRaiseOnContention(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	if err := mgr.AcquireLock(ctx, "l", true); err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	err := mgr.AcquireLock(ctx, "l", true)
	if !errors.Is(err, ErrLockInUse) {
		t.Fatalf("Expected ErrLockInUse, got %v", err)
	}
	// the failed attempt must not leave the counter elevated
	if got := counterValue(t, store, "l"); got != "1" {
		t.Errorf("Expected counter 1 while held, got %q", got)
	}

	if err := mgr.ReleaseLock(ctx, "l"); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if err := mgr.AcquireLock(ctx, "l", true); err != nil {
		t.Errorf("Expected acquire after release to succeed, got %v", err)
	}
}

func TestTryAcquire(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	ok, err := mgr.TryAcquireLock(ctx, "l")
	if err != nil || !ok {
		t.Fatalf("Expected first TryAcquireLock to succeed, got %v %v", ok, err)
	}
	ok, err = mgr.TryAcquireLock(ctx, "l")
	if err != nil || ok {
		t.Fatalf("Expected second TryAcquireLock to fail without error, got %v %v", ok, err)
	}
}

func TestMaxAttempts(t *testing.T) {
	store := mbackend.New()
	opts := fastOptions
	opts.MaxAttempts = 3
	mgr := NewLockManager(backend.Static{IBackend: store}, opts)
	ctx := context.Background()

	_ = mgr.AcquireLock(ctx, "l", false)
	err := mgr.AcquireLock(ctx, "l", false)
	if !errors.Is(err, ErrLockInUse) {
		t.Fatalf("Expected ErrLockInUse after max attempts, got %v", err)
	}
}

func TestBlockingAcquireWaits(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	if err := mgr.AcquireLock(ctx, "l", false); err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}

	released := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(released)
		_ = mgr.ReleaseLock(ctx, "l")
	}()

	if err := mgr.AcquireLock(ctx, "l", false); err != nil {
		t.Fatalf("Blocking AcquireLock failed: %v", err)
	}
	select {
	case <-released:
	default:
		t.Error("Blocking AcquireLock returned before the holder released")
	}
}

func TestAcquireContextDeadline(t *testing.T) {
	mgr, _ := newTestManager(t)
	_ = mgr.AcquireLock(context.Background(), "l", false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := mgr.AcquireLock(ctx, "l", false)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestReleaseMissingAndNotHeld(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	if err := mgr.ReleaseLock(ctx, "missing"); err != nil {
		t.Errorf("Releasing a missing lock should succeed, got %v", err)
	}

	_ = mgr.AcquireLock(ctx, "l", false)
	_ = mgr.ReleaseLock(ctx, "l")
	if err := mgr.ReleaseLock(ctx, "l"); !errors.Is(err, ErrNotHeld) {
		t.Errorf("Expected ErrNotHeld on double release, got %v", err)
	}
	if got := counterValue(t, store, "l"); got != "0" {
		t.Errorf("Expected counter restored to 0, got %q", got)
	}
}

func TestDeleteLockRecovers(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	// simulate a crashed holder
	_ = mgr.AcquireLock(ctx, "l", false)
	if err := mgr.AcquireLock(ctx, "l", true); !errors.Is(err, ErrLockInUse) {
		t.Fatalf("Expected ErrLockInUse, got %v", err)
	}

	if err := mgr.DeleteLock(ctx, "l"); err != nil {
		t.Fatalf("DeleteLock failed: %v", err)
	}
	if got := counterValue(t, store, "l"); got != "" {
		t.Errorf("Expected counter to be removed, got %q", got)
	}
	if err := mgr.AcquireLock(ctx, "l", true); err != nil {
		t.Errorf("Expected acquire after delete to succeed, got %v", err)
	}
}

func TestMutualExclusion(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()
	lock := NewLock(mgr, LockName("shared"))

	const workers = 8
	const rounds = 25

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		total   int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				err := lock.Do(ctx, false, func(ctx context.Context) error {
					mu.Lock()
					inside++
					if inside > maxSeen {
						maxSeen = inside
					}
					mu.Unlock()

					time.Sleep(10 * time.Microsecond)

					mu.Lock()
					inside--
					total++
					mu.Unlock()
					return nil
				})
				if err != nil {
					t.Errorf("Do failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("Expected at most one holder at a time, saw %d", maxSeen)
	}
	if total != workers*rounds {
		t.Errorf("Expected %d critical sections, got %d", workers*rounds, total)
	}
	if got := counterValue(t, store, lock.Name()); got != "0" {
		t.Errorf("Expected quiescent counter after all releases, got %q", got)
	}
}

func TestDoReleasesOnError(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()
	lock := NewLock(mgr, "l")

	boom := errors.New("boom")
	err := lock.Do(ctx, true, func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Expected error of fn, got %v", err)
	}
	if locked, _ := lock.IsLocked(ctx); locked {
		t.Error("Expected lock to be released after fn failed")
	}

	// nested non-blocking acquire of the same lock fails
	err = lock.Do(ctx, true, func(ctx context.Context) error {
		return lock.Do(ctx, true, func(ctx context.Context) error { return nil })
	})
	if !errors.Is(err, ErrLockInUse) {
		t.Errorf("Expected nested acquire to fail with ErrLockInUse, got %v", err)
	}
	if locked, _ := lock.IsLocked(ctx); locked {
		t.Error("Expected lock to be released after nested failure")
	}
}
