package lockmgr

import (
	"context"
	"errors"
	"fmt"
)

// Lock is a named lock bound to a lock manager.
type Lock struct {
	mgr  ILockManager
	name string
}

// NewLock binds the lock with the given name to mgr.
func NewLock(mgr ILockManager, name string) *Lock {
	return &Lock{mgr: mgr, name: name}
}

// Name returns the remote name of the lock counter.
func (l *Lock) Name() string {
	return l.name
}

// Acquire acquires the lock (see ILockManager.AcquireLock).
func (l *Lock) Acquire(ctx context.Context, raiseOnContention bool) error {
	return l.mgr.AcquireLock(ctx, l.name, raiseOnContention)
}

// TryAcquire makes a single acquisition attempt.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	return l.mgr.TryAcquireLock(ctx, l.name)
}

// Release releases the lock.
func (l *Lock) Release(ctx context.Context) error {
	return l.mgr.ReleaseLock(ctx, l.name)
}

// Delete removes the lock counter unconditionally.
func (l *Lock) Delete(ctx context.Context) error {
	return l.mgr.DeleteLock(ctx, l.name)
}

// IsLocked reports whether the lock is currently held.
func (l *Lock) IsLocked(ctx context.Context) (bool, error) {
	return l.mgr.IsLocked(ctx, l.name)
}

// Do runs fn while holding the lock. The lock is released on every exit path,
// including a panic in fn. Errors of fn and of the release are joined.
func (l *Lock) Do(ctx context.Context, raiseOnContention bool, fn func(ctx context.Context) error) (err error) {
	if err := l.Acquire(ctx, raiseOnContention); err != nil {
		return err
	}
	defer func() {
		// release with a fresh context so a cancelled ctx does not leak the lock
		if relErr := l.Release(context.WithoutCancel(ctx)); relErr != nil {
			err = errors.Join(err, fmt.Errorf("release %s: %w", l.name, relErr))
		}
	}()
	return fn(ctx)
}
