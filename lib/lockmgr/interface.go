package lockmgr

import (
	"context"
	"errors"
)

// ILockManager defines the interface for a cooperative lock provider.
type ILockManager interface {
	// AcquireLock acquires the lock with the given name.
	// If raiseOnContention is set a single failed attempt returns ErrLockInUse,
	// otherwise the call spins with backoff until the lock is free, the attempt
	// limit is reached or ctx is done.
	AcquireLock(ctx context.Context, name string, raiseOnContention bool) (err error)

	// TryAcquireLock makes a single attempt and reports whether the lock was acquired.
	TryAcquireLock(ctx context.Context, name string) (ok bool, err error)

	// ReleaseLock releases the lock with the given name.
	// Releasing a lock that does not exist is not an error.
	ReleaseLock(ctx context.Context, name string) (err error)

	// DeleteLock removes the lock counter unconditionally. This is the recovery path
	// for a counter left behind by a crashed holder.
	DeleteLock(ctx context.Context, name string) (err error)

	// IsLocked reports whether someone currently holds the lock.
	IsLocked(ctx context.Context, name string) (locked bool, err error)
}

var (
	// ErrLockInUse is returned when the lock is held by someone else and the
	// caller asked not to wait (or the attempt limit was reached).
	ErrLockInUse = errors.New("lock in use")
	// ErrNotHeld is returned when a lock is released that nobody holds.
	ErrNotHeld = errors.New("lock not held")
)
