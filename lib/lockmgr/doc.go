// Package lockmgr implements the cooperative lock used to bracket groups of
// remote operations on a collection.
//
// A lock is a named integer counter in the store. The lock manager only ever
// stores in the provided backend and has no other internal state, so it is safe
// to create any number of managers on the same store.
//
// Implementation Approach:
//
//	- Acquisition: Atomically increment the counter. A post-increment value of 1
//	  means the caller holds the lock. Any other value means the lock is held by
//	  someone else, the increment is undone with a decrement.
//
//	- Contention: In blocking mode the attempt is repeated with capped exponential
//	  backoff and jitter until it succeeds, Options.MaxAttempts is reached or the
//	  context is done. In non-blocking mode (raiseOnContention) the first failed
//	  attempt returns ErrLockInUse.
//
//	- Release: If the counter still exists it is decremented back towards zero.
//
//	- Deletion: DeleteLock removes the counter unconditionally.
//
// Guarantees:
//
//	This is not a fencing or consensus lock. It only excludes other callers that
//	follow the same convention and offers no protection against parties that write
//	without acquiring. If a holder crashes between acquire and release the counter
//	stays elevated and every later acquire fails until DeleteLock is called. The
//	collections call DeleteLock as part of their cleanup for exactly this reason.
//
// Usage Example:
//
//	mgr := lockmgr.NewLockManager(pool.Source(pool.Default()), lockmgr.DefaultOptions())
//	lock := lockmgr.NewLock(mgr, lockmgr.LockName("users"))
//
//	err := lock.Do(ctx, false, func(ctx context.Context) error {
//	    // read-modify-write the "users" collection
//	    return nil
//	})
package lockmgr
