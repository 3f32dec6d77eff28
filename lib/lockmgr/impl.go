package lockmgr

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/VictoriaMetrics/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("lockmgr")

var (
	acquiredTotal  = metrics.NewCounter("dcol_lock_acquired_total")
	contendedTotal = metrics.NewCounter("dcol_lock_contended_total")
)

// errContended marks a failed attempt that should be retried
var errContended = errors.New("lock contended")

type lockMgrImpl struct {
	src  backend.Source
	opts Options
}

// NewLockManager creates a lock manager on top of the given backend source.
// The manager has no state of its own, any number of managers may share a store.
func NewLockManager(src backend.Source, opts Options) ILockManager {
	return &lockMgrImpl{
		src:  src,
		opts: opts,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lockmgr.ILockManager)
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) AcquireLock(ctx context.Context, name string, raiseOnContention bool) error {
	if raiseOnContention {
		ok, err := lm.TryAcquireLock(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrLockInUse, name)
		}
		return nil
	}

	attempts := 0
	op := func() error {
		attempts++
		ok, err := lm.TryAcquireLock(ctx, name)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return errContended
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(lm.opts.newBackOff(), ctx))
	switch {
	case err == nil:
		if attempts > 1 {
			Logger.Debugf("acquired %s after %d attempts", name, attempts)
		}
		return nil
	case errors.Is(err, errContended):
		return fmt.Errorf("%w: %s (gave up after %d attempts)", ErrLockInUse, name, attempts)
	default:
		return err
	}
}

func (lm *lockMgrImpl) TryAcquireLock(ctx context.Context, name string) (bool, error) {
	store, err := lm.src.Backend(ctx)
	if err != nil {
		return false, err
	}

	value, err := store.Incr(ctx, name)
	if err != nil {
		return false, fmt.Errorf("increment lock %s: %w", name, err)
	}
	if value == 1 {
		acquiredTotal.Inc()
		return true, nil
	}

	// Someone else holds the lock, undo our increment
	contendedTotal.Inc()
	Logger.Debugf("lock %s is contended (counter %d)", name, value)
	if _, err := store.Decr(ctx, name); err != nil {
		return false, fmt.Errorf("undo increment of lock %s: %w", name, err)
	}
	return false, nil
}

func (lm *lockMgrImpl) ReleaseLock(ctx context.Context, name string) error {
	store, err := lm.src.Backend(ctx)
	if err != nil {
		return err
	}

	found, err := store.Exists(ctx, name)
	if err != nil || !found {
		return err
	}

	value, err := store.Decr(ctx, name)
	if err != nil {
		return fmt.Errorf("decrement lock %s: %w", name, err)
	}
	if value < 0 {
		// nobody held the lock, restore the quiescent counter
		if _, err := store.Incr(ctx, name); err != nil {
			return fmt.Errorf("restore lock %s: %w", name, err)
		}
		return fmt.Errorf("%w: %s", ErrNotHeld, name)
	}
	return nil
}

func (lm *lockMgrImpl) DeleteLock(ctx context.Context, name string) error {
	store, err := lm.src.Backend(ctx)
	if err != nil {
		return err
	}
	if _, err := store.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete lock %s: %w", name, err)
	}
	return nil
}

func (lm *lockMgrImpl) IsLocked(ctx context.Context, name string) (bool, error) {
	store, err := lm.src.Backend(ctx)
	if err != nil {
		return false, err
	}
	value, found, err := store.Get(ctx, name)
	if err != nil || !found {
		return false, err
	}
	counter, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return false, fmt.Errorf("lock %s holds no counter: %w", name, err)
	}
	return counter > 0, nil
}
