package lockmgr

import (
	"time"

	"github.com/ValentinKolb/dCol/lib/common"
	"github.com/cenkalti/backoff/v4"
)

// lockSuffix is appended to a collection name to form its lock name
const lockSuffix = "LOCK"

// LockName returns the name of the lock guarding the collection with the given name.
func LockName(collection string) string {
	return collection + lockSuffix
}

// Options controls how a blocking acquire spins.
type Options struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxAttempts    int // 0 = spin until the context is done
}

// DefaultOptions returns the spin policy of DefaultClientConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(common.DefaultClientConfig())
}

// OptionsFromConfig derives the spin policy from a client configuration.
func OptionsFromConfig(cfg common.ClientConfig) Options {
	return Options{
		InitialBackoff: time.Duration(cfg.LockInitialBackoffUs) * time.Microsecond,
		MaxBackoff:     time.Duration(cfg.LockMaxBackoffUs) * time.Microsecond,
		MaxAttempts:    cfg.LockMaxAttempts,
	}
}

// newBackOff creates a fresh capped exponential backoff with jitter
func (o Options) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if o.InitialBackoff > 0 {
		exp.InitialInterval = o.InitialBackoff
	}
	if o.MaxBackoff > 0 {
		exp.MaxInterval = o.MaxBackoff
	}
	if exp.MaxInterval < exp.InitialInterval {
		exp.MaxInterval = exp.InitialInterval
	}
	exp.MaxElapsedTime = 0
	exp.Reset()

	if o.MaxAttempts > 0 {
		return backoff.WithMaxRetries(exp, uint64(o.MaxAttempts-1))
	}
	return exp
}
