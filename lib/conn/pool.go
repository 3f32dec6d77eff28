package conn

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/ValentinKolb/dCol/lib/backend/rbackend"
	"github.com/ValentinKolb/dCol/lib/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("conn")

var (
	// ErrConnection is returned when a bounded reconnect policy gave up.
	// It is the same sentinel as backend.ErrConnection.
	ErrConnection = backend.ErrConnection
	// ErrPoolClosed is returned by every call after Shutdown.
	ErrPoolClosed = errors.New("connection pool is closed")
)

var (
	dialsTotal      = metrics.NewCounter("dcol_pool_dials_total")
	reconnectsTotal = metrics.NewCounter("dcol_pool_reconnects_total")
	dialErrorsTotal = metrics.NewCounter("dcol_pool_dial_errors_total")
)

// Dialer opens a new connection to ep.
type Dialer func(ctx context.Context, ep backend.Endpoint) (backend.IBackend, error)

// Handle is a resource that has to be cleaned up when the pool shuts down.
// The collections register themselves as handles.
type Handle interface {
	// ID identifies the handle in the registry.
	ID() string
	// Cleanup releases the remote state owned by the handle.
	Cleanup(ctx context.Context) error
}

// Options controls the reconnect policy of a Pool.
type Options struct {
	Default         backend.Endpoint // endpoint used by collections that do not name one
	MaxRetries      int              // 0 = retry forever
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// OptionsFromConfig derives pool options from a client configuration.
func OptionsFromConfig(cfg common.ClientConfig) Options {
	return Options{
		Default:         backend.Endpoint{Host: cfg.Host, Port: cfg.Port},
		MaxRetries:      cfg.ReconnectRetries,
		InitialInterval: time.Duration(cfg.ReconnectInitialMs) * time.Millisecond,
		MaxInterval:     time.Duration(cfg.ReconnectMaxMs) * time.Millisecond,
	}
}

// Pool keeps at most one live connection per endpoint and a registry of
// the handles that were opened on it.
type Pool struct {
	dial    Dialer
	opts    Options
	conns   *xsync.MapOf[backend.Endpoint, backend.IBackend]
	handles *xsync.MapOf[string, Handle]
	closed  atomic.Bool
}

// NewPool creates a pool that opens connections with dial.
func NewPool(dial Dialer, opts Options) *Pool {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 50 * time.Millisecond
	}
	if opts.MaxInterval < opts.InitialInterval {
		opts.MaxInterval = opts.InitialInterval
	}
	return &Pool{
		dial:    dial,
		opts:    opts,
		conns:   xsync.NewMapOf[backend.Endpoint, backend.IBackend](),
		handles: xsync.NewMapOf[string, Handle](),
	}
}

// NewRedisPool creates a pool of Redis connections configured by cfg.
func NewRedisPool(cfg common.ClientConfig) *Pool {
	dial := rbackend.Dialer(rbackend.Options{
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout(),
		ReadTimeout: cfg.ReadTimeout(),
	})
	return NewPool(dial, OptionsFromConfig(cfg))
}

// Default returns the endpoint used when a collection does not name one.
func (p *Pool) Default() backend.Endpoint {
	return p.opts.Default
}

// Get returns a healthy connection to ep. A cached connection is verified with a
// ping first; a dead one is discarded and replaced. Dialing is retried with
// exponential backoff until it succeeds, the retry limit is reached or ctx is done.
func (p *Pool) Get(ctx context.Context, ep backend.Endpoint) (backend.IBackend, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	if c, ok := p.conns.Load(ep); ok {
		err := c.Ping(ctx)
		if err == nil {
			return c, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		Logger.Warningf("connection to %s lost (%v), reconnecting", ep, err)
		reconnectsTotal.Inc()
		p.discard(ep, c)
	}

	return p.connect(ctx, ep)
}

// Source returns a backend.Source bound to ep.
func (p *Pool) Source(ep backend.Endpoint) backend.Source {
	return &endpointSource{pool: p, ep: ep}
}

// Register adds h to the shutdown registry.
func (p *Pool) Register(h Handle) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.handles.Store(h.ID(), h)
	return nil
}

// Unregister removes the handle with the given id from the registry.
func (p *Pool) Unregister(id string) {
	p.handles.Delete(id)
}

// Handles returns the number of registered handles.
func (p *Pool) Handles() int {
	return p.handles.Size()
}

// Shutdown runs the cleanup of every registered handle and closes all connections.
// All failures are collected and returned together. Calling Shutdown again is a no-op.
func (p *Pool) Shutdown(ctx context.Context) error {
	if p.closed.Load() {
		return nil
	}

	var errs []error
	p.handles.Range(func(id string, h Handle) bool {
		if err := h.Cleanup(ctx); err != nil {
			Logger.Errorf("cleanup of %s failed: %v", id, err)
			errs = append(errs, fmt.Errorf("cleanup %s: %w", id, err))
		}
		p.handles.Delete(id)
		return true
	})

	if !p.closed.CompareAndSwap(false, true) {
		return errors.Join(errs...)
	}

	p.conns.Range(func(ep backend.Endpoint, c backend.IBackend) bool {
		p.conns.Delete(ep)
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ep, err))
		}
		return true
	})

	Logger.Infof("connection pool shut down")
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// discard removes c from the cache unless another caller already replaced it.
func (p *Pool) discard(ep backend.Endpoint, c backend.IBackend) {
	removed := false
	p.conns.Compute(ep, func(old backend.IBackend, loaded bool) (backend.IBackend, bool) {
		if loaded && old == c {
			removed = true
			return nil, true
		}
		return old, !loaded
	})
	if removed {
		_ = c.Close()
	}
}

// connect dials ep with backoff and caches the result. If a concurrent caller
// connected first, the new connection is closed and the cached one returned.
func (p *Pool) connect(ctx context.Context, ep backend.Endpoint) (backend.IBackend, error) {
	attempts := 0
	op := func() (backend.IBackend, error) {
		attempts++
		dialsTotal.Inc()
		c, err := p.dial(ctx, ep)
		switch {
		case err == nil:
			return c, nil
		case ctx.Err() != nil:
			return nil, backoff.Permanent(ctx.Err())
		case !errors.Is(err, backend.ErrConnection):
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		dialErrorsTotal.Inc()
		Logger.Warningf("dial %s failed (attempt %d): %v, retrying in %s", ep, attempts, err, wait)
	}

	c, err := backoff.RetryNotifyWithData(op, p.newBackOff(ctx), notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, backend.ErrConnection) {
			return nil, fmt.Errorf("%w: giving up on %s after %d attempts: %v", ErrConnection, ep, attempts, err)
		}
		return nil, err
	}

	actual, loaded := p.conns.LoadOrStore(ep, c)
	if loaded {
		_ = c.Close()
		return actual, nil
	}
	if p.closed.Load() {
		p.conns.Delete(ep)
		_ = c.Close()
		return nil, ErrPoolClosed
	}

	Logger.Infof("connected to %s after %d attempt(s)", ep, attempts)
	return c, nil
}

// newBackOff builds the reconnect policy for a single connect call
func (p *Pool) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.opts.InitialInterval
	exp.MaxInterval = p.opts.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()

	var b backoff.BackOff = exp
	if p.opts.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.opts.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}

// endpointSource implements backend.Source for a single endpoint
type endpointSource struct {
	pool *Pool
	ep   backend.Endpoint
}

func (s *endpointSource) Backend(ctx context.Context) (backend.IBackend, error) {
	return s.pool.Get(ctx, s.ep)
}
