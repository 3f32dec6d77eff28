package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/ValentinKolb/dCol/lib/codec"
	"github.com/ValentinKolb/dCol/lib/common"
	"github.com/ValentinKolb/dCol/lib/conn"
	"github.com/ValentinKolb/dCol/lib/lockmgr"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("collections")

var iterationConflictsTotal = metrics.NewCounter("dcol_iteration_conflicts_total")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Layout selects how a Mapping is stored.
type Layout uint8

const (
	// LayoutHash stores all entries as fields of one remote hash named after the collection.
	LayoutHash Layout = iota
	// LayoutKeyspace stores every entry as its own remote key "name\x1fencodedKey".
	LayoutKeyspace
)

func (l Layout) String() string {
	switch l {
	case LayoutHash:
		return "hash"
	case LayoutKeyspace:
		return "keyspace"
	default:
		return "unknown"
	}
}

type options struct {
	endpoint   *backend.Endpoint
	keyCodec   codec.ICodec
	valueCodec codec.ICodec
	layout     Layout
	persistent bool
	lockOpts   lockmgr.Options
}

// Option configures a collection handle.
type Option func(*options)

// WithEndpoint selects the store endpoint (default: the pool default).
func WithEndpoint(ep backend.Endpoint) Option {
	return func(o *options) { o.endpoint = &ep }
}

// WithKeyCodec selects the codec for Mapping keys (default: json).
// The codec must be deterministic.
func WithKeyCodec(c codec.ICodec) Option {
	return func(o *options) { o.keyCodec = c }
}

// WithValueCodec selects the codec for values (default: gob).
func WithValueCodec(c codec.ICodec) Option {
	return func(o *options) { o.valueCodec = c }
}

// WithKeyspaceLayout stores a Mapping as one remote key per entry instead of one hash.
func WithKeyspaceLayout() Option {
	return func(o *options) { o.layout = LayoutKeyspace }
}

// WithLockOptions sets the spin policy of the collection lock.
func WithLockOptions(opts lockmgr.Options) Option {
	return func(o *options) { o.lockOpts = opts }
}

// Persistent keeps the remote data when the handle is closed or the pool shuts down.
// The lock is still removed.
func Persistent() Option {
	return func(o *options) { o.persistent = true }
}

// OptionsFromConfig translates codec names and the lock policy of cfg into options.
func OptionsFromConfig(cfg common.ClientConfig) ([]Option, error) {
	keys, err := codec.FromName(cfg.KeyCodec)
	if err != nil {
		return nil, fmt.Errorf("key codec: %w", err)
	}
	values, err := codec.FromName(cfg.ValueCodec)
	if err != nil {
		return nil, fmt.Errorf("value codec: %w", err)
	}
	return []Option{
		WithKeyCodec(keys),
		WithValueCodec(values),
		WithLockOptions(lockmgr.OptionsFromConfig(cfg)),
	}, nil
}

// --------------------------------------------------------------------------
// Shared handle state
// --------------------------------------------------------------------------

// object holds what Mapping and Sequence have in common: the name, the backend
// source, the codecs, the lock and the registration in the pool.
type object struct {
	id         string
	name       string
	pool       *conn.Pool
	src        backend.Source
	keys       codec.ICodec
	values     codec.ICodec
	lock       *lockmgr.Lock
	persistent bool
	purge      func(ctx context.Context) error
	closed     atomic.Bool
}

func newObject(pool *conn.Pool, name string, opts []Option) (*object, options, error) {
	if pool == nil {
		return nil, options{}, errors.New("collections: nil pool")
	}
	if name == "" {
		return nil, options{}, errors.New("collections: empty collection name")
	}
	if strings.Contains(name, keyspaceSep) {
		return nil, options{}, fmt.Errorf("collections: collection name %q contains the reserved separator 0x1f", name)
	}

	o := options{
		keyCodec:   codec.NewJSONCodec(),
		valueCodec: codec.NewGOBCodec(),
		lockOpts:   lockmgr.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ep := pool.Default()
	if o.endpoint != nil {
		ep = *o.endpoint
	}
	src := pool.Source(ep)

	obj := &object{
		id:         uuid.NewString(),
		name:       name,
		pool:       pool,
		src:        src,
		keys:       o.keyCodec,
		values:     o.valueCodec,
		lock:       lockmgr.NewLock(lockmgr.NewLockManager(src, o.lockOpts), lockmgr.LockName(name)),
		persistent: o.persistent,
	}
	if err := pool.Register(obj); err != nil {
		return nil, options{}, err
	}

	Logger.Debugf("opened %s on %s (handle %s)", name, ep, obj.id)
	return obj, o, nil
}

// Name returns the collection name.
func (o *object) Name() string {
	return o.name
}

// Lock returns the cooperative lock of the collection.
func (o *object) Lock() *lockmgr.Lock {
	return o.lock
}

// WithLock runs fn while holding the collection lock (see lockmgr.Lock.Do).
func (o *object) WithLock(ctx context.Context, raiseOnContention bool, fn func(ctx context.Context) error) error {
	return o.lock.Do(ctx, raiseOnContention, fn)
}

// ID implements conn.Handle.
func (o *object) ID() string {
	return o.id
}

// Cleanup implements conn.Handle. It deletes the lock and, unless the handle is
// persistent, the remote data.
func (o *object) Cleanup(ctx context.Context) error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if err := o.lock.Delete(ctx); err != nil {
		errs = append(errs, err)
	}
	if !o.persistent && o.purge != nil {
		if err := o.purge(ctx); err != nil {
			errs = append(errs, fmt.Errorf("purge %s: %w", o.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the handle: it is removed from the pool registry and cleaned up.
// Closing twice is a no-op.
func (o *object) Close(ctx context.Context) error {
	o.pool.Unregister(o.id)
	return o.Cleanup(ctx)
}

func (o *object) backend(ctx context.Context) (backend.IBackend, error) {
	return o.src.Backend(ctx)
}

// Lockable is implemented by every collection.
type Lockable interface {
	Lock() *lockmgr.Lock
}

// WithLock runs fn while holding the lock of c.
func WithLock(ctx context.Context, c Lockable, raiseOnContention bool, fn func(ctx context.Context) error) error {
	return c.Lock().Do(ctx, raiseOnContention, fn)
}

// conflict records and returns a concurrent modification error
func conflict(name string) error {
	iterationConflictsTotal.Inc()
	Logger.Debugf("%s changed size during iteration", name)
	return fmt.Errorf("%w: %s", ErrConcurrentModification, name)
}
