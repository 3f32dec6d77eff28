package collections

import (
	"context"
	"strings"

	"github.com/ValentinKolb/dCol/lib/backend"
)

// layout maps the entries of a Mapping onto remote primitives.
// Fields are encoded keys.
type layout interface {
	get(ctx context.Context, b backend.IBackend, field string) ([]byte, bool, error)
	set(ctx context.Context, b backend.IBackend, field string, value []byte) error
	del(ctx context.Context, b backend.IBackend, fields ...string) (int64, error)
	exists(ctx context.Context, b backend.IBackend, field string) (bool, error)
	fields(ctx context.Context, b backend.IBackend) ([]string, error)
	all(ctx context.Context, b backend.IBackend) (map[string][]byte, error)
	length(ctx context.Context, b backend.IBackend) (int, error)
	clear(ctx context.Context, b backend.IBackend) error
}

// keyspaceSep separates the collection name from the encoded key in the keyspace
// layout. Collection names must not contain it, so the prefix of one collection is
// never the prefix of another one.
const keyspaceSep = "\x1f"

func newLayout(l Layout, name string) layout {
	if l == LayoutKeyspace {
		return &keyspaceLayout{prefix: name + keyspaceSep}
	}
	return &hashLayout{key: name}
}

// --------------------------------------------------------------------------
// Hash layout: one remote hash per collection
// --------------------------------------------------------------------------

type hashLayout struct {
	key string
}

func (h *hashLayout) get(ctx context.Context, b backend.IBackend, field string) ([]byte, bool, error) {
	return b.HGet(ctx, h.key, field)
}

func (h *hashLayout) set(ctx context.Context, b backend.IBackend, field string, value []byte) error {
	return b.HSet(ctx, h.key, field, value)
}

func (h *hashLayout) del(ctx context.Context, b backend.IBackend, fields ...string) (int64, error) {
	return b.HDel(ctx, h.key, fields...)
}

func (h *hashLayout) exists(ctx context.Context, b backend.IBackend, field string) (bool, error) {
	return b.HExists(ctx, h.key, field)
}

func (h *hashLayout) fields(ctx context.Context, b backend.IBackend) ([]string, error) {
	return b.HKeys(ctx, h.key)
}

func (h *hashLayout) all(ctx context.Context, b backend.IBackend) (map[string][]byte, error) {
	return b.HGetAll(ctx, h.key)
}

func (h *hashLayout) length(ctx context.Context, b backend.IBackend) (int, error) {
	n, err := b.HLen(ctx, h.key)
	return int(n), err
}

func (h *hashLayout) clear(ctx context.Context, b backend.IBackend) error {
	_, err := b.Delete(ctx, h.key)
	return err
}

// --------------------------------------------------------------------------
// Keyspace layout: one remote key per entry
// --------------------------------------------------------------------------

type keyspaceLayout struct {
	prefix string
}

func (k *keyspaceLayout) get(ctx context.Context, b backend.IBackend, field string) ([]byte, bool, error) {
	return b.Get(ctx, k.prefix+field)
}

func (k *keyspaceLayout) set(ctx context.Context, b backend.IBackend, field string, value []byte) error {
	return b.Set(ctx, k.prefix+field, value)
}

func (k *keyspaceLayout) del(ctx context.Context, b backend.IBackend, fields ...string) (int64, error) {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = k.prefix + f
	}
	return b.Delete(ctx, keys...)
}

func (k *keyspaceLayout) exists(ctx context.Context, b backend.IBackend, field string) (bool, error) {
	return b.Exists(ctx, k.prefix+field)
}

func (k *keyspaceLayout) fields(ctx context.Context, b backend.IBackend) ([]string, error) {
	keys, err := b.ScanPrefix(ctx, k.prefix)
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		keys[i] = strings.TrimPrefix(key, k.prefix)
	}
	return keys, nil
}

// all reads every entry with one call per key. Entries deleted between the scan
// and the read are skipped.
func (k *keyspaceLayout) all(ctx context.Context, b backend.IBackend) (map[string][]byte, error) {
	fields, err := k.fields(ctx, b)
	if err != nil {
		return nil, err
	}
	pairs := make(map[string][]byte, len(fields))
	for _, f := range fields {
		value, found, err := b.Get(ctx, k.prefix+f)
		if err != nil {
			return nil, err
		}
		if found {
			pairs[f] = value
		}
	}
	return pairs, nil
}

func (k *keyspaceLayout) length(ctx context.Context, b backend.IBackend) (int, error) {
	keys, err := b.ScanPrefix(ctx, k.prefix)
	return len(keys), err
}

func (k *keyspaceLayout) clear(ctx context.Context, b backend.IBackend) error {
	keys, err := b.ScanPrefix(ctx, k.prefix)
	if err != nil || len(keys) == 0 {
		return err
	}
	_, err = b.Delete(ctx, keys...)
	return err
}
