package collections

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/ValentinKolb/dCol/lib/codec"
	"github.com/ValentinKolb/dCol/lib/conn"
)

// Item is a key/value pair of a Mapping.
type Item[K, V any] struct {
	Key   K
	Value V
}

// Mapping is an associative collection stored entirely in the remote store.
// Keys are compared by their encoded bytes. No data is cached client side,
// every call reads or writes through to the store.
type Mapping[K, V any] struct {
	*object
	layout layout
}

// NewMapping opens a view of the mapping with the given name. No remote state is
// created until the first write. The handle is registered in pool and cleaned up
// by Close or pool.Shutdown.
func NewMapping[K, V any](pool *conn.Pool, name string, opts ...Option) (*Mapping[K, V], error) {
	obj, o, err := newObject(pool, name, opts)
	if err != nil {
		return nil, err
	}
	m := &Mapping[K, V]{
		object: obj,
		layout: newLayout(o.layout, name),
	}
	obj.purge = m.Clear
	return m, nil
}

// --------------------------------------------------------------------------
// Single key operations
// --------------------------------------------------------------------------

// Lookup returns the value stored at key. found is false if the key does not exist,
// which is distinct from a stored zero value.
func (m *Mapping[K, V]) Lookup(ctx context.Context, key K) (value V, found bool, err error) {
	field, err := m.field(key)
	if err != nil {
		return value, false, err
	}
	b, err := m.backend(ctx)
	if err != nil {
		return value, false, err
	}
	data, found, err := m.layout.get(ctx, b, field)
	if err != nil || !found {
		return value, false, err
	}
	value, _, err = codec.DecodeValue[V](m.values, data)
	return value, err == nil, err
}

// Get returns the value stored at key or ErrKeyNotFound.
func (m *Mapping[K, V]) Get(ctx context.Context, key K) (V, error) {
	value, found, err := m.Lookup(ctx, key)
	if err == nil && !found {
		err = fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	return value, err
}

// GetOr returns the value stored at key or def if the key does not exist.
func (m *Mapping[K, V]) GetOr(ctx context.Context, key K, def V) (V, error) {
	value, found, err := m.Lookup(ctx, key)
	if err != nil {
		return value, err
	}
	if !found {
		return def, nil
	}
	return value, nil
}

// Set stores value at key. Zero values are stored like any other value.
func (m *Mapping[K, V]) Set(ctx context.Context, key K, value V) error {
	field, err := m.field(key)
	if err != nil {
		return err
	}
	data, err := codec.EncodeValue(m.values, value)
	if err != nil {
		return err
	}
	b, err := m.backend(ctx)
	if err != nil {
		return err
	}
	return m.layout.set(ctx, b, field, data)
}

// Delete removes key and reports whether it existed.
func (m *Mapping[K, V]) Delete(ctx context.Context, key K) (bool, error) {
	field, err := m.field(key)
	if err != nil {
		return false, err
	}
	b, err := m.backend(ctx)
	if err != nil {
		return false, err
	}
	n, err := m.layout.del(ctx, b, field)
	return n > 0, err
}

// Contains reports whether key exists.
func (m *Mapping[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	field, err := m.field(key)
	if err != nil {
		return false, err
	}
	b, err := m.backend(ctx)
	if err != nil {
		return false, err
	}
	return m.layout.exists(ctx, b, field)
}

// Pop removes key and returns its value. It fails with ErrKeyNotFound if key does not exist.
// The read and the delete are two separate remote calls.
func (m *Mapping[K, V]) Pop(ctx context.Context, key K) (V, error) {
	value, err := m.Get(ctx, key)
	if err != nil {
		return value, err
	}
	_, err = m.Delete(ctx, key)
	return value, err
}

// PopOr is Pop returning def instead of ErrKeyNotFound.
func (m *Mapping[K, V]) PopOr(ctx context.Context, key K, def V) (V, error) {
	value, found, err := m.Lookup(ctx, key)
	if err != nil {
		return value, err
	}
	if !found {
		return def, nil
	}
	_, err = m.Delete(ctx, key)
	return value, err
}

// PopItem removes and returns an arbitrary entry. It fails with ErrKeyNotFound
// if the mapping is empty.
func (m *Mapping[K, V]) PopItem(ctx context.Context) (Item[K, V], error) {
	var item Item[K, V]
	b, err := m.backend(ctx)
	if err != nil {
		return item, err
	}
	fields, err := m.layout.fields(ctx, b)
	if err != nil {
		return item, err
	}

	for _, field := range fields {
		data, found, err := m.layout.get(ctx, b, field)
		if err != nil {
			return item, err
		}
		if !found {
			// removed by someone else in the meantime
			continue
		}
		if item.Key, err = m.decodeField(field); err != nil {
			return item, err
		}
		if item.Value, _, err = codec.DecodeValue[V](m.values, data); err != nil {
			return item, err
		}
		_, err = m.layout.del(ctx, b, field)
		return item, err
	}
	return item, fmt.Errorf("%w: %s is empty", ErrKeyNotFound, m.name)
}

// SetDefault returns the value at key. If the key does not exist def is stored and returned.
func (m *Mapping[K, V]) SetDefault(ctx context.Context, key K, def V) (V, error) {
	value, found, err := m.Lookup(ctx, key)
	if err != nil || found {
		return value, err
	}
	return def, m.Set(ctx, key, def)
}

// --------------------------------------------------------------------------
// Whole collection operations
// --------------------------------------------------------------------------

// Len returns the number of entries.
func (m *Mapping[K, V]) Len(ctx context.Context) (int, error) {
	b, err := m.backend(ctx)
	if err != nil {
		return 0, err
	}
	return m.layout.length(ctx, b)
}

// Keys returns all keys in store order.
func (m *Mapping[K, V]) Keys(ctx context.Context) ([]K, error) {
	b, err := m.backend(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := m.layout.fields(ctx, b)
	if err != nil {
		return nil, err
	}
	keys := make([]K, 0, len(fields))
	for _, field := range fields {
		key, err := m.decodeField(field)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// SortedKeys returns all keys ordered by cmp. A nil cmp orders by encoded key bytes.
func (m *Mapping[K, V]) SortedKeys(ctx context.Context, cmp func(a, b K) int) ([]K, error) {
	if cmp != nil {
		keys, err := m.Keys(ctx)
		if err != nil {
			return nil, err
		}
		slices.SortFunc(keys, cmp)
		return keys, nil
	}

	b, err := m.backend(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := m.layout.fields(ctx, b)
	if err != nil {
		return nil, err
	}
	slices.Sort(fields)
	keys := make([]K, 0, len(fields))
	for _, field := range fields {
		key, err := m.decodeField(field)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Values returns all values.
func (m *Mapping[K, V]) Values(ctx context.Context) ([]V, error) {
	items, err := m.Items(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]V, len(items))
	for i, item := range items {
		values[i] = item.Value
	}
	return values, nil
}

// Items returns all entries.
func (m *Mapping[K, V]) Items(ctx context.Context) ([]Item[K, V], error) {
	b, err := m.backend(ctx)
	if err != nil {
		return nil, err
	}
	pairs, err := m.layout.all(ctx, b)
	if err != nil {
		return nil, err
	}
	items := make([]Item[K, V], 0, len(pairs))
	for field, data := range pairs {
		key, err := m.decodeField(field)
		if err != nil {
			return nil, err
		}
		value, _, err := codec.DecodeValue[V](m.values, data)
		if err != nil {
			return nil, err
		}
		items = append(items, Item[K, V]{Key: key, Value: value})
	}
	return items, nil
}

// Clear removes all entries. Clearing an empty mapping is not an error.
func (m *Mapping[K, V]) Clear(ctx context.Context) error {
	b, err := m.backend(ctx)
	if err != nil {
		return err
	}
	return m.layout.clear(ctx, b)
}

// Update stores all items, later items win. The items are written one by one.
func (m *Mapping[K, V]) Update(ctx context.Context, items ...Item[K, V]) error {
	for _, item := range items {
		if err := m.Set(ctx, item.Key, item.Value); err != nil {
			return err
		}
	}
	return nil
}

// UpdateFrom copies all entries of other into m.
func (m *Mapping[K, V]) UpdateFrom(ctx context.Context, other *Mapping[K, V]) error {
	items, err := other.Items(ctx)
	if err != nil {
		return err
	}
	return m.Update(ctx, items...)
}

// SetTo replaces the content of m with items. Readers may observe the mapping
// empty or partially written while SetTo runs.
func (m *Mapping[K, V]) SetTo(ctx context.Context, items ...Item[K, V]) error {
	if err := m.Clear(ctx); err != nil {
		return err
	}
	return m.Update(ctx, items...)
}

// Equal reports whether other has the same key set and equal values for every key.
// Every key of m is looked up in other, the storage order does not matter.
func (m *Mapping[K, V]) Equal(ctx context.Context, other *Mapping[K, V]) (bool, error) {
	items, err := m.Items(ctx)
	if err != nil {
		return false, err
	}
	n, err := other.Len(ctx)
	if err != nil || n != len(items) {
		return false, err
	}
	for _, item := range items {
		value, found, err := other.Lookup(ctx, item.Key)
		if err != nil || !found {
			return false, err
		}
		if !equalValues(item.Value, value) {
			return false, nil
		}
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Iteration
// --------------------------------------------------------------------------

// Iter iterates over the keys. The key set is captured at the start and compared
// with the current key set before every element. If it changed, the iteration ends
// with ErrConcurrentModification. Changes of values are not detected.
func (m *Mapping[K, V]) Iter(ctx context.Context) iter.Seq2[K, error] {
	return m.iterKeys(ctx, false)
}

// Reversed iterates over the keys in reverse store order (see Iter).
func (m *Mapping[K, V]) Reversed(ctx context.Context) iter.Seq2[K, error] {
	return m.iterKeys(ctx, true)
}

// IterItems iterates over the entries (see Iter).
func (m *Mapping[K, V]) IterItems(ctx context.Context) iter.Seq2[Item[K, V], error] {
	return func(yield func(Item[K, V], error) bool) {
		err := m.walk(ctx, false, func(b backend.IBackend, field string) bool {
			item, err := m.readItem(ctx, b, field)
			if err != nil {
				yield(item, err)
				return false
			}
			return yield(item, nil)
		})
		if err != nil {
			yield(Item[K, V]{}, err)
		}
	}
}

// IterValues iterates over the values (see Iter).
func (m *Mapping[K, V]) IterValues(ctx context.Context) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		for item, err := range m.IterItems(ctx) {
			if !yield(item.Value, err) || err != nil {
				return
			}
		}
	}
}

func (m *Mapping[K, V]) iterKeys(ctx context.Context, reverse bool) iter.Seq2[K, error] {
	return func(yield func(K, error) bool) {
		var zero K
		err := m.walk(ctx, reverse, func(_ backend.IBackend, field string) bool {
			key, err := m.decodeField(field)
			if err != nil {
				yield(zero, err)
				return false
			}
			return yield(key, nil)
		})
		if err != nil {
			yield(zero, err)
		}
	}
}

// walk captures the field set and calls visit for every field as long as the
// current field set still equals the captured one. It stops when visit returns false.
func (m *Mapping[K, V]) walk(ctx context.Context, reverse bool, visit func(b backend.IBackend, field string) bool) error {
	b, err := m.backend(ctx)
	if err != nil {
		return err
	}
	fields, err := m.layout.fields(ctx, b)
	if err != nil {
		return err
	}
	captured := slices.Sorted(slices.Values(fields))
	if reverse {
		slices.Reverse(fields)
	}

	for _, field := range fields {
		b, err := m.backend(ctx)
		if err != nil {
			return err
		}
		current, err := m.layout.fields(ctx, b)
		if err != nil {
			return err
		}
		slices.Sort(current)
		if !slices.Equal(captured, current) {
			return conflict(m.name)
		}
		if !visit(b, field) {
			return nil
		}
	}
	return nil
}

// readItem reads and decodes the entry stored under field
func (m *Mapping[K, V]) readItem(ctx context.Context, b backend.IBackend, field string) (Item[K, V], error) {
	var item Item[K, V]
	data, found, err := m.layout.get(ctx, b, field)
	if err != nil {
		return item, err
	}
	if !found {
		return item, conflict(m.name)
	}
	if item.Key, err = m.decodeField(field); err != nil {
		return item, err
	}
	item.Value, _, err = codec.DecodeValue[V](m.values, data)
	return item, err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (m *Mapping[K, V]) field(key K) (string, error) {
	data, err := codec.EncodeKey(m.keys, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (m *Mapping[K, V]) decodeField(field string) (K, error) {
	return codec.DecodeKey[K](m.keys, []byte(field))
}

// --------------------------------------------------------------------------
// Native map interop
// --------------------------------------------------------------------------

// ToMap returns a snapshot of m as native map.
func ToMap[K comparable, V any](ctx context.Context, m *Mapping[K, V]) (map[K]V, error) {
	items, err := m.Items(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[K]V, len(items))
	for _, item := range items {
		result[item.Key] = item.Value
	}
	return result, nil
}

// UpdateFromMap stores every entry of src in m.
func UpdateFromMap[K comparable, V any](ctx context.Context, m *Mapping[K, V], src map[K]V) error {
	for key, value := range src {
		if err := m.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// SetToMap replaces the content of m with src.
func SetToMap[K comparable, V any](ctx context.Context, m *Mapping[K, V], src map[K]V) error {
	if err := m.Clear(ctx); err != nil {
		return err
	}
	return UpdateFromMap(ctx, m, src)
}

// EqualMap reports whether m and d have the same key set and equal values for every key.
func EqualMap[K comparable, V any](ctx context.Context, m *Mapping[K, V], d map[K]V) (bool, error) {
	n, err := m.Len(ctx)
	if err != nil || n != len(d) {
		return false, err
	}
	for key, want := range d {
		value, found, err := m.Lookup(ctx, key)
		if err != nil || !found {
			return false, err
		}
		if !equalValues(value, want) {
			return false, nil
		}
	}
	return true, nil
}
