package collections

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/ValentinKolb/dCol/lib/codec"
	"github.com/ValentinKolb/dCol/lib/conn"
	"github.com/google/uuid"
)

// Sequence is an ordered collection stored as one remote list.
// Indices follow the usual conventions: negative indices count from the end and
// positional access outside the sequence fails with ErrIndexOutOfRange.
//
// Sort, Reverse, DeleteSlice and SetTo read the whole sequence, compute the new
// content client side and rewrite the remote list. Concurrent readers may observe
// the sequence empty or partially written while the rewrite runs.
type Sequence[V any] struct {
	*object
	key string
}

// NewSequence opens a view of the sequence with the given name (see NewMapping).
func NewSequence[V any](pool *conn.Pool, name string, opts ...Option) (*Sequence[V], error) {
	obj, _, err := newObject(pool, name, opts)
	if err != nil {
		return nil, err
	}
	s := &Sequence[V]{
		object: obj,
		key:    name,
	}
	obj.purge = s.Clear
	return s, nil
}

// --------------------------------------------------------------------------
// Appending and positional access
// --------------------------------------------------------------------------

// Append adds value at the end.
func (s *Sequence[V]) Append(ctx context.Context, value V) error {
	return s.Extend(ctx, value)
}

// Extend adds all values at the end with a single remote call.
func (s *Sequence[V]) Extend(ctx context.Context, values ...V) error {
	if len(values) == 0 {
		return nil
	}
	data, err := s.encodeAll(values)
	if err != nil {
		return err
	}
	b, err := s.backend(ctx)
	if err != nil {
		return err
	}
	_, err = b.RPush(ctx, s.key, data...)
	return err
}

// Len returns the number of elements.
func (s *Sequence[V]) Len(ctx context.Context) (int, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return 0, err
	}
	n, err := b.LLen(ctx, s.key)
	return int(n), err
}

// Get returns the element at index.
func (s *Sequence[V]) Get(ctx context.Context, index int) (V, error) {
	var zero V
	b, err := s.backend(ctx)
	if err != nil {
		return zero, err
	}
	data, found, err := b.LIndex(ctx, s.key, int64(index))
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, fmt.Errorf("%w: index %d", ErrIndexOutOfRange, index)
	}
	return s.decode(data)
}

// SetAt overwrites the element at index.
func (s *Sequence[V]) SetAt(ctx context.Context, index int, value V) error {
	data, err := codec.EncodeValue(s.values, value)
	if err != nil {
		return err
	}
	b, err := s.backend(ctx)
	if err != nil {
		return err
	}
	err = b.LSet(ctx, s.key, int64(index), data)
	if errors.Is(err, errOutOfRange) || errors.Is(err, errNoSuchKey) {
		return fmt.Errorf("%w: index %d", ErrIndexOutOfRange, index)
	}
	return err
}

// Insert inserts value before index. Like a native insert the position is
// clamped: an index past the end appends, one before the start prepends.
func (s *Sequence[V]) Insert(ctx context.Context, index int, value V) error {
	data, err := codec.EncodeValue(s.values, value)
	if err != nil {
		return err
	}
	b, err := s.backend(ctx)
	if err != nil {
		return err
	}
	n, err := b.LLen(ctx, s.key)
	if err != nil {
		return err
	}

	pos := clampInsert(index, int(n))
	switch pos {
	case int(n):
		_, err = b.RPush(ctx, s.key, data)
		return err
	case 0:
		_, err = b.LPush(ctx, s.key, data)
		return err
	}

	// The store can only insert relative to a value, so the element at pos is
	// swapped for a unique marker, the value is inserted before the marker and
	// the original element is put back.
	original, found, err := b.LIndex(ctx, s.key, int64(pos))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: index %d", ErrIndexOutOfRange, index)
	}
	marker := newMarker()
	if err := b.LSet(ctx, s.key, int64(pos), marker); err != nil {
		return err
	}
	if length, err := b.LInsertBefore(ctx, s.key, marker, data); err != nil {
		return err
	} else if length <= 0 {
		return fmt.Errorf("insert into %s: position %d was modified concurrently", s.name, pos)
	}
	return b.LSet(ctx, s.key, int64(pos+1), original)
}

// Pop removes and returns the element at index.
func (s *Sequence[V]) Pop(ctx context.Context, index int) (V, error) {
	var zero V
	b, err := s.backend(ctx)
	if err != nil {
		return zero, err
	}
	n, err := b.LLen(ctx, s.key)
	if err != nil {
		return zero, err
	}
	pos, err := normIndex(index, int(n))
	if err != nil {
		return zero, err
	}

	var (
		data  []byte
		found bool
	)
	switch pos {
	case int(n) - 1:
		data, found, err = b.RPop(ctx, s.key)
	case 0:
		data, found, err = b.LPop(ctx, s.key)
	default:
		data, found, err = s.removeAt(ctx, b, pos)
	}
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, fmt.Errorf("%w: index %d", ErrIndexOutOfRange, index)
	}
	return s.decode(data)
}

// PopLast removes and returns the last element.
func (s *Sequence[V]) PopLast(ctx context.Context) (V, error) {
	return s.Pop(ctx, -1)
}

// DeleteAt removes the element at index.
func (s *Sequence[V]) DeleteAt(ctx context.Context, index int) error {
	_, err := s.Pop(ctx, index)
	return err
}

// --------------------------------------------------------------------------
// Searching
// --------------------------------------------------------------------------

// Index returns the position of the first element equal to value or ErrNotFound.
func (s *Sequence[V]) Index(ctx context.Context, value V) (int, error) {
	values, err := s.ToSlice(ctx)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		if equalValues(v, value) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %v in %s", ErrNotFound, value, s.name)
}

// Contains reports whether an element equal to value exists.
func (s *Sequence[V]) Contains(ctx context.Context, value V) (bool, error) {
	_, err := s.Index(ctx, value)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Count returns the number of elements equal to value.
func (s *Sequence[V]) Count(ctx context.Context, value V) (int, error) {
	values, err := s.ToSlice(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, v := range values {
		if equalValues(v, value) {
			count++
		}
	}
	return count, nil
}

// Remove removes the first element equal to value or returns ErrNotFound.
func (s *Sequence[V]) Remove(ctx context.Context, value V) error {
	index, err := s.Index(ctx, value)
	if err != nil {
		return err
	}
	_, err = s.Pop(ctx, index)
	return err
}

// --------------------------------------------------------------------------
// Whole sequence operations
// --------------------------------------------------------------------------

// ToSlice returns all elements.
func (s *Sequence[V]) ToSlice(ctx context.Context) ([]V, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}
	data, err := b.LRange(ctx, s.key, 0, -1)
	if err != nil {
		return nil, err
	}
	return s.decodeAll(data)
}

// Slice returns the elements selected by seq[start:stop:step]. Use Omit for an absent bound.
func (s *Sequence[V]) Slice(ctx context.Context, start, stop, step int) ([]V, error) {
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}
	n, err := b.LLen(ctx, s.key)
	if err != nil {
		return nil, err
	}
	indices, err := sliceIndices(start, stop, step, int(n))
	if err != nil || len(indices) == 0 {
		return []V{}, err
	}

	first, last := indices[0], indices[len(indices)-1]
	if first > last {
		first, last = last, first
	}
	data, err := b.LRange(ctx, s.key, int64(first), int64(last))
	if err != nil {
		return nil, err
	}

	result := make([]V, 0, len(indices))
	for _, i := range indices {
		if i-first >= len(data) {
			return nil, fmt.Errorf("%w: %s shrank while slicing", ErrIndexOutOfRange, s.name)
		}
		v, err := s.decode(data[i-first])
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// DeleteSlice removes the elements selected by seq[start:stop:step] (see Slice).
func (s *Sequence[V]) DeleteSlice(ctx context.Context, start, stop, step int) error {
	b, err := s.backend(ctx)
	if err != nil {
		return err
	}
	data, err := b.LRange(ctx, s.key, 0, -1)
	if err != nil {
		return err
	}
	indices, err := sliceIndices(start, stop, step, len(data))
	if err != nil || len(indices) == 0 {
		return err
	}

	drop := make([]bool, len(data))
	for _, i := range indices {
		drop[i] = true
	}
	keep := make([][]byte, 0, len(data)-len(indices))
	for i, d := range data {
		if !drop[i] {
			keep = append(keep, d)
		}
	}
	return s.rewrite(ctx, b, keep)
}

// Sort sorts the sequence by cmp (stable) and returns the sorted content.
func (s *Sequence[V]) Sort(ctx context.Context, cmp func(a, b V) int) ([]V, error) {
	if cmp == nil {
		return nil, errors.New("collections: Sort needs a compare function")
	}
	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}
	data, err := b.LRange(ctx, s.key, 0, -1)
	if err != nil {
		return nil, err
	}
	values, err := s.decodeAll(data)
	if err != nil {
		return nil, err
	}

	// sort positions so the already encoded elements can be written back as they are
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int { return cmp(values[i], values[j]) })

	sortedData := make([][]byte, len(order))
	sorted := make([]V, len(order))
	for i, pos := range order {
		sortedData[i] = data[pos]
		sorted[i] = values[pos]
	}
	return sorted, s.rewrite(ctx, b, sortedData)
}

// SortOrdered sorts a sequence of ordered values ascending.
func SortOrdered[V cmp.Ordered](ctx context.Context, s *Sequence[V]) ([]V, error) {
	return s.Sort(ctx, cmp.Compare[V])
}

// Reverse reverses the sequence.
func (s *Sequence[V]) Reverse(ctx context.Context) error {
	b, err := s.backend(ctx)
	if err != nil {
		return err
	}
	data, err := b.LRange(ctx, s.key, 0, -1)
	if err != nil {
		return err
	}
	slices.Reverse(data)
	return s.rewrite(ctx, b, data)
}

// Clear removes all elements. Clearing an empty sequence is not an error.
func (s *Sequence[V]) Clear(ctx context.Context) error {
	b, err := s.backend(ctx)
	if err != nil {
		return err
	}
	_, err = b.Delete(ctx, s.key)
	return err
}

// SetTo replaces the content of the sequence with values.
func (s *Sequence[V]) SetTo(ctx context.Context, values []V) error {
	data, err := s.encodeAll(values)
	if err != nil {
		return err
	}
	b, err := s.backend(ctx)
	if err != nil {
		return err
	}
	return s.rewrite(ctx, b, data)
}

// Equal reports whether the sequence has the same length as other and equal elements.
func (s *Sequence[V]) Equal(ctx context.Context, other []V) (bool, error) {
	values, err := s.ToSlice(ctx)
	if err != nil {
		return false, err
	}
	if len(values) != len(other) {
		return false, nil
	}
	for i := range values {
		if !equalValues(values[i], other[i]) {
			return false, nil
		}
	}
	return true, nil
}

// EqualSequence compares two remote sequences element-wise.
func (s *Sequence[V]) EqualSequence(ctx context.Context, other *Sequence[V]) (bool, error) {
	values, err := other.ToSlice(ctx)
	if err != nil {
		return false, err
	}
	return s.Equal(ctx, values)
}

// Concat returns the content of the sequence followed by other. The sequence is not modified.
func (s *Sequence[V]) Concat(ctx context.Context, other []V) ([]V, error) {
	values, err := s.ToSlice(ctx)
	if err != nil {
		return nil, err
	}
	return append(values, other...), nil
}

// ConcatSequence returns the content of both sequences.
func (s *Sequence[V]) ConcatSequence(ctx context.Context, other *Sequence[V]) ([]V, error) {
	values, err := other.ToSlice(ctx)
	if err != nil {
		return nil, err
	}
	return s.Concat(ctx, values)
}

// Iter iterates over the elements. The length is captured at the start and checked
// before every element. If it changed, the iteration ends with ErrConcurrentModification.
func (s *Sequence[V]) Iter(ctx context.Context) iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		var zero V
		n, err := s.Len(ctx)
		if err != nil {
			yield(zero, err)
			return
		}
		for i := 0; i < n; i++ {
			v, err := s.elementAt(ctx, i, n)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

var (
	errOutOfRange = backend.NewError(backend.RetCOutOfRange, "")
	errNoSuchKey  = backend.NewError(backend.RetCNoSuchKey, "")
)

// newMarker returns a value that cannot collide with an encoded element
func newMarker() []byte {
	return []byte("dcol:marker:" + uuid.NewString())
}

// removeAt removes the element at pos by swapping it for a marker and removing the marker.
func (s *Sequence[V]) removeAt(ctx context.Context, b backend.IBackend, pos int) ([]byte, bool, error) {
	data, found, err := b.LIndex(ctx, s.key, int64(pos))
	if err != nil || !found {
		return nil, false, err
	}
	marker := newMarker()
	if err := b.LSet(ctx, s.key, int64(pos), marker); err != nil {
		return nil, false, err
	}
	if _, err := b.LRem(ctx, s.key, 1, marker); err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// elementAt reads element i after checking that the length is still n
func (s *Sequence[V]) elementAt(ctx context.Context, i, n int) (V, error) {
	var zero V
	b, err := s.backend(ctx)
	if err != nil {
		return zero, err
	}
	current, err := b.LLen(ctx, s.key)
	if err != nil {
		return zero, err
	}
	if int(current) != n {
		return zero, conflict(s.name)
	}
	data, found, err := b.LIndex(ctx, s.key, int64(i))
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, conflict(s.name)
	}
	return s.decode(data)
}

// rewrite replaces the remote list with data
func (s *Sequence[V]) rewrite(ctx context.Context, b backend.IBackend, data [][]byte) error {
	if _, err := b.Delete(ctx, s.key); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err := b.RPush(ctx, s.key, data...)
	return err
}

func (s *Sequence[V]) decode(data []byte) (V, error) {
	v, _, err := codec.DecodeValue[V](s.values, data)
	return v, err
}

func (s *Sequence[V]) decodeAll(data [][]byte) ([]V, error) {
	values := make([]V, len(data))
	for i, d := range data {
		v, err := s.decode(d)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}

func (s *Sequence[V]) encodeAll(values []V) ([][]byte, error) {
	data := make([][]byte, len(values))
	for i, v := range values {
		d, err := codec.EncodeValue(s.values, v)
		if err != nil {
			return nil, err
		}
		data[i] = d
	}
	return data, nil
}
