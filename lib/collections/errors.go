package collections

import "errors"

var (
	// ErrKeyNotFound is returned by Mapping lookups of a missing key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrNotFound is returned by Sequence searches that find no match.
	ErrNotFound = errors.New("value not found")
	// ErrIndexOutOfRange is returned for positional access outside the sequence.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrConcurrentModification is returned by an iterator when the collection
	// changed size while it was iterated.
	ErrConcurrentModification = errors.New("collection changed size during iteration")
	// ErrInvalidSlice is returned for a slice with step 0.
	ErrInvalidSlice = errors.New("slice step cannot be zero")
)
