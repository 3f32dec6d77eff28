package codec

import (
	"errors"
	"fmt"
)

// ICodec is the interface for all value <-> byte converters.
type ICodec interface {
	// Marshal serializes v into bytes.
	// It returns the serialized byte array and an error if any
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes data into v (must be a pointer).
	// It returns an error if any
	Unmarshal(data []byte, v any) error
	// Name returns the codec identifier (used in config and diagnostics).
	Name() string
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrSerialization is returned when a value cannot be encoded.
	ErrSerialization = errors.New("serialization error")
	// ErrDeserialization is returned when bytes cannot be decoded into the requested type.
	ErrDeserialization = errors.New("deserialization error")
)

// --------------------------------------------------------------------------
// Factory
// --------------------------------------------------------------------------

// FromName returns the codec registered under name (gob, json, binary).
func FromName(name string) (ICodec, error) {
	switch name {
	case "gob":
		return NewGOBCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	case "binary":
		return NewBinaryCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s", name)
	}
}

// --------------------------------------------------------------------------
// Key / Value helpers
// --------------------------------------------------------------------------

// EncodeKey encodes a key. Keys are addressed by their bytes, so the codec must
// produce identical bytes for equal keys.
//
// With an interface key type (K = any) DecodeKey cannot know the original type and
// returns the natural type of the codec: json yields float64 for every number,
// binary yields int64, uint64 or float64. Re-encoding such a decoded key produces
// the same bytes, so it still addresses the same entry. Use a concrete K to get the
// original type back.
func EncodeKey[K any](c ICodec, key K) ([]byte, error) {
	data, err := c.Marshal(&key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s codec: key %v: %v", ErrSerialization, c.Name(), key, err)
	}
	return data, nil
}

// DecodeKey decodes a key produced by EncodeKey.
func DecodeKey[K any](c ICodec, data []byte) (K, error) {
	var key K
	if err := c.Unmarshal(data, &key); err != nil {
		return key, fmt.Errorf("%w: %s codec: key: %v", ErrDeserialization, c.Name(), err)
	}
	return key, nil
}

// EncodeValue encodes a value. The pointer is passed on so interface typed values
// keep their dynamic type with codecs that support it (gob).
func EncodeValue[V any](c ICodec, value V) ([]byte, error) {
	data, err := c.Marshal(&value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s codec: value of type %T: %v", ErrSerialization, c.Name(), value, err)
	}
	return data, nil
}

// DecodeValue decodes a value produced by EncodeValue.
// A nil data slice means "no value": it returns the zero value and found=false.
func DecodeValue[V any](c ICodec, data []byte) (value V, found bool, err error) {
	if data == nil {
		return value, false, nil
	}
	if err := c.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("%w: %s codec: value: %v", ErrDeserialization, c.Name(), err)
	}
	return value, true, nil
}
