package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
)

// NewBinaryCodec creates a new codec using a compact, order preserving binary format.
//
// Only scalar values are supported: bool, all integer kinds, float32/64, string and []byte.
// Values of the same kind compare bytewise in the same order as the values themselves,
// which makes the codec suitable for keys that must sort remotely.
func NewBinaryCodec() ICodec {
	return &binaryCodecImpl{}
}

// binaryCodecImpl implements ICodec using a one byte kind tag followed by the payload
type binaryCodecImpl struct {
}

// Kind tags. Every signed integer is widened to int64, every unsigned to uint64.
const (
	tagFalse  byte = 0x01
	tagTrue   byte = 0x02
	tagInt    byte = 0x10
	tagUint   byte = 0x11
	tagFloat  byte = 0x20
	tagString byte = 0x30
	tagBytes  byte = 0x31
)

var (
	errTrailingData = errors.New("trailing data after value")
)

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (b binaryCodecImpl) Marshal(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)

	// follow pointers and interfaces down to the concrete value
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return nil, fmt.Errorf("binary: cannot encode nil %s", rv.Type())
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, errors.New("binary: cannot encode nil")
	}

	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return []byte{tagTrue}, nil
		}
		return []byte{tagFalse}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		result := make([]byte, 9)
		result[0] = tagInt
		// flipping the sign bit makes negative numbers sort before positive ones
		binary.BigEndian.PutUint64(result[1:], uint64(rv.Int())^(1<<63))
		return result, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		result := make([]byte, 9)
		result[0] = tagUint
		binary.BigEndian.PutUint64(result[1:], rv.Uint())
		return result, nil

	case reflect.Float32, reflect.Float64:
		result := make([]byte, 9)
		result[0] = tagFloat
		binary.BigEndian.PutUint64(result[1:], sortableFloat(rv.Float()))
		return result, nil

	case reflect.String:
		s := rv.String()
		result := make([]byte, 1+len(s))
		result[0] = tagString
		copy(result[1:], s)
		return result, nil

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			data := rv.Bytes()
			result := make([]byte, 1+len(data))
			result[0] = tagBytes
			copy(result[1:], data)
			return result, nil
		}
	}

	return nil, fmt.Errorf("binary: unsupported type %s", rv.Type())
}

func (b binaryCodecImpl) Unmarshal(data []byte, v any) error {
	// Check minimum size (tag)
	if len(data) < 1 {
		return errors.New("binary: data too short for tag")
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("binary: expected non-nil pointer, got %T", v)
	}

	decoded, err := decodeBinary(data)
	if err != nil {
		return err
	}
	return assign(rv.Elem(), decoded)
}

func (b binaryCodecImpl) Name() string {
	return "binary"
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// decodeBinary decodes data into its natural Go type (bool, int64, uint64, float64, string, []byte)
func decodeBinary(data []byte) (any, error) {
	tag, payload := data[0], data[1:]

	fixed := func() (uint64, error) {
		if len(payload) < 8 {
			return 0, errors.New("binary: data too short for 64 bit value")
		}
		if len(payload) > 8 {
			return 0, errTrailingData
		}
		return binary.BigEndian.Uint64(payload), nil
	}

	switch tag {
	case tagFalse, tagTrue:
		if len(payload) > 0 {
			return nil, errTrailingData
		}
		return tag == tagTrue, nil
	case tagInt:
		u, err := fixed()
		return int64(u ^ (1 << 63)), err
	case tagUint:
		return fixed()
	case tagFloat:
		u, err := fixed()
		return restoreFloat(u), err
	case tagString:
		return string(payload), nil
	case tagBytes:
		result := make([]byte, len(payload))
		copy(result, payload)
		return result, nil
	default:
		return nil, fmt.Errorf("binary: unknown tag 0x%02x", tag)
	}
}

// assign stores a decoded value into target, converting between kinds of the same family
func assign(target reflect.Value, decoded any) error {
	if target.Kind() == reflect.Interface && target.NumMethod() == 0 {
		target.Set(reflect.ValueOf(decoded))
		return nil
	}

	switch d := decoded.(type) {
	case bool:
		if target.Kind() == reflect.Bool {
			target.SetBool(d)
			return nil
		}
	case int64:
		switch target.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if target.OverflowInt(d) {
				return fmt.Errorf("binary: %d overflows %s", d, target.Type())
			}
			target.SetInt(d)
			return nil
		}
	case uint64:
		switch target.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if target.OverflowUint(d) {
				return fmt.Errorf("binary: %d overflows %s", d, target.Type())
			}
			target.SetUint(d)
			return nil
		}
	case float64:
		switch target.Kind() {
		case reflect.Float32, reflect.Float64:
			target.SetFloat(d)
			return nil
		}
	case string:
		if target.Kind() == reflect.String {
			target.SetString(d)
			return nil
		}
	case []byte:
		if target.Kind() == reflect.Slice && target.Type().Elem().Kind() == reflect.Uint8 {
			target.Set(reflect.ValueOf(d).Convert(target.Type()))
			return nil
		}
	}
	return fmt.Errorf("binary: cannot decode %T into %s", decoded, target.Type())
}

// sortableFloat maps a float onto an uint64 with the same ordering
func sortableFloat(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

// restoreFloat is the inverse of sortableFloat
func restoreFloat(u uint64) float64 {
	if u&(1<<63) != 0 {
		return math.Float64frombits(u &^ (1 << 63))
	}
	return math.Float64frombits(^u)
}

func sprint(v any) string {
	return fmt.Sprint(v)
}
