package codec

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// testCodecs is a map of codec name to factory function
var testCodecs = map[string]func() ICodec{
	"JSON":   NewJSONCodec,
	"GOB":    NewGOBCodec,
	"Binary": NewBinaryCodec,
}

type point struct {
	X, Y int
	Tag  string
}

// roundTrip encodes and decodes value with the generic helpers
func roundTrip[V any](t *testing.T, c ICodec, value V) V {
	t.Helper()
	data, err := EncodeValue(c, value)
	if err != nil {
		t.Fatalf("Failed to encode %v: %v", value, err)
	}
	decoded, found, err := DecodeValue[V](c, data)
	if err != nil {
		t.Fatalf("Failed to decode %v: %v", value, err)
	}
	if !found {
		t.Fatalf("Decoded value of %v not marked as found", value)
	}
	return decoded
}

// TestScalarRoundTrip tests that all codecs handle the supported scalar types
func TestScalarRoundTrip(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			if got := roundTrip(t, c, 0); got != 0 {
				t.Errorf("int zero: got %d", got)
			}
			if got := roundTrip(t, c, -42); got != -42 {
				t.Errorf("int: got %d", got)
			}
			if got := roundTrip(t, c, uint16(65535)); got != 65535 {
				t.Errorf("uint16: got %d", got)
			}
			if got := roundTrip(t, c, 3.25); got != 3.25 {
				t.Errorf("float64: got %v", got)
			}
			if got := roundTrip(t, c, true); !got {
				t.Errorf("bool: got %v", got)
			}
			if got := roundTrip(t, c, "hällo wörld"); got != "hällo wörld" {
				t.Errorf("string: got %q", got)
			}
			if got := roundTrip(t, c, []byte{0, 1, 2, 255}); !bytes.Equal(got, []byte{0, 1, 2, 255}) {
				t.Errorf("bytes: got %v", got)
			}
		})
	}
}

// TestCompositeRoundTrip tests structs, slices and maps for the general purpose codecs
func TestCompositeRoundTrip(t *testing.T) {
	for _, name := range []string{"JSON", "GOB"} {
		t.Run(name, func(t *testing.T) {
			c := testCodecs[name]()

			p := point{X: 1, Y: -2, Tag: "p"}
			if got := roundTrip(t, c, p); got != p {
				t.Errorf("struct: got %+v, want %+v", got, p)
			}

			s := []string{"a", "b", "c"}
			if got := roundTrip(t, c, s); !reflect.DeepEqual(got, s) {
				t.Errorf("slice: got %v, want %v", got, s)
			}

			m := map[string]int{"one": 1, "two": 2}
			if got := roundTrip(t, c, m); !reflect.DeepEqual(got, m) {
				t.Errorf("map: got %v, want %v", got, m)
			}
		})
	}
}

// TestGOBInterfaceValues tests that gob keeps the dynamic type of interface values
func TestGOBInterfaceValues(t *testing.T) {
	c := NewGOBCodec()

	for _, value := range []any{"text", 7, 2.5, true} {
		got := roundTrip[any](t, c, value)
		if reflect.TypeOf(got) != reflect.TypeOf(value) || got != value {
			t.Errorf("got %v (%T), want %v (%T)", got, got, value, value)
		}
	}
}

// TestKeyDeterminism tests that the key codecs produce identical bytes for equal keys
func TestKeyDeterminism(t *testing.T) {
	c := NewJSONCodec()

	build := func(order []string) map[string]int {
		m := make(map[string]int)
		for _, k := range order {
			m[k] = len(k)
		}
		return m
	}
	a := build([]string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"})
	b := build([]string{"eta", "zeta", "epsilon", "delta", "gamma", "beta", "alpha"})

	first, err := EncodeKey(c, a)
	if err != nil {
		t.Fatalf("Failed to encode key: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := EncodeKey(c, b)
		if err != nil {
			t.Fatalf("Failed to encode key: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("Encoding not deterministic: %q vs %q", first, again)
		}
	}

	decoded, err := DecodeKey[map[string]int](c, first)
	if err != nil {
		t.Fatalf("Failed to decode key: %v", err)
	}
	if !reflect.DeepEqual(decoded, a) {
		t.Errorf("Decoded key %v, want %v", decoded, a)
	}
}

// TestBinaryOrdering tests that binary encodings sort in value order
func TestBinaryOrdering(t *testing.T) {
	c := NewBinaryCodec()

	assertSorted := func(name string, values []any) {
		t.Helper()
		var prev []byte
		for i, v := range values {
			data, err := c.Marshal(v)
			if err != nil {
				t.Fatalf("%s: failed to encode %v: %v", name, v, err)
			}
			if i > 0 && bytes.Compare(prev, data) >= 0 {
				t.Errorf("%s: encoding of %v does not sort after %v", name, v, values[i-1])
			}
			prev = data
		}
	}

	assertSorted("int", []any{-1 << 40, -5, -1, 0, 3, 1000, 1 << 50})
	assertSorted("float", []any{-1e10, -2.5, -0.1, 0.0, 0.1, 3.0, 1e10})
	assertSorted("string", []any{"", "a", "ab", "b", "ba"})
	assertSorted("uint", []any{uint(0), uint(1), uint(256), uint(1 << 63)})
}

// TestBinaryDecodeInterface tests decoding into an empty interface
func TestBinaryDecodeInterface(t *testing.T) {
	c := NewBinaryCodec()

	cases := map[any]any{
		int8(-3):   int64(-3),
		uint32(9):  uint64(9),
		float32(1): float64(1),
		"s":        "s",
		false:      false,
	}
	for in, want := range cases {
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatalf("Failed to encode %v: %v", in, err)
		}
		var got any
		if err := c.Unmarshal(data, &got); err != nil {
			t.Fatalf("Failed to decode %v: %v", in, err)
		}
		if got != want {
			t.Errorf("Decoded %v (%T), want %v (%T)", got, got, want, want)
		}
	}
}

// TestBinaryConversionErrors tests overflow and kind mismatches
func TestBinaryConversionErrors(t *testing.T) {
	c := NewBinaryCodec()

	data, _ := c.Marshal(300)
	var small int8
	if err := c.Unmarshal(data, &small); err == nil {
		t.Error("Expected overflow error when decoding 300 into int8")
	}

	var s string
	if err := c.Unmarshal(data, &s); err == nil {
		t.Error("Expected error when decoding int into string")
	}

	if _, err := c.Marshal(point{}); err == nil {
		t.Error("Expected error when encoding a struct")
	}
	if _, err := c.Marshal(nil); err == nil {
		t.Error("Expected error when encoding nil")
	}
}

// TestSerializationError tests that unsupported values are reported as ErrSerialization
func TestSerializationError(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			_, err := EncodeValue(factory(), make(chan int))
			if !errors.Is(err, ErrSerialization) {
				t.Errorf("Expected ErrSerialization, got %v", err)
			}
		})
	}
}

// TestDeserializationError tests that invalid data is reported as ErrDeserialization
func TestDeserializationError(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			_, _, err := DecodeValue[int](c, []byte("not valid"))
			if !errors.Is(err, ErrDeserialization) {
				t.Errorf("Expected ErrDeserialization for garbage, got %v", err)
			}

			// valid encoding followed by extra bytes
			data, err := EncodeValue(c, 5)
			if err != nil {
				t.Fatalf("Failed to encode: %v", err)
			}
			trailing := append(append(append([]byte{}, data...), ' '), data...)
			_, _, err = DecodeValue[int](c, trailing)
			if !errors.Is(err, ErrDeserialization) {
				t.Errorf("Expected ErrDeserialization for trailing data, got %v", err)
			}
		})
	}
}

// TestDecodeNil tests that missing data is not an error but reported as not found
// TestEmptyContainers tests that empty slices and maps come back empty. gob cannot
// tell nil and empty apart, so only the length is checked for it.
func TestEmptyContainers(t *testing.T) {
	for _, name := range []string{"JSON", "GOB"} {
		t.Run(name, func(t *testing.T) {
			c := testCodecs[name]()

			if got := roundTrip(t, c, []int{}); len(got) != 0 {
				t.Errorf("empty slice: got %v", got)
			}
			if got := roundTrip(t, c, map[string]int{}); len(got) != 0 {
				t.Errorf("empty map: got %v", got)
			}
			nested := map[string][]int{"baz": {}, "bar": {1}}
			got := roundTrip(t, c, nested)
			if !cmp.Equal(got, nested, cmpopts.EquateEmpty()) {
				t.Errorf("nested: %s", cmp.Diff(nested, got, cmpopts.EquateEmpty()))
			}
		})
	}

	// json keeps an empty slice non-nil
	if got := roundTrip(t, NewJSONCodec(), []int{}); got == nil {
		t.Error("json decoded an empty slice as nil")
	}
}

// TestInterfaceKeys tests that keys decoded into any keep addressing the same bytes
func TestInterfaceKeys(t *testing.T) {
	tests := map[string]any{
		"JSON":   float64(7),
		"Binary": int64(7),
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			c := testCodecs[name]()
			data, err := EncodeKey[any](c, 7)
			if err != nil {
				t.Fatalf("EncodeKey failed: %v", err)
			}
			key, err := DecodeKey[any](c, data)
			if err != nil {
				t.Fatalf("DecodeKey failed: %v", err)
			}
			if key != want {
				t.Errorf("decoded %v (%T), want %v (%T)", key, key, want, want)
			}
			again, err := EncodeKey[any](c, key)
			if err != nil || !bytes.Equal(again, data) {
				t.Errorf("re-encoded key %q differs from %q (%v)", again, data, err)
			}
		})
	}
}

func TestDecodeNil(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			v, found, err := DecodeValue[int](factory(), nil)
			if err != nil || found || v != 0 {
				t.Errorf("Expected (0, false, nil), got (%d, %v, %v)", v, found, err)
			}
		})
	}
}

// TestFromName tests the codec lookup used by the configuration
func TestFromName(t *testing.T) {
	for _, name := range []string{"gob", "json", "binary"} {
		c, err := FromName(name)
		if err != nil {
			t.Fatalf("FromName(%q) failed: %v", name, err)
		}
		if c.Name() != name {
			t.Errorf("FromName(%q).Name() = %q", name, c.Name())
		}
	}
	if _, err := FromName("xml"); err == nil {
		t.Error("Expected error for unknown codec")
	}
}
