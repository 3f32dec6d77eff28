// Package codec converts keys and values of remote collections to and from the bytes
// stored in the backend. It defines a common interface and multiple implementations.
//
// Key Components:
//
//   - ICodec: Core interface that all codec implementations must satisfy.
//
//   - gobCodecImpl: Uses Go's gob encoding. It preserves the concrete type of values
//     stored behind interfaces (after gob.Register) and is the default value codec.
//     Map encoding is not deterministic, so it must not be used for keys.
//
//   - jsonCodecImpl: Uses JSON encoding. Map keys are sorted, so equal values produce
//     equal bytes. It is the default key codec and useful for debugging because the
//     stored data is human-readable.
//
//   - binaryCodecImpl: Compact tagged format for scalars (bool, integers, floats,
//     strings, byte slices). Encodings of the same kind sort bytewise in value order.
//
//   - EncodeKey / DecodeKey / EncodeValue / DecodeValue: Generic helpers used by the
//     collections. They wrap every failure in ErrSerialization or ErrDeserialization
//     so callers can test errors with errors.Is.
//
// Key equality of the remote collections is the bytewise equality of encoded keys.
// A key codec must therefore be deterministic: encoding the same key twice has to
// produce identical bytes.
//
// Thread Safety:
//
//	All codec implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
package codec
