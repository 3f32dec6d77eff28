// Package backend defines the remote primitives that all dCol collections are built on.
// It is the only boundary between the collection layer and the remote key-value store.
//
// The package focuses on:
//   - A unified interface (IBackend) for string, counter, hash and list operations
//   - A Source abstraction so callers can resolve a healthy backend per call
//   - Unified error reporting through typed return codes
//
// Key Components:
//
//   - IStrings, IHashes, ILists: The three primitive groups. The semantics mirror those of a
//     typical in-memory data-structure server: single-key operations are atomic, empty hashes
//     and lists disappear, list indices may be negative and list ranges are inclusive.
//
//   - IBackend: The composition of all primitive groups plus a liveness check (Ping) and Close.
//
//   - Source: Returns a live IBackend. The connection manager (package conn) implements it per
//     Endpoint and transparently reconnects. Static wraps a fixed backend.
//
//   - Error System: Store-level failures are reported as *Error with a RetCode, so callers can
//     tell a dead connection (RetCConnection, matched by ErrConnection) from a type mismatch
//     (RetCWrongType) or an out of range list index (RetCOutOfRange).
//
// Implementations:
//
//   - Redis Backend (rbackend): Binds the primitives to a Redis server through go-redis.
//     Available in the "github.com/ValentinKolb/dCol/lib/backend/rbackend" package.
//
//   - Memory Backend (mbackend): An in-process implementation with the same semantics, used for
//     tests and for embedding without a server.
//     Available in the "github.com/ValentinKolb/dCol/lib/backend/mbackend" package.
//
// Both implementations are verified by the shared conformance suite in
// "github.com/ValentinKolb/dCol/lib/backend/testing".
package backend
