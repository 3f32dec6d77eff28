// Package testing provides a reusable conformance suite for backend.IBackend implementations.
//
// The suite checks the semantics the collection layer relies on: atomic counters,
// removal of empty hashes and lists, negative list indices, inclusive clamped ranges,
// LREM directions, LINSERT return values and binary safety of keys and values.
//
// Usage Example:
//
//	func Test(t *testing.T) {
//	    btesting.RunBackendTests(t, "MemoryBackend", func(t *testing.T) backend.IBackend {
//	        return mbackend.New()
//	    })
//	}
package testing
