// Package collections provides Mapping and Sequence, collection types whose data
// lives entirely in a remote store so that independent processes can share and
// mutate the same logical collection.
//
// A collection is identified by its name and the endpoint of the store. Two handles
// with the same name and endpoint are views of the same remote state. Nothing is cached
// client side: every operation encodes its arguments, obtains a live connection from the
// conn.Pool, runs one or a few remote primitives and decodes the result.
//
// Key Components:
//
//   - Mapping[K, V]: Associative collection. Keys are encoded with the key codec (json by
//     default) and compared by their encoded bytes, values use the value codec (gob by
//     default). Two storage layouts exist: LayoutHash keeps all entries in one remote hash,
//     LayoutKeyspace (WithKeyspaceLayout) stores every entry as its own key
//     name + "\x1f" + encodedKey. Collection names must not contain the byte 0x1f.
//
//   - Sequence[V]: Ordered collection stored as one remote list. Indexing and slicing follow
//     the usual conventions for negative indices and steps, use Omit for an absent bound.
//     Positional access outside the sequence returns ErrIndexOutOfRange.
//
//   - Lock / WithLock: Every collection has a cooperative lock (lockmgr) named after it.
//     Operations never take the lock by themselves, callers bracket multi-step updates with
//     WithLock when they need to keep other cooperating callers out.
//
// Consistency:
//
//	Single key and single element operations map to one remote primitive and inherit its
//	atomicity. Composed operations (Pop, SetDefault, Insert, Remove, ...) are several calls
//	and may interleave with other writers. Sort, Reverse, DeleteSlice and SetTo rewrite the
//	whole remote list, readers may see it empty or partially written in between.
//
//	Iterators detect size changes: a Mapping iterator compares the captured key set with the
//	current one before every element, a Sequence iterator compares the length. A change ends
//	the iteration with ErrConcurrentModification. Changes of values are not detected.
//
// Lifecycle:
//
//	Creating a handle allocates nothing remotely, the data is created by the first write.
//	Every handle is registered in its pool. Close deletes the lock and the remote data of the
//	handle (the data is kept for handles opened with Persistent), pool.Shutdown does the same
//	for all handles still registered.
//
// Usage Example:
//
//	pool := conn.NewRedisPool(common.DefaultClientConfig())
//	defer pool.Shutdown(context.Background())
//
//	users, err := collections.NewMapping[string, User](pool, "users", collections.Persistent())
//	if err != nil {
//	    // Handle error
//	}
//
//	err = users.WithLock(ctx, false, func(ctx context.Context) error {
//	    u, err := users.Get(ctx, "alice")
//	    if err != nil {
//	        return err
//	    }
//	    u.Logins++
//	    return users.Set(ctx, "alice", u)
//	})
package collections
