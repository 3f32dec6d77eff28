// Package conn implements the connection manager of dCol.
//
// A Pool owns at most one live connection per backend.Endpoint and is shared by all
// collections that target the same store. Get verifies a cached connection with a ping
// before handing it out. A dead connection is discarded and a new one is dialed with
// exponential backoff (cenkalti/backoff). With the default options the pool retries
// forever, callers that need a bounded wait pass a context with a deadline or set
// Options.MaxRetries, in which case ErrConnection is returned once the policy gives up.
//
// Concurrent first use of an endpoint may dial more than once. The first connection that
// reaches the cache wins, the others are closed.
//
// The pool also keeps a registry of open handles. Shutdown is the explicit exit hook of a
// process: it runs the cleanup of every registered handle, closes all connections and makes
// every further call fail with ErrPoolClosed.
//
// Usage Example:
//
//	pool := conn.NewRedisPool(common.DefaultClientConfig())
//	defer pool.Shutdown(context.Background())
//
//	store, err := pool.Get(ctx, pool.Default())
//	if err != nil {
//	    // Handle error
//	}
//	_ = store.Ping(ctx)
package conn
