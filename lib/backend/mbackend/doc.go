// Package mbackend provides an in-process implementation of backend.IBackend.
//
// The memory backend mirrors the semantics of the remote store closely enough that
// every collection can run on it unchanged: single-key operations are atomic, hashes
// and lists are removed when they become empty, list indices may be negative and
// type mismatches fail with backend.RetCWrongType.
//
// Implementation Approach:
//
//	The keyspace is a single xsync.MapOf. Every write goes through MapOf.Compute,
//	which serializes all writers of the same key, and builds a fresh entry instead of
//	mutating the stored one. Readers therefore only need Load and never block writers.
//
//	A Server can hand out many connections (Connect, Dialer). Closing a connection
//	only affects that connection, SetDown makes every connection fail with a
//	connection error until the server is brought back. This makes the backend suitable
//	to exercise the reconnect logic of the connection manager without a real server.
//
// Usage Example:
//
//	server := mbackend.NewServer()
//	pool := conn.NewPool(server.Dialer(), conn.DefaultOptions())
//	defer pool.Shutdown(context.Background())
package mbackend
