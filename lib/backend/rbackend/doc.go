// Package rbackend binds the backend primitives to a Redis server using go-redis.
//
// Every primitive maps onto exactly one Redis command (GET, SET, DEL, EXISTS, INCR,
// DECR, SCAN, HGET, HSET, HDEL, HEXISTS, HKEYS, HVALS, HGETALL, HLEN, LPUSH, RPUSH,
// LPOP, RPOP, LRANGE, LLEN, LINDEX, LSET, LREM, LINSERT and PING). Nil replies are
// reported through the found return value, server errors are translated into
// backend.Error codes and network failures into backend.RetCConnection so the
// connection manager can tell when to reconnect.
//
// Usage Example:
//
//	pool := conn.NewPool(rbackend.Dialer(rbackend.Options{}), conn.DefaultOptions())
//	b, err := pool.Get(ctx, backend.Endpoint{Host: "localhost", Port: 6379})
package rbackend
