package collections

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/ValentinKolb/dCol/lib/backend/mbackend"
	"github.com/ValentinKolb/dCol/lib/conn"
	"github.com/ValentinKolb/dCol/lib/lockmgr"
)

// layouts runs mapping tests against both storage layouts
var layouts = map[string][]Option{
	"Hash":     nil,
	"Keyspace": {WithKeyspaceLayout()},
}

var testLockOptions = lockmgr.Options{
	InitialBackoff: 10 * time.Microsecond,
	MaxBackoff:     time.Millisecond,
}

// newTestPool creates a pool on a fresh in-process server. The pool is shut down
// when the test ends.
func newTestPool(t *testing.T) (*conn.Pool, *mbackend.Server) {
	t.Helper()
	server := mbackend.NewServer()
	pool := conn.NewPool(server.Dialer(), conn.Options{
		Default:         backend.Endpoint{Host: "localhost", Port: 6379},
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})
	t.Cleanup(func() {
		_ = pool.Shutdown(context.Background())
	})
	return pool, server
}

func newTestMapping[K, V any](t *testing.T, pool *conn.Pool, name string, opts ...Option) *Mapping[K, V] {
	t.Helper()
	opts = append([]Option{WithLockOptions(testLockOptions)}, opts...)
	m, err := NewMapping[K, V](pool, name, opts...)
	if err != nil {
		t.Fatalf("NewMapping failed: %v", err)
	}
	return m
}

func newTestSequence[V any](t *testing.T, pool *conn.Pool, name string, opts ...Option) *Sequence[V] {
	t.Helper()
	opts = append([]Option{WithLockOptions(testLockOptions)}, opts...)
	s, err := NewSequence[V](pool, name, opts...)
	if err != nil {
		t.Fatalf("NewSequence failed: %v", err)
	}
	return s
}

// collect drains an iterator and returns the elements seen before the first error
func collect[V any](seq iter.Seq2[V, error]) ([]V, error) {
	var result []V
	for v, err := range seq {
		if err != nil {
			return result, err
		}
		result = append(result, v)
	}
	return result, nil
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
