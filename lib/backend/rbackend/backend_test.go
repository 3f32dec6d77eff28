package rbackend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/dCol/lib/backend"
	btesting "github.com/ValentinKolb/dCol/lib/backend/testing"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	redisTC "github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedis starts a Redis container and returns its endpoint.
// The test is skipped when no container runtime is available.
func setupRedis(t *testing.T) backend.Endpoint {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()

	container, err := redisTC.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("failed to start redis (is docker available?): %v", err)
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	return backend.Endpoint{Host: host, Port: port.Int()}
}

func TestRedisBackend(t *testing.T) {
	ep := setupRedis(t)
	ctx := context.Background()

	btesting.RunBackendTests(t, "RedisBackend", func(t *testing.T) backend.IBackend {
		b, err := Dial(ctx, ep, Options{})
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		if err := b.(*backendImpl).client.FlushDB(ctx).Err(); err != nil {
			t.Fatalf("failed to flush redis: %v", err)
		}
		return b
	})
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// port 1 is reserved and never runs redis
	_, err := Dial(ctx, backend.Endpoint{Host: "127.0.0.1", Port: 1}, Options{DialTimeout: 200 * time.Millisecond})
	if err == nil {
		t.Fatal("Expected dial to fail")
	}
	if !errors.Is(err, backend.ErrConnection) && !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected a connection error, got %v", err)
	}
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		err  error
		code backend.RetCode
	}{
		{errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"), backend.RetCWrongType},
		{errors.New("ERR index out of range"), backend.RetCOutOfRange},
		{errors.New("ERR no such key"), backend.RetCNoSuchKey},
		{errors.New("ERR value is not an integer or out of range"), backend.RetCNotInteger},
		{redis.ErrClosed, backend.RetCConnection},
		{fmt.Errorf("dial tcp: %w", errors.New("connection refused")), backend.RetCConnection},
	}

	for _, c := range cases {
		err := translate(c.err)
		var backendErr *backend.Error
		if !errors.As(err, &backendErr) {
			t.Errorf("translate(%v): expected *backend.Error, got %T", c.err, err)
			continue
		}
		if backendErr.Code != c.code {
			t.Errorf("translate(%v): expected code %s, got %s", c.err, c.code, backendErr.Code)
		}
	}

	if err := translate(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context errors to pass through, got %v", err)
	}
	if translate(nil) != nil {
		t.Errorf("Expected nil to translate to nil")
	}
}

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob(`a*b?[c]\`); got != `a\*b\?\[c\]\\` {
		t.Errorf("Unexpected escaped pattern %q", got)
	}
	if got := escapeGlob("\xff\x1f*"); got != "\xff\x1f\\*" {
		t.Errorf("Unexpected escaped binary pattern %q", got)
	}
}
