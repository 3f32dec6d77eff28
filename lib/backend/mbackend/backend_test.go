package mbackend

import (
	"context"
	"errors"
	"testing"

	"github.com/ValentinKolb/dCol/lib/backend"
	btesting "github.com/ValentinKolb/dCol/lib/backend/testing"
)

func Test(t *testing.T) {
	btesting.RunBackendTests(t, "MemoryBackend", func(t *testing.T) backend.IBackend {
		return New()
	})
}

func TestConnectionsShareServer(t *testing.T) {
	ctx := context.Background()
	server := NewServer()

	a := server.Connect()
	b := server.Connect()

	if err := a.Set(ctx, "shared", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, found, err := b.Get(ctx, "shared")
	if err != nil || !found || string(value) != "v" {
		t.Fatalf("Expected second connection to see the value, got %q found=%t err=%v", value, found, err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := a.Ping(ctx); !errors.Is(err, backend.ErrConnection) {
		t.Errorf("Expected closed connection to fail with ErrConnection, got %v", err)
	}
	if err := b.Ping(ctx); err != nil {
		t.Errorf("Expected other connection to stay alive, got %v", err)
	}
}

func TestServerDown(t *testing.T) {
	ctx := context.Background()
	server := NewServer()
	dial := server.Dialer()
	ep := backend.Endpoint{Host: "localhost", Port: 6379}

	c, err := dial(ctx, ep)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	server.SetDown(true)
	if err := c.Ping(ctx); !errors.Is(err, backend.ErrConnection) {
		t.Errorf("Expected ErrConnection while down, got %v", err)
	}
	if _, err := dial(ctx, ep); !errors.Is(err, backend.ErrConnection) {
		t.Errorf("Expected dial to fail while down, got %v", err)
	}

	server.SetDown(false)
	if err := c.Ping(ctx); err != nil {
		t.Errorf("Expected ping to succeed after recovery, got %v", err)
	}
}

func TestContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().Incr(ctx, "counter"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestConcurrentIncr(t *testing.T) {
	ctx := context.Background()
	server := NewServer()

	const workers, rounds = 8, 250
	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			c := server.Connect()
			for i := 0; i < rounds; i++ {
				if _, err := c.Incr(ctx, "counter"); err != nil {
					t.Errorf("Incr failed: %v", err)
					return
				}
			}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}

	value, _, err := server.Connect().Get(ctx, "counter")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(value) != "2000" {
		t.Errorf("Expected counter 2000, got %s", value)
	}
}
