package conn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dCol/lib/backend"
	"github.com/ValentinKolb/dCol/lib/backend/mbackend"
)

var testEndpoint = backend.Endpoint{Host: "localhost", Port: 6379}

func newTestPool(server *mbackend.Server, retries int) *Pool {
	return NewPool(server.Dialer(), Options{
		Default:         testEndpoint,
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})
}

// fakeHandle records cleanup calls
type fakeHandle struct {
	id      string
	err     error
	mu      sync.Mutex
	cleaned int
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Cleanup(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleaned++
	return h.err
}

func TestGetCachesConnection(t *testing.T) {
	pool := newTestPool(mbackend.NewServer(), 0)
	ctx := context.Background()

	first, err := pool.Get(ctx, testEndpoint)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	second, err := pool.Get(ctx, testEndpoint)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if first != second {
		t.Error("Expected the cached connection to be reused")
	}

	other, err := pool.Get(ctx, backend.Endpoint{Host: "other", Port: 1})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if other == first {
		t.Error("Expected a separate connection per endpoint")
	}
}

func TestReconnect(t *testing.T) {
	server := mbackend.NewServer()
	pool := newTestPool(server, 0)
	ctx := context.Background()

	old, err := pool.Get(ctx, testEndpoint)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := old.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	server.SetDown(true)
	go func() {
		time.Sleep(30 * time.Millisecond)
		server.SetDown(false)
	}()

	// blocks until the server is back
	fresh, err := pool.Get(ctx, testEndpoint)
	if err != nil {
		t.Fatalf("Get after outage failed: %v", err)
	}
	if fresh == old {
		t.Error("Expected a new connection after the outage")
	}
	if err := old.Ping(ctx); !errors.Is(err, backend.ErrConnection) {
		t.Errorf("Expected the discarded connection to be closed, got %v", err)
	}

	value, found, err := fresh.Get(ctx, "k")
	if err != nil || !found || string(value) != "v" {
		t.Errorf("Expected data to survive the reconnect, got %q %v %v", value, found, err)
	}
}

func TestBoundedRetries(t *testing.T) {
	server := mbackend.NewServer()
	server.SetDown(true)
	pool := newTestPool(server, 3)

	_, err := pool.Get(context.Background(), testEndpoint)
	if !errors.Is(err, ErrConnection) {
		t.Fatalf("Expected ErrConnection, got %v", err)
	}
}

func TestContextDeadline(t *testing.T) {
	server := mbackend.NewServer()
	server.SetDown(true)
	pool := newTestPool(server, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := pool.Get(ctx, testEndpoint)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Get did not honour the context deadline")
	}
}

func TestPermanentDialError(t *testing.T) {
	calls := 0
	pool := NewPool(func(ctx context.Context, ep backend.Endpoint) (backend.IBackend, error) {
		calls++
		return nil, backend.NewError(backend.RetCInternalError, "WRONGPASS invalid password")
	}, Options{InitialInterval: time.Millisecond})

	_, err := pool.Get(context.Background(), testEndpoint)
	if err == nil || errors.Is(err, ErrConnection) {
		t.Fatalf("Expected a non connection error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected exactly one dial attempt, got %d", calls)
	}
}

func TestConcurrentFirstUse(t *testing.T) {
	pool := newTestPool(mbackend.NewServer(), 0)
	ctx := context.Background()

	const workers = 16
	results := make([]backend.IBackend, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := pool.Get(ctx, testEndpoint)
			if err != nil {
				t.Errorf("Get failed: %v", err)
				return
			}
			results[i] = c
		}(i)
	}
	wg.Wait()

	cached, err := pool.Get(ctx, testEndpoint)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	for i, c := range results {
		if c == nil {
			continue
		}
		// every connection handed out is either the cached one or already closed
		if c != cached && c.Ping(ctx) == nil {
			t.Errorf("worker %d got a live duplicate connection", i)
		}
	}
}

func TestSourceUsesPool(t *testing.T) {
	pool := newTestPool(mbackend.NewServer(), 0)
	ctx := context.Background()

	src := pool.Source(pool.Default())
	a, err := src.Backend(ctx)
	if err != nil {
		t.Fatalf("Backend failed: %v", err)
	}
	b, err := pool.Get(ctx, testEndpoint)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if a != b {
		t.Error("Expected the source to hand out the pooled connection")
	}
}

func TestShutdown(t *testing.T) {
	pool := newTestPool(mbackend.NewServer(), 0)
	ctx := context.Background()

	c, err := pool.Get(ctx, testEndpoint)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	ok := &fakeHandle{id: "ok"}
	failing := &fakeHandle{id: "failing", err: errors.New("boom")}
	for _, h := range []*fakeHandle{ok, failing} {
		if err := pool.Register(h); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	removed := &fakeHandle{id: "removed"}
	_ = pool.Register(removed)
	pool.Unregister("removed")

	err = pool.Shutdown(ctx)
	if err == nil {
		t.Fatal("Expected the failing cleanup to be reported")
	}
	if ok.cleaned != 1 || failing.cleaned != 1 {
		t.Errorf("Expected every handle to be cleaned exactly once, got ok=%d failing=%d", ok.cleaned, failing.cleaned)
	}
	if removed.cleaned != 0 {
		t.Error("Unregistered handle must not be cleaned")
	}
	if pool.Handles() != 0 {
		t.Errorf("Expected an empty registry, got %d handles", pool.Handles())
	}

	if err := c.Ping(ctx); err == nil {
		t.Error("Expected pooled connections to be closed")
	}
	if _, err := pool.Get(ctx, testEndpoint); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
	if err := pool.Register(ok); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed on register, got %v", err)
	}
	if err := pool.Shutdown(ctx); err != nil {
		t.Errorf("Second shutdown should be a no-op, got %v", err)
	}
}
