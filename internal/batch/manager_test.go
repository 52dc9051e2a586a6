package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestManagerProcessesJobs(t *testing.T) {
	manager := NewManager(Config{Workers: 2, MaxQueue: 2})
	t.Cleanup(func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown failed: %v", err)
		}
	})

	var mu sync.Mutex
	results := make([]int, 0, 3)

	for i := 0; i < 3; i++ {
		i := i
		if err := manager.Submit(context.Background(), func(context.Context) error {
			mu.Lock()
			results = append(results, i)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if manager.Completed() != 3 {
		t.Fatalf("expected 3 completed jobs, got %d", manager.Completed())
	}
}

func TestManagerEachBoundsConcurrency(t *testing.T) {
	manager := NewManager(Config{Workers: 3})
	defer manager.Shutdown(context.Background())

	var running, peak atomic.Int32
	failing := errors.New("upload failed")

	errs := manager.Each(context.Background(), 20, func(ctx context.Context, i int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		if i%5 == 0 {
			return failing
		}
		return nil
	})

	if len(errs) != 20 {
		t.Fatalf("expected 20 results, got %d", len(errs))
	}
	for i, err := range errs {
		if i%5 == 0 && !errors.Is(err, failing) {
			t.Fatalf("job %d: expected failure, got %v", i, err)
		}
		if i%5 != 0 && err != nil {
			t.Fatalf("job %d: unexpected error %v", i, err)
		}
	}
	if peak.Load() > 3 {
		t.Fatalf("expected at most 3 concurrent jobs, got %d", peak.Load())
	}
}

func TestManagerSubmitAfterShutdown(t *testing.T) {
	manager := NewManager(Config{Workers: 1})
	if err := manager.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if err := manager.Submit(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
}

func TestManagerSubmitCanceledWhileBusy(t *testing.T) {
	manager := NewManager(Config{Workers: 1, MaxQueue: 0})
	defer manager.Shutdown(context.Background())

	start := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = manager.Submit(context.Background(), func(context.Context) error {
			close(start)
			<-release
			return nil
		})
	}()

	select {
	case <-start:
	case <-time.After(time.Second):
		t.Fatal("worker did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := manager.Submit(ctx, func(context.Context) error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	close(release)
}

func TestManagerShutdownWaitsForInflight(t *testing.T) {
	manager := NewManager(Config{Workers: 1, MaxQueue: 1})

	start := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		_ = manager.Submit(context.Background(), func(context.Context) error {
			close(start)
			<-release
			close(finished)
			return nil
		})
	}()

	select {
	case <-start:
	case <-time.After(time.Second):
		t.Fatalf("job did not start")
	}

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		defer cancel()
		shutdownDone <- manager.Shutdown(ctx)
	}()

	select {
	case err := <-shutdownDone:
		if err == nil {
			t.Fatal("shutdown returned before job finished")
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown did not time out")
	}

	close(release)
	<-finished

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := manager.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown after release failed: %v", err)
	}
}
