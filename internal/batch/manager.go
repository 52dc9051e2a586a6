// Package batch runs client-side jobs, such as sample uploads, on a bounded
// worker pool.
package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrShutdown = errors.New("batch: shutdown")

type Config struct {
	Workers  int
	MaxQueue int
}

type Manager struct {
	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	active    atomic.Int32
	completed atomic.Int64
}

type job struct {
	ctx    context.Context
	fn     func(context.Context) error
	result chan error
}

func NewManager(cfg Config) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxQueue < 0 {
		cfg.MaxQueue = 0
	}

	m := &Manager{
		jobs: make(chan job, cfg.MaxQueue),
	}

	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}

	return m
}

// Submit runs fn on a worker and waits for its result. It blocks while all
// workers are busy and the queue is full.
func (m *Manager) Submit(ctx context.Context, fn func(context.Context) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrShutdown
	}

	j := job{ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case m.jobs <- j:
		m.mu.RUnlock()
	case <-ctx.Done():
		m.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Each submits fn for every index in [0, n) and returns the per-index errors.
func (m *Manager) Each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Submit(ctx, func(ctx context.Context) error {
				return fn(ctx, i)
			})
		}(i)
	}
	wg.Wait()
	return errs
}

// Active returns the number of jobs currently running.
func (m *Manager) Active() int {
	return int(m.active.Load())
}

// Completed returns the number of jobs that have finished.
func (m *Manager) Completed() int64 {
	return m.completed.Load()
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.jobs)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()

	for j := range m.jobs {
		if err := j.ctx.Err(); err != nil {
			j.result <- err
			continue
		}
		m.active.Add(1)
		j.result <- j.fn(j.ctx)
		m.active.Add(-1)
		m.completed.Add(1)
	}
}
