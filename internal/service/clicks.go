package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/darkodi/shortlink/internal/logger"
	"github.com/darkodi/shortlink/internal/metrics"
	"github.com/darkodi/shortlink/internal/repository"
)

const clickTimeout = 5 * time.Second

// clickRecorder applies cache-hit click increments off the request path.
// Increments go to a fixed pool of workers; when the queue is full they run
// on a detached goroutine instead, so Record never blocks. Failures are
// logged and counted, never returned.
type clickRecorder struct {
	store Store
	log   *logger.Logger
	queue chan string

	mu     sync.RWMutex
	closed bool

	pending sync.WaitGroup // dispatched, not yet applied
	workers sync.WaitGroup
}

func newClickRecorder(store Store, log *logger.Logger, workers, queueSize int) *clickRecorder {
	r := &clickRecorder{
		store: store,
		log:   log,
		queue: make(chan string, queueSize),
	}

	r.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

// Record dispatches one click increment for code
func (r *clickRecorder) Record(code string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.log.Warn("click dropped after shutdown", "code", code)
		return
	}

	r.pending.Add(1)
	select {
	case r.queue <- code:
	default:
		go r.increment(code)
	}
}

func (r *clickRecorder) worker() {
	defer r.workers.Done()
	for code := range r.queue {
		r.increment(code)
	}
}

// increment is a read-modify-write through Save. Concurrent increments of
// the same code can lose updates; the counter is best-effort.
func (r *clickRecorder) increment(code string) {
	defer r.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), clickTimeout)
	defer cancel()

	m, err := r.store.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		// deleted between the cache hit and now
		r.log.Debug("click for missing mapping", "code", code)
		return
	}
	if err != nil {
		metrics.ClickFailures.Inc()
		r.log.Error("click lookup failed", "code", code, "error", err.Error())
		return
	}

	m.ClickCount++
	err = r.store.Save(ctx, m)
	if errors.Is(err, repository.ErrNotFound) {
		r.log.Debug("click for deleted mapping", "code", code)
		return
	}
	if err != nil {
		metrics.ClickFailures.Inc()
		r.log.Error("click save failed", "code", code, "error", err.Error())
	}
}

// Wait blocks until all dispatched increments are applied
func (r *clickRecorder) Wait() {
	r.pending.Wait()
}

// Close stops accepting increments and drains the queue, bounded by ctx
func (r *clickRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.workers.Wait()
		r.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
