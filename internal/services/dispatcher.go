package services

import (
	"context"
	"sync"
	"time"

	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/rs/zerolog"
)

// Dispatcher runs secondary effects after the primary write has committed.
// A task's failure never reaches the caller that dispatched it.
type Dispatcher interface {
	Dispatch(name string, fn func(ctx context.Context) error)
}

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// TaskDispatcher is a fixed pool of workers fed by a bounded queue. When
// the queue is full the task is dropped and logged; everything it would
// have produced is re-derivable by a recompute.
type TaskDispatcher struct {
	tasks   chan task
	workers int
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewTaskDispatcher(workers, queueSize int, timeout time.Duration, log zerolog.Logger) *TaskDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &TaskDispatcher{
		tasks:   make(chan task, queueSize),
		workers: workers,
		timeout: timeout,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

func (d *TaskDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

func (d *TaskDispatcher) Dispatch(name string, fn func(ctx context.Context) error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn().Str("task", name).Msg("dispatcher stopped, dropping task")
		return
	}

	select {
	case d.tasks <- task{name: name, fn: fn}:
	default:
		d.log.Warn().Str("task", name).Msg("task queue full, dropping task")
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (d *TaskDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *TaskDispatcher) work() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.run(t)
	}
}

func (d *TaskDispatcher) run(t task) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("task", t.name).Interface("panic", r).Msg("task panicked")
		}
	}()

	start := time.Now()
	if err := t.fn(ctx); err != nil {
		d.log.Error().
			Err(err).
			Str("task", t.name).
			Str("kind", string(apperrors.KindDependencyFailure)).
			Msg("secondary effect failed")
		return
	}
	d.log.Debug().Str("task", t.name).Dur("took", time.Since(start)).Msg("task done")
}

// InlineDispatcher runs tasks synchronously on the calling goroutine. The
// recompute command and tests use it.
type InlineDispatcher struct {
	Log zerolog.Logger
}

func (d InlineDispatcher) Dispatch(name string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil {
		d.Log.Error().Err(err).Str("task", name).Msg("secondary effect failed")
	}
}
