// internal/pkg/async/pool.go
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Stop when called more than once.
var ErrStopped = errors.New("async: pool already stopped")

type Task struct {
	Name    string
	Execute func(ctx context.Context) error
}

// Pool runs submitted tasks on a fixed number of workers. Submission never
// blocks: when the queue is full the task is rejected.
type Pool struct {
	workerCount int
	tasks       chan Task
	logger      *slog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func NewPool(workerCount, queueSize int, logger *slog.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		workerCount: workerCount,
		tasks:       make(chan Task, queueSize),
		logger:      logger,
	}
}

// Start launches the workers. Tasks receive a context that is cancelled when
// the parent is cancelled or the pool is stopped past its deadline.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(ctx, task)
	}
}

func (p *Pool) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Panic recovered in pool task",
				slog.String("task", task.Name),
				slog.Any("panic", r))
		}
	}()

	if err := task.Execute(ctx); err != nil {
		p.logger.Warn("Pool task failed", slog.String("task", task.Name), slog.Any("error", err))
	}
}

// Submit enqueues task. It returns false when the queue is full or the pool
// has been stopped.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int {
	return len(p.tasks)
}

// Stop closes the queue and waits for queued tasks to finish. When ctx
// expires first, running tasks are cancelled and Stop returns ctx.Err().
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if p.cancel != nil {
			p.cancel()
		}
		return nil
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		<-done
		return ctx.Err()
	}
}
