// Package pool runs tasks on a fixed set of worker goroutines fed by a
// bounded queue. Submission never blocks: a full queue rejects the task.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Task is a unit of work. The context is cancelled when the pool is
// force-stopped after the shutdown grace period.
type Task func(ctx context.Context)

// Pool is a fixed-size worker pool
type Pool struct {
	workers int
	queue   *Queue
	logger  logrus.FieldLogger

	mu       sync.Mutex
	started  atomic.Bool
	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}

	completed atomic.Int64
	panicked  atomic.Int64
}

// New creates a pool with the given number of workers and queue capacity.
func New(workers, queueSize int, logger logrus.FieldLogger) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQueueSize, queueSize)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Pool{
		workers: workers,
		queue:   NewQueue(queueSize),
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start launches the workers. Tasks run with a context derived from ctx.
// Cancelling ctx does not stop the workers; only Shutdown does.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started.Load() {
		return fmt.Errorf("pool already started: %w", ErrClosed)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	var g errgroup.Group
	for i := 0; i < p.workers; i++ {
		workerID := i
		g.Go(func() error {
			p.worker(taskCtx, workerID)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(p.done)
	}()

	p.started.Store(true)
	p.logger.WithField("workers", p.workers).Debug("Worker pool started")
	return nil
}

// worker drains the queue until it is stopped and empty
func (p *Pool) worker(ctx context.Context, id int) {
	for {
		task, ok := p.queue.Pop()
		if !ok {
			return
		}
		p.run(ctx, id, task)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		p.queue.Release()
		p.completed.Add(1)
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.WithFields(logrus.Fields{
				"worker": id,
				"panic":  r,
			}).Error("Task panicked")
		}
	}()
	task(ctx)
}

// Submit enqueues a task without blocking.
// Returns ErrClosed if the pool is not running and ErrSaturated if the queue is full.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return fmt.Errorf("nil task: %w", ErrClosed)
	}
	if !p.started.Load() {
		return ErrClosed
	}
	return p.queue.Push(task)
}

// Shutdown stops accepting tasks and waits up to grace for queued and
// running tasks to finish. After the grace period the task context is
// cancelled, queued tasks are dropped and ErrShutdownTimeout is returned.
func (p *Pool) Shutdown(grace time.Duration) error {
	p.stopOnce.Do(p.queue.Stop)

	if !p.started.Load() {
		return nil
	}

	select {
	case <-p.done:
		p.stopped()
		return nil
	default:
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.done:
		p.stopped()
		return nil
	case <-timer.C:
	}

	// Stopped and idle: no task can appear any more, workers are only exiting
	if p.queue.Idle() {
		<-p.done
		p.stopped()
		return nil
	}

	dropped := p.queue.Clear()
	running := p.queue.Running()
	p.cancel()
	p.logger.WithFields(logrus.Fields{
		"grace":   grace,
		"running": running,
		"dropped": dropped,
	}).Warn("Worker pool did not drain in time, abandoning remaining tasks")

	return fmt.Errorf("%w after %s (%d running, %d dropped)", ErrShutdownTimeout, grace, running, dropped)
}

func (p *Pool) stopped() {
	p.cancel()
	p.logger.WithFields(logrus.Fields{
		"completed": p.Completed(),
		"panicked":  p.Panicked(),
	}).Debug("Worker pool stopped")
}

// Done is closed once every worker has exited.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// Queued returns the number of tasks waiting for a worker
func (p *Pool) Queued() int {
	return p.queue.Size()
}

// Completed returns the number of tasks that ran to completion or panicked
func (p *Pool) Completed() int64 {
	return p.completed.Load()
}

// Panicked returns the number of tasks that panicked
func (p *Pool) Panicked() int64 {
	return p.panicked.Load()
}
