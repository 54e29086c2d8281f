package pool

import "sync"

// Queue implements a thread-safe bounded FIFO of tasks
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []Task
	capacity int
	running  int // popped but not yet released
	stopped  bool
}

// NewQueue creates a queue holding at most capacity tasks
func NewQueue(capacity int) *Queue {
	q := &Queue{
		items:    make([]Task, 0),
		capacity: capacity,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends a task without blocking.
// Returns ErrClosed after Stop and ErrSaturated when the queue is full.
func (q *Queue) Push(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrClosed
	}
	if len(q.items) >= q.capacity {
		return ErrSaturated
	}

	q.items = append(q.items, task)

	// Signal waiting workers
	q.cond.Signal()

	return nil
}

// Pop removes and returns the first task and counts it as running until Release
// Blocks if queue is empty and not stopped
// Returns (task, true) if successful, (nil, false) if stopped and empty
func (q *Queue) Pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.items) > 0 {
			task := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.running++
			return task, true
		}

		if q.stopped {
			return nil, false
		}

		q.cond.Wait()
	}
}

// Release marks a popped task as finished
func (q *Queue) Release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.running--
}

// Idle reports whether nothing is queued and no popped task is still running
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && q.running == 0
}

// Running returns the number of popped tasks not yet released
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Size returns the current number of items in the queue
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stop makes the queue refuse new tasks.
// Workers blocked on Pop() drain remaining items, then receive false
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stopped = true
	q.cond.Broadcast()
}

// Clear drops every queued task and returns how many were dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = nil
	return n
}
