package crawler

import "sync"

// QuiescenceTracker counts registered tasks that have not yet completed.
// It is a counting barrier for a task set that grows while it drains:
// a submitter calls Register before handing a task to the pool, and the
// task calls Arrive exactly once when it finishes, fails, is skipped or
// is rejected. Wait returns once the count drops to zero.
//
// The count may only reach zero once, so a caller seeding the work must
// hold a registration of its own until every seed has been registered.
type QuiescenceTracker struct {
	mu          sync.Mutex
	outstanding int64
	reached     bool
	done        chan struct{}
}

// NewQuiescenceTracker creates a tracker with nothing outstanding
func NewQuiescenceTracker() *QuiescenceTracker {
	return &QuiescenceTracker{done: make(chan struct{})}
}

// Register adds one outstanding task.
// It panics if the tracker already reached quiescence.
func (q *QuiescenceTracker) Register() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.reached {
		panic("crawler: Register called after quiescence")
	}
	q.outstanding++
}

// Arrive completes one registration and releases waiters when the count
// reaches zero. It panics if called more times than Register.
func (q *QuiescenceTracker) Arrive() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.outstanding <= 0 {
		panic("crawler: Arrive called without matching Register")
	}
	q.outstanding--
	if q.outstanding == 0 {
		q.release()
	}
}

// Wait blocks until nothing is outstanding
func (q *QuiescenceTracker) Wait() {
	q.mu.Lock()
	if q.outstanding == 0 {
		q.release()
	}
	q.mu.Unlock()

	<-q.done
}

// Done is closed once quiescence is reached.
func (q *QuiescenceTracker) Done() <-chan struct{} {
	return q.done
}

// Outstanding returns the current count
func (q *QuiescenceTracker) Outstanding() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding
}

// release must be called with mu held
func (q *QuiescenceTracker) release() {
	if !q.reached {
		q.reached = true
		close(q.done)
	}
}
