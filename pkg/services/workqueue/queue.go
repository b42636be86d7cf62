package workqueue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// finishedHistoryLimit caps how many terminal task states the queue keeps
// for inspection. The queue lives as long as the server, so anything beyond
// a recent window would grow without bound.
const finishedHistoryLimit = 64

// Queue runs tasks concurrently as they are enqueued. There is no
// backpressure: N enqueued tasks run as N goroutines, bounded only by an
// optional concurrency limit. Tasks run exactly once.
type Queue struct {
	mu        sync.Mutex
	active    map[string]*TaskState
	finished  []*TaskState
	firstErr  error
	cancelled bool

	// sem bounds concurrent task goroutines when non-nil.
	sem chan struct{}

	// done is closed when all tasks complete
	done chan struct{}
	// wg tracks running goroutines
	wg sync.WaitGroup

	// Cancellation context for running tasks
	ctx    context.Context
	cancel context.CancelFunc

	logger *zap.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithMaxConcurrent caps the number of tasks running at once. Zero or
// negative means unbounded.
func WithMaxConcurrent(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.sem = make(chan struct{}, n)
		}
	}
}

// New creates a new work queue.
func New(logger *zap.Logger, opts ...QueueOption) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		active: make(map[string]*TaskState),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("workqueue"),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue adds a task and starts it in its own goroutine. Returns false if
// the queue has been cancelled.
func (q *Queue) Enqueue(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		q.logger.Warn("queue cancelled, ignoring enqueue",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return false
	}

	q.resetDoneLocked()

	state := NewTaskState(task)
	q.active[task.ID()] = state

	q.logger.Info("task enqueued",
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()))

	q.wg.Add(1)
	go q.runTask(state)
	return true
}

// runTask executes a task exactly once and records the outcome.
func (q *Queue) runTask(ts *TaskState) {
	defer q.wg.Done()

	if q.sem != nil {
		select {
		case q.sem <- struct{}{}:
			defer func() { <-q.sem }()
		case <-q.ctx.Done():
			q.finishTask(ts, q.ctx.Err())
			return
		}
	}

	ts.SetStatus(TaskStatusRunning)
	q.logger.Info("starting task",
		zap.String("task_id", ts.Task.ID()),
		zap.String("task_name", ts.Task.Name()))

	q.finishTask(ts, ts.Task.Execute(q.ctx))
}

// finishTask records the terminal state for a task and retires it from the
// active set into the bounded history.
func (q *Queue) finishTask(ts *TaskState, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case err == nil:
		ts.SetStatus(TaskStatusCompleted)
		q.logger.Info("task completed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))
	case errors.Is(err, context.Canceled):
		ts.SetStatus(TaskStatusCancelled)
		q.logger.Info("task cancelled",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))
	default:
		ts.SetStatus(TaskStatusFailed)
		ts.SetError(err)
		if q.firstErr == nil {
			q.firstErr = err
		}
		q.logger.Error("task failed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Error(err))
	}

	delete(q.active, ts.Task.ID())
	q.finished = append(q.finished, ts)
	if len(q.finished) > finishedHistoryLimit {
		q.finished = append(q.finished[:0:0], q.finished[len(q.finished)-finishedHistoryLimit:]...)
	}

	if len(q.active) == 0 {
		q.closeDoneLocked()
	}
}

// closeDoneLocked safely closes the done channel. Must be called with lock held.
func (q *Queue) closeDoneLocked() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}

// resetDoneLocked recreates the done channel if a previous batch closed it.
// Must be called with lock held.
func (q *Queue) resetDoneLocked() {
	select {
	case <-q.done:
		q.done = make(chan struct{})
	default:
	}
}

// GetTasks returns a snapshot of active tasks plus the recent history of
// finished ones.
func (q *Queue) GetTasks() []TaskSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshots := make([]TaskSnapshot, 0, len(q.finished)+len(q.active))
	for _, ts := range q.finished {
		snapshots = append(snapshots, ts.Snapshot())
	}
	for _, ts := range q.active {
		snapshots = append(snapshots, ts.Snapshot())
	}
	return snapshots
}

// Wait blocks until all tasks reach a terminal state or the context is
// cancelled. Returns the first task failure recorded, if any, even when the
// failed task has since been pruned from the history.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	if len(q.active) == 0 && len(q.finished) == 0 {
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.firstErr
	case <-ctx.Done():
		q.Cancel()
		return ctx.Err()
	}
}

// Cancel signals running tasks to stop and rejects further enqueues.
// Used at shutdown; an in-flight task sees its context cancelled.
func (q *Queue) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		return
	}

	q.cancelled = true
	q.logger.Info("queue cancelled, signaling running tasks to stop")
	q.cancel()

	if len(q.active) == 0 {
		q.closeDoneLocked()
	}
}
