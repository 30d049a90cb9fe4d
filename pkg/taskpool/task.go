// Package taskpool provides a deadline-enforcing worker pool
package taskpool

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jzx17/gotaskpool/pkg/types"
)

// TaskState defines the lifecycle state of a Task
type TaskState int32

const (
	// TaskCreated means the task has been constructed but not submitted
	TaskCreated TaskState = iota
	// TaskEnqueued means the task is waiting in the pool queue
	TaskEnqueued
	// TaskStarted means the task is bound to a worker and running
	TaskStarted
	// TaskCompleted means the task body returned before its deadline
	TaskCompleted
	// TaskAborted means the task was evicted at its deadline
	TaskAborted
	// TaskCancelled means the task was discarded from the queue at shutdown
	TaskCancelled
)

// String returns the string representation of TaskState
func (ts TaskState) String() string {
	switch ts {
	case TaskCreated:
		return "created"
	case TaskEnqueued:
		return "enqueued"
	case TaskStarted:
		return "started"
	case TaskCompleted:
		return "completed"
	case TaskAborted:
		return "aborted"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final
func (ts TaskState) Terminal() bool {
	switch ts {
	case TaskCompleted, TaskAborted, TaskCancelled:
		return true
	default:
		return false
	}
}

// Task is a single unit of work with an execution time limit.
//
// A Task object is single-use: once submitted it moves through its lifecycle
// exactly once and resubmission is rejected. The execute function receives a
// context that is cancelled when the task is evicted at its deadline or the
// pool shuts down; cooperative tasks should observe it, but the pool's
// timeout guarantees do not depend on it (see the package documentation for
// the eviction model).
type Task struct {
	id        string
	timeLimit time.Duration
	execute   func(ctx context.Context) error
	onAborted func()

	state int32 // atomic TaskState

	// err is written before the terminal state is published and read only
	// after a terminal state has been observed.
	err error
}

// NewTask creates a task with a generated ULID identifier.
// The time limit must not be negative; zero means the task is due for
// eviction the instant it starts.
func NewTask(timeLimit time.Duration, execute func(ctx context.Context) error) (*Task, error) {
	return NewTaskWithID(ulid.Make().String(), timeLimit, execute)
}

// NewTaskWithAbort creates a task with a callback invoked exactly once if the
// task is evicted at its deadline. The callback runs on a pool goroutine and
// must not call Shutdown or WaitIdle on the owning pool.
func NewTaskWithAbort(timeLimit time.Duration, execute func(ctx context.Context) error, onAborted func()) (*Task, error) {
	task, err := NewTaskWithID(ulid.Make().String(), timeLimit, execute)
	if err != nil {
		return nil, err
	}
	task.onAborted = onAborted
	return task, nil
}

// NewTaskWithID creates a task with a caller-chosen identifier
func NewTaskWithID(id string, timeLimit time.Duration, execute func(ctx context.Context) error) (*Task, error) {
	if timeLimit < 0 {
		return nil, fmt.Errorf("%w: got %v", types.ErrNegativeTimeLimit, timeLimit)
	}
	if execute == nil {
		return nil, types.ErrNilExecuteFunc
	}

	return &Task{
		id:        id,
		timeLimit: timeLimit,
		execute:   execute,
		state:     int32(TaskCreated),
	}, nil
}

// ID returns the task identifier
func (t *Task) ID() string {
	return t.id
}

// TimeLimit returns the maximum execution time of the task
func (t *Task) TimeLimit() time.Duration {
	return t.timeLimit
}

// State returns the current task state. It is safe to call from any
// goroutine at any point in the task lifecycle.
func (t *Task) State() TaskState {
	return TaskState(atomic.LoadInt32(&t.state))
}

// Err returns the error the task body returned, or the recovered panic as a
// *types.PanicError. It is non-nil only when the task completed and its body
// failed; aborted and cancelled tasks report their outcome through State.
func (t *Task) Err() error {
	if t.State() != TaskCompleted {
		return nil
	}
	return t.err
}

func (t *Task) setState(s TaskState) {
	atomic.StoreInt32(&t.state, int32(s))
}

func (t *Task) transition(from, to TaskState) bool {
	return atomic.CompareAndSwapInt32(&t.state, int32(from), int32(to))
}

// complete records the execution outcome and publishes the terminal state
func (t *Task) complete(err error) {
	t.err = err
	t.setState(TaskCompleted)
}
