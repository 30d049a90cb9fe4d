// Package types defines core interfaces and types for the task pool library
package types

import (
	"time"
)

// Metrics receives pool events for export to a monitoring system.
// Implementations must be safe for concurrent use; the pool invokes these
// methods from worker and watchdog goroutines and they must not block.
type Metrics interface {
	// TaskEnqueued records a task entering the queue
	TaskEnqueued()

	// TaskStarted records a task leaving the queue for a worker
	TaskStarted()

	// TaskCompleted records a task whose body ran to completion
	TaskCompleted(duration time.Duration, failed bool)

	// TaskAborted records a task evicted at its deadline
	TaskAborted(duration time.Duration)

	// TaskCancelled records a queued task discarded at shutdown
	TaskCancelled()

	// TaskPanicked records a recovered panic in a task body
	TaskPanicked()

	// WorkerReplaced records a worker goroutine replaced after an eviction
	WorkerReplaced()

	// QueueDepth records the current queue depth
	QueueDepth(depth int)
}

// NopMetrics is a Metrics implementation that discards all events
type NopMetrics struct{}

func (NopMetrics) TaskEnqueued()                         {}
func (NopMetrics) TaskStarted()                          {}
func (NopMetrics) TaskCompleted(_ time.Duration, _ bool) {}
func (NopMetrics) TaskAborted(_ time.Duration)           {}
func (NopMetrics) TaskCancelled()                        {}
func (NopMetrics) TaskPanicked()                         {}
func (NopMetrics) WorkerReplaced()                       {}
func (NopMetrics) QueueDepth(_ int)                      {}

// PoolStats defines basic statistics for a pool
type PoolStats struct {
	// Workers is the number of worker slots
	Workers int

	// QueuedTasks is the current number of tasks waiting in the queue
	QueuedTasks int

	// RunningTasks is the current number of tasks bound to workers
	RunningTasks int

	// Idle reports whether the queue is empty and no task is running
	Idle bool

	// Sessions is the number of times the pool has started
	Sessions int64

	// CompletedTotal is the cumulative count of tasks whose body ran to completion
	CompletedTotal int64

	// FailedTotal is the cumulative count of completed tasks that returned an error
	FailedTotal int64

	// AbortedTotal is the cumulative count of aborted tasks, whether evicted
	// at their deadline or stopped by a shutdown
	AbortedTotal int64

	// CancelledTotal is the cumulative count of queued tasks discarded at shutdown
	CancelledTotal int64

	// ReplacedWorkers is the cumulative count of worker goroutines replaced
	ReplacedWorkers int64
}
