/*
Package taskpool provides a deadline-enforcing worker pool with per-task
execution time limits and forced eviction of overrunning tasks.

# Overview

This package implements a fixed-size worker pool supporting:
- Per-task execution time limits with watchdog enforcement
- FIFO task queuing with batch submission
- Forced eviction and worker replacement on deadline overrun
- Abort callbacks invoked exactly once per evicted task
- Idle detection with blocking waiters
- Synchronous, idempotent shutdown and transparent restart
- Structured logging and pluggable metrics

# Core Components

## Pool

The caller-facing object. It starts its worker machinery lazily on the
first submission, keeps cumulative statistics across restarts, and exposes
Submit, SubmitBatch, WaitIdle, Shutdown and Stats.

## Task

A single-use unit of work carrying its own maximum execution time. Tasks
move through created, enqueued, started and exactly one of completed,
aborted or cancelled; the current state is readable from any goroutine via
State. An optional callback fires exactly once when a task is aborted.

## Watchdog

A single goroutine per pool run that sleeps until the earliest pending
deadline and evicts every task that has overrun it. Eviction unbinds the
task from its worker slot, cancels the task context, marks the task
aborted, fires its callback and starts a replacement worker goroutine, so
pool capacity is restored at the deadline.

# The Eviction Model

Goroutines cannot be killed. When a task overruns its limit the pool
guarantees, at the deadline: the task is marked aborted, its callback
fires, its context is cancelled and a fresh worker takes over the slot.
The guarantee that does NOT hold is termination of the overrunning body
itself: the evicted goroutine keeps running until the task body returns,
and its eventual return value is discarded. A task that ignores its
context therefore leaks a goroutine (never a worker slot) until it
returns. Tasks that must stop promptly should select on ctx.Done().

# Concurrency Safety

Workers and the watchdog coordinate through one mutex and condition
variable guarding the queue, the worker slots and the idle latch. Task
bodies and abort callbacks always run outside that lock. Task state reads
are lock-free. Dequeue order is submission order; completion order is not
specified. Abort callbacks run on a pool goroutine and must not call
Shutdown or WaitIdle on the owning pool.

# Error Handling

Construction and submission errors are synchronous sentinel errors from
pkg/types. A task body returning an error does not change the lifecycle:
the task still completes, the error is retained and readable via Err, and
the failure is counted in the pool statistics. Panics in task bodies are
recovered, wrapped in *types.PanicError with the captured stack, and
treated as failures.

# Usage Examples

Basic usage:

	pool, err := taskpool.NewPool(&taskpool.Config{Workers: 4})
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Shutdown()

	task, err := taskpool.NewTask(5*time.Second, func(ctx context.Context) error {
		// do work, honoring ctx if possible
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := pool.Submit(task); err != nil {
		log.Printf("submit failed: %v", err)
	}

	pool.WaitIdleTimeout(10 * time.Second)
	fmt.Println(task.State()) // completed

Abort notification:

	task, _ := taskpool.NewTaskWithAbort(100*time.Millisecond,
		func(ctx context.Context) error {
			<-ctx.Done() // cooperative: stop when evicted
			return ctx.Err()
		},
		func() {
			log.Println("task exceeded its limit")
		})

Retrieve statistics:

	stats := pool.Stats()
	fmt.Printf("queued=%d running=%d\n", stats.QueuedTasks, stats.RunningTasks)
	fmt.Printf("aborted total: %d\n", stats.AbortedTotal)

# Configuration Options

Config supports the following:
- Workers: number of worker goroutines
- Clock: time source, swappable for tests
- Logger: zerolog logger for lifecycle events
- Metrics: event sink, e.g. the Prometheus adapter in pkg/poolmetrics

# Lifecycle

Shutdown is synchronous and idempotent: queued tasks become cancelled,
running tasks become aborted, and all pool-owned goroutines that can exit
are joined before it returns. The pool object stays usable; the next
submission starts a fresh run. Waiters and statistics observe a shut-down
pool as idle.
*/
package taskpool
