package taskpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jzx17/gotaskpool/pkg/types"
)

// Config defines pool configuration
type Config struct {
	// Workers is the number of worker goroutines
	Workers int

	// Clock provides time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives lifecycle events (optional, defaults to a
	// disabled logger)
	Logger zerolog.Logger

	// Metrics receives pool events (optional, defaults to NopMetrics)
	Metrics types.Metrics
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Workers: 4,
		Clock:   types.NewRealClock(),
		Logger:  zerolog.Nop(),
		Metrics: types.NopMetrics{},
	}
}

// Pool is a deadline-enforcing worker pool.
//
// The pool starts lazily on the first submission, runs tasks in submission
// order on a fixed number of workers, evicts any task that exceeds its time
// limit, and can be shut down and restarted any number of times. A pool
// with no live worker machinery is trivially idle.
type Pool struct {
	config *Config

	mu   sync.Mutex
	sess *session

	// cumulative counters, survive restarts; bumped together with the
	// task state transition under the session lock so a Stats read that
	// observes a terminal state also observes the count
	sessionCount    int64
	completedTotal  int64
	failedTotal     int64
	abortedTotal    int64
	cancelledTotal  int64
	replacedWorkers int64
}

// NewPool creates a new pool
func NewPool(config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}

	// parameter validation
	if config.Workers <= 0 {
		return nil, fmt.Errorf("%w: got %d", types.ErrInvalidPoolSize, config.Workers)
	}

	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}
	if config.Metrics == nil {
		config.Metrics = types.NopMetrics{}
	}

	return &Pool{config: config}, nil
}

// Submit enqueues a task for execution, starting the pool machinery if it
// is not running. The task must be freshly constructed; a task object that
// was submitted before is rejected with types.ErrTaskResubmitted.
func (p *Pool) Submit(task *Task) error {
	if task == nil {
		return types.ErrNilTask
	}
	return p.submit([]*Task{task})
}

// SubmitBatch enqueues tasks in order as one atomic batch: either every
// task is accepted or none is. An empty batch is a no-op.
func (p *Pool) SubmitBatch(tasks []*Task) error {
	if len(tasks) == 0 {
		return nil
	}
	for _, task := range tasks {
		if task == nil {
			return types.ErrNilTask
		}
	}
	return p.submit(tasks)
}

func (p *Pool) submit(tasks []*Task) error {
	for {
		sess := p.ensureSession()
		depth, ok, err := sess.enqueue(tasks)
		if err != nil {
			return err
		}
		if ok {
			for _, task := range tasks {
				p.config.Metrics.TaskEnqueued()
				p.config.Logger.Debug().Str("task", task.ID()).Msg("task enqueued")
			}
			p.config.Metrics.QueueDepth(depth)
			return nil
		}

		// the session is shutting down; wait out its teardown and retry
		// against a fresh one so the submission is not lost
		<-sess.dead
	}
}

// ensureSession returns the live session, starting one if needed. A
// session that has finished its teardown is replaced.
func (p *Pool) ensureSession() *session {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sess := p.sess; sess != nil {
		select {
		case <-sess.dead:
			p.sess = nil
		default:
			return sess
		}
	}

	count := atomic.AddInt64(&p.sessionCount, 1)
	p.sess = newSession(p)
	p.config.Logger.Info().
		Int("workers", p.config.Workers).
		Int64("session", count).
		Msg("pool started")
	return p.sess
}

// WaitIdle blocks until the pool has no queued or running tasks, or the
// context is done, and reports whether idleness was observed. A pool that
// has never started, or has been shut down, is idle.
func (p *Pool) WaitIdle(ctx context.Context) bool {
	ch, idle := p.idleChan()
	if idle {
		return true
	}

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// WaitIdleTimeout is WaitIdle with a duration bound; a non-positive
// timeout waits indefinitely.
func (p *Pool) WaitIdleTimeout(timeout time.Duration) bool {
	ch, idle := p.idleChan()
	if idle {
		return true
	}
	if timeout <= 0 {
		<-ch
		return true
	}

	timer := p.config.Clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C():
		return false
	}
}

func (p *Pool) idleChan() (<-chan struct{}, bool) {
	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()

	if sess == nil {
		return nil, true
	}
	return sess.idleChan()
}

// Shutdown stops the pool synchronously: queued tasks are cancelled,
// running tasks are aborted with their callbacks invoked, and the worker
// machinery is torn down before Shutdown returns. Shutting down a pool
// that is not running is a no-op, and a later submission restarts the
// pool. Concurrent callers all block until teardown has finished.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()

	if sess == nil {
		return
	}
	sess.shutdown()

	p.mu.Lock()
	if p.sess == sess {
		p.sess = nil
	}
	p.mu.Unlock()
}

// IsRunning reports whether the pool machinery is currently live
func (p *Pool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sess == nil {
		return false
	}
	select {
	case <-p.sess.dead:
		return false
	default:
		return true
	}
}

// Size returns the number of worker slots
func (p *Pool) Size() int {
	return p.config.Workers
}

// Stats returns a snapshot of pool statistics. The cumulative totals
// survive shutdown and restart.
func (p *Pool) Stats() types.PoolStats {
	stats := types.PoolStats{
		Workers:         p.config.Workers,
		Idle:            true,
		Sessions:        atomic.LoadInt64(&p.sessionCount),
		CompletedTotal:  atomic.LoadInt64(&p.completedTotal),
		FailedTotal:     atomic.LoadInt64(&p.failedTotal),
		AbortedTotal:    atomic.LoadInt64(&p.abortedTotal),
		CancelledTotal:  atomic.LoadInt64(&p.cancelledTotal),
		ReplacedWorkers: atomic.LoadInt64(&p.replacedWorkers),
	}

	p.mu.Lock()
	sess := p.sess
	p.mu.Unlock()

	if sess != nil {
		sess.mu.Lock()
		stats.QueuedTasks = len(sess.queue)
		stats.RunningTasks = sess.busy
		stats.Idle = sess.idle
		sess.mu.Unlock()
	}
	return stats
}

// taskStarted records a task leaving the queue for a worker
func (p *Pool) taskStarted(task *Task, depth int) {
	p.config.Metrics.TaskStarted()
	p.config.Metrics.QueueDepth(depth)
	p.config.Logger.Debug().Str("task", task.ID()).Msg("task started")
}

// taskCompleted records the outcome of a task whose body returned before
// its deadline
func (p *Pool) taskCompleted(task *Task, duration time.Duration, err error) {
	failed := err != nil
	p.config.Metrics.TaskCompleted(duration, failed)

	if panicErr, ok := err.(*types.PanicError); ok {
		p.config.Metrics.TaskPanicked()
		p.config.Logger.Error().
			Str("task", task.ID()).
			Str("stack", panicErr.Stack).
			Msg("task panicked")
		return
	}
	if failed {
		p.config.Logger.Debug().
			Str("task", task.ID()).
			Err(err).
			Msg("task failed")
		return
	}
	p.config.Logger.Debug().
		Str("task", task.ID()).
		Dur("duration", duration).
		Msg("task completed")
}

// taskAbortedDeadline records a deadline eviction by the watchdog and fires
// the abort callback
func (p *Pool) taskAbortedDeadline(task *Task, ranFor time.Duration) {
	p.config.Metrics.TaskAborted(ranFor)
	p.config.Metrics.WorkerReplaced()
	p.config.Logger.Warn().
		Str("task", task.ID()).
		Dur("time_limit", task.timeLimit).
		Dur("ran_for", ranFor).
		Msg("task aborted at deadline")

	if task.onAborted != nil {
		task.onAborted()
	}
}

// taskAbortedShutdown records a running task aborted by Shutdown and fires
// the abort callback
func (p *Pool) taskAbortedShutdown(task *Task, ranFor time.Duration) {
	p.config.Metrics.TaskAborted(ranFor)
	p.config.Logger.Warn().
		Str("task", task.ID()).
		Dur("ran_for", ranFor).
		Msg("task aborted at shutdown")

	if task.onAborted != nil {
		task.onAborted()
	}
}

// taskCancelled records a queued task discarded at shutdown
func (p *Pool) taskCancelled(task *Task) {
	p.config.Metrics.TaskCancelled()
	p.config.Logger.Debug().Str("task", task.ID()).Msg("queued task cancelled")
}
