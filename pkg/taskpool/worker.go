package taskpool

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jzx17/gotaskpool/pkg/types"
)

// slot is one worker position in the pool. All fields are guarded by the
// session mutex. gen ties a goroutine to the slot: when the watchdog evicts
// a task it bumps gen and starts a replacement goroutine, and the evicted
// goroutine sees the mismatch on return and exits without touching the slot
// or the task again.
type slot struct {
	id       int
	gen      uint64
	task     *Task
	started  time.Time
	deadline time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// startWorkerLocked starts a fresh goroutine for the slot, detaching any
// previous one via the generation counter. Caller holds s.mu.
func (s *session) startWorkerLocked(sl *slot) {
	sl.gen++
	sl.done = make(chan struct{})
	go s.runWorker(sl, sl.gen, sl.done)
}

// runWorker is the worker loop: dequeue the head task, stamp its deadline,
// run the body outside the lock, and clear the slot when the body returns.
func (s *session) runWorker(sl *slot, gen uint64, done chan struct{}) {
	defer close(done)

	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped {
			s.mu.Unlock()
			return
		}

		task := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		depth := len(s.queue)

		execCtx, cancel := context.WithCancel(s.ctx)
		now := s.clock.Now()
		sl.task = task
		sl.started = now
		sl.deadline = now.Add(task.timeLimit)
		sl.cancel = cancel
		s.busy++
		task.setState(TaskStarted)
		if s.watchTarget.IsZero() || sl.deadline.Before(s.watchTarget) {
			s.pokeWatchdog()
		}
		s.mu.Unlock()

		s.pool.taskStarted(task, depth)

		err := s.runTask(execCtx, task)
		duration := s.clock.Since(now)
		cancel()

		s.mu.Lock()
		if sl.gen != gen {
			// evicted at the deadline while the body was still running;
			// the outcome is discarded and the replacement owns the slot
			s.mu.Unlock()
			return
		}
		sl.task = nil
		sl.cancel = nil
		s.busy--
		task.complete(err)
		atomic.AddInt64(&s.pool.completedTotal, 1)
		if err != nil {
			atomic.AddInt64(&s.pool.failedTotal, 1)
		}
		maybeIdle := len(s.queue) == 0 && s.busy == 0
		s.mu.Unlock()

		s.pool.taskCompleted(task, duration, err)

		// poke only after the completion is fully recorded so idle
		// waiters observe it
		if maybeIdle {
			s.pokeWatchdog()
		}
	}
}

// runTask executes the task body with panic recovery
func (s *session) runTask(ctx context.Context, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)
			err = types.NewPanicError(task.ID(), r, string(buf[:n]))
		}
	}()

	return task.execute(ctx)
}
