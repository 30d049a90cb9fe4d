package taskpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/gotaskpool/pkg/types"
)

// A session is one startup-to-shutdown run of the pool. The queue, the
// worker slots and the idle latch are guarded by a single mutex; workers
// sleep on the condition variable and the watchdog sleeps on its timer.
type session struct {
	pool  *Pool
	clock types.Clock

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*Task
	slots   []*slot
	busy    int
	stopped bool

	// idle latch: the channel is closed when nothing is queued or running
	// and replaced on the next enqueue, so an idle observation stays valid
	// until new work arrives.
	idle   bool
	idleCh chan struct{}

	// watchTarget is the time of the next scheduled watchdog scan; a
	// worker binding an earlier deadline pokes the watchdog awake.
	watchTarget time.Time

	wake         chan struct{}
	stopCh       chan struct{}
	watchdogDone chan struct{}

	stopOnce sync.Once
	dead     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(p *Pool) *session {
	s := &session{
		pool:         p,
		clock:        p.config.Clock,
		slots:        make([]*slot, p.config.Workers),
		idle:         true,
		idleCh:       make(chan struct{}),
		wake:         make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		watchdogDone: make(chan struct{}),
		dead:         make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	// a fresh session is idle until the first enqueue
	close(s.idleCh)

	s.mu.Lock()
	for i := range s.slots {
		s.slots[i] = &slot{id: i}
		s.startWorkerLocked(s.slots[i])
	}
	s.mu.Unlock()

	go s.watchdog()

	return s
}

// enqueue appends tasks to the queue in submission order and returns the
// resulting queue depth. It reports false when the session is already
// stopping and the caller must retry against a fresh session. Either every
// task transitions to enqueued or none does.
func (s *session) enqueue(tasks []*Task) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, false, nil
	}

	for i, task := range tasks {
		if !task.transition(TaskCreated, TaskEnqueued) {
			for _, accepted := range tasks[:i] {
				accepted.setState(TaskCreated)
			}
			return 0, true, fmt.Errorf("%w: %s", types.ErrTaskResubmitted, task.ID())
		}
	}

	s.queue = append(s.queue, tasks...)
	if s.idle {
		s.idle = false
		s.idleCh = make(chan struct{})
	}

	if len(tasks) == 1 {
		s.cond.Signal()
	} else {
		s.cond.Broadcast()
	}
	return len(s.queue), true, nil
}

// idleChan returns the current idle latch and whether the session is idle
// right now
func (s *session) idleChan() (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idleCh, s.idle
}

// updateIdleLocked latches the idle signal when nothing is queued or
// running. Caller holds s.mu.
func (s *session) updateIdleLocked() {
	if !s.idle && len(s.queue) == 0 && s.busy == 0 {
		s.idle = true
		close(s.idleCh)
	}
}

// pokeWatchdog wakes the watchdog without blocking; the channel holds at
// most one pending wakeup
func (s *session) pokeWatchdog() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// shutdown stops the session and blocks until teardown has finished.
// Concurrent callers all observe completion.
func (s *session) shutdown() {
	s.stopOnce.Do(s.teardown)
	<-s.dead
}

// teardown runs the shutdown sequence: discard the queue, stop the
// watchdog, abort whatever is still running, then join the workers that
// can exit. Cancellation accounting and abort callbacks run at the end,
// outside every lock.
func (s *session) teardown() {
	// stop intake and discard the queue
	s.mu.Lock()
	s.stopped = true
	cancelled := s.queue
	s.queue = nil
	for _, task := range cancelled {
		task.setState(TaskCancelled)
	}
	atomic.AddInt64(&s.pool.cancelledTotal, int64(len(cancelled)))
	s.mu.Unlock()

	// stop the watchdog before touching the slots
	close(s.stopCh)
	<-s.watchdogDone

	now := s.clock.Now()

	// abort the running tasks; their goroutines are detached via the
	// generation counter and not replaced. Idle workers are woken by the
	// broadcast and joined below.
	s.mu.Lock()
	var aborted []abortedTask
	var joinable []chan struct{}
	for _, sl := range s.slots {
		if sl.task == nil {
			joinable = append(joinable, sl.done)
			continue
		}
		task := sl.task
		cancel := sl.cancel
		ranFor := now.Sub(sl.started)
		sl.task = nil
		sl.cancel = nil
		sl.gen++
		s.busy--
		task.setState(TaskAborted)
		atomic.AddInt64(&s.pool.abortedTotal, 1)
		cancel()
		aborted = append(aborted, abortedTask{task: task, ranFor: ranFor})
	}
	s.updateIdleLocked()
	s.cond.Broadcast()
	s.mu.Unlock()

	for _, done := range joinable {
		<-done
	}
	s.cancel()

	s.pool.config.Metrics.QueueDepth(0)
	for _, task := range cancelled {
		s.pool.taskCancelled(task)
	}
	for _, ab := range aborted {
		s.pool.taskAbortedShutdown(ab.task, ab.ranFor)
	}

	s.pool.config.Logger.Info().
		Int("cancelled", len(cancelled)).
		Int("aborted", len(aborted)).
		Msg("pool stopped")

	close(s.dead)
}
