package taskpool

import (
	"sync/atomic"
	"time"
)

// watchdogIdleSleep is the timer arm used when no deadline is pending
const watchdogIdleSleep = 1000 * time.Hour

// abortedTask pairs an evicted task with how long it had been running
type abortedTask struct {
	task   *Task
	ranFor time.Duration
}

// watchdog is the single goroutine that enforces deadlines for a session.
// It sleeps until the earliest pending deadline, or until a worker pokes it
// because an earlier deadline was bound or the pool may have gone idle.
func (s *session) watchdog() {
	defer close(s.watchdogDone)

	timer := s.clock.NewTimer(watchdogIdleSleep)
	defer timer.Stop()

	for {
		sleep, ok := s.inspect()
		if !ok {
			return
		}

		if !timer.Stop() {
			select {
			case <-timer.C():
			default:
			}
		}
		timer.Reset(sleep)

		select {
		case <-s.stopCh:
			return
		case <-s.wake:
		case <-timer.C():
		}
	}
}

// inspect evicts every slot whose deadline has passed, latches the idle
// signal if nothing is queued or running, and returns how long the watchdog
// may sleep until the next deadline. It reports false when the session is
// stopping.
func (s *session) inspect() (time.Duration, bool) {
	now := s.clock.Now()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, false
	}

	var aborted []abortedTask
	sleep := watchdogIdleSleep
	for _, sl := range s.slots {
		if sl.task == nil {
			continue
		}
		if sl.deadline.After(now) {
			if d := sl.deadline.Sub(now); d < sleep {
				sleep = d
			}
			continue
		}

		// deadline reached: unbind the task, detach its goroutine and
		// start a replacement so capacity is restored immediately
		task := sl.task
		cancel := sl.cancel
		ranFor := now.Sub(sl.started)
		sl.task = nil
		sl.cancel = nil
		s.busy--
		s.startWorkerLocked(sl)
		task.setState(TaskAborted)
		atomic.AddInt64(&s.pool.abortedTotal, 1)
		atomic.AddInt64(&s.pool.replacedWorkers, 1)
		cancel()
		aborted = append(aborted, abortedTask{task: task, ranFor: ranFor})
	}
	s.watchTarget = now.Add(sleep)
	s.mu.Unlock()

	// logging and user callbacks happen outside the lock
	for _, ab := range aborted {
		s.pool.taskAbortedDeadline(ab.task, ab.ranFor)
	}

	// latch idle only after the abort callbacks have run, so a waiter
	// woken by the idle signal never races them
	s.mu.Lock()
	s.updateIdleLocked()
	s.mu.Unlock()

	return sleep, true
}
