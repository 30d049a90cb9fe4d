package types

import (
	"testing"
	"time"
)

// Mock implementation for testing
type countingMetrics struct {
	enqueued  int
	started   int
	completed int
	failed    int
	aborted   int
	cancelled int
	panicked  int
	replaced  int
	lastDepth int
}

func (m *countingMetrics) TaskEnqueued() { m.enqueued++ }
func (m *countingMetrics) TaskStarted()  { m.started++ }
func (m *countingMetrics) TaskCompleted(duration time.Duration, failed bool) {
	m.completed++
	if failed {
		m.failed++
	}
}
func (m *countingMetrics) TaskAborted(duration time.Duration) { m.aborted++ }
func (m *countingMetrics) TaskCancelled()                     { m.cancelled++ }
func (m *countingMetrics) TaskPanicked()                      { m.panicked++ }
func (m *countingMetrics) WorkerReplaced()                    { m.replaced++ }
func (m *countingMetrics) QueueDepth(depth int)               { m.lastDepth = depth }

func TestMetricsInterface(t *testing.T) {
	var metrics Metrics = &countingMetrics{}

	metrics.TaskEnqueued()
	metrics.TaskEnqueued()
	metrics.TaskStarted()
	metrics.TaskCompleted(10*time.Millisecond, false)
	metrics.TaskCompleted(20*time.Millisecond, true)
	metrics.TaskAborted(time.Second)
	metrics.TaskCancelled()
	metrics.TaskPanicked()
	metrics.WorkerReplaced()
	metrics.QueueDepth(7)

	counting := metrics.(*countingMetrics)
	if counting.enqueued != 2 {
		t.Errorf("expected 2 enqueued, got %d", counting.enqueued)
	}
	if counting.started != 1 {
		t.Errorf("expected 1 started, got %d", counting.started)
	}
	if counting.completed != 2 {
		t.Errorf("expected 2 completed, got %d", counting.completed)
	}
	if counting.failed != 1 {
		t.Errorf("expected 1 failed, got %d", counting.failed)
	}
	if counting.aborted != 1 {
		t.Errorf("expected 1 aborted, got %d", counting.aborted)
	}
	if counting.cancelled != 1 {
		t.Errorf("expected 1 cancelled, got %d", counting.cancelled)
	}
	if counting.panicked != 1 {
		t.Errorf("expected 1 panicked, got %d", counting.panicked)
	}
	if counting.replaced != 1 {
		t.Errorf("expected 1 replaced, got %d", counting.replaced)
	}
	if counting.lastDepth != 7 {
		t.Errorf("expected last depth 7, got %d", counting.lastDepth)
	}
}

func TestNopMetrics(t *testing.T) {
	// NopMetrics satisfies the interface and every call is a no-op
	var metrics Metrics = NopMetrics{}

	metrics.TaskEnqueued()
	metrics.TaskStarted()
	metrics.TaskCompleted(time.Millisecond, true)
	metrics.TaskAborted(time.Second)
	metrics.TaskCancelled()
	metrics.TaskPanicked()
	metrics.WorkerReplaced()
	metrics.QueueDepth(0)
}

func TestPoolStats(t *testing.T) {
	t.Run("Zero Value", func(t *testing.T) {
		var stats PoolStats

		if stats.Workers != 0 || stats.QueuedTasks != 0 || stats.RunningTasks != 0 {
			t.Errorf("expected zero gauges, got %+v", stats)
		}
		if stats.Idle {
			t.Errorf("expected zero value Idle to be false")
		}
	})

	t.Run("Populated", func(t *testing.T) {
		stats := PoolStats{
			Workers:         4,
			QueuedTasks:     2,
			RunningTasks:    3,
			Idle:            false,
			Sessions:        1,
			CompletedTotal:  10,
			FailedTotal:     2,
			AbortedTotal:    1,
			CancelledTotal:  0,
			ReplacedWorkers: 1,
		}

		if stats.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", stats.Workers)
		}
		if stats.CompletedTotal != 10 {
			t.Errorf("expected 10 completed, got %d", stats.CompletedTotal)
		}
		if stats.AbortedTotal != 1 {
			t.Errorf("expected 1 aborted, got %d", stats.AbortedTotal)
		}
	})
}
