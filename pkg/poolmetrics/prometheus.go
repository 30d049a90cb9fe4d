// Package poolmetrics adapts pool metrics to Prometheus collectors
package poolmetrics

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jzx17/gotaskpool/pkg/types"
)

// Options controls collector configuration
type Options struct {
	// DurationBuckets overrides the histogram buckets for task durations
	DurationBuckets []float64
}

// Exporter implements types.Metrics with Prometheus collectors
type Exporter struct {
	taskDurationSeconds *prom.HistogramVec
	tasksFinishedTotal  *prom.CounterVec
	tasksSubmittedTotal prom.Counter
	tasksStartedTotal   prom.Counter
	taskPanicsTotal     prom.Counter
	workersReplaced     prom.Counter
	queueDepth          prom.Gauge
}

var _ types.Metrics = (*Exporter)(nil)

// NewExporter creates and registers Prometheus collectors for pool events.
// Registering twice against the same registry returns an exporter bound to
// the existing collectors.
func NewExporter(namespace string, reg prom.Registerer, opts Options) (*Exporter, error) {
	if namespace == "" {
		namespace = "taskpool"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"outcome"})
	finishedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_finished_total",
		Help:      "Total number of tasks that reached a terminal state.",
	}, []string{"outcome"})
	submitted := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_submitted_total",
		Help:      "Total number of tasks accepted into the queue.",
	})
	started := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_started_total",
		Help:      "Total number of tasks dispatched to a worker.",
	})
	panics := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panics_total",
		Help:      "Total number of recovered task panics.",
	})
	replaced := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "workers_replaced_total",
		Help:      "Total number of worker goroutines replaced after an eviction.",
	})
	depth := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of tasks waiting in the queue.",
	})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if finishedVec, err = registerCollector(reg, finishedVec); err != nil {
		return nil, err
	}
	if submitted, err = registerCollector(reg, submitted); err != nil {
		return nil, err
	}
	if started, err = registerCollector(reg, started); err != nil {
		return nil, err
	}
	if panics, err = registerCollector(reg, panics); err != nil {
		return nil, err
	}
	if replaced, err = registerCollector(reg, replaced); err != nil {
		return nil, err
	}
	if depth, err = registerCollector(reg, depth); err != nil {
		return nil, err
	}

	return &Exporter{
		taskDurationSeconds: durationVec,
		tasksFinishedTotal:  finishedVec,
		tasksSubmittedTotal: submitted,
		tasksStartedTotal:   started,
		taskPanicsTotal:     panics,
		workersReplaced:     replaced,
		queueDepth:          depth,
	}, nil
}

// TaskEnqueued records a task accepted into the queue
func (e *Exporter) TaskEnqueued() {
	if e == nil {
		return
	}
	e.tasksSubmittedTotal.Inc()
}

// TaskStarted records a task dispatched to a worker
func (e *Exporter) TaskStarted() {
	if e == nil {
		return
	}
	e.tasksStartedTotal.Inc()
}

// TaskCompleted records a task whose body ran to completion
func (e *Exporter) TaskCompleted(duration time.Duration, failed bool) {
	if e == nil {
		return
	}
	outcome := "completed"
	if failed {
		outcome = "failed"
	}
	e.taskDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
	e.tasksFinishedTotal.WithLabelValues(outcome).Inc()
}

// TaskAborted records a task evicted at its deadline
func (e *Exporter) TaskAborted(duration time.Duration) {
	if e == nil {
		return
	}
	e.taskDurationSeconds.WithLabelValues("aborted").Observe(duration.Seconds())
	e.tasksFinishedTotal.WithLabelValues("aborted").Inc()
}

// TaskCancelled records a queued task discarded at shutdown
func (e *Exporter) TaskCancelled() {
	if e == nil {
		return
	}
	e.tasksFinishedTotal.WithLabelValues("cancelled").Inc()
}

// TaskPanicked records a recovered task panic
func (e *Exporter) TaskPanicked() {
	if e == nil {
		return
	}
	e.taskPanicsTotal.Inc()
}

// WorkerReplaced records a worker goroutine replaced after an eviction
func (e *Exporter) WorkerReplaced() {
	if e == nil {
		return
	}
	e.workersReplaced.Inc()
}

// QueueDepth records the current queue depth
func (e *Exporter) QueueDepth(depth int) {
	if e == nil {
		return
	}
	e.queueDepth.Set(float64(depth))
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
