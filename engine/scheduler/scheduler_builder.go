package scheduler

import (
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// SchedulerBuilderOption is a functional option for configuring a Scheduler via NewScheduler.
type SchedulerBuilderOption func(*scheduler)

// WithWorkers sets the number of pool workers. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithWorkers(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithQueueSize sets the task queue capacity of the pool. Defaults to 256.
func WithQueueSize(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithIdleTimeout sets how long an idle pool worker lingers before exiting. Defaults to 1s.
func WithIdleTimeout(d time.Duration) SchedulerBuilderOption {
	return func(s *scheduler) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithPool shares an existing worker pool instead of creating one.
//
// Parameters:
//   - pool: the pool to submit work to
//   - workers: the worker count of pool, reported by Workers
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithPool(pool worker.DynamicWorkerPool, workers int) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.pool = pool
		if workers > 0 {
			s.workers = workers
		}
	}
}
