package scheduler

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

var errDependencyFailed = errors.New("dependency failed")

// Job is a unit of work with declared data dependencies.
// Reads and Writes name the data the job touches; the names are opaque to the scheduler.
type Job struct {
	Name   string
	Reads  []string
	Writes []string
	Run    func() error
}

// Future tracks a scheduled Job.
type Future struct {
	name string
	done chan struct{}
	err  error
}

// Name returns the name of the job.
func (f *Future) Name() string {
	return f.name
}

// Done returns a channel closed when the job has finished or been skipped.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the job has finished and returns its error.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

func (f *Future) finish(err error) {
	f.err = err
	close(f.done)
}

// scheduler is the implementation of the Scheduler interface.
type scheduler struct {
	mu *sync.Mutex

	pool        worker.DynamicWorkerPool
	workers     int
	queueSize   int
	idleTimeout time.Duration

	nextTaskID atomic.Int64

	lastWriter map[string]*Future
	readers    map[string][]*Future
	pending    []*Future
}

// Scheduler runs Jobs on a shared worker pool. A job starts only after every earlier job
// that writes data it reads or writes, and every earlier job that reads data it writes,
// has finished. Jobs with no conflicts run in parallel.
type Scheduler interface {
	// Schedule queues a job and returns its future.
	//
	// Parameters:
	//   - job: the job to run
	//   - after: extra futures the job must wait for
	//
	// Returns:
	//   - *Future: the future of the job
	Schedule(job Job, after ...*Future) *Future

	// ParallelFor splits [0, n) into ranges of at most grain items and runs fn on each range
	// on the pool, returning once every range is done. It must not be called from inside a Job.
	//
	// Parameters:
	//   - n: the number of items
	//   - grain: the maximum range size (values < 1 are treated as 1)
	//   - fn: the work for one range [start, end)
	ParallelFor(n, grain int, fn func(start, end int))

	// Wait blocks until every job scheduled so far has finished and clears dependency tracking.
	//
	// Returns:
	//   - error: all job errors joined, or nil
	Wait() error

	// Workers returns the configured worker count.
	//
	// Returns:
	//   - int: the worker count
	Workers() int
}

var _ Scheduler = &scheduler{}

// NewScheduler creates a Scheduler backed by a dynamic worker pool.
// The worker count defaults to runtime.NumCPU()-1 (minimum 1).
//
// Parameters:
//   - options: functional options for the scheduler
//
// Returns:
//   - Scheduler: the scheduler
func NewScheduler(options ...SchedulerBuilderOption) Scheduler {
	s := &scheduler{
		mu:          &sync.Mutex{},
		workers:     max(runtime.NumCPU()-1, 1),
		queueSize:   256,
		idleTimeout: 1 * time.Second,
		lastWriter:  make(map[string]*Future),
		readers:     make(map[string][]*Future),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.pool == nil {
		s.pool = worker.NewDynamicWorkerPool(s.workers, s.queueSize, s.idleTimeout)
	}
	return s
}

func (s *scheduler) Workers() int {
	return s.workers
}

func (s *scheduler) Schedule(job Job, after ...*Future) *Future {
	f := &Future{name: job.Name, done: make(chan struct{})}

	s.mu.Lock()
	deps := make([]*Future, 0, len(after)+len(job.Reads)+len(job.Writes))
	for _, d := range after {
		if d != nil {
			deps = append(deps, d)
		}
	}
	for _, r := range job.Reads {
		if w := s.lastWriter[r]; w != nil {
			deps = append(deps, w)
		}
	}
	for _, w := range job.Writes {
		if prev := s.lastWriter[w]; prev != nil {
			deps = append(deps, prev)
		}
		deps = append(deps, s.readers[w]...)
	}

	for _, r := range job.Reads {
		s.readers[r] = append(s.readers[r], f)
	}
	for _, w := range job.Writes {
		s.lastWriter[w] = f
		delete(s.readers, w)
	}
	s.pending = append(s.pending, f)
	s.mu.Unlock()

	if len(deps) == 0 {
		s.submit(job, f)
		return f
	}

	go func() {
		for _, d := range deps {
			if err := d.Wait(); err != nil {
				f.finish(fmt.Errorf("job %q: %w: %s", job.Name, errDependencyFailed, d.name))
				return
			}
		}
		s.submit(job, f)
	}()
	return f
}

// submit hands a job whose dependencies are satisfied to the pool.
func (s *scheduler) submit(job Job, f *Future) {
	s.pool.SubmitTask(worker.Task{
		ID: int(s.nextTaskID.Add(1)),
		Do: func() (any, error) {
			err := runSafely(job.Name, job.Run)
			f.finish(err)
			return nil, err
		},
	})
}

func (s *scheduler) ParallelFor(n, grain int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if grain < 1 {
		grain = 1
	}
	if n <= grain {
		fn(0, n)
		return
	}

	// The pool workers persist across calls; a WaitGroup gives the per-call barrier.
	var wg sync.WaitGroup
	for start := grain; start < n; start += grain {
		end := min(start+grain, n)
		wg.Add(1)
		lo, hi := start, end
		s.pool.SubmitTask(worker.Task{
			ID: int(s.nextTaskID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				fn(lo, hi)
				return nil, nil
			},
		})
	}
	fn(0, grain)
	wg.Wait()
}

func (s *scheduler) Wait() error {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.lastWriter = make(map[string]*Future)
	s.readers = make(map[string][]*Future)
	s.mu.Unlock()

	var errs []error
	for _, f := range pending {
		if err := f.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runSafely runs fn and converts a panic into an error.
func runSafely(name string, fn func() error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q panicked: %v", name, r)
		}
	}()
	return fn()
}
