package gamealert

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Job is one periodic unit of work run by the Scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Lock coordinates exclusive runs of a job across processes.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LockProvider hands out a fresh lock for each run of a job.
type LockProvider interface {
	LockFor(job string) (Lock, error)
}

// JobMetrics records the outcome of job runs.
type JobMetrics interface {
	ObserveDuration(job string, duration time.Duration)
	IncSuccess(job string)
	IncFailure(job string)
}

// Registry tracks registered jobs and their intervals.
type Registry struct {
	entries []scheduledJob
}

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a job that runs every interval. Nil jobs and non-positive
// intervals are ignored.
func (r *Registry) Register(job Job, interval time.Duration) {
	if job == nil || interval <= 0 {
		return
	}
	r.entries = append(r.entries, scheduledJob{job: job, interval: interval})
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.entries))
	for i, e := range r.entries {
		jobs[i] = e.job
	}
	return jobs
}

// Scheduler runs every registered job on its own ticker.
//
// Jobs never share a run: each has its own goroutine, runs once at start and then
// every interval. A failing or panicking run is recorded and reported, and the
// job's next run proceeds as usual. Runs of the same job never overlap within
// one process; a LockProvider extends that across processes.
type Scheduler struct {
	registry    *Registry
	logger      Logger
	diagnostics DiagnosticsReporter
	locks       LockProvider
	metrics     JobMetrics

	mu      sync.Mutex
	running map[string]bool
}

// SchedulerOption is a function that configures a Scheduler.
type SchedulerOption func(*Scheduler) error

// NewScheduler creates a scheduler.
//
// Required options:
//   - WithRegistry: the jobs to run
//   - WithSchedulerLogger: logger instance
//
// Optional options:
//   - WithSchedulerDiagnostics: job failure reporter (default: NoOpDiagnostics)
//   - WithLockProvider: cross-process exclusion (default: none)
//   - WithJobMetrics: duration and outcome metrics (default: none)
func NewScheduler(opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		diagnostics: &NoOpDiagnostics{},
		running:     make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply scheduler option", err)
		}
	}

	if s.registry == nil {
		return nil, NewError(ErrCodeConfiguration, "Registry is required (use WithRegistry)")
	}
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithSchedulerLogger)")
	}

	return s, nil
}

// WithRegistry sets the jobs to run.
func WithRegistry(registry *Registry) SchedulerOption {
	return func(s *Scheduler) error {
		if registry == nil {
			return fmt.Errorf("registry cannot be nil")
		}
		s.registry = registry
		return nil
	}
}

// WithSchedulerLogger sets the logger instance.
func WithSchedulerLogger(logger Logger) SchedulerOption {
	return func(s *Scheduler) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithSchedulerDiagnostics sets the reporter for failed and panicking runs.
func WithSchedulerDiagnostics(reporter DiagnosticsReporter) SchedulerOption {
	return func(s *Scheduler) error {
		if reporter == nil {
			return fmt.Errorf("diagnostics reporter cannot be nil")
		}
		s.diagnostics = reporter
		return nil
	}
}

// WithLockProvider enables cross-process exclusion of job runs.
func WithLockProvider(locks LockProvider) SchedulerOption {
	return func(s *Scheduler) error {
		s.locks = locks
		return nil
	}
}

// WithJobMetrics sets the job metrics recorder.
func WithJobMetrics(metrics JobMetrics) SchedulerOption {
	return func(s *Scheduler) error {
		s.metrics = metrics
		return nil
	}
}

// Run starts every job and blocks until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	entries := s.registry.entries
	if len(entries) == 0 {
		return NewError(ErrCodeConfiguration, "no jobs registered")
	}

	s.logger.Infof("Scheduler starting with %d jobs", len(entries))

	var g errgroup.Group
	for _, e := range entries {
		g.Go(func() error {
			s.loop(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Scheduler stopped")
	return ctx.Err()
}

// RunOnce runs the named job immediately and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	for _, e := range s.registry.entries {
		if e.job.Name() == name {
			return s.runJob(ctx, e.job)
		}
	}
	return NewError(ErrCodeNoData, fmt.Sprintf("job %q is not registered", name))
}

func (s *Scheduler) loop(ctx context.Context, e scheduledJob) {
	_ = s.runJob(ctx, e.job)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.runJob(ctx, e.job)
		}
	}
}

// runJob executes one run of a job with locking, recovery, metrics and reporting.
func (s *Scheduler) runJob(ctx context.Context, job Job) (err error) {
	name := job.Name()
	if !s.claim(name) {
		s.logger.Warnf("Job %s is still running, skipping this tick", name)
		return nil
	}
	defer s.unclaim(name)

	runID := uuid.NewString()
	logger := withTag(s.logger, name+" "+runID[:8])

	if s.locks != nil {
		lock, lockErr := s.locks.LockFor(name)
		if lockErr != nil {
			logger.Errorf("Failed to create lock: %v", lockErr)
			return lockErr
		}
		acquired, lockErr := lock.Acquire(ctx)
		if lockErr != nil {
			logger.Errorf("Failed to acquire lock: %v", lockErr)
			return lockErr
		}
		if !acquired {
			logger.Info("Another instance holds the lock, skipping")
			return nil
		}
		defer func() {
			if relErr := lock.Release(context.WithoutCancel(ctx)); relErr != nil {
				logger.Warnf("Failed to release lock: %v", relErr)
			}
		}()
	}

	start := time.Now()
	var trace string
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				trace = TruncateTrace(string(debug.Stack()))
			}
		}()
		logger.Debugf("Run starting")
		err = job.Run(ctx)
	}()
	duration := time.Since(start)
	s.observe(name, duration, err)

	if err != nil {
		if ctx.Err() != nil && IsCanceled(err) {
			logger.Infof("Run canceled after %v", duration)
			return err
		}
		logger.Errorf("Run failed after %v: %v", duration, err)
		if repErr := s.diagnostics.ReportJobFailure(ctx, name, runID, err, trace); repErr != nil {
			logger.Warnf("Failed to report job failure: %v", repErr)
		}
		return err
	}

	logger.Debugf("Run completed in %v", duration)
	return nil
}

func (s *Scheduler) observe(job string, duration time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
	if err != nil {
		s.metrics.IncFailure(job)
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Scheduler) claim(job string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[job] {
		return false
	}
	s.running[job] = true
	return true
}

func (s *Scheduler) unclaim(job string) {
	s.mu.Lock()
	delete(s.running, job)
	s.mu.Unlock()
}
