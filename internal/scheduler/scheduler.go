// Package scheduler runs Bureau's background maintenance jobs on cron
// schedules. Jobs run in the system context: they receive no tenant and are
// expected to pass tenancy.Unscoped() explicitly to the services they call.
package scheduler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned by RunNow for a job name that was never added.
var ErrUnknownJob = errors.New("unknown job")

// Job is a named unit of background work.
type Job struct {
	Name     string
	Schedule string // Standard cron expression or descriptor such as "@every 15m".
	Run      func(ctx context.Context) error
}

// Options tune job execution.
type Options struct {
	Timeout       time.Duration // Per-run deadline. Zero means no deadline.
	MaxConcurrent int           // Upper bound on jobs running at once. Zero means 1.
}

// Scheduler fires registered jobs on their schedules. A job never overlaps
// itself, and at most MaxConcurrent jobs run at the same time; runs that find
// no free slot are skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	jobs    map[string]*entry
	sem     chan struct{}
	timeout time.Duration
	metrics *Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	baseCtx context.Context
}

type entry struct {
	job     Job
	id      cron.EntryID
	running sync.Mutex
}

// New creates a Scheduler. metrics may be nil.
func New(opts Options, metrics *Metrics, logger *slog.Logger) *Scheduler {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		parser:  parser,
		jobs:    make(map[string]*entry),
		sem:     make(chan struct{}, maxConcurrent),
		timeout: opts.Timeout,
		metrics: metrics,
		logger:  logger,
		baseCtx: context.Background(),
	}
}

// Add registers a job. It fails on a duplicate name or an invalid schedule.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job requires a name and a run function")
	}
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	sched, err := s.parser.Parse(job.Schedule)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", job.Schedule, job.Name, err)
	}

	e := &entry{job: job}
	e.id = s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(s.context(), e) }))
	s.jobs[job.Name] = e
	return nil
}

// Start begins firing jobs. Runs stop when ctx is cancelled or the returned
// function is called. The returned function also waits for in-flight runs.
func (s *Scheduler) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started",
		slog.Int("jobs", len(s.jobs)),
		slog.Int("max_concurrent", cap(s.sem)),
	)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		<-s.cron.Stop().Done()
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			close(done)
			<-s.cron.Stop().Done()
			s.logger.Info("scheduler stopped")
		})
	}
}

// Next returns the next scheduled time of the named job. It is zero until
// the scheduler has been started.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	e, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(e.id).Next, true
}

// RunNow runs the named job synchronously, subject to the same overlap and
// timeout rules as a scheduled run. It reports whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	e, ok := s.jobs[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, e)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

func (s *Scheduler) fire(ctx context.Context, e *entry) {
	if ctx.Err() != nil {
		return
	}
	_, _ = s.run(ctx, e)
}

func (s *Scheduler) run(ctx context.Context, e *entry) (bool, error) {
	name := e.job.Name
	if !e.running.TryLock() {
		s.skip(ctx, name, "still running")
		return false, nil
	}
	defer e.running.Unlock()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	default:
		s.skip(ctx, name, "concurrency limit reached")
		return false, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	runID := newRunID()
	start := time.Now()
	err := e.job.Run(ctx)
	elapsed := time.Since(start)

	result := "success"
	if err != nil {
		result = "failure"
		s.logger.ErrorContext(ctx, "scheduled job failed",
			slog.String("job", name),
			slog.String("run_id", runID),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.DebugContext(ctx, "scheduled job finished",
			slog.String("job", name),
			slog.String("run_id", runID),
			slog.Duration("duration", elapsed),
		)
	}
	if s.metrics != nil {
		s.metrics.JobRuns.WithLabelValues(name, result).Inc()
		s.metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	return true, err
}

func (s *Scheduler) skip(ctx context.Context, name, reason string) {
	s.logger.WarnContext(ctx, "scheduled job skipped",
		slog.String("job", name),
		slog.String("reason", reason),
	)
	if s.metrics != nil {
		s.metrics.JobsSkipped.WithLabelValues(name).Inc()
	}
}

func newRunID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
