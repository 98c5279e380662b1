// Package scheduler runs the engine's background jobs: the leaderboard
// rebuild and the daily challenge preparation. Jobs are registered with a
// Schedule before Start; the run loop polls once a second and fires whatever
// is due, one goroutine per firing.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"
)

var (
	// ErrNilJob indicates a nil job was registered.
	ErrNilJob = errors.New("scheduler: job cannot be nil")

	// ErrNilSchedule indicates a nil schedule was registered.
	ErrNilSchedule = errors.New("scheduler: schedule cannot be nil")

	// ErrJobAlreadyRegistered indicates a duplicate job name.
	ErrJobAlreadyRegistered = errors.New("scheduler: job already registered")

	// ErrSchedulerRunning indicates Start was called twice.
	ErrSchedulerRunning = errors.New("scheduler: already running")

	// ErrSchedulerNotRunning indicates Stop was called before Start.
	ErrSchedulerNotRunning = errors.New("scheduler: not running")
)

// ══════════════════════════════════════════════════════════════════════════════
// INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of scheduled work.
type Job interface {
	// Name uniquely identifies the job within one scheduler.
	Name() string

	// Run executes the job. The context is cancelled on scheduler stop.
	Run(ctx context.Context) error

	// Description is a human-readable summary for logs.
	Description() string
}

// Schedule decides when a job fires.
type Schedule interface {
	// Next returns the first activation time strictly after t.
	Next(t time.Time) time.Time

	// String describes the schedule for logs.
	String() string
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// SchedulerConfig contains scheduler configuration.
type SchedulerConfig struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Timezone used to evaluate schedules. Challenge days roll over at
	// midnight in this zone, so both binaries pass UTC.
	Timezone *time.Location

	// TickInterval is how often due jobs are checked for.
	TickInterval time.Duration

	// EnableMetrics enables per-job run counters.
	EnableMetrics bool
}

type registration struct {
	job      Job
	schedule Schedule
	nextRun  time.Time
	inFlight bool
}

// Scheduler owns the registered jobs and the polling loop.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*registration
	logger  *slog.Logger
	tz      *time.Location
	tick    time.Duration
	metrics *SchedulerMetrics
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(config SchedulerConfig) *Scheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}

	s := &Scheduler{
		jobs:   make(map[string]*registration),
		logger: config.Logger,
		tz:     config.Timezone,
		tick:   config.TickInterval,
	}
	if config.EnableMetrics {
		s.metrics = NewSchedulerMetrics()
	}
	return s
}

// Register adds a job under its schedule. Fails while the scheduler runs, so
// the registered set is immutable for the lifetime of the loop.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}
	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, job.Name())
	}

	s.jobs[job.Name()] = &registration{job: job, schedule: schedule}
	s.logger.Info("job registered",
		"job", job.Name(),
		"schedule", schedule.String(),
		"description", job.Description())
	return nil
}

// Start computes initial activation times and launches the polling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}

	now := time.Now().In(s.tz)
	for _, reg := range s.jobs {
		reg.nextRun = reg.schedule.Next(now)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.runLoop(loopCtx)

	s.logger.Info("scheduler started", "jobs", len(s.jobs), "timezone", s.tz.String())
	return nil
}

// Stop cancels the loop and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	if s.metrics != nil {
		snap := s.metrics.Snapshot()
		s.logger.Info("scheduler stopped",
			"runs", snap.TotalRuns,
			"failures", snap.TotalFailures)
	} else {
		s.logger.Info("scheduler stopped")
	}
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Metrics returns the run counters, nil when metrics are disabled.
func (s *Scheduler) Metrics() *SchedulerMetrics {
	return s.metrics
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

// fireDue launches every job whose activation time has passed. The next
// activation is advanced before the run starts; inFlight keeps a slow job
// from overlapping itself when its next slot arrives first.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := time.Now().In(s.tz)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reg := range s.jobs {
		if reg.inFlight || reg.nextRun.After(now) {
			continue
		}
		reg.inFlight = true
		reg.nextRun = reg.schedule.Next(now)

		s.wg.Add(1)
		go s.runJob(ctx, reg)
	}
}

func (s *Scheduler) runJob(ctx context.Context, reg *registration) {
	defer s.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("job panicked", "job", reg.job.Name(), "panic", p)
		}
		s.mu.Lock()
		reg.inFlight = false
		s.mu.Unlock()
	}()

	start := time.Now()
	s.logger.Info("job starting", "job", reg.job.Name())

	err := reg.job.Run(ctx)
	duration := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordRun(reg.job.Name(), duration, err == nil)
	}

	if err != nil {
		s.logger.Error("job failed",
			"job", reg.job.Name(),
			"duration", duration,
			"error", err)
		return
	}
	s.logger.Info("job completed", "job", reg.job.Name(), "duration", duration)
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// SchedulerMetrics counts job runs per job name.
type SchedulerMetrics struct {
	mu        sync.RWMutex
	runs      map[string]int64
	failures  map[string]int64
	totalTime map[string]time.Duration
}

// NewSchedulerMetrics creates a fresh counter set.
func NewSchedulerMetrics() *SchedulerMetrics {
	return &SchedulerMetrics{
		runs:      make(map[string]int64),
		failures:  make(map[string]int64),
		totalTime: make(map[string]time.Duration),
	}
}

// RecordRun counts one job execution.
func (m *SchedulerMetrics) RecordRun(job string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[job]++
	m.totalTime[job] += duration
	if !success {
		m.failures[job]++
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (m *SchedulerMetrics) Snapshot() SchedulerMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := SchedulerMetricsSnapshot{
		RunsByJob:     make(map[string]int64, len(m.runs)),
		FailuresByJob: make(map[string]int64, len(m.failures)),
	}
	for job, n := range m.runs {
		snap.RunsByJob[job] = n
		snap.TotalRuns += n
	}
	for job, n := range m.failures {
		snap.FailuresByJob[job] = n
		snap.TotalFailures += n
	}
	return snap
}

// SchedulerMetricsSnapshot is a point-in-time view of the run counters.
type SchedulerMetricsSnapshot struct {
	TotalRuns     int64
	TotalFailures int64
	RunsByJob     map[string]int64
	FailuresByJob map[string]int64
}
