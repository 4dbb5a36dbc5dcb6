package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethpandaops/tally/pkg/export"
	"github.com/ethpandaops/tally/pkg/reports"
	"github.com/ethpandaops/tally/pkg/table"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	lastRunKey = "scheduler:last_run:"
	leaderKey  = "scheduler:leader"
)

var (
	// ErrUnknownJob is returned when a job name is not configured
	ErrUnknownJob = errors.New("unknown job")
	// ErrShutdownTimeout is returned when running jobs outlive the shutdown timeout
	ErrShutdownTimeout = errors.New("timed out waiting for scheduler to stop")
)

// Service defines the public interface for the scheduler
type Service interface {
	// Start begins leader election and the ticker loop. No-op when disabled.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the scheduler service
	Stop() error

	// RunJob runs the named job immediately, ignoring its schedule
	RunJob(ctx context.Context, name string) (*RunResult, error)

	// RunAll runs every configured job concurrently
	RunAll(ctx context.Context) ([]*RunResult, error)

	// Status reports the last and next run of every job
	Status(ctx context.Context) ([]JobStatus, error)

	// IsLeader reports whether this instance runs scheduled jobs
	IsLeader() bool
}

// RunResult is one written spreadsheet
type RunResult struct {
	Job    string        `json:"job"`
	Path   string        `json:"path"`
	Result export.Result `json:"-"`
}

// JobStatus describes a configured job
type JobStatus struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Schedule string     `json:"schedule"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  time.Time  `json:"next_run"`
}

type service struct {
	log logrus.FieldLogger
	cfg *Config

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	exporter *export.Exporter
	tracker  scheduleTracker
	elector  LeaderElector
	ticker   *tickerServiceImpl

	jobs  map[string]*JobConfig
	order []*JobConfig
}

// NewService creates a new scheduler service. Without a Redis client the
// instance always leads and keeps last runs in memory.
func NewService(log logrus.FieldLogger, cfg *Config, exporter *export.Exporter, redisClient *redis.Client, keyPrefix string) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log = log.WithField("service", "scheduler")

	var (
		tracker scheduleTracker
		elector LeaderElector
	)

	if redisClient != nil {
		tracker = newRedisScheduleTracker(log, redisClient, keyPrefix+lastRunKey)
		elector = NewLeaderElector(log, redisClient, keyPrefix+leaderKey)
	} else {
		tracker = newMemoryScheduleTracker()
		elector = soloElector{}
	}

	return newService(log, cfg, exporter, tracker, elector)
}

func newService(log logrus.FieldLogger, cfg *Config, exporter *export.Exporter, tracker scheduleTracker, elector LeaderElector) (*service, error) {
	s := &service{
		log:      log,
		cfg:      cfg,
		done:     make(chan struct{}),
		exporter: exporter,
		tracker:  tracker,
		elector:  elector,
		jobs:     make(map[string]*JobConfig, len(cfg.Jobs)),
	}

	scheduled := make([]scheduledJob, 0, len(cfg.Jobs))

	// Jobs of a disabled scheduler are neither validated nor registered
	jobs := cfg.Jobs
	if !cfg.Enabled {
		jobs = nil
	}

	for i := range jobs {
		job := &jobs[i]

		sched, err := ParseSchedule(job.Schedule)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", job.Name, err)
		}

		s.jobs[job.Name] = job
		s.order = append(s.order, job)
		scheduled = append(scheduled, scheduledJob{Name: job.Name, Schedule: sched})
	}

	s.ticker = newTickerService(log, tracker, elector, scheduled, cfg.TickInterval, s.runScheduled)

	return s, nil
}

// Start begins leader election and the ticker loop
func (s *service) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("Scheduler disabled")
		return nil
	}

	if err := s.elector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start leader election: %w", err)
	}

	s.removeObsoleteJobs(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.ticker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.WithError(err).Error("Ticker stopped with error")
		}
	}()

	s.log.WithField("jobs", len(s.order)).Info("Scheduler service started")

	return nil
}

// Stop gracefully shuts down the scheduler service
func (s *service) Stop() error {
	var stopErr error

	s.stopOnce.Do(func() {
		close(s.done)

		if err := s.ticker.Stop(); err != nil {
			s.log.WithError(err).Warn("Failed to stop ticker")
		}

		if err := s.elector.Stop(); err != nil {
			s.log.WithError(err).Warn("Failed to stop leader elector")
		}

		stopped := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(stopped)
		}()

		select {
		case <-stopped:
			s.log.Info("Scheduler service stopped successfully")
		case <-time.After(s.cfg.ShutdownTimeout):
			stopErr = ErrShutdownTimeout
		}
	})

	return stopErr
}

// RunJob runs the named job immediately
func (s *service) RunJob(ctx context.Context, name string) (*RunResult, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}

	return s.runJob(ctx, job, time.Now())
}

// RunAll runs every job concurrently and returns the results in configuration order
func (s *service) RunAll(ctx context.Context) ([]*RunResult, error) {
	results := make([]*RunResult, len(s.order))

	g, gctx := errgroup.WithContext(ctx)

	for i, job := range s.order {
		g.Go(func() error {
			result, err := s.runJob(gctx, job, time.Now())
			if err != nil {
				return fmt.Errorf("job %q: %w", job.Name, err)
			}

			results[i] = result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Status reports the last and next run of every job in configuration order
func (s *service) Status(ctx context.Context) ([]JobStatus, error) {
	now := time.Now().UTC()
	statuses := make([]JobStatus, 0, len(s.order))

	for _, job := range s.order {
		sched, err := ParseSchedule(job.Schedule)
		if err != nil {
			return nil, err
		}

		lastRun, err := s.tracker.GetLastRun(ctx, job.Name)
		if err != nil {
			return nil, err
		}

		status := JobStatus{
			Name:     job.Name,
			Kind:     job.Kind,
			Schedule: job.Schedule,
			NextRun:  sched.Next(lastRun),
		}

		if !lastRun.IsZero() {
			status.LastRun = &lastRun
		}

		// Overdue jobs run on the next tick
		if status.NextRun.Before(now) {
			status.NextRun = now
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

func (s *service) IsLeader() bool {
	return s.elector.IsLeader()
}

func (s *service) runScheduled(ctx context.Context, name string, at time.Time) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}

	_, err := s.runJob(ctx, job, at)

	return err
}

// runJob writes the job's report to a temporary file in the output directory
// and renames it into place once complete
func (s *service) runJob(ctx context.Context, job *JobConfig, at time.Time) (*RunResult, error) {
	kind, err := reports.ParseKind(job.Kind)
	if err != nil {
		return nil, err
	}

	userID := job.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	if err := os.MkdirAll(job.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(job.OutputDir, ".tally-*.xlsx.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	result, err := s.exporter.Export(ctx, tmp, export.Request{
		Kind:   kind,
		Query:  table.ParseQuery(job.Param),
		UserID: userID,
		Source: export.SourceScheduler,
		At:     at,
	})

	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close temporary file: %w", closeErr)
	}

	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, err
	}

	path := filepath.Join(job.OutputDir, result.Filename)

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to move export into place: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"job":  job.Name,
		"path": path,
	}).Info("Wrote scheduled export")

	return &RunResult{Job: job.Name, Path: path, Result: *result}, nil
}

// removeObsoleteJobs drops tracked last runs of jobs no longer configured
func (s *service) removeObsoleteJobs(ctx context.Context) {
	tracked, err := s.tracker.GetAllJobs(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to list tracked jobs")
		return
	}

	for _, name := range tracked {
		if _, ok := s.jobs[name]; ok {
			continue
		}

		if err := s.tracker.DeleteLastRun(ctx, name); err != nil {
			s.log.WithError(err).WithField("job", name).Warn("Failed to remove obsolete job")
			continue
		}

		s.log.WithField("job", name).Info("Removed obsolete job")
	}
}

// Verify interface compliance at compile time
var _ Service = (*service)(nil)
