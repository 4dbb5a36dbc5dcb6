package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ethpandaops/tally/pkg/observability"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// tickerService manages periodic checking of scheduled jobs
type tickerService interface {
	// Start begins the ticker loop
	// Blocks until context is canceled or Stop is called
	Start(ctx context.Context) error

	// Stop gracefully shuts down the ticker
	Stop() error
}

// runFunc executes one scheduled job
type runFunc func(ctx context.Context, job string, at time.Time) error

type tickerServiceImpl struct {
	log      logrus.FieldLogger
	tracker  scheduleTracker
	elector  LeaderElector
	run      runFunc
	interval time.Duration
	now      func() time.Time

	jobs   []scheduledJob
	jobsMu sync.RWMutex // Protects the nextRun field of jobs

	done     chan struct{}
	stopOnce sync.Once
}

// scheduledJob represents a job that should run on a schedule
type scheduledJob struct {
	Name     string
	Schedule cron.Schedule
	nextRun  *time.Time // Cached next run time to avoid tracker lookups
}

func newTickerService(
	log logrus.FieldLogger,
	tracker scheduleTracker,
	elector LeaderElector,
	jobs []scheduledJob,
	interval time.Duration,
	run runFunc,
) *tickerServiceImpl {
	return &tickerServiceImpl{
		log:      log.WithField("component", "ticker"),
		tracker:  tracker,
		elector:  elector,
		run:      run,
		interval: interval,
		now:      time.Now,
		jobs:     jobs,
		done:     make(chan struct{}),
	}
}

func (t *tickerServiceImpl) Start(ctx context.Context) error {
	t.log.WithField("jobs", len(t.jobs)).Info("Starting ticker service")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("Ticker context canceled, stopping")
			return ctx.Err()
		case <-t.done:
			t.log.Info("Ticker stopped via Stop()")
			return nil
		case <-ticker.C:
			t.checkSchedules(ctx)
		}
	}
}

func (t *tickerServiceImpl) checkSchedules(ctx context.Context) {
	if !t.elector.IsLeader() {
		return
	}

	now := t.now().UTC()

	for i := range t.jobs {
		if ctx.Err() != nil {
			return
		}

		job := &t.jobs[i]

		// Fast path: skip jobs that are known not to be due
		t.jobsMu.RLock()
		cachedNextRun := job.nextRun
		t.jobsMu.RUnlock()

		if cachedNextRun != nil && now.Before(*cachedNextRun) {
			continue
		}

		lastRun, err := t.tracker.GetLastRun(ctx, job.Name)
		if err != nil {
			t.log.WithError(err).WithField("job", job.Name).Warn("Failed to get last run, will retry next tick")

			continue
		}

		nextRun := job.Schedule.Next(lastRun)
		t.setNextRun(job, nextRun)

		if now.Before(nextRun) {
			continue
		}

		status := "success"

		if err := t.run(ctx, job.Name, now); err != nil {
			status = "failed"

			t.log.WithError(err).
				WithField("job", job.Name).
				Error("Scheduled export failed")
		}

		observability.RecordScheduledRun(job.Name, status, now)

		// Failed runs wait for the next scheduled time as well
		if err := t.tracker.SetLastRun(ctx, job.Name, now); err != nil {
			t.log.WithError(err).
				WithField("job", job.Name).
				Error("Failed to update last run timestamp")
		}

		t.setNextRun(job, job.Schedule.Next(now))
	}
}

func (t *tickerServiceImpl) setNextRun(job *scheduledJob, next time.Time) {
	t.jobsMu.Lock()
	job.nextRun = &next
	t.jobsMu.Unlock()
}

func (t *tickerServiceImpl) Stop() error {
	t.stopOnce.Do(func() {
		t.log.Info("Stopping ticker service")
		close(t.done)
	})

	return nil
}

// Verify interface compliance at compile time
var _ tickerService = (*tickerServiceImpl)(nil)
