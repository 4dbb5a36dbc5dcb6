package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// scheduleTracker stores the last execution time of each job
type scheduleTracker interface {
	// GetLastRun retrieves the last execution timestamp for a job
	// Returns zero time if the job has never run
	GetLastRun(ctx context.Context, job string) (time.Time, error)

	// SetLastRun updates the last execution timestamp for a job
	SetLastRun(ctx context.Context, job string, timestamp time.Time) error

	// DeleteLastRun removes the execution timestamp for a job
	// Used for cleanup when jobs are removed from config
	DeleteLastRun(ctx context.Context, job string) error

	// GetAllJobs returns every tracked job name, sorted
	GetAllJobs(ctx context.Context) ([]string, error)
}

type redisScheduleTracker struct {
	log       logrus.FieldLogger
	redis     *redis.Client
	keyPrefix string
}

// newRedisScheduleTracker creates a Redis-backed schedule tracker. Keys are
// keyPrefix followed by the job name.
func newRedisScheduleTracker(log logrus.FieldLogger, redisClient *redis.Client, keyPrefix string) scheduleTracker {
	return &redisScheduleTracker{
		log:       log.WithField("component", "schedule_tracker"),
		redis:     redisClient,
		keyPrefix: keyPrefix,
	}
}

func (r *redisScheduleTracker) GetLastRun(ctx context.Context, job string) (time.Time, error) {
	key := r.keyPrefix + job

	val, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.log.WithField("job", job).Debug("No last run found for job")
			return time.Time{}, nil
		}

		return time.Time{}, fmt.Errorf("failed to get last run for job %s: %w", job, err)
	}

	timestamp, err := time.Parse(time.RFC3339, val)
	if err != nil {
		r.log.WithError(err).
			WithFields(logrus.Fields{
				"job":       job,
				"raw_value": val,
			}).
			Error("Failed to parse timestamp")

		return time.Time{}, fmt.Errorf("failed to parse timestamp for job %s: %w", job, err)
	}

	return timestamp, nil
}

func (r *redisScheduleTracker) SetLastRun(ctx context.Context, job string, timestamp time.Time) error {
	key := r.keyPrefix + job

	if err := r.redis.Set(ctx, key, timestamp.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("failed to set last run for job %s: %w", job, err)
	}

	r.log.WithFields(logrus.Fields{
		"job":       job,
		"timestamp": timestamp,
	}).Debug("Updated last run for job")

	return nil
}

func (r *redisScheduleTracker) DeleteLastRun(ctx context.Context, job string) error {
	if err := r.redis.Del(ctx, r.keyPrefix+job).Err(); err != nil {
		return fmt.Errorf("failed to delete last run for job %s: %w", job, err)
	}

	return nil
}

func (r *redisScheduleTracker) GetAllJobs(ctx context.Context) ([]string, error) {
	// SCAN iterates incrementally instead of blocking the server like KEYS
	const scanBatchSize = 100

	var jobs []string

	iter := r.redis.Scan(ctx, 0, r.keyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		jobs = append(jobs, iter.Val()[len(r.keyPrefix):])
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}

	sort.Strings(jobs)

	return jobs, nil
}

// memoryScheduleTracker keeps last runs in process memory
type memoryScheduleTracker struct {
	mu       sync.RWMutex
	lastRuns map[string]time.Time
}

func newMemoryScheduleTracker() scheduleTracker {
	return &memoryScheduleTracker{
		lastRuns: make(map[string]time.Time),
	}
}

func (m *memoryScheduleTracker) GetLastRun(_ context.Context, job string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastRuns[job], nil
}

func (m *memoryScheduleTracker) SetLastRun(_ context.Context, job string, timestamp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastRuns[job] = timestamp.UTC().Truncate(time.Second)

	return nil
}

func (m *memoryScheduleTracker) DeleteLastRun(_ context.Context, job string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.lastRuns, job)

	return nil
}

func (m *memoryScheduleTracker) GetAllJobs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]string, 0, len(m.lastRuns))
	for job := range m.lastRuns {
		jobs = append(jobs, job)
	}

	sort.Strings(jobs)

	return jobs, nil
}

// Verify interface compliance at compile time
var (
	_ scheduleTracker = (*redisScheduleTracker)(nil)
	_ scheduleTracker = (*memoryScheduleTracker)(nil)
)
