package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	defaultLeaseTTL      = 10 * time.Second
	defaultRenewInterval = 3 * time.Second
)

var (
	// ErrElectorStopped is returned when the elector is stopped while waiting for leadership
	ErrElectorStopped = errors.New("elector stopped while waiting for leadership")
)

// LeaderElector decides which instance runs the scheduled exports
type LeaderElector interface {
	Start(ctx context.Context) error
	Stop() error
	IsLeader() bool
	WaitForLeadership(ctx context.Context) error
}

// elector implements LeaderElector with a Redis lease
type elector struct {
	log        logrus.FieldLogger
	redis      *redis.Client
	instanceID string
	leaderKey  string

	leaseTTL      time.Duration
	renewInterval time.Duration

	isLeader bool
	mu       sync.RWMutex

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	promoted chan struct{}
}

// NewLeaderElector creates a leader elector holding its lease under leaderKey.
// The client is shared and not closed by the elector.
func NewLeaderElector(log logrus.FieldLogger, redisClient *redis.Client, leaderKey string) LeaderElector {
	return newLeaderElector(log, redisClient, leaderKey, defaultLeaseTTL, defaultRenewInterval)
}

func newLeaderElector(log logrus.FieldLogger, redisClient *redis.Client, leaderKey string, leaseTTL, renewInterval time.Duration) *elector {
	return &elector{
		log:           log.WithField("component", "election"),
		redis:         redisClient,
		instanceID:    uuid.New().String(),
		leaderKey:     leaderKey,
		leaseTTL:      leaseTTL,
		renewInterval: renewInterval,
		done:          make(chan struct{}),
		promoted:      make(chan struct{}, 1),
	}
}

func (e *elector) Start(ctx context.Context) error {
	e.log.WithField("instance_id", e.instanceID).Info("Starting leader election")

	e.wg.Add(1)
	go e.run(ctx)

	return nil
}

func (e *elector) Stop() error {
	e.stopOnce.Do(func() {
		e.log.Info("Stopping leader election")
		close(e.done)

		e.wg.Wait()

		e.relinquish(context.Background())
	})

	return nil
}

func (e *elector) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.renewInterval)
	defer ticker.Stop()

	// Campaign right away instead of waiting for the first tick
	e.campaign(ctx)

	for {
		select {
		case <-e.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.campaign(ctx)
		}
	}
}

func (e *elector) campaign(ctx context.Context) {
	wasLeader := e.IsLeader()
	acquired := e.tryAcquire(ctx)

	switch {
	case acquired && !wasLeader:
		e.setLeader(true)
		e.log.WithField("instance_id", e.instanceID).Info("Promoted to leader")

		select {
		case e.promoted <- struct{}{}:
		default:
		}
	case !acquired && wasLeader:
		e.setLeader(false)
		e.log.WithField("instance_id", e.instanceID).Info("Demoted from leader")
	}
}

func (e *elector) tryAcquire(ctx context.Context) bool {
	result, err := e.redis.SetNX(ctx, e.leaderKey, e.instanceID, e.leaseTTL).Result()
	if err != nil {
		e.log.WithError(err).Debug("Failed to acquire leader lock")
		return false
	}

	if result {
		e.log.WithFields(logrus.Fields{
			"instance_id": e.instanceID,
			"ttl":         e.leaseTTL,
		}).Debug("Acquired leader lock")

		return true
	}

	owner, err := e.redis.Get(ctx, e.leaderKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			e.log.WithError(err).Debug("Failed to check lock owner")
		}

		return false
	}

	if owner == e.instanceID {
		if err := e.redis.Expire(ctx, e.leaderKey, e.leaseTTL).Err(); err != nil {
			e.log.WithError(err).Warn("Failed to renew leader lease")
			return false
		}

		return true
	}

	e.log.WithFields(logrus.Fields{
		"current_leader": owner,
		"instance_id":    e.instanceID,
	}).Debug("Another instance holds leadership")

	return false
}

func (e *elector) relinquish(ctx context.Context) {
	if !e.IsLeader() {
		return
	}

	owner, err := e.redis.Get(ctx, e.leaderKey).Result()
	if err == nil && owner == e.instanceID {
		if err := e.redis.Del(ctx, e.leaderKey).Err(); err != nil {
			e.log.WithError(err).Warn("Failed to delete leader lock")
		} else {
			e.log.WithField("instance_id", e.instanceID).Info("Relinquished leader lock")
		}
	}

	e.setLeader(false)
}

func (e *elector) setLeader(isLeader bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isLeader = isLeader
}

func (e *elector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isLeader
}

func (e *elector) WaitForLeadership(ctx context.Context) error {
	if e.IsLeader() {
		return nil
	}

	e.log.Info("Waiting for leadership promotion")

	select {
	case <-e.promoted:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while waiting for leadership: %w", ctx.Err())
	case <-e.done:
		return ErrElectorStopped
	}
}

// soloElector is used without Redis: the single instance always leads
type soloElector struct{}

func (soloElector) Start(context.Context) error {
	return nil
}

func (soloElector) Stop() error {
	return nil
}

func (soloElector) IsLeader() bool {
	return true
}

func (soloElector) WaitForLeadership(context.Context) error {
	return nil
}

var (
	_ LeaderElector = (*elector)(nil)
	_ LeaderElector = soloElector{}
)
