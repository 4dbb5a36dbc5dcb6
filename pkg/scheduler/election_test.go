package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ethpandaops/tally/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLeaseTTL      = 2 * time.Second
	testRenewInterval = 20 * time.Millisecond
	testLeaderKey     = "tally:scheduler:leader"
)

func TestLeaderElection(t *testing.T) {
	mr, client := testutil.NewMiniredisClient(t)
	log := newTestLogger()

	t.Run("single instance becomes leader", func(t *testing.T) {
		mr.FlushAll()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		elector := newLeaderElector(log, client, testLeaderKey, testLeaseTTL, testRenewInterval)
		require.NoError(t, elector.Start(ctx))
		defer elector.Stop()

		require.NoError(t, elector.WaitForLeadership(ctx))
		assert.True(t, elector.IsLeader())

		owner, err := mr.Get(testLeaderKey)
		require.NoError(t, err)
		assert.Equal(t, elector.instanceID, owner)
	})

	t.Run("multiple instances elect one leader", func(t *testing.T) {
		mr.FlushAll()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		elector1 := newLeaderElector(log, client, testLeaderKey, testLeaseTTL, testRenewInterval)
		elector2 := newLeaderElector(log, client, testLeaderKey, testLeaseTTL, testRenewInterval)

		require.NoError(t, elector1.Start(ctx))
		defer elector1.Stop()

		require.NoError(t, elector1.WaitForLeadership(ctx))

		require.NoError(t, elector2.Start(ctx))
		defer elector2.Stop()

		// Several renew rounds
		time.Sleep(5 * testRenewInterval)

		assert.True(t, elector1.IsLeader())
		assert.False(t, elector2.IsLeader())
	})

	t.Run("leader failover", func(t *testing.T) {
		mr.FlushAll()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		elector1 := newLeaderElector(log, client, testLeaderKey, testLeaseTTL, testRenewInterval)
		elector2 := newLeaderElector(log, client, testLeaderKey, testLeaseTTL, testRenewInterval)

		require.NoError(t, elector1.Start(ctx))
		require.NoError(t, elector1.WaitForLeadership(ctx))

		require.NoError(t, elector2.Start(ctx))
		defer elector2.Stop()

		require.NoError(t, elector1.Stop())
		assert.False(t, elector1.IsLeader())

		require.NoError(t, elector2.WaitForLeadership(ctx))
		assert.True(t, elector2.IsLeader())
	})

	t.Run("demoted when another instance takes the lease", func(t *testing.T) {
		mr.FlushAll()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		elector := newLeaderElector(log, client, testLeaderKey, testLeaseTTL, testRenewInterval)
		require.NoError(t, elector.Start(ctx))
		defer elector.Stop()

		require.NoError(t, elector.WaitForLeadership(ctx))

		require.NoError(t, mr.Set(testLeaderKey, "other-instance"))

		require.Eventually(t, func() bool {
			return !elector.IsLeader()
		}, 2*time.Second, testRenewInterval)

		// Stopping a follower leaves the other lease alone
		require.NoError(t, elector.Stop())

		owner, err := mr.Get(testLeaderKey)
		require.NoError(t, err)
		assert.Equal(t, "other-instance", owner)
	})

	t.Run("lease is renewed", func(t *testing.T) {
		mr.FlushAll()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		elector := newLeaderElector(log, client, testLeaderKey, testLeaseTTL, testRenewInterval)
		require.NoError(t, elector.Start(ctx))
		defer elector.Stop()

		require.NoError(t, elector.WaitForLeadership(ctx))

		mr.FastForward(testLeaseTTL / 2)

		require.Eventually(t, func() bool {
			return mr.TTL(testLeaderKey) > testLeaseTTL/2
		}, 2*time.Second, testRenewInterval)

		assert.True(t, elector.IsLeader())
	})
}

func TestLeaderElection_WaitForLeadership(t *testing.T) {
	mr, client := testutil.NewMiniredisClient(t)
	log := newTestLogger()

	t.Run("context canceled", func(t *testing.T) {
		require.NoError(t, mr.Set(testLeaderKey, "other-instance"))

		elector := newLeaderElector(log, client, testLeaderKey, testLeaseTTL, testRenewInterval)
		require.NoError(t, elector.Start(context.Background()))
		defer elector.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := elector.WaitForLeadership(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("elector stopped", func(t *testing.T) {
		require.NoError(t, mr.Set(testLeaderKey, "other-instance"))

		elector := newLeaderElector(log, client, testLeaderKey, testLeaseTTL, testRenewInterval)
		require.NoError(t, elector.Start(context.Background()))

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = elector.Stop()
		}()

		assert.ErrorIs(t, elector.WaitForLeadership(context.Background()), ErrElectorStopped)
	})
}

func TestSoloElector(t *testing.T) {
	var elector LeaderElector = soloElector{}

	require.NoError(t, elector.Start(context.Background()))
	assert.True(t, elector.IsLeader())
	assert.NoError(t, elector.WaitForLeadership(context.Background()))
	assert.NoError(t, elector.Stop())
}
