package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/voteban/internal/domain"
)

func TestCleanupScheduler_EnqueuesWithDueTime(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	queue := &mockQueue{}
	s := NewCleanupScheduler(queue, clock, newTestCleanupMetrics())

	require.NoError(t, s.Schedule(context.Background(), testTargetChat, []int64{1, 2}, 30*time.Second))

	require.Len(t, queue.enqueued, 1)
	job := queue.enqueued[0]
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, testTargetChat, job.ChatID)
	assert.Equal(t, []int64{1, 2}, job.MessageIDs)
	assert.Equal(t, clock.Now().Add(30*time.Second), job.DueAt)
	assert.InDelta(t, 1, testutil.ToFloat64(s.metrics.Scheduled), 0)
}

func TestCleanupScheduler_QueueErrorPropagates(t *testing.T) {
	queueErr := errors.New("redis down")
	queue := &mockQueue{enqueueFn: func(context.Context, domain.PendingCleanup) error { return queueErr }}
	s := NewCleanupScheduler(queue, clockwork.NewFakeClock(), newTestCleanupMetrics())

	assert.ErrorIs(t, s.Schedule(context.Background(), 1, []int64{1}, time.Second), queueErr)
}

func TestCleanupSweeper_DeletesClaimedMessages(t *testing.T) {
	queue := &mockQueue{}
	queue.claimFn = func(_ context.Context, _ time.Time, _ int) ([]domain.PendingCleanup, error) {
		if queue.claims > 1 {
			return nil, nil
		}
		return []domain.PendingCleanup{{ID: "a", ChatID: testTargetChat, MessageIDs: []int64{11, 12}}}, nil
	}
	chat := &mockChat{deleteMessageFn: func(_ int64, id int64) error {
		if id == 12 {
			return domain.ErrAlreadyGone
		}
		return nil
	}}
	s := NewCleanupSweeper(queue, chat, &mockLease{}, clockwork.NewFakeClock(), newTestCleanupMetrics())

	s.tick(context.Background())

	assert.Equal(t, []deleteCall{{ChatID: testTargetChat, MessageID: 11}, {ChatID: testTargetChat, MessageID: 12}}, chat.deletes)
	assert.InDelta(t, 1, testutil.ToFloat64(s.metrics.MessagesDeleted.WithLabelValues("deleted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(s.metrics.MessagesDeleted.WithLabelValues("already_gone")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(s.metrics.IsLeader), 0)
}

func TestCleanupSweeper_DrainsFullBatches(t *testing.T) {
	queue := &mockQueue{}
	queue.claimFn = func(_ context.Context, _ time.Time, limit int) ([]domain.PendingCleanup, error) {
		if queue.claims == 1 {
			return make([]domain.PendingCleanup, limit), nil
		}
		return nil, nil
	}
	s := NewCleanupSweeper(queue, &mockChat{}, &mockLease{}, clockwork.NewFakeClock(), newTestCleanupMetrics())

	s.tick(context.Background())

	assert.Equal(t, 2, queue.claims)
}

func TestCleanupSweeper_FollowerDoesNotSweep(t *testing.T) {
	queue := &mockQueue{}
	lease := &mockLease{tryAcquireFn: func(context.Context) (bool, error) { return false, nil }}
	s := NewCleanupSweeper(queue, &mockChat{}, lease, clockwork.NewFakeClock(), newTestCleanupMetrics())

	s.tick(context.Background())

	assert.Zero(t, queue.claims)
	assert.InDelta(t, 0, testutil.ToFloat64(s.metrics.IsLeader), 0)
}

func TestCleanupSweeper_RenewsLeaseAfterAThirdOfTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	lease := &mockLease{}
	s := NewCleanupSweeper(&mockQueue{}, &mockChat{}, lease, clock, newTestCleanupMetrics())
	ctx := context.Background()

	s.tick(ctx)
	clock.Advance(5 * time.Second)
	s.tick(ctx)
	assert.Zero(t, lease.renewals)

	clock.Advance(6 * time.Second)
	s.tick(ctx)
	assert.Equal(t, 1, lease.renewals)
}

func TestCleanupSweeper_LostLeaseStopsSweeping(t *testing.T) {
	clock := clockwork.NewFakeClock()
	queue := &mockQueue{}
	acquired := false
	lease := &mockLease{
		tryAcquireFn: func(context.Context) (bool, error) {
			if acquired {
				return false, nil
			}
			acquired = true
			return true, nil
		},
		renewFn: func(context.Context) error { return errors.New("leader lock stolen by other") },
	}
	s := NewCleanupSweeper(queue, &mockChat{}, lease, clock, newTestCleanupMetrics())
	ctx := context.Background()

	s.tick(ctx)
	assert.Equal(t, 1, queue.claims)

	clock.Advance(time.Minute)
	s.tick(ctx)
	assert.Equal(t, 1, queue.claims, "no sweep after losing the lease")
	assert.False(t, s.leader)
}

func TestCleanupSweeper_RunReleasesLeaseOnShutdown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	queue := &mockQueue{}
	lease := &mockLease{}
	s := NewCleanupSweeper(queue, &mockChat{}, lease, clock, newTestCleanupMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(sweepInterval)

	require.Eventually(t, func() bool {
		queue.mu.Lock()
		defer queue.mu.Unlock()
		return queue.claims > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.True(t, lease.released)
}
