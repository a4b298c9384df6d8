package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/correlation"
)

const (
	sweepInterval   = time.Second
	sweepBatchLimit = 100
)

// CleanupScheduler persists delayed deletions in the cleanup queue.
type CleanupScheduler struct {
	queue   domain.CleanupQueue
	clock   clockwork.Clock
	metrics *metrics.CleanupMetrics
}

var _ domain.CleanupScheduler = (*CleanupScheduler)(nil)

func NewCleanupScheduler(queue domain.CleanupQueue, clock clockwork.Clock, m *metrics.CleanupMetrics) *CleanupScheduler {
	return &CleanupScheduler{queue: queue, clock: clock, metrics: m}
}

func (s *CleanupScheduler) Schedule(ctx context.Context, chatID int64, messageIDs []int64, delay time.Duration) error {
	job := domain.PendingCleanup{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		MessageIDs: messageIDs,
		DueAt:      s.clock.Now().Add(delay),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	s.metrics.Scheduled.Inc()
	return nil
}

// Lease is a cluster-wide lock that at most one instance holds.
type Lease interface {
	TryAcquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
	TTL() time.Duration
}

// CleanupSweeper deletes messages whose cleanup is due. Only the lease holder sweeps.
type CleanupSweeper struct {
	queue   domain.CleanupQueue
	chat    domain.ChatAPI
	lease   Lease
	clock   clockwork.Clock
	metrics *metrics.CleanupMetrics

	leader    bool
	renewedAt time.Time
}

func NewCleanupSweeper(queue domain.CleanupQueue, chat domain.ChatAPI, lease Lease, clock clockwork.Clock, m *metrics.CleanupMetrics) *CleanupSweeper {
	return &CleanupSweeper{queue: queue, chat: chat, lease: lease, clock: clock, metrics: m}
}

// Run sweeps once per second until ctx is cancelled, then gives up the lease.
func (s *CleanupSweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.resign()
			slog.Info("Cleanup sweeper stopped")
			return
		case <-ticker.Chan():
			s.tick(ctx)
		}
	}
}

func (s *CleanupSweeper) tick(ctx context.Context) {
	ctx = correlation.WithID(ctx, correlation.NewID())
	if !s.holdLease(ctx) {
		return
	}
	if err := s.sweep(ctx); err != nil {
		slog.ErrorContext(ctx, "Cleanup sweep failed", "error", err)
	}
}

// holdLease acquires the lease or renews it once a third of its TTL has passed.
func (s *CleanupSweeper) holdLease(ctx context.Context) bool {
	now := s.clock.Now()

	if s.leader {
		if now.Sub(s.renewedAt) < s.lease.TTL()/3 {
			return true
		}
		if err := s.lease.Renew(ctx); err != nil {
			slog.WarnContext(ctx, "Lost sweeper leadership", "error", err)
			s.setLeader(false)
			return false
		}
		s.renewedAt = now
		return true
	}

	acquired, err := s.lease.TryAcquire(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Sweeper leader election failed", "error", err)
		return false
	}
	if acquired {
		slog.InfoContext(ctx, "Became sweeper leader")
		s.renewedAt = now
		s.setLeader(true)
	}
	return acquired
}

func (s *CleanupSweeper) setLeader(leader bool) {
	s.leader = leader
	if leader {
		s.metrics.IsLeader.Set(1)
	} else {
		s.metrics.IsLeader.Set(0)
	}
}

func (s *CleanupSweeper) resign() {
	if !s.leader {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.lease.Release(ctx); err != nil {
		slog.Warn("Failed to release sweeper lease", "error", err)
	}
	s.setLeader(false)
}

// sweep claims every due job and deletes its messages. Claimed jobs are not
// requeued; a message that cannot be deleted now is left in the chat.
func (s *CleanupSweeper) sweep(ctx context.Context) error {
	for {
		jobs, err := s.queue.ClaimDue(ctx, s.clock.Now(), sweepBatchLimit)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			s.run(ctx, job)
		}
		if len(jobs) < sweepBatchLimit {
			return nil
		}
	}
}

func (s *CleanupSweeper) run(ctx context.Context, job domain.PendingCleanup) {
	for _, id := range job.MessageIDs {
		err := s.chat.DeleteMessage(ctx, job.ChatID, id)
		switch {
		case err == nil:
			s.metrics.MessagesDeleted.WithLabelValues("deleted").Inc()
		case errors.Is(err, domain.ErrAlreadyGone):
			s.metrics.MessagesDeleted.WithLabelValues("already_gone").Inc()
		default:
			s.metrics.MessagesDeleted.WithLabelValues("error").Inc()
			slog.WarnContext(ctx, "Scheduled delete failed", "job_id", job.ID, "chat_id", job.ChatID, "message_id", id, "error", err)
		}
	}
}
