package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/voteban/internal/domain"
)

const cleanupQueueKey = keyPrefix + "cleanup:due"

// claimDue pops up to ARGV[2] members scored at or below ARGV[1] in one step,
// so two sweepers never claim the same job.
var claimDue = goredis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #due > 0 then
	redis.call('ZREM', KEYS[1], unpack(due))
end
return due
`)

// CleanupQueue persists pending message deletions in a sorted set scored by due time.
type CleanupQueue struct {
	rdb *goredis.Client
}

var _ domain.CleanupQueue = (*CleanupQueue)(nil)

func NewCleanupQueue(rdb *goredis.Client) *CleanupQueue {
	return &CleanupQueue{rdb: rdb}
}

func (q *CleanupQueue) Enqueue(ctx context.Context, job domain.PendingCleanup) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal cleanup job: %w", err)
	}

	z := goredis.Z{Score: float64(job.DueAt.UnixMilli()), Member: string(raw)}
	if err := q.rdb.ZAdd(ctx, cleanupQueueKey, z).Err(); err != nil {
		return fmt.Errorf("failed to enqueue cleanup job: %w", err)
	}
	return nil
}

func (q *CleanupQueue) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.PendingCleanup, error) {
	members, err := claimDue.Run(ctx, q.rdb, []string{cleanupQueueKey},
		strconv.FormatInt(now.UnixMilli(), 10), limit).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to claim cleanup jobs: %w", err)
	}

	jobs := make([]domain.PendingCleanup, 0, len(members))
	for _, m := range members {
		var job domain.PendingCleanup
		if err := json.Unmarshal([]byte(m), &job); err != nil {
			// The member is already off the queue and cannot be retried.
			slog.WarnContext(ctx, "Dropping malformed cleanup job", "member", m, "error", err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
