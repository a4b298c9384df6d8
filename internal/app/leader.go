package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sweeperLeaderKey = "voteban:sweeper:leader"
	leaderLockTTL    = 30 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaderElector is a Redis lease taken with SET NX and a TTL. Only the holder
// sweeps cleanup jobs; a crashed holder's lease expires on its own.
type LeaderElector struct {
	rdb        *redis.Client
	instanceID string
	lockKey    string
	lockTTL    time.Duration
}

// NewLeaderElector creates a lease contender. instanceID must be unique per process.
func NewLeaderElector(rdb *redis.Client, instanceID string) *LeaderElector {
	return &LeaderElector{
		rdb:        rdb,
		instanceID: instanceID,
		lockKey:    sweeperLeaderKey,
		lockTTL:    leaderLockTTL,
	}
}

func (l *LeaderElector) TTL() time.Duration {
	return l.lockTTL
}

// TryAcquire reports whether this instance now holds the lease.
func (l *LeaderElector) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.lockKey, l.instanceID, l.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire leader lock: %w", err)
	}
	return ok, nil
}

// Renew extends the lease. It fails if the lease expired or another instance holds it.
func (l *LeaderElector) Renew(ctx context.Context) error {
	holder, err := l.rdb.Get(ctx, l.lockKey).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("leader lock lost")
	}
	if err != nil {
		return fmt.Errorf("failed to check leader: %w", err)
	}
	if holder != l.instanceID {
		return fmt.Errorf("leader lock stolen by %s", holder)
	}

	ok, err := l.rdb.Expire(ctx, l.lockKey, l.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to renew leader lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("leader lock lost during renewal")
	}
	return nil
}

// Release drops the lease if this instance still holds it.
func (l *LeaderElector) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.lockKey}, l.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to release leader lock: %w", err)
	}
	return nil
}
