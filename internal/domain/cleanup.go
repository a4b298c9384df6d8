package domain

import (
	"context"
	"time"
)

// PendingCleanup is a deferred deletion of bot notices and their trigger messages.
type PendingCleanup struct {
	ID         string    `json:"id"`
	ChatID     int64     `json:"chat_id"`
	MessageIDs []int64   `json:"message_ids"`
	DueAt      time.Time `json:"due_at"`
}

// CleanupQueue persists pending cleanups so a restart does not lose them.
type CleanupQueue interface {
	Enqueue(ctx context.Context, c PendingCleanup) error
	// ClaimDue atomically removes and returns up to limit cleanups due at or before now.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]PendingCleanup, error)
}

// CleanupScheduler schedules deletion of messages after a delay.
type CleanupScheduler interface {
	Schedule(ctx context.Context, chatID int64, messageIDs []int64, delay time.Duration) error
}
