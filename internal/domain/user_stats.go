package domain

import (
	"context"
	"strconv"
)

// UserStats counts messages per (chat, user) pair.
type UserStats struct {
	ChatID       int64
	UserID       int64
	MessageCount int64
	Version      int64
}

// UserStatsKey is the composite primary key: chat ID and user ID joined in order.
func UserStatsKey(chatID, userID int64) string {
	return strconv.FormatInt(chatID, 10) + "_" + strconv.FormatInt(userID, 10)
}

// UserStatsRepository persists UserStats. Put follows the same version
// compare-and-swap contract as VotingRepository.Put.
type UserStatsRepository interface {
	Get(ctx context.Context, chatID, userID int64) (*UserStats, error)
	Put(ctx context.Context, s *UserStats) error
	Delete(ctx context.Context, chatID, userID int64) error
}
