package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/schema"
)

type UserStatsRepo struct {
	store recordStore[domain.UserStats]
}

var _ domain.UserStatsRepository = (*UserStatsRepo)(nil)

func NewUserStatsRepo(rdb *goredis.Client) *UserStatsRepo {
	return &UserStatsRepo{store: recordStore[domain.UserStats]{rdb: rdb, schema: schema.UserStats}}
}

func (r *UserStatsRepo) Get(ctx context.Context, chatID, userID int64) (*domain.UserStats, error) {
	s, err := r.store.get(ctx, domain.UserStatsKey(chatID, userID))
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrUserStatsNotFound
	}
	return s, nil
}

func (r *UserStatsRepo) Put(ctx context.Context, s *domain.UserStats) error {
	return r.store.put(ctx, s)
}

func (r *UserStatsRepo) Delete(ctx context.Context, chatID, userID int64) error {
	return r.store.delete(ctx, domain.UserStatsKey(chatID, userID))
}
