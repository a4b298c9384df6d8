package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/schema"
)

type VotingRepo struct {
	table table[domain.Voting]
}

var _ domain.VotingRepository = (*VotingRepo)(nil)

func NewVotingRepo(client *dynamodb.Client, m *metrics.StoreMetrics) *VotingRepo {
	return &VotingRepo{table: table[domain.Voting]{client: client, schema: schema.Votings, metrics: m}}
}

func (r *VotingRepo) Get(ctx context.Context, pollID string) (*domain.Voting, error) {
	v, err := r.table.get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrVotingNotFound
	}
	return v, nil
}

func (r *VotingRepo) Put(ctx context.Context, v *domain.Voting) error {
	return r.table.put(ctx, v)
}

func (r *VotingRepo) Delete(ctx context.Context, pollID string) error {
	return r.table.delete(ctx, pollID)
}

type UserStatsRepo struct {
	table table[domain.UserStats]
}

var _ domain.UserStatsRepository = (*UserStatsRepo)(nil)

func NewUserStatsRepo(client *dynamodb.Client, m *metrics.StoreMetrics) *UserStatsRepo {
	return &UserStatsRepo{table: table[domain.UserStats]{client: client, schema: schema.UserStats, metrics: m}}
}

func (r *UserStatsRepo) Get(ctx context.Context, chatID, userID int64) (*domain.UserStats, error) {
	s, err := r.table.get(ctx, domain.UserStatsKey(chatID, userID))
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrUserStatsNotFound
	}
	return s, nil
}

func (r *UserStatsRepo) Put(ctx context.Context, s *domain.UserStats) error {
	return r.table.put(ctx, s)
}

func (r *UserStatsRepo) Delete(ctx context.Context, chatID, userID int64) error {
	return r.table.delete(ctx, domain.UserStatsKey(chatID, userID))
}
