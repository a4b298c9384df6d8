package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/schema"
)

type VotingRepo struct {
	store recordStore[domain.Voting]
}

var _ domain.VotingRepository = (*VotingRepo)(nil)

func NewVotingRepo(rdb *goredis.Client) *VotingRepo {
	return &VotingRepo{store: recordStore[domain.Voting]{rdb: rdb, schema: schema.Votings}}
}

func (r *VotingRepo) Get(ctx context.Context, pollID string) (*domain.Voting, error) {
	v, err := r.store.get(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.ErrVotingNotFound
	}
	return v, nil
}

func (r *VotingRepo) Put(ctx context.Context, v *domain.Voting) error {
	return r.store.put(ctx, v)
}

func (r *VotingRepo) Delete(ctx context.Context, pollID string) error {
	return r.store.delete(ctx, pollID)
}
