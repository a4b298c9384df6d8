package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/voteban/internal/domain"
)

// ResolutionArchive appends resolved votings to an audit table.
// Archiving the same poll twice keeps the first row.
type ResolutionArchive struct {
	pool *pgxpool.Pool
}

var _ domain.ResolutionArchive = (*ResolutionArchive)(nil)

func NewResolutionArchive(pool *pgxpool.Pool) *ResolutionArchive {
	return &ResolutionArchive{pool: pool}
}

func (a *ResolutionArchive) Archive(ctx context.Context, v *domain.Voting) error {
	if !v.Resolved() {
		return fmt.Errorf("archive poll %s: voting is still %s", v.PollID, v.Status)
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO voting_resolutions
			(poll_id, chat_id, candidate_user_id, starter_user_id, outcome, ban_user_ids, no_ban_user_ids, min_votes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (poll_id) DO NOTHING`,
		v.PollID, v.ChatID, v.CandidateUserID, v.StarterUserID, string(v.Status),
		nonNil(v.BanUserIDs), nonNil(v.NoBanUserIDs), v.MinVotes,
	)
	if err != nil {
		return fmt.Errorf("failed to archive poll %s: %w", v.PollID, err)
	}
	return nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
