package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/voteban/internal/domain"
)

func newTestVoting(pollID string) *domain.Voting {
	return &domain.Voting{
		PollID:             pollID,
		ChatID:             -1001,
		CandidateMessageID: 10,
		StartMessageID:     11,
		PollMessageID:      12,
		CandidateUserID:    500,
		StarterUserID:      600,
		BanUserIDs:         []int64{},
		NoBanUserIDs:       []int64{},
		MinVotes:           3,
		Status:             domain.VotingOpen,
	}
}

func TestVotingRepo_PutGet(t *testing.T) {
	client := setupTestClient(t)
	repo := NewVotingRepo(client)
	ctx := context.Background()

	v := newTestVoting("poll-1")
	require.NoError(t, repo.Put(ctx, v))
	assert.Equal(t, int64(1), v.Version)

	got, err := repo.Get(ctx, "poll-1")
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestVotingRepo_PreservesVoterOrder(t *testing.T) {
	client := setupTestClient(t)
	repo := NewVotingRepo(client)
	ctx := context.Background()

	v := newTestVoting("poll-1")
	v.BanUserIDs = []int64{3, 1, 2}
	v.NoBanUserIDs = []int64{9}
	require.NoError(t, repo.Put(ctx, v))

	got, err := repo.Get(ctx, "poll-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, got.BanUserIDs)
	assert.Equal(t, []int64{9}, got.NoBanUserIDs)
}

func TestVotingRepo_GetMissing(t *testing.T) {
	client := setupTestClient(t)
	repo := NewVotingRepo(client)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrVotingNotFound)
}

func TestVotingRepo_StaleVersionConflicts(t *testing.T) {
	client := setupTestClient(t)
	repo := NewVotingRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, newTestVoting("poll-1")))

	a, err := repo.Get(ctx, "poll-1")
	require.NoError(t, err)
	b, err := repo.Get(ctx, "poll-1")
	require.NoError(t, err)

	a.BanUserIDs = append(a.BanUserIDs, 1)
	require.NoError(t, repo.Put(ctx, a))

	b.NoBanUserIDs = append(b.NoBanUserIDs, 2)
	err = repo.Put(ctx, b)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int64(1), b.Version, "failed put must not bump the version")

	got, err := repo.Get(ctx, "poll-1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.BanUserIDs)
	assert.Empty(t, got.NoBanUserIDs)
}

func TestVotingRepo_CreateTwiceConflicts(t *testing.T) {
	client := setupTestClient(t)
	repo := NewVotingRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, newTestVoting("poll-1")))
	err := repo.Put(ctx, newTestVoting("poll-1"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestVotingRepo_DecodesLegacyRecord(t *testing.T) {
	client := setupTestClient(t)
	repo := NewVotingRepo(client)
	ctx := context.Background()

	legacy := `{"poll_id":{"S":"old"},"chat_id":{"N":"-1"},"candidate_message_id":{"N":"1"},` +
		`"start_message_id":{"N":"2"},"poll_message_id":{"N":"3"},"candidate_user_id":{"N":"4"},` +
		`"starter_user_id":{"N":"5"},"ban_user_ids":{"NS":["7"]},"min_votes":{"N":"10"}}`
	require.NoError(t, client.HSet(ctx, keyPrefix+"votings:old", "item", legacy).Err())

	got, err := repo.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, domain.VotingOpen, got.Status)
	assert.Equal(t, int64(0), got.Version)
	assert.Equal(t, []int64{7}, got.BanUserIDs)
	assert.Equal(t, []int64{}, got.NoBanUserIDs)

	got.NoBanUserIDs = append(got.NoBanUserIDs, 8)
	require.NoError(t, repo.Put(ctx, got))
	assert.Equal(t, int64(1), got.Version)
}

func TestVotingRepo_Delete(t *testing.T) {
	client := setupTestClient(t)
	repo := NewVotingRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, newTestVoting("poll-1")))
	require.NoError(t, repo.Delete(ctx, "poll-1"))

	_, err := repo.Get(ctx, "poll-1")
	assert.ErrorIs(t, err, domain.ErrVotingNotFound)
}
