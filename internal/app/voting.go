package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/retry"
)

// casPolicy bounds every read-modify-write cycle against a versioned record.
var casPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 10 * time.Millisecond,
}

const banNoticeFormat = "Забанен по итогам голосования: пользователь %d"

// resolutionRetryAfter is how long a claimed resolution may stay unexecuted
// before a later answer claims it again.
const resolutionRetryAfter = 30 * time.Second

// VotingEngine owns the Voting state machine. It never talks to the chat API;
// a resolved vote comes back as a Resolution for the resolver to execute.
type VotingEngine struct {
	votings domain.VotingRepository
	clock   clockwork.Clock
	metrics *metrics.VoteMetrics
	policy  retry.Policy
}

func NewVotingEngine(votings domain.VotingRepository, clock clockwork.Clock, m *metrics.VoteMetrics) *VotingEngine {
	e := &VotingEngine{votings: votings, clock: clock, metrics: m, policy: casPolicy}
	e.policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		m.CASRetries.WithLabelValues("voting").Inc()
		slog.Debug("Voting write conflict, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}
	return e
}

// StartVoting persists a new open Voting with empty vote sets.
func (e *VotingEngine) StartVoting(ctx context.Context, p domain.StartVotingParams) (*domain.Voting, error) {
	v := &domain.Voting{
		PollID:             p.PollID,
		ChatID:             p.ChatID,
		CandidateMessageID: p.CandidateMessageID,
		StartMessageID:     p.StartMessageID,
		PollMessageID:      p.PollMessageID,
		CandidateUserID:    p.CandidateUserID,
		StarterUserID:      p.StarterUserID,
		BanUserIDs:         []int64{},
		NoBanUserIDs:       []int64{},
		MinVotes:           p.MinVotes,
		Status:             domain.VotingOpen,
	}
	if err := e.votings.Put(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to store voting %s: %w", p.PollID, err)
	}

	e.metrics.VotingsStarted.Inc()
	return v, nil
}

// RecordVote applies a voter's current answer and reports whether the poll resolved.
// Lost compare-and-swap races reload the Voting and reapply the answer.
//
// Answers to a resolved poll are ignored, unless its resolution was claimed
// more than resolutionRetryAfter ago and never marked executed. Such an answer
// claims the resolution again and returns it with Replayed set.
func (e *VotingEngine) RecordVote(ctx context.Context, pollID string, voterID int64, option domain.VoteOption) (*domain.VoteOutcome, error) {
	start := time.Now()
	defer func() { e.metrics.ProcessingDuration.Observe(time.Since(start).Seconds()) }()

	outcome, err := retry.Do(ctx, e.policy, retry.On(domain.ErrConflict), func() (*domain.VoteOutcome, error) {
		stored, err := e.votings.Get(ctx, pollID)
		if err != nil {
			return nil, err
		}

		now := e.clock.Now()
		if stored.Resolved() {
			return e.reclaim(ctx, stored, now)
		}

		next := stored.Clone()
		outcome := applyVote(next, voterID, option)
		if outcome.Resolution != nil {
			next.ResolvedAt = now.UnixMilli()
		}
		if err := e.votings.Put(ctx, next); err != nil {
			return nil, err
		}
		return outcome, nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			e.metrics.VotesProcessed.WithLabelValues("conflict").Inc()
			return nil, fmt.Errorf("poll %s: %w", pollID, domain.ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("poll %s: %w", pollID, err)
	}

	result := outcome.Result.String()
	if outcome.Replayed {
		result = "replayed"
	}
	e.metrics.VotesProcessed.WithLabelValues(result).Inc()
	return outcome, nil
}

// reclaim hands a stalled resolution to the caller. The claim is a versioned
// write, so concurrent answers cannot both win it.
func (e *VotingEngine) reclaim(ctx context.Context, stored *domain.Voting, now time.Time) (*domain.VoteOutcome, error) {
	claimedAt := time.UnixMilli(stored.ResolvedAt)
	if stored.Executed() || now.Sub(claimedAt) < resolutionRetryAfter {
		return &domain.VoteOutcome{Result: domain.VoteIgnored, Voting: stored}, nil
	}

	next := stored.Clone()
	next.ResolvedAt = now.UnixMilli()
	if err := e.votings.Put(ctx, next); err != nil {
		return nil, err
	}

	result := domain.VoteResolvedNoBan
	if next.Status == domain.VotingBanned {
		result = domain.VoteResolvedBan
	}
	return &domain.VoteOutcome{Result: result, Voting: next, Resolution: resolutionFor(next), Replayed: true}, nil
}

// MarkExecuted records that a poll's resolution completed, so later answers are ignored.
func (e *VotingEngine) MarkExecuted(ctx context.Context, pollID string) error {
	err := retry.DoVoid(ctx, e.policy, retry.On(domain.ErrConflict), func() error {
		stored, err := e.votings.Get(ctx, pollID)
		if err != nil {
			return err
		}
		if stored.Executed() {
			return nil
		}

		next := stored.Clone()
		next.ExecutedAt = e.clock.Now().UnixMilli()
		return e.votings.Put(ctx, next)
	})
	if errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("mark poll %s executed: %w", pollID, domain.ErrConcurrencyConflict)
	}
	if err != nil {
		return fmt.Errorf("mark poll %s executed: %w", pollID, err)
	}
	return nil
}

// applyVote mutates v in place. A voter is first removed from both sets, so a
// revote moves them and an empty answer only retracts.
func applyVote(v *domain.Voting, voterID int64, option domain.VoteOption) *domain.VoteOutcome {
	v.BanUserIDs = slices.DeleteFunc(v.BanUserIDs, func(id int64) bool { return id == voterID })
	v.NoBanUserIDs = slices.DeleteFunc(v.NoBanUserIDs, func(id int64) bool { return id == voterID })

	switch option {
	case domain.VoteBan:
		v.BanUserIDs = append(v.BanUserIDs, voterID)
	case domain.VoteNoBan:
		v.NoBanUserIDs = append(v.NoBanUserIDs, voterID)
	}

	banReached := int64(len(v.BanUserIDs)) >= v.MinVotes
	noBanReached := int64(len(v.NoBanUserIDs)) >= v.MinVotes

	switch {
	case banReached:
		v.Status = domain.VotingBanned
		return &domain.VoteOutcome{Result: domain.VoteResolvedBan, Voting: v, Resolution: resolutionFor(v)}
	case noBanReached:
		v.Status = domain.VotingKept
		return &domain.VoteOutcome{Result: domain.VoteResolvedNoBan, Voting: v, Resolution: resolutionFor(v)}
	default:
		return &domain.VoteOutcome{Result: domain.VoteRecorded, Voting: v}
	}
}

func resolutionFor(v *domain.Voting) *domain.Resolution {
	r := &domain.Resolution{
		ChatID:          v.ChatID,
		Ban:             v.Status == domain.VotingBanned,
		CandidateUserID: v.CandidateUserID,
	}
	if r.Ban {
		r.ForwardMessageID = v.CandidateMessageID
		r.NotifyText = fmt.Sprintf(banNoticeFormat, v.CandidateUserID)
		r.DeleteMessageIDs = append(r.DeleteMessageIDs, v.CandidateMessageID)
	}
	r.DeleteMessageIDs = append(r.DeleteMessageIDs, v.StartMessageID, v.PollMessageID)
	return r
}
