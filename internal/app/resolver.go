package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/domain"
)

// ErrCandidateNotBanned means the ban step failed and nothing else was done.
// The poll stays in the chat so a later answer can retry the resolution.
var ErrCandidateNotBanned = errors.New("candidate not banned")

// Resolver carries out the side effects of a resolved Voting.
type Resolver struct {
	chat        domain.ChatAPI
	archive     domain.ResolutionArchive
	adminChatID int64
	metrics     *metrics.VoteMetrics
}

// NewResolver creates a resolver. archive may be nil when no archive database is configured.
func NewResolver(chat domain.ChatAPI, archive domain.ResolutionArchive, adminChatID int64, m *metrics.VoteMetrics) *Resolver {
	return &Resolver{chat: chat, archive: archive, adminChatID: adminChatID, metrics: m}
}

// Execute bans first and stops with ErrCandidateNotBanned if that fails.
// After a ban, every remaining step runs even if an earlier one fails; failures
// are joined. Targets that no longer exist count as done.
func (r *Resolver) Execute(ctx context.Context, res *domain.Resolution, v *domain.Voting) error {
	if res.Ban {
		err := r.chat.BanMember(ctx, res.ChatID, res.CandidateUserID)
		if err != nil && !errors.Is(err, domain.ErrAlreadyGone) {
			r.metrics.ResolutionErrors.Inc()
			return fmt.Errorf("%w: %w", ErrCandidateNotBanned, err)
		}
	}

	var errs []error
	step := func(name string, err error) {
		if err == nil || errors.Is(err, domain.ErrAlreadyGone) {
			return
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}

	if res.NotifyText != "" {
		_, err := r.chat.SendMessage(ctx, r.adminChatID, res.NotifyText)
		step("notify admins", err)
	}
	if res.ForwardMessageID != 0 {
		step("forward candidate message", r.chat.ForwardMessage(ctx, r.adminChatID, res.ChatID, res.ForwardMessageID))
	}
	for _, id := range res.DeleteMessageIDs {
		step(fmt.Sprintf("delete message %d", id), r.chat.DeleteMessage(ctx, res.ChatID, id))
	}

	if r.archive != nil && v != nil {
		if err := r.archive.Archive(ctx, v); err != nil {
			slog.WarnContext(ctx, "Failed to archive resolved voting", "poll_id", v.PollID, "error", err)
		}
	}

	if len(errs) > 0 {
		r.metrics.ResolutionErrors.Inc()
		return errors.Join(errs...)
	}
	return nil
}
