package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/correlation"
)

type MessageIngester interface {
	Ingest(ctx context.Context, msg *domain.Message) (IntakeAction, error)
}

type VoteRecorder interface {
	RecordVote(ctx context.Context, pollID string, voterID int64, option domain.VoteOption) (*domain.VoteOutcome, error)
	MarkExecuted(ctx context.Context, pollID string) error
}

type ResolutionExecutor interface {
	Execute(ctx context.Context, res *domain.Resolution, v *domain.Voting) error
}

// Dispatcher routes inbound updates. Failures are logged and dropped so one
// bad update never affects the next.
type Dispatcher struct {
	targetChatID int64
	intake       MessageIngester
	votes        VoteRecorder
	resolver     ResolutionExecutor
	chat         domain.ChatAPI
	metrics      *metrics.IntakeMetrics
}

func NewDispatcher(targetChatID int64, intake MessageIngester, votes VoteRecorder, resolver ResolutionExecutor, chat domain.ChatAPI, m *metrics.IntakeMetrics) *Dispatcher {
	return &Dispatcher{
		targetChatID: targetChatID,
		intake:       intake,
		votes:        votes,
		resolver:     resolver,
		chat:         chat,
		metrics:      m,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, u domain.Update) {
	ctx = correlation.ForUpdate(ctx, u.ID)
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Update handler panicked", "update_id", u.ID, "panic", r)
		}
	}()

	switch {
	case u.Message != nil:
		d.onMessage(ctx, u.Message)
	case u.PollAnswer != nil:
		d.onPollAnswer(ctx, u.PollAnswer)
	case u.MembershipChange != nil:
		d.onMembershipChange(ctx, u.MembershipChange)
	default:
		slog.DebugContext(ctx, "Ignoring unsupported update", "update_id", u.ID)
	}
}

func (d *Dispatcher) onMessage(ctx context.Context, msg *domain.Message) {
	action, err := d.intake.Ingest(ctx, msg)
	if err != nil {
		slog.ErrorContext(ctx, "Message handling failed", "chat_id", msg.ChatID, "message_id", msg.ID, "action", action.String(), "error", err)
		return
	}
	slog.DebugContext(ctx, "Message handled", "chat_id", msg.ChatID, "message_id", msg.ID, "action", action.String())
}

func (d *Dispatcher) onPollAnswer(ctx context.Context, ans *domain.PollAnswer) {
	option := OptionFromIDs(ans.OptionIDs)

	outcome, err := d.votes.RecordVote(ctx, ans.PollID, ans.Voter.ID, option)
	if errors.Is(err, domain.ErrVotingNotFound) {
		slog.InfoContext(ctx, "Answer for unknown poll dropped", "poll_id", ans.PollID)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "Vote handling failed", "poll_id", ans.PollID, "voter", ans.Voter.ID, "error", err)
		return
	}

	slog.DebugContext(ctx, "Vote recorded", "poll_id", ans.PollID, "voter", ans.Voter.ID, "option", option.String(), "result", outcome.Result.String())
	if outcome.Resolution == nil {
		return
	}

	slog.InfoContext(ctx, "Ban poll resolved", "poll_id", ans.PollID, "ban", outcome.Resolution.Ban, "candidate", outcome.Resolution.CandidateUserID, "replayed", outcome.Replayed)
	err = d.resolver.Execute(ctx, outcome.Resolution, outcome.Voting)
	if errors.Is(err, ErrCandidateNotBanned) {
		slog.ErrorContext(ctx, "Resolution failed, a later answer will retry it", "poll_id", ans.PollID, "error", err)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "Resolution partially failed", "poll_id", ans.PollID, "error", err)
	}

	if err := d.votes.MarkExecuted(ctx, ans.PollID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark resolution executed", "poll_id", ans.PollID, "error", err)
	}
}

// onMembershipChange makes the bot leave any chat other than the target chat it was added to.
func (d *Dispatcher) onMembershipChange(ctx context.Context, mc *domain.MembershipChange) {
	if mc.ChatID == d.targetChatID || !mc.NewStatus.IsPresent() {
		return
	}

	if err := d.chat.LeaveChat(ctx, mc.ChatID); err != nil && !errors.Is(err, domain.ErrAlreadyGone) {
		slog.ErrorContext(ctx, "Failed to leave foreign chat", "chat_id", mc.ChatID, "error", err)
		return
	}
	d.metrics.ChatsLeft.Inc()
	slog.InfoContext(ctx, "Left foreign chat", "chat_id", mc.ChatID, "status", string(mc.NewStatus))
}

// OptionFromIDs maps poll option indices to a vote. Polls are single-choice;
// only the first index counts.
func OptionFromIDs(ids []int) domain.VoteOption {
	if len(ids) == 0 {
		return domain.VoteNone
	}
	switch ids[0] {
	case 0:
		return domain.VoteBan
	case 1:
		return domain.VoteNoBan
	default:
		return domain.VoteNone
	}
}
