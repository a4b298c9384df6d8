package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/retry"
)

// SpamCheckThreshold is the message count below which a user's messages go to the classifier.
const SpamCheckThreshold = 10

const (
	needReplyText     = "Напиши это в реплае на спам"
	isAdminFormat     = "%s админ"
	pollQuestionFmt   = "Забанить %s? ⚖️"
	banOptionText     = "Забанить"
	noBanOptionText   = "Не банить"
	spamNoticeFormat  = "Похоже на спам, уверенность %s"
	statsRecordMetric = "user_stats"
)

var startTriggers = map[string]struct{}{
	"/voteban":              {},
	"/voteban@bandugan_bot": {},
	"@bandugan_bot":         {},
	"@banof":                {},
	"@banofbot":             {},
}

// IsStartTrigger reports whether text asks the bot to start a ban poll.
// Only the exact trigger text counts.
func IsStartTrigger(text string) bool {
	_, ok := startTriggers[text]
	return ok
}

// IntakeAction is what Ingest did with a message.
type IntakeAction int

const (
	ActionIgnored IntakeAction = iota
	ActionCounted
	ActionNeedReply
	ActionCandidateIsAdmin
	ActionVotingStarted
)

func (a IntakeAction) String() string {
	switch a {
	case ActionIgnored:
		return "ignored"
	case ActionCounted:
		return "counted"
	case ActionNeedReply:
		return "need_reply"
	case ActionCandidateIsAdmin:
		return "candidate_is_admin"
	case ActionVotingStarted:
		return "voting_started"
	default:
		return "unknown"
	}
}

// VotingStarter persists a freshly created ban poll.
type VotingStarter interface {
	StartVoting(ctx context.Context, p domain.StartVotingParams) (*domain.Voting, error)
}

type IntakeConfig struct {
	TargetChatID int64
	AdminChatID  int64
	MinVotes     int64
	CleanupDelay time.Duration
}

// Intake handles every message posted in the target chat.
type Intake struct {
	cfg        IntakeConfig
	stats      domain.UserStatsRepository
	classifier domain.Classifier
	chat       domain.ChatAPI
	votings    VotingStarter
	cleanup    domain.CleanupScheduler
	metrics    *metrics.IntakeMetrics
	policy     retry.Policy
}

func NewIntake(
	cfg IntakeConfig,
	stats domain.UserStatsRepository,
	classifier domain.Classifier,
	chat domain.ChatAPI,
	votings VotingStarter,
	cleanup domain.CleanupScheduler,
	m *metrics.IntakeMetrics,
	vm *metrics.VoteMetrics,
) *Intake {
	in := &Intake{
		cfg:        cfg,
		stats:      stats,
		classifier: classifier,
		chat:       chat,
		votings:    votings,
		cleanup:    cleanup,
		metrics:    m,
		policy:     casPolicy,
	}
	in.policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		vm.CASRetries.WithLabelValues(statsRecordMetric).Inc()
		slog.Debug("User stats write conflict, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}
	return in
}

// Ingest counts the message, runs the spam gate for new users, and starts a
// ban poll when the message is a start trigger.
func (in *Intake) Ingest(ctx context.Context, msg *domain.Message) (IntakeAction, error) {
	action, err := in.ingest(ctx, msg)
	in.metrics.Messages.WithLabelValues(action.String()).Inc()
	return action, err
}

func (in *Intake) ingest(ctx context.Context, msg *domain.Message) (IntakeAction, error) {
	if msg.ChatID != in.cfg.TargetChatID {
		return ActionIgnored, nil
	}

	count, err := in.countMessage(ctx, msg.ChatID, msg.From.ID)
	if err != nil {
		return ActionIgnored, fmt.Errorf("failed to count message: %w", err)
	}

	if count < SpamCheckThreshold && msg.Text != "" {
		if err := in.checkSpam(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Spam report failed", "message_id", msg.ID, "error", err)
		}
	}

	if !IsStartTrigger(msg.Text) {
		return ActionCounted, nil
	}

	if msg.ReplyTo == nil {
		return ActionNeedReply, in.notice(ctx, msg, needReplyText)
	}

	candidate := msg.ReplyTo
	status, err := in.chat.GetMemberStatus(ctx, msg.ChatID, candidate.From.ID)
	if err != nil {
		return ActionCounted, fmt.Errorf("failed to check candidate status: %w", err)
	}
	if status.IsAdmin() {
		return ActionCandidateIsAdmin, in.notice(ctx, msg, fmt.Sprintf(isAdminFormat, candidate.From.Mention()))
	}

	poll, err := in.chat.SendPoll(ctx, msg.ChatID, fmt.Sprintf(pollQuestionFmt, candidate.From.Mention()), []string{banOptionText, noBanOptionText})
	if err != nil {
		return ActionCounted, fmt.Errorf("failed to send poll: %w", err)
	}

	_, err = in.votings.StartVoting(ctx, domain.StartVotingParams{
		ChatID:             msg.ChatID,
		PollID:             poll.PollID,
		PollMessageID:      poll.MessageID,
		StartMessageID:     msg.ID,
		StarterUserID:      msg.From.ID,
		CandidateMessageID: candidate.ID,
		CandidateUserID:    candidate.From.ID,
		MinVotes:           in.cfg.MinVotes,
	})
	if err != nil {
		// No Voting backs this poll; answers to it would be dropped.
		if delErr := in.chat.DeleteMessage(ctx, msg.ChatID, poll.MessageID); delErr != nil && !errors.Is(delErr, domain.ErrAlreadyGone) {
			slog.ErrorContext(ctx, "Failed to delete orphaned poll", "poll_id", poll.PollID, "message_id", poll.MessageID, "error", delErr)
		}
		return ActionCounted, err
	}

	slog.InfoContext(ctx, "Ban poll started", "poll_id", poll.PollID, "candidate", candidate.From.ID, "starter", msg.From.ID)
	return ActionVotingStarted, nil
}

// countMessage increments the sender's message counter and returns the new count.
func (in *Intake) countMessage(ctx context.Context, chatID, userID int64) (int64, error) {
	return retry.Do(ctx, in.policy, retry.On(domain.ErrConflict), func() (int64, error) {
		stats, err := in.stats.Get(ctx, chatID, userID)
		if errors.Is(err, domain.ErrUserStatsNotFound) {
			stats = &domain.UserStats{ChatID: chatID, UserID: userID}
		} else if err != nil {
			return 0, err
		}

		stats.MessageCount++
		if err := in.stats.Put(ctx, stats); err != nil {
			return 0, err
		}
		return stats.MessageCount, nil
	})
}

// checkSpam reports a spam verdict to the admin chat. A missing verdict is not an error.
func (in *Intake) checkSpam(ctx context.Context, msg *domain.Message) error {
	verdict, err := in.classifier.Classify(ctx, msg.Text)
	if err != nil {
		slog.WarnContext(ctx, "Spam check skipped", "user_id", msg.From.ID, "error", err)
		return nil
	}
	if !verdict.IsSpam() {
		return nil
	}

	in.metrics.SpamDetected.Inc()
	slog.InfoContext(ctx, "Spam detected", "user_id", msg.From.ID, "message_id", msg.ID, "confidence", verdict.Confidence)

	text := fmt.Sprintf(spamNoticeFormat, strconv.FormatFloat(verdict.Confidence, 'f', -1, 64))
	if _, err := in.chat.SendMessage(ctx, in.cfg.AdminChatID, text); err != nil {
		return fmt.Errorf("failed to notify admins about spam: %w", err)
	}
	if err := in.chat.ForwardMessage(ctx, in.cfg.AdminChatID, msg.ChatID, msg.ID); err != nil && !errors.Is(err, domain.ErrAlreadyGone) {
		return fmt.Errorf("failed to forward spam: %w", err)
	}
	return nil
}

// notice replies with text and schedules removal of both the trigger and the reply.
func (in *Intake) notice(ctx context.Context, msg *domain.Message, text string) error {
	noticeID, err := in.chat.SendMessage(ctx, msg.ChatID, text)
	if err != nil {
		return fmt.Errorf("failed to send notice: %w", err)
	}
	return in.cleanup.Schedule(ctx, msg.ChatID, []int64{msg.ID, noticeID}, in.cfg.CleanupDelay)
}
