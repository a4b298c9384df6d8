package schema

import "github.com/pscheid92/voteban/internal/domain"

const (
	VotingsTable   = "votings"
	UserStatsTable = "user_stats"
)

// Votings is the stored layout of domain.Voting, keyed by poll_id.
var Votings = New(VotingsTable, "poll_id",
	func(v *domain.Voting) string { return v.PollID },
	func(v *domain.Voting) *int64 { return &v.Version },
	StringField("poll_id", func(v *domain.Voting) *string { return &v.PollID }),
	NumberField("chat_id", func(v *domain.Voting) *int64 { return &v.ChatID }),
	NumberField("candidate_message_id", func(v *domain.Voting) *int64 { return &v.CandidateMessageID }),
	NumberField("start_message_id", func(v *domain.Voting) *int64 { return &v.StartMessageID }),
	NumberField("poll_message_id", func(v *domain.Voting) *int64 { return &v.PollMessageID }),
	NumberField("candidate_user_id", func(v *domain.Voting) *int64 { return &v.CandidateUserID }),
	NumberField("starter_user_id", func(v *domain.Voting) *int64 { return &v.StarterUserID }),
	NumberSetField("ban_user_ids", func(v *domain.Voting) *[]int64 { return &v.BanUserIDs }),
	NumberSetField("no_ban_user_ids", func(v *domain.Voting) *[]int64 { return &v.NoBanUserIDs }),
	NumberField("min_votes", func(v *domain.Voting) *int64 { return &v.MinVotes }),
	StringField("status", votingStatus).Default(string(domain.VotingOpen)).Normalize(normalizeVotingStatus),
	NumberField("resolved_at", func(v *domain.Voting) *int64 { return &v.ResolvedAt }).Optional(),
	NumberField("executed_at", func(v *domain.Voting) *int64 { return &v.ExecutedAt }).Optional(),
)

func normalizeVotingStatus(s string) string {
	return string(domain.ParseVotingStatus(s))
}

// votingStatus exposes the typed status as a plain string field.
func votingStatus(v *domain.Voting) *string {
	return (*string)(&v.Status)
}

// UserStats is the stored layout of domain.UserStats, keyed by "<chat_id>_<user_id>".
var UserStats = New(UserStatsTable, "key",
	func(s *domain.UserStats) string { return domain.UserStatsKey(s.ChatID, s.UserID) },
	func(s *domain.UserStats) *int64 { return &s.Version },
	NumberField("chat_id", func(s *domain.UserStats) *int64 { return &s.ChatID }),
	NumberField("user_id", func(s *domain.UserStats) *int64 { return &s.UserID }),
	NumberField("message_count", func(s *domain.UserStats) *int64 { return &s.MessageCount }),
)
