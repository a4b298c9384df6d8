package domain

import (
	"context"
	"slices"
)

// VotingStatus is the lifecycle state of a Voting. Resolved states are terminal.
type VotingStatus string

const (
	VotingOpen   VotingStatus = "open"
	VotingBanned VotingStatus = "ban"
	VotingKept   VotingStatus = "no_ban"
)

// ParseVotingStatus maps a stored status to a VotingStatus. Missing or
// unrecognised values decode as open.
func ParseVotingStatus(s string) VotingStatus {
	switch VotingStatus(s) {
	case VotingBanned:
		return VotingBanned
	case VotingKept:
		return VotingKept
	default:
		return VotingOpen
	}
}

// Voting tracks one ban poll. Exclusively owned by the VotingRepository;
// callers only hold copies for the duration of a single event.
type Voting struct {
	PollID string
	ChatID int64

	CandidateMessageID int64
	StartMessageID     int64
	PollMessageID      int64

	CandidateUserID int64
	StarterUserID   int64

	// A voter ID is never present in both lists.
	BanUserIDs   []int64
	NoBanUserIDs []int64

	MinVotes int64
	Status   VotingStatus

	// ResolvedAt is when the current resolution attempt was claimed (unix ms).
	ResolvedAt int64
	// ExecutedAt is when the resolution's side effects completed (unix ms, 0 = pending).
	ExecutedAt int64

	// Version is the stored version this copy was read at (0 = never stored).
	Version int64
}

func (v *Voting) Resolved() bool {
	return v.Status == VotingBanned || v.Status == VotingKept
}

// Executed reports whether a resolved Voting's side effects have completed.
func (v *Voting) Executed() bool {
	return v.ExecutedAt != 0
}

// Clone returns a deep copy so retried read-modify-write cycles never share slices.
func (v *Voting) Clone() *Voting {
	c := *v
	c.BanUserIDs = slices.Clone(v.BanUserIDs)
	c.NoBanUserIDs = slices.Clone(v.NoBanUserIDs)
	return &c
}

// VoteOption is a voter's current answer to a ban poll.
type VoteOption int

const (
	VoteNone  VoteOption = iota // answer retracted
	VoteBan                     // "ban" option
	VoteNoBan                   // "don't ban" option
)

func (o VoteOption) String() string {
	switch o {
	case VoteBan:
		return "ban"
	case VoteNoBan:
		return "no_ban"
	default:
		return "none"
	}
}

// VoteResult describes what recording a vote did to the Voting.
type VoteResult int

const (
	VoteRecorded      VoteResult = iota // vote stored, poll still open
	VoteResolvedBan                     // ban threshold reached
	VoteResolvedNoBan                   // no-ban threshold reached
	VoteIgnored                         // poll already resolved, nothing written
)

func (r VoteResult) String() string {
	switch r {
	case VoteRecorded:
		return "recorded"
	case VoteResolvedBan:
		return "resolved_ban"
	case VoteResolvedNoBan:
		return "resolved_no_ban"
	case VoteIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Resolution is the side-effect intent of a resolved Voting. The engine only
// describes it; the resolver executes it against the chat API.
type Resolution struct {
	ChatID          int64
	Ban             bool
	CandidateUserID int64

	// ForwardMessageID is forwarded to the admin chat before deletion (ban only, 0 otherwise).
	ForwardMessageID int64
	NotifyText       string

	// DeleteMessageIDs are deleted in order.
	DeleteMessageIDs []int64
}

type VoteOutcome struct {
	Result     VoteResult
	Voting     *Voting
	Resolution *Resolution
	// Replayed is set when the answer found a resolution whose earlier execution
	// never completed and claimed it for another attempt.
	Replayed bool
}

// StartVotingParams bundles the identifiers of a freshly created ban poll.
type StartVotingParams struct {
	ChatID             int64
	PollID             string
	PollMessageID      int64
	StartMessageID     int64
	StarterUserID      int64
	CandidateMessageID int64
	CandidateUserID    int64
	MinVotes           int64
}

// VotingRepository persists Votings keyed by poll ID.
//
// Put is a compare-and-swap on Version: it succeeds only if the stored version
// still equals v.Version (0 meaning "not stored yet"), then bumps v.Version.
// Otherwise it returns ErrConflict.
type VotingRepository interface {
	Get(ctx context.Context, pollID string) (*Voting, error)
	Put(ctx context.Context, v *Voting) error
	Delete(ctx context.Context, pollID string) error
}

// ResolutionArchive keeps an audit trail of resolved votings.
type ResolutionArchive interface {
	Archive(ctx context.Context, v *Voting) error
}
