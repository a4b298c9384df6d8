package domain

import (
	"context"
	"strings"
)

// MemberStatus is a chat member's status as reported by the chat protocol.
type MemberStatus string

const (
	MemberOwner         MemberStatus = "creator"
	MemberAdministrator MemberStatus = "administrator"
	MemberMember        MemberStatus = "member"
	MemberRestricted    MemberStatus = "restricted"
	MemberLeft          MemberStatus = "left"
	MemberBanned        MemberStatus = "kicked"
)

func (s MemberStatus) IsAdmin() bool {
	return s == MemberOwner || s == MemberAdministrator
}

// IsPresent reports whether the member is currently in the chat.
func (s MemberStatus) IsPresent() bool {
	switch s {
	case MemberOwner, MemberAdministrator, MemberMember, MemberRestricted:
		return true
	default:
		return false
	}
}

type User struct {
	ID        int64
	IsBot     bool
	FirstName string
	LastName  string
	Username  string
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Mention is "@username" when the user has one, the full name otherwise.
func (u User) Mention() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FullName()
}

// Message is an inbound chat message.
type Message struct {
	ID      int64
	ChatID  int64
	From    User
	Text    string
	ReplyTo *Message
}

// PollAnswer is a voter's current answer. Empty OptionIDs means the answer was retracted.
type PollAnswer struct {
	PollID    string
	Voter     User
	OptionIDs []int
}

// MembershipChange reports the bot's own membership status change in a chat.
type MembershipChange struct {
	ChatID    int64
	NewStatus MemberStatus
}

// Update is one inbound event. Exactly one of the pointers is set for updates
// the bot handles; other update kinds arrive with all three nil.
type Update struct {
	ID               int64
	Message          *Message
	PollAnswer       *PollAnswer
	MembershipChange *MembershipChange
}

type SentPoll struct {
	PollID    string
	MessageID int64
}

// ChatAPI is the subset of the chat protocol the bot drives. Implementations
// map "message/participant no longer exists" failures to ErrAlreadyGone.
type ChatAPI interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int64, error)
	SendPoll(ctx context.Context, chatID int64, question string, options []string) (SentPoll, error)
	GetMemberStatus(ctx context.Context, chatID, userID int64) (MemberStatus, error)
	BanMember(ctx context.Context, chatID, userID int64) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	ForwardMessage(ctx context.Context, toChatID, fromChatID, messageID int64) error
	LeaveChat(ctx context.Context, chatID int64) error
}
