package telegram

import (
	"github.com/go-telegram/bot/models"

	"github.com/pscheid92/voteban/internal/domain"
)

func toDomainUpdate(u *models.Update) domain.Update {
	out := domain.Update{ID: u.ID}

	switch {
	case u.Message != nil:
		out.Message = toDomainMessage(u.Message)
	case u.PollAnswer != nil:
		out.PollAnswer = &domain.PollAnswer{
			PollID:    u.PollAnswer.PollID,
			Voter:     toDomainUser(u.PollAnswer.User),
			OptionIDs: u.PollAnswer.OptionIDs,
		}
	case u.MyChatMember != nil:
		out.MembershipChange = &domain.MembershipChange{
			ChatID:    u.MyChatMember.Chat.ID,
			NewStatus: domain.MemberStatus(u.MyChatMember.NewChatMember.Type),
		}
	}
	return out
}

func toDomainMessage(m *models.Message) *domain.Message {
	msg := &domain.Message{
		ID:     int64(m.ID),
		ChatID: m.Chat.ID,
		From:   toDomainUser(m.From),
		Text:   m.Text,
	}
	if m.ReplyToMessage != nil {
		msg.ReplyTo = toDomainMessage(m.ReplyToMessage)
	}
	return msg
}

// toDomainUser maps a missing sender (channel posts, anonymous admins) to the zero User.
func toDomainUser(u *models.User) domain.User {
	if u == nil {
		return domain.User{}
	}
	return domain.User{
		ID:        u.ID,
		IsBot:     u.IsBot,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}
