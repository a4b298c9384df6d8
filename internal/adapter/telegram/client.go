package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/pscheid92/voteban/internal/domain"
)

// goneMarkers are Bot API error descriptions meaning the target no longer exists.
var goneMarkers = []string{
	"message to delete not found",
	"message to forward not found",
	"participant_id_invalid",
	"user not found",
	"user_not_participant",
}

// Client implements domain.ChatAPI on the Telegram Bot API.
type Client struct {
	b *bot.Bot
}

var _ domain.ChatAPI = (*Client)(nil)

// NewClient creates a Bot API client. It never contacts Telegram itself.
func NewClient(token string, opts ...bot.Option) (*Client, error) {
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Client{b: b}, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	msg, err := c.b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		return 0, translate("send message", err)
	}
	return int64(msg.ID), nil
}

func (c *Client) SendPoll(ctx context.Context, chatID int64, question string, options []string) (domain.SentPoll, error) {
	pollOptions := make([]models.InputPollOption, len(options))
	for i, o := range options {
		pollOptions[i] = models.InputPollOption{Text: o}
	}

	anonymous := false
	msg, err := c.b.SendPoll(ctx, &bot.SendPollParams{
		ChatID:      chatID,
		Question:    question,
		Options:     pollOptions,
		IsAnonymous: &anonymous,
	})
	if err != nil {
		return domain.SentPoll{}, translate("send poll", err)
	}
	if msg.Poll == nil {
		return domain.SentPoll{}, fmt.Errorf("send poll: response carries no poll")
	}
	return domain.SentPoll{PollID: msg.Poll.ID, MessageID: int64(msg.ID)}, nil
}

func (c *Client) GetMemberStatus(ctx context.Context, chatID, userID int64) (domain.MemberStatus, error) {
	member, err := c.b.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: userID})
	if err != nil {
		return "", translate("get chat member", err)
	}
	return domain.MemberStatus(member.Type), nil
}

func (c *Client) BanMember(ctx context.Context, chatID, userID int64) error {
	_, err := c.b.BanChatMember(ctx, &bot.BanChatMemberParams{ChatID: chatID, UserID: userID})
	return translate("ban chat member", err)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	_, err := c.b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: int(messageID)})
	return translate("delete message", err)
}

func (c *Client) ForwardMessage(ctx context.Context, toChatID, fromChatID, messageID int64) error {
	_, err := c.b.ForwardMessage(ctx, &bot.ForwardMessageParams{
		ChatID:     toChatID,
		FromChatID: fromChatID,
		MessageID:  int(messageID),
	})
	return translate("forward message", err)
}

func (c *Client) LeaveChat(ctx context.Context, chatID int64) error {
	_, err := c.b.LeaveChat(ctx, &bot.LeaveChatParams{ChatID: chatID})
	return translate("leave chat", err)
}

// SetWebhook points Telegram at url, restricted to the update kinds the bot handles.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	_, err := c.b.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message", "poll_answer", "my_chat_member"},
	})
	return translate("set webhook", err)
}

func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if isGone(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrAlreadyGone, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isGone(err error) bool {
	if !errors.Is(err, bot.ErrorBadRequest) {
		return false
	}
	desc := strings.ToLower(err.Error())
	for _, marker := range goneMarkers {
		if strings.Contains(desc, marker) {
			return true
		}
	}
	return false
}
