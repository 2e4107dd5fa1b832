// Package telegram connects the bot to the Telegram Bot API: channel
// alerts go out through ChannelSender and chat commands are answered
// by Handler.
package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"xrpl-buy-bot/internal/domain"
)

// Messenger is the subset of *bot.Bot used here.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// ChannelSender posts alerts to a chat or channel.
type ChannelSender struct {
	api Messenger
}

// NewChannelSender creates a sender backed by api.
func NewChannelSender(api Messenger) *ChannelSender {
	return &ChannelSender{api: api}
}

// Send posts alert as Markdown with link previews disabled.
func (s *ChannelSender) Send(ctx context.Context, alert domain.Alert) error {
	_, err := s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             alert.ChatID,
		Text:               alert.Text,
		ParseMode:          models.ParseModeMarkdownV1,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", alert.ChatID, err)
	}
	return nil
}
