package telegram

import (
	"fmt"

	"github.com/go-telegram/bot"
)

// NewBot creates a Bot API client that routes every update to h.
func NewBot(token string, h *Handler, opts ...bot.Option) (*bot.Bot, error) {
	opts = append([]bot.Option{bot.WithDefaultHandler(h.HandleUpdate)}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return b, nil
}
