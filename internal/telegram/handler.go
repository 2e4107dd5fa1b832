package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"xrpl-buy-bot/internal/chat"
	"xrpl-buy-bot/internal/domain"
	"xrpl-buy-bot/internal/observability"
)

// Commands answered locally.
const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandPrice = "price"
	commandChat  = "chat"
)

// Request outcomes for metrics.
const (
	outcomeOK       = "ok"
	outcomeFallback = "fallback"
	outcomeLimited  = "rate_limited"
	outcomeError    = "error"
)

const (
	// MaxMessageRunes is the Telegram limit for a single message.
	MaxMessageRunes = 4096

	defaultCompletionTimeout = 60 * time.Second
)

// Pricer returns the tracked token's price in XRP.
type Pricer interface {
	Price(ctx context.Context) (decimal.Decimal, error)
}

// Completer answers free-form text.
type Completer interface {
	Complete(ctx context.Context, text string) (string, error)
}

// HandlerOptions contains configuration for creating a Handler.
type HandlerOptions struct {
	Asset             domain.TrackedAsset
	Pricer            Pricer
	Completer         Completer
	CompletionTimeout time.Duration // Default: 60s
	Logger            *zap.Logger
}

// Handler dispatches incoming chat messages.
type Handler struct {
	asset             domain.TrackedAsset
	pricer            Pricer
	completer         Completer
	completionTimeout time.Duration
	logger            *zap.Logger
}

// NewHandler creates a command handler.
func NewHandler(opts HandlerOptions) *Handler {
	timeout := opts.CompletionTimeout
	if timeout <= 0 {
		timeout = defaultCompletionTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		asset:             opts.Asset,
		pricer:            opts.Pricer,
		completer:         opts.Completer,
		completionTimeout: timeout,
		logger:            logger.Named("telegram"),
	}
}

// HandleUpdate is a bot.HandlerFunc.
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	h.Handle(ctx, b, update.Message)
}

// Handle answers a single message. Messages without text are ignored.
func (h *Handler) Handle(ctx context.Context, api Messenger, msg *models.Message) {
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}

	command, _ := ParseCommand(msg.Text)
	switch command {
	case CommandStart, CommandHelp:
		h.reply(ctx, api, msg, WelcomeText(h.asset), models.ParseModeMarkdownV1)
		observability.RecordChatRequest(command, outcomeOK)
	case CommandPrice:
		h.handlePrice(ctx, api, msg)
	default:
		h.handleChat(ctx, api, msg)
	}
}

func (h *Handler) handlePrice(ctx context.Context, api Messenger, msg *models.Message) {
	price, err := h.pricer.Price(ctx)
	if err != nil {
		h.logger.Warn("price lookup failed", zap.Error(err))
		h.reply(ctx, api, msg, PriceFallbackText, "")
		observability.RecordChatRequest(CommandPrice, outcomeFallback)
		return
	}
	h.reply(ctx, api, msg, PriceText(h.asset, price), models.ParseModeMarkdownV1)
	observability.RecordChatRequest(CommandPrice, outcomeOK)
}

func (h *Handler) handleChat(ctx context.Context, api Messenger, msg *models.Message) {
	if _, err := api.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: msg.Chat.ID,
		Action: models.ChatActionTyping,
	}); err != nil {
		h.logger.Debug("typing indicator failed", zap.Error(err))
	}

	cctx, cancel := context.WithTimeout(ctx, h.completionTimeout)
	defer cancel()

	answer, err := h.completer.Complete(cctx, msg.Text)
	if err != nil {
		outcome := outcomeError
		if errors.Is(err, chat.ErrRateLimited) {
			outcome = outcomeLimited
		}
		h.logger.Warn("completion failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		h.reply(ctx, api, msg, chat.ErrorReply(err), "")
		observability.RecordChatRequest(commandChat, outcome)
		return
	}

	h.reply(ctx, api, msg, chat.Truncate(answer, MaxMessageRunes), "")
	observability.RecordChatRequest(commandChat, outcomeOK)
}

func (h *Handler) reply(ctx context.Context, api Messenger, msg *models.Message, text string, mode models.ParseMode) {
	_, err := api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             msg.Chat.ID,
		Text:               text,
		ParseMode:          mode,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
		ReplyParameters:    &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		h.logger.Warn("reply failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

// ParseCommand extracts a lower-cased command name from text such as
// "/price@SomeBot extra". ok is false when text is not a command.
func ParseCommand(text string) (command string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", false
	}
	return strings.ToLower(name), true
}

// PriceFallbackText is sent when /price cannot be answered.
const PriceFallbackText = "Can't fetch price, check XPMarket!"

// WelcomeText is the /start and /help reply.
func WelcomeText(asset domain.TrackedAsset) string {
	return fmt.Sprintf("Yo squad! 🚀 %s Buy Tracker + Fast Groq AI\n\n"+
		"Real-time %s buys in channel • /price for %s/XRP • Ask anything\n"+
		"Let's pump! 🦈🦐🔥", asset.Currency, asset.Currency, asset.Currency)
}

// PriceText is the /price reply.
func PriceText(asset domain.TrackedAsset, price decimal.Decimal) string {
	return fmt.Sprintf("🚨 *%s/XRP live* (XPMarket): *%s XRP* per %s\n%s 📈",
		asset.Currency, price.StringFixed(8), asset.Currency, asset.ChartURL())
}
