package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrpl-buy-bot/internal/chat"
	"xrpl-buy-bot/internal/domain"
	"xrpl-buy-bot/internal/price"
)

var testAsset = domain.TrackedAsset{Currency: "UCK", Issuer: "rsMH5RBCYohAHXqVK3ShaYrR2vAS5rmdNB"}

type fakeMessenger struct {
	mu       sync.Mutex
	messages []*bot.SendMessageParams
	actions  []*bot.SendChatActionParams
	sendErr  error
}

func (f *fakeMessenger) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, params)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &models.Message{ID: len(f.messages)}, nil
}

func (f *fakeMessenger) SendChatAction(_ context.Context, params *bot.SendChatActionParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, params)
	return true, nil
}

type fakePricer struct {
	price decimal.Decimal
	err   error
	calls int
}

func (f *fakePricer) Price(context.Context) (decimal.Decimal, error) {
	f.calls++
	return f.price, f.err
}

type fakeCompleter struct {
	reply  string
	err    error
	prompt []string
}

func (f *fakeCompleter) Complete(_ context.Context, text string) (string, error) {
	f.prompt = append(f.prompt, text)
	return f.reply, f.err
}

func newTestHandler(p *fakePricer, c *fakeCompleter) *Handler {
	return NewHandler(HandlerOptions{Asset: testAsset, Pricer: p, Completer: c})
}

func message(text string) *models.Message {
	return &models.Message{ID: 42, Text: text, Chat: models.Chat{ID: 1001}}
}

func TestHandle_StartAndHelp(t *testing.T) {
	for _, text := range []string{"/start", "/help", "/help@UckBuyBot", "/START"} {
		t.Run(text, func(t *testing.T) {
			api := &fakeMessenger{}
			completer := &fakeCompleter{}
			newTestHandler(&fakePricer{}, completer).Handle(context.Background(), api, message(text))

			require.Len(t, api.messages, 1)
			sent := api.messages[0]
			assert.Equal(t, WelcomeText(testAsset), sent.Text)
			assert.Equal(t, int64(1001), sent.ChatID)
			require.NotNil(t, sent.ReplyParameters)
			assert.Equal(t, 42, sent.ReplyParameters.MessageID)
			assert.Empty(t, completer.prompt)
		})
	}
}

func TestHandle_Price(t *testing.T) {
	api := &fakeMessenger{}
	pricer := &fakePricer{price: decimal.RequireFromString("0.000123456789")}

	newTestHandler(pricer, &fakeCompleter{}).Handle(context.Background(), api, message("/price"))

	require.Len(t, api.messages, 1)
	sent := api.messages[0]
	assert.Equal(t,
		"🚨 *UCK/XRP live* (XPMarket): *0.00012346 XRP* per UCK\n"+
			"https://xpmarket.com/token/UCK?issuer=rsMH5RBCYohAHXqVK3ShaYrR2vAS5rmdNB 📈",
		sent.Text)
	assert.Equal(t, models.ParseModeMarkdownV1, sent.ParseMode)
	assert.Equal(t, 1, pricer.calls)
}

func TestHandle_PriceUnavailable(t *testing.T) {
	api := &fakeMessenger{}
	pricer := &fakePricer{err: &price.LookupError{Kind: price.KindStatus, StatusCode: 503}}

	newTestHandler(pricer, &fakeCompleter{}).Handle(context.Background(), api, message("/price"))

	require.Len(t, api.messages, 1)
	assert.Equal(t, PriceFallbackText, api.messages[0].Text)
}

func TestHandle_ChatForwarded(t *testing.T) {
	api := &fakeMessenger{}
	completer := &fakeCompleter{reply: "UCK to the moon, no cap"}

	newTestHandler(&fakePricer{}, completer).Handle(context.Background(), api, message("is UCK a good buy?"))

	assert.Equal(t, []string{"is UCK a good buy?"}, completer.prompt)
	require.Len(t, api.actions, 1)
	assert.Equal(t, models.ChatActionTyping, api.actions[0].Action)
	require.Len(t, api.messages, 1)
	assert.Equal(t, "UCK to the moon, no cap", api.messages[0].Text)
	assert.Empty(t, api.messages[0].ParseMode, "model output is sent as plain text")
	assert.Equal(t, 42, api.messages[0].ReplyParameters.MessageID)
}

func TestHandle_UnknownCommandForwarded(t *testing.T) {
	api := &fakeMessenger{}
	completer := &fakeCompleter{reply: "dunno that one"}

	newTestHandler(&fakePricer{}, completer).Handle(context.Background(), api, message("/chart now"))

	assert.Equal(t, []string{"/chart now"}, completer.prompt)
	require.Len(t, api.messages, 1)
}

func TestHandle_ChatErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", chat.ErrRateLimited, chat.RateLimitReply},
		{"other", errors.New("connection reset"), "Oops: connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeMessenger{}
			newTestHandler(&fakePricer{}, &fakeCompleter{err: tt.err}).Handle(context.Background(), api, message("hi"))

			require.Len(t, api.messages, 1)
			assert.Equal(t, tt.want, api.messages[0].Text)
		})
	}
}

func TestHandle_LongReplyTruncated(t *testing.T) {
	api := &fakeMessenger{}
	completer := &fakeCompleter{reply: strings.Repeat("a", MaxMessageRunes+100)}

	newTestHandler(&fakePricer{}, completer).Handle(context.Background(), api, message("write an essay"))

	require.Len(t, api.messages, 1)
	assert.Len(t, api.messages[0].Text, MaxMessageRunes)
}

func TestHandle_IgnoresEmpty(t *testing.T) {
	api := &fakeMessenger{}
	completer := &fakeCompleter{}
	h := newTestHandler(&fakePricer{}, completer)

	h.Handle(context.Background(), api, nil)
	h.Handle(context.Background(), api, message("   "))
	h.HandleUpdate(context.Background(), nil, &models.Update{})

	assert.Empty(t, api.messages)
	assert.Empty(t, completer.prompt)
}

func TestHandle_SendFailureDoesNotPanic(t *testing.T) {
	api := &fakeMessenger{sendErr: errors.New("blocked by user")}
	assert.NotPanics(t, func() {
		newTestHandler(&fakePricer{}, &fakeCompleter{}).Handle(context.Background(), api, message("/start"))
	})
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text   string
		want   string
		wantOK bool
	}{
		{"/price", "price", true},
		{"/price@UckBuyBot", "price", true},
		{"  /Help please", "help", true},
		{"hello /price", "", false},
		{"/", "", false},
		{"/@bot", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCommand(tt.text)
		assert.Equal(t, tt.want, got, tt.text)
		assert.Equal(t, tt.wantOK, ok, tt.text)
	}
}

func TestWelcomeText(t *testing.T) {
	text := WelcomeText(testAsset)
	assert.Contains(t, text, "UCK Buy Tracker")
	assert.Contains(t, text, "/price for UCK/XRP")
}
