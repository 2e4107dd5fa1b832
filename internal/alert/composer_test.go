package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrpl-buy-bot/internal/domain"
	"xrpl-buy-bot/internal/price"
)

var asset = domain.TrackedAsset{Currency: "UCK", Issuer: "rsMH5RBCYohAHXqVK3ShaYrR2vAS5rmdNB"}

var buy = domain.BuyCandidate{
	Received: decimal.RequireFromString("50.5"),
	Spent:    decimal.RequireFromString("2.000012"),
	Buyer:    "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh",
	TxHash:   "E3FE6EA3D48F0C2B639448020EA4F03D4F4F8FFDB243A852A0F59177921B4879",
}

type stubPricer struct {
	price decimal.Decimal
	err   error
}

func (p stubPricer) Price(ctx context.Context) (decimal.Decimal, error) {
	return p.price, p.err
}

type recordingSender struct {
	sent []domain.Alert
	err  error
}

func (s *recordingSender) Send(ctx context.Context, alert domain.Alert) error {
	s.sent = append(s.sent, alert)
	return s.err
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 16, 18, 5, 0, 0, time.UTC)
}

func TestRender(t *testing.T) {
	loc := time.FixedZone("EDT", -4*60*60)
	text := Render(asset, buy, "Price: ~0.00001234 XRP", fixedNow().In(loc))

	want := "🚨 *NEW BUY UCK* 🦈🦐🚀🔥🔥\n" +
		"(2026-10-16 14:05 EDT)\n\n" +
		"💰 *Spent*: 2.00 XRP\n" +
		"🪙 *Received*: 50.50000000 UCK\n" +
		"👤 *Buyer*: rHb9CJ...wdtyTh\n" +
		"🏦 *Issuer*: rsMH5R...5rmdNB\n" +
		"Price: ~0.00001234 XRP\n" +
		"🔗 *Tx*: https://xrpscan.com/tx/E3FE6EA3D48F0C2B639448020EA4F03D4F4F8FFDB243A852A0F59177921B4879\n" +
		"📊 *Chart*: https://xpmarket.com/token/UCK?issuer=rsMH5RBCYohAHXqVK3ShaYrR2vAS5rmdNB\n" +
		"\nJoin the pump! 📈🦆"
	assert.Equal(t, want, text)
}

func TestPriceLine(t *testing.T) {
	assert.Equal(t, "Price: ~0.00001234 XRP", PriceLine(decimal.RequireFromString("0.00001234"), nil))
	assert.Equal(t, "Price: ~1.50000000 XRP", PriceLine(decimal.RequireFromString("1.5"), nil))
	assert.Equal(t, PriceFallback, PriceLine(decimal.Zero, &price.LookupError{Kind: price.KindNetwork}))
}

func TestComposer_Notify(t *testing.T) {
	sender := &recordingSender{}
	c := NewComposer(Options{
		Asset:    asset,
		ChatID:   "-1001234567890",
		Pricer:   stubPricer{price: decimal.RequireFromString("0.00002")},
		Sender:   sender,
		Location: time.UTC,
		Now:      fixedNow,
	})

	require.NoError(t, c.Notify(context.Background(), buy))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "-1001234567890", sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "(2026-10-16 18:05 UTC)")
	assert.Contains(t, sender.sent[0].Text, "Price: ~0.00002000 XRP")
}

func TestComposer_NotifyWithoutPrice(t *testing.T) {
	sender := &recordingSender{}
	c := NewComposer(Options{
		Asset:  asset,
		Pricer: stubPricer{err: &price.LookupError{Kind: price.KindStatus, StatusCode: 503}},
		Sender: sender,
		Now:    fixedNow,
	})

	require.NoError(t, c.Notify(context.Background(), buy))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, PriceFallback)
}

func TestComposer_DeliveryFailureIsReturnedOnce(t *testing.T) {
	sendErr := errors.New("Forbidden: bot is not a member of the channel chat")
	sender := &recordingSender{err: sendErr}
	c := NewComposer(Options{
		Asset:  asset,
		Pricer: stubPricer{price: decimal.NewFromInt(1)},
		Sender: sender,
	})

	err := c.Notify(context.Background(), buy)
	assert.ErrorIs(t, err, sendErr)
	assert.Len(t, sender.sent, 1)
}
