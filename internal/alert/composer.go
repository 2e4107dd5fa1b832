// Package alert renders buy alerts and hands them to the delivery channel.
package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"xrpl-buy-bot/internal/domain"
	"xrpl-buy-bot/internal/observability"
)

// TimestampLayout formats the alert time.
const TimestampLayout = "2006-01-02 15:04 MST"

// PriceFallback is shown when the price is unavailable.
const PriceFallback = "Price: check XPMarket"

// Pricer returns the current token price in XRP.
type Pricer interface {
	Price(ctx context.Context) (decimal.Decimal, error)
}

// Sender delivers a rendered alert.
type Sender interface {
	Send(ctx context.Context, alert domain.Alert) error
}

// Options contains configuration for creating a Composer.
type Options struct {
	Asset    domain.TrackedAsset
	ChatID   string
	Pricer   Pricer
	Sender   Sender
	Location *time.Location   // Default: time.Local
	Now      func() time.Time // Default: time.Now
	Logger   *zap.Logger
}

// Composer turns buy candidates into alerts.
type Composer struct {
	asset    domain.TrackedAsset
	chatID   string
	pricer   Pricer
	sender   Sender
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewComposer creates a new Composer.
func NewComposer(opts Options) *Composer {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Composer{
		asset:    opts.Asset,
		chatID:   opts.ChatID,
		pricer:   opts.Pricer,
		sender:   opts.Sender,
		location: loc,
		now:      now,
		logger:   logger.Named("alert"),
	}
}

// Notify renders buy with the current price and delivers it once.
// Delivery failures are returned, not retried.
func (c *Composer) Notify(ctx context.Context, buy domain.BuyCandidate) error {
	price, err := c.pricer.Price(ctx)
	if err != nil {
		c.logger.Debug("rendering alert without price", zap.Error(err))
	}

	alert := domain.Alert{
		ChatID: c.chatID,
		Text:   Render(c.asset, buy, PriceLine(price, err), c.now().In(c.location)),
	}

	err = c.sender.Send(ctx, alert)
	observability.RecordAlertDelivery(err)
	if err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}
	return nil
}

// PriceLine formats the price row of an alert.
func PriceLine(price decimal.Decimal, err error) string {
	if err != nil {
		return PriceFallback
	}
	return fmt.Sprintf("Price: ~%s XRP", price.StringFixed(8))
}

// Render builds the alert text (Telegram Markdown).
func Render(asset domain.TrackedAsset, buy domain.BuyCandidate, priceLine string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🚨 *NEW BUY %s* 🦈🦐🚀🔥🔥\n", asset.Currency))
	sb.WriteString(fmt.Sprintf("(%s)\n\n", now.Format(TimestampLayout)))

	sb.WriteString(fmt.Sprintf("💰 *Spent*: %s %s\n", buy.Spent.StringFixed(2), domain.NativeCurrency))
	sb.WriteString(fmt.Sprintf("🪙 *Received*: %s %s\n", buy.Received.StringFixed(8), asset.Currency))
	sb.WriteString(fmt.Sprintf("👤 *Buyer*: %s\n", domain.ShortAddress(buy.Buyer)))
	sb.WriteString(fmt.Sprintf("🏦 *Issuer*: %s\n", domain.ShortAddress(asset.Issuer)))
	sb.WriteString(priceLine + "\n")
	sb.WriteString(fmt.Sprintf("🔗 *Tx*: %s\n", domain.TxURL(buy.TxHash)))
	sb.WriteString(fmt.Sprintf("📊 *Chart*: %s\n", asset.ChartURL()))

	sb.WriteString("\nJoin the pump! 📈🦆")
	return sb.String()
}
