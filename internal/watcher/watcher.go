// Package watcher follows the ledger transaction stream and turns balance
// increases of the tracked token into buy alerts.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"xrpl-buy-bot/internal/domain"
	"xrpl-buy-bot/internal/observability"
	"xrpl-buy-bot/internal/xrpl"
)

// DefaultReconnectDelay is the fixed wait between connection attempts.
const DefaultReconnectDelay = 10 * time.Second

// State of the watcher's connection.
type State string

const (
	StateConnecting   State = "connecting"
	StateSubscribed   State = "subscribed"
	StateReconnecting State = "reconnecting"
)

var allStates = []string{string(StateConnecting), string(StateSubscribed), string(StateReconnecting)}

// Notifier receives qualifying buys.
type Notifier interface {
	Notify(ctx context.Context, buy domain.BuyCandidate) error
}

// Options contains configuration for creating a Watcher.
type Options struct {
	Dialer         xrpl.Dialer
	Notifier       Notifier
	Asset          domain.TrackedAsset
	MinSpent       decimal.Decimal // minimum XRP spent for an alert
	ReconnectDelay time.Duration   // Default: 10s
	Streams        []string        // Default: ledger, transactions
	Logger         *zap.Logger

	// Sleep waits d between connection attempts. Default: context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Watcher keeps one ledger subscription alive and reports buys.
// On any connect, subscribe or read error it closes the connection, waits
// the fixed delay and starts over, until its context is cancelled.
type Watcher struct {
	dialer         xrpl.Dialer
	notifier       Notifier
	extractor      *Extractor
	asset          domain.TrackedAsset
	reconnectDelay time.Duration
	streams        []string
	sleep          func(ctx context.Context, d time.Duration) error
	logger         *zap.Logger

	mu    sync.RWMutex
	state State
}

// New creates a new Watcher.
func New(opts Options) *Watcher {
	reconnectDelay := opts.ReconnectDelay
	if reconnectDelay == 0 {
		reconnectDelay = DefaultReconnectDelay
	}

	streams := opts.Streams
	if len(streams) == 0 {
		streams = []string{xrpl.StreamLedger, xrpl.StreamTransactions}
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		dialer:         opts.Dialer,
		notifier:       opts.Notifier,
		extractor:      NewExtractor(opts.Asset, opts.MinSpent),
		asset:          opts.Asset,
		reconnectDelay: reconnectDelay,
		streams:        streams,
		sleep:          sleep,
		logger:         logger.Named("watcher"),
		state:          StateConnecting,
	}
}

// State returns the current connection state.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	observability.SetWatcherState(string(s), allStates)
}

// Run blocks until ctx is cancelled and returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher starting",
		zap.Stringer("asset", w.asset),
		zap.Strings("streams", w.streams),
		zap.Duration("reconnect_delay", w.reconnectDelay))

	for {
		err := w.session(ctx)
		if ctx.Err() != nil {
			w.logger.Info("watcher stopping")
			return ctx.Err()
		}

		w.setState(StateReconnecting)
		observability.RecordReconnect()
		w.logger.Warn("ledger stream error, reconnecting",
			zap.Error(err),
			zap.Duration("delay", w.reconnectDelay))

		if err := w.sleep(ctx, w.reconnectDelay); err != nil {
			w.logger.Info("watcher stopping")
			return err
		}
	}
}

// session runs one connection until it fails. It always returns an error.
func (w *Watcher) session(ctx context.Context) error {
	w.setState(StateConnecting)

	stream, err := w.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer stream.Close()

	if err := stream.Subscribe(ctx, w.streams...); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	w.setState(StateSubscribed)
	w.logger.Info("ledger stream subscribed")

	for {
		raw, err := stream.Next(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		w.HandleMessage(ctx, raw)
	}
}

// HandleMessage processes one raw stream message. Undecodable messages are
// skipped; notifier errors are logged and never stop the watcher.
func (w *Watcher) HandleMessage(ctx context.Context, raw []byte) {
	msg, err := xrpl.DecodeMessage(raw)
	if err != nil {
		observability.RecordDecodeError()
		w.logger.Debug("skipping undecodable message", zap.Error(err))
		return
	}

	observability.RecordStreamMessage(msg.Type, msg.LedgerIndex)
	if msg.Type != xrpl.MessageTypeTransaction {
		return
	}

	start := time.Now()
	defer func() {
		observability.RecordMessageHandled(time.Since(start).Seconds())
	}()

	result, err := w.extractor.Extract(msg)
	if err != nil {
		observability.RecordDecodeError()
		w.logger.Debug("skipping malformed transaction", zap.Error(err))
		return
	}

	for i := 0; i < result.BelowThreshold; i++ {
		observability.RecordBuyBelowThreshold()
	}

	for _, buy := range result.Buys {
		observability.RecordBuyDetected()
		if err := w.notifier.Notify(ctx, buy); err != nil {
			w.logger.Error("alert delivery failed",
				zap.String("tx", buy.TxHash),
				zap.Error(err))
			continue
		}
		w.logger.Info("alert sent",
			zap.String("tx", buy.TxHash),
			zap.String("spent_xrp", buy.Spent.StringFixed(2)),
			zap.String("received", buy.Received.StringFixed(8)))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
