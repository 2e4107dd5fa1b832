package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"xrpl-buy-bot/internal/alert"
	"xrpl-buy-bot/internal/chat"
	"xrpl-buy-bot/internal/config"
	"xrpl-buy-bot/internal/observability"
	"xrpl-buy-bot/internal/price"
	"xrpl-buy-bot/internal/telegram"
	"xrpl-buy-bot/internal/watcher"
	"xrpl-buy-bot/internal/xrpl"
)

const shutdownTimeout = 10 * time.Second

func runBot(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.RequireSecrets(); err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(cfg.RedactedSummary(), zap.String("version", version))

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	prices := price.NewClient(cfg.Asset,
		price.WithBaseURL(cfg.PriceAPIURL),
		price.WithTimeout(cfg.PriceTimeout),
		price.WithLogger(logger),
	)

	completer := chat.NewClient(chat.Options{
		APIKey:            cfg.GroqAPIKey,
		BaseURL:           cfg.GroqBaseURL,
		Model:             cfg.GroqModel,
		SystemPrompt:      chat.SystemPrompt(cfg.Asset.Currency),
		RequestsPerMinute: cfg.ChatRequestsPerMinute,
		Logger:            logger,
	})

	handler := telegram.NewHandler(telegram.HandlerOptions{
		Asset:     cfg.Asset,
		Pricer:    prices,
		Completer: completer,
		Logger:    logger,
	})

	b, err := telegram.NewBot(cfg.TelegramToken, handler)
	if err != nil {
		return err
	}

	composer := alert.NewComposer(alert.Options{
		Asset:    cfg.Asset,
		ChatID:   cfg.ChatID,
		Pricer:   prices,
		Sender:   telegram.NewChannelSender(b),
		Location: cfg.Location,
		Logger:   logger,
	})

	w := watcher.New(watcher.Options{
		Dialer:         xrpl.WSDialer{Endpoint: cfg.XRPLURL},
		Notifier:       composer,
		Asset:          cfg.Asset,
		MinSpent:       cfg.MinBuyXRP,
		ReconnectDelay: cfg.ReconnectDelay,
		Logger:         logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchDone := make(chan error, 1)
	go func() {
		watchDone <- w.Run(ctx)
	}()

	logger.Info("bot started",
		zap.String("asset", cfg.Asset.String()),
		zap.String("min_buy_xrp", cfg.MinBuyXRP.String()),
	)

	// Start blocks until ctx is cancelled.
	b.Start(ctx)
	cancel()

	if err := <-watchDone; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watcher: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func startMetricsServer(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return srv
}
