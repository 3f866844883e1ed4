package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"telegram-bot/config"
	telegram "telegram-bot/internal/api"
	"telegram-bot/internal/container"
	"telegram-bot/internal/infrastructure/messenger"
	"telegram-bot/internal/infrastructure/reporting"
	"telegram-bot/internal/infrastructure/storage"
	"telegram-bot/internal/logging"
	"telegram-bot/internal/transport"
)

// version задаётся при сборке через -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("Bot stopped with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	reporter := reporting.New(cfg.SentryDSN, cfg.SentryEnvironment, version)
	defer reporter.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище сессий
	sessions, err := storage.Open(ctx, storage.Options{
		Driver:        cfg.StorageDriver,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		BoltPath:      cfg.BoltPath,
		TTL:           cfg.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("open session storage: %w", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			log.WithError(err).Warn("Error closing session storage")
		}
	}()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("create bot api (token %s): %w", cfg.MaskedToken(), err)
	}
	api.Debug = cfg.Debug

	log.WithFields(log.Fields{
		"account": api.Self.UserName,
		"token":   cfg.MaskedToken(),
		"mode":    cfg.Mode,
		"storage": cfg.StorageDriver,
		"version": version,
	}).Info("Authorized on account")

	// Собираем сервисы приложения
	sender := messenger.New(api, cfg.SendRate, cfg.SendBurst, cfg.SendRetries)
	sink := messenger.NewAdminSink(sender, cfg.AdminChatID)
	appContainer := container.New(sessions, sink, reporter)

	var isAllowed func(int64) bool
	if len(cfg.AllowedUsers) > 0 {
		isAllowed = cfg.IsAllowed
	}
	bot := telegram.NewBot(sender, appContainer, telegram.Options{
		Workers:   cfg.Workers,
		IsAllowed: isAllowed,
	})

	if err := bot.PublishCommands(ctx); err != nil {
		log.WithError(err).Warn("Failed to publish bot commands")
	}

	updates := make(chan tgbotapi.Update, cfg.PollLimit)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx, updates)
	})

	switch cfg.Mode {
	case config.ModeWebhook:
		if err := transport.RegisterWebhook(api, cfg.WebhookURL, cfg.WebhookSecret, telegram.AllowedUpdates, cfg.DropPendingUpdates); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		server := transport.NewWebhookServer(cfg.WebhookListen, transport.NewWebhookHandler(cfg.WebhookSecret, updates))
		// Run сам закрывает updates после остановки сервера
		g.Go(func() error {
			return server.Run(ctx)
		})

	default:
		if err := transport.PreparePolling(api, cfg.DropPendingUpdates); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		poller := transport.NewPoller(api, transport.PollerOptions{
			Timeout:        cfg.PollTimeout,
			Limit:          cfg.PollLimit,
			AllowedUpdates: telegram.AllowedUpdates,
		})
		g.Go(func() error {
			defer close(updates)
			return poller.Run(ctx, updates)
		})
	}

	if err := g.Wait(); err != nil {
		reporter.Report(context.Background(), err, map[string]string{"stage": "run"})
		return err
	}
	log.Info("Bot stopped")
	return nil
}
