package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"telegram-bot/internal/retry"
)

// UpdatesGetter часть tgbotapi.BotAPI, нужная для long polling
type UpdatesGetter interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// PollerOptions параметры long polling
type PollerOptions struct {
	Timeout        time.Duration
	Limit          int
	AllowedUpdates []string
}

// Poller получает обновления методом getUpdates
type Poller struct {
	api     UpdatesGetter
	opts    PollerOptions
	backoff backoff.BackOff
	timer   backoff.Timer
	offset  int
}

// NewPoller создаёт Poller. Ошибки повторяются через 1s, 2s, 4s ... до 30s, ±20%.
func NewPoller(api UpdatesGetter, opts PollerOptions) *Poller {
	return &Poller{
		api:     api,
		opts:    opts,
		backoff: retry.Exponential(time.Second, 30*time.Second, 0.2),
	}
}

// Offset возвращает идентификатор следующего ожидаемого обновления
func (p *Poller) Offset() int {
	return p.offset
}

type pollResult struct {
	updates []tgbotapi.Update
	err     error
}

// Run опрашивает Telegram до отмены ctx и пишет обновления в out по порядку.
// Ошибки повторяются с экспоненциальной задержкой, retry_after от Telegram имеет приоритет.
// Недействительный токен (401) завершает Run с ошибкой.
func (p *Poller) Run(ctx context.Context, out chan<- tgbotapi.Update) error {
	log.WithField("timeout", p.opts.Timeout).Info("Long polling started")
	defer log.Info("Long polling stopped")

	for {
		updates, err := p.fetch(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get updates: %w", err)
		}

		for _, upd := range updates {
			if upd.UpdateID < p.offset {
				continue
			}
			select {
			case out <- upd:
				p.offset = upd.UpdateID + 1
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// fetch повторяет getUpdates, пока не получит ответ. Политика сбрасывается на каждом вызове.
func (p *Poller) fetch(ctx context.Context) ([]tgbotapi.Update, error) {
	var updates []tgbotapi.Update
	err := retry.Do(ctx, p.backoff, retry.Unlimited, p.timer, func() error {
		var err error
		updates, err = p.poll(ctx)
		switch {
		case ctx.Err() != nil:
			return retry.Permanent(ctx.Err())
		case retry.Code(err) == http.StatusUnauthorized:
			return retry.Permanent(err)
		}
		return err
	}, func(err error, delay time.Duration) {
		log.WithError(err).WithField("delay", delay).Warn("Failed to get updates, retrying")
	})
	return updates, err
}

// poll выполняет один запрос getUpdates, не дожидаясь его после отмены ctx
func (p *Poller) poll(ctx context.Context) ([]tgbotapi.Update, error) {
	cfg := tgbotapi.NewUpdate(p.offset)
	cfg.Timeout = int(p.opts.Timeout / time.Second)
	cfg.Limit = p.opts.Limit
	cfg.AllowedUpdates = p.opts.AllowedUpdates

	done := make(chan pollResult, 1)
	go func() {
		updates, err := p.api.GetUpdates(cfg)
		done <- pollResult{updates: updates, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.updates, r.err
	}
}
