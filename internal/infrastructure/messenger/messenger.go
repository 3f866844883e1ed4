package messenger

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"telegram-bot/internal/domain/port"
	"telegram-bot/internal/retry"
)

// Client часть tgbotapi.BotAPI, нужная для отправки
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger отправляет запросы с ограничением частоты и повторами
type Messenger struct {
	client     Client
	limiter    *rate.Limiter
	retries    int
	newBackOff func() backoff.BackOff
	timer      backoff.Timer
}

// New создаёт Messenger с лимитом perSecond запросов в секунду
func New(client Client, perSecond float64, burst, retries int) *Messenger {
	return &Messenger{
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		retries:    retries,
		newBackOff: sendBackOff,
	}
}

// sendBackOff 500ms, 1s, 2s ... до 5s, ±20%
func sendBackOff() backoff.BackOff {
	return retry.Exponential(500*time.Millisecond, 5*time.Second, 0.2)
}

// Send отправляет сообщение
func (m *Messenger) Send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var msg tgbotapi.Message
	err := m.do(ctx, func() error {
		var err error
		msg, err = m.client.Send(c)
		return err
	})
	return msg, err
}

// Request выполняет запрос без ответа-сообщения
func (m *Messenger) Request(ctx context.Context, c tgbotapi.Chattable) error {
	return m.do(ctx, func() error {
		_, err := m.client.Request(c)
		return err
	})
}

func (m *Messenger) do(ctx context.Context, call func() error) error {
	attempt := 0
	return retry.Do(ctx, m.newBackOff(), m.retries, m.timer, func() error {
		if err := m.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		attempt++
		err := call()
		if err != nil && !retryable(err) {
			return retry.Permanent(err)
		}
		return err
	}, func(err error, delay time.Duration) {
		log.WithError(err).WithFields(log.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("Telegram request failed, retrying")
	})
}

// retryable решает, стоит ли повторять запрос.
// 429, 5xx и сетевые ошибки повторяются, остальные ошибки API и отмена ctx нет.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if _, ok := retry.RetryAfter(err); ok {
		return true
	}
	code := retry.Code(err)
	return code == 0 || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

var _ port.Sender = (*Messenger)(nil)
