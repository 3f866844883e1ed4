// Package retry повторяет запросы к Telegram по политике backoff.
// Пауза retry_after, которую присылает Telegram, заменяет очередной шаг политики.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Unlimited снимает ограничение на число повторов
const Unlimited = -1

// Exponential возвращает экспоненциальную политику без ограничения по времени
func Exponential(initial, max time.Duration, jitter float64) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// RetryAfter возвращает паузу, которую Telegram попросил выдержать перед повтором
func RetryAfter(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second, true
	}
	return 0, false
}

// Code возвращает код ошибки Telegram API, 0 для остальных ошибок
func Code(err error) int {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// Permanent помечает ошибку как не подлежащую повтору
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do вызывает op, пока она не выполнится успешно, не вернёт Permanent,
// не исчерпает maxRetries повторов или не будет отменён ctx.
// timer == nil означает обычный таймер.
func Do(ctx context.Context, b backoff.BackOff, maxRetries int, timer backoff.Timer, op func() error, notify backoff.Notify) error {
	policy := &afterPolicy{BackOff: b}

	var bo backoff.BackOff = policy
	switch {
	case maxRetries == 0:
		bo = &backoff.StopBackOff{}
	case maxRetries > 0:
		bo = backoff.WithMaxRetries(policy, uint64(maxRetries))
	}

	wrapped := func() error {
		err := op()
		if d, ok := RetryAfter(err); ok {
			policy.after = d
		}
		return err
	}
	return backoff.RetryNotifyWithTimer(wrapped, backoff.WithContext(bo, ctx), notify, timer)
}

// afterPolicy отдаёт retry_after вместо очередного шага вложенной политики
type afterPolicy struct {
	backoff.BackOff
	after time.Duration
}

func (p *afterPolicy) NextBackOff() time.Duration {
	if p.after > 0 {
		d := p.after
		p.after = 0
		return d
	}
	return p.BackOff.NextBackOff()
}

func (p *afterPolicy) Reset() {
	p.after = 0
	p.BackOff.Reset()
}
