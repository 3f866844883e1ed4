package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

// instantTimer запоминает паузы и срабатывает сразу
type instantTimer struct {
	delays []time.Duration
	c      chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

// failing возвращает ошибки по очереди, затем nil
func failing(calls *int, errs ...error) func() error {
	return func() error {
		*calls++
		if len(errs) == 0 {
			return nil
		}
		err := errs[0]
		errs = errs[1:]
		return err
	}
}

func TestDo_ExponentialWithRetryAfterOverride(t *testing.T) {
	netErr := errors.New("network down")
	tooMany := &tgbotapi.Error{Code: 429, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7}}
	timer := newInstantTimer()
	var calls int

	err := Do(context.Background(), Exponential(time.Second, 30*time.Second, 0), Unlimited, timer,
		failing(&calls, netErr, netErr, tooMany, netErr), nil)
	require.NoError(t, err)
	require.Equal(t, 5, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 7 * time.Second, 4 * time.Second}, timer.delays)
}

func TestDo_StopsAfterMaxRetries(t *testing.T) {
	netErr := errors.New("connection reset")
	timer := newInstantTimer()
	var calls int

	err := Do(context.Background(), Exponential(time.Second, time.Minute, 0), 2, timer,
		failing(&calls, netErr, netErr, netErr, netErr), nil)
	require.ErrorIs(t, err, netErr)
	require.Equal(t, 3, calls)
	require.Len(t, timer.delays, 2)
}

func TestDo_ZeroRetries(t *testing.T) {
	netErr := errors.New("connection reset")
	var calls int

	err := Do(context.Background(), Exponential(time.Second, time.Minute, 0), 0, newInstantTimer(),
		failing(&calls, netErr), nil)
	require.ErrorIs(t, err, netErr)
	require.Equal(t, 1, calls)
}

func TestDo_PermanentIsNotRetried(t *testing.T) {
	unauthorized := &tgbotapi.Error{Code: 401, Message: "Unauthorized"}
	var calls int

	err := Do(context.Background(), Exponential(time.Second, time.Minute, 0), Unlimited, newInstantTimer(), func() error {
		calls++
		return Permanent(unauthorized)
	}, nil)
	require.Equal(t, 1, calls)
	require.Equal(t, 401, Code(err))
}

func TestDo_NotifiesBeforeEachPause(t *testing.T) {
	netErr := errors.New("network down")
	var notified []time.Duration
	var calls int

	err := Do(context.Background(), Exponential(time.Second, time.Minute, 0), Unlimited, newInstantTimer(),
		failing(&calls, netErr, netErr), func(err error, d time.Duration) {
			require.ErrorIs(t, err, netErr)
			notified = append(notified, d)
		})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, notified)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int

	err := Do(ctx, Exponential(time.Second, time.Minute, 0), Unlimited, newInstantTimer(),
		failing(&calls, errors.New("network down")), nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestRetryAfterAndCode(t *testing.T) {
	d, ok := RetryAfter(&tgbotapi.Error{Code: 429, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 3}})
	require.True(t, ok)
	require.Equal(t, 3*time.Second, d)

	_, ok = RetryAfter(errors.New("plain"))
	require.False(t, ok)

	require.Equal(t, 502, Code(&tgbotapi.Error{Code: 502}))
	require.Zero(t, Code(errors.New("plain")))
}
