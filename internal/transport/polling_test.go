package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"telegram-bot/internal/retry"
)

// instantTimer запоминает паузы между повторами и срабатывает сразу
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

type pollResponse struct {
	updates []tgbotapi.Update
	err     error
}

// fakeGetter отдаёт заранее заданные ответы, затем блокируется до отмены теста
type fakeGetter struct {
	mu        sync.Mutex
	responses []pollResponse
	configs   []tgbotapi.UpdateConfig
	block     chan struct{}
}

func (f *fakeGetter) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.mu.Lock()
	f.configs = append(f.configs, cfg)
	if len(f.responses) == 0 {
		f.mu.Unlock()
		<-f.block
		return nil, nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	f.mu.Unlock()
	return r.updates, r.err
}

func (f *fakeGetter) offsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, c := range f.configs {
		out = append(out, c.Offset)
	}
	return out
}

func updates(ids ...int) []tgbotapi.Update {
	out := make([]tgbotapi.Update, 0, len(ids))
	for _, id := range ids {
		out = append(out, tgbotapi.Update{UpdateID: id})
	}
	return out
}

func TestPoller_ForwardsUpdatesAndAdvancesOffset(t *testing.T) {
	getter := &fakeGetter{
		responses: []pollResponse{
			{updates: updates(5, 6)},
			{updates: updates(7)},
		},
		block: make(chan struct{}),
	}
	defer close(getter.block)

	p := NewPoller(getter, PollerOptions{Timeout: 30 * time.Second, Limit: 50, AllowedUpdates: []string{"message"}})
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan tgbotapi.Update)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, out) }()

	var got []int
	for i := 0; i < 3; i++ {
		got = append(got, (<-out).UpdateID)
	}
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, []int{5, 6, 7}, got)
	require.Equal(t, 8, p.Offset())
	require.Equal(t, []int{0, 7}, getter.offsets()[:2])

	getter.mu.Lock()
	require.Equal(t, 30, getter.configs[0].Timeout)
	require.Equal(t, 50, getter.configs[0].Limit)
	require.Equal(t, []string{"message"}, getter.configs[0].AllowedUpdates)
	getter.mu.Unlock()
}

func TestPoller_RetriesWithBackoffAndRetryAfter(t *testing.T) {
	getter := &fakeGetter{
		responses: []pollResponse{
			{err: errors.New("network down")},
			{err: errors.New("network down")},
			{err: &tgbotapi.Error{Code: 429, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7}}},
			{updates: updates(1)},
		},
		block: make(chan struct{}),
	}
	defer close(getter.block)

	p := NewPoller(getter, PollerOptions{Timeout: time.Second, Limit: 100})
	p.backoff = retry.Exponential(time.Second, 30*time.Second, 0)
	timer := newInstantTimer()
	p.timer = timer

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan tgbotapi.Update, 1)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, out) }()

	require.Equal(t, 1, (<-out).UpdateID)
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 7 * time.Second}, timer.delays)
}

func TestPoller_UnauthorizedIsFatal(t *testing.T) {
	getter := &fakeGetter{
		responses: []pollResponse{{err: &tgbotapi.Error{Code: 401, Message: "Unauthorized"}}},
		block:     make(chan struct{}),
	}
	defer close(getter.block)

	p := NewPoller(getter, PollerOptions{Limit: 100})
	err := p.Run(context.Background(), make(chan tgbotapi.Update))
	require.Error(t, err)
	require.ErrorContains(t, err, "get updates")
}

func TestPoller_StopsWhileLongPollIsInFlight(t *testing.T) {
	getter := &fakeGetter{block: make(chan struct{})}
	defer close(getter.block)

	p := NewPoller(getter, PollerOptions{Timeout: time.Minute, Limit: 100})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, make(chan tgbotapi.Update)) }()

	require.Eventually(t, func() bool { return len(getter.offsets()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
