package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"telegram-bot/internal/domain/entity"
)

func TestMemorySessionRepository_GetCreatesIdleSession(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	s, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateIdle, s.State)
	// Чтение ничего не сохраняет
	require.Equal(t, 0, repo.Len())
}

func TestMemorySessionRepository_IdleSessionIsNotKept(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	s := entity.NewSession(10, 1)
	s.SetState(entity.StateFeedbackTopic)
	require.NoError(t, repo.Save(ctx, s))
	require.Equal(t, 1, repo.Len())

	s.Reset()
	require.NoError(t, repo.Save(ctx, s))
	require.Equal(t, 0, repo.Len())
}

func TestMemorySessionRepository_SaveAndGet(t *testing.T) {
	repo := NewMemorySessionRepository(time.Hour)
	ctx := context.Background()

	s, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	s.SetState(entity.StateFeedbackText)
	s.Set("topic", "bug")

	// Изменения не видны до Save
	other, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateIdle, other.State)

	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateFeedbackText, got.State)
	require.Equal(t, "bug", got.Get("topic"))
}

func TestMemorySessionRepository_SessionsAreKeyedByChatAndUser(t *testing.T) {
	repo := NewMemorySessionRepository(0)
	ctx := context.Background()

	s := entity.NewSession(10, 1)
	s.SetState(entity.StateFeedbackTopic)
	require.NoError(t, repo.Save(ctx, s))

	other, err := repo.Get(ctx, 20, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateIdle, other.State)
}

func TestMemorySessionRepository_ExpiredSessionStartsOver(t *testing.T) {
	repo := NewMemorySessionRepository(time.Minute)
	now := time.Now()
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	s := entity.NewSession(10, 1)
	s.SetState(entity.StateFeedbackText)
	require.NoError(t, repo.Save(ctx, s))

	repo.now = func() time.Time { return now.Add(2 * time.Minute) }
	got, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateIdle, got.State)
	require.Equal(t, 0, repo.Len())
}

func TestMemorySessionRepository_Delete(t *testing.T) {
	repo := NewMemorySessionRepository(0)
	ctx := context.Background()

	s := entity.NewSession(10, 1)
	s.SetState(entity.StateFeedbackText)
	require.NoError(t, repo.Save(ctx, s))
	require.NoError(t, repo.Delete(ctx, 10, 1))
	require.Equal(t, 0, repo.Len())
}
