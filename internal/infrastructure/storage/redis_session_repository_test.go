package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"telegram-bot/internal/domain/entity"
)

func setupRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisSessionRepository) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	repo := NewRedisSessionRepository(NewRedisPool(s.Addr(), "", 0), ttl)
	t.Cleanup(func() { repo.Close() })
	return s, repo
}

func TestRedisSessionRepository_GetMissingReturnsIdle(t *testing.T) {
	_, repo := setupRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Ping(ctx))

	s, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateIdle, s.State)
	require.NotNil(t, s.Data)
}

func TestRedisSessionRepository_SaveSetsTTL(t *testing.T) {
	mr, repo := setupRedis(t, 90*time.Second)
	ctx := context.Background()

	s := entity.NewSession(10, 1)
	s.SetState(entity.StateFeedbackConfirm)
	s.Set("text", "привет")
	require.NoError(t, repo.Save(ctx, s))

	require.True(t, mr.Exists("session:10:1"))
	require.Equal(t, 90*time.Second, mr.TTL("session:10:1"))

	got, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateFeedbackConfirm, got.State)
	require.Equal(t, "привет", got.Get("text"))
}

func TestRedisSessionRepository_KeyExpires(t *testing.T) {
	mr, repo := setupRedis(t, time.Minute)
	ctx := context.Background()

	s := entity.NewSession(10, 1)
	s.SetState(entity.StateFeedbackText)
	require.NoError(t, repo.Save(ctx, s))

	mr.FastForward(2 * time.Minute)

	got, err := repo.Get(ctx, 10, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateIdle, got.State)
}

func TestRedisSessionRepository_Delete(t *testing.T) {
	mr, repo := setupRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, entity.NewSession(10, 1)))
	require.NoError(t, repo.Delete(ctx, 10, 1))
	require.False(t, mr.Exists("session:10:1"))
}

func TestTTLSeconds(t *testing.T) {
	require.Equal(t, int64(1), ttlSeconds(100*time.Millisecond))
	require.Equal(t, int64(2), ttlSeconds(1500*time.Millisecond))
	require.Equal(t, int64(60), ttlSeconds(time.Minute))
}
