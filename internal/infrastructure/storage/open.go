package storage

import (
	"context"
	"fmt"
	"time"

	"telegram-bot/internal/domain/port"
)

// Драйверы хранилища сессий
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverBolt   = "bolt"
)

// Options параметры открытия хранилища
type Options struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BoltPath      string
	TTL           time.Duration
}

// Open создаёт хранилище сессий выбранного драйвера
func Open(ctx context.Context, opts Options) (port.SessionRepository, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemorySessionRepository(opts.TTL), nil
	case DriverRedis:
		repo := NewRedisSessionRepository(NewRedisPool(opts.RedisAddr, opts.RedisPassword, opts.RedisDB), opts.TTL)
		if err := repo.Ping(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	case DriverBolt:
		return OpenBoltSessionRepository(opts.BoltPath, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
