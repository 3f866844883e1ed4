package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"

	"telegram-bot/internal/domain/entity"
	"telegram-bot/internal/domain/port"
)

const redisKeyPrefix = "session:"

// RedisSessionRepository хранит сессии в Redis в виде JSON с истечением по TTL
type RedisSessionRepository struct {
	pool *redis.Pool
	ttl  time.Duration
}

// NewRedisPool создаёт пул соединений с Redis
func NewRedisPool(addr, password string, db int) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 4 * time.Minute,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr,
				redis.DialPassword(password),
				redis.DialDatabase(db),
				redis.DialConnectTimeout(5*time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// NewRedisSessionRepository создаёт хранилище поверх пула
func NewRedisSessionRepository(pool *redis.Pool, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{pool: pool, ttl: ttl}
}

// Ping проверяет соединение с Redis
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get возвращает сессию, создаёт новую если ключа нет или он истёк
func (r *RedisSessionRepository) Get(ctx context.Context, chatID, userID int64) (*entity.Session, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", redisKey(chatID, userID)))
	if errors.Is(err, redis.ErrNil) {
		return entity.NewSession(chatID, userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if session.Expired(r.ttl, time.Now()) {
		return entity.NewSession(chatID, userID), nil
	}
	if session.Data == nil {
		session.Data = make(map[string]string)
	}
	return &session, nil
}

// Save сохраняет сессию и продлевает её TTL
func (r *RedisSessionRepository) Save(ctx context.Context, session *entity.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	args := redis.Args{}.Add(redisKey(session.ChatID, session.UserID), data)
	if r.ttl > 0 {
		args = args.Add("EX", ttlSeconds(r.ttl))
	}
	if _, err := conn.Do("SET", args...); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Delete удаляет сессию
func (r *RedisSessionRepository) Delete(ctx context.Context, chatID, userID int64) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", redisKey(chatID, userID)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Close закрывает пул соединений
func (r *RedisSessionRepository) Close() error {
	return r.pool.Close()
}

func redisKey(chatID, userID int64) string {
	return redisKeyPrefix + entity.SessionKey(chatID, userID)
}

// ttlSeconds округляет TTL вверх до целых секунд, Redis не принимает EX 0
func ttlSeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

var _ port.SessionRepository = (*RedisSessionRepository)(nil)
