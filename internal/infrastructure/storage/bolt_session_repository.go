package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timshannon/bolthold"

	"telegram-bot/internal/domain/entity"
	"telegram-bot/internal/domain/port"
)

// BoltSessionRepository хранит сессии в файле bolthold
type BoltSessionRepository struct {
	store *bolthold.Store
	ttl   time.Duration
}

// OpenBoltSessionRepository открывает (или создаёт) файл хранилища
func OpenBoltSessionRepository(path string, ttl time.Duration) (*BoltSessionRepository, error) {
	store, err := bolthold.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt store %s: %w", path, err)
	}
	return &BoltSessionRepository{store: store, ttl: ttl}, nil
}

// Get возвращает сессию, создаёт новую если не найдена или устарела
func (r *BoltSessionRepository) Get(ctx context.Context, chatID, userID int64) (*entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session entity.Session
	err := r.store.Get(entity.SessionKey(chatID, userID), &session)
	if errors.Is(err, bolthold.ErrNotFound) {
		return entity.NewSession(chatID, userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if session.Expired(r.ttl, time.Now()) {
		return entity.NewSession(chatID, userID), nil
	}
	if session.Data == nil {
		session.Data = make(map[string]string)
	}
	return &session, nil
}

// Save сохраняет сессию
func (r *BoltSessionRepository) Save(ctx context.Context, session *entity.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.store.Upsert(session.Key(), session); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Delete удаляет сессию, отсутствие записи ошибкой не считается
func (r *BoltSessionRepository) Delete(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.store.Delete(entity.SessionKey(chatID, userID), &entity.Session{})
	if err != nil && !errors.Is(err, bolthold.ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Close закрывает файл хранилища
func (r *BoltSessionRepository) Close() error {
	return r.store.Close()
}

var _ port.SessionRepository = (*BoltSessionRepository)(nil)
