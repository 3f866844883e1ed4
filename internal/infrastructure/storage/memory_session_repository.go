package storage

import (
	"context"
	"sync"
	"time"

	"telegram-bot/internal/domain/entity"
	"telegram-bot/internal/domain/port"
)

// MemorySessionRepository in-memory хранилище сессий
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entity.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionRepository создаёт новое in-memory хранилище
func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*entity.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get возвращает сессию или новую, если сессии нет или она устарела.
// Новая сессия попадает в хранилище только через Save.
func (r *MemorySessionRepository) Get(ctx context.Context, chatID, userID int64) (*entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := entity.SessionKey(chatID, userID)

	r.mu.RLock()
	session, exists := r.sessions[key]
	r.mu.RUnlock()

	if !exists {
		return entity.NewSession(chatID, userID), nil
	}
	if session.Expired(r.ttl, r.now()) {
		r.mu.Lock()
		if current, ok := r.sessions[key]; ok && current == session {
			delete(r.sessions, key)
		}
		r.mu.Unlock()
		return entity.NewSession(chatID, userID), nil
	}
	return session.Clone(), nil
}

// Save сохраняет сессию. Сессия без состояния и данных не хранится:
// Get и так вернёт такую же.
func (r *MemorySessionRepository) Save(ctx context.Context, session *entity.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if session.State == entity.StateIdle && len(session.Data) == 0 {
		delete(r.sessions, session.Key())
	} else {
		r.sessions[session.Key()] = session.Clone()
	}
	r.mu.Unlock()

	return nil
}

// Delete удаляет сессию
func (r *MemorySessionRepository) Delete(ctx context.Context, chatID, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.sessions, entity.SessionKey(chatID, userID))
	r.mu.Unlock()

	return nil
}

// Len возвращает количество сессий в памяти
func (r *MemorySessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close ничего не делает: памяти освобождать нечего
func (r *MemorySessionRepository) Close() error {
	return nil
}

// Проверка реализации интерфейса
var _ port.SessionRepository = (*MemorySessionRepository)(nil)
