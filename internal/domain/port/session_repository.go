package port

import (
	"context"

	"telegram-bot/internal/domain/entity"
)

// SessionRepository интерфейс хранилища сессий диалога
type SessionRepository interface {
	// Get возвращает сессию пары чат/пользователь, создаёт новую если не найдена или устарела
	Get(ctx context.Context, chatID, userID int64) (*entity.Session, error)

	// Save сохраняет сессию
	Save(ctx context.Context, session *entity.Session) error

	// Delete удаляет сессию
	Delete(ctx context.Context, chatID, userID int64) error

	// Close освобождает ресурсы хранилища
	Close() error
}
