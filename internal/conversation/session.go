package conversation

import (
	"context"
	"errors"
	"fmt"
	"maps"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"telegram-bot/internal/dispatcher"
	"telegram-bot/internal/domain/entity"
	"telegram-bot/internal/domain/port"
)

type sessionKey struct{}

// WithSession кладёт сессию в контекст
func WithSession(ctx context.Context, s *entity.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext достаёт сессию из контекста
func FromContext(ctx context.Context) (*entity.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*entity.Session)
	return s, ok && s != nil
}

// Middleware загружает сессию чата и пользователя до маршрутизации и сохраняет её после,
// если обработчики её изменили. Обновления без чата или автора проходят без сессии.
func Middleware(repo port.SessionRepository) dispatcher.Middleware {
	return func(next dispatcher.Handler) dispatcher.Handler {
		return dispatcher.HandlerFunc(func(ctx context.Context, upd tgbotapi.Update) error {
			chat := dispatcher.EffectiveChat(upd)
			user := dispatcher.EffectiveUser(upd)
			if chat == nil || user == nil {
				return next.Handle(ctx, upd)
			}

			session, err := repo.Get(ctx, chat.ID, user.ID)
			if err != nil {
				return fmt.Errorf("loading session: %w", err)
			}
			before := session.Clone()

			handleErr := next.Handle(WithSession(ctx, session), upd)

			if !changed(before, session) {
				return handleErr
			}
			if err := repo.Save(ctx, session); err != nil {
				return errors.Join(handleErr, fmt.Errorf("saving session: %w", err))
			}
			log.WithFields(log.Fields{
				"chat_id": session.ChatID,
				"user_id": session.UserID,
				"state":   session.State,
			}).Debug("Session saved")
			return handleErr
		})
	}
}

func changed(before, after *entity.Session) bool {
	return !before.UpdatedAt.Equal(after.UpdatedAt) ||
		before.State != after.State ||
		!maps.Equal(before.Data, after.Data)
}

// InState подходит обновлениям, сессия которых находится в одном из состояний
func InState(states ...entity.State) dispatcher.Filter {
	return func(ctx context.Context, _ tgbotapi.Update) bool {
		s, ok := FromContext(ctx)
		if !ok {
			return false
		}
		for _, state := range states {
			if s.State == state {
				return true
			}
		}
		return false
	}
}
