package app

import (
	"telegram-bot/internal/conversation"
	"telegram-bot/internal/domain/entity"
)

// SessionService меняет состояние сессии. Загрузкой и сохранением занимается middleware.
type SessionService struct {
	machine *conversation.Machine
}

func NewSessionService(machine *conversation.Machine) *SessionService {
	return &SessionService{machine: machine}
}

// SetState переводит сессию в новое состояние по правилам автомата
func (s *SessionService) SetState(session *entity.Session, state entity.State) error {
	return s.machine.Transition(session, state)
}

// Cancel возвращает сессию в начальное состояние.
// Возвращает false, если отменять было нечего.
func (s *SessionService) Cancel(session *entity.Session) bool {
	if session.State == entity.StateIdle {
		return false
	}
	session.Reset()
	return true
}
