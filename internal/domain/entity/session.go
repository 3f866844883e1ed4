package entity

import (
	"strconv"
	"time"
)

// State состояние диалога пользователя в чате
type State string

const (
	StateIdle            State = "idle"             // Вне диалога
	StateFeedbackTopic   State = "feedback_topic"   // Выбор темы отзыва
	StateFeedbackText    State = "feedback_text"    // Ожидание текста отзыва
	StateFeedbackConfirm State = "feedback_confirm" // Подтверждение отправки
)

// Session хранит состояние диалога одного пользователя в одном чате
type Session struct {
	ChatID    int64             `json:"chat_id"`    // Telegram Chat ID
	UserID    int64             `json:"user_id"`    // Telegram User ID
	State     State             `json:"state"`      // Текущее состояние
	Data      map[string]string `json:"data"`       // Данные, собранные по ходу диалога
	UpdatedAt time.Time         `json:"updated_at"` // Время последнего изменения
}

// NewSession создаёт сессию в начальном состоянии
func NewSession(chatID, userID int64) *Session {
	return &Session{
		ChatID:    chatID,
		UserID:    userID,
		State:     StateIdle,
		Data:      make(map[string]string),
		UpdatedAt: time.Now(),
	}
}

// SessionKey возвращает ключ сессии для хранилищ
func SessionKey(chatID, userID int64) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// Key возвращает ключ сессии
func (s *Session) Key() string {
	return SessionKey(s.ChatID, s.UserID)
}

// SetState обновляет состояние сессии
func (s *Session) SetState(state State) {
	s.State = state
	s.UpdatedAt = time.Now()
}

// Set сохраняет значение в данных сессии
func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
	s.UpdatedAt = time.Now()
}

// Get возвращает значение из данных сессии
func (s *Session) Get(key string) string {
	return s.Data[key]
}

// Reset возвращает сессию в начальное состояние и очищает данные
func (s *Session) Reset() {
	s.State = StateIdle
	s.Data = make(map[string]string)
	s.UpdatedAt = time.Now()
}

// Expired сообщает, что сессия не обновлялась дольше ttl.
// Нулевой ttl означает бессрочные сессии.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}

// Clone возвращает независимую копию сессии
func (s *Session) Clone() *Session {
	c := *s
	c.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		c.Data[k] = v
	}
	return &c
}
