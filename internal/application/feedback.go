package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"telegram-bot/internal/conversation"
	"telegram-bot/internal/domain/entity"
	"telegram-bot/internal/domain/port"
)

const (
	keyTopic = "topic"
	keyText  = "text"
)

// NewFeedbackMachine описывает сценарий отзыва: тема, текст, подтверждение
func NewFeedbackMachine() *conversation.Machine {
	return conversation.NewMachine().
		Allow(entity.StateIdle, entity.StateFeedbackTopic).
		Allow(entity.StateFeedbackTopic, entity.StateFeedbackText).
		Allow(entity.StateFeedbackText, entity.StateFeedbackConfirm).
		Allow(entity.StateFeedbackConfirm, entity.StateFeedbackText).
		// Повторный /feedback начинает сценарий заново с любого шага
		Allow(entity.StateFeedbackText, entity.StateFeedbackTopic).
		Allow(entity.StateFeedbackConfirm, entity.StateFeedbackTopic)
}

type FeedbackService struct {
	sessions *SessionService
	sink     port.FeedbackSink
	now      func() time.Time
}

// NewFeedbackService создаёт сервис, который ведёт пользователя по сценарию отзыва.
func NewFeedbackService(sessions *SessionService, sink port.FeedbackSink) *FeedbackService {
	return &FeedbackService{
		sessions: sessions,
		sink:     sink,
		now:      time.Now,
	}
}

// Begin начинает сценарий с выбора темы
func (s *FeedbackService) Begin(session *entity.Session) error {
	if err := s.sessions.SetState(session, entity.StateFeedbackTopic); err != nil {
		return err
	}
	delete(session.Data, keyTopic)
	delete(session.Data, keyText)
	return nil
}

// ChooseTopic запоминает тему и переходит к вводу текста
func (s *FeedbackService) ChooseTopic(session *entity.Session, raw string) (entity.Topic, error) {
	topic, err := entity.ParseTopic(raw)
	if err != nil {
		return "", err
	}
	if err := s.sessions.SetState(session, entity.StateFeedbackText); err != nil {
		return "", err
	}
	session.Set(keyTopic, string(topic))
	return topic, nil
}

// SetText проверяет текст и переходит к подтверждению
func (s *FeedbackService) SetText(session *entity.Session, text string) error {
	text = strings.TrimSpace(text)
	if err := entity.ValidateFeedbackText(text); err != nil {
		return err
	}
	if err := s.sessions.SetState(session, entity.StateFeedbackConfirm); err != nil {
		return err
	}
	session.Set(keyText, text)
	return nil
}

// Draft возвращает отзыв, собранный в сессии
func (s *FeedbackService) Draft(session *entity.Session) *entity.Feedback {
	return &entity.Feedback{
		ChatID: session.ChatID,
		UserID: session.UserID,
		Topic:  entity.Topic(session.Get(keyTopic)),
		Text:   session.Get(keyText),
	}
}

// Submit доставляет отзыв и завершает сценарий.
// При ошибке доставки сессия остаётся на шаге подтверждения.
func (s *FeedbackService) Submit(ctx context.Context, session *entity.Session, username string) (*entity.Feedback, error) {
	if session.State != entity.StateFeedbackConfirm {
		return nil, fmt.Errorf("%w: submit from %s", entity.ErrInvalidTransition, session.State)
	}

	feedback := s.Draft(session)
	feedback.ID = uuid.NewString()
	feedback.Username = username
	feedback.CreatedAt = s.now()

	if err := feedback.Validate(); err != nil {
		return nil, err
	}
	if err := s.sink.Deliver(ctx, feedback); err != nil {
		return nil, fmt.Errorf("deliver feedback: %w", err)
	}

	s.sessions.Cancel(session)
	return feedback, nil
}

// Discard отменяет сценарий без отправки
func (s *FeedbackService) Discard(session *entity.Session) {
	s.sessions.Cancel(session)
}
