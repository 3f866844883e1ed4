package entity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxFeedbackLength ограничивает длину текста отзыва в символах
const MaxFeedbackLength = 3000

// Topic тема отзыва
type Topic string

const (
	TopicBug   Topic = "bug"
	TopicIdea  Topic = "idea"
	TopicOther Topic = "other"
)

// Topics перечисляет темы в порядке показа на клавиатуре
var Topics = []Topic{TopicBug, TopicIdea, TopicOther}

// ParseTopic разбирает тему из строки
func ParseTopic(s string) (Topic, error) {
	switch t := Topic(strings.ToLower(strings.TrimSpace(s))); t {
	case TopicBug, TopicIdea, TopicOther:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, s)
	}
}

// Title возвращает название темы для пользователя
func (t Topic) Title() string {
	switch t {
	case TopicBug:
		return "🐞 Ошибка"
	case TopicIdea:
		return "💡 Идея"
	case TopicOther:
		return "💬 Другое"
	default:
		return string(t)
	}
}

// Feedback отзыв, отправленный пользователем
type Feedback struct {
	ID        string
	ChatID    int64
	UserID    int64
	Username  string
	Topic     Topic
	Text      string
	CreatedAt time.Time
}

// Validate проверяет отзыв перед отправкой
func (f *Feedback) Validate() error {
	if _, err := ParseTopic(string(f.Topic)); err != nil {
		return err
	}
	return ValidateFeedbackText(f.Text)
}

// ValidateFeedbackText проверяет текст отзыва
func ValidateFeedbackText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyFeedback
	}
	if utf8.RuneCountInString(text) > MaxFeedbackLength {
		return ErrFeedbackTooLong
	}
	return nil
}
