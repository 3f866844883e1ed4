package messenger

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"telegram-bot/internal/domain/entity"
	"telegram-bot/internal/domain/port"
)

// AdminSink пересылает отзывы в чат администратора
type AdminSink struct {
	sender      port.Sender
	adminChatID int64
}

// NewAdminSink создаёт получателя отзывов. При adminChatID == 0 отзывы только пишутся в лог.
func NewAdminSink(sender port.Sender, adminChatID int64) *AdminSink {
	return &AdminSink{sender: sender, adminChatID: adminChatID}
}

func (s *AdminSink) Deliver(ctx context.Context, feedback *entity.Feedback) error {
	entry := log.WithFields(log.Fields{
		"feedback_id": feedback.ID,
		"chat_id":     feedback.ChatID,
		"user_id":     feedback.UserID,
		"topic":       feedback.Topic,
	})

	if s.adminChatID == 0 {
		entry.WithField("text", feedback.Text).Info("Feedback received")
		return nil
	}

	msg := tgbotapi.NewMessage(s.adminChatID, FormatFeedback(feedback))
	msg.DisableWebPagePreview = true
	if _, err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send to admin chat: %w", err)
	}
	entry.Info("Feedback forwarded to admin chat")
	return nil
}

// FormatFeedback формирует текст отзыва для администратора
func FormatFeedback(f *entity.Feedback) string {
	author := fmt.Sprintf("id %d", f.UserID)
	if f.Username != "" {
		author = fmt.Sprintf("@%s (id %d)", f.Username, f.UserID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📨 Новый отзыв #%s\n", ShortID(f.ID))
	fmt.Fprintf(&b, "Тема: %s\n", f.Topic.Title())
	fmt.Fprintf(&b, "От: %s\n", author)
	fmt.Fprintf(&b, "Чат: %d\n", f.ChatID)
	if !f.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Время: %s\n", f.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	b.WriteString("\n")
	b.WriteString(f.Text)
	return b.String()
}

// ShortID возвращает первые 8 символов идентификатора
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ port.FeedbackSink = (*AdminSink)(nil)
