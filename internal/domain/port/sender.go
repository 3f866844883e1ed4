package port

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender отправляет запросы в Telegram Bot API
type Sender interface {
	// Send отправляет сообщение и возвращает отправленное сообщение
	Send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error)

	// Request выполняет запрос, результат которого не является сообщением
	Request(ctx context.Context, c tgbotapi.Chattable) error
}
