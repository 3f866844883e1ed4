package telegram

import (
	"context"
	"errors"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	app "telegram-bot/internal/application"
	"telegram-bot/internal/container"
	"telegram-bot/internal/conversation"
	"telegram-bot/internal/dispatcher"
	"telegram-bot/internal/domain/entity"
	"telegram-bot/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я бот обратной связи.

Расскажите, что сломалось или чего не хватает, и я передам это команде.

📋 Команды:
/feedback — оставить отзыв
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте /feedback
2️⃣ Выберите тему кнопкой
3️⃣ Опишите проблему или идею одним сообщением
4️⃣ Подтвердите отправку

📋 Команды:
/feedback — оставить отзыв
/id — показать ID чата и пользователя
/cancel — отменить операцию`

	msgChooseTopic      = "🗂 Выберите тему отзыва:"
	msgEnterText        = "✍️ Тема: %s\nОпишите всё одним сообщением."
	msgConfirm          = "📝 Проверьте отзыв:\n\nТема: %s\n\n%s\n\nОтправить?"
	msgPressButton      = "👆 Пожалуйста, воспользуйтесь кнопками или отправьте /cancel."
	msgEmptyText        = "⚠️ Нужен текст. Опишите проблему одним текстовым сообщением."
	msgTextTooLong      = "⚠️ Слишком длинный текст, максимум %d символов."
	msgFeedbackSent     = "✅ Спасибо! Отзыв #%s отправлен."
	msgFeedbackDropped  = "🗑 Отзыв удалён. Отправьте /feedback, чтобы начать заново."
	msgCancelled        = "❌ Операция отменена. Отправьте /feedback для нового отзыва."
	msgNothingToCancel  = "Нечего отменять."
	msgUnknownCommand   = "❓ Неизвестная команда. Используйте /help для справки."
	msgSendText         = "💬 Не понимаю. Используйте /help для справки."
	msgStaleButton      = "Кнопка устарела"
	msgAccessDenied     = "⛔ Доступ запрещён."
	msgInternalError    = "⚠️ Что-то пошло не так. Попробуйте ещё раз позже."
	msgIDs              = "🆔 Чат: %d\n👤 Пользователь: %d"
	callbackTopicPrefix = "topic:"
	callbackConfirm     = "confirm:"
	callbackConfirmYes  = "confirm:yes"
	callbackConfirmNo   = "confirm:no"
)

// AllowedUpdates типы обновлений, которые обрабатывает бот
var AllowedUpdates = []string{"message", "callback_query"}

var commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Начать"},
	{Command: "feedback", Description: "Оставить отзыв"},
	{Command: "help", Description: "Справка"},
	{Command: "id", Description: "Показать ID чата"},
	{Command: "cancel", Description: "Отменить операцию"},
}

// Options настройки бота
type Options struct {
	// Workers количество чатов, обрабатываемых одновременно
	Workers int
	// IsAllowed проверяет доступ пользователя, nil пропускает всех
	IsAllowed func(userID int64) bool
}

// Bot представляет Telegram-бота
type Bot struct {
	sender     port.Sender
	sessions   *app.SessionService
	feedback   *app.FeedbackService
	reporter   port.ErrorReporter
	dispatcher *dispatcher.Dispatcher
	isAllowed  func(userID int64) bool
}

// NewBot создаёт нового бота и регистрирует маршруты
func NewBot(sender port.Sender, c *container.Container, opts Options) *Bot {
	b := &Bot{
		sender:     sender,
		sessions:   c.SessionService,
		feedback:   c.FeedbackService,
		reporter:   c.Reporter,
		dispatcher: dispatcher.New(opts.Workers),
		isAllowed:  opts.IsAllowed,
	}
	b.registerRoutes(c.Sessions)
	return b
}

// PublishCommands публикует меню команд бота
func (b *Bot) PublishCommands(ctx context.Context) error {
	return b.sender.Request(ctx, tgbotapi.NewSetMyCommands(commands...))
}

// Run запускает основной цикл обработки обновлений
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	log.Println("Bot is running...")
	return b.dispatcher.Run(ctx, updates)
}

// Dispatch синхронно обрабатывает одно обновление
func (b *Bot) Dispatch(ctx context.Context, upd tgbotapi.Update) error {
	return b.dispatcher.Dispatch(ctx, upd)
}

// accessMiddleware отсекает пользователей не из списка разрешённых.
// Отказ доходит до handleError как entity.ErrAccessDenied.
func (b *Bot) accessMiddleware(next dispatcher.Handler) dispatcher.Handler {
	return dispatcher.HandlerFunc(func(ctx context.Context, upd tgbotapi.Update) error {
		if b.isAllowed == nil {
			return next.Handle(ctx, upd)
		}
		user := dispatcher.EffectiveUser(upd)
		if user != nil && b.isAllowed(user.ID) {
			return next.Handle(ctx, upd)
		}
		return entity.ErrAccessDenied
	})
}

// handleError логирует ошибку, отправляет её в трекер и извиняется перед пользователем
func (b *Bot) handleError(ctx context.Context, upd tgbotapi.Update, err error) {
	if errors.Is(err, entity.ErrAccessDenied) {
		b.denyAccess(ctx, upd)
		return
	}

	fields := log.Fields{"update_id": upd.UpdateID}
	tags := map[string]string{"update_id": strconv.Itoa(upd.UpdateID)}

	chat := dispatcher.EffectiveChat(upd)
	if chat != nil {
		fields["chat_id"] = chat.ID
		tags["chat_id"] = strconv.FormatInt(chat.ID, 10)
	}

	var panicErr *dispatcher.PanicError
	if errors.As(err, &panicErr) {
		fields["stack"] = string(panicErr.Stack)
	}

	log.WithError(err).WithFields(fields).Error("Error handling update")
	b.reporter.Report(ctx, err, tags)

	if upd.CallbackQuery != nil {
		b.answerCallback(ctx, upd.CallbackQuery, "")
	}
	if chat != nil {
		b.sendMessage(ctx, chat.ID, msgInternalError)
	}
}

// denyAccess сообщает пользователю об отказе. В трекер отказы не попадают.
func (b *Bot) denyAccess(ctx context.Context, upd tgbotapi.Update) {
	fields := log.Fields{"update_id": upd.UpdateID}
	if user := dispatcher.EffectiveUser(upd); user != nil {
		fields["user_id"] = user.ID
	}
	log.WithFields(fields).Warn("Access denied")

	if upd.CallbackQuery != nil {
		b.answerCallback(ctx, upd.CallbackQuery, msgAccessDenied)
	} else if chat := dispatcher.EffectiveChat(upd); chat != nil && upd.Message != nil {
		b.sendMessage(ctx, chat.ID, msgAccessDenied)
	}
}

// sessionFrom достаёт сессию, загруженную middleware
func sessionFrom(ctx context.Context) (*entity.Session, error) {
	s, ok := conversation.FromContext(ctx)
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return s, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(ctx, msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Error sending message")
	}
}

// sendWithKeyboard отправляет сообщение с inline-клавиатурой
func (b *Bot) sendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.sender.Send(ctx, msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Error sending message")
	}
}

// answerCallback убирает индикатор загрузки с нажатой кнопки
func (b *Bot) answerCallback(ctx context.Context, q *tgbotapi.CallbackQuery, text string) {
	if err := b.sender.Request(ctx, tgbotapi.NewCallback(q.ID, text)); err != nil {
		log.WithError(err).Warn("Error answering callback query")
	}
}

func topicKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(entity.Topics))
	for _, t := range entity.Topics {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(t.Title(), callbackTopicPrefix+string(t)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Отправить", callbackConfirmYes),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", callbackConfirmNo),
		),
	)
}
