package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"telegram-bot/internal/conversation"
	"telegram-bot/internal/dispatcher"
	"telegram-bot/internal/domain/entity"
	"telegram-bot/internal/domain/port"
	"telegram-bot/internal/infrastructure/messenger"
)

// Группы маршрутов, обходятся по возрастанию
const (
	groupCancel       = 0
	groupCommands     = 1
	groupConversation = 2
)

func (b *Bot) registerRoutes(sessions port.SessionRepository) {
	d := b.dispatcher
	d.Use(b.accessMiddleware, conversation.Middleware(sessions))
	d.OnError(b.handleError)

	// /cancel работает в любом состоянии и ничего дальше не запускает
	d.Handle(groupCancel, "cancel", dispatcher.Command("cancel"), b.handleCancel)

	d.Handle(groupCommands, "start", dispatcher.Command("start"), b.handleStart)
	d.Handle(groupCommands, "help", dispatcher.Command("help"), b.handleHelp)
	d.Handle(groupCommands, "id", dispatcher.Command("id"), b.handleID)
	d.Handle(groupCommands, "feedback", dispatcher.Command("feedback"), b.handleFeedback)
	d.Handle(groupCommands, "unknown_command", dispatcher.AnyCommand, b.handleUnknownCommand)

	inTopic := conversation.InState(entity.StateFeedbackTopic)
	inText := conversation.InState(entity.StateFeedbackText)
	inConfirm := conversation.InState(entity.StateFeedbackConfirm)

	d.Handle(groupConversation, "feedback_topic", dispatcher.And(inTopic, dispatcher.Callback(callbackTopicPrefix)), b.handleTopic)
	d.Handle(groupConversation, "feedback_topic_text", dispatcher.And(inTopic, dispatcher.Text), b.handleRepeatTopic)
	d.Handle(groupConversation, "feedback_text", dispatcher.And(inText, dispatcher.Text), b.handleFeedbackText)
	d.Handle(groupConversation, "feedback_not_text", dispatcher.And(inText, dispatcher.Message, dispatcher.Not(dispatcher.AnyCommand)), b.handleNeedText)
	d.Handle(groupConversation, "feedback_confirm", dispatcher.And(inConfirm, dispatcher.Callback(callbackConfirm)), b.handleConfirm)
	d.Handle(groupConversation, "feedback_confirm_text", dispatcher.And(inConfirm, dispatcher.Text), b.handleRepeatConfirm)
	d.Handle(groupConversation, "stale_callback", dispatcher.Callback(""), b.handleStaleCallback)

	d.Fallback(b.handleOther)
}

func (b *Bot) handleCancel(ctx context.Context, upd tgbotapi.Update) error {
	session, err := sessionFrom(ctx)
	if err != nil {
		return err
	}

	if b.sessions.Cancel(session) {
		b.sendMessage(ctx, upd.Message.Chat.ID, msgCancelled)
	} else {
		b.sendMessage(ctx, upd.Message.Chat.ID, msgNothingToCancel)
	}
	return dispatcher.ErrStop
}

func (b *Bot) handleStart(ctx context.Context, upd tgbotapi.Update) error {
	if session, ok := conversation.FromContext(ctx); ok {
		b.sessions.Cancel(session)
	}
	b.sendMessage(ctx, upd.Message.Chat.ID, msgStart)
	return nil
}

func (b *Bot) handleHelp(ctx context.Context, upd tgbotapi.Update) error {
	b.sendMessage(ctx, upd.Message.Chat.ID, msgHelp)
	return nil
}

func (b *Bot) handleID(ctx context.Context, upd tgbotapi.Update) error {
	var userID int64
	if upd.Message.From != nil {
		userID = upd.Message.From.ID
	}
	b.sendMessage(ctx, upd.Message.Chat.ID, fmt.Sprintf(msgIDs, upd.Message.Chat.ID, userID))
	return nil
}

func (b *Bot) handleUnknownCommand(ctx context.Context, upd tgbotapi.Update) error {
	b.sendMessage(ctx, upd.Message.Chat.ID, msgUnknownCommand)
	return nil
}

// handleFeedback начинает сценарий отзыва
func (b *Bot) handleFeedback(ctx context.Context, upd tgbotapi.Update) error {
	session, err := sessionFrom(ctx)
	if err != nil {
		return err
	}
	if err := b.feedback.Begin(session); err != nil {
		return err
	}
	b.sendWithKeyboard(ctx, upd.Message.Chat.ID, msgChooseTopic, topicKeyboard())
	return nil
}

// handleTopic обрабатывает выбор темы кнопкой
func (b *Bot) handleTopic(ctx context.Context, upd tgbotapi.Update) error {
	q := upd.CallbackQuery
	session, err := sessionFrom(ctx)
	if err != nil {
		return err
	}

	topic, err := b.feedback.ChooseTopic(session, strings.TrimPrefix(q.Data, callbackTopicPrefix))
	if errors.Is(err, entity.ErrUnknownTopic) {
		b.answerCallback(ctx, q, msgStaleButton)
		return nil
	}
	if err != nil {
		return err
	}

	b.answerCallback(ctx, q, "")
	b.sendMessage(ctx, q.Message.Chat.ID, fmt.Sprintf(msgEnterText, topic.Title()))
	return nil
}

// handleFeedbackText принимает текст отзыва
func (b *Bot) handleFeedbackText(ctx context.Context, upd tgbotapi.Update) error {
	msg := upd.Message
	session, err := sessionFrom(ctx)
	if err != nil {
		return err
	}

	err = b.feedback.SetText(session, msg.Text)
	switch {
	case errors.Is(err, entity.ErrEmptyFeedback):
		b.sendMessage(ctx, msg.Chat.ID, msgEmptyText)
		return nil
	case errors.Is(err, entity.ErrFeedbackTooLong):
		b.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf(msgTextTooLong, entity.MaxFeedbackLength))
		return nil
	case err != nil:
		return err
	}

	draft := b.feedback.Draft(session)
	b.sendWithKeyboard(ctx, msg.Chat.ID, fmt.Sprintf(msgConfirm, draft.Topic.Title(), draft.Text), confirmKeyboard())
	return nil
}

// handleNeedText отвечает на фото, стикеры и прочие сообщения без текста
func (b *Bot) handleNeedText(ctx context.Context, upd tgbotapi.Update) error {
	b.sendMessage(ctx, upd.Message.Chat.ID, msgEmptyText)
	return nil
}

// handleConfirm отправляет или удаляет отзыв
func (b *Bot) handleConfirm(ctx context.Context, upd tgbotapi.Update) error {
	q := upd.CallbackQuery
	session, err := sessionFrom(ctx)
	if err != nil {
		return err
	}

	switch q.Data {
	case callbackConfirmYes:
		var username string
		if q.From != nil {
			username = q.From.UserName
		}
		feedback, err := b.feedback.Submit(ctx, session, username)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"feedback_id": feedback.ID,
			"chat_id":     feedback.ChatID,
		}).Info("Feedback submitted")
		b.answerCallback(ctx, q, "")
		b.sendMessage(ctx, q.Message.Chat.ID, fmt.Sprintf(msgFeedbackSent, messenger.ShortID(feedback.ID)))

	case callbackConfirmNo:
		b.feedback.Discard(session)
		b.answerCallback(ctx, q, "")
		b.sendMessage(ctx, q.Message.Chat.ID, msgFeedbackDropped)

	default:
		b.answerCallback(ctx, q, msgStaleButton)
	}
	return nil
}

// handleRepeatTopic повторяет выбор темы, если вместо кнопки пришёл текст
func (b *Bot) handleRepeatTopic(ctx context.Context, upd tgbotapi.Update) error {
	b.sendWithKeyboard(ctx, upd.Message.Chat.ID, msgPressButton+"\n\n"+msgChooseTopic, topicKeyboard())
	return nil
}

// handleRepeatConfirm повторяет черновик с кнопками подтверждения
func (b *Bot) handleRepeatConfirm(ctx context.Context, upd tgbotapi.Update) error {
	session, err := sessionFrom(ctx)
	if err != nil {
		return err
	}
	draft := b.feedback.Draft(session)
	text := msgPressButton + "\n\n" + fmt.Sprintf(msgConfirm, draft.Topic.Title(), draft.Text)
	b.sendWithKeyboard(ctx, upd.Message.Chat.ID, text, confirmKeyboard())
	return nil
}

// handleStaleCallback отвечает на кнопки из старых сообщений
func (b *Bot) handleStaleCallback(ctx context.Context, upd tgbotapi.Update) error {
	b.answerCallback(ctx, upd.CallbackQuery, msgStaleButton)
	return nil
}

// handleOther отвечает на всё, что не подошло ни одному маршруту.
// В группах бот молчит.
func (b *Bot) handleOther(ctx context.Context, upd tgbotapi.Update) error {
	if upd.Message == nil || upd.Message.Chat == nil || !upd.Message.Chat.IsPrivate() {
		return nil
	}
	b.sendMessage(ctx, upd.Message.Chat.ID, msgSendText)
	return nil
}
