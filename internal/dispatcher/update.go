package dispatcher

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// EffectiveMessage возвращает сообщение обновления любого вида
func EffectiveMessage(upd tgbotapi.Update) *tgbotapi.Message {
	switch {
	case upd.Message != nil:
		return upd.Message
	case upd.EditedMessage != nil:
		return upd.EditedMessage
	case upd.ChannelPost != nil:
		return upd.ChannelPost
	case upd.EditedChannelPost != nil:
		return upd.EditedChannelPost
	case upd.CallbackQuery != nil:
		return upd.CallbackQuery.Message
	default:
		return nil
	}
}

// EffectiveChat возвращает чат, к которому относится обновление
func EffectiveChat(upd tgbotapi.Update) *tgbotapi.Chat {
	if msg := EffectiveMessage(upd); msg != nil && msg.Chat != nil {
		return msg.Chat
	}
	if upd.MyChatMember != nil {
		return &upd.MyChatMember.Chat
	}
	if upd.ChatMember != nil {
		return &upd.ChatMember.Chat
	}
	return nil
}

// EffectiveUser возвращает автора обновления
func EffectiveUser(upd tgbotapi.Update) *tgbotapi.User {
	switch {
	case upd.CallbackQuery != nil:
		return upd.CallbackQuery.From
	case upd.InlineQuery != nil:
		return upd.InlineQuery.From
	case upd.ChosenInlineResult != nil:
		return upd.ChosenInlineResult.From
	case upd.MyChatMember != nil:
		return &upd.MyChatMember.From
	case upd.ChatMember != nil:
		return &upd.ChatMember.From
	}
	if msg := EffectiveMessage(upd); msg != nil {
		return msg.From
	}
	return nil
}

// ChatKey возвращает ключ очереди: чат, иначе автор, иначе 0
func ChatKey(upd tgbotapi.Update) int64 {
	if chat := EffectiveChat(upd); chat != nil {
		return chat.ID
	}
	if user := EffectiveUser(upd); user != nil {
		return user.ID
	}
	return 0
}
