package dispatcher

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Filter решает, подходит ли обновление маршруту
type Filter func(ctx context.Context, upd tgbotapi.Update) bool

// All подходит любому обновлению
func All(context.Context, tgbotapi.Update) bool { return true }

// AnyCommand подходит любой команде
func AnyCommand(_ context.Context, upd tgbotapi.Update) bool {
	return upd.Message != nil && upd.Message.IsCommand()
}

// Command подходит командам с указанными именами
func Command(names ...string) Filter {
	return func(_ context.Context, upd tgbotapi.Update) bool {
		if upd.Message == nil || !upd.Message.IsCommand() {
			return false
		}
		cmd := strings.ToLower(upd.Message.Command())
		for _, name := range names {
			if cmd == name {
				return true
			}
		}
		return false
	}
}

// Message подходит любым новым сообщениям
func Message(_ context.Context, upd tgbotapi.Update) bool {
	return upd.Message != nil
}

// Text подходит текстовым сообщениям, которые не являются командами
func Text(_ context.Context, upd tgbotapi.Update) bool {
	return upd.Message != nil && !upd.Message.IsCommand() && strings.TrimSpace(upd.Message.Text) != ""
}

// Callback подходит нажатиям inline-кнопок с данными, начинающимися с prefix
func Callback(prefix string) Filter {
	return func(_ context.Context, upd tgbotapi.Update) bool {
		return upd.CallbackQuery != nil && strings.HasPrefix(upd.CallbackQuery.Data, prefix)
	}
}

// Private подходит обновлениям из личных чатов
func Private(_ context.Context, upd tgbotapi.Update) bool {
	chat := EffectiveChat(upd)
	return chat != nil && chat.IsPrivate()
}

// And подходит, если подходят все фильтры
func And(filters ...Filter) Filter {
	return func(ctx context.Context, upd tgbotapi.Update) bool {
		for _, f := range filters {
			if !f(ctx, upd) {
				return false
			}
		}
		return true
	}
}

// Or подходит, если подходит хотя бы один фильтр
func Or(filters ...Filter) Filter {
	return func(ctx context.Context, upd tgbotapi.Update) bool {
		for _, f := range filters {
			if f(ctx, upd) {
				return true
			}
		}
		return false
	}
}

// Not инвертирует фильтр
func Not(f Filter) Filter {
	return func(ctx context.Context, upd tgbotapi.Update) bool {
		return !f(ctx, upd)
	}
}
