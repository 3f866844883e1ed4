package port

import (
	"context"

	"telegram-bot/internal/domain/entity"
)

// FeedbackSink доставляет отзывы получателю
type FeedbackSink interface {
	Deliver(ctx context.Context, feedback *entity.Feedback) error
}
