package container

import (
	app "telegram-bot/internal/application"
	"telegram-bot/internal/domain/port"
)

type Container struct {
	Sessions        port.SessionRepository
	SessionService  *app.SessionService
	FeedbackService *app.FeedbackService
	Reporter        port.ErrorReporter
}

func New(sessions port.SessionRepository, sink port.FeedbackSink, reporter port.ErrorReporter) *Container {
	sessionService := app.NewSessionService(app.NewFeedbackMachine())
	feedbackService := app.NewFeedbackService(sessionService, sink)

	return &Container{
		Sessions:        sessions,
		SessionService:  sessionService,
		FeedbackService: feedbackService,
		Reporter:        reporter,
	}
}
