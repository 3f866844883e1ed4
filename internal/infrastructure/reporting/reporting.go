package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"telegram-bot/internal/domain/port"
)

const flushTimeout = 2 * time.Second

// SentryReporter отправляет ошибки в Sentry через собственный hub
type SentryReporter struct {
	hub *sentry.Hub
}

// SentryOptions базовые настройки клиента Sentry
func SentryOptions(dsn, environment, release string) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	}
}

// NewSentryReporter создаёт клиента Sentry. Данные пользователя из событий удаляются.
func NewSentryReporter(opts sentry.ClientOptions) (*SentryReporter, error) {
	next := opts.BeforeSend
	opts.BeforeSend = func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
		event.User = sentry.User{}
		if next != nil {
			return next(event, hint)
		}
		return event
	}

	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (r *SentryReporter) Report(_ context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		r.hub.CaptureException(err)
	})
}

func (r *SentryReporter) Flush() {
	r.hub.Flush(flushTimeout)
}

// LogReporter пишет ошибки только в лог
type LogReporter struct{}

func (LogReporter) Report(_ context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	fields := make(log.Fields, len(tags))
	for k, v := range tags {
		fields[k] = v
	}
	log.WithError(err).WithFields(fields).Error("Unhandled error")
}

func (LogReporter) Flush() {}

// New возвращает Sentry-репортер, если задан DSN, иначе LogReporter
func New(dsn, environment, release string) port.ErrorReporter {
	if dsn == "" {
		log.Info("SENTRY_DSN is empty, error tracking disabled")
		return LogReporter{}
	}
	r, err := NewSentryReporter(SentryOptions(dsn, environment, release))
	if err != nil {
		log.WithError(err).Warn("Sentry init failed, errors will only be logged")
		return LogReporter{}
	}
	log.WithField("environment", environment).Info("Sentry initialized")
	return r
}

var (
	_ port.ErrorReporter = (*SentryReporter)(nil)
	_ port.ErrorReporter = LogReporter{}
)
