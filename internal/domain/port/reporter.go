package port

import "context"

// ErrorReporter отправляет ошибки во внешнюю систему учёта
type ErrorReporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
	Flush()
}
