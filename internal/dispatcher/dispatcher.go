// Package dispatcher маршрутизирует входящие обновления Telegram по обработчикам.
//
// Маршруты объединены в группы. Группы обходятся по возрастанию номера,
// внутри группы срабатывает первый подходящий маршрут в порядке регистрации.
// Обработчик может остановить обход следующих групп, вернув ErrStop.
// Если ни один маршрут не подошёл, вызывается fallback.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// ErrStop останавливает обход следующих групп. Ошибкой обработки не считается.
var ErrStop = errors.New("stop propagation")

// Handler обрабатывает одно обновление
type Handler interface {
	Handle(ctx context.Context, upd tgbotapi.Update) error
}

// HandlerFunc адаптер функции к Handler
type HandlerFunc func(ctx context.Context, upd tgbotapi.Update) error

func (f HandlerFunc) Handle(ctx context.Context, upd tgbotapi.Update) error {
	return f(ctx, upd)
}

// Middleware оборачивает обработку обновления целиком
type Middleware func(next Handler) Handler

// ErrorHandler получает ошибки обработчиков и перехваченные паники
type ErrorHandler func(ctx context.Context, upd tgbotapi.Update, err error)

// PanicError паника обработчика, превращённая в ошибку
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

type route struct {
	name    string
	filter  Filter
	handler Handler
}

// Dispatcher хранит маршруты и выполняет обработку обновлений
type Dispatcher struct {
	mu         sync.RWMutex
	groups     map[int][]route
	order      []int
	middleware []Middleware
	fallback   Handler
	onError    ErrorHandler
	workers    int
}

// New создаёт диспетчер, обрабатывающий не более workers чатов одновременно
func New(workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		groups:  make(map[int][]route),
		workers: workers,
	}
}

// Handle регистрирует маршрут в группе
func (d *Dispatcher) Handle(group int, name string, filter Filter, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.groups[group]; !ok {
		d.order = append(d.order, group)
		sort.Ints(d.order)
	}
	d.groups[group] = append(d.groups[group], route{name: name, filter: filter, handler: h})
}

// Use добавляет middleware. Первый зарегистрированный выполняется первым.
func (d *Dispatcher) Use(mw ...Middleware) {
	d.mu.Lock()
	d.middleware = append(d.middleware, mw...)
	d.mu.Unlock()
}

// Fallback задаёт обработчик для обновлений без подходящего маршрута
func (d *Dispatcher) Fallback(h HandlerFunc) {
	d.mu.Lock()
	d.fallback = h
	d.mu.Unlock()
}

// OnError задаёт обработчик ошибок
func (d *Dispatcher) OnError(h ErrorHandler) {
	d.mu.Lock()
	d.onError = h
	d.mu.Unlock()
}

// Dispatch синхронно обрабатывает одно обновление.
// Ошибка передаётся в ErrorHandler и возвращается вызывающему.
func (d *Dispatcher) Dispatch(ctx context.Context, upd tgbotapi.Update) (err error) {
	d.mu.RLock()
	h := Handler(HandlerFunc(d.route))
	for i := len(d.middleware) - 1; i >= 0; i-- {
		h = d.middleware[i](h)
	}
	onError := d.onError
	d.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		if errors.Is(err, ErrStop) {
			err = nil
		}
		if err != nil && onError != nil {
			onError(ctx, upd, err)
		}
	}()

	return h.Handle(ctx, upd)
}

// route обходит группы и вызывает подходящие обработчики
func (d *Dispatcher) route(ctx context.Context, upd tgbotapi.Update) error {
	d.mu.RLock()
	groups := make([][]route, 0, len(d.order))
	for _, g := range d.order {
		groups = append(groups, d.groups[g])
	}
	fallback := d.fallback
	d.mu.RUnlock()

	matched := false
	for _, routes := range groups {
		for _, r := range routes {
			if r.filter != nil && !r.filter(ctx, upd) {
				continue
			}
			matched = true
			log.WithFields(log.Fields{
				"update_id": upd.UpdateID,
				"route":     r.name,
			}).Debug("Route matched")

			if err := r.handler.Handle(ctx, upd); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return fmt.Errorf("%s: %w", r.name, err)
			}
			break
		}
	}

	if !matched && fallback != nil {
		return fallback.Handle(ctx, upd)
	}
	return nil
}
