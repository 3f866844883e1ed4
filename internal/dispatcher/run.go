package dispatcher

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// chatQueue очередь обновлений одного чата
type chatQueue struct {
	pending []tgbotapi.Update
}

// runner распределяет обновления по очередям чатов
type runner struct {
	d   *Dispatcher
	ctx context.Context
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.Mutex
	queues map[int64]*chatQueue
}

// Run читает обновления из канала до его закрытия или отмены ctx.
// Обновления одного чата обрабатываются строго по порядку поступления,
// разные чаты обрабатываются параллельно. Run возвращается после
// завершения уже начатых обработок.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	r := &runner{
		d:      d,
		ctx:    ctx,
		sem:    semaphore.NewWeighted(int64(d.workers)),
		queues: make(map[int64]*chatQueue),
	}
	defer r.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			r.enqueue(upd)
		}
	}
}

func (r *runner) enqueue(upd tgbotapi.Update) {
	key := ChatKey(upd)

	r.mu.Lock()
	q, running := r.queues[key]
	if !running {
		q = &chatQueue{}
		r.queues[key] = q
	}
	q.pending = append(q.pending, upd)
	r.mu.Unlock()

	if !running {
		r.wg.Add(1)
		go r.drain(key, q)
	}
}

// drain обрабатывает очередь чата, пока она не опустеет
func (r *runner) drain(key int64, q *chatQueue) {
	defer r.wg.Done()

	// Начатая обработка доводится до конца даже после отмены
	handleCtx := context.WithoutCancel(r.ctx)

	// lost обновления, снятые с очереди, но не дождавшиеся воркера
	lost := 0
	for {
		r.mu.Lock()
		if len(q.pending) == 0 || r.ctx.Err() != nil {
			dropped := len(q.pending) + lost
			delete(r.queues, key)
			r.mu.Unlock()
			if dropped > 0 {
				log.WithFields(log.Fields{"chat_id": key, "count": dropped}).Warn("Dropping queued updates on shutdown")
			}
			return
		}
		upd := q.pending[0]
		q.pending = q.pending[1:]
		r.mu.Unlock()

		if err := r.sem.Acquire(r.ctx, 1); err != nil {
			lost++
			continue
		}
		_ = r.d.Dispatch(handleCtx, upd)
		r.sem.Release(1)
	}
}
