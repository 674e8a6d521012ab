// Package queue — dispatcher.go содержит единственный консьюмер очереди.
// Один цикл обрабатывает все бизнес-эффекты последовательно: комментарии
// никогда не обрабатываются конкурентно друг с другом, что снимает
// большинство гонок в логике валидации и наград.
package queue

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"deltabot/internal/common"
	"deltabot/internal/reddit"
)

// Processor обрабатывает одно событие. Реализации: процессор комментариев
// и процессор личных сообщений.
type Processor interface {
	Process(ctx context.Context, t *reddit.Thing) error
}

// InflightCounter считает единицы работы в обработке.
// Реализуется менеджером перезапуска.
type InflightCounter interface {
	Inc()
	Dec()
}

// Dispatcher — цикл-консьюмер: снимает сообщения с очереди и маршрутизирует
// по виду. Сбой одного сообщения логируется и не убивает цикл.
type Dispatcher struct {
	q         *Queue
	comments  Processor
	messages  Processor
	inflight  InflightCounter
	idleSleep time.Duration
}

// NewDispatcher создаёт диспетчер.
func NewDispatcher(q *Queue, comments, messages Processor, inflight InflightCounter, idleSleep time.Duration) *Dispatcher {
	if idleSleep <= 0 {
		idleSleep = 100 * time.Millisecond
	}
	return &Dispatcher{
		q:         q,
		comments:  comments,
		messages:  messages,
		inflight:  inflight,
		idleSleep: idleSleep,
	}
}

// Run крутит цикл до отмены контекста. Остановка кооперативная:
// текущее сообщение дорабатывается, новые не берутся.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info("Диспетчер очереди запущен")
	for {
		select {
		case <-ctx.Done():
			log.Info("Диспетчер останавливается (ctx done)")
			return
		default:
		}

		msg, ok := d.q.Pop()
		if !ok {
			time.Sleep(d.idleSleep)
			continue
		}

		d.handle(ctx, msg)

		p, n := d.q.Len()
		log.WithFields(log.Fields{
			"kind":    msg.Kind,
			"primary": p,
			"ninja":   n,
		}).Debug("queue depth after message")
	}
}

// handle обрабатывает одно сообщение. Паника (в том числе нарушение
// инварианта) гасится здесь: фатальна для сообщения, не для цикла.
func (d *Dispatcher) handle(ctx context.Context, msg Message) {
	d.inflight.Inc()
	defer d.inflight.Dec()

	defer func() {
		if r := recover(); r != nil {
			var inv *common.InvariantError
			if err, isErr := r.(error); isErr && errors.As(err, &inv) {
				log.WithField("kind", msg.Kind).WithError(inv).
					Error("Нарушение инварианта — сообщение отброшено")
				return
			}
			log.WithFields(log.Fields{
				"kind":  msg.Kind,
				"panic": r,
			}).Error("ПАНИКА при обработке сообщения — восстановлено")
		}
	}()

	t, err := msg.Thing()
	if err != nil {
		log.WithError(err).Error("Повреждённая полезная нагрузка — сообщение отброшено")
		return
	}

	var proc Processor
	switch msg.Kind {
	case MsgComment, MsgEdit:
		proc = d.comments
	case MsgMessage:
		proc = d.messages
	default:
		log.WithField("kind", msg.Kind).Warn("Неизвестный вид сообщения")
		return
	}

	if err := proc.Process(ctx, t); err != nil {
		// Временный сбой внешнего сервиса: сообщение цикла теряется,
		// переполлинг и ninja-повтор восстановят картину.
		log.WithError(err).WithFields(log.Fields{
			"kind": msg.Kind,
			"id":   t.ID,
		}).Error("Ошибка обработки сообщения")
	}
}
