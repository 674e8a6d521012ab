// Package queue — очередь событий бота.
// queue.go реализует двойной FIFO: основная очередь плюс отложенная
// «ninja-edit» очередь, которая гарантирует повторный взгляд на каждый
// комментарий/правку через фиксированную задержку после первой обработки.
// Так ловятся правки, не отражённые флагом isEdited исходного события
// («ninja edits»).
package queue

import (
	"encoding/json"
	"sync"
	"time"

	"deltabot/internal/reddit"
)

// MessageKind — вид сообщения очереди.
type MessageKind string

const (
	MsgComment MessageKind = "comment"
	MsgEdit    MessageKind = "edit"
	MsgMessage MessageKind = "message"
)

// Message — элемент очереди. После Push не меняется.
type Message struct {
	Kind      MessageKind
	Payload   []byte // сериализованная reddit.Thing
	CreatedAt time.Time
	// Redelivery выставляется при выдаче из ninja-очереди: полезная
	// нагрузка требует перечитывания с платформы.
	Redelivery bool
}

// NewThingMessage сериализует событие в сообщение очереди.
func NewThingMessage(kind MessageKind, t *reddit.Thing, now time.Time) (Message, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: kind, Payload: payload, CreatedAt: now}, nil
}

// Thing десериализует полезную нагрузку сообщения.
// У повторной доставки на событии выставлен NeedsRefresh.
func (m Message) Thing() (*reddit.Thing, error) {
	var t reddit.Thing
	if err := json.Unmarshal(m.Payload, &t); err != nil {
		return nil, err
	}
	if m.Redelivery {
		t.NeedsRefresh = true
	}
	return &t, nil
}

// Queue — потокобезопасная очередь: много продьюсеров, один консьюмер.
type Queue struct {
	mu      sync.Mutex
	primary []Message
	ninja   []Message
	delay   time.Duration

	now func() time.Time // подменяется в тестах
}

// New создаёт очередь с заданной задержкой ninja-повтора.
func New(delay time.Duration) *Queue {
	return &Queue{
		delay: delay,
		now:   time.Now,
	}
}

// Push кладёт сообщение в основную очередь.
// Вызывается конкурентно из всех продьюсеров.
func (q *Queue) Push(m Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.primary = append(q.primary, m)
}

// Pop выдаёт следующее сообщение.
//
// Приоритет у основной очереди; комментарий/правка при выдаче дублируется
// в ninja-очередь с ИСХОДНЫМ временем создания. Если основная пуста,
// а голова ninja-очереди старше задержки — выдаётся она с пометкой
// Redelivery. Обе очереди FIFO, поэтому возраста головы достаточно,
// чтобы решить готовность.
//
// Каждый комментарий/правка попадает в ninja-очередь ровно один раз:
// повторная доставка обратно не дублируется.
func (q *Queue) Pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.primary) > 0 {
		m := q.primary[0]
		q.primary = q.primary[1:]
		if m.Kind == MsgComment || m.Kind == MsgEdit {
			dup := m
			dup.Redelivery = false
			q.ninja = append(q.ninja, dup)
		}
		return m, true
	}

	if len(q.ninja) > 0 && q.now().Sub(q.ninja[0].CreatedAt) >= q.delay {
		m := q.ninja[0]
		q.ninja = q.ninja[1:]
		m.Redelivery = true
		return m, true
	}

	return Message{}, false
}

// Len возвращает размеры обеих очередей (для логов).
func (q *Queue) Len() (primary, ninja int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.primary), len(q.ninja)
}
