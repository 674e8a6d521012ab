package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltabot/internal/common"
	"deltabot/internal/reddit"
)

type recordingProcessor struct {
	mu   sync.Mutex
	ids  []string
	fail error
	boom bool
}

func (p *recordingProcessor) Process(_ context.Context, t *reddit.Thing) error {
	p.mu.Lock()
	p.ids = append(p.ids, t.ID)
	p.mu.Unlock()
	if p.boom {
		common.Invariant(false, "boom %s", t.ID)
	}
	return p.fail
}

func (p *recordingProcessor) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

type noopCounter struct{}

func (noopCounter) Inc() {}
func (noopCounter) Dec() {}

func runBriefly(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcherRouting(t *testing.T) {
	q := New(time.Hour)
	comments := &recordingProcessor{}
	messages := &recordingProcessor{}
	d := NewDispatcher(q, comments, messages, noopCounter{}, time.Millisecond)

	now := time.Now()
	q.Push(mustMsg(t, MsgComment, "c1", now))
	q.Push(mustMsg(t, MsgEdit, "e1", now))
	q.Push(mustMsg(t, MsgMessage, "m1", now))

	runBriefly(t, d)

	assert.Equal(t, []string{"c1", "e1"}, comments.seen())
	assert.Equal(t, []string{"m1"}, messages.seen())
}

func TestDispatcherSurvivesProcessorError(t *testing.T) {
	q := New(time.Hour)
	comments := &recordingProcessor{fail: errors.New("transient")}
	d := NewDispatcher(q, comments, &recordingProcessor{}, noopCounter{}, time.Millisecond)

	now := time.Now()
	q.Push(mustMsg(t, MsgComment, "c1", now))
	q.Push(mustMsg(t, MsgComment, "c2", now))

	runBriefly(t, d)

	// ошибка первого сообщения не останавливает цикл
	assert.Equal(t, []string{"c1", "c2"}, comments.seen())
}

func TestDispatcherRecoversInvariantPanic(t *testing.T) {
	q := New(time.Hour)
	comments := &recordingProcessor{boom: true}
	d := NewDispatcher(q, comments, &recordingProcessor{}, noopCounter{}, time.Millisecond)

	now := time.Now()
	q.Push(mustMsg(t, MsgComment, "c1", now))
	q.Push(mustMsg(t, MsgComment, "c2", now))

	runBriefly(t, d)

	// паника фатальна для сообщения, не для диспетчера
	require.Equal(t, []string{"c1", "c2"}, comments.seen())
}
