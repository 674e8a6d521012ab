// Package bot содержит продьюсеров событий: опрос свежих комментариев,
// правок и входящих писем. Каждый продьюсер крутится в своей горутине
// и складывает канонические события в общую очередь; обрабатывает их
// единственный консьюмер-диспетчер.
package bot

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"deltabot/internal/common"
	"deltabot/internal/config"
	"deltabot/internal/queue"
	"deltabot/internal/reddit"
)

// Bot объединяет продьюсеров активности.
type Bot struct {
	client reddit.Client
	q      *queue.Queue
	cfg    *config.Config
	state  *StateRepository

	lastComment string          // fullname последнего увиденного комментария
	seenEdits   map[string]bool // правки, уже отправленные в очередь
}

// New создаёт продьюсеров.
func New(client reddit.Client, q *queue.Queue, cfg *config.Config, state *StateRepository) *Bot {
	return &Bot{
		client:    client,
		q:         q,
		cfg:       cfg,
		state:     state,
		seenEdits: make(map[string]bool),
	}
}

// Run запускает все потоки активности и блокируется до отмены контекста.
// Остановка кооперативная: циклы замечают отмену и выходят сами.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return b.loop(ctx, "comments", b.pollComments) })
	g.Go(func() error { return b.loop(ctx, "edits", b.pollEdits) })
	g.Go(func() error { return b.loop(ctx, "inbox", b.pollInbox) })

	log.WithField("interval", b.cfg.PollInterval).Info("Продьюсеры запущены")
	return g.Wait()
}

// loop — общий каркас продьюсера: тик, опрос, паника гасится на итерации.
func (b *Bot) loop(ctx context.Context, name string, poll func(ctx context.Context)) error {
	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.WithField("producer", name).Info("Продьюсер остановлен (ctx done)")
			return ctx.Err()
		case <-ticker.C:
			func() {
				defer common.RecoverFromPanic()
				poll(ctx)
			}()
		}
	}
}

// pollComments забирает свежие комментарии сабреддита.
func (b *Bot) pollComments(ctx context.Context) {
	things, err := b.client.NewComments(ctx, b.lastComment)
	if err != nil {
		log.WithError(err).Warn("poll comments failed")
		return
	}
	if len(things) == 0 {
		return
	}

	// Листинг идёт от новых к старым; в очередь кладём в порядке появления
	for i := len(things) - 1; i >= 0; i-- {
		b.push(queue.MsgComment, things[i])
	}
	b.lastComment = things[0].ID

	if err := b.state.SetLastActivity(ctx, time.Now()); err != nil {
		log.WithError(err).Warn("last activity save failed")
	}
}

// pollEdits забирает недавно отредактированные комментарии.
// Листинг отдаёт одно и то же, пока правка «свежая», поэтому уже
// отправленные в очередь отсеиваются.
func (b *Bot) pollEdits(ctx context.Context) {
	things, err := b.client.EditedComments(ctx)
	if err != nil {
		log.WithError(err).Warn("poll edits failed")
		return
	}
	for _, t := range things {
		if b.seenEdits[t.ID] {
			continue
		}
		b.seenEdits[t.ID] = true
		t.IsEdited = true
		b.push(queue.MsgEdit, t)
	}
	// листинг конечный, набор правок за жизнь процесса ограничен;
	// на всякий случай не даём карте расти бесконечно
	if len(b.seenEdits) > 10000 {
		b.seenEdits = make(map[string]bool)
	}
}

// pollInbox забирает непрочитанные личные сообщения.
// Прочитанными их помечает процессор писем, не продьюсер.
func (b *Bot) pollInbox(ctx context.Context) {
	things, err := b.client.UnreadMessages(ctx)
	if err != nil {
		log.WithError(err).Warn("poll inbox failed")
		return
	}
	for i := len(things) - 1; i >= 0; i-- {
		b.push(queue.MsgMessage, things[i])
	}
}

func (b *Bot) push(kind queue.MessageKind, t *reddit.Thing) {
	msg, err := queue.NewThingMessage(kind, t, time.Now())
	if err != nil {
		log.WithError(err).WithField("id", t.ID).Error("Сериализация события не удалась")
		return
	}
	b.q.Push(msg)
	log.WithFields(log.Fields{
		"kind":   kind,
		"id":     t.ID,
		"author": t.Author,
	}).Debug("event queued")
}
