// Package deltas — processor.go: машина состояний обработки комментария.
// Сюда приходят и свежие комментарии, и правки, и ninja-повторы;
// все ветки сходятся к инварианту «не больше одного успешного ответа
// на исходный комментарий».
package deltas

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"deltabot/internal/reddit"
)

// Platform — часть клиента платформы, нужная процессору.
type Platform interface {
	BotUsername() string
	ThingByID(ctx context.Context, id string) (*reddit.Thing, error)
	PopulateParentAndChildren(ctx context.Context, t *reddit.Thing) error
	Reply(ctx context.Context, parentID, body string) (*reddit.Thing, error)
	EditComment(ctx context.Context, id, body string) error
	DeleteComment(ctx context.Context, id string) error
	SendMessage(ctx context.Context, to, subject, body string) error
}

// OptOutStore проверяет отказ от предупреждений о дельте в цитате.
type OptOutStore interface {
	IsOptedOut(ctx context.Context, username string) (bool, error)
}

// StickyRefresher обновляет закреплённый комментарий поста после
// изменения счёта дельт.
type StickyRefresher interface {
	RefreshForPost(ctx context.Context, post *reddit.Thing) error
}

// BoardRebuilder пересобирает лидерборды после изменения леджера.
type BoardRebuilder interface {
	Rebuild(ctx context.Context) error
}

// Processor обрабатывает комментарии и правки.
// Вызывается только из единственного консьюмера очереди, поэтому
// внутреннее состояние (warned) не требует синхронизации.
type Processor struct {
	client    Platform
	validator *Validator
	replies   *ReplyDetector
	awarder   *Awarder
	templates *Templates
	optout    OptOutStore
	sticky    StickyRefresher
	boards    BoardRebuilder

	tokens        []string
	unawardWindow time.Duration

	// комментарии, по которым предупреждение о цитате уже отправлено
	warned map[string]struct{}

	now func() time.Time // подменяется в тестах
}

// NewProcessor создаёт процессор комментариев.
func NewProcessor(
	client Platform,
	validator *Validator,
	replies *ReplyDetector,
	awarder *Awarder,
	templates *Templates,
	optout OptOutStore,
	sticky StickyRefresher,
	boards BoardRebuilder,
	tokens []string,
	unawardWindow time.Duration,
) *Processor {
	return &Processor{
		client:        client,
		validator:     validator,
		replies:       replies,
		awarder:       awarder,
		templates:     templates,
		optout:        optout,
		sticky:        sticky,
		boards:        boards,
		tokens:        tokens,
		unawardWindow: unawardWindow,
		warned:        make(map[string]struct{}),
		now:           time.Now,
	}
}

// Process прогоняет комментарий через машину состояний.
func (p *Processor) Process(ctx context.Context, t *reddit.Thing) error {
	// Собственные комментарии бота не обрабатываются никогда
	if t.Author == p.client.BotUsername() {
		return nil
	}

	// Ninja-повтор: перечитываем живой комментарий и принудительно
	// считаем его правкой независимо от исходного флага — именно так
	// ловятся отложенные правки
	if t.NeedsRefresh {
		live, err := p.client.ThingByID(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("перечитывание %s: %w", t.ID, err)
		}
		t = live
		t.IsEdited = true
	}

	d := Detect(t.Body, p.tokens)

	if !d.HasDelta && d.DeltaInQuote {
		p.warnQuotedDelta(ctx, t)
	}

	// Ни настоящей дельты, ни правки — делать нечего
	if !d.HasDelta && !t.IsEdited {
		return nil
	}

	if err := p.client.PopulateParentAndChildren(ctx, t); err != nil {
		return fmt.Errorf("контекст %s: %w", t.ID, err)
	}

	check := p.replies.DidReply(t)

	if d.HasDelta {
		return p.processDelta(ctx, t, check)
	}
	return p.processEditWithoutDelta(ctx, t, check)
}

// processDelta — ветка «в комментарии есть настоящая дельта».
func (p *Processor) processDelta(ctx context.Context, t *reddit.Thing, check *ReplyCheck) error {
	switch {
	case check == nil:
		// Бот ещё не отвечал: валидируем, при успехе начисляем, отвечаем
		out := p.validator.Validate(t)
		if out.Kind == OutcomeSuccess {
			if err := p.awarder.Award(ctx, t, t.Parent); err != nil {
				return err
			}
			p.refreshDerived(ctx, t)
		}
		body, err := p.templates.Render(out)
		if err != nil {
			return err
		}
		if _, err := p.client.Reply(ctx, t.ID, body); err != nil {
			return fmt.Errorf("ответ на %s: %w", t.ID, err)
		}
		log.WithFields(log.Fields{
			"comment": t.ID,
			"outcome": out.Kind,
		}).Info("Новый ответ на дельту")
		return nil

	case !check.WasSuccess && !check.WasModerator:
		// Был fail-ответ: правка могла исправить ситуацию.
		// Перевалидируем и редактируем СУЩЕСТВУЮЩИЙ ответ на месте —
		// дубликат не создаётся никогда
		out := p.validator.Validate(t)
		if out.Kind == OutcomeSuccess {
			if err := p.awarder.Award(ctx, t, t.Parent); err != nil {
				return err
			}
			p.refreshDerived(ctx, t)
		}
		body, err := p.templates.Render(out)
		if err != nil {
			return err
		}
		if err := p.client.EditComment(ctx, check.Child.ID, body); err != nil {
			return fmt.Errorf("правка ответа %s: %w", check.Child.ID, err)
		}
		log.WithFields(log.Fields{
			"comment": t.ID,
			"outcome": out.Kind,
		}).Info("Ответ на дельту отредактирован")
		return nil

	default:
		// Успешный или модераторский ответ уже есть — повторная доставка
		// безопасна, ничего не делаем
		return nil
	}
}

// processEditWithoutDelta — ветка «дельты нет, но комментарий правился»:
// пользователь мог убрать маркер после начисления.
func (p *Processor) processEditWithoutDelta(ctx context.Context, t *reddit.Thing, check *ReplyCheck) error {
	if check == nil {
		return nil
	}

	if check.WasSuccess {
		age := p.now().Sub(time.Unix(t.CreatedUTC, 0))
		if age > p.unawardWindow {
			// Граница окна намеренная: вне его успешные награды
			// не трогаем, иначе edit/unedit превращается в абьюз
			log.WithField("comment", t.ID).Debug("delta removed outside unaward window, keeping award")
			return nil
		}
		if err := p.awarder.Unaward(ctx, t, t.Parent); err != nil {
			return err
		}
		p.refreshDerived(ctx, t)
		if err := p.client.DeleteComment(ctx, check.Child.ID); err != nil {
			return fmt.Errorf("удаление ответа %s: %w", check.Child.ID, err)
		}
		log.WithField("comment", t.ID).Info("Дельта снята после правки")
		return nil
	}

	if !check.WasModerator {
		// Пользователь сам убрал дельту — fail-ответ больше не актуален
		if err := p.client.DeleteComment(ctx, check.Child.ID); err != nil {
			return fmt.Errorf("удаление ответа %s: %w", check.Child.ID, err)
		}
		log.WithField("comment", t.ID).Info("Устаревший fail-ответ удалён")
	}
	return nil
}

// warnQuotedDelta шлёт автору предупреждение «дельта в цитате не считается».
// Не больше одного предупреждения на комментарий; отказавшимся не шлём.
func (p *Processor) warnQuotedDelta(ctx context.Context, t *reddit.Thing) {
	if _, ok := p.warned[t.ID]; ok {
		return
	}
	p.warned[t.ID] = struct{}{}

	opted, err := p.optout.IsOptedOut(ctx, t.Author)
	if err != nil {
		log.WithError(err).WithField("user", t.Author).Warn("optout check failed")
		return
	}
	if opted {
		return
	}

	body := "Looks like your delta is inside a quote, so it did not count. " +
		"If you meant to award it, repeat the marker outside the quote. " +
		"Reply with !stopwarnings to stop these notices."
	if err := p.client.SendMessage(ctx, t.Author, "Delta inside a quote", body); err != nil {
		log.WithError(err).WithField("user", t.Author).Warn("quoted-delta warning failed")
	}
}

// refreshDerived обновляет производное состояние после изменения леджера:
// закреплённый комментарий поста и лидерборды. Сбои здесь не фатальны —
// cron пересоберёт.
func (p *Processor) refreshDerived(ctx context.Context, t *reddit.Thing) {
	if t.Post != nil {
		if err := p.sticky.RefreshForPost(ctx, t.Post); err != nil {
			log.WithError(err).WithField("post", t.Post.ID).Warn("sticky refresh failed")
		}
	}
	if err := p.boards.Rebuild(ctx); err != nil {
		log.WithError(err).Warn("leaderboard rebuild failed")
	}
}
