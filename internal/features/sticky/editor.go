// Package sticky поддерживает один информационный закреплённый комментарий
// на пост: текущий счёт дельт и/или привязанная статья.
package sticky

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"deltabot/internal/common"
	"deltabot/internal/features/articles"
	"deltabot/internal/reddit"
)

// маркер, по которому среди потомков поста узнаётся закреп бота
const bodyMarker = "^(DeltaBot summary)"

// Platform — часть клиента платформы, нужная редактору закрепа.
type Platform interface {
	BotUsername() string
	PopulateChildren(ctx context.Context, t *reddit.Thing) error
	Reply(ctx context.Context, parentID, body string) (*reddit.Thing, error)
	EditComment(ctx context.Context, id, body string) error
	DeleteComment(ctx context.Context, id string) error
	DistinguishSticky(ctx context.Context, id string) error
}

// CountSource отдаёт число дельт, выданных под постом.
type CountSource interface {
	CountForPost(ctx context.Context, postID string) (int, error)
}

// ArticleSource отдаёт привязанную к посту статью (nil — нет).
type ArticleSource interface {
	GetByPost(ctx context.Context, postID string) (*articles.Article, error)
}

// Editor поддерживает закреплённый комментарий поста.
type Editor struct {
	client   Platform
	counts   CountSource
	articles ArticleSource
}

// NewEditor создаёт редактор закрепа.
func NewEditor(client Platform, counts CountSource, articleSource ArticleSource) *Editor {
	return &Editor{client: client, counts: counts, articles: articleSource}
}

// RefreshForPost пересобирает закреп поста из производного состояния.
func (e *Editor) RefreshForPost(ctx context.Context, post *reddit.Thing) error {
	return e.Upsert(ctx, post, nil, nil)
}

// Upsert приводит закреп поста в соответствие с состоянием.
//
// Контракт: вызывающий может передать ЛИБО явный счёт, ЛИБО явную статью,
// но не оба сразу — оба не-nil значат, что вызывающий перепутал ветки,
// это нарушение инварианта. Недостающее довычисляется запросом.
//
// Счёт 0 и отсутствие статьи → закреп удаляется. Иначе тело пересобирается
// и правится на месте, а при отсутствии закрепа он создаётся и закрепляется.
func (e *Editor) Upsert(ctx context.Context, post *reddit.Thing, count *int, article *articles.Article) error {
	common.Invariant(count == nil || article == nil,
		"Upsert получил и счёт, и статью для %s", post.ID)

	if count == nil {
		n, err := e.counts.CountForPost(ctx, post.ID)
		if err != nil {
			return fmt.Errorf("счёт дельт поста %s: %w", post.ID, err)
		}
		count = &n
	}
	if article == nil {
		a, err := e.articles.GetByPost(ctx, post.ID)
		if err != nil {
			return fmt.Errorf("статья поста %s: %w", post.ID, err)
		}
		article = a
	}

	existing, err := e.findSticky(ctx, post)
	if err != nil {
		return err
	}

	if *count == 0 && article == nil {
		if existing != nil {
			if err := e.client.DeleteComment(ctx, existing.ID); err != nil {
				return fmt.Errorf("удаление закрепа %s: %w", existing.ID, err)
			}
			log.WithField("post", post.ID).Info("Закреп удалён (нечего показывать)")
		}
		return nil
	}

	body := buildBody(*count, article)

	if existing != nil {
		if err := e.client.EditComment(ctx, existing.ID, body); err != nil {
			return fmt.Errorf("правка закрепа %s: %w", existing.ID, err)
		}
		return nil
	}

	created, err := e.client.Reply(ctx, post.ID, body)
	if err != nil {
		return fmt.Errorf("создание закрепа для %s: %w", post.ID, err)
	}
	if err := e.client.DistinguishSticky(ctx, created.ID); err != nil {
		return fmt.Errorf("закрепление %s: %w", created.ID, err)
	}
	log.WithField("post", post.ID).Info("Закреп создан")
	return nil
}

// findSticky ищет среди потомков поста закреп бота по автору и маркеру.
func (e *Editor) findSticky(ctx context.Context, post *reddit.Thing) (*reddit.Thing, error) {
	if err := e.client.PopulateChildren(ctx, post); err != nil {
		return nil, fmt.Errorf("потомки поста %s: %w", post.ID, err)
	}
	for _, child := range post.Children {
		if child.Author == e.client.BotUsername() && strings.Contains(child.Body, bodyMarker) {
			return child, nil
		}
	}
	return nil, nil
}

// buildBody собирает тело закрепа из счёта и статьи.
func buildBody(count int, article *articles.Article) string {
	var sb strings.Builder
	sb.WriteString(bodyMarker)
	sb.WriteString("\n\n")
	if count > 0 {
		word := "deltas"
		if count == 1 {
			word = "delta"
		}
		fmt.Fprintf(&sb, "%d %s awarded in this post so far.\n\n", count, word)
	}
	if article != nil {
		fmt.Fprintf(&sb, "This discussion was covered in [%s](%s).\n", article.Title, article.URL)
	}
	return sb.String()
}
