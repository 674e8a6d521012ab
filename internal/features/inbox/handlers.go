// Package inbox — handlers.go: диспетчеризация команд из личных сообщений.
//
// Маршрутизация декларативная: таблица (предикат, обработчик) обходится
// в фиксированном порядке приоритета, первый совпавший предикат решает.
// Команда берётся из темы письма, а когда транспорт подменяет тему
// сентинелом — из ведущего "!command" в теле.
//
// Входящее письмо помечается прочитанным на границе процессора ВСЕГДА,
// даже если обработчик упал: возможная потеря команды — плата за то,
// что отравленное письмо не зациклит обработку.
package inbox

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"deltabot/internal/common"
	"deltabot/internal/features/articles"
	"deltabot/internal/features/deltas"
	"deltabot/internal/features/leaderboard"
	"deltabot/internal/reddit"
)

// Platform — часть клиента платформы, нужная обработчикам команд.
type Platform interface {
	BotUsername() string
	ThingByURL(ctx context.Context, url string) (*reddit.Thing, error)
	PopulateParentAndChildren(ctx context.Context, t *reddit.Thing) error
	Reply(ctx context.Context, parentID, body string) (*reddit.Thing, error)
	EditComment(ctx context.Context, id, body string) error
	DeleteComment(ctx context.Context, id string) error
	ReplyToMessage(ctx context.Context, id, body string) error
	MarkRead(ctx context.Context, id string) error
	IsModerator(ctx context.Context, username string) (bool, error)
}

// ArticleStore сохраняет и снимает привязку статьи к посту.
type ArticleStore interface {
	Upsert(ctx context.Context, a *articles.Article) error
	Delete(ctx context.Context, postID string) error
}

// OptOutStore вносит пользователя в список отказа от предупреждений.
type OptOutStore interface {
	AddOptOut(ctx context.Context, username string) error
}

// StickyUpserter обновляет закреп поста.
type StickyUpserter interface {
	Upsert(ctx context.Context, post *reddit.Thing, count *int, article *articles.Article) error
	RefreshForPost(ctx context.Context, post *reddit.Thing) error
}

// LedgerReader отдаёт историю дельт пользователя.
type LedgerReader interface {
	Given(ctx context.Context, username string) ([]deltas.LedgerEntry, error)
	Received(ctx context.Context, username string) ([]deltas.LedgerEntry, error)
}

// Boards — пересборка и чтение лидербордов.
type Boards interface {
	deltas.BoardRebuilder
	Top(ctx context.Context, w leaderboard.Window) ([]leaderboard.Entry, error)
}

// request — разобранное входящее письмо.
type request struct {
	msg     *reddit.Thing
	command string // нормализованная команда
	args    string // остаток после команды
	isMod   bool
}

// route — строка таблицы маршрутизации.
type route struct {
	name    string
	match   func(req *request) bool
	handle  func(ctx context.Context, req *request) error
	needMod bool
}

// Processor обрабатывает личные сообщения.
type Processor struct {
	client    Platform
	auth      *Auth
	awarder   *deltas.Awarder
	replies   *deltas.ReplyDetector
	validator *deltas.Validator
	templates *deltas.Templates
	optout    OptOutStore
	articles  ArticleStore
	sticky    StickyUpserter
	ledger    LedgerReader
	boards    Boards

	sentinelSubject string
	routes          []route
}

// NewProcessor создаёт процессор личных сообщений.
func NewProcessor(
	client Platform,
	auth *Auth,
	awarder *deltas.Awarder,
	replies *deltas.ReplyDetector,
	validator *deltas.Validator,
	templates *deltas.Templates,
	optout OptOutStore,
	articleStore ArticleStore,
	sticky StickyUpserter,
	ledger LedgerReader,
	boards Boards,
	sentinelSubject string,
) *Processor {
	p := &Processor{
		client:          client,
		auth:            auth,
		awarder:         awarder,
		replies:         replies,
		validator:       validator,
		templates:       templates,
		optout:          optout,
		articles:        articleStore,
		sticky:          sticky,
		ledger:          ledger,
		boards:          boards,
		sentinelSubject: strings.ToLower(sentinelSubject),
	}
	p.routes = p.buildRoutes()
	return p
}

// buildRoutes собирает таблицу маршрутизации в порядке приоритета.
func (p *Processor) buildRoutes() []route {
	byCommand := func(names ...string) func(*request) bool {
		return func(req *request) bool {
			for _, n := range names {
				if req.command == n {
					return true
				}
			}
			return false
		}
	}
	return []route{
		{name: "Auth", match: byCommand("auth"), handle: p.handleAuth},
		{name: "StopQuotedDeltaWarnings", match: byCommand("stopwarnings", "stop quoted delta warnings"), handle: p.handleStopWarnings},
		{name: "ModAddDelta", match: byCommand("adddelta", "add delta"), handle: p.handleModAdd, needMod: true},
		{name: "ModForceAddDelta", match: byCommand("forceadddelta", "force add delta"), handle: p.handleForceAdd, needMod: true},
		{name: "ModDeleteDelta", match: byCommand("deletedelta", "delete delta"), handle: p.handleModDelete, needMod: true},
		{name: "WATTArticleCreated", match: byCommand("wattarticle", "watt article created"), handle: p.handleArticle},
		{name: "ModDeleteArticle", match: byCommand("deletearticle", "delete article"), handle: p.handleDeleteArticle, needMod: true},
		{name: "MyDeltas", match: byCommand("mydeltas", "my deltas"), handle: p.handleMyDeltas},
		{name: "Leaderboard", match: byCommand("leaderboard", "top"), handle: p.handleLeaderboard},
	}
}

// Process обрабатывает одно входящее письмо.
func (p *Processor) Process(ctx context.Context, msg *reddit.Thing) error {
	if msg.Author == p.client.BotUsername() {
		return nil
	}

	// Помечаем прочитанным безусловно — и при ошибке, и при панике
	// обработчика. Иначе отравленная команда будет доставляться вечно.
	defer func() {
		if markErr := p.client.MarkRead(ctx, msg.ID); markErr != nil {
			log.WithError(markErr).WithField("msg", msg.ID).Warn("mark read failed")
		}
	}()

	req := p.parse(ctx, msg)

	for _, r := range p.routes {
		if !r.match(req) {
			continue
		}
		if r.needMod && !req.isMod {
			return p.respond(ctx, msg, common.ErrNotModerator.Error())
		}
		log.WithFields(log.Fields{
			"route": r.name,
			"from":  msg.Author,
		}).Info("Команда из личного сообщения")
		return r.handle(ctx, req)
	}

	// Нет обработчика — письмо всё равно помечено прочитанным
	log.WithFields(log.Fields{
		"from":    msg.Author,
		"subject": common.Truncate(msg.Subject, 50),
	}).Debug("no handler for message")
	return nil
}

// parse извлекает команду и аргументы из письма.
func (p *Processor) parse(ctx context.Context, msg *reddit.Thing) *request {
	req := &request{msg: msg}

	subject := strings.ToLower(strings.TrimSpace(msg.Subject))
	subject = strings.TrimSpace(strings.TrimPrefix(subject, "re: "))
	if subject != "" && subject != p.sentinelSubject {
		req.command = subject
		req.args = strings.TrimSpace(msg.Body)
	} else {
		// Сентинел-тема: команда — ведущий "!command" в теле
		body := strings.TrimSpace(msg.Body)
		if strings.HasPrefix(body, "!") {
			parts := strings.SplitN(body, " ", 2)
			req.command = strings.ToLower(strings.TrimPrefix(parts[0], "!"))
			if len(parts) > 1 {
				req.args = strings.TrimSpace(parts[1])
			}
		}
	}

	req.isMod = p.isPrivileged(ctx, msg.Author)
	return req
}

// isPrivileged: модератор сабреддита или владелец с активной сессией.
func (p *Processor) isPrivileged(ctx context.Context, username string) bool {
	if p.auth.HasSession(username) {
		return true
	}
	isMod, err := p.client.IsModerator(ctx, username)
	if err != nil {
		log.WithError(err).WithField("user", username).Warn("moderator check failed")
		return false
	}
	return isMod
}

// respond отвечает на входящее письмо.
func (p *Processor) respond(ctx context.Context, msg *reddit.Thing, text string) error {
	if err := p.client.ReplyToMessage(ctx, msg.ID, text); err != nil {
		return fmt.Errorf("ответ на письмо %s: %w", msg.ID, err)
	}
	return nil
}

// --- Обработчики ---

// handleAuth — "!auth <пароль>": открыть owner-сессию.
func (p *Processor) handleAuth(ctx context.Context, req *request) error {
	if err := p.auth.Authenticate(req.msg.Author, strings.TrimSpace(req.args)); err != nil {
		return p.respond(ctx, req.msg, "Авторизация не удалась: "+err.Error())
	}
	return p.respond(ctx, req.msg, "Авторизация успешна, сессия открыта на 24 часа.")
}

// handleStopWarnings — отказ от предупреждений о дельте в цитате.
func (p *Processor) handleStopWarnings(ctx context.Context, req *request) error {
	if err := p.optout.AddOptOut(ctx, req.msg.Author); err != nil {
		return fmt.Errorf("optout %s: %w", req.msg.Author, err)
	}
	return p.respond(ctx, req.msg, "Больше не буду предупреждать о дельтах в цитатах.")
}

// fetchTarget читает целевой комментарий команды и проверяет ограничения.
func (p *Processor) fetchTarget(ctx context.Context, req *request) (*reddit.Thing, error) {
	url := strings.Fields(req.args)
	if len(url) == 0 {
		return nil, fmt.Errorf("не указана ссылка на комментарий")
	}
	target, err := p.client.ThingByURL(ctx, url[0])
	if err != nil {
		return nil, fmt.Errorf("комментарий не найден: %w", err)
	}
	if target.IsDeleted() {
		return nil, common.ErrAuthorDeleted
	}
	if target.Author == p.client.BotUsername() {
		return nil, common.ErrTargetIsBot
	}
	if err := p.client.PopulateParentAndChildren(ctx, target); err != nil {
		return nil, fmt.Errorf("контекст комментария: %w", err)
	}
	if target.Parent == nil {
		return nil, common.ErrParentMissing
	}
	if target.Parent.Author == p.client.BotUsername() {
		return nil, common.ErrTargetIsBot
	}
	return target, nil
}

// handleModAdd — начислить дельту за комментарий (с валидацией).
func (p *Processor) handleModAdd(ctx context.Context, req *request) error {
	return p.addDelta(ctx, req, true)
}

// handleForceAdd — начислить дельту, минуя валидацию.
func (p *Processor) handleForceAdd(ctx context.Context, req *request) error {
	return p.addDelta(ctx, req, false)
}

func (p *Processor) addDelta(ctx context.Context, req *request, validate bool) error {
	target, err := p.fetchTarget(ctx, req)
	if err != nil {
		return p.respond(ctx, req.msg, "Не получилось: "+err.Error())
	}

	// Защита от двойной обработки: сперва смотрим на существующий ответ
	check := p.replies.DidReply(target)
	if check != nil && (check.WasSuccess || check.WasModerator) {
		return p.respond(ctx, req.msg, common.ErrAlreadyAwarded.Error())
	}

	out := deltas.Outcome{
		Kind:      deltas.OutcomeSuccess,
		Giver:     target.Author,
		Recipient: target.Parent.Author,
	}
	if validate {
		out = p.validator.Validate(target)
		if out.Kind != deltas.OutcomeSuccess {
			return p.respond(ctx, req.msg,
				fmt.Sprintf("Валидация не прошла (%s), дельта не начислена.", out.Kind))
		}
	}

	if err := p.awarder.Award(ctx, target, target.Parent); err != nil {
		return fmt.Errorf("начисление: %w", err)
	}

	// Модераторский ответ: правим существующий fail-ответ или создаём новый
	body := p.templates.RenderModerator(out)
	if check != nil {
		err = p.client.EditComment(ctx, check.Child.ID, body)
	} else {
		_, err = p.client.Reply(ctx, target.ID, body)
	}
	if err != nil {
		return fmt.Errorf("модераторский ответ: %w", err)
	}

	p.refreshDerived(ctx, target)
	return p.respond(ctx, req.msg, "Дельта начислена: /u/"+target.Parent.Author)
}

// handleModDelete — снять дельту, начисленную за комментарий.
func (p *Processor) handleModDelete(ctx context.Context, req *request) error {
	target, err := p.fetchTarget(ctx, req)
	if err != nil {
		return p.respond(ctx, req.msg, "Не получилось: "+err.Error())
	}

	check := p.replies.DidReply(target)
	if check == nil || (!check.WasSuccess && !check.WasModerator) {
		return p.respond(ctx, req.msg, common.ErrNothingToRemove.Error())
	}

	if err := p.awarder.Unaward(ctx, target, target.Parent); err != nil {
		return fmt.Errorf("снятие: %w", err)
	}
	if err := p.client.DeleteComment(ctx, check.Child.ID); err != nil {
		return fmt.Errorf("удаление ответа: %w", err)
	}

	p.refreshDerived(ctx, target)
	return p.respond(ctx, req.msg, "Дельта снята: /u/"+target.Parent.Author)
}

// handleArticle — WATT: к посту привязана статья.
// Формат аргументов: <ссылка на пост> <ссылка на статью> [заголовок].
func (p *Processor) handleArticle(ctx context.Context, req *request) error {
	fields := strings.Fields(req.args)
	if len(fields) < 2 {
		return p.respond(ctx, req.msg, "Формат: <ссылка на пост> <ссылка на статью> [заголовок]")
	}

	post, err := p.client.ThingByURL(ctx, fields[0])
	if err != nil {
		return p.respond(ctx, req.msg, "Пост не найден: "+err.Error())
	}
	if !post.IsPost() {
		return p.respond(ctx, req.msg, "Первая ссылка должна вести на пост.")
	}

	title := strings.Join(fields[2:], " ")
	if title == "" {
		title = "this article"
	}
	article := &articles.Article{PostID: post.ID, URL: fields[1], Title: title}

	if err := p.articles.Upsert(ctx, article); err != nil {
		return fmt.Errorf("сохранение статьи: %w", err)
	}
	if err := p.sticky.Upsert(ctx, post, nil, article); err != nil {
		return fmt.Errorf("обновление закрепа: %w", err)
	}

	return p.respond(ctx, req.msg, "Статья привязана к посту.")
}

// handleDeleteArticle — снять привязку статьи с поста.
func (p *Processor) handleDeleteArticle(ctx context.Context, req *request) error {
	fields := strings.Fields(req.args)
	if len(fields) == 0 {
		return p.respond(ctx, req.msg, "Формат: <ссылка на пост>")
	}

	post, err := p.client.ThingByURL(ctx, fields[0])
	if err != nil {
		return p.respond(ctx, req.msg, "Пост не найден: "+err.Error())
	}
	if !post.IsPost() {
		return p.respond(ctx, req.msg, "Ссылка должна вести на пост.")
	}

	if err := p.articles.Delete(ctx, post.ID); err != nil {
		return fmt.Errorf("удаление статьи: %w", err)
	}
	// закреп пересоберётся уже без статьи (и удалится, если пуст)
	if err := p.sticky.RefreshForPost(ctx, post); err != nil {
		return fmt.Errorf("обновление закрепа: %w", err)
	}

	return p.respond(ctx, req.msg, "Привязка статьи снята.")
}

// handleMyDeltas — история дельт отправителя: полученные и выданные.
func (p *Processor) handleMyDeltas(ctx context.Context, req *request) error {
	received, err := p.ledger.Received(ctx, req.msg.Author)
	if err != nil {
		return fmt.Errorf("история received %s: %w", req.msg.Author, err)
	}
	given, err := p.ledger.Given(ctx, req.msg.Author)
	if err != nil {
		return fmt.Errorf("история given %s: %w", req.msg.Author, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Получено дельт: %d, выдано: %d.\n", len(received), len(given))
	appendEntries(&sb, "Последние полученные:", received)
	appendEntries(&sb, "Последние выданные:", given)
	return p.respond(ctx, req.msg, sb.String())
}

// appendEntries дописывает до 10 свежих строк истории.
func appendEntries(sb *strings.Builder, header string, entries []deltas.LedgerEntry) {
	if len(entries) == 0 {
		return
	}
	if len(entries) > 10 {
		entries = entries[:10]
	}
	sb.WriteString("\n" + header + "\n")
	for _, e := range entries {
		fmt.Fprintf(sb, "- /u/%s — [%s](%s)\n",
			e.Counterparty, common.Truncate(e.PostTitle, 80), e.PostLink)
	}
}

// handleLeaderboard — "!leaderboard [окно]": верх рейтинга.
func (p *Processor) handleLeaderboard(ctx context.Context, req *request) error {
	w := leaderboard.AllTime
	if arg := strings.ToLower(strings.TrimSpace(req.args)); arg != "" {
		found := false
		for _, known := range leaderboard.Windows {
			if arg == string(known) {
				w = known
				found = true
				break
			}
		}
		if !found {
			return p.respond(ctx, req.msg,
				"Неизвестное окно. Доступны: daily, weekly, monthly, yearly, alltime.")
		}
	}

	entries, err := p.boards.Top(ctx, w)
	if err != nil {
		return fmt.Errorf("чтение рейтинга %s: %w", w, err)
	}
	if len(entries) == 0 {
		return p.respond(ctx, req.msg, "Рейтинг пока пуст.")
	}
	if len(entries) > 10 {
		entries = entries[:10]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Топ (%s):\n", w)
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d. /u/%s — %d\n", e.Rank, e.Username, e.Count)
	}
	return p.respond(ctx, req.msg, sb.String())
}

// refreshDerived обновляет закреп и лидерборды после модераторской команды.
func (p *Processor) refreshDerived(ctx context.Context, target *reddit.Thing) {
	if target.Post != nil {
		if err := p.sticky.RefreshForPost(ctx, target.Post); err != nil {
			log.WithError(err).WithField("post", target.Post.ID).Warn("sticky refresh failed")
		}
	}
	if err := p.boards.Rebuild(ctx); err != nil {
		log.WithError(err).Warn("leaderboard rebuild failed")
	}
}
