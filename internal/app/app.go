// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, клиента платформы, репозитории,
// сервисы, процессоры и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"deltabot/internal/bot"
	"deltabot/internal/config"
	"deltabot/internal/db/postgres"
	"deltabot/internal/features/articles"
	"deltabot/internal/features/deltas"
	"deltabot/internal/features/inbox"
	"deltabot/internal/features/leaderboard"
	"deltabot/internal/features/sticky"
	"deltabot/internal/jobs"
	"deltabot/internal/lifecycle"
	"deltabot/internal/queue"
	"deltabot/internal/reddit"
)

// App содержит все компоненты приложения.
type App struct {
	Bot        *bot.Bot
	Dispatcher *queue.Dispatcher
	Scheduler  *jobs.Scheduler
	Lifecycle  *lifecycle.Manager
	DB         *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Клиент платформы ===
	gate := reddit.NewEditGate(cfg.EditRateInterval)
	client := reddit.NewHTTPClient(cfg, gate)
	log.Infof("Работаем как /u/%s в /r/%s", cfg.RedditUsername, cfg.Subreddit)

	// === 3. Репозитории ===
	deltaRepo := deltas.NewRepository(pool)
	boardRepo := leaderboard.NewRepository(pool)
	articleRepo := articles.NewRepository(pool)
	stateRepo := bot.NewStateRepository(pool)

	if last, err := stateRepo.LastActivity(ctx); err != nil {
		log.WithError(err).Warn("не удалось прочитать отметку активности")
	} else if !last.IsZero() {
		log.Infof("Последняя активность перед запуском: %s", last.Format(time.RFC3339))
	}

	// === 4. Сервисы ===
	templates := deltas.DefaultTemplates()
	// некомпилируемый шаблон — дефект конфигурации, падаем на старте
	replyDetector, err := deltas.NewReplyDetector(cfg.RedditUsername, templates)
	if err != nil {
		return nil, fmt.Errorf("ошибка компиляции шаблонов ответов: %w", err)
	}
	validator := deltas.NewValidator(cfg.RedditUsername)
	awarder := deltas.NewAwarder(client, deltaRepo, cfg.FlairGlyph)
	boards := leaderboard.NewService(deltaRepo, boardRepo, 100)
	stickyEditor := sticky.NewEditor(client, deltaRepo, articleRepo)
	auth := inbox.NewAuth(cfg.OwnerPasswordHash)

	// === 5. Процессоры ===
	commentProc := deltas.NewProcessor(
		client, validator, replyDetector, awarder, templates,
		deltaRepo, stickyEditor, boards,
		cfg.DeltaTokens, cfg.UnawardWindow,
	)
	messageProc := inbox.NewProcessor(
		client, auth, awarder, replyDetector, validator, templates,
		deltaRepo, articleRepo, stickyEditor, deltaRepo, boards,
		cfg.SentinelSubject,
	)

	// === 6. Очередь и диспетчер ===
	q := queue.New(cfg.NinjaEditDelay)
	lc := lifecycle.NewManager(time.Duration(cfg.RestartHours) * time.Hour)
	dispatcher := queue.NewDispatcher(q, commentProc, messageProc, lc, cfg.QueueIdleSleep)

	// === 7. Продьюсеры и планировщик ===
	b := bot.New(client, q, cfg, stateRepo)
	scheduler := jobs.NewScheduler(boards)

	return &App{
		Bot:        b,
		Dispatcher: dispatcher,
		Scheduler:  scheduler,
		Lifecycle:  lc,
		DB:         pool,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Deltas},
		{2, migration002Leaderboards},
		{3, migration003OptOut},
		{4, migration004Articles},
		{5, migration005BotState},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Deltas = `
CREATE TABLE IF NOT EXISTS deltas (
    id BIGSERIAL PRIMARY KEY,
    comment_id VARCHAR(32) NOT NULL,
    post_id VARCHAR(32),
    post_link TEXT NOT NULL,
    post_title TEXT NOT NULL,
    giver VARCHAR(64) NOT NULL,
    recipient VARCHAR(64) NOT NULL,
    awarded_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_deltas_comment_id ON deltas(comment_id);
CREATE INDEX IF NOT EXISTS idx_deltas_post_id ON deltas(post_id);
CREATE INDEX IF NOT EXISTS idx_deltas_giver ON deltas(giver);
CREATE INDEX IF NOT EXISTS idx_deltas_recipient ON deltas(recipient);
CREATE INDEX IF NOT EXISTS idx_deltas_awarded_at ON deltas(awarded_at DESC);
`

var migration002Leaderboards = `
CREATE TABLE IF NOT EXISTS leaderboards (
    id BIGSERIAL PRIMARY KEY,
    time_window VARCHAR(16) NOT NULL,
    username VARCHAR(64) NOT NULL,
    count INTEGER NOT NULL,
    rank INTEGER NOT NULL,
    UNIQUE (time_window, username)
);
CREATE INDEX IF NOT EXISTS idx_leaderboards_window ON leaderboards(time_window, rank);
`

var migration003OptOut = `
CREATE TABLE IF NOT EXISTS quoted_delta_optout (
    username VARCHAR(64) PRIMARY KEY,
    created_at TIMESTAMP DEFAULT NOW()
);
`

var migration004Articles = `
CREATE TABLE IF NOT EXISTS articles (
    id BIGSERIAL PRIMARY KEY,
    post_id VARCHAR(32) UNIQUE NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
`

var migration005BotState = `
CREATE TABLE IF NOT EXISTS bot_state (
    key VARCHAR(64) PRIMARY KEY,
    value TEXT NOT NULL
);
`
