// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Reddit ---
	RedditClientID     string `envconfig:"REDDIT_CLIENT_ID" required:"true"`
	RedditClientSecret string `envconfig:"REDDIT_CLIENT_SECRET" required:"true"`
	RedditUsername     string `envconfig:"REDDIT_USERNAME" required:"true"`
	RedditPassword     string `envconfig:"REDDIT_PASSWORD" required:"true"`
	// Сабреддит, в котором работает бот (единственный обслуживаемый)
	Subreddit string `envconfig:"SUBREDDIT" required:"true"`
	UserAgent string `envconfig:"USER_AGENT" default:"deltabot/1.0"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"deltabot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Deltas ---
	// Токены-маркеры дельты через запятую. Строка с токеном вне цитаты = настоящая дельта.
	DeltaTokensRaw string   `envconfig:"DELTA_TOKENS" default:"!delta,Δ,∆"`
	DeltaTokens    []string `envconfig:"-"` // заполним вручную
	// Символ, которым заканчивается флейр со счётчиком ("3Δ")
	FlairGlyph string `envconfig:"FLAIR_GLYPH" default:"Δ"`
	// Окно, в течение которого правка с удалением дельты снимает награду
	UnawardWindow time.Duration `envconfig:"UNAWARD_WINDOW" default:"2h"`

	// --- Queue ---
	// Через сколько комментарий/правка перечитывается повторно (ловля ninja-edit)
	NinjaEditDelay time.Duration `envconfig:"NINJA_EDIT_DELAY" default:"180s"`
	// Пауза консьюмера при пустой очереди
	QueueIdleSleep time.Duration `envconfig:"QUEUE_IDLE_SLEEP" default:"100ms"`

	// --- Polling ---
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`

	// --- Edit rate ---
	// Минимальный интервал между edit-запросами к Reddit (общий на весь процесс)
	EditRateInterval time.Duration `envconfig:"EDIT_RATE_INTERVAL" default:"10s"`

	// --- Restart ---
	// После скольких часов аптайма бот перезапускает сам себя (0 = никогда)
	RestartHours int `envconfig:"RESTART_HOURS" default:"6"`

	// --- Inbox ---
	// Сентинел-тема: транспорт подменяет тему письма, команду ищем в теле ("!command")
	SentinelSubject string `envconfig:"SENTINEL_SUBJECT" default:"username mention"`
	// Argon2id-хеш пароля владельца для модераторских команд без флага модератора.
	// Пустая строка = owner-авторизация выключена.
	OwnerPasswordHash string `envconfig:"OWNER_PASSWORD_HASH" default:""`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if len(c.DeltaTokens) == 0 {
		return fmt.Errorf("DELTA_TOKENS не задан")
	}
	if c.FlairGlyph == "" {
		return fmt.Errorf("FLAIR_GLYPH не задан")
	}
	if c.NinjaEditDelay <= 0 {
		return fmt.Errorf("NINJA_EDIT_DELAY должен быть > 0")
	}
	if c.EditRateInterval <= 0 {
		return fmt.Errorf("EDIT_RATE_INTERVAL должен быть > 0")
	}
	if c.RestartHours < 0 {
		return fmt.Errorf("RESTART_HOURS не может быть отрицательным")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.DeltaTokens = parseCSV(cfg.DeltaTokensRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
