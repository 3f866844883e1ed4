package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Режимы получения обновлений
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

var (
	ErrTokenRequired = errors.New("TELEGRAM_TOKEN is required")
	ErrTokenFormat   = errors.New("TELEGRAM_TOKEN has invalid format")

	tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)
)

type Config struct {
	TelegramToken string
	Debug         bool

	LogLevel  string
	LogFormat string

	// Получение обновлений
	Mode               string
	PollTimeout        time.Duration
	PollLimit          int
	DropPendingUpdates bool
	WebhookURL         string
	WebhookListen      string
	WebhookSecret      string

	// Хранилище сессий
	StorageDriver string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BoltPath      string
	SessionTTL    time.Duration

	// Отправка сообщений
	SendRate    float64
	SendBurst   int
	SendRetries int

	Workers      int
	AdminChatID  int64
	AllowedUsers []int64

	SentryDSN         string
	SentryEnvironment string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		TelegramToken:      strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		Debug:              env.readBool("BOT_DEBUG", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		Mode:               strings.ToLower(getEnv("BOT_MODE", ModePolling)),
		PollTimeout:        time.Duration(env.readInt("POLL_TIMEOUT_SECONDS", 60)) * time.Second,
		PollLimit:          env.readInt("POLL_LIMIT", 100),
		DropPendingUpdates: env.readBool("DROP_PENDING_UPDATES", false),
		WebhookURL:         os.Getenv("WEBHOOK_URL"),
		WebhookListen:      getEnv("WEBHOOK_LISTEN", ":8080"),
		WebhookSecret:      os.Getenv("WEBHOOK_SECRET"),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", "memory")),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            env.readInt("REDIS_DB", 0),
		BoltPath:           getEnv("BOLT_PATH", "bot.db"),
		SessionTTL:         env.readDuration("SESSION_TTL", 24*time.Hour),
		SendRate:           env.readFloat("SEND_RATE", 25),
		SendBurst:          env.readInt("SEND_BURST", 5),
		SendRetries:        env.readInt("SEND_RETRIES", 3),
		Workers:            env.readInt("WORKERS", 8),
		AdminChatID:        env.readInt64("ADMIN_CHAT_ID", 0),
		SentryDSN:          os.Getenv("SENTRY_DSN"),
		SentryEnvironment:  getEnv("SENTRY_ENVIRONMENT", "production"),
	}
	if env.err != nil {
		return nil, env.err
	}

	var err error
	if cfg.AllowedUsers, err = parseIDList(os.Getenv("ALLOWED_USERS")); err != nil {
		return nil, fmt.Errorf("ALLOWED_USERS: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет конфигурацию и возвращает первую найденную ошибку
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return ErrTokenRequired
	}
	if !tokenPattern.MatchString(c.TelegramToken) {
		return ErrTokenFormat
	}

	// POLL_LIMIT задаёт и размер очереди обновлений, поэтому проверяется в любом режиме
	if c.PollLimit < 1 || c.PollLimit > 100 {
		return errors.New("POLL_LIMIT must be between 1 and 100")
	}

	switch c.Mode {
	case ModePolling:
		if c.PollTimeout < 0 {
			return errors.New("POLL_TIMEOUT_SECONDS must not be negative")
		}
	case ModeWebhook:
		if c.WebhookURL == "" {
			return errors.New("WEBHOOK_URL is required in webhook mode")
		}
		if !strings.HasPrefix(c.WebhookURL, "https://") {
			return errors.New("WEBHOOK_URL must use https")
		}
	default:
		return fmt.Errorf("unknown BOT_MODE %q", c.Mode)
	}

	switch c.StorageDriver {
	case "memory", "redis", "bolt":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.SendRate <= 0 {
		return errors.New("SEND_RATE must be positive")
	}
	if c.SendBurst < 1 {
		return errors.New("SEND_BURST must be positive")
	}
	if c.SendRetries < 0 {
		return errors.New("SEND_RETRIES must not be negative")
	}
	if c.Workers < 1 {
		return errors.New("WORKERS must be positive")
	}
	return nil
}

// MaskedToken возвращает токен, пригодный для логов: ID бота и хвост секрета
func (c *Config) MaskedToken() string {
	id, secret, ok := strings.Cut(c.TelegramToken, ":")
	if !ok || len(secret) <= 4 {
		return "***"
	}
	return id + ":***" + secret[len(secret)-4:]
}

// IsAllowed сообщает, может ли пользователь работать с ботом
func (c *Config) IsAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// envReader читает типизированные переменные окружения и запоминает первую ошибку разбора.
// Пустая переменная даёт значение по умолчанию.
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != "" && r.err == nil
}

func (r *envReader) fail(key string, err error) {
	r.err = fmt.Errorf("%s: %w", key, err)
}

func (r *envReader) readInt(key string, defaultValue int) int {
	raw, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, err)
		return defaultValue
	}
	return v
}

func (r *envReader) readInt64(key string, defaultValue int64) int64 {
	raw, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.fail(key, err)
		return defaultValue
	}
	return v
}

func (r *envReader) readFloat(key string, defaultValue float64) float64 {
	raw, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(key, err)
		return defaultValue
	}
	return v
}

func (r *envReader) readBool(key string, defaultValue bool) bool {
	raw, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, err)
		return defaultValue
	}
	return v
}

func (r *envReader) readDuration(key string, defaultValue time.Duration) time.Duration {
	raw, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(key, err)
		return defaultValue
	}
	return v
}

func parseIDList(v string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
