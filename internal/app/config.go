package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/mall/internal/service/notify"
)

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	RedisAddr string

	KafkaBrokers string

	JWTSecret string

	SMTP notify.SMTPConfig

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних сервисов.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		JWTSecret:           "dev-secret",
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
	}
}

// LoadConfig читает конфигурацию из окружения поверх DefaultConfig.
// Файл .env подхватывается, если присутствует; его отсутствие не ошибка.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env file")
	}

	cfg := DefaultConfig()
	cfg.HTTPAddr = envString("MALL_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("MALL_METRICS_ADDR", cfg.MetricsAddr)
	cfg.PostgresDSN = envString("MALL_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = envBool("MALL_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)
	if cfg.PostgresDSN != "" {
		cfg.StorageDriver = StorageDriverPostgres
	}
	if v := envString("MALL_STORAGE_DRIVER", ""); v != "" {
		cfg.StorageDriver = StorageDriver(v)
	}

	cfg.RedisAddr = envString("MALL_REDIS_ADDR", cfg.RedisAddr)
	cfg.KafkaBrokers = envString("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.JWTSecret = envString("MALL_JWT_SECRET", cfg.JWTSecret)

	cfg.SMTP.Host = envString("MALL_SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = envInt("MALL_SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = envString("MALL_SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.Password = envString("MALL_SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.From = envString("MALL_SMTP_FROM", cfg.SMTP.From)

	cfg.OutboxPollInterval = envDuration("MALL_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("MALL_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("MALL_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = envDuration("MALL_OUTBOX_RETRY_DELAY", cfg.OutboxRetryDelay)

	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid integer in environment, using default")
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid boolean in environment, using default")
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid duration in environment, using default")
		return fallback
	}
	return d
}
