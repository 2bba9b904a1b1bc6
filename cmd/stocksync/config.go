package main

import (
	"log/slog"
	"time"

	"github.com/forgeops/stocksync/pkg/logger"
)

type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"stocksync"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// RedisEnabled switches the sync dedup ledger from in-process memory to
	// Redis. Memory is fine for a single instance; Redis is required as soon
	// as two instances share the same clients.
	RedisEnabled  bool          `env:"REDIS_ENABLED" envDefault:"false"`
	SyncLedgerTTL time.Duration `env:"SYNC_LEDGER_TTL" envDefault:"168h"`

	StockCheckInterval    time.Duration `env:"STOCK_CHECK_INTERVAL" envDefault:"5m"`
	NotificationRetention time.Duration `env:"NOTIFICATION_RETENTION" envDefault:"720h"`

	// AuthTokens lists static API credentials as token:user_id:role entries.
	AuthTokens []string `env:"AUTH_TOKENS,required" envSeparator:","`
}

func (c appConfig) logLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c appConfig) logFormat() logger.Format {
	if c.LogFormat == "text" {
		return logger.FormatText
	}
	return logger.FormatJSON
}
