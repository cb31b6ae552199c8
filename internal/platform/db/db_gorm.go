package db

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quote_backend/internal/platform/config"
	"quote_backend/internal/shared/failure"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultDatabaseURL = "sqlite://quotes.db"
	retryInterval      = 3 * time.Second
	pgUniqueViolation  = "23505"
)

// Config はデータベース接続設定です。
type Config struct {
	Driver        string
	DSN           string
	RunMigrations bool
	ConnTimeout   time.Duration
}

// LoadConfigFromEnv は DATABASE_URL と RUN_MIGRATIONS から設定を読み込みます。
// 未知のスキームは Configuration 失敗になります。
func LoadConfigFromEnv() (Config, error) {
	cfg, err := ParseURL(config.String("DATABASE_URL", defaultDatabaseURL))
	if err != nil {
		return Config{}, err
	}
	cfg.RunMigrations = config.Bool("RUN_MIGRATIONS", true)
	cfg.ConnTimeout = config.Duration("DB_CONNECT_TIMEOUT", 60*time.Second)
	return cfg, nil
}

// ParseURL は DATABASE_URL をドライバとDSNに分解します。
//
//	sqlite://quotes.db        -> sqlite, "quotes.db?_busy_timeout=5000"
//	sqlite://:memory:         -> sqlite, ":memory:"
//	postgres://u:p@host/db    -> postgres, URL そのまま
func ParseURL(raw string) (Config, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return Config{}, failure.Configuration(failure.ReasonInvalidValue, "DATABASE_URL: empty sqlite path", nil)
		}
		if path != ":memory:" && !strings.Contains(path, "?") {
			path += "?_busy_timeout=5000"
		}
		return Config{Driver: DriverSQLite, DSN: path}, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		if _, err := url.Parse(raw); err != nil {
			return Config{}, failure.Configuration(failure.ReasonInvalidValue, "DATABASE_URL", err)
		}
		return Config{Driver: DriverPostgres, DSN: raw}, nil
	default:
		scheme := raw
		if i := strings.Index(raw, "://"); i >= 0 {
			scheme = raw[:i]
		}
		return Config{}, failure.Configuration(failure.ReasonInvalidValue,
			fmt.Sprintf("DATABASE_URL: unsupported scheme %q", scheme), nil)
	}
}

// Dialector は設定に対応する gorm のダイアレクタを返します。
func Dialector(cfg Config) gorm.Dialector {
	if cfg.Driver == DriverPostgres {
		return postgres.Open(cfg.DSN)
	}
	return sqlite.Open(cfg.DSN)
}

// ConnectWithRetry は opener が成功するか timeout を過ぎるまで接続を再試行します。
func ConnectWithRetry(dsn string, timeout time.Duration, opener func(string) (*gorm.DB, error)) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying...", "error", err, "interval", retryInterval)
		time.Sleep(retryInterval)
	}
}

// OpenDB は接続を確立し、RunMigrations が有効なら models をマイグレーションします。
func OpenDB(cfg Config, models ...any) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	opener := func(string) (*gorm.DB, error) {
		db, err := gorm.Open(Dialector(cfg), gcfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.Ping(); err != nil {
			return nil, err
		}
		return db, nil
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	db, err := ConnectWithRetry(cfg.DSN, timeout, opener)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// sqlite は単一ライターなので接続を1本に絞る
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if cfg.RunMigrations && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		slog.Info("database migrated", "driver", cfg.Driver, "models", len(models))
	}
	return db, nil
}

// IsUniqueViolation は一意制約違反かどうかを判定します。
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite (mattn) はエラー文字列でしか判別できない
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
