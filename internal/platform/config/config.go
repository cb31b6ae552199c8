// Package config はプロセス全体の設定を環境変数（および .env）から読み込みます。
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"quote_backend/internal/shared/failure"
)

const (
	EnvKeyJWTSecret = "JWT_SECRET"

	minJWTSecretLen = 16
)

// DefaultTrackedSymbols は TRACKED_SYMBOLS 未設定時に登録する銘柄です。
var DefaultTrackedSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "PETR4.SA", "VALE3.SA", "bitcoin", "ethereum", "USDBRL", "EURBRL",
}

// Config はサーバーとCLIが共有する設定値です。
// DB・Redis・外部APIの接続設定はそれぞれのパッケージの LoadConfig で読み込みます。
type Config struct {
	Port string

	FetchInterval    time.Duration
	SymbolDelay      time.Duration
	Workers          int
	LockTTL          time.Duration
	RegistryCacheTTL time.Duration
	PriceBucket      time.Duration
	AlertThreshold   float64

	TrackedSymbols []string
	SymbolsFile    string

	JWTSecret string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// LoadDotEnv は .env ファイルを読み込みます。ファイルが無い場合は何もしません。
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug(".env not loaded, using process environment", "error", err)
	}
}

// Load は環境変数から Config を組み立てます。
// 解釈できない値は警告を出してデフォルトに戻します。
// JWT_SECRET が短すぎる場合のみ Configuration 失敗を返します。
func Load() (Config, error) {
	cfg := Config{
		Port:             envString("PORT", "8080"),
		FetchInterval:    envSeconds("SCHED_FETCH_INTERVAL", 60*time.Second),
		SymbolDelay:      envDuration("REFRESH_SYMBOL_DELAY", 200*time.Millisecond, true),
		Workers:          envInt("REFRESH_WORKERS", 1),
		LockTTL:          envDuration("REFRESH_LOCK_TTL", 5*time.Minute, false),
		RegistryCacheTTL: envDuration("REGISTRY_CACHE_TTL", 0, true),
		PriceBucket:      envDuration("PRICE_BUCKET", time.Second, false),
		AlertThreshold:   envFloat("ALERT_THRESHOLD_PCT", 3.0),
		TrackedSymbols:   envList("TRACKED_SYMBOLS", DefaultTrackedSymbols),
		SymbolsFile:      os.Getenv("SYMBOLS_FILE"),
		JWTSecret:        os.Getenv(EnvKeyJWTSecret),
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogFormat:        envString("LOG_FORMAT", "text"),
		LogFile:          os.Getenv("LOG_FILE"),
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < minJWTSecretLen {
		return Config{}, failure.Configuration(failure.ReasonInvalidValue,
			EnvKeyJWTSecret+" must be at least 16 characters", nil)
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envSeconds accepts a bare number of seconds or a Go duration ("90s").
func envSeconds(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	warnDefault(key, raw, def)
	return def
}

func envDuration(key string, def time.Duration, allowZero bool) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		warnDefault(key, raw, def)
		return def
	}
	return d
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		warnDefault(key, raw, def)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		warnDefault(key, raw, def)
		return def
	}
	return f
}

func envList(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		warnDefault(key, raw, def)
		return def
	}
	return b
}

func warnDefault(key, raw string, def any) {
	slog.Warn("invalid config value, using default", "key", key, "value", raw, "default", def)
}

// Bool は真偽値の環境変数を読み込みます。他パッケージの LoadConfig から使います。
func Bool(key string, def bool) bool { return envBool(key, def) }

// Duration は時間の環境変数を読み込みます。0 や負の値はデフォルトに戻します。
func Duration(key string, def time.Duration) time.Duration { return envDuration(key, def, false) }

// String は文字列の環境変数を読み込みます。
func String(key, def string) string { return envString(key, def) }
