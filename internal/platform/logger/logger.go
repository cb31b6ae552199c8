// Package logger はデフォルトの slog ロガーを構成します。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config はロガーの設定です。
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	File   string // 空の場合は標準エラーのみ
}

// New は設定に従って slog.Logger を生成します。
// File が指定されている場合は lumberjack でローテーションするファイルにも出力します。
// 返される io.Closer はファイル出力を閉じます（ファイル無しの場合は何もしません）。
func New(cfg Config, stderr io.Writer) (*slog.Logger, io.Closer) {
	var w io.Writer = stderr
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // MB
			MaxBackups: 10,
			MaxAge:     14, // days
			Compress:   true,
		}
		w = io.MultiWriter(stderr, lj)
		closer = lj
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer
}

// Init はロガーを生成して slog のデフォルトに設定します。
func Init(cfg Config) io.Closer {
	l, closer := New(cfg, os.Stderr)
	slog.SetDefault(l)
	slog.Info("logger initialized", "level", cfg.Level, "format", cfg.Format, "file", cfg.File)
	return closer
}

// ParseLevel はレベル名を slog.Level に変換します。不明な値は Info です。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
