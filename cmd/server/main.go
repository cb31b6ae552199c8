package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quote_backend/internal/app/di"
	"quote_backend/internal/platform/config"
	"quote_backend/internal/platform/logger"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	closer := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	defer func() { _ = closer.Close() }()

	// JWT_SECRETチェック（開発中の注意喚起）
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set. Admin routes will answer 500 until it is configured.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := di.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	if n, err := c.SeedSymbols(ctx); err != nil {
		slog.Error("failed to seed symbols", "error", err)
	} else {
		slog.Info("symbols seeded", "created", n)
	}

	if c.Bridge != nil {
		go func() {
			if err := c.Bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("bus bridge stopped", "error", err)
			}
		}()
	}

	c.Scheduler.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	// 処理中の銘柄を終えてからサイクルを止める
	c.Scheduler.Stop()

	// ストリーム接続を閉じてから HTTP を止める
	c.Broker.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}
