package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"card_market/internal/application"
	"card_market/internal/config"
	"card_market/pkg/contextx"
	"card_market/pkg/logx"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load", logx.Error(err))
		os.Exit(1)
	}

	log := logx.New(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(log)
	ctx = contextx.WithLogger(ctx, log)

	app := application.New(cfg)
	defer app.Close(ctx)

	if err := app.Serve(ctx); err != nil {
		log.Error("application failed", logx.Error(err))
		cancel()
		app.Close(ctx)
		os.Exit(1) //nolint:gocritic
	}

	log.Info("application stopped")
}
