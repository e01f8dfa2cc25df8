package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"palm-reader/internal/app"
	"palm-reader/internal/config"
	"palm-reader/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if _, err := logging.Init(cfg.LogLevel, "", os.Stdout); err != nil {
		slog.Error("failed to configure logging", "err", err)
	}

	// ---- Services and handler ----
	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to wire application", "err", err)
		os.Exit(1)
	}
	slog.Info("palm reader starting", "provider", cfg.Provider, "model", cfg.Model, "mode", a.Reading.Mode(ctx))

	lambda.Start(a.Handler.Handle)
}
