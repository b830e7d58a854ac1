package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"quiz-digest/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Default().Error("extraction failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	deps, err := app.Build(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	stage, err := deps.Extraction()
	if err != nil {
		return err
	}
	_, err = stage.Run(ctx)
	return err
}
