package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"quiz-digest/internal/app"
	"quiz-digest/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Default().Error("explanation failed", "err", err)
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

	stage, err := deps.Explanation()
	if err != nil {
		return err
	}
	_, err = stage.Run(ctx)
	if errors.Is(err, pipeline.ErrNoQuestions) {
		// Nothing to explain is not a failure of the run.
		deps.Log.Warn("nothing to explain", "input", deps.Config.ExplainInputFile)
		return nil
	}
	return err
}
