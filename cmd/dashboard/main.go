package main

import (
	"context"
	"log/slog"
	"os"

	"loandash/internal/app"
	"loandash/internal/infrastructure"
)

func main() {
	ctx := context.Background()

	application, err := app.New(ctx)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = application.Run(ctx)
	infrastructure.CloseLogFile()
	if err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
