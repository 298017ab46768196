package main

import (
	"log/slog"
	"os"

	"qr-lost-found/internal/app"
	"qr-lost-found/internal/logger"
)

func main() {
	logger.Setup()

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
