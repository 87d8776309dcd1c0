package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"snackstand/pkg/app"
)

// main exposes a root-level entry point so operators can simply run `go run snackstand.go`.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := app.Run(context.Background(), os.Args[1:], logger); err != nil {
		logger.Fatal("application stopped with error", zap.Error(err))
	}
}
