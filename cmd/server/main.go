package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"snackstand/pkg/app"
)

// main acts as a thin adapter so existing process managers can keep using cmd/server.
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
