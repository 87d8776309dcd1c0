package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"snackstand/internal/config"
	"snackstand/pkg/httpapi"
	"snackstand/pkg/inventory"
	"snackstand/pkg/order"
	"snackstand/pkg/shop"
	"snackstand/pkg/version"
)

// flags captures CLI options so the stand can run with a single Run call.
type flags struct {
	showVersion bool
	configPath  string
	port        string
	dataDir     string
}

// Run composes configuration, persistence, the shop service, and the HTTP
// server, then blocks until the context ends or the process is signalled.
func Run(ctx context.Context, args []string, logger *zap.Logger) error {
	if logger == nil {
		// The logger is optional so tests can remain quiet while production still reports activity.
		logger = zap.NewNop()
	}

	cli, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			// Help output is already printed by the flag package, so we quietly exit.
			return nil
		}
		return err
	}

	if cli.showVersion {
		fmt.Fprintf(os.Stdout, "snackstand version %s\n", version.Version())
		return nil
	}

	cfg, err := config.Load(cli.configPath)
	if err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}
	if cli.port != "" {
		cfg.ListenPort = cli.port
	}
	if cli.dataDir != "" {
		cfg.DataDir = cli.dataDir
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("unable to prepare data directory: %w", err)
	}

	inventoryRepo := inventory.NewRepository(filepath.Join(cfg.DataDir, "stock.json"), logger)
	ledger := order.NewLedger(filepath.Join(cfg.DataDir, "orders.json"), logger)

	service := shop.NewService(inventoryRepo, ledger, logger)
	defer service.Close()

	api, err := httpapi.New(service, cfg.AdminPIN, cfg.SessionSecret, logger)
	if err != nil {
		return fmt.Errorf("unable to build http server: %w", err)
	}

	addr := ":" + cfg.ListenPort
	server := &http.Server{
		Addr:         addr,
		Handler:      api.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("snack stand is running", zap.String("addr", addr), zap.String("data_dir", cfg.DataDir))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped unexpectedly: %w", err)
	}
	return nil
}

// parseFlags uses a dedicated FlagSet so Run can be called from multiple entry points.
func parseFlags(args []string) (flags, error) {
	set := flag.NewFlagSet("snackstand", flag.ContinueOnError)
	set.SetOutput(io.Discard)

	var cli flags
	set.BoolVar(&cli.showVersion, "version", false, "Show the application version")
	set.StringVar(&cli.configPath, "config", "", "Path to an optional YAML configuration file.")
	set.StringVar(&cli.port, "port", "", "Port for the HTTP server; overrides the configuration file.")
	set.StringVar(&cli.dataDir, "data-dir", "", "Directory holding stock.json and orders.json; overrides the configuration file.")

	if err := set.Parse(args); err != nil {
		return flags{}, err
	}
	return cli, nil
}
