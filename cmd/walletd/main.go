package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"walletd/config"
	"walletd/importer"
	"walletd/ledger"
	"walletd/observability/logging"
	"walletd/rpc"
	"walletd/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	runImport := flag.Bool("import", false, "Run the bulk import against the configured legacy source, then exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup(cfg.Service, cfg.Env, logWriter(cfg))

	registry, err := ledger.NewRegistry(cfg.Assets)
	if err != nil {
		logger.Error("Invalid asset list", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	core := ledger.New(db, registry, logger)

	elapsed, err := core.LoadAll()
	if err != nil {
		logger.Error("Replay failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Replay complete", slog.Duration("elapsed", elapsed))
	reportWarnings(core, logger)

	if *runImport {
		if err := runBulkImport(cfg, core, logger); err != nil {
			logger.Error("Import failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: rpc.NewServer(core, logger).Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("HTTP server listening", slog.String("address", cfg.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", slog.Any("error", err))
	}
}

// logWriter mirrors logs to a rotated file when one is configured.
func logWriter(cfg *config.Config) io.Writer {
	if cfg.LogFile == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    100, // megabytes
		MaxBackups: 10,
		MaxAge:     30, // days
	})
}

// reportWarnings lists every account flagged with a replay underflow together
// with its trades, for operator review.
func reportWarnings(core *ledger.Ledger, logger *slog.Logger) {
	for _, warn := range core.Warnings() {
		logger.Warn("Replay balance warning",
			slog.String("asset", core.Registry().Name(warn.Asset)),
			slog.String("account", warn.Account))
		for _, entry := range core.GetTrades(warn.Asset, warn.Account) {
			logger.Warn("Flagged account trade",
				slog.String("trade", entry.ID),
				slog.String("type", entry.Trade.Type.String()),
				slog.String("status", entry.Trade.Status.String()),
				slog.String("from", entry.Trade.From),
				slog.String("to", entry.Trade.To),
				slog.Uint64("amount", entry.Trade.Amount))
		}
	}
}

func runBulkImport(cfg *config.Config, core *ledger.Ledger, logger *slog.Logger) error {
	if cfg.Import.DSN == "" {
		return fmt.Errorf("import requested but import.DSN is not configured")
	}
	db, err := importer.Open(cfg.Import.DSN)
	if err != nil {
		return fmt.Errorf("open legacy source: %w", err)
	}
	im := importer.New(db, core, logger)
	ctx := context.Background()

	stats, err := im.Run(ctx, cfg.Import.Since, cfg.Import.Until)
	logger.Info("Transfer import finished",
		slog.Int("imported", stats.Imported),
		slog.Int("skipped", stats.Skipped),
		slog.Int("rejected", stats.Rejected))
	if err != nil {
		return err
	}

	if cfg.Import.AirDropAsset != "" {
		principal, err := core.Registry().Lookup(cfg.Import.AirDropAsset)
		if err != nil {
			return err
		}
		gas, err := core.Registry().Lookup(cfg.Import.AirDropGasAsset)
		if err != nil {
			return err
		}
		stats, err = im.RunAirDrops(ctx, principal, gas)
		logger.Info("Air-drop import finished",
			slog.Int("imported", stats.Imported),
			slog.Int("skipped", stats.Skipped),
			slog.Int("rejected", stats.Rejected))
		if err != nil {
			return err
		}
	}
	return nil
}
