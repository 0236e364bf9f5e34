package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/config"
	"github.com/mohamedkhairy/session-range-stats/internal/data"
	"github.com/mohamedkhairy/session-range-stats/internal/storage"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

func main() {
	batchSize := flag.Int("batch", data.DefaultBatchSize, "bars per database write")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting bar loader",
		logger.String("csv_dir", cfg.Bars.CSVDir),
		logger.String("db_host", cfg.Database.Host),
		logger.Int("batch_size", *batchSize),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	location, err := time.LoadLocation(cfg.Bars.Timezone)
	if err != nil {
		logger.Fatal("Invalid BAR_TIMEZONE", logger.ErrorField(err))
	}

	src, err := data.NewCSVStore(cfg.Bars.CSVDir, location)
	if err != nil {
		logger.Fatal("Failed to open CSV bars", logger.ErrorField(err))
	}
	defer src.Close()

	dst, err := storage.NewPostgresStore(cfg.Database, location)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", logger.ErrorField(err))
	}
	defer dst.Close()

	// Every symbol directory is loaded, not only ORB_SYMBOLS
	symbols, err := src.Symbols()
	if err != nil {
		logger.Fatal("Failed to list symbols", logger.ErrorField(err))
	}

	start := time.Now()
	written, err := data.Copy(ctx, src, dst, symbols, *batchSize)
	total := 0
	for _, n := range written {
		total += n
	}
	if err != nil {
		logger.Error("Bar load failed",
			logger.ErrorField(err),
			logger.Int("bars_written", total),
		)
		dst.Close()
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Bar load finished",
		logger.Int("symbols", len(symbols)),
		logger.Int("bars", total),
		logger.Duration("elapsed", time.Since(start)),
	)
}
