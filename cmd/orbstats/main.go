package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/app"
	"github.com/mohamedkhairy/session-range-stats/internal/config"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

func main() {
	symbols := flag.String("symbols", "", "comma separated symbols overriding ORB_SYMBOLS")
	format := flag.String("format", "", "export format overriding EXPORT_FORMAT (csv or xlsx)")
	out := flag.String("out", "", "export directory overriding EXPORT_DIR")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *symbols != "" {
		cfg.ORB.Symbols = strings.FieldsFunc(*symbols, func(r rune) bool { return r == ',' || r == ' ' })
	}
	if *format != "" {
		cfg.Export.Format = *format
	}
	if *out != "" {
		cfg.Export.Dir = *out
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", logger.ErrorField(err))
	}
	defer services.Close()

	start := time.Now()
	logger.Info("Computing session range tables",
		logger.Strings("symbols", cfg.ORB.Symbols),
		logger.String("export_format", cfg.Export.Format),
	)

	runErr := services.RunAll(ctx)

	tables, err := services.Tables.ListTables(ctx)
	if err != nil {
		logger.Error("Failed to list tables", logger.ErrorField(err))
	}
	for _, info := range tables {
		logger.Info("Table",
			logger.String("symbol", info.Symbol),
			logger.String("session", string(info.Session)),
			logger.Int("opening_minutes", info.OpeningMinutes),
			logger.Int("rows", info.Rows),
			logger.String("first_date", info.FirstDate),
			logger.String("last_date", info.LastDate),
		)
	}

	if runErr != nil {
		logger.Error("Computation finished with errors",
			logger.ErrorField(runErr),
			logger.Duration("elapsed", time.Since(start)),
		)
		services.Close()
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("Computation finished", logger.Duration("elapsed", time.Since(start)))
}
