package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mohamedkhairy/session-range-stats/internal/api"
	"github.com/mohamedkhairy/session-range-stats/internal/app"
	"github.com/mohamedkhairy/session-range-stats/internal/config"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

func main() {
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

	logger.Info("Starting session range API",
		logger.Int("port", cfg.API.Port),
		logger.Strings("symbols", cfg.ORB.Symbols),
		logger.String("bar_source", cfg.Bars.Source),
		logger.String("table_store", cfg.Tables.Store),
		logger.Bool("cache", cfg.Cache.Enabled),
		logger.Bool("auth", cfg.API.JWTSecret != ""),
	)

	services, err := app.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", logger.ErrorField(err))
	}
	defer services.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Compute every symbol once so the tables are served from startup
	go func() {
		if err := services.RunAll(ctx); err != nil {
			logger.Warn("Initial computation finished with errors", logger.ErrorField(err))
		}
	}()

	// Scheduled recompute
	var scheduler *cron.Cron
	if cfg.Refresh.Cron != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.Refresh.Cron, func() {
			logger.Info("Scheduled recompute started")
			if err := services.RunAll(ctx); err != nil {
				logger.Warn("Scheduled recompute finished with errors", logger.ErrorField(err))
			}
		}); err != nil {
			logger.Fatal("Invalid REFRESH_CRON",
				logger.String("cron", cfg.Refresh.Cron),
				logger.ErrorField(err),
			)
		}
		scheduler.Start()
		logger.Info("Recompute scheduled", logger.String("cron", cfg.Refresh.Cron))
	}

	handler := api.NewTableHandler(services.Tables, services.Runner, cfg.ORB.Symbols, services.OpeningMinutes(), services.Locations())
	router := api.NewRouter(handler, services.Ready)

	// Apply middleware
	middlewares := []api.Middleware{
		api.CORSMiddleware(),
		api.LoggingMiddleware(),
		api.ErrorHandlingMiddleware(),
	}
	if cfg.API.JWTSecret != "" {
		middlewares = append(middlewares, api.AuthMiddleware(api.NewAuthManager(cfg.API.JWTSecret)))
	}
	middlewares = append(middlewares, api.RateLimitMiddleware(cfg.API.RateLimitRPS))

	// Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           api.ChainMiddleware(middlewares...)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", logger.ErrorField(err))
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down session range API")
	cancel()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", logger.ErrorField(err))
	}

	logger.Info("Session range API stopped")
}
