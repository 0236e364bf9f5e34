package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/cache"
	"github.com/mohamedkhairy/session-range-stats/internal/config"
	"github.com/mohamedkhairy/session-range-stats/internal/data"
	"github.com/mohamedkhairy/session-range-stats/internal/export"
	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/runner"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
	"github.com/mohamedkhairy/session-range-stats/internal/storage"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// App holds the wired services shared by the api and batch commands
type App struct {
	Config *config.Config
	Bars   storage.BarStorage
	Tables storage.TableStorage
	Runner *runner.Runner

	kv      cache.KV
	closers []func() error
}

// Option overrides a dependency New would otherwise open from configuration
type Option func(*App)

// WithBars uses bars instead of the configured BAR_SOURCE
func WithBars(bars storage.BarStorage) Option {
	return func(a *App) { a.Bars = bars }
}

// WithTables uses tables instead of the configured TABLE_STORE
func WithTables(tables storage.TableStorage) Option {
	return func(a *App) { a.Tables = tables }
}

// WithKV uses kv as the table cache backend
func WithKV(kv cache.KV) Option {
	return func(a *App) { a.kv = kv }
}

// New opens the bar source, table store, cache and exporter named by cfg and
// wires them into a runner
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.open(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open() error {
	cfg := a.Config

	if a.Bars == nil {
		bars, err := data.NewSourceFactory().Create(cfg)
		if err != nil {
			return fmt.Errorf("failed to open bar source: %w", err)
		}
		a.Bars = bars
		a.closers = append(a.closers, bars.Close)
	}

	if a.Tables == nil {
		tables, err := openTables(cfg)
		if err != nil {
			return fmt.Errorf("failed to open table store: %w", err)
		}
		a.Tables = tables
		a.closers = append(a.closers, tables.Close)
	}

	if cfg.Cache.Enabled {
		if a.kv == nil {
			kv, err := cache.NewRedisKV(cfg.Redis)
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			a.kv = kv
			a.closers = append(a.closers, kv.Close)
		}
		a.Tables = cache.NewCachedTables(a.Tables, cache.NewTableCache(a.kv, cfg.Cache.TTL))
	}

	engineConfig, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	engine, err := orb.NewEngine(engineConfig)
	if err != nil {
		return err
	}

	runnerOpts := []runner.Option{
		runner.WithTables(a.Tables),
		runner.WithLookback(cfg.Bars.Lookback),
	}
	if cfg.Export.Format != "" {
		exporter, err := export.NewExporter(cfg.Export.Dir, cfg.Export.Format, export.Options{UnixTime: cfg.Export.UnixTime})
		if err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, runner.WithExporter(exporter))
	}
	a.Runner = runner.New(engine, a.Bars, runnerOpts...)
	return nil
}

func openTables(cfg *config.Config) (storage.TableStorage, error) {
	switch cfg.Tables.Store {
	case "postgres":
		return storage.NewPostgresStore(cfg.Database, nil)
	case "sqlite":
		return storage.NewSQLiteStore(cfg.Tables.SQLitePath)
	case "none", "":
		return storage.NewMemoryTableStore(), nil
	}
	return nil, fmt.Errorf("%w: unknown TABLE_STORE %q", config.ErrInvalidConfig, cfg.Tables.Store)
}

// OpeningMinutes is the configured opening range length in minutes
func (a *App) OpeningMinutes() int {
	return int(a.Config.ORB.OpeningDuration.Minutes())
}

// Locations maps each configured session to its zone
func (a *App) Locations() map[session.ID]*time.Location {
	locations := make(map[session.ID]*time.Location, len(a.Config.ORB.Sessions))
	for _, spec := range a.Config.ORB.Sessions {
		locations[spec.ID] = spec.Location
	}
	return locations
}

// Ready pings the table store and cache when they support it
func (a *App) Ready(ctx context.Context) error {
	var errs []error
	if p, ok := a.Tables.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("table store: %w", err))
		}
	}
	if a.kv != nil {
		if err := a.kv.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RunAll recomputes every configured symbol
func (a *App) RunAll(ctx context.Context) error {
	return a.Runner.RunAll(ctx, a.Config.ORB.Symbols)
}

// Close releases what New opened, in reverse order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		logger.Warn("Errors while closing services", logger.Int("count", len(errs)))
	}
	return errors.Join(errs...)
}
