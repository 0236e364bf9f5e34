package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohamedkhairy/session-range-stats/internal/export"
	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/storage"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

// ErrNoBars is returned when the bar source has nothing for a symbol
var ErrNoBars = errors.New("no bars")

// Runner loads bars, computes the session tables of a symbol and hands them
// to the table store and the exporter
type Runner struct {
	engine   *orb.Engine
	bars     storage.BarStorage
	tables   storage.TableStorage
	exporter *export.Exporter
	lookback time.Duration
	now      func() time.Time

	// one run per symbol at a time
	mu      sync.Mutex
	running map[string]*sync.Mutex
}

// Option configures a Runner
type Option func(*Runner)

// WithTables persists every computed table
func WithTables(tables storage.TableStorage) Option {
	return func(r *Runner) { r.tables = tables }
}

// WithExporter writes every computed table to a file
func WithExporter(exporter *export.Exporter) Option {
	return func(r *Runner) { r.exporter = exporter }
}

// WithLookback limits runs to bars newer than now minus lookback
func WithLookback(lookback time.Duration) Option {
	return func(r *Runner) { r.lookback = lookback }
}

// New creates a runner
func New(engine *orb.Engine, bars storage.BarStorage, opts ...Option) *Runner {
	r := &Runner{
		engine:  engine,
		bars:    bars,
		now:     time.Now,
		running: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) lock(symbol string) func() {
	r.mu.Lock()
	m, ok := r.running[symbol]
	if !ok {
		m = &sync.Mutex{}
		r.running[symbol] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Run recomputes every table of symbol
func (r *Runner) Run(ctx context.Context, symbol string) (*orb.Result, error) {
	unlock := r.lock(symbol)
	defer unlock()

	runID := uuid.New().String()
	ctx = logger.WithSymbol(logger.WithRunID(ctx, runID), symbol)
	log := logger.WithContext(ctx)

	var start time.Time
	if r.lookback > 0 {
		start = r.now().Add(-r.lookback)
	}
	bars, err := r.bars.GetBars(ctx, symbol, start, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBars, symbol)
	}

	result, err := r.engine.Run(ctx, symbol, bars)
	if err != nil {
		return nil, err
	}

	for i := range result.Tables {
		table := &result.Tables[i]
		if r.tables != nil {
			if err := r.tables.SaveTable(ctx, table); err != nil {
				return nil, err
			}
		}
		if r.exporter != nil {
			if _, err := r.exporter.Export(table); err != nil {
				return nil, err
			}
		}
	}

	log.Info("Run completed",
		logger.Int("bars", len(bars)),
		logger.Int("tables", len(result.Tables)),
	)
	return result, nil
}

// RunAll runs every symbol in order. A failing symbol is logged and the
// remaining symbols still run; the joined errors are returned.
func (r *Runner) RunAll(ctx context.Context, symbols []string) error {
	var errs []error
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := r.Run(ctx, symbol); err != nil {
			logger.RecordError("runner", "run")
			logger.Error("Run failed",
				logger.ErrorField(err),
				logger.String("symbol", symbol),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
