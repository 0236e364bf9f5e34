package orb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

var (
	// ErrNoSessions is returned when the engine is configured without sessions
	ErrNoSessions = errors.New("no sessions configured")
	// ErrDuplicateSession is returned when two sessions share an ID
	ErrDuplicateSession = errors.New("duplicate session")
	// ErrInvalidWindowSize is returned for a window size that does not divide a day
	ErrInvalidWindowSize = errors.New("invalid window size")
)

const (
	DefaultLevelStep       = 0.1
	DefaultWindowSize      = 30 * time.Minute
	DefaultOpeningDuration = 60 * time.Minute
)

// Config holds engine configuration
type Config struct {
	Sessions   []session.Spec
	LevelStep  float64
	WindowSize time.Duration

	// TrueOpenLocation is the timezone whose midnight bar defines the true open.
	// Nil disables the true open columns.
	TrueOpenLocation *time.Location

	// DuplicateBarLimit drops a session day with more repeated bars than this.
	// Zero disables the filter.
	DuplicateBarLimit int
}

// Table is the derived statistics of one symbol and session
type Table struct {
	Symbol         string                  `json:"symbol"`
	Session        session.ID              `json:"session"`
	OpeningMinutes int                     `json:"opening_minutes"`
	Records        []models.DayRangeRecord `json:"records"`
}

// Result holds the tables of one symbol in session order
type Result struct {
	Symbol string  `json:"symbol"`
	Tables []Table `json:"tables"`
}

// Table returns the table of a session
func (r *Result) Table(id session.ID) (*Table, bool) {
	for i := range r.Tables {
		if r.Tables[i].Session == id {
			return &r.Tables[i], true
		}
	}
	return nil, false
}

// Engine derives session range tables from bars
type Engine struct {
	config      Config
	classifiers []*session.Classifier
	chain       session.Chain
	quantizer   *Quantizer
}

// NewEngine validates the configuration and creates an engine
func NewEngine(config Config) (*Engine, error) {
	if len(config.Sessions) == 0 {
		return nil, ErrNoSessions
	}
	if config.LevelStep == 0 {
		config.LevelStep = DefaultLevelStep
	}
	if config.WindowSize == 0 {
		config.WindowSize = DefaultWindowSize
	}
	if config.WindowSize < time.Minute || (24*time.Hour)%config.WindowSize != 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWindowSize, config.WindowSize)
	}

	quantizer, err := NewQuantizer(config.LevelStep)
	if err != nil {
		return nil, err
	}

	seen := make(map[session.ID]bool, len(config.Sessions))
	classifiers := make([]*session.Classifier, 0, len(config.Sessions))
	for _, spec := range config.Sessions {
		if seen[spec.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, spec.ID)
		}
		seen[spec.ID] = true

		c, err := session.NewClassifier(spec)
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, c)
	}

	chain, err := session.NewChain(config.Sessions)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:      config,
		classifiers: classifiers,
		chain:       chain,
		quantizer:   quantizer,
	}, nil
}

// Sessions returns the configured session specs
func (e *Engine) Sessions() []session.Spec {
	return e.config.Sessions
}

// Run computes every session table of a symbol. Sessions are derived in
// parallel over the shared read-only bars, then joined to their predecessors.
func (e *Engine) Run(ctx context.Context, symbol string, bars []models.Bar) (*Result, error) {
	start := time.Now()
	log := logger.WithContext(ctx)

	normalized, invalid := models.NormalizeBars(bars)
	if invalid > 0 {
		log.Warn("Dropped invalid bars",
			logger.String("symbol", symbol),
			logger.Int("count", invalid),
		)
	}
	anchors := buildAnchors(normalized, e.config.TrueOpenLocation)

	records := make([][]models.DayRangeRecord, len(e.classifiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range e.classifiers {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = e.buildTable(symbol, c, normalized, anchors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		pipelineRunsTotal.WithLabelValues(symbol, "error").Inc()
		return nil, fmt.Errorf("failed to compute tables for %s: %w", symbol, err)
	}

	bySession := make(map[session.ID][]models.DayRangeRecord, len(records))
	for i, c := range e.classifiers {
		bySession[c.Spec().ID] = records[i]
	}
	joinPredecessor(bySession, e.chain)

	result := &Result{Symbol: symbol, Tables: make([]Table, 0, len(e.classifiers))}
	for _, c := range e.classifiers {
		spec := c.Spec()
		result.Tables = append(result.Tables, Table{
			Symbol:         symbol,
			Session:        spec.ID,
			OpeningMinutes: int(spec.OpeningDuration / time.Minute),
			Records:        bySession[spec.ID],
		})
	}

	elapsed := time.Since(start)
	pipelineRunsTotal.WithLabelValues(symbol, "success").Inc()
	pipelineDuration.WithLabelValues(symbol).Observe(elapsed.Seconds())

	log.Info("Computed session range tables",
		logger.String("symbol", symbol),
		logger.Int("bars", len(normalized)),
		logger.Int("sessions", len(result.Tables)),
		logger.Duration("duration", elapsed),
	)
	return result, nil
}

// buildTable derives one session's records in date order
func (e *Engine) buildTable(symbol string, c *session.Classifier, bars []models.Bar, a anchors) []models.DayRangeRecord {
	spec := c.Spec()
	days := session.GroupByDate(c.Tag(bars))
	records := make([]models.DayRangeRecord, 0, len(days))

	for _, day := range days {
		if limit := e.config.DuplicateBarLimit; limit > 0 {
			if n := repeatedBars(day); n > limit {
				daysTotal.WithLabelValues(string(spec.ID), outcomeFiltered).Inc()
				logger.Debug("Skipping day with repeated bars",
					logger.String("symbol", symbol),
					logger.String("session", string(spec.ID)),
					logger.String("date", day.Date),
					logger.Int("repeated", n),
				)
				continue
			}
		}

		rec, ok, err := e.deriveDay(symbol, spec, day, a)
		switch {
		case err != nil:
			daysTotal.WithLabelValues(string(spec.ID), outcomeRecovered).Inc()
			logger.Error("Failed to derive day, skipping",
				logger.String("symbol", symbol),
				logger.String("session", string(spec.ID)),
				logger.String("date", day.Date),
				logger.ErrorField(err),
			)
		case !ok:
			daysTotal.WithLabelValues(string(spec.ID), outcomeDropped).Inc()
		default:
			daysTotal.WithLabelValues(string(spec.ID), outcomeEmitted).Inc()
			records = append(records, rec)
		}
	}
	return records
}

// deriveDay runs the per-day stages. A panic is confined to its date.
func (e *Engine) deriveDay(symbol string, spec session.Spec, day session.Day, a anchors) (rec models.DayRangeRecord, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, ok, err = models.DayRangeRecord{}, false, fmt.Errorf("panic deriving %s %s: %v", spec.ID, day.Date, r)
		}
	}()

	rec, ok = aggregateDay(symbol, spec.ID, day)
	if !ok {
		return rec, false, nil
	}
	rec = confirmDay(rec, day.Session, spec.Location, e.config.WindowSize)
	rec = excursionDay(rec, day.Session, spec.Location, e.config.WindowSize)
	rec = e.quantizer.levelDay(rec)
	rec = a.anchorDay(rec)
	return rec, true, nil
}
