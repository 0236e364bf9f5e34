package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

// ErrUnknownSymbol is returned when no bar directory exists for a symbol
var ErrUnknownSymbol = errors.New("unknown symbol")

// CSVStore serves bars from a directory holding one sub-directory of CSV
// files per symbol. Files of a symbol are merged, deduplicated by timestamp
// (first file in name order wins) and sorted.
type CSVStore struct {
	dir      string
	location *time.Location

	mu   sync.RWMutex
	bars map[string][]models.Bar
}

// NewCSVStore creates a store over dir, converting bars to location
func NewCSVStore(dir string, location *time.Location) (*CSVStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open bar directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bar directory %s is not a directory", dir)
	}
	if location == nil {
		location = time.UTC
	}
	return &CSVStore{
		dir:      dir,
		location: location,
		bars:     make(map[string][]models.Bar),
	}, nil
}

// Symbols lists the symbols that have a bar directory
func (s *CSVStore) Symbols() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list bar directory: %w", err)
	}
	var symbols []string
	for _, entry := range entries {
		if entry.IsDir() {
			symbols = append(symbols, entry.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// GetBars returns the symbol's bars within [start, end]. Files are read once
// and kept in memory until Reload.
func (s *CSVStore) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	bars, err := s.load(ctx, symbol)
	if err != nil {
		return nil, err
	}

	lo := 0
	if !start.IsZero() {
		lo = sort.Search(len(bars), func(i int) bool { return !bars[i].Timestamp.Before(start) })
	}
	hi := len(bars)
	if !end.IsZero() {
		hi = sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp.After(end) })
	}
	if lo >= hi {
		return []models.Bar{}, nil
	}

	result := make([]models.Bar, hi-lo)
	copy(result, bars[lo:hi])
	return result, nil
}

// Reload drops the cached bars of symbol
func (s *CSVStore) Reload(symbol string) {
	s.mu.Lock()
	delete(s.bars, symbol)
	s.mu.Unlock()
}

func (s *CSVStore) load(ctx context.Context, symbol string) ([]models.Bar, error) {
	s.mu.RLock()
	bars, ok := s.bars[symbol]
	s.mu.RUnlock()
	if ok {
		return bars, nil
	}

	symbolDir := filepath.Join(s.dir, symbol)
	entries, err := os.ReadDir(symbolDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
		}
		return nil, fmt.Errorf("failed to list %s: %w", symbolDir, err)
	}

	parser := NewParser(symbol, s.location)
	var merged []models.Bar
	files := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(symbolDir, entry.Name())
		fileBars, err := s.readFile(parser, path)
		if err != nil {
			return nil, err
		}
		merged = append(merged, fileBars...)
		files++
	}

	normalized, invalid := models.NormalizeBars(merged)
	if invalid > 0 {
		logger.Warn("Dropped invalid bars",
			logger.String("symbol", symbol),
			logger.Int("count", invalid),
		)
	}
	logger.Info("Loaded bars from CSV",
		logger.String("symbol", symbol),
		logger.Int("files", files),
		logger.Int("rows", len(merged)),
		logger.Int("bars", len(normalized)),
	)

	s.mu.Lock()
	s.bars[symbol] = normalized
	s.mu.Unlock()
	return normalized, nil
}

func (s *CSVStore) readFile(parser *Parser, path string) ([]models.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	bars, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return bars, nil
}

// WriteBars writes one file per symbol named <symbol>_<first date>_<last date>.csv
func (s *CSVStore) WriteBars(ctx context.Context, bars []models.Bar) error {
	bySymbol := make(map[string][]models.Bar)
	for _, bar := range bars {
		bySymbol[bar.Symbol] = append(bySymbol[bar.Symbol], bar)
	}

	for symbol, symbolBars := range bySymbol {
		if err := ctx.Err(); err != nil {
			return err
		}
		normalized, _ := models.NormalizeBars(symbolBars)
		if len(normalized) == 0 {
			continue
		}
		if err := s.writeFile(symbol, normalized); err != nil {
			return err
		}
		s.Reload(symbol)
	}
	return nil
}

func (s *CSVStore) writeFile(symbol string, bars []models.Bar) error {
	symbolDir := filepath.Join(s.dir, symbol)
	if err := os.MkdirAll(symbolDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", symbolDir, err)
	}

	name := fmt.Sprintf("%s_%s_%s.csv", symbol,
		bars[0].Timestamp.In(s.location).Format(models.DateLayout),
		bars[len(bars)-1].Timestamp.In(s.location).Format(models.DateLayout))
	path := filepath.Join(symbolDir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"time", "open", "high", "low", "close"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, bar := range bars {
		if err := w.Write([]string{
			bar.Timestamp.In(s.location).Format(time.RFC3339),
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
		}); err != nil {
			return fmt.Errorf("failed to write bar: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	logger.Info("Wrote bars to CSV",
		logger.String("symbol", symbol),
		logger.String("path", path),
		logger.Int("bars", len(bars)),
	)
	return nil
}

// Close implements storage.BarStorage
func (s *CSVStore) Close() error {
	return nil
}
