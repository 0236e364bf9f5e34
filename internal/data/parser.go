package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
)

var (
	// ErrUnsupportedFormat is returned when the column layout of a file cannot be detected
	ErrUnsupportedFormat = errors.New("unsupported bar file format")
	// ErrInvalidRow is returned when a row cannot be parsed
	ErrInvalidRow = errors.New("invalid bar row")
)

// Timestamps without an offset are read in the parser's location
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// Layouts of files that carry the date and the time of day in two columns
var splitLayouts = []string{
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// columns maps bar fields to record indexes. date is -1 when the time
// column carries the full timestamp.
type columns struct {
	date, time             int
	open, high, low, close int
}

func (c columns) width() int {
	max := c.time
	for _, i := range []int{c.date, c.open, c.high, c.low, c.close} {
		if i > max {
			max = i
		}
	}
	return max + 1
}

// Parser converts delimited bar files to bars
type Parser struct {
	symbol   string
	location *time.Location
}

// NewParser creates a parser that stamps bars with symbol and converts their
// timestamps to location
func NewParser(symbol string, location *time.Location) *Parser {
	if location == nil {
		location = time.UTC
	}
	return &Parser{symbol: symbol, location: location}
}

// Parse reads every row of r. The layout is either a header naming the
// time, open, high, low and close columns, or headerless rows of
// time,open,high,low,close or date,time,open,high,low,close.
func (p *Parser) Parse(r io.Reader) ([]models.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols, isHeader, err := p.detect(first)
	if err != nil {
		return nil, err
	}

	var bars []models.Bar
	line := 1
	if !isHeader {
		bar, err := p.parseRecord(first, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		bar, err := p.parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (p *Parser) detect(record []string) (columns, bool, error) {
	if cols, ok := headerColumns(record); ok {
		return cols, true, nil
	}
	if len(record) >= 5 {
		if _, err := p.parseTimestamp(record[0]); err == nil {
			return columns{date: -1, time: 0, open: 1, high: 2, low: 3, close: 4}, false, nil
		}
	}
	if len(record) >= 6 {
		if _, err := p.parseSplit(record[0], record[1]); err == nil {
			return columns{date: 0, time: 1, open: 2, high: 3, low: 4, close: 5}, false, nil
		}
	}
	return columns{}, false, fmt.Errorf("%w: %q", ErrUnsupportedFormat, strings.Join(record, ","))
}

func headerColumns(record []string) (columns, bool) {
	cols := columns{date: -1, time: -1, open: -1, high: -1, low: -1, close: -1}
	for i, name := range record {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "time", "timestamp", "datetime":
			if cols.time < 0 {
				cols.time = i
			}
		case "date":
			cols.date = i
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		}
	}
	if cols.time < 0 {
		cols.time, cols.date = cols.date, -1
	}
	if cols.time < 0 || cols.open < 0 || cols.high < 0 || cols.low < 0 || cols.close < 0 {
		return columns{}, false
	}
	return cols, true
}

func (p *Parser) parseRecord(record []string, cols columns) (models.Bar, error) {
	if len(record) < cols.width() {
		return models.Bar{}, fmt.Errorf("%w: expected %d fields, got %d", ErrInvalidRow, cols.width(), len(record))
	}

	var (
		ts  time.Time
		err error
	)
	if cols.date >= 0 {
		ts, err = p.parseSplit(record[cols.date], record[cols.time])
	} else {
		ts, err = p.parseTimestamp(record[cols.time])
	}
	if err != nil {
		return models.Bar{}, err
	}

	bar := models.Bar{Symbol: p.symbol, Timestamp: ts}
	fields := []struct {
		dst *float64
		idx int
	}{
		{&bar.Open, cols.open},
		{&bar.High, cols.high},
		{&bar.Low, cols.low},
		{&bar.Close, cols.close},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[f.idx]), 64)
		if err != nil {
			return models.Bar{}, fmt.Errorf("%w: invalid price %q", ErrInvalidRow, record[f.idx])
		}
		*f.dst = v
	}
	return bar, nil
}

// parseTimestamp accepts epoch seconds or one of timestampLayouts
func (p *Parser) parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).In(p.location), nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, p.location); err == nil {
			return ts.In(p.location), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", ErrInvalidRow, value)
}

func (p *Parser) parseSplit(date, clock string) (time.Time, error) {
	value := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	for _, layout := range splitLayouts {
		if ts, err := time.ParseInLocation(layout, value, p.location); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date and time %q", ErrInvalidRow, value)
}
