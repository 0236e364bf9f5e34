package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

var breakout = time.Date(2024, 3, 11, 10, 45, 0, 0, time.FixedZone("EDT", -4*3600))

func sampleTable() *orb.Table {
	trend := models.TrendMediumUptrend
	return &orb.Table{
		Symbol:         "ES",
		Session:        session.NewYork,
		OpeningMinutes: 60,
		Records: []models.DayRangeRecord{
			{
				Symbol:         "ES",
				Session:        "ny",
				Date:           "2024-03-11",
				RangeHigh:      110,
				RangeLow:       100,
				Direction:      models.DirectionLong,
				BreakoutTime:   models.TimePtr(breakout),
				BreakoutWindow: "10:30 - 11:00",
				ExpansionLevel: models.Float(1.8),
				TrendModel:     &trend,
			},
			{
				Symbol:         "ES",
				Session:        "ny",
				Date:           "2024-03-12",
				RangeHigh:      112.25,
				RangeLow:       104,
				Direction:      models.DirectionNone,
				RangeHolds:     true,
				BreakoutWindow: models.NoBreakoutWindow,
			},
		},
	}
}

func indexOf(t *testing.T, name string) int {
	t.Helper()
	for i, h := range Header() {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %s not found", name)
	return -1
}

func TestHeaderIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, name := range Header() {
		assert.False(t, seen[name], "duplicate column %s", name)
		seen[name] = true
	}
}

func TestCSVWriter(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		breakout string
	}{
		{"formatted time", Options{}, "2024-03-11 10:45:00-04:00"},
		{"unix time", Options{UnixTime: true}, strconv.FormatInt(breakout.UnixMicro(), 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, CSVWriter{Options: tt.opts}.Write(&buf, sampleTable()))

			r := csv.NewReader(&buf)
			r.Comma = ';'
			rows, err := r.ReadAll()
			require.NoError(t, err)
			require.Len(t, rows, 3)

			assert.Equal(t, Header(), rows[0])
			assert.Equal(t, "2024-03-11", rows[1][indexOf(t, "date")])
			assert.Equal(t, "long", rows[1][indexOf(t, "direction")])
			assert.Equal(t, tt.breakout, rows[1][indexOf(t, "breakout_time")])
			assert.Equal(t, "1.8", rows[1][indexOf(t, "expansion_level")])
			assert.Equal(t, "Medium Uptrend", rows[1][indexOf(t, "trend_model")])

			assert.Equal(t, "112.25", rows[2][indexOf(t, "range_high")])
			assert.Equal(t, "", rows[2][indexOf(t, "breakout_time")])
			assert.Equal(t, "", rows[2][indexOf(t, "expansion_level")])
			assert.Equal(t, "true", rows[2][indexOf(t, "range_holds")])
			assert.Equal(t, models.NoBreakoutWindow, rows[2][indexOf(t, "breakout_window")])
		})
	}
}

func TestXLSXWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSXWriter{}.Write(&buf, sampleTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "date", rows[0][0])
	assert.Equal(t, "2024-03-11", rows[1][indexOf(t, "date")])
	assert.Equal(t, "long", rows[1][indexOf(t, "direction")])
	assert.Equal(t, "110", rows[1][indexOf(t, "range_high")])
	assert.Equal(t, "none", rows[2][indexOf(t, "direction")])
}

func TestExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	exporter, err := NewExporter(dir, "csv", Options{})
	require.NoError(t, err)
	path, err := exporter.Export(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ES_ny_60.csv"), path)
	assert.FileExists(t, path)

	exporter, err = NewExporter(dir, "xlsx", Options{})
	require.NoError(t, err)
	path, err = exporter.Export(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ES_ny_60.xlsx"), path)

	_, err = NewExporter(dir, "parquet", Options{})
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}
