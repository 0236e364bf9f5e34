package summary

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

func clock(date string, h, m int) *time.Time {
	d, _ := time.Parse(models.DateLayout, date)
	t := time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, time.UTC)
	return &t
}

// 2024-03-11 is a Monday
func fixture() *orb.Table {
	long := func(date string, retrace, expand float64, window string, h, m int) models.DayRangeRecord {
		return models.DayRangeRecord{
			Date:               date,
			Direction:          models.DirectionLong,
			Greenbox:           true,
			BreakoutTime:       clock(date, h, m),
			BreakoutWindow:     window,
			RetracementLevel:   models.Float(retrace),
			ExpansionLevel:     models.Float(expand),
			MaxRetracementTime: clock(date, h+1, m),
			MaxExpansionTime:   clock(date, h+2, m),
		}
	}
	short := models.DayRangeRecord{
		Date:             "2024-03-14",
		Direction:        models.DirectionShort,
		BreakoutTime:     clock("2024-03-14", 11, 0),
		BreakoutWindow:   "11:00 - 11:30",
		RetracementLevel: models.Float(0.6),
		ExpansionLevel:   models.Float(-0.8),
	}
	none := models.DayRangeRecord{
		Date:           "2024-04-15",
		Direction:      models.DirectionNone,
		RangeHolds:     true,
		BreakoutWindow: models.NoBreakoutWindow,
	}
	return &orb.Table{
		Symbol:         "ES",
		Session:        session.NewYork,
		OpeningMinutes: 60,
		Records: []models.DayRangeRecord{
			long("2024-03-11", 0.4, 1.8, "10:30 - 11:00", 10, 45),
			long("2024-03-12", 0.2, 1.5, "10:30 - 11:00", 10, 35),
			long("2024-03-13", 0.4, 2.0, "11:00 - 11:30", 11, 5),
			short,
			none,
		},
	}
}

func TestFilter_Match(t *testing.T) {
	table := fixture()
	yes := true

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty", Filter{}, []string{"2024-03-11", "2024-03-12", "2024-03-13", "2024-03-14", "2024-04-15"}},
		{"weekday", Filter{Weekdays: []time.Weekday{time.Monday}}, []string{"2024-03-11", "2024-04-15"}},
		{"month", Filter{Months: []time.Month{time.April}}, []string{"2024-04-15"}},
		{"year", Filter{Years: []int{2023}}, nil},
		{"direction", Filter{Direction: models.DirectionShort}, []string{"2024-03-14"}},
		{"greenbox", Filter{Greenbox: &yes}, []string{"2024-03-11", "2024-03-12", "2024-03-13"}},
		{"holds", Filter{RangeHolds: &yes}, []string{"2024-04-15"}},
		{"windows", Filter{BreakoutWindows: []string{"11:00 - 11:30"}}, []string{"2024-03-13", "2024-03-14"}},
		{"combined", Filter{Direction: models.DirectionLong, Weekdays: []time.Weekday{time.Tuesday, time.Wednesday}}, []string{"2024-03-12", "2024-03-13"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dates []string
			for _, r := range tt.filter.Apply(table.Records) {
				dates = append(dates, r.Date)
			}
			assert.Equal(t, tt.want, dates)
		})
	}
}

func TestParseFilter(t *testing.T) {
	q := url.Values{}
	q.Add("weekday", "mon,Tuesday")
	q.Add("month", "3")
	q.Add("year", "2024")
	q.Add("direction", "LONG")
	q.Add("holds", "false")
	q.Add("window", "10:30 - 11:00")
	q.Add("window", "11:00 - 11:30")

	f, err := ParseFilter(q)
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday}, f.Weekdays)
	assert.Equal(t, []time.Month{time.March}, f.Months)
	assert.Equal(t, []int{2024}, f.Years)
	assert.Equal(t, models.DirectionLong, f.Direction)
	require.NotNil(t, f.RangeHolds)
	assert.False(t, *f.RangeHolds)
	assert.Nil(t, f.Greenbox)
	assert.Equal(t, []string{"10:30 - 11:00", "11:00 - 11:30"}, f.BreakoutWindows)

	for _, bad := range []url.Values{
		{"weekday": {"funday"}},
		{"month": {"13"}},
		{"year": {"last"}},
		{"direction": {"sideways"}},
		{"greenbox": {"maybe"}},
	} {
		_, err := ParseFilter(bad)
		assert.True(t, errors.Is(err, ErrInvalidFilter), "%v", bad)
	}
}

func TestLevelDistribution(t *testing.T) {
	d := LevelDistribution([]float64{0.4, 0.2, 0.4, 0.6}, false, false)
	require.Equal(t, 4, d.Total)
	require.Len(t, d.Buckets, 3)

	assert.Equal(t, 0.2, d.Buckets[0].Level)
	assert.Equal(t, 1, d.Buckets[0].Count)
	assert.InDelta(t, 0.25, d.Buckets[0].Pct, 1e-9)
	assert.InDelta(t, 0.25, d.Buckets[0].Percentile, 1e-9)
	assert.Equal(t, 2, d.Buckets[1].Count)
	assert.InDelta(t, 0.75, d.Buckets[1].Percentile, 1e-9)
	assert.InDelta(t, 1.0, d.Buckets[2].Percentile, 1e-9)

	inverse := LevelDistribution([]float64{0.4, 0.2, 0.4, 0.6}, true, true)
	assert.Equal(t, 0.6, inverse.Buckets[0].Level)
	assert.InDelta(t, 0.0, inverse.Buckets[0].Percentile, 1e-9)
	assert.Equal(t, 0.2, inverse.Buckets[2].Level)
	assert.InDelta(t, 0.75, inverse.Buckets[2].Percentile, 1e-9)

	empty := LevelDistribution(nil, false, false)
	assert.Equal(t, 0, empty.Total)
	assert.Empty(t, empty.Buckets)
}

func TestStats(t *testing.T) {
	s := Stats([]float64{2.0, 1.5, 1.8, 1.5})
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 1.7, s.Mean, 1e-9)
	assert.InDelta(t, 1.65, s.Median, 1e-9)
	assert.Equal(t, 1.5, s.P10)
	assert.Equal(t, 2.0, s.P90)
	assert.Greater(t, s.StdDev, 0.0)

	single := Stats([]float64{0.4})
	assert.Equal(t, 0.4, single.Median)
	assert.Equal(t, 0.0, single.StdDev)

	assert.Equal(t, LevelStats{}, Stats(nil))
}

func TestMedianTimeOfDay(t *testing.T) {
	times := []time.Time{
		*clock("2024-03-11", 10, 45),
		*clock("2024-03-12", 10, 35),
		*clock("2024-03-13", 11, 5),
		*clock("2024-03-14", 11, 0),
	}
	assert.Equal(t, "11:00:00", MedianTimeOfDay(times, nil))
	assert.Equal(t, "11:00:00", MedianTimeOfDay(times, time.UTC))
	assert.Equal(t, "", MedianTimeOfDay(nil, time.UTC))
}

func TestMedianTimeOfDay_SessionZone(t *testing.T) {
	ny, err := session.LoadLocation("America/New_York")
	require.NoError(t, err)

	// the same instants carried in mixed zones
	times := []time.Time{
		time.Date(2024, 7, 1, 14, 45, 0, 0, time.UTC),
		time.Date(2024, 7, 2, 10, 35, 0, 0, ny),
		time.Date(2024, 7, 3, 15, 5, 0, 0, time.UTC),
	}
	assert.Equal(t, "14:45:00", MedianTimeOfDay(times, nil))
	assert.Equal(t, "10:45:00", MedianTimeOfDay(times, ny))
}

func TestBuild(t *testing.T) {
	report := Build(fixture(), Filter{}, time.UTC)

	assert.Equal(t, "ES", report.Symbol)
	assert.Equal(t, "ny", report.Session)
	assert.Equal(t, 5, report.Days)
	assert.Equal(t, 3, report.Long)
	assert.Equal(t, 1, report.Short)
	assert.Equal(t, 1, report.NoBreak)
	assert.Equal(t, 1, report.RangeHeld)

	require.Len(t, report.BreakoutWindows.Buckets, 3)
	assert.Equal(t, "10:30 - 11:00", report.BreakoutWindows.Buckets[0].Value)
	assert.Equal(t, 2, report.BreakoutWindows.Buckets[0].Count)
	assert.Equal(t, models.NoBreakoutWindow, report.BreakoutWindows.Buckets[2].Value)

	assert.Equal(t, 4, report.RetracementLevels.Total)
	assert.Equal(t, 4, report.Expansion.Count)
	assert.Equal(t, "11:00:00", report.MedianBreakoutTime)
	assert.Equal(t, "12:45:00", report.MedianExpansionTime)

	tokyo, err := session.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	shifted := Build(fixture(), Filter{}, tokyo)
	assert.Equal(t, "20:00:00", shifted.MedianBreakoutTime)
	assert.Equal(t, "21:45:00", shifted.MedianExpansionTime)

	longOnly := Build(fixture(), Filter{Direction: models.DirectionLong}, time.UTC)
	assert.Equal(t, 3, longOnly.Days)
	assert.InDelta(t, 1.8, longOnly.Expansion.Median, 1e-9)
	assert.InDelta(t, 0.4, longOnly.Retracement.Median, 1e-9)
}
