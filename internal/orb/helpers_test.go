package orb

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

// utcSpec is a 09:30 to 16:00 session with a one hour opening range in UTC
func utcSpec(id session.ID) session.Spec {
	return session.Spec{
		ID:              id,
		OpeningStart:    session.Clock(9, 30),
		OpeningDuration: time.Hour,
		SessionEnd:      session.Clock(16, 0),
		Location:        time.UTC,
	}
}

func at(date string, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func bar(date, clock string, o, h, l, c float64) models.Bar {
	return models.Bar{Symbol: "NQ", Timestamp: at(date, clock), Open: o, High: h, Low: l, Close: c}
}

// longDay is an opening range of [100, 110] confirmed long at 10:45, pulling
// back to 104 before expanding to 118, then falling to 101
func longDay(date string) []models.Bar {
	return []models.Bar{
		bar(date, "09:30", 100, 105, 100, 104),
		bar(date, "09:45", 104, 110, 103, 108),
		bar(date, "10:00", 108, 109, 102, 106),
		bar(date, "10:15", 106, 108, 104, 107),
		bar(date, "10:30", 107, 109, 106, 108),
		bar(date, "10:45", 108, 112, 107, 111),
		bar(date, "11:00", 111, 113, 104, 106),
		bar(date, "11:15", 106, 118, 105, 117),
		bar(date, "11:30", 117, 117, 101, 103),
		bar(date, "11:45", 103, 105, 102, 104),
	}
}

// shortDay mirrors longDay around 105
func shortDay(date string) []models.Bar {
	return mirror(longDay(date))
}

// offGridLongDay is longDay with the pullback, the expansion high and the
// session close moved between level steps
func offGridLongDay(date string) []models.Bar {
	bars := longDay(date)
	bars[6] = bar(date, "11:00", 111, 113, 104.05, 106)
	bars[7] = bar(date, "11:15", 106, 118.05, 105, 117)
	bars[9] = bar(date, "11:45", 103, 105, 102, 104.05)
	return bars
}

// mirror reflects bars around 105
func mirror(src []models.Bar) []models.Bar {
	out := make([]models.Bar, len(src))
	for i, b := range src {
		out[i] = models.Bar{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp,
			Open:      210 - b.Open,
			High:      210 - b.Low,
			Low:       210 - b.High,
			Close:     210 - b.Close,
		}
	}
	return out
}

// quietDay never closes outside its [100, 110] opening range
func quietDay(date string) []models.Bar {
	return []models.Bar{
		bar(date, "09:30", 100, 106, 100, 105),
		bar(date, "10:00", 105, 110, 104, 108),
		bar(date, "10:30", 108, 112, 107, 109),
		bar(date, "11:00", 109, 110, 98, 101),
		bar(date, "15:30", 101, 104, 100, 103),
	}
}

func tagDay(t *testing.T, spec session.Spec, bars []models.Bar) session.Day {
	t.Helper()
	c, err := session.NewClassifier(spec)
	require.NoError(t, err)
	days := session.GroupByDate(c.Tag(bars))
	require.Len(t, days, 1)
	return days[0]
}

// randomWalk generates five minute bars around the clock for a number of days
func randomWalk(seed int64, start time.Time, days int) []models.Bar {
	r := rand.New(rand.NewSource(seed))
	price := 15000.0
	var bars []models.Bar
	for ts := start; ts.Before(start.AddDate(0, 0, days)); ts = ts.Add(5 * time.Minute) {
		open := price
		closePrice := open + (r.Float64()-0.5)*20
		high := max(open, closePrice) + r.Float64()*5
		low := min(open, closePrice) - r.Float64()*5
		// round to the tick so repeated runs compare exactly
		bars = append(bars, models.Bar{
			Symbol:    "NQ",
			Timestamp: ts,
			Open:      tick(open),
			High:      tick(high),
			Low:       tick(low),
			Close:     tick(closePrice),
		})
		price = closePrice
	}
	return bars
}

func tick(v float64) float64 {
	return float64(int64(v*4)) / 4
}
