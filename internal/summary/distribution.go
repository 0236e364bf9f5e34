package summary

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/orb"
)

// Bucket is one value of a distribution
type Bucket struct {
	Value      string  `json:"value,omitempty"`
	Level      float64 `json:"level"`
	Count      int     `json:"count"`
	Pct        float64 `json:"pct"`
	Percentile float64 `json:"percentile"`
}

// Distribution counts how often each value occurs. Percentile is the
// running sum of Pct in ascending value order, or its complement when the
// distribution is inverse.
type Distribution struct {
	Total   int      `json:"total"`
	Buckets []Bucket `json:"buckets"`
}

// LevelStats describes the spread of a level column
type LevelStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	P10    float64 `json:"p10"`
	P90    float64 `json:"p90"`
}

// Report is the distribution report of one table
type Report struct {
	Symbol         string `json:"symbol"`
	Session        string `json:"session"`
	OpeningMinutes int    `json:"opening_minutes"`
	Filter         Filter `json:"filter"`

	Days      int `json:"days"`
	Long      int `json:"long"`
	Short     int `json:"short"`
	NoBreak   int `json:"no_breakout"`
	RangeHeld int `json:"range_held"`

	BreakoutWindows   Distribution `json:"breakout_windows"`
	RetracementLevels Distribution `json:"retracement_levels"`
	ExpansionLevels   Distribution `json:"expansion_levels"`

	Retracement LevelStats `json:"retracement"`
	Expansion   LevelStats `json:"expansion"`

	MedianBreakoutTime    string `json:"median_breakout_time,omitempty"`
	MedianRetracementTime string `json:"median_retracement_time,omitempty"`
	MedianExpansionTime   string `json:"median_expansion_time,omitempty"`
}

// Build filters table and summarizes the remaining days. Median times are
// read on the clock of loc, the table's session zone.
func Build(table *orb.Table, f Filter, loc *time.Location) *Report {
	records := f.Apply(table.Records)
	report := &Report{
		Symbol:         table.Symbol,
		Session:        string(table.Session),
		OpeningMinutes: table.OpeningMinutes,
		Filter:         f,
		Days:           len(records),
	}

	var windows []string
	var retracements, expansions []float64
	var breakoutTimes, retraceTimes, expansionTimes []time.Time
	for i := range records {
		r := &records[i]
		switch r.Direction {
		case models.DirectionLong:
			report.Long++
		case models.DirectionShort:
			report.Short++
		default:
			report.NoBreak++
		}
		if r.RangeHolds {
			report.RangeHeld++
		}

		windows = append(windows, r.BreakoutWindow)
		if r.RetracementLevel != nil {
			retracements = append(retracements, *r.RetracementLevel)
		}
		if r.ExpansionLevel != nil {
			expansions = append(expansions, *r.ExpansionLevel)
		}
		if r.BreakoutTime != nil {
			breakoutTimes = append(breakoutTimes, *r.BreakoutTime)
		}
		if r.MaxRetracementTime != nil {
			retraceTimes = append(retraceTimes, *r.MaxRetracementTime)
		}
		if r.MaxExpansionTime != nil {
			expansionTimes = append(expansionTimes, *r.MaxExpansionTime)
		}
	}

	// Short days retrace upward and expand downward, so their likelihoods
	// accumulate from the opposite end.
	short := f.Direction == models.DirectionShort
	report.BreakoutWindows = WindowDistribution(windows)
	report.RetracementLevels = LevelDistribution(retracements, !short, false)
	report.ExpansionLevels = LevelDistribution(expansions, short, short)
	report.Retracement = Stats(retracements)
	report.Expansion = Stats(expansions)
	report.MedianBreakoutTime = MedianTimeOfDay(breakoutTimes, loc)
	report.MedianRetracementTime = MedianTimeOfDay(retraceTimes, loc)
	report.MedianExpansionTime = MedianTimeOfDay(expansionTimes, loc)
	return report
}

// WindowDistribution counts window labels in label order
func WindowDistribution(windows []string) Distribution {
	counts := make(map[string]int)
	for _, w := range windows {
		counts[w]++
	}
	labels := make([]string, 0, len(counts))
	for w := range counts {
		labels = append(labels, w)
	}
	sort.Strings(labels)

	buckets := make([]Bucket, len(labels))
	for i, w := range labels {
		buckets[i] = Bucket{Value: w, Count: counts[w]}
	}
	return finish(buckets, len(windows), false, false)
}

// LevelDistribution counts level values. inverse reports the complement of
// the running percentage; descending lists the highest level first.
func LevelDistribution(levels []float64, inverse, descending bool) Distribution {
	counts := make(map[float64]int)
	for _, l := range levels {
		counts[l]++
	}
	values := make([]float64, 0, len(counts))
	for l := range counts {
		values = append(values, l)
	}
	sort.Float64s(values)

	buckets := make([]Bucket, len(values))
	for i, l := range values {
		buckets[i] = Bucket{Level: l, Count: counts[l]}
	}
	return finish(buckets, len(levels), inverse, descending)
}

func finish(buckets []Bucket, total int, inverse, descending bool) Distribution {
	running := 0
	for i := range buckets {
		running += buckets[i].Count
		buckets[i].Pct = float64(buckets[i].Count) / float64(total)
		buckets[i].Percentile = float64(running) / float64(total)
		if inverse {
			buckets[i].Percentile = 1 - buckets[i].Percentile
		}
	}
	if descending {
		for i, j := 0, len(buckets)-1; i < j; i, j = i+1, j-1 {
			buckets[i], buckets[j] = buckets[j], buckets[i]
		}
	}
	return Distribution{Total: total, Buckets: buckets}
}

// Stats summarizes levels; the zero value describes an empty column
func Stats(levels []float64) LevelStats {
	if len(levels) == 0 {
		return LevelStats{}
	}
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		std = 0
	}
	return LevelStats{
		Count:  len(sorted),
		Mean:   mean,
		Median: median(sorted),
		StdDev: std,
		P10:    stat.Quantile(0.1, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
}

// median of sorted values, averaging the middle pair
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}

// MedianTimeOfDay returns the upper median clock time ("15:04:05") of times
// in loc, or "" for no times. A nil loc keeps each time's own zone.
func MedianTimeOfDay(times []time.Time, loc *time.Location) string {
	if len(times) == 0 {
		return ""
	}
	seconds := make([]int, len(times))
	for i, t := range times {
		if loc != nil {
			t = t.In(loc)
		}
		seconds[i] = t.Hour()*3600 + t.Minute()*60 + t.Second()
	}
	sort.Ints(seconds)

	s := seconds[len(seconds)/2]
	return time.Date(0, 1, 1, 0, 0, s, 0, time.UTC).Format("15:04:05")
}
