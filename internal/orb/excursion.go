package orb

import (
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

// pricePoint is an extreme price and the first bar it occurred on
type pricePoint struct {
	value float64
	at    time.Time
}

func (p pricePoint) valuePtr() *float64 { return models.Float(p.value) }
func (p pricePoint) timePtr() *time.Time { return models.TimePtr(p.at) }

// span returns the first-occurrence max high and min low of a non-empty window
func span(bars []session.TaggedBar) (high, low pricePoint) {
	high = pricePoint{bars[0].High, bars[0].Timestamp}
	low = pricePoint{bars[0].Low, bars[0].Timestamp}
	for _, b := range bars[1:] {
		if b.High > high.value {
			high = pricePoint{b.High, b.Timestamp}
		}
		if b.Low < low.value {
			low = pricePoint{b.Low, b.Timestamp}
		}
	}
	return high, low
}

// excursionDay measures the pre- and after-confirmation extremes and the
// retracement taken on the way to the first favorable extreme.
func excursionDay(rec models.DayRangeRecord, bars []session.TaggedBar, loc *time.Location, windowSize time.Duration) models.DayRangeRecord {
	rec.RetracementWindow = models.NoBreakoutWindow
	rec.ExpansionWindow = models.NoBreakoutWindow
	if rec.BreakoutTime == nil || !rec.Confirmed() {
		return rec
	}
	breakout := *rec.BreakoutTime

	var before, after []session.TaggedBar
	confirmation := -1
	for i := range bars {
		switch ts := bars[i].Timestamp; {
		case ts.Before(breakout):
			before = append(before, bars[i])
		case ts.After(breakout):
			after = append(after, bars[i])
		default:
			confirmation = i
		}
	}

	if len(before) == 0 {
		rec.PreConfirmationMin = models.Float(rec.RangeClose)
		rec.PreConfirmationMax = models.Float(rec.RangeClose)
	} else {
		high, low := span(before)
		rec.PreConfirmationMax, rec.PreConfirmationMaxTime = high.valuePtr(), high.timePtr()
		rec.PreConfirmationMin, rec.PreConfirmationMinTime = low.valuePtr(), low.timePtr()
	}

	// a breakout on the last bar of the session is measured on that bar alone
	if len(after) == 0 {
		if confirmation < 0 {
			return rec
		}
		after = bars[confirmation : confirmation+1]
	}

	high, low := span(after)
	rec.AfterConfirmationMax, rec.AfterConfirmationMaxTime = high.valuePtr(), high.timePtr()
	rec.AfterConfirmationMin, rec.AfterConfirmationMinTime = low.valuePtr(), low.timePtr()

	favorable := high
	if rec.Direction == models.DirectionShort {
		favorable = low
	}

	end := len(after)
	for i, b := range after {
		if b.Timestamp.After(favorable.at) {
			end = i
			break
		}
	}
	truncHigh, truncLow := span(after[:end])

	expansion, retracement := truncHigh, truncLow
	if rec.Direction == models.DirectionShort {
		expansion, retracement = truncLow, truncHigh
	}

	rec.MaxExpansionValue, rec.MaxExpansionTime = expansion.valuePtr(), expansion.timePtr()
	rec.MaxRetracementValue, rec.MaxRetracementTime = retracement.valuePtr(), retracement.timePtr()

	if rec.Direction == models.DirectionLong {
		rec.RetraceIntoRange = retracement.value < rec.RangeHigh
		rec.RetraceIntoBody = retracement.value < rec.RangeHighBody
	} else {
		rec.RetraceIntoRange = retracement.value > rec.RangeLow
		rec.RetraceIntoBody = retracement.value > rec.RangeLowBody
	}

	rec.ExpansionWindow = windowLabel(rec.MaxExpansionTime, loc, windowSize)
	rec.RetracementWindow = windowLabel(rec.MaxRetracementTime, loc, windowSize)
	return rec
}
