package orb

import (
	"github.com/shopspring/decimal"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

// rangeSizePlaces is the precision range sizes are rounded to
const rangeSizePlaces = 6

type extremes struct {
	high, low         float64
	highBody, lowBody float64
	open, close       float64
	highBar, lowBar   int
}

// reduce folds bars into their OHLC and body extremes. High and low keep
// their first occurrence.
func reduce(bars []session.TaggedBar) extremes {
	first := bars[0]
	x := extremes{
		high:     first.High,
		low:      first.Low,
		highBody: first.BodyHigh(),
		lowBody:  first.BodyLow(),
		open:     first.Open,
		close:    bars[len(bars)-1].Close,
	}
	for i := 1; i < len(bars); i++ {
		b := bars[i]
		if b.High > x.high {
			x.high = b.High
			x.highBar = i
		}
		if b.Low < x.low {
			x.low = b.Low
			x.lowBar = i
		}
		if body := b.BodyHigh(); body > x.highBody {
			x.highBody = body
		}
		if body := b.BodyLow(); body < x.lowBody {
			x.lowBody = body
		}
	}
	return x
}

// aggregateDay builds the opening range and session columns of one trading
// day. It reports false for a day that must not be emitted: no opening range
// bars, no session bars, or a flat opening range.
func aggregateDay(symbol string, id session.ID, day session.Day) (models.DayRangeRecord, bool) {
	if len(day.OpeningRange) == 0 || len(day.Session) == 0 {
		return models.DayRangeRecord{}, false
	}

	r := reduce(day.OpeningRange)
	if r.high == r.low {
		return models.DayRangeRecord{}, false
	}
	s := reduce(day.Session)

	rec := models.DayRangeRecord{
		Symbol:  symbol,
		Session: string(id),
		Date:    day.Date,

		RangeHigh:     r.high,
		RangeLow:      r.low,
		RangeOpen:     r.open,
		RangeClose:    r.close,
		RangeHighBody: r.highBody,
		RangeLowBody:  r.lowBody,
		Greenbox:      r.open < r.close,
		RangeSize:     roundedDiff(r.high, r.low),

		SessionHigh:     s.high,
		SessionLow:      s.low,
		SessionClose:    s.close,
		SessionHighBody: s.highBody,
		SessionLowBody:  s.lowBody,
		SessionHighTime: day.Session[s.highBar].Timestamp,
		SessionLowTime:  day.Session[s.lowBar].Timestamp,
	}

	rec.BreachedRangeHigh = rec.RangeHigh < rec.SessionHigh
	rec.BreachedRangeLow = rec.RangeLow > rec.SessionLow
	rec.ClosedAboveRangeHigh = rec.RangeHigh < rec.SessionHighBody
	rec.ClosedBelowRangeLow = rec.RangeLow > rec.SessionLowBody
	rec.RangeConfirmed, rec.RangeTrueClose = confirmationFlags(rec.ClosedAboveRangeHigh, rec.ClosedBelowRangeLow)
	rec.RangeTrueWick = rec.BreachedRangeLow != rec.BreachedRangeHigh

	return rec, true
}

// confirmationFlags derives range_confirmed (either side closed outside) and
// range_true_close (exactly one side closed outside)
func confirmationFlags(closedAbove, closedBelow bool) (confirmed, trueClose bool) {
	return closedAbove || closedBelow, closedAbove != closedBelow
}

func roundedDiff(a, b float64) float64 {
	v, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(rangeSizePlaces).Float64()
	return v
}
