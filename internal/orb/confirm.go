package orb

import (
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

// confirmDay scans the session window for the first close beyond either side
// of the opening range and derives the day's direction.
func confirmDay(rec models.DayRangeRecord, bars []session.TaggedBar, loc *time.Location, windowSize time.Duration) models.DayRangeRecord {
	var up, down *time.Time
	for i := range bars {
		b := &bars[i]
		if up == nil && b.Close > rec.RangeHigh {
			up = models.TimePtr(b.Timestamp)
		}
		if down == nil && b.Close < rec.RangeLow {
			down = models.TimePtr(b.Timestamp)
		}
		if up != nil && down != nil {
			break
		}
	}

	rec.UpConfirmationTime = up
	rec.DownConfirmationTime = down
	rec.RangeHolds = up == nil || down == nil

	switch {
	case up != nil && (down == nil || up.Before(*down)):
		rec.Direction = models.DirectionLong
		rec.BreakoutTime = models.TimePtr(*up)
		rec.CloseOutsideRange = rec.SessionClose > rec.RangeHigh
	case down != nil:
		rec.Direction = models.DirectionShort
		rec.BreakoutTime = models.TimePtr(*down)
		rec.CloseOutsideRange = rec.SessionClose < rec.RangeLow
	default:
		rec.Direction = models.DirectionNone
	}

	rec.BreakoutWindow = windowLabel(rec.BreakoutTime, loc, windowSize)
	return rec
}

// windowLabel buckets t into a fixed-size window of the local clock and
// labels it "HH:MM - HH:MM"
func windowLabel(t *time.Time, loc *time.Location, size time.Duration) string {
	if t == nil {
		return models.NoBreakoutWindow
	}
	tod := session.TimeOfDayOf(t.In(loc))
	start := tod - tod%session.TimeOfDay(size)
	return start.String() + " - " + start.Add(size).String()
}
