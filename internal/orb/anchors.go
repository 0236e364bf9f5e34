package orb

import (
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
)

// anchors holds the midnight opens of a bar series keyed by date
type anchors struct {
	dayOpen  map[string]float64 // open of the 00:00 UTC bar
	trueOpen map[string]float64 // open of the 00:00 bar in the true-open timezone
}

func buildAnchors(bars []models.Bar, trueOpenLoc *time.Location) anchors {
	a := anchors{
		dayOpen:  make(map[string]float64),
		trueOpen: make(map[string]float64),
	}
	for _, b := range bars {
		if utc := b.Timestamp.UTC(); isMidnight(utc) {
			a.dayOpen[utc.Format(models.DateLayout)] = b.Open
		}
		if trueOpenLoc == nil {
			continue
		}
		if local := b.Timestamp.In(trueOpenLoc); isMidnight(local) {
			if _, ok := a.trueOpen[local.Format(models.DateLayout)]; !ok {
				a.trueOpen[local.Format(models.DateLayout)] = b.Open
			}
		}
	}
	return a
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// tookOut reports whether the opening range traded through anchor and closed
// back on the side it opened on
func tookOut(rec *models.DayRangeRecord, anchor float64) bool {
	return (rec.RangeOpen > anchor && rec.RangeLow < anchor && rec.RangeClose > anchor) ||
		(rec.RangeOpen < anchor && rec.RangeHigh > anchor && rec.RangeClose < anchor)
}

// anchorDay attaches the day and true opens of the record's date
func (a anchors) anchorDay(rec models.DayRangeRecord) models.DayRangeRecord {
	if open, ok := a.dayOpen[rec.Date]; ok {
		rec.DayOpen = models.Float(open)
		rec.TookOutDayOpen = tookOut(&rec, open)
	}
	if open, ok := a.trueOpen[rec.Date]; ok {
		rec.TrueOpen = models.Float(open)
		rec.TookOutTrueOpen = tookOut(&rec, open)
	}
	return rec
}
