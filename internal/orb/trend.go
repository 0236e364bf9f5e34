package orb

import (
	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

// Range is an opening range's bounds
type Range struct {
	High float64
	Low  float64
}

// Midline returns the middle of the range
func (r Range) Midline() float64 {
	return (r.High-r.Low)/2 + r.Low
}

func rangeOf(rec *models.DayRangeRecord) Range {
	return Range{High: rec.RangeHigh, Low: rec.RangeLow}
}

// ClassifyTrend labels cur against the preceding session's range. Rules are
// evaluated in order and the first match wins.
func ClassifyTrend(cur, prev Range) models.TrendModel {
	mid := prev.Midline()
	switch {
	case cur.Low >= prev.Low && cur.Low <= mid && cur.High > prev.High:
		return models.TrendWeakUptrend
	case cur.Low > mid && cur.Low <= prev.High && cur.High > prev.High:
		return models.TrendMediumUptrend
	case cur.Low > prev.High:
		return models.TrendStrongUptrend
	case cur.High >= mid && cur.High <= prev.High && cur.Low < prev.Low:
		return models.TrendWeakDowntrend
	case cur.High >= prev.Low && cur.High < mid && cur.Low < prev.Low:
		return models.TrendMediumDowntrend
	case cur.High < prev.Low:
		return models.TrendStrongDowntrend
	case cur.High < prev.High && cur.Low > prev.Low:
		return models.TrendContraction
	case cur.High > prev.High && cur.Low < prev.Low:
		return models.TrendExpansion
	default:
		return models.TrendNone
	}
}

// predecessorIndex keys a predecessor table by the date it is joined on.
// With a day shift of n, each record is keyed by the date n rows later, so
// the last n records have no successor to attach to.
func predecessorIndex(records []models.DayRangeRecord, shift int) map[string]*models.DayRangeRecord {
	index := make(map[string]*models.DayRangeRecord, len(records))
	for i := range records {
		j := i + shift
		if j >= len(records) {
			break
		}
		index[records[j].Date] = &records[i]
	}
	return index
}

// joinPredecessor attaches the cross-session columns to every table. The
// trend model of every session is computed first, then each record copies
// its predecessor's trend, direction, holds flag and size.
func joinPredecessor(tables map[session.ID][]models.DayRangeRecord, chain session.Chain) {
	type join struct {
		id    session.ID
		index map[string]*models.DayRangeRecord
	}

	joins := make([]join, 0, len(tables))
	for id := range tables {
		link, ok := chain.Predecessor(id)
		if !ok {
			continue
		}
		prev, ok := tables[link.Previous]
		if !ok {
			continue
		}
		joins = append(joins, join{id: id, index: predecessorIndex(prev, link.DayShift)})
	}

	for _, j := range joins {
		records := tables[j.id]
		for i := range records {
			rec := &records[i]
			prev, ok := j.index[rec.Date]
			if !ok {
				continue
			}
			model := ClassifyTrend(rangeOf(rec), rangeOf(prev))
			rec.TrendModel = &model
			rec.RangeMultiplier = models.Float(rec.RangeSize / prev.RangeSize)
		}
	}

	// predecessor trend models are final only once the first pass is done
	for _, j := range joins {
		records := tables[j.id]
		for i := range records {
			rec := &records[i]
			prev, ok := j.index[rec.Date]
			if !ok {
				continue
			}
			if prev.TrendModel != nil {
				model := *prev.TrendModel
				rec.PrevTrendModel = &model
			}
			direction := prev.Direction
			rec.PrevDirection = &direction
			rec.PrevRangeHolds = models.Bool(prev.RangeHolds)
			rec.PrevRangeSize = models.Float(prev.RangeSize)
		}
	}
}
