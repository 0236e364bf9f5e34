package orb

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
)

// ErrInvalidLevelStep is returned for a non-positive quantization step
var ErrInvalidLevelStep = errors.New("invalid level step")

// Rounding selects how a normalized price is snapped to the step grid
type Rounding int

const (
	// RoundSign floors non-negative levels and ceils negative ones
	RoundSign Rounding = iota
	RoundFloor
	RoundCeil
)

// Quantizer maps prices onto the opening range scale (low = 0, high = 1)
// and snaps them to a fixed step
type Quantizer struct {
	step   decimal.Decimal
	places int32
}

// NewQuantizer creates a quantizer for the given step
func NewQuantizer(step float64) (*Quantizer, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevelStep, step)
	}
	d := decimal.NewFromFloat(step)
	places := -d.Exponent()
	if places < 0 {
		places = 0
	}
	return &Quantizer{step: d, places: places}, nil
}

// Step returns the quantization step
func (q *Quantizer) Step() float64 {
	return q.step.InexactFloat64()
}

// Level returns the quantized level of v against the range [low, high].
// It reports false for a flat range.
func (q *Quantizer) Level(low, high, v float64, rounding Rounding) (float64, bool) {
	width := decimal.NewFromFloat(high).Sub(decimal.NewFromFloat(low))
	if width.IsZero() {
		return 0, false
	}
	raw := decimal.NewFromFloat(v).Sub(decimal.NewFromFloat(low)).Div(width)
	steps := raw.Div(q.step)

	switch rounding {
	case RoundFloor:
		steps = steps.Floor()
	case RoundCeil:
		steps = steps.Ceil()
	default:
		if raw.Sign() >= 0 {
			steps = steps.Floor()
		} else {
			steps = steps.Ceil()
		}
	}

	level, _ := steps.Mul(q.step).Round(q.places).Float64()
	return level, true
}

// fieldRounding is the rounding of each level column for one direction
type fieldRounding struct {
	anchors           Rounding // range open/close, session close/high/low
	expansion         Rounding
	retracement       Rounding
	afterConfirmation Rounding
	preConfirmation   Rounding
	// swapAfter stores the after-confirmation minimum in the max level column
	// and the maximum in the min level column
	swapAfter bool
}

// roundingFor returns the per-column rounding of a day. Long days ceil every
// column except expansion, which floors. Short days and days without a
// breakout mirror that and report the after-confirmation extremes swapped.
// Pre-confirmation levels always use the sign rule.
func roundingFor(d models.Direction) fieldRounding {
	if d == models.DirectionLong {
		return fieldRounding{
			anchors:           RoundCeil,
			expansion:         RoundFloor,
			retracement:       RoundCeil,
			afterConfirmation: RoundCeil,
			preConfirmation:   RoundSign,
		}
	}
	return fieldRounding{
		anchors:           RoundFloor,
		expansion:         RoundCeil,
		retracement:       RoundFloor,
		afterConfirmation: RoundFloor,
		preConfirmation:   RoundSign,
		swapAfter:         true,
	}
}

// levelDay fills the level columns of a record
func (q *Quantizer) levelDay(rec models.DayRangeRecord) models.DayRangeRecord {
	r := roundingFor(rec.Direction)
	level := func(v float64, rounding Rounding) *float64 {
		l, ok := q.Level(rec.RangeLow, rec.RangeHigh, v, rounding)
		if !ok {
			return nil
		}
		return models.Float(l)
	}
	optional := func(v *float64, rounding Rounding) *float64 {
		if v == nil {
			return nil
		}
		return level(*v, rounding)
	}

	rec.RangeOpenLevel = level(rec.RangeOpen, r.anchors)
	rec.RangeCloseLevel = level(rec.RangeClose, r.anchors)
	rec.SessionCloseLevel = level(rec.SessionClose, r.anchors)
	rec.SessionHighLevel = level(rec.SessionHigh, r.anchors)
	rec.SessionLowLevel = level(rec.SessionLow, r.anchors)
	rec.PreConfirmationMinLevel = optional(rec.PreConfirmationMin, r.preConfirmation)
	rec.PreConfirmationMaxLevel = optional(rec.PreConfirmationMax, r.preConfirmation)

	afterMin, afterMax := rec.AfterConfirmationMin, rec.AfterConfirmationMax
	if r.swapAfter {
		afterMin, afterMax = afterMax, afterMin
	}
	rec.AfterConfirmationMinLevel = optional(afterMin, r.afterConfirmation)
	rec.AfterConfirmationMaxLevel = optional(afterMax, r.afterConfirmation)
	rec.RetracementLevel = optional(rec.MaxRetracementValue, r.retracement)
	rec.ExpansionLevel = optional(rec.MaxExpansionValue, r.expansion)
	return rec
}
