package models

import (
	"sort"
	"time"
)

// Bar is a single intraday OHLC bar
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// Validate validates a Bar
func (b *Bar) Validate() error {
	if b.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	if b.High < b.Low {
		return ErrInvalidBar
	}
	return nil
}

// BodyHigh returns the upper end of the candle body
func (b *Bar) BodyHigh() float64 {
	if b.Open > b.Close {
		return b.Open
	}
	return b.Close
}

// BodyLow returns the lower end of the candle body
func (b *Bar) BodyLow() float64 {
	if b.Open < b.Close {
		return b.Open
	}
	return b.Close
}

// SameOHLC reports whether two bars carry identical prices
func (b *Bar) SameOHLC(other Bar) bool {
	return b.Open == other.Open && b.High == other.High && b.Low == other.Low && b.Close == other.Close
}

// NormalizeBars returns a time-ascending copy of bars with invalid bars removed
// and duplicate timestamps collapsed to their first occurrence. The second
// return value counts the invalid bars that were dropped.
func NormalizeBars(bars []Bar) ([]Bar, int) {
	seen := make(map[int64]struct{}, len(bars))
	result := make([]Bar, 0, len(bars))
	invalid := 0
	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			invalid++
			continue
		}
		key := bar.Timestamp.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, bar)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, invalid
}
