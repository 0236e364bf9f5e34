package models

import (
	"time"
)

// DateLayout is the layout of DayRangeRecord.Date
const DateLayout = "2006-01-02"

// NoBreakoutWindow labels a time window for a day without confirmation
const NoBreakoutWindow = "No breakout"

// Direction is the side of the opening range that was confirmed first
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionNone  Direction = "none"
)

// Validate validates a Direction
func (d Direction) Validate() error {
	switch d {
	case DirectionLong, DirectionShort, DirectionNone:
		return nil
	}
	return ErrInvalidDirection
}

// TrendModel labels how a session's range relates to its predecessor session's range
type TrendModel string

const (
	TrendWeakUptrend     TrendModel = "Weak Uptrend"
	TrendMediumUptrend   TrendModel = "Medium Uptrend"
	TrendStrongUptrend   TrendModel = "Strong Uptrend"
	TrendWeakDowntrend   TrendModel = "Weak Downtrend"
	TrendMediumDowntrend TrendModel = "Medium Downtrend"
	TrendStrongDowntrend TrendModel = "Strong Downtrend"
	TrendContraction     TrendModel = "Contraction"
	TrendExpansion       TrendModel = "Expansion"
	TrendNone            TrendModel = "None"
)

// Validate validates a TrendModel
func (m TrendModel) Validate() error {
	switch m {
	case TrendWeakUptrend, TrendMediumUptrend, TrendStrongUptrend,
		TrendWeakDowntrend, TrendMediumDowntrend, TrendStrongDowntrend,
		TrendContraction, TrendExpansion, TrendNone:
		return nil
	}
	return ErrInvalidTrend
}

// DayRangeRecord is the statistics row of one symbol, session and trading date.
// Optional values are nil when the day carries no such signal.
type DayRangeRecord struct {
	Symbol  string `json:"symbol"`
	Session string `json:"session"`
	Date    string `json:"date"`

	// Opening range
	RangeHigh     float64 `json:"range_high"`
	RangeLow      float64 `json:"range_low"`
	RangeOpen     float64 `json:"range_open"`
	RangeClose    float64 `json:"range_close"`
	RangeHighBody float64 `json:"range_high_body"`
	RangeLowBody  float64 `json:"range_low_body"`
	Greenbox      bool    `json:"greenbox"`
	RangeSize     float64 `json:"range_size"`

	// Post-range session window
	SessionHigh     float64   `json:"session_high"`
	SessionLow      float64   `json:"session_low"`
	SessionClose    float64   `json:"session_close"`
	SessionHighBody float64   `json:"session_high_body"`
	SessionLowBody  float64   `json:"session_low_body"`
	SessionHighTime time.Time `json:"session_high_time"`
	SessionLowTime  time.Time `json:"session_low_time"`

	BreachedRangeHigh    bool `json:"breached_range_high"`
	BreachedRangeLow     bool `json:"breached_range_low"`
	ClosedAboveRangeHigh bool `json:"closed_above_range_high"`
	ClosedBelowRangeLow  bool `json:"closed_below_range_low"`
	RangeConfirmed       bool `json:"range_confirmed"`
	RangeTrueClose       bool `json:"range_true_close"`
	RangeTrueWick        bool `json:"range_true_wick"`

	// Confirmation
	UpConfirmationTime   *time.Time `json:"up_confirmation,omitempty"`
	DownConfirmationTime *time.Time `json:"down_confirmation,omitempty"`
	BreakoutTime         *time.Time `json:"breakout_time,omitempty"`
	BreakoutWindow       string     `json:"breakout_window"`
	Direction            Direction  `json:"direction"`
	RangeHolds           bool       `json:"range_holds"`
	CloseOutsideRange    bool       `json:"close_outside_range"`

	// Extremes before and after confirmation
	PreConfirmationMin       *float64   `json:"pre_conf_min,omitempty"`
	PreConfirmationMinTime   *time.Time `json:"pre_conf_min_time,omitempty"`
	PreConfirmationMax       *float64   `json:"pre_conf_max,omitempty"`
	PreConfirmationMaxTime   *time.Time `json:"pre_conf_max_time,omitempty"`
	AfterConfirmationMin     *float64   `json:"after_conf_min,omitempty"`
	AfterConfirmationMinTime *time.Time `json:"after_conf_min_time,omitempty"`
	AfterConfirmationMax     *float64   `json:"after_conf_max,omitempty"`
	AfterConfirmationMaxTime *time.Time `json:"after_conf_max_time,omitempty"`

	// Retracement and expansion
	MaxRetracementValue *float64   `json:"max_retracement_value,omitempty"`
	MaxRetracementTime  *time.Time `json:"max_retracement_time,omitempty"`
	MaxExpansionValue   *float64   `json:"max_expansion_value,omitempty"`
	MaxExpansionTime    *time.Time `json:"max_expansion_time,omitempty"`
	RetraceIntoRange    bool       `json:"retrace_into_range"`
	RetraceIntoBody     bool       `json:"retrace_into_body"`
	RetracementWindow   string     `json:"retracement_window"`
	ExpansionWindow     string     `json:"expansion_window"`

	// Levels normalized to the opening range
	RangeOpenLevel            *float64 `json:"opening_level,omitempty"`
	RangeCloseLevel           *float64 `json:"closing_level,omitempty"`
	SessionCloseLevel         *float64 `json:"session_close_level,omitempty"`
	SessionHighLevel          *float64 `json:"session_high_level,omitempty"`
	SessionLowLevel           *float64 `json:"session_low_level,omitempty"`
	PreConfirmationMinLevel   *float64 `json:"pre_conf_min_level,omitempty"`
	PreConfirmationMaxLevel   *float64 `json:"pre_conf_max_level,omitempty"`
	AfterConfirmationMinLevel *float64 `json:"after_conf_min_level,omitempty"`
	AfterConfirmationMaxLevel *float64 `json:"after_conf_max_level,omitempty"`
	RetracementLevel          *float64 `json:"retracement_level,omitempty"`
	ExpansionLevel            *float64 `json:"expansion_level,omitempty"`

	// Open anchors
	DayOpen         *float64 `json:"day_open,omitempty"`
	TrueOpen        *float64 `json:"true_open,omitempty"`
	TookOutDayOpen  bool     `json:"took_out_day_open"`
	TookOutTrueOpen bool     `json:"took_out_true_open"`

	// Relation to the predecessor session
	TrendModel      *TrendModel `json:"trend_model,omitempty"`
	RangeMultiplier *float64    `json:"range_multiplier,omitempty"`
	PrevTrendModel  *TrendModel `json:"trend_model_prev,omitempty"`
	PrevDirection   *Direction  `json:"direction_prev,omitempty"`
	PrevRangeHolds  *bool       `json:"range_holds_prev,omitempty"`
	PrevRangeSize   *float64    `json:"range_size_prev,omitempty"`
}

// Day returns the record's trading date as midnight UTC
func (r *DayRangeRecord) Day() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

// Confirmed reports whether the day had a breakout
func (r *DayRangeRecord) Confirmed() bool {
	return r.Direction == DirectionLong || r.Direction == DirectionShort
}

// Midline returns the middle of the opening range
func (r *DayRangeRecord) Midline() float64 {
	return (r.RangeHigh-r.RangeLow)/2 + r.RangeLow
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// TimePtr returns a pointer to t
func TimePtr(t time.Time) *time.Time {
	return &t
}

// Bool returns a pointer to v
func Bool(v bool) *bool {
	return &v
}
