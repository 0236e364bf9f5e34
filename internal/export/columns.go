package export

import (
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
)

// TimeLayout is the layout of exported timestamps unless Options.UnixTime is set
const TimeLayout = "2006-01-02 15:04:05-07:00"

// Options controls how records are rendered
type Options struct {
	// UnixTime writes timestamps as epoch microseconds
	UnixTime bool
}

type column struct {
	name  string
	value func(r *models.DayRangeRecord, o Options) interface{}
}

func float(f func(r *models.DayRangeRecord) float64) func(*models.DayRangeRecord, Options) interface{} {
	return func(r *models.DayRangeRecord, _ Options) interface{} { return f(r) }
}

func optFloat(f func(r *models.DayRangeRecord) *float64) func(*models.DayRangeRecord, Options) interface{} {
	return func(r *models.DayRangeRecord, _ Options) interface{} {
		if v := f(r); v != nil {
			return *v
		}
		return nil
	}
}

func boolean(f func(r *models.DayRangeRecord) bool) func(*models.DayRangeRecord, Options) interface{} {
	return func(r *models.DayRangeRecord, _ Options) interface{} { return f(r) }
}

func text(f func(r *models.DayRangeRecord) string) func(*models.DayRangeRecord, Options) interface{} {
	return func(r *models.DayRangeRecord, _ Options) interface{} { return f(r) }
}

func timestamp(f func(r *models.DayRangeRecord) *time.Time) func(*models.DayRangeRecord, Options) interface{} {
	return func(r *models.DayRangeRecord, o Options) interface{} {
		t := f(r)
		if t == nil || t.IsZero() {
			return nil
		}
		if o.UnixTime {
			return t.UnixMicro()
		}
		return t.Format(TimeLayout)
	}
}

var columns = []column{
	{"date", text(func(r *models.DayRangeRecord) string { return r.Date })},
	{"symbol", text(func(r *models.DayRangeRecord) string { return r.Symbol })},
	{"session", text(func(r *models.DayRangeRecord) string { return r.Session })},

	{"range_high", float(func(r *models.DayRangeRecord) float64 { return r.RangeHigh })},
	{"range_low", float(func(r *models.DayRangeRecord) float64 { return r.RangeLow })},
	{"range_open", float(func(r *models.DayRangeRecord) float64 { return r.RangeOpen })},
	{"range_close", float(func(r *models.DayRangeRecord) float64 { return r.RangeClose })},
	{"range_high_body", float(func(r *models.DayRangeRecord) float64 { return r.RangeHighBody })},
	{"range_low_body", float(func(r *models.DayRangeRecord) float64 { return r.RangeLowBody })},
	{"greenbox", boolean(func(r *models.DayRangeRecord) bool { return r.Greenbox })},
	{"range_size", float(func(r *models.DayRangeRecord) float64 { return r.RangeSize })},

	{"session_high", float(func(r *models.DayRangeRecord) float64 { return r.SessionHigh })},
	{"session_low", float(func(r *models.DayRangeRecord) float64 { return r.SessionLow })},
	{"session_close", float(func(r *models.DayRangeRecord) float64 { return r.SessionClose })},
	{"session_high_body", float(func(r *models.DayRangeRecord) float64 { return r.SessionHighBody })},
	{"session_low_body", float(func(r *models.DayRangeRecord) float64 { return r.SessionLowBody })},
	{"session_high_time", timestamp(func(r *models.DayRangeRecord) *time.Time { return &r.SessionHighTime })},
	{"session_low_time", timestamp(func(r *models.DayRangeRecord) *time.Time { return &r.SessionLowTime })},

	{"breached_range_high", boolean(func(r *models.DayRangeRecord) bool { return r.BreachedRangeHigh })},
	{"breached_range_low", boolean(func(r *models.DayRangeRecord) bool { return r.BreachedRangeLow })},
	{"closed_above_range_high", boolean(func(r *models.DayRangeRecord) bool { return r.ClosedAboveRangeHigh })},
	{"closed_below_range_low", boolean(func(r *models.DayRangeRecord) bool { return r.ClosedBelowRangeLow })},
	{"range_confirmed", boolean(func(r *models.DayRangeRecord) bool { return r.RangeConfirmed })},
	{"range_true_close", boolean(func(r *models.DayRangeRecord) bool { return r.RangeTrueClose })},
	{"range_true_wick", boolean(func(r *models.DayRangeRecord) bool { return r.RangeTrueWick })},

	{"up_confirmation", timestamp(func(r *models.DayRangeRecord) *time.Time { return r.UpConfirmationTime })},
	{"down_confirmation", timestamp(func(r *models.DayRangeRecord) *time.Time { return r.DownConfirmationTime })},
	{"breakout_time", timestamp(func(r *models.DayRangeRecord) *time.Time { return r.BreakoutTime })},
	{"breakout_window", text(func(r *models.DayRangeRecord) string { return r.BreakoutWindow })},
	{"direction", text(func(r *models.DayRangeRecord) string { return string(r.Direction) })},
	{"range_holds", boolean(func(r *models.DayRangeRecord) bool { return r.RangeHolds })},
	{"close_outside_range", boolean(func(r *models.DayRangeRecord) bool { return r.CloseOutsideRange })},

	{"pre_conf_min", optFloat(func(r *models.DayRangeRecord) *float64 { return r.PreConfirmationMin })},
	{"pre_conf_min_time", timestamp(func(r *models.DayRangeRecord) *time.Time { return r.PreConfirmationMinTime })},
	{"pre_conf_max", optFloat(func(r *models.DayRangeRecord) *float64 { return r.PreConfirmationMax })},
	{"pre_conf_max_time", timestamp(func(r *models.DayRangeRecord) *time.Time { return r.PreConfirmationMaxTime })},
	{"after_conf_min", optFloat(func(r *models.DayRangeRecord) *float64 { return r.AfterConfirmationMin })},
	{"after_conf_min_time", timestamp(func(r *models.DayRangeRecord) *time.Time { return r.AfterConfirmationMinTime })},
	{"after_conf_max", optFloat(func(r *models.DayRangeRecord) *float64 { return r.AfterConfirmationMax })},
	{"after_conf_max_time", timestamp(func(r *models.DayRangeRecord) *time.Time { return r.AfterConfirmationMaxTime })},

	{"max_retracement_value", optFloat(func(r *models.DayRangeRecord) *float64 { return r.MaxRetracementValue })},
	{"max_retracement_time", timestamp(func(r *models.DayRangeRecord) *time.Time { return r.MaxRetracementTime })},
	{"max_expansion_value", optFloat(func(r *models.DayRangeRecord) *float64 { return r.MaxExpansionValue })},
	{"max_expansion_time", timestamp(func(r *models.DayRangeRecord) *time.Time { return r.MaxExpansionTime })},
	{"retrace_into_range", boolean(func(r *models.DayRangeRecord) bool { return r.RetraceIntoRange })},
	{"retrace_into_body", boolean(func(r *models.DayRangeRecord) bool { return r.RetraceIntoBody })},
	{"retracement_window", text(func(r *models.DayRangeRecord) string { return r.RetracementWindow })},
	{"expansion_window", text(func(r *models.DayRangeRecord) string { return r.ExpansionWindow })},

	{"opening_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.RangeOpenLevel })},
	{"closing_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.RangeCloseLevel })},
	{"session_close_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.SessionCloseLevel })},
	{"session_high_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.SessionHighLevel })},
	{"session_low_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.SessionLowLevel })},
	{"pre_conf_min_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.PreConfirmationMinLevel })},
	{"pre_conf_max_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.PreConfirmationMaxLevel })},
	{"after_conf_min_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.AfterConfirmationMinLevel })},
	{"after_conf_max_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.AfterConfirmationMaxLevel })},
	{"retracement_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.RetracementLevel })},
	{"expansion_level", optFloat(func(r *models.DayRangeRecord) *float64 { return r.ExpansionLevel })},

	{"day_open", optFloat(func(r *models.DayRangeRecord) *float64 { return r.DayOpen })},
	{"true_open", optFloat(func(r *models.DayRangeRecord) *float64 { return r.TrueOpen })},
	{"took_out_day_open", boolean(func(r *models.DayRangeRecord) bool { return r.TookOutDayOpen })},
	{"took_out_true_open", boolean(func(r *models.DayRangeRecord) bool { return r.TookOutTrueOpen })},

	{"trend_model", text(func(r *models.DayRangeRecord) string { return trendText(r.TrendModel) })},
	{"range_multiplier", optFloat(func(r *models.DayRangeRecord) *float64 { return r.RangeMultiplier })},
	{"trend_model_prev", text(func(r *models.DayRangeRecord) string { return trendText(r.PrevTrendModel) })},
	{"direction_prev", text(func(r *models.DayRangeRecord) string {
		if r.PrevDirection == nil {
			return ""
		}
		return string(*r.PrevDirection)
	})},
	{"range_holds_prev", func(r *models.DayRangeRecord, _ Options) interface{} {
		if r.PrevRangeHolds == nil {
			return nil
		}
		return *r.PrevRangeHolds
	}},
	{"range_size_prev", optFloat(func(r *models.DayRangeRecord) *float64 { return r.PrevRangeSize })},
}

func trendText(m *models.TrendModel) string {
	if m == nil {
		return ""
	}
	return string(*m)
}

// Header returns the exported column names
func Header() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}

// Row renders one record in column order. Absent values are nil.
func Row(r *models.DayRangeRecord, o Options) []interface{} {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = c.value(r, o)
	}
	return row
}
