package summary

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
)

// ErrInvalidFilter is returned by ParseFilter
var ErrInvalidFilter = errors.New("invalid filter")

// Filter narrows a table down to the days of interest. Zero fields match
// every day.
type Filter struct {
	Weekdays          []time.Weekday   `json:"weekdays,omitempty"`
	Months            []time.Month     `json:"months,omitempty"`
	Years             []int            `json:"years,omitempty"`
	Direction         models.Direction `json:"direction,omitempty"`
	Greenbox          *bool            `json:"greenbox,omitempty"`
	RangeHolds        *bool            `json:"range_holds,omitempty"`
	CloseOutsideRange *bool            `json:"close_outside_range,omitempty"`
	BreakoutWindows   []string         `json:"breakout_windows,omitempty"`
}

// Match reports whether r passes the filter
func (f Filter) Match(r *models.DayRangeRecord) bool {
	if len(f.Weekdays) > 0 || len(f.Months) > 0 || len(f.Years) > 0 {
		day, err := r.Day()
		if err != nil {
			return false
		}
		if len(f.Weekdays) > 0 && !contains(f.Weekdays, day.Weekday()) {
			return false
		}
		if len(f.Months) > 0 && !contains(f.Months, day.Month()) {
			return false
		}
		if len(f.Years) > 0 && !contains(f.Years, day.Year()) {
			return false
		}
	}
	if f.Direction != "" && r.Direction != f.Direction {
		return false
	}
	if f.Greenbox != nil && r.Greenbox != *f.Greenbox {
		return false
	}
	if f.RangeHolds != nil && r.RangeHolds != *f.RangeHolds {
		return false
	}
	if f.CloseOutsideRange != nil && r.CloseOutsideRange != *f.CloseOutsideRange {
		return false
	}
	if len(f.BreakoutWindows) > 0 && !contains(f.BreakoutWindows, r.BreakoutWindow) {
		return false
	}
	return true
}

// Apply returns the matching records in their original order
func (f Filter) Apply(records []models.DayRangeRecord) []models.DayRangeRecord {
	result := make([]models.DayRangeRecord, 0, len(records))
	for i := range records {
		if f.Match(&records[i]) {
			result = append(result, records[i])
		}
	}
	return result
}

func contains[T comparable](values []T, v T) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseFilter reads a filter from query parameters: weekday (mon..sun),
// month (1-12), year, direction (long|short|none), greenbox, holds,
// close_outside (true|false) and window. List parameters take repeated or
// comma separated values.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	for _, v := range listValues(q, "weekday") {
		wd, ok := weekdays[strings.ToLower(v)[:min(3, len(v))]]
		if !ok {
			return Filter{}, fmt.Errorf("%w: weekday %q", ErrInvalidFilter, v)
		}
		f.Weekdays = append(f.Weekdays, wd)
	}
	for _, v := range listValues(q, "month") {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return Filter{}, fmt.Errorf("%w: month %q", ErrInvalidFilter, v)
		}
		f.Months = append(f.Months, time.Month(m))
	}
	for _, v := range listValues(q, "year") {
		y, err := strconv.Atoi(v)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: year %q", ErrInvalidFilter, v)
		}
		f.Years = append(f.Years, y)
	}

	if v := q.Get("direction"); v != "" {
		d := models.Direction(strings.ToLower(v))
		if err := d.Validate(); err != nil {
			return Filter{}, fmt.Errorf("%w: direction %q", ErrInvalidFilter, v)
		}
		f.Direction = d
	}

	var err error
	if f.Greenbox, err = boolValue(q, "greenbox"); err != nil {
		return Filter{}, err
	}
	if f.RangeHolds, err = boolValue(q, "holds"); err != nil {
		return Filter{}, err
	}
	if f.CloseOutsideRange, err = boolValue(q, "close_outside"); err != nil {
		return Filter{}, err
	}

	f.BreakoutWindows = q["window"]
	return f, nil
}

func listValues(q url.Values, key string) []string {
	var values []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func boolValue(q url.Values, key string) (*bool, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q", ErrInvalidFilter, key, v)
	}
	return &b, nil
}
