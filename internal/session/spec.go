package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidSessionSpec is returned for a session that cannot produce a range
	ErrInvalidSessionSpec = errors.New("invalid session spec")
	// ErrInvalidTimeOfDay is returned when a clock time cannot be parsed
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	// ErrUnknownTimezone is returned when a reference timezone cannot be loaded
	ErrUnknownTimezone = errors.New("unknown timezone")
)

// ID identifies a session
type ID string

const (
	NewYork ID = "ny"
	London  ID = "ldn"
	Asia    ID = "asia"
)

const day = 24 * time.Hour

// TimeOfDay is a wall clock time expressed as the offset from local midnight
type TimeOfDay time.Duration

// Clock builds a TimeOfDay from hours and minutes
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ParseTimeOfDay parses "15:04" or "15:04:05"
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return TimeOfDay(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
}

// TimeOfDayOf returns the wall clock time of t in its own location
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond()))
}

// Add returns the clock time d after c, wrapping at midnight
func (c TimeOfDay) Add(d time.Duration) TimeOfDay {
	v := (time.Duration(c) + d) % day
	if v < 0 {
		v += day
	}
	return TimeOfDay(v)
}

// String formats the clock time as HH:MM
func (c TimeOfDay) String() string {
	d := time.Duration(c)
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// Within reports whether c lies in [from, to). An interval with from > to
// spans midnight and is evaluated as [from, 24:00) ∪ [00:00, to).
func (c TimeOfDay) Within(from, to TimeOfDay) bool {
	if from <= to {
		return c >= from && c < to
	}
	return c >= from || c < to
}

// Spec configures one trading session
type Spec struct {
	ID              ID
	Name            string
	OpeningStart    TimeOfDay
	OpeningDuration time.Duration
	SessionEnd      TimeOfDay
	Location        *time.Location

	// Previous is the session whose range this session is compared against.
	// PreviousTradingDay marks a predecessor that belongs to the prior trading day.
	Previous           ID
	PreviousTradingDay bool
}

// OpeningEnd returns the end of the opening range (exclusive)
func (s *Spec) OpeningEnd() TimeOfDay {
	return s.OpeningStart.Add(s.OpeningDuration)
}

// Wraps reports whether the session's windows cross local midnight
func (s *Spec) Wraps() bool {
	end := s.OpeningEnd()
	return end < s.OpeningStart || s.SessionEnd < end
}

// Validate validates a Spec
func (s *Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSessionSpec)
	}
	if s.Location == nil {
		return fmt.Errorf("%w: session %s has no reference timezone", ErrInvalidSessionSpec, s.ID)
	}
	if s.OpeningDuration <= 0 || s.OpeningDuration >= day {
		return fmt.Errorf("%w: session %s opening range duration %s", ErrInvalidSessionSpec, s.ID, s.OpeningDuration)
	}
	if s.OpeningEnd() == s.SessionEnd {
		return fmt.Errorf("%w: session %s has an empty trading window", ErrInvalidSessionSpec, s.ID)
	}
	if s.SessionEnd.Within(s.OpeningStart, s.OpeningEnd()) && s.SessionEnd != s.OpeningStart {
		return fmt.Errorf("%w: session %s ends inside its opening range", ErrInvalidSessionSpec, s.ID)
	}
	return nil
}

// LoadLocation resolves a reference timezone name
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownTimezone, name, err)
	}
	return loc, nil
}

// DefaultSpecs returns the New York, London and Asia sessions with the
// given opening range duration. London and New York are evaluated in
// America/New_York, Asia in Asia/Tokyo.
func DefaultSpecs(openingDuration time.Duration) ([]Spec, error) {
	newYork, err := LoadLocation("America/New_York")
	if err != nil {
		return nil, err
	}
	tokyo, err := LoadLocation("Asia/Tokyo")
	if err != nil {
		return nil, err
	}

	return []Spec{
		{
			ID:              NewYork,
			Name:            "New York",
			OpeningStart:    Clock(9, 30),
			OpeningDuration: openingDuration,
			SessionEnd:      Clock(16, 0),
			Location:        newYork,
			Previous:        London,
		},
		{
			ID:              London,
			Name:            "London",
			OpeningStart:    Clock(3, 0),
			OpeningDuration: openingDuration,
			SessionEnd:      Clock(8, 30),
			Location:        newYork,
			Previous:        Asia,
		},
		{
			ID:                 Asia,
			Name:               "Asia",
			OpeningStart:       Clock(8, 30),
			OpeningDuration:    openingDuration,
			SessionEnd:         Clock(14, 30),
			Location:           tokyo,
			Previous:           NewYork,
			PreviousTradingDay: true,
		},
	}, nil
}
