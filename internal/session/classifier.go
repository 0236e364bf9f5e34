package session

import (
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
)

// Window is the sub-window of a session a bar falls in
type Window int

const (
	WindowNone Window = iota
	WindowOpeningRange
	WindowSession
)

func (w Window) String() string {
	switch w {
	case WindowOpeningRange:
		return "opening_range"
	case WindowSession:
		return "session"
	default:
		return "none"
	}
}

// TaggedBar is a bar classified against one session
type TaggedBar struct {
	models.Bar
	Local  time.Time // timestamp in the session's reference timezone
	Date   string    // trading date, models.DateLayout
	Window Window
}

// Classifier tags bars with the window of one session
type Classifier struct {
	spec       Spec
	openingEnd TimeOfDay
	wraps      bool
}

// NewClassifier creates a classifier for a validated spec
func NewClassifier(spec Spec) (*Classifier, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{
		spec:       spec,
		openingEnd: spec.OpeningEnd(),
		wraps:      spec.Wraps(),
	}, nil
}

// Spec returns the session configuration
func (c *Classifier) Spec() Spec {
	return c.spec
}

// Classify returns the window t falls in
func (c *Classifier) Classify(t time.Time) Window {
	return c.classifyClock(TimeOfDayOf(t.In(c.spec.Location)))
}

func (c *Classifier) classifyClock(tod TimeOfDay) Window {
	switch {
	case tod.Within(c.spec.OpeningStart, c.openingEnd):
		return WindowOpeningRange
	case tod.Within(c.openingEnd, c.spec.SessionEnd):
		return WindowSession
	default:
		return WindowNone
	}
}

// TradingDate returns the trading date a local timestamp belongs to. For a
// session crossing midnight, the part after midnight belongs to the day the
// opening range started on.
func (c *Classifier) TradingDate(local time.Time) string {
	if c.wraps && TimeOfDayOf(local) < c.spec.OpeningStart {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(models.DateLayout)
}

// Tag filters bars down to the session's windows, preserving order
func (c *Classifier) Tag(bars []models.Bar) []TaggedBar {
	tagged := make([]TaggedBar, 0, len(bars)/4)
	for _, bar := range bars {
		local := bar.Timestamp.In(c.spec.Location)
		window := c.classifyClock(TimeOfDayOf(local))
		if window == WindowNone {
			continue
		}
		tagged = append(tagged, TaggedBar{
			Bar:    bar,
			Local:  local,
			Date:   c.TradingDate(local),
			Window: window,
		})
	}
	return tagged
}

// Day holds one trading date's bars for a session
type Day struct {
	Date         string
	OpeningRange []TaggedBar
	Session      []TaggedBar
}

// GroupByDate splits tagged bars into trading days, in date order
func GroupByDate(tagged []TaggedBar) []Day {
	var days []Day
	index := make(map[string]int)
	for _, tb := range tagged {
		i, ok := index[tb.Date]
		if !ok {
			i = len(days)
			index[tb.Date] = i
			days = append(days, Day{Date: tb.Date})
		}
		switch tb.Window {
		case WindowOpeningRange:
			days[i].OpeningRange = append(days[i].OpeningRange, tb)
		case WindowSession:
			days[i].Session = append(days[i].Session, tb)
		}
	}
	return days
}
