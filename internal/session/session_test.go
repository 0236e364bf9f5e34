package session

import (
	"testing"
	"time"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:30", Clock(9, 30), false},
		{" 16:00 ", Clock(16, 0), false},
		{"00:00", 0, false},
		{"23:59:30", Clock(23, 59) + TimeOfDay(30*time.Second), false},
		{"24:00", 0, true},
		{"nine", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDay_AddAndString(t *testing.T) {
	assert.Equal(t, "10:30", Clock(9, 30).Add(time.Hour).String())
	assert.Equal(t, "00:30", Clock(23, 30).Add(time.Hour).String())
	assert.Equal(t, "23:30", Clock(0, 30).Add(-time.Hour).String())
}

func TestTimeOfDay_Within(t *testing.T) {
	tests := []struct {
		name     string
		c        TimeOfDay
		from, to TimeOfDay
		want     bool
	}{
		{"inside plain interval", Clock(10, 0), Clock(9, 30), Clock(16, 0), true},
		{"start inclusive", Clock(9, 30), Clock(9, 30), Clock(16, 0), true},
		{"end exclusive", Clock(16, 0), Clock(9, 30), Clock(16, 0), false},
		{"before plain interval", Clock(8, 0), Clock(9, 30), Clock(16, 0), false},
		{"wrapped late part", Clock(23, 0), Clock(22, 0), Clock(2, 0), true},
		{"wrapped early part", Clock(1, 0), Clock(22, 0), Clock(2, 0), true},
		{"wrapped end exclusive", Clock(2, 0), Clock(22, 0), Clock(2, 0), false},
		{"outside wrapped interval", Clock(12, 0), Clock(22, 0), Clock(2, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Within(tt.from, tt.to))
		})
	}
}

func TestSpec_Validate(t *testing.T) {
	ny := mustLocation(t, "America/New_York")
	valid := Spec{
		ID:              NewYork,
		OpeningStart:    Clock(9, 30),
		OpeningDuration: time.Hour,
		SessionEnd:      Clock(16, 0),
		Location:        ny,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(s *Spec)
	}{
		{"missing id", func(s *Spec) { s.ID = "" }},
		{"missing location", func(s *Spec) { s.Location = nil }},
		{"zero opening range", func(s *Spec) { s.OpeningDuration = 0 }},
		{"empty session window", func(s *Spec) { s.SessionEnd = Clock(10, 30) }},
		{"session ends inside opening range", func(s *Spec) { s.SessionEnd = Clock(10, 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSessionSpec)
		})
	}
}

func TestDefaultSpecs(t *testing.T) {
	specs, err := DefaultSpecs(time.Hour)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	for _, s := range specs {
		assert.NoError(t, s.Validate(), s.ID)
		assert.False(t, s.Wraps(), s.ID)
	}
	assert.Equal(t, "10:30", specs[0].OpeningEnd().String())
	assert.Equal(t, "Asia/Tokyo", specs[2].Location.String())
	assert.True(t, specs[2].PreviousTradingDay)
}

func TestClassifier_Classify(t *testing.T) {
	specs, err := DefaultSpecs(time.Hour)
	require.NoError(t, err)

	ny, err := NewClassifier(specs[0])
	require.NoError(t, err)
	asia, err := NewClassifier(specs[2])
	require.NoError(t, err)

	loc := specs[0].Location
	at := func(h, m int) time.Time { return time.Date(2024, 3, 12, h, m, 0, 0, loc) }

	assert.Equal(t, WindowNone, ny.Classify(at(9, 29)))
	assert.Equal(t, WindowOpeningRange, ny.Classify(at(9, 30)))
	assert.Equal(t, WindowOpeningRange, ny.Classify(at(10, 29)))
	assert.Equal(t, WindowSession, ny.Classify(at(10, 30)))
	assert.Equal(t, WindowSession, ny.Classify(at(15, 59)))
	assert.Equal(t, WindowNone, ny.Classify(at(16, 0)))

	// 19:30 New York (EDT) is 08:30 Tokyo on the next day
	assert.Equal(t, WindowOpeningRange, asia.Classify(at(19, 30)))
	assert.Equal(t, WindowSession, asia.Classify(at(21, 0)))
	assert.Equal(t, WindowNone, asia.Classify(at(10, 0)))

	// the same instant expressed in UTC classifies the same way
	assert.Equal(t, WindowOpeningRange, ny.Classify(at(9, 45).UTC()))
}

func TestClassifier_TagAndGroup(t *testing.T) {
	specs, err := DefaultSpecs(time.Hour)
	require.NoError(t, err)
	asia, err := NewClassifier(specs[2])
	require.NoError(t, err)

	loc := specs[0].Location
	bars := []models.Bar{
		{Timestamp: time.Date(2024, 3, 12, 12, 0, 0, 0, loc), Open: 1, High: 2, Low: 1, Close: 2},
		{Timestamp: time.Date(2024, 3, 12, 19, 30, 0, 0, loc), Open: 1, High: 2, Low: 1, Close: 2},
		{Timestamp: time.Date(2024, 3, 12, 21, 0, 0, 0, loc), Open: 1, High: 2, Low: 1, Close: 2},
		{Timestamp: time.Date(2024, 3, 13, 19, 45, 0, 0, loc), Open: 1, High: 2, Low: 1, Close: 2},
	}

	tagged := asia.Tag(bars)
	require.Len(t, tagged, 3)
	assert.Equal(t, "2024-03-13", tagged[0].Date)
	assert.Equal(t, WindowOpeningRange, tagged[0].Window)
	assert.Equal(t, "Asia/Tokyo", tagged[0].Local.Location().String())
	assert.Equal(t, WindowSession, tagged[1].Window)
	assert.Equal(t, "2024-03-14", tagged[2].Date)

	days := GroupByDate(tagged)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-13", days[0].Date)
	assert.Len(t, days[0].OpeningRange, 1)
	assert.Len(t, days[0].Session, 1)
	assert.Len(t, days[1].OpeningRange, 1)
	assert.Empty(t, days[1].Session)
}

func TestClassifier_WrappingSessionDate(t *testing.T) {
	utc := time.UTC
	spec := Spec{
		ID:              "night",
		OpeningStart:    Clock(22, 0),
		OpeningDuration: time.Hour,
		SessionEnd:      Clock(3, 0),
		Location:        utc,
	}
	require.True(t, spec.Wraps())

	c, err := NewClassifier(spec)
	require.NoError(t, err)

	bars := []models.Bar{
		{Timestamp: time.Date(2024, 1, 1, 22, 15, 0, 0, utc)},
		{Timestamp: time.Date(2024, 1, 1, 23, 30, 0, 0, utc)},
		{Timestamp: time.Date(2024, 1, 2, 1, 0, 0, 0, utc)},
		{Timestamp: time.Date(2024, 1, 2, 3, 0, 0, 0, utc)},
	}

	tagged := c.Tag(bars)
	require.Len(t, tagged, 3)
	for _, tb := range tagged {
		assert.Equal(t, "2024-01-01", tb.Date)
	}
	assert.Equal(t, WindowOpeningRange, tagged[0].Window)
	assert.Equal(t, WindowSession, tagged[1].Window)
	assert.Equal(t, WindowSession, tagged[2].Window)
}

func TestNewChain(t *testing.T) {
	specs, err := DefaultSpecs(time.Hour)
	require.NoError(t, err)

	chain, err := NewChain(specs)
	require.NoError(t, err)

	link, ok := chain.Predecessor(NewYork)
	require.True(t, ok)
	assert.Equal(t, Link{Previous: London}, link)

	link, ok = chain.Predecessor(London)
	require.True(t, ok)
	assert.Equal(t, Link{Previous: Asia}, link)

	link, ok = chain.Predecessor(Asia)
	require.True(t, ok)
	assert.Equal(t, Link{Previous: NewYork, DayShift: 1}, link)

	_, err = NewChain(specs[:2])
	assert.ErrorIs(t, err, ErrUnknownPredecessor)

	standalone := specs[0]
	standalone.Previous = ""
	chain, err = NewChain([]Spec{standalone})
	require.NoError(t, err)
	_, ok = chain.Predecessor(NewYork)
	assert.False(t, ok)
}
