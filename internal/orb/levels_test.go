package orb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/session-range-stats/internal/models"
)

func TestNewQuantizer(t *testing.T) {
	_, err := NewQuantizer(0)
	assert.ErrorIs(t, err, ErrInvalidLevelStep)
	_, err = NewQuantizer(-0.1)
	assert.ErrorIs(t, err, ErrInvalidLevelStep)

	q, err := NewQuantizer(0.25)
	require.NoError(t, err)
	assert.Equal(t, 0.25, q.Step())
}

func TestQuantizer_Level(t *testing.T) {
	q, err := NewQuantizer(0.1)
	require.NoError(t, err)

	tests := []struct {
		name     string
		v        float64
		rounding Rounding
		want     float64
	}{
		{"inside floors with sign rule", 104, RoundSign, 0.4},
		{"inside fraction floors", 104.7, RoundSign, 0.4},
		{"negative ceils with sign rule", 98.7, RoundSign, -0.1},
		{"exact step is not shifted by float error", 118, RoundSign, 1.8},
		{"exact step with ceil", 118, RoundCeil, 1.8},
		{"ceil rounds away", 104.1, RoundCeil, 0.5},
		{"floor below range", 98.7, RoundFloor, -0.2},
		{"range high", 110, RoundFloor, 1.0},
		{"range low", 100, RoundCeil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := q.Level(100, 110, tt.v, tt.rounding)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := q.Level(100, 100, 100, RoundSign)
	assert.False(t, ok)
}

func TestQuantizer_LevelsAreStepMultiples(t *testing.T) {
	for _, step := range []float64{0.1, 0.05, 0.25} {
		q, err := NewQuantizer(step)
		require.NoError(t, err)

		for v := 80.0; v <= 130; v += 0.37 {
			for _, r := range []Rounding{RoundSign, RoundFloor, RoundCeil} {
				level, ok := q.Level(100.25, 110.5, v, r)
				require.True(t, ok)
				n := level / step
				assert.InDelta(t, math.Round(n), n, 1e-9, "step=%v v=%v level=%v", step, v, level)
			}
		}
	}
}

func TestRoundingFor(t *testing.T) {
	long := roundingFor(models.DirectionLong)
	assert.Equal(t, RoundCeil, long.anchors)
	assert.Equal(t, RoundFloor, long.expansion)
	assert.Equal(t, RoundCeil, long.retracement)
	assert.Equal(t, RoundCeil, long.afterConfirmation)
	assert.Equal(t, RoundSign, long.preConfirmation)
	assert.False(t, long.swapAfter)

	short := roundingFor(models.DirectionShort)
	assert.Equal(t, RoundFloor, short.anchors)
	assert.Equal(t, RoundCeil, short.expansion)
	assert.Equal(t, RoundFloor, short.retracement)
	assert.Equal(t, RoundFloor, short.afterConfirmation)
	assert.Equal(t, RoundSign, short.preConfirmation)
	assert.True(t, short.swapAfter)

	// days without a breakout share the short day columns
	assert.Equal(t, short, roundingFor(models.DirectionNone))
}

func TestLevelDay_AfterConfirmationColumns(t *testing.T) {
	q, err := NewQuantizer(DefaultLevelStep)
	require.NoError(t, err)

	base := models.DayRangeRecord{
		RangeLow:             100,
		RangeHigh:            110,
		AfterConfirmationMin: models.Float(91.95),
		AfterConfirmationMax: models.Float(109.05),
	}

	long := base
	long.Direction = models.DirectionLong
	long = q.levelDay(long)
	assert.Equal(t, -0.8, *long.AfterConfirmationMinLevel)
	assert.Equal(t, 1.0, *long.AfterConfirmationMaxLevel)

	short := base
	short.Direction = models.DirectionShort
	short = q.levelDay(short)
	assert.Equal(t, 0.9, *short.AfterConfirmationMinLevel)
	assert.Equal(t, -0.9, *short.AfterConfirmationMaxLevel)
}
