package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	assert.Equal(t, 0.0, Percentile(nil, 0.5))
	assert.Equal(t, 1.0, Percentile(values, 0))
	assert.Equal(t, 4.0, Percentile(values, 1))
	assert.InDelta(t, 2.5, Percentile(values, 0.5), 1e-9)
	assert.InDelta(t, 1.3, Percentile(values, 0.1), 1e-9)
	assert.Equal(t, 7.0, Percentile([]float64{7}, 0.9))
}

func TestPercentileOf_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	assert.Equal(t, 2.0, percentileOf(values, 0.5))
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestCircularDistance(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{600, 630, 30},
		{630, 600, 30},
		{1430, 10, 20},
		{10, 1430, 20},
		{0, 720, 720},
		{100, 100, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CircularDistance(tt.a, tt.b), "distance(%v, %v)", tt.a, tt.b)
	}
}

func TestDayBoundaries(t *testing.T) {
	now := clock(15, 45)
	assert.Equal(t, testDay, StartOfDay(now))
	assert.Equal(t, testDay.Add(24*time.Hour), EndOfDay(now))
	assert.Equal(t, clock(9, 30), AtMinute(now, 570))
	assert.Equal(t, 945, MinuteOfDay(now))
}
