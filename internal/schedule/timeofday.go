package schedule

import (
	"math"
	"time"
)

const minutesPerDay = 24 * 60

// MinuteOfDay returns minutes since local midnight of t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// CircularDistance is the distance between two minute-of-day values on the
// 24h clock: min(|a-b|, |a-b+1440|, |a-b-1440|).
func CircularDistance(a, b float64) float64 {
	d := a - b
	return math.Min(math.Abs(d), math.Min(math.Abs(d+minutesPerDay), math.Abs(d-minutesPerDay)))
}

// unwrapNear shifts v by a whole day so that it lies within 12h of ref.
func unwrapNear(v, ref float64) float64 {
	for v-ref > minutesPerDay/2 {
		v -= minutesPerDay
	}
	for ref-v > minutesPerDay/2 {
		v += minutesPerDay
	}
	return v
}

// wrapMinutes normalizes v into [0, 1440).
func wrapMinutes(v float64) float64 {
	v = math.Mod(v, minutesPerDay)
	if v < 0 {
		v += minutesPerDay
	}
	return v
}

// StartOfDay is local midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay is the next local midnight; schedule entries must be strictly before it.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// AtMinute places minuteOfDay on day's date.
func AtMinute(day time.Time, minuteOfDay int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minuteOfDay/60, minuteOfDay%60, 0, 0, day.Location())
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
