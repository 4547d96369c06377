package models

import "time"

// FeedingEvent is one logged feeding. Immutable once logged.
type FeedingEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Ounces    float64   `json:"ounces"`
}

// SleepSession is one logged sleep. EndTime is nil while the sleep is active.
type SleepSession struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// FeedingSession is a burst of feedings merged into one. Derived, never persisted.
type FeedingSession struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	TotalOz     float64   `json:"total_oz"`
	SourceCount int       `json:"source_count"`
}

// Profile is the subset of the baby profile the scheduler needs.
type Profile struct {
	ID        string    `json:"id"`
	BirthDate time.Time `json:"birth_date"`
}

// SleepSettings describes the day window; minutes since local midnight.
// DayEndMinutes may be smaller than DayStartMinutes when the day wraps midnight.
type SleepSettings struct {
	DayStartMinutes int `json:"day_start_minutes"`
	DayEndMinutes   int `json:"day_end_minutes"`
}

// DefaultSleepSettings is used when a profile has none stored (06:00-22:00).
func DefaultSleepSettings() SleepSettings {
	return SleepSettings{DayStartMinutes: 6 * 60, DayEndMinutes: 22 * 60}
}

// IsDaytime reports whether minuteOfDay falls within the day window.
func (s SleepSettings) IsDaytime(minuteOfDay int) bool {
	if s.DayStartMinutes == s.DayEndMinutes {
		return true
	}
	if s.DayStartMinutes < s.DayEndMinutes {
		return minuteOfDay >= s.DayStartMinutes && minuteOfDay < s.DayEndMinutes
	}
	return minuteOfDay >= s.DayStartMinutes || minuteOfDay < s.DayEndMinutes
}
