package models

import "time"

// EventType is the kind of a schedule entry.
type EventType string

const (
	EventFeed  EventType = "feed"
	EventSleep EventType = "sleep"
	// EventWake only appears in actual data or proposer output; it is never scheduled.
	EventWake EventType = "wake"
)

// OzRange is a target volume band.
type OzRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ScheduleEvent is one projected or actual entry in today's schedule.
type ScheduleEvent struct {
	Type             EventType
	Time             time.Time
	PatternBased     bool
	IntervalBased    bool
	Actual           bool
	Adjusted         bool
	IsCompleted      bool
	PatternCount     int
	Source           string
	AdjustReason     string
	TargetOz         *float64
	TargetOzRange    *OzRange
	AvgDurationHours *float64
}

// Priority ranks entries for same-type collisions: actual > pattern > interval.
func (e ScheduleEvent) Priority() int {
	switch {
	case e.Actual:
		return 3
	case e.PatternBased:
		return 2
	case e.IntervalBased:
		return 1
	default:
		return 0
	}
}

// PersistedSchedule is the single record stored per calendar day.
type PersistedSchedule struct {
	DateKey string          `json:"dateKey"`
	Items   []ScheduleEvent `json:"items"`
}

// DateKey formats t as YYYY-MM-DD in t's location.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
