package schedule

import (
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

var testDay = time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC)

// clock returns testDay at h:m.
func clock(h, m int) time.Time {
	return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func feedAt(t time.Time, oz float64) models.FeedingEvent {
	return models.FeedingEvent{ID: t.Format(time.RFC3339), Timestamp: t, Ounces: oz}
}

func sleepAt(start time.Time, d time.Duration) models.SleepSession {
	end := start.Add(d)
	return models.SleepSession{ID: start.Format(time.RFC3339), StartTime: start, EndTime: &end}
}

func eventsOfType(events []models.ScheduleEvent, t models.EventType) []models.ScheduleEvent {
	var out []models.ScheduleEvent
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func timesOf(events []models.ScheduleEvent) []time.Time {
	out := make([]time.Time, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Time)
	}
	return out
}
