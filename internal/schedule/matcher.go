package schedule

import (
	"sort"
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// ActualEvent is a logged occurrence reduced to what matching needs.
type ActualEvent struct {
	Type models.EventType
	Time time.Time
}

// CollectActuals turns logs into chronologically ordered actual events within
// [from, to]. Feedings are merged into sessions first so top-offs count once;
// each sleep contributes its start and, once ended, a wake.
func CollectActuals(feedings []models.FeedingEvent, sleeps []models.SleepSession, from, to time.Time, s Settings) []ActualEvent {
	var inRange []models.FeedingEvent
	for _, f := range feedings {
		if f.Timestamp.Before(from) || f.Timestamp.After(to) {
			continue
		}
		inRange = append(inRange, f)
	}

	var actuals []ActualEvent
	for _, sess := range MergeFeedingSessions(inRange, s.FeedingSessionWindowMinutes) {
		actuals = append(actuals, ActualEvent{Type: models.EventFeed, Time: sess.StartTime})
	}
	for _, raw := range sleeps {
		sl, ok := NormalizeSleep(raw)
		if !ok {
			continue
		}
		if !sl.StartTime.Before(from) && !sl.StartTime.After(to) {
			actuals = append(actuals, ActualEvent{Type: models.EventSleep, Time: sl.StartTime})
		}
		if sl.EndTime != nil && !sl.IsActive && !sl.EndTime.Before(from) && !sl.EndTime.After(to) {
			actuals = append(actuals, ActualEvent{Type: models.EventWake, Time: *sl.EndTime})
		}
	}
	sort.SliceStable(actuals, func(i, j int) bool {
		return actuals[i].Time.Before(actuals[j].Time)
	})
	return actuals
}

// Assignment pairs a schedule entry with the actual event that completed it.
type Assignment struct {
	ScheduleIndex int
	ActualIndex   int
}

// AssignActuals greedily gives each schedule entry, in order, the closest
// still-unused actual of the same type within windowMinutes. The result is
// order dependent, not a globally optimal assignment.
func AssignActuals(schedule []models.ScheduleEvent, actuals []ActualEvent, windowMinutes int) []Assignment {
	window := minutes(windowMinutes)
	used := make([]bool, len(actuals))
	var out []Assignment
	for i, entry := range schedule {
		best := -1
		var bestDist time.Duration
		for j, a := range actuals {
			if used[j] || a.Type != entry.Type {
				continue
			}
			d := absDuration(a.Time.Sub(entry.Time))
			if d > window {
				continue
			}
			if best < 0 || d < bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 {
			used[best] = true
			out = append(out, Assignment{ScheduleIndex: i, ActualIndex: best})
		}
	}
	return out
}

// MatchEvents returns a copy of schedule with every matched entry marked
// completed and actual. Entries keep their scheduled time.
func MatchEvents(schedule []models.ScheduleEvent, actuals []ActualEvent, windowMinutes int) []models.ScheduleEvent {
	out := append([]models.ScheduleEvent(nil), schedule...)
	for _, a := range AssignActuals(out, actuals, windowMinutes) {
		out[a.ScheduleIndex].IsCompleted = true
		out[a.ScheduleIndex].Actual = true
	}
	return out
}

// closestUnmatched finds the closest entry of type t within window of at that
// is not yet used. Ties keep the earliest index.
func closestUnmatched(entries []models.ScheduleEvent, used []bool, t models.EventType, at time.Time, window time.Duration) int {
	best := -1
	var bestDist time.Duration
	for i, e := range entries {
		if used[i] || e.Type != t {
			continue
		}
		d := absDuration(e.Time.Sub(at))
		if d > window {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
