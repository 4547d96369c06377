package schedule

import (
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// Violation describes a pair of entries that break a spacing rule.
type Violation struct {
	Rule  string
	First models.ScheduleEvent
	Next  models.ScheduleEvent
}

// CheckInvariants lists every pair that breaks the same-type gap (unless both
// are actual) or the feed/sleep transition gap (unless both are actual), plus
// ordering errors.
func CheckInvariants(events []models.ScheduleEvent, s Settings) []Violation {
	var out []Violation
	for i := range events {
		if i > 0 && events[i].Time.Before(events[i-1].Time) {
			out = append(out, Violation{Rule: "order", First: events[i-1], Next: events[i]})
		}
		for j := i + 1; j < len(events); j++ {
			if rule := pairViolation(events[i], events[j], s); rule != "" {
				out = append(out, Violation{Rule: rule, First: events[i], Next: events[j]})
			}
		}
	}
	return out
}

func pairViolation(a, b models.ScheduleEvent, s Settings) string {
	if a.Actual && b.Actual {
		return ""
	}
	d := absDuration(b.Time.Sub(a.Time))
	if a.Type == b.Type {
		if d < minSameGap(a.Type, s) {
			return "same-type-gap"
		}
		return ""
	}
	if isTransition(a, b) && d < minutes(s.MinTransitionGapMinutes) {
		return "transition-gap"
	}
	return ""
}

func minSameGap(t models.EventType, s Settings) time.Duration {
	if t == models.EventFeed {
		return minutes(s.MinSameFeedMinutes)
	}
	return minutes(s.MinSameSleepMinutes)
}

// enforceInvariants keeps every actual entry and admits non-actual entries in
// time order only when they clear every rule against what is already kept.
func enforceInvariants(plan []models.ScheduleEvent, s Settings) []models.ScheduleEvent {
	sortEvents(plan)
	kept := make([]models.ScheduleEvent, 0, len(plan))
	for _, ev := range plan {
		if ev.Actual {
			kept = append(kept, ev)
		}
	}
	for _, ev := range plan {
		if ev.Actual {
			continue
		}
		ok := true
		for _, k := range kept {
			if pairViolation(k, ev, s) != "" {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, ev)
		}
	}
	sortEvents(kept)
	return kept
}
