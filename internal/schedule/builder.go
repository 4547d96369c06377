package schedule

import (
	"sort"
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

const (
	SourcePattern          = "pattern"
	SourceActual           = "actual"
	SourceInterval         = "interval"
	SourceIntervalNap      = "interval-nap"
	SourceIntervalFallback = "interval-fallback"
	SourceProposer         = "ai"

	markerCollisionShifted = "collision-shifted"
)

// BuildInput feeds the deterministic schedule builder.
type BuildInput struct {
	Analysis              models.Analysis
	FallbackIntervalHours float64
	AgeMonths             float64
	Now                   time.Time
}

// BuildSchedule projects today's accepted patterns onto the calendar and
// resolves collisions between them. Every returned entry is pattern based.
func BuildSchedule(in BuildInput, s Settings) []models.ScheduleEvent {
	now := in.Now
	nowMinutes := MinuteOfDay(now)
	threshold := nowMinutes - s.PatternGraceMinutes

	gapHours := in.Analysis.MinFeedGapHours
	if gapHours <= 0 {
		fallback := in.FallbackIntervalHours
		if fallback <= 0 {
			fallback = s.defaultInterval()
		}
		gapHours = minFeedGap(fallback, s)
	}
	feedGap := hours(gapHours)

	var events []models.ScheduleEvent
	var feedTimes []time.Time
	for _, p := range in.Analysis.FeedPatterns {
		if p.AvgMinutes < threshold {
			continue
		}
		at := AtMinute(now, p.AvgMinutes)
		tooClose := false
		for _, ft := range feedTimes {
			if absDuration(at.Sub(ft)) < feedGap {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		feedTimes = append(feedTimes, at)
		events = append(events, feedFromPattern(p, at))
	}

	for _, p := range in.Analysis.SleepPatterns {
		if p.AvgMinutes < threshold {
			continue
		}
		events = append(events, sleepFromPattern(p, AtMinute(now, p.AvgMinutes)))
	}

	return FinalizeBase(events, now, s)
}

// FinalizeBase applies collision resolution and deduplication to a candidate
// base schedule and drops wake entries and anything past the end of the day.
// It is shared by the deterministic builder and proposer output.
func FinalizeBase(events []models.ScheduleEvent, now time.Time, s Settings) []models.ScheduleEvent {
	end := EndOfDay(now)

	kept := make([]models.ScheduleEvent, 0, len(events))
	for _, ev := range events {
		if ev.Type == models.EventWake {
			continue
		}
		kept = append(kept, ev)
	}
	sortEvents(kept)

	kept = resolveBuildCollisions(kept, s)
	kept = dedupe(kept, s)

	out := kept[:0]
	for _, ev := range kept {
		if ev.Time.Before(end) {
			out = append(out, ev)
		}
	}
	return out
}

func feedFromPattern(p models.Pattern, at time.Time) models.ScheduleEvent {
	ev := models.ScheduleEvent{
		Type:         models.EventFeed,
		Time:         at,
		PatternBased: true,
		PatternCount: p.OccurrenceCount,
		Source:       SourcePattern,
	}
	if p.MedianOz > 0 {
		oz := p.MedianOz
		ev.TargetOz = &oz
	}
	if p.P90Oz > 0 {
		ev.TargetOzRange = &models.OzRange{Min: p.P10Oz, Max: p.P90Oz}
	}
	return ev
}

func sleepFromPattern(p models.Pattern, at time.Time) models.ScheduleEvent {
	ev := models.ScheduleEvent{
		Type:         models.EventSleep,
		Time:         at,
		PatternBased: true,
		PatternCount: p.OccurrenceCount,
		Source:       SourcePattern,
	}
	if p.AvgDurationHours > 0 {
		d := p.AvgDurationHours
		ev.AvgDurationHours = &d
	}
	return ev
}

// resolveBuildCollisions walks adjacent pairs pushing the later entry out:
// a sleep right after a feed waits for the feed plus transition buffer, any
// other pair gets the generic minimum gap. Same-type pairs inside the dedupe
// window are left for dedupe to collapse.
func resolveBuildCollisions(events []models.ScheduleEvent, s Settings) []models.ScheduleEvent {
	transition := minutes(s.FeedDurationMinutes + s.TransitionBufferMinutes)
	generic := minutes(s.MinGenericGapMinutes)
	dedupeWindow := minutes(s.DedupeWindowMinutes)

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], &events[i]
		gap := cur.Time.Sub(prev.Time)
		switch {
		case prev.Type == models.EventFeed && cur.Type == models.EventSleep && gap < transition:
			cur.Time = prev.Time.Add(transition)
			cur.Adjusted = true
			cur.AdjustReason = "feed-to-sleep transition"
		case prev.Type == cur.Type && gap <= dedupeWindow:
		case gap < generic:
			cur.Time = prev.Time.Add(generic)
			cur.Adjusted = true
			cur.AdjustReason = "minimum gap"
		}
	}
	sortEvents(events)
	return events
}

// dedupe collapses same-type entries within the dedupe window into the one
// with the higher pattern count (ties prefer pattern over interval based).
func dedupe(events []models.ScheduleEvent, s Settings) []models.ScheduleEvent {
	window := minutes(s.DedupeWindowMinutes)
	out := make([]models.ScheduleEvent, 0, len(events))
	last := map[models.EventType]int{}
	for _, ev := range events {
		if li, ok := last[ev.Type]; ok && ev.Time.Sub(out[li].Time) <= window {
			if dedupeWins(ev, out[li]) {
				out[li] = ev
			}
			continue
		}
		out = append(out, ev)
		last[ev.Type] = len(out) - 1
	}
	sortEvents(out)
	return out
}

func dedupeWins(candidate, incumbent models.ScheduleEvent) bool {
	if candidate.PatternCount != incumbent.PatternCount {
		return candidate.PatternCount > incumbent.PatternCount
	}
	return candidate.PatternBased && !incumbent.PatternBased && incumbent.IntervalBased
}

var typeOrder = map[models.EventType]int{
	models.EventFeed:  0,
	models.EventSleep: 1,
	models.EventWake:  2,
}

// sortEvents orders by time; simultaneous entries order feed before sleep,
// then by priority.
func sortEvents(events []models.ScheduleEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		if typeOrder[a.Type] != typeOrder[b.Type] {
			return typeOrder[a.Type] < typeOrder[b.Type]
		}
		return a.Priority() > b.Priority()
	})
}
