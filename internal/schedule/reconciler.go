package schedule

import (
	"strings"
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// ReconcileInput is everything the forward re-solver needs for one day.
type ReconcileInput struct {
	// Base is the pattern schedule for today from the builder or proposer.
	Base []models.ScheduleEvent
	// Feedings and Sleeps may span any range; only today's entries up to Now are used.
	Feedings          []models.FeedingEvent
	Sleeps            []models.SleepSession
	Now               time.Time
	FeedIntervalHours float64
	MinFeedGapHours   float64
	AgeMonths         float64
	SleepSettings     models.SleepSettings
	// LastKnownFeed seeds the future-feed guarantee when nothing today has a feed.
	LastKnownFeed time.Time
}

type reconciler struct {
	in       ReconcileInput
	s        Settings
	now      time.Time
	end      time.Time
	interval time.Duration
}

// Reconcile re-solves today's schedule against what has actually happened.
// Actual entries are immutable anchors; everything else may be shifted,
// replaced or dropped so that the gap and transition rules hold.
func Reconcile(in ReconcileInput, s Settings) []models.ScheduleEvent {
	interval := hours(in.FeedIntervalHours)
	if interval < time.Minute {
		interval = hours(s.defaultInterval())
	}
	r := &reconciler{
		in:       in,
		s:        s,
		now:      in.Now,
		end:      EndOfDay(in.Now),
		interval: interval,
	}
	return r.run()
}

func (r *reconciler) run() []models.ScheduleEvent {
	base := make([]models.ScheduleEvent, 0, len(r.in.Base))
	for _, ev := range r.in.Base {
		if ev.Type != models.EventWake {
			base = append(base, ev)
		}
	}
	sortEvents(base)

	var actuals []ActualEvent
	for _, a := range CollectActuals(r.in.Feedings, r.in.Sleeps, StartOfDay(r.now), r.now, r.s) {
		if a.Type != models.EventWake {
			actuals = append(actuals, a)
		}
	}

	var plan []models.ScheduleEvent
	if len(actuals) == 0 {
		plan = append(plan, base...)
	} else {
		var lastFeed time.Time
		plan, lastFeed = r.anchorActuals(base, actuals)
		if !lastFeed.IsZero() {
			plan = r.appendIntervalFeeds(plan, lastFeed)
		}
	}

	plan = r.appendIntervalNaps(plan)
	plan = r.normalize(plan)

	if guaranteed, added := r.ensureFutureFeed(plan); added {
		plan = r.normalize(guaranteed)
	}

	plan = enforceInvariants(plan, r.s)

	out := plan[:0]
	for _, ev := range plan {
		if ev.Type != models.EventWake {
			out = append(out, ev)
		}
	}
	return out
}

// anchorActuals emits one entry per actual event (the matched schedule entry
// when there is one) followed by the still-relevant future pattern entries.
func (r *reconciler) anchorActuals(base []models.ScheduleEvent, actuals []ActualEvent) ([]models.ScheduleEvent, time.Time) {
	window := minutes(r.s.MatchWindowMinutes)
	used := make([]bool, len(base))
	var plan []models.ScheduleEvent
	var lastFeed time.Time

	for _, a := range actuals {
		if a.Type == models.EventFeed && a.Time.After(lastFeed) {
			lastFeed = a.Time
		}
		if idx := closestUnmatched(base, used, a.Type, a.Time, window); idx >= 0 {
			used[idx] = true
			ev := base[idx]
			ev.Time = a.Time
			ev.Actual = true
			ev.IsCompleted = true
			plan = append(plan, ev)
			continue
		}
		plan = append(plan, models.ScheduleEvent{
			Type:        a.Type,
			Time:        a.Time,
			Actual:      true,
			Adjusted:    true,
			IsCompleted: true,
			Source:      SourceActual,
		})
	}

	gapHours := r.in.MinFeedGapHours
	if gapHours <= 0 {
		gapHours = minFeedGap(r.interval.Hours(), r.s)
	}
	feedGap := hours(gapHours)
	for i, ev := range base {
		if used[i] || ev.Actual || !ev.PatternBased || ev.IntervalBased || !ev.Time.After(r.now) {
			continue
		}
		if ev.Type == models.EventFeed && !lastFeed.IsZero() && absDuration(ev.Time.Sub(lastFeed)) < feedGap {
			continue
		}
		plan = append(plan, ev)
	}
	return plan, lastFeed
}

// appendIntervalFeeds chains feeds every interval after the last actual feed.
func (r *reconciler) appendIntervalFeeds(plan []models.ScheduleEvent, lastFeed time.Time) []models.ScheduleEvent {
	skip := minutes(r.s.FeedSkipWindowMinutes)
	newborn := r.in.AgeMonths < r.s.NewbornMonths
	for t := lastFeed.Add(r.interval); t.Before(r.end); t = t.Add(r.interval) {
		if !t.After(r.now) {
			continue
		}
		if hasNear(plan, models.EventFeed, t, skip, nil) {
			continue
		}
		if !newborn && !r.in.SleepSettings.IsDaytime(MinuteOfDay(t)) {
			continue
		}
		plan = append(plan, models.ScheduleEvent{
			Type:          models.EventFeed,
			Time:          t,
			IntervalBased: true,
			Source:        SourceInterval,
		})
	}
	return plan
}

// appendIntervalNaps proposes a nap a fixed time after each feed unless sleep
// is already planned nearby or the slot is crowded.
func (r *reconciler) appendIntervalNaps(plan []models.ScheduleEvent) []models.ScheduleEvent {
	sortEvents(plan)
	after := hours(r.s.NapHoursAfterFeed)
	if after < minutes(r.s.MinNapAfterFeedMinutes) {
		return plan
	}
	proximity := minutes(r.s.PatternSleepProximityMinutes)
	crowd := minutes(r.s.NapCollisionMinutes)

	feeds := make([]time.Time, 0)
	for _, ev := range plan {
		if ev.Type == models.EventFeed {
			feeds = append(feeds, ev.Time)
		}
	}

	isAnchoredSleep := func(ev models.ScheduleEvent) bool {
		return ev.PatternBased || ev.Actual
	}
	for _, ft := range feeds {
		nap := ft.Add(after)
		if !nap.After(r.now) || !nap.Before(r.end) {
			continue
		}
		if !r.in.SleepSettings.IsDaytime(MinuteOfDay(nap)) {
			continue
		}
		if hasNear(plan, models.EventSleep, nap, proximity, isAnchoredSleep) {
			continue
		}
		if hasNear(plan, "", nap, crowd, nil) {
			continue
		}
		plan = append(plan, models.ScheduleEvent{
			Type:          models.EventSleep,
			Time:          nap,
			IntervalBased: true,
			Source:        SourceIntervalNap,
		})
	}
	return plan
}

// normalize runs the forward passes: same-type collisions, cross-type
// collisions, same-type again for anything the push created, then the
// feed/sleep transition pass.
func (r *reconciler) normalize(plan []models.ScheduleEvent) []models.ScheduleEvent {
	plan = r.resolveSameType(plan)
	plan = r.resolveCrossType(plan)
	plan = r.resolveSameType(plan)
	return r.enforceTransitions(plan)
}

func (r *reconciler) minSame(t models.EventType) time.Duration {
	if t == models.EventFeed {
		return minutes(r.s.MinSameFeedMinutes)
	}
	return minutes(r.s.MinSameSleepMinutes)
}

// resolveSameType keeps, for each too-close same-type pair, the entry with the
// higher priority (actual > pattern > interval, then pattern count). The
// loser is replaced in place.
func (r *reconciler) resolveSameType(plan []models.ScheduleEvent) []models.ScheduleEvent {
	sortEvents(plan)
	out := make([]models.ScheduleEvent, 0, len(plan))
	last := map[models.EventType]int{}
	for _, ev := range plan {
		if li, ok := last[ev.Type]; ok {
			prev := out[li]
			if ev.Time.Sub(prev.Time) < r.minSame(ev.Type) && !(prev.Actual && ev.Actual) {
				if outranks(ev, prev) {
					out[li] = ev
				}
				continue
			}
		}
		out = append(out, ev)
		last[ev.Type] = len(out) - 1
	}
	sortEvents(out)
	return out
}

func outranks(a, b models.ScheduleEvent) bool {
	if a.Priority() != b.Priority() {
		return a.Priority() > b.Priority()
	}
	return a.PatternCount > b.PatternCount
}

// resolveCrossType pushes the non-actual member of a too-close adjacent
// different-type pair to the other's time plus the minimum gap. Pairs of two
// actuals are left alone; pushes past the end of the day drop the entry.
func (r *reconciler) resolveCrossType(plan []models.ScheduleEvent) []models.ScheduleEvent {
	gap := minutes(r.s.MinDiffTypeMinutes)
	// every push moves an entry strictly later, so this settles; the cap guards
	// against pathological input.
	for guard := 0; guard < 4*len(plan)+4; guard++ {
		sortEvents(plan)
		idx := -1
		for i := 1; i < len(plan); i++ {
			a, b := plan[i-1], plan[i]
			if a.Type == b.Type || a.Actual && b.Actual {
				continue
			}
			if b.Time.Sub(a.Time) < gap {
				idx = i
				break
			}
		}
		if idx < 0 {
			return plan
		}
		anchor, mover := idx-1, idx
		if plan[idx].Actual {
			anchor, mover = idx, idx-1
		}
		plan = r.shift(plan, anchor, mover, gap, "")
	}
	return plan
}

// enforceTransitions is the independent feed/sleep pass: the non-actual member
// of a too-close pair is moved to exactly anchor + gap, for a bounded number
// of sweeps.
func (r *reconciler) enforceTransitions(plan []models.ScheduleEvent) []models.ScheduleEvent {
	gap := minutes(r.s.MinTransitionGapMinutes)
	for iter := 0; iter < r.s.TransitionMaxIterations; iter++ {
		sortEvents(plan)
		changed := false
		for i := 0; i+1 < len(plan); {
			a, b := plan[i], plan[i+1]
			if !isTransition(a, b) || a.Actual && b.Actual || b.Time.Sub(a.Time) >= gap {
				i++
				continue
			}
			anchor, mover := i, i+1
			if b.Actual {
				anchor, mover = i+1, i
			}
			before := len(plan)
			plan = r.shift(plan, anchor, mover, gap, markerCollisionShifted)
			changed = true
			if len(plan) == before {
				i++
			}
		}
		if !changed {
			break
		}
	}
	sortEvents(plan)
	return plan
}

// shift moves plan[mover] to plan[anchor].Time+gap, or removes it when that
// lands at or past the end of the day.
func (r *reconciler) shift(plan []models.ScheduleEvent, anchor, mover int, gap time.Duration, marker string) []models.ScheduleEvent {
	target := plan[anchor].Time.Add(gap)
	if !target.Before(r.end) {
		return append(plan[:mover], plan[mover+1:]...)
	}
	plan[mover].Time = target
	plan[mover].Adjusted = true
	if marker != "" {
		plan[mover].Source = appendMarker(plan[mover].Source, marker)
	}
	return plan
}

// ensureFutureFeed makes sure at least one feed remains after now by stepping
// the interval forward from the last known feed. added reports whether any
// feed was synthesized.
func (r *reconciler) ensureFutureFeed(plan []models.ScheduleEvent) ([]models.ScheduleEvent, bool) {
	var last time.Time
	for _, ev := range plan {
		if ev.Type != models.EventFeed {
			continue
		}
		if ev.Time.After(r.now) {
			return plan, false
		}
		if ev.Time.After(last) {
			last = ev.Time
		}
	}
	if last.IsZero() {
		last = r.in.LastKnownFeed
	}
	if last.IsZero() {
		last = r.now
	}

	t := last.Add(r.interval)
	if !t.After(r.now) {
		steps := r.now.Sub(t)/r.interval + 1
		t = t.Add(steps * r.interval)
	}
	skip := minutes(r.s.FutureFeedSkipMinutes)
	added := false
	for ; t.Before(r.end); t = t.Add(r.interval) {
		if hasNear(plan, models.EventFeed, t, skip, func(ev models.ScheduleEvent) bool { return ev.Time.After(r.now) }) {
			continue
		}
		plan = append(plan, models.ScheduleEvent{
			Type:          models.EventFeed,
			Time:          t,
			IntervalBased: true,
			Source:        SourceIntervalFallback,
		})
		added = true
	}
	return plan, added
}

func isTransition(a, b models.ScheduleEvent) bool {
	return a.Type == models.EventFeed && b.Type == models.EventSleep ||
		a.Type == models.EventSleep && b.Type == models.EventFeed
}

// hasNear reports whether plan holds an entry of type t (any type when t is
// empty) within d of at that also satisfies keep (when non-nil).
func hasNear(plan []models.ScheduleEvent, t models.EventType, at time.Time, d time.Duration, keep func(models.ScheduleEvent) bool) bool {
	for _, ev := range plan {
		if t != "" && ev.Type != t {
			continue
		}
		if keep != nil && !keep(ev) {
			continue
		}
		if absDuration(ev.Time.Sub(at)) < d {
			return true
		}
	}
	return false
}

func appendMarker(source, marker string) string {
	if source == "" {
		return marker
	}
	if strings.Contains(source, marker) {
		return source
	}
	return source + "|" + marker
}
