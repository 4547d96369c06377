package schedule

import (
	"sort"
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// MergeFeedingSessions folds feedings that start within windowMinutes of the
// open session's end into one session. Input order does not matter.
func MergeFeedingSessions(feedings []models.FeedingEvent, windowMinutes int) []models.FeedingSession {
	if len(feedings) == 0 {
		return nil
	}
	sorted := append([]models.FeedingEvent(nil), feedings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	window := minutes(windowMinutes)
	var sessions []models.FeedingSession
	cur := models.FeedingSession{
		StartTime:   sorted[0].Timestamp,
		EndTime:     sorted[0].Timestamp,
		TotalOz:     nonNegative(sorted[0].Ounces),
		SourceCount: 1,
	}
	for _, f := range sorted[1:] {
		if f.Timestamp.Sub(cur.EndTime) <= window {
			cur.EndTime = f.Timestamp
			cur.TotalOz += nonNegative(f.Ounces)
			cur.SourceCount++
			continue
		}
		cur.TotalOz = round1(cur.TotalOz)
		sessions = append(sessions, cur)
		cur = models.FeedingSession{
			StartTime:   f.Timestamp,
			EndTime:     f.Timestamp,
			TotalOz:     nonNegative(f.Ounces),
			SourceCount: 1,
		}
	}
	cur.TotalOz = round1(cur.TotalOz)
	return append(sessions, cur)
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// NormalizeSleep repairs a session whose end precedes its start by assuming
// the end belongs to the following day. ok is false when the session is still
// inconsistent (or longer than a day) after that.
func NormalizeSleep(s models.SleepSession) (models.SleepSession, bool) {
	if s.StartTime.IsZero() {
		return s, false
	}
	if s.EndTime == nil {
		return s, true
	}
	end := *s.EndTime
	if end.Before(s.StartTime) {
		end = end.Add(24 * time.Hour)
	}
	if end.Before(s.StartTime) || end.Sub(s.StartTime) > 24*time.Hour {
		return s, false
	}
	s.EndTime = &end
	return s, true
}

// AgeInMonths returns the fractional age at now.
func AgeInMonths(birth, now time.Time) float64 {
	if birth.IsZero() || now.Before(birth) {
		return 0
	}
	const daysPerMonth = 30.4375
	return now.Sub(birth).Hours() / 24 / daysPerMonth
}
