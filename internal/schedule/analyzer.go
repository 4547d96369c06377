package schedule

import (
	"math"
	"sort"
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// clusterItem is one observation placed on the 24h clock. value carries the
// session volume (feeds) or duration in hours (sleeps); hasValue is false for
// sleeps that are still active.
type clusterItem struct {
	minute   float64
	value    float64
	hasValue bool
}

// AnalyzePatterns mines the lookback window ending at now for recurring
// time-of-day feed and sleep patterns. It is a pure function of its inputs.
func AnalyzePatterns(feedings []models.FeedingEvent, sleeps []models.SleepSession, now time.Time, s Settings) models.Analysis {
	cutoff := now.AddDate(0, 0, -s.LookbackDays)

	var windowFeedings []models.FeedingEvent
	for _, f := range feedings {
		if f.Timestamp.Before(cutoff) || f.Timestamp.After(now) {
			continue
		}
		windowFeedings = append(windowFeedings, f)
	}
	sessions := MergeFeedingSessions(windowFeedings, s.FeedingSessionWindowMinutes)

	var windowSleeps []models.SleepSession
	for _, sl := range sleeps {
		normalized, ok := NormalizeSleep(sl)
		if !ok || normalized.StartTime.Before(cutoff) || normalized.StartTime.After(now) {
			continue
		}
		windowSleeps = append(windowSleeps, normalized)
	}
	sort.SliceStable(windowSleeps, func(i, j int) bool {
		return windowSleeps[i].StartTime.Before(windowSleeps[j].StartTime)
	})

	interval := medianFeedInterval(sessions, s)
	analysis := models.Analysis{
		FeedIntervalHours:     interval,
		MinFeedGapHours:       minFeedGap(interval, s),
		RecentFeedingSessions: sessions,
	}

	volumes := make([]float64, 0, len(sessions))
	feedItems := make([]clusterItem, 0, len(sessions))
	for _, sess := range sessions {
		volumes = append(volumes, sess.TotalOz)
		feedItems = append(feedItems, clusterItem{
			minute:   float64(MinuteOfDay(sess.StartTime)),
			value:    sess.TotalOz,
			hasValue: true,
		})
	}
	analysis.OverallMedianSessionOz = round1(percentileOf(volumes, 0.5))

	sleepItems := make([]clusterItem, 0, len(windowSleeps))
	for _, sl := range windowSleeps {
		item := clusterItem{minute: float64(MinuteOfDay(sl.StartTime))}
		if sl.EndTime != nil && !sl.IsActive {
			item.value = sl.EndTime.Sub(sl.StartTime).Hours()
			item.hasValue = true
		}
		sleepItems = append(sleepItems, item)
	}

	window := float64(s.ClusterWindowMinutes)
	volumeFloor := analysis.OverallMedianSessionOz * s.VolumeFloorRatio
	for _, cluster := range clusterByTimeOfDay(feedItems, window) {
		if len(cluster) < s.MinPatternCount {
			continue
		}
		analysis.FeedPatterns = append(analysis.FeedPatterns, feedPattern(cluster, volumeFloor))
	}
	for _, cluster := range clusterByTimeOfDay(sleepItems, window) {
		if len(cluster) < s.MinPatternCount {
			continue
		}
		analysis.SleepPatterns = append(analysis.SleepPatterns, sleepPattern(cluster))
	}
	sortPatterns(analysis.FeedPatterns)
	sortPatterns(analysis.SleepPatterns)

	return analysis
}

// medianFeedInterval is the median gap between consecutive session starts,
// ignoring implausible gaps. Falls back to the configured default.
func medianFeedInterval(sessions []models.FeedingSession, s Settings) float64 {
	var gaps []float64
	for i := 1; i < len(sessions); i++ {
		h := sessions[i].StartTime.Sub(sessions[i-1].StartTime).Hours()
		if h < s.MinFeedIntervalHours || h > s.MaxFeedIntervalHours {
			continue
		}
		gaps = append(gaps, h)
	}
	if len(gaps) == 0 {
		return s.defaultInterval()
	}
	return math.Round(percentileOf(gaps, 0.5)*100) / 100
}

func minFeedGap(intervalHours float64, s Settings) float64 {
	return math.Max(s.MinFeedGapFloorHours, s.MinFeedGapRatio*intervalHours)
}

// clusterByTimeOfDay assigns each item to the first cluster holding a member
// within window minutes on the 24h clock, or opens a new cluster.
func clusterByTimeOfDay(items []clusterItem, window float64) [][]clusterItem {
	var clusters [][]clusterItem
	for _, it := range items {
		placed := false
		for ci := range clusters {
			for _, member := range clusters[ci] {
				if CircularDistance(it.minute, member.minute) <= window {
					clusters[ci] = append(clusters[ci], it)
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			clusters = append(clusters, []clusterItem{it})
		}
	}
	return clusters
}

// clusterMinutes returns the 10th/50th/90th percentile minute-of-day of a
// cluster, computed on values unwrapped around the first member so a cluster
// straddling midnight keeps a sensible center.
func clusterMinutes(cluster []clusterItem) (p10, p50, p90 int) {
	ref := cluster[0].minute
	unwrapped := make([]float64, len(cluster))
	for i, it := range cluster {
		unwrapped[i] = unwrapNear(it.minute, ref)
	}
	sort.Float64s(unwrapped)
	at := func(p float64) int {
		return int(math.Round(wrapMinutes(Percentile(unwrapped, p)))) % minutesPerDay
	}
	return at(0.1), at(0.5), at(0.9)
}

func basePattern(t models.PatternType, cluster []clusterItem) models.Pattern {
	p10, p50, p90 := clusterMinutes(cluster)
	return models.Pattern{
		Type:               t,
		Hour:               p50 / 60,
		Minute:             p50 % 60,
		AvgMinutes:         p50,
		OccurrenceCount:    len(cluster),
		WindowStartMinutes: p10,
		WindowEndMinutes:   p90,
	}
}

func feedPattern(cluster []clusterItem, volumeFloor float64) models.Pattern {
	p := basePattern(models.PatternFeed, cluster)

	values := make([]float64, 0, len(cluster))
	for _, it := range cluster {
		values = append(values, it.value)
	}
	sort.Float64s(values)
	median := math.Max(Percentile(values, 0.5), volumeFloor)
	low := math.Max(Percentile(values, 0.1), volumeFloor)
	high := math.Max(Percentile(values, 0.9), median)

	p.MedianOz = round1(median)
	p.P10Oz = round1(math.Min(low, median))
	p.P90Oz = round1(high)
	return p
}

func sleepPattern(cluster []clusterItem) models.Pattern {
	p := basePattern(models.PatternSleep, cluster)

	var durations []float64
	for _, it := range cluster {
		if it.hasValue {
			durations = append(durations, it.value)
		}
	}
	if len(durations) > 0 {
		p.AvgDurationHours = math.Round(percentileOf(durations, 0.5)*100) / 100
	}
	return p
}

// sortPatterns orders by occurrence count descending, then by time of day.
func sortPatterns(patterns []models.Pattern) {
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].OccurrenceCount != patterns[j].OccurrenceCount {
			return patterns[i].OccurrenceCount > patterns[j].OccurrenceCount
		}
		return patterns[i].AvgMinutes < patterns[j].AvgMinutes
	})
}
