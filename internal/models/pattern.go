package models

// PatternType distinguishes feed and sleep patterns.
type PatternType string

const (
	PatternFeed  PatternType = "feed"
	PatternSleep PatternType = "sleep"
)

// Pattern is a recurring time-of-day cluster mined from history.
type Pattern struct {
	Type               PatternType `json:"type"`
	Hour               int         `json:"hour"`
	Minute             int         `json:"minute"`
	AvgMinutes         int         `json:"avg_minutes"`
	OccurrenceCount    int         `json:"occurrence_count"`
	WindowStartMinutes int         `json:"window_start_minutes"`
	WindowEndMinutes   int         `json:"window_end_minutes"`

	// feed patterns
	MedianOz float64 `json:"median_oz,omitempty"`
	P10Oz    float64 `json:"p10_oz,omitempty"`
	P90Oz    float64 `json:"p90_oz,omitempty"`

	// sleep patterns
	AvgDurationHours float64 `json:"avg_duration_hours,omitempty"`
}

// Analysis is the output of the pattern analyzer.
type Analysis struct {
	FeedIntervalHours      float64          `json:"feed_interval_hours"`
	MinFeedGapHours        float64          `json:"min_feed_gap_hours"`
	FeedPatterns           []Pattern        `json:"feed_patterns"`
	SleepPatterns          []Pattern        `json:"sleep_patterns"`
	RecentFeedingSessions  []FeedingSession `json:"recent_feeding_sessions"`
	OverallMedianSessionOz float64          `json:"overall_median_session_oz"`
}
