package schedule

// Settings tunes every stage of the pipeline. Durations are in the unit the
// field name states so they can be loaded straight from configuration.
type Settings struct {
	// session merging and pattern mining
	FeedingSessionWindowMinutes int
	LookbackDays                int
	ClusterWindowMinutes        int
	MinPatternCount             int
	MinFeedIntervalHours        float64
	MaxFeedIntervalHours        float64
	MinFeedGapFloorHours        float64
	MinFeedGapRatio             float64
	DefaultFeedIntervalHours    float64
	VolumeFloorRatio            float64

	// building
	PatternGraceMinutes     int
	FeedDurationMinutes     int
	TransitionBufferMinutes int
	MinGenericGapMinutes    int
	DedupeWindowMinutes     int

	// matching and reconciliation
	MatchWindowMinutes           int
	FeedSkipWindowMinutes        int
	NapHoursAfterFeed            float64
	MinNapAfterFeedMinutes       int
	PatternSleepProximityMinutes int
	NapCollisionMinutes          int
	MinSameSleepMinutes          int
	MinSameFeedMinutes           int
	MinDiffTypeMinutes           int
	MinTransitionGapMinutes      int
	TransitionMaxIterations      int
	FutureFeedSkipMinutes        int
	NewbornMonths                float64
}

// DefaultSettings returns the production defaults.
func DefaultSettings() Settings {
	return Settings{
		FeedingSessionWindowMinutes: 45,
		LookbackDays:                7,
		ClusterWindowMinutes:        60,
		MinPatternCount:             3,
		MinFeedIntervalHours:        0.5,
		MaxFeedIntervalHours:        8,
		MinFeedGapFloorHours:        2.5,
		MinFeedGapRatio:             0.75,
		DefaultFeedIntervalHours:    3,
		VolumeFloorRatio:            0.85,

		PatternGraceMinutes:     30,
		FeedDurationMinutes:     20,
		TransitionBufferMinutes: 10,
		MinGenericGapMinutes:    10,
		DedupeWindowMinutes:     5,

		MatchWindowMinutes:           30,
		FeedSkipWindowMinutes:        45,
		NapHoursAfterFeed:            1.5,
		MinNapAfterFeedMinutes:       45,
		PatternSleepProximityMinutes: 60,
		NapCollisionMinutes:          25,
		MinSameSleepMinutes:          75,
		MinSameFeedMinutes:           90,
		MinDiffTypeMinutes:           20,
		MinTransitionGapMinutes:      30,
		TransitionMaxIterations:      8,
		FutureFeedSkipMinutes:        35,
		NewbornMonths:                1,
	}
}

// builtinFeedIntervalHours backs DefaultFeedIntervalHours when it is unusable.
const builtinFeedIntervalHours = 3

// defaultInterval is DefaultFeedIntervalHours, or the built-in 3h when the
// configured value is not positive.
func (s Settings) defaultInterval() float64 {
	if s.DefaultFeedIntervalHours > 0 {
		return s.DefaultFeedIntervalHours
	}
	return builtinFeedIntervalHours
}
