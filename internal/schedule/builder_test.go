package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

func TestBuildSchedule_SleepAfterFeedIsPushed(t *testing.T) {
	in := BuildInput{
		Analysis: models.Analysis{
			FeedIntervalHours: 3,
			MinFeedGapHours:   2.5,
			FeedPatterns: []models.Pattern{
				{Type: models.PatternFeed, AvgMinutes: 570, OccurrenceCount: 5, MedianOz: 4, P10Oz: 3.5, P90Oz: 5},
			},
			SleepPatterns: []models.Pattern{
				{Type: models.PatternSleep, AvgMinutes: 575, OccurrenceCount: 4, AvgDurationHours: 1.2},
			},
		},
		Now: clock(6, 0),
	}

	events := BuildSchedule(in, DefaultSettings())

	require.Len(t, events, 2)
	feed, sleep := events[0], events[1]
	assert.Equal(t, models.EventFeed, feed.Type)
	assert.Equal(t, clock(9, 30), feed.Time)
	assert.False(t, feed.Adjusted)
	require.NotNil(t, feed.TargetOz)
	assert.Equal(t, 4.0, *feed.TargetOz)
	assert.Equal(t, &models.OzRange{Min: 3.5, Max: 5}, feed.TargetOzRange)

	assert.Equal(t, models.EventSleep, sleep.Type)
	assert.Equal(t, clock(10, 0), sleep.Time)
	assert.True(t, sleep.Adjusted)
	assert.True(t, sleep.PatternBased)
	assert.Equal(t, 4, sleep.PatternCount)
	require.NotNil(t, sleep.AvgDurationHours)
	assert.Equal(t, 1.2, *sleep.AvgDurationHours)
}

func TestBuildSchedule_DropsPastPatternsAndCloseFeeds(t *testing.T) {
	in := BuildInput{
		Analysis: models.Analysis{
			MinFeedGapHours: 2.5,
			FeedPatterns: []models.Pattern{
				{Type: models.PatternFeed, AvgMinutes: 720, OccurrenceCount: 6},
				{Type: models.PatternFeed, AvgMinutes: 480, OccurrenceCount: 5},
				{Type: models.PatternFeed, AvgMinutes: 560, OccurrenceCount: 4},
				{Type: models.PatternFeed, AvgMinutes: 840, OccurrenceCount: 3},
			},
		},
		Now: clock(9, 0),
	}

	events := BuildSchedule(in, DefaultSettings())

	// 08:00 is older than the grace period; 14:00 is within the gap of 12:00.
	require.Len(t, events, 2)
	assert.Equal(t, clock(9, 20), events[0].Time)
	assert.Equal(t, clock(12, 0), events[1].Time)
	for _, ev := range events {
		assert.True(t, ev.PatternBased)
		assert.Equal(t, SourcePattern, ev.Source)
	}
}

func TestBuildSchedule_DedupeKeepsStrongerPattern(t *testing.T) {
	in := BuildInput{
		Analysis: models.Analysis{
			SleepPatterns: []models.Pattern{
				{Type: models.PatternSleep, AvgMinutes: 840, OccurrenceCount: 3},
				{Type: models.PatternSleep, AvgMinutes: 843, OccurrenceCount: 5},
			},
		},
		Now: clock(9, 0),
	}

	events := BuildSchedule(in, DefaultSettings())

	require.Len(t, events, 1)
	assert.Equal(t, clock(14, 3), events[0].Time)
	assert.Equal(t, 5, events[0].PatternCount)
}

func TestFinalizeBase_DropsWakesAndNextDay(t *testing.T) {
	now := clock(20, 0)
	events := []models.ScheduleEvent{
		{Type: models.EventWake, Time: clock(21, 0)},
		{Type: models.EventFeed, Time: clock(23, 55), PatternBased: true},
		{Type: models.EventSleep, Time: clock(23, 58), PatternBased: true},
		{Type: models.EventFeed, Time: clock(21, 30), PatternBased: true},
	}

	out := FinalizeBase(events, now, DefaultSettings())

	// the 23:58 sleep is pushed to 00:25 and leaves the day
	require.Len(t, out, 2)
	assert.Equal(t, []models.EventType{models.EventFeed, models.EventFeed}, []models.EventType{out[0].Type, out[1].Type})
	assert.Equal(t, clock(21, 30), out[0].Time)
}

func TestSortEvents_TieBreaks(t *testing.T) {
	at := clock(10, 0)
	events := []models.ScheduleEvent{
		{Type: models.EventSleep, Time: at},
		{Type: models.EventFeed, Time: at, IntervalBased: true},
		{Type: models.EventFeed, Time: at, Actual: true},
		{Type: models.EventFeed, Time: clock(9, 0)},
	}

	sortEvents(events)

	assert.Equal(t, clock(9, 0), events[0].Time)
	assert.True(t, events[1].Actual)
	assert.True(t, events[2].IntervalBased)
	assert.Equal(t, models.EventSleep, events[3].Type)
}
