package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

func TestMatchEvents_MarksScheduledEntry(t *testing.T) {
	schedule := []models.ScheduleEvent{
		{Type: models.EventFeed, Time: clock(14, 0), PatternBased: true, PatternCount: 4},
		{Type: models.EventSleep, Time: clock(15, 30), PatternBased: true},
	}
	actuals := CollectActuals([]models.FeedingEvent{feedAt(clock(14, 2), 3)}, nil, testDay, clock(14, 30), DefaultSettings())

	matched := MatchEvents(schedule, actuals, 30)

	require.Len(t, matched, 2)
	assert.True(t, matched[0].IsCompleted)
	assert.True(t, matched[0].Actual)
	assert.Equal(t, clock(14, 0), matched[0].Time)
	assert.False(t, matched[1].IsCompleted)
	assert.False(t, schedule[0].Actual, "input must not be modified")
}

func TestMatchEvents_Idempotent(t *testing.T) {
	schedule := []models.ScheduleEvent{
		{Type: models.EventFeed, Time: clock(9, 0), PatternBased: true},
		{Type: models.EventSleep, Time: clock(10, 0), PatternBased: true},
		{Type: models.EventFeed, Time: clock(12, 0), PatternBased: true},
	}
	actuals := []ActualEvent{
		{Type: models.EventFeed, Time: clock(9, 10)},
		{Type: models.EventSleep, Time: clock(9, 50)},
	}

	once := MatchEvents(schedule, actuals, 30)
	twice := MatchEvents(once, actuals, 30)

	assert.Equal(t, once, twice)
}

func TestAssignActuals_GreedyInScheduleOrder(t *testing.T) {
	schedule := []models.ScheduleEvent{
		{Type: models.EventFeed, Time: clock(10, 0)},
		{Type: models.EventFeed, Time: clock(10, 25)},
	}
	actuals := []ActualEvent{{Type: models.EventFeed, Time: clock(10, 20)}}

	got := AssignActuals(schedule, actuals, 30)

	// the first entry claims the actual even though the second is closer
	assert.Equal(t, []Assignment{{ScheduleIndex: 0, ActualIndex: 0}}, got)
}

func TestAssignActuals_RespectsWindowAndType(t *testing.T) {
	schedule := []models.ScheduleEvent{
		{Type: models.EventFeed, Time: clock(10, 0)},
		{Type: models.EventSleep, Time: clock(11, 0)},
	}
	actuals := []ActualEvent{
		{Type: models.EventSleep, Time: clock(10, 5)},
		{Type: models.EventFeed, Time: clock(11, 0)},
		{Type: models.EventSleep, Time: clock(11, 31)},
	}

	assert.Empty(t, AssignActuals(schedule, actuals, 30))
}

func TestCollectActuals(t *testing.T) {
	s := DefaultSettings()
	feedings := []models.FeedingEvent{
		feedAt(clock(7, 0), 2),
		feedAt(clock(7, 20), 1),
		feedAt(clock(11, 0), 4),
		feedAt(clock(15, 0), 4),
	}
	active := models.SleepSession{StartTime: clock(12, 0), IsActive: true}
	sleeps := []models.SleepSession{sleepAt(clock(8, 0), 90*time.Minute), active}

	actuals := CollectActuals(feedings, sleeps, testDay, clock(13, 0), s)

	assert.Equal(t, []ActualEvent{
		{Type: models.EventFeed, Time: clock(7, 0)},
		{Type: models.EventSleep, Time: clock(8, 0)},
		{Type: models.EventWake, Time: clock(9, 30)},
		{Type: models.EventFeed, Time: clock(11, 0)},
		{Type: models.EventSleep, Time: clock(12, 0)},
	}, actuals)
}
