package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleEvent_WireShape(t *testing.T) {
	oz := 4.5
	ev := ScheduleEvent{
		Type:          EventFeed,
		Time:          time.UnixMilli(1760000000123),
		PatternBased:  true,
		PatternCount:  5,
		TargetOz:      &oz,
		TargetOzRange: &OzRange{Min: 4, Max: 5},
	}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, float64(1760000000123), fields["timeMs"])
	assert.Equal(t, "feed", fields["type"])
	assert.Nil(t, fields["source"])
	assert.Nil(t, fields["avgDurationHours"])
	assert.Contains(t, fields, "isCompleted")

	var back ScheduleEvent
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Time.Equal(ev.Time))
	assert.Equal(t, 4.5, *back.TargetOz)
	assert.Equal(t, "", back.Source)
}

func TestSleepSettings_IsDaytime(t *testing.T) {
	day := SleepSettings{DayStartMinutes: 7 * 60, DayEndMinutes: 19*60 + 30}
	assert.True(t, day.IsDaytime(12*60))
	assert.False(t, day.IsDaytime(20*60))
	assert.False(t, day.IsDaytime(3*60))

	// night shift: the "day" wraps midnight
	wrapped := SleepSettings{DayStartMinutes: 22 * 60, DayEndMinutes: 6 * 60}
	assert.True(t, wrapped.IsDaytime(23*60))
	assert.True(t, wrapped.IsDaytime(2*60))
	assert.False(t, wrapped.IsDaytime(12*60))
}

func TestScheduleEvent_Priority(t *testing.T) {
	assert.Greater(t, ScheduleEvent{Actual: true, PatternBased: true}.Priority(), ScheduleEvent{PatternBased: true}.Priority())
	assert.Greater(t, ScheduleEvent{PatternBased: true}.Priority(), ScheduleEvent{IntervalBased: true}.Priority())
}
