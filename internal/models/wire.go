package models

import (
	"encoding/json"
	"time"
)

// scheduleEventWire is the persisted/notified shape of a ScheduleEvent.
type scheduleEventWire struct {
	Type             EventType `json:"type"`
	TimeMs           int64     `json:"timeMs"`
	PatternBased     bool      `json:"patternBased"`
	PatternCount     int       `json:"patternCount"`
	TargetOz         *float64  `json:"targetOz"`
	TargetOzRange    *OzRange  `json:"targetOzRange"`
	AvgDurationHours *float64  `json:"avgDurationHours"`
	IntervalBased    bool      `json:"intervalBased"`
	Adjusted         bool      `json:"adjusted"`
	Actual           bool      `json:"actual"`
	IsCompleted      bool      `json:"isCompleted"`
	Source           *string   `json:"source"`
}

func (e ScheduleEvent) MarshalJSON() ([]byte, error) {
	w := scheduleEventWire{
		Type:             e.Type,
		TimeMs:           e.Time.UnixMilli(),
		PatternBased:     e.PatternBased,
		PatternCount:     e.PatternCount,
		TargetOz:         e.TargetOz,
		TargetOzRange:    e.TargetOzRange,
		AvgDurationHours: e.AvgDurationHours,
		IntervalBased:    e.IntervalBased,
		Adjusted:         e.Adjusted,
		Actual:           e.Actual,
		IsCompleted:      e.IsCompleted,
	}
	if e.Source != "" {
		src := e.Source
		w.Source = &src
	}
	return json.Marshal(w)
}

func (e *ScheduleEvent) UnmarshalJSON(data []byte) error {
	var w scheduleEventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = ScheduleEvent{
		Type:             w.Type,
		Time:             time.UnixMilli(w.TimeMs),
		PatternBased:     w.PatternBased,
		PatternCount:     w.PatternCount,
		TargetOz:         w.TargetOz,
		TargetOzRange:    w.TargetOzRange,
		AvgDurationHours: w.AvgDurationHours,
		IntervalBased:    w.IntervalBased,
		Adjusted:         w.Adjusted,
		Actual:           w.Actual,
		IsCompleted:      w.IsCompleted,
	}
	if w.Source != nil {
		e.Source = *w.Source
	}
	return nil
}
