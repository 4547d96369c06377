package proposer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
	"github.com/arlebowski/Tiny-Time-sub002/internal/schedule"
)

var errNoArray = errors.New("no JSON array in response")

type proposedItem struct {
	Type         string `json:"type"`
	Time         string `json:"time"`
	PatternCount int    `json:"patternCount"`
}

// ParseProposal extracts the first bracketed JSON array from raw and turns it
// into schedule entries on now's date. Wake entries and items with an unknown
// type or unreadable time are skipped.
func ParseProposal(raw string, now time.Time) ([]models.ScheduleEvent, error) {
	start := strings.Index(raw, "[")
	if start < 0 {
		return nil, errNoArray
	}

	// Decode stops at the array's own closing bracket, so trailing prose
	// such as a "[1]" citation is ignored.
	var items []proposedItem
	if err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode proposal: %w", err)
	}

	var out []models.ScheduleEvent
	for _, it := range items {
		t := models.EventType(strings.ToLower(strings.TrimSpace(it.Type)))
		if t != models.EventFeed && t != models.EventSleep {
			continue
		}
		minute, ok := parseClock(it.Time)
		if !ok {
			continue
		}
		out = append(out, models.ScheduleEvent{
			Type:         t,
			Time:         schedule.AtMinute(now, minute),
			PatternBased: true,
			PatternCount: it.PatternCount,
			Source:       schedule.SourceProposer,
		})
	}
	if len(out) == 0 {
		return nil, errors.New("proposal has no usable items")
	}
	return out, nil
}

// parseClock reads "HH:MM" in 24 hour form.
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
