package trigger

import (
	"time"

	"github.com/google/uuid"
)

// Manual fires triggers on explicit calls, e.g. from the HTTP surface.
type Manual struct {
	hub
}

func NewManual() *Manual {
	return &Manual{}
}

// Fire delivers a trigger of kind to every subscriber and returns its id.
func (m *Manual) Fire(kind Kind, reason string) string {
	ev := Event{
		ID:     uuid.NewString(),
		Kind:   kind,
		Reason: reason,
		At:     time.Now(),
	}
	m.emit(ev)
	return ev.ID
}
