package trigger

import (
	"fmt"
	"sync"
	"time"
)

// Kind is the host signal behind a trigger.
type Kind string

const (
	// KindInputLogged fires after the host writes a feeding or sleep record.
	KindInputLogged Kind = "input_logged"
	KindFocus       Kind = "focus"
	KindVisible     Kind = "visible"
)

// ParseKind validates a wire kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindInputLogged, KindFocus, KindVisible:
		return k, nil
	default:
		return "", fmt.Errorf("unknown trigger kind %q", s)
	}
}

// Event is one trigger delivered to subscribers.
type Event struct {
	ID     string
	Kind   Kind
	Reason string
	At     time.Time
}

// Source delivers trigger events to subscribers.
type Source interface {
	Subscribe(fn func(Event)) (unsubscribe func())
}

// hub is the subscriber registry every source embeds.
type hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func (h *hub) Subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(Event))
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
		})
	}
}

func (h *hub) emit(ev Event) {
	h.mu.RLock()
	subs := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}
