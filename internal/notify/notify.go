package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// Notifier is told about every successfully persisted schedule.
type Notifier interface {
	Notify(ctx context.Context, sched *models.PersistedSchedule) error
}

// Listener receives in-process change notifications.
type Listener func(sched models.PersistedSchedule)

// Broadcaster fans changes out to in-process listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[int]Listener)}
}

// Subscribe registers l and returns a function that removes it.
func (b *Broadcaster) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
		})
	}
}

// Notify calls every listener with a copy of sched.
func (b *Broadcaster) Notify(_ context.Context, sched *models.PersistedSchedule) error {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.RUnlock()

	for _, l := range listeners {
		snapshot := models.PersistedSchedule{
			DateKey: sched.DateKey,
			Items:   append([]models.ScheduleEvent(nil), sched.Items...),
		}
		l(snapshot)
	}
	return nil
}

// Multi notifies every target; a failing target does not stop the rest.
type Multi struct {
	targets []Notifier
	logger  *zap.Logger
}

func NewMulti(logger *zap.Logger, targets ...Notifier) *Multi {
	return &Multi{targets: targets, logger: logger}
}

func (m *Multi) Notify(ctx context.Context, sched *models.PersistedSchedule) error {
	var errs []error
	for _, t := range m.targets {
		if err := t.Notify(ctx, sched); err != nil {
			m.logger.Warn("Schedule change notification failed",
				zap.String("date_key", sched.DateKey),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
