package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
	"github.com/arlebowski/Tiny-Time-sub002/internal/notify"
	"github.com/arlebowski/Tiny-Time-sub002/internal/repository"
	"github.com/arlebowski/Tiny-Time-sub002/internal/schedule"
	"github.com/arlebowski/Tiny-Time-sub002/internal/trigger"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("controller already started")

// Storage is the history collaborator. Implementations return
// repository.ErrNotReady while they cannot serve a rebuild.
type Storage interface {
	ActiveProfileID(ctx context.Context) (string, error)
	GetAllFeedings(ctx context.Context, profileID string, since time.Time) ([]models.FeedingEvent, error)
	GetAllSleepSessions(ctx context.Context, profileID string, since time.Time) ([]models.SleepSession, error)
	GetProfile(ctx context.Context, profileID string) (*models.Profile, error)
	GetSleepSettings(ctx context.Context, profileID string) (*models.SleepSettings, error)
}

// Planner runs the schedule pipeline.
type Planner interface {
	Plan(ctx context.Context, in schedule.PlanInput) schedule.PlanResult
}

// Persister stores the finished schedule.
type Persister interface {
	Save(ctx context.Context, sched *models.PersistedSchedule) error
}

// Deps are the controller's collaborators. Notifier and Sources are optional.
type Deps struct {
	Storage  Storage
	Planner  Planner
	Store    Persister
	Notifier notify.Notifier
	Sources  []trigger.Source
	// Now defaults to time.Now.
	Now func() time.Time
}

// Settings are the controller's timings.
type Settings struct {
	Debounce        time.Duration
	InputDebounce   time.Duration
	FocusDebounce   time.Duration
	VisibleDebounce time.Duration
	MinInterval     time.Duration
	Retry           time.Duration
	MidnightOffset  time.Duration
	// HistoryDays is how many days before today are loaded.
	HistoryDays int
}

// DefaultSettings returns the production timings.
func DefaultSettings() Settings {
	return Settings{
		Debounce:        250 * time.Millisecond,
		InputDebounce:   150 * time.Millisecond,
		FocusDebounce:   300 * time.Millisecond,
		VisibleDebounce: 300 * time.Millisecond,
		MinInterval:     2 * time.Second,
		Retry:           2 * time.Second,
		MidnightOffset:  50 * time.Millisecond,
		HistoryDays:     8,
	}
}

// Controller decides when today's schedule is recomputed and persists the
// result. At most one rebuild runs at a time.
type Controller struct {
	deps     Deps
	settings Settings
	logger   *zap.Logger
	flight   singleflight.Group

	mu            sync.Mutex
	started       bool
	stopped       bool
	ctx           context.Context
	cancel        context.CancelFunc
	lastRun       time.Time
	debounceTimer *time.Timer
	retryTimer    *time.Timer
	midnightTimer *time.Timer
	unsubscribe   []func()
}

// New creates a controller. Nothing runs until Start.
func New(deps Deps, settings Settings, logger *zap.Logger) *Controller {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{
		deps:     deps,
		settings: settings,
		logger:   logger,
	}
}

// Start subscribes to the trigger sources, arms the midnight timer and
// queues the initial rebuild.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)

	for _, src := range c.deps.Sources {
		c.unsubscribe = append(c.unsubscribe, src.Subscribe(c.onTrigger))
	}
	c.armMidnightLocked()
	c.mu.Unlock()

	c.logger.Info("Rebuild controller started", zap.Int("trigger_sources", len(c.deps.Sources)))
	c.QueueRebuild("startup", 0)
	return nil
}

// Stop cancels pending timers and detaches from trigger sources. An in-flight
// rebuild sees its context cancelled.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	for _, t := range []*time.Timer{c.debounceTimer, c.retryTimer, c.midnightTimer} {
		if t != nil {
			t.Stop()
		}
	}
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.cancel()
	c.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	c.logger.Info("Rebuild controller stopped")
}

// QueueRebuild (re)arms the debounce timer: a newer call replaces a pending
// one that has not started yet.
func (c *Controller) QueueRebuild(reason string, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queueLocked(reason, delay)
}

func (c *Controller) queueLocked(reason string, delay time.Duration) {
	if !c.started || c.stopped {
		return
	}
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	ctx := c.ctx
	c.debounceTimer = time.AfterFunc(delay, func() {
		if _, err := c.RebuildNow(ctx, reason); err != nil {
			c.logger.Error("Schedule rebuild failed",
				zap.String("reason", reason),
				zap.Error(err),
			)
		}
	})
}

// RebuildNow runs the pipeline immediately. It returns nil without error when
// the run was skipped (throttled or storage not ready). Concurrent callers
// share the in-flight run's result. The run itself is bound to the
// controller's lifetime; ctx only bounds how long this caller waits.
func (c *Controller) RebuildNow(ctx context.Context, reason string) (*models.PersistedSchedule, error) {
	c.mu.Lock()
	runCtx := c.ctx
	c.mu.Unlock()
	if runCtx == nil {
		runCtx = context.WithoutCancel(ctx)
	}

	ch := c.flight.DoChan("rebuild", func() (interface{}, error) {
		return c.rebuild(runCtx, reason)
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("Joined in-flight rebuild", zap.String("reason", reason))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		sched, _ := res.Val.(*models.PersistedSchedule)
		return sched, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LastRun is the start time of the most recent real rebuild.
func (c *Controller) LastRun() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun
}

func (c *Controller) rebuild(ctx context.Context, reason string) (*models.PersistedSchedule, error) {
	now := c.deps.Now()

	c.mu.Lock()
	if !c.lastRun.IsZero() && now.Sub(c.lastRun) < c.settings.MinInterval {
		// keep the newest trigger: run once the interval has passed
		wait := c.settings.MinInterval - now.Sub(c.lastRun)
		c.queueLocked(reason, wait)
		c.mu.Unlock()
		c.logger.Debug("Rebuild throttled",
			zap.String("reason", reason),
			zap.Duration("wait", wait),
		)
		return nil, nil
	}
	c.mu.Unlock()

	profileID, err := c.deps.Storage.ActiveProfileID(ctx)
	if err != nil {
		return c.notReady(reason, err)
	}

	c.mu.Lock()
	c.lastRun = now
	c.mu.Unlock()

	input, err := c.load(ctx, profileID, now)
	if err != nil {
		return c.notReady(reason, err)
	}

	start := time.Now()
	result := c.deps.Planner.Plan(ctx, input)
	sched := &models.PersistedSchedule{
		DateKey: models.DateKey(now),
		Items:   result.Items,
	}
	if err := c.deps.Store.Save(ctx, sched); err != nil {
		return nil, fmt.Errorf("failed to persist schedule: %w", err)
	}

	c.logger.Info("Schedule rebuilt",
		zap.String("reason", reason),
		zap.String("profile_id", profileID),
		zap.String("date_key", sched.DateKey),
		zap.String("strategy", string(result.Strategy)),
		zap.Int("items", len(sched.Items)),
		zap.Duration("took", time.Since(start)),
	)

	if c.deps.Notifier != nil {
		if err := c.deps.Notifier.Notify(ctx, sched); err != nil {
			c.logger.Warn("Schedule change notification failed",
				zap.String("date_key", sched.DateKey),
				zap.Error(err),
			)
		}
	}
	return sched, nil
}

func (c *Controller) load(ctx context.Context, profileID string, now time.Time) (schedule.PlanInput, error) {
	since := schedule.StartOfDay(now).AddDate(0, 0, -c.settings.HistoryDays)

	feedings, err := c.deps.Storage.GetAllFeedings(ctx, profileID, since)
	if err != nil {
		return schedule.PlanInput{}, fmt.Errorf("load feedings: %w", err)
	}
	sleeps, err := c.deps.Storage.GetAllSleepSessions(ctx, profileID, since)
	if err != nil {
		return schedule.PlanInput{}, fmt.Errorf("load sleep sessions: %w", err)
	}
	profile, err := c.deps.Storage.GetProfile(ctx, profileID)
	if err != nil {
		return schedule.PlanInput{}, fmt.Errorf("load profile: %w", err)
	}
	settings, err := c.deps.Storage.GetSleepSettings(ctx, profileID)
	if err != nil {
		return schedule.PlanInput{}, fmt.Errorf("load sleep settings: %w", err)
	}

	return schedule.PlanInput{
		ProfileID:     profileID,
		Feedings:      feedings,
		Sleeps:        sleeps,
		BirthDate:     profile.BirthDate,
		SleepSettings: settings,
		Now:           now,
	}, nil
}

// notReady schedules a retry. ErrNotReady is the expected startup state and
// is swallowed; other storage failures are also retried but reported.
func (c *Controller) notReady(reason string, err error) (*models.PersistedSchedule, error) {
	c.mu.Lock()
	c.armRetryLocked(reason)
	c.mu.Unlock()

	if errors.Is(err, repository.ErrNotReady) {
		c.logger.Debug("Storage not ready, retrying",
			zap.String("reason", reason),
			zap.Duration("retry", c.settings.Retry),
		)
		return nil, nil
	}
	return nil, err
}

func (c *Controller) armRetryLocked(reason string) {
	if !c.started || c.stopped {
		return
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = time.AfterFunc(c.settings.Retry, func() {
		c.QueueRebuild("retry:"+reason, 0)
	})
}

func (c *Controller) armMidnightLocked() {
	if c.stopped {
		return
	}
	now := c.deps.Now()
	wait := nextMidnight(now, c.settings.MidnightOffset).Sub(now)
	c.midnightTimer = time.AfterFunc(wait, func() {
		c.QueueRebuild("midnight", 0)
		c.mu.Lock()
		c.armMidnightLocked()
		c.mu.Unlock()
	})
}

// nextMidnight is the next local midnight after now, plus offset.
func nextMidnight(now time.Time, offset time.Duration) time.Time {
	return schedule.EndOfDay(now).Add(offset)
}

func (c *Controller) onTrigger(ev trigger.Event) {
	c.logger.Debug("Trigger received",
		zap.String("id", ev.ID),
		zap.String("kind", string(ev.Kind)),
		zap.String("reason", ev.Reason),
	)
	c.QueueRebuild(string(ev.Kind), c.debounceFor(ev.Kind))
}

func (c *Controller) debounceFor(kind trigger.Kind) time.Duration {
	switch kind {
	case trigger.KindInputLogged:
		return c.settings.InputDebounce
	case trigger.KindFocus:
		return c.settings.FocusDebounce
	case trigger.KindVisible:
		return c.settings.VisibleDebounce
	default:
		return c.settings.Debounce
	}
}
