package schedule

import (
	"context"
	"time"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// Strategy names which path produced the base schedule.
type Strategy string

const (
	StrategyPattern  Strategy = "pattern"
	StrategyProposer Strategy = "ai"
)

// ProposalRequest is what an external schedule proposer gets to work with.
type ProposalRequest struct {
	ProfileID string
	Analysis  models.Analysis
	AgeMonths float64
	Now       time.Time
}

// Proposer optionally supplies a base schedule. An empty result means "no
// proposal" and the deterministic builder is used instead; implementations
// must not return errors for ordinary failures.
type Proposer interface {
	Propose(ctx context.Context, req ProposalRequest) []models.ScheduleEvent
}

// PlanInput is one day's worth of raw data.
type PlanInput struct {
	ProfileID     string
	Feedings      []models.FeedingEvent
	Sleeps        []models.SleepSession
	BirthDate     time.Time
	SleepSettings *models.SleepSettings
	Now           time.Time
}

// PlanResult carries the final schedule plus the intermediate products.
type PlanResult struct {
	Analysis  models.Analysis
	Base      []models.ScheduleEvent
	Items     []models.ScheduleEvent
	Strategy  Strategy
	AgeMonths float64
}

// Engine runs analyze, build and reconcile as one pure pipeline.
type Engine struct {
	settings Settings
	proposer Proposer
}

// NewEngine returns an engine. proposer may be nil.
func NewEngine(settings Settings, proposer Proposer) *Engine {
	return &Engine{settings: settings, proposer: proposer}
}

// Settings returns the tuning the engine was built with.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Plan produces today's reconciled schedule for in.Now. Days and times of
// day are taken in in.Now's location whatever zone the inputs carry.
func (e *Engine) Plan(ctx context.Context, in PlanInput) PlanResult {
	s := e.settings
	in = localize(in)
	now := in.Now

	sleepSettings := models.DefaultSleepSettings()
	if in.SleepSettings != nil {
		sleepSettings = *in.SleepSettings
	}
	age := AgeInMonths(in.BirthDate, now)
	analysis := AnalyzePatterns(in.Feedings, in.Sleeps, now, s)

	result := PlanResult{Analysis: analysis, AgeMonths: age, Strategy: StrategyPattern}

	if e.proposer != nil {
		proposed := e.proposer.Propose(ctx, ProposalRequest{
			ProfileID: in.ProfileID,
			Analysis:  analysis,
			AgeMonths: age,
			Now:       now,
		})
		if len(proposed) > 0 {
			result.Base = FinalizeBase(proposed, now, s)
			result.Strategy = StrategyProposer
		}
	}
	if result.Strategy == StrategyPattern {
		result.Base = BuildSchedule(BuildInput{
			Analysis:              analysis,
			FallbackIntervalHours: analysis.FeedIntervalHours,
			AgeMonths:             age,
			Now:                   now,
		}, s)
	}

	result.Items = Reconcile(ReconcileInput{
		Base:              result.Base,
		Feedings:          in.Feedings,
		Sleeps:            in.Sleeps,
		Now:               now,
		FeedIntervalHours: analysis.FeedIntervalHours,
		MinFeedGapHours:   analysis.MinFeedGapHours,
		AgeMonths:         age,
		SleepSettings:     sleepSettings,
		LastKnownFeed:     lastFeedBefore(in.Feedings, StartOfDay(now), s),
	}, s)
	return result
}

// localize moves every timestamp of in into in.Now's location. Storage
// drivers hand back instants in the session zone, which need not be the
// family's.
func localize(in PlanInput) PlanInput {
	loc := in.Now.Location()

	feedings := make([]models.FeedingEvent, len(in.Feedings))
	for i, f := range in.Feedings {
		f.Timestamp = f.Timestamp.In(loc)
		feedings[i] = f
	}
	sleeps := make([]models.SleepSession, len(in.Sleeps))
	for i, sl := range in.Sleeps {
		sl.StartTime = sl.StartTime.In(loc)
		if sl.EndTime != nil {
			end := sl.EndTime.In(loc)
			sl.EndTime = &end
		}
		sleeps[i] = sl
	}

	in.Feedings = feedings
	in.Sleeps = sleeps
	if !in.BirthDate.IsZero() {
		in.BirthDate = in.BirthDate.In(loc)
	}
	return in
}

// lastFeedBefore is the start of the last merged feeding session before cutoff.
func lastFeedBefore(feedings []models.FeedingEvent, cutoff time.Time, s Settings) time.Time {
	var earlier []models.FeedingEvent
	for _, f := range feedings {
		if f.Timestamp.Before(cutoff) {
			earlier = append(earlier, f)
		}
	}
	sessions := MergeFeedingSessions(earlier, s.FeedingSessionWindowMinutes)
	if len(sessions) == 0 {
		return time.Time{}
	}
	return sessions[len(sessions)-1].StartTime
}
