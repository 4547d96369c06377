package proposer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
	"github.com/arlebowski/Tiny-Time-sub002/internal/schedule"
)

// ErrQuotaExceeded classifies generator failures caused by rate limits or
// exhausted quota.
var ErrQuotaExceeded = errors.New("ai quota exceeded")

var quotaMarkers = []string{"429", "quota", "rate limit", "rate_limit", "resource_exhausted", "too many requests"}

// Options configures the proposer.
type Options struct {
	Enabled       bool
	Cooldown      time.Duration
	QuotaCooldown time.Duration
}

// DefaultOptions returns a disabled proposer with the standard cooldowns.
func DefaultOptions() Options {
	return Options{
		Cooldown:      15 * time.Minute,
		QuotaCooldown: 120 * time.Minute,
	}
}

// Proposer asks a Generator for a base schedule. It never returns errors:
// every failure degrades to an empty proposal so the deterministic builder
// takes over.
type Proposer struct {
	gen    Generator
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastCall time.Time
}

// New creates a proposer. gen may be nil, which disables it.
func New(gen Generator, opts Options, logger *zap.Logger) *Proposer {
	return &Proposer{
		gen:    gen,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Propose implements schedule.Proposer.
func (p *Proposer) Propose(ctx context.Context, req schedule.ProposalRequest) []models.ScheduleEvent {
	if !p.opts.Enabled || p.gen == nil || req.ProfileID == "" {
		return nil
	}
	if !p.acquire() {
		p.logger.Debug("AI proposal skipped, cooling down", zap.String("profile_id", req.ProfileID))
		return nil
	}

	raw, err := p.gen.GetAIResponse(ctx, BuildPrompt(req), req.ProfileID)
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrQuotaExceeded) {
			p.extendCooldown()
			p.logger.Warn("AI quota exhausted, backing off",
				zap.String("profile_id", req.ProfileID),
				zap.Duration("cooldown", p.opts.QuotaCooldown),
				zap.Error(err),
			)
			return nil
		}
		p.logger.Warn("AI proposal failed, using pattern schedule",
			zap.String("profile_id", req.ProfileID),
			zap.Error(err),
		)
		return nil
	}

	items, err := ParseProposal(raw, req.Now)
	if err != nil {
		p.logger.Debug("Discarding unparseable AI proposal", zap.Error(err))
		return nil
	}
	p.logger.Info("AI proposal accepted",
		zap.String("profile_id", req.ProfileID),
		zap.Int("items", len(items)),
	)
	return items
}

// acquire claims the call slot when the cooldown has elapsed.
func (p *Proposer) acquire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if !p.lastCall.IsZero() && now.Sub(p.lastCall) < p.opts.Cooldown {
		return false
	}
	p.lastCall = now
	return true
}

// extendCooldown moves the last call forward so the next attempt waits the
// quota cooldown instead of the regular one.
func (p *Proposer) extendCooldown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastCall = p.now().Add(p.opts.QuotaCooldown - p.opts.Cooldown)
}

func classify(err error) error {
	if err == nil || errors.Is(err, ErrQuotaExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return errors.Join(ErrQuotaExceeded, err)
		}
	}
	return err
}
