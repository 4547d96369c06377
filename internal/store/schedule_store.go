package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// Options names and expires persisted schedules.
type Options struct {
	Prefix         string
	InstallationID string
	TTL            time.Duration
}

// ScheduleStore persists one schedule record per calendar day.
type ScheduleStore struct {
	kv     KVStore
	opts   Options
	logger *zap.Logger
}

// NewScheduleStore creates a schedule store.
func NewScheduleStore(kv KVStore, opts Options, logger *zap.Logger) *ScheduleStore {
	return &ScheduleStore{
		kv:     kv,
		opts:   opts,
		logger: logger,
	}
}

// Key returns the storage key for dateKey.
func (s *ScheduleStore) Key(dateKey string) string {
	return fmt.Sprintf("%s:%s:schedule:%s", s.opts.Prefix, s.opts.InstallationID, dateKey)
}

// Save overwrites the record for sched.DateKey.
func (s *ScheduleStore) Save(ctx context.Context, sched *models.PersistedSchedule) error {
	if sched == nil || sched.DateKey == "" {
		return errors.New("schedule has no date key")
	}
	if sched.Items == nil {
		sched.Items = []models.ScheduleEvent{}
	}

	data, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	key := s.Key(sched.DateKey)
	if err := s.kv.Set(ctx, key, string(data), s.opts.TTL); err != nil {
		return fmt.Errorf("failed to persist schedule: %w", err)
	}

	s.logger.Debug("Persisted schedule",
		zap.String("key", key),
		zap.Int("items", len(sched.Items)),
	)
	return nil
}

// Load returns the record for dateKey. A missing, unparseable or mismatched
// record yields nil with no error; only store failures are reported.
func (s *ScheduleStore) Load(ctx context.Context, dateKey string) (*models.PersistedSchedule, error) {
	key := s.Key(dateKey)
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule: %w", err)
	}

	var sched models.PersistedSchedule
	if err := json.Unmarshal([]byte(raw), &sched); err != nil {
		s.logger.Warn("Ignoring unreadable persisted schedule",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, nil
	}
	if sched.DateKey != dateKey {
		s.logger.Debug("Ignoring persisted schedule for another day",
			zap.String("key", key),
			zap.String("date_key", sched.DateKey),
		)
		return nil, nil
	}
	return &sched, nil
}

// Today loads the record for now's calendar day.
func (s *ScheduleStore) Today(ctx context.Context, now time.Time) (*models.PersistedSchedule, error) {
	return s.Load(ctx, models.DateKey(now))
}
