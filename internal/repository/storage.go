package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
)

// ErrNotReady means the storage collaborator cannot serve a rebuild yet: no
// database handle, or no active profile.
var ErrNotReady = errors.New("storage not ready")

// PostgresStorage reads the logged history the schedule is computed from.
type PostgresStorage struct {
	db        *sql.DB
	logger    *zap.Logger
	profileID string
}

// NewPostgresStorage creates a storage reader. A non-empty profileID pins the
// active profile; otherwise the most recently updated active profile is used.
func NewPostgresStorage(db *sql.DB, profileID string, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:        db,
		logger:    logger,
		profileID: profileID,
	}
}

// ActiveProfileID returns the profile to schedule for.
func (s *PostgresStorage) ActiveProfileID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", ErrNotReady
	}
	if s.profileID != "" {
		return s.profileID, nil
	}

	query := `
		SELECT id
		FROM profiles
		WHERE is_active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var id string
	err := s.db.QueryRowContext(ctx, query).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotReady
	}
	if err != nil {
		return "", fmt.Errorf("failed to query active profile: %w", err)
	}
	return id, nil
}

// GetAllFeedings returns feedings logged at or after since, oldest first.
func (s *PostgresStorage) GetAllFeedings(ctx context.Context, profileID string, since time.Time) ([]models.FeedingEvent, error) {
	query := `
		SELECT id, fed_at, COALESCE(ounces, 0)
		FROM feedings
		WHERE profile_id = $1
		  AND fed_at >= $2
		ORDER BY fed_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, profileID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedings: %w", err)
	}
	defer rows.Close()

	var feedings []models.FeedingEvent
	for rows.Next() {
		var f models.FeedingEvent
		if err := rows.Scan(&f.ID, &f.Timestamp, &f.Ounces); err != nil {
			return nil, fmt.Errorf("failed to scan feeding: %w", err)
		}
		feedings = append(feedings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedings: %w", err)
	}
	return feedings, nil
}

// GetAllSleepSessions returns sleeps started at or after since plus any
// session still active, oldest first.
func (s *PostgresStorage) GetAllSleepSessions(ctx context.Context, profileID string, since time.Time) ([]models.SleepSession, error) {
	query := `
		SELECT id, start_time, end_time, is_active
		FROM sleep_sessions
		WHERE profile_id = $1
		  AND (start_time >= $2 OR is_active = TRUE)
		ORDER BY start_time ASC
	`
	rows, err := s.db.QueryContext(ctx, query, profileID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query sleep sessions: %w", err)
	}
	defer rows.Close()

	var sleeps []models.SleepSession
	for rows.Next() {
		var (
			sl  models.SleepSession
			end sql.NullTime
		)
		if err := rows.Scan(&sl.ID, &sl.StartTime, &end, &sl.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan sleep session: %w", err)
		}
		if end.Valid {
			t := end.Time
			sl.EndTime = &t
		}
		sleeps = append(sleeps, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sleep sessions: %w", err)
	}
	return sleeps, nil
}

// GetProfile returns the profile or ErrNotReady when it does not exist.
func (s *PostgresStorage) GetProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	query := `
		SELECT id, birth_date
		FROM profiles
		WHERE id = $1
	`
	var (
		p     models.Profile
		birth sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, profileID).Scan(&p.ID, &birth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	if birth.Valid {
		p.BirthDate = birth.Time
	}
	return &p, nil
}

// GetSleepSettings returns the profile's day window, or nil when none is stored.
func (s *PostgresStorage) GetSleepSettings(ctx context.Context, profileID string) (*models.SleepSettings, error) {
	query := `
		SELECT day_start_minutes, day_end_minutes
		FROM sleep_settings
		WHERE profile_id = $1
	`
	var ss models.SleepSettings
	err := s.db.QueryRowContext(ctx, query, profileID).Scan(&ss.DayStartMinutes, &ss.DayEndMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sleep settings: %w", err)
	}
	if ss.DayStartMinutes < 0 || ss.DayStartMinutes >= 24*60 || ss.DayEndMinutes < 0 || ss.DayEndMinutes >= 24*60 {
		s.logger.Warn("Ignoring out of range sleep settings",
			zap.String("profile_id", profileID),
			zap.Int("day_start_minutes", ss.DayStartMinutes),
			zap.Int("day_end_minutes", ss.DayEndMinutes),
		)
		return nil, nil
	}
	return &ss, nil
}
