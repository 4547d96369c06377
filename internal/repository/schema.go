package repository

import (
	"context"
	"fmt"
)

// schema is the minimal layout the storage reader expects. It is applied only
// when migration is enabled; production databases are usually provisioned
// by the logging application.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id         TEXT PRIMARY KEY,
		birth_date TIMESTAMPTZ,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS feedings (
		id         TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL REFERENCES profiles(id),
		fed_at     TIMESTAMPTZ NOT NULL,
		ounces     DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS feedings_profile_fed_at ON feedings (profile_id, fed_at)`,
	`CREATE TABLE IF NOT EXISTS sleep_sessions (
		id         TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL REFERENCES profiles(id),
		start_time TIMESTAMPTZ NOT NULL,
		end_time   TIMESTAMPTZ,
		is_active  BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS sleep_sessions_profile_start ON sleep_sessions (profile_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS sleep_settings (
		profile_id        TEXT PRIMARY KEY REFERENCES profiles(id),
		day_start_minutes INTEGER NOT NULL,
		day_end_minutes   INTEGER NOT NULL
	)`,
}

// Migrate creates the tables if they are missing.
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	if s.db == nil {
		return ErrNotReady
	}
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
