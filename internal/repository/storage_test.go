package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T, profileID string) (*sql.DB, sqlmock.Sqlmock, *PostgresStorage) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	storage := NewPostgresStorage(db, profileID, zap.NewNop())

	return db, mock, storage
}

var since = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func TestActiveProfileID_Pinned(t *testing.T) {
	db, mock, storage := setupMockDB(t, "baby-1")
	defer db.Close()

	id, err := storage.ActiveProfileID(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "baby-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveProfileID_Lookup(t *testing.T) {
	db, mock, storage := setupMockDB(t, "")
	defer db.Close()

	mock.ExpectQuery(`FROM profiles\s+WHERE is_active = TRUE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("baby-2"))

	id, err := storage.ActiveProfileID(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "baby-2", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveProfileID_NoneIsNotReady(t *testing.T) {
	db, mock, storage := setupMockDB(t, "")
	defer db.Close()

	mock.ExpectQuery(`FROM profiles`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := storage.ActiveProfileID(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = NewPostgresStorage(nil, "baby-1", zap.NewNop()).ActiveProfileID(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllFeedings_Success(t *testing.T) {
	db, mock, storage := setupMockDB(t, "")
	defer db.Close()

	first := since.Add(9 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "fed_at", "ounces"}).
		AddRow("f-1", first, 4.5).
		AddRow("f-2", first.Add(3*time.Hour), 0.0)
	mock.ExpectQuery(`FROM feedings`).
		WithArgs("baby-1", since).
		WillReturnRows(rows)

	feedings, err := storage.GetAllFeedings(context.Background(), "baby-1", since)

	require.NoError(t, err)
	require.Len(t, feedings, 2)
	assert.Equal(t, "f-1", feedings[0].ID)
	assert.Equal(t, first, feedings[0].Timestamp)
	assert.Equal(t, 4.5, feedings[0].Ounces)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllFeedings_QueryError(t *testing.T) {
	db, mock, storage := setupMockDB(t, "")
	defer db.Close()

	mock.ExpectQuery(`FROM feedings`).WillReturnError(errors.New("connection reset"))

	_, err := storage.GetAllFeedings(context.Background(), "baby-1", since)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query feedings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllSleepSessions_ActiveHasNoEnd(t *testing.T) {
	db, mock, storage := setupMockDB(t, "")
	defer db.Close()

	start := since.Add(13 * time.Hour)
	end := start.Add(90 * time.Minute)
	rows := sqlmock.NewRows([]string{"id", "start_time", "end_time", "is_active"}).
		AddRow("s-1", start, end, false).
		AddRow("s-2", start.Add(5*time.Hour), nil, true)
	mock.ExpectQuery(`FROM sleep_sessions`).
		WithArgs("baby-1", since).
		WillReturnRows(rows)

	sleeps, err := storage.GetAllSleepSessions(context.Background(), "baby-1", since)

	require.NoError(t, err)
	require.Len(t, sleeps, 2)
	require.NotNil(t, sleeps[0].EndTime)
	assert.Equal(t, end, *sleeps[0].EndTime)
	assert.Nil(t, sleeps[1].EndTime)
	assert.True(t, sleeps[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile(t *testing.T) {
	db, mock, storage := setupMockDB(t, "")
	defer db.Close()

	birth := time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM profiles\s+WHERE id = \$1`).
		WithArgs("baby-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "birth_date"}).AddRow("baby-1", birth))
	mock.ExpectQuery(`FROM profiles\s+WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	p, err := storage.GetProfile(context.Background(), "baby-1")
	require.NoError(t, err)
	assert.Equal(t, birth, p.BirthDate)

	_, err = storage.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSleepSettings(t *testing.T) {
	db, mock, storage := setupMockDB(t, "")
	defer db.Close()

	cols := []string{"day_start_minutes", "day_end_minutes"}
	mock.ExpectQuery(`FROM sleep_settings`).WithArgs("a").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(420, 1290))
	mock.ExpectQuery(`FROM sleep_settings`).WithArgs("b").
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery(`FROM sleep_settings`).WithArgs("c").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(-5, 5000))

	ss, err := storage.GetSleepSettings(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 420, ss.DayStartMinutes)
	assert.Equal(t, 1290, ss.DayEndMinutes)

	ss, err = storage.GetSleepSettings(context.Background(), "b")
	require.NoError(t, err)
	assert.Nil(t, ss)

	ss, err = storage.GetSleepSettings(context.Background(), "c")
	require.NoError(t, err)
	assert.Nil(t, ss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, storage := setupMockDB(t, "")
	defer db.Close()

	for range schema {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, storage.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
