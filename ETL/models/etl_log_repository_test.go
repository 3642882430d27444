package models

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/remotework_health_etl/ETL/config"
)

func newRepository(t *testing.T) *SQLETLLogRepository {
	t.Helper()
	db, err := sql.Open(config.DriverSQLite, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLETLLogRepository(db, config.Dialect{Driver: config.DriverSQLite})
	require.NoError(t, repo.CreateETLLogTable(context.Background()))
	// Повторное создание не меняет существующую таблицу
	require.NoError(t, repo.CreateETLLogTable(context.Background()))
	return repo
}

func TestRunLogLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)
	start := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)

	last, err := repo.GetLastSuccessfulRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, repo.CreateLogEntry(ctx, "run-1", start))
	runs, err := repo.GetRecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusInProgress, runs[0].Status)
	assert.True(t, runs[0].EndTime.IsZero())

	require.NoError(t, repo.UpdateLogEntrySuccess(ctx, &ETLRunLog{
		ID:                   "run-1",
		StartTime:            start,
		EndTime:              start.Add(90 * time.Second),
		IndicatorRecords:     1200,
		IndicatorCodesFailed: 1,
		SurveyRows:           5000,
		UnresolvedCountries:  12,
		RowsInserted:         310,
		RowsFailed:           2,
	}))

	last, err = repo.GetLastSuccessfulRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-1", last.ID)
	assert.Equal(t, StatusSuccess, last.Status)
	assert.True(t, start.Equal(last.StartTime))
	assert.True(t, start.Add(90*time.Second).Equal(last.EndTime))
	assert.Equal(t, 1200, last.IndicatorRecords)
	assert.Equal(t, 12, last.UnresolvedCountries)
	assert.Equal(t, 310, last.RowsInserted)
	assert.Equal(t, 2, last.RowsFailed)
	assert.InDelta(t, 90.0, last.ExecutionTimeSeconds, 1e-6)
}

func TestRunLogFailure(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)
	start := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)

	require.NoError(t, repo.CreateLogEntry(ctx, "run-2", start))
	require.NoError(t, repo.UpdateLogEntryFailure(ctx, "run-2", start.Add(3*time.Second), "стадия load: driver: bad connection"))

	runs, err := repo.GetRecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "стадия load: driver: bad connection", runs[0].ErrorMessage)
	assert.InDelta(t, 3.0, runs[0].ExecutionTimeSeconds, 1e-6)

	last, err := repo.GetLastSuccessfulRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	err = repo.UpdateLogEntryFailure(ctx, "missing", time.Now(), "x")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDBTimeScan(t *testing.T) {
	var ts dbTime
	require.NoError(t, ts.Scan("2024-05-02 08:30:00+00:00"))
	assert.Equal(t, time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC), ts.Time)

	require.NoError(t, ts.Scan([]byte("2024-05-02T08:30:00.5Z")))
	assert.Equal(t, 500*time.Millisecond, time.Duration(ts.Time.Nanosecond()))

	require.NoError(t, ts.Scan(nil))
	assert.True(t, ts.Time.IsZero())

	assert.Error(t, ts.Scan("yesterday"))
	assert.Error(t, ts.Scan(42))
}
