package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LilVoxy/remotework_health_etl/ETL/config"
)

const etlRunLogColumns = `
	id, start_time, end_time, status,
	indicator_records, indicator_codes_failed, survey_rows, unresolved_countries,
	rows_inserted, rows_failed, COALESCE(error_message, ''), execution_time_seconds`

// SQLETLLogRepository реализация ETLLogRepository поверх database/sql
type SQLETLLogRepository struct {
	db      *sql.DB
	dialect config.Dialect
}

// NewSQLETLLogRepository создает новый экземпляр SQLETLLogRepository
func NewSQLETLLogRepository(db *sql.DB, dialect config.Dialect) *SQLETLLogRepository {
	return &SQLETLLogRepository{
		db:      db,
		dialect: dialect,
	}
}

// CreateETLLogTable создает таблицу для логирования ETL процесса, если она не существует
func (r *SQLETLLogRepository) CreateETLLogTable(ctx context.Context) error {
	ts := r.dialect.ColumnType("timestamp")
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS etl_run_log (
		id VARCHAR(36) PRIMARY KEY,
		start_time %s NOT NULL,
		end_time %s NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'in_progress',
		indicator_records INTEGER DEFAULT 0,
		indicator_codes_failed INTEGER DEFAULT 0,
		survey_rows INTEGER DEFAULT 0,
		unresolved_countries INTEGER DEFAULT 0,
		rows_inserted INTEGER DEFAULT 0,
		rows_failed INTEGER DEFAULT 0,
		error_message TEXT,
		execution_time_seconds %s
	)`, ts, ts, r.dialect.ColumnType("float"))

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы etl_run_log: %w", err)
	}
	return nil
}

// CreateLogEntry создает новую запись о запуске ETL
func (r *SQLETLLogRepository) CreateLogEntry(ctx context.Context, id string, startTime time.Time) error {
	query := r.dialect.Rebind(`INSERT INTO etl_run_log (id, start_time, status) VALUES (?, ?, 'in_progress')`)

	if _, err := r.db.ExecContext(ctx, query, id, startTime.UTC()); err != nil {
		return fmt.Errorf("ошибка при создании записи о запуске ETL: %w", err)
	}
	return nil
}

// UpdateLogEntrySuccess обновляет запись при успешном завершении ETL
func (r *SQLETLLogRepository) UpdateLogEntrySuccess(ctx context.Context, runLog *ETLRunLog) error {
	query := r.dialect.Rebind(`
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = 'success',
		indicator_records = ?,
		indicator_codes_failed = ?,
		survey_rows = ?,
		unresolved_countries = ?,
		rows_inserted = ?,
		rows_failed = ?,
		execution_time_seconds = ?
	WHERE id = ?`)

	executionTime := runLog.EndTime.Sub(runLog.StartTime).Seconds()
	_, err := r.db.ExecContext(ctx, query,
		runLog.EndTime.UTC(),
		runLog.IndicatorRecords,
		runLog.IndicatorCodesFailed,
		runLog.SurveyRows,
		runLog.UnresolvedCountries,
		runLog.RowsInserted,
		runLog.RowsFailed,
		executionTime,
		runLog.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}
	return nil
}

// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
func (r *SQLETLLogRepository) UpdateLogEntryFailure(ctx context.Context, id string, endTime time.Time, errorMessage string) error {
	var startTime dbTime
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT start_time FROM etl_run_log WHERE id = ?"), id).Scan(&startTime)
	if err != nil {
		return fmt.Errorf("ошибка при получении времени начала ETL: %w", err)
	}

	query := r.dialect.Rebind(`
	UPDATE etl_run_log
	SET
		end_time = ?,
		status = 'failed',
		error_message = ?,
		execution_time_seconds = ?
	WHERE id = ?`)

	executionTime := endTime.Sub(startTime.Time).Seconds()
	if _, err := r.db.ExecContext(ctx, query, endTime.UTC(), errorMessage, executionTime, id); err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}
	return nil
}

// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL
func (r *SQLETLLogRepository) GetLastSuccessfulRun(ctx context.Context) (*ETLRunLog, error) {
	query := `SELECT ` + etlRunLogColumns + `
	FROM etl_run_log
	WHERE status = 'success'
	ORDER BY end_time DESC
	LIMIT 1`

	log, err := scanRunLog(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Нет успешных запусков
		}
		return nil, fmt.Errorf("ошибка при получении информации о последнем успешном запуске ETL: %w", err)
	}
	return log, nil
}

// GetRecentRuns возвращает последние запуски ETL
func (r *SQLETLLogRepository) GetRecentRuns(ctx context.Context, limit int) ([]ETLRunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	query := r.dialect.Rebind(`SELECT ` + etlRunLogColumns + `
	FROM etl_run_log
	ORDER BY start_time DESC
	LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении списка запусков ETL: %w", err)
	}
	defer rows.Close()

	var logs []ETLRunLog
	for rows.Next() {
		log, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи о запуске ETL: %w", err)
		}
		logs = append(logs, *log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по записям о запусках ETL: %w", err)
	}
	return logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunLog(row rowScanner) (*ETLRunLog, error) {
	var (
		log       ETLRunLog
		startTime dbTime
		endTime   dbTime
		execTime  sql.NullFloat64
	)
	err := row.Scan(
		&log.ID, &startTime, &endTime, &log.Status,
		&log.IndicatorRecords, &log.IndicatorCodesFailed, &log.SurveyRows, &log.UnresolvedCountries,
		&log.RowsInserted, &log.RowsFailed, &log.ErrorMessage, &execTime,
	)
	if err != nil {
		return nil, err
	}
	log.StartTime = startTime.Time
	log.EndTime = endTime.Time
	log.ExecutionTimeSeconds = execTime.Float64
	return &log, nil
}

// dbTime сканирует время независимо от того, как драйвер его возвращает:
// MySQL (parseTime=true) и PostgreSQL отдают time.Time, SQLite - строку.
type dbTime struct {
	Time time.Time
}

var dbTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Scan реализует sql.Scanner
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("неподдерживаемый тип времени %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	s = strings.TrimSpace(s)
	// time.Time.String() дописывает показания монотонных часов
	if i := strings.Index(s, " m="); i > 0 {
		s = s[:i]
	}
	for _, layout := range dbTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	if parsed, err := time.Parse("2006-01-02 15:04:05.999999999 -0700 MST", s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	return fmt.Errorf("не удалось разобрать время %q", s)
}
