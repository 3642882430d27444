package models

import (
	"context"
	"time"
)

// ETLRunLog представляет запись о запуске ETL процесса
type ETLRunLog struct {
	ID                   string    `json:"id"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time,omitempty"`
	Status               string    `json:"status"` // "success", "failed", "in_progress"
	IndicatorRecords     int       `json:"indicator_records"`
	IndicatorCodesFailed int       `json:"indicator_codes_failed"`
	SurveyRows           int       `json:"survey_rows"`
	UnresolvedCountries  int       `json:"unresolved_countries"`
	RowsInserted         int       `json:"rows_inserted"`
	RowsFailed           int       `json:"rows_failed"`
	ErrorMessage         string    `json:"error_message,omitempty"`
	ExecutionTimeSeconds float64   `json:"execution_time_seconds"`
}

// ETLLogRepository представляет репозиторий для работы с журналом запусков ETL
type ETLLogRepository interface {
	// CreateETLLogTable создает таблицу журнала, если она еще не существует
	CreateETLLogTable(ctx context.Context) error

	// CreateLogEntry создает новую запись о запуске ETL
	CreateLogEntry(ctx context.Context, id string, startTime time.Time) error

	// UpdateLogEntrySuccess обновляет запись при успешном завершении ETL
	UpdateLogEntrySuccess(ctx context.Context, runLog *ETLRunLog) error

	// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
	UpdateLogEntryFailure(ctx context.Context, id string, endTime time.Time, errorMessage string) error

	// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL
	GetLastSuccessfulRun(ctx context.Context) (*ETLRunLog, error)

	// GetRecentRuns возвращает последние запуски, начиная с самого нового
	GetRecentRuns(ctx context.Context, limit int) ([]ETLRunLog, error)
}
