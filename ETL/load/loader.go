package load

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// Sink - целевое хранилище: вставка строк с позиционными значениями и одна фиксация в конце
type Sink interface {
	// InsertRows вставляет строки одним оператором; ошибка относится ко всем строкам оператора
	InsertRows(ctx context.Context, table string, columns []string, rows []models.Row) error

	// Commit фиксирует все вставки
	Commit() error

	// Rollback отменяет незафиксированные вставки
	Rollback() error
}

// RowFailure описывает строку, которую не удалось вставить
type RowFailure struct {
	RowIndex int
	Err      error
}

// LoadReport - итог загрузки одной таблицы
type LoadReport struct {
	Table    string
	Inserted int
	Failed   int
	Failures []RowFailure

	// Строки, отброшенные при подготовке к загрузке
	Dropped int
}

// Sample возвращает первые n ошибок строк
func (r LoadReport) Sample(n int) []RowFailure {
	if n < 0 || n >= len(r.Failures) {
		return r.Failures
	}
	return r.Failures[:n]
}

// BulkLoader загружает подготовленные таблицы, изолируя ошибки отдельных строк
type BulkLoader struct {
	logger    *utils.ETLLogger
	chunkSize int
}

// NewBulkLoader создает новый экземпляр BulkLoader
func NewBulkLoader(chunkSize int, logger *utils.ETLLogger) *BulkLoader {
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &BulkLoader{logger: logger, chunkSize: chunkSize}
}

// Load вставляет строки таблицы в sink. Ошибка отдельной строки записывается в отчёт
// и не прерывает загрузку; потеря соединения или отмена контекста прерывают загрузку
// таблицы и возвращаются как ошибка.
func (l *BulkLoader) Load(ctx context.Context, out models.OutputTable, sink Sink) (LoadReport, error) {
	report := LoadReport{Table: out.Destination}
	if out.Table == nil {
		return report, fmt.Errorf("%w: таблица %s не сформирована", models.ErrMissingPrerequisite, out.Destination)
	}
	if out.Table.Len() == 0 {
		l.logger.Debug("Нет данных для загрузки в %s", out.Destination)
		return report, nil
	}

	startTime := time.Now()
	l.logger.Info("Начало загрузки %s (всего строк: %d)", out.Destination, out.Table.Len())

	columns := out.Table.ColumnNames()
	rows := out.Table.Rows
	for start := 0; start < len(rows); start += l.chunkSize {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("загрузка %s прервана: %w", out.Destination, err)
		}

		end := start + l.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		err := sink.InsertRows(ctx, out.Destination, columns, chunk)
		if err == nil {
			report.Inserted += len(chunk)
			continue
		}
		if IsFatal(err) {
			return report, fmt.Errorf("потеряно соединение при загрузке %s: %w", out.Destination, err)
		}
		if len(chunk) == 1 {
			report.addFailure(start, err)
			continue
		}

		// Пакет отклонён: повторяем построчно, чтобы найти конкретные строки
		for i, row := range chunk {
			err := sink.InsertRows(ctx, out.Destination, columns, []models.Row{row})
			if err == nil {
				report.Inserted++
				continue
			}
			if IsFatal(err) {
				return report, fmt.Errorf("потеряно соединение при загрузке %s: %w", out.Destination, err)
			}
			report.addFailure(start+i, err)
		}
	}

	if report.Failed > 0 {
		l.logger.Warn("%s: не вставлено строк: %d", out.Destination, report.Failed)
		for _, f := range report.Sample(failureSampleSize) {
			l.logger.Warn("[%s] Ошибка в строке %d: %v", out.Destination, f.RowIndex, f.Err)
		}
	}
	l.logger.Info("Загрузка %s завершена. Вставлено: %d, ошибок: %d, длительность: %v",
		out.Destination, report.Inserted, report.Failed, time.Since(startTime))
	return report, nil
}

const failureSampleSize = 10

func (r *LoadReport) addFailure(rowIndex int, err error) {
	r.Failed++
	r.Failures = append(r.Failures, RowFailure{RowIndex: rowIndex, Err: err})
}

// IsFatal сообщает, что ошибка означает потерю соединения или транзакции, а не ошибку строки
func IsFatal(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
