package load

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/remotework_health_etl/ETL/config"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/transform"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// StageLoad - имя фазы загрузки в журналах и ошибках
const StageLoad = "load"

// LoadManager отвечает за управление процессом загрузки данных в целевое хранилище
type LoadManager struct {
	db      *sql.DB
	dialect config.Dialect
	config  config.LoadConfig
	logger  *utils.ETLLogger
	loader  *BulkLoader
}

// NewLoadManager создает новый экземпляр LoadManager
func NewLoadManager(db *sql.DB, dialect config.Dialect, cfg config.LoadConfig, logger *utils.ETLLogger) *LoadManager {
	return &LoadManager{
		db:      db,
		dialect: dialect,
		config:  cfg,
		logger:  logger,
		loader:  NewBulkLoader(cfg.ChunkSize, logger),
	}
}

// Load выполняет фазу загрузки: все таблицы в объявленном порядке в одной транзакции,
// которая фиксируется один раз после обработки последней таблицы.
func (m *LoadManager) Load(ctx context.Context, transformedData *models.TransformedData) ([]LoadReport, error) {
	startTime := time.Now()
	m.logger.LogStageStart(StageLoad)

	if transformedData == nil {
		err := fmt.Errorf("%w: результат фазы преобразования отсутствует", models.ErrMissingPrerequisite)
		return nil, models.NewStageError(StageLoad, err)
	}

	// 1. Подготовка: отбрасываем строки с некорректными обязательными числами
	prepared := make([]models.OutputTable, 0, len(transformedData.Outputs))
	dropped := make([]int, 0, len(transformedData.Outputs))
	for _, out := range transformedData.Outputs {
		ready, stats, err := transform.PrepareForLoad(out)
		if err != nil {
			m.logger.Error("Ошибка при подготовке таблицы %s: %v", out.Destination, err)
			return nil, models.NewStageError(StageLoad, err)
		}
		if stats.Dropped > 0 {
			m.logger.Info("%s: отброшено строк с некорректными числовыми значениями: %d", out.Destination, stats.Dropped)
		}
		prepared = append(prepared, ready)
		dropped = append(dropped, stats.Dropped)
	}

	// 2. Таблицы создаются до начала транзакции
	if m.config.CreateTables {
		if err := EnsureTables(ctx, m.db, m.dialect, prepared); err != nil {
			m.logger.Error("%v", err)
			return nil, models.NewStageError(StageLoad, err)
		}
	}

	// 3. Загрузка в одной транзакции
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, models.NewStageError(StageLoad, fmt.Errorf("ошибка при начале транзакции: %w", err))
	}
	sink := NewSQLSink(tx, m.dialect)

	reports := make([]LoadReport, 0, len(prepared))
	for i, out := range prepared {
		report, err := m.loader.Load(ctx, out, sink)
		report.Dropped = dropped[i]
		reports = append(reports, report)
		if err != nil {
			m.logger.Error("Ошибка при загрузке %s: %v", out.Destination, err)
			if rbErr := sink.Rollback(); rbErr != nil {
				m.logger.Error("%v", rbErr)
			}
			return reports, models.NewStageError(StageLoad, err)
		}
	}

	if err := sink.Commit(); err != nil {
		m.logger.Error("%v", err)
		return reports, models.NewStageError(StageLoad, err)
	}

	inserted, failed := Totals(reports)
	m.logger.Info("Всего вставлено строк: %d, ошибок: %d", inserted, failed)
	m.logger.LogStageComplete(StageLoad, time.Since(startTime))
	return reports, nil
}

// Totals суммирует вставленные и ошибочные строки по отчётам
func Totals(reports []LoadReport) (inserted, failed int) {
	for _, r := range reports {
		inserted += r.Inserted
		failed += r.Failed
	}
	return inserted, failed
}
