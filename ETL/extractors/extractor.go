package extractors

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LilVoxy/remotework_health_etl/ETL/config"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// StageExtract - имя фазы извлечения в журналах и ошибках
const StageExtract = "extract"

// Options задает режим фазы извлечения
type Options struct {
	// Читать индикаторы из контрольной точки вместо обращения к API
	FromCheckpoint bool
}

// Extractor координирует процесс извлечения данных опроса и индикаторов
type Extractor struct {
	logger             *utils.ETLLogger
	surveyPath         string
	indicatorCodes     []string
	surveyExtractor    *SurveyExtractor
	indicatorExtractor *IndicatorExtractor
	checkpoint         *Checkpoint
	overwritePartial   bool
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(cfg config.ETLConfig, client *http.Client, logger *utils.ETLLogger) *Extractor {
	var checkpoint *Checkpoint
	if cfg.CheckpointDir != "" {
		checkpoint = NewCheckpoint(cfg.CheckpointDir)
	}
	return &Extractor{
		logger:             logger,
		surveyPath:         cfg.SurveyPath,
		indicatorCodes:     cfg.API.IndicatorCodes,
		surveyExtractor:    NewSurveyExtractor(logger),
		indicatorExtractor: NewIndicatorExtractor(cfg.API, client, logger),
		checkpoint:         checkpoint,
		overwritePartial:   cfg.CheckpointOverwritePartial,
	}
}

// Extract выполняет извлечение данных для ETL процесса.
// Опрос обязателен: без него остальные таблицы не к чему присоединять.
// Индикаторы необязательны: при отказе подставляется пустой набор.
func (e *Extractor) Extract(ctx context.Context, opts Options) (*models.ExtractedData, error) {
	startTime := time.Now()
	e.logger.LogStageStart(StageExtract)

	var extractedData models.ExtractedData

	survey, decodeErrors, err := e.surveyExtractor.Extract(e.surveyPath)
	if err != nil {
		e.logger.Error("Ошибка при извлечении опроса: %v", err)
		return nil, models.NewStageError(StageExtract, err)
	}
	extractedData.Survey = survey
	extractedData.SurveyDecodeErrors = decodeErrors

	if opts.FromCheckpoint {
		extractedData.Indicators = e.loadCheckpoint()
	} else {
		report, err := e.ExtractIndicators(ctx)
		if err != nil {
			return nil, models.NewStageError(StageExtract, err)
		}
		extractedData.Indicators = report.Records
		extractedData.FailedCodes = report.FailedCodes()
	}

	if len(extractedData.Indicators) == 0 {
		e.logger.Warn("%v: индикаторы отсутствуют, продолжаем с пустым набором", models.ErrNoData)
	}

	e.logger.Info("Извлечено: строк опроса %d, записей индикаторов %d", len(extractedData.Survey), len(extractedData.Indicators))
	e.logger.LogStageComplete(StageExtract, time.Since(startTime))
	return &extractedData, nil
}

// ExtractIndicators запрашивает все индикаторы и сохраняет контрольную точку.
// Ошибкой считается только отмена контекста.
func (e *Extractor) ExtractIndicators(ctx context.Context) (FetchReport, error) {
	report := e.indicatorExtractor.FetchAll(ctx, e.indicatorCodes)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if e.checkpoint != nil {
		e.saveCheckpoint(report)
	}
	return report, nil
}

// saveCheckpoint не заменяет прежнюю выгрузку пустой, а при отказах части кодов
// заменяет ее только с разрешения checkpoint_overwrite_partial
func (e *Extractor) saveCheckpoint(report FetchReport) {
	if report.Empty() {
		e.logger.Warn("Контрольная точка не обновлена: индикаторы не получены")
		return
	}
	if len(report.Failures) > 0 && !e.overwritePartial && e.checkpoint.Exists() {
		e.logger.Warn("Контрольная точка не обновлена: не получены коды %v", report.FailedCodes())
		return
	}

	if err := e.checkpoint.Save(report.Records); err != nil {
		e.logger.Warn("Не удалось сохранить контрольную точку: %v", err)
		return
	}
	e.logger.Debug("Контрольная точка сохранена: %s", e.checkpoint.Path())
}

func (e *Extractor) loadCheckpoint() []models.IndicatorRecord {
	if e.checkpoint == nil {
		e.logger.Warn("%v: каталог контрольных точек не задан", models.ErrMissingPrerequisite)
		return []models.IndicatorRecord{}
	}

	records, err := e.checkpoint.Load()
	if err != nil {
		if errors.Is(err, models.ErrMissingPrerequisite) {
			e.logger.Warn("%v", err)
		} else {
			e.logger.Error("Ошибка при чтении контрольной точки: %v", err)
		}
		return []models.IndicatorRecord{}
	}
	e.logger.Info("Индикаторы прочитаны из контрольной точки: %d записей", len(records))
	return records
}
