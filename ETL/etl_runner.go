package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/LilVoxy/remotework_health_etl/ETL/api"
	"github.com/LilVoxy/remotework_health_etl/ETL/config"
	"github.com/LilVoxy/remotework_health_etl/ETL/extractors"
	"github.com/LilVoxy/remotework_health_etl/ETL/load"
	"github.com/LilVoxy/remotework_health_etl/ETL/metrics"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/progress"
	"github.com/LilVoxy/remotework_health_etl/ETL/transform"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// RunOptions задает режим одного запуска ETL
type RunOptions struct {
	// Читать индикаторы из контрольной точки вместо обращения к API
	FromCheckpoint bool

	// Не загружать таблицы в хранилище
	SkipLoad bool
}

// RunSummary - итог запуска ETL
type RunSummary struct {
	RunID               string
	IndicatorRecords    int
	FailedCodes         []string
	SurveyRows          int
	SurveyDecodeErrors  int
	UnresolvedCountries []string
	Loads               []load.LoadReport
	Duration            time.Duration
}

// Totals возвращает суммарное количество вставленных и ошибочных строк
func (s RunSummary) Totals() (inserted, failed int) {
	return load.Totals(s.Loads)
}

// ETLRunner управляет запусками ETL: журнал, метрики, ход выполнения
type ETLRunner struct {
	ctx         context.Context
	config      config.ETLConfig
	db          *sql.DB
	logger      *utils.ETLLogger
	extractor   *extractors.Extractor
	transformer *transform.Transformer
	loadManager *load.LoadManager
	etlLogRepo  models.ETLLogRepository
	metrics     *metrics.Metrics
	progress    progress.Publisher

	// Одновременно выполняется не более одного запуска
	running atomic.Bool
}

// NewETLRunner создает новый экземпляр ETLRunner и подключается к целевой БД.
// ctx ограничивает время жизни запусков, инициированных через API.
func NewETLRunner(ctx context.Context, etlConfig config.ETLConfig, logger *utils.ETLLogger) (*ETLRunner, error) {
	logger.Info("Инициализация ETL Runner")

	db, dialect, err := config.ConnectSink(ctx, etlConfig.Sink)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к целевой базе данных: %w", err)
	}

	runner, err := newETLRunner(ctx, etlConfig, db, dialect, http.DefaultClient, logger)
	if err != nil {
		config.CloseDatabase(db)
		return nil, err
	}
	return runner, nil
}

func newETLRunner(ctx context.Context, etlConfig config.ETLConfig, db *sql.DB, dialect config.Dialect, client *http.Client, logger *utils.ETLLogger) (*ETLRunner, error) {
	// Инициализируем репозиторий логов ETL
	etlLogRepo := models.NewSQLETLLogRepository(db, dialect)

	// Создаем таблицу логов, если она еще не существует
	if err := etlLogRepo.CreateETLLogTable(ctx); err != nil {
		return nil, fmt.Errorf("ошибка при создании таблицы логов ETL: %w", err)
	}

	return &ETLRunner{
		ctx:         ctx,
		config:      etlConfig,
		db:          db,
		logger:      logger,
		extractor:   extractors.NewExtractor(etlConfig, client, logger),
		transformer: transform.NewTransformer(logger),
		loadManager: load.NewLoadManager(db, dialect, etlConfig.Load, logger),
		etlLogRepo:  etlLogRepo,
		metrics:     metrics.New(),
	}, nil
}

// SetProgress подключает получателя событий хода выполнения
func (r *ETLRunner) SetProgress(publisher progress.Publisher) {
	r.progress = publisher
}

// Close закрывает соединение с базой данных
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	config.CloseDatabase(r.db)
}

// ExecuteETL выполняет полный ETL процесс.
// Если предыдущий запуск ещё выполняется, возвращает api.ErrRunInProgress.
func (r *ETLRunner) ExecuteETL(ctx context.Context, opts RunOptions) (RunSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return RunSummary{}, api.ErrRunInProgress
	}
	defer r.running.Store(false)

	return r.execute(ctx, uuid.NewString(), opts)
}

// Trigger запускает ETL в фоне и сразу возвращает идентификатор запуска
func (r *ETLRunner) Trigger() (string, error) {
	if !r.running.CompareAndSwap(false, true) {
		return "", api.ErrRunInProgress
	}

	runID := uuid.NewString()
	go func() {
		defer r.running.Store(false)
		if _, err := r.execute(r.ctx, runID, RunOptions{SkipLoad: r.config.Load.Skip}); err != nil {
			r.logger.Error("Ошибка при выполнении ETL, запущенного вручную: %v", err)
		}
	}()
	return runID, nil
}

func (r *ETLRunner) execute(ctx context.Context, runID string, opts RunOptions) (RunSummary, error) {
	r.logger.Info("Запуск ETL процесса %s", runID)
	startTime := time.Now()
	summary := RunSummary{RunID: runID}

	// Создаем запись в журнале ETL
	if err := r.etlLogRepo.CreateLogEntry(ctx, runID, startTime); err != nil {
		r.logger.Error("Ошибка при создании записи в журнале ETL: %v", err)
		return summary, fmt.Errorf("ошибка при создании записи в журнале ETL: %w", err)
	}
	r.publish(runID, "run", models.StatusStarted, "")

	// 1. Фаза извлечения данных (Extract)
	r.publish(runID, extractors.StageExtract, models.StatusInProgress, "")
	stageStart := time.Now()
	extractedData, err := r.extractor.Extract(ctx, extractors.Options{FromCheckpoint: opts.FromCheckpoint})
	r.metrics.ObserveStage(extractors.StageExtract, time.Since(stageStart))
	if err != nil {
		return r.fail(runID, startTime, summary, extractors.StageExtract, err)
	}
	summary.IndicatorRecords = len(extractedData.Indicators)
	summary.FailedCodes = extractedData.FailedCodes
	summary.SurveyRows = len(extractedData.Survey)
	summary.SurveyDecodeErrors = extractedData.SurveyDecodeErrors
	r.metrics.RecordExtraction(summary.IndicatorRecords, summary.FailedCodes)
	r.publish(runID, extractors.StageExtract, models.StatusSuccess,
		fmt.Sprintf("индикаторов: %d, строк опроса: %d", summary.IndicatorRecords, summary.SurveyRows))

	// 2. Фаза трансформации данных (Transform)
	r.publish(runID, transform.StageTransform, models.StatusInProgress, "")
	stageStart = time.Now()
	transformedData, err := r.transformer.Transform(extractedData)
	r.metrics.ObserveStage(transform.StageTransform, time.Since(stageStart))
	if err != nil {
		return r.fail(runID, startTime, summary, transform.StageTransform, err)
	}
	summary.UnresolvedCountries = transformedData.UnresolvedCountries
	r.metrics.RecordUnresolved(len(transformedData.UnresolvedCountries))
	r.publish(runID, transform.StageTransform, models.StatusSuccess,
		fmt.Sprintf("таблиц: %d", len(transformedData.Outputs)))

	if r.config.WriteArtifacts && r.config.CheckpointDir != "" {
		r.saveArtifacts(transformedData)
	}

	// 3. Фаза загрузки данных (Load)
	if opts.SkipLoad {
		r.logger.Info("Фаза загрузки пропущена")
	} else {
		r.publish(runID, load.StageLoad, models.StatusInProgress, "")
		stageStart = time.Now()
		reports, err := r.loadManager.Load(ctx, transformedData)
		r.metrics.ObserveStage(load.StageLoad, time.Since(stageStart))
		summary.Loads = reports
		for _, report := range reports {
			r.metrics.RecordLoad(report.Table, report.Inserted, report.Failed, report.Dropped)
		}
		if err != nil {
			return r.fail(runID, startTime, summary, load.StageLoad, err)
		}
		inserted, failed := summary.Totals()
		r.publish(runID, load.StageLoad, models.StatusSuccess,
			fmt.Sprintf("вставлено: %d, ошибок: %d", inserted, failed))
	}

	// Обновляем запись в журнале с информацией об успешном выполнении
	summary.Duration = time.Since(startTime)
	r.updateETLRunLogSuccess(runID, startTime, summary)
	r.metrics.ObserveRun(models.StatusSuccess, summary.Duration)
	r.publish(runID, "run", models.StatusSuccess, "")

	r.logger.Info("ETL процесс успешно завершен. Длительность: %v", summary.Duration)
	return summary, nil
}

// fail фиксирует отказ стадии в журнале, метриках и событиях
func (r *ETLRunner) fail(runID string, startTime time.Time, summary RunSummary, stage string, err error) (RunSummary, error) {
	summary.Duration = time.Since(startTime)
	errMsg := fmt.Sprintf("Ошибка в фазе %s: %v", stage, err)
	r.logger.Error("%s", errMsg)

	// Запись в журнал не должна зависеть от отменённого контекста запуска
	logCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if logErr := r.etlLogRepo.UpdateLogEntryFailure(logCtx, runID, time.Now(), errMsg); logErr != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", logErr)
	}

	r.metrics.ObserveRun(models.StatusFailed, summary.Duration)
	r.publish(runID, stage, models.StatusFailed, err.Error())

	var stageErr *models.StageError
	if errors.As(err, &stageErr) {
		return summary, err
	}
	return summary, models.NewStageError(stage, err)
}

// updateETLRunLogSuccess обновляет запись в журнале ETL при успешном завершении
func (r *ETLRunner) updateETLRunLogSuccess(runID string, startTime time.Time, summary RunSummary) {
	inserted, failed := summary.Totals()
	runLog := &models.ETLRunLog{
		ID:                   runID,
		StartTime:            startTime,
		EndTime:              startTime.Add(summary.Duration),
		Status:               models.StatusSuccess,
		IndicatorRecords:     summary.IndicatorRecords,
		IndicatorCodesFailed: len(summary.FailedCodes),
		SurveyRows:           summary.SurveyRows,
		UnresolvedCountries:  len(summary.UnresolvedCountries),
		RowsInserted:         inserted,
		RowsFailed:           failed,
	}

	logCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.etlLogRepo.UpdateLogEntrySuccess(logCtx, runLog); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}
}

func (r *ETLRunner) saveArtifacts(transformedData *models.TransformedData) {
	tables := append([]*models.Table(nil), transformedData.Artifacts...)
	for _, out := range transformedData.Outputs {
		tables = append(tables, out.Table)
	}
	if err := transform.SaveArtifacts(r.config.CheckpointDir, tables); err != nil {
		r.logger.Warn("Не удалось сохранить промежуточные таблицы: %v", err)
		return
	}
	r.logger.Debug("Промежуточные таблицы сохранены в %s: %d", r.config.CheckpointDir, len(tables))
}

func (r *ETLRunner) publish(runID, stage, status, message string) {
	if r.progress == nil {
		return
	}
	r.progress.Publish(models.ProgressEvent{
		RunID:   runID,
		Stage:   stage,
		Status:  status,
		Message: message,
		Time:    time.Now().UTC(),
	})
}

// StartScheduler запускает планировщик для регулярного выполнения ETL
func (r *ETLRunner) StartScheduler(ctx context.Context, opts RunOptions) error {
	scheduler := gocron.NewScheduler(time.UTC)

	r.logger.Info("Запуск планировщика ETL с интервалом %v", r.config.RunInterval)

	// SingletonMode не запускает задачу, пока предыдущий запуск не завершился
	_, err := scheduler.Every(r.config.RunInterval).SingletonMode().Do(func() {
		r.logger.Info("Запланированный запуск ETL процесса")
		_, err := r.ExecuteETL(ctx, opts)
		switch {
		case errors.Is(err, api.ErrRunInProgress):
			r.logger.Warn("Запланированный запуск пропущен: %v", err)
		case err != nil:
			r.logger.Error("Ошибка при выполнении запланированного ETL: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке планировщика: %w", err)
	}

	// Запускаем планировщик
	scheduler.StartAsync()

	// Ожидаем сигнал остановки из контекста
	<-ctx.Done()

	// Останавливаем планировщик
	scheduler.Stop()
	r.logger.Info("Планировщик ETL остановлен")
	return nil
}

// Server возвращает HTTP API поверх журнала запусков, метрик и хода выполнения
func (r *ETLRunner) Server(hub *progress.Hub) *api.Server {
	var progressHandler http.Handler
	if hub != nil {
		progressHandler = http.HandlerFunc(hub.ServeWS)
	}
	return api.NewServer(r.etlLogRepo, r, progressHandler, r.metrics.Handler(), r.logger)
}
