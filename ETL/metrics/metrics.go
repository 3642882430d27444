package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics содержит метрики ETL-процесса
type Metrics struct {
	registry *prometheus.Registry

	// Запуски по итоговому статусу
	Runs *prometheus.CounterVec

	// Длительность запуска целиком и по фазам
	RunDuration   prometheus.Histogram
	StageDuration *prometheus.HistogramVec

	// Коды индикаторов, которые не удалось получить
	FetchFailures *prometheus.CounterVec

	// Наблюдения индикаторов в последнем запуске
	IndicatorRecords prometheus.Gauge

	// Коды стран без региона в последнем запуске
	UnresolvedCountries prometheus.Gauge

	// Результаты загрузки по таблицам
	RowsInserted *prometheus.CounterVec
	RowsFailed   *prometheus.CounterVec
	RowsDropped  *prometheus.CounterVec
}

// New создает метрики в собственном реестре
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_runs_total",
			Help: "Total ETL runs by final status",
		}, []string{"status"}),

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "etl_run_duration_seconds",
			Help:    "Duration of a full ETL run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_stage_duration_seconds",
			Help:    "Duration of ETL stages",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300},
		}, []string{"stage"}),

		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_indicator_fetch_failures_total",
			Help: "Indicator codes that could not be fetched",
		}, []string{"code"}),

		IndicatorRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "etl_indicator_records",
			Help: "Indicator observations extracted in the last run",
		}),

		UnresolvedCountries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "etl_unresolved_countries",
			Help: "Country codes without a region in the last run",
		}),

		RowsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_rows_inserted_total",
			Help: "Rows inserted into the destination store by table",
		}, []string{"table"}),

		RowsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_rows_failed_total",
			Help: "Rows rejected by the destination store by table",
		}, []string{"table"}),

		RowsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_rows_dropped_total",
			Help: "Rows dropped before load because of invalid required values",
		}, []string{"table"}),
	}
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP-обработчик для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun фиксирует итог запуска
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// ObserveStage фиксирует длительность фазы
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// RecordExtraction фиксирует итоги извлечения
func (m *Metrics) RecordExtraction(records int, failedCodes []string) {
	if m == nil {
		return
	}
	m.IndicatorRecords.Set(float64(records))
	for _, code := range failedCodes {
		m.FetchFailures.WithLabelValues(code).Inc()
	}
}

// RecordUnresolved фиксирует количество кодов стран без региона
func (m *Metrics) RecordUnresolved(n int) {
	if m != nil {
		m.UnresolvedCountries.Set(float64(n))
	}
}

// RecordLoad фиксирует итоги загрузки таблицы
func (m *Metrics) RecordLoad(table string, inserted, failed, dropped int) {
	if m == nil {
		return
	}
	m.RowsInserted.WithLabelValues(table).Add(float64(inserted))
	m.RowsFailed.WithLabelValues(table).Add(float64(failed))
	m.RowsDropped.WithLabelValues(table).Add(float64(dropped))
}
