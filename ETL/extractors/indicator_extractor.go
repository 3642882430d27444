package extractors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LilVoxy/remotework_health_etl/ETL/config"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// IndicatorExtractor извлекает временные ряды индикаторов из API статистики здравоохранения
type IndicatorExtractor struct {
	client      *http.Client
	baseURL     string
	timeout     time.Duration
	concurrency int
	logger      *utils.ETLLogger
}

// NewIndicatorExtractor создает новый экземпляр IndicatorExtractor
func NewIndicatorExtractor(cfg config.APIConfig, client *http.Client, logger *utils.ETLLogger) *IndicatorExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &IndicatorExtractor{
		client:      client,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		timeout:     cfg.Timeout,
		concurrency: concurrency,
		logger:      logger,
	}
}

// FetchFailure описывает код индикатора, который не удалось получить
type FetchFailure struct {
	Code string
	Err  error
}

// FetchReport - результат пакетного извлечения индикаторов
type FetchReport struct {
	Records   []models.IndicatorRecord
	Succeeded []string
	Failures  []FetchFailure
}

// FailedCodes возвращает коды, извлечение которых завершилось ошибкой
func (r FetchReport) FailedCodes() []string {
	codes := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		codes = append(codes, f.Code)
	}
	return codes
}

// Empty сообщает, что ни одной записи не извлечено
func (r FetchReport) Empty() bool {
	return len(r.Records) == 0
}

type apiResponse struct {
	Value []apiObservation `json:"value"`
}

type apiObservation struct {
	SpatialDim       *string      `json:"SpatialDim"`
	TimeDim          flexibleInt  `json:"TimeDim"`
	Dim1             *string      `json:"Dim1"`
	Dim2             *string      `json:"Dim2"`
	Dim3             *string      `json:"Dim3"`
	ValueType        *string      `json:"ValueType"`
	DataSourceDim    *string      `json:"DataSourceDim"`
	Value            flexibleText `json:"Value"`
	FactValueNumeric *float64     `json:"FactValueNumeric"`
}

// flexibleInt принимает год как число или как числовую строку
type flexibleInt struct {
	Value *int
}

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	f.Value = nil
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		f.Value = &n
		return nil
	}
	if fl, err := strconv.ParseFloat(raw, 64); err == nil && fl == float64(int(fl)) {
		n := int(fl)
		f.Value = &n
	}
	// Нечисловой год становится пустым значением
	return nil
}

// flexibleText принимает значение как строку или как число.
// Объект или массив помечается Invalid и не прерывает разбор ответа.
type flexibleText struct {
	Value   *string
	Invalid bool
}

func (f *flexibleText) UnmarshalJSON(data []byte) error {
	f.Value = nil
	f.Invalid = false
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if strings.TrimSpace(s) != "" {
			f.Value = &s
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		f.Invalid = true
		return nil
	}
	s = n.String()
	f.Value = &s
	return nil
}

// Fetch выполняет один запрос временного ряда индикатора.
// Любая ошибка (статус, сеть, таймаут, тело) логируется один раз и возвращается как значение.
func (e *IndicatorExtractor) Fetch(ctx context.Context, code string) ([]models.IndicatorRecord, error) {
	records, err := e.fetch(ctx, code)
	if err != nil {
		e.logger.Error("Ошибка при запросе индикатора %s: %v", code, err)
		return nil, err
	}
	e.logger.Debug("Индикатор %s: получено %d записей", code, len(records))
	return records, nil
}

func (e *IndicatorExtractor) fetch(ctx context.Context, code string) ([]models.IndicatorRecord, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/%s", e.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("API вернул статус %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("ошибка разбора ответа API: %w", err)
	}

	records := make([]models.IndicatorRecord, 0, len(payload.Value))
	invalid := 0
	for _, obs := range payload.Value {
		if obs.Value.Invalid {
			invalid++
		}
		record := models.IndicatorRecord{
			IndicatorCode: code,
			Year:          obs.TimeDim.Value,
			Sex:           obs.Dim1,
			Dim2:          obs.Dim2,
			Dim3:          obs.Dim3,
			ValueType:     obs.ValueType,
			Source:        obs.DataSourceDim,
			Value:         obs.Value.Value,
			NumericValue:  obs.FactValueNumeric,
		}
		if obs.SpatialDim != nil {
			record.Country = strings.TrimSpace(*obs.SpatialDim)
		}
		// Полностью пустые наблюдения отбрасываются
		if !record.HasValue() {
			continue
		}
		records = append(records, record)
	}
	if invalid > 0 {
		e.logger.Warn("Индикатор %s: %d наблюдений с неподдерживаемым Value", code, invalid)
	}
	return records, nil
}

// FetchAll извлекает все коды ограниченным пулом воркеров.
// Результаты объединяются в порядке входных кодов; отказ одного кода не прерывает остальные.
func (e *IndicatorExtractor) FetchAll(ctx context.Context, codes []string) FetchReport {
	type result struct {
		records []models.IndicatorRecord
		err     error
	}
	results := make([]result, len(codes))

	limit := e.concurrency
	if limit > len(codes) {
		limit = len(codes)
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			records, err := e.Fetch(ctx, code)
			results[i] = result{records: records, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var report FetchReport
	for i, code := range codes {
		res := results[i]
		if res.err != nil {
			report.Failures = append(report.Failures, FetchFailure{Code: code, Err: res.err})
			continue
		}
		report.Succeeded = append(report.Succeeded, code)
		if len(res.records) == 0 {
			continue
		}
		report.Records = append(report.Records, res.records...)
	}

	if len(report.Failures) > 0 {
		e.logger.Warn("Не удалось получить %d из %d индикаторов: %v",
			len(report.Failures), len(codes), report.FailedCodes())
	}
	e.logger.Info("Извлечено %d записей индикаторов (%d кодов)", len(report.Records), len(report.Succeeded))
	return report
}
