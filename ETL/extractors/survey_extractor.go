package extractors

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// SurveyExtractor читает CSV-файл опроса об удалённой работе
type SurveyExtractor struct {
	logger *utils.ETLLogger
}

// NewSurveyExtractor создает новый экземпляр SurveyExtractor
func NewSurveyExtractor(logger *utils.ETLLogger) *SurveyExtractor {
	return &SurveyExtractor{logger: logger}
}

// Extract читает файл опроса. Отсутствие файла - ошибка стадии,
// строки, которые не удалось разобрать, пропускаются и подсчитываются.
func (e *SurveyExtractor) Extract(path string) ([]models.SurveyRecord, int, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: файл опроса %s не найден", models.ErrMissingPrerequisite, path)
		}
		return nil, 0, fmt.Errorf("ошибка открытия файла опроса: %w", err)
	}
	defer file.Close()

	return e.Decode(file)
}

// Decode разбирает CSV опроса из потока
func (e *SurveyExtractor) Decode(r io.Reader) ([]models.SurveyRecord, int, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%w: файл опроса пуст", models.ErrMissingPrerequisite)
		}
		return nil, 0, fmt.Errorf("ошибка чтения заголовка опроса: %w", err)
	}

	if missing := missingSurveyColumns(dec.Header()); len(missing) > 0 {
		return nil, 0, fmt.Errorf("в файле опроса отсутствуют колонки: %v", missing)
	}

	var (
		records   []models.SurveyRecord
		numErrors int
	)
	for {
		var record models.SurveyRecord
		err := dec.Decode(&record)
		if err == io.EOF {
			break
		}
		if err != nil {
			numErrors++
			e.logger.Debug("Строка опроса пропущена: %v", err)
			continue
		}
		records = append(records, record)
	}

	if numErrors > 0 {
		e.logger.Warn("Пропущено строк опроса с ошибками разбора: %d", numErrors)
	}
	e.logger.Info("Прочитано %d строк опроса", len(records))
	return records, numErrors, nil
}

func missingSurveyColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	expected, err := csvutil.Header(models.SurveyRecord{}, "csv")
	if err != nil {
		return nil
	}
	var missing []string
	for _, col := range expected {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
