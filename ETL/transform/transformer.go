package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/LilVoxy/remotework_health_etl/ETL/geography"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// StageTransform - имя фазы преобразования в журналах и ошибках
const StageTransform = "transform"

// Размеры выборок кодов стран в диагностике
const (
	unresolvedSampleSize   = 20
	perIndicatorSampleSize = 10
)

// Transformer координирует процесс очистки, агрегации и соединения данных
type Transformer struct {
	logger          *utils.ETLLogger
	cleaner         *Cleaner
	outputProcessor *OutputProcessor
}

// NewTransformer создает новый экземпляр Transformer
func NewTransformer(logger *utils.ETLLogger) *Transformer {
	return &Transformer{
		logger:          logger,
		cleaner:         NewCleaner(logger),
		outputProcessor: NewOutputProcessor(logger),
	}
}

// Transform выполняет полный процесс преобразования извлечённых данных в выходные таблицы
func (t *Transformer) Transform(extractedData *models.ExtractedData) (*models.TransformedData, error) {
	startTime := time.Now()
	t.logger.LogStageStart(StageTransform)

	if extractedData == nil {
		err := fmt.Errorf("%w: результат фазы извлечения отсутствует", models.ErrMissingPrerequisite)
		return nil, models.NewStageError(StageTransform, err)
	}

	transformedData := &models.TransformedData{}

	// 1. Очистка опроса
	t.logger.Info("Очистка данных опроса...")
	surveyRows := t.cleaner.CleanSurvey(extractedData.Survey)
	survey := SurveyTable("dados_limpos", surveyRows)
	transformedData.SurveyRows = len(surveyRows)

	// 2. Отображение стран на регионы: одно на запуск, по объединению стран всех индикаторов
	t.logger.Info("Сопоставление стран с регионами...")
	regions := geography.NewResolver().ResolveMany(countryUniverse(extractedData.Indicators))
	unresolved := regions.Unresolved()
	transformedData.CountriesTotal = regions.Len()
	transformedData.UnresolvedCountries = unresolved
	t.logger.Info("Стран не сопоставлено с регионом: %d из %d", len(unresolved), regions.Len())
	if len(unresolved) > 0 {
		t.logger.Info("Первые несопоставленные коды: %v", regions.Sample(unresolvedSampleSize))
	}

	// 3. Очистка индикаторов
	t.logger.Info("Очистка данных индикаторов...")
	observations := t.cleaner.CleanIndicators(extractedData.Indicators, regions)
	indicators := IndicatorTable("indicadores_com_regiao", observations)
	transformedData.IndicatorRows = len(observations)
	t.logUnmappedByIndicator(observations)

	// 4. Выходные таблицы
	t.logger.Info("Формирование выходных таблиц...")
	outputs, artifacts, err := t.buildOutputs(survey, indicators)
	if err != nil {
		t.logger.Error("Ошибка при формировании выходных таблиц: %v", err)
		return nil, models.NewStageError(StageTransform, err)
	}
	transformedData.Outputs = outputs
	transformedData.Artifacts = append([]*models.Table{
		RawIndicatorTable("todos_dados_who", extractedData.Indicators),
		survey,
		indicators,
		regions.Table("mapa_regioes"),
	}, artifacts...)

	for _, out := range outputs {
		t.logger.Debug("Таблица %s: %d строк", out.Destination, out.Table.Len())
	}
	t.logger.LogStageComplete(StageTransform, time.Since(startTime))
	return transformedData, nil
}

func (t *Transformer) buildOutputs(survey, indicators *models.Table) ([]models.OutputTable, []*models.Table, error) {
	p := t.outputProcessor

	byRegion, err := p.IndicatorsByRegion(indicators)
	if err != nil {
		return nil, nil, err
	}
	transformed, err := p.TransformedSurvey(survey, byRegion)
	if err != nil {
		return nil, nil, err
	}
	itProfessionals, err := p.ITProfessionals(survey)
	if err != nil {
		return nil, nil, err
	}
	unified, err := p.UnifiedByRegion(survey, indicators)
	if err != nil {
		return nil, nil, err
	}
	byCountryYear, err := p.IndicatorsByCountryYear(indicators)
	if err != nil {
		return nil, nil, err
	}
	legislation, err := p.Legislation(indicators)
	if err != nil {
		return nil, nil, err
	}
	lifeExpectancy, err := p.LifeExpectancy(indicators)
	if err != nil {
		return nil, nil, err
	}
	regionSex, err := p.RegionSexMeans(indicators)
	if err != nil {
		return nil, nil, err
	}
	yearly, err := p.YearlyEvolution(indicators)
	if err != nil {
		return nil, nil, err
	}
	trend, err := p.YearlyTrend(yearly)
	if err != nil {
		return nil, nil, err
	}

	outputs := []models.OutputTable{
		{Table: transformed, Destination: TableTransformedSurvey, RequiredNumeric: transformedSurveyRequired(), Precision: NoRounding},
		{Table: itProfessionals, Destination: TableITProfessionals, Precision: NoRounding},
		{Table: unified, Destination: TableUnifiedByRegion, Precision: NoRounding},
		{Table: byCountryYear, Destination: TableIndicatorsByCountry, RequiredNumeric: countryYearRequired(), Precision: 4},
		{Table: legislation, Destination: TableLegislation, Precision: NoRounding},
		{Table: lifeExpectancy, Destination: TableLifeExpectancy, Precision: NoRounding},
		{Table: byRegion, Destination: TableIndicatorsByRegion, Precision: NoRounding},
	}
	return outputs, []*models.Table{regionSex, yearly, trend}, nil
}

// logUnmappedByIndicator выводит по каждому индикатору число наблюдений без региона
func (t *Transformer) logUnmappedByIndicator(observations []models.IndicatorObservation) {
	type stat struct {
		total    int
		unmapped int
		codes    []string
		seen     map[string]bool
	}
	stats := make(map[string]*stat)
	var order []string
	for _, o := range observations {
		s, ok := stats[o.IndicatorCode]
		if !ok {
			s = &stat{seen: make(map[string]bool)}
			stats[o.IndicatorCode] = s
			order = append(order, o.IndicatorCode)
		}
		s.total++
		if o.Region != nil {
			continue
		}
		s.unmapped++
		if o.Country != "" && !s.seen[o.Country] && len(s.codes) < perIndicatorSampleSize {
			s.seen[o.Country] = true
			s.codes = append(s.codes, o.Country)
		}
	}

	for _, code := range order {
		s := stats[code]
		t.logger.Debug("%s - наблюдений без региона: %d из %d %v", code, s.unmapped, s.total, s.codes)
	}
}

// countryUniverse возвращает отсортированное множество кодов стран по всем индикаторам
func countryUniverse(records []models.IndicatorRecord) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		if r.Country != "" {
			seen[r.Country] = true
		}
	}
	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
