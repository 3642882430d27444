package transform

import (
	"fmt"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// Коды индикаторов API
const (
	CodeLifeExpectancy60 = "WHOSIS_000015"
	CodePolicy           = "MH_1"
	CodeLegislation      = "MH_3"
	CodePsychiatrists    = "MH_6"
	CodeNurses           = "MH_7"
	CodePsychologists    = "MH_9"
	CodeBeds             = "MH_16"
	CodeAdmissions       = "MH_19"
)

// Таблицы целевого хранилища в порядке загрузки
const (
	TableTransformedSurvey   = "dados_transformados"
	TableITProfessionals     = "profissionais_it_regionais"
	TableUnifiedByRegion     = "dados_unificados_por_regiao"
	TableIndicatorsByCountry = "indicadores_api_por_pais_ano"
	TableLegislation         = "legislacao_mh3_por_pais_ano"
	TableLifeExpectancy      = "life_expectancy_at_60"
	TableIndicatorsByRegion  = "indicadores_por_regiao"
)

// UnknownRegion подставляется там, где выходная таблица требует непустой регион
const UnknownRegion = "Desconhecida"

// RegionIndicatorColumns - колонки средних индикаторов по регионам в объявленном порядке
var RegionIndicatorColumns = []PivotColumn{
	{Key: CodePolicy, Name: "MH_1_avg"},
	{Key: CodeLegislation, Name: "MH_3_avg"},
	{Key: CodePsychiatrists, Name: "MH_6_avg"},
	{Key: CodeNurses, Name: "MH_7_avg"},
	{Key: CodePsychologists, Name: "MH_9_avg"},
	{Key: CodeBeds, Name: "MH_16_avg"},
	{Key: CodeAdmissions, Name: "MH_19_avg"},
	{Key: CodeLifeExpectancy60, Name: "LifeExpectancyAt60_avg"},
}

// CountryYearColumns - колонки индикаторов кадров по стране и году
var CountryYearColumns = []PivotColumn{
	{Key: CodePsychiatrists, Name: "Avg_MH_6_PsychiatristsInMH"},
	{Key: CodeNurses, Name: "Avg_MH_7_NursesInMH"},
	{Key: CodePsychologists, Name: "Avg_MH_9_PsychologistsInMH"},
}

// regionalWorkforce - индикаторы, присоединяемые к метрикам опроса по регионам, в порядке соединения
var regionalWorkforce = []struct {
	code string
	name string
}{
	{CodePsychologists, "Avg_Psychologists_per_100k"},
	{CodePsychiatrists, "Avg_Psychiatrists_per_100k"},
	{CodeNurses, "Avg_Nurses_per_100k"},
}

// OutputProcessor формирует выходные таблицы из очищенных данных
type OutputProcessor struct {
	logger *utils.ETLLogger
}

// NewOutputProcessor создает новый экземпляр OutputProcessor
func NewOutputProcessor(logger *utils.ETLLogger) *OutputProcessor {
	return &OutputProcessor{logger: logger}
}

func (p *OutputProcessor) aggregate(table *models.Table, spec AggregateSpec) (*models.Table, error) {
	out, stats, err := Aggregate(table, spec)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации %s: %w", spec.Name, err)
	}
	if stats.NonNumeric > 0 {
		p.logger.Debug("%s: нечисловых значений исключено: %d", spec.Name, stats.NonNumeric)
	}
	if stats.EmptyGroups > 0 {
		p.logger.Debug("%s: групп без числовых значений: %d", spec.Name, stats.EmptyGroups)
	}
	return out, nil
}

// IndicatorsByRegion - средние значения всех индикаторов по регионам, по колонке на индикатор.
// Строка с пустым регионом сохраняется для диагностики неразрешённых стран.
func (p *OutputProcessor) IndicatorsByRegion(indicators *models.Table) (*models.Table, error) {
	means, err := p.aggregate(indicators, AggregateSpec{
		Name:     TableIndicatorsByRegion,
		Keys:     []string{ColRegion, ColIndicator},
		Measures: []Measure{Mean(ColValue, ColValue, 2)},
	})
	if err != nil {
		return nil, err
	}
	return Pivot(means, []string{ColRegion}, ColIndicator, ColValue, RegionIndicatorColumns)
}

// TransformedSurvey присоединяет к каждой строке опроса средние индикаторов её региона
func (p *OutputProcessor) TransformedSurvey(survey, byRegion *models.Table) (*models.Table, error) {
	merged, err := MergeLeft(survey, byRegion, ColRegion)
	if err != nil {
		return nil, fmt.Errorf("ошибка соединения опроса с индикаторами: %w", err)
	}
	merged.Name = TableTransformedSurvey
	return merged, nil
}

// ITProfessionals - средние оценки по отрасли, региону и состоянию здоровья
func (p *OutputProcessor) ITProfessionals(survey *models.Table) (*models.Table, error) {
	filled, err := FillNil(survey, ColRegion, UnknownRegion)
	if err != nil {
		return nil, err
	}
	return p.aggregate(filled, AggregateSpec{
		Name: TableITProfessionals,
		Keys: []string{ColIndustry, ColRegion, ColMentalHealth},
		Measures: []Measure{
			Mean(ColCompanySupport, "Avg_Company_Support", 2),
			Mean(ColWorkLifeBalance, "Avg_Work_Life_Balance", 2),
			Mean(ColSocialIsolation, "Avg_Social_Isolation", 2),
		},
	})
}

// UnifiedByRegion - региональные метрики опроса, дополненные кадровыми индикаторами
func (p *OutputProcessor) UnifiedByRegion(survey, indicators *models.Table) (*models.Table, error) {
	metrics, err := p.aggregate(survey, AggregateSpec{
		Name: "metricas_regionais",
		Keys: []string{ColRegion},
		Measures: []Measure{
			Mean(ColWorkLifeBalanceNorm, ColWorkLifeBalanceNorm, 2),
			Mean(ColSocialIsolationNorm, ColSocialIsolationNorm, 2),
			Mean(ColCompanySupportNorm, ColCompanySupportNorm, 2),
			Mean(ColWellnessIndex, ColWellnessIndex, 2),
		},
	})
	if err != nil {
		return nil, err
	}

	companions := make([]*models.Table, 0, len(regionalWorkforce))
	for _, w := range regionalWorkforce {
		filtered, err := Filter(indicators, ColIndicator, w.code)
		if err != nil {
			return nil, err
		}
		means, err := p.aggregate(filtered, AggregateSpec{
			Name:     w.code,
			Keys:     []string{ColRegion},
			Measures: []Measure{Mean(ColValue, w.name, 2)},
		})
		if err != nil {
			return nil, err
		}
		companions = append(companions, means)
	}

	unified, err := MergeChain(metrics, []string{ColRegion}, companions...)
	if err != nil {
		return nil, fmt.Errorf("ошибка соединения региональных метрик: %w", err)
	}
	unified.Name = TableUnifiedByRegion
	return unified, nil
}

// IndicatorsByCountryYear - кадровые индикаторы MH_6, MH_7, MH_9 по стране и году
func (p *OutputProcessor) IndicatorsByCountryYear(indicators *models.Table) (*models.Table, error) {
	filtered, err := Filter(indicators, ColIndicator, CodePsychiatrists, CodeNurses, CodePsychologists)
	if err != nil {
		return nil, err
	}
	keyed, dropped, err := DropNil(filtered, ColCountry, ColYear)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		p.logger.Debug("%s: строк без страны или года: %d", TableIndicatorsByCountry, dropped)
	}

	means, err := p.aggregate(keyed, AggregateSpec{
		Name:     TableIndicatorsByCountry,
		Keys:     []string{ColCountry, ColYear, ColIndicator},
		Measures: []Measure{Mean(ColValue, ColValue, NoRounding)},
	})
	if err != nil {
		return nil, err
	}
	return Pivot(means, []string{ColCountry, ColYear}, ColIndicator, ColValue, CountryYearColumns)
}

// Legislation - статус законодательства о психическом здоровье (MH_3) по стране и году:
// 1, если хотя бы одно наблюдение "yes"
func (p *OutputProcessor) Legislation(indicators *models.Table) (*models.Table, error) {
	filtered, err := Filter(indicators, ColIndicator, CodeLegislation)
	if err != nil {
		return nil, err
	}

	status := models.NewTable(TableLegislation,
		models.Column{Name: ColCountry, Kind: models.KindString},
		models.Column{Name: ColYear, Kind: models.KindInt},
		models.Column{Name: "MH_3_Legislation_Status", Kind: models.KindInt},
	)
	countryIdx := filtered.ColumnIndex(ColCountry)
	yearIdx := filtered.ColumnIndex(ColYear)
	rawIdx := filtered.ColumnIndex(ColRawValue)
	for _, row := range filtered.Rows {
		raw, _ := row[rawIdx].(string)
		yesNo := ParseYesNo(raw)
		if yesNo == nil || row[countryIdx] == nil || row[yearIdx] == nil {
			continue
		}
		if err := status.AddRow(row[countryIdx], row[yearIdx], int64(*yesNo)); err != nil {
			return nil, err
		}
	}

	return p.aggregate(status, AggregateSpec{
		Name:     TableLegislation,
		Keys:     []string{ColCountry, ColYear},
		Measures: []Measure{Max("MH_3_Legislation_Status", "MH_3_Legislation_Status")},
	})
}

// LifeExpectancy - ожидаемая продолжительность жизни в 60 лет по наблюдениям с числовым значением
func (p *OutputProcessor) LifeExpectancy(indicators *models.Table) (*models.Table, error) {
	filtered, err := Filter(indicators, ColIndicator, CodeLifeExpectancy60)
	if err != nil {
		return nil, err
	}
	selected, err := Select(filtered, TableLifeExpectancy, ColCountry, ColYear, ColValue, ColRegion)
	if err != nil {
		return nil, err
	}
	if err := Rename(selected, ColValue, "LifeExpectancyAt60"); err != nil {
		return nil, err
	}

	valid, dropped, err := DropNil(selected, ColCountry, ColYear, "LifeExpectancyAt60")
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		p.logger.Debug("%s: отброшено строк без страны, года или значения: %d", TableLifeExpectancy, dropped)
	}
	return FillNil(valid, ColRegion, UnknownRegion)
}

// RegionSexMeans - средние индикаторов по региону и полу
func (p *OutputProcessor) RegionSexMeans(indicators *models.Table) (*models.Table, error) {
	return p.aggregate(indicators, AggregateSpec{
		Name:     "media_por_regiao_sexo",
		Keys:     []string{ColRegion, ColSex, ColIndicator},
		Measures: []Measure{Mean(ColValue, ColValue, NoRounding)},
	})
}

// YearlyEvolution - глобальные средние индикаторов по годам
func (p *OutputProcessor) YearlyEvolution(indicators *models.Table) (*models.Table, error) {
	return p.aggregate(indicators, AggregateSpec{
		Name:     "evolucao_anual",
		Keys:     []string{ColYear, ColIndicator},
		Measures: []Measure{Mean(ColValue, ColValue, NoRounding)},
	})
}

// transformedSurveyRequired - колонки dados_transformados, объявленные в хранилище как обязательные числовые
func transformedSurveyRequired() []string {
	cols := make([]string, 0, len(RegionIndicatorColumns)+4)
	for _, c := range RegionIndicatorColumns {
		cols = append(cols, c.Name)
	}
	return append(cols, ColWorkLifeBalanceNorm, ColSocialIsolationNorm, ColCompanySupportNorm, ColWellnessIndex)
}

func countryYearRequired() []string {
	cols := make([]string, len(CountryYearColumns))
	for i, c := range CountryYearColumns {
		cols[i] = c.Name
	}
	return cols
}
