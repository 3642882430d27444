package transform

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/LilVoxy/remotework_health_etl/ETL/geography"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// RatingScale - максимум шкалы оценок опроса (1-5)
const RatingScale = 5.0

// Метки, заменяющие маркер отсутствия "None" в категориальных колонках опроса
const (
	SentinelNone     = "None"
	LabelNoCondition = "Nenhuma"
	LabelNoActivity  = "Não faz"
)

var sentinelLabels = map[string]map[string]string{
	"Mental_Health_Condition": {SentinelNone: LabelNoCondition},
	"Physical_Activity":       {SentinelNone: LabelNoActivity},
}

var leadingNumberPattern = regexp.MustCompile(`^\s*(-?\d+\.?\d*)`)

// ReplaceSentinel заменяет известный маркер колонки на доменную метку.
// Неизвестные значения возвращаются без изменений.
func ReplaceSentinel(column, value string) string {
	if label, ok := sentinelLabels[column][value]; ok {
		return label
	}
	return value
}

// NormalizeRating переводит оценку в диапазон [0,1] делением на максимум шкалы
func NormalizeRating(rating *float64, scale float64) *float64 {
	if rating == nil || scale == 0 {
		return nil
	}
	normalized := *rating / scale
	return &normalized
}

// MentalWellnessIndex - составной индекс благополучия:
// (баланс + (1 - изоляция) + поддержка компании) / 3 по нормализованным оценкам
func MentalWellnessIndex(workLifeBalance, socialIsolation, companySupport *float64) *float64 {
	if workLifeBalance == nil || socialIsolation == nil || companySupport == nil {
		return nil
	}
	index := (*workLifeBalance + (1 - *socialIsolation) + *companySupport) / 3
	return &index
}

// ParseLeadingNumber извлекает ведущее число из аннотированной строки, например "15.9 [15.3-16.8]"
func ParseLeadingNumber(s string) *float64 {
	match := leadingNumberPattern.FindStringSubmatch(s)
	if match == nil {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(match[1], "."), 64)
	if err != nil || math.IsInf(value, 0) {
		return nil
	}
	return &value
}

// ParseYesNo переводит "yes"/"no" в 1/0, остальное - в пустое значение
func ParseYesNo(s string) *int {
	var v int
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		v = 1
	case "no":
		v = 0
	default:
		return nil
	}
	return &v
}

// ParseOptionalInt разбирает целое число; пустая или некорректная строка дает nil
func ParseOptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		v := int(f)
		return &v
	}
	return nil
}

// ParseOptionalFloat разбирает число; пустая, некорректная строка или NaN дают nil
func ParseOptionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// CoerceIndicatorValue приводит значение индикатора к числу:
// ведущее число текстового значения, затем числовое поле, затем "yes"/"no"
func CoerceIndicatorValue(raw *string, numeric *float64) *float64 {
	if raw != nil {
		if v := ParseLeadingNumber(*raw); v != nil {
			return v
		}
	}
	if numeric != nil && !math.IsNaN(*numeric) && !math.IsInf(*numeric, 0) {
		v := *numeric
		return &v
	}
	if raw != nil {
		if yn := ParseYesNo(*raw); yn != nil {
			v := float64(*yn)
			return &v
		}
	}
	return nil
}

// Cleaner выполняет очистку и нормализацию исходных наборов данных
type Cleaner struct {
	logger *utils.ETLLogger
}

// NewCleaner создает новый экземпляр Cleaner
func NewCleaner(logger *utils.ETLLogger) *Cleaner {
	return &Cleaner{logger: logger}
}

// CleanSurvey очищает строки опроса и вычисляет производные поля
func (c *Cleaner) CleanSurvey(records []models.SurveyRecord) []models.SurveyRow {
	rows := make([]models.SurveyRow, 0, len(records))
	invalidRatings := 0

	for _, r := range records {
		row := models.SurveyRow{
			EmployeeID:                    strings.TrimSpace(r.EmployeeID),
			Age:                           ParseOptionalInt(r.Age),
			Gender:                        r.Gender,
			JobRole:                       r.JobRole,
			Industry:                      r.Industry,
			YearsOfExperience:             ParseOptionalInt(r.YearsOfExperience),
			WorkLocation:                  r.WorkLocation,
			HoursWorkedPerWeek:            ParseOptionalInt(r.HoursWorkedPerWeek),
			NumberOfVirtualMeetings:       ParseOptionalInt(r.NumberOfVirtualMeetings),
			WorkLifeBalanceRating:         ParseOptionalFloat(r.WorkLifeBalanceRating),
			StressLevel:                   r.StressLevel,
			MentalHealthCondition:         ReplaceSentinel("Mental_Health_Condition", r.MentalHealthCondition),
			AccessToMentalHealthResources: r.AccessToMentalHealthResources,
			ProductivityChange:            r.ProductivityChange,
			SocialIsolationRating:         ParseOptionalFloat(r.SocialIsolationRating),
			SatisfactionWithRemoteWork:    r.SatisfactionWithRemoteWork,
			CompanySupportForRemoteWork:   ParseOptionalFloat(r.CompanySupportForRemoteWork),
			PhysicalActivity:              ReplaceSentinel("Physical_Activity", r.PhysicalActivity),
			SleepQuality:                  r.SleepQuality,
			Region:                        strings.TrimSpace(r.Region),
		}

		row.WorkLifeBalanceNorm = NormalizeRating(row.WorkLifeBalanceRating, RatingScale)
		row.SocialIsolationNorm = NormalizeRating(row.SocialIsolationRating, RatingScale)
		row.CompanySupportNorm = NormalizeRating(row.CompanySupportForRemoteWork, RatingScale)
		row.MentalWellnessIndex = MentalWellnessIndex(row.WorkLifeBalanceNorm, row.SocialIsolationNorm, row.CompanySupportNorm)

		if row.MentalWellnessIndex == nil {
			invalidRatings++
		}
		rows = append(rows, row)
	}

	if invalidRatings > 0 {
		c.logger.Warn("Строк опроса без полного набора оценок: %d", invalidRatings)
	}
	c.logger.Debug("Очищено строк опроса: %d", len(rows))
	return rows
}

// CleanIndicators приводит значения индикаторов к числу и присваивает регион
func (c *Cleaner) CleanIndicators(records []models.IndicatorRecord, regions geography.RegionMap) []models.IndicatorObservation {
	observations := make([]models.IndicatorObservation, 0, len(records))
	nonNumeric := 0

	for _, r := range records {
		obs := models.IndicatorObservation{
			IndicatorCode: r.IndicatorCode,
			Country:       strings.ToUpper(strings.TrimSpace(r.Country)),
			Year:          r.Year,
			Sex:           r.Sex,
			RawValue:      r.Value,
			Value:         CoerceIndicatorValue(r.Value, r.NumericValue),
		}
		if obs.Country != "" {
			obs.Region, _ = regions.Lookup(obs.Country)
		}
		if obs.Value == nil {
			nonNumeric++
		}
		observations = append(observations, obs)
	}

	if nonNumeric > 0 {
		c.logger.Debug("Наблюдений индикаторов без числового значения: %d", nonNumeric)
	}
	return observations
}
