package transform

import (
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// Имена общих колонок
const (
	ColRegion    = "Region"
	ColCountry   = "country"
	ColYear      = "year"
	ColSex       = "sex"
	ColIndicator = "indicator_code"
	ColRawValue  = "raw_value"
	ColValue     = "value"
)

// Колонки очищенного опроса
const (
	ColIndustry            = "Industry"
	ColMentalHealth        = "Mental_Health_Condition"
	ColWorkLifeBalance     = "Work_Life_Balance_Rating"
	ColSocialIsolation     = "Social_Isolation_Rating"
	ColCompanySupport      = "Company_Support_for_Remote_Work"
	ColWorkLifeBalanceNorm = "Work_Life_Balance_Norm"
	ColSocialIsolationNorm = "Social_Isolation_Norm"
	ColCompanySupportNorm  = "Company_Support_Norm"
	ColWellnessIndex       = "Mental_Wellness_Index"
)

var surveyColumns = []models.Column{
	{Name: "Employee_ID", Kind: models.KindString},
	{Name: "Age", Kind: models.KindInt},
	{Name: "Gender", Kind: models.KindString},
	{Name: "Job_Role", Kind: models.KindString},
	{Name: ColIndustry, Kind: models.KindString},
	{Name: "Years_of_Experience", Kind: models.KindInt},
	{Name: "Work_Location", Kind: models.KindString},
	{Name: "Hours_Worked_Per_Week", Kind: models.KindInt},
	{Name: "Number_of_Virtual_Meetings", Kind: models.KindInt},
	{Name: ColWorkLifeBalance, Kind: models.KindFloat},
	{Name: "Stress_Level", Kind: models.KindString},
	{Name: ColMentalHealth, Kind: models.KindString},
	{Name: "Access_to_Mental_Health_Resources", Kind: models.KindString},
	{Name: "Productivity_Change", Kind: models.KindString},
	{Name: ColSocialIsolation, Kind: models.KindFloat},
	{Name: "Satisfaction_with_Remote_Work", Kind: models.KindString},
	{Name: ColCompanySupport, Kind: models.KindFloat},
	{Name: "Physical_Activity", Kind: models.KindString},
	{Name: "Sleep_Quality", Kind: models.KindString},
	{Name: ColRegion, Kind: models.KindString},
	{Name: ColWorkLifeBalanceNorm, Kind: models.KindFloat},
	{Name: ColSocialIsolationNorm, Kind: models.KindFloat},
	{Name: ColCompanySupportNorm, Kind: models.KindFloat},
	{Name: ColWellnessIndex, Kind: models.KindFloat},
}

// SurveyTable строит таблицу очищенного опроса. Пустой регион становится пустым значением.
func SurveyTable(name string, rows []models.SurveyRow) *models.Table {
	table := models.NewTable(name, surveyColumns...)
	table.Rows = make([]models.Row, 0, len(rows))
	for _, r := range rows {
		table.Rows = append(table.Rows, models.Row{
			r.EmployeeID,
			models.IntOrNil(r.Age),
			r.Gender,
			r.JobRole,
			r.Industry,
			models.IntOrNil(r.YearsOfExperience),
			r.WorkLocation,
			models.IntOrNil(r.HoursWorkedPerWeek),
			models.IntOrNil(r.NumberOfVirtualMeetings),
			models.FloatOrNil(r.WorkLifeBalanceRating),
			r.StressLevel,
			r.MentalHealthCondition,
			r.AccessToMentalHealthResources,
			r.ProductivityChange,
			models.FloatOrNil(r.SocialIsolationRating),
			r.SatisfactionWithRemoteWork,
			models.FloatOrNil(r.CompanySupportForRemoteWork),
			r.PhysicalActivity,
			r.SleepQuality,
			nonEmpty(r.Region),
			models.FloatOrNil(r.WorkLifeBalanceNorm),
			models.FloatOrNil(r.SocialIsolationNorm),
			models.FloatOrNil(r.CompanySupportNorm),
			models.FloatOrNil(r.MentalWellnessIndex),
		})
	}
	return table
}

// IndicatorTable строит таблицу очищенных наблюдений индикаторов с регионом
func IndicatorTable(name string, observations []models.IndicatorObservation) *models.Table {
	table := models.NewTable(name,
		models.Column{Name: ColIndicator, Kind: models.KindString},
		models.Column{Name: ColCountry, Kind: models.KindString},
		models.Column{Name: ColYear, Kind: models.KindInt},
		models.Column{Name: ColSex, Kind: models.KindString},
		models.Column{Name: ColRegion, Kind: models.KindString},
		models.Column{Name: ColRawValue, Kind: models.KindString},
		models.Column{Name: ColValue, Kind: models.KindFloat},
	)
	table.Rows = make([]models.Row, 0, len(observations))
	for _, o := range observations {
		table.Rows = append(table.Rows, models.Row{
			o.IndicatorCode,
			nonEmpty(o.Country),
			models.IntOrNil(o.Year),
			models.StringOrNil(o.Sex),
			models.StringOrNil(o.Region),
			models.StringOrNil(o.RawValue),
			models.FloatOrNil(o.Value),
		})
	}
	return table
}

// RawIndicatorTable строит таблицу сырой выгрузки индикаторов по всем кодам
func RawIndicatorTable(name string, records []models.IndicatorRecord) *models.Table {
	table := models.NewTable(name,
		models.Column{Name: ColIndicator, Kind: models.KindString},
		models.Column{Name: ColCountry, Kind: models.KindString},
		models.Column{Name: ColYear, Kind: models.KindInt},
		models.Column{Name: ColSex, Kind: models.KindString},
		models.Column{Name: "dim2", Kind: models.KindString},
		models.Column{Name: "dim3", Kind: models.KindString},
		models.Column{Name: "value_type", Kind: models.KindString},
		models.Column{Name: "source", Kind: models.KindString},
		models.Column{Name: ColValue, Kind: models.KindString},
		models.Column{Name: "numeric_value", Kind: models.KindFloat},
	)
	table.Rows = make([]models.Row, 0, len(records))
	for _, r := range records {
		table.Rows = append(table.Rows, models.Row{
			r.IndicatorCode,
			nonEmpty(r.Country),
			models.IntOrNil(r.Year),
			models.StringOrNil(r.Sex),
			models.StringOrNil(r.Dim2),
			models.StringOrNil(r.Dim3),
			models.StringOrNil(r.ValueType),
			models.StringOrNil(r.Source),
			models.StringOrNil(r.Value),
			models.FloatOrNil(r.NumericValue),
		})
	}
	return table
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
