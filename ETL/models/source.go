package models

// IndicatorRecord представляет одно наблюдение индикатора из API статистики здравоохранения
type IndicatorRecord struct {
	IndicatorCode string   `json:"indicator_code"`
	Country       string   `json:"country,omitempty"`
	Year          *int     `json:"year,omitempty"`
	Sex           *string  `json:"sex,omitempty"`
	Dim2          *string  `json:"dim2,omitempty"`
	Dim3          *string  `json:"dim3,omitempty"`
	ValueType     *string  `json:"value_type,omitempty"`
	Source        *string  `json:"source,omitempty"`
	Value         *string  `json:"value,omitempty"`
	NumericValue  *float64 `json:"numeric_value,omitempty"`
}

// HasValue сообщает, содержит ли запись текстовое или числовое значение
func (r IndicatorRecord) HasValue() bool {
	return r.Value != nil || r.NumericValue != nil
}

// SurveyRecord представляет строку опроса в исходном виде (все поля - текст)
type SurveyRecord struct {
	EmployeeID                    string `csv:"Employee_ID"`
	Age                           string `csv:"Age"`
	Gender                        string `csv:"Gender"`
	JobRole                       string `csv:"Job_Role"`
	Industry                      string `csv:"Industry"`
	YearsOfExperience             string `csv:"Years_of_Experience"`
	WorkLocation                  string `csv:"Work_Location"`
	HoursWorkedPerWeek            string `csv:"Hours_Worked_Per_Week"`
	NumberOfVirtualMeetings       string `csv:"Number_of_Virtual_Meetings"`
	WorkLifeBalanceRating         string `csv:"Work_Life_Balance_Rating"`
	StressLevel                   string `csv:"Stress_Level"`
	MentalHealthCondition         string `csv:"Mental_Health_Condition"`
	AccessToMentalHealthResources string `csv:"Access_to_Mental_Health_Resources"`
	ProductivityChange            string `csv:"Productivity_Change"`
	SocialIsolationRating         string `csv:"Social_Isolation_Rating"`
	SatisfactionWithRemoteWork    string `csv:"Satisfaction_with_Remote_Work"`
	CompanySupportForRemoteWork   string `csv:"Company_Support_for_Remote_Work"`
	PhysicalActivity              string `csv:"Physical_Activity"`
	SleepQuality                  string `csv:"Sleep_Quality"`
	Region                        string `csv:"Region"`
}

// SurveyRow представляет очищенную строку опроса
type SurveyRow struct {
	EmployeeID                    string
	Age                           *int
	Gender                        string
	JobRole                       string
	Industry                      string
	YearsOfExperience             *int
	WorkLocation                  string
	HoursWorkedPerWeek            *int
	NumberOfVirtualMeetings       *int
	WorkLifeBalanceRating         *float64
	StressLevel                   string
	MentalHealthCondition         string
	AccessToMentalHealthResources string
	ProductivityChange            string
	SocialIsolationRating         *float64
	SatisfactionWithRemoteWork    string
	CompanySupportForRemoteWork   *float64
	PhysicalActivity              string
	SleepQuality                  string
	Region                        string

	// Производные поля
	WorkLifeBalanceNorm *float64
	SocialIsolationNorm *float64
	CompanySupportNorm  *float64
	MentalWellnessIndex *float64
}

// IndicatorObservation - очищенное наблюдение индикатора с привязкой к региону
type IndicatorObservation struct {
	IndicatorCode string
	Country       string
	Year          *int
	Sex           *string
	Region        *string
	RawValue      *string
	Value         *float64
}

// ExtractedData содержит данные, полученные на фазе Extract
type ExtractedData struct {
	Survey     []SurveyRecord
	Indicators []IndicatorRecord

	// Коды индикаторов, которые не удалось получить
	FailedCodes []string

	// Количество строк опроса, которые не удалось разобрать
	SurveyDecodeErrors int
}
