package models

// TransformedData содержит результаты фазы Transform
type TransformedData struct {
	// Таблицы для загрузки в целевое хранилище, в порядке загрузки
	Outputs []OutputTable

	// Промежуточные артефакты (не загружаются, могут сохраняться на диск)
	Artifacts []*Table

	// Диагностика
	SurveyRows          int
	IndicatorRows       int
	UnresolvedCountries []string
	CountriesTotal      int
}
