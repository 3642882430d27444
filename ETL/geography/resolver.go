package geography

import (
	"sort"
	"strings"
	"sync"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// Resolve сопоставляет трёхбуквенный код страны с регионом.
// Неизвестный или некорректный код даёт ok=false, ошибка не возвращается.
func Resolve(code string) (string, bool) {
	code = normalizeCode(code)
	if len(code) != 3 {
		return "", false
	}
	alpha2, ok := Alpha3ToAlpha2(code)
	if !ok {
		return "", false
	}
	return ContinentName(alpha2)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolver мемоизирует результаты Resolve в пределах одного запуска
type Resolver struct {
	mu   sync.Mutex
	memo map[string]*string
}

// NewResolver создает новый экземпляр Resolver
func NewResolver() *Resolver {
	return &Resolver{memo: make(map[string]*string)}
}

func (r *Resolver) resolve(code string) *string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if region, ok := r.memo[code]; ok {
		return region
	}
	var region *string
	if name, ok := Resolve(code); ok {
		region = &name
	}
	r.memo[code] = region
	return region
}

// ResolveMany строит RegionMap по различным кодам из входной последовательности.
// Пустые коды пропускаются: у строки нет страны, это не "неразрешённый" код.
func (r *Resolver) ResolveMany(codes []string) RegionMap {
	regions := make(map[string]*string)
	for _, code := range codes {
		key := normalizeCode(code)
		if key == "" {
			continue
		}
		if _, seen := regions[key]; seen {
			continue
		}
		regions[key] = r.resolve(key)
	}
	return RegionMap{regions: regions}
}

// MemoSize возвращает количество кодов, уже разрешённых этим экземпляром
func (r *Resolver) MemoSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.memo)
}

// RegionMap - неизменяемое отображение код страны -> регион.
// Неразрешённые коды присутствуют с пустым (nil) регионом.
type RegionMap struct {
	regions map[string]*string
}

// Lookup возвращает регион кода. known=false, если код не встречался в данных;
// region=nil при known=true означает неразрешённый код.
func (m RegionMap) Lookup(code string) (region *string, known bool) {
	region, known = m.regions[normalizeCode(code)]
	if region != nil {
		copied := *region
		region = &copied
	}
	return region, known
}

// RegionValue возвращает регион как значение ячейки таблицы (string или nil)
func (m RegionMap) RegionValue(code string) any {
	region, _ := m.Lookup(code)
	return models.StringOrNil(region)
}

// Len возвращает количество кодов в отображении
func (m RegionMap) Len() int {
	return len(m.regions)
}

// Codes возвращает все коды в отсортированном порядке
func (m RegionMap) Codes() []string {
	codes := make([]string, 0, len(m.regions))
	for code := range m.regions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Unresolved возвращает отсортированный список кодов без региона
func (m RegionMap) Unresolved() []string {
	var codes []string
	for code, region := range m.regions {
		if region == nil {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Sample возвращает первые n неразрешённых кодов
func (m RegionMap) Sample(n int) []string {
	return firstN(m.Unresolved(), n)
}

// Table возвращает отображение как таблицу (country, Region) для выгрузки артефактов
func (m RegionMap) Table(name string) *models.Table {
	table := models.NewTable(name,
		models.Column{Name: "country", Kind: models.KindString},
		models.Column{Name: "Region", Kind: models.KindString},
	)
	for _, code := range m.Codes() {
		table.Rows = append(table.Rows, models.Row{code, models.StringOrNil(m.regions[code])})
	}
	return table
}

func firstN(values []string, n int) []string {
	if n < 0 || n >= len(values) {
		return values
	}
	return values[:n]
}
