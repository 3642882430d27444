package transform

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// ErrUnknownColumn - колонка отсутствует в таблице
var ErrUnknownColumn = errors.New("колонка не найдена")

// NoRounding отключает округление результата
const NoRounding = -1

// Reducer - функция свертки значений группы
type Reducer int

const (
	ReduceMean Reducer = iota
	ReduceMax
)

// String возвращает название свертки
func (r Reducer) String() string {
	switch r {
	case ReduceMean:
		return "mean"
	case ReduceMax:
		return "max"
	default:
		return fmt.Sprintf("reducer(%d)", int(r))
	}
}

// Measure описывает одну вычисляемую колонку агрегата
type Measure struct {
	Column    string
	As        string
	Reducer   Reducer
	Precision int
}

// Mean - среднее по колонке с округлением до precision знаков
func Mean(column, as string, precision int) Measure {
	return Measure{Column: column, As: as, Reducer: ReduceMean, Precision: precision}
}

// Max - максимум по колонке без округления
func Max(column, as string) Measure {
	return Measure{Column: column, As: as, Reducer: ReduceMax, Precision: NoRounding}
}

// AggregateSpec описывает группировку таблицы
type AggregateSpec struct {
	Name     string
	Keys     []string
	Measures []Measure
}

// AggregateStats содержит диагностику агрегации
type AggregateStats struct {
	Groups int

	// Непустые значения, которые не удалось привести к числу
	NonNumeric int

	// Группы, у которых хотя бы одна мера осталась пустой
	EmptyGroups int
}

type group struct {
	key    models.Row
	values [][]float64
	counts []int
	maxes  []float64
}

// meanOf суммирует значения по возрастанию, поэтому среднее не зависит от порядка строк
func meanOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted))
}

// Aggregate группирует таблицу по ключам и сворачивает меры.
// Пустое значение ключа образует собственную группу; группа без числовых
// значений получает пустой результат, но не отбрасывается.
// Результат отсортирован по ключам и не зависит от порядка входных строк.
func Aggregate(table *models.Table, spec AggregateSpec) (*models.Table, AggregateStats, error) {
	var stats AggregateStats

	keyIdx, keyCols, err := resolveColumns(table, spec.Keys)
	if err != nil {
		return nil, stats, err
	}
	measureIdx := make([]int, len(spec.Measures))
	outCols := append([]models.Column(nil), keyCols...)
	for i, m := range spec.Measures {
		idx := table.ColumnIndex(m.Column)
		if idx < 0 {
			return nil, stats, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, m.Column)
		}
		measureIdx[i] = idx
		kind := models.KindFloat
		if m.Reducer == ReduceMax && table.Columns[idx].Kind == models.KindInt {
			kind = models.KindInt
		}
		name := m.As
		if name == "" {
			name = m.Column
		}
		outCols = append(outCols, models.Column{Name: name, Kind: kind})
	}

	groups := make(map[string]*group)
	for _, row := range table.Rows {
		key := make(models.Row, len(keyIdx))
		for i, idx := range keyIdx {
			key[i] = row[idx]
		}
		id := encodeKey(key)
		g, ok := groups[id]
		if !ok {
			g = &group{
				key:    key,
				values: make([][]float64, len(spec.Measures)),
				counts: make([]int, len(spec.Measures)),
				maxes:  make([]float64, len(spec.Measures)),
			}
			groups[id] = g
		}

		for i, idx := range measureIdx {
			raw := row[idx]
			if raw == nil {
				continue
			}
			v, ok := models.AsFloat(raw)
			if !ok || math.IsInf(v, 0) {
				stats.NonNumeric++
				continue
			}
			if g.counts[i] == 0 || v > g.maxes[i] {
				g.maxes[i] = v
			}
			g.values[i] = append(g.values[i], v)
			g.counts[i]++
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return compareRows(ordered[i].key, ordered[j].key) < 0
	})

	name := spec.Name
	if name == "" {
		name = table.Name
	}
	out := models.NewTable(name, outCols...)
	for _, g := range ordered {
		row := append(models.Row(nil), g.key...)
		empty := false
		for i, m := range spec.Measures {
			if g.counts[i] == 0 {
				row = append(row, nil)
				empty = true
				continue
			}
			var v float64
			switch m.Reducer {
			case ReduceMax:
				v = g.maxes[i]
			default:
				v = meanOf(g.values[i])
			}
			v = Round(v, m.Precision)
			if outCols[len(keyCols)+i].Kind == models.KindInt {
				row = append(row, int64(v))
			} else {
				row = append(row, v)
			}
		}
		if empty {
			stats.EmptyGroups++
		}
		out.Rows = append(out.Rows, row)
	}
	stats.Groups = len(out.Rows)
	return out, stats, nil
}

// PivotColumn задает значение колонки разворота и имя результирующей колонки
type PivotColumn struct {
	Key  string
	Name string
}

// Pivot разворачивает значения pivotColumn в колонки в объявленном порядке.
// Одна строка на ключ index; отсутствующие ячейки пустые.
// Значения pivotColumn, не объявленные в columns, игнорируются.
func Pivot(table *models.Table, index []string, pivotColumn, valueColumn string, columns []PivotColumn) (*models.Table, error) {
	indexIdx, indexCols, err := resolveColumns(table, index)
	if err != nil {
		return nil, err
	}
	pivotIdx := table.ColumnIndex(pivotColumn)
	if pivotIdx < 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, pivotColumn)
	}
	valueIdx := table.ColumnIndex(valueColumn)
	if valueIdx < 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, valueColumn)
	}

	position := make(map[string]int, len(columns))
	outCols := append([]models.Column(nil), indexCols...)
	for i, c := range columns {
		position[c.Key] = len(indexCols) + i
		outCols = append(outCols, models.Column{Name: c.Name, Kind: table.Columns[valueIdx].Kind})
	}

	rows := make(map[string]models.Row)
	filled := make(map[string]map[int]bool)
	for _, row := range table.Rows {
		pivotKey, ok := row[pivotIdx].(string)
		if !ok {
			continue
		}
		pos, declared := position[pivotKey]
		if !declared {
			continue
		}

		key := make(models.Row, len(indexIdx))
		for i, idx := range indexIdx {
			key[i] = row[idx]
		}
		id := encodeKey(key)
		out, ok := rows[id]
		if !ok {
			out = make(models.Row, len(outCols))
			copy(out, key)
			rows[id] = out
			filled[id] = make(map[int]bool)
		}
		if filled[id][pos] {
			return nil, fmt.Errorf("%w: %s для %v/%s", ErrDuplicateKey, table.Name, key, pivotKey)
		}
		filled[id][pos] = true
		out[pos] = row[valueIdx]
	}

	ordered := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		ordered = append(ordered, row)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return compareRows(ordered[i][:len(indexIdx)], ordered[j][:len(indexIdx)]) < 0
	})

	out := models.NewTable(table.Name, outCols...)
	out.Rows = ordered
	return out, nil
}

// Round округляет значение до precision знаков; NoRounding оставляет как есть
func Round(v float64, precision int) float64 {
	if precision < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	pow := math.Pow(10, float64(precision))
	return math.Round(v*pow) / pow
}

// encodeKey строит однозначное строковое представление кортежа ключей
func encodeKey(key models.Row) string {
	var b strings.Builder
	for i, v := range key {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		if v == nil {
			b.WriteString("\x00nil")
			continue
		}
		fmt.Fprintf(&b, "%T:%v", v, v)
	}
	return b.String()
}

// compareRows сравнивает кортежи ключей; пустые значения сортируются последними
func compareRows(a, b models.Row) int {
	for i := range a {
		if c := compareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	af, aNum := numericKey(a)
	bf, bNum := numericKey(b)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func numericKey(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case int:
		return float64(val), true
	case float64:
		return val, true
	}
	return 0, false
}
