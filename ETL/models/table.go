package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ColumnKind описывает тип значений колонки таблицы
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindInt
	KindFloat
)

// String возвращает название типа колонки
func (k ColumnKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column описывает колонку таблицы
type Column struct {
	Name string
	Kind ColumnKind
}

// Row - строка таблицы; значения ячеек: string, int64, float64 или nil (нет данных)
type Row []any

// Table - табличный артефакт с объявленной схемой колонок.
// Используется для агрегированных и объединённых таблиц.
type Table struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// NewTable создает пустую таблицу с заданными колонками
func NewTable(name string, columns ...Column) *Table {
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}
}

// ColumnIndex возвращает индекс колонки по имени или -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column возвращает описание колонки по имени
func (t *Table) Column(name string) (Column, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return Column{}, false
	}
	return t.Columns[idx], true
}

// ColumnNames возвращает имена колонок в объявленном порядке
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// AddRow добавляет строку; количество значений должно совпадать с количеством колонок
func (t *Table) AddRow(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("таблица %s: ожидалось %d значений, получено %d", t.Name, len(t.Columns), len(values))
	}
	row := make(Row, len(values))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	return nil
}

// Value возвращает значение ячейки по индексу строки и имени колонки
func (t *Table) Value(rowIdx int, column string) any {
	idx := t.ColumnIndex(column)
	if idx < 0 || rowIdx < 0 || rowIdx >= len(t.Rows) {
		return nil
	}
	return t.Rows[rowIdx][idx]
}

// Len возвращает количество строк
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Clone возвращает копию таблицы под новым именем
func (t *Table) Clone(name string) *Table {
	clone := NewTable(name, t.Columns...)
	clone.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		row := make(Row, len(r))
		copy(row, r)
		clone.Rows[i] = row
	}
	return clone
}

// AsFloat приводит значение ячейки к числу.
// Строки разбираются через strconv; nil, NaN и нечисловые значения дают false.
func AsFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int64:
		f = float64(val)
	case int:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// FloatOrNil переводит указатель в значение ячейки
func FloatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// IntOrNil переводит указатель в значение ячейки
func IntOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

// StringOrNil переводит указатель в значение ячейки
func StringOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// OutputTable - таблица, подготовленная для загрузки в целевое хранилище
type OutputTable struct {
	Table       *Table
	Destination string

	// Колонки, которые в хранилище объявлены как числовые и обязательные:
	// строки с пустыми или некорректными значениями в них отбрасываются до загрузки
	RequiredNumeric []string

	// Точность округления числовых колонок перед загрузкой (-1 - без округления)
	Precision int
}
