package transform

import (
	"fmt"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// Filter возвращает строки, у которых значение колонки входит в набор values
func Filter(table *models.Table, column string, values ...string) (*models.Table, error) {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, column)
	}
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}

	out := models.NewTable(table.Name, table.Columns...)
	for _, row := range table.Rows {
		if s, ok := row[idx].(string); ok && allowed[s] {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// DropNil удаляет строки с пустым значением хотя бы в одной из колонок
func DropNil(table *models.Table, columns ...string) (*models.Table, int, error) {
	idxs, _, err := resolveColumns(table, columns)
	if err != nil {
		return nil, 0, err
	}

	out := models.NewTable(table.Name, table.Columns...)
	dropped := 0
	for _, row := range table.Rows {
		keep := true
		for _, idx := range idxs {
			if row[idx] == nil {
				keep = false
				break
			}
		}
		if !keep {
			dropped++
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, dropped, nil
}

// FillNil заменяет пустые значения колонки на value
func FillNil(table *models.Table, column string, value any) (*models.Table, error) {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, column)
	}
	out := table.Clone(table.Name)
	for _, row := range out.Rows {
		if row[idx] == nil {
			row[idx] = value
		}
	}
	return out, nil
}

func resolveColumns(table *models.Table, names []string) ([]int, []models.Column, error) {
	if table == nil {
		return nil, nil, fmt.Errorf("%w: таблица не задана", models.ErrMissingPrerequisite)
	}
	idxs := make([]int, len(names))
	cols := make([]models.Column, len(names))
	for i, name := range names {
		idx := table.ColumnIndex(name)
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, name)
		}
		idxs[i] = idx
		cols[i] = table.Columns[idx]
	}
	return idxs, cols, nil
}

// Select возвращает таблицу из указанных колонок в заданном порядке
func Select(table *models.Table, name string, columns ...string) (*models.Table, error) {
	idxs, cols, err := resolveColumns(table, columns)
	if err != nil {
		return nil, err
	}
	out := models.NewTable(name, cols...)
	out.Rows = make([]models.Row, 0, len(table.Rows))
	for _, row := range table.Rows {
		projected := make(models.Row, len(idxs))
		for i, idx := range idxs {
			projected[i] = row[idx]
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}

// Rename переименовывает колонку таблицы на месте
func Rename(table *models.Table, from, to string) error {
	idx := table.ColumnIndex(from)
	if idx < 0 {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table.Name, from)
	}
	table.Columns[idx].Name = to
	return nil
}
