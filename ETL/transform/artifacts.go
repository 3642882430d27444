package transform

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// WriteCSV записывает таблицу в CSV: заголовок из имён колонок, пустая ячейка для nil
func WriteCSV(w io.Writer, table *models.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(table.ColumnNames()); err != nil {
		return err
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// SaveArtifacts сохраняет таблицы в каталог как <имя>.csv
func SaveArtifacts(dir string, tables []*models.Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ошибка при создании каталога артефактов: %w", err)
	}

	for _, table := range tables {
		if table == nil {
			continue
		}
		path := filepath.Join(dir, table.Name+".csv")
		if err := writeCSVFile(path, table); err != nil {
			return fmt.Errorf("ошибка при сохранении артефакта %s: %w", table.Name, err)
		}
	}
	return nil
}

func writeCSVFile(path string, table *models.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(file, table); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
