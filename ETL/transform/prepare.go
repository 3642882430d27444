package transform

import (
	"fmt"
	"math"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// PrepareStats содержит итоги подготовки таблицы к загрузке
type PrepareStats struct {
	Rows    int
	Dropped int
}

// PrepareForLoad готовит выходную таблицу к загрузке: отбрасывает строки,
// в которых обязательные числовые колонки пусты, нечисловые, NaN или ±Inf,
// и округляет вещественные колонки до заданной точности.
func PrepareForLoad(out models.OutputTable) (models.OutputTable, PrepareStats, error) {
	var stats PrepareStats
	if out.Table == nil {
		return out, stats, fmt.Errorf("%w: таблица %s не сформирована", models.ErrMissingPrerequisite, out.Destination)
	}

	required, _, err := resolveColumns(out.Table, out.RequiredNumeric)
	if err != nil {
		return out, stats, err
	}

	prepared := models.NewTable(out.Table.Name, out.Table.Columns...)
	for _, row := range out.Table.Rows {
		valid := true
		for _, idx := range required {
			v, ok := models.AsFloat(row[idx])
			if !ok || math.IsInf(v, 0) {
				valid = false
				break
			}
		}
		if !valid {
			stats.Dropped++
			continue
		}

		cleaned := make(models.Row, len(row))
		for i, v := range row {
			cleaned[i] = v
			if f, ok := v.(float64); ok {
				if math.IsNaN(f) || math.IsInf(f, 0) {
					cleaned[i] = nil
					continue
				}
				if out.Precision >= 0 {
					cleaned[i] = Round(f, out.Precision)
				}
			}
		}
		prepared.Rows = append(prepared.Rows, cleaned)
	}

	stats.Rows = len(prepared.Rows)
	out.Table = prepared
	return out, stats, nil
}
