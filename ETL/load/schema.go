package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/LilVoxy/remotework_health_etl/ETL/config"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// CreateTableSQL формирует CREATE TABLE IF NOT EXISTS для выходной таблицы.
// Обязательные числовые колонки объявляются NOT NULL.
func CreateTableSQL(dialect config.Dialect, out models.OutputTable) string {
	required := make(map[string]bool, len(out.RequiredNumeric))
	for _, c := range out.RequiredNumeric {
		required[c] = true
	}

	defs := make([]string, 0, len(out.Table.Columns))
	for _, c := range out.Table.Columns {
		def := dialect.QuoteIdent(c.Name) + " " + dialect.ColumnType(c.Kind.String())
		if required[c.Name] {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		dialect.QuoteIdent(out.Destination), strings.Join(defs, ",\n\t"))
}

// EnsureTables создает отсутствующие выходные таблицы; существующие не изменяются
func EnsureTables(ctx context.Context, db *sql.DB, dialect config.Dialect, outputs []models.OutputTable) error {
	for _, out := range outputs {
		if out.Table == nil {
			continue
		}
		if _, err := db.ExecContext(ctx, CreateTableSQL(dialect, out)); err != nil {
			return fmt.Errorf("ошибка при создании таблицы %s: %w", out.Destination, err)
		}
	}
	return nil
}
