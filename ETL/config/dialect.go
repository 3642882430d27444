package config

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect описывает различия SQL между поддерживаемыми драйверами
type Dialect struct {
	Driver string
}

// Поддерживаемые драйверы целевого хранилища
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DialectFor возвращает диалект для драйвера
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
		return Dialect{Driver: driver}, nil
	default:
		return Dialect{}, fmt.Errorf("неподдерживаемый драйвер базы данных: %q", driver)
	}
}

// Rebind заменяет плейсхолдеры "?" в запросе на плейсхолдеры диалекта
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(d.Driver), query)
}

// QuoteIdent экранирует имя таблицы или колонки
func (d Dialect) QuoteIdent(name string) string {
	if d.Driver == DriverMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// UsesSavepoints сообщает, прерывает ли ошибка оператора всю транзакцию.
// В PostgreSQL после ошибки транзакция непригодна, поэтому каждая вставка
// выполняется под SAVEPOINT.
func (d Dialect) UsesSavepoints() bool {
	return d.Driver == DriverPostgres
}

// ColumnType возвращает тип колонки для DDL
func (d Dialect) ColumnType(kind string) string {
	switch kind {
	case "int":
		if d.Driver == DriverSQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case "float":
		switch d.Driver {
		case DriverPostgres:
			return "DOUBLE PRECISION"
		case DriverSQLite:
			return "REAL"
		default:
			return "DOUBLE"
		}
	case "timestamp":
		if d.Driver == DriverMySQL {
			return "DATETIME(6)"
		}
		return "TIMESTAMP"
	default:
		if d.Driver == DriverSQLite {
			return "TEXT"
		}
		return "VARCHAR(255)"
	}
}
