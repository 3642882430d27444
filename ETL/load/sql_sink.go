package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/LilVoxy/remotework_health_etl/ETL/config"
	"github.com/LilVoxy/remotework_health_etl/ETL/models"
)

// SQLSink реализует Sink поверх одной транзакции database/sql
type SQLSink struct {
	tx      *sql.Tx
	dialect config.Dialect

	// Подготовленные однострочные INSERT по таблицам
	stmts map[string]*sql.Stmt
}

// NewSQLSink создает sink поверх открытой транзакции
func NewSQLSink(tx *sql.Tx, dialect config.Dialect) *SQLSink {
	return &SQLSink{
		tx:      tx,
		dialect: dialect,
		stmts:   make(map[string]*sql.Stmt),
	}
}

// InsertRows вставляет строки одним оператором INSERT.
// В PostgreSQL оператор выполняется под SAVEPOINT, чтобы ошибка не прерывала транзакцию.
func (s *SQLSink) InsertRows(ctx context.Context, table string, columns []string, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	args := make([]any, 0, len(rows)*len(columns))
	for _, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("ожидалось %d значений, получено %d", len(columns), len(row))
		}
		args = append(args, row...)
	}

	if !s.dialect.UsesSavepoints() {
		return s.exec(ctx, table, columns, len(rows), args)
	}

	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT etl_row"); err != nil {
		return err
	}
	if err := s.exec(ctx, table, columns, len(rows), args); err != nil {
		if _, rbErr := s.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT etl_row"); rbErr != nil {
			return fmt.Errorf("%v; откат к точке сохранения: %w", err, rbErr)
		}
		return err
	}
	_, err := s.tx.ExecContext(ctx, "RELEASE SAVEPOINT etl_row")
	return err
}

func (s *SQLSink) exec(ctx context.Context, table string, columns []string, numRows int, args []any) error {
	if numRows == 1 {
		stmt, err := s.prepared(ctx, table, columns)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, args...)
		return err
	}
	_, err := s.tx.ExecContext(ctx, s.insertQuery(table, columns, numRows), args...)
	return err
}

func (s *SQLSink) prepared(ctx context.Context, table string, columns []string) (*sql.Stmt, error) {
	if stmt, ok := s.stmts[table]; ok {
		return stmt, nil
	}
	stmt, err := s.tx.PrepareContext(ctx, s.insertQuery(table, columns, 1))
	if err != nil {
		return nil, err
	}
	s.stmts[table] = stmt
	return stmt, nil
}

func (s *SQLSink) insertQuery(table string, columns []string, numRows int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = s.dialect.QuoteIdent(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	values := strings.TrimSuffix(strings.Repeat(tuple+",", numRows), ",")

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		s.dialect.QuoteIdent(table), strings.Join(quoted, ", "), values)
	return s.dialect.Rebind(query)
}

func (s *SQLSink) closeStatements() {
	for table, stmt := range s.stmts {
		stmt.Close()
		delete(s.stmts, table)
	}
}

// Commit фиксирует транзакцию
func (s *SQLSink) Commit() error {
	s.closeStatements()
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}
	return nil
}

// Rollback откатывает транзакцию
func (s *SQLSink) Rollback() error {
	s.closeStatements()
	if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("ошибка при откате транзакции: %w", err)
	}
	return nil
}
