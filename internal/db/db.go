package db

import (
	"context"
	"database/sql"
	"fmt"

	// sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// Open opens the sqlite database at path, ":memory:" included, and applies the pragmas
// the property store relies on.
func Open(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	// one connection keeps an in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA journal_mode = WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return sqlDB, nil
}

// Querier wraps a *sql.DB connection and provides helper methods for common query patterns.
type Querier struct {
	db *sql.DB
}

// NewQuerier creates a new Querier instance.
func NewQuerier(db *sql.DB) *Querier {
	return &Querier{db: db}
}

// Exec executes a statement that returns no rows.
func (q *Querier) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	result, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}
	return result, nil
}

// QueryRow executes a query that is expected to return a single row.
// It takes the query string, a function to scan the row, and optional arguments.
// sql.ErrNoRows is returned unwrapped so callers can compare against it.
func (q *Querier) QueryRow(ctx context.Context, query string, scanFunc func(*sql.Row) error, args ...interface{}) error {
	row := q.db.QueryRowContext(ctx, query, args...)
	if err := scanFunc(row); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("failed to scan row: %w", err)
	}
	return nil
}

// QueryRows executes a query that is expected to return multiple rows.
// The scanFunc will be called for each row returned by the query.
func (q *Querier) QueryRows(ctx context.Context, query string, scanFunc func(*sql.Rows) error, args ...interface{}) error {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scanFunc(rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}
