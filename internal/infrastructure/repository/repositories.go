package repository

import (
	"context"
	"database/sql"
)

// queryer abstracts *sql.DB and *sql.Tx so repositories can run standalone
// or inside a unit of work.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner abstracts sql.Row and sql.Rows for the scan helpers
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// oneRowAffected reports whether a conditional write matched its row
func oneRowAffected(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}
