//go:build !duckdb_arrow

package frame

import (
	"context"
	"database/sql"
)

// QueryDuckDB needs the duckdb_arrow build tag; without it every call
// fails with ErrArrowUnavailable.
func QueryDuckDB(context.Context, *sql.Conn, string, ...any) (*Record, error) {
	return nil, ErrArrowUnavailable
}
