package frame

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

// ErrArrowUnavailable is returned by QueryDuckDB in builds without the
// duckdb_arrow tag, where the DuckDB driver has no Arrow interface.
var ErrArrowUnavailable = errors.New("duckdb arrow interface not available: build with -tags duckdb_arrow")

// OpenDuckDB opens a DuckDB database. An empty path opens an in-memory
// database.
func OpenDuckDB(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	return db, nil
}
