//go:build duckdb_arrow

package frame

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/rulefilter/internal/serialize"
)

// QueryDuckDB runs query on conn through DuckDB's Arrow interface and
// collects the result into a single record.
func QueryDuckDB(ctx context.Context, conn *sql.Conn, query string, args ...any) (*Record, error) {
	var ar *duckdb.Arrow
	err := conn.Raw(func(dc any) error {
		c, ok := dc.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", dc)
		}
		var err error
		ar, err = duckdb.NewArrowFromConn(c)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get arrow interface: %w", err)
	}

	reader, err := ar.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer reader.Release()

	var batches []arrow.RecordBatch
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		batches = append(batches, rec)
	}
	if err := reader.Err(); err != nil {
		for _, b := range batches {
			b.Release()
		}
		return nil, fmt.Errorf("failed to read query result: %w", err)
	}

	rec, err := serialize.Concat(reader.Schema(), batches, nil)
	if err != nil {
		return nil, err
	}
	return newOwnedRecord(rec, nil), nil
}
