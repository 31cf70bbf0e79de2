//go:build duckdb_arrow

package rulefilter

import (
	"context"
	"database/sql"
	"slices"
	"testing"

	"github.com/hugr-lab/rulefilter/frame"
	"github.com/hugr-lab/rulefilter/rule"
)

const salesDDL = `CREATE TABLE sales (
	InvoiceNo BIGINT,
	Description VARCHAR,
	Quantity BIGINT,
	UnitPrice DOUBLE,
	Country VARCHAR,
	InvoiceDate TIMESTAMP,
	Shipped DATE
)`

const salesRows = `INSERT INTO sales VALUES
	(1, 'WHITE HANGING HEART', 6, 2.55, 'United Kingdom', '2024-02-01 08:26:00', '2024-02-03'),
	(2, 'HAND WARMER UNION JACK', 48, 1.85, 'France', '2024-03-10 09:00:00', '2024-03-16'),
	(3, 'ASSORTED COLOUR BIRD', NULL, 4.25, 'United Kingdom', '2024-03-14 10:30:00', NULL),
	(4, 'RED WOOLLY HOTTIE', 32, 3.39, 'Germany', '2024-03-01 12:00:00', '2024-03-20'),
	(5, 'KNITTED UNION FLAG', 96, NULL, 'United Kingdom', NULL, '2024-03-15'),
	(6, 'GLASS STAR FROSTED', 12, 4.25, NULL, '2024-01-20 16:45:00', '2024-01-22')`

func openSalesDB(t *testing.T) (*sql.DB, *sql.Conn) {
	t.Helper()
	ctx := context.Background()

	db, err := frame.OpenDuckDB("")
	if err != nil {
		t.Fatalf("OpenDuckDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	for _, stmt := range []string{salesDDL, salesRows} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}
	return db, conn
}

func queryIDs(t *testing.T, conn *sql.Conn, where string) []int64 {
	t.Helper()
	rows, err := conn.QueryContext(context.Background(), "SELECT InvoiceNo FROM sales WHERE "+where+" ORDER BY InvoiceNo")
	if err != nil {
		t.Fatalf("query failed: %v\n%s", err, where)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows failed: %v", err)
	}
	return ids
}

// TestPushdownMatchesEvaluation checks that the SQL rendering of a rule
// selects the same rows as in-memory evaluation over the same data.
func TestPushdownMatchesEvaluation(t *testing.T) {
	_, conn := openSalesDB(t)
	ctx := context.Background()

	ds, err := frame.QueryDuckDB(ctx, conn, "SELECT * FROM sales ORDER BY InvoiceNo")
	if err != nil {
		t.Fatalf("QueryDuckDB failed: %v", err)
	}
	defer ds.Release()

	f := newTestFilterer()
	enc := rule.NewDuckDBEncoder(&rule.EncoderOptions{
		Now:         fixedNow,
		DateColumns: []string{"InvoiceDate", "Shipped"},
	})

	rules := []string{
		leaf("Country", "equal_to", `"United Kingdom"`),
		`["NOT", ` + leaf("Country", "equal_to", `"United Kingdom"`) + `]`,
		`["NOT", ` + leaf("Quantity", "greater_than", "10") + `]`,
		`["OR", ` + leaf("UnitPrice", "greater_equal_than", "4.25") + `, ` + leaf("Country", "is_in", `["France", "Germany"]`) + `]`,
		`["AND", ` + leaf("Description", "contains", `"UNION"`) + `, ["NOT", ` + leaf("InvoiceDate", "earlier_than", `"LAST_30_DAYS"`) + `]]`,
		leaf("Shipped", "later_than", `"TODAY"`),
		leaf("Shipped", "equal_to", `"TODAY"`),
		leaf("Shipped", "less_equal_than", `"NEXT_1_DAYS"`),
		leaf("Country", "less_than", `"H"`),
		`["NOT", ` + leaf("Quantity", "is_in", "[]") + `]`,
		leaf("Quantity", "is_in", "[6, 96, 7]"),
	}

	for _, expr := range rules {
		t.Run(expr, func(t *testing.T) {
			n := rule.MustParse(expr)

			where, err := enc.Encode(n)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			want := queryIDs(t, conn, where)
			got := filterIDs(t, f, ds, expr)

			if !slices.Equal(got, want) {
				t.Errorf("in-memory %v, duckdb %v\nwhere: %s", got, want, where)
			}
		})
	}
}
