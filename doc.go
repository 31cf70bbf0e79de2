// Package rulefilter filters tabular datasets with JSON boolean rules.
//
// A rule combines leaf predicates with AND, OR and NOT:
//
//	["AND",
//	    {"key_to_compare": "Country", "comparison_operator": "equal_to", "value_to_compare": "United Kingdom"},
//	    {"key_to_compare": "Quantity", "comparison_operator": "greater_than", "value_to_compare": 40},
//	    ["NOT", {"key_to_compare": "InvoiceDate", "comparison_operator": "earlier_than", "value_to_compare": "LAST_30_DAYS"}]
//	]
//
// Evaluating a rule yields one boolean per row; filtering keeps the rows
// where it is true, in their original order and with every column.
//
// # Quick Start
//
//	f, _ := os.Open("sales.csv")
//	ds, err := frame.ReadCSV(f, frame.WithColumnTypes(map[string]arrow.DataType{
//	    "InvoiceDate": &arrow.TimestampType{Unit: arrow.Second},
//	}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ds.Release()
//
//	out, err := rulefilter.Filter(ctx, ds, ruleJSON)
//	if err != nil {
//	    log.Fatal(err) // *rule.Error, see errors.Is(err, rule.ErrReference)
//	}
//	defer out.Release()
//
// # Configuration
//
// New accepts a Config with an optional Arrow allocator, slog logger, log
// level, clock for date labels and the implicit AND parse mode:
//
//	f := rulefilter.New(rulefilter.Config{
//	    Logger: slog.Default(),
//	    Now:    func() time.Time { return reportDate },
//	})
//
// # Operators
//
// equal_to, greater_than, greater_equal_than, less_than, less_equal_than,
// is_in, contains, earlier_than, later_than. Null and NaN values never
// satisfy a predicate, so NOT of a predicate selects them.
//
// # Date Labels
//
// TODAY, LAST_<N>_DAYS, NEXT_<N>_DAYS and YYYY-MM-DD. Labels resolve to a
// calendar date at midnight UTC when the rule is evaluated.
//
// # Errors
//
// Every failure aborts the call with a *rule.Error classified as
// structural, reference, operator or literal. Status maps them to gRPC
// status codes.
//
// # SQL Pushdown
//
// rule.DuckDBEncoder renders a rule as a DuckDB WHERE clause with the same
// semantics, and frame.QueryDuckDB loads query results as datasets.
// QueryDuckDB reads through the DuckDB driver's Arrow interface, which is
// only compiled with the duckdb_arrow build tag:
//
//	go build -tags duckdb_arrow ./...
//
// Without the tag it returns frame.ErrArrowUnavailable.
//
// # Memory Management
//
// Datasets are reference counted Arrow records. Release every dataset
// returned by a loader or by Filter.
package rulefilter
