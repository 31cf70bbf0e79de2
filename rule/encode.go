package rule

import (
	"strings"
	"time"
)

// Encoder converts a rule tree to a query-language condition.
// Implementations handle dialect-specific syntax.
type Encoder interface {
	// Encode converts a tree to the body of a WHERE clause, without the
	// "WHERE" keyword. Rule errors are reported as *Error exactly as
	// evaluation would report them.
	Encode(n Node) (string, error)
}

// EncoderOptions configures encoding behavior.
type EncoderOptions struct {
	// ColumnMapping maps rule keys to target column names.
	// Keys not in the map use their original names.
	ColumnMapping map[string]string

	// DateColumns lists rule keys whose columns hold dates or timestamps.
	// String literals compared against them are resolved as date labels
	// for every operator, not only earlier_than/later_than.
	DateColumns []string

	// Now returns the current time for date label resolution.
	// OPTIONAL: Uses time.Now if nil.
	Now func() time.Time
}

// escapeString escapes single quotes in a string value for SQL.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// quoteLiteral returns a SQL string literal with proper escaping.
func quoteLiteral(s string) string {
	return "'" + escapeString(s) + "'"
}

// quoteIdentifier always double-quotes: rule keys come from data files and
// often contain spaces or mixed case, which DuckDB folds when unquoted.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
