package rule

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hugr-lab/rulefilter/internal/datelabel"
)

// DuckDBEncoder encodes rule trees to DuckDB SQL syntax.
//
// Every leaf is wrapped in COALESCE(..., FALSE) so rows with NULL values
// never match a leaf and always match its negation, the same as in-memory
// evaluation.
type DuckDBEncoder struct {
	opts        *EncoderOptions
	dateColumns map[string]bool
}

// NewDuckDBEncoder creates a new DuckDB SQL encoder.
// If opts is nil, default options are used.
func NewDuckDBEncoder(opts *EncoderOptions) *DuckDBEncoder {
	if opts == nil {
		opts = &EncoderOptions{}
	}
	dc := make(map[string]bool, len(opts.DateColumns))
	for _, c := range opts.DateColumns {
		dc[c] = true
	}
	return &DuckDBEncoder{opts: opts, dateColumns: dc}
}

// Encode converts a tree to a WHERE clause body.
func (e *DuckDBEncoder) Encode(n Node) (string, error) {
	if err := Validate(n); err != nil {
		return "", err
	}
	now := time.Now
	if e.opts.Now != nil {
		now = e.opts.Now
	}
	return e.encode(n, "$", now)
}

// Query returns a complete SELECT statement over table filtered by n.
func (e *DuckDBEncoder) Query(table string, n Node) (string, error) {
	where, err := e.Encode(n)
	if err != nil {
		return "", err
	}
	return "SELECT * FROM " + quoteIdentifier(table) + " WHERE " + where, nil
}

func (e *DuckDBEncoder) encode(n Node, path string, now func() time.Time) (string, error) {
	switch node := n.(type) {
	case *Connective:
		return e.encodeConnective(node, path, now)
	case *Leaf:
		return e.encodeLeaf(node, path, now)
	}
	return "", structuralf(path, "unexpected node type %T", n)
}

func (e *DuckDBEncoder) encodeConnective(c *Connective, path string, now func() time.Time) (string, error) {
	parts := make([]string, 0, len(c.Children))
	for i, child := range c.Children {
		encoded, err := e.encode(child, childPath(path, i+1), now)
		if err != nil {
			return "", err
		}
		parts = append(parts, encoded)
	}

	switch c.Op {
	case Not:
		return "(NOT " + parts[0] + ")", nil
	case Or:
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	default:
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	}
}

func (e *DuckDBEncoder) encodeLeaf(l *Leaf, path string, now func() time.Time) (string, error) {
	if !l.Operator.Valid() {
		return "", LeafError(KindOperator, path, l, nil, "unsupported operator %q", string(l.Operator))
	}
	if l.Value == nil {
		return "", LeafError(KindLiteral, path, l, nil, "null literal")
	}

	col := e.column(l.Key)
	dates := l.Operator.IsDate() || e.dateColumns[l.Key]

	var cond string
	switch l.Operator {
	case OpIsIn:
		items, ok := l.Value.([]any)
		if !ok {
			return "", LeafError(KindLiteral, path, l, nil, "is_in requires a list literal, got %T", l.Value)
		}
		if len(items) == 0 {
			return "FALSE", nil
		}
		values := make([]string, 0, len(items))
		for _, item := range items {
			v, err := e.literal(l, item, dates, path, now)
			if err != nil {
				return "", err
			}
			values = append(values, v)
		}
		cond = col + " IN (" + strings.Join(values, ", ") + ")"

	case OpContains:
		s, ok := l.Value.(string)
		if !ok {
			return "", LeafError(KindLiteral, path, l, nil, "contains requires a string literal, got %T", l.Value)
		}
		cond = "contains(CAST(" + col + " AS VARCHAR), " + quoteLiteral(s) + ")"

	default:
		if _, ok := l.Value.([]any); ok {
			return "", LeafError(KindOperator, path, l, nil, "list literal requires is_in")
		}
		v, err := e.literal(l, l.Value, dates, path, now)
		if err != nil {
			return "", err
		}
		cond = col + " " + sqlOperator(l.Operator) + " " + v
	}

	return "COALESCE(" + cond + ", FALSE)", nil
}

// literal renders a scalar literal, resolving date labels when dates is set.
func (e *DuckDBEncoder) literal(l *Leaf, v any, dates bool, path string, now func() time.Time) (string, error) {
	if dates {
		s, ok := v.(string)
		if !ok && l.Operator.IsDate() {
			return "", LeafError(KindLiteral, path, l, nil, "date literal must be a string, got %T", v)
		}
		if !ok {
			return "", LeafError(KindOperator, path, l, nil, "cannot compare date column with %T", v)
		}
		d, err := datelabel.Resolve(s, now())
		if err != nil {
			return "", LeafError(KindLiteral, path, l, err, "invalid date literal")
		}
		return "DATE '" + d.Format(datelabel.ISOLayout) + "'", nil
	}

	switch x := v.(type) {
	case string:
		return quoteLiteral(x), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", LeafError(KindLiteral, path, l, nil, "non-finite number")
		}
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case nil:
		return "", LeafError(KindLiteral, path, l, nil, "null literal")
	}
	return "", LeafError(KindLiteral, path, l, nil, "unsupported literal type %T", v)
}

// column returns the SQL reference for a rule key.
func (e *DuckDBEncoder) column(key string) string {
	if mapped, ok := e.opts.ColumnMapping[key]; ok {
		return quoteIdentifier(mapped)
	}
	return quoteIdentifier(key)
}

func sqlOperator(op Operator) string {
	switch op {
	case OpEqualTo:
		return "="
	case OpGreaterThan, OpLaterThan:
		return ">"
	case OpGreaterEqualThan:
		return ">="
	case OpLessThan, OpEarlierThan:
		return "<"
	case OpLessEqualThan:
		return "<="
	}
	return ""
}
