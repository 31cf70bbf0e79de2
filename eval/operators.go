package eval

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hugr-lab/rulefilter/frame"
	"github.com/hugr-lab/rulefilter/internal/datelabel"
	"github.com/hugr-lab/rulefilter/rule"
)

// rowMatch reports whether non-null row i satisfies a leaf.
type rowMatch func(i int) bool

// rowCompare orders row i against a resolved literal: -1, 0 or +1.
type rowCompare func(i int) int

// matcher builds the row test for one leaf, checking literal and column
// types once up front.
type matcher func(lc *leafContext) (rowMatch, error)

// operators is the dispatch table. Operators not listed here are rejected
// with an operator error.
var operators = map[rule.Operator]matcher{
	rule.OpEqualTo:          ordered(func(c int) bool { return c == 0 }),
	rule.OpGreaterThan:      ordered(func(c int) bool { return c > 0 }),
	rule.OpGreaterEqualThan: ordered(func(c int) bool { return c >= 0 }),
	rule.OpLessThan:         ordered(func(c int) bool { return c < 0 }),
	rule.OpLessEqualThan:    ordered(func(c int) bool { return c <= 0 }),
	rule.OpIsIn:             isIn,
	rule.OpContains:         contains,
	rule.OpEarlierThan:      dated(func(c int) bool { return c < 0 }),
	rule.OpLaterThan:        dated(func(c int) bool { return c > 0 }),
}

type leafContext struct {
	leaf *rule.Leaf
	path string
	col  frame.Column
	// now is read once per leaf.
	now time.Time
}

func (lc *leafContext) operatorErr(format string, args ...any) error {
	return rule.LeafError(rule.KindOperator, lc.path, lc.leaf, nil, format, args...)
}

func (lc *leafContext) literalErr(err error, format string, args ...any) error {
	return rule.LeafError(rule.KindLiteral, lc.path, lc.leaf, err, format, args...)
}

func ordered(test func(c int) bool) matcher {
	return func(lc *leafContext) (rowMatch, error) {
		if _, ok := lc.leaf.Value.([]any); ok {
			return nil, lc.operatorErr("list literal requires is_in")
		}
		compare, err := lc.compareTo(lc.leaf.Value)
		if err != nil {
			return nil, err
		}
		return func(i int) bool { return test(compare(i)) }, nil
	}
}

func isIn(lc *leafContext) (rowMatch, error) {
	items, ok := lc.leaf.Value.([]any)
	if !ok {
		return nil, lc.literalErr(nil, "is_in requires a list literal, got %T", lc.leaf.Value)
	}
	if len(items) == 0 {
		return func(int) bool { return false }, nil
	}

	for _, item := range items {
		switch item.(type) {
		case nil:
			return nil, lc.literalErr(nil, "null element in list literal")
		case []any, map[string]any:
			return nil, lc.literalErr(nil, "nested collection in list literal")
		}
	}

	if lc.col.Kind() == frame.KindString {
		set := make(map[string]struct{}, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, lc.operatorErr("cannot compare string column with %T", item)
			}
			set[s] = struct{}{}
		}
		return func(i int) bool {
			_, ok := set[lc.col.Str(i)]
			return ok
		}, nil
	}

	compares := make([]rowCompare, len(items))
	for j, item := range items {
		c, err := lc.compareTo(item)
		if err != nil {
			return nil, err
		}
		compares[j] = c
	}
	return func(i int) bool {
		for _, c := range compares {
			if c(i) == 0 {
				return true
			}
		}
		return false
	}, nil
}

func contains(lc *leafContext) (rowMatch, error) {
	s, ok := lc.leaf.Value.(string)
	if !ok {
		return nil, lc.literalErr(nil, "contains requires a string literal, got %T", lc.leaf.Value)
	}
	if lc.col.Kind() == frame.KindString {
		return func(i int) bool { return strings.Contains(lc.col.Str(i), s) }, nil
	}
	return func(i int) bool { return strings.Contains(lc.col.Format(i), s) }, nil
}

func dated(test func(c int) bool) matcher {
	return func(lc *leafContext) (rowMatch, error) {
		d, err := lc.resolveDate(lc.leaf.Value)
		if err != nil {
			return nil, err
		}

		switch lc.col.Kind() {
		case frame.KindTemporal:
			return func(i int) bool { return test(lc.col.Time(i).Compare(d)) }, nil
		case frame.KindString:
			times, err := parseDates(lc)
			if err != nil {
				return nil, err
			}
			return func(i int) bool { return test(times[i].Compare(d)) }, nil
		}
		return nil, lc.operatorErr("requires a date column, %s is %s", lc.col.Name(), lc.col.DataType())
	}
}

// rowDateLayouts are accepted for date values stored as strings.
var rowDateLayouts = []string{
	datelabel.ISOLayout,
	time.RFC3339,
	frame.TimestampLayout,
}

// parseDates parses every non-null row of a string column as a date.
func parseDates(lc *leafContext) ([]time.Time, error) {
	times := make([]time.Time, lc.col.Len())
	for i := range times {
		if lc.col.IsNull(i) {
			continue
		}
		s := lc.col.Str(i)
		parsed := false
		for _, layout := range rowDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				times[i], parsed = t.UTC(), true
				break
			}
		}
		if !parsed {
			return nil, lc.operatorErr("row %d value %q of column %s is not a date", i, s, lc.col.Name())
		}
	}
	return times, nil
}

func (lc *leafContext) resolveDate(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, lc.literalErr(nil, "date literal must be a string, got %T", v)
	}
	d, err := datelabel.Resolve(s, lc.now)
	if err != nil {
		return time.Time{}, lc.literalErr(err, "invalid date literal")
	}
	return d, nil
}

// compareTo coerces scalar literal v to the column's type and returns the
// row comparison against it.
func (lc *leafContext) compareTo(v any) (rowCompare, error) {
	col := lc.col

	switch col.Kind() {
	case frame.KindTemporal:
		if _, ok := v.(string); !ok {
			return nil, lc.operatorErr("cannot compare temporal column with %T", v)
		}
		d, err := lc.resolveDate(v)
		if err != nil {
			return nil, err
		}
		return func(i int) int { return col.Time(i).Compare(d) }, nil

	case frame.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, lc.operatorErr("cannot compare string column with %T", v)
		}
		return func(i int) int { return strings.Compare(col.Str(i), s) }, nil

	case frame.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, lc.operatorErr("cannot compare bool column with %T", v)
		}
		return func(i int) int { return compareBool(col.Bool(i), b) }, nil

	case frame.KindInt, frame.KindUint, frame.KindFloat:
		return lc.compareNumber(v)
	}

	return nil, lc.operatorErr("unsupported column type %s", col.DataType())
}

func (lc *leafContext) compareNumber(v any) (rowCompare, error) {
	col := lc.col

	if s, ok := v.(string); ok {
		n, err := parseNumber(s)
		if err != nil {
			return nil, lc.literalErr(err, "%q is not a number", s)
		}
		v = n
	}

	switch x := v.(type) {
	case int64:
		switch col.Kind() {
		case frame.KindInt:
			return func(i int) int { return cmp.Compare(col.Int(i), x) }, nil
		case frame.KindUint:
			if x < 0 {
				return func(int) int { return 1 }, nil
			}
			u := uint64(x)
			return func(i int) int { return cmp.Compare(col.Uint(i), u) }, nil
		}
		return func(i int) int { return -compareIntFloat(x, col.Float(i)) }, nil

	case float64:
		if math.IsNaN(x) {
			return nil, lc.literalErr(nil, "NaN literal")
		}
		switch col.Kind() {
		case frame.KindInt:
			return func(i int) int { return compareIntFloat(col.Int(i), x) }, nil
		case frame.KindUint:
			return func(i int) int { return compareUintFloat(col.Uint(i), x) }, nil
		}
		return func(i int) int { return cmp.Compare(col.Float(i), x) }, nil
	}

	return nil, lc.operatorErr("cannot compare %s column with %T", col.Kind(), v)
}

// parseNumber reads s as an integer when possible, otherwise as a float.
func parseNumber(s string) (any, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) {
		return nil, strconv.ErrSyntax
	}
	return f, nil
}

// compareIntFloat orders an integer against a float without rounding the
// integer to float64.
func compareIntFloat(n int64, x float64) int {
	switch {
	case x >= 0x1p63:
		return -1
	case x < -0x1p63:
		return 1
	}
	f := math.Floor(x)
	fi := int64(f)
	switch {
	case n < fi:
		return -1
	case n > fi:
		return 1
	case f == x:
		return 0
	}
	return -1
}

func compareUintFloat(n uint64, x float64) int {
	switch {
	case x < 0:
		return 1
	case x >= 0x1p64:
		return -1
	}
	f := math.Floor(x)
	fu := uint64(f)
	switch {
	case n < fu:
		return -1
	case n > fu:
		return 1
	case f == x:
		return 0
	}
	return -1
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case b:
		return -1
	}
	return 1
}
