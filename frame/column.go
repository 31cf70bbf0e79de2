package frame

import (
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Kind classifies a column by how its values compare.
type Kind int

const (
	KindUnsupported Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindTemporal
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTemporal:
		return "temporal"
	}
	return "unsupported"
}

// IsNumeric returns true for integer and floating point kinds.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindUint || k == KindFloat
}

// TimestampLayout is used when temporal values are formatted as strings.
const TimestampLayout = "2006-01-02 15:04:05"

// Column is a typed, read-only view of one dataset column.
// Accessors must only be called for the column's Kind; the others return
// zero values.
type Column struct {
	name string
	arr  arrow.Array
	kind Kind

	intAt   func(i int) int64
	uintAt  func(i int) uint64
	floatAt func(i int) float64
	strAt   func(i int) string
	boolAt  func(i int) bool
	timeAt  func(i int) time.Time

	dateOnly bool
}

// NewColumn wraps arr. The array is not retained.
func NewColumn(name string, arr arrow.Array) Column {
	c := Column{name: name, arr: arr}

	switch a := arr.(type) {
	case *array.Int8:
		c.kind, c.intAt = KindInt, func(i int) int64 { return int64(a.Value(i)) }
	case *array.Int16:
		c.kind, c.intAt = KindInt, func(i int) int64 { return int64(a.Value(i)) }
	case *array.Int32:
		c.kind, c.intAt = KindInt, func(i int) int64 { return int64(a.Value(i)) }
	case *array.Int64:
		c.kind, c.intAt = KindInt, a.Value
	case *array.Uint8:
		c.kind, c.uintAt = KindUint, func(i int) uint64 { return uint64(a.Value(i)) }
	case *array.Uint16:
		c.kind, c.uintAt = KindUint, func(i int) uint64 { return uint64(a.Value(i)) }
	case *array.Uint32:
		c.kind, c.uintAt = KindUint, func(i int) uint64 { return uint64(a.Value(i)) }
	case *array.Uint64:
		c.kind, c.uintAt = KindUint, a.Value
	case *array.Float32:
		c.kind, c.floatAt = KindFloat, func(i int) float64 { return float64(a.Value(i)) }
	case *array.Float64:
		c.kind, c.floatAt = KindFloat, a.Value
	case *array.String:
		c.kind, c.strAt = KindString, a.Value
	case *array.LargeString:
		c.kind, c.strAt = KindString, a.Value
	case *array.Boolean:
		c.kind, c.boolAt = KindBool, a.Value
	case *array.Date32:
		c.kind, c.dateOnly = KindTemporal, true
		c.timeAt = func(i int) time.Time { return a.Value(i).ToTime() }
	case *array.Date64:
		c.kind, c.dateOnly = KindTemporal, true
		c.timeAt = func(i int) time.Time { return a.Value(i).ToTime() }
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		c.kind = KindTemporal
		c.timeAt = func(i int) time.Time { return a.Value(i).ToTime(unit) }
	}

	switch c.kind {
	case KindInt:
		c.floatAt = func(i int) float64 { return float64(c.intAt(i)) }
	case KindUint:
		c.floatAt = func(i int) float64 { return float64(c.uintAt(i)) }
	}
	return c
}

// Name returns the column name.
func (c Column) Name() string { return c.name }

// Len returns the number of rows.
func (c Column) Len() int { return c.arr.Len() }

// Kind returns the comparison kind of the column.
func (c Column) Kind() Kind { return c.kind }

// DataType returns the Arrow type of the column.
func (c Column) DataType() arrow.DataType { return c.arr.DataType() }

// Array returns the underlying Arrow array.
func (c Column) Array() arrow.Array { return c.arr }

// IsNull reports whether row i holds no comparable value: a null, or NaN
// in a floating point column.
func (c Column) IsNull(i int) bool {
	if c.arr.IsNull(i) {
		return true
	}
	return c.kind == KindFloat && math.IsNaN(c.floatAt(i))
}

// Int returns row i of an integer column.
func (c Column) Int(i int) int64 {
	if c.intAt == nil {
		return 0
	}
	return c.intAt(i)
}

// Uint returns row i of an unsigned integer column.
func (c Column) Uint(i int) uint64 {
	if c.uintAt == nil {
		return 0
	}
	return c.uintAt(i)
}

// Float returns row i of any numeric column as float64.
func (c Column) Float(i int) float64 {
	if c.floatAt == nil {
		return 0
	}
	return c.floatAt(i)
}

// Str returns row i of a string column.
func (c Column) Str(i int) string {
	if c.strAt == nil {
		return ""
	}
	return c.strAt(i)
}

// Bool returns row i of a boolean column.
func (c Column) Bool(i int) bool {
	if c.boolAt == nil {
		return false
	}
	return c.boolAt(i)
}

// Time returns row i of a temporal column in UTC.
func (c Column) Time(i int) time.Time {
	if c.timeAt == nil {
		return time.Time{}
	}
	return c.timeAt(i)
}

// Format returns row i coerced to a string. Dates use YYYY-MM-DD and
// timestamps TimestampLayout; other unsupported types use Arrow's
// ValueStr.
func (c Column) Format(i int) string {
	switch c.kind {
	case KindString:
		return c.strAt(i)
	case KindInt:
		return strconv.FormatInt(c.intAt(i), 10)
	case KindUint:
		return strconv.FormatUint(c.uintAt(i), 10)
	case KindFloat:
		return strconv.FormatFloat(c.floatAt(i), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(c.boolAt(i))
	case KindTemporal:
		if c.dateOnly {
			return c.timeAt(i).Format("2006-01-02")
		}
		return c.timeAt(i).Format(TimestampLayout)
	}
	return c.arr.ValueStr(i)
}
