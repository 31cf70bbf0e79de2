package eval

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/rulefilter/frame"
	"github.com/hugr-lab/rulefilter/rule"
)

func fixedNow() time.Time {
	return time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)
}

const ordersCSV = `Country,Quantity,Price,Paid,InvoiceDate,Shipped,Note
UK,10,2.5,true,2024-03-01 10:00:00,2024-03-02,gift
FR,50,1.25,false,2024-03-09 08:00:00,2024-03-10,
UK,41,,true,2024-03-14 23:59:59,,urgent gift
DE,7,9.75,true,,2024-03-20,spare
`

func ordersTypes() map[string]arrow.DataType {
	return map[string]arrow.DataType{
		"Country":     arrow.BinaryTypes.String,
		"Quantity":    arrow.PrimitiveTypes.Int64,
		"Price":       arrow.PrimitiveTypes.Float64,
		"Paid":        arrow.FixedWidthTypes.Boolean,
		"InvoiceDate": &arrow.TimestampType{Unit: arrow.Second},
		"Shipped":     arrow.FixedWidthTypes.Date32,
		"Note":        arrow.BinaryTypes.String,
	}
}

func loadCSV(t *testing.T, data string, types map[string]arrow.DataType) *frame.Record {
	t.Helper()
	rec, err := frame.ReadCSV(strings.NewReader(data), frame.WithColumnTypes(types))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	t.Cleanup(rec.Release)
	return rec
}

func loadOrders(t *testing.T) *frame.Record {
	return loadCSV(t, ordersCSV, ordersTypes())
}

func evaluate(t *testing.T, ds Table, expr string) frame.Mask {
	t.Helper()
	m, err := New(WithClock(fixedNow)).Evaluate(rule.MustParse(expr), ds)
	if err != nil {
		t.Fatalf("Evaluate(%s) failed: %v", expr, err)
	}
	return m
}

func leaf(key, op, value string) string {
	return `{"key_to_compare": "` + key + `", "comparison_operator": "` + op + `", "value_to_compare": ` + value + `}`
}

func assertMask(t *testing.T, got frame.Mask, want ...bool) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected mask %v, got %v", want, got)
			return
		}
	}
}

func TestScenarioEquality(t *testing.T) {
	ds := loadCSV(t, "Country\nUK\nFR\nUK\n", map[string]arrow.DataType{"Country": arrow.BinaryTypes.String})
	m := evaluate(t, ds, leaf("Country", "equal_to", `"UK"`))
	assertMask(t, m, true, false, true)
}

func TestScenarioAnd(t *testing.T) {
	ds := loadCSV(t, "Quantity,Country\n10,UK\n50,UK\n41,FR\n", map[string]arrow.DataType{
		"Quantity": arrow.PrimitiveTypes.Int64,
		"Country":  arrow.BinaryTypes.String,
	})
	m := evaluate(t, ds, `["AND", `+leaf("Country", "equal_to", `"UK"`)+`, `+leaf("Quantity", "greater_than", "40")+`]`)
	assertMask(t, m, false, true, false)
}

func TestScenarioIsIn(t *testing.T) {
	ds := loadCSV(t, "Country\nUK\nDE\nFR\n", map[string]arrow.DataType{"Country": arrow.BinaryTypes.String})
	m := evaluate(t, ds, leaf("Country", "is_in", `["UK", "FR"]`))
	assertMask(t, m, true, false, true)
}

func TestScenarioUnknownOperator(t *testing.T) {
	ds := loadOrders(t)
	_, err := New().Evaluate(rule.MustParse(leaf("Country", "approximately_equal", `"UK"`)), ds)
	if !errors.Is(err, rule.ErrOperator) {
		t.Fatalf("expected operator error, got %v", err)
	}
}

func TestScenarioLastDays(t *testing.T) {
	ds := loadOrders(t)
	// LAST_7_DAYS resolves to 2024-03-08.
	m := evaluate(t, ds, leaf("InvoiceDate", "earlier_than", `"LAST_7_DAYS"`))
	assertMask(t, m, true, false, false, false)
}

func TestComparisonOperators(t *testing.T) {
	ds := loadOrders(t)

	tests := []struct {
		name string
		expr string
		want []bool
	}{
		{"int equal", leaf("Quantity", "equal_to", "41"), []bool{false, false, true, false}},
		{"int not equal", `["NOT", ` + leaf("Quantity", "equal_to", "41") + `]`, []bool{true, true, false, true}},
		{"int greater equal", leaf("Quantity", "greater_equal_than", "41"), []bool{false, true, true, false}},
		{"int less than float", leaf("Quantity", "less_than", "10.5"), []bool{true, false, false, true}},
		{"int vs numeric string", leaf("Quantity", "less_equal_than", `"10"`), []bool{true, false, false, true}},
		{"float with null", leaf("Price", "greater_than", "2"), []bool{true, false, false, true}},
		{"string ordering", leaf("Country", "less_than", `"UK"`), []bool{false, true, false, true}},
		{"bool", leaf("Paid", "equal_to", "false"), []bool{false, true, false, false}},
		{"date column today", leaf("Shipped", "greater_equal_than", `"TODAY"`), []bool{false, false, false, true}},
		{"timestamp iso", leaf("InvoiceDate", "later_than", `"2024-03-09"`), []bool{false, true, true, false}},
		{"next days", leaf("Shipped", "earlier_than", `"NEXT_5_DAYS"`), []bool{true, true, false, false}},
		{"contains string", leaf("Note", "contains", `"gift"`), []bool{true, false, true, false}},
		{"contains number", leaf("Quantity", "contains", `"1"`), []bool{true, false, true, false}},
		{"contains date", leaf("Shipped", "contains", `"-03-2"`), []bool{false, false, false, true}},
		{"in numbers", leaf("Quantity", "is_in", "[7, 50]"), []bool{false, true, false, true}},
		{"in dates", leaf("Shipped", "is_in", `["2024-03-02", "TODAY"]`), []bool{true, false, false, false}},
		{"empty in", leaf("Country", "is_in", "[]"), []bool{false, false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertMask(t, evaluate(t, ds, tt.expr), tt.want...)
		})
	}
}

func TestNullRowsNeverMatch(t *testing.T) {
	ds := loadOrders(t)

	m := evaluate(t, ds, leaf("Price", "less_than", "100"))
	assertMask(t, m, true, true, false, true)

	// NOT of a leaf over a null row is true.
	m = evaluate(t, ds, `["NOT", `+leaf("Price", "less_than", "100")+`]`)
	assertMask(t, m, false, false, true, false)
}

func TestStringDates(t *testing.T) {
	ds := loadCSV(t, "When\n2024-03-01\n2024-03-20T10:00:00Z\n\"\"\n", map[string]arrow.DataType{"When": arrow.BinaryTypes.String})
	m := evaluate(t, ds, leaf("When", "earlier_than", `"TODAY"`))
	assertMask(t, m, true, false, false)
}

func TestTodayMatchesResolvedDate(t *testing.T) {
	ds := loadOrders(t)
	e := New(WithClock(fixedNow))

	for _, op := range []string{"earlier_than", "later_than"} {
		byLabel, err := e.Evaluate(rule.MustParse(leaf("InvoiceDate", op, `"TODAY"`)), ds)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		byDate, err := e.Evaluate(rule.MustParse(leaf("InvoiceDate", op, `"2024-03-15"`)), ds)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		assertMask(t, byLabel, byDate...)
	}
}

func TestClockReadPerLeaf(t *testing.T) {
	ds := loadOrders(t)

	calls := 0
	clock := func() time.Time {
		calls++
		return fixedNow()
	}

	expr := `["OR", ` + leaf("Shipped", "earlier_than", `"TODAY"`) + `, ` + leaf("Shipped", "later_than", `"NEXT_1_DAYS"`) + `]`
	if _, err := New(WithClock(clock)).Evaluate(rule.MustParse(expr), ds); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected clock read once per leaf, got %d", calls)
	}
}

func TestEvaluateErrors(t *testing.T) {
	ds := loadOrders(t)

	tests := []struct {
		name string
		node rule.Node
		kind error
		path string
	}{
		{"missing column", rule.NewLeaf("country", rule.OpEqualTo, "UK"), rule.ErrReference, "$"},
		{"nested missing column", rule.NewOr(
			rule.NewLeaf("Country", rule.OpEqualTo, "UK"),
			rule.NewNot(rule.NewLeaf("Region", rule.OpEqualTo, "EU")),
		), rule.ErrReference, "$[2][1]"},
		{"unknown operator", rule.NewLeaf("Country", "approximately_equal", "UK"), rule.ErrOperator, "$"},
		{"not_equal_to", rule.NewLeaf("Country", "not_equal_to", "UK"), rule.ErrOperator, "$"},
		{"null literal", rule.NewLeaf("Country", rule.OpEqualTo, nil), rule.ErrLiteral, "$"},
		{"string vs int literal", rule.NewLeaf("Country", rule.OpEqualTo, int64(1)), rule.ErrOperator, "$"},
		{"non-numeric string", rule.NewLeaf("Quantity", rule.OpEqualTo, "many"), rule.ErrLiteral, "$"},
		{"bool vs int column", rule.NewLeaf("Quantity", rule.OpEqualTo, true), rule.ErrOperator, "$"},
		{"list without is_in", rule.NewLeaf("Country", rule.OpEqualTo, []any{"UK"}), rule.ErrOperator, "$"},
		{"is_in scalar", rule.NewLeaf("Country", rule.OpIsIn, "UK"), rule.ErrLiteral, "$"},
		{"is_in null element", rule.NewLeaf("Country", rule.OpIsIn, []any{"UK", nil}), rule.ErrLiteral, "$"},
		{"contains non-string", rule.NewLeaf("Note", rule.OpContains, int64(1)), rule.ErrLiteral, "$"},
		{"bad date label", rule.NewLeaf("Shipped", rule.OpEarlierThan, "YESTERDAY"), rule.ErrLiteral, "$"},
		{"date op on number", rule.NewLeaf("Quantity", rule.OpEarlierThan, "TODAY"), rule.ErrOperator, "$"},
		{"date column vs number", rule.NewLeaf("Shipped", rule.OpEqualTo, int64(5)), rule.ErrOperator, "$"},
		{"date column in numbers", rule.NewLeaf("Shipped", rule.OpIsIn, []any{"TODAY", int64(5)}), rule.ErrOperator, "$"},
		{"date op on text", rule.NewLeaf("Country", rule.OpLaterThan, "TODAY"), rule.ErrOperator, "$"},
		{"empty and", rule.NewAnd(), rule.ErrStructural, "$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(WithClock(fixedNow)).Evaluate(tt.node, ds)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			if m != nil {
				t.Error("expected no mask on error")
			}
			var re *rule.Error
			if errors.As(err, &re) && re.Path != tt.path {
				t.Errorf("expected path %s, got %s", tt.path, re.Path)
			}
		})
	}
}

func TestMissingColumnWrapsNotFound(t *testing.T) {
	ds := loadOrders(t)
	_, err := New().Evaluate(rule.NewLeaf("nope", rule.OpEqualTo, "x"), ds)
	if !errors.Is(err, frame.ErrColumnNotFound) {
		t.Errorf("expected frame.ErrColumnNotFound in chain, got %v", err)
	}
}

func TestLargeIntegerVsFloatLiteral(t *testing.T) {
	ds := loadCSV(t, "Big,Unsigned\n9007199254740993,18446744073709551615\n1,2\n", map[string]arrow.DataType{
		"Big":      arrow.PrimitiveTypes.Int64,
		"Unsigned": arrow.PrimitiveTypes.Uint64,
	})

	tests := []struct {
		name string
		node rule.Node
		want []bool
	}{
		{"equal above 2^53", rule.NewLeaf("Big", rule.OpEqualTo, float64(1<<53)), []bool{false, false}},
		{"greater above 2^53", rule.NewLeaf("Big", rule.OpGreaterThan, float64(1<<53)), []bool{true, false}},
		{"less equal above 2^53", rule.NewLeaf("Big", rule.OpLessEqualThan, float64(1<<53+2)), []bool{true, true}},
		{"fractional literal", rule.NewLeaf("Big", rule.OpLessThan, 1.5), []bool{false, true}},
		{"fractional equal", rule.NewLeaf("Big", rule.OpEqualTo, 1.0), []bool{false, true}},
		{"negative fraction", rule.NewLeaf("Big", rule.OpGreaterThan, -0.5), []bool{true, true}},
		{"uint max vs 2^64", rule.NewLeaf("Unsigned", rule.OpLessThan, float64(1<<64)), []bool{true, true}},
		{"uint vs negative float", rule.NewLeaf("Unsigned", rule.OpGreaterThan, -1.5), []bool{true, true}},
		{"uint fractional", rule.NewLeaf("Unsigned", rule.OpLessEqualThan, 2.5), []bool{false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(WithClock(fixedNow)).Evaluate(tt.node, ds)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			assertMask(t, m, tt.want...)
		})
	}
}
