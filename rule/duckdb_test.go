package rule

import (
	"errors"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)
}

func TestEncodeSimpleEquality(t *testing.T) {
	n := MustParse(`{"key_to_compare": "Country", "comparison_operator": "equal_to", "value_to_compare": "UK"}`)

	enc := NewDuckDBEncoder(nil)
	sql, err := enc.Encode(n)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	expected := `COALESCE("Country" = 'UK', FALSE)`
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeComparisonOperators(t *testing.T) {
	tests := []struct {
		op       string
		expected string
	}{
		{"equal_to", `COALESCE("col" = 42, FALSE)`},
		{"less_than", `COALESCE("col" < 42, FALSE)`},
		{"greater_than", `COALESCE("col" > 42, FALSE)`},
		{"less_equal_than", `COALESCE("col" <= 42, FALSE)`},
		{"greater_equal_than", `COALESCE("col" >= 42, FALSE)`},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			n := MustParse(`{"key_to_compare": "col", "comparison_operator": "` + tt.op + `", "value_to_compare": 42}`)

			sql, err := NewDuckDBEncoder(nil).Encode(n)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if sql != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, sql)
			}
		})
	}
}

func TestEncodeConnectives(t *testing.T) {
	n := MustParse(`["OR",
		["AND",
			{"key_to_compare": "Country", "comparison_operator": "equal_to", "value_to_compare": "UK"},
			{"key_to_compare": "Quantity", "comparison_operator": "greater_than", "value_to_compare": 40.5}
		],
		["NOT", {"key_to_compare": "Description", "comparison_operator": "contains", "value_to_compare": "LANTERN"}]
	]`)

	sql, err := NewDuckDBEncoder(nil).Encode(n)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	expected := `((COALESCE("Country" = 'UK', FALSE) AND COALESCE("Quantity" > 40.5, FALSE)) OR ` +
		`(NOT COALESCE(contains(CAST("Description" AS VARCHAR), 'LANTERN'), FALSE)))`
	if sql != expected {
		t.Errorf("expected\n%s\ngot\n%s", expected, sql)
	}
}

func TestEncodeSingleChildConnective(t *testing.T) {
	n := MustParse(`["AND", {"key_to_compare": "ok", "comparison_operator": "equal_to", "value_to_compare": true}]`)

	sql, err := NewDuckDBEncoder(nil).Encode(n)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if sql != `COALESCE("ok" = TRUE, FALSE)` {
		t.Errorf("unexpected SQL: %s", sql)
	}
}

func TestEncodeIn(t *testing.T) {
	n := MustParse(`{"key_to_compare": "Country", "comparison_operator": "is_in", "value_to_compare": ["UK", "FR"]}`)

	sql, err := NewDuckDBEncoder(nil).Encode(n)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	expected := `COALESCE("Country" IN ('UK', 'FR'), FALSE)`
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}

	empty := MustParse(`{"key_to_compare": "Country", "comparison_operator": "is_in", "value_to_compare": []}`)
	sql, err = NewDuckDBEncoder(nil).Encode(empty)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if sql != "FALSE" {
		t.Errorf("expected FALSE for empty list, got '%s'", sql)
	}
}

func TestEncodeDateLabels(t *testing.T) {
	tests := []struct {
		op       string
		value    string
		expected string
	}{
		{"earlier_than", "TODAY", `COALESCE("InvoiceDate" < DATE '2024-03-15', FALSE)`},
		{"earlier_than", "LAST_7_DAYS", `COALESCE("InvoiceDate" < DATE '2024-03-08', FALSE)`},
		{"later_than", "NEXT_30_DAYS", `COALESCE("InvoiceDate" > DATE '2024-04-14', FALSE)`},
		{"later_than", "2011-01-01", `COALESCE("InvoiceDate" > DATE '2011-01-01', FALSE)`},
	}

	enc := NewDuckDBEncoder(&EncoderOptions{Now: fixedNow})
	for _, tt := range tests {
		t.Run(tt.op+"_"+tt.value, func(t *testing.T) {
			n := NewLeaf("InvoiceDate", Operator(tt.op), tt.value)
			sql, err := enc.Encode(n)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if sql != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, sql)
			}
		})
	}
}

func TestEncodeDateColumns(t *testing.T) {
	enc := NewDuckDBEncoder(&EncoderOptions{Now: fixedNow, DateColumns: []string{"Shipped"}})

	sql, err := enc.Encode(NewLeaf("Shipped", OpEqualTo, "TODAY"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if sql != `COALESCE("Shipped" = DATE '2024-03-15', FALSE)` {
		t.Errorf("unexpected SQL: %s", sql)
	}

	sql, err = enc.Encode(NewLeaf("Shipped", OpIsIn, []any{"TODAY", "LAST_1_DAYS"}))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if sql != `COALESCE("Shipped" IN (DATE '2024-03-15', DATE '2024-03-14'), FALSE)` {
		t.Errorf("unexpected SQL: %s", sql)
	}
}

func TestEncodeStringEscaping(t *testing.T) {
	n := NewLeaf(`we"ird`, OpEqualTo, "O'Brien")

	sql, err := NewDuckDBEncoder(nil).Encode(n)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	expected := `COALESCE("we""ird" = 'O''Brien', FALSE)`
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeColumnMapping(t *testing.T) {
	enc := NewDuckDBEncoder(&EncoderOptions{
		ColumnMapping: map[string]string{"Country": "country_name"},
	})

	sql, err := enc.Encode(NewLeaf("Country", OpEqualTo, "UK"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if sql != `COALESCE("country_name" = 'UK', FALSE)` {
		t.Errorf("unexpected SQL: %s", sql)
	}
}

func TestEncodeQuery(t *testing.T) {
	sql, err := NewDuckDBEncoder(nil).Query("sales", NewLeaf("Quantity", OpGreaterThan, int64(40)))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	expected := `SELECT * FROM "sales" WHERE COALESCE("Quantity" > 40, FALSE)`
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name string
		node Node
		kind error
		path string
	}{
		{"unknown operator", NewAnd(NewLeaf("a", "approximately_equal", int64(1))), ErrOperator, "$[1]"},
		{"not_equal_to", NewLeaf("a", "not_equal_to", int64(1)), ErrOperator, "$"},
		{"null literal", NewLeaf("a", OpEqualTo, nil), ErrLiteral, "$"},
		{"is_in scalar", NewLeaf("a", OpIsIn, "UK"), ErrLiteral, "$"},
		{"contains number", NewLeaf("a", OpContains, int64(3)), ErrLiteral, "$"},
		{"bad date label", NewLeaf("d", OpEarlierThan, "YESTERDAY"), ErrLiteral, "$"},
		{"numeric date", NewLeaf("d", OpLaterThan, int64(20240101)), ErrLiteral, "$"},
		{"number on date column", NewLeaf("d", OpEqualTo, int64(5)), ErrOperator, "$"},
		{"nested list", NewLeaf("a", OpIsIn, []any{[]any{"x"}}), ErrLiteral, "$"},
		{"empty or", NewOr(), ErrStructural, "$"},
	}

	enc := NewDuckDBEncoder(&EncoderOptions{Now: fixedNow, DateColumns: []string{"d"}})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Encode(tt.node)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			var re *Error
			if errors.As(err, &re) && re.Path != tt.path {
				t.Errorf("expected path %s, got %s", tt.path, re.Path)
			}
		})
	}
}
