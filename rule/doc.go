// Package rule provides parsing, validation and encoding of JSON filter rules.
//
// A rule is a boolean expression tree. Connectives are sequences whose first
// element is the tag, leaves are objects with exactly three keys:
//
//	["AND",
//	    {"key_to_compare": "Country", "comparison_operator": "equal_to", "value_to_compare": "UK"},
//	    ["NOT", {"key_to_compare": "Quantity", "comparison_operator": "less_than", "value_to_compare": 40}]
//	]
//
// # Basic Usage
//
//	n, err := rule.Parse(data)
//	if err != nil {
//	    return err // *rule.Error with KindStructural
//	}
//
// The tree is a closed sum type: *Connective or *Leaf.
//
//	switch node := n.(type) {
//	case *rule.Connective:
//	    // node.Op is And, Or or Not
//	case *rule.Leaf:
//	    // node.Key, node.Operator, node.Value
//	}
//
// # Validation
//
// Parsing checks shape only: connective tags, arity (NOT exactly one child,
// AND/OR at least one) and leaf keys. Column existence, operator support and
// literal resolution need the dataset and are checked during evaluation.
//
// # Errors
//
// All failures are *Error values classified by ErrorKind and located by a
// path such as "$[2][1]" (element 1 of element 2 of the root sequence):
//
//	if errors.Is(err, rule.ErrStructural) { ... }
//
// # SQL Pushdown
//
// DuckDBEncoder renders a tree as a DuckDB WHERE body with the same
// semantics as in-memory evaluation:
//
//	enc := rule.NewDuckDBEncoder(&rule.EncoderOptions{
//	    DateColumns: []string{"InvoiceDate"},
//	})
//	where, err := enc.Encode(n)
//
// # Operators
//
// equal_to, greater_than, greater_equal_than, less_than, less_equal_than,
// is_in, contains, earlier_than, later_than. Any other operator is rejected.
//
// # Date Labels
//
// Date literals are ISO dates (YYYY-MM-DD) or the labels TODAY,
// LAST_<N>_DAYS and NEXT_<N>_DAYS, resolved against the clock when the
// rule is evaluated.
package rule
