package rule

import (
	"strconv"
	"strings"
)

// ConnectiveOp identifies a boolean connective.
type ConnectiveOp string

const (
	And ConnectiveOp = "AND"
	Or  ConnectiveOp = "OR"
	Not ConnectiveOp = "NOT"
)

// Valid returns true if op is one of AND, OR, NOT.
func (op ConnectiveOp) Valid() bool {
	switch op {
	case And, Or, Not:
		return true
	}
	return false
}

// Operator identifies a leaf comparison operator.
type Operator string

const (
	OpEqualTo          Operator = "equal_to"
	OpGreaterThan      Operator = "greater_than"
	OpGreaterEqualThan Operator = "greater_equal_than"
	OpLessThan         Operator = "less_than"
	OpLessEqualThan    Operator = "less_equal_than"
	OpIsIn             Operator = "is_in"
	OpContains         Operator = "contains"
	OpEarlierThan      Operator = "earlier_than"
	OpLaterThan        Operator = "later_than"
)

// Operators lists every supported comparison operator.
var Operators = []Operator{
	OpEqualTo,
	OpGreaterThan,
	OpGreaterEqualThan,
	OpLessThan,
	OpLessEqualThan,
	OpIsIn,
	OpContains,
	OpEarlierThan,
	OpLaterThan,
}

// Valid returns true if op is a supported comparison operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEqualTo, OpGreaterThan, OpGreaterEqualThan,
		OpLessThan, OpLessEqualThan, OpIsIn, OpContains, OpEarlierThan, OpLaterThan:
		return true
	}
	return false
}

// IsDate returns true for the operators that always compare calendar dates.
func (op Operator) IsDate() bool {
	return op == OpEarlierThan || op == OpLaterThan
}

// Wire keys of a leaf predicate object.
const (
	KeyToCompare       = "key_to_compare"
	ComparisonOperator = "comparison_operator"
	ValueToCompare     = "value_to_compare"
)

// Node is the interface implemented by the two expression node kinds,
// *Connective and *Leaf. Use a type switch to access node data.
type Node interface {
	// String returns a compact human-readable rendering of the node.
	String() string

	// nodeMarker is a marker method to prevent external implementation.
	nodeMarker()
}

// Connective combines the masks of its children with AND, OR or NOT.
// NOT has exactly one child; AND and OR have at least one.
type Connective struct {
	Op       ConnectiveOp
	Children []Node
}

func (c *Connective) nodeMarker() {}

// String renders the connective as OP(child, ...).
func (c *Connective) String() string {
	var sb strings.Builder
	sb.WriteString(string(c.Op))
	sb.WriteByte('(')
	for i, child := range c.Children {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(child.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Leaf is a single column/operator/value comparison.
//
// Value holds the literal as decoded from the rule: nil, bool, int64,
// float64, string or []any. Date labels stay strings until evaluation.
type Leaf struct {
	Key      string
	Operator Operator
	Value    any
}

func (l *Leaf) nodeMarker() {}

// String renders the leaf as key operator value.
func (l *Leaf) String() string {
	return l.Key + " " + string(l.Operator) + " " + formatLiteral(l.Value)
}

// formatLiteral renders a literal for String output.
func formatLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatLiteral(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "?"
}

// NewAnd, NewOr, NewNot and NewLeaf build nodes programmatically.
// They do not validate; use Validate on the result when the shape is not
// known to be correct.

func NewAnd(children ...Node) *Connective { return &Connective{Op: And, Children: children} }

func NewOr(children ...Node) *Connective { return &Connective{Op: Or, Children: children} }

func NewNot(child Node) *Connective { return &Connective{Op: Not, Children: []Node{child}} }

func NewLeaf(key string, op Operator, value any) *Leaf {
	return &Leaf{Key: key, Operator: op, Value: value}
}

// Validate checks the shape invariants of a programmatically built tree:
// connective tags, arity and leaf keys. Operators and literals are not
// checked; that happens during evaluation.
func Validate(n Node) error {
	return validate(n, "$")
}

func validate(n Node, path string) error {
	switch node := n.(type) {
	case *Connective:
		if node == nil {
			return structuralf(path, "nil connective")
		}
		if err := checkArity(node.Op, len(node.Children), path); err != nil {
			return err
		}
		for i, child := range node.Children {
			if err := validate(child, childPath(path, i+1)); err != nil {
				return err
			}
		}
		return nil
	case *Leaf:
		if node == nil {
			return structuralf(path, "nil leaf")
		}
		if node.Key == "" {
			return structuralf(path, "empty %s", KeyToCompare)
		}
		return nil
	default:
		return structuralf(path, "unexpected node type %T", n)
	}
}

// checkArity enforces the connective tag and child count invariants.
func checkArity(op ConnectiveOp, children int, path string) error {
	if !op.Valid() {
		return structuralf(path, "unknown connective %q", string(op))
	}
	if op == Not && children != 1 {
		return structuralf(path, "NOT requires exactly one child, got %d", children)
	}
	if children == 0 {
		return structuralf(path, "%s requires at least one child", op)
	}
	return nil
}

// childPath returns the path of element i of the sequence at path.
func childPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
