package rule

import (
	"encoding/json"
	"fmt"

	"github.com/hugr-lab/rulefilter/internal/msgpack"
)

// ToValue converts a tree back to its native nested form: []any for
// connectives (tag first), map[string]any for leaves.
func ToValue(n Node) any {
	switch node := n.(type) {
	case *Connective:
		out := make([]any, 0, len(node.Children)+1)
		out = append(out, string(node.Op))
		for _, child := range node.Children {
			out = append(out, ToValue(child))
		}
		return out
	case *Leaf:
		return map[string]any{
			KeyToCompare:       node.Key,
			ComparisonOperator: string(node.Operator),
			ValueToCompare:     node.Value,
		}
	}
	return nil
}

// Marshal renders a tree in its JSON wire form.
func Marshal(n Node) ([]byte, error) {
	if err := Validate(n); err != nil {
		return nil, err
	}
	data, err := json.Marshal(ToValue(n))
	if err != nil {
		return nil, fmt.Errorf("rule: marshal: %w", err)
	}
	return data, nil
}

// MarshalMsgpack renders a tree as MessagePack with the same shape as the JSON form.
func MarshalMsgpack(n Node) ([]byte, error) {
	if err := Validate(n); err != nil {
		return nil, err
	}
	return msgpack.Encode(ToValue(n))
}

// MarshalJSON implements json.Marshaler.
func (c *Connective) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToValue(c))
}

// MarshalJSON implements json.Marshaler.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToValue(l))
}
