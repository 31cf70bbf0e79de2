package rule

import (
	"fmt"
	"math"
	"reflect"

	"github.com/valyala/fastjson"

	"github.com/hugr-lab/rulefilter/internal/msgpack"
)

// ParseOption configures parsing.
type ParseOption func(*parseConfig)

type parseConfig struct {
	implicitAnd bool
}

// WithImplicitAnd makes the leading connective optional: a sequence whose
// first element is itself a sequence or a mapping is parsed as an AND of
// all its elements.
func WithImplicitAnd() ParseOption {
	return func(c *parseConfig) { c.implicitAnd = true }
}

var parserPool fastjson.ParserPool

// Parse parses a rule from its JSON form.
//
// Error conditions (all *Error with KindStructural):
//   - Invalid JSON syntax
//   - A node that is neither a connective sequence nor a leaf mapping
//   - Unknown connective tag or wrong child count
//   - A leaf without exactly the three leaf keys
func Parse(data []byte, opts ...ParseOption) (Node, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, &Error{Kind: KindStructural, Path: "$", Msg: "invalid JSON", Err: err}
	}

	native, err := fromJSON(v, "$")
	if err != nil {
		return nil, err
	}
	return ParseValue(native, opts...)
}

// ParseMsgpack parses a rule from a MessagePack document with the same
// shape as the JSON form.
func ParseMsgpack(data []byte, opts ...ParseOption) (Node, error) {
	v, err := msgpack.DecodeValue(data)
	if err != nil {
		return nil, &Error{Kind: KindStructural, Path: "$", Msg: "invalid MessagePack", Err: err}
	}
	return ParseValue(v, opts...)
}

// ParseValue parses a rule from a native nested structure: []any for
// connectives, map[string]any for leaves.
func ParseValue(v any, opts ...ParseOption) (Node, error) {
	cfg := &parseConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.parseNode(v, "$")
}

func (cfg *parseConfig) parseNode(v any, path string) (Node, error) {
	switch x := v.(type) {
	case []any:
		return cfg.parseConnective(x, path)
	case map[string]any:
		return parseLeaf(x, path)
	case map[any]any:
		m, err := stringKeys(x, path)
		if err != nil {
			return nil, err
		}
		return parseLeaf(m, path)
	case Node:
		return x, validate(x, path)
	case nil:
		return nil, structuralf(path, "expected a connective sequence or a leaf object, got null")
	}

	// Typed slices such as []map[string]any from Go callers.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return cfg.parseConnective(items, path)
	}
	return nil, structuralf(path, "expected a connective sequence or a leaf object, got %T", v)
}

func (cfg *parseConfig) parseConnective(items []any, path string) (Node, error) {
	if len(items) == 0 {
		return nil, structuralf(path, "empty sequence")
	}

	var (
		op    ConnectiveOp
		first int
	)
	switch head := items[0].(type) {
	case string:
		op = ConnectiveOp(head)
		if !op.Valid() {
			return nil, structuralf(path, "unknown connective %q", head)
		}
		first = 1
	default:
		if !cfg.implicitAnd || !isNodeShaped(head) {
			return nil, structuralf(path, "sequence must start with AND, OR or NOT, got %T", items[0])
		}
		op = And
	}

	if err := checkArity(op, len(items)-first, path); err != nil {
		return nil, err
	}

	children := make([]Node, 0, len(items)-first)
	for i := first; i < len(items); i++ {
		child, err := cfg.parseNode(items[i], childPath(path, i))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return &Connective{Op: op, Children: children}, nil
}

// isNodeShaped reports whether v is a sequence or a mapping.
func isNodeShaped(v any) bool {
	switch v.(type) {
	case []any, map[string]any, map[any]any:
		return true
	}
	return false
}

func parseLeaf(m map[string]any, path string) (*Leaf, error) {
	for k := range m {
		switch k {
		case KeyToCompare, ComparisonOperator, ValueToCompare:
		default:
			return nil, structuralf(path, "unexpected leaf key %q", k)
		}
	}

	rawKey, ok := m[KeyToCompare]
	if !ok {
		return nil, structuralf(path, "missing %s", KeyToCompare)
	}
	rawOp, ok := m[ComparisonOperator]
	if !ok {
		return nil, structuralf(path, "missing %s", ComparisonOperator)
	}
	rawValue, ok := m[ValueToCompare]
	if !ok {
		return nil, structuralf(path, "missing %s", ValueToCompare)
	}

	key, ok := rawKey.(string)
	if !ok || key == "" {
		return nil, structuralf(path, "%s must be a non-empty string, got %T", KeyToCompare, rawKey)
	}
	op, ok := rawOp.(string)
	if !ok {
		return nil, structuralf(path, "%s must be a string, got %T", ComparisonOperator, rawOp)
	}

	// Operator membership is an evaluation-time check.
	return &Leaf{
		Key:      key,
		Operator: Operator(op),
		Value:    normalizeLiteral(rawValue),
	}, nil
}

func stringKeys(m map[any]any, path string) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		s, ok := k.(string)
		if !ok {
			return nil, structuralf(path, "leaf keys must be strings, got %T", k)
		}
		out[s] = v
	}
	return out, nil
}

// normalizeLiteral folds the numeric kinds produced by different decoders
// into int64 and float64, and typed slices into []any.
func normalizeLiteral(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return v
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeLiteral(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalizeLiteral(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

// fromJSON converts a fastjson value into the native nested form.
func fromJSON(v *fastjson.Value, path string) (any, error) {
	switch v.Type() {
	case fastjson.TypeNull:
		return nil, nil
	case fastjson.TypeTrue:
		return true, nil
	case fastjson.TypeFalse:
		return false, nil
	case fastjson.TypeString:
		b, err := v.StringBytes()
		if err != nil {
			return nil, &Error{Kind: KindStructural, Path: path, Msg: "invalid string", Err: err}
		}
		return string(b), nil
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, &Error{Kind: KindStructural, Path: path, Msg: "invalid number", Err: err}
		}
		return f, nil
	case fastjson.TypeArray:
		arr, err := v.Array()
		if err != nil {
			return nil, &Error{Kind: KindStructural, Path: path, Msg: "invalid array", Err: err}
		}
		out := make([]any, len(arr))
		for i, item := range arr {
			out[i], err = fromJSON(item, childPath(path, i))
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case fastjson.TypeObject:
		obj, err := v.Object()
		if err != nil {
			return nil, &Error{Kind: KindStructural, Path: path, Msg: "invalid object", Err: err}
		}
		out := make(map[string]any, obj.Len())
		var visitErr error
		obj.Visit(func(key []byte, item *fastjson.Value) {
			if visitErr != nil {
				return
			}
			k := string(key)
			if _, dup := out[k]; dup {
				visitErr = structuralf(path, "duplicate key %q", k)
				return
			}
			out[k], visitErr = fromJSON(item, path+"."+k)
		})
		if visitErr != nil {
			return nil, visitErr
		}
		return out, nil
	}
	return nil, structuralf(path, "unsupported JSON value %s", v.Type())
}

// MustParse is like Parse but panics on error. Intended for rules embedded
// in code and tests.
func MustParse(data string) Node {
	n, err := Parse([]byte(data))
	if err != nil {
		panic(fmt.Sprintf("rule: MustParse: %v", err))
	}
	return n
}
