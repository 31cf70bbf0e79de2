// Package eval evaluates rule trees against tabular datasets.
//
// Evaluation produces a frame.Mask with one entry per dataset row. Leaves
// are dispatched through a fixed operator table; connectives combine their
// children's masks elementwise. A row whose value is null (or NaN) never
// satisfies a leaf.
package eval

import (
	"errors"
	"strconv"
	"time"

	"github.com/hugr-lab/rulefilter/frame"
	"github.com/hugr-lab/rulefilter/rule"
)

// Table is the part of a dataset the evaluator reads.
// frame.Dataset implements it.
type Table interface {
	NumRows() int
	Column(name string) (frame.Column, error)
}

// Evaluator computes row masks. It holds only immutable configuration and
// is safe for concurrent use.
type Evaluator struct {
	now func() time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithClock sets the clock used to resolve date labels.
// Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the mask of rows of t satisfying n. Any error aborts
// evaluation; there are no partial masks.
func (e *Evaluator) Evaluate(n rule.Node, t Table) (frame.Mask, error) {
	if err := rule.Validate(n); err != nil {
		return nil, err
	}
	return e.eval(n, t, "$")
}

func (e *Evaluator) eval(n rule.Node, t Table, path string) (frame.Mask, error) {
	switch node := n.(type) {
	case *rule.Connective:
		return e.evalConnective(node, t, path)
	case *rule.Leaf:
		return e.evalLeaf(node, t, path)
	}
	return nil, &rule.Error{Kind: rule.KindStructural, Path: path, Msg: "unexpected node"}
}

func (e *Evaluator) evalConnective(c *rule.Connective, t Table, path string) (frame.Mask, error) {
	masks := make([]frame.Mask, 0, len(c.Children))
	for i, child := range c.Children {
		m, err := e.eval(child, t, childPath(path, i+1))
		if err != nil {
			return nil, err
		}
		masks = append(masks, m)
	}

	switch c.Op {
	case rule.Not:
		return masks[0].Not(), nil
	case rule.And:
		out := frame.NewMask(t.NumRows(), true)
		for _, m := range masks {
			out = out.And(m)
		}
		return out, nil
	default:
		out := frame.NewMask(t.NumRows(), false)
		for _, m := range masks {
			out = out.Or(m)
		}
		return out, nil
	}
}

func (e *Evaluator) evalLeaf(l *rule.Leaf, t Table, path string) (frame.Mask, error) {
	build, ok := operators[l.Operator]
	if !ok {
		return nil, rule.LeafError(rule.KindOperator, path, l, nil, "unsupported operator %q", string(l.Operator))
	}
	if l.Value == nil {
		return nil, rule.LeafError(rule.KindLiteral, path, l, nil, "null literal")
	}

	col, err := t.Column(l.Key)
	if err != nil {
		if errors.Is(err, frame.ErrColumnNotFound) {
			return nil, rule.LeafError(rule.KindReference, path, l, err, "unknown column %q", l.Key)
		}
		return nil, err
	}

	lc := &leafContext{leaf: l, path: path, col: col, now: e.now()}
	match, err := build(lc)
	if err != nil {
		return nil, err
	}

	mask := make(frame.Mask, t.NumRows())
	for i := range mask {
		if col.IsNull(i) {
			continue
		}
		mask[i] = match(i)
	}
	return mask, nil
}

func childPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
