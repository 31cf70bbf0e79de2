package rule

import (
	"errors"
	"fmt"
)

// ErrorKind classifies rule errors.
type ErrorKind int

const (
	// KindStructural is a malformed expression shape, raised while parsing.
	KindStructural ErrorKind = iota + 1
	// KindReference is a key_to_compare that names no column.
	KindReference
	// KindOperator is an unknown operator, or one not applicable to the column/literal types.
	KindOperator
	// KindLiteral is a value_to_compare that cannot be resolved.
	KindLiteral
)

func (k ErrorKind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindReference:
		return "reference"
	case KindOperator:
		return "operator"
	case KindLiteral:
		return "literal"
	}
	return "unknown"
}

// Sentinel errors for errors.Is matching by kind:
//
//	if errors.Is(err, rule.ErrReference) { ... }
var (
	ErrStructural = &Error{Kind: KindStructural}
	ErrReference  = &Error{Kind: KindReference}
	ErrOperator   = &Error{Kind: KindOperator}
	ErrLiteral    = &Error{Kind: KindLiteral}
)

// Error is returned for every rule failure, at parse and at evaluation time.
type Error struct {
	Kind ErrorKind
	// Path locates the offending node in the rule, e.g. "$[2][1]".
	Path string
	// Key and Operator are set for leaf errors.
	Key      string
	Operator Operator
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	s := "rule: " + e.Kind.String() + " error"
	if e.Path != "" {
		s += " at " + e.Path
	}
	if e.Key != "" {
		s += fmt.Sprintf(" (%s %s)", e.Key, e.Operator)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

func structuralf(path, format string, args ...any) *Error {
	return &Error{Kind: KindStructural, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// LeafError builds an evaluation error for leaf l at path.
func LeafError(kind ErrorKind, path string, l *Leaf, err error, format string, args ...any) *Error {
	e := &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...), Err: err}
	if l != nil {
		e.Key = l.Key
		e.Operator = l.Operator
	}
	return e
}
