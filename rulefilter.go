package rulefilter

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/rulefilter/eval"
	"github.com/hugr-lab/rulefilter/frame"
	"github.com/hugr-lab/rulefilter/internal/recovery"
	"github.com/hugr-lab/rulefilter/rule"
)

// Filterer parses rules and applies them to datasets.
// It holds only immutable configuration and is safe for concurrent use.
type Filterer struct {
	allocator memory.Allocator
	logger    *slog.Logger
	parseOpts []rule.ParseOption
	eval      *eval.Evaluator
}

// New creates a Filterer, filling unset Config fields with defaults.
//
// Example:
//
//	f := rulefilter.New(rulefilter.Config{Logger: logger})
//	out, err := f.Filter(ctx, ds, []byte(`["AND", ...]`))
//	if err != nil {
//	    return err
//	}
//	defer out.Release()
func New(config Config) *Filterer {
	f := &Filterer{
		allocator: config.allocator(),
		logger:    config.logger(),
		eval:      eval.New(eval.WithClock(config.now())),
	}
	if config.ImplicitAnd {
		f.parseOpts = append(f.parseOpts, rule.WithImplicitAnd())
	}
	return f
}

// Allocator returns the allocator datasets should be loaded with.
func (f *Filterer) Allocator() memory.Allocator {
	return f.allocator
}

// Parse parses a JSON rule with the Filterer's parse options.
func (f *Filterer) Parse(data []byte) (rule.Node, error) {
	n, err := rule.Parse(data, f.parseOpts...)
	if err != nil {
		f.logFailure("Parse", nil, err)
		return nil, err
	}
	return n, nil
}

// Filter parses a JSON rule and returns the rows of ds satisfying it.
// The input dataset is not modified; the caller releases the result.
func (f *Filterer) Filter(ctx context.Context, ds frame.Dataset, data []byte) (frame.Dataset, error) {
	n, err := f.Parse(data)
	if err != nil {
		return nil, err
	}
	return f.FilterNode(ctx, ds, n)
}

// FilterValue is Filter for a rule already decoded into Go values
// ([]any, map[string]any, scalars).
func (f *Filterer) FilterValue(ctx context.Context, ds frame.Dataset, v any) (frame.Dataset, error) {
	n, err := rule.ParseValue(v, f.parseOpts...)
	if err != nil {
		f.logFailure("Parse", nil, err)
		return nil, err
	}
	return f.FilterNode(ctx, ds, n)
}

// FilterNode returns the rows of ds satisfying n, in their original order
// and with the same columns.
func (f *Filterer) FilterNode(ctx context.Context, ds frame.Dataset, n rule.Node) (frame.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask, err := f.Evaluate(ds, n)
	if err != nil {
		return nil, err
	}

	out, err := recovery.RecoverToValue(f.logger, "Filter", func() (frame.Dataset, error) {
		return ds.Filter(ctx, mask)
	})
	if err != nil {
		f.logFailure("Filter", n, err)
		return nil, err
	}

	f.logger.Debug("Rule applied",
		"rule", n.String(),
		"rows_in", ds.NumRows(),
		"rows_out", out.NumRows(),
	)
	return out, nil
}

// Evaluate returns the row mask of ds for n without filtering.
func (f *Filterer) Evaluate(ds frame.Dataset, n rule.Node) (frame.Mask, error) {
	mask, err := recovery.RecoverToValue(f.logger, "Evaluate", func() (frame.Mask, error) {
		return f.eval.Evaluate(n, ds)
	})
	if err != nil {
		f.logFailure("Evaluate", n, err)
		return nil, err
	}
	return mask, nil
}

func (f *Filterer) logFailure(operation string, n rule.Node, err error) {
	attrs := []any{
		"operation", operation,
		"error", err,
	}
	if kind := rule.KindOf(err); kind != 0 {
		attrs = append(attrs, "kind", kind.String())
	}
	if n != nil {
		attrs = append(attrs, "rule", n.String())
	}
	f.logger.Warn("Rule failed", attrs...)
}

// Filter applies a JSON rule to ds with the default configuration.
func Filter(ctx context.Context, ds frame.Dataset, data []byte) (frame.Dataset, error) {
	return New(Config{}).Filter(ctx, ds, data)
}
