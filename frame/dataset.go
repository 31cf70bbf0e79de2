// Package frame holds the tabular datasets rules are evaluated against.
//
// Datasets are backed by Arrow record batches and can be loaded from CSV,
// Arrow IPC streams (plain or ZStandard compressed) or DuckDB queries.
package frame

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrColumnNotFound is returned by Column for names the schema lacks.
var ErrColumnNotFound = errors.New("column not found")

// Dataset is an ordered collection of equal-length named columns.
type Dataset interface {
	Schema() *arrow.Schema
	NumRows() int
	// Column returns the named column or an error wrapping ErrColumnNotFound.
	Column(name string) (Column, error)
	// Filter returns the rows where mask is true, in their original order.
	// The receiver is left unchanged.
	Filter(ctx context.Context, mask Mask) (Dataset, error)
	// RecordBatch exposes the Arrow data. It is owned by the dataset.
	RecordBatch() arrow.RecordBatch
	Release()
}

// Record is a Dataset over a single Arrow record batch.
type Record struct {
	rec       arrow.RecordBatch
	allocator memory.Allocator
}

var _ Dataset = (*Record)(nil)

// NewRecord wraps rec and retains it. A nil allocator means
// memory.DefaultAllocator.
func NewRecord(rec arrow.RecordBatch, allocator memory.Allocator) *Record {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	rec.Retain()
	return &Record{rec: rec, allocator: allocator}
}

// newOwnedRecord wraps rec without retaining it.
func newOwnedRecord(rec arrow.RecordBatch, allocator memory.Allocator) *Record {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	return &Record{rec: rec, allocator: allocator}
}

func (r *Record) Schema() *arrow.Schema { return r.rec.Schema() }

func (r *Record) NumRows() int { return int(r.rec.NumRows()) }

func (r *Record) RecordBatch() arrow.RecordBatch { return r.rec }

func (r *Record) Release() { r.rec.Release() }

// Column looks up a column by exact name. With duplicate names the first
// match wins.
func (r *Record) Column(name string) (Column, error) {
	idx := r.rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return Column{}, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return NewColumn(name, r.rec.Column(idx[0])), nil
}

// Filter selects the rows where mask is true using the Arrow compute
// filter kernel.
func (r *Record) Filter(ctx context.Context, mask Mask) (Dataset, error) {
	if len(mask) != r.NumRows() {
		return nil, fmt.Errorf("mask has %d rows, dataset has %d", len(mask), r.NumRows())
	}

	builder := array.NewBooleanBuilder(r.allocator)
	defer builder.Release()
	builder.AppendValues(mask, nil)
	sel := builder.NewBooleanArray()
	defer sel.Release()

	ctx = compute.WithAllocator(ctx, r.allocator)
	out, err := compute.FilterRecordBatch(ctx, r.rec, sel, compute.DefaultFilterOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to filter record: %w", err)
	}
	return newOwnedRecord(out, r.allocator), nil
}
