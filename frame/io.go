package frame

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/rulefilter/internal/serialize"
)

// Option configures loading and writing datasets.
type Option func(*options)

type options struct {
	allocator   memory.Allocator
	columnTypes map[string]arrow.DataType
	compress    bool
}

func newOptions(opts []Option) *options {
	o := &options{allocator: memory.DefaultAllocator}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithAllocator sets the allocator for Arrow buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		if mem != nil {
			o.allocator = mem
		}
	}
}

// WithColumnTypes overrides CSV type inference for the named columns.
func WithColumnTypes(types map[string]arrow.DataType) Option {
	return func(o *options) {
		o.columnTypes = types
	}
}

// WithCompression makes WriteIPC emit a ZStandard compressed stream.
func WithCompression() Option {
	return func(o *options) {
		o.compress = true
	}
}

// ReadCSV loads a CSV file with a header row. Column types are inferred
// from the data unless overridden with WithColumnTypes; empty fields are
// nulls. ZStandard compressed input is detected and decoded.
func ReadCSV(r io.Reader, opts ...Option) (*Record, error) {
	o := newOptions(opts)

	plain, err := serialize.MaybeDecompress(r)
	if err != nil {
		return nil, err
	}
	defer plain.Close()

	csvOpts := []csv.Option{
		csv.WithHeader(true),
		csv.WithAllocator(o.allocator),
		csv.WithChunk(-1),
		csv.WithNullReader(true, ""),
	}
	if len(o.columnTypes) > 0 {
		csvOpts = append(csvOpts, csv.WithColumnTypes(o.columnTypes))
	}

	reader := csv.NewInferringReader(plain, csvOpts...)
	defer reader.Release()

	var batches []arrow.RecordBatch
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		batches = append(batches, rec)
	}
	if err := reader.Err(); err != nil {
		for _, b := range batches {
			b.Release()
		}
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	schema := reader.Schema()
	if schema == nil {
		return nil, fmt.Errorf("failed to read CSV: no header")
	}
	rec, err := serialize.Concat(schema, batches, o.allocator)
	if err != nil {
		return nil, err
	}
	return newOwnedRecord(rec, o.allocator), nil
}

// WriteCSV writes ds as CSV with a header row.
func WriteCSV(w io.Writer, ds Dataset) error {
	rec := ds.RecordBatch()
	writer := csv.NewWriter(w, rec.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	if err := writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// ReadIPC loads an Arrow IPC stream. ZStandard compressed streams are
// detected by their magic number.
func ReadIPC(r io.Reader, opts ...Option) (*Record, error) {
	o := newOptions(opts)

	rec, err := serialize.ReadIPC(r, o.allocator)
	if err != nil {
		return nil, err
	}
	return newOwnedRecord(rec, o.allocator), nil
}

// WriteIPC writes ds as an Arrow IPC stream.
func WriteIPC(w io.Writer, ds Dataset, opts ...Option) error {
	o := newOptions(opts)
	return serialize.WriteIPC(w, ds.RecordBatch(), o.allocator, o.compress)
}
