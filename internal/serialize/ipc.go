// Package serialize moves Arrow record batches through the IPC stream
// format, optionally ZStandard compressed.
package serialize

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// WriteIPC writes rec as an Arrow IPC stream. When compress is set the
// stream is wrapped in a ZStandard frame.
func WriteIPC(w io.Writer, rec arrow.RecordBatch, allocator memory.Allocator, compress bool) error {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}

	var zw io.WriteCloser
	if compress {
		var err error
		zw, err = NewWriter(w)
		if err != nil {
			return err
		}
		w = zw
	}

	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(allocator))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write IPC record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close IPC writer: %w", err)
	}

	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to flush zstd stream: %w", err)
		}
	}
	return nil
}

// ReadIPC reads an Arrow IPC stream, compressed or not, into a single
// record batch. The caller owns the result and must release it.
func ReadIPC(r io.Reader, allocator memory.Allocator) (arrow.RecordBatch, error) {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}

	plain, err := MaybeDecompress(r)
	if err != nil {
		return nil, err
	}
	defer plain.Close()

	reader, err := ipc.NewReader(plain, ipc.WithAllocator(allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to open IPC stream: %w", err)
	}
	defer reader.Release()

	var batches []arrow.RecordBatch
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		batches = append(batches, rec)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		releaseAll(batches)
		return nil, fmt.Errorf("failed to read IPC stream: %w", err)
	}

	return Concat(reader.Schema(), batches, allocator)
}

// Concat merges batches sharing schema into one record batch and takes
// ownership of the inputs. With no batches an empty record is returned.
func Concat(schema *arrow.Schema, batches []arrow.RecordBatch, allocator memory.Allocator) (arrow.RecordBatch, error) {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}

	switch len(batches) {
	case 0:
		builder := array.NewRecordBuilder(allocator, schema)
		defer builder.Release()
		return builder.NewRecord(), nil
	case 1:
		return batches[0], nil
	}
	defer releaseAll(batches)

	var rows int64
	for _, b := range batches {
		rows += b.NumRows()
	}

	cols := make([]arrow.Array, schema.NumFields())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	parts := make([]arrow.Array, len(batches))
	for i := range cols {
		for j, b := range batches {
			parts[j] = b.Column(i)
		}
		col, err := array.Concatenate(parts, allocator)
		if err != nil {
			return nil, fmt.Errorf("failed to concatenate column %s: %w", schema.Field(i).Name, err)
		}
		cols[i] = col
	}

	return array.NewRecord(schema, cols, rows), nil
}

func releaseAll(batches []arrow.RecordBatch) {
	for _, b := range batches {
		b.Release()
	}
}
