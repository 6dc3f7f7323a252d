package exporter

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"sqlbridge/internal/dataset"
)

// DefaultArrowBatchSize is the number of rows per record batch.
const DefaultArrowBatchSize = 64 * 1024

// ArrowEncoder writes an Arrow IPC file with one typed, nullable field per
// variable. Rows are buffered into record batches.
type ArrowEncoder struct {
	w         io.Writer
	mem       memory.Allocator
	batchSize int

	schema  *arrow.Schema
	builder *array.RecordBuilder
	fw      *ipc.FileWriter
	pending int
	err     error
	done    bool
}

// NewArrowEncoder creates a new Arrow IPC file encoder.
func NewArrowEncoder(w io.Writer) *ArrowEncoder {
	return &ArrowEncoder{
		w:         w,
		mem:       memory.NewGoAllocator(),
		batchSize: DefaultArrowBatchSize,
	}
}

// ArrowType returns the Arrow type a variable kind is exported as.
func ArrowType(kind dataset.Kind) (arrow.DataType, error) {
	switch kind {
	case dataset.Byte:
		return arrow.PrimitiveTypes.Int8, nil
	case dataset.Int:
		return arrow.PrimitiveTypes.Int32, nil
	case dataset.Long:
		return arrow.PrimitiveTypes.Int64, nil
	case dataset.Float:
		return arrow.PrimitiveTypes.Float32, nil
	case dataset.Double:
		return arrow.PrimitiveTypes.Float64, nil
	case dataset.Str, dataset.StrL:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, fmt.Errorf("no arrow type for %s", kind)
	}
}

func (e *ArrowEncoder) WriteHeader(vars []dataset.VarInfo) error {
	if e.schema != nil {
		return errors.New("arrow header already written")
	}
	fields := make([]arrow.Field, len(vars))
	for i, v := range vars {
		typ, err := ArrowType(v.Kind)
		if err != nil {
			e.err = err
			return err
		}
		fields[i] = arrow.Field{Name: v.Name, Type: typ, Nullable: true}
	}
	e.schema = arrow.NewSchema(fields, nil)
	e.builder = array.NewRecordBuilder(e.mem, e.schema)

	fw, err := ipc.NewFileWriter(e.w, ipc.WithSchema(e.schema), ipc.WithAllocator(e.mem))
	if err != nil {
		e.err = err
		return err
	}
	e.fw = fw
	return nil
}

func (e *ArrowEncoder) WriteRow(values []any) error {
	if e.err != nil {
		return e.err
	}
	if e.builder == nil {
		return errors.New("arrow header not written")
	}
	if len(values) != len(e.schema.Fields()) {
		e.err = fmt.Errorf("row has %d values, schema has %d fields", len(values), len(e.schema.Fields()))
		return e.err
	}

	for i, v := range values {
		if err := appendValue(e.builder.Field(i), v); err != nil {
			e.err = fmt.Errorf("field %s: %w", e.schema.Field(i).Name, err)
			return e.err
		}
	}
	e.pending++
	if e.pending >= e.batchSize {
		return e.writeBatch()
	}
	return nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.Int8Builder:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", v)
		}
		fb.Append(int8(n))
	case *array.Int32Builder:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", v)
		}
		fb.Append(int32(n))
	case *array.Int64Builder:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", v)
		}
		fb.Append(n)
	case *array.Float32Builder:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("expected float64, got %T", v)
		}
		fb.Append(float32(f))
	case *array.Float64Builder:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("expected float64, got %T", v)
		}
		fb.Append(f)
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		fb.Append(s)
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func (e *ArrowEncoder) writeBatch() error {
	rec := e.builder.NewRecord()
	defer rec.Release()
	e.pending = 0
	if err := e.fw.Write(rec); err != nil {
		e.err = err
	}
	return e.err
}

// Flush writes buffered rows as a record batch.
func (e *ArrowEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if e.pending > 0 {
		return e.writeBatch()
	}
	return nil
}

func (e *ArrowEncoder) Error() error {
	return e.err
}

// Close writes the last batch and the file footer.
func (e *ArrowEncoder) Close() error {
	if e.done || e.fw == nil {
		return e.err
	}
	e.done = true
	defer e.builder.Release()

	err := e.Flush()
	return errors.Join(err, e.fw.Close())
}
