// Package etl loads row-record JSON datasets into an in-memory Frame.
//
// A Frame keeps columns in the order their keys first appear across
// records. Cells hold the decoded JSON value: float64 for numbers, string,
// bool, nil for null or a missing key, and map[string]any / []any for nested
// values.
package etl

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// Kind is the inferred type of a Series, ignoring null cells.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindMixed
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return "mixed"
	}
}

func kindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64:
		return KindNumber
	case string:
		return KindString
	default:
		return KindObject
	}
}

// Series is one named column of a Frame. Values is row aligned.
type Series struct {
	Name   string
	Values []any
	kind   Kind
}

func newSeries(name string, values []any) *Series {
	s := &Series{Name: name, Values: values, kind: KindNull}
	for _, v := range values {
		k := kindOf(v)
		switch {
		case k == KindNull:
		case s.kind == KindNull:
			s.kind = k
		case s.kind != k:
			s.kind = KindMixed
		}
	}
	return s
}

// Kind returns the inferred kind of the column.
func (s *Series) Kind() Kind {
	return s.kind
}

// Len returns the number of cells.
func (s *Series) Len() int {
	return len(s.Values)
}

// NullCount returns the number of nil cells.
func (s *Series) NullCount() int {
	n := 0
	for _, v := range s.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Float64s returns the column as float64. Booleans map to 0/1 and nulls to
// NaN; any other cell yields a DataConversionError.
func (s *Series) Float64s() ([]float64, error) {
	out := make([]float64, len(s.Values))
	for i, v := range s.Values {
		f, ok := toFloat(v)
		if !ok {
			if v != nil {
				return nil, errors.NewDataConversionError(s.Name, i, v)
			}
			f = math.NaN()
		}
		out[i] = f
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// FormatCell renders a cell as a category label: numbers in their shortest
// form, booleans as "true"/"false", null as "".
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Frame is an in-memory table of records.
type Frame struct {
	columns []string
	index   map[string]int
	values  [][]any // per column, each of length rows
	rows    int
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.rows
}

// Columns returns the column names in first-appearance order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasColumn reports whether the frame has a column called name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column, or a ColumnNotFoundError.
func (f *Frame) Column(name string) (*Series, error) {
	idx, ok := f.index[name]
	if !ok {
		return nil, errors.NewColumnNotFoundError(name, f.Columns())
	}
	return newSeries(name, f.values[idx]), nil
}

// At returns the cell at row in column.
func (f *Frame) At(row int, column string) (any, error) {
	idx, ok := f.index[column]
	if !ok {
		return nil, errors.NewColumnNotFoundError(column, f.Columns())
	}
	if row < 0 || row >= f.rows {
		return nil, errors.NewValueError("Frame.At", fmt.Sprintf("row %d out of range [0, %d)", row, f.rows))
	}
	return f.values[idx][row], nil
}

// Records returns the rows as maps. Every map has every column; cells that
// were missing in the source are nil.
func (f *Frame) Records() []map[string]any {
	out := make([]map[string]any, f.rows)
	for i := range out {
		rec := make(map[string]any, len(f.columns))
		for j, name := range f.columns {
			rec[name] = f.values[j][i]
		}
		out[i] = rec
	}
	return out
}

// Equal reports whether both frames have the same columns in the same order
// and identical cells.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.rows == other.rows &&
		reflect.DeepEqual(f.columns, other.columns) &&
		reflect.DeepEqual(f.values, other.values)
}

// frameBuilder appends records while keeping every column padded to the
// current row count.
type frameBuilder struct {
	f *Frame
}

func newFrameBuilder() *frameBuilder {
	return &frameBuilder{f: &Frame{index: make(map[string]int)}}
}

func (b *frameBuilder) startRow() {
	b.f.rows++
	for j := range b.f.values {
		b.f.values[j] = append(b.f.values[j], nil)
	}
}

func (b *frameBuilder) set(key string, v any) {
	idx, ok := b.f.index[key]
	if !ok {
		idx = len(b.f.columns)
		b.f.index[key] = idx
		b.f.columns = append(b.f.columns, key)
		b.f.values = append(b.f.values, make([]any, b.f.rows))
	}
	b.f.values[idx][b.f.rows-1] = v
}

func (b *frameBuilder) frame() *Frame {
	return b.f
}
