package etl

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// DefaultPositiveLabels are the string and bool cells LabelVector maps to 1
// when no explicit positive labels are given.
var DefaultPositiveLabels = []any{"Yes", "yes", "True", "true", "1", true, 1}

// NumericColumns returns the columns whose kind is number or bool, in frame
// order, skipping exclude.
func (f *Frame) NumericColumns(exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, c := range exclude {
		skip[c] = struct{}{}
	}
	var out []string
	for j, name := range f.columns {
		if _, ok := skip[name]; ok {
			continue
		}
		k := newSeries(name, f.values[j]).Kind()
		if k == KindNumber || k == KindBool {
			out = append(out, name)
		}
	}
	return out
}

// FeatureMatrix builds a rows x len(columns) matrix from the named columns.
// Numbers are copied, booleans become 0/1. Null, string, or nested cells
// produce a DataConversionError naming the first offending cell.
func (f *Frame) FeatureMatrix(columns ...string) (*mat.Dense, error) {
	if len(columns) == 0 {
		return nil, errors.NewValueError("FeatureMatrix", "no feature columns selected")
	}
	if f.rows == 0 {
		return nil, errors.NewModelError("FeatureMatrix", "empty frame", errors.ErrEmptyData)
	}
	idx := make([]int, len(columns))
	for j, name := range columns {
		i, ok := f.index[name]
		if !ok {
			return nil, errors.NewColumnNotFoundError(name, f.Columns())
		}
		idx[j] = i
	}

	data := make([]float64, f.rows*len(columns))
	for j, ci := range idx {
		for i, v := range f.values[ci] {
			x, ok := toFloat(v)
			if !ok || math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, errors.NewDataConversionError(columns[j], i, v)
			}
			data[i*len(columns)+j] = x
		}
	}
	return mat.NewDense(f.rows, len(columns), data), nil
}

// LabelVector encodes column as a label vector.
//
// Without positive labels, numbers are used as-is, booleans become 0/1, and
// strings become 1 when they match DefaultPositiveLabels. With positive
// labels, every cell whose FormatCell rendering matches the rendering of
// one of them becomes 1 and all others 0, so the string "1" selects the
// number 1 and "true" selects the bool true. Null cells are always an error.
func (f *Frame) LabelVector(column string, positive ...any) (*mat.VecDense, error) {
	ci, ok := f.index[column]
	if !ok {
		return nil, errors.NewColumnNotFoundError(column, f.Columns())
	}
	if f.rows == 0 {
		return nil, errors.NewModelError("LabelVector", "empty frame", errors.ErrEmptyData)
	}

	explicit := len(positive) > 0
	if !explicit {
		positive = DefaultPositiveLabels
	}
	key := CellKey
	if explicit {
		key = labelRendering
	}
	pos := make(map[string]struct{}, len(positive))
	for _, p := range positive {
		pos[key(p)] = struct{}{}
	}

	out := make([]float64, f.rows)
	for i, v := range f.values[ci] {
		if v == nil {
			return nil, errors.NewDataConversionError(column, i, v)
		}
		if explicit {
			if _, ok := pos[labelRendering(v)]; ok {
				out[i] = 1
			}
			continue
		}
		switch x := v.(type) {
		case float64:
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, errors.NewDataConversionError(column, i, v)
			}
			out[i] = x
		case bool:
			if x {
				out[i] = 1
			}
		case string:
			if _, ok := pos[CellKey(x)]; ok {
				out[i] = 1
			}
		default:
			return nil, errors.NewDataConversionError(column, i, v)
		}
	}
	return mat.NewVecDense(f.rows, out), nil
}

// CellKey identifies a cell value by kind and rendering, keeping the
// string "true" and the bool true distinct.
func CellKey(v any) string {
	v = normalizeLabel(v)
	return fmt.Sprintf("%T:%s", v, FormatCell(v))
}

func labelRendering(v any) string {
	return FormatCell(normalizeLabel(v))
}

func normalizeLabel(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	}
	return v
}
