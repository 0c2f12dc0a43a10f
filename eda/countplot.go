// Package eda draws exploratory charts of a loaded dataset.
package eda

import (
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/churnkit/etl"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// Category is one bar of a count plot.
type Category struct {
	Label string
	Count int
}

// Counts tallies the non-null cells of column.
//
// Numeric and boolean columns are ordered ascending; any other column keeps
// the order in which each value first appears.
func Counts(frame *etl.Frame, column string) ([]Category, error) {
	if frame == nil {
		return nil, errors.NewValueError("Counts", "nil frame")
	}
	s, err := frame.Column(column)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		value any
		count int
	}
	index := make(map[string]int)
	var buckets []bucket
	for _, v := range s.Values {
		if v == nil {
			continue
		}
		key := etl.CellKey(v)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, bucket{value: v})
		}
		buckets[i].count++
	}
	if len(buckets) == 0 {
		return nil, errors.NewValueError("Counts", "column "+column+" has no non-null values")
	}

	switch s.Kind() {
	case etl.KindNumber:
		sort.SliceStable(buckets, func(i, j int) bool {
			return buckets[i].value.(float64) < buckets[j].value.(float64)
		})
	case etl.KindBool:
		sort.SliceStable(buckets, func(i, j int) bool {
			return !buckets[i].value.(bool) && buckets[j].value.(bool)
		})
	}

	out := make([]Category, len(buckets))
	for i, b := range buckets {
		out[i] = Category{Label: etl.FormatCell(b.value), Count: b.count}
	}
	return out, nil
}

// CountPlot builds a bar chart with one bar per category of column. The x
// axis is labelled with the column name and the y axis with "count".
func CountPlot(frame *etl.Frame, column string) (p *plot.Plot, err error) {
	defer errors.Recover(&err, "CountPlot")

	cats, err := Counts(frame, column)
	if err != nil {
		return nil, err
	}

	values := make(plotter.Values, len(cats))
	names := make([]string, len(cats))
	for i, c := range cats {
		values[i] = float64(c.Count)
		names[i] = c.Label
	}

	p = plot.New()
	p.X.Label.Text = column
	p.Y.Label.Text = "count"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return nil, errors.Wrapf(err, "bar chart for %s", column)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}
