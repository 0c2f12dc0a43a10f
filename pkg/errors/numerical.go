package errors

import (
	"math"
)

// 数値安定性チェックで報告する値の上限
const maxReportedValues = 10

// denseMatrix is the read-only view of gonum's mat.Matrix used by CheckMatrix.
type denseMatrix interface {
	Dims() (r, c int)
	At(i, j int) float64
}

func nonFinite(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// CheckNumericalStability returns a NumericalInstabilityError when values
// contain NaN or Inf.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	for _, v := range values {
		if nonFinite(v) {
			return NewNumericalInstabilityError(operation, values, iteration)
		}
	}
	return nil
}

// CheckMatrix scans m row by row and reports the first non-finite cells.
func CheckMatrix(operation string, m denseMatrix, iteration int) error {
	rows, cols := m.Dims()
	bad := make([]float64, 0, maxReportedValues)
scan:
	for i := range rows {
		for j := range cols {
			if v := m.At(i, j); nonFinite(v) {
				bad = append(bad, v)
				if len(bad) == maxReportedValues {
					break scan
				}
			}
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return NewNumericalInstabilityError(operation, bad, iteration)
}

// SafeLog returns log(v) with v floored at eps, so probabilities of 0 give
// a large finite penalty instead of -Inf.
func SafeLog(v, eps float64) float64 {
	return math.Log(math.Max(v, eps))
}

// StabilizeExp computes exp with the argument clipped to [-700, 700].
func StabilizeExp(value float64) float64 {
	const limit = 700.0
	switch {
	case value > limit:
		return math.Exp(limit)
	case value < -limit:
		return 0
	}
	return math.Exp(value)
}

// ClipValue bounds value to [lo, hi].
func ClipValue(value, lo, hi float64) float64 {
	return math.Min(math.Max(value, lo), hi)
}

// SafeDivide returns numerator/denominator, or 0 when the denominator is
// within 1e-10 of zero.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}
