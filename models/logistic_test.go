package models

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/sklearn/linear_model"
)

// churnLike builds n rows where class 1 has longer tenure and higher charges.
func churnLike(n int, seed int64) (*mat.Dense, *mat.VecDense) {
	r := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		label := float64(i % 2)
		X.Set(i, 0, 10+30*label+5*r.NormFloat64())
		X.Set(i, 1, 40+20*label+5*r.NormFloat64())
		y.SetVec(i, label)
	}
	return X, y
}

func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var warnings []error
	prev := errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	t.Cleanup(func() { errors.SetWarningHandler(prev) })
	return &warnings
}

func TestTrainLogistic_Balanced(t *testing.T) {
	captureWarnings(t)
	X, y := churnLike(100, 7)

	clf, err := TrainLogistic(X, y)
	if err != nil {
		t.Fatalf("TrainLogistic() error = %v", err)
	}
	if !clf.IsFitted() {
		t.Fatal("model should be fitted")
	}
	for _, n := range clf.NIter() {
		if n > MaxIter {
			t.Errorf("NIter = %d exceeds %d", n, MaxIter)
		}
	}

	report, err := Evaluate(clf, X, y)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if report.Accuracy < 0.9 {
		t.Errorf("training accuracy = %.3f, want >= 0.9", report.Accuracy)
	}
	if math.IsNaN(report.LogLoss) || report.LogLoss <= 0 {
		t.Errorf("log loss = %v, want a positive number", report.LogLoss)
	}
	if report.Samples != 100 {
		t.Errorf("Samples = %d, want 100", report.Samples)
	}
	c := report.Confusion
	if got := c.TP + c.FP + c.TN + c.FN; got != 100 {
		t.Errorf("confusion cells sum to %d, want 100", got)
	}
}

func TestTrainLogistic_IterationCapIsFixed(t *testing.T) {
	captureWarnings(t)
	X, y := churnLike(40, 3)

	clf, err := TrainLogistic(X, y, linear_model.WithLRMaxIter(100000), linear_model.WithLRC(0.5))
	if err != nil {
		t.Fatalf("TrainLogistic() error = %v", err)
	}
	params := clf.GetParams()
	if params["max_iter"] != MaxIter {
		t.Errorf("max_iter = %v, want %d", params["max_iter"], MaxIter)
	}
	if params["C"] != 0.5 {
		t.Errorf("C = %v, caller options were not applied", params["C"])
	}
}

func TestTrainLogistic_Errors(t *testing.T) {
	X, _ := churnLike(10, 1)
	tests := []struct {
		name  string
		X     mat.Matrix
		y     mat.Matrix
		check func(error) bool
	}{
		{
			name: "Row mismatch",
			X:    X,
			y:    mat.NewVecDense(9, nil),
			check: func(err error) bool {
				var de *errors.DimensionError
				return errors.As(err, &de)
			},
		},
		{
			name: "Single class",
			X:    X,
			y:    mat.NewVecDense(10, nil),
			check: func(err error) bool {
				var ve *errors.ValidationError
				return errors.As(err, &ve)
			},
		},
		{
			name: "Non-finite feature",
			X:    mat.NewDense(2, 1, []float64{math.NaN(), 1}),
			y:    mat.NewVecDense(2, []float64{0, 1}),
			check: func(err error) bool {
				var ne *errors.NumericalInstabilityError
				return errors.As(err, &ne)
			},
		},
		{
			name: "Two-column label",
			X:    X,
			y:    mat.NewDense(10, 2, nil),
			check: func(err error) bool {
				var de *errors.DimensionError
				return errors.As(err, &de)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clf, err := TrainLogistic(tt.X, tt.y)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if clf != nil {
				t.Error("model should be nil on error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type: %v", err)
			}
		})
	}
}

func TestTrainLogistic_ConvergenceWarningKeepsModel(t *testing.T) {
	warnings := captureWarnings(t)

	// Perfectly separable data with almost no regularisation keeps pushing
	// the coefficients outward.
	X := mat.NewDense(4, 1, []float64{-2, -1, 1, 2})
	y := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	clf, err := TrainLogistic(X, y, linear_model.WithLRC(1e12))
	if err != nil {
		t.Fatalf("TrainLogistic() error = %v", err)
	}
	if pred, err := clf.Predict(X); err != nil || pred.At(0, 0) != 0 || pred.At(3, 0) != 1 {
		t.Errorf("Predict() = %v, %v", pred, err)
	}
	for _, w := range *warnings {
		var cw *errors.ConvergenceWarning
		if !errors.As(w, &cw) {
			t.Errorf("unexpected warning %v", w)
		}
	}
}
