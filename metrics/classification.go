// Package metrics provides evaluation metrics for classifiers.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

const logLossEps = 1e-15

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 || yPred.Len() == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if yTrue.Len() != yPred.Len() {
		return 0, errors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return yTrue.Len(), nil
}

func checkBinaryLabel(op string, v float64) error {
	if v != 0 && v != 1 {
		return errors.NewValidationError("y_true", "labels must be 0 or 1", v)
	}
	return nil
}

// Accuracy returns the fraction of positions where yPred equals yTrue.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError returns 1 - Accuracy.
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// BinaryLogLoss returns the mean negative log-likelihood of 0/1 labels under
// the predicted positive-class probabilities. Probabilities are clipped to
// [1e-15, 1-1e-15].
func BinaryLogLoss(yTrue, yProb *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yProb)
	if err != nil {
		return 0, err
	}
	loss := 0.0
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if err := checkBinaryLabel("BinaryLogLoss", y); err != nil {
			return 0, err
		}
		p := errors.ClipValue(yProb.AtVec(i), logLossEps, 1-logLossEps)
		loss -= y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return loss / float64(n), nil
}

// BinaryConfusion holds the confusion counts of a binary classifier with
// positive label 1.
type BinaryConfusion struct {
	TP, FP, TN, FN int
}

// Precision returns TP / (TP + FP); 0 when nothing was predicted positive.
func (c BinaryConfusion) Precision() float64 {
	return errors.SafeDivide(float64(c.TP), float64(c.TP+c.FP))
}

// Recall returns TP / (TP + FN); 0 when there are no positives.
func (c BinaryConfusion) Recall() float64 {
	return errors.SafeDivide(float64(c.TP), float64(c.TP+c.FN))
}

// ConfusionMatrix counts outcomes for 0/1 labels and predictions.
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (BinaryConfusion, error) {
	var c BinaryConfusion
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return c, err
	}
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		if err := checkBinaryLabel("ConfusionMatrix", t); err != nil {
			return c, err
		}
		if err := checkBinaryLabel("ConfusionMatrix", p); err != nil {
			return c, err
		}
		switch {
		case t == 1 && p == 1:
			c.TP++
		case t == 0 && p == 1:
			c.FP++
		case t == 0 && p == 0:
			c.TN++
		default:
			c.FN++
		}
	}
	return c, nil
}

// ColumnVector copies column j of m into a VecDense, for passing model
// outputs (n x 1 predictions, n x 2 probabilities) to the metrics above.
func ColumnVector(m mat.Matrix, j int) *mat.VecDense {
	r, _ := m.Dims()
	if r == 0 {
		return nil
	}
	return mat.NewVecDense(r, mat.Col(nil, j, m))
}
