// Package models trains the churn classifier.
package models

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/core/model"
	"github.com/YuminosukeSato/churnkit/metrics"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
	"github.com/YuminosukeSato/churnkit/sklearn/linear_model"
)

// MaxIter is the optimizer iteration budget used by TrainLogistic.
const MaxIter = 500

// TrainLogistic fits a logistic regression classifier on X and the label
// column y with at most MaxIter optimizer iterations.
//
// opts are applied before the iteration budget, so WithLRMaxIter in opts has
// no effect. Running out of iterations emits a ConvergenceWarning through
// errors.Warn and still returns the fitted model.
func TrainLogistic(X, y mat.Matrix, opts ...linear_model.LogisticRegressionOption) (*linear_model.LogisticRegression, error) {
	all := make([]linear_model.LogisticRegressionOption, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, linear_model.WithLRMaxIter(MaxIter))

	clf := linear_model.NewLogisticRegression(all...)
	logger := log.GetLoggerWithName("models")

	start := time.Now()
	if err := clf.Fit(X, y); err != nil {
		return nil, errors.Wrap(err, "train logistic regression")
	}

	nSamples, nFeatures := X.Dims()
	logger.Debug("Logistic regression trained",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.MaxIterKey, MaxIter,
		log.IterationKey, maxInt(clf.NIter()),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return clf, nil
}

// Report summarises a classifier on a labelled dataset.
type Report struct {
	Samples    int
	Accuracy   float64
	LogLoss    float64 // NaN unless the classes are exactly {0, 1}
	Iterations int     // zero when the classifier does not report iterations
	Confusion  metrics.BinaryConfusion
}

func (r *Report) MarshalZerologObject(e *zerolog.Event) {
	e.Int("samples", r.Samples).
		Float64("accuracy", r.Accuracy).
		Float64("log_loss", r.LogLoss).
		Int("iterations", r.Iterations)
}

// Evaluate scores clf on X and y.
func Evaluate(clf model.Classifier, X, y mat.Matrix) (*Report, error) {
	pred, err := clf.Predict(X)
	if err != nil {
		return nil, err
	}
	yTrue := metrics.ColumnVector(y, 0)
	yPred := metrics.ColumnVector(pred, 0)

	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	r := &Report{Samples: yTrue.Len(), Accuracy: acc, LogLoss: math.NaN()}

	if classes := clf.Classes(); len(classes) == 2 && classes[0] == 0 && classes[1] == 1 {
		proba, err := clf.PredictProba(X)
		if err != nil {
			return nil, err
		}
		if r.LogLoss, err = metrics.BinaryLogLoss(yTrue, metrics.ColumnVector(proba, 1)); err != nil {
			return nil, err
		}
		if r.Confusion, err = metrics.ConfusionMatrix(yTrue, yPred); err != nil {
			return nil, err
		}
	}
	if it, ok := clf.(interface{ NIter() []int }); ok {
		r.Iterations = maxInt(it.NIter())
	}
	return r, nil
}

func maxInt(xs []int) int {
	m := 0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}
