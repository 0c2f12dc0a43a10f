// Package churnkit is a small toolkit for customer churn analysis in Go:
// load a row-record JSON dataset, look at how the Churn label is
// distributed, and fit a logistic regression classifier.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "log"
//
//	    "github.com/YuminosukeSato/churnkit/eda"
//	    "github.com/YuminosukeSato/churnkit/etl"
//	    "github.com/YuminosukeSato/churnkit/models"
//	)
//
//	func main() {
//	    frame, err := etl.LoadData("https://example.com/telco.json")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Blocks until the plot window is closed
//	    if err := eda.PlotChurnDistribution(frame); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    X, err := frame.FeatureMatrix("tenure", "MonthlyCharges")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    y, err := frame.LabelVector("Churn")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    clf, err := models.TrainLogistic(X, y)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = clf
//	}
//
// # Packages
//
//   - etl: JSON dataset loading (http, https, file; gzip, zstd, xz, bz2)
//   - eda: churn count plot and plot viewers
//   - models: logistic regression training with a fixed iteration budget
//   - sklearn/linear_model: scikit-learn style LogisticRegression
//   - metrics: accuracy, log loss, confusion matrix
//   - preprocessing: StandardScaler
//   - core/model: estimator interfaces and fitted-state tracking
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// The churn command in cmd/churn runs the whole pipeline.
package churnkit
