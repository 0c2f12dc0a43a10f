// Command churn loads a customer churn dataset, shows the churn
// distribution and fits a logistic regression classifier on it.
//
// Usage:
//
//	churn -url https://example.com/telco.json [-config churn.yaml]
//	      [-label Churn] [-features tenure,MonthlyCharges] [-plot=false]
//	      [-plot-out churn.png] [-standardize] [-log-level info]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnkit/eda"
	"github.com/YuminosukeSato/churnkit/etl"
	"github.com/YuminosukeSato/churnkit/internal/config"
	"github.com/YuminosukeSato/churnkit/models"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
	"github.com/YuminosukeSato/churnkit/preprocessing"
	"github.com/YuminosukeSato/churnkit/sklearn/linear_model"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "churn:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("churn", flag.ContinueOnError)
	var (
		configPath  = fs.String("config", "", "YAML config file")
		url         = fs.String("url", "", "dataset URL or path (row-record JSON)")
		compression = fs.String("compression", "", "codec: infer, none, gzip, zstd, xz, bz2")
		label       = fs.String("label", "", "label column (default Churn)")
		positive    = fs.String("positive", "", "comma-separated label values counted as churned")
		features    = fs.String("features", "", "comma-separated feature columns (default: all numeric)")
		plot        = fs.Bool("plot", true, "show the churn distribution before training")
		plotOut     = fs.String("plot-out", "", "file to render the plot to (png, svg or pdf)")
		standardize = fs.Bool("standardize", false, "standardize features before training")
		c           = fs.Float64("C", 1.0, "inverse regularization strength")
		classWeight = fs.String("class-weight", "", "none or balanced")
		logLevel    = fs.String("log-level", "", "debug, info, warn or error")
		logFormat   = fs.String("log-format", "", "json or zerolog")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.URL = *url
		case "compression":
			cfg.Compression = *compression
		case "label":
			cfg.Label = *label
		case "positive":
			cfg.Positive = config.SplitList(*positive)
		case "features":
			cfg.Features = config.SplitList(*features)
		case "plot":
			cfg.Plot = *plot
		case "plot-out":
			cfg.PlotOut = *plotOut
		case "standardize":
			cfg.Standardize = *standardize
		case "C":
			cfg.C = *c
		case "class-weight":
			cfg.ClassWeight = *classWeight
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogging(cfg, stdout).With(log.RunIDKey, uuid.NewString())
	if err := pipeline(ctx, cfg, logger); err != nil {
		logger.Error("Run failed", log.ErrAttrKey, err)
		return err
	}
	return nil
}

func setupLogging(cfg *config.Config, w io.Writer) log.Logger {
	if cfg.LogFormat == "zerolog" {
		level, _ := log.ParseLevel(cfg.LogLevel)
		z := log.NewZerologLogger(w, level)
		log.UseZerologWarnings(z)
		return z.With(log.ComponentKey, "churn")
	}
	log.SetupLoggerWithWriter(w, cfg.LogLevel)
	return log.GetLoggerWithName("churn")
}

func pipeline(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	codec, err := etl.ParseCompression(cfg.Compression)
	if err != nil {
		return err
	}

	loadCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	frame, err := etl.LoadDataContext(loadCtx, cfg.URL, etl.WithCompression(codec), etl.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Info("Dataset loaded",
		log.SourceKey, cfg.URL,
		log.SamplesKey, frame.Len(),
		log.ColumnsKey, len(frame.Columns()),
	)

	if cfg.Plot {
		viewer := eda.DefaultViewer()
		viewer.Path = cfg.PlotOut
		viewer.Logger = logger
		if err := eda.PlotChurnDistributionContext(ctx, frame, viewer); err != nil {
			return err
		}
	}

	features := cfg.Features
	if len(features) == 0 {
		features = frame.NumericColumns(cfg.Label)
	}
	if len(features) == 0 {
		return errors.NewValueError("churn", "dataset has no numeric feature columns")
	}
	var X mat.Matrix
	X, err = frame.FeatureMatrix(features...)
	if err != nil {
		return err
	}
	positives := make([]any, len(cfg.Positive))
	for i, p := range cfg.Positive {
		positives[i] = p
	}
	y, err := frame.LabelVector(cfg.Label, positives...)
	if err != nil {
		return err
	}

	if cfg.Standardize {
		if X, err = preprocessing.NewStandardScalerDefault().FitTransform(X); err != nil {
			return err
		}
	}

	logger.Info("Training started",
		log.PhaseKey, log.PhaseTraining,
		log.FeaturesKey, len(features),
		log.MaxIterKey, models.MaxIter,
	)
	clf, err := models.TrainLogistic(X, y,
		linear_model.WithLRC(cfg.C),
		linear_model.WithLRClassWeight(cfg.ClassWeight),
		linear_model.WithLRLogger(logger),
	)
	if err != nil {
		return err
	}
	report, err := models.Evaluate(clf, X, y)
	if err != nil {
		return err
	}
	fields := []any{
		log.SamplesKey, report.Samples,
		log.AccuracyKey, report.Accuracy,
		log.IterationKey, report.Iterations,
		"classes", clf.Classes(),
	}
	if !math.IsNaN(report.LogLoss) {
		fields = append(fields, log.LossKey, report.LogLoss)
	}
	logger.Info("Training complete", fields...)
	return nil
}
