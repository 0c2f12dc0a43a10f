// Standard attribute keys for structured logs emitted by churnkit.
//
// Keys follow a dotted hierarchy ("model.name", "data.samples") so that
// logs from loading, plotting and training can be filtered uniformly.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the model type, e.g. "LogisticRegression".
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies one model instance across log lines.
	EstimatorIDKey = "estimator.id"

	// OperationKey is the operation being performed ("load", "plot", "fit", ...).
	OperationKey = "ml.operation"

	// ComponentKey is the package doing the work ("etl", "eda", "models").
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase.
	PhaseKey = "ml.phase"

	// RunIDKey correlates all log lines of one CLI invocation.
	RunIDKey = "run.id"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnsKey  = "data.columns"
	ColumnKey   = "data.column"
	SourceKey   = "data.source"
	// DataSizeKey is the number of bytes read from a source.
	DataSizeKey = "data.size_bytes"
	// CompressionKey is the codec used to decode a source.
	CompressionKey = "data.compression"
)

// Performance and training metrics.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	LossKey       = "metrics.loss"
	IterationKey  = "training.iteration"
	// MaxIterKey is the iteration budget given to the optimizer.
	MaxIterKey = "training.max_iter"
	SolverKey  = "training.solver"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	SuggestionKey = "error.suggestion"
)

// Standard values.
const (
	OperationLoad    = "load"
	OperationPlot    = "plot"
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"

	PhasePreprocessing = "preprocessing"
	PhaseExploration   = "exploration"
	PhaseTraining      = "training"

	ErrorConvergence = "CONVERGENCE_FAILURE"
)
