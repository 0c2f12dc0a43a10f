package linear_model

import (
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/churnkit/core/model"
	"github.com/YuminosukeSato/churnkit/pkg/errors"
	"github.com/YuminosukeSato/churnkit/pkg/log"
)

const modelName = "LogisticRegression"

// LogisticRegression implements logistic regression for classification.
// Compatible with scikit-learn's LogisticRegression: binary problems fit one
// coefficient vector, multiclass problems are fitted one-vs-rest.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	penalty      string  // "l2" or "none"
	C            float64 // Inverse regularization strength
	fitIntercept bool
	classWeight  string // "none" or "balanced"
	randomState  int64  // Seed for the gd solver's initial weights
	solver       string // "lbfgs" or "gd"
	maxIter      int
	warmStart    bool
	tol          float64

	// Model parameters
	coef_      [][]float64 // 1 x n_features for binary, n_classes x n_features otherwise
	intercept_ []float64
	classes_   []int
	nIter_     []int // Iterations used per fitted coefficient vector

	id     string
	logger log.Logger
	rand   *rand.Rand
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier with
// scikit-learn defaults (l2, C=1, lbfgs, max_iter=100, tol=1e-4).
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		classWeight:  "none",
		randomState:  -1,
		solver:       "lbfgs",
		maxIter:      100,
		tol:          1e-4,
		id:           uuid.NewString(),
	}

	for _, opt := range opts {
		opt(lr)
	}

	if lr.randomState >= 0 {
		lr.rand = rand.New(rand.NewSource(lr.randomState))
	} else {
		lr.rand = rand.New(rand.NewSource(rand.Int63()))
	}

	return lr
}

// WithLRPenalty sets the regularization type ("l2" or "none").
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength.
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRSolver sets the optimization solver ("lbfgs" or "gd").
func WithLRSolver(solver string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.solver = solver
	}
}

// WithLRMaxIter sets the maximum number of optimizer iterations.
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the gradient tolerance for stopping.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed.
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// WithLRClassWeight sets the class weighting ("none" or "balanced").
func WithLRClassWeight(weight string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.classWeight = weight
	}
}

// WithLRWarmStart reuses the previous solution as initialization when the
// classes and feature width are unchanged.
func WithLRWarmStart(warm bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.warmStart = warm
	}
}

// WithLRLogger sets the logger used during Fit.
func WithLRLogger(logger log.Logger) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.logger = logger
	}
}

func (lr *LogisticRegression) validateParams() error {
	switch lr.penalty {
	case "l2", "none":
	default:
		return errors.NewValidationError("penalty", "must be 'l2' or 'none'", lr.penalty)
	}
	switch lr.solver {
	case "lbfgs", "gd":
	default:
		return errors.NewValidationError("solver", "must be 'lbfgs' or 'gd'", lr.solver)
	}
	switch lr.classWeight {
	case "none", "balanced":
	default:
		return errors.NewValidationError("class_weight", "must be 'none' or 'balanced'", lr.classWeight)
	}
	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", lr.maxIter)
	}
	if lr.tol < 0 {
		return errors.NewValidationError("tol", "must be non-negative", lr.tol)
	}
	return nil
}

// Fit trains the logistic regression model. y must be a column of integer
// class labels with at least two distinct values.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	if err := lr.validateParams(); err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix("LogisticRegression.Fit", X, 0); err != nil {
		return err
	}

	labels, classes, err := extractClasses(y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return errors.NewValidationError("y", "needs samples of at least 2 classes", classes)
	}

	logger := lr.logger
	if logger == nil {
		logger = log.GetLoggerWithName("linear_model")
	}
	logger = logger.With(log.ModelNameKey, modelName, log.EstimatorIDKey, lr.id)
	logger.Debug("Fitting logistic regression",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.SolverKey, lr.solver,
		log.MaxIterKey, lr.maxIter,
	)

	warm := lr.warmStart && lr.state.IsFitted() && sameClasses(lr.classes_, classes) && len(lr.coef_[0]) == nFeatures
	if !warm {
		lr.classes_ = classes
		lr.initializeWeights(nFeatures)
	}
	lr.nIter_ = make([]int, len(lr.coef_))

	sampleWeight := lr.sampleWeights(labels)

	// Binary problems fit a single vector for classes_[1]; otherwise one per class.
	targets := classes[1:]
	if len(classes) > 2 {
		targets = classes
	}
	for k, class := range targets {
		yBinary := make([]float64, nSamples)
		for i, label := range labels {
			if label == class {
				yBinary[i] = 1
			}
		}

		var iters int
		var warning *errors.ConvergenceWarning
		switch lr.solver {
		case "gd":
			iters, warning = lr.fitGradientDescent(X, yBinary, sampleWeight, k)
		default:
			iters, warning, err = lr.fitLBFGS(X, yBinary, sampleWeight, k)
			if err != nil {
				lr.state.Reset()
				return err
			}
		}
		lr.nIter_[k] = iters

		if err := errors.CheckNumericalStability("LogisticRegression.Fit", lr.coef_[k], iters); err != nil {
			lr.state.Reset()
			return err
		}
		if warning != nil {
			logger.Warn("Optimizer did not converge",
				log.IterationKey, iters,
				log.ErrorCodeKey, log.ErrorConvergence,
				log.SuggestionKey, "scale the features or increase max_iter",
			)
			errors.Warn(warning)
		}
	}

	lr.state.SetFitted(nFeatures, nSamples)
	logger.Debug("Logistic regression fitted",
		log.OperationKey, log.OperationFit,
		log.IterationKey, lr.maxNIter(),
	)
	return nil
}

// extractClasses returns the integer label of every row and the sorted
// unique labels. Non-integer or non-finite labels are rejected.
func extractClasses(y mat.Matrix) ([]int, []int, error) {
	rows, _ := y.Dims()
	labels := make([]int, rows)
	seen := make(map[int]bool)

	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, nil, errors.NewValidationError("y", "unknown label type: labels must be integers", v)
		}
		labels[i] = int(v)
		seen[labels[i]] = true
	}

	classes := make([]int, 0, len(seen))
	for class := range seen {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	return labels, classes, nil
}

func sameClasses(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// initializeWeights allocates coefficients. lbfgs starts from zero like
// scikit-learn; gd starts from small random values.
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	nVectors := 1
	if len(lr.classes_) > 2 {
		nVectors = len(lr.classes_)
	}
	lr.coef_ = make([][]float64, nVectors)
	for i := range lr.coef_ {
		lr.coef_[i] = make([]float64, nFeatures)
	}
	lr.intercept_ = make([]float64, nVectors)

	if lr.solver == "gd" {
		if lr.randomState >= 0 {
			lr.rand = rand.New(rand.NewSource(lr.randomState))
		}
		for i := range lr.coef_ {
			for j := range lr.coef_[i] {
				lr.coef_[i][j] = lr.rand.NormFloat64() * 0.01
			}
		}
	}
}

// sampleWeights returns per-row weights. "balanced" uses
// n_samples / (n_classes * count(class)).
func (lr *LogisticRegression) sampleWeights(labels []int) []float64 {
	w := make([]float64, len(labels))
	if lr.classWeight != "balanced" {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	n, k := float64(len(labels)), float64(len(counts))
	for i, l := range labels {
		w[i] = n / (k * float64(counts[l]))
	}
	return w
}

// lossAndGrad evaluates the weighted mean log-loss plus the l2 term
// ||coef||^2 / (2*C*sum(w)) at params = [coef..., intercept]. grad may be nil.
func (lr *LogisticRegression) lossAndGrad(X mat.Matrix, y, sw, params, grad []float64) float64 {
	nSamples, nFeatures := X.Dims()
	coef := params[:nFeatures]
	intercept := 0.0
	if lr.fitIntercept {
		intercept = params[nFeatures]
	}
	if grad != nil {
		for j := range grad {
			grad[j] = 0
		}
	}

	swSum := floats.Sum(sw)
	loss := 0.0
	for i := 0; i < nSamples; i++ {
		z := intercept
		for j := 0; j < nFeatures; j++ {
			z += X.At(i, j) * coef[j]
		}
		loss += sw[i] * (softplus(z) - y[i]*z)
		if grad != nil {
			r := sw[i] * (sigmoid(z) - y[i])
			for j := 0; j < nFeatures; j++ {
				grad[j] += r * X.At(i, j)
			}
			if lr.fitIntercept {
				grad[nFeatures] += r
			}
		}
	}
	loss /= swSum
	if grad != nil {
		floats.Scale(1/swSum, grad)
	}

	if lr.penalty == "l2" {
		alpha := 1 / (lr.C * swSum)
		loss += 0.5 * alpha * floats.Dot(coef, coef)
		if grad != nil {
			floats.AddScaled(grad[:nFeatures], alpha, coef)
		}
	}
	return loss
}

func (lr *LogisticRegression) packParams(k int) []float64 {
	params := append([]float64(nil), lr.coef_[k]...)
	if lr.fitIntercept {
		params = append(params, lr.intercept_[k])
	}
	return params
}

func (lr *LogisticRegression) unpackParams(k int, params []float64) {
	nFeatures := len(lr.coef_[k])
	copy(lr.coef_[k], params[:nFeatures])
	if lr.fitIntercept {
		lr.intercept_[k] = params[nFeatures]
	} else {
		lr.intercept_[k] = 0
	}
}

// fitLBFGS minimises the loss for coefficient vector k with gonum's L-BFGS,
// bounded by maxIter major iterations. It returns a ConvergenceWarning when
// the budget is exhausted or the line search gives up.
func (lr *LogisticRegression) fitLBFGS(X mat.Matrix, y, sw []float64, k int) (int, *errors.ConvergenceWarning, error) {
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			return lr.lossAndGrad(X, y, sw, params, nil)
		},
		Grad: func(grad, params []float64) {
			lr.lossAndGrad(X, y, sw, params, grad)
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   lr.maxIter,
		GradientThreshold: lr.tol,
	}

	result, err := optimize.Minimize(problem, lr.packParams(k), settings, &optimize.LBFGS{})
	if result == nil {
		return 0, nil, errors.NewModelError("LogisticRegression.Fit", "lbfgs failed", err)
	}
	lr.unpackParams(k, result.X)

	iters := result.MajorIterations
	if iters > lr.maxIter {
		iters = lr.maxIter
	}
	switch {
	case err != nil:
		// The line search may give up right at the optimum.
		grad := make([]float64, len(result.X))
		lr.lossAndGrad(X, y, sw, result.X, grad)
		if floats.Norm(grad, math.Inf(1)) <= lr.tol {
			return iters, nil, nil
		}
		return iters, errors.NewConvergenceWarning("lbfgs", iters, err.Error()), nil
	case result.Status == optimize.IterationLimit:
		return iters, errors.NewConvergenceWarning("lbfgs", iters, ""), nil
	}
	return iters, nil, nil
}

// fitGradientDescent runs full-batch gradient descent with a decaying step.
func (lr *LogisticRegression) fitGradientDescent(X mat.Matrix, y, sw []float64, k int) (int, *errors.ConvergenceWarning) {
	params := lr.packParams(k)
	grad := make([]float64, len(params))
	baseLearningRate := 1.0

	for iter := 0; iter < lr.maxIter; iter++ {
		lr.lossAndGrad(X, y, sw, params, grad)

		if floats.Norm(grad, math.Inf(1)) < lr.tol {
			lr.unpackParams(k, params)
			return iter, nil
		}

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		floats.AddScaled(params, -learningRate, grad)
	}

	lr.unpackParams(k, params)
	return lr.maxIter, errors.NewConvergenceWarning("gd", lr.maxIter, "")
}

func (lr *LogisticRegression) checkPredictInput(method string, X mat.Matrix) error {
	if err := lr.state.RequireFitted(modelName, method); err != nil {
		return err
	}
	_, cols := X.Dims()
	return lr.state.RequireFeatures("LogisticRegression."+method, cols)
}

// DecisionFunction returns the signed distance to the hyperplane: n x 1 for
// binary problems, n x n_classes otherwise.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := lr.checkPredictInput("DecisionFunction", X); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	scores := mat.NewDense(nSamples, len(lr.coef_), nil)
	for i := 0; i < nSamples; i++ {
		for k, coef := range lr.coef_ {
			z := lr.intercept_[k]
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * coef[j]
			}
			scores.Set(i, k, z)
		}
	}
	return scores, nil
}

// Predict returns the predicted class label for each row as an n x 1 matrix.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	nSamples, nVectors := scores.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		if nVectors == 1 {
			label := lr.classes_[0]
			if scores.At(i, 0) > 0 {
				label = lr.classes_[1]
			}
			predictions.Set(i, 0, float64(label))
			continue
		}
		best := floats.MaxIdx(scores.RawRowView(i))
		predictions.Set(i, 0, float64(lr.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns class probabilities with columns ordered as Classes().
// Multiclass one-vs-rest scores are normalised to sum to one per row.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	nSamples, nVectors := scores.Dims()
	probas := mat.NewDense(nSamples, len(lr.classes_), nil)
	for i := 0; i < nSamples; i++ {
		if nVectors == 1 {
			p := sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1-p)
			probas.Set(i, 1, p)
			continue
		}
		row := probas.RawRowView(i)
		for k := range row {
			row[k] = sigmoid(scores.At(i, k))
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return probas, nil
}

// Score returns the mean accuracy on the given data and labels.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	nSamples, _ := X.Dims()
	if yRows, _ := y.Dims(); yRows != nSamples {
		return 0, errors.NewDimensionError("LogisticRegression.Score", nSamples, yRows, 0)
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Coef returns a copy of the coefficients (1 x n_features for binary problems).
func (lr *LogisticRegression) Coef() [][]float64 {
	out := make([][]float64, len(lr.coef_))
	for i, c := range lr.coef_ {
		out[i] = append([]float64(nil), c...)
	}
	return out
}

// Intercept returns a copy of the intercepts.
func (lr *LogisticRegression) Intercept() []float64 {
	return append([]float64(nil), lr.intercept_...)
}

// Classes returns the sorted class labels seen during Fit.
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.classes_...)
}

// NIter returns the iterations used for each coefficient vector. Every entry
// is at most max_iter.
func (lr *LogisticRegression) NIter() []int {
	return append([]int(nil), lr.nIter_...)
}

func (lr *LogisticRegression) maxNIter() int {
	m := 0
	for _, n := range lr.nIter_ {
		if n > m {
			m = n
		}
	}
	return m
}

// NFeatures returns the feature width seen during Fit.
func (lr *LogisticRegression) NFeatures() int {
	n, _ := lr.state.Dimensions()
	return n
}

// IsFitted reports whether Fit has completed successfully.
func (lr *LogisticRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"class_weight":  lr.classWeight,
		"random_state":  lr.randomState,
		"solver":        lr.solver,
		"max_iter":      lr.maxIter,
		"warm_start":    lr.warmStart,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters. Values of the wrong type yield a
// ValidationError and leave the model unchanged.
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	next := *lr
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			next.penalty, ok = value.(string)
		case "C":
			next.C, ok = value.(float64)
		case "fit_intercept":
			next.fitIntercept, ok = value.(bool)
		case "class_weight":
			next.classWeight, ok = value.(string)
		case "random_state":
			next.randomState, ok = value.(int64)
		case "solver":
			next.solver, ok = value.(string)
		case "max_iter":
			next.maxIter, ok = value.(int)
		case "warm_start":
			next.warmStart, ok = value.(bool)
		case "tol":
			next.tol, ok = value.(float64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	if err := next.validateParams(); err != nil {
		return err
	}
	*lr = next
	return nil
}

// sigmoid computes the sigmoid function
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + errors.StabilizeExp(-z))
	}
	e := errors.StabilizeExp(z)
	return e / (1.0 + e)
}

// softplus computes log(1 + exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
