// Package log defines standard attribute keys for training operations.
//
// These keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so logs from every stage can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "RandomForestRegressor", "OneHotEncoder", "Pipeline"
	ModelNameKey = "model.name"

	// EstimatorIDKey is a unique identifier for a specific estimator instance.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the training run.
	PhaseKey = "ml.phase"

	// StageKey names the pipeline stage of the training run.
	// Standard values: the Stage* constants below.
	StageKey = "run.stage"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// TrainSamplesKey and TestSamplesKey record the split sizes.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"

	// DroppedRowsKey counts rows removed by the building-area filter.
	DroppedRowsKey = "data.dropped_rows"

	// CategoriesKey records the learned vocabulary size of an encoder.
	CategoriesKey = "data.categories"

	// PathKey is a file path read or written by the run.
	PathKey = "io.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// MAEKey records mean absolute error.
	MAEKey = "metrics.mae"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// R2ScoreKey records R² coefficient of determination for regression.
	// Range typically [-∞, 1.0], with 1.0 being perfect prediction.
	R2ScoreKey = "metrics.r2_score"

	// ImportanceKey records a feature importance value.
	ImportanceKey = "metrics.importance"
)

// Prediction Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	// NEstimatorsKey records the number of trees in an ensemble.
	NEstimatorsKey = "hyperparams.n_estimators"

	// MaxDepthKey records the depth limit of a tree (0 = unlimited).
	MaxDepthKey = "hyperparams.max_depth"

	// NJobsKey records the number of fitting workers.
	NJobsKey = "hyperparams.n_jobs"

	// TestSizeKey records the held-out fraction of the split.
	TestSizeKey = "config.test_size"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	StageLoad     = "load"
	StageDerive   = "derive"
	StageSplit    = "split"
	StageFit      = "fit"
	StageEvaluate = "evaluate"
	StagePersist  = "persist"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
)
