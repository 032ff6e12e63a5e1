// Package ensemble provides bagged tree ensembles.
package ensemble

import (
	"math/rand/v2"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taipeihouse/core/model"
	"github.com/YuminosukeSato/taipeihouse/core/parallel"
	"github.com/YuminosukeSato/taipeihouse/metrics"
	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
	"github.com/YuminosukeSato/taipeihouse/pkg/log"
	"github.com/YuminosukeSato/taipeihouse/sklearn/tree"
)

// DefaultNEstimators はscikit-learnと同じ既定の木の本数
const DefaultNEstimators = 100

// predictParallelThreshold 行以下の予測は呼び出し元のゴルーチンで行う
const predictParallelThreshold = 64

// RandomForestRegressor はブートストラップ標本で学習した回帰木の平均で予測する
//
// 各木のシードは RandomState から作った1つの PCG 系列から順に引くので、
// 並列度 (NJobs) を変えても結果は同じになる。
type RandomForestRegressor struct {
	model.StateManager

	// ID はログに付与する識別子
	ID string

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures は各分割で評価する特徴量数 (0 は全特徴量)
	MaxFeatures int
	Bootstrap   bool
	RandomState uint64

	// NJobs は木を学習するワーカー数 (0 以下で CPU コア数)
	NJobs int
	// ShowProgress が true なら標準エラーに進捗バーを出す
	ShowProgress bool

	Estimators  []*tree.DecisionTreeRegressor
	Importances []float64
}

var _ model.Regressor = (*RandomForestRegressor)(nil)

// Option は RandomForestRegressor の設定関数
type Option func(*RandomForestRegressor)

// WithNEstimators は木の本数を設定する
func WithNEstimators(n int) Option {
	return func(rf *RandomForestRegressor) { rf.NEstimators = n }
}

// WithMaxDepth は各木の最大深さを設定する (0 は無制限)
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestRegressor) { rf.MaxDepth = depth }
}

// WithMinSamplesLeaf は葉の最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MinSamplesLeaf = n }
}

// WithMaxFeatures は分割ごとに評価する特徴量数を設定する
func WithMaxFeatures(n int) Option {
	return func(rf *RandomForestRegressor) { rf.MaxFeatures = n }
}

// WithBootstrap はブートストラップ標本を使うかどうかを設定する
func WithBootstrap(b bool) Option {
	return func(rf *RandomForestRegressor) { rf.Bootstrap = b }
}

// WithRandomState は乱数シードを設定する
func WithRandomState(seed uint64) Option {
	return func(rf *RandomForestRegressor) { rf.RandomState = seed }
}

// WithNJobs は並列ワーカー数を設定する
func WithNJobs(n int) Option {
	return func(rf *RandomForestRegressor) { rf.NJobs = n }
}

// WithProgress は進捗バー表示を設定する
func WithProgress(show bool) Option {
	return func(rf *RandomForestRegressor) { rf.ShowProgress = show }
}

// NewRandomForestRegressor は新しいランダムフォレストを作成する
//
// 使用例:
//
//	rf := ensemble.NewRandomForestRegressor(
//	    ensemble.WithNEstimators(100),
//	    ensemble.WithRandomState(42),
//	)
//	err := rf.Fit(X, y)
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{
		ID:              uuid.NewString(),
		NEstimators:     DefaultNEstimators,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		NJobs:           -1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

func (rf *RandomForestRegressor) logger() log.Logger {
	return log.GetLoggerWithName("ensemble.random_forest").With(
		log.ModelNameKey, "RandomForestRegressor",
		log.EstimatorIDKey, rf.ID,
	)
}

// Fit はフォレストを学習する
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if rf.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.NEstimators)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("RandomForestRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestRegressor.Fit", 1, yCols, 1)
	}
	if yRows != rows {
		return errors.NewDimensionError("RandomForestRegressor.Fit", rows, yRows, 0)
	}

	logger := rf.logger()
	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.NEstimatorsKey, rf.NEstimators,
		log.MaxDepthKey, rf.MaxDepth,
		log.NJobsKey, rf.NJobs,
		log.RandomSeedKey, rf.RandomState,
	)
	start := time.Now()

	target := mat.Col(nil, 0, y)
	if err := errors.CheckNumericalStability("RandomForestRegressor.Fit", target, 0); err != nil {
		return err
	}

	rf.Reset()
	Xd := mat.DenseCopyOf(X)

	// 木ごとのシードを先に決めておく
	rng := rand.New(rand.NewPCG(rf.RandomState, 0))
	seeds := make([]uint64, rf.NEstimators)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	var bar *pb.ProgressBar
	if rf.ShowProgress {
		bar = pb.StartNew(rf.NEstimators)
	}

	estimators := make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	errs := make([]error, rf.NEstimators)
	parallel.ParallelizeN(rf.NEstimators, rf.NJobs, func(startIdx, endIdx int) {
		for i := startIdx; i < endIdx; i++ {
			// ワーカー内の panic は呼び出し側の Recover に届かないのでここで捕まえる
			errs[i] = errors.SafeExecute("RandomForestRegressor.fitTree", func() error {
				est, err := rf.fitTree(Xd, target, seeds[i])
				estimators[i] = est
				return err
			})
			if bar != nil {
				bar.Increment()
			}
		}
	})
	if bar != nil {
		bar.Finish()
	}
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "failed to fit tree %d", i)
		}
	}

	rf.Estimators = estimators
	rf.Importances = rf.computeImportances(cols)
	rf.SetFitted(cols, rows)

	logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fitTree は1本の木をブートストラップ標本で学習する
func (rf *RandomForestRegressor) fitTree(X *mat.Dense, y []float64, seed uint64) (*tree.DecisionTreeRegressor, error) {
	n := len(y)
	samples := make([]int, n)
	if rf.Bootstrap {
		rng := rand.New(rand.NewPCG(seed, seed>>1))
		for i := range samples {
			samples[i] = rng.IntN(n)
		}
	} else {
		for i := range samples {
			samples[i] = i
		}
	}

	dt := tree.NewDecisionTreeRegressor(
		tree.WithMaxDepth(rf.MaxDepth),
		tree.WithMinSamplesSplit(rf.MinSamplesSplit),
		tree.WithMinSamplesLeaf(rf.MinSamplesLeaf),
		tree.WithMaxFeatures(rf.MaxFeatures),
		tree.WithRandomState(seed),
	)
	if err := dt.FitSamples(X, y, samples); err != nil {
		return nil, err
	}
	return dt, nil
}

// computeImportances は各木の重要度の平均を正規化して返す
func (rf *RandomForestRegressor) computeImportances(nFeatures int) []float64 {
	importances := make([]float64, nFeatures)
	for _, est := range rf.Estimators {
		floats.Add(importances, est.Importances)
	}
	floats.Scale(errors.SafeDivide(1, floats.Sum(importances)), importances)
	return importances
}

// Predict は全ての木の予測の平均を n×1 の行列で返す
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.NewModelError("RandomForestRegressor.Predict", "empty data", errors.ErrEmptyData)
	}
	if err := rf.RequireFeatures("RandomForestRegressor.Predict", cols); err != nil {
		return nil, err
	}

	Xd := mat.DenseCopyOf(X)
	out := make([]float64, rows)
	nTrees := float64(len(rf.Estimators))
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, rf.NJobs, func(startIdx, endIdx int) {
		for i := startIdx; i < endIdx; i++ {
			row := Xd.RawRowView(i)
			var sum float64
			for _, est := range rf.Estimators {
				sum += est.PredictRow(row)
			}
			out[i] = sum / nTrees
		}
	})

	rf.logger().Debug("Prediction completed",
		log.OperationKey, log.OperationPredict,
		log.PredsKey, rows,
	)
	return mat.NewDense(rows, 1, out), nil
}

// Score は決定係数 R² を返す
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// FeatureImportances は不純度ベースの特徴量重要度（木の平均）を返す
func (rf *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if err := rf.RequireFitted("RandomForestRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), rf.Importances...), nil
}
