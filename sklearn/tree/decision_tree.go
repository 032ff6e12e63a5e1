// Package tree implements CART regression trees stored as flat node arrays.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/taipeihouse/core/model"
	"github.com/YuminosukeSato/taipeihouse/metrics"
	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
)

// LeafNode は葉ノードの Feature に入る値
const LeafNode = -1

// minImpurity 以下のノードは純粋とみなして分割しない
const minImpurity = 1e-12

// Option は DecisionTreeRegressor の設定関数
type Option func(*DecisionTreeRegressor)

// WithMaxDepth は木の最大深さを設定する (0 は無制限)
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MaxDepth = depth }
}

// WithMinSamplesSplit は分割に必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesSplit = n }
}

// WithMinSamplesLeaf は葉に必要な最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesLeaf = n }
}

// WithMaxFeatures は各ノードで評価する特徴量数を設定する (0 は全特徴量)
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MaxFeatures = n }
}

// WithRandomState は特徴量サンプリングの乱数シードを設定する
func WithRandomState(seed uint64) Option {
	return func(dt *DecisionTreeRegressor) { dt.RandomState = seed }
}

// DecisionTreeRegressor は二乗誤差基準のCART回帰木
//
// ノードは配列で保持する。ノード i の子は Left[i], Right[i] で、
// 葉では Feature[i] == LeafNode となり Value[i] が予測値になる。
// 分岐は X[Feature] <= Threshold で左へ進む (NaN は右)。
type DecisionTreeRegressor struct {
	model.StateManager

	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     uint64

	Feature      []int
	Threshold    []float64
	Left         []int
	Right        []int
	Value        []float64
	Impurity     []float64
	NNodeSamples []int

	Importances []float64
}

var _ model.Regressor = (*DecisionTreeRegressor)(nil)

// NewDecisionTreeRegressor は新しい回帰木を作成する
//
// 使用例:
//
//	dt := tree.NewDecisionTreeRegressor(tree.WithMaxDepth(8), tree.WithRandomState(42))
//	err := dt.Fit(X, y)
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// GetParams はハイパーパラメータを返す
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         "squared_error",
		"max_depth":         dt.MaxDepth,
		"min_samples_split": dt.MinSamplesSplit,
		"min_samples_leaf":  dt.MinSamplesLeaf,
		"max_features":      dt.MaxFeatures,
		"random_state":      dt.RandomState,
	}
}

// SetParams はハイパーパラメータを設定する
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "max_depth", "min_samples_split", "min_samples_leaf", "max_features":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be int", value)
			}
			switch key {
			case "max_depth":
				dt.MaxDepth = v
			case "min_samples_split":
				dt.MinSamplesSplit = v
			case "min_samples_leaf":
				dt.MinSamplesLeaf = v
			default:
				dt.MaxFeatures = v
			}
		case "random_state":
			v, ok := value.(uint64)
			if !ok {
				return errors.NewValidationError(key, "must be uint64", value)
			}
			dt.RandomState = v
		case "criterion":
			if value != "squared_error" {
				return errors.NewValidationError(key, "only 'squared_error' is supported", value)
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

func (dt *DecisionTreeRegressor) validate() error {
	if dt.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", dt.MaxDepth)
	}
	if dt.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.MinSamplesSplit)
	}
	if dt.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.MinSamplesLeaf)
	}
	if dt.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", dt.MaxFeatures)
	}
	return nil
}

// Fit は全サンプルで木を学習する
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	rows, _ := X.Dims()
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", 1, yCols, 1)
	}
	if yRows != rows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", rows, yRows, 0)
	}
	target := mat.Col(nil, 0, y)
	samples := make([]int, rows)
	for i := range samples {
		samples[i] = i
	}
	return dt.FitSamples(X, target, samples)
}

// FitSamples は samples で指定した行（重複可）だけを使って木を学習する
// ブートストラップ標本から木を作る際に使う
func (dt *DecisionTreeRegressor) FitSamples(X mat.Matrix, y []float64, samples []int) error {
	if err := dt.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 || len(samples) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(y) != rows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", rows, len(y), 0)
	}
	// 目的変数の NaN は分割の基準を壊す (特徴量の NaN は右に振り分けるので可)
	if err := errors.CheckNumericalStability("DecisionTreeRegressor.Fit", y, 0); err != nil {
		return err
	}

	dt.Reset()
	dt.Feature = dt.Feature[:0]
	dt.Threshold = dt.Threshold[:0]
	dt.Left = dt.Left[:0]
	dt.Right = dt.Right[:0]
	dt.Value = dt.Value[:0]
	dt.Impurity = dt.Impurity[:0]
	dt.NNodeSamples = dt.NNodeSamples[:0]

	b := &builder{
		tree: dt,
		X:    asDense(X),
		y:    y,
		rng:  rand.New(rand.NewPCG(dt.RandomState, dt.RandomState^0x9e3779b97f4a7c15)),
	}
	idx := append([]int(nil), samples...)
	b.build(idx, 0)

	dt.Importances = dt.computeImportances(cols)
	dt.SetFitted(cols, len(samples))
	return nil
}

func asDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}

// builder は学習中だけ使う作業領域
type builder struct {
	tree *DecisionTreeRegressor
	X    *mat.Dense
	y    []float64
	rng  *rand.Rand
}

func (b *builder) addNode(idx []int) int {
	t := b.tree
	ys := make([]float64, len(idx))
	for i, s := range idx {
		ys[i] = b.y[s]
	}
	mean, variance := stat.PopMeanVariance(ys, nil)

	t.Feature = append(t.Feature, LeafNode)
	t.Threshold = append(t.Threshold, 0)
	t.Left = append(t.Left, LeafNode)
	t.Right = append(t.Right, LeafNode)
	t.Value = append(t.Value, mean)
	t.Impurity = append(t.Impurity, variance)
	t.NNodeSamples = append(t.NNodeSamples, len(idx))
	return len(t.Feature) - 1
}

// build は idx のサンプルでノードを作り、分割できれば再帰的に子を作る
func (b *builder) build(idx []int, depth int) int {
	t := b.tree
	node := b.addNode(idx)

	n := len(idx)
	if n < t.MinSamplesSplit || n < 2*t.MinSamplesLeaf ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth) ||
		t.Impurity[node] <= minImpurity {
		return node
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return node
	}

	var left, right []int
	for _, s := range idx {
		if b.X.At(s, feature) <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	t.Feature[node] = feature
	t.Threshold[node] = threshold
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	t.Left[node] = l
	t.Right[node] = r
	return node
}

// candidateFeatures は評価する特徴量を返す
func (b *builder) candidateFeatures() []int {
	_, cols := b.X.Dims()
	k := b.tree.MaxFeatures
	if k <= 0 || k >= cols {
		features := make([]int, cols)
		for j := range features {
			features[j] = j
		}
		return features
	}
	return b.rng.Perm(cols)[:k]
}

// bestSplit は子ノードの二乗誤差の和が最小になる (特徴量, 閾値) を探す
//
// SSE_L + SSE_R の最小化は sum_L²/n_L + sum_R²/n_R の最大化と同値なので、
// ソート済みの値を一度走査するだけで評価できる。
func (b *builder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	minLeaf := b.tree.MinSamplesLeaf

	var total float64
	for _, s := range idx {
		total += b.y[s]
	}

	bestProxy := math.Inf(-1)
	order := make([]int, n)
	for _, f := range b.candidateFeatures() {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool {
			va, vc := b.X.At(order[a], f), b.X.At(order[c], f)
			if math.IsNaN(va) {
				return false
			}
			return math.IsNaN(vc) || va < vc
		})

		var sumLeft float64
		for i := 0; i < n-1; i++ {
			sumLeft += b.y[order[i]]
			nLeft := i + 1
			nRight := n - nLeft
			if nLeft < minLeaf {
				continue
			}
			if nRight < minLeaf {
				break
			}

			cur, next := b.X.At(order[i], f), b.X.At(order[i+1], f)
			if math.IsNaN(cur) {
				break
			}
			var thr float64
			switch {
			case math.IsNaN(next):
				// NaN は常に右側に置く
				thr = cur
			case next > cur:
				thr = (cur + next) / 2
				// 丸めで next と等しくなった場合は cur を使う
				if thr >= next {
					thr = cur
				}
			default:
				continue
			}

			sumRight := total - sumLeft
			proxy := sumLeft*sumLeft/float64(nLeft) + sumRight*sumRight/float64(nRight)
			if proxy > bestProxy {
				bestProxy, feature, threshold, ok = proxy, f, thr, true
			}
		}
	}
	return feature, threshold, ok
}

// computeImportances は不純度減少量を特徴量ごとに合計し、和が1になるよう正規化する
func (dt *DecisionTreeRegressor) computeImportances(nFeatures int) []float64 {
	importances := make([]float64, nFeatures)
	for i, f := range dt.Feature {
		if f == LeafNode {
			continue
		}
		l, r := dt.Left[i], dt.Right[i]
		decrease := float64(dt.NNodeSamples[i])*dt.Impurity[i] -
			float64(dt.NNodeSamples[l])*dt.Impurity[l] -
			float64(dt.NNodeSamples[r])*dt.Impurity[r]
		importances[f] += decrease
	}
	floats.Scale(errors.SafeDivide(1, floats.Sum(importances)), importances)
	return importances
}

// PredictRow は1行分の特徴量に対する予測値を返す
func (dt *DecisionTreeRegressor) PredictRow(row []float64) float64 {
	node := 0
	for dt.Feature[node] != LeafNode {
		if row[dt.Feature[node]] <= dt.Threshold[node] {
			node = dt.Left[node]
		} else {
			node = dt.Right[node]
		}
	}
	return dt.Value[node]
}

// Predict は入力データに対する予測を n×1 の行列で返す
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := dt.RequireFeatures("DecisionTreeRegressor.Predict", cols); err != nil {
		return nil, err
	}

	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, dt.PredictRow(row))
	}
	return out, nil
}

// Score は決定係数 R² を返す
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// FeatureImportances は不純度ベースの特徴量重要度を返す
func (dt *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if err := dt.RequireFitted("DecisionTreeRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), dt.Importances...), nil
}

// GetDepth は木の深さを返す (根だけなら0)
func (dt *DecisionTreeRegressor) GetDepth() int {
	if len(dt.Feature) == 0 {
		return 0
	}
	var depth func(node int) int
	depth = func(node int) int {
		if dt.Feature[node] == LeafNode {
			return 0
		}
		return 1 + max(depth(dt.Left[node]), depth(dt.Right[node]))
	}
	return depth(0)
}

// GetNLeaves は葉の数を返す
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	n := 0
	for _, f := range dt.Feature {
		if f == LeafNode {
			n++
		}
	}
	return n
}

// String はデバッグ用の要約
func (dt *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(nodes=%d, depth=%d, leaves=%d)", len(dt.Feature), dt.GetDepth(), dt.GetNLeaves())
}
