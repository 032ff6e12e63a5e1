// Package pipeline chains the column preprocessor and the regressor into one
// persistable model.
package pipeline

import (
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taipeihouse/core/model"
	"github.com/YuminosukeSato/taipeihouse/metrics"
	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
	"github.com/YuminosukeSato/taipeihouse/pkg/log"
	"github.com/YuminosukeSato/taipeihouse/preprocessing"
	"github.com/YuminosukeSato/taipeihouse/sklearn/ensemble"
)

// Pipeline は preprocessor → regressor の2段構成のモデル
//
// 学習データへの参照は持たないので、そのまま gob で保存できる。
type Pipeline struct {
	Preprocessor *preprocessing.ColumnTransformer
	Regressor    *ensemble.RandomForestRegressor
}

var _ model.Persistable = (*Pipeline)(nil)

// New は新しいPipelineを作成する
//
// 使用例:
//
//	pipe := pipeline.New(
//	    preprocessing.NewColumnTransformer(housing.CategoricalColumns, preprocessing.RemainderPassthrough),
//	    ensemble.NewRandomForestRegressor(ensemble.WithRandomState(42)),
//	)
//	err := pipe.Fit(XTrain, yTrain)
func New(pre *preprocessing.ColumnTransformer, reg *ensemble.RandomForestRegressor) *Pipeline {
	return &Pipeline{Preprocessor: pre, Regressor: reg}
}

// Fit は前処理器を学習データで学習し、変換後の行列で回帰器を学習する
func (p *Pipeline) Fit(X dataframe.DataFrame, y *mat.VecDense) error {
	if p.Preprocessor == nil || p.Regressor == nil {
		return errors.NewValidationError("pipeline", "preprocessor and regressor are required", nil)
	}
	if y == nil || y.Len() != X.Nrow() {
		got := 0
		if y != nil {
			got = y.Len()
		}
		return errors.NewDimensionError("Pipeline.Fit", X.Nrow(), got, 0)
	}

	Xt, err := p.Preprocessor.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "preprocessor fit failed")
	}

	log.GetLoggerWithName("pipeline").Debug("Preprocessing completed",
		log.OperationKey, log.OperationFitTransform,
		log.SamplesKey, X.Nrow(),
		log.FeaturesKey, len(p.Preprocessor.FeatureNamesOut()),
	)

	if err := p.Regressor.Fit(Xt, y); err != nil {
		return errors.Wrap(err, "regressor fit failed")
	}
	return nil
}

// Predict は DataFrame の各行の予測値を返す
func (p *Pipeline) Predict(X dataframe.DataFrame) (*mat.VecDense, error) {
	if p.Preprocessor == nil || p.Regressor == nil {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	Xt, err := p.Preprocessor.Transform(X)
	if err != nil {
		return nil, err
	}
	pred, err := p.Regressor.Predict(Xt)
	if err != nil {
		return nil, err
	}
	return metrics.ToVec(pred)
}

// Score は決定係数 R² を返す
func (p *Pipeline) Score(X dataframe.DataFrame, y *mat.VecDense) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// FeatureImportances は変換後の列名ごとの重要度を返す
func (p *Pipeline) FeatureImportances() (map[string]float64, error) {
	if p.Regressor == nil {
		return nil, errors.NewNotFittedError("Pipeline", "FeatureImportances")
	}
	imp, err := p.Regressor.FeatureImportances()
	if err != nil {
		return nil, err
	}
	names := p.Preprocessor.FeatureNamesOut()
	if len(names) != len(imp) {
		return nil, errors.NewDimensionError("Pipeline.FeatureImportances", len(names), len(imp), 1)
	}
	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = imp[i]
	}
	return out, nil
}

// Save は学習済みパイプラインを保存する (".xz" なら圧縮)
func (p *Pipeline) Save(path string) error {
	if p.Regressor == nil {
		return errors.NewNotFittedError("Pipeline", "Save")
	}
	if err := p.Regressor.RequireFitted("Pipeline", "Save"); err != nil {
		return err
	}
	return model.SaveModel(p, path)
}

// Load は保存済みのパイプラインを読み込む
func Load(path string) (*Pipeline, error) {
	p := &Pipeline{}
	if err := model.LoadModel(p, path); err != nil {
		return nil, err
	}
	if p.Preprocessor == nil || p.Regressor == nil || !p.Regressor.IsFitted() {
		return nil, errors.NewModelError("pipeline.Load", "incomplete model artifact", errors.New(path))
	}
	return p, nil
}
