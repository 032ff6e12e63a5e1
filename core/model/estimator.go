package model

import (
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1 の行列を返す）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は予測の決定係数 R² を返す
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor は回帰モデルの基本インターフェース
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// FrameTransformer は列名付きの表（DataFrame）を数値行列に変換するインターフェース。
// カテゴリ列を含む生の特徴量を扱う前処理器が実装する。
type FrameTransformer interface {
	// Fit は変換に必要なパラメータ（語彙など）を学習する
	Fit(df dataframe.DataFrame) error

	// Transform はデータを変換する
	Transform(df dataframe.DataFrame) (*mat.Dense, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(df dataframe.DataFrame) (*mat.Dense, error)

	// FeatureNamesOut は変換後の列名を返す
	FeatureNamesOut() []string
}

// Persistable は保存・読み込み可能なモデルのインターフェース
type Persistable interface {
	Save(path string) error
}
