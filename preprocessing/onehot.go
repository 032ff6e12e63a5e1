package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taipeihouse/core/model"
	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
)

// HandleUnknown の設定値
const (
	// HandleUnknownIgnore は未知カテゴリを全て0のブロックとして変換する
	HandleUnknownIgnore = "ignore"
	// HandleUnknownError は未知カテゴリで ValueError を返す
	HandleUnknownError = "error"
)

// OneHotEncoder はscikit-learn互換のワンホットエンコーダー
// カテゴリ列ごとに学習時の値の語彙を持ち、各値を0/1の列ブロックに展開する
type OneHotEncoder struct {
	model.StateManager

	// HandleUnknown は学習時に無かったカテゴリの扱い ("ignore" または "error")
	HandleUnknown string

	// CategoriesPerColumn は列ごとのソート済みカテゴリ
	CategoriesPerColumn [][]string
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewOneHotEncoder(preprocessing.HandleUnknownIgnore)
//	X, err := enc.FitTransform([][]string{{"大安區"}, {"信義區"}})
func NewOneHotEncoder(handleUnknown string) *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: handleUnknown}
}

// Fit は各列のカテゴリ語彙を学習する
//
// パラメータ:
//   - X: n_samples × n_columns の文字列データ
func (e *OneHotEncoder) Fit(X [][]string) error {
	if e.HandleUnknown != HandleUnknownIgnore && e.HandleUnknown != HandleUnknownError {
		return errors.NewValidationError("handle_unknown", "must be 'ignore' or 'error'", e.HandleUnknown)
	}
	if len(X) == 0 || len(X[0]) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	nCols := len(X[0])
	seen := make([]map[string]struct{}, nCols)
	for j := range seen {
		seen[j] = make(map[string]struct{})
	}
	for _, row := range X {
		if len(row) != nCols {
			return errors.NewDimensionError("OneHotEncoder.Fit", nCols, len(row), 1)
		}
		for j, v := range row {
			seen[j][v] = struct{}{}
		}
	}

	e.CategoriesPerColumn = make([][]string, nCols)
	for j, set := range seen {
		cats := make([]string, 0, len(set))
		for v := range set {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.CategoriesPerColumn[j] = cats
	}

	e.SetFitted(nCols, len(X))
	return nil
}

// Transform は学習済みの語彙でデータをワンホット行列に変換する
func (e *OneHotEncoder) Transform(X [][]string) (*mat.Dense, error) {
	if err := e.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	// 列ごとの出力オフセットと値→位置の索引
	offsets := make([]int, len(e.CategoriesPerColumn))
	index := make([]map[string]int, len(e.CategoriesPerColumn))
	width := 0
	for j, cats := range e.CategoriesPerColumn {
		offsets[j] = width
		index[j] = make(map[string]int, len(cats))
		for k, c := range cats {
			index[j][c] = k
		}
		width += len(cats)
	}

	out := mat.NewDense(len(X), width, nil)
	for i, row := range X {
		if err := e.RequireFeatures("OneHotEncoder.Transform", len(row)); err != nil {
			return nil, err
		}
		for j, v := range row {
			k, ok := index[j][v]
			if !ok {
				if e.HandleUnknown == HandleUnknownError {
					return nil, errors.NewValueError("OneHotEncoder.Transform",
						fmt.Sprintf("found unknown category %q in column %d during transform", v, j))
				}
				continue
			}
			out.Set(i, offsets[j]+k, 1)
		}
	}
	return out, nil
}

// FitTransform はFitとTransformを同時に実行する
func (e *OneHotEncoder) FitTransform(X [][]string) (*mat.Dense, error) {
	if err := e.Fit(X); err != nil {
		return nil, err
	}
	return e.Transform(X)
}

// Categories は列ごとの学習済みカテゴリのコピーを返す
func (e *OneHotEncoder) Categories() [][]string {
	out := make([][]string, len(e.CategoriesPerColumn))
	for j, cats := range e.CategoriesPerColumn {
		out[j] = append([]string(nil), cats...)
	}
	return out
}

// FeatureNamesOut は出力列名を "<入力列名>_<カテゴリ>" の形で返す
// inputNames が nil の場合は x0, x1, ... を使う
func (e *OneHotEncoder) FeatureNamesOut(inputNames []string) []string {
	var names []string
	for j, cats := range e.CategoriesPerColumn {
		base := fmt.Sprintf("x%d", j)
		if j < len(inputNames) {
			base = inputNames[j]
		}
		for _, c := range cats {
			names = append(names, base+"_"+c)
		}
	}
	return names
}
