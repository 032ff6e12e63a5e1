package preprocessing

import (
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taipeihouse/core/model"
	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
	"github.com/YuminosukeSato/taipeihouse/pkg/log"
)

// Remainder の設定値
const (
	RemainderPassthrough = "passthrough"
	RemainderDrop        = "drop"
)

// ColumnTransformer は列名でカテゴリ列を選び OneHotEncoder に通し、
// 残りの列を数値としてそのまま後ろに連結する前処理器
//
// 出力列の順序: ワンホットブロック（Categorical の順）→ 残りの列（入力順）
type ColumnTransformer struct {
	model.StateManager

	// Categorical はワンホット化する列名
	Categorical []string

	// Remainder は残りの列の扱い ("passthrough" または "drop")
	Remainder string

	// Encoder は学習済みのエンコーダー
	Encoder *OneHotEncoder

	// FeatureNamesIn は学習時の入力列名
	FeatureNamesIn []string

	// RemainderColumns はそのまま通す列名（入力順）
	RemainderColumns []string
}

// NewColumnTransformer は新しいColumnTransformerを作成する
//
// 使用例:
//
//	ct := preprocessing.NewColumnTransformer([]string{"行政區", "車位類別"}, preprocessing.RemainderPassthrough)
//	X, err := ct.FitTransform(df)
func NewColumnTransformer(categorical []string, remainder string) *ColumnTransformer {
	return &ColumnTransformer{
		Categorical: append([]string(nil), categorical...),
		Remainder:   remainder,
	}
}

var _ model.FrameTransformer = (*ColumnTransformer)(nil)

// Fit はカテゴリ列の語彙を学習し、残りの列を記録する
func (ct *ColumnTransformer) Fit(df dataframe.DataFrame) error {
	if ct.Remainder != RemainderPassthrough && ct.Remainder != RemainderDrop {
		return errors.NewValidationError("remainder", "must be 'passthrough' or 'drop'", ct.Remainder)
	}
	if df.Err != nil {
		return errors.Wrap(df.Err, "ColumnTransformer.Fit")
	}
	if df.Nrow() == 0 {
		return errors.NewModelError("ColumnTransformer.Fit", "empty data", errors.ErrEmptyData)
	}

	names := df.Names()
	if err := requireColumns("ColumnTransformer.Fit", names, ct.Categorical); err != nil {
		return err
	}

	isCat := make(map[string]bool, len(ct.Categorical))
	for _, c := range ct.Categorical {
		isCat[c] = true
	}
	ct.RemainderColumns = ct.RemainderColumns[:0]
	if ct.Remainder == RemainderPassthrough {
		for _, n := range names {
			if !isCat[n] {
				ct.RemainderColumns = append(ct.RemainderColumns, n)
			}
		}
	}
	ct.FeatureNamesIn = append([]string(nil), names...)

	ct.Encoder = NewOneHotEncoder(HandleUnknownIgnore)
	if err := ct.Encoder.Fit(categoricalRows(df, ct.Categorical)); err != nil {
		return err
	}

	nOut := len(ct.Encoder.FeatureNamesOut(nil)) + len(ct.RemainderColumns)
	ct.SetFitted(nOut, df.Nrow())

	log.GetLoggerWithName("preprocessing.column_transformer").Debug("ColumnTransformer fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, df.Nrow(),
		log.FeaturesKey, nOut,
		log.CategoriesKey, ct.Encoder.FeatureNamesOut(ct.Categorical),
	)
	return nil
}

// Transform は学習済みの語彙で DataFrame を数値行列に変換する
// 列は名前で参照するので入力の列順は問わない
func (ct *ColumnTransformer) Transform(df dataframe.DataFrame) (*mat.Dense, error) {
	if err := ct.RequireFitted("ColumnTransformer", "Transform"); err != nil {
		return nil, err
	}
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "ColumnTransformer.Transform")
	}
	if df.Nrow() == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Transform", "empty data", errors.ErrEmptyData)
	}
	names := df.Names()
	if err := requireColumns("ColumnTransformer.Transform", names, ct.Categorical); err != nil {
		return nil, err
	}
	if err := requireColumns("ColumnTransformer.Transform", names, ct.RemainderColumns); err != nil {
		return nil, err
	}

	encoded, err := ct.Encoder.Transform(categoricalRows(df, ct.Categorical))
	if err != nil {
		return nil, err
	}
	_, nEnc := encoded.Dims()

	nRows := df.Nrow()
	nFeatures, _ := ct.GetDimensions()
	out := mat.NewDense(nRows, nFeatures, nil)
	out.Slice(0, nRows, 0, nEnc).(*mat.Dense).Copy(encoded)

	for k, name := range ct.RemainderColumns {
		out.SetCol(nEnc+k, df.Col(name).Float())
	}
	return out, nil
}

// FitTransform はFitとTransformを同時に実行する
func (ct *ColumnTransformer) FitTransform(df dataframe.DataFrame) (*mat.Dense, error) {
	if err := ct.Fit(df); err != nil {
		return nil, err
	}
	return ct.Transform(df)
}

// FeatureNamesOut は変換後の列名を返す
func (ct *ColumnTransformer) FeatureNamesOut() []string {
	if ct.Encoder == nil {
		return nil
	}
	names := ct.Encoder.FeatureNamesOut(ct.Categorical)
	return append(names, ct.RemainderColumns...)
}

// categoricalRows は指定列を行単位の文字列スライスにして返す
func categoricalRows(df dataframe.DataFrame, cols []string) [][]string {
	records := make([][]string, len(cols))
	for j, c := range cols {
		records[j] = df.Col(c).Records()
	}
	rows := make([][]string, df.Nrow())
	for i := range rows {
		row := make([]string, len(cols))
		for j := range cols {
			row[j] = records[j][i]
		}
		rows[i] = row
	}
	return rows
}

func requireColumns(op string, have, want []string) error {
	present := make(map[string]bool, len(have))
	for _, n := range have {
		present[n] = true
	}
	for _, w := range want {
		if !present[w] {
			return errors.Wrap(errors.NewValidationError("columns", "required column not found", w), op)
		}
	}
	return nil
}
