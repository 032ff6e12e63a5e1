package housing

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load は CSV ファイルを読み込む
func Load(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "failed to open data file %s", path)
	}
	defer f.Close()

	df, err := ReadFrame(f)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "failed to read %s", path)
	}
	return df, nil
}

// ReadFrame はヘッダー付き CSV を読み込み、カテゴリ列を文字列、それ以外の既知の列を float として型付けする
// 数値として読めないセルは NaN になる。必須列が無い場合は ValidationError を返す。
func ReadFrame(r io.Reader) (dataframe.DataFrame, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return dataframe.DataFrame{}, errors.Wrap(err, "failed to skip byte order mark")
		}
	}

	types := make(map[string]series.Type, len(CategoricalColumns)+len(NumericColumns))
	for _, c := range CategoricalColumns {
		types[c] = series.String
	}
	for _, c := range NumericColumns {
		types[c] = series.Float
	}

	df := dataframe.ReadCSV(br,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(df.Err, "failed to parse CSV")
	}

	present := make(map[string]bool, df.Ncol())
	for _, n := range df.Names() {
		present[n] = true
	}
	for _, c := range RequiredColumns() {
		if !present[c] {
			return dataframe.DataFrame{}, errors.NewValidationError("columns", "required column not found", c)
		}
	}
	return df, nil
}

// FilterValidArea は建物總面積 > 0 の行だけを残し、落とした行数を返す
// NaN の行も比較が偽になるので落ちる。
func FilterValidArea(df dataframe.DataFrame) (dataframe.DataFrame, int, error) {
	before := df.Nrow()
	filtered := df.Filter(dataframe.F{
		Colname:    BuildingAreaColumn,
		Comparator: series.Greater,
		Comparando: 0.0,
	})
	if filtered.Err != nil {
		return dataframe.DataFrame{}, 0, errors.Wrap(filtered.Err, "failed to filter building area")
	}
	return filtered, before - filtered.Nrow(), nil
}

// DeriveUnitPrice は 每坪單價 = 總價 / 建物總面積 の列を追加する
func DeriveUnitPrice(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	total := df.Col(TotalPriceColumn).Float()
	area := df.Col(BuildingAreaColumn).Float()

	unit := make([]float64, len(total))
	for i := range total {
		unit[i] = total[i] / area[i]
	}

	out := df.Mutate(series.New(unit, series.Float, UnitPriceColumn))
	if out.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(out.Err, "failed to add unit price column")
	}
	return out, nil
}

// Prepared はフィルタと派生列の追加を終えたデータ
type Prepared struct {
	// X は FeatureColumns の順に並んだ特徴量
	X dataframe.DataFrame
	// Y は目的変数 總價
	Y *mat.VecDense
	// Dropped は建物總面積が正でないために落とした行数
	Dropped int
}

// Prepare は FilterValidArea と DeriveUnitPrice を順に適用し、特徴量と目的変数に分ける
func Prepare(df dataframe.DataFrame) (*Prepared, error) {
	filtered, dropped, err := FilterValidArea(df)
	if err != nil {
		return nil, err
	}
	if filtered.Nrow() == 0 {
		return nil, errors.NewModelError("housing.Prepare", "no rows with positive building area", errors.ErrEmptyData)
	}

	derived, err := DeriveUnitPrice(filtered)
	if err != nil {
		return nil, err
	}

	X := derived.Select(FeatureColumns)
	if X.Err != nil {
		return nil, errors.Wrap(X.Err, "failed to select feature columns")
	}
	y := derived.Col(TotalPriceColumn).Float()

	return &Prepared{
		X:       X,
		Y:       mat.NewVecDense(len(y), y),
		Dropped: dropped,
	}, nil
}

// Subset は行番号で Prepared の一部を取り出す
func (p *Prepared) Subset(rows []int) *Prepared {
	y := make([]float64, len(rows))
	for i, r := range rows {
		y[i] = p.Y.AtVec(r)
	}
	return &Prepared{
		X: p.X.Subset(rows),
		Y: mat.NewVecDense(len(y), y),
	}
}
