// Package report evaluates held-out predictions and renders them.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/taipeihouse/metrics"
	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
)

// Evaluation はテスト集合での評価結果
type Evaluation struct {
	MAE    float64
	R2     float64
	RMSE   float64
	NTrain int
	NTest  int
}

// Evaluate はテスト集合の予測を評価する
func Evaluate(yTrue, yPred *mat.VecDense, nTrain int) (Evaluation, error) {
	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "failed to compute MAE")
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "failed to compute R2")
	}
	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "failed to compute RMSE")
	}
	return Evaluation{MAE: mae, R2: r2, RMSE: rmse, NTrain: nTrain, NTest: yTrue.Len()}, nil
}

// WriteTo はコンソール向けの2行 (MAE, R2 Score) を書き出す
func (e Evaluation) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "MAE: %v\nR2 Score: %v\n", e.MAE, e.R2)
	return int64(n), err
}

// SaveScatter は実測値と予測値の散布図を PNG などで保存する
// 拡張子で形式が決まる (.png, .svg, .pdf)。y = x の参照線も描く。
func SaveScatter(path string, yTrue, yPred *mat.VecDense) error {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return errors.NewValueError("SaveScatter", "empty vector")
	}
	if yTrue.Len() != yPred.Len() {
		return errors.NewDimensionError("SaveScatter", yTrue.Len(), yPred.Len(), 0)
	}

	p := plot.New()
	p.Title.Text = "Taipei house price: predicted vs actual"
	p.X.Label.Text = "Actual total price"
	p.Y.Label.Text = "Predicted total price"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, yTrue.Len())
	for i := range pts {
		pts[i].X = yTrue.AtVec(i)
		pts[i].Y = yPred.AtVec(i)
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "failed to build scatter")
	}
	s.Color = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	s.Radius = vg.Points(2)
	p.Add(s)

	lo := math.Min(mat.Min(yTrue), mat.Min(yPred))
	hi := math.Max(mat.Max(yTrue), mat.Max(yPred))
	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "failed to build reference line")
	}
	ref.Color = color.RGBA{R: 255, A: 255}
	ref.LineStyle.Width = vg.Points(1)
	p.Add(ref)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save plot %s", path)
	}
	return nil
}
