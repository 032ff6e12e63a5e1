package pipeline

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taipeihouse/preprocessing"
	"github.com/YuminosukeSato/taipeihouse/sklearn/ensemble"
)

// sampleData は地区ごとに価格水準が違う小さなデータ
func sampleData() (dataframe.DataFrame, *mat.VecDense) {
	districts := []string{"大安區", "信義區", "北投區", "大安區", "信義區", "北投區", "大安區", "信義區", "北投區", "大安區", "信義區", "北投區"}
	base := map[string]float64{"大安區": 80, "信義區": 70, "北投區": 40}

	area := make([]float64, len(districts))
	price := make([]float64, len(districts))
	for i, d := range districts {
		area[i] = float64(20 + 5*i)
		price[i] = base[d] * area[i]
	}

	df := dataframe.New(
		series.New(districts, series.String, "行政區"),
		series.New(area, series.Float, "建物總面積"),
	)
	return df, mat.NewVecDense(len(price), price)
}

func newPipeline() *Pipeline {
	return New(
		preprocessing.NewColumnTransformer([]string{"行政區"}, preprocessing.RemainderPassthrough),
		ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(10), ensemble.WithRandomState(42)),
	)
}

func TestPipeline_FitPredict(t *testing.T) {
	X, y := sampleData()
	pipe := newPipeline()

	require.NoError(t, pipe.Fit(X, y))

	pred, err := pipe.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, X.Nrow(), pred.Len())

	score, err := pipe.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.5)

	imp, err := pipe.FeatureImportances()
	require.NoError(t, err)
	assert.Len(t, imp, 4)
	assert.Contains(t, imp, "建物總面積")
}

func TestPipeline_UnknownCategory(t *testing.T) {
	X, y := sampleData()
	pipe := newPipeline()
	require.NoError(t, pipe.Fit(X, y))

	unseen := dataframe.New(
		series.New([]string{"萬華區"}, series.String, "行政區"),
		series.New([]float64{35}, series.Float, "建物總面積"),
	)
	pred, err := pipe.Predict(unseen)
	require.NoError(t, err)
	assert.Equal(t, 1, pred.Len())
	assert.False(t, math.IsNaN(pred.AtVec(0)))
}

func TestPipeline_SaveLoad(t *testing.T) {
	X, y := sampleData()
	pipe := newPipeline()
	require.NoError(t, pipe.Fit(X, y))

	want, err := pipe.Predict(X)
	require.NoError(t, err)

	for _, name := range []string{"model.gob", "model.gob.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, pipe.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)

			got, err := loaded.Predict(X)
			require.NoError(t, err)
			assert.True(t, mat.Equal(got, want), "reloaded model predicts differently")
			assert.Equal(t, pipe.Preprocessor.FeatureNamesOut(), loaded.Preprocessor.FeatureNamesOut())
		})
	}
}

func TestPipeline_Errors(t *testing.T) {
	X, y := sampleData()

	pipe := newPipeline()
	_, err := pipe.Predict(X)
	assert.Error(t, err, "Predict before Fit should fail")
	assert.Error(t, pipe.Save(filepath.Join(t.TempDir(), "m.gob")), "Save before Fit should fail")

	err = pipe.Fit(X, mat.NewVecDense(3, nil))
	assert.ErrorContains(t, err, "dimension mismatch")

	assert.Error(t, New(nil, nil).Fit(X, y))

	_, err = Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.ErrorContains(t, err, "failed to open model file")
}
