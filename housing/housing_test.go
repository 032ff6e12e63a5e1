package housing

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/taipeihouse/config"
	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
	"github.com/YuminosukeSato/taipeihouse/sklearn/model_selection"
	"github.com/YuminosukeSato/taipeihouse/sklearn/pipeline"
)

const header = "行政區,土地面積,建物總面積,屋齡,樓層,總樓層,房數,廳數,衛數,電梯,車位類別,經度,緯度,總價"

// sampleCSV は建物總面積が [30, 40, 0, 50, 60, ..., 110] の10行
func sampleCSV() string {
	areas := []float64{30, 40, 0, 50, 60, 70, 80, 90, 100, 110}
	districts := []string{"大安區", "信義區", "中山區"}
	parking := []string{"無", "坡道平面", "機械"}

	var b strings.Builder
	b.WriteString(header + "\n")
	for i, a := range areas {
		price := 60*a + float64(i*10)
		fmt.Fprintf(&b, "%s,%g,%g,%d,%d,%d,%d,%d,%d,%d,%s,%g,%g,%g\n",
			districts[i%3], a/4, a, 5+i, 1+i%7, 12, 1+i%4, 1, 1+i%2, i%2, parking[i%3],
			121.5+float64(i)*0.001, 25.0+float64(i)*0.001, price)
	}
	return b.String()
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Taipei_house.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFrame(t *testing.T) {
	df, err := ReadFrame(strings.NewReader(sampleCSV()))
	require.NoError(t, err)
	assert.Equal(t, 10, df.Nrow())
	assert.Equal(t, 14, df.Ncol())
	assert.Equal(t, "大安區", df.Col(DistrictColumn).Records()[0])
	assert.Equal(t, 2410.0, df.Col(TotalPriceColumn).Float()[1])
}

func TestReadFrame_ByteOrderMark(t *testing.T) {
	df, err := ReadFrame(strings.NewReader("\xEF\xBB\xBF" + sampleCSV()))
	require.NoError(t, err)
	assert.Equal(t, DistrictColumn, df.Names()[0])
}

func TestReadFrame_MissingColumn(t *testing.T) {
	content := strings.Replace(sampleCSV(), "車位類別", "停車", 1)
	_, err := ReadFrame(strings.NewReader(content))

	var valErr *errors.ValidationError
	require.True(t, errors.As(err, &valErr), "got %v", err)
	assert.Equal(t, ParkingColumn, valErr.Value)
}

func TestReadFrame_UnparsableNumberBecomesNaN(t *testing.T) {
	content := header + "\n大安區,10,abc,5,3,12,2,1,1,1,無,121.5,25.0,1000\n"
	df, err := ReadFrame(strings.NewReader(content))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(df.Col(BuildingAreaColumn).Float()[0]))

	// NaN の行はフィルタで落ちる
	_, dropped, err := FilterValidArea(df)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorContains(t, err, "failed to open data file")
}

func TestPrepare(t *testing.T) {
	df, err := ReadFrame(strings.NewReader(sampleCSV()))
	require.NoError(t, err)

	p, err := Prepare(df)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Dropped)
	assert.Equal(t, 9, p.X.Nrow())
	assert.Equal(t, FeatureColumns, p.X.Names())
	assert.Equal(t, 9, p.Y.Len())

	areas := p.X.Col(BuildingAreaColumn).Float()
	units := p.X.Col(UnitPriceColumn).Float()
	for i, a := range areas {
		assert.Greater(t, a, 0.0, "row %d", i)
		assert.InDelta(t, p.Y.AtVec(i)/a, units[i], 1e-9, "row %d", i)
	}
}

func TestPrepare_NoValidRows(t *testing.T) {
	content := header + "\n大安區,10,0,5,3,12,2,1,1,1,無,121.5,25.0,1000\n"
	df, err := ReadFrame(strings.NewReader(content))
	require.NoError(t, err)

	_, err = Prepare(df)
	assert.Error(t, err)
}

func TestFeatureFrame(t *testing.T) {
	df := FeatureFrame([]Listing{{
		District: "大安區", BuildingArea: 40, Parking: "無", TotalPrice: 2000,
	}})
	assert.Equal(t, FeatureColumns, df.Names())
	assert.Equal(t, 50.0, df.Col(UnitPriceColumn).Float()[0])
	assert.Equal(t, "大安區", df.Col(DistrictColumn).Records()[0])
}

func testConfig(t *testing.T, dataPath string) config.Config {
	cfg := config.Default()
	cfg.DataPath = dataPath
	cfg.ModelPath = filepath.Join(t.TempDir(), "model.gob")
	cfg.NEstimators = 20
	return cfg
}

func TestTrainer_EndToEnd(t *testing.T) {
	cfg := testConfig(t, writeCSV(t, sampleCSV()))

	var out bytes.Buffer
	res, err := NewTrainer(cfg, &out).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 7, res.Evaluation.NTrain)
	assert.Equal(t, 2, res.Evaluation.NTest)
	assert.False(t, math.IsNaN(res.Evaluation.MAE) || math.IsInf(res.Evaluation.MAE, 0))
	assert.False(t, math.IsNaN(res.Evaluation.R2) || math.IsInf(res.Evaluation.R2, 0))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "MAE: "))
	assert.True(t, strings.HasPrefix(lines[1], "R2 Score: "))
	assert.Equal(t, "Model saved to "+cfg.ModelPath, lines[2])

	// 保存したモデルを読み込んで1行を予測できる
	loaded, err := pipeline.Load(cfg.ModelPath)
	require.NoError(t, err)
	pred, err := loaded.Predict(FeatureFrame([]Listing{{
		District: "大安區", LandArea: 10, BuildingArea: 45, Age: 8, Floor: 3, TotalFloors: 12,
		Rooms: 2, Halls: 1, Bathrooms: 1, Elevator: 1, Parking: "無",
		Longitude: 121.5, Latitude: 25.0, TotalPrice: 2700,
	}}))
	require.NoError(t, err)
	assert.Equal(t, 1, pred.Len())
	assert.False(t, math.IsNaN(pred.AtVec(0)))
}

func TestTrainer_UnknownCategoryAtPredict(t *testing.T) {
	cfg := testConfig(t, writeCSV(t, sampleCSV()))
	res, err := NewTrainer(cfg, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	pred, err := res.Pipeline.Predict(FeatureFrame([]Listing{{
		District: "萬華區", BuildingArea: 45, Parking: "塔式車位", TotalPrice: 2700,
	}}))
	require.NoError(t, err)
	assert.False(t, math.IsNaN(pred.AtVec(0)))
}

func TestTrainer_TrainScoreAtLeastTestScore(t *testing.T) {
	// ノイズの少ない大きめのデータ
	var b strings.Builder
	b.WriteString(header + "\n")
	districts := []string{"大安區", "信義區", "中山區", "北投區"}
	for i := 0; i < 200; i++ {
		area := 20 + float64(i%50)*2
		age := float64(i % 40)
		price := area*(70-age/2) + float64((i*37)%11)
		fmt.Fprintf(&b, "%s,%g,%g,%g,3,12,2,1,1,1,無,121.5,25.0,%g\n",
			districts[i%4], area/4, area, age, price)
	}
	cfg := testConfig(t, writeCSV(t, b.String()))

	res, err := NewTrainer(cfg, &bytes.Buffer{}).Run(context.Background())
	require.NoError(t, err)

	df, err := Load(cfg.DataPath)
	require.NoError(t, err)
	prepared, err := Prepare(df)
	require.NoError(t, err)

	trainIdx, _, err := model_selection.TrainTestSplit(prepared.X.Nrow(), cfg.TestSize, cfg.Seed)
	require.NoError(t, err)
	train := prepared.Subset(trainIdx)

	trainR2, err := res.Pipeline.Score(train.X, train.Y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, trainR2, res.Evaluation.R2)
	assert.Greater(t, res.Evaluation.R2, 0.5)
}

func TestTrainer_FailFast(t *testing.T) {
	t.Run("missing data file", func(t *testing.T) {
		cfg := testConfig(t, filepath.Join(t.TempDir(), "absent.csv"))
		var out bytes.Buffer
		_, err := NewTrainer(cfg, &out).Run(context.Background())
		assert.ErrorContains(t, err, "stage load failed")
		assert.Zero(t, out.Len())
		_, statErr := os.Stat(cfg.ModelPath)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("unwritable model path", func(t *testing.T) {
		cfg := testConfig(t, writeCSV(t, sampleCSV()))
		cfg.ModelPath = filepath.Join(t.TempDir(), "no", "such", "dir", "model.gob")
		var out bytes.Buffer
		_, err := NewTrainer(cfg, &out).Run(context.Background())
		assert.ErrorContains(t, err, "stage persist failed")
		// 評価は表示済み、保存メッセージは無い
		assert.Contains(t, out.String(), "MAE: ")
		assert.NotContains(t, out.String(), "Model saved")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cfg := testConfig(t, writeCSV(t, sampleCSV()))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewTrainer(cfg, &bytes.Buffer{}).Run(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestTrainer_ScatterPlot(t *testing.T) {
	t.Run("written after the model", func(t *testing.T) {
		cfg := testConfig(t, writeCSV(t, sampleCSV()))
		cfg.PlotPath = filepath.Join(t.TempDir(), "scatter.png")

		res, err := NewTrainer(cfg, &bytes.Buffer{}).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, cfg.PlotPath, res.PlotPath)
		assert.FileExists(t, cfg.PlotPath)
		assert.FileExists(t, cfg.ModelPath)
	})

	t.Run("unwritable plot path keeps the saved model", func(t *testing.T) {
		cfg := testConfig(t, writeCSV(t, sampleCSV()))
		cfg.PlotPath = filepath.Join(t.TempDir(), "no", "such", "dir", "scatter.png")

		var out bytes.Buffer
		res, err := NewTrainer(cfg, &out).Run(context.Background())
		require.NoError(t, err)
		assert.Empty(t, res.PlotPath)
		assert.FileExists(t, cfg.ModelPath)
		assert.Contains(t, out.String(), "Model saved to "+cfg.ModelPath)

		_, err = pipeline.Load(cfg.ModelPath)
		assert.NoError(t, err)
	})
}
