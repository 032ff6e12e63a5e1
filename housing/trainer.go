package housing

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/taipeihouse/config"
	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
	"github.com/YuminosukeSato/taipeihouse/pkg/log"
	"github.com/YuminosukeSato/taipeihouse/preprocessing"
	"github.com/YuminosukeSato/taipeihouse/report"
	"github.com/YuminosukeSato/taipeihouse/sklearn/ensemble"
	"github.com/YuminosukeSato/taipeihouse/sklearn/model_selection"
	"github.com/YuminosukeSato/taipeihouse/sklearn/pipeline"
)

// Result は1回の学習の結果
// PlotPath は散布図を書き出せたときだけ設定される。
type Result struct {
	Evaluation report.Evaluation
	Pipeline   *pipeline.Pipeline
	ModelPath  string
	PlotPath   string
	Dropped    int
}

// Trainer は Load → Filter/Derive → Split → Fit → Evaluate → Persist を順に実行する
// どこかの段階で失敗したらそこで止まり、モデルは保存しない。
type Trainer struct {
	cfg    config.Config
	out    io.Writer
	logger log.Logger
}

// NewTrainer は新しいTrainerを作成する
// out にはコンソール向けの結果 (MAE, R2 Score, 保存先) を書き出す。
func NewTrainer(cfg config.Config, out io.Writer) *Trainer {
	return &Trainer{
		cfg:    cfg,
		out:    out,
		logger: log.GetLoggerWithName("housing.trainer"),
	}
}

// Run は全段階を実行する
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	if err := t.cfg.Validate(); err != nil {
		return nil, err
	}

	// Load
	df, err := runStage(ctx, t, log.StageLoad, func() (dataframe.DataFrame, error) { return Load(t.cfg.DataPath) })
	if err != nil {
		return nil, err
	}
	t.logger.Info("Data loaded", log.StageKey, log.StageLoad, log.PathKey, t.cfg.DataPath, log.SamplesKey, df.Nrow())

	// Filter/Derive
	prepared, err := runStage(ctx, t, log.StageDerive, func() (*Prepared, error) { return Prepare(df) })
	if err != nil {
		return nil, err
	}
	t.logger.Debug("Rows with non-positive building area dropped",
		log.StageKey, log.StageDerive,
		log.DroppedRowsKey, prepared.Dropped,
		log.SamplesKey, prepared.X.Nrow(),
	)

	// Split
	var train, test *Prepared
	_, err = runStage(ctx, t, log.StageSplit, func() (struct{}, error) {
		trainIdx, testIdx, err := model_selection.TrainTestSplit(prepared.X.Nrow(), t.cfg.TestSize, t.cfg.Seed)
		if err != nil {
			return struct{}{}, err
		}
		train, test = prepared.Subset(trainIdx), prepared.Subset(testIdx)
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Info("Data split",
		log.StageKey, log.StageSplit,
		log.TrainSamplesKey, train.X.Nrow(),
		log.TestSamplesKey, test.X.Nrow(),
		log.TestSizeKey, t.cfg.TestSize,
		log.RandomSeedKey, t.cfg.Seed,
	)

	// Fit
	pipe := pipeline.New(
		preprocessing.NewColumnTransformer(CategoricalColumns, preprocessing.RemainderPassthrough),
		ensemble.NewRandomForestRegressor(
			ensemble.WithNEstimators(t.cfg.NEstimators),
			ensemble.WithRandomState(t.cfg.Seed),
			ensemble.WithNJobs(t.cfg.NJobs),
			ensemble.WithProgress(t.cfg.Progress),
		),
	)
	if _, err := runStage(ctx, t, log.StageFit, func() (struct{}, error) { return struct{}{}, pipe.Fit(train.X, train.Y) }); err != nil {
		return nil, err
	}
	t.logImportances(pipe)

	// Evaluate
	var pred *mat.VecDense
	ev, err := runStage(ctx, t, log.StageEvaluate, func() (report.Evaluation, error) {
		var err error
		if pred, err = pipe.Predict(test.X); err != nil {
			return report.Evaluation{}, err
		}
		return report.Evaluate(test.Y, pred, train.X.Nrow())
	})
	if err != nil {
		return nil, err
	}
	t.logger.Info("Evaluation completed",
		log.StageKey, log.StageEvaluate,
		log.MAEKey, ev.MAE,
		log.R2ScoreKey, ev.R2,
		log.RMSEKey, ev.RMSE,
	)
	if _, err := ev.WriteTo(t.out); err != nil {
		return nil, errors.Wrap(err, "failed to write evaluation")
	}

	// Persist
	if _, err := runStage(ctx, t, log.StagePersist, func() (struct{}, error) { return struct{}{}, pipe.Save(t.cfg.ModelPath) }); err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(t.out, "Model saved to %s\n", t.cfg.ModelPath); err != nil {
		return nil, errors.Wrap(err, "failed to write result")
	}

	res := &Result{
		Evaluation: ev,
		Pipeline:   pipe,
		ModelPath:  t.cfg.ModelPath,
		Dropped:    prepared.Dropped,
	}
	// 散布図の失敗は警告のみ
	if t.cfg.PlotPath != "" {
		if err := report.SaveScatter(t.cfg.PlotPath, test.Y, pred); err != nil {
			t.logger.Warn("Scatter plot not written", log.PathKey, t.cfg.PlotPath, log.ErrorTypeKey, err.Error())
		} else {
			res.PlotPath = t.cfg.PlotPath
			t.logger.Info("Scatter plot written", log.PathKey, t.cfg.PlotPath)
		}
	}
	return res, nil
}

// runStage はキャンセルを確認してから fn を実行し、所要時間を記録する
func runStage[T any](ctx context.Context, t *Trainer, name string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, errors.Wrapf(err, "stage %s cancelled", name)
	}
	start := time.Now()
	v, err := fn()
	if err != nil {
		t.logger.Error("Stage failed", err, log.StageKey, name)
		return zero, errors.Wrapf(err, "stage %s failed", name)
	}
	t.logger.Debug("Stage completed", log.StageKey, name, log.DurationMsKey, time.Since(start).Milliseconds())
	return v, nil
}

func (t *Trainer) logImportances(pipe *pipeline.Pipeline) {
	imp, err := pipe.FeatureImportances()
	if err != nil {
		t.logger.Warn("Feature importances unavailable", log.ErrorTypeKey, err.Error())
		return
	}
	names := make([]string, 0, len(imp))
	for name := range imp {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return imp[names[i]] > imp[names[j]] })
	if len(names) > 5 {
		names = names[:5]
	}
	for _, name := range names {
		t.logger.Debug("Feature importance", log.FeaturesKey, name, log.ImportanceKey, imp[name])
	}
}
