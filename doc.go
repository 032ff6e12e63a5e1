// Package taipeihouse trains a random forest that predicts the total price
// (總價) of Taipei housing listings.
//
// The training run is a fixed sequence of stages:
//
//	Load → Filter/Derive → Split → Fit → Evaluate → Persist
//
// and stops at the first stage that fails. No model is written unless every
// earlier stage succeeded.
//
// # Packages
//
//   - housing: CSV loading, the building-area filter, the 每坪單價 feature and the Trainer
//   - preprocessing: OneHotEncoder and ColumnTransformer over gota DataFrames
//   - sklearn/tree, sklearn/ensemble: CART regression tree and RandomForestRegressor
//   - sklearn/model_selection: seeded TrainTestSplit
//   - sklearn/pipeline: preprocessor + regressor, saved with encoding/gob (optionally xz)
//   - metrics, report: MAE, R², RMSE and the predicted-vs-actual scatter plot
//   - config: flags, environment variables and .env
//   - pkg/errors, pkg/log: error types and structured logging
//
// # Quick Start
//
// Train with the defaults (Taipei_house.csv → taipei_house_price_model.gob):
//
//	go run ./cmd/taipeihouse
//
// Override any setting by flag or TAIPEIHOUSE_* environment variable:
//
//	go run ./cmd/taipeihouse --data data/house.csv --model model.gob.xz --plot scatter.png
//
// Predict with a saved model:
//
//	pipe, err := pipeline.Load("taipei_house_price_model.gob")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pred, err := pipe.Predict(housing.FeatureFrame([]housing.Listing{{
//	    District: "大安區", BuildingArea: 35.2, Parking: "坡道平面", TotalPrice: 2800,
//	}}))
//
// 每坪單價 is derived from 總價, so a prediction needs the price that the
// listing is asking for. See DESIGN.md.
package taipeihouse
