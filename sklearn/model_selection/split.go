// Package model_selection provides dataset splitting utilities.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
)

// DefaultTestSize は既定のテスト比率
const DefaultTestSize = 0.2

// TrainTestSplit は n 個のサンプルをシャッフルして学習用とテスト用の行番号に分ける
//
// テスト件数は ceil(testSize * n)、学習件数は残り全部。
// 同じ seed なら常に同じ分割になる。どちらかが空になる場合はエラーを返す。
//
// 使用例:
//
//	trainIdx, testIdx, err := model_selection.TrainTestSplit(df.Nrow(), 0.2, 42)
//	train := df.Subset(trainIdx)
func TrainTestSplit(n int, testSize float64, seed uint64) (trainIdx, testIdx []int, err error) {
	if testSize <= 0 || testSize >= 1 || math.IsNaN(testSize) {
		return nil, nil, errors.NewValidationError("test_size", "must be in the open interval (0, 1)", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain <= 0 {
		return nil, nil, errors.NewValueError("TrainTestSplit", fmt.Sprintf(
			"with n_samples=%d and test_size=%v the resulting train or test set would be empty", n, testSize))
	}

	rng := rand.New(rand.NewPCG(seed, 0))
	perm := rng.Perm(n)

	testIdx = perm[:nTest]
	trainIdx = perm[nTest:]
	return trainIdx, testIdx, nil
}
