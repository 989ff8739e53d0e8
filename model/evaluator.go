// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// EvaluateHeldOut returns the accuracy of a fitted model on a dataset it was
// not trained on.
func EvaluateHeldOut(m Model, d *dataset.Dataset, target string) (float64, error) {
	table, err := dataset.Normalize(d, target)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if table.Count() == 0 {
		return 0, nil
	}
	targetIndex, _ := table.ColumnIndex(target)
	correct := 0
	for i := 0; i < table.Count(); i++ {
		prediction, err := m.PredictRow(table.Record(i))
		if err != nil {
			return 0, errors.Trace(err)
		}
		if prediction == table.Value(i, targetIndex) {
			correct++
		}
	}
	return float64(correct) / float64(table.Count()), nil
}

// CrossValidationResult holds the accuracy of every fold.
type CrossValidationResult struct {
	Scores []float64
	Mean   float64
	// StdDev is the population standard deviation of Scores.
	StdDev float64
}

// CrossValidate fits a fresh model on each train fold and scores it on the
// matching test fold.
func CrossValidate(factory Factory, split Splitter, d *dataset.Dataset, target string, seed int64) (CrossValidationResult, error) {
	if d == nil {
		return CrossValidationResult{}, errors.Annotate(ErrEmptyDataset, "cannot cross-validate without data")
	}
	trainFolds, testFolds, err := split(d, target, seed)
	if err != nil {
		return CrossValidationResult{}, errors.Trace(err)
	}
	k := len(testFolds)
	result := CrossValidationResult{Scores: make([]float64, k)}
	for fold := 0; fold < k; fold++ {
		m := factory()
		m.SetTrainingData(trainFolds[fold])
		if err = m.Fit(target); err != nil {
			return CrossValidationResult{}, errors.Annotatef(err, "fold %d", fold)
		}
		result.Scores[fold], err = EvaluateHeldOut(m, testFolds[fold], target)
		if err != nil {
			return CrossValidationResult{}, errors.Annotatef(err, "fold %d", fold)
		}
		log.Logger().Debug("cross validation fold",
			zap.Int("fold", fold),
			zap.Int("train", trainFolds[fold].Count()),
			zap.Int("test", testFolds[fold].Count()),
			zap.Float64("accuracy", result.Scores[fold]))
	}
	result.Mean, result.StdDev = stat.PopMeanStdDev(result.Scores, nil)
	return result, nil
}
