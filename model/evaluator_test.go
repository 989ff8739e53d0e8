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
	"testing"

	"github.com/gorse-io/medknow/dataset"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

func TestEvaluateHeldOut(t *testing.T) {
	m := NewOneRule()
	_, err := EvaluateHeldOut(m, newLensesDataset(t), dataset.Lenses)
	assert.True(t, errors.Is(err, ErrNotFitted))

	m.SetTrainingData(newLensesDataset(t))
	assert.NoError(t, m.Fit(dataset.Lenses))
	accuracy, err := EvaluateHeldOut(m, newReducedDataset(t), dataset.Lenses)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, accuracy)
	accuracy, err = EvaluateHeldOut(m, newLensesDataset(t), dataset.Lenses)
	assert.NoError(t, err)
	assert.InDelta(t, 33.0/36.0, accuracy, 1e-9)

	accuracy, err = EvaluateHeldOut(m, dataset.NewExaminationDataset(), dataset.Lenses)
	assert.NoError(t, err)
	assert.Zero(t, accuracy)
	_, err = EvaluateHeldOut(m, dataset.NewDataset(dataset.FeatureColumns...), dataset.Lenses)
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestEvaluateHeldOut_Split(t *testing.T) {
	train, test, err := dataset.Split(newLensesDataset(t), 0.25, 0)
	assert.NoError(t, err)
	for _, m := range newModels() {
		m.SetTrainingData(train)
		assert.NoError(t, m.Fit(dataset.Lenses))
		accuracy, err := EvaluateHeldOut(m, test, dataset.Lenses)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, accuracy, 0.0)
		assert.LessOrEqual(t, accuracy, 1.0)
	}
}

func TestCrossValidate(t *testing.T) {
	d := newLensesDataset(t)
	for _, name := range Names {
		factory, err := NewFactory(name)
		assert.NoError(t, err)
		result, err := CrossValidate(factory, NewStratifiedKFoldSplitter(3), d, dataset.Lenses, 42)
		assert.NoError(t, err)
		assert.Len(t, result.Scores, 3)
		for _, score := range result.Scores {
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
		mean, std := stat.PopMeanStdDev(result.Scores, nil)
		assert.InDelta(t, mean, result.Mean, 1e-9)
		assert.InDelta(t, std, result.StdDev, 1e-9)

		// deterministic
		again, err := CrossValidate(factory, NewStratifiedKFoldSplitter(3), d, dataset.Lenses, 42)
		assert.NoError(t, err)
		assert.Equal(t, result, again)
	}
}

func TestCrossValidate_OneRule(t *testing.T) {
	// every train fold keeps the tear rate rules
	factory, _ := NewFactory(OneRuleName)
	result, err := CrossValidate(factory, NewStratifiedKFoldSplitter(3), newLensesDataset(t), dataset.Lenses, 0)
	assert.NoError(t, err)
	assert.Equal(t, []float64{11.0 / 12.0, 11.0 / 12.0, 11.0 / 12.0}, result.Scores)
	assert.InDelta(t, 11.0/12.0, result.Mean, 1e-9)
	assert.InDelta(t, 0, result.StdDev, 1e-9)
}

func TestCrossValidate_Invalid(t *testing.T) {
	factory, _ := NewFactory(ID3Name)
	d := newReducedDataset(t)
	_, err := CrossValidate(factory, NewStratifiedKFoldSplitter(1), d, dataset.Lenses, 0)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = CrossValidate(factory, NewKFoldSplitter(6), d, dataset.Lenses, 0)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = CrossValidate(factory, NewStratifiedKFoldSplitter(2), d, "label", 0)
	assert.True(t, errors.Is(err, ErrSchema))
	_, err = CrossValidate(factory, NewStratifiedKFoldSplitter(2), nil, dataset.Lenses, 0)
	assert.True(t, errors.Is(err, ErrEmptyDataset))
}

func TestCrossValidate_KFold(t *testing.T) {
	factory, _ := NewFactory(NaiveBayesName)
	split, err := NewSplitter(KFold, 4)
	assert.NoError(t, err)
	result, err := CrossValidate(factory, split, newLensesDataset(t), dataset.Lenses, 7)
	assert.NoError(t, err)
	assert.Len(t, result.Scores, 4)
	again, err := CrossValidate(factory, split, newLensesDataset(t), dataset.Lenses, 7)
	assert.NoError(t, err)
	assert.Equal(t, result, again)
}
