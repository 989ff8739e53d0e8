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
	"github.com/stretchr/testify/assert"
)

func TestNaiveBayes_Fit(t *testing.T) {
	m := NewNaiveBayes()
	m.SetTrainingData(newLensesDataset(t))
	assert.NoError(t, m.Fit(dataset.Lenses))
	assert.Equal(t, []string{dataset.HardLenses, dataset.NoLenses, dataset.SoftLenses}, m.Classes)
	assert.InDelta(t, 3.0/36.0, m.Priors[dataset.HardLenses], 1e-9)
	assert.InDelta(t, 18.0/36.0, m.Priors[dataset.NoLenses], 1e-9)
	assert.InDelta(t, 15.0/36.0, m.Priors[dataset.SoftLenses], 1e-9)

	// 3 hard lenses, all with normal tear rate, 2 tear rates
	assert.InDelta(t, 4.0/5.0, m.Conditionals[dataset.TearRate][dataset.Normal][dataset.HardLenses], 1e-9)
	assert.InDelta(t, 1.0/5.0, m.Conditionals[dataset.TearRate][dataset.Reduced][dataset.HardLenses], 1e-9)
	assert.InDelta(t, 1.0/5.0, m.Fallbacks[dataset.TearRate][dataset.HardLenses], 1e-9)
	// 18 without lenses, 6 per disease, 3 diseases
	assert.InDelta(t, 7.0/21.0, m.Conditionals[dataset.DiseaseName][dataset.Myope][dataset.NoLenses], 1e-9)
	assert.InDelta(t, 1.0/21.0, m.Fallbacks[dataset.DiseaseName][dataset.NoLenses], 1e-9)

	for attribute, conditionals := range m.Conditionals {
		for _, class := range m.Classes {
			sum := 0.0
			for _, probabilities := range conditionals {
				sum += probabilities[class]
			}
			assert.InDelta(t, 1.0, sum, 1e-9, attribute)
			assert.Greater(t, m.Fallbacks[attribute][class], 0.0)
		}
	}
}

func TestNaiveBayes_Predict(t *testing.T) {
	m := NewNaiveBayes()
	m.SetTrainingData(newLensesDataset(t))
	assert.NoError(t, m.Fit(dataset.Lenses))
	prediction, err := m.PredictRow(newRecord("young", "hypermetrope", "no", "reduced"))
	assert.NoError(t, err)
	assert.Equal(t, dataset.NoLenses, prediction)
	prediction, err = m.PredictRow(newRecord("young", "hypermetrope", "no", "normal"))
	assert.NoError(t, err)
	assert.Equal(t, dataset.SoftLenses, prediction)
	// unknown columns are ignored
	withExtra := newRecord("young", "hypermetrope", "no", "normal")
	withExtra["exam_date"] = "2025-01-01"
	scores := m.LogScores(withExtra)
	assert.Equal(t, m.LogScores(newRecord("young", "hypermetrope", "no", "normal")), scores)
	// unseen values use the fallback
	scores = m.LogScores(newRecord("young", "keratoconus", "no", "normal"))
	assert.Len(t, scores, len(m.Classes))
}

func TestNaiveBayes_TieBreak(t *testing.T) {
	d := dataset.NewDataset("a", "label")
	assert.NoError(t, d.Append("x", "2"))
	assert.NoError(t, d.Append("y", "1"))
	m := NewNaiveBayes()
	m.SetTrainingData(d)
	assert.NoError(t, m.Fit("label"))
	// both classes have the same score for an unseen value
	prediction, err := m.PredictRow(dataset.Record{"a": "z"})
	assert.NoError(t, err)
	assert.Equal(t, "2", prediction)
}

func TestNaiveBayes_Idempotent(t *testing.T) {
	m := NewNaiveBayes()
	m.SetTrainingData(newLensesDataset(t))
	assert.NoError(t, m.Fit(dataset.Lenses))
	priors, conditionals, fallbacks := m.Priors, m.Conditionals, m.Fallbacks
	assert.NoError(t, m.Fit(dataset.Lenses))
	assert.Equal(t, priors, m.Priors)
	assert.Equal(t, conditionals, m.Conditionals)
	assert.Equal(t, fallbacks, m.Fallbacks)
}

func TestNaiveBayes_String(t *testing.T) {
	m := NewNaiveBayes()
	assert.Equal(t, "Model not trained.", m.String())
	m.SetTrainingData(newReducedDataset(t))
	assert.NoError(t, m.Fit(dataset.Lenses))
	assert.Equal(t, "NaiveBayes priors for lenses:\n  P(none) = 1.000\n", m.String())
}
