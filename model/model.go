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
	"fmt"

	"github.com/gorse-io/medknow/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

const (
	ErrNotFitted    = errors.ConstError("model was not trained, use Fit() first")
	ErrEmptyDataset = errors.ConstError("empty dataset")
	ErrSchema       = dataset.ErrSchema
)

// Model is the interface for all classifiers. Any model in this package
// should implement it.
type Model interface {
	// SetTrainingData sets the dataset used by Fit. The model keeps its own copy.
	SetTrainingData(d *dataset.Dataset)
	// Fit trains the model to predict the target column. Fitting again
	// replaces all previous state.
	Fit(target string) error
	// PredictRow predicts the target of a row.
	PredictRow(row dataset.Record) (string, error)
	// Score returns the accuracy on the training data.
	Score() (float64, error)
	// IsFitted returns true if Fit has completed.
	IsFitted() bool
	// GetTarget returns the target column.
	GetTarget() string
	// GetDefaultClass returns the majority class of the training data.
	GetDefaultClass() string
	// String renders the learned rules.
	fmt.Stringer
}

// BaseModel holds the training data and the state shared by every model.
type BaseModel struct {
	data         *dataset.Dataset
	table        *dataset.Table
	target       string
	targetIndex  int
	features     []string
	defaultClass string
	fitted       bool
}

func (m *BaseModel) SetTrainingData(d *dataset.Dataset) {
	if d == nil {
		m.data = nil
		return
	}
	m.data = d.Copy()
}

func (m *BaseModel) IsFitted() bool {
	return m.fitted
}

func (m *BaseModel) GetTarget() string {
	return m.target
}

func (m *BaseModel) GetDefaultClass() string {
	return m.defaultClass
}

// GetFeatures returns non-target columns in column order.
func (m *BaseModel) GetFeatures() []string {
	return append([]string(nil), m.features...)
}

// prepare normalizes the training data and resets the shared state. The
// model stays unfit until the caller sets fitted.
func (m *BaseModel) prepare(target string) (*dataset.Table, error) {
	m.fitted = false
	if m.data == nil {
		return nil, errors.Annotate(ErrEmptyDataset, "model has no data loaded, use SetTrainingData() first")
	}
	table, err := dataset.Normalize(m.data, target)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if table.Count() == 0 {
		return nil, errors.Annotate(ErrEmptyDataset, "cannot fit on zero rows")
	}
	m.table = table
	m.target = target
	m.targetIndex, _ = table.ColumnIndex(target)
	m.features = lo.Filter(table.Columns(), func(column string, _ int) bool {
		return column != target
	})
	m.defaultClass, _ = majority(table, lo.Range(table.Count()), m.targetIndex)
	return table, nil
}

// accuracy returns the fraction of training rows predicted correctly.
func (m *BaseModel) accuracy(predict func(dataset.Record) string) float64 {
	if m.table.Count() == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < m.table.Count(); i++ {
		if predict(m.table.Record(i)) == m.table.Value(i, m.targetIndex) {
			correct++
		}
	}
	return float64(correct) / float64(m.table.Count())
}

// majority returns the most frequent value of column j among rows. Ties go
// to the value seen first.
func majority(table *dataset.Table, rows []int, j int) (string, bool) {
	counts := dataset.NewFreqDict()
	for _, i := range rows {
		counts.Id(table.Value(i, j))
	}
	return counts.Majority()
}

// RecordFromValues builds a row from the fields of the prediction form.
func RecordFromValues(ageGroup, diseaseName string, astigmatic bool, tearRate string) dataset.Record {
	return dataset.NormalizeRecord(map[string]any{
		dataset.AgeGroup:    ageGroup,
		dataset.DiseaseName: diseaseName,
		dataset.Astigmatic:  astigmatic,
		dataset.TearRate:    tearRate,
	})
}

const (
	OneRuleName    = "1r"
	ID3Name        = "id3"
	NaiveBayesName = "naive_bayes"
)

// Names of all models in display order.
var Names = []string{OneRuleName, ID3Name, NaiveBayesName}

// DisplayName returns the human readable name of a model.
func DisplayName(name string) string {
	switch name {
	case OneRuleName:
		return "1R"
	case ID3Name:
		return "ID3"
	case NaiveBayesName:
		return "NaiveBayes"
	default:
		return name
	}
}

// Factory creates fresh, unfit models.
type Factory func() Model

// NewFactory returns the factory of a model by name.
func NewFactory(name string) (Factory, error) {
	switch name {
	case OneRuleName:
		return func() Model { return NewOneRule() }, nil
	case ID3Name:
		return func() Model { return NewID3() }, nil
	case NaiveBayesName:
		return func() Model { return NewNaiveBayes() }, nil
	default:
		return nil, errors.NotFoundf("model %q", name)
	}
}

// NewModel creates a model by name.
func NewModel(name string) (Model, error) {
	factory, err := NewFactory(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return factory(), nil
}

// FitAll creates the named models and fits them on a dataset.
func FitAll(names []string, d *dataset.Dataset, target string) (map[string]Model, error) {
	models := make(map[string]Model, len(names))
	for _, name := range names {
		m, err := NewModel(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		m.SetTrainingData(d)
		if err = m.Fit(target); err != nil {
			return nil, errors.Annotatef(err, "failed to fit model %s", name)
		}
		models[name] = m
	}
	return models, nil
}
