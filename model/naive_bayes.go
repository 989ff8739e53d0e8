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
	"math"
	"strings"

	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const epsilon = 1e-12

// NaiveBayes is a categorical naive Bayes classifier with Laplace smoothing.
type NaiveBayes struct {
	BaseModel
	// Classes in order of first occurrence.
	Classes []string
	Priors  map[string]float64
	// Conditionals[attribute][value][class] = P(value | class)
	Conditionals map[string]map[string]map[string]float64
	// Fallbacks[attribute][class] = P(unseen value | class)
	Fallbacks map[string]map[string]float64
}

func NewNaiveBayes() *NaiveBayes {
	return &NaiveBayes{}
}

func (m *NaiveBayes) Fit(target string) error {
	table, err := m.prepare(target)
	if err != nil {
		return errors.Trace(err)
	}
	n := table.Count()
	labels := dataset.NewFreqDict()
	for i := 0; i < n; i++ {
		labels.Id(table.Value(i, m.targetIndex))
	}
	m.Classes = labels.Strings()
	m.Priors = make(map[string]float64, len(m.Classes))
	for _, class := range m.Classes {
		m.Priors[class] = float64(labels.FreqOf(class)) / float64(n)
	}

	m.Conditionals = make(map[string]map[string]map[string]float64, len(m.features))
	m.Fallbacks = make(map[string]map[string]float64, len(m.features))
	for _, attribute := range m.features {
		j, _ := table.ColumnIndex(attribute)
		// counts[value][class]
		vocabulary := dataset.NewFreqDict()
		counts := make(map[string]map[string]int)
		for i := 0; i < n; i++ {
			value, class := table.Value(i, j), table.Value(i, m.targetIndex)
			vocabulary.Id(value)
			if counts[value] == nil {
				counts[value] = make(map[string]int)
			}
			counts[value][class]++
		}
		size := float64(vocabulary.Count())
		conditionals := make(map[string]map[string]float64, vocabulary.Count())
		for _, value := range vocabulary.Strings() {
			conditionals[value] = make(map[string]float64, len(m.Classes))
			for _, class := range m.Classes {
				total := float64(labels.FreqOf(class))
				conditionals[value][class] = float64(counts[value][class]+1) / (total + size)
			}
		}
		fallbacks := make(map[string]float64, len(m.Classes))
		for _, class := range m.Classes {
			fallbacks[class] = 1 / (float64(labels.FreqOf(class)) + size)
		}
		m.Conditionals[attribute] = conditionals
		m.Fallbacks[attribute] = fallbacks
	}
	log.Logger().Debug("naive Bayes tables built",
		zap.Strings("classes", m.Classes),
		zap.Int("attributes", len(m.features)))
	m.fitted = true
	return nil
}

func (m *NaiveBayes) PredictRow(row dataset.Record) (string, error) {
	if !m.fitted {
		return "", errors.Trace(ErrNotFitted)
	}
	return m.predict(row), nil
}

// LogScores returns the unnormalized log posterior of every class.
func (m *NaiveBayes) LogScores(row dataset.Record) map[string]float64 {
	scores := make(map[string]float64, len(m.Classes))
	for _, class := range m.Classes {
		score := math.Log(m.Priors[class] + epsilon)
		for _, attribute := range m.features {
			value, ok := row[attribute]
			if !ok {
				continue
			}
			p, ok := m.Conditionals[attribute][strings.TrimSpace(value)][class]
			if !ok {
				p = m.Fallbacks[attribute][class]
			}
			score += math.Log(p + epsilon)
		}
		scores[class] = score
	}
	return scores
}

func (m *NaiveBayes) predict(row dataset.Record) string {
	scores := m.LogScores(row)
	best, bestScore := "", math.Inf(-1)
	for _, class := range m.Classes {
		// first class wins ties
		if score := scores[class]; best == "" || score > bestScore {
			best, bestScore = class, score
		}
	}
	if best == "" {
		return m.defaultClass
	}
	return best
}

func (m *NaiveBayes) Score() (float64, error) {
	if !m.fitted {
		return 0, errors.Trace(ErrNotFitted)
	}
	return m.accuracy(m.predict), nil
}

// String renders the class priors.
func (m *NaiveBayes) String() string {
	if !m.fitted {
		return "Model not trained."
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("NaiveBayes priors for %s:\n", m.target))
	for _, class := range m.Classes {
		builder.WriteString(fmt.Sprintf("  P(%s) = %.3f\n", class, m.Priors[class]))
	}
	return builder.String()
}
