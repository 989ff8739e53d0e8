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
	"strings"

	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// OneRule (1R) predicts the target from the single attribute whose
// value-to-majority-label rules fit the training data best.
type OneRule struct {
	BaseModel
	BestAttribute string
	Rules         map[string]string
	// Accuracies of the rule set of every candidate attribute.
	Accuracies map[string]float64
	ruleOrder  []string
}

func NewOneRule() *OneRule {
	return &OneRule{}
}

func (m *OneRule) Fit(target string) error {
	table, err := m.prepare(target)
	if err != nil {
		return errors.Trace(err)
	}
	m.BestAttribute = ""
	m.Rules = nil
	m.ruleOrder = nil
	m.Accuracies = make(map[string]float64, len(m.features))
	bestAccuracy := -1.0
	for _, attribute := range m.features {
		j, _ := table.ColumnIndex(attribute)
		rules, order, accuracy := m.buildRules(table, j)
		m.Accuracies[attribute] = accuracy
		log.Logger().Debug("1R candidate attribute",
			zap.String("attribute", attribute),
			zap.Float64("accuracy", accuracy))
		// earlier attributes win ties
		if accuracy > bestAccuracy {
			bestAccuracy = accuracy
			m.BestAttribute = attribute
			m.Rules = rules
			m.ruleOrder = order
		}
	}
	if m.Rules == nil {
		m.Rules = make(map[string]string)
	}
	m.fitted = true
	return nil
}

// buildRules maps every value of column j to its majority label and returns
// the accuracy of the resulting rules on the training data.
func (m *OneRule) buildRules(table *dataset.Table, j int) (map[string]string, []string, float64) {
	values := dataset.NewFreqDict()
	labels := make([]*dataset.FreqDict, 0)
	for i := 0; i < table.Count(); i++ {
		id := values.Id(table.Value(i, j))
		if id == len(labels) {
			labels = append(labels, dataset.NewFreqDict())
		}
		labels[id].Id(table.Value(i, m.targetIndex))
	}
	rules := make(map[string]string, values.Count())
	for id, value := range values.Strings() {
		rules[value], _ = labels[id].Majority()
	}
	correct := 0
	for i := 0; i < table.Count(); i++ {
		if rules[table.Value(i, j)] == table.Value(i, m.targetIndex) {
			correct++
		}
	}
	return rules, values.Strings(), float64(correct) / float64(table.Count())
}

func (m *OneRule) PredictRow(row dataset.Record) (string, error) {
	if !m.fitted {
		return "", errors.Trace(ErrNotFitted)
	}
	return m.predict(row), nil
}

func (m *OneRule) predict(row dataset.Record) string {
	if label, ok := m.Rules[strings.TrimSpace(row[m.BestAttribute])]; ok {
		return label
	}
	return m.defaultClass
}

func (m *OneRule) Score() (float64, error) {
	if !m.fitted {
		return 0, errors.Trace(ErrNotFitted)
	}
	return m.accuracy(m.predict), nil
}

// String renders the rules, one per line.
func (m *OneRule) String() string {
	if !m.fitted {
		return "Model not trained."
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("1R model on attribute: %s\n", m.BestAttribute))
	for _, value := range m.ruleOrder {
		builder.WriteString(fmt.Sprintf("  IF %s == %s THEN %s = %s\n", m.BestAttribute, value, m.target, m.Rules[value]))
	}
	builder.WriteString(fmt.Sprintf("  ELSE %s = %s (default)\n", m.target, m.defaultClass))
	return builder.String()
}
