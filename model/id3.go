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
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Node is a node of a decision tree: a leaf holding a label, or a split on an
// attribute with one child per observed value.
type Node struct {
	Label     string
	Attribute string
	Values    []string
	Children  map[string]*Node
}

func newLeaf(label string) *Node {
	return &Node{Label: label}
}

// IsLeaf returns true if the node holds a label.
func (n *Node) IsLeaf() bool {
	return n.Children == nil
}

// Depth returns the number of splits on the longest path.
func (n *Node) Depth() int {
	if n.IsLeaf() {
		return 0
	}
	depth := 0
	for _, child := range n.Children {
		depth = max(depth, child.Depth())
	}
	return depth + 1
}

// Leaves returns the number of leaves.
func (n *Node) Leaves() int {
	if n.IsLeaf() {
		return 1
	}
	count := 0
	for _, child := range n.Children {
		count += child.Leaves()
	}
	return count
}

// ID3 is a decision tree grown by maximizing information gain.
type ID3 struct {
	BaseModel
	Root *Node
}

func NewID3() *ID3 {
	return &ID3{}
}

func (m *ID3) Fit(target string) error {
	table, err := m.prepare(target)
	if err != nil {
		return errors.Trace(err)
	}
	attributes := lo.Map(m.features, func(feature string, _ int) int {
		j, _ := table.ColumnIndex(feature)
		return j
	})
	m.Root = m.build(table, lo.Range(table.Count()), attributes)
	log.Logger().Debug("ID3 tree built",
		zap.Int("depth", m.Root.Depth()),
		zap.Int("leaves", m.Root.Leaves()))
	m.fitted = true
	return nil
}

func (m *ID3) build(table *dataset.Table, rows []int, attributes []int) *Node {
	labels := dataset.NewFreqDict()
	for _, i := range rows {
		labels.Id(table.Value(i, m.targetIndex))
	}
	// all rows share one label
	if labels.Count() == 1 {
		label, _ := labels.String(0)
		return newLeaf(label)
	}
	majorityLabel, _ := labels.Majority()
	// no attributes left
	if len(attributes) == 0 {
		return newLeaf(majorityLabel)
	}

	best, bestGain := -1, -1.0
	for _, j := range attributes {
		if gain := m.informationGain(table, rows, j); gain > bestGain {
			best, bestGain = j, gain
		}
	}
	remaining := lo.Without(attributes, best)
	values, partitions := partition(table, rows, best)
	node := &Node{
		Attribute: table.Columns()[best],
		Values:    values,
		Children:  make(map[string]*Node, len(values)),
	}
	for _, value := range values {
		subset := partitions[value]
		if len(subset) == 0 {
			// unreachable for observed values
			node.Children[value] = newLeaf(majorityLabel)
			continue
		}
		node.Children[value] = m.build(table, subset, remaining)
	}
	return node
}

// informationGain = H(rows) - sum_v |rows_v|/|rows| * H(rows_v)
func (m *ID3) informationGain(table *dataset.Table, rows []int, j int) float64 {
	values, partitions := partition(table, rows, j)
	conditional := 0.0
	for _, value := range values {
		subset := partitions[value]
		weight := float64(len(subset)) / float64(len(rows))
		conditional += weight * entropy(table, subset, m.targetIndex)
	}
	return entropy(table, rows, m.targetIndex) - conditional
}

// entropy of column j among rows in bits.
func entropy(table *dataset.Table, rows []int, j int) float64 {
	if len(rows) == 0 {
		return 0
	}
	counts := dataset.NewFreqDict()
	for _, i := range rows {
		counts.Id(table.Value(i, j))
	}
	h := 0.0
	for id := 0; id < counts.Count(); id++ {
		p := float64(counts.Freq(id)) / float64(len(rows))
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// partition groups rows by the value of column j. Values are returned in
// order of first occurrence.
func partition(table *dataset.Table, rows []int, j int) ([]string, map[string][]int) {
	values := dataset.NewFreqDict()
	partitions := make(map[string][]int)
	for _, i := range rows {
		value := table.Value(i, j)
		values.Id(value)
		partitions[value] = append(partitions[value], i)
	}
	return values.Strings(), partitions
}

func (m *ID3) PredictRow(row dataset.Record) (string, error) {
	if !m.fitted {
		return "", errors.Trace(ErrNotFitted)
	}
	return m.predict(row), nil
}

func (m *ID3) predict(row dataset.Record) string {
	node := m.Root
	for !node.IsLeaf() {
		value, ok := row[node.Attribute]
		if !ok {
			return m.defaultClass
		}
		child, ok := node.Children[strings.TrimSpace(value)]
		if !ok {
			return m.defaultClass
		}
		node = child
	}
	return node.Label
}

func (m *ID3) Score() (float64, error) {
	if !m.fitted {
		return 0, errors.Trace(ErrNotFitted)
	}
	return m.accuracy(m.predict), nil
}

// String renders the tree with one indented line per branch and leaf.
func (m *ID3) String() string {
	if !m.fitted || m.Root == nil {
		return "Model ID3 was not trained - tree is empty."
	}
	var builder strings.Builder
	var render func(node *Node, indent string)
	render = func(node *Node, indent string) {
		if node.IsLeaf() {
			builder.WriteString(fmt.Sprintf("%s-> %s\n", indent, node.Label))
			return
		}
		for _, value := range node.Values {
			builder.WriteString(fmt.Sprintf("%s[%s == %s]\n", indent, node.Attribute, value))
			render(node.Children[value], indent+"  ")
		}
	}
	render(m.Root, "")
	return builder.String()
}
