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
	"sort"

	"github.com/gorse-io/medknow/base"
	"github.com/gorse-io/medknow/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Splitter splits a dataset into train folds and test folds.
type Splitter func(d *dataset.Dataset, target string, seed int64) (trainFolds, testFolds []*dataset.Dataset, err error)

const (
	StratifiedKFold = "stratified"
	KFold           = "kfold"
)

// SplitterNames lists the supported fold assignments.
var SplitterNames = []string{StratifiedKFold, KFold}

// NewSplitter creates a k-fold splitter by name.
func NewSplitter(name string, k int) (Splitter, error) {
	switch name {
	case StratifiedKFold:
		return NewStratifiedKFoldSplitter(k), nil
	case KFold:
		return NewKFoldSplitter(k), nil
	default:
		return nil, errors.NotSupportedf("splitter %q", name)
	}
}

// NewKFoldSplitter creates a k-fold splitter that ignores labels.
func NewKFoldSplitter(k int) Splitter {
	return func(d *dataset.Dataset, target string, seed int64) ([]*dataset.Dataset, []*dataset.Dataset, error) {
		if err := checkFolds(d, k); err != nil {
			return nil, nil, errors.Trace(err)
		}
		rng := base.NewRandomGenerator(seed)
		perm := rng.Perm(d.Count())
		assignment := make([]int, d.Count())
		for pos, i := range perm {
			assignment[i] = pos % k
		}
		trainFolds, testFolds := buildFolds(d, assignment, k)
		return trainFolds, testFolds, nil
	}
}

// NewStratifiedKFoldSplitter creates a k-fold splitter that keeps the label
// proportions of the dataset in every fold. Rows of each label are shuffled
// and dealt to folds in turn, continuing the turn across labels.
func NewStratifiedKFoldSplitter(k int) Splitter {
	return func(d *dataset.Dataset, target string, seed int64) ([]*dataset.Dataset, []*dataset.Dataset, error) {
		if err := checkFolds(d, k); err != nil {
			return nil, nil, errors.Trace(err)
		}
		table, err := dataset.Normalize(d, target)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		// group rows by label
		labels := dataset.NewFreqDict()
		groups := make([][]int, 0)
		for i, label := range table.Column(target) {
			id := labels.Id(label)
			if id == len(groups) {
				groups = append(groups, nil)
			}
			groups[id] = append(groups[id], i)
		}
		rng := base.NewRandomGenerator(seed)
		assignment := make([]int, d.Count())
		turn := 0
		for _, group := range groups {
			rng.ShuffleInts(group)
			for _, i := range group {
				assignment[i] = turn % k
				turn++
			}
		}
		trainFolds, testFolds := buildFolds(d, assignment, k)
		return trainFolds, testFolds, nil
	}
}

func checkFolds(d *dataset.Dataset, k int) error {
	if k < 2 {
		return errors.NotValidf("number of folds %d (must be at least 2)", k)
	}
	if k > d.Count() {
		return errors.NotValidf("number of folds %d (dataset has %d rows)", k, d.Count())
	}
	return nil
}

// buildFolds creates the test fold i from rows assigned to i and the train
// fold from the rest. Rows keep their original order.
func buildFolds(d *dataset.Dataset, assignment []int, k int) (trainFolds, testFolds []*dataset.Dataset) {
	trainFolds = make([]*dataset.Dataset, k)
	testFolds = make([]*dataset.Dataset, k)
	all := lo.Range(d.Count())
	for fold := 0; fold < k; fold++ {
		testIndex, trainIndex := lo.FilterReject(all, func(i int, _ int) bool {
			return assignment[i] == fold
		})
		sort.Ints(testIndex)
		sort.Ints(trainIndex)
		testFolds[fold] = d.Subset(testIndex)
		trainFolds[fold] = d.Subset(trainIndex)
	}
	return
}
