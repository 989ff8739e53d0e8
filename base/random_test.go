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

package base

import (
	"sort"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
)

func TestRandomGenerator_Sample(t *testing.T) {
	excludeSet := mapset.NewSet(0, 1, 2, 3, 4)
	rng := NewRandomGenerator(0)
	for i := 1; i <= 10; i++ {
		sampled := rng.Sample(0, 10, i, excludeSet)
		for j := range sampled {
			assert.False(t, excludeSet.Contains(sampled[j]))
		}
		assert.LessOrEqual(t, len(sampled), 5)
	}
}

func TestRandomGenerator_ShuffleInts(t *testing.T) {
	a := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	b := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	NewRandomGenerator(42).ShuffleInts(a)
	NewRandomGenerator(42).ShuffleInts(b)
	assert.Equal(t, a, b)
	sort.Ints(a)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, a)
}

func TestRandomGenerator_Bernoulli(t *testing.T) {
	rng := NewRandomGenerator(0)
	for i := 0; i < 100; i++ {
		assert.False(t, rng.Bernoulli(0))
		assert.True(t, rng.Bernoulli(1))
	}
}

func TestChoice(t *testing.T) {
	rng := NewRandomGenerator(0)
	candidates := []string{"young", "pre-presbyopic", "presbyopic"}
	for i := 0; i < 100; i++ {
		assert.Contains(t, candidates, Choice(rng, candidates))
	}
}
