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

package parallel

import (
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestParallel(t *testing.T) {
	a := lo.Range(10000)
	b := make([]int, len(a))
	workerIds := make([]int, len(a))
	// multiple threads
	err := Parallel(len(a), 4, func(workerId, jobId int) error {
		b[jobId] = a[jobId]
		workerIds[jobId] = workerId
		time.Sleep(time.Microsecond)
		return nil
	})
	assert.NoError(t, err)
	workersSet := mapset.NewSet(workerIds...)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, 4, workersSet.Cardinality())
	assert.Less(t, 1, workersSet.Cardinality())
	// single thread
	err = Parallel(len(a), 1, func(workerId, jobId int) error {
		b[jobId] = a[jobId]
		workerIds[jobId] = workerId
		return nil
	})
	assert.NoError(t, err)
	workersSet = mapset.NewSet(workerIds...)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, workersSet.Cardinality())
}

func TestParallel_Error(t *testing.T) {
	for _, nWorkers := range []int{1, 4} {
		err := Parallel(100, nWorkers, func(_, jobId int) error {
			if jobId == 42 {
				return errors.NotValidf("job %d", jobId)
			}
			return nil
		})
		assert.True(t, errors.Is(err, errors.NotValid))
	}
}

func TestMap(t *testing.T) {
	squares, err := Map(100, 4, func(jobId int) (int, error) {
		return jobId * jobId, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, lo.Map(lo.Range(100), func(i int, _ int) int { return i * i }), squares)

	_, err = Map(10, 2, func(jobId int) (string, error) {
		return "", errors.NotFoundf("job %d", jobId)
	})
	assert.True(t, errors.Is(err, errors.NotFound))
}
