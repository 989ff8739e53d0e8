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

package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func newTestDataset(t *testing.T) *Dataset {
	d := NewExaminationDataset()
	assert.NoError(t, d.Append(" young ", "myope", true, "normal", "hard"))
	assert.NoError(t, d.Append("presbyopic", "hypermetrope ", false, "normal", "soft"))
	assert.NoError(t, d.Append("pre-presbyopic", "astigmatic", true, " reduced", "none"))
	assert.NoError(t, d.Append("young", "myope", false, "normal", "soft"))
	return d
}

func TestDataset(t *testing.T) {
	d := newTestDataset(t)
	assert.Equal(t, AllColumns, d.Columns())
	assert.Equal(t, 4, d.Count())
	assert.True(t, d.HasColumn(Lenses))
	assert.False(t, d.HasColumn("exam_date"))
	value, ok := d.Get(0, Astigmatic)
	assert.True(t, ok)
	assert.Equal(t, true, value)
	_, ok = d.Get(0, "exam_date")
	assert.False(t, ok)
	assert.True(t, errors.Is(d.Append("young"), errors.NotValid))

	d.AppendMap(map[string]any{AgeGroup: "young", Lenses: "none", "unknown": 1})
	assert.Equal(t, 5, d.Count())
	assert.Equal(t, []any{"young", nil, nil, nil, "none"}, d.Row(4))

	subset := d.Subset([]int{1, 3})
	assert.Equal(t, 2, subset.Count())
	assert.Equal(t, d.Row(1), subset.Row(0))
	assert.Equal(t, d.Row(3), subset.Row(1))

	// copies do not share rows
	copied := d.Copy()
	copied.rows[0][0] = "presbyopic"
	assert.Equal(t, " young ", d.rows[0][0])

	assert.NoError(t, d.RequireColumns(FeatureColumns...))
	assert.True(t, errors.Is(d.RequireColumns("exam_date"), ErrSchema))
}

func TestToString(t *testing.T) {
	yes := true
	assert.Equal(t, "yes", ToString(true))
	assert.Equal(t, "no", ToString(false))
	assert.Equal(t, "yes", ToString(&yes))
	assert.Equal(t, "", ToString((*bool)(nil)))
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "myope", ToString("  myope\t"))
	assert.Equal(t, "42", ToString(42))
	assert.Equal(t, "0.5", ToString(0.5))
}

func TestNormalize(t *testing.T) {
	d := newTestDataset(t)
	table, err := Normalize(d, Lenses)
	assert.NoError(t, err)
	assert.Equal(t, 4, table.Count())
	assert.Equal(t, AllColumns, table.Columns())
	assert.Equal(t, []string{"young", "presbyopic", "pre-presbyopic", "young"}, table.Column(AgeGroup))
	assert.Equal(t, []string{"yes", "no", "yes", "no"}, table.Column(Astigmatic))
	assert.Equal(t, []string{"normal", "normal", "reduced", "normal"}, table.Column(TearRate))
	assert.Nil(t, table.Column("exam_date"))
	assert.Equal(t, Record{
		AgeGroup:    "presbyopic",
		DiseaseName: "hypermetrope",
		Astigmatic:  "no",
		TearRate:    "normal",
		Lenses:      "soft",
	}, table.Record(1))
	j, ok := table.ColumnIndex(DiseaseName)
	assert.True(t, ok)
	assert.Equal(t, "hypermetrope", table.Value(1, j))
	// original is untouched
	value, _ := d.Get(0, AgeGroup)
	assert.Equal(t, " young ", value)
	value, _ = d.Get(0, Astigmatic)
	assert.Equal(t, true, value)

	// missing target
	_, err = Normalize(d, "label")
	assert.True(t, errors.Is(err, ErrSchema))
	_, err = Normalize(nil, Lenses)
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestNormalizeRecord(t *testing.T) {
	assert.Equal(t, Record{AgeGroup: "young", Astigmatic: "no"},
		NormalizeRecord(map[string]any{AgeGroup: " young", Astigmatic: false}))
}

func TestSplit(t *testing.T) {
	d := NewDataset("id", Lenses)
	for i := 0; i < 10; i++ {
		assert.NoError(t, d.Append(i, "none"))
	}
	train, test, err := Split(d, 0.2, 42)
	assert.NoError(t, err)
	assert.Equal(t, 8, train.Count())
	assert.Equal(t, 2, test.Count())
	// disjoint and complete
	seen := make(map[any]int)
	for i := 0; i < train.Count(); i++ {
		id, _ := train.Get(i, "id")
		seen[id]++
	}
	for i := 0; i < test.Count(); i++ {
		id, _ := test.Get(i, "id")
		seen[id]++
	}
	assert.Len(t, seen, 10)
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
	// deterministic
	train2, test2, err := Split(d, 0.2, 42)
	assert.NoError(t, err)
	assert.Equal(t, train.rows, train2.rows)
	assert.Equal(t, test.rows, test2.rows)
	// ceil of the test size
	_, test, err = Split(d, 0.25, 0)
	assert.NoError(t, err)
	assert.Equal(t, 3, test.Count())
	// invalid ratio
	_, _, err = Split(d, 1, 0)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestChooseLens(t *testing.T) {
	assert.Equal(t, NoLenses, ChooseLens(Myope, true, Reduced))
	assert.Equal(t, HardLenses, ChooseLens(Myope, true, Normal))
	assert.Equal(t, SoftLenses, ChooseLens(Myope, false, Normal))
	assert.Equal(t, SoftLenses, ChooseLens(Hypermetrope, true, Normal))
	assert.Equal(t, SoftLenses, ChooseLens(Astigmatism, true, Normal))
}

func TestTSV(t *testing.T) {
	d := newTestDataset(t)
	var buf bytes.Buffer
	assert.NoError(t, WriteTSV(&buf, d))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "age_group\tdisease_name\tastigmatic\ttear_rate\tlenses", lines[0])
	assert.Equal(t, "young\tmyope\tyes\tnormal\thard", lines[1])
	assert.Len(t, lines, 5)

	loaded, err := ReadTSV(&buf)
	assert.NoError(t, err)
	assert.Equal(t, AllColumns, loaded.Columns())
	assert.Equal(t, 4, loaded.Count())
	assert.Equal(t, []any{"presbyopic", "hypermetrope", "no", "normal", "soft"}, loaded.Row(1))

	// wrong number of fields
	_, err = ReadTSV(strings.NewReader("a\tb\n1\t2\t3\n"))
	assert.Error(t, err)
	_, err = ReadTSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestTSV_Whitespace(t *testing.T) {
	loaded, err := ReadTSV(strings.NewReader(
		"age_group\tdisease_name \tastigmatic\ttear_rate\t lenses\r\n" +
			"young\tmyope\tyes\tnormal\thard\r\n" +
			"\r\n"))
	assert.NoError(t, err)
	assert.Equal(t, AllColumns, loaded.Columns())
	assert.Equal(t, 1, loaded.Count())
	table, err := Normalize(loaded, Lenses)
	assert.NoError(t, err)
	assert.Equal(t, Record{
		AgeGroup:    Young,
		DiseaseName: Myope,
		Astigmatic:  "yes",
		TearRate:    Normal,
		Lenses:      "hard",
	}, table.Record(0))
}

func TestOrange(t *testing.T) {
	d := newTestDataset(t)
	var buf bytes.Buffer
	assert.NoError(t, WriteOrange(&buf, d, Lenses))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 7)
	assert.Equal(t, "age_group\tdisease_name\tastigmatic\ttear_rate\tlenses", lines[0])
	assert.Equal(t, "discrete\tdiscrete\tdiscrete\tdiscrete\tdiscrete", lines[1])
	assert.Equal(t, "\t\t\t\tclass", lines[2])
	assert.Equal(t, "pre-presbyopic\tastigmatic\tyes\treduced\tnone", lines[5])
	assert.True(t, errors.Is(WriteOrange(&buf, d, "label"), ErrSchema))
}

func TestExport(t *testing.T) {
	d := newTestDataset(t)
	path := filepath.Join(t.TempDir(), "data", "dataset.tab")
	assert.NoError(t, ExportTSV(path, d))
	loaded, err := LoadTSV(path)
	assert.NoError(t, err)
	assert.Equal(t, d.Count(), loaded.Count())

	orangePath := filepath.Join(t.TempDir(), "orange", "lenses_dataset.tab")
	assert.NoError(t, ExportOrange(orangePath, d, Lenses))
	_, err = LoadTSV(filepath.Join(t.TempDir(), "missing.tab"))
	assert.Error(t, err)
}
