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
	"math"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/medknow/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// ErrSchema is returned when a required column is missing.
const ErrSchema = errors.ConstError("schema error")

// Record is a normalized row keyed by column name.
type Record map[string]string

// Dataset is an ordered sequence of rows with named columns. Cells hold raw
// values (strings, booleans, numbers or nil) as delivered by a data source.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// NewDataset creates an empty dataset with the given columns.
func NewDataset(columns ...string) *Dataset {
	d := &Dataset{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, column := range columns {
		d.index[column] = i
	}
	return d
}

// Columns returns column names in order.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// HasColumn returns true if the dataset has the column.
func (d *Dataset) HasColumn(column string) bool {
	_, ok := d.index[column]
	return ok
}

// Count returns the number of rows.
func (d *Dataset) Count() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Append adds a row. Values are positional and must match the columns.
func (d *Dataset) Append(values ...any) error {
	if len(values) != len(d.columns) {
		return errors.NotValidf("row with %d values for %d columns", len(values), len(d.columns))
	}
	d.rows = append(d.rows, append([]any(nil), values...))
	return nil
}

// AppendMap adds a row from a column-keyed map. Missing columns are nil and
// unknown keys are ignored.
func (d *Dataset) AppendMap(row map[string]any) {
	values := make([]any, len(d.columns))
	for i, column := range d.columns {
		values[i] = row[column]
	}
	d.rows = append(d.rows, values)
}

// Get returns the value of a column in the i-th row.
func (d *Dataset) Get(i int, column string) (any, bool) {
	j, ok := d.index[column]
	if !ok {
		return nil, false
	}
	return d.rows[i][j], true
}

// Row returns a copy of the i-th row.
func (d *Dataset) Row(i int) []any {
	return append([]any(nil), d.rows[i]...)
}

// Subset returns a new dataset with rows at the given indices.
func (d *Dataset) Subset(indices []int) *Dataset {
	subset := NewDataset(d.columns...)
	subset.rows = make([][]any, 0, len(indices))
	for _, i := range indices {
		subset.rows = append(subset.rows, append([]any(nil), d.rows[i]...))
	}
	return subset
}

// Copy returns a deep copy of the dataset.
func (d *Dataset) Copy() *Dataset {
	return d.Subset(lo.Range(d.Count()))
}

// RequireColumns returns ErrSchema if any of the columns is missing.
func (d *Dataset) RequireColumns(columns ...string) error {
	for _, column := range columns {
		if !d.HasColumn(column) {
			return errors.Annotatef(ErrSchema, "column %q does not exist in data", column)
		}
	}
	return nil
}

// Table is a normalized dataset whose every cell is a trimmed string.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// Columns returns column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Count returns the number of rows.
func (t *Table) Count() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// ColumnIndex returns the position of a column.
func (t *Table) ColumnIndex(column string) (int, bool) {
	i, ok := t.index[column]
	return i, ok
}

// Value returns the cell at row i and column j.
func (t *Table) Value(i, j int) string {
	return t.rows[i][j]
}

// Column returns all values of a column.
func (t *Table) Column(column string) []string {
	j, ok := t.index[column]
	if !ok {
		return nil
	}
	values := make([]string, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[j]
	}
	return values
}

// Record returns the i-th row keyed by column name.
func (t *Table) Record(i int) Record {
	record := make(Record, len(t.columns))
	for j, column := range t.columns {
		record[column] = t.rows[i][j]
	}
	return record
}

// ToString converts a raw cell to its canonical string: booleans become
// "yes"/"no" and every value is trimmed.
func ToString(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case *bool:
		if v == nil {
			return ""
		}
		return ToString(*v)
	default:
		return strings.TrimSpace(cast.ToString(v))
	}
}

// Normalize converts every cell of a dataset to a trimmed string. It fails
// with ErrSchema if the target column is absent. The dataset is not modified.
func Normalize(d *Dataset, target string) (*Table, error) {
	if d == nil {
		return nil, errors.Annotatef(ErrSchema, "column %q does not exist in data", target)
	}
	if err := d.RequireColumns(target); err != nil {
		return nil, errors.Trace(err)
	}
	t := &Table{
		columns: append([]string(nil), d.columns...),
		index:   make(map[string]int, len(d.columns)),
		rows:    make([][]string, len(d.rows)),
	}
	for j, column := range d.columns {
		t.index[column] = j
	}
	for i, row := range d.rows {
		t.rows[i] = make([]string, len(row))
		for j, value := range row {
			t.rows[i][j] = ToString(value)
		}
	}
	return t, nil
}

// NormalizeRecord converts a raw row to a Record.
func NormalizeRecord(row map[string]any) Record {
	record := make(Record, len(row))
	for column, value := range row {
		record[column] = ToString(value)
	}
	return record
}

// Split shuffles a dataset and holds out ceil(testRatio * n) rows for test.
// Rows keep their original order within each part.
func Split(d *Dataset, testRatio float64, seed int64) (train, test *Dataset, err error) {
	if testRatio < 0 || testRatio >= 1 {
		return nil, nil, errors.NotValidf("test ratio %v", testRatio)
	}
	n := d.Count()
	testSize := int(math.Ceil(testRatio * float64(n)))
	rng := base.NewRandomGenerator(seed)
	testIndices := rng.Sample(0, n, testSize)
	testSet := mapset.NewSet(testIndices...)
	trainIndices := lo.Filter(lo.Range(n), func(i int, _ int) bool {
		return !testSet.Contains(i)
	})
	testIndices = lo.Filter(lo.Range(n), func(i int, _ int) bool {
		return testSet.Contains(i)
	})
	return d.Subset(trainIndices), d.Subset(testIndices), nil
}
