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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorse-io/medknow/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

const tabSep = "\t"

// ReadTSV reads a tab separated file whose first line holds column names.
func ReadTSV(r io.Reader) (*Dataset, error) {
	var (
		d       *Dataset
		lineErr error
	)
	sc := bufio.NewScanner(r)
	err := base.ReadLines(sc, tabSep, func(i int, fields []string) bool {
		if i == 0 {
			d = NewDataset(lo.Map(fields, func(field string, _ int) string { return strings.TrimSpace(field) })...)
			return true
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			// skip blank lines
			return true
		}
		values := lo.Map(fields, func(field string, _ int) any { return field })
		if lineErr = d.Append(values...); lineErr != nil {
			lineErr = errors.Annotatef(lineErr, "line %d", i+1)
			return false
		}
		return true
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if lineErr != nil {
		return nil, lineErr
	}
	if d == nil {
		return nil, errors.NotValidf("empty file")
	}
	return d, nil
}

// LoadTSV reads a dataset from a tab separated file.
func LoadTSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	d, err := ReadTSV(f)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to read %s", path)
	}
	return d, nil
}

// WriteTSV writes a header line and one line per row.
func WriteTSV(w io.Writer, d *Dataset) error {
	if _, err := fmt.Fprintln(w, base.JoinFields(d.columns, tabSep)); err != nil {
		return errors.Trace(err)
	}
	return writeRows(w, d)
}

// WriteOrange writes a dataset in the Orange tab format: a line of names, a
// line of types and a line of flags marking the class column.
func WriteOrange(w io.Writer, d *Dataset, target string) error {
	if err := d.RequireColumns(target); err != nil {
		return errors.Trace(err)
	}
	types := lo.Map(d.columns, func(string, int) string { return "discrete" })
	flags := lo.Map(d.columns, func(column string, _ int) string {
		if column == target {
			return "class"
		}
		return ""
	})
	for _, line := range [][]string{d.columns, types, flags} {
		if _, err := fmt.Fprintln(w, base.JoinFields(line, tabSep)); err != nil {
			return errors.Trace(err)
		}
	}
	return writeRows(w, d)
}

func writeRows(w io.Writer, d *Dataset) error {
	for _, row := range d.rows {
		fields := lo.Map(row, func(value any, _ int) string { return ToString(value) })
		if _, err := fmt.Fprintln(w, base.JoinFields(fields, tabSep)); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ExportTSV writes a dataset to a file, creating parent directories.
func ExportTSV(path string, d *Dataset) error {
	return exportFile(path, func(w io.Writer) error {
		return WriteTSV(w, d)
	})
}

// ExportOrange writes a dataset to an Orange tab file, creating parent directories.
func ExportOrange(path string, d *Dataset, target string) error {
	return exportFile(path, func(w io.Writer) error {
		return WriteOrange(w, d, target)
	})
}

func exportFile(path string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Trace(err)
	}
	w := bufio.NewWriter(f)
	if err = write(w); err != nil {
		_ = f.Close()
		return errors.Trace(err)
	}
	if err = w.Flush(); err != nil {
		_ = f.Close()
		return errors.Trace(err)
	}
	return errors.Trace(f.Close())
}
