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

package data

import (
	"context"

	"github.com/gorse-io/medknow/dataset"
)

// NoDatabase is used when no data store is configured, for example when
// models are trained from an exported file.
type NoDatabase struct{}

func (NoDatabase) Init() error {
	return ErrNoDatabase
}

func (NoDatabase) Ping() error {
	return ErrNoDatabase
}

func (NoDatabase) Close() error {
	return nil
}

func (NoDatabase) Purge() error {
	return ErrNoDatabase
}

func (NoDatabase) Populate(context.Context, []Patient, []Doctor) error {
	return ErrNoDatabase
}

func (NoDatabase) GetPatients(context.Context) ([]Patient, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetDoctors(context.Context) ([]Doctor, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetDiseases(context.Context) ([]Disease, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) ClearExaminations(context.Context) error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertExaminations(context.Context, []Examination) error {
	return ErrNoDatabase
}

func (NoDatabase) CountExaminations(context.Context) (int64, error) {
	return 0, ErrNoDatabase
}

func (NoDatabase) GetDataset(context.Context) (*dataset.Dataset, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetOrangeDataset(context.Context) (*dataset.Dataset, error) {
	return nil, ErrNoDatabase
}
