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

// Columns of the examination dataset.
const (
	AgeGroup    = "age_group"
	DiseaseName = "disease_name"
	Astigmatic  = "astigmatic"
	TearRate    = "tear_rate"
	Lenses      = "lenses"
)

// Age groups of patients.
const (
	Young         = "young"
	PrePresbyopic = "pre-presbyopic"
	Presbyopic    = "presbyopic"
)

// Diseases diagnosed during examinations.
const (
	Myope        = "myope"
	Hypermetrope = "hypermetrope"
	Astigmatism  = "astigmatic"
)

// Tear production rates.
const (
	Normal  = "normal"
	Reduced = "reduced"
)

// Lens types.
const (
	NoLenses   = "none"
	HardLenses = "hard"
	SoftLenses = "soft"
)

var (
	FeatureColumns = []string{AgeGroup, DiseaseName, Astigmatic, TearRate}
	AllColumns     = []string{AgeGroup, DiseaseName, Astigmatic, TearRate, Lenses}

	AgeGroups = []string{Young, PrePresbyopic, Presbyopic}
	Diseases  = []string{Myope, Hypermetrope, Astigmatism}
	TearRates = []string{Normal, Reduced}
	LensTypes = []string{NoLenses, HardLenses, SoftLenses}
)

// NewExaminationDataset creates an empty dataset with the examination columns.
func NewExaminationDataset() *Dataset {
	return NewDataset(AllColumns...)
}

// ChooseLens assigns the lens type of an examination.
//  1. reduced tear rate: no lenses
//  2. myope and astigmatic: hard lenses
//  3. hypermetrope and normal tear rate: soft lenses
//  4. otherwise: soft lenses
func ChooseLens(disease string, astigmatic bool, tearRate string) string {
	if tearRate == Reduced {
		return NoLenses
	}
	if disease == Myope && astigmatic {
		return HardLenses
	}
	if disease == Hypermetrope && tearRate == Normal {
		return SoftLenses
	}
	return SoftLenses
}
