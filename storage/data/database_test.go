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
	"time"

	"github.com/gorse-io/medknow/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) populate() ([]Patient, []Doctor, map[string]int64) {
	ctx := context.Background()
	patients := []Patient{
		{Code: "p-1", FirstName: "Ada", LastName: "Lovelace", AgeGroup: dataset.Young},
		{Code: "p-2", FirstName: "Alan", LastName: "Turing", AgeGroup: dataset.Presbyopic},
	}
	doctors := []Doctor{{FirstName: "Grace", LastName: "Hopper", Specialization: "ophthalmology"}}
	suite.NoError(suite.Populate(ctx, patients, doctors))
	patients, err := suite.GetPatients(ctx)
	suite.NoError(err)
	doctors, err = suite.GetDoctors(ctx)
	suite.NoError(err)
	diseases, err := suite.GetDiseases(ctx)
	suite.NoError(err)
	diseaseIds := lo.SliceToMap(diseases, func(disease Disease) (string, int64) {
		return disease.DiseaseName, disease.DiseaseId
	})
	return patients, doctors, diseaseIds
}

func (suite *baseTestSuite) TestPopulate() {
	ctx := context.Background()
	patients, doctors, diseaseIds := suite.populate()
	suite.Len(patients, 2)
	suite.Equal("p-1", patients[0].Code)
	suite.Equal(dataset.Presbyopic, patients[1].AgeGroup)
	suite.NotZero(patients[0].PatientId)
	suite.Len(doctors, 1)
	suite.Equal("Hopper", doctors[0].LastName)
	suite.Len(diseaseIds, 3)
	for _, name := range dataset.Diseases {
		suite.Contains(diseaseIds, name)
	}

	// diseases are inserted once
	suite.NoError(suite.Populate(ctx, []Patient{{Code: "p-3", AgeGroup: dataset.PrePresbyopic}}, nil))
	diseases, err := suite.GetDiseases(ctx)
	suite.NoError(err)
	suite.Len(diseases, 3)
	patients, err = suite.GetPatients(ctx)
	suite.NoError(err)
	suite.Len(patients, 3)
}

func (suite *baseTestSuite) TestExaminations() {
	ctx := context.Background()
	patients, doctors, diseaseIds := suite.populate()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	examinations := []Examination{
		{
			ExamDate:   start.AddDate(0, 0, 2),
			Astigmatic: true,
			TearRate:   dataset.Normal,
			Lenses:     dataset.HardLenses,
			PatientId:  patients[0].PatientId,
			DoctorId:   doctors[0].DoctorId,
			DiseaseId:  diseaseIds[dataset.Myope],
		},
		{
			ExamDate:   start,
			Astigmatic: false,
			TearRate:   dataset.Reduced,
			Lenses:     dataset.NoLenses,
			PatientId:  patients[1].PatientId,
			DoctorId:   doctors[0].DoctorId,
			DiseaseId:  diseaseIds[dataset.Hypermetrope],
		},
	}
	suite.NoError(suite.BatchInsertExaminations(ctx, examinations))
	suite.NoError(suite.BatchInsertExaminations(ctx, nil))
	count, err := suite.CountExaminations(ctx)
	suite.NoError(err)
	suite.Equal(int64(2), count)

	// insertion order
	d, err := suite.GetDataset(ctx)
	suite.NoError(err)
	suite.Equal(dataset.AllColumns, d.Columns())
	suite.Equal(2, d.Count())
	suite.Equal([]any{"young", "myope", true, "normal", "hard"}, d.Row(0))
	table, err := dataset.Normalize(d, dataset.Lenses)
	suite.NoError(err)
	suite.Equal([]string{"yes", "no"}, table.Column(dataset.Astigmatic))

	// date order
	d, err = suite.GetOrangeDataset(ctx)
	suite.NoError(err)
	suite.Equal([]any{"presbyopic", "hypermetrope", false, "reduced", "none"}, d.Row(0))

	// clear
	suite.NoError(suite.ClearExaminations(ctx))
	count, err = suite.CountExaminations(ctx)
	suite.NoError(err)
	suite.Zero(count)
	_, err = suite.GetDataset(ctx)
	suite.True(errors.Is(err, ErrEmptyView))
	_, err = suite.GetOrangeDataset(ctx)
	suite.True(errors.Is(err, ErrEmptyView))
}

func (suite *baseTestSuite) TestPurge() {
	suite.populate()
	suite.NoError(suite.Purge())
	// tables are recreated empty
	suite.NoError(suite.Init())
	patients, err := suite.GetPatients(context.Background())
	suite.NoError(err)
	suite.Empty(patients)
}
