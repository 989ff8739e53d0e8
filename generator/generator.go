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

// Package generator creates synthetic patients, doctors and examinations.
package generator

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorse-io/medknow/base"
	"github.com/gorse-io/medknow/dataset"
	"github.com/gorse-io/medknow/storage/data"
	"github.com/jaswdr/faker"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

var specializations = []string{"ophthalmology", "optometry", "pediatric ophthalmology", "neuro-ophthalmology"}

// birth years of each age group
var birthYears = map[string][2]int{
	dataset.Young:         {1990, 2007},
	dataset.PrePresbyopic: {1980, 1989},
	dataset.Presbyopic:    {1940, 1979},
}

type Options struct {
	Size            int
	Seed            int64
	AstigmaticRatio float64
	StartDate       time.Time
}

// NewPatients creates n patients. Age groups are uniform and birth dates
// fall into the years of the age group.
func NewPatients(n int, seed int64) []data.Patient {
	rng := base.NewRandomGenerator(seed)
	fake := faker.NewWithSeed(rng)
	patients := make([]data.Patient, n)
	for i := range patients {
		ageGroup := base.Choice(rng, dataset.AgeGroups)
		years := birthYears[ageGroup]
		code, _ := uuid.NewRandomFromReader(rng)
		patients[i] = data.Patient{
			Code:      code.String(),
			FirstName: fake.Person().FirstName(),
			LastName:  fake.Person().LastName(),
			BirthDate: fake.Time().TimeBetween(
				time.Date(years[0], 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(years[1], 12, 31, 0, 0, 0, 0, time.UTC),
			).Truncate(24 * time.Hour),
			AgeGroup: ageGroup,
		}
	}
	return patients
}

// NewDoctors creates n doctors.
func NewDoctors(n int, seed int64) []data.Doctor {
	rng := base.NewRandomGenerator(seed)
	fake := faker.NewWithSeed(rng)
	doctors := make([]data.Doctor, n)
	for i := range doctors {
		doctors[i] = data.Doctor{
			FirstName:      fake.Person().FirstName(),
			LastName:       fake.Person().LastName(),
			Specialization: base.Choice(rng, specializations),
		}
	}
	return doctors
}

// Generate creates examinations of random patients by random doctors. The
// disease is uniform, patients with astigmatism are always astigmatic and
// others are astigmatic with probability AstigmaticRatio. The i-th
// examination takes place i days after StartDate.
func Generate(opt Options, patients []data.Patient, doctors []data.Doctor, diseases []data.Disease) ([]data.Examination, error) {
	if opt.Size < 0 {
		return nil, errors.NotValidf("dataset size %d", opt.Size)
	}
	if len(patients) == 0 {
		return nil, errors.NotValidf("empty patients")
	}
	if len(doctors) == 0 {
		return nil, errors.NotValidf("empty doctors")
	}
	diseaseIds := lo.SliceToMap(diseases, func(disease data.Disease) (string, int64) {
		return disease.DiseaseName, disease.DiseaseId
	})
	for _, name := range dataset.Diseases {
		if _, ok := diseaseIds[name]; !ok {
			return nil, errors.NotFoundf("disease %q", name)
		}
	}

	rng := base.NewRandomGenerator(opt.Seed)
	examinations := make([]data.Examination, opt.Size)
	for i := range examinations {
		patient := base.Choice(rng, patients)
		doctor := base.Choice(rng, doctors)
		disease := base.Choice(rng, dataset.Diseases)
		astigmatic := disease == dataset.Astigmatism || rng.Bernoulli(opt.AstigmaticRatio)
		tearRate := base.Choice(rng, dataset.TearRates)
		examinations[i] = data.Examination{
			ExamDate:   opt.StartDate.AddDate(0, 0, i),
			Astigmatic: astigmatic,
			TearRate:   tearRate,
			Lenses:     dataset.ChooseLens(disease, astigmatic, tearRate),
			PatientId:  patient.PatientId,
			DoctorId:   doctor.DoctorId,
			DiseaseId:  diseaseIds[disease],
		}
	}
	return examinations, nil
}
