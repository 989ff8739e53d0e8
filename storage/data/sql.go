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
	"database/sql"
	"time"

	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/dataset"
	"github.com/gorse-io/medknow/storage"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

// SQLDatabase stores patients, doctors, diseases and examinations in a SQL database.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

// Init creates tables and indices.
func (d *SQLDatabase) Init() error {
	db := d.gormDB
	if d.driver == MySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	if err := db.AutoMigrate(&Disease{}, &Patient{}, &Doctor{}, &Examination{}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (d *SQLDatabase) Ping() error {
	return d.client.Ping()
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

// Purge drops all tables.
func (d *SQLDatabase) Purge() error {
	return errors.Trace(d.gormDB.Migrator().DropTable(&Examination{}, &Patient{}, &Doctor{}, &Disease{}))
}

func (d *SQLDatabase) Populate(ctx context.Context, patients []Patient, doctors []Doctor) error {
	start := time.Now()
	defer func() { PopulateSeconds.Observe(time.Since(start).Seconds()) }()
	return d.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		diseases := lo.Map(dataset.Diseases, func(name string, _ int) Disease {
			return Disease{DiseaseName: name}
		})
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&diseases).Error; err != nil {
			return errors.Trace(err)
		}
		if len(patients) > 0 {
			if err := tx.Create(&patients).Error; err != nil {
				return errors.Trace(err)
			}
		}
		if len(doctors) > 0 {
			if err := tx.Create(&doctors).Error; err != nil {
				return errors.Trace(err)
			}
		}
		log.Logger().Info("database populated",
			zap.Int("patients", len(patients)),
			zap.Int("doctors", len(doctors)))
		return nil
	})
}

func (d *SQLDatabase) GetPatients(ctx context.Context) ([]Patient, error) {
	var patients []Patient
	if err := d.gormDB.WithContext(ctx).Order("patient_id").Find(&patients).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return patients, nil
}

func (d *SQLDatabase) GetDoctors(ctx context.Context) ([]Doctor, error) {
	var doctors []Doctor
	if err := d.gormDB.WithContext(ctx).Order("doctor_id").Find(&doctors).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return doctors, nil
}

func (d *SQLDatabase) GetDiseases(ctx context.Context) ([]Disease, error) {
	var diseases []Disease
	if err := d.gormDB.WithContext(ctx).Order("disease_id").Find(&diseases).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return diseases, nil
}

func (d *SQLDatabase) ClearExaminations(ctx context.Context) error {
	err := d.gormDB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Examination{}).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) BatchInsertExaminations(ctx context.Context, examinations []Examination) error {
	if len(examinations) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { BatchInsertExaminationsSeconds.Observe(time.Since(start).Seconds()) }()
	err := d.gormDB.WithContext(ctx).Create(&examinations).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) CountExaminations(ctx context.Context) (int64, error) {
	var count int64
	if err := d.gormDB.WithContext(ctx).Model(&Examination{}).Count(&count).Error; err != nil {
		return 0, errors.Trace(err)
	}
	return count, nil
}

type datasetRow struct {
	AgeGroup    string
	DiseaseName string
	Astigmatic  bool
	TearRate    string
	Lenses      string
}

func (d *SQLDatabase) GetDataset(ctx context.Context) (*dataset.Dataset, error) {
	start := time.Now()
	defer func() { GetDatasetSeconds.Observe(time.Since(start).Seconds()) }()
	return d.queryDataset(ctx, "e.examination_id")
}

func (d *SQLDatabase) GetOrangeDataset(ctx context.Context) (*dataset.Dataset, error) {
	start := time.Now()
	defer func() { GetDatasetSeconds.Observe(time.Since(start).Seconds()) }()
	return d.queryDataset(ctx, "e.exam_date, e.examination_id")
}

func (d *SQLDatabase) queryDataset(ctx context.Context, order string) (*dataset.Dataset, error) {
	var rows []datasetRow
	err := d.gormDB.WithContext(ctx).
		Table(d.ExaminationsTable()+" AS e").
		Select("p.age_group, s.disease_name, e.astigmatic, e.tear_rate, e.lenses").
		Joins("JOIN " + d.PatientsTable() + " AS p ON p.patient_id = e.patient_id").
		Joins("JOIN " + d.DiseasesTable() + " AS s ON s.disease_id = e.disease_id").
		Order(order).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(rows) == 0 {
		return nil, errors.Trace(ErrEmptyView)
	}
	d2 := dataset.NewExaminationDataset()
	for _, row := range rows {
		if err = d2.Append(row.AgeGroup, row.DiseaseName, row.Astigmatic, row.TearRate, row.Lenses); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return d2, nil
}
