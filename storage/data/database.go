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
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/gorse-io/medknow/dataset"
	"github.com/gorse-io/medknow/storage"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

var (
	ErrNoDatabase = errors.NotAssignedf("database")
)

const ErrEmptyView = errors.ConstError("dataset view returned no rows")

// Disease is a diagnosis made during examinations.
type Disease struct {
	DiseaseId   int64  `gorm:"column:disease_id;primaryKey;autoIncrement"`
	DiseaseName string `gorm:"column:disease_name;type:varchar(64);not null;uniqueIndex"`
}

// Patient stores personal data and the age group of a patient.
type Patient struct {
	PatientId int64     `gorm:"column:patient_id;primaryKey;autoIncrement"`
	Code      string    `gorm:"column:code;type:varchar(36);not null;uniqueIndex"`
	FirstName string    `gorm:"column:first_name;type:varchar(64);not null"`
	LastName  string    `gorm:"column:last_name;type:varchar(64);not null"`
	BirthDate time.Time `gorm:"column:birth_date"`
	AgeGroup  string    `gorm:"column:age_group;type:varchar(32);not null"`
}

// Doctor stores personal data of a doctor.
type Doctor struct {
	DoctorId       int64  `gorm:"column:doctor_id;primaryKey;autoIncrement"`
	FirstName      string `gorm:"column:first_name;type:varchar(64);not null"`
	LastName       string `gorm:"column:last_name;type:varchar(64);not null"`
	Specialization string `gorm:"column:specialization;type:varchar(64);not null"`
}

// Examination is an eye examination and the lenses prescribed after it.
type Examination struct {
	ExaminationId int64     `gorm:"column:examination_id;primaryKey;autoIncrement"`
	ExamDate      time.Time `gorm:"column:exam_date;not null"`
	Astigmatic    bool      `gorm:"column:astigmatic;not null"`
	TearRate      string    `gorm:"column:tear_rate;type:varchar(16);not null"`
	Lenses        string    `gorm:"column:lenses;type:varchar(16);not null"`
	PatientId     int64     `gorm:"column:patient_id;not null;index"`
	DoctorId      int64     `gorm:"column:doctor_id;not null;index"`
	DiseaseId     int64     `gorm:"column:disease_id;not null;index"`
}

type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	// Populate inserts the diseases and the given patients and doctors. IDs
	// assigned by the database are written back.
	Populate(ctx context.Context, patients []Patient, doctors []Doctor) error
	GetPatients(ctx context.Context) ([]Patient, error)
	GetDoctors(ctx context.Context) ([]Doctor, error)
	GetDiseases(ctx context.Context) ([]Disease, error)
	ClearExaminations(ctx context.Context) error
	BatchInsertExaminations(ctx context.Context, examinations []Examination) error
	CountExaminations(ctx context.Context) (int64, error)
	// GetDataset returns the examinations joined with patients and diseases
	// in insertion order, with the columns used to train models.
	GetDataset(ctx context.Context) (*dataset.Dataset, error)
	// GetOrangeDataset returns the same columns ordered by examination date.
	GetOrangeDataset(ctx context.Context) (*dataset.Dataset, error)
}

// Open a connection to a database.
func Open(path, tablePrefix string, opts ...storage.Option) (Database, error) {
	var err error
	option := storage.NewOptions(opts...)
	if strings.HasPrefix(path, storage.MySQLPrefix) {
		name := path[len(storage.MySQLPrefix):]
		// probe isolation variable name
		isolationVarName, err := storage.ProbeMySQLIsolationVariableName(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		// append parameters
		if name, err = storage.AppendMySQLParams(name, map[string]string{
			"sql_mode":       "'ONLY_FULL_GROUP_BY,STRICT_TRANS_TABLES,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'",
			isolationVarName: "'" + option.IsolationLevel + "'",
			"parseTime":      "true",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		// connect to database
		database := new(SQLDatabase)
		database.driver = MySQL
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("mysql", name,
			otelsql.WithAttributes(attribute.String("db.system", "mysql")),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, option)
		database.gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.PostgresPrefix) || strings.HasPrefix(path, storage.PostgreSQLPrefix) {
		database := new(SQLDatabase)
		database.driver = Postgres
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("postgres", path,
			otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		storage.ApplySQLPool(database.client, option)
		database.gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.SQLitePrefix) {
		// append parameters
		if path, err = storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		// connect to database
		name := path[len(storage.SQLitePrefix):]
		database := new(SQLDatabase)
		database.driver = SQLite
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("sqlite", name,
			otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		// sqlite allows a single writer
		storage.ApplySQLPool(database.client, storage.Options{MaxOpenConns: 1})
		database.gormDB, err = gorm.Open(sqlite.Dialector{Conn: database.client}, storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if path == "" {
		return NoDatabase{}, nil
	}
	return nil, errors.Errorf("Unknown database: %s", path)
}
