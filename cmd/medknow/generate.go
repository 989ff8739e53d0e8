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

package main

import (
	"context"
	"io"

	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/config"
	"github.com/gorse-io/medknow/dataset"
	"github.com/gorse-io/medknow/generator"
	"github.com/gorse-io/medknow/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const batchSize = 100

var generateCommand = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic examinations into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("size") {
			conf.Dataset.Size, _ = cmd.Flags().GetInt("size")
		}
		if cmd.Flags().Changed("seed") {
			conf.Dataset.Seed, _ = cmd.Flags().GetInt64("seed")
		}
		keep, _ := cmd.Flags().GetBool("keep")
		ctx := cmd.Context()
		db, err := openDatabase(ctx, conf)
		if err != nil {
			return errors.Trace(err)
		}
		defer db.Close()
		return generate(ctx, db, &conf.Dataset, keep, cmd.ErrOrStderr())
	},
}

var exportCommand = &cobra.Command{
	Use:   "export",
	Short: "Export the dataset to the models file and the Orange file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDatabase(ctx, conf)
		if err != nil {
			return errors.Trace(err)
		}
		defer db.Close()
		return export(ctx, db, conf)
	},
}

func init() {
	generateCommand.Flags().Int("size", 0, "number of examinations")
	generateCommand.Flags().Int64("seed", 0, "random seed")
	generateCommand.Flags().Bool("keep", false, "keep existing examinations")
	rootCommand.AddCommand(generateCommand, exportCommand)
}

// generate creates the schema, seeds patients and doctors once and inserts
// synthetic examinations.
func generate(ctx context.Context, db data.Database, cfg *config.DatasetConfig, keep bool, progress io.Writer) error {
	if err := db.Init(); err != nil {
		return errors.Trace(err)
	}
	patients, err := db.GetPatients(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if len(patients) == 0 {
		if err = db.Populate(ctx,
			generator.NewPatients(cfg.Patients, cfg.Seed),
			generator.NewDoctors(cfg.Doctors, cfg.Seed)); err != nil {
			return errors.Trace(err)
		}
		if patients, err = db.GetPatients(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	doctors, err := db.GetDoctors(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	diseases, err := db.GetDiseases(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if !keep {
		if err = db.ClearExaminations(ctx); err != nil {
			return errors.Trace(err)
		}
	}

	examinations, err := generator.Generate(generator.Options{
		Size:            cfg.Size,
		Seed:            cfg.Seed,
		AstigmaticRatio: cfg.AstigmaticRatio,
		StartDate:       cfg.StartDate,
	}, patients, doctors, diseases)
	if err != nil {
		return errors.Trace(err)
	}
	bar := progressbar.NewOptions(len(examinations),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Inserting examinations"),
		progressbar.OptionShowCount())
	for _, batch := range lo.Chunk(examinations, batchSize) {
		if err = db.BatchInsertExaminations(ctx, batch); err != nil {
			return errors.Trace(err)
		}
		_ = bar.Add(len(batch))
	}
	_ = bar.Finish()

	count, err := db.CountExaminations(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("generate examinations",
		zap.Int("inserted", len(examinations)),
		zap.Int64("total", count),
		zap.Int("patients", len(patients)),
		zap.Int("doctors", len(doctors)))
	return nil
}

// export writes the models file and the Orange file from the database.
func export(ctx context.Context, db data.Database, cfg *config.Config) error {
	d, err := db.GetDataset(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if err = dataset.ExportTSV(cfg.Dataset.ModelsFile, d); err != nil {
		return errors.Trace(err)
	}
	orange, err := db.GetOrangeDataset(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if err = dataset.ExportOrange(cfg.Dataset.OrangeFile, orange, cfg.Evaluation.Target); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("export dataset",
		zap.String("models_file", cfg.Dataset.ModelsFile),
		zap.String("orange_file", cfg.Dataset.OrangeFile),
		zap.Int("rows", d.Count()))
	return nil
}
