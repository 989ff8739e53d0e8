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
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/base/parallel"
	"github.com/gorse-io/medknow/config"
	"github.com/gorse-io/medknow/dataset"
	"github.com/gorse-io/medknow/model"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train models and report training and test accuracy",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		d, err := loadDataset(cmd.Context(), conf, input)
		if err != nil {
			return errors.Trace(err)
		}
		return train(cmd.OutOrStdout(), d, conf)
	},
}

var cvCommand = &cobra.Command{
	Use:   "cv",
	Short: "Cross-validate models",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("folds") {
			conf.Evaluation.Folds, _ = cmd.Flags().GetInt("folds")
		}
		if cmd.Flags().Changed("seed") {
			conf.Evaluation.Seed, _ = cmd.Flags().GetInt64("seed")
		}
		if cmd.Flags().Changed("splitter") {
			conf.Evaluation.Splitter, _ = cmd.Flags().GetString("splitter")
		}
		input, _ := cmd.Flags().GetString("input")
		d, err := loadDataset(cmd.Context(), conf, input)
		if err != nil {
			return errors.Trace(err)
		}
		jobs, _ := cmd.Flags().GetInt("jobs")
		return crossValidate(cmd.OutOrStdout(), d, &conf.Evaluation, jobs)
	},
}

func init() {
	trainCommand.Flags().StringP("input", "i", "", "dataset file (read from the database if empty)")
	cvCommand.Flags().StringP("input", "i", "", "dataset file (read from the database if empty)")
	cvCommand.Flags().IntP("folds", "k", 0, "number of folds")
	cvCommand.Flags().Int64("seed", 0, "random seed")
	cvCommand.Flags().String("splitter", "", "fold assignment (stratified or kfold)")
	cvCommand.Flags().IntP("jobs", "j", 1, "number of models cross-validated in parallel")
	rootCommand.AddCommand(trainCommand, cvCommand)
}

// train splits the dataset, fits every configured model on the training
// part, prints the learned rules and a table of accuracies.
func train(w io.Writer, d *dataset.Dataset, cfg *config.Config) error {
	target := cfg.Evaluation.Target
	trainSet, testSet, err := dataset.Split(d, cfg.Dataset.TestRatio, cfg.Dataset.Seed)
	if err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("split dataset",
		zap.Int("train", trainSet.Count()),
		zap.Int("test", testSet.Count()))

	start := time.Now()
	models, err := model.FitAll(cfg.Evaluation.Models, trainSet, target)
	if err != nil {
		return errors.Trace(err)
	}
	table := tablewriter.NewWriter(w)
	table.Header("Model", "Train Acc", "Test Acc")
	for _, name := range cfg.Evaluation.Models {
		m := models[name]
		if _, err = fmt.Fprintf(w, "== %s ==\n%s\n\n", model.DisplayName(name), m); err != nil {
			return errors.Trace(err)
		}
		trainScore, err := m.Score()
		if err != nil {
			return errors.Trace(err)
		}
		testScore, err := model.EvaluateHeldOut(m, testSet, target)
		if err != nil {
			return errors.Trace(err)
		}
		if err = table.Append([]string{
			model.DisplayName(name),
			fmt.Sprintf("%.3f", trainScore),
			fmt.Sprintf("%.3f", testScore),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	if err = table.Render(); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("complete training", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// crossValidate runs k-fold cross-validation for every configured model and
// prints a summary table. Models are cross-validated by jobs workers.
func crossValidate(w io.Writer, d *dataset.Dataset, cfg *config.EvaluationConfig, jobs int) error {
	start := time.Now()
	split, err := model.NewSplitter(cfg.Splitter, cfg.Folds)
	if err != nil {
		return errors.Trace(err)
	}
	results, err := parallel.Map(len(cfg.Models), jobs, func(i int) (model.CrossValidationResult, error) {
		factory, err := model.NewFactory(cfg.Models[i])
		if err != nil {
			return model.CrossValidationResult{}, errors.Trace(err)
		}
		result, err := model.CrossValidate(factory, split, d, cfg.Target, cfg.Seed)
		if err != nil {
			return model.CrossValidationResult{}, errors.Annotatef(err, "failed to cross-validate model %s", cfg.Models[i])
		}
		return result, nil
	})
	if err != nil {
		return errors.Trace(err)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Model", "Mean Acc", "Std Dev", "Folds")
	for i, result := range results {
		if err = table.Append([]string{
			model.DisplayName(cfg.Models[i]),
			fmt.Sprintf("%.3f", result.Mean),
			fmt.Sprintf("%.3f", result.StdDev),
			strings.Join(lo.Map(result.Scores, func(score float64, _ int) string {
				return fmt.Sprintf("%.3f", score)
			}), ", "),
		}); err != nil {
			return errors.Trace(err)
		}
	}
	if err = table.Render(); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("complete cross validation",
		zap.Int("folds", cfg.Folds),
		zap.String("splitter", cfg.Splitter),
		zap.Int("jobs", jobs),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
