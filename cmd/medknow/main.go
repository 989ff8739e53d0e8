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
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/cmd/version"
	"github.com/gorse-io/medknow/config"
	"github.com/gorse-io/medknow/dataset"
	"github.com/gorse-io/medknow/storage"
	"github.com/gorse-io/medknow/storage/data"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var conf *config.Config

var rootCommand = &cobra.Command{
	Use:   "medknow",
	Short: "Contact lens prescription from synthetic examination data.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// setup logger
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)

		// load config
		configPath, _ := cmd.Flags().GetString("config")
		log.Logger().Debug("load config", zap.String("config", configPath))
		var err error
		if conf, err = config.LoadConfig(configPath); err != nil {
			return errors.Annotate(err, "failed to load config")
		}
		return nil
	},
	SilenceUsage: true,
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show the version of medknow",
	// the version needs neither config nor logger
	PersistentPreRun: func(*cobra.Command, []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
	},
}

var schemaCommand = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	PersistentPreRun: func(*cobra.Command, []string) {},
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.Schema()
		if err != nil {
			return errors.Trace(err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
		return errors.Trace(err)
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.AddCommand(versionCommand, schemaCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}

// openDatabase connects to the data store and waits until it responds.
func openDatabase(ctx context.Context, cfg *config.Config) (data.Database, error) {
	db, err := data.Open(cfg.Database.DataStore, cfg.Database.TablePrefix,
		storage.WithMaxOpenConns(cfg.Database.MaxOpenConns),
		storage.WithMaxIdleConns(cfg.Database.MaxIdleConns),
		storage.WithConnMaxLifetime(cfg.Database.ConnMaxLifetime))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if _, err = backoff.Retry(ctx, func() (struct{}, error) {
		if err := db.Ping(); err != nil {
			log.Logger().Warn("failed to ping database",
				zap.String("data_store", log.RedactDBURL(cfg.Database.DataStore)), zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(cfg.Database.ConnectRetries)); err != nil {
		_ = db.Close()
		return nil, errors.Annotate(err, "failed to connect database")
	}
	log.Logger().Info("connect database", zap.String("data_store", log.RedactDBURL(cfg.Database.DataStore)))
	return db, nil
}

// loadDataset reads the models dataset from a file, or from the database if
// no file is given.
func loadDataset(ctx context.Context, cfg *config.Config, input string) (*dataset.Dataset, error) {
	if input != "" {
		d, err := dataset.LoadTSV(input)
		if err != nil {
			return nil, errors.Trace(err)
		}
		log.Logger().Info("load dataset", zap.String("input", input), zap.Int("rows", d.Count()))
		return d, nil
	}
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer db.Close()
	d, err := db.GetDataset(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load dataset from database", zap.Int("rows", d.Count()))
	return d, nil
}
