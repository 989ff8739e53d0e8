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
	"os"
	"os/signal"
	"syscall"

	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/model"
	"github.com/gorse-io/medknow/server"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Fit models on the whole dataset and start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		d, err := loadDataset(ctx, conf, input)
		if err != nil {
			return errors.Trace(err)
		}
		models, err := model.FitAll(conf.Evaluation.Models, d, conf.Evaluation.Target)
		if err != nil {
			return errors.Trace(err)
		}

		s := server.NewRestServer(conf, models)
		tp, err := conf.Tracing.NewTracerProvider(ctx, "medknow")
		if err != nil {
			return errors.Annotate(err, "failed to create trace provider")
		}
		otel.SetTracerProvider(tp)
		s.TracerProvider = tp
		if shutdown, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			defer func() {
				if err := shutdown.Shutdown(context.Background()); err != nil {
					log.Logger().Error("failed to shutdown trace provider", zap.Error(err))
				}
			}()
		}

		if err = s.StartHttpServer(ctx); err != nil {
			return errors.Trace(err)
		}
		log.Logger().Info("stop medknow server successfully")
		return nil
	},
}

func init() {
	serveCommand.Flags().StringP("input", "i", "", "dataset file (read from the database if empty)")
	rootCommand.AddCommand(serveCommand)
}
