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

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "medknow",
		Subsystem: "server",
		Name:      "predict_seconds",
	})
	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medknow",
		Subsystem: "server",
		Name:      "predictions_total",
	}, []string{"model", "lenses"})
	PredictionCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "medknow",
		Subsystem: "server",
		Name:      "prediction_cache_hits_total",
	})
	RejectedRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "medknow",
		Subsystem: "server",
		Name:      "rejected_requests_total",
	})
)
