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
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/google/uuid"
	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/config"
	"github.com/gorse-io/medknow/dataset"
	"github.com/gorse-io/medknow/model"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/juju/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/swaggest/swgui/v5emb"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const (
	apiDocsPath    = "/apidocs.json"
	swaggerUIPath  = "/apidocs/"
	shutdownPeriod = 10 * time.Second
)

// RestServer implements a REST-ful API server. Models are fitted before the
// server starts and are read-only afterwards.
type RestServer struct {
	Config         *config.Config
	Models         map[string]model.Model
	TracerProvider trace.TracerProvider
	WebService     *restful.WebService

	names  []string
	cache  *ttlcache.Cache[string, string]
	bucket *ratelimit.Bucket
}

func NewRestServer(cfg *config.Config, models map[string]model.Model) *RestServer {
	s := &RestServer{
		Config:         cfg,
		Models:         models,
		TracerProvider: noop.NewTracerProvider(),
		names: lo.Filter(model.Names, func(name string, _ int) bool {
			_, exist := models[name]
			return exist
		}),
	}
	if cfg.Server.CacheTTL > 0 {
		s.cache = ttlcache.New(ttlcache.WithTTL[string, string](cfg.Server.CacheTTL))
	}
	if rpm := int64(cfg.Server.RequestsPerMinute); rpm > 0 {
		s.bucket = ratelimit.NewBucketWithQuantum(time.Minute, rpm, rpm)
	}
	return s
}

// Handler creates a container serving the API, the HTML pages, the API
// documentation and Prometheus metrics.
func (s *RestServer) Handler() *restful.Container {
	container := restful.NewContainer()
	// register restful APIs
	s.CreateWebService()
	container.Add(s.WebService)
	container.Add(s.CreatePageService())
	// register swagger UI
	specConfig := restfulspec.Config{
		WebServices:                   []*restful.WebService{s.WebService},
		APIPath:                       apiDocsPath,
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}
	container.Add(restfulspec.NewOpenAPIService(specConfig))
	container.Handle(swaggerUIPath, v5emb.New("medknow", apiDocsPath, swaggerUIPath))
	// register prometheus
	container.Handle("/metrics", promhttp.Handler())
	return container
}

// StartHttpServer starts the REST-ful API server and blocks until the
// context is canceled.
func (s *RestServer) StartHttpServer(ctx context.Context) error {
	if s.cache != nil {
		go s.cache.Start()
		defer s.cache.Stop()
	}
	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	server := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Logger().Error("failed to shutdown http server", zap.Error(err))
		}
	}()

	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s", addr)),
		zap.Strings("models", s.names))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "medknow",
			Description: "Contact lens prescription from examination data.",
		},
	}
}

// LogFilter tags every request with an id and logs it once served.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter("X-Request-ID")
	if requestId == "" {
		requestId = uuid.New().String()
	}
	resp.AddHeader("X-Request-ID", requestId)
	start := time.Now()
	chain.ProcessFilter(req, resp)
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)))
}

// RateLimitFilter rejects requests beyond the configured rate.
func (s *RestServer) RateLimitFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if s.bucket != nil && s.bucket.TakeAvailable(1) == 0 {
		RejectedRequestsTotal.Inc()
		TooManyRequests(resp, errors.Errorf("more than %d requests per minute", s.Config.Server.RequestsPerMinute))
		return
	}
	chain.ProcessFilter(req, resp)
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := new(restful.WebService)
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(otelrestful.OTelFilter("medknow", otelrestful.WithTracerProvider(s.TracerProvider)))
	ws.Filter(LogFilter)
	ws.Filter(s.RateLimitFilter)

	// Predict lenses
	ws.Route(ws.POST("/predict").To(s.predict).
		Doc("Predict the lens type of a patient.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"prediction"}).
		Reads(PredictRequest{}).
		Returns(http.StatusOK, "OK", PredictResponse{}).
		Returns(http.StatusBadRequest, "invalid examination", nil).
		Returns(http.StatusNotFound, "unknown model", nil).
		Writes(PredictResponse{}))
	// Get models
	ws.Route(ws.GET("/models").To(s.getModels).
		Doc("Get trained models.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"model"}).
		Writes([]ModelInfo{}))
	// Get a model
	ws.Route(ws.GET("/models/{name}").To(s.getModel).
		Doc("Get a trained model.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"model"}).
		Param(ws.PathParameter("name", "name of the model").DataType("string")).
		Returns(http.StatusOK, "OK", ModelInfo{}).
		Returns(http.StatusNotFound, "unknown model", nil).
		Writes(ModelInfo{}))
	s.WebService = ws
}

type PredictRequest struct {
	Model       string `json:"model" description:"name of the model, every model if empty"`
	AgeGroup    string `json:"age_group" description:"young, pre-presbyopic or presbyopic"`
	DiseaseName string `json:"disease_name" description:"myope, hypermetrope or astigmatic"`
	Astigmatic  bool   `json:"astigmatic"`
	TearRate    string `json:"tear_rate" description:"normal or reduced"`
}

// Record validates the examination and converts it to a row.
func (r *PredictRequest) Record() (dataset.Record, error) {
	record := model.RecordFromValues(r.AgeGroup, r.DiseaseName, r.Astigmatic, r.TearRate)
	for column, values := range map[string][]string{
		dataset.AgeGroup:    dataset.AgeGroups,
		dataset.DiseaseName: dataset.Diseases,
		dataset.TearRate:    dataset.TearRates,
	} {
		if !lo.Contains(values, record[column]) {
			return nil, errors.NotValidf("%s %q", column, record[column])
		}
	}
	return record, nil
}

type Prediction struct {
	Model       string `json:"model"`
	DisplayName string `json:"display_name"`
	Lenses      string `json:"lenses"`
}

type PredictResponse struct {
	Predictions []Prediction `json:"predictions"`
}

type ModelInfo struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Target      string  `json:"target"`
	Accuracy    float64 `json:"accuracy"`
	Description string  `json:"description"`
}

// Predict predicts the lenses of a row by a model. Results are cached if a
// cache TTL is configured.
func (s *RestServer) Predict(name string, record dataset.Record) (string, error) {
	start := time.Now()
	m, exist := s.Models[name]
	if !exist {
		return "", errors.NotFoundf("model %q", name)
	}
	key := cacheKey(name, record)
	var lenses string
	if item := s.cachedPrediction(key); item != nil {
		PredictionCacheHitsTotal.Inc()
		lenses = item.Value()
	} else {
		var err error
		if lenses, err = m.PredictRow(record); err != nil {
			return "", errors.Trace(err)
		}
		if s.cache != nil {
			s.cache.Set(key, lenses, ttlcache.DefaultTTL)
		}
	}
	PredictionsTotal.WithLabelValues(name, lenses).Inc()
	PredictSeconds.Observe(time.Since(start).Seconds())
	return lenses, nil
}

func (s *RestServer) cachedPrediction(key string) *ttlcache.Item[string, string] {
	if s.cache == nil {
		return nil
	}
	return s.cache.Get(key)
}

func cacheKey(name string, record dataset.Record) string {
	return name + "/" + strings.Join(lo.Map(dataset.FeatureColumns, func(column string, _ int) string {
		return record[column]
	}), "/")
}

func (s *RestServer) predict(request *restful.Request, response *restful.Response) {
	var req PredictRequest
	if err := request.ReadEntity(&req); err != nil {
		BadRequest(response, err)
		return
	}
	record, err := req.Record()
	if err != nil {
		BadRequest(response, err)
		return
	}
	names := s.names
	if req.Model != "" {
		if _, exist := s.Models[req.Model]; !exist {
			PageNotFound(response, errors.NotFoundf("model %q", req.Model))
			return
		}
		names = []string{req.Model}
	}
	predictions := make([]Prediction, 0, len(names))
	for _, name := range names {
		lenses, err := s.Predict(name, record)
		if err != nil {
			InternalServerError(response, err)
			return
		}
		predictions = append(predictions, Prediction{
			Model:       name,
			DisplayName: model.DisplayName(name),
			Lenses:      lenses,
		})
	}
	Ok(response, PredictResponse{Predictions: predictions})
}

func (s *RestServer) modelInfo(name string) (ModelInfo, error) {
	m := s.Models[name]
	score, err := m.Score()
	if err != nil {
		return ModelInfo{}, errors.Annotatef(err, "failed to score model %s", name)
	}
	return ModelInfo{
		Name:        name,
		DisplayName: model.DisplayName(name),
		Target:      m.GetTarget(),
		Accuracy:    score,
		Description: m.String(),
	}, nil
}

func (s *RestServer) getModels(_ *restful.Request, response *restful.Response) {
	infos := make([]ModelInfo, 0, len(s.names))
	for _, name := range s.names {
		info, err := s.modelInfo(name)
		if err != nil {
			InternalServerError(response, err)
			return
		}
		infos = append(infos, info)
	}
	Ok(response, infos)
}

func (s *RestServer) getModel(request *restful.Request, response *restful.Response) {
	name := request.PathParameter("name")
	if _, exist := s.Models[name]; !exist {
		PageNotFound(response, errors.NotFoundf("model %q", name))
		return
	}
	info, err := s.modelInfo(name)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, info)
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// TooManyRequests returns a rate limit error.
func TooManyRequests(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Warn("too many requests", zap.Error(err))
	if err = response.WriteError(http.StatusTooManyRequests, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content any) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}

// HTML sends an HTML page to the client.
func HTML(response *restful.Response, status int, content string) {
	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(status)
	if _, err := response.Write([]byte(content)); err != nil {
		log.ResponseLogger(response).Error("failed to write html", zap.Error(err))
	}
}
