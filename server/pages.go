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
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/emicklei/go-restful/v3"
	"github.com/gorse-io/medknow/dataset"
	"github.com/gorse-io/medknow/model"
	"github.com/juju/errors"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/samber/lo"
	"github.com/yuin/goldmark"
)

const mimeForm = "application/x-www-form-urlencoded"

const indexPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>medknow</title></head>
<body>
<h1>Contact lens prediction</h1>
<form method="post" action="/predict">
<p><label>Age group
<select name="age_group">{% for v in age_groups %}<option value="{{ v }}"{% if v == age_group %} selected{% endif %}>{{ v }}</option>{% endfor %}</select>
</label></p>
<p><label>Disease
<select name="disease_name">{% for v in diseases %}<option value="{{ v }}"{% if v == disease_name %} selected{% endif %}>{{ v }}</option>{% endfor %}</select>
</label></p>
<p><label>Astigmatic <input type="checkbox" name="astigmatic" value="yes"{% if astigmatic %} checked{% endif %}></label></p>
<p><label>Tear rate
<select name="tear_rate">{% for v in tear_rates %}<option value="{{ v }}"{% if v == tear_rate %} selected{% endif %}>{{ v }}</option>{% endfor %}</select>
</label></p>
<p><label>Model
<select name="model">{% for m in models %}<option value="{{ m.Name }}"{% if m.Name == model %} selected{% endif %}>{{ m.DisplayName }}</option>{% endfor %}</select>
</label></p>
<p><button type="submit">Predict</button> <a href="/report">Report</a></p>
</form>
{% if prediction %}<p id="prediction">{{ display_name|e }} prescribes <strong>{{ prediction|e }}</strong> lenses.</p>{% endif %}
{% if error %}<p id="error">{{ error|e }}</p>{% endif %}
</body>
</html>
`

var indexTemplate = lo.Must(gonja.FromString(indexPage))

type modelOption struct {
	Name        string
	DisplayName string
}

// CreatePageService creates the web service of the HTML pages.
func (s *RestServer) CreatePageService() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path("/").Produces("text/html")
	ws.Filter(LogFilter)
	ws.Filter(s.RateLimitFilter)
	ws.Route(ws.GET("/").To(s.getIndex).Doc("Prediction form."))
	ws.Route(ws.POST("/predict").Consumes(mimeForm).To(s.postPredict).Doc("Predict from the form."))
	ws.Route(ws.GET("/report").To(s.getReport).Doc("Learned rules of every model."))
	return ws
}

func (s *RestServer) pageContext(req PredictRequest) map[string]any {
	return map[string]any{
		"age_groups":   dataset.AgeGroups,
		"diseases":     dataset.Diseases,
		"tear_rates":   dataset.TearRates,
		"age_group":    req.AgeGroup,
		"disease_name": req.DiseaseName,
		"astigmatic":   req.Astigmatic,
		"tear_rate":    req.TearRate,
		"model":        req.Model,
		"models": lo.Map(s.names, func(name string, _ int) modelOption {
			return modelOption{Name: name, DisplayName: model.DisplayName(name)}
		}),
	}
}

func (s *RestServer) render(response *restful.Response, status int, ctx map[string]any) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, exec.NewContext(ctx)); err != nil {
		InternalServerError(response, errors.Trace(err))
		return
	}
	HTML(response, status, buf.String())
}

func (s *RestServer) getIndex(_ *restful.Request, response *restful.Response) {
	s.render(response, http.StatusOK, s.pageContext(PredictRequest{}))
}

func (s *RestServer) postPredict(request *restful.Request, response *restful.Response) {
	if err := request.Request.ParseForm(); err != nil {
		BadRequest(response, err)
		return
	}
	form := request.Request.PostForm
	req := PredictRequest{
		Model:       form.Get("model"),
		AgeGroup:    form.Get("age_group"),
		DiseaseName: form.Get("disease_name"),
		Astigmatic:  form.Get("astigmatic") == dataset.ToString(true),
		TearRate:    form.Get("tear_rate"),
	}
	if req.Model == "" && len(s.names) > 0 {
		req.Model = s.names[0]
	}
	ctx := s.pageContext(req)
	record, err := req.Record()
	if err != nil {
		ctx["error"] = err.Error()
		s.render(response, http.StatusBadRequest, ctx)
		return
	}
	lenses, err := s.Predict(req.Model, record)
	if errors.Is(err, errors.NotFound) {
		ctx["error"] = err.Error()
		s.render(response, http.StatusNotFound, ctx)
		return
	} else if err != nil {
		InternalServerError(response, err)
		return
	}
	ctx["prediction"] = lenses
	ctx["display_name"] = model.DisplayName(req.Model)
	s.render(response, http.StatusOK, ctx)
}

// Report renders the learned rules and training accuracy of every model
// as HTML.
func (s *RestServer) Report() (string, error) {
	var source strings.Builder
	source.WriteString("# Models\n\n")
	for _, name := range s.names {
		m := s.Models[name]
		score, err := m.Score()
		if err != nil {
			return "", errors.Annotatef(err, "failed to score model %s", name)
		}
		fmt.Fprintf(&source, "## %s\n\nTraining accuracy: %.3f\n\n```\n%s\n```\n\n", model.DisplayName(name), score, m)
	}
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>medknow report</title></head>\n<body>\n")
	if err := goldmark.Convert([]byte(source.String()), &buf); err != nil {
		return "", errors.Trace(err)
	}
	buf.WriteString("</body>\n</html>\n")
	return buf.String(), nil
}

func (s *RestServer) getReport(_ *restful.Request, response *restful.Response) {
	report, err := s.Report()
	if err != nil {
		InternalServerError(response, err)
		return
	}
	HTML(response, http.StatusOK, report)
}
