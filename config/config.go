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

package config

import (
	"encoding/json"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/medknow/base/log"
	"github.com/gorse-io/medknow/dataset"
	"github.com/gorse-io/medknow/model"
	"github.com/gorse-io/medknow/storage"
	"github.com/invopop/jsonschema"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the configuration for medknow.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Server     ServerConfig     `mapstructure:"server"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// DatabaseConfig is the configuration for the relational store.
type DatabaseConfig struct {
	DataStore       string        `mapstructure:"data_store" validate:"required,data_store"`
	TablePrefix     string        `mapstructure:"table_prefix"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	ConnectRetries  uint          `mapstructure:"connect_retries" validate:"gte=1"`
}

// DatasetConfig is the configuration for generating and exporting datasets.
type DatasetConfig struct {
	Size            int       `mapstructure:"size" validate:"gt=0"`
	Seed            int64     `mapstructure:"seed"`
	Patients        int       `mapstructure:"patients" validate:"gt=0"`
	Doctors         int       `mapstructure:"doctors" validate:"gt=0"`
	TestRatio       float64   `mapstructure:"test_ratio" validate:"gte=0,lt=1"`
	AstigmaticRatio float64   `mapstructure:"astigmatic_ratio" validate:"gte=0,lte=1"`
	ModelsFile      string    `mapstructure:"models_file" validate:"required"`
	OrangeFile      string    `mapstructure:"orange_file" validate:"required"`
	StartDate       time.Time `mapstructure:"start_date"`
}

// EvaluationConfig is the configuration for training and cross-validation.
type EvaluationConfig struct {
	Target   string   `mapstructure:"target" validate:"required"`
	Folds    int      `mapstructure:"folds" validate:"gte=2"`
	Splitter string   `mapstructure:"splitter" validate:"oneof=stratified kfold"`
	Seed     int64    `mapstructure:"seed"`
	Models   []string `mapstructure:"models" validate:"required,min=1,unique,dive,model_name"`
}

// ServerConfig is the configuration for the web server.
type ServerConfig struct {
	Host              string        `mapstructure:"host" validate:"required"`
	Port              int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore:       "sqlite://medknow.db",
			MaxOpenConns:    0,
			MaxIdleConns:    2,
			ConnMaxLifetime: 0,
			ConnectRetries:  5,
		},
		Dataset: DatasetConfig{
			Size:            300,
			Seed:            42,
			Patients:        50,
			Doctors:         5,
			TestRatio:       0.2,
			AstigmaticRatio: 0.3,
			ModelsFile:      "data/dataset.tab",
			OrangeFile:      "data/lenses_dataset.tab",
			StartDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Evaluation: EvaluationConfig{
			Target:   dataset.Lenses,
			Folds:    5,
			Splitter: model.StratifiedKFold,
			Seed:     42,
			Models:   []string{model.OneRuleName, model.ID3Name, model.NaiveBayesName},
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8088,
			CacheTTL:          10 * time.Minute,
			RequestsPerMinute: 0,
		},
		Tracing: TracingConfig{
			Exporter: "otlp",
			Sampler:  "always",
			Ratio:    1,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [database]
	v.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	v.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	v.SetDefault("database.max_open_conns", defaultConfig.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultConfig.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", defaultConfig.Database.ConnMaxLifetime)
	v.SetDefault("database.connect_retries", defaultConfig.Database.ConnectRetries)
	// [dataset]
	v.SetDefault("dataset.size", defaultConfig.Dataset.Size)
	v.SetDefault("dataset.seed", defaultConfig.Dataset.Seed)
	v.SetDefault("dataset.patients", defaultConfig.Dataset.Patients)
	v.SetDefault("dataset.doctors", defaultConfig.Dataset.Doctors)
	v.SetDefault("dataset.test_ratio", defaultConfig.Dataset.TestRatio)
	v.SetDefault("dataset.astigmatic_ratio", defaultConfig.Dataset.AstigmaticRatio)
	v.SetDefault("dataset.models_file", defaultConfig.Dataset.ModelsFile)
	v.SetDefault("dataset.orange_file", defaultConfig.Dataset.OrangeFile)
	v.SetDefault("dataset.start_date", defaultConfig.Dataset.StartDate)
	// [evaluation]
	v.SetDefault("evaluation.target", defaultConfig.Evaluation.Target)
	v.SetDefault("evaluation.folds", defaultConfig.Evaluation.Folds)
	v.SetDefault("evaluation.splitter", defaultConfig.Evaluation.Splitter)
	v.SetDefault("evaluation.seed", defaultConfig.Evaluation.Seed)
	v.SetDefault("evaluation.models", defaultConfig.Evaluation.Models)
	// [server]
	v.SetDefault("server.host", defaultConfig.Server.Host)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.cache_ttl", defaultConfig.Server.CacheTTL)
	v.SetDefault("server.requests_per_minute", defaultConfig.Server.RequestsPerMinute)
	// [tracing]
	v.SetDefault("tracing.enable_tracing", defaultConfig.Tracing.EnableTracing)
	v.SetDefault("tracing.exporter", defaultConfig.Tracing.Exporter)
	v.SetDefault("tracing.collector_endpoint", defaultConfig.Tracing.CollectorEndpoint)
	v.SetDefault("tracing.sampler", defaultConfig.Tracing.Sampler)
	v.SetDefault("tracing.ratio", defaultConfig.Tracing.Ratio)
}

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"database.data_store", "MEDKNOW_DATA_STORE"},
	{"database.table_prefix", "MEDKNOW_TABLE_PREFIX"},
	{"server.host", "MEDKNOW_SERVER_HOST"},
	{"server.port", "MEDKNOW_SERVER_PORT"},
}

// stringToTimeHookFunc parses dates in any layout known to dateparse.
func stringToTimeHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		parsed, err := dateparse.ParseIn(data.(string), time.UTC)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to parse date %q", data)
		}
		return parsed, nil
	}
}

// LoadConfig loads configuration from a TOML file. Missing keys take their
// default values and bound environment variables override the file. An empty
// path loads defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	for _, binding := range bindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			log.Logger().Fatal("failed to bind a Viper key to a ENV variable", zap.Error(err))
		}
	}

	if path != "" {
		// check if file exist
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Trace(err)
		}
		v.SetConfigType("toml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToTimeHookFunc(),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks the configuration and returns a NotValid error listing
// every violated rule.
func (config *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
	})
	if err := validate.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		return storage.IsSupported(fl.Field().String())
	}); err != nil {
		return errors.Trace(err)
	}
	if err := validate.RegisterValidation("model_name", func(fl validator.FieldLevel) bool {
		return lo.Contains(model.Names, fl.Field().String())
	}); err != nil {
		return errors.Trace(err)
	}

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return errors.Trace(err)
	}
	if err := registerTranslation(validate, trans, "data_store",
		"{0} must start with one of "+strings.Join(storage.Prefixes, ", ")); err != nil {
		return errors.Trace(err)
	}
	if err := registerTranslation(validate, trans, "model_name",
		"{0} must be one of "+strings.Join(model.Names, ", ")); err != nil {
		return errors.Trace(err)
	}

	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errors.Trace(err)
	}
	messages := lo.Values(validationErrors.Translate(trans))
	sort.Strings(messages)
	return errors.NewNotValid(nil, strings.Join(messages, "; "))
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, text string) error {
	return validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
		return ut.Add(tag, text, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(tag, fe.Namespace())
		return t
	})
}

// Schema returns the JSON schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		FieldNameTag:   "mapstructure",
		DoNotReference: true,
	}
	schema := reflector.Reflect(&Config{})
	schema.Title = "medknow configuration"
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return data, nil
}
