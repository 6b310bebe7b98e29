package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names to form config keys.
const EnvPrefix = "SCREEN_"

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the TCP port the HTTP API binds to.
	Port int `koanf:"port" validate:"required,gte=1,lte=65535"`

	// Corpus lists known-bad URL files. ".json" files hold a JSON array of
	// strings; anything else is read as a newline-delimited list.
	Corpus []string `koanf:"corpus" validate:"dive,corpus_path"`

	// CorpusDB is an optional bbolt corpus database built with corpusctl.
	CorpusDB string `koanf:"corpus_db"`

	// Capacity is the expected number of corpus entries the filter is sized for.
	Capacity uint64 `koanf:"capacity" validate:"required,gte=1"`

	// ErrorRate is the target false-positive rate at Capacity.
	ErrorRate float64 `koanf:"error_rate" validate:"gt=0,lt=1"`

	// AllowList holds URLs that are never reported as spam.
	AllowList []string `koanf:"allow_list"`

	Classifier          string        `koanf:"classifier" validate:"required,oneof=none openai gemini"`
	OpenAIKey           string        `koanf:"openai_key" validate:"required_if=Classifier openai"`
	OpenAIModel         string        `koanf:"openai_model"`
	GeminiKey           string        `koanf:"gemini_key" validate:"required_if=Classifier gemini"`
	GeminiModel         string        `koanf:"gemini_model"`
	ClassifierTimeout   time.Duration `koanf:"classifier_timeout" validate:"gte=0"`
	ClassifierRPS       float64       `koanf:"classifier_rps" validate:"gte=0"`
	ClassifierCacheSize int           `koanf:"classifier_cache_size" validate:"gte=0"`
}

// DEFAULT_APP_CONFIG mirrors the original service: port 3000, a urls.json
// corpus, 400k capacity at a 1% false-positive rate, no classifier.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:                 "prod",
	LogLevel:            "info",
	Port:                3000,
	Corpus:              []string{"urls.json"},
	Capacity:            400000,
	ErrorRate:           0.01,
	Classifier:          "none",
	ClassifierTimeout:   15 * time.Second,
	ClassifierRPS:       5,
	ClassifierCacheSize: 1024,
}

var corpusExtensions = map[string]bool{".json": true, ".txt": true, ".list": true, ".hosts": true}

// validCorpusPath accepts a non-blank path with a known corpus extension.
func validCorpusPath(fl validator.FieldLevel) bool {
	p := strings.TrimSpace(fl.Field().String())
	if p == "" {
		return false
	}
	return corpusExtensions[strings.ToLower(filepath.Ext(p))]
}

// envLoader loads environment variables with the prefix "SCREEN_".
// Values containing spaces or commas are split into lists.
// It can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("corpus_path", validCorpusPath)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	// An explicitly empty list decodes to a non-nil slice, which "required"
	// accepts.
	if len(cfg.Corpus) == 0 && cfg.CorpusDB == "" {
		return nil, fmt.Errorf("validation failed: corpus or corpus_db must be set")
	}

	return &cfg, nil
}

// ListenAddr returns the bind address for the HTTP API.
func (c *AppConfig) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
